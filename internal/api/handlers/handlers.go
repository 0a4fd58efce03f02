// Package handlers implements the HTTP handlers for the LiaiZen
// mediation plane: message analysis, intervention feedback, accepted
// rewrites, and room state diagnostics.
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/liaizen/mediation-plane/internal/completion"
	"github.com/liaizen/mediation-plane/internal/mediator"
	"github.com/liaizen/mediation-plane/pkg/models"
)

// Handlers holds all handler dependencies.
type Handlers struct {
	Engine *mediator.Engine
}

// New creates a Handlers instance.
func New(engine *mediator.Engine) *Handlers {
	return &Handlers{Engine: engine}
}

// ── Analyze ──────────────────────────────────────────────────

type analyzeRequest struct {
	Message      models.Message      `json:"message"`
	Recent       []models.Message    `json:"recent_messages,omitempty"`
	Participants []string            `json:"participants,omitempty"`
	RoleContext  *models.RoleContext `json:"role_context,omitempty"`
}

type analyzeResponse struct {
	Result    *models.MediationResult `json:"result"`
	Retryable bool                    `json:"retryable,omitempty"`
}

// AnalyzeMessage runs one message through the mediation pipeline.
// Engine failures still produce a 200 with an allow verdict; the engine
// never blocks delivery over internal trouble.
func (h *Handlers) AnalyzeMessage(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Message.RoomID) == "" {
		respondError(w, http.StatusBadRequest, "message.room_id is required")
		return
	}
	if strings.TrimSpace(req.Message.Username) == "" {
		respondError(w, http.StatusBadRequest, "message.username is required")
		return
	}
	if req.Message.ID == "" {
		req.Message.ID = uuid.NewString()
	}
	if req.Message.Timestamp.IsZero() {
		req.Message.Timestamp = time.Now().UTC()
	}

	result, err := h.Engine.AnalyzeMessage(r.Context(), &req.Message, req.Recent, req.Participants, req.RoleContext)
	resp := analyzeResponse{Result: result}
	if err != nil {
		resp.Retryable = completion.IsRetryable(err)
		log.Warn().Err(err).Str("room_id", req.Message.RoomID).Msg("analysis completed with provider trouble")
	}
	respondJSON(w, http.StatusOK, resp)
}

// ── Feedback ─────────────────────────────────────────────────

type feedbackRequest struct {
	UserID  string `json:"user_id,omitempty"`
	Helpful bool   `json:"helpful"`
}

type feedbackResponse struct {
	InterventionThreshold float64 `json:"intervention_threshold"`
}

// RecordFeedback applies user feedback on the room's latest intervention.
func (h *Handlers) RecordFeedback(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")

	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	threshold := h.Engine.RecordInterventionFeedback(roomID, req.UserID, req.Helpful)
	respondJSON(w, http.StatusOK, feedbackResponse{InterventionThreshold: threshold})
}

// ── Accepted rewrites ────────────────────────────────────────

type acceptRewriteRequest struct {
	UserID   string `json:"user_id"`
	Original string `json:"original"`
	Rewrite  string `json:"rewrite"`
}

// AcceptRewrite records that a user chose to send a suggested rewrite.
func (h *Handlers) AcceptRewrite(w http.ResponseWriter, r *http.Request) {
	var req acceptRewriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.UserID) == "" || strings.TrimSpace(req.Rewrite) == "" {
		respondError(w, http.StatusBadRequest, "user_id and rewrite are required")
		return
	}

	if err := h.Engine.RecordAcceptedRewrite(r.Context(), req.UserID, req.Original, req.Rewrite); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}

// ── Room state ───────────────────────────────────────────────

// GetRoomState returns the room's mediation state snapshot.
func (h *Handlers) GetRoomState(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	respondJSON(w, http.StatusOK, h.Engine.RoomState(roomID))
}

// ── Helpers ──────────────────────────────────────────────────

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
