package actions

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	"github.com/liaizen/mediation-plane/internal/parser"
	"github.com/liaizen/mediation-plane/internal/profile"
	"github.com/liaizen/mediation-plane/internal/rewrite"
	"github.com/liaizen/mediation-plane/internal/state"
	"github.com/liaizen/mediation-plane/pkg/models"
)

// learningTimeout caps each fire-and-forget learning write.
const learningTimeout = 10 * time.Second

// Intervene blocks the message and offers coaching. A decision missing
// any required field is a safety fallback: the message goes through
// untouched rather than blocked on incomplete guidance. Rewrites that
// fail the sender-voice check are swapped for category fallbacks.
// Profile and graph updates run asynchronously with their own error
// containment; they are learning signals, never delivery-critical.
type Intervene struct {
	State    *state.Store
	Profiles profile.Store
	Graph    profile.GraphRecorder
}

func (h *Intervene) Process(_ context.Context, in *Input) *models.MediationResult {
	if missing := parser.MissingInterventionFields(in.Decision); len(missing) > 0 {
		log.Warn().
			Str("room_id", in.Message.RoomID).
			Strs("missing_fields", missing).
			Msg("incomplete intervention, failing open")
		return models.SafetyFallback()
	}

	iv := in.Decision.Intervention
	rewrite1, rewrite2 := iv.Rewrite1, iv.Rewrite2

	check := rewrite.ValidateIntervention(rewrite1, rewrite2)
	if check.AnyFailed {
		fb := rewrite.FallbackFor(in.Message.Text)
		if !check.Rewrite1.Valid {
			rewrite1 = fb.Rewrite1
		}
		if !check.Rewrite2.Valid {
			rewrite2 = fb.Rewrite2
		}
		log.Info().
			Str("room_id", in.Message.RoomID).
			Str("category", fb.Category).
			Bool("rewrite1_replaced", !check.Rewrite1.Valid).
			Bool("rewrite2_replaced", !check.Rewrite2.Valid).
			Msg("rewrite failed voice check, substituted fallback")
	}

	h.State.RecordIntervention(in.Message.RoomID, models.InterventionRecord{
		Type:           "intervene",
		EscalationRisk: riskLevel(in.Decision),
		EmotionalState: emotionLabel(in.Decision),
	})

	go h.recordLearningSignals(in)

	return &models.MediationResult{
		Kind:            models.ResultIntervention,
		Validation:      iv.Validation,
		Insight:         iv.Insight,
		Rewrite1:        rewrite1,
		Rewrite2:        rewrite2,
		OriginalMessage: in.Message,
		Escalation:      in.Decision.Escalation,
		Emotion:         in.Decision.Emotion,
	}
}

// recordLearningSignals updates the sender's profile stats and the
// relationship graph. Failures are logged and dropped.
func (h *Intervene) recordLearningSignals(in *Input) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("learning signal update panicked")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), learningTimeout)
	defer cancel()

	senderID := in.Message.Username
	if in.Roles != nil && in.Roles.SenderID != "" {
		senderID = in.Roles.SenderID
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)

	if h.Profiles != nil {
		err := backoff.Retry(func() error {
			return h.Profiles.RecordIntervention(ctx, senderID)
		}, policy)
		if err != nil {
			log.Warn().Err(err).Str("sender_id", senderID).Msg("profile intervention record failed")
		}
	}

	if h.Graph != nil {
		if err := h.Graph.RecordInterventionOutcome(ctx, in.Message.RoomID, senderID, models.ActionIntervene); err != nil {
			log.Warn().Err(err).Str("room_id", in.Message.RoomID).Msg("graph update failed")
		}
	}
}

func riskLevel(d *models.Decision) string {
	if d.Escalation != nil {
		return d.Escalation.RiskLevel
	}
	return "unknown"
}

func emotionLabel(d *models.Decision) string {
	if d.Emotion != nil {
		return d.Emotion.CurrentEmotion
	}
	return "unknown"
}
