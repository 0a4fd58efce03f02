// Package models defines the shared domain types for the LiaiZen mediation
// plane: inbound messages, model decisions, mediation results, and the
// per-room conversational state the engine maintains between messages.
package models

import (
	"time"
)

// ── Messages ─────────────────────────────────────────────────

// Message is one inbound chat message under mediation.
type Message struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"room_id"`
	Username  string    `json:"username"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// RoleContext identifies who is writing and who will receive the message.
// Sender and receiver get different treatment: coaching addresses the
// sender, profile lookups cover both.
type RoleContext struct {
	SenderID   string `json:"sender_id"`
	ReceiverID string `json:"receiver_id"`
}

// ── Model Decision ───────────────────────────────────────────

// Action names the completion service may return. Unrecognized actions
// resolve to the default (fail-open) handler.
const (
	ActionStaySilent = "STAY_SILENT"
	ActionComment    = "COMMENT"
	ActionIntervene  = "INTERVENE"
)

// Decision is the parsed verdict of one completion call.
// Field tags match the JSON contract given to the model verbatim.
type Decision struct {
	Action       string               `json:"action"`
	Escalation   *EscalationAssess    `json:"escalation,omitempty"`
	Emotion      *EmotionSample       `json:"emotion,omitempty"`
	Intervention *InterventionPayload `json:"intervention,omitempty"`
}

// EscalationAssess is the model's view of conflict risk for one message.
type EscalationAssess struct {
	RiskLevel  string   `json:"riskLevel"`
	Confidence int      `json:"confidence"`
	Reasons    []string `json:"reasons,omitempty"`
}

// EmotionSample is the model's emotional read of the sender for one message.
type EmotionSample struct {
	CurrentEmotion      string   `json:"currentEmotion"`
	StressLevel         float64  `json:"stressLevel"`
	StressTrajectory    string   `json:"stressTrajectory,omitempty"`
	EmotionalMomentum   float64  `json:"emotionalMomentum,omitempty"`
	Triggers            []string `json:"triggers,omitempty"`
	ConversationEmotion string   `json:"conversationEmotion,omitempty"`
}

// InterventionPayload carries the coaching content of a COMMENT or
// INTERVENE decision. Validation, Rewrite1 and Rewrite2 are required for
// INTERVENE; Insight is display-only; Comment is only used for COMMENT.
type InterventionPayload struct {
	Validation string `json:"validation,omitempty"`
	Insight    string `json:"insight,omitempty"`
	Rewrite1   string `json:"rewrite1,omitempty"`
	Rewrite2   string `json:"rewrite2,omitempty"`
	Comment    string `json:"comment,omitempty"`
}

// ── Mediation Result ─────────────────────────────────────────

// ResultKind tags the terminal outcome of a mediation pipeline.
type ResultKind string

const (
	// ResultAllow passes the message through unchanged.
	ResultAllow ResultKind = "allow"
	// ResultComment delivers the message with an advisory note attached.
	ResultComment ResultKind = "comment"
	// ResultIntervention blocks the message and offers rewrites.
	ResultIntervention ResultKind = "intervention"
	// ResultSafetyFallback behaves exactly like allow; the distinct tag
	// exists so incomplete model verdicts are visible in logs and metrics.
	ResultSafetyFallback ResultKind = "safety_fallback"
)

// MediationResult is the engine's answer for one message.
type MediationResult struct {
	Kind ResultKind `json:"kind"`

	// Comment text (ResultComment only).
	Text string `json:"text,omitempty"`

	// Coaching content (ResultIntervention only).
	Validation string `json:"validation,omitempty"`
	Insight    string `json:"insight,omitempty"`
	Rewrite1   string `json:"rewrite1,omitempty"`
	Rewrite2   string `json:"rewrite2,omitempty"`

	OriginalMessage *Message          `json:"original_message,omitempty"`
	Escalation      *EscalationAssess `json:"escalation,omitempty"`
	Emotion         *EmotionSample    `json:"emotion,omitempty"`
}

// Allowed reports whether the message should be delivered unchanged.
// Both allow and safety_fallback deliver.
func (r *MediationResult) Allowed() bool {
	return r.Kind == ResultAllow || r.Kind == ResultSafetyFallback
}

// Allow is the pass-through result.
func Allow() *MediationResult {
	return &MediationResult{Kind: ResultAllow}
}

// SafetyFallback is the allow-equivalent result used when the model chose
// to intervene but did not supply complete guidance.
func SafetyFallback() *MediationResult {
	return &MediationResult{Kind: ResultSafetyFallback}
}

// ── Conflict Patterns ────────────────────────────────────────

// ConflictPatterns are the locally detected (no model call) conflict
// signals in one message.
type ConflictPatterns struct {
	Accusatory    bool `json:"accusatory"`
	Triangulation bool `json:"triangulation"`
	Comparison    bool `json:"comparison"`
	Blaming       bool `json:"blaming"`
}

// Any reports whether at least one pattern fired.
func (p ConflictPatterns) Any() bool {
	return p.Accusatory || p.Triangulation || p.Comparison || p.Blaming
}

// ── Room State ───────────────────────────────────────────────

// PatternCounts accumulates how often each conflict pattern has fired in
// a room since the room state was created.
type PatternCounts struct {
	Accusatory    int `json:"accusatory"`
	Triangulation int `json:"triangulation"`
	Comparison    int `json:"comparison"`
	Blaming       int `json:"blaming"`
}

// EscalationState is the per-room conflict pressure score.
type EscalationState struct {
	EscalationScore  float64       `json:"escalation_score"`
	LastNegativeTime *time.Time    `json:"last_negative_time,omitempty"`
	PatternCounts    PatternCounts `json:"pattern_counts"`
}

// EmotionEvent is one entry in a participant's emotion history.
type EmotionEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Emotion   string    `json:"emotion"`
	Intensity float64   `json:"intensity"`
	Triggers  []string  `json:"triggers,omitempty"`
}

// ParticipantEmotion tracks one participant's emotional trajectory.
// History and triggers are bounded; the oldest entries drop first.
type ParticipantEmotion struct {
	CurrentEmotion    string         `json:"current_emotion"`
	StressLevel       float64        `json:"stress_level"`
	StressTrajectory  string         `json:"stress_trajectory"`
	EmotionalMomentum float64        `json:"emotional_momentum"`
	EmotionHistory    []EmotionEvent `json:"emotion_history"`
	RecentTriggers    []string       `json:"recent_triggers"`
}

// EmotionalState is the per-room emotional picture across participants.
type EmotionalState struct {
	Participants        map[string]*ParticipantEmotion `json:"participants"`
	ConversationEmotion string                         `json:"conversation_emotion"`
	EscalationRisk      float64                        `json:"escalation_risk"`
	LastUpdated         time.Time                      `json:"last_updated"`
}

// InterventionRecord is one entry in a room's intervention history.
type InterventionRecord struct {
	Timestamp      time.Time `json:"timestamp"`
	Type           string    `json:"type"`
	EscalationRisk string    `json:"escalation_risk"`
	EmotionalState string    `json:"emotional_state"`
	Outcome        string    `json:"outcome,omitempty"`
	Feedback       string    `json:"feedback,omitempty"`
}

// PolicyState is the per-room adaptive intervention policy.
type PolicyState struct {
	InterventionThreshold float64              `json:"intervention_threshold"`
	InterventionHistory   []InterventionRecord `json:"intervention_history"`
	LastInterventionTime  *time.Time           `json:"last_intervention_time,omitempty"`
	LastCommentTime       *time.Time           `json:"last_comment_time,omitempty"`
	AdaptationLevel       string               `json:"adaptation_level"`
}

// RoomState is a read-only snapshot of all three state kinds for one room,
// exposed for diagnostics.
type RoomState struct {
	Escalation EscalationState `json:"escalation"`
	Emotional  EmotionalState  `json:"emotional"`
	Policy     PolicyState     `json:"policy"`
}

// ── Communication Profiles ───────────────────────────────────

// CommunicationPatterns summarizes how a user tends to write.
type CommunicationPatterns struct {
	ToneTendencies   []string `json:"tone_tendencies"`
	CommonPhrases    []string `json:"common_phrases"`
	AvgMessageLength float64  `json:"avg_message_length"`
	MessageCount     int      `json:"message_count"`
}

// TriggerPatterns lists topics and phrases known to escalate a user.
type TriggerPatterns struct {
	Topics    []string `json:"topics"`
	Phrases   []string `json:"phrases"`
	Intensity float64  `json:"intensity"`
}

// AcceptedRewrite records a rewrite suggestion the user chose to send.
type AcceptedRewrite struct {
	Original   string    `json:"original"`
	Rewrite    string    `json:"rewrite,omitempty"`
	AcceptedAt time.Time `json:"accepted_at"`
}

// InterventionStats aggregates intervention outcomes for a user.
type InterventionStats struct {
	Total          int        `json:"total"`
	Accepted       int        `json:"accepted"`
	Rejected       int        `json:"rejected"`
	AcceptanceRate float64    `json:"acceptance_rate"`
	Last           *time.Time `json:"last,omitempty"`
}

// CommunicationProfile is the long-lived learning record for one user.
// The engine reads decayed views of it and issues append-style updates;
// ownership lives with the persistence layer.
type CommunicationProfile struct {
	UserID                string                `json:"user_id"`
	CommunicationPatterns CommunicationPatterns `json:"communication_patterns"`
	Triggers              TriggerPatterns       `json:"triggers"`
	SuccessfulRewrites    []AcceptedRewrite     `json:"successful_rewrites"`
	InterventionHistory   InterventionStats     `json:"intervention_history"`
	ProfileVersion        int                   `json:"profile_version"`
	LastProfileUpdate     *time.Time            `json:"last_profile_update,omitempty"`
}

// DecayedPatterns is a recency-weighted view of a profile. A profile whose
// last update has fully decayed comes back explicitly stale with empty
// pattern data so callers never coach from expired observations.
type DecayedPatterns struct {
	IsStale            bool              `json:"is_stale"`
	RelevanceWeight    float64           `json:"relevance_weight"`
	ToneTendencies     []string          `json:"tone_tendencies"`
	CommonPhrases      []string          `json:"common_phrases"`
	AvgMessageLength   float64           `json:"avg_message_length"`
	Triggers           TriggerPatterns   `json:"triggers"`
	SuccessfulRewrites []AcceptedRewrite `json:"successful_rewrites"`
}
