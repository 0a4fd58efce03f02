// Package state keeps the per-room conversational memory the mediation
// engine consults between messages: an escalation pressure score, a
// bounded emotional trajectory per participant, and an adaptive
// intervention policy tuned by user feedback.
//
// All state is process-local. Rooms are independent; the store is safe
// for concurrent use across rooms, and the engine serializes access
// within a room.
package state

import (
	"sync"
	"time"

	"github.com/liaizen/mediation-plane/pkg/models"
)

const (
	// Escalation scoring.
	scoreIncrement = 10.0
	scoreDecay     = 1.0
	decayInterval  = 5 * time.Minute

	// Intervention policy.
	defaultThreshold = 50.0
	minThreshold     = 30.0
	maxThreshold     = 100.0
	unhelpfulAdjust  = 5.0
	helpfulAdjust    = -2.0
	commentCooldown  = 60 * time.Second

	// History bounds. Oldest entries drop first.
	maxEmotionHistory      = 20
	maxRecentTriggers      = 10
	maxInterventionHistory = 20
)

// Store holds mediation state for every active room.
type Store struct {
	mu        sync.RWMutex
	escalation map[string]*models.EscalationState
	emotional  map[string]*models.EmotionalState
	policy     map[string]*models.PolicyState

	now func() time.Time
}

// NewStore returns an empty in-memory state store.
func NewStore() *Store {
	return &Store{
		escalation: make(map[string]*models.EscalationState),
		emotional:  make(map[string]*models.EmotionalState),
		policy:     make(map[string]*models.PolicyState),
		now:        time.Now,
	}
}

// ── Escalation ───────────────────────────────────────────────

// UpdateEscalation folds one message's conflict patterns into the room's
// escalation score and returns the updated score. A clean message after a
// quiet interval bleeds a little pressure off, so a room that cooled down
// does not trip the threshold on a single bad message.
func (s *Store) UpdateEscalation(roomID string, patterns models.ConflictPatterns) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	es := s.escalation[roomID]
	if es == nil {
		es = &models.EscalationState{}
		s.escalation[roomID] = es
	}

	now := s.now()

	if patterns.Accusatory {
		es.EscalationScore += scoreIncrement
		es.PatternCounts.Accusatory++
	}
	if patterns.Triangulation {
		es.EscalationScore += scoreIncrement
		es.PatternCounts.Triangulation++
	}
	if patterns.Comparison {
		es.EscalationScore += scoreIncrement
		es.PatternCounts.Comparison++
	}
	if patterns.Blaming {
		es.EscalationScore += scoreIncrement
		es.PatternCounts.Blaming++
	}
	if patterns.Any() {
		t := now
		es.LastNegativeTime = &t
	} else if es.LastNegativeTime != nil && now.Sub(*es.LastNegativeTime) > decayInterval {
		es.EscalationScore -= scoreDecay
		if es.EscalationScore < 0 {
			es.EscalationScore = 0
		}
	}

	return es.EscalationScore
}

// EscalationScore returns the room's current score without mutating it.
func (s *Store) EscalationScore(roomID string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if es := s.escalation[roomID]; es != nil {
		return es.EscalationScore
	}
	return 0
}

// ── Emotion ──────────────────────────────────────────────────

// UpdateEmotion merges one model emotion sample into the sender's
// trajectory. History and trigger lists are bounded; the room's
// escalation risk is the mean stress level across participants.
func (s *Store) UpdateEmotion(roomID, username string, sample *models.EmotionSample) {
	if sample == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	em := s.emotional[roomID]
	if em == nil {
		em = &models.EmotionalState{Participants: make(map[string]*models.ParticipantEmotion)}
		s.emotional[roomID] = em
	}

	p := em.Participants[username]
	if p == nil {
		p = &models.ParticipantEmotion{}
		em.Participants[username] = p
	}

	p.CurrentEmotion = sample.CurrentEmotion
	p.StressLevel = sample.StressLevel
	if sample.StressTrajectory != "" {
		p.StressTrajectory = sample.StressTrajectory
	}
	p.EmotionalMomentum = sample.EmotionalMomentum

	p.EmotionHistory = append(p.EmotionHistory, models.EmotionEvent{
		Timestamp: s.now(),
		Emotion:   sample.CurrentEmotion,
		Intensity: sample.StressLevel,
		Triggers:  sample.Triggers,
	})
	if len(p.EmotionHistory) > maxEmotionHistory {
		p.EmotionHistory = p.EmotionHistory[len(p.EmotionHistory)-maxEmotionHistory:]
	}

	if len(sample.Triggers) > 0 {
		p.RecentTriggers = append(p.RecentTriggers, sample.Triggers...)
		if len(p.RecentTriggers) > maxRecentTriggers {
			p.RecentTriggers = p.RecentTriggers[len(p.RecentTriggers)-maxRecentTriggers:]
		}
	}

	if sample.ConversationEmotion != "" {
		em.ConversationEmotion = sample.ConversationEmotion
	}

	var total float64
	for _, part := range em.Participants {
		total += part.StressLevel
	}
	em.EscalationRisk = total / float64(len(em.Participants))
	em.LastUpdated = s.now()
}

// ── Policy ───────────────────────────────────────────────────

// Threshold returns the room's intervention threshold, creating the
// policy record at the default if the room is new.
func (s *Store) Threshold(roomID string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.policyLocked(roomID).InterventionThreshold
}

// RecordIntervention appends one intervention to the room's bounded
// history and stamps the last intervention time.
func (s *Store) RecordIntervention(roomID string, rec models.InterventionRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ps := s.policyLocked(roomID)
	if rec.Timestamp.IsZero() {
		rec.Timestamp = s.now()
	}
	ps.InterventionHistory = append(ps.InterventionHistory, rec)
	if len(ps.InterventionHistory) > maxInterventionHistory {
		ps.InterventionHistory = ps.InterventionHistory[len(ps.InterventionHistory)-maxInterventionHistory:]
	}
	t := rec.Timestamp
	ps.LastInterventionTime = &t
}

// RecordFeedback tags the most recent intervention with the user's
// verdict and nudges the threshold: unhelpful feedback raises it (the
// engine intervenes less), helpful feedback lowers it slightly. The
// threshold stays clamped so the engine never locks fully open or shut.
// It returns the updated threshold and whether an intervention existed
// to attach the feedback to.
func (s *Store) RecordFeedback(roomID string, helpful bool) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ps := s.policyLocked(roomID)
	if len(ps.InterventionHistory) == 0 {
		return ps.InterventionThreshold, false
	}

	last := &ps.InterventionHistory[len(ps.InterventionHistory)-1]
	if helpful {
		last.Outcome = "helpful"
		last.Feedback = "positive"
		ps.InterventionThreshold += helpfulAdjust
	} else {
		last.Outcome = "unhelpful"
		last.Feedback = "negative"
		ps.InterventionThreshold += unhelpfulAdjust
	}
	if ps.InterventionThreshold < minThreshold {
		ps.InterventionThreshold = minThreshold
	}
	if ps.InterventionThreshold > maxThreshold {
		ps.InterventionThreshold = maxThreshold
	}

	ps.AdaptationLevel = adaptationLevel(countFeedback(ps.InterventionHistory))
	return ps.InterventionThreshold, true
}

// CommentAllowed reports whether enough quiet time has passed since the
// last advisory comment in the room.
func (s *Store) CommentAllowed(roomID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ps := s.policy[roomID]
	if ps == nil || ps.LastCommentTime == nil {
		return true
	}
	return s.now().Sub(*ps.LastCommentTime) >= commentCooldown
}

// MarkComment stamps the room's last comment time.
func (s *Store) MarkComment(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ps := s.policyLocked(roomID)
	t := s.now()
	ps.LastCommentTime = &t
}

func (s *Store) policyLocked(roomID string) *models.PolicyState {
	ps := s.policy[roomID]
	if ps == nil {
		ps = &models.PolicyState{
			InterventionThreshold: defaultThreshold,
			AdaptationLevel:       "learning",
		}
		s.policy[roomID] = ps
	}
	return ps
}

func countFeedback(history []models.InterventionRecord) int {
	n := 0
	for _, rec := range history {
		if rec.Feedback != "" {
			n++
		}
	}
	return n
}

func adaptationLevel(feedbackCount int) string {
	switch {
	case feedbackCount >= 15:
		return "stabilized"
	case feedbackCount >= 5:
		return "adapting"
	default:
		return "learning"
	}
}

// ── Snapshot ─────────────────────────────────────────────────

// RoomState returns a deep copy of everything the store knows about a
// room. Unknown rooms come back zero-valued rather than nil so the
// diagnostics surface never 404s on a quiet room.
func (s *Store) RoomState(roomID string) *models.RoomState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := &models.RoomState{
		Emotional: models.EmotionalState{Participants: make(map[string]*models.ParticipantEmotion)},
		Policy:    models.PolicyState{InterventionThreshold: defaultThreshold, AdaptationLevel: "learning"},
	}

	if es := s.escalation[roomID]; es != nil {
		out.Escalation = *es
		if es.LastNegativeTime != nil {
			t := *es.LastNegativeTime
			out.Escalation.LastNegativeTime = &t
		}
	}

	if em := s.emotional[roomID]; em != nil {
		out.Emotional.ConversationEmotion = em.ConversationEmotion
		out.Emotional.EscalationRisk = em.EscalationRisk
		out.Emotional.LastUpdated = em.LastUpdated
		for name, p := range em.Participants {
			cp := *p
			cp.EmotionHistory = append([]models.EmotionEvent(nil), p.EmotionHistory...)
			cp.RecentTriggers = append([]string(nil), p.RecentTriggers...)
			out.Emotional.Participants[name] = &cp
		}
	}

	if ps := s.policy[roomID]; ps != nil {
		out.Policy = *ps
		out.Policy.InterventionHistory = append([]models.InterventionRecord(nil), ps.InterventionHistory...)
		if ps.LastInterventionTime != nil {
			t := *ps.LastInterventionTime
			out.Policy.LastInterventionTime = &t
		}
		if ps.LastCommentTime != nil {
			t := *ps.LastCommentTime
			out.Policy.LastCommentTime = &t
		}
	}

	return out
}
