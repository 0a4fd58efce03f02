package state

import (
	"fmt"
	"testing"
	"time"

	"github.com/liaizen/mediation-plane/pkg/models"
)

// newClockedStore returns a store whose clock the test advances manually.
func newClockedStore(start time.Time) (*Store, *time.Time) {
	s := NewStore()
	now := start
	s.now = func() time.Time { return now }
	return s, &now
}

func TestUpdateEscalation_IncrementsPerPattern(t *testing.T) {
	s := NewStore()

	score := s.UpdateEscalation("room", models.ConflictPatterns{Accusatory: true, Blaming: true})
	if score != 2*scoreIncrement {
		t.Errorf("score = %v, want %v", score, 2*scoreIncrement)
	}

	rs := s.RoomState("room")
	if rs.Escalation.PatternCounts.Accusatory != 1 || rs.Escalation.PatternCounts.Blaming != 1 {
		t.Errorf("pattern counts = %+v, want accusatory and blaming at 1", rs.Escalation.PatternCounts)
	}
	if rs.Escalation.LastNegativeTime == nil {
		t.Error("last negative time not stamped after conflict patterns")
	}
}

func TestUpdateEscalation_CleanMessageLeavesScoreUntouched(t *testing.T) {
	s := NewStore()

	s.UpdateEscalation("room", models.ConflictPatterns{Accusatory: true})
	score := s.UpdateEscalation("room", models.ConflictPatterns{})
	if score != scoreIncrement {
		t.Errorf("score after clean message = %v, want %v", score, scoreIncrement)
	}
}

func TestUpdateEscalation_DecaysAfterQuietInterval(t *testing.T) {
	s, now := newClockedStore(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	s.UpdateEscalation("room", models.ConflictPatterns{Accusatory: true, Triangulation: true, Comparison: true})
	*now = now.Add(decayInterval + time.Second)

	score := s.UpdateEscalation("room", models.ConflictPatterns{})
	want := 3*scoreIncrement - scoreDecay
	if score != want {
		t.Errorf("score after quiet interval = %v, want %v", score, want)
	}

	// Each clean update past the interval bleeds one more decay step.
	*now = now.Add(time.Second)
	if got := s.UpdateEscalation("room", models.ConflictPatterns{}); got != want-scoreDecay {
		t.Errorf("score = %v, want %v", got, want-scoreDecay)
	}
}

func TestUpdateEscalation_NeverDecaysBelowZero(t *testing.T) {
	s, now := newClockedStore(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	*now = now.Add(time.Hour)
	if score := s.UpdateEscalation("room", models.ConflictPatterns{}); score != 0 {
		t.Errorf("score on fresh room = %v, want 0", score)
	}
}

func TestUpdateEmotion_TracksParticipantAndRoomRisk(t *testing.T) {
	s := NewStore()

	s.UpdateEmotion("room", "alex", &models.EmotionSample{
		CurrentEmotion: "frustrated", StressLevel: 8, Triggers: []string{"schedule"},
	})
	s.UpdateEmotion("room", "sam", &models.EmotionSample{
		CurrentEmotion: "calm", StressLevel: 2,
	})

	rs := s.RoomState("room")
	alex := rs.Emotional.Participants["alex"]
	if alex == nil || alex.CurrentEmotion != "frustrated" || alex.StressLevel != 8 {
		t.Fatalf("alex = %+v, want frustrated at stress 8", alex)
	}
	if got := rs.Emotional.EscalationRisk; got != 5 {
		t.Errorf("room escalation risk = %v, want mean stress 5", got)
	}
	if len(alex.EmotionHistory) != 1 || alex.EmotionHistory[0].Intensity != 8 {
		t.Errorf("history = %+v, want one event at intensity 8", alex.EmotionHistory)
	}
}

func TestUpdateEmotion_BoundsHistoryAndTriggers(t *testing.T) {
	s := NewStore()

	for i := 0; i < maxEmotionHistory+7; i++ {
		s.UpdateEmotion("room", "alex", &models.EmotionSample{
			CurrentEmotion: "tense",
			StressLevel:    float64(i),
			Triggers:       []string{fmt.Sprintf("t%d", i)},
		})
	}

	p := s.RoomState("room").Emotional.Participants["alex"]
	if len(p.EmotionHistory) != maxEmotionHistory {
		t.Errorf("history length = %d, want %d", len(p.EmotionHistory), maxEmotionHistory)
	}
	// Oldest entries drop first.
	if p.EmotionHistory[0].Intensity != 7 {
		t.Errorf("oldest kept event intensity = %v, want 7", p.EmotionHistory[0].Intensity)
	}
	if len(p.RecentTriggers) != maxRecentTriggers {
		t.Errorf("triggers length = %d, want %d", len(p.RecentTriggers), maxRecentTriggers)
	}
	if p.RecentTriggers[len(p.RecentTriggers)-1] != fmt.Sprintf("t%d", maxEmotionHistory+6) {
		t.Errorf("newest trigger = %q, want the last one recorded", p.RecentTriggers[len(p.RecentTriggers)-1])
	}
}

func TestRecordFeedback_AdjustsThresholdWithinBounds(t *testing.T) {
	s := NewStore()

	if _, ok := s.RecordFeedback("room", false); ok {
		t.Error("feedback attached with no intervention on record")
	}

	s.RecordIntervention("room", models.InterventionRecord{Type: "intervene"})

	got, ok := s.RecordFeedback("room", false)
	if !ok || got != defaultThreshold+unhelpfulAdjust {
		t.Errorf("threshold after unhelpful = (%v, %v), want (%v, true)", got, ok, defaultThreshold+unhelpfulAdjust)
	}

	got, _ = s.RecordFeedback("room", true)
	if got != defaultThreshold+unhelpfulAdjust+helpfulAdjust {
		t.Errorf("threshold after helpful = %v, want %v", got, defaultThreshold+unhelpfulAdjust+helpfulAdjust)
	}

	// Helpful feedback keeps lowering the threshold until the floor.
	for i := 0; i < 30; i++ {
		got, _ = s.RecordFeedback("room", true)
	}
	if got != minThreshold {
		t.Errorf("threshold floor = %v, want %v", got, minThreshold)
	}

	last := s.RoomState("room").Policy.InterventionHistory[0]
	if last.Outcome != "helpful" || last.Feedback != "positive" {
		t.Errorf("latest record outcome = %+v, want helpful/positive", last)
	}
}

func TestRecordFeedback_ThresholdCeiling(t *testing.T) {
	s := NewStore()
	s.RecordIntervention("room", models.InterventionRecord{Type: "intervene"})

	var got float64
	for i := 0; i < 30; i++ {
		got, _ = s.RecordFeedback("room", false)
	}
	if got != maxThreshold {
		t.Errorf("threshold ceiling = %v, want %v", got, maxThreshold)
	}
}

func TestRecordIntervention_BoundsHistory(t *testing.T) {
	s := NewStore()

	for i := 0; i < maxInterventionHistory+5; i++ {
		s.RecordIntervention("room", models.InterventionRecord{Type: "intervene"})
	}

	ps := s.RoomState("room").Policy
	if len(ps.InterventionHistory) != maxInterventionHistory {
		t.Errorf("history length = %d, want %d", len(ps.InterventionHistory), maxInterventionHistory)
	}
	if ps.LastInterventionTime == nil {
		t.Error("last intervention time not stamped")
	}
}

func TestCommentCooldown(t *testing.T) {
	s, now := newClockedStore(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	if !s.CommentAllowed("room") {
		t.Fatal("fresh room should allow a comment")
	}
	s.MarkComment("room")
	if s.CommentAllowed("room") {
		t.Error("comment allowed immediately after one was delivered")
	}

	*now = now.Add(commentCooldown)
	if !s.CommentAllowed("room") {
		t.Error("comment still blocked after cooldown elapsed")
	}
}

func TestRoomState_UnknownRoomReturnsDefaults(t *testing.T) {
	s := NewStore()
	rs := s.RoomState("ghost")
	if rs.Policy.InterventionThreshold != defaultThreshold {
		t.Errorf("threshold = %v, want default %v", rs.Policy.InterventionThreshold, defaultThreshold)
	}
	if rs.Escalation.EscalationScore != 0 {
		t.Errorf("score = %v, want 0", rs.Escalation.EscalationScore)
	}
	if rs.Emotional.Participants == nil {
		t.Error("participants map is nil, want empty map")
	}
}

func TestRoomState_SnapshotIsDetached(t *testing.T) {
	s := NewStore()
	s.UpdateEmotion("room", "alex", &models.EmotionSample{CurrentEmotion: "calm", StressLevel: 1})

	snap := s.RoomState("room")
	snap.Emotional.Participants["alex"].StressLevel = 99
	snap.Emotional.Participants["alex"].EmotionHistory[0].Intensity = 99

	fresh := s.RoomState("room")
	if fresh.Emotional.Participants["alex"].StressLevel == 99 {
		t.Error("mutating a snapshot leaked into the store")
	}
	if fresh.Emotional.Participants["alex"].EmotionHistory[0].Intensity == 99 {
		t.Error("mutating snapshot history leaked into the store")
	}
}
