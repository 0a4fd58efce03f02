package actions

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/liaizen/mediation-plane/internal/state"
	"github.com/liaizen/mediation-plane/pkg/models"
)

// fakeProfiles records calls instead of persisting.
type fakeProfiles struct {
	mu            sync.Mutex
	interventions []string
	outcomes      map[string]bool
	rewrites      []string
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{outcomes: make(map[string]bool)}
}

func (f *fakeProfiles) GetProfile(context.Context, string) (*models.CommunicationProfile, error) {
	return nil, nil
}
func (f *fakeProfiles) UpdateProfile(context.Context, *models.CommunicationProfile) error {
	return nil
}
func (f *fakeProfiles) RecordIntervention(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.interventions = append(f.interventions, userID)
	return nil
}
func (f *fakeProfiles) RecordOutcome(_ context.Context, userID string, accepted bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes[userID] = accepted
	return nil
}
func (f *fakeProfiles) RecordAcceptedRewrite(_ context.Context, _, _, rewriteText string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rewrites = append(f.rewrites, rewriteText)
	return nil
}
func (f *fakeProfiles) Close() error { return nil }

type fakeGraph struct {
	mu    sync.Mutex
	calls []string
}

func (g *fakeGraph) RecordInterventionOutcome(_ context.Context, roomID, senderID, action string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, roomID+"/"+senderID+"/"+action)
	return nil
}

func input(text string, d *models.Decision) *Input {
	return &Input{
		Message:  &models.Message{ID: "m1", RoomID: "room", Username: "alex", Text: text},
		Roles:    &models.RoleContext{SenderID: "alex", ReceiverID: "sam"},
		Decision: d,
	}
}

func TestRegistry_ResolveCaseInsensitive(t *testing.T) {
	r := NewRegistry(Default{})
	r.Register(models.ActionStaySilent, StaySilent{})

	if _, ok := r.Resolve("stay_silent").(StaySilent); !ok {
		t.Error("lowercase action name did not resolve to registered handler")
	}
	if _, ok := r.Resolve(" Stay_Silent ").(StaySilent); !ok {
		t.Error("padded mixed-case action name did not resolve")
	}
	if _, ok := r.Resolve("SELF_DESTRUCT").(Default); !ok {
		t.Error("unknown action did not resolve to fallback")
	}
	if _, ok := r.Resolve("").(Default); !ok {
		t.Error("empty action did not resolve to fallback")
	}
}

func TestStaySilentAndDefault_Allow(t *testing.T) {
	in := input("whatever", &models.Decision{Action: "SOMETHING_NEW"})

	if res := (StaySilent{}).Process(context.Background(), in); res.Kind != models.ResultAllow {
		t.Errorf("StaySilent = %v, want allow", res.Kind)
	}
	if res := (Default{}).Process(context.Background(), in); res.Kind != models.ResultAllow {
		t.Errorf("Default = %v, want allow", res.Kind)
	}
}

func TestComment_DeliversAndMarksCooldown(t *testing.T) {
	st := state.NewStore()
	h := &Comment{State: st}

	d := &models.Decision{
		Action:       models.ActionComment,
		Intervention: &models.InterventionPayload{Comment: "Consider softening this."},
	}
	res := h.Process(context.Background(), input("you never help", d))
	if res.Kind != models.ResultComment || res.Text != "Consider softening this." {
		t.Errorf("result = %+v, want comment", res)
	}
	if st.CommentAllowed("room") {
		t.Error("cooldown not started after a delivered comment")
	}
}

func TestComment_FrequencyLimitedAllows(t *testing.T) {
	st := state.NewStore()
	h := &Comment{State: st}

	in := input("you never help", &models.Decision{
		Action:       models.ActionComment,
		Intervention: &models.InterventionPayload{Comment: "note"},
	})
	in.CommentLimited = true

	if res := h.Process(context.Background(), in); res.Kind != models.ResultAllow {
		t.Errorf("limited comment = %v, want allow", res.Kind)
	}
	if !st.CommentAllowed("room") {
		t.Error("suppressed comment started the cooldown")
	}
}

func TestComment_MissingTextAllows(t *testing.T) {
	h := &Comment{State: state.NewStore()}
	res := h.Process(context.Background(), input("text", &models.Decision{Action: models.ActionComment}))
	if res.Kind != models.ResultAllow {
		t.Errorf("comment without text = %v, want allow", res.Kind)
	}
}

func TestIntervene_MissingFieldsFallsBackToSafety(t *testing.T) {
	st := state.NewStore()
	h := &Intervene{State: st, Profiles: newFakeProfiles(), Graph: &fakeGraph{}}

	d := &models.Decision{
		Action:       models.ActionIntervene,
		Intervention: &models.InterventionPayload{Validation: "v", Rewrite1: "I'm feeling stuck."},
	}
	res := h.Process(context.Background(), input("you suck", d))
	if res.Kind != models.ResultSafetyFallback {
		t.Fatalf("result = %v, want safety fallback", res.Kind)
	}
	if !res.Allowed() {
		t.Error("safety fallback must deliver the message")
	}
	if len(st.RoomState("room").Policy.InterventionHistory) != 0 {
		t.Error("incomplete intervention recorded into policy history")
	}
}

func TestIntervene_CompleteDecision(t *testing.T) {
	st := state.NewStore()
	h := &Intervene{State: st}

	d := &models.Decision{
		Action:     models.ActionIntervene,
		Escalation: &models.EscalationAssess{RiskLevel: "high", Confidence: 90},
		Emotion:    &models.EmotionSample{CurrentEmotion: "frustrated", StressLevel: 8},
		Intervention: &models.InterventionPayload{
			Validation: "It makes sense you're frustrated about the schedule.",
			Insight:    "Absolutes shut the conversation down.",
			Rewrite1:   "I'm feeling frustrated about the schedule changes.",
			Rewrite2:   "Can we find a way to keep pickups consistent?",
		},
	}
	res := h.Process(context.Background(), input("you never stick to the plan", d))

	if res.Kind != models.ResultIntervention {
		t.Fatalf("result = %v, want intervention", res.Kind)
	}
	if res.Rewrite1 != d.Intervention.Rewrite1 || res.Rewrite2 != d.Intervention.Rewrite2 {
		t.Error("valid rewrites were altered")
	}
	if res.Allowed() {
		t.Error("intervention must hold the message for the sender")
	}

	ps := st.RoomState("room").Policy
	if len(ps.InterventionHistory) != 1 {
		t.Fatalf("history = %d records, want 1", len(ps.InterventionHistory))
	}
	if ps.InterventionHistory[0].EscalationRisk != "high" {
		t.Errorf("recorded risk = %q, want high", ps.InterventionHistory[0].EscalationRisk)
	}
	if ps.LastInterventionTime == nil {
		t.Error("last intervention time not stamped")
	}
}

func TestIntervene_ReceiverVoiceRewriteReplaced(t *testing.T) {
	h := &Intervene{State: state.NewStore()}

	d := &models.Decision{
		Action: models.ActionIntervene,
		Intervention: &models.InterventionPayload{
			Validation: "v",
			Rewrite1:   "I'm sorry you feel that way.", // receiver voice
			Rewrite2:   "Can we talk about the schedule?",
		},
	}
	res := h.Process(context.Background(), input("you never help with homework", d))

	if res.Kind != models.ResultIntervention {
		t.Fatalf("result = %v, want intervention", res.Kind)
	}
	if res.Rewrite1 == "I'm sorry you feel that way." {
		t.Error("receiver-voice rewrite shipped unreplaced")
	}
	if res.Rewrite1 == "" {
		t.Error("replacement rewrite empty")
	}
	if res.Rewrite2 != "Can we talk about the schedule?" {
		t.Error("valid rewrite was replaced")
	}
	// "you never" categorizes as blame; the fallback should match.
	if !strings.Contains(res.Rewrite1, "overwhelmed") {
		t.Errorf("fallback rewrite = %q, want blame-category text", res.Rewrite1)
	}
}

func TestRecordLearningSignals(t *testing.T) {
	profiles := newFakeProfiles()
	graph := &fakeGraph{}
	h := &Intervene{State: state.NewStore(), Profiles: profiles, Graph: graph}

	in := input("you never help", &models.Decision{Action: models.ActionIntervene})
	h.recordLearningSignals(in)

	if len(profiles.interventions) != 1 || profiles.interventions[0] != "alex" {
		t.Errorf("profile interventions = %v, want [alex]", profiles.interventions)
	}
	if len(graph.calls) != 1 || graph.calls[0] != "room/alex/INTERVENE" {
		t.Errorf("graph calls = %v", graph.calls)
	}
}

func TestRecordLearningSignals_NilCollaborators(t *testing.T) {
	h := &Intervene{State: state.NewStore()}
	// Must not panic with nothing wired.
	h.recordLearningSignals(input("text", &models.Decision{}))
}
