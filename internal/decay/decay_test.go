package decay_test

import (
	"testing"
	"time"

	"github.com/liaizen/mediation-plane/internal/decay"
	"github.com/liaizen/mediation-plane/pkg/models"
)

func daysAgo(d int) time.Time {
	return time.Now().Add(-time.Duration(d) * 24 * time.Hour)
}

func TestWeight_StepFunction(t *testing.T) {
	cases := []struct {
		days int
		want float64
	}{
		{0, 1.0},
		{10, 1.0},
		{29, 1.0},
		{45, 0.7},
		{75, 0.3},
		{120, 0.0},
	}
	for _, tc := range cases {
		if got := decay.Weight(daysAgo(tc.days)); got != tc.want {
			t.Errorf("Weight(%dd ago) = %v, want %v", tc.days, got, tc.want)
		}
	}
}

func TestWeight_ZeroTime(t *testing.T) {
	if got := decay.Weight(time.Time{}); got != 0.0 {
		t.Errorf("Weight(zero) = %v, want 0.0", got)
	}
}

type stamped struct {
	name string
	at   time.Time
}

func TestApplyDecay_FiltersExpired(t *testing.T) {
	items := []stamped{
		{"recent", daysAgo(1)},
		{"expired", daysAgo(100)},
	}
	got := decay.ApplyDecay(items, func(s stamped) time.Time { return s.at })
	if len(got) != 1 {
		t.Fatalf("ApplyDecay() kept %d items, want 1", len(got))
	}
	if got[0].Value.name != "recent" {
		t.Errorf("ApplyDecay() kept %q, want %q", got[0].Value.name, "recent")
	}
	if got[0].Weight != 1.0 {
		t.Errorf("ApplyDecay() weight = %v, want 1.0", got[0].Weight)
	}
}

func TestApplyDecay_SortsByWeightThenRecency(t *testing.T) {
	items := []stamped{
		{"old", daysAgo(50)},    // 0.7
		{"recent", daysAgo(5)},  // 1.0
		{"medium", daysAgo(40)}, // 0.7, newer than "old"
	}
	got := decay.ApplyDecay(items, func(s stamped) time.Time { return s.at })
	want := []string{"recent", "medium", "old"}
	if len(got) != len(want) {
		t.Fatalf("ApplyDecay() kept %d items, want %d", len(got), len(want))
	}
	for i, name := range want {
		if got[i].Value.name != name {
			t.Errorf("ApplyDecay()[%d] = %q, want %q", i, got[i].Value.name, name)
		}
	}
}

func TestPatterns_NilProfile(t *testing.T) {
	if got := decay.Patterns(nil); got != nil {
		t.Errorf("Patterns(nil) = %+v, want nil", got)
	}
}

func TestPatterns_StaleProfile(t *testing.T) {
	last := daysAgo(100)
	p := &models.CommunicationProfile{
		UserID:            "alex",
		LastProfileUpdate: &last,
		CommunicationPatterns: models.CommunicationPatterns{
			ToneTendencies: []string{"assertive"},
		},
		Triggers: models.TriggerPatterns{Intensity: 0.9},
	}

	got := decay.Patterns(p)
	if !got.IsStale {
		t.Error("Patterns() IsStale = false, want true for 100-day-old profile")
	}
	if got.RelevanceWeight != 0 {
		t.Errorf("Patterns() RelevanceWeight = %v, want 0", got.RelevanceWeight)
	}
	if len(got.ToneTendencies) != 0 {
		t.Errorf("Patterns() ToneTendencies = %v, want empty", got.ToneTendencies)
	}
	if got.Triggers.Intensity != 0 {
		t.Errorf("Patterns() trigger intensity = %v, want 0", got.Triggers.Intensity)
	}
}

func TestPatterns_ScalesTriggerIntensity(t *testing.T) {
	last := daysAgo(45) // 0.7 weight
	p := &models.CommunicationProfile{
		UserID:            "alex",
		LastProfileUpdate: &last,
		Triggers:          models.TriggerPatterns{Intensity: 1.0},
	}

	got := decay.Patterns(p)
	if got.IsStale {
		t.Fatal("Patterns() IsStale = true, want false")
	}
	if got.RelevanceWeight != 0.7 {
		t.Errorf("Patterns() RelevanceWeight = %v, want 0.7", got.RelevanceWeight)
	}
	if got.Triggers.Intensity != 0.7 {
		t.Errorf("Patterns() trigger intensity = %v, want 0.7", got.Triggers.Intensity)
	}
}

func TestPatterns_RewritesDecayedAndCapped(t *testing.T) {
	now := time.Now()
	rewrites := make([]models.AcceptedRewrite, 0, 16)
	for i := 0; i < 15; i++ {
		rewrites = append(rewrites, models.AcceptedRewrite{
			Original:   "keep",
			AcceptedAt: now.Add(-time.Duration(i) * time.Hour),
		})
	}
	rewrites = append(rewrites, models.AcceptedRewrite{
		Original:   "expired",
		AcceptedAt: daysAgo(120),
	})

	p := &models.CommunicationProfile{
		UserID:             "alex",
		LastProfileUpdate:  &now,
		SuccessfulRewrites: rewrites,
	}

	got := decay.Patterns(p)
	if len(got.SuccessfulRewrites) != 10 {
		t.Fatalf("Patterns() kept %d rewrites, want 10", len(got.SuccessfulRewrites))
	}
	for _, r := range got.SuccessfulRewrites {
		if r.Original == "expired" {
			t.Error("Patterns() kept an expired rewrite")
		}
	}
}

func TestNeedsRefresh(t *testing.T) {
	if !decay.NeedsRefresh(nil) {
		t.Error("NeedsRefresh(nil) = false, want true")
	}
	if !decay.NeedsRefresh(&models.CommunicationProfile{}) {
		t.Error("NeedsRefresh(no update time) = false, want true")
	}

	fresh := daysAgo(5)
	if decay.NeedsRefresh(&models.CommunicationProfile{LastProfileUpdate: &fresh}) {
		t.Error("NeedsRefresh(5d old) = true, want false")
	}

	old := daysAgo(35)
	if !decay.NeedsRefresh(&models.CommunicationProfile{LastProfileUpdate: &old}) {
		t.Error("NeedsRefresh(35d old) = false, want true")
	}
}
