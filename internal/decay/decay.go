// Package decay weights stored communication-profile data by recency.
//
// The weight is a step function of age: observations keep full weight for
// 30 days, drop to 0.7 until 60 days, to 0.3 until 90 days, and are
// discarded after that. Step thresholds rather than a continuous curve
// keep profile views reproducible across calls made seconds apart.
package decay

import (
	"sort"
	"time"

	"github.com/liaizen/mediation-plane/pkg/models"
)

// Age thresholds, in days.
const (
	FullDays    = 30
	ReducedDays = 60
	MinimalDays = 90
)

// Step weights.
const (
	WeightFull    = 1.0
	WeightReduced = 0.7
	WeightMinimal = 0.3
	WeightExpired = 0.0
)

// maxRelevantRewrites caps how many accepted rewrites a decayed profile
// view carries into prompt context.
const maxRelevantRewrites = 10

// Weight returns the freshness weight for a timestamp. The zero time means
// "never recorded" and weighs nothing.
func Weight(t time.Time) float64 {
	return weightAt(t, time.Now())
}

func weightAt(t, now time.Time) float64 {
	if t.IsZero() {
		return WeightExpired
	}
	ageDays := now.Sub(t).Hours() / 24
	switch {
	case ageDays <= FullDays:
		return WeightFull
	case ageDays <= ReducedDays:
		return WeightReduced
	case ageDays <= MinimalDays:
		return WeightMinimal
	default:
		return WeightExpired
	}
}

// Weighted pairs an item with its freshness weight.
type Weighted[T any] struct {
	Value  T
	Weight float64
}

// ApplyDecay drops fully expired items, attaches the freshness weight to
// the survivors, and sorts them by weight descending, breaking ties by
// recency (newer first).
func ApplyDecay[T any](items []T, timestamp func(T) time.Time) []Weighted[T] {
	now := time.Now()
	out := make([]Weighted[T], 0, len(items))
	for _, item := range items {
		w := weightAt(timestamp(item), now)
		if w == WeightExpired {
			continue
		}
		out = append(out, Weighted[T]{Value: item, Weight: w})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Weight != out[j].Weight {
			return out[i].Weight > out[j].Weight
		}
		return timestamp(out[i].Value).After(timestamp(out[j].Value))
	})
	return out
}

// Patterns produces a recency-weighted view of a communication profile.
// A profile whose last update has fully expired comes back explicitly
// stale with empty pattern data and zeroed trigger intensity, so callers
// cannot coach from observations that no longer describe the user.
func Patterns(p *models.CommunicationProfile) *models.DecayedPatterns {
	if p == nil {
		return nil
	}

	var last time.Time
	if p.LastProfileUpdate != nil {
		last = *p.LastProfileUpdate
	}
	w := Weight(last)

	if w == WeightExpired {
		return &models.DecayedPatterns{
			IsStale:         true,
			RelevanceWeight: 0,
			ToneTendencies:  []string{},
			CommonPhrases:   []string{},
			Triggers:        models.TriggerPatterns{Topics: []string{}, Phrases: []string{}},
		}
	}

	rewrites := ApplyDecay(p.SuccessfulRewrites, func(r models.AcceptedRewrite) time.Time {
		return r.AcceptedAt
	})
	if len(rewrites) > maxRelevantRewrites {
		rewrites = rewrites[:maxRelevantRewrites]
	}
	kept := make([]models.AcceptedRewrite, len(rewrites))
	for i, r := range rewrites {
		kept[i] = r.Value
	}

	return &models.DecayedPatterns{
		IsStale:          false,
		RelevanceWeight:  w,
		ToneTendencies:   p.CommunicationPatterns.ToneTendencies,
		CommonPhrases:    p.CommunicationPatterns.CommonPhrases,
		AvgMessageLength: p.CommunicationPatterns.AvgMessageLength,
		Triggers: models.TriggerPatterns{
			Topics:    p.Triggers.Topics,
			Phrases:   p.Triggers.Phrases,
			Intensity: p.Triggers.Intensity * w,
		},
		SuccessfulRewrites: kept,
	}
}

// NeedsRefresh reports whether a profile is stale enough that its owner
// should rebuild it: missing entirely, never updated, or past the
// full-weight window.
func NeedsRefresh(p *models.CommunicationProfile) bool {
	if p == nil || p.LastProfileUpdate == nil {
		return true
	}
	return Weight(*p.LastProfileUpdate) < WeightFull
}
