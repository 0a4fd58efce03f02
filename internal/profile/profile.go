// Package profile persists long-lived communication profiles. The
// engine reads decayed views of a profile when building model context
// and issues append-style updates after interventions; everything else
// about a profile belongs to the owner of the data, not the engine.
package profile

import (
	"context"
	"time"

	"github.com/liaizen/mediation-plane/pkg/models"
)

// Store is the persistence contract for communication profiles.
// GetProfile returns (nil, nil) for a user with no profile yet.
// RecordIntervention counts a delivered intervention; RecordOutcome tags
// it accepted or rejected once the user reacts.
type Store interface {
	GetProfile(ctx context.Context, userID string) (*models.CommunicationProfile, error)
	UpdateProfile(ctx context.Context, p *models.CommunicationProfile) error
	RecordIntervention(ctx context.Context, userID string) error
	RecordOutcome(ctx context.Context, userID string, accepted bool) error
	RecordAcceptedRewrite(ctx context.Context, userID, original, rewrite string) error
	Close() error
}

// maxStoredRewrites bounds the accepted-rewrite list kept per profile.
// Reads apply temporal decay on top, so old entries fall out of use
// before they fall out of storage.
const maxStoredRewrites = 50

func appendRewrite(p *models.CommunicationProfile, original, rewrite string, at time.Time) {
	p.SuccessfulRewrites = append(p.SuccessfulRewrites, models.AcceptedRewrite{
		Original:   original,
		Rewrite:    rewrite,
		AcceptedAt: at,
	})
	if len(p.SuccessfulRewrites) > maxStoredRewrites {
		p.SuccessfulRewrites = p.SuccessfulRewrites[len(p.SuccessfulRewrites)-maxStoredRewrites:]
	}
}

func recordIntervention(p *models.CommunicationProfile, at time.Time) {
	p.InterventionHistory.Total++
	recalcRate(p)
	t := at
	p.InterventionHistory.Last = &t
}

func recordOutcome(p *models.CommunicationProfile, accepted bool) {
	if accepted {
		p.InterventionHistory.Accepted++
	} else {
		p.InterventionHistory.Rejected++
	}
	recalcRate(p)
}

func recalcRate(p *models.CommunicationProfile) {
	if p.InterventionHistory.Total > 0 {
		p.InterventionHistory.AcceptanceRate =
			float64(p.InterventionHistory.Accepted) / float64(p.InterventionHistory.Total)
	}
}
