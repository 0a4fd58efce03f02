package profile

import (
	"context"

	"github.com/rs/zerolog/log"
)

// GraphRecorder receives relationship-graph learning signals. These are
// advisory; implementations must tolerate being called fire-and-forget
// and loss of individual events.
type GraphRecorder interface {
	RecordInterventionOutcome(ctx context.Context, roomID, senderID, action string) error
}

// LogGraphRecorder is the default recorder when no graph backend is
// wired up. It logs the signal and drops it.
type LogGraphRecorder struct{}

func (LogGraphRecorder) RecordInterventionOutcome(_ context.Context, roomID, senderID, action string) error {
	log.Debug().
		Str("room_id", roomID).
		Str("sender_id", senderID).
		Str("action", action).
		Msg("graph signal recorded (no backend)")
	return nil
}
