package actions

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/liaizen/mediation-plane/internal/state"
	"github.com/liaizen/mediation-plane/pkg/models"
)

// Comment delivers the message with an advisory note attached. Comments
// are frequency-limited per room; inside the cooldown the handler
// quietly allows instead, since skipping a comment is policy, not a
// failure.
type Comment struct {
	State *state.Store
}

func (h *Comment) Process(_ context.Context, in *Input) *models.MediationResult {
	if in.CommentLimited {
		return models.Allow()
	}

	text := ""
	if in.Decision != nil && in.Decision.Intervention != nil {
		text = strings.TrimSpace(in.Decision.Intervention.Comment)
	}
	if text == "" {
		log.Warn().
			Str("room_id", in.Message.RoomID).
			Msg("comment decision without comment text, allowing message")
		return models.Allow()
	}

	h.State.MarkComment(in.Message.RoomID)
	return &models.MediationResult{
		Kind:            models.ResultComment,
		Text:            text,
		OriginalMessage: in.Message,
		Escalation:      in.Decision.Escalation,
		Emotion:         in.Decision.Emotion,
	}
}
