// Package promptctx assembles the context blocks handed to the
// completion service: the message under analysis, a short transcript,
// the room's escalation picture, and a recency-weighted view of the
// sender's communication profile. Callers treat the output as opaque
// text.
package promptctx

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/liaizen/mediation-plane/internal/completion"
	"github.com/liaizen/mediation-plane/internal/decay"
	"github.com/liaizen/mediation-plane/internal/profile"
	"github.com/liaizen/mediation-plane/pkg/models"
)

// maxTranscriptMessages bounds how much recent conversation goes into
// the prompt.
const maxTranscriptMessages = 10

// SystemPrompt frames every mediation call.
const SystemPrompt = "You analyze co-parenting messages between separated parents who share children. " +
	"Decide whether to stay silent, add a brief advisory comment, or intervene with coaching. " +
	"When intervening, provide: (1) validation - connect the sender's feeling to the situation like a friend would, " +
	"(2) insight - explain why the current approach won't work and what would, " +
	"(3) two rewrites in the sender's own voice that keep the intent but invite collaboration. " +
	"Respond with JSON only: {\"action\":\"STAY_SILENT|COMMENT|INTERVENE\"," +
	"\"escalation\":{\"riskLevel\":\"low|medium|high\",\"confidence\":0-100,\"reasons\":[]}," +
	"\"emotion\":{\"currentEmotion\":\"...\",\"stressLevel\":0-10}," +
	"\"intervention\":{\"validation\":\"...\",\"insight\":\"...\",\"rewrite1\":\"...\",\"rewrite2\":\"...\",\"comment\":\"...\"}}"

// Input is everything the aggregator folds into one request.
type Input struct {
	Message        *models.Message
	Roles          *models.RoleContext
	Recent         []models.Message
	Escalation     models.EscalationState
	CommentLimited bool
}

// Aggregator builds completion requests. The profile store is optional;
// without one, prompts simply omit the sender profile block.
type Aggregator struct {
	profiles profile.Store
}

func NewAggregator(profiles profile.Store) *Aggregator {
	return &Aggregator{profiles: profiles}
}

// Build assembles the request for one message. Profile loading failures
// degrade to a prompt without profile context rather than failing the
// pipeline.
func (a *Aggregator) Build(ctx context.Context, in *Input) *completion.Request {
	var b strings.Builder

	b.WriteString("RELATIONSHIP CONTEXT:\n")
	b.WriteString("These are co-parents who share children but are no longer together. ")
	b.WriteString("They need to communicate about the children while navigating their separated relationship.\n")

	if block := a.senderProfileBlock(ctx, in); block != "" {
		b.WriteString("\nSENDER COMMUNICATION PROFILE:\n")
		b.WriteString(block)
	}

	if summary := escalationSummary(in.Escalation); summary != "" {
		b.WriteString("\nCONVERSATION TENSION:\n")
		b.WriteString(summary)
		b.WriteString("\n")
	}

	if len(in.Recent) > 0 {
		b.WriteString("\nRECENT CONVERSATION:\n")
		recent := in.Recent
		if len(recent) > maxTranscriptMessages {
			recent = recent[len(recent)-maxTranscriptMessages:]
		}
		for _, m := range recent {
			fmt.Fprintf(&b, "%s: %s\n", m.Username, m.Text)
		}
	}

	if in.CommentLimited {
		b.WriteString("\nNOTE: You commented in this room recently. Only use COMMENT if truly valuable.\n")
	}

	fmt.Fprintf(&b, "\nNEW MESSAGE FROM %s:\n%s\n", in.Message.Username, in.Message.Text)

	return &completion.Request{System: SystemPrompt, User: b.String()}
}

func (a *Aggregator) senderProfileBlock(ctx context.Context, in *Input) string {
	if a.profiles == nil || in.Roles == nil || in.Roles.SenderID == "" {
		return ""
	}

	p, err := a.profiles.GetProfile(ctx, in.Roles.SenderID)
	if err != nil {
		log.Warn().Err(err).Str("sender_id", in.Roles.SenderID).Msg("profile load failed, continuing without profile context")
		return ""
	}

	view := decay.Patterns(p)
	if view == nil || view.IsStale {
		return ""
	}

	var b strings.Builder
	if len(view.ToneTendencies) > 0 {
		fmt.Fprintf(&b, "Typical tone: %s\n", strings.Join(view.ToneTendencies, ", "))
	}
	if len(view.Triggers.Topics) > 0 {
		fmt.Fprintf(&b, "Known escalation topics (intensity %.2f): %s\n",
			view.Triggers.Intensity, strings.Join(view.Triggers.Topics, ", "))
	}
	if n := len(view.SuccessfulRewrites); n > 0 {
		fmt.Fprintf(&b, "Previously accepted rewrites (%d):\n", n)
		for _, r := range view.SuccessfulRewrites {
			if r.Rewrite != "" {
				fmt.Fprintf(&b, "- %q\n", r.Rewrite)
			}
		}
	}
	return b.String()
}

func escalationSummary(es models.EscalationState) string {
	parts := []string{fmt.Sprintf("Escalation score: %.0f", es.EscalationScore)}

	counts := map[string]int{
		"accusatory":    es.PatternCounts.Accusatory,
		"triangulation": es.PatternCounts.Triangulation,
		"comparison":    es.PatternCounts.Comparison,
		"blaming":       es.PatternCounts.Blaming,
	}
	var fired []string
	for _, name := range []string{"accusatory", "triangulation", "comparison", "blaming"} {
		if counts[name] > 0 {
			fired = append(fired, fmt.Sprintf("%s: %d", name, counts[name]))
		}
	}
	if len(fired) > 0 {
		parts = append(parts, "Patterns seen: "+strings.Join(fired, ", "))
	}
	return strings.Join(parts, ". ")
}
