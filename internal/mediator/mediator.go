// Package mediator runs the decision pipeline for one message at a
// time per room: fast local filters, the analysis cache, one completion
// call, parsing, and handler dispatch. Its one hard rule is fail open:
// no internal failure may ever block delivery of a user's message.
package mediator

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/liaizen/mediation-plane/internal/actions"
	"github.com/liaizen/mediation-plane/internal/analysiscache"
	"github.com/liaizen/mediation-plane/internal/completion"
	"github.com/liaizen/mediation-plane/internal/parser"
	"github.com/liaizen/mediation-plane/internal/prefilter"
	"github.com/liaizen/mediation-plane/internal/profile"
	"github.com/liaizen/mediation-plane/internal/promptctx"
	"github.com/liaizen/mediation-plane/internal/state"
	"github.com/liaizen/mediation-plane/pkg/models"
)

// Options wires an Engine. Client, Cache and State are required;
// Profiles and Graph may be nil, which disables profile-aware prompting
// and learning writes.
type Options struct {
	Client      completion.Client
	Cache       analysiscache.Cache
	State       *state.Store
	Profiles    profile.Store
	Graph       profile.GraphRecorder
	CallTimeout time.Duration
}

// Engine is the mediation decision engine.
type Engine struct {
	client      completion.Client
	cache       analysiscache.Cache
	state       *state.Store
	profiles    profile.Store
	registry    *actions.Registry
	prompts     *promptctx.Aggregator
	rooms       *roomQueues
	callTimeout time.Duration
	tracer      trace.Tracer
}

// New assembles an engine and registers the standard action handlers.
func New(opts Options) *Engine {
	e := &Engine{
		client:      opts.Client,
		cache:       opts.Cache,
		state:       opts.State,
		profiles:    opts.Profiles,
		prompts:     promptctx.NewAggregator(opts.Profiles),
		rooms:       newRoomQueues(),
		callTimeout: opts.CallTimeout,
		tracer:      otel.Tracer("mediator"),
	}
	if e.callTimeout <= 0 {
		e.callTimeout = 30 * time.Second
	}

	graph := opts.Graph
	if graph == nil {
		graph = profile.LogGraphRecorder{}
	}

	e.registry = actions.NewRegistry(actions.Default{})
	e.registry.Register(models.ActionStaySilent, actions.StaySilent{})
	e.registry.Register(models.ActionComment, &actions.Comment{State: opts.State})
	e.registry.Register(models.ActionIntervene, &actions.Intervene{
		State:    opts.State,
		Profiles: opts.Profiles,
		Graph:    graph,
	})
	return e
}

// AnalyzeMessage decides what to do with one inbound message. The
// returned result always carries a deliverable verdict; a non-nil error
// is advisory (retryable provider trouble) and never means "drop the
// message".
func (e *Engine) AnalyzeMessage(ctx context.Context, msg *models.Message, recent []models.Message, participants []string, roles *models.RoleContext) (*models.MediationResult, error) {
	ctx, span := e.tracer.Start(ctx, "mediator.AnalyzeMessage",
		trace.WithAttributes(attribute.String("room_id", msg.RoomID)))
	defer span.End()

	if skip, reason := prefilter.ShouldSkip(msg.Text); skip {
		log.Debug().
			Str("room_id", msg.RoomID).
			Str("reason", string(reason)).
			Msg("fast filter allowed message")
		span.SetAttributes(attribute.String("outcome", "fast_filter"))
		return models.Allow(), nil
	}

	if !e.client.IsConfigured() {
		log.Warn().Msg("completion service not configured, allowing all messages")
		return models.Allow(), nil
	}

	// Serialize the rest of the pipeline per room so state mutations
	// land in message arrival order across the model-call suspension.
	release, err := e.rooms.acquire(ctx, msg.RoomID)
	if err != nil {
		log.Warn().Err(err).Str("room_id", msg.RoomID).Msg("gave up waiting for room pipeline, allowing message")
		return models.Allow(), &completion.RetryableError{Err: err}
	}
	defer release()

	patterns := prefilter.DetectConflictPatterns(msg.Text)
	score := e.state.UpdateEscalation(msg.RoomID, patterns)

	senderID, receiverID := resolveRoles(msg, participants, roles)
	fingerprint := analysiscache.Fingerprint(msg.Text, senderID, receiverID)

	if cached := e.lookupCache(ctx, fingerprint); cached != nil {
		log.Debug().Str("room_id", msg.RoomID).Msg("analysis cache hit")
		span.SetAttributes(attribute.String("outcome", "cache_hit"))
		// Dispatch still runs so state updates happen for every
		// occurrence, not once per unique fingerprint.
		return e.dispatch(ctx, msg, roles, cached), nil
	}

	decision, err := e.callModel(ctx, msg, recent, roles)
	if err != nil {
		// Retryable trouble is surfaced alongside the allow so an
		// outer layer may retry; everything else was already logged.
		return models.Allow(), err
	}
	if decision == nil {
		return models.Allow(), nil
	}

	result := e.dispatch(ctx, msg, roles, decision)
	span.SetAttributes(attribute.String("outcome", string(result.Kind)))

	// A safety fallback is not the model's true verdict; caching it
	// would replay an incomplete decision.
	if result.Kind != models.ResultSafetyFallback {
		if err := e.cache.Set(ctx, fingerprint, decision); err != nil {
			log.Warn().Err(err).Msg("analysis cache write failed")
		}
	}

	log.Info().
		Str("room_id", msg.RoomID).
		Str("action", decision.Action).
		Str("result", string(result.Kind)).
		Float64("escalation_score", score).
		Msg("message mediated")
	return result, nil
}

// callModel runs the single suspension point of the pipeline and parses
// the outcome. (nil, nil) means fail open quietly.
func (e *Engine) callModel(ctx context.Context, msg *models.Message, recent []models.Message, roles *models.RoleContext) (*models.Decision, error) {
	req := e.prompts.Build(ctx, &promptctx.Input{
		Message:        msg,
		Roles:          roles,
		Recent:         recent,
		Escalation:     e.state.RoomState(msg.RoomID).Escalation,
		CommentLimited: !e.state.CommentAllowed(msg.RoomID),
	})

	callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()

	raw, err := e.client.Complete(callCtx, req)
	if err != nil {
		if completion.IsRetryable(err) {
			log.Warn().Err(err).Str("room_id", msg.RoomID).Msg("retryable completion failure, allowing message")
			return nil, err
		}
		log.Error().Err(err).Str("room_id", msg.RoomID).Msg("completion failed, allowing message")
		return nil, nil
	}

	return parser.Parse(raw), nil
}

// dispatch applies a decision's state updates and routes it to its
// handler.
func (e *Engine) dispatch(ctx context.Context, msg *models.Message, roles *models.RoleContext, d *models.Decision) *models.MediationResult {
	if d.Emotion != nil {
		e.state.UpdateEmotion(msg.RoomID, msg.Username, d.Emotion)
	}

	action := parser.NormalizeAction(d.Action)
	handler := e.registry.Resolve(action)
	return handler.Process(ctx, &actions.Input{
		Message:        msg,
		Roles:          roles,
		Decision:       d,
		CommentLimited: !e.state.CommentAllowed(msg.RoomID),
	})
}

func (e *Engine) lookupCache(ctx context.Context, fingerprint string) *models.Decision {
	d, ok, err := e.cache.Get(ctx, fingerprint)
	if err != nil {
		log.Warn().Err(err).Msg("analysis cache read failed, treating as miss")
		return nil
	}
	if !ok {
		return nil
	}
	return d
}

// RecordInterventionFeedback folds user feedback on the room's latest
// intervention into the adaptive policy and, when the user is known,
// the sender's profile stats.
func (e *Engine) RecordInterventionFeedback(roomID, userID string, helpful bool) float64 {
	threshold, attached := e.state.RecordFeedback(roomID, helpful)
	if !attached {
		log.Debug().Str("room_id", roomID).Msg("feedback with no intervention on record")
		return threshold
	}

	if e.profiles != nil && userID != "" {
		go func() {
			defer func() {
				if r := recover(); r != nil {
					log.Error().Interface("panic", r).Msg("feedback profile update panicked")
				}
			}()
			octx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := e.profiles.RecordOutcome(octx, userID, helpful); err != nil {
				log.Warn().Err(err).Str("user_id", userID).Msg("profile outcome record failed")
			}
		}()
	}
	return threshold
}

// RecordAcceptedRewrite persists a rewrite the user chose to send, so
// future coaching can lean on phrasing that already worked for them.
func (e *Engine) RecordAcceptedRewrite(ctx context.Context, userID, original, rewriteText string) error {
	if e.profiles == nil {
		return nil
	}
	if err := e.profiles.RecordAcceptedRewrite(ctx, userID, original, rewriteText); err != nil {
		return err
	}
	return e.profiles.RecordOutcome(ctx, userID, true)
}

// RoomState exposes a read-only snapshot of a room's mediation state
// for diagnostics.
func (e *Engine) RoomState(roomID string) *models.RoomState {
	return e.state.RoomState(roomID)
}

func resolveRoles(msg *models.Message, participants []string, roles *models.RoleContext) (senderID, receiverID string) {
	senderID = msg.Username
	receiverID = "unknown"
	if roles != nil {
		if roles.SenderID != "" {
			senderID = roles.SenderID
		}
		if roles.ReceiverID != "" {
			return senderID, roles.ReceiverID
		}
	}
	for _, p := range participants {
		if p != msg.Username {
			return senderID, p
		}
	}
	return senderID, receiverID
}
