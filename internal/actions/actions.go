// Package actions dispatches parsed model decisions to their handlers.
// The registry resolves action names case-insensitively and hands
// anything unrecognized to a fail-open default, so a model inventing a
// new action can never block a message.
package actions

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/liaizen/mediation-plane/pkg/models"
)

// Input carries one dispatch through a handler.
type Input struct {
	Message        *models.Message
	Roles          *models.RoleContext
	Decision       *models.Decision
	CommentLimited bool
}

// Handler turns one decision into a terminal result. Handlers never
// return nil and never block the message on their own failure.
type Handler interface {
	Process(ctx context.Context, in *Input) *models.MediationResult
}

// Registry maps action names to handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	fallback Handler
}

// NewRegistry builds a registry with the given fallback handler for
// unknown actions.
func NewRegistry(fallback Handler) *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
		fallback: fallback,
	}
}

// Register binds a handler to an action name.
func (r *Registry) Register(action string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[strings.ToUpper(strings.TrimSpace(action))] = h
}

// Resolve finds the handler for an action name, case-insensitively,
// falling back to the default for anything unregistered.
func (r *Registry) Resolve(action string) Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if h, ok := r.handlers[strings.ToUpper(strings.TrimSpace(action))]; ok {
		return h
	}
	return r.fallback
}

// ── Simple handlers ──────────────────────────────────────────

// StaySilent allows the message unchanged.
type StaySilent struct{}

func (StaySilent) Process(context.Context, *Input) *models.MediationResult {
	return models.Allow()
}

// Default handles unrecognized actions identically to StaySilent, with
// a warning so new model action names show up in logs.
type Default struct{}

func (Default) Process(_ context.Context, in *Input) *models.MediationResult {
	action := ""
	if in.Decision != nil {
		action = in.Decision.Action
	}
	log.Warn().Str("action", action).Msg("unrecognized action, allowing message")
	return models.Allow()
}
