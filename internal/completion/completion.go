// Package completion wraps the external model service behind a small
// interface. The engine never talks to a provider SDK directly; it asks
// for one completion and classifies what went wrong when one fails.
package completion

import (
	"context"
	"errors"
	"fmt"
	"net"

	openai "github.com/sashabaranov/go-openai"

	"github.com/liaizen/mediation-plane/internal/config"
)

// Request is one completion call.
type Request struct {
	System string
	User   string
}

// Client produces one completion per call. IsConfigured lets the caller
// skip mediation entirely when no provider credentials are present.
type Client interface {
	IsConfigured() bool
	Complete(ctx context.Context, req *Request) (string, error)
}

// RetryableError marks a transient provider failure: rate limiting,
// timeouts, upstream 5xx. The caller still fails open on it, but may
// surface the distinction to its own caller.
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string { return fmt.Sprintf("retryable completion error: %v", e.Err) }
func (e *RetryableError) Unwrap() error { return e.Err }

// IsRetryable reports whether err is a transient provider failure.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

// ── OpenAI implementation ────────────────────────────────────

// OpenAI is the production Client.
type OpenAI struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

// NewOpenAI builds a client from config. A client with no API key is
// legal; it reports unconfigured and the engine allows everything.
func NewOpenAI(cfg config.CompletionConfig) *OpenAI {
	o := &OpenAI{
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: float32(cfg.Temperature),
	}
	if cfg.APIKey != "" {
		o.client = openai.NewClient(cfg.APIKey)
	}
	return o
}

func (o *OpenAI) IsConfigured() bool { return o.client != nil }

// Complete runs one chat completion and returns the raw text content.
func (o *OpenAI) Complete(ctx context.Context, req *Request) (string, error) {
	if o.client == nil {
		return "", errors.New("completion client not configured")
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		MaxTokens:   o.maxTokens,
		Temperature: o.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.User},
		},
	})
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// classify wraps transient provider failures in RetryableError so the
// caller can tell "try again later" apart from "this response is junk".
func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500 {
			return &RetryableError{Err: err}
		}
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &RetryableError{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &RetryableError{Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		// Connection refused and friends.
		return &RetryableError{Err: err}
	}

	return err
}
