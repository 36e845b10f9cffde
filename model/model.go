package model

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ericmichael/llm-deployment/core"
)

// ErrModelCall is matched by every error produced by a Model Client call.
var ErrModelCall = errors.New("model call failed")

// CallError reports a failed Model Client call (network error, rate limit,
// malformed or empty response).
type CallError struct {
	Provider string
	Err      error
}

func (e *CallError) Error() string {
	if e.Provider == "" {
		return fmt.Sprintf("model call failed: %v", e.Err)
	}

	return fmt.Sprintf("%s model call failed: %v", e.Provider, e.Err)
}

// Unwrap returns the underlying cause.
func (e *CallError) Unwrap() error { return e.Err }

// Is implements errors.Is support for ErrModelCall.
func (e *CallError) Is(target error) bool { return target == ErrModelCall }

// Request captures the normalized model input produced by the agent.
type Request struct {
	// Messages is the composed conversation: system turn, history, new input.
	Messages []core.Turn `json:"messages"`
	// Model overrides the provider's configured model id when non-empty.
	Model string `json:"model,omitempty"`
	// Temperature overrides the provider's configured temperature when set.
	Temperature *float64 `json:"temperature,omitempty"`
	Stream      bool     `json:"stream,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a (partial or final) chunk emitted by a model. Partial chunks
// carry text deltas; the final chunk carries the complete reply.
type Response struct {
	ID           string      `json:"id"`
	Partial      bool        `json:"partial"`
	Content      string      `json:"content"`
	FinishReason string      `json:"finish_reason"` // "stop", "length", ...
	Usage        *TokenUsage `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "anthropic", "scripted", ...
}

// Model is the minimal interface required by the agent to drive generation.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}

// Float returns a pointer to v, for Request.Temperature.
func Float(v float64) *float64 { return &v }

// Send runs one generation and waits for the complete reply. Partial chunks are
// accumulated in case the provider never emits a final chunk. Every failure is
// returned as *CallError.
func Send(ctx context.Context, m Model, req Request) (Response, error) {
	provider := m.Info().Provider
	respCh, errCh := m.Generate(ctx, req)

	var (
		final    *Response
		partials strings.Builder
	)

	for respCh != nil || errCh != nil {
		select {
		case <-ctx.Done():
			return Response{}, &CallError{Provider: provider, Err: ctx.Err()}
		case r, ok := <-respCh:
			if !ok {
				respCh = nil
				continue
			}

			if r.Partial {
				partials.WriteString(r.Content)
				continue
			}

			final = &r
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}

			if err != nil {
				var callErr *CallError
				if errors.As(err, &callErr) {
					return Response{}, err
				}

				return Response{}, &CallError{Provider: provider, Err: err}
			}
		}
	}

	if final == nil {
		if partials.Len() == 0 {
			return Response{}, &CallError{Provider: provider, Err: errors.New("no response")}
		}

		final = &Response{Content: partials.String()}
	}

	if strings.TrimSpace(final.Content) == "" {
		return Response{}, &CallError{Provider: provider, Err: errors.New("empty reply")}
	}

	return *final, nil
}
