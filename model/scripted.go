package model

import (
	"context"
	"fmt"
	"sync"

	"github.com/ericmichael/llm-deployment/core"
)

// ScriptedModel is a deterministic in-memory Model for tests and examples. Each
// Generate call consumes the next scripted step; a step is either a reply or
// an error. When the script is exhausted the fallback step repeats, if set.
type ScriptedModel struct {
	info Info

	mu       sync.Mutex
	steps    []scriptStep
	fallback *scriptStep
	requests []Request
}

type scriptStep struct {
	reply string
	err   error
}

// NewScriptedModel creates a ScriptedModel returning replies in order.
func NewScriptedModel(replies ...string) *ScriptedModel {
	m := &ScriptedModel{info: Info{Name: "scripted", Provider: "scripted"}}
	for _, r := range replies {
		m.steps = append(m.steps, scriptStep{reply: r})
	}

	return m
}

// Reply appends a reply step.
func (m *ScriptedModel) Reply(text string) *ScriptedModel {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.steps = append(m.steps, scriptStep{reply: text})

	return m
}

// Fail appends an error step.
func (m *ScriptedModel) Fail(err error) *ScriptedModel {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.steps = append(m.steps, scriptStep{err: err})

	return m
}

// Always makes the model answer text once the script is exhausted.
func (m *ScriptedModel) Always(text string) *ScriptedModel {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.fallback = &scriptStep{reply: text}

	return m
}

// Requests returns a copy of every request received so far.
func (m *ScriptedModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Request, len(m.requests))
	for i, r := range m.requests {
		r.Messages = append([]core.Turn(nil), r.Messages...)
		out[i] = r
	}

	return out
}

// Calls returns how many times Generate was invoked.
func (m *ScriptedModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.requests)
}

func (m *ScriptedModel) next(req Request) (scriptStep, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	req.Messages = append([]core.Turn(nil), req.Messages...)
	m.requests = append(m.requests, req)

	if len(m.steps) > 0 {
		step := m.steps[0]
		m.steps = m.steps[1:]

		return step, nil
	}

	if m.fallback != nil {
		return *m.fallback, nil
	}

	return scriptStep{}, fmt.Errorf("script exhausted after %d calls", len(m.requests)-1)
}

// Generate implements Model.
func (m *ScriptedModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 1)
	errCh := make(chan error, 1)

	go func() {
		defer close(respCh)
		defer close(errCh)

		if err := ctx.Err(); err != nil {
			errCh <- err
			return
		}

		step, err := m.next(req)
		if err != nil {
			errCh <- err
			return
		}

		if step.err != nil {
			errCh <- step.err
			return
		}

		respCh <- Response{Content: step.reply, FinishReason: "stop"}
	}()

	return respCh, errCh
}

// Info implements Model.
func (m *ScriptedModel) Info() Info { return m.info }
