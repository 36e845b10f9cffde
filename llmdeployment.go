// Package llmdeployment provides a high-level façade over the runner, agent
// and built-in tools, enabling quick construction of a tool-augmented
// assistant. Most applications interact with this package by:
//  1. Creating an Assistant via New() with a model (optionally overriding the
//     default in-memory store, tools or agent settings)
//  2. Creating a thread and chatting on it, or using ChatOnce for a one-off
//     exchange
//
// The façade delegates per-thread orchestration to runner.Runner. All defaults
// are safe for local development and testing; production deployments
// typically supply a durable store and a structured logger.
package llmdeployment

import (
	"context"

	"github.com/ericmichael/llm-deployment/agent"
	"github.com/ericmichael/llm-deployment/core"
	"github.com/ericmichael/llm-deployment/logging"
	"github.com/ericmichael/llm-deployment/model"
	"github.com/ericmichael/llm-deployment/runner"
	"github.com/ericmichael/llm-deployment/session"
	"github.com/ericmichael/llm-deployment/tool"
	"github.com/ericmichael/llm-deployment/tool/builtin"
)

// Options configures the Assistant.
type Options struct {
	// Store persists threads and turns (defaults to an in-memory store).
	Store core.ConversationStore

	// Logger (defaults to NoOp logger if nil).
	Logger logging.Logger

	// Tools builds the registry for each thread. Defaults to the built-in
	// tools configured by BuiltinOptions.
	Tools func() (*tool.Registry, error)

	// BuiltinOptions configure the default built-in tools.
	BuiltinOptions []func(o *builtin.Options)

	// AgentOptions are applied to every per-thread agent after the store and
	// logger are set.
	AgentOptions []func(o *agent.Options)
}

// Assistant aggregates a model, its tools and the per-thread runner.
type Assistant struct {
	*runner.Runner

	llm  model.Model
	opts Options
}

// New creates a new Assistant for llm with optional overrides.
func New(llm model.Model, optFns ...func(o *Options)) *Assistant {
	opts := Options{
		Store:  session.NewInMemoryStore(),
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Tools == nil {
		opts.Tools = func() (*tool.Registry, error) { return builtin.Registry(opts.BuiltinOptions...) }
	}

	a := &Assistant{llm: llm, opts: opts}

	a.Runner = runner.New(a.newAgent, func(o *runner.Options) {
		o.Store = opts.Store
		o.Logger = opts.Logger
	})

	return a
}

// Model returns the model shared by every thread.
func (a *Assistant) Model() model.Model { return a.llm }

// ChatOnce is a synchronous helper that creates a fresh thread, runs a single
// exchange on it and returns the thread id with the answer.
func (a *Assistant) ChatOnce(ctx context.Context, text string) (string, agent.Answer, error) {
	thread, err := a.CreateThread(ctx, "")
	if err != nil {
		return "", agent.Answer{}, err
	}

	answer, err := a.Chat(ctx, thread.ID, text)

	return thread.ID, answer, err
}

func (a *Assistant) newAgent(threadID string, store core.ConversationStore) (*agent.Agent, error) {
	registry, err := a.opts.Tools()
	if err != nil {
		return nil, err
	}

	optFns := append([]func(o *agent.Options){func(o *agent.Options) {
		o.Store = store
		o.Logger = a.opts.Logger
	}}, a.opts.AgentOptions...)

	return agent.New(threadID, a.llm, registry, optFns...), nil
}
