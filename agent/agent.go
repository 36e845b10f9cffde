package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ericmichael/llm-deployment/core"
	"github.com/ericmichael/llm-deployment/logging"
	"github.com/ericmichael/llm-deployment/model"
	"github.com/ericmichael/llm-deployment/tool"
)

// Defaults applied by New.
const (
	DefaultName         = "Jarvis"
	DefaultMaxToolCalls = 5
	DefaultModelTimeout = 60 * time.Second
	DefaultToolTimeout  = 15 * time.Second
)

// Transcriber converts recorded speech into text.
type Transcriber interface {
	Transcribe(ctx context.Context, filename string, audio []byte) (string, error)
}

// Options configures an Agent.
//
// Use functional options with New to override defaults.
type Options struct {
	// Instruction produces the system prompt. Defaults to DefaultPrompt.
	Instruction Instruction
	// Name and Location are exposed to the instruction template.
	Name     string
	Location string
	// MaxToolCalls bounds consecutive tool calls per user input. Values <= 0
	// fall back to DefaultMaxToolCalls.
	MaxToolCalls int
	// Model and Temperature override the provider's configuration per request.
	Model       string
	Temperature *float64
	Stream      bool
	// ModelTimeout and ToolTimeout bound each model and tool call. Zero
	// disables the deadline.
	ModelTimeout time.Duration
	ToolTimeout  time.Duration
	// Store persists committed turns. Optional.
	Store       core.ConversationStore
	Transcriber Transcriber
	Logger      logging.Logger
	// Now is used for the prompt date. Defaults to time.Now.
	Now func() time.Time
}

// Agent is the per-thread session: it owns the thread's Conversation and
// drives the tool-augmented loop. Chat calls on one Agent are serialised.
type Agent struct {
	threadID    string
	llm         model.Model
	registry    *tool.Registry
	invoker     *tool.Invoker
	conv        *core.Conversation
	instruction Instruction
	logger      logging.Logger
	opts        Options

	mu sync.Mutex
}

// Answer is the outcome of one user-facing exchange.
type Answer struct {
	// Text is the final reply. For a partial answer it is the last plain
	// reply or tool result of the truncated exchange, never a tool call.
	Text string `json:"text"`
	// Partial marks an answer cut short by the tool chain limit.
	Partial bool `json:"partial"`
	// ToolCalls counts the tool calls requested during the exchange.
	ToolCalls int `json:"tool_calls"`
	// Turns are the turns committed by this exchange, in order.
	Turns []core.Turn `json:"turns"`
}

// New creates an Agent for threadID. registry may be nil for an agent
// without tools.
func New(threadID string, llm model.Model, registry *tool.Registry, optFns ...func(o *Options)) *Agent {
	opts := Options{
		Instruction:  NewInstructionFromText(DefaultPrompt),
		Name:         DefaultName,
		MaxToolCalls: DefaultMaxToolCalls,
		ModelTimeout: DefaultModelTimeout,
		ToolTimeout:  DefaultToolTimeout,
		Now:          time.Now,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.MaxToolCalls <= 0 {
		opts.MaxToolCalls = DefaultMaxToolCalls
	}

	if opts.Now == nil {
		opts.Now = time.Now
	}

	logger := logging.OrNoOp(opts.Logger)
	if sl, ok := logger.(*logging.StructuredLogger); ok {
		logger = sl.WithComponent("agent").WithThread(threadID)
	}

	if registry == nil {
		registry = tool.MustRegistry()
	}

	return &Agent{
		threadID: threadID,
		llm:      llm,
		registry: registry,
		invoker: tool.NewInvoker(registry, func(o *tool.InvokerOptions) {
			o.Timeout = opts.ToolTimeout
			o.Logger = logger
		}),
		conv: core.NewConversation(threadID, func(o *core.ConversationOptions) {
			o.Store = opts.Store
		}),
		instruction: opts.Instruction,
		logger:      logger,
		opts:        opts,
	}
}

// ThreadID returns the thread this agent serves.
func (a *Agent) ThreadID() string { return a.threadID }

// Model returns the model client.
func (a *Agent) Model() model.Model { return a.llm }

// Registry returns the agent's tool registry.
func (a *Agent) Registry() *tool.Registry { return a.registry }

// History returns a copy of the committed turns.
func (a *Agent) History() []core.Turn { return a.conv.Turns() }

// Close stops the agent from committing further turns. An exchange still in
// flight ends with core.ErrConversationClosed instead of being persisted.
func (a *Agent) Close() { a.conv.Close() }

// Load replaces the in-memory history with the stored turns of the thread.
// Call it once before the first Chat when a Store is configured.
func (a *Agent) Load(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.conv.Load(ctx); err != nil {
		return err
	}

	a.logger.Debug("agent.history.loaded", "turns", a.conv.Len())

	return nil
}

// Chat runs one exchange for the user's text and returns the answer.
//
// Errors:
//   - ErrEmptyInput for blank text
//   - *model.CallError when the model fails; nothing is committed
//   - ctx.Err() when cancelled; nothing is committed
//   - *ChainLimitError together with a partial Answer when the tool chain
//     limit is hit; the exchange is committed
//   - core.ErrConversationClosed after Close; nothing is committed
func (a *Agent) Chat(ctx context.Context, text string) (Answer, error) {
	if strings.TrimSpace(text) == "" {
		return Answer{}, ErrEmptyInput
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	return a.run(ctx, text)
}

// ChatAudio transcribes audio and runs the resulting text through Chat.
func (a *Agent) ChatAudio(ctx context.Context, filename string, audio []byte) (Answer, error) {
	if a.opts.Transcriber == nil {
		return Answer{}, ErrNoTranscriber
	}

	text, err := a.opts.Transcriber.Transcribe(ctx, filename, audio)
	if err != nil {
		return Answer{}, fmt.Errorf("transcribe audio: %w", err)
	}

	a.logger.Debug("agent.audio.transcribed", "chars", len(text))

	return a.Chat(ctx, text)
}

func (a *Agent) systemPrompt(ctx context.Context) (string, error) {
	data := PromptData{
		Name:     a.opts.Name,
		Date:     a.opts.Now().Format("01/02/2006 3:04 PM"),
		Location: a.opts.Location,
		Tools:    a.registry.Describe(),
	}

	prompt, err := a.instruction.Resolve(ctx, data)
	if err != nil {
		return "", fmt.Errorf("resolve instruction: %w", err)
	}

	return strings.TrimSpace(prompt), nil
}
