package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ericmichael/llm-deployment/agent"
	"github.com/ericmichael/llm-deployment/core"
	"github.com/ericmichael/llm-deployment/logging"
	"github.com/ericmichael/llm-deployment/session"
)

// ErrListNotSupported is returned by Threads when the store cannot enumerate threads.
var ErrListNotSupported = errors.New("store does not support listing threads")

// ErrNoActiveRun is returned by Cancel when the thread has no exchange in
// flight.
var ErrNoActiveRun = errors.New("no active run")

// Factory builds the agent for a thread. It must return a fresh agent (and tool
// registry) per call and wire store as the agent's persistence collaborator.
type Factory func(threadID string, store core.ConversationStore) (*agent.Agent, error)

// Options holds dependency + configuration overrides passed to New().
type Options struct {
	// Store persists threads and turns. Defaults to an in-memory store.
	Store core.ConversationStore
	// Logger receives runner.* events.
	Logger logging.Logger
	// MaxConcurrentRuns limits how many exchanges execute at once across all
	// threads. Further runs wait for a slot. Zero means unlimited.
	MaxConcurrentRuns int
}

// Runner owns one agent session per thread. Public methods are safe for
// concurrent use.
type Runner struct {
	factory Factory
	store   core.ConversationStore
	logger  logging.Logger
	now     func() time.Time

	slots chan struct{}

	mu       sync.Mutex
	sessions map[string]*agent.Agent
	// runs holds the cancel func of every exchange in flight or queued, per
	// thread and run id.
	runs    map[string]map[uint64]context.CancelFunc
	nextRun uint64
	// deleted marks threads removed through Delete so that no session is
	// rebuilt for them.
	deleted map[string]struct{}
}

// New constructs a Runner with optional overrides.
func New(factory Factory, optFns ...func(o *Options)) *Runner {
	opts := Options{}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Store == nil {
		opts.Store = session.NewInMemoryStore()
	}

	logger := logging.OrNoOp(opts.Logger)
	if sl, ok := logger.(*logging.StructuredLogger); ok {
		logger = sl.WithComponent("runner")
	}

	r := &Runner{
		factory:  factory,
		store:    opts.Store,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*agent.Agent),
		runs:     make(map[string]map[uint64]context.CancelFunc),
		deleted:  make(map[string]struct{}),
	}

	if opts.MaxConcurrentRuns > 0 {
		r.slots = make(chan struct{}, opts.MaxConcurrentRuns)
	}

	return r
}

// Store returns the conversation store.
func (r *Runner) Store() core.ConversationStore { return r.store }

// CreateThread registers a new thread with a random id. A blank name becomes
// "Chat on <creation time>".
func (r *Runner) CreateThread(ctx context.Context, name string) (core.Thread, error) {
	now := r.now().UTC()

	name = strings.TrimSpace(name)
	if name == "" {
		name = "Chat on " + now.Format(time.DateTime)
	}

	thread := core.Thread{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: now,
	}

	if err := r.store.CreateThread(ctx, thread); err != nil {
		return core.Thread{}, fmt.Errorf("create thread: %w", err)
	}

	r.logger.Info("runner.thread.created", "thread_id", thread.ID)

	return thread, nil
}

// Thread returns the metadata of a thread.
func (r *Runner) Thread(ctx context.Context, threadID string) (core.Thread, error) {
	return r.store.GetThread(ctx, threadID)
}

// Threads lists all threads, newest first.
func (r *Runner) Threads(ctx context.Context) ([]core.Thread, error) {
	lister, ok := r.store.(core.ThreadLister)
	if !ok {
		return nil, ErrListNotSupported
	}

	return lister.ListThreads(ctx)
}

// Session returns the agent of a thread, creating and loading it on first use.
// Unknown or deleted threads yield core.ErrThreadNotFound.
func (r *Runner) Session(ctx context.Context, threadID string) (*agent.Agent, error) {
	r.mu.Lock()
	a, err := r.lookup(threadID)
	r.mu.Unlock()

	if a != nil || err != nil {
		return a, err
	}

	if _, err := r.store.GetThread(ctx, threadID); err != nil {
		return nil, err
	}

	built, err := r.factory(threadID, r.store)
	if err != nil {
		return nil, fmt.Errorf("build agent for thread %s: %w", threadID, err)
	}

	if err := built.Load(ctx); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Another caller may have won the race, or the thread was deleted while
	// loading.
	if a, err := r.lookup(threadID); a != nil || err != nil {
		built.Close()
		return a, err
	}

	r.sessions[threadID] = built
	r.logger.Debug("runner.session.created", "thread_id", threadID, "sessions", len(r.sessions))

	return built, nil
}

// lookup returns the live session of a thread, if any. The caller holds r.mu.
func (r *Runner) lookup(threadID string) (*agent.Agent, error) {
	if _, gone := r.deleted[threadID]; gone {
		return nil, fmt.Errorf("thread %s: %w", threadID, core.ErrThreadNotFound)
	}

	return r.sessions[threadID], nil
}

// Chat runs one exchange on a thread.
func (r *Runner) Chat(ctx context.Context, threadID, text string) (agent.Answer, error) {
	return r.run(ctx, threadID, func(ctx context.Context, a *agent.Agent) (agent.Answer, error) {
		return a.Chat(ctx, text)
	})
}

// ChatAudio transcribes audio and runs one exchange on a thread.
func (r *Runner) ChatAudio(ctx context.Context, threadID, filename string, audio []byte) (agent.Answer, error) {
	return r.run(ctx, threadID, func(ctx context.Context, a *agent.Agent) (agent.Answer, error) {
		return a.ChatAudio(ctx, filename, audio)
	})
}

func (r *Runner) run(
	ctx context.Context,
	threadID string,
	fn func(ctx context.Context, a *agent.Agent) (agent.Answer, error),
) (agent.Answer, error) {
	a, err := r.Session(ctx, threadID)
	if err != nil {
		return agent.Answer{}, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	id, err := r.track(threadID, cancel)
	if err != nil {
		return agent.Answer{}, err
	}
	defer r.untrack(threadID, id)

	if r.slots != nil {
		select {
		case r.slots <- struct{}{}:
			defer func() { <-r.slots }()
		case <-ctx.Done():
			return agent.Answer{}, ctx.Err()
		}
	}

	return fn(ctx, a)
}

func (r *Runner) track(threadID string, cancel context.CancelFunc) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, gone := r.deleted[threadID]; gone {
		return 0, fmt.Errorf("thread %s: %w", threadID, core.ErrThreadNotFound)
	}

	r.nextRun++

	if r.runs[threadID] == nil {
		r.runs[threadID] = make(map[uint64]context.CancelFunc)
	}

	r.runs[threadID][r.nextRun] = cancel

	return r.nextRun, nil
}

func (r *Runner) untrack(threadID string, id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.runs[threadID], id)

	if len(r.runs[threadID]) == 0 {
		delete(r.runs, threadID)
	}
}

// takeRuns removes and returns the cancel funcs of a thread. The caller holds
// r.mu.
func (r *Runner) takeRuns(threadID string) []context.CancelFunc {
	runs := r.runs[threadID]
	delete(r.runs, threadID)

	cancels := make([]context.CancelFunc, 0, len(runs))
	for _, cancel := range runs {
		cancels = append(cancels, cancel)
	}

	return cancels
}

// History returns the committed turns of a thread.
func (r *Runner) History(ctx context.Context, threadID string) ([]core.Turn, error) {
	a, err := r.Session(ctx, threadID)
	if err != nil {
		return nil, err
	}

	return a.History(), nil
}

// Cancel cancels every exchange of a thread, running or queued.
func (r *Runner) Cancel(threadID string) error {
	r.mu.Lock()
	cancels := r.takeRuns(threadID)
	r.mu.Unlock()

	if len(cancels) == 0 {
		return fmt.Errorf("thread %s: %w", threadID, ErrNoActiveRun)
	}

	for _, cancel := range cancels {
		cancel()
	}

	r.logger.Info("runner.run.cancelled", "thread_id", threadID, "runs", len(cancels))

	return nil
}

// Delete cancels the thread's exchanges, destroys its session and removes the
// thread from the store. An exchange that finishes afterwards is not
// persisted.
func (r *Runner) Delete(ctx context.Context, threadID string) error {
	r.mu.Lock()
	r.deleted[threadID] = struct{}{}
	cancels := r.takeRuns(threadID)
	a := r.sessions[threadID]
	delete(r.sessions, threadID)
	r.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}

	if a != nil {
		// Waits for a commit already writing to the store.
		a.Close()
	}

	if err := r.store.Delete(ctx, threadID); err != nil {
		if !errors.Is(err, core.ErrThreadNotFound) {
			r.mu.Lock()
			delete(r.deleted, threadID)
			r.mu.Unlock()
		}

		return err
	}

	r.logger.Info("runner.thread.deleted", "thread_id", threadID, "cancelled_runs", len(cancels))

	return nil
}

// Sessions returns the number of live sessions.
func (r *Runner) Sessions() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.sessions)
}
