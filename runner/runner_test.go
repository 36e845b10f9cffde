package runner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericmichael/llm-deployment/agent"
	"github.com/ericmichael/llm-deployment/core"
	"github.com/ericmichael/llm-deployment/model"
	"github.com/ericmichael/llm-deployment/session"
	"github.com/ericmichael/llm-deployment/tool"
)

func echoFactory(built *[]*tool.Registry) Factory {
	var mu sync.Mutex

	return func(threadID string, store core.ConversationStore) (*agent.Agent, error) {
		reg := tool.MustRegistry(tool.NewFunctionTool("echo", "", []string{"text"},
			func(_ context.Context, args []string) (any, error) { return args, nil }))

		if built != nil {
			mu.Lock()
			*built = append(*built, reg)
			mu.Unlock()
		}

		m := model.NewScriptedModel().Always("reply for " + threadID)

		return agent.New(threadID, m, reg, func(o *agent.Options) { o.Store = store }), nil
	}
}

func TestRunner_ChatPersistsAndIsolates(t *testing.T) {
	var registries []*tool.Registry

	store := session.NewInMemoryStore()
	r := New(echoFactory(&registries), func(o *Options) { o.Store = store })
	ctx := context.Background()

	t1, err := r.CreateThread(ctx, " Weather ")
	require.NoError(t, err)
	assert.Equal(t, "Weather", t1.Name)

	t2, err := r.CreateThread(ctx, "Food")
	require.NoError(t, err)
	assert.NotEqual(t, t1.ID, t2.ID)

	answer, err := r.Chat(ctx, t1.ID, "hi")
	require.NoError(t, err)
	assert.Equal(t, "reply for "+t1.ID, answer.Text)

	_, err = r.Chat(ctx, t2.ID, "hello")
	require.NoError(t, err)

	assert.Equal(t, 2, r.Sessions())
	require.Len(t, registries, 2)
	assert.NotSame(t, registries[0], registries[1])

	h1, err := r.History(ctx, t1.ID)
	require.NoError(t, err)
	assert.Len(t, h1, 2)
	assert.Equal(t, "hi", h1[0].Content)

	stored, err := store.Load(ctx, t2.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", stored[0].Content)

	threads, err := r.Threads(ctx)
	require.NoError(t, err)
	assert.Len(t, threads, 2)
}

func TestRunner_UnknownThread(t *testing.T) {
	r := New(echoFactory(nil))

	_, err := r.Chat(context.Background(), "missing", "hi")
	assert.ErrorIs(t, err, core.ErrThreadNotFound)
	assert.Zero(t, r.Sessions())
}

func TestRunner_SessionLoadsStoredHistory(t *testing.T) {
	store := session.NewInMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.CreateThread(ctx, core.Thread{ID: "t1"}))
	require.NoError(t, store.Append(ctx, "t1", core.NewUserTurn("from before")))
	require.NoError(t, store.Append(ctx, "t1", core.NewAssistantTurn("remembered")))

	r := New(echoFactory(nil), func(o *Options) { o.Store = store })

	history, err := r.History(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "remembered", history[1].Content)

	a1, err := r.Session(ctx, "t1")
	require.NoError(t, err)
	a2, err := r.Session(ctx, "t1")
	require.NoError(t, err)
	assert.Same(t, a1, a2)
}

func TestRunner_Delete(t *testing.T) {
	store := session.NewInMemoryStore()
	r := New(echoFactory(nil), func(o *Options) { o.Store = store })
	ctx := context.Background()

	th, err := r.CreateThread(ctx, "")
	require.NoError(t, err)
	assert.Contains(t, th.Name, "Chat on ")

	_, err = r.Chat(ctx, th.ID, "hi")
	require.NoError(t, err)

	require.NoError(t, r.Delete(ctx, th.ID))
	assert.Zero(t, r.Sessions())

	_, err = store.GetThread(ctx, th.ID)
	assert.ErrorIs(t, err, core.ErrThreadNotFound)

	_, err = r.History(ctx, th.ID)
	assert.ErrorIs(t, err, core.ErrThreadNotFound)

	assert.ErrorIs(t, r.Delete(ctx, th.ID), core.ErrThreadNotFound)
}

type blockingModel struct {
	started chan struct{}
}

func (b blockingModel) Generate(ctx context.Context, _ model.Request) (<-chan model.Response, <-chan error) {
	out := make(chan model.Response)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)
		close(b.started)
		<-ctx.Done()
		errCh <- ctx.Err()
	}()

	return out, errCh
}

func (blockingModel) Info() model.Info { return model.Info{Name: "block", Provider: "test"} }

func TestRunner_Cancel(t *testing.T) {
	started := make(chan struct{})
	r := New(func(threadID string, store core.ConversationStore) (*agent.Agent, error) {
		return agent.New(threadID, blockingModel{started: started}, nil, func(o *agent.Options) {
			o.Store = store
		}), nil
	})
	ctx := context.Background()

	th, err := r.CreateThread(ctx, "")
	require.NoError(t, err)

	assert.ErrorIs(t, r.Cancel(th.ID), ErrNoActiveRun)

	errCh := make(chan error, 1)

	go func() {
		_, err := r.Chat(ctx, th.ID, "hi")
		errCh <- err
	}()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("model never called")
	}

	require.NoError(t, r.Cancel(th.ID))

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("chat did not return after cancel")
	}

	history, err := r.History(ctx, th.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestRunner_FactoryError(t *testing.T) {
	store := session.NewInMemoryStore()
	require.NoError(t, store.CreateThread(context.Background(), core.Thread{ID: "t1"}))

	r := New(func(string, core.ConversationStore) (*agent.Agent, error) {
		return nil, errors.New("no model configured")
	}, func(o *Options) { o.Store = store })

	_, err := r.Chat(context.Background(), "t1", "hi")
	assert.ErrorContains(t, err, "no model configured")
}

type noListStore struct{ core.ConversationStore }

func TestRunner_ThreadsNotSupported(t *testing.T) {
	r := New(echoFactory(nil), func(o *Options) {
		o.Store = noListStore{session.NewInMemoryStore()}
	})

	_, err := r.Threads(context.Background())
	assert.ErrorIs(t, err, ErrListNotSupported)
}

func TestRunner_MaxConcurrentRuns(t *testing.T) {
	started := make(chan struct{})
	var blockedID string

	r := New(func(threadID string, store core.ConversationStore) (*agent.Agent, error) {
		var m model.Model = model.NewScriptedModel().Always("done")
		if threadID == blockedID {
			m = blockingModel{started: started}
		}

		return agent.New(threadID, m, nil, func(o *agent.Options) { o.Store = store }), nil
	}, func(o *Options) { o.MaxConcurrentRuns = 1 })

	ctx := context.Background()

	blocked, err := r.CreateThread(ctx, "blocked")
	require.NoError(t, err)
	blockedID = blocked.ID

	other, err := r.CreateThread(ctx, "other")
	require.NoError(t, err)

	errCh := make(chan error, 1)

	go func() {
		_, err := r.Chat(ctx, blocked.ID, "hi")
		errCh <- err
	}()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("model never called")
	}

	waitCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()

	_, err = r.Chat(waitCtx, other.ID, "hello")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, r.Cancel(blocked.ID))

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("chat did not return after cancel")
	}

	answer, err := r.Chat(ctx, other.ID, "hello")
	require.NoError(t, err)
	assert.Equal(t, "done", answer.Text)
}

func TestRunner_CreateThreadDefaultName(t *testing.T) {
	r := New(echoFactory(nil))
	r.now = func() time.Time { return time.Date(2023, time.November, 1, 14, 5, 9, 0, time.UTC) }

	th, err := r.CreateThread(context.Background(), "   ")
	require.NoError(t, err)
	assert.Equal(t, "Chat on 2023-11-01 14:05:09", th.Name)

	stored, err := r.Thread(context.Background(), th.ID)
	require.NoError(t, err)
	assert.Equal(t, th.Name, stored.Name)
}

// gatedModel reports every call on started and answers only once release is
// closed, whatever happens to the caller's context.
type gatedModel struct {
	started chan struct{}
	release chan struct{}
}

func newGatedModel(t *testing.T) gatedModel {
	t.Helper()

	m := gatedModel{started: make(chan struct{}, 8), release: make(chan struct{})}
	t.Cleanup(func() { close(m.release) })

	return m
}

func (g gatedModel) Generate(context.Context, model.Request) (<-chan model.Response, <-chan error) {
	out := make(chan model.Response, 1)
	errCh := make(chan error)

	go func() {
		defer close(out)
		defer close(errCh)

		g.started <- struct{}{}
		<-g.release
		out <- model.Response{Content: "late answer", FinishReason: "stop"}
	}()

	return out, errCh
}

func (gatedModel) Info() model.Info { return model.Info{Name: "gated", Provider: "test"} }

func runCount(r *Runner, threadID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.runs[threadID])
}

// startRunningAndQueued starts one exchange that sits in the model call and a
// second one queued behind it on the same thread.
func startRunningAndQueued(t *testing.T, r *Runner, threadID string, m gatedModel) (running, queued chan error) {
	t.Helper()

	running, queued = make(chan error, 1), make(chan error, 1)

	go func() {
		_, err := r.Chat(context.Background(), threadID, "first")
		running <- err
	}()

	select {
	case <-m.started:
	case <-time.After(5 * time.Second):
		t.Fatal("model never called")
	}

	go func() {
		_, err := r.Chat(context.Background(), threadID, "second")
		queued <- err
	}()

	require.Eventually(t, func() bool { return runCount(r, threadID) == 2 }, 5*time.Second, 5*time.Millisecond)

	return running, queued
}

func waitErr(t *testing.T, ch chan error) error {
	t.Helper()

	select {
	case err := <-ch:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("exchange did not return")
		return nil
	}
}

func TestRunner_CancelHitsRunningAndQueued(t *testing.T) {
	m := newGatedModel(t)
	store := session.NewInMemoryStore()
	r := New(func(threadID string, store core.ConversationStore) (*agent.Agent, error) {
		return agent.New(threadID, m, nil, func(o *agent.Options) { o.Store = store }), nil
	}, func(o *Options) { o.Store = store })
	ctx := context.Background()

	th, err := r.CreateThread(ctx, "busy")
	require.NoError(t, err)

	running, queued := startRunningAndQueued(t, r, th.ID, m)

	require.NoError(t, r.Cancel(th.ID))

	assert.ErrorIs(t, waitErr(t, running), context.Canceled)
	assert.ErrorIs(t, waitErr(t, queued), context.Canceled)
	assert.Zero(t, runCount(r, th.ID))
	assert.ErrorIs(t, r.Cancel(th.ID), ErrNoActiveRun)

	history, err := r.History(ctx, th.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestRunner_DeleteStopsRunningAndQueued(t *testing.T) {
	m := newGatedModel(t)
	store := session.NewInMemoryStore()
	r := New(func(threadID string, store core.ConversationStore) (*agent.Agent, error) {
		return agent.New(threadID, m, nil, func(o *agent.Options) { o.Store = store }), nil
	}, func(o *Options) { o.Store = store })
	ctx := context.Background()

	th, err := r.CreateThread(ctx, "busy")
	require.NoError(t, err)

	running, queued := startRunningAndQueued(t, r, th.ID, m)

	require.NoError(t, r.Delete(ctx, th.ID))

	assert.Error(t, waitErr(t, running))
	assert.Error(t, waitErr(t, queued))

	_, err = store.GetThread(ctx, th.ID)
	assert.ErrorIs(t, err, core.ErrThreadNotFound)

	turns, err := store.Load(ctx, th.ID)
	require.NoError(t, err)
	assert.Empty(t, turns)

	_, err = r.Chat(ctx, th.ID, "again")
	assert.ErrorIs(t, err, core.ErrThreadNotFound)
	assert.Zero(t, r.Sessions())
}

func TestRunner_SessionLoadDoesNotBlockOtherThreads(t *testing.T) {
	store := session.NewInMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.CreateThread(ctx, core.Thread{ID: "slow"}))
	require.NoError(t, store.CreateThread(ctx, core.Thread{ID: "fast"}))

	entered := make(chan struct{})
	gate := make(chan struct{})
	build := echoFactory(nil)

	r := New(func(threadID string, store core.ConversationStore) (*agent.Agent, error) {
		if threadID == "slow" {
			close(entered)
			<-gate
		}

		return build(threadID, store)
	}, func(o *Options) { o.Store = store })

	slowCh := make(chan *agent.Agent, 1)

	go func() {
		a, err := r.Session(ctx, "slow")
		assert.NoError(t, err)
		slowCh <- a
	}()

	<-entered

	done := make(chan struct{})

	go func() {
		defer close(done)
		_, err := r.Chat(ctx, "fast", "hi")
		assert.NoError(t, err)
		assert.ErrorIs(t, r.Cancel("slow"), ErrNoActiveRun)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("other thread blocked behind a session load")
	}

	close(gate)

	a := <-slowCh
	again, err := r.Session(ctx, "slow")
	require.NoError(t, err)
	assert.Same(t, a, again)
}

func TestRunner_DeleteDuringSessionLoad(t *testing.T) {
	store := session.NewInMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.CreateThread(ctx, core.Thread{ID: "t1"}))

	entered := make(chan struct{})
	gate := make(chan struct{})
	build := echoFactory(nil)

	r := New(func(threadID string, store core.ConversationStore) (*agent.Agent, error) {
		close(entered)
		<-gate

		return build(threadID, store)
	}, func(o *Options) { o.Store = store })

	errCh := make(chan error, 1)

	go func() {
		_, err := r.Chat(ctx, "t1", "hi")
		errCh <- err
	}()

	<-entered
	require.NoError(t, r.Delete(ctx, "t1"))
	close(gate)

	assert.ErrorIs(t, waitErr(t, errCh), core.ErrThreadNotFound)
	assert.Zero(t, r.Sessions())

	_, err := store.GetThread(ctx, "t1")
	assert.ErrorIs(t, err, core.ErrThreadNotFound)
}
