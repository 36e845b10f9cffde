package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ericmichael/llm-deployment/core"
)

// InMemoryStore is a volatile ConversationStore storing threads in a process
// local map. It is safe for concurrent access and best suited for tests or
// ephemeral demo servers. Returned slices are copies.
type InMemoryStore struct {
	mu      sync.RWMutex
	threads map[string]*memThread
}

type memThread struct {
	thread core.Thread
	turns  []core.Turn
	seen   map[string]struct{}
}

// NewInMemoryStore constructs an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{threads: make(map[string]*memThread)}
}

// CreateThread registers a thread, overwriting the metadata of an existing one.
func (s *InMemoryStore) CreateThread(_ context.Context, thread core.Thread) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if thread.CreatedAt.IsZero() {
		thread.CreatedAt = time.Now().UTC()
	}

	if t, ok := s.threads[thread.ID]; ok {
		t.thread = thread
		return nil
	}

	s.threads[thread.ID] = &memThread{thread: thread, seen: map[string]struct{}{}}

	return nil
}

// GetThread returns the thread metadata or core.ErrThreadNotFound.
func (s *InMemoryStore) GetThread(_ context.Context, threadID string) (core.Thread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.threads[threadID]
	if !ok {
		return core.Thread{}, core.ErrThreadNotFound
	}

	return t.thread, nil
}

// ListThreads returns every thread, newest first.
func (s *InMemoryStore) ListThreads(_ context.Context) ([]core.Thread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.Thread, 0, len(s.threads))
	for _, t := range s.threads {
		out = append(out, t.thread)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	return out, nil
}

// Load returns the thread's turns ordered by (timestamp, id). An unknown
// thread yields an empty history.
func (s *InMemoryStore) Load(_ context.Context, threadID string) ([]core.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.threads[threadID]
	if !ok {
		return []core.Turn{}, nil
	}

	turns := make([]core.Turn, len(t.turns))
	copy(turns, t.turns)
	sortTurns(turns)

	return turns, nil
}

// Append stores a turn, creating the thread on first use.
func (s *InMemoryStore) Append(_ context.Context, threadID string, turn core.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.threads[threadID]
	if !ok {
		t = &memThread{
			thread: core.Thread{ID: threadID, CreatedAt: time.Now().UTC()},
			seen:   map[string]struct{}{},
		}
		s.threads[threadID] = t
	}

	if turn.ID != "" {
		if _, dup := t.seen[turn.ID]; dup {
			return nil
		}

		t.seen[turn.ID] = struct{}{}
	}

	t.turns = append(t.turns, turn)

	return nil
}

// Delete removes the thread and its turns. Deleting an unknown thread
// returns core.ErrThreadNotFound.
func (s *InMemoryStore) Delete(_ context.Context, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.threads[threadID]; !ok {
		return core.ErrThreadNotFound
	}

	delete(s.threads, threadID)

	return nil
}

func sortTurns(turns []core.Turn) {
	sort.SliceStable(turns, func(i, j int) bool {
		if turns[i].Timestamp.Equal(turns[j].Timestamp) {
			return turns[i].ID < turns[j].ID
		}
		return turns[i].Timestamp.Before(turns[j].Timestamp)
	})
}
