package core

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
)

type recordingStore struct {
	mu      sync.Mutex
	turns   map[string][]Turn
	failAll bool
}

func newRecordingStore() *recordingStore {
	return &recordingStore{turns: map[string][]Turn{}}
}

func (s *recordingStore) CreateThread(context.Context, Thread) error { return nil }
func (s *recordingStore) GetThread(_ context.Context, id string) (Thread, error) {
	return Thread{ID: id}, nil
}

func (s *recordingStore) Load(_ context.Context, id string) ([]Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]Turn{}, s.turns[id]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *recordingStore) Append(_ context.Context, id string, turn Turn) error {
	if s.failAll {
		return errors.New("disk full")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns[id] = append(s.turns[id], turn)
	return nil
}

func (s *recordingStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.turns, id)
	return nil
}

func TestConversation_AppendPreservesOrder(t *testing.T) {
	ctx := context.Background()
	store := newRecordingStore()
	conv := NewConversation("t1", func(o *ConversationOptions) { o.Store = store })

	want := []Turn{NewUserTurn("a"), NewAssistantTurn("b"), NewToolResultTurn("c"), NewAssistantTurn("d")}
	for _, turn := range want {
		if err := conv.Append(ctx, turn); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	got := conv.Turns()
	if len(got) != len(want) {
		t.Fatalf("expected %d turns, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].ID != want[i].ID {
			t.Fatalf("turn %d out of order: %s != %s", i, got[i].ID, want[i].ID)
		}
	}
	if len(store.turns["t1"]) != len(want) {
		t.Fatalf("expected store to receive %d turns, got %d", len(want), len(store.turns["t1"]))
	}

	// defensive copy
	got[0].Content = "mutated"
	if conv.Turns()[0].Content != "a" {
		t.Fatal("Turns must return a copy")
	}
}

func TestConversation_StoreFailureKeepsMemory(t *testing.T) {
	store := newRecordingStore()
	store.failAll = true
	conv := NewConversation("t1", func(o *ConversationOptions) { o.Store = store })

	err := conv.Append(context.Background(), NewUserTurn("x"))
	if err == nil {
		t.Fatal("expected store error to surface")
	}
	if conv.Len() != 1 {
		t.Fatalf("in-memory history must stay authoritative, got %d turns", conv.Len())
	}
}

func TestConversation_Load(t *testing.T) {
	ctx := context.Background()
	store := newRecordingStore()
	first, second := NewUserTurn("first"), NewAssistantTurn("second")
	_ = store.Append(ctx, "t1", second)
	_ = store.Append(ctx, "t1", first)

	conv := NewConversation("t1", func(o *ConversationOptions) { o.Store = store })
	if err := conv.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	turns := conv.Turns()
	if len(turns) != 2 || turns[0].Content != "first" || turns[1].Content != "second" {
		t.Fatalf("unexpected loaded order: %+v", turns)
	}
}

func TestExchange_CommitAndDiscard(t *testing.T) {
	ctx := context.Background()
	conv := NewConversation("t1")
	_ = conv.Append(ctx, NewUserTurn("earlier"))

	ex := conv.Begin()
	ex.Stage(NewUserTurn("question"))
	ex.Stage(NewAssistantTurn("answer"))

	if conv.Len() != 1 {
		t.Fatalf("staged turns must not be visible before commit, got %d", conv.Len())
	}
	if len(ex.Transcript()) != 3 {
		t.Fatalf("transcript should include staged turns, got %d", len(ex.Transcript()))
	}
	if err := ex.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if conv.Len() != 3 {
		t.Fatalf("expected 3 committed turns, got %d", conv.Len())
	}
	ex.Stage(NewUserTurn("late"))
	if len(ex.Staged()) != 2 {
		t.Fatalf("staging into a committed exchange must be ignored, got %d", len(ex.Staged()))
	}

	ex2 := conv.Begin()
	ex2.Stage(NewUserTurn("abandoned"))
	ex2.Discard()
	if conv.Len() != 3 {
		t.Fatalf("discard must leave history untouched, got %d", conv.Len())
	}
	if err := ex2.Commit(ctx); !errors.Is(err, ErrExchangeClosed) {
		t.Fatalf("commit after discard should fail, got %v", err)
	}
}

func TestConversation_CloseStopsPersistence(t *testing.T) {
	ctx := context.Background()
	store := newRecordingStore()
	conv := NewConversation("t1", func(o *ConversationOptions) { o.Store = store })

	ex := conv.Begin()
	ex.Stage(NewUserTurn("question"))

	conv.Close()

	if err := ex.Commit(ctx); !errors.Is(err, ErrConversationClosed) {
		t.Fatalf("expected ErrConversationClosed, got %v", err)
	}
	if conv.Len() != 0 {
		t.Fatalf("closed conversation must not grow, got %d", conv.Len())
	}
	if turns, _ := store.Load(ctx, "t1"); len(turns) != 0 {
		t.Fatalf("closed conversation must not persist, got %d", len(turns))
	}
}
