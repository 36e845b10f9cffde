package core

import (
	"context"
	"errors"
	"time"
)

// ErrThreadNotFound is returned by stores when a thread id is unknown.
var ErrThreadNotFound = errors.New("thread not found")

// Thread is the persistent identity under which a conversation's turns are
// grouped.
type Thread struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// ConversationStore is the durable persistence collaborator. Implementations
// must be safe for concurrent use.
//
// Contract:
//   - Load returns turns in ascending (Timestamp, ID) order
//   - Append is called once per committed turn; at-least-once delivery is
//     acceptable, duplicate rows are the store's concern
//   - Delete removes the thread and every stored turn
type ConversationStore interface {
	CreateThread(ctx context.Context, thread Thread) error
	GetThread(ctx context.Context, threadID string) (Thread, error)
	Load(ctx context.Context, threadID string) ([]Turn, error)
	Append(ctx context.Context, threadID string, turn Turn) error
	Delete(ctx context.Context, threadID string) error
}

// ThreadLister is implemented by stores that can enumerate their threads.
type ThreadLister interface {
	// ListThreads returns every thread, newest first.
	ListThreads(ctx context.Context) ([]Thread, error)
}
