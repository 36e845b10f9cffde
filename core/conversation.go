package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrExchangeClosed is returned when committing an exchange that was
	// already committed or discarded.
	ErrExchangeClosed = errors.New("exchange already closed")

	// ErrConversationClosed is returned by Append once the conversation was
	// closed, e.g. because its thread was deleted.
	ErrConversationClosed = errors.New("conversation closed")
)

// ConversationOptions configures a Conversation.
type ConversationOptions struct {
	// Store mirrors every committed turn into durable storage. Optional.
	Store ConversationStore
}

// Conversation is the append-only, ordered turn history of one thread. It is
// safe for concurrent access.
//
// Contract:
//   - Insertion order is conversation order; turns are never reordered
//   - Turns returns a defensive copy
//   - When a Store is configured each committed turn is forwarded to it after
//     the in-memory append; the in-memory history stays authoritative even if
//     the store fails
//   - After Close nothing is appended or persisted any more
type Conversation struct {
	threadID string
	store    ConversationStore

	mu    sync.RWMutex
	turns []Turn

	// persistMu serializes Append against Close so that no store write
	// starts after Close returns.
	persistMu sync.Mutex
	closed    bool
}

// NewConversation creates an empty conversation for threadID.
func NewConversation(threadID string, optFns ...func(o *ConversationOptions)) *Conversation {
	opts := ConversationOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Conversation{threadID: threadID, store: opts.Store, turns: []Turn{}}
}

// ThreadID returns the identity of the owning thread.
func (c *Conversation) ThreadID() string { return c.threadID }

// Turns returns a copy of the committed turns in insertion order.
func (c *Conversation) Turns() []Turn {
	c.mu.RLock()
	defer c.mu.RUnlock()

	turns := make([]Turn, len(c.turns))
	copy(turns, c.turns)

	return turns
}

// Len returns the number of committed turns.
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.turns)
}

// Load replaces the in-memory history with the turns held by the store, in
// the store's ascending order. It is a no-op without a store.
func (c *Conversation) Load(ctx context.Context) error {
	if c.store == nil {
		return nil
	}

	turns, err := c.store.Load(ctx, c.threadID)
	if err != nil {
		return fmt.Errorf("load conversation %s: %w", c.threadID, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.turns = append(make([]Turn, 0, len(turns)), turns...)

	return nil
}

// Append commits turns to the history and then forwards each to the store.
// The in-memory append always happens on an open conversation; the first
// store error is returned.
func (c *Conversation) Append(ctx context.Context, turns ...Turn) error {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	if c.closed {
		return ErrConversationClosed
	}

	c.mu.Lock()
	c.turns = append(c.turns, turns...)
	c.mu.Unlock()

	if c.store == nil {
		return nil
	}

	var firstErr error

	for _, t := range turns {
		if err := c.store.Append(ctx, c.threadID, t); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("persist turn %s: %w", t.ID, err)
		}
	}

	return firstErr
}

// Close stops the conversation from accepting turns. It waits for an
// in-flight Append to finish.
func (c *Conversation) Close() {
	c.persistMu.Lock()
	c.closed = true
	c.persistMu.Unlock()
}

// Begin opens an Exchange staging the turns of one user-facing exchange on
// top of the current history.
func (c *Conversation) Begin() *Exchange {
	return &Exchange{conv: c}
}

// Exchange stages the turns produced while answering one user input. Staged
// turns are visible through Transcript but only become part of the
// Conversation on Commit; Discard drops them, leaving the history exactly as
// it was before the exchange began.
//
// An Exchange is not safe for concurrent use.
type Exchange struct {
	conv   *Conversation
	staged []Turn
	closed bool
}

// Stage appends a turn to the pending buffer. Staging into a closed exchange
// is a no-op.
func (e *Exchange) Stage(t Turn) {
	if e.closed {
		return
	}

	e.staged = append(e.staged, t)
}

// Staged returns a copy of the pending turns.
func (e *Exchange) Staged() []Turn {
	staged := make([]Turn, len(e.staged))
	copy(staged, e.staged)

	return staged
}

// Transcript returns committed history followed by the pending turns.
func (e *Exchange) Transcript() []Turn {
	return append(e.conv.Turns(), e.staged...)
}

// Commit appends the pending turns to the conversation in staging order.
func (e *Exchange) Commit(ctx context.Context) error {
	if e.closed {
		return ErrExchangeClosed
	}

	e.closed = true

	if len(e.staged) == 0 {
		return nil
	}

	return e.conv.Append(ctx, e.staged...)
}

// Discard drops the pending turns.
func (e *Exchange) Discard() {
	e.closed = true
	e.staged = nil
}
