package core

import (
	"errors"
	"fmt"
	"sync"
)

// ErrLimitExceeded is wrapped by ChainLimiter.Increment once the budget is spent.
var ErrLimitExceeded = errors.New("limit exceeded")

// ChainLimiter enforces a maximum number of consecutive tool calls per user
// turn.
type ChainLimiter struct {
	max   int
	count int
	mu    sync.Mutex
}

// NewChainLimiter creates a new limiter with a max number of calls.
// If max <= 0, unlimited calls are allowed.
func NewChainLimiter(max int) *ChainLimiter {
	return &ChainLimiter{max: max}
}

// Increment increases the call counter and returns an error if the limit is exceeded.
func (cl *ChainLimiter) Increment() error {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	cl.count++
	if cl.max > 0 && cl.count > cl.max {
		return fmt.Errorf("%w: max %d tool calls", ErrLimitExceeded, cl.max)
	}

	return nil
}

// Count returns the current number of calls made.
func (cl *ChainLimiter) Count() int {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	return cl.count
}

// Remaining returns how many calls are left before hitting the limit.
func (cl *ChainLimiter) Remaining() int {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if cl.max <= 0 {
		return -1 // unlimited
	}

	if cl.count >= cl.max {
		return 0
	}

	return cl.max - cl.count
}

// Max returns the configured limit (<= 0 means unlimited).
func (cl *ChainLimiter) Max() int { return cl.max }
