package agent

import (
	"errors"
	"fmt"

	"github.com/ericmichael/llm-deployment/core"
)

var (
	// ErrToolChainLimitExceeded is matched by *ChainLimitError.
	ErrToolChainLimitExceeded = errors.New("tool chain limit exceeded")

	// ErrEmptyInput is returned when Chat receives blank text.
	ErrEmptyInput = errors.New("empty input")

	// ErrNoTranscriber is returned by ChatAudio when no Transcriber is configured.
	ErrNoTranscriber = errors.New("no transcriber configured")
)

// ChainLimitError reports that an exchange requested more than Limit
// consecutive tool calls and was truncated.
type ChainLimitError struct {
	Limit int
}

func (e *ChainLimitError) Error() string {
	return fmt.Sprintf("tool chain limit exceeded: more than %d consecutive tool calls", e.Limit)
}

// Is implements errors.Is support for ErrToolChainLimitExceeded.
func (e *ChainLimitError) Is(target error) bool { return target == ErrToolChainLimitExceeded }

// Unwrap exposes core.ErrLimitExceeded.
func (e *ChainLimitError) Unwrap() error { return core.ErrLimitExceeded }
