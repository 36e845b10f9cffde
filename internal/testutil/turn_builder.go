package testutil

import (
	"errors"
	"time"

	"github.com/ericmichael/llm-deployment/core"
)

// TurnBuilder provides a fluent helper for constructing a turn sequence in tests.
// Example:
//
//	turns := testutil.NewTurnBuilder().User("hi").Assistant("hello").Build()
//
// Timestamps are strictly increasing starting at Start, one second apart.
type TurnBuilder struct {
	start time.Time
	turns []core.Turn
}

// Start is the timestamp of the first built turn.
var Start = time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC)

// NewTurnBuilder creates an empty builder.
func NewTurnBuilder() *TurnBuilder { return &TurnBuilder{start: Start} }

// At overrides the start timestamp (chainable).
func (b *TurnBuilder) At(t time.Time) *TurnBuilder { b.start = t; return b }

func (b *TurnBuilder) add(t core.Turn) *TurnBuilder {
	t.Timestamp = b.start.Add(time.Duration(len(b.turns)) * time.Second)
	b.turns = append(b.turns, t)

	return b
}

// System appends a system turn (chainable).
func (b *TurnBuilder) System(s string) *TurnBuilder { return b.add(core.NewSystemTurn(s)) }

// User appends a user turn (chainable).
func (b *TurnBuilder) User(s string) *TurnBuilder { return b.add(core.NewUserTurn(s)) }

// Assistant appends an assistant turn (chainable).
func (b *TurnBuilder) Assistant(s string) *TurnBuilder { return b.add(core.NewAssistantTurn(s)) }

// ToolResult appends a "Tool Result: " turn (chainable).
func (b *TurnBuilder) ToolResult(s string) *TurnBuilder { return b.add(core.NewToolResultTurn(s)) }

// ToolError appends a "Tool Error: " turn (chainable).
func (b *TurnBuilder) ToolError(s string) *TurnBuilder {
	return b.add(core.NewToolErrorTurn(errors.New(s)))
}

// Build returns a copy of the accumulated turns.
func (b *TurnBuilder) Build() []core.Turn {
	out := make([]core.Turn, len(b.turns))
	copy(out, b.turns)

	return out
}

// Roles projects turns onto their roles.
func Roles(turns []core.Turn) []core.Role {
	roles := make([]core.Role, len(turns))
	for i, t := range turns {
		roles[i] = t.Role
	}

	return roles
}

// Contents projects turns onto their content.
func Contents(turns []core.Turn) []string {
	contents := make([]string, len(turns))
	for i, t := range turns {
		contents[i] = t.Content
	}

	return contents
}

// IDs projects turns onto their IDs.
func IDs(turns []core.Turn) []string {
	ids := make([]string, len(turns))
	for i, t := range turns {
		ids[i] = t.ID
	}

	return ids
}

// CountRole returns how many turns have role.
func CountRole(turns []core.Turn, role core.Role) int {
	n := 0

	for _, t := range turns {
		if t.Role == role {
			n++
		}
	}

	return n
}
