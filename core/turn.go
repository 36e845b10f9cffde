package core

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// Role identifies the author of a Turn.
type Role string

const (
	// RoleSystem marks the system prompt.
	RoleSystem Role = "system"
	// RoleUser marks user supplied input (typed or transcribed).
	RoleUser Role = "user"
	// RoleAssistant marks a model reply, including replies requesting a tool.
	RoleAssistant Role = "assistant"
	// RoleTool marks the result (or failure) of a tool invocation.
	RoleTool Role = "tool"
)

// Prefixes tagging the content of RoleTool turns. Providers that have no
// dedicated tool role forward the tagged text so the model can tell a tool
// result apart from a user message.
const (
	ToolResultPrefix = "Tool Result: "
	ToolErrorPrefix  = "Tool Error: "
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant, RoleTool:
		return true
	default:
		return false
	}
}

// String implements fmt.Stringer.
func (r Role) String() string { return string(r) }

// Turn is one unit of conversation content. After construction it should be
// treated as immutable; IDs are lexically sortable and increase monotonically
// within a process, which makes them a stable tiebreak for equal timestamps.
type Turn struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// NewTurn creates a turn stamped with a fresh ID and the current UTC time.
func NewTurn(role Role, content string) Turn {
	return Turn{
		ID:        NewID(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}

// NewSystemTurn creates a system prompt turn.
func NewSystemTurn(content string) Turn { return NewTurn(RoleSystem, content) }

// NewUserTurn creates a user turn.
func NewUserTurn(content string) Turn { return NewTurn(RoleUser, content) }

// NewAssistantTurn creates an assistant turn.
func NewAssistantTurn(content string) Turn { return NewTurn(RoleAssistant, content) }

// NewToolResultTurn wraps a successful tool output in a tagged RoleTool turn.
func NewToolResultTurn(result string) Turn {
	return NewTurn(RoleTool, ToolResultPrefix+result)
}

// NewToolErrorTurn wraps a tool failure in a tagged RoleTool turn so the model
// can apologise or retry with corrected arguments.
func NewToolErrorTurn(err error) Turn {
	return NewTurn(RoleTool, ToolErrorPrefix+err.Error())
}

// IsToolError reports whether t carries a tool failure.
func (t Turn) IsToolError() bool {
	return t.Role == RoleTool && len(t.Content) >= len(ToolErrorPrefix) && t.Content[:len(ToolErrorPrefix)] == ToolErrorPrefix
}

// NewID generates a new unique, time ordered identifier.
func NewID() string { return ulid.Make().String() }
