// Package tool implements the tool calling subsystem that lets the agent loop
// invoke external capabilities (live lookups, computations, side-effects)
// requested by the model in plain text:
//
//   - Tool / FunctionTool: a uniform handler(args) -> text capability
//   - Registry: an immutable name -> Tool mapping built once per agent
//   - Parse: extraction of `Tool: name(arg1, arg2)` calls from a reply
//   - Invoker: lookup + single-attempt execution with a consistent error taxonomy
package tool

import (
	"context"
	"fmt"
	"strings"
)

// Tool defines the interface for extending the agent with external functions.
//
// Tool implementations should:
//   - Provide a unique snake_case name (word characters only, so the call
//     parser can recognise it)
//   - Declare their positional parameter names in order
//   - Validate arity themselves and fail with *InvalidArgumentsError
//   - Return text synchronously; honour ctx cancellation for slow lookups
//   - Be safe for concurrent use if the Registry is shared
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description returns a human-readable description of what this tool does.
	// It is rendered into the system prompt to tell the model when to use it.
	Description() string

	// Parameters returns the ordered positional parameter names.
	Parameters() []string

	// Call executes the tool with positional string arguments.
	Call(ctx context.Context, args []string) (string, error)
}

// Signature renders the tool as it is advertised to the model, e.g.
// `weather(latitude, longitude)`.
func Signature(t Tool) string {
	return fmt.Sprintf("%s(%s)", t.Name(), strings.Join(t.Parameters(), ", "))
}

// ParsedCall is a tool invocation extracted from a model reply. It is
// transient and never persisted.
type ParsedCall struct {
	Name      string
	Arguments []string
}

// String renders the call back in the textual protocol form.
func (c ParsedCall) String() string {
	quoted := make([]string, len(c.Arguments))
	for i, a := range c.Arguments {
		quoted[i] = `"` + a + `"`
	}
	return fmt.Sprintf("%s%s(%s)", Marker, c.Name, strings.Join(quoted, ", "))
}
