package tool

import (
	"errors"
	"fmt"
)

// Sentinel errors matched with errors.Is against the typed errors below.
var (
	ErrUnknownTool      = errors.New("unknown tool")
	ErrInvalidArguments = errors.New("invalid arguments")
	ErrToolExecution    = errors.New("tool execution failed")
	ErrParseAmbiguous   = errors.New("ambiguous tool call")
)

// UnknownToolError is returned when a call names a tool that is not registered.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool %q", e.Name)
}

// Is implements errors.Is support for ErrUnknownTool.
func (e *UnknownToolError) Is(target error) bool { return target == ErrUnknownTool }

// InvalidArgumentsError reports which argument a handler rejected and why.
// Argument is the parameter name, or empty when the arity itself is wrong.
type InvalidArgumentsError struct {
	Tool     string
	Argument string
	Reason   string
}

func (e *InvalidArgumentsError) Error() string {
	if e.Argument == "" {
		return fmt.Sprintf("invalid arguments for %s: %s", e.Tool, e.Reason)
	}
	return fmt.Sprintf("invalid argument %q for %s: %s", e.Argument, e.Tool, e.Reason)
}

// Is implements errors.Is support for ErrInvalidArguments.
func (e *InvalidArgumentsError) Is(target error) bool { return target == ErrInvalidArguments }

// NewInvalidArgumentsError creates an InvalidArgumentsError.
func NewInvalidArgumentsError(tool, argument, reason string) *InvalidArgumentsError {
	return &InvalidArgumentsError{Tool: tool, Argument: argument, Reason: reason}
}

// ExecutionError wraps any other failure (including recovered panics) raised
// by a tool handler.
type ExecutionError struct {
	Tool string
	Err  error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("tool %s failed: %v", e.Tool, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ExecutionError) Unwrap() error { return e.Err }

// Is implements errors.Is support for ErrToolExecution.
func (e *ExecutionError) Is(target error) bool { return target == ErrToolExecution }

// ParseError signals a reply carrying the Tool: marker whose call expression
// could not be parsed.
type ParseError struct {
	Reply  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("could not parse tool call: %s", e.Reason)
}

// Is implements errors.Is support for ErrParseAmbiguous.
func (e *ParseError) Is(target error) bool { return target == ErrParseAmbiguous }

// panicError converts a recovered panic value to an error.
type panicError struct {
	val any
}

func (p *panicError) Error() string { return fmt.Sprintf("panic recovered: %v", p.val) }
