package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// FunctionTool is a generic adapter that exposes a plain Go function as a tool.
//
// Responsibilities:
//   - Holds the ordered positional parameter names advertised to the model
//   - Invokes the wrapped function with the raw string arguments
//   - Converts the function's return value to text (strings verbatim, scalars
//     formatted, everything else JSON encoded)
//   - Normalizes error handling so callers receive the package's error types:
//     *InvalidArgumentsError -> forwarded unchanged
//     *ExecutionError        -> forwarded unchanged
//     other error            -> wrapped into *ExecutionError
//
// Concurrency:
//
//	A FunctionTool has no internal mutable state after construction and is safe for
//	concurrent use by multiple goroutines.
type FunctionTool struct {
	name        string
	description string
	parameters  []string
	fn          func(ctx context.Context, args []string) (any, error)
}

// NewFunctionTool constructs a FunctionTool.
//
// Example:
//
//	echo := NewFunctionTool(
//	  "echo",
//	  "Repeat the given text back",
//	  []string{"text"},
//	  func(ctx context.Context, args []string) (any, error) {
//	    if err := RequireArgs("echo", args, "text"); err != nil {
//	      return nil, err
//	    }
//	    return args[0], nil
//	  },
//	)
func NewFunctionTool(
	name, description string,
	parameters []string,
	fn func(ctx context.Context, args []string) (any, error),
) *FunctionTool {
	params := make([]string, len(parameters))
	copy(params, parameters)

	return &FunctionTool{
		name:        name,
		description: description,
		parameters:  params,
		fn:          fn,
	}
}

// Name returns the unique tool name.
func (t *FunctionTool) Name() string { return t.name }

// Description returns the short natural language description exposed to models.
func (t *FunctionTool) Description() string { return t.description }

// Parameters returns a copy of the positional parameter names.
func (t *FunctionTool) Parameters() []string {
	params := make([]string, len(t.parameters))
	copy(params, t.parameters)

	return params
}

// Call invokes the underlying function and renders its result as text.
func (t *FunctionTool) Call(ctx context.Context, args []string) (string, error) {
	result, err := t.fn(ctx, args)
	if err != nil {
		var (
			invalid *InvalidArgumentsError
			exec    *ExecutionError
		)

		if errors.As(err, &invalid) || errors.As(err, &exec) {
			return "", err
		}

		return "", &ExecutionError{Tool: t.name, Err: err}
	}

	text, err := ResultText(result)
	if err != nil {
		return "", &ExecutionError{Tool: t.name, Err: err}
	}

	return text, nil
}

// RequireArgs validates that exactly len(params) arguments were supplied. The
// returned error names the first missing parameter.
func RequireArgs(tool string, args []string, params ...string) error {
	switch {
	case len(args) < len(params):
		return NewInvalidArgumentsError(tool, params[len(args)], "missing")
	case len(args) > len(params):
		return NewInvalidArgumentsError(tool, "", fmt.Sprintf("expected %d arguments, got %d", len(params), len(args)))
	}

	return nil
}

// ResultText converts a tool's return value to the text fed back to the model.
func ResultText(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "", nil
	case string:
		return val, nil
	case []byte:
		return string(val), nil
	case fmt.Stringer:
		return val.String(), nil
	case bool:
		return strconv.FormatBool(val), nil
	case int:
		return strconv.Itoa(val), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return "", fmt.Errorf("encode result: %w", err)
		}

		return string(b), nil
	}
}
