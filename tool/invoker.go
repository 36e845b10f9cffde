package tool

import (
	"context"
	"errors"
	"runtime/debug"
	"time"

	"github.com/ericmichael/llm-deployment/logging"
)

// InvokerOptions configures an Invoker.
type InvokerOptions struct {
	// Timeout bounds every single tool call. Zero disables the deadline.
	Timeout time.Duration
	// Logger receives tool.call.* events.
	Logger logging.Logger
}

// Invoker resolves parsed calls against a Registry and executes them once.
// Failures are always returned as one of *UnknownToolError,
// *InvalidArgumentsError or *ExecutionError; a panicking handler is recovered
// and reported as *ExecutionError.
type Invoker struct {
	registry *Registry
	timeout  time.Duration
	logger   logging.Logger
}

// NewInvoker creates an Invoker over registry.
func NewInvoker(registry *Registry, optFns ...func(o *InvokerOptions)) *Invoker {
	opts := InvokerOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Invoker{
		registry: registry,
		timeout:  opts.Timeout,
		logger:   logging.OrNoOp(opts.Logger),
	}
}

// Registry returns the registry the invoker resolves against.
func (i *Invoker) Registry() *Registry { return i.registry }

// Invoke executes call and returns the tool's text result.
func (i *Invoker) Invoke(ctx context.Context, call ParsedCall) (result string, err error) {
	t, ok := i.registry.Get(call.Name)
	if !ok {
		i.logger.Warn("tool.call.unknown", "tool", call.Name)
		return "", &UnknownToolError{Name: call.Name}
	}

	if i.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}

	start := time.Now()

	i.logger.Debug("tool.call.start", "tool", call.Name, "args", len(call.Arguments))

	func() { // panic safety
		defer func() {
			if r := recover(); r != nil {
				err = &ExecutionError{Tool: call.Name, Err: &panicError{val: r}}
				i.logger.Error("tool.call.panic", "tool", call.Name, "recover", r, "stack", string(debug.Stack()))
			}
		}()

		result, err = t.Call(ctx, call.Arguments)
	}()

	if err != nil {
		err = normalize(call.Name, err)
	}

	logging.LogToolCall(i.logger, call.Name, time.Since(start), err)

	if err != nil {
		return "", err
	}

	return result, nil
}

func normalize(name string, err error) error {
	var (
		unknown *UnknownToolError
		invalid *InvalidArgumentsError
		exec    *ExecutionError
	)

	if errors.As(err, &unknown) || errors.As(err, &invalid) || errors.As(err, &exec) {
		return err
	}

	return &ExecutionError{Tool: name, Err: err}
}
