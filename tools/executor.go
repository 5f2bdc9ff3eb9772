// Tool Executor with Retry Logic.
//
// Information Hiding:
// - Retry strategy implementation hidden
// - Backoff algorithm hidden
// - Error classification logic hidden

package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/prachwal/rag07/internal/logging"
	"github.com/prachwal/rag07/llm"
)

// ArgumentError reports arguments that do not fit a tool's parameters.
type ArgumentError struct {
	Err error
}

func (e *ArgumentError) Error() string { return e.Err.Error() }
func (e *ArgumentError) Unwrap() error { return e.Err }

// decodeArgs strictly decodes args into v. Missing or null args decode as {}.
func decodeArgs(args json.RawMessage, v any) error {
	if len(bytes.TrimSpace(args)) == 0 || bytes.Equal(bytes.TrimSpace(args), []byte("null")) {
		args = json.RawMessage("{}")
	}
	dec := json.NewDecoder(bytes.NewReader(args))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &ArgumentError{Err: err}
	}
	return nil
}

// Executor dispatches calls by name and turns every failure into a ToolResult.
type Executor struct {
	registry  *Registry
	config    ToolConfig
	logger    zerolog.Logger
	baseDelay time.Duration
}

// NewExecutor creates a new tool executor over registry.
func NewExecutor(registry *Registry, config ToolConfig, logger zerolog.Logger) *Executor {
	return &Executor{
		registry:  registry,
		config:    config,
		logger:    logger,
		baseDelay: 100 * time.Millisecond,
	}
}

// Registry returns the registry the executor dispatches to.
func (e *Executor) Registry() *Registry {
	return e.registry
}

// Execute runs the named tool. It never returns an error: unknown names, bad
// arguments and tool failures come back as failure results the model can read.
func (e *Executor) Execute(ctx context.Context, name string, args json.RawMessage) ToolResult {
	tool, ok := e.registry.Get(name)
	if !ok {
		e.logger.Warn().Str("function", name).Str("error_type", string(ErrorUnknownFunction)).Msg("function_execution_error")
		return ToolResult{
			Status:    StatusError,
			Message:   fmt.Sprintf("Unknown function: %s", name),
			ErrorType: ErrorUnknownFunction,
			Data:      map[string]any{"available_functions": e.registry.Names()},
		}
	}

	if err := tool.Validate(args); err != nil {
		return e.invalidArguments(name, err)
	}

	e.logger.Debug().Str("function", name).RawJSON("args", compactArgs(args)).Msg("function_execution_started")

	var lastErr error
	maxRetries := e.config.Retries()

	for attempt := uint32(0); attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return e.executionFailed(name, ctx.Err())
			case <-time.After(e.calculateBackoff(attempt)):
			}
			e.logger.Debug().Str("function", name).Uint32("attempt", attempt).Err(lastErr).Msg("function_execution_retry")
		}

		result, err := e.run(ctx, tool, args)
		if err == nil {
			e.logger.Debug().Str("function", name).Bool("success", result.Success()).Msg("function_execution_completed")
			return result
		}

		var argErr *ArgumentError
		if errors.As(err, &argErr) {
			return e.invalidArguments(name, err)
		}

		lastErr = err
		if !shouldRetry(ctx, err) {
			break
		}
	}

	return e.executionFailed(name, lastErr)
}

func (e *Executor) run(ctx context.Context, tool Tool, args json.RawMessage) (result ToolResult, err error) {
	ctx, cancel := context.WithTimeout(ctx, e.config.Timeout())
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = permanent{fmt.Errorf("panic: %v", r)}
		}
	}()

	if logging.FromCtx(ctx).GetLevel() == zerolog.Disabled {
		ctx = logging.WithLogger(ctx, e.logger)
	}
	return tool.Execute(ctx, args)
}

func (e *Executor) invalidArguments(name string, err error) ToolResult {
	e.logger.Warn().Str("function", name).Str("error_type", string(ErrorInvalidArguments)).Err(err).Msg("function_execution_error")
	return ToolResult{
		Status:       StatusError,
		Message:      fmt.Sprintf("Invalid arguments for %s: %v", name, err),
		FunctionName: name,
		ErrorType:    ErrorInvalidArguments,
	}
}

func (e *Executor) executionFailed(name string, err error) ToolResult {
	e.logger.Warn().Str("function", name).Str("error_type", string(ErrorExecutionFailed)).Err(err).Msg("function_execution_error")
	return ToolResult{
		Status:       StatusError,
		Message:      fmt.Sprintf("Function execution error in %s: %v", name, err),
		FunctionName: name,
		ErrorType:    ErrorExecutionFailed,
	}
}

// calculateBackoff returns the backoff duration for the given attempt.
func (e *Executor) calculateBackoff(attempt uint32) time.Duration {
	const maxDelay = 5 * time.Second

	delay := e.baseDelay * time.Duration(1<<(attempt-1))
	if delay > maxDelay || delay <= 0 {
		delay = maxDelay
	}
	return delay
}

type permanent struct{ error }

func (p permanent) Unwrap() error { return p.error }

// shouldRetry determines if an error is transient.
func shouldRetry(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}

	var p permanent
	if errors.As(err, &p) {
		return false
	}

	var apiErr *llm.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}

	switch {
	case errors.Is(err, context.Canceled),
		errors.Is(err, llm.ErrConfiguration),
		errors.Is(err, llm.ErrValidation),
		errors.Is(err, llm.ErrUnsupported):
		return false
	}
	return true
}

func compactArgs(args json.RawMessage) []byte {
	var buf bytes.Buffer
	if err := json.Compact(&buf, args); err != nil || buf.Len() == 0 {
		return []byte("{}")
	}
	return buf.Bytes()
}
