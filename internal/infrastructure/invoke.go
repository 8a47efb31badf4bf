package infrastructure

import (
	"context"
	"log/slog"
	"time"
)

// InvokeResult carries the timing outcome of one invoked step
type InvokeResult struct {
	Name     string
	Duration time.Duration
	Err      error
}

// Invoke runs fn, logs its duration and outcome, and returns its result.
// Timing is captured at the call site through this helper rather than
// through wrapping layers, so the instrumented boundary is visible in
// the code that owns it.
func Invoke[T any](ctx context.Context, logger *slog.Logger, name string, fn func(context.Context) (T, error)) (T, InvokeResult) {
	if logger == nil {
		logger = slog.Default()
	}

	start := time.Now()
	value, err := fn(ctx)
	elapsed := time.Since(start)

	result := InvokeResult{Name: name, Duration: elapsed, Err: err}

	if err != nil {
		logger.WarnContext(ctx, "step failed",
			"step", name,
			"duration_ms", elapsed.Milliseconds(),
			"error", err)
		return value, result
	}

	logger.DebugContext(ctx, "step completed",
		"step", name,
		"duration_ms", elapsed.Milliseconds())
	return value, result
}
