package barcache

import (
	"context"
	"fmt"
	"log/slog"

	"almanac/internal/marketdata"
)

// Result records the outcome of consulting one backend during a chain
// lookup. Chains surface these instead of hiding tier failures.
type Result struct {
	Backend string
	Hit     bool
	Err     error
}

// Chain composes backends into an explicit ranked list. Lookups try
// each backend in order and stop at the first hit; the hit is then
// promoted into every earlier backend so subsequent lookups resolve at
// the cheapest tier. A failing backend is recorded and skipped, never
// fatal to the lookup.
type Chain struct {
	backends []Backend
	logger   *slog.Logger
}

// NewChain creates a chain over backends in descending priority. The
// logger defaults to slog.Default() when nil.
func NewChain(logger *slog.Logger, backends ...Backend) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{backends: backends, logger: logger}
}

// Backends returns the names of the configured backends in rank order
func (c *Chain) Backends() []string {
	names := make([]string, len(c.backends))
	for i, b := range c.backends {
		names[i] = b.Name()
	}
	return names
}

// GetMinute looks the key up through the ranked backends. The returned
// results describe every backend consulted, in order.
func (c *Chain) GetMinute(ctx context.Context, key Key) ([]marketdata.MinuteBar, bool, []Result) {
	var results []Result
	for i, b := range c.backends {
		bars, ok, err := b.GetMinute(ctx, key)
		results = append(results, Result{Backend: b.Name(), Hit: ok, Err: err})
		if err != nil {
			c.logger.WarnContext(ctx, "cache backend failed, trying next",
				"backend", b.Name(), "key", key.String(), "error", err)
			continue
		}
		if ok {
			c.promoteMinute(ctx, key, bars, i)
			return bars, true, results
		}
	}
	return nil, false, results
}

// GetDaily looks the key up through the ranked backends
func (c *Chain) GetDaily(ctx context.Context, key Key) ([]marketdata.DailyBar, bool, []Result) {
	var results []Result
	for i, b := range c.backends {
		bars, ok, err := b.GetDaily(ctx, key)
		results = append(results, Result{Backend: b.Name(), Hit: ok, Err: err})
		if err != nil {
			c.logger.WarnContext(ctx, "cache backend failed, trying next",
				"backend", b.Name(), "key", key.String(), "error", err)
			continue
		}
		if ok {
			c.promoteDaily(ctx, key, bars, i)
			return bars, true, results
		}
	}
	return nil, false, results
}

// PutMinute stores the bars in every backend. Individual backend
// failures are collected, not fatal.
func (c *Chain) PutMinute(ctx context.Context, key Key, bars []marketdata.MinuteBar) error {
	var firstErr error
	for _, b := range c.backends {
		if err := b.PutMinute(ctx, key, bars); err != nil {
			c.logger.WarnContext(ctx, "cache backend write failed",
				"backend", b.Name(), "key", key.String(), "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("backend %s: %w", b.Name(), err)
			}
		}
	}
	return firstErr
}

// PutDaily stores the bars in every backend
func (c *Chain) PutDaily(ctx context.Context, key Key, bars []marketdata.DailyBar) error {
	var firstErr error
	for _, b := range c.backends {
		if err := b.PutDaily(ctx, key, bars); err != nil {
			c.logger.WarnContext(ctx, "cache backend write failed",
				"backend", b.Name(), "key", key.String(), "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("backend %s: %w", b.Name(), err)
			}
		}
	}
	return firstErr
}

func (c *Chain) promoteMinute(ctx context.Context, key Key, bars []marketdata.MinuteBar, hitAt int) {
	for _, b := range c.backends[:hitAt] {
		if err := b.PutMinute(ctx, key, bars); err != nil {
			c.logger.WarnContext(ctx, "cache promotion failed",
				"backend", b.Name(), "key", key.String(), "error", err)
		}
	}
}

func (c *Chain) promoteDaily(ctx context.Context, key Key, bars []marketdata.DailyBar, hitAt int) {
	for _, b := range c.backends[:hitAt] {
		if err := b.PutDaily(ctx, key, bars); err != nil {
			c.logger.WarnContext(ctx, "cache promotion failed",
				"backend", b.Name(), "key", key.String(), "error", err)
		}
	}
}
