package barcache

import (
	"context"
	"log/slog"
	"time"

	"almanac/internal/marketdata"
)

// CachingSource wraps a BarSource with a cache chain. Lookups are
// served from the chain when possible; misses fall through to the
// underlying source and the result is written back to every backend.
// Source errors are never cached.
type CachingSource struct {
	source marketdata.BarSource
	chain  *Chain
	logger *slog.Logger
}

// NewCachingSource wraps source with the given chain. The logger
// defaults to slog.Default() when nil.
func NewCachingSource(source marketdata.BarSource, chain *Chain, logger *slog.Logger) *CachingSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachingSource{source: source, chain: chain, logger: logger}
}

// LoadMinuteBars implements marketdata.BarSource.
func (s *CachingSource) LoadMinuteBars(ctx context.Context, symbol string, start, end time.Time) ([]marketdata.MinuteBar, error) {
	key := Key{Symbol: symbol, Start: start, End: end}

	bars, ok, results := s.chain.GetMinute(ctx, key)
	if ok {
		s.logger.DebugContext(ctx, "minute bars served from cache",
			"key", key.String(), "bars", len(bars), "tiers_consulted", len(results))
		return bars, nil
	}

	bars, err := s.source.LoadMinuteBars(ctx, symbol, start, end)
	if err != nil {
		return nil, err
	}
	if err := s.chain.PutMinute(ctx, key, bars); err != nil {
		s.logger.WarnContext(ctx, "minute bar cache write failed",
			"key", key.String(), "error", err)
	}
	return bars, nil
}

// LoadDailyBars implements marketdata.BarSource.
func (s *CachingSource) LoadDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]marketdata.DailyBar, error) {
	key := Key{Symbol: symbol, Start: start, End: end}

	bars, ok, results := s.chain.GetDaily(ctx, key)
	if ok {
		s.logger.DebugContext(ctx, "daily bars served from cache",
			"key", key.String(), "bars", len(bars), "tiers_consulted", len(results))
		return bars, nil
	}

	bars, err := s.source.LoadDailyBars(ctx, symbol, start, end)
	if err != nil {
		return nil, err
	}
	if err := s.chain.PutDaily(ctx, key, bars); err != nil {
		s.logger.WarnContext(ctx, "daily bar cache write failed",
			"key", key.String(), "error", err)
	}
	return bars, nil
}
