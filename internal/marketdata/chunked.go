package marketdata

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
)

// ChunkedLoader wraps a BarSource and fetches large date ranges in
// month-sized chunks to bound the size of any single upstream request.
//
// Each daily chunk's start is extended backwards by OverlapDays calendar
// days so that the first date of every chunk still has previous-trading-day
// context after the chunks are merged; the overlap region is deduplicated
// on merge. Five calendar days always span at least one trading day, even
// across a weekend adjoining a holiday run.
type ChunkedLoader struct {
	source      BarSource
	chunkMonths int
	overlapDays int
	concurrency int
	logger      *slog.Logger
}

const (
	defaultChunkMonths = 1
	defaultOverlapDays = 5
	defaultConcurrency = 4
)

// NewChunkedLoader creates a ChunkedLoader over the given source
func NewChunkedLoader(source BarSource, logger *slog.Logger) *ChunkedLoader {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChunkedLoader{
		source:      source,
		chunkMonths: defaultChunkMonths,
		overlapDays: defaultOverlapDays,
		concurrency: defaultConcurrency,
		logger:      logger,
	}
}

// SetChunking overrides the chunk size and overlap. Values below 1 keep
// the current setting.
func (l *ChunkedLoader) SetChunking(months, overlapDays int) {
	if months >= 1 {
		l.chunkMonths = months
	}
	if overlapDays >= 1 {
		l.overlapDays = overlapDays
	}
}

// SetConcurrency overrides the parallel chunk fetch limit. Values below
// 1 keep the current setting.
func (l *ChunkedLoader) SetConcurrency(n int) {
	if n >= 1 {
		l.concurrency = n
	}
}

// chunk is one inclusive sub-range of the requested window
type chunk struct {
	start, end time.Time
}

// splitRange cuts [start, end] into chunkMonths-sized inclusive sub-ranges
func (l *ChunkedLoader) splitRange(start, end time.Time) []chunk {
	start, end = Day(start), Day(end)
	var chunks []chunk
	for cur := start; !cur.After(end); {
		next := cur.AddDate(0, l.chunkMonths, 0)
		chunkEnd := next.AddDate(0, 0, -1)
		if chunkEnd.After(end) {
			chunkEnd = end
		}
		chunks = append(chunks, chunk{start: cur, end: chunkEnd})
		cur = next
	}
	return chunks
}

// LoadMinuteBars loads minute bars chunk by chunk and merges the results
func (l *ChunkedLoader) LoadMinuteBars(ctx context.Context, symbol string, start, end time.Time) ([]MinuteBar, error) {
	chunks := l.splitRange(start, end)
	if len(chunks) <= 1 {
		return l.source.LoadMinuteBars(ctx, symbol, start, end)
	}

	l.logger.DebugContext(ctx, "loading minute bars in chunks",
		"symbol", symbol,
		"chunks", len(chunks),
	)

	results := make([][]MinuteBar, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)

	for i, c := range chunks {
		g.Go(func() error {
			bars, err := l.source.LoadMinuteBars(gctx, symbol, c.start, c.end)
			if err != nil {
				return fmt.Errorf("load minute chunk %s..%s: %w",
					c.start.Format("2006-01-02"), c.end.Format("2006-01-02"), err)
			}
			results[i] = bars
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var merged []MinuteBar
	seen := make(map[time.Time]struct{})
	for _, bars := range results {
		for _, b := range bars {
			if _, dup := seen[b.Time]; dup {
				continue
			}
			seen[b.Time] = struct{}{}
			merged = append(merged, b)
		}
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Time.Before(merged[j].Time) })
	return merged, nil
}

// LoadDailyBars loads daily bars chunk by chunk, extending each chunk's
// start by the overlap so chunk-boundary dates keep previous-day context,
// then deduplicates the merged result.
func (l *ChunkedLoader) LoadDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]DailyBar, error) {
	chunks := l.splitRange(start, end)
	if len(chunks) <= 1 {
		return l.source.LoadDailyBars(ctx, symbol, start, end)
	}

	l.logger.DebugContext(ctx, "loading daily bars in chunks",
		"symbol", symbol,
		"chunks", len(chunks),
		"overlap_days", l.overlapDays,
	)

	results := make([][]DailyBar, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)

	for i, c := range chunks {
		overlapStart := c.start.AddDate(0, 0, -l.overlapDays)
		if i == 0 {
			overlapStart = c.start
		}
		g.Go(func() error {
			bars, err := l.source.LoadDailyBars(gctx, symbol, overlapStart, c.end)
			if err != nil {
				return fmt.Errorf("load daily chunk %s..%s: %w",
					overlapStart.Format("2006-01-02"), c.end.Format("2006-01-02"), err)
			}
			results[i] = bars
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var merged []DailyBar
	seen := make(map[time.Time]struct{})
	for _, bars := range results {
		for _, b := range bars {
			key := Day(b.Date)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, b)
		}
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Date.Before(merged[j].Date) })
	return merged, nil
}
