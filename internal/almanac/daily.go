package almanac

import (
	"context"
	"log/slog"
	"math"

	"almanac/internal/marketdata"
)

// BuildDailyMetrics derives per-day fields from raw daily bars: the
// trailing rolling average volume and the day's return percentage.
//
// The input must be ordered ascending by date; the output has the same
// length and order. The rolling mean uses a window of
// DefaultVolumeSMAWindow with an effective window of min(window, rows
// seen so far), so VolumeSMA10 is defined for every row including the
// first. A zero open makes ReturnPct NaN; the event is logged and the
// row survives, falling out of any later comparison that consults the
// flagged value.
func BuildDailyMetrics(ctx context.Context, bars []marketdata.DailyBar, logger *slog.Logger) []DerivedDaily {
	return BuildDailyMetricsWindow(ctx, bars, DefaultVolumeSMAWindow, logger)
}

// BuildDailyMetricsWindow is BuildDailyMetrics with a caller-chosen
// rolling window. Non-positive windows fall back to the default.
func BuildDailyMetricsWindow(ctx context.Context, bars []marketdata.DailyBar, window int, logger *slog.Logger) []DerivedDaily {
	if logger == nil {
		logger = slog.Default()
	}
	if window <= 0 {
		window = DefaultVolumeSMAWindow
	}

	derived := make([]DerivedDaily, len(bars))
	var runningSum float64

	for i, bar := range bars {
		runningSum += bar.Volume
		if i >= window {
			runningSum -= bars[i-window].Volume
		}
		effective := i + 1
		if effective > window {
			effective = window
		}

		returnPct := math.NaN()
		if bar.Open != 0 {
			returnPct = (bar.Close - bar.Open) / bar.Open * 100
		} else {
			logger.WarnContext(ctx, "daily bar has zero open, flagging return as undefined",
				"date", bar.Date.Format("2006-01-02"),
			)
		}

		derived[i] = DerivedDaily{
			Date:        marketdata.Day(bar.Date),
			Open:        bar.Open,
			Close:       bar.Close,
			Volume:      bar.Volume,
			VolumeSMA10: runningSum / float64(effective),
			ReturnPct:   returnPct,
		}
	}

	return derived
}
