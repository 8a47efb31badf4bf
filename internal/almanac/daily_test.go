package almanac

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"almanac/internal/marketdata"
)

func dailyBar(date string, open, close, volume float64) marketdata.DailyBar {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	return marketdata.DailyBar{Date: d, Open: open, Close: close, Volume: volume}
}

func TestBuildDailyMetrics(t *testing.T) {
	ctx := context.Background()

	t.Run("rolling volume uses effective window at range start", func(t *testing.T) {
		bars := []marketdata.DailyBar{
			dailyBar("2024-01-02", 100, 102, 1000),
			dailyBar("2024-01-03", 102, 101, 3000),
			dailyBar("2024-01-04", 101, 103, 2000),
		}

		derived := BuildDailyMetrics(ctx, bars, nil)
		require.Len(t, derived, 3)

		assert.InDelta(t, 1000.0, derived[0].VolumeSMA10, 1e-9)
		assert.InDelta(t, 2000.0, derived[1].VolumeSMA10, 1e-9)
		assert.InDelta(t, 2000.0, derived[2].VolumeSMA10, 1e-9)
	})

	t.Run("rolling volume drops observations beyond the window", func(t *testing.T) {
		bars := make([]marketdata.DailyBar, 12)
		for i := range bars {
			d := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
			bars[i] = marketdata.DailyBar{Date: d, Open: 100, Close: 100, Volume: float64(i + 1)}
		}

		derived := BuildDailyMetrics(ctx, bars, nil)
		require.Len(t, derived, 12)

		// Row 11 (index 10) averages volumes 2..11, row 12 averages 3..12.
		assert.InDelta(t, 6.5, derived[10].VolumeSMA10, 1e-9)
		assert.InDelta(t, 7.5, derived[11].VolumeSMA10, 1e-9)
	})

	t.Run("volume average is defined for every row", func(t *testing.T) {
		bars := []marketdata.DailyBar{
			dailyBar("2024-01-02", 100, 102, 0),
			dailyBar("2024-01-03", 102, 101, 0),
		}

		derived := BuildDailyMetrics(ctx, bars, nil)
		for _, d := range derived {
			assert.False(t, math.IsNaN(d.VolumeSMA10))
		}
	})

	t.Run("return percentage", func(t *testing.T) {
		bars := []marketdata.DailyBar{dailyBar("2024-01-02", 100, 102, 1000)}
		derived := BuildDailyMetrics(ctx, bars, nil)
		assert.InDelta(t, 2.0, derived[0].ReturnPct, 1e-9)
	})

	t.Run("zero open flags return as NaN instead of raising", func(t *testing.T) {
		bars := []marketdata.DailyBar{
			dailyBar("2024-01-02", 0, 102, 1000),
			dailyBar("2024-01-03", 102, 101, 1000),
		}

		derived := BuildDailyMetrics(ctx, bars, nil)
		require.Len(t, derived, 2)
		assert.True(t, math.IsNaN(derived[0].ReturnPct))
		assert.False(t, math.IsNaN(derived[1].ReturnPct))
	})

	t.Run("output preserves input length and order", func(t *testing.T) {
		bars := []marketdata.DailyBar{
			dailyBar("2024-01-02", 100, 102, 1000),
			dailyBar("2024-01-03", 102, 101, 2000),
		}

		derived := BuildDailyMetrics(ctx, bars, nil)
		require.Len(t, derived, len(bars))
		assert.True(t, derived[0].Date.Before(derived[1].Date))
	})
}
