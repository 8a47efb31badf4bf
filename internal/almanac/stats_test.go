package almanac

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// barRow builds a row whose intraday percentage change and range equal
// the given values exactly (open fixed at 100).
func barRow(ts string, pctChange, rng float64) Row {
	open := 100.0
	close := open + pctChange*open
	high := close + rng/2
	low := close - rng/2
	return rowAt(ts, open, high, low, close)
}

func TestComputeHourlyStats(t *testing.T) {
	t.Run("two-hour scenario", func(t *testing.T) {
		rows := []Row{
			barRow("2024-01-08 09:15", 0.01, 1.0),
			barRow("2024-01-08 09:45", 0.03, 2.0),
			barRow("2024-01-08 10:30", 0.02, 1.5),
		}

		stats := ComputeHourlyStats(rows, DefaultTrimPct)
		require.Len(t, stats, 2)

		nine, ten := stats[0], stats[1]
		require.Equal(t, 9, nine.Bucket)
		require.Equal(t, 10, ten.Bucket)

		assert.Equal(t, 2, nine.Count)
		assert.InDelta(t, 0.02, nine.PctChange.Mean, 1e-9)
		assert.InDelta(t, 0.0002, nine.PctChange.Variance, 1e-12)
		assert.InDelta(t, 1.5, nine.Range.Mean, 1e-9)

		assert.Equal(t, 1, ten.Count)
		assert.InDelta(t, 0.02, ten.PctChange.Mean, 1e-9)
		assert.True(t, math.IsNaN(ten.PctChange.Variance), "single-row bucket variance must stay undefined")
	})

	t.Run("empty hours are holes, not zeros", func(t *testing.T) {
		rows := []Row{barRow("2024-01-08 09:15", 0.01, 1.0)}
		stats := ComputeHourlyStats(rows, DefaultTrimPct)
		require.Len(t, stats, 1)
		assert.Equal(t, 9, stats[0].Bucket)
	})

	t.Run("no rows produce no buckets", func(t *testing.T) {
		assert.Empty(t, ComputeHourlyStats(nil, DefaultTrimPct))
	})

	t.Run("zero-open bars contribute range but not pct change", func(t *testing.T) {
		rows := []Row{
			rowAt("2024-01-08 09:15", 0, 102, 98, 100),
			barRow("2024-01-08 09:45", 0.02, 2.0),
		}

		stats := ComputeHourlyStats(rows, DefaultTrimPct)
		require.Len(t, stats, 1)
		assert.Equal(t, 2, stats[0].Count)
		assert.InDelta(t, 0.02, stats[0].PctChange.Mean, 1e-9)
		assert.True(t, math.IsNaN(stats[0].PctChange.Variance))
		assert.InDelta(t, 3.0, stats[0].Range.Mean, 1e-9)
	})
}

func TestComputeMinuteStats(t *testing.T) {
	rows := []Row{
		barRow("2024-01-08 09:30", 0.01, 1.0),
		barRow("2024-01-09 09:30", 0.03, 2.0),
		barRow("2024-01-08 09:31", 0.05, 3.0),
		barRow("2024-01-08 10:30", 0.99, 9.0), // outside the chosen hour
	}

	stats := ComputeMinuteStats(rows, 9, DefaultTrimPct)
	require.Len(t, stats, 2)

	assert.Equal(t, 30, stats[0].Bucket)
	assert.Equal(t, 2, stats[0].Count)
	assert.InDelta(t, 0.02, stats[0].PctChange.Mean, 1e-9)

	assert.Equal(t, 31, stats[1].Bucket)
	assert.Equal(t, 1, stats[1].Count)

	t.Run("hour without rows yields no buckets", func(t *testing.T) {
		assert.Empty(t, ComputeMinuteStats(rows, 14, DefaultTrimPct))
	})
}

func TestComputeWeekdayStats(t *testing.T) {
	rows := []Row{
		barRow("2024-01-08 09:30", 0.01, 1.0), // Monday
		barRow("2024-01-09 09:30", 0.02, 1.0), // Tuesday
		barRow("2024-01-09 10:30", 0.04, 1.0), // Tuesday
	}

	stats := ComputeWeekdayStats(rows, DefaultTrimPct)
	require.Len(t, stats, 2)

	assert.Equal(t, 0, stats[0].Bucket)
	assert.Equal(t, "Monday", WeekdayLabel(stats[0].Bucket))
	assert.Equal(t, 1, stats[1].Bucket)
	assert.Equal(t, 2, stats[1].Count)
	assert.InDelta(t, 0.03, stats[1].PctChange.Mean, 1e-9)
}

func TestComputeMonthlyStats(t *testing.T) {
	rows := []Row{
		barRow("2024-01-08 09:30", 0.01, 1.0),
		barRow("2024-02-08 09:30", 0.02, 1.0),
	}

	stats := ComputeMonthlyStats(rows, DefaultTrimPct)
	require.Len(t, stats, 2)
	assert.Equal(t, 1, stats[0].Bucket)
	assert.Equal(t, "January", MonthLabel(stats[0].Bucket))
	assert.Equal(t, 2, stats[1].Bucket)
	assert.Equal(t, "February", MonthLabel(stats[1].Bucket))
}

func TestMeasureStats(t *testing.T) {
	t.Run("small buckets fall back to the mean for robust measures", func(t *testing.T) {
		ms := measureStats([]float64{1, 2, 3}, DefaultTrimPct)
		assert.InDelta(t, 2.0, ms.Mean, 1e-9)
		assert.InDelta(t, 2.0, ms.TrimmedMean, 1e-9)
		assert.InDelta(t, 2.0, ms.Outlier, 1e-9)
		assert.InDelta(t, 2.0, ms.Median, 1e-9)
		assert.InDelta(t, 1.0, ms.Variance, 1e-9)
	})

	t.Run("large buckets trim the tails", func(t *testing.T) {
		values := make([]float64, 0, 21)
		for i := 0; i < 20; i++ {
			values = append(values, 1.0)
		}
		values = append(values, 1000.0)

		ms := measureStats(values, DefaultTrimPct)
		assert.Greater(t, ms.Mean, 1.0)
		assert.InDelta(t, 1.0, ms.TrimmedMean, 1e-9)
	})

	t.Run("mode prefers the most frequent value", func(t *testing.T) {
		ms := measureStats([]float64{1, 2, 2, 3}, DefaultTrimPct)
		assert.InDelta(t, 2.0, ms.Mode, 1e-9)
	})

	t.Run("all-unique values fall back to the median", func(t *testing.T) {
		ms := measureStats([]float64{1, 2, 3, 4}, DefaultTrimPct)
		assert.InDelta(t, 2.5, ms.Mode, 1e-9)
	})
}
