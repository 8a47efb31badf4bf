package almanac

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"almanac/internal/marketdata"
)

// rowAt builds a joined row with the given bar values; previous-day
// fields are filled with neutral data unless a test overrides them.
func rowAt(ts string, open, high, low, close float64) Row {
	t, err := time.Parse("2006-01-02 15:04", ts)
	if err != nil {
		panic(err)
	}
	bar := marketdata.MinuteBar{Time: t, Open: open, High: high, Low: low, Close: close, Volume: 100}
	return Row{
		Bar:  bar,
		Date: bar.Date(),
		Prev: PreviousDay{Open: 100, Close: 101, Volume: 1000, VolumeSMA10: 1000, ReturnPct: 1.0},
	}
}

func TestQuantile(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		q        float64
		expected float64
	}{
		{"median of odd count", []float64{3, 1, 2}, 0.5, 2},
		{"median interpolates even count", []float64{1, 2, 3, 4}, 0.5, 2.5},
		{"lower quantile interpolates", []float64{10, 20, 30, 40, 50}, 0.05, 12},
		{"zero quantile is minimum", []float64{5, 1, 9}, 0, 1},
		{"full quantile is maximum", []float64{5, 1, 9}, 1, 9},
		{"single value", []float64{7}, 0.25, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, Quantile(tt.values, tt.q), 1e-9)
		})
	}

	t.Run("empty input is NaN", func(t *testing.T) {
		assert.True(t, math.IsNaN(Quantile(nil, 0.5)))
	})

	t.Run("input is not mutated", func(t *testing.T) {
		values := []float64{3, 1, 2}
		Quantile(values, 0.5)
		assert.Equal(t, []float64{3, 1, 2}, values)
	})
}

func TestTrimExtremes(t *testing.T) {
	t.Run("never returns more rows than the input", func(t *testing.T) {
		rows := make([]Row, 0, 40)
		for i := 0; i < 40; i++ {
			close := 100.0 + float64(i%7)
			rows = append(rows, rowAt(fmt.Sprintf("2024-01-02 09:%02d", i), 100, close+1, 99, close))
		}

		trimmed := TrimExtremes(rows, DefaultTrimLower, DefaultTrimUpper)
		assert.LessOrEqual(t, len(trimmed), len(rows))
		assert.NotEmpty(t, trimmed)
	})

	t.Run("removes tail outliers on both measures", func(t *testing.T) {
		rows := make([]Row, 0, 21)
		for i := 0; i < 20; i++ {
			rows = append(rows, rowAt(fmt.Sprintf("2024-01-02 09:%02d", i), 100, 101, 99.5, 100.1))
		}
		// One row with an extreme move and an extreme range.
		rows = append(rows, rowAt("2024-01-02 09:59", 100, 150, 50, 149))

		trimmed := TrimExtremes(rows, DefaultTrimLower, DefaultTrimUpper)
		require.NotEmpty(t, trimmed)
		for _, r := range trimmed {
			assert.Less(t, r.PctChange(), 0.4)
		}
	})

	t.Run("falls back to the input when the trim would empty it", func(t *testing.T) {
		// Two wildly different rows: each is the other's outlier under
		// tight bounds, so an unguarded trim could drop both.
		rows := []Row{
			rowAt("2024-01-02 09:30", 100, 120, 99, 119),
			rowAt("2024-01-03 09:30", 100, 101, 80, 81),
		}

		trimmed := TrimExtremes(rows, 0.49, 0.51)
		assert.NotEmpty(t, trimmed)
	})

	t.Run("empty input stays empty", func(t *testing.T) {
		assert.Empty(t, TrimExtremes(nil, DefaultTrimLower, DefaultTrimUpper))
	})

	t.Run("zero-open rows never survive a trim", func(t *testing.T) {
		rows := []Row{
			rowAt("2024-01-02 09:30", 0, 101, 99, 100),
			rowAt("2024-01-02 09:31", 100, 101, 99, 100.2),
			rowAt("2024-01-02 09:32", 100, 101, 99, 100.15),
			rowAt("2024-01-02 09:33", 100, 101, 99, 100.1),
		}

		trimmed := TrimExtremes(rows, DefaultTrimLower, DefaultTrimUpper)
		require.NotEmpty(t, trimmed)
		for _, r := range trimmed {
			assert.NotZero(t, r.Bar.Open)
		}
	})
}
