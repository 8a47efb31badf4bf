package almanac

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"almanac/internal/calendar"
	"almanac/internal/events"
	"almanac/internal/marketdata"
)

func floatPtr(v float64) *float64 { return &v }

// weekRows builds one row per weekday Monday..Friday of 2024-01-08.
func weekRows(t *testing.T) []Row {
	t.Helper()
	rows := make([]Row, 0, 5)
	for i := 0; i < 5; i++ {
		rows = append(rows, rowAt(fmt.Sprintf("2024-01-%02d 09:30", 8+i), 100, 101, 99, 100.5))
	}
	return rows
}

func TestParseSpec(t *testing.T) {
	t.Run("unknown tokens are ignored", func(t *testing.T) {
		filters := ParseSpec(Spec{Tokens: []string{"bogus", "also_not_a_filter"}}, nil)
		assert.Empty(t, filters)
	})

	t.Run("threshold-dependent tokens without thresholds are no-ops", func(t *testing.T) {
		spec := Spec{Tokens: []string{TokenPrevPctPos, TokenPrevPctNeg, TokenRelVolGT, TokenRelVolLT}}
		assert.Empty(t, ParseSpec(spec, nil))
	})

	t.Run("time comparison requires both time points", func(t *testing.T) {
		spec := Spec{
			Tokens: []string{TokenTimeAGTTimeB},
			TimeA:  &TimePoint{Hour: 9, Minute: 30},
		}
		assert.Empty(t, ParseSpec(spec, nil))
	})

	t.Run("trim is always the last filter", func(t *testing.T) {
		spec := Spec{
			Tokens:       []string{TokenTrimExtremes, TokenPrevPos, "monday"},
			PctThreshold: floatPtr(1.0),
		}
		filters := ParseSpec(spec, nil)
		require.NotEmpty(t, filters)
		assert.Equal(t, TokenTrimExtremes, filters[len(filters)-1].Name())
		assert.Equal(t, "weekday", filters[0].Name())
	})

	t.Run("both direction tokens compose as AND", func(t *testing.T) {
		spec := Spec{Tokens: []string{TokenPrevPos, TokenPrevNeg}}
		filters := ParseSpec(spec, nil)
		require.Len(t, filters, 2)

		rows := weekRows(t)
		out, _ := ApplyFilters(context.Background(), rows, filters, nil)
		assert.Empty(t, out)
	})
}

func TestWeekdayFilter(t *testing.T) {
	rows := weekRows(t)

	t.Run("strict subset restricts rows", func(t *testing.T) {
		f := WeekdayFilter{Days: map[time.Weekday]struct{}{time.Monday: {}, time.Friday: {}}}
		out := f.Apply(rows)
		require.Len(t, out, 2)
		assert.Equal(t, time.Monday, out[0].Date.Weekday())
		assert.Equal(t, time.Friday, out[1].Date.Weekday())
	})

	t.Run("empty set and full set are identical to no filter", func(t *testing.T) {
		empty := WeekdayFilter{Days: map[time.Weekday]struct{}{}}
		full := WeekdayFilter{Days: map[time.Weekday]struct{}{
			time.Monday: {}, time.Tuesday: {}, time.Wednesday: {}, time.Thursday: {}, time.Friday: {},
		}}

		assert.Len(t, empty.Apply(rows), len(rows))
		assert.Len(t, full.Apply(rows), len(rows))
	})
}

func TestPrevDirectionFilters(t *testing.T) {
	up := rowAt("2024-01-09 09:30", 100, 101, 99, 100.5)
	up.Prev = PreviousDay{Open: 100, Close: 102, Volume: 1000, VolumeSMA10: 1000, ReturnPct: 2}
	down := rowAt("2024-01-10 09:30", 100, 101, 99, 100.5)
	down.Prev = PreviousDay{Open: 102, Close: 101, Volume: 1000, VolumeSMA10: 1000, ReturnPct: -0.98}
	flat := rowAt("2024-01-11 09:30", 100, 101, 99, 100.5)
	flat.Prev = PreviousDay{Open: 100, Close: 100, Volume: 1000, VolumeSMA10: 1000, ReturnPct: 0}

	rows := []Row{up, down, flat}
	pos := PrevDirectionFilter{Positive: true}.Apply(rows)
	neg := PrevDirectionFilter{Positive: false}.Apply(rows)

	t.Run("masks are disjoint", func(t *testing.T) {
		require.Len(t, pos, 1)
		require.Len(t, neg, 1)
		assert.NotEqual(t, pos[0].Date, neg[0].Date)
	})

	t.Run("union with flat days covers the joined set", func(t *testing.T) {
		flatCount := 0
		for _, r := range rows {
			if r.Prev.Close == r.Prev.Open {
				flatCount++
			}
		}
		assert.Equal(t, len(rows), len(pos)+len(neg)+flatCount)
	})
}

func TestPrevPctFilter(t *testing.T) {
	row := func(retPct float64) Row {
		r := rowAt("2024-01-09 09:30", 100, 101, 99, 100.5)
		r.Prev.ReturnPct = retPct
		return r
	}
	rows := []Row{row(2.5), row(1.0), row(0.2), row(-1.5)}

	t.Run("positive keeps returns at or above threshold", func(t *testing.T) {
		out := PrevPctFilter{Positive: true, Threshold: 1.0}.Apply(rows)
		assert.Len(t, out, 2)
	})

	t.Run("negative keeps returns at or below negated threshold", func(t *testing.T) {
		out := PrevPctFilter{Positive: false, Threshold: 1.0}.Apply(rows)
		require.Len(t, out, 1)
		assert.InDelta(t, -1.5, out[0].Prev.ReturnPct, 1e-9)
	})
}

func TestRelVolFilter(t *testing.T) {
	row := func(volume, sma float64) Row {
		r := rowAt("2024-01-09 09:30", 100, 101, 99, 100.5)
		r.Prev.Volume = volume
		r.Prev.VolumeSMA10 = sma
		return r
	}

	high := row(3000, 1000) // relvol 3.0
	low := row(500, 1000)   // relvol 0.5
	broken := row(1000, 0)  // undefined relvol
	rows := []Row{high, low, broken}

	t.Run("greater-than keeps high relative volume", func(t *testing.T) {
		out := RelVolFilter{Op: GreaterThan, Threshold: 1.5}.Apply(rows)
		require.Len(t, out, 1)
		assert.InDelta(t, 3000.0, out[0].Prev.Volume, 1e-9)
	})

	t.Run("less-than keeps low relative volume", func(t *testing.T) {
		out := RelVolFilter{Op: LessThan, Threshold: 1.5}.Apply(rows)
		require.Len(t, out, 1)
		assert.InDelta(t, 500.0, out[0].Prev.Volume, 1e-9)
	})

	t.Run("zero trailing average is excluded from both directions", func(t *testing.T) {
		gt := RelVolFilter{Op: GreaterThan, Threshold: -1000}.Apply([]Row{broken})
		lt := RelVolFilter{Op: LessThan, Threshold: 1000}.Apply([]Row{broken})
		assert.Empty(t, gt)
		assert.Empty(t, lt)
	})
}

func TestEventFilters(t *testing.T) {
	cal := events.NewSetCalendar(map[events.Type][]string{
		events.CPI:  {"2024-01-09"},
		events.FOMC: {"2024-01-10"},
	})

	cpiDay := rowAt("2024-01-09 09:30", 100, 101, 99, 100.5)
	fomcDay := rowAt("2024-01-10 09:30", 100, 101, 99, 100.5)
	quietDay := rowAt("2024-01-11 09:30", 100, 101, 99, 100.5)
	rows := []Row{cpiDay, fomcDay, quietDay}

	t.Run("event filter restricts to release dates", func(t *testing.T) {
		out := EventFilter{Type: events.CPI, Calendar: cal}.Apply(rows)
		require.Len(t, out, 1)
		assert.Equal(t, cpiDay.Date, out[0].Date)
	})

	t.Run("major event filter unions all types", func(t *testing.T) {
		out := MajorEventFilter{Calendar: cal}.Apply(rows)
		assert.Len(t, out, 2)
	})
}

func TestTimeCompareFilter(t *testing.T) {
	// Two dates: on the first the 09:30 close exceeds the 10:30 close,
	// on the second it does not. A third date lacks the 10:30 bar.
	rows := []Row{
		rowAt("2024-01-09 09:30", 100, 101, 99, 105),
		rowAt("2024-01-09 10:30", 100, 101, 99, 101),
		rowAt("2024-01-10 09:30", 100, 101, 99, 100),
		rowAt("2024-01-10 10:30", 100, 101, 99, 104),
		rowAt("2024-01-11 09:30", 100, 101, 99, 102),
	}

	a := TimePoint{Hour: 9, Minute: 30}
	b := TimePoint{Hour: 10, Minute: 30}

	t.Run("greater-than keeps dates where A exceeds B", func(t *testing.T) {
		out := TimeCompareFilter{Op: GreaterThan, A: a, B: b}.Apply(rows)
		require.Len(t, out, 2)
		for _, r := range out {
			assert.Equal(t, 9, r.Date.Day())
		}
	})

	t.Run("less-than keeps dates where A is below B", func(t *testing.T) {
		out := TimeCompareFilter{Op: LessThan, A: a, B: b}.Apply(rows)
		require.Len(t, out, 2)
		for _, r := range out {
			assert.Equal(t, 10, r.Date.Day())
		}
	})

	t.Run("dates missing a reference bar are excluded", func(t *testing.T) {
		out := TimeCompareFilter{Op: GreaterThan, A: a, B: b}.Apply(rows)
		for _, r := range out {
			assert.NotEqual(t, 11, r.Date.Day())
		}
	})
}

// TestPrevDirectionScenario walks the full join-then-filter path for a
// three-day window: Monday 100->102, Tuesday 102->101, Wednesday
// 101->103, one minute bar per day at 09:30. With prev_pos only
// Tuesday's bar survives: Monday has no previous day, Tuesday's
// previous day closed up, Wednesday's closed down.
func TestPrevDirectionScenario(t *testing.T) {
	ctx := context.Background()
	cal := calendar.NewWeekendCalendar(nil)

	daily := []marketdata.DailyBar{
		dailyBar("2024-01-08", 100, 102, 1000), // Monday
		dailyBar("2024-01-09", 102, 101, 1100), // Tuesday
		dailyBar("2024-01-10", 101, 103, 1200), // Wednesday
	}

	minute := func(ts string, close float64) marketdata.MinuteBar {
		parsed, err := time.Parse("2006-01-02 15:04", ts)
		require.NoError(t, err)
		return marketdata.MinuteBar{Time: parsed, Open: close - 0.5, High: close + 1, Low: close - 1, Close: close, Volume: 10}
	}
	minutes := []marketdata.MinuteBar{
		minute("2024-01-08 09:30", 100),
		minute("2024-01-09 09:30", 101),
		minute("2024-01-10 09:30", 103),
	}

	derived := BuildDailyMetrics(ctx, daily, nil)
	rows := JoinPreviousDay(ctx, minutes, derived, cal, nil)

	// Monday is dropped at the join for lack of a previous day.
	require.Len(t, rows, 2)

	filters := ParseSpec(Spec{Tokens: []string{TokenPrevPos}}, nil)
	out, stages := ApplyFilters(ctx, rows, filters, nil)

	require.Len(t, out, 1)
	assert.Equal(t, 9, out[0].Date.Day())
	assert.Equal(t, 30, out[0].Bar.Time.Minute())

	require.Len(t, stages, 1)
	assert.Equal(t, TokenPrevPos, stages[0].Filter)
	assert.Equal(t, 1, stages[0].Rows)
}

// TestWeekdayNoOpProperty checks that the full weekday set and the
// empty set both leave the row count untouched, matching applying no
// weekday filter at all.
func TestWeekdayNoOpProperty(t *testing.T) {
	rows := weekRows(t)
	base := len(rows)

	specs := []Spec{
		{Tokens: nil},
		{Tokens: []string{"monday", "tuesday", "wednesday", "thursday", "friday"}},
	}

	for i, spec := range specs {
		out, _ := ApplyFilters(context.Background(), rows, ParseSpec(spec, nil), nil)
		assert.Len(t, out, base, "spec %d", i)
	}
}
