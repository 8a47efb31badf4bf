package almanac

import (
	"context"
	"log/slog"
	"time"

	"almanac/internal/calendar"
	"almanac/internal/marketdata"
)

// JoinPreviousDay aligns each minute bar with the derived metrics of its
// previous trading day and returns the joined rows.
//
// For each minute bar the calendar resolves the previous trading day of
// the bar's date; the derived daily metrics at that date become the
// row's PreviousDay view. Bars whose previous trading day has no
// matching daily row (the first date of a loaded range, or a gap in the
// daily series) are dropped here, never padded with zeros.
func JoinPreviousDay(ctx context.Context, minutes []marketdata.MinuteBar, daily []DerivedDaily, cal calendar.TradingCalendar, logger *slog.Logger) []Row {
	if logger == nil {
		logger = slog.Default()
	}

	byDate := make(map[time.Time]DerivedDaily, len(daily))
	for _, d := range daily {
		byDate[d.Date] = d
	}

	// Each calendar date resolves its previous trading day once.
	prevByDate := make(map[time.Time]time.Time)

	rows := make([]Row, 0, len(minutes))
	dropped := 0
	for _, bar := range minutes {
		date := bar.Date()
		prevDate, ok := prevByDate[date]
		if !ok {
			prevDate = cal.PreviousTradingDay(date)
			prevByDate[date] = prevDate
		}

		dd, ok := byDate[prevDate]
		if !ok {
			dropped++
			continue
		}

		rows = append(rows, Row{
			Bar:  bar,
			Date: date,
			Prev: PreviousDay{
				Date:        dd.Date,
				Open:        dd.Open,
				Close:       dd.Close,
				Volume:      dd.Volume,
				VolumeSMA10: dd.VolumeSMA10,
				ReturnPct:   dd.ReturnPct,
			},
		})
	}

	if dropped > 0 {
		logger.DebugContext(ctx, "dropped minute bars without previous-day metrics",
			"dropped", dropped,
			"joined", len(rows),
		)
	}

	return rows
}
