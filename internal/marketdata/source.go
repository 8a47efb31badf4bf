package marketdata

import (
	"context"
	"sort"
	"time"
)

// BarSource loads bar data for one instrument over an inclusive calendar
// date range. Implementations must return bars ordered ascending by
// timestamp/date and must not fabricate rows for missing periods.
//
// Sources are handles constructed and passed in explicitly; there is no
// process-wide instance.
type BarSource interface {
	LoadMinuteBars(ctx context.Context, symbol string, start, end time.Time) ([]MinuteBar, error)
	LoadDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]DailyBar, error)
}

// MemorySource is a BarSource backed by in-memory slices. It is used by
// tests and by callers that already hold the data.
type MemorySource struct {
	minute map[string][]MinuteBar
	daily  map[string][]DailyBar
}

// NewMemorySource creates a MemorySource. The provided slices are sorted
// in place by timestamp/date.
func NewMemorySource() *MemorySource {
	return &MemorySource{
		minute: make(map[string][]MinuteBar),
		daily:  make(map[string][]DailyBar),
	}
}

// AddMinuteBars registers minute bars for a symbol
func (s *MemorySource) AddMinuteBars(symbol string, bars []MinuteBar) {
	s.minute[symbol] = append(s.minute[symbol], bars...)
	sort.Slice(s.minute[symbol], func(i, j int) bool {
		return s.minute[symbol][i].Time.Before(s.minute[symbol][j].Time)
	})
}

// AddDailyBars registers daily bars for a symbol
func (s *MemorySource) AddDailyBars(symbol string, bars []DailyBar) {
	s.daily[symbol] = append(s.daily[symbol], bars...)
	sort.Slice(s.daily[symbol], func(i, j int) bool {
		return s.daily[symbol][i].Date.Before(s.daily[symbol][j].Date)
	})
}

// LoadMinuteBars returns the symbol's minute bars whose date falls inside
// [start, end], inclusive of the full calendar day on both ends.
func (s *MemorySource) LoadMinuteBars(_ context.Context, symbol string, start, end time.Time) ([]MinuteBar, error) {
	startDay, endDay := Day(start), Day(end)
	var out []MinuteBar
	for _, b := range s.minute[symbol] {
		d := b.Date()
		if d.Before(startDay) || d.After(endDay) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

// LoadDailyBars returns the symbol's daily bars inside [start, end] inclusive
func (s *MemorySource) LoadDailyBars(_ context.Context, symbol string, start, end time.Time) ([]DailyBar, error) {
	startDay, endDay := Day(start), Day(end)
	var out []DailyBar
	for _, b := range s.daily[symbol] {
		d := Day(b.Date)
		if d.Before(startDay) || d.After(endDay) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}
