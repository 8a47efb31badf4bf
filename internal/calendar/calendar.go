// Package calendar provides the trading-calendar contract the almanac
// engine joins minute bars against. The engine never computes trading
// days itself; a TradingCalendar is always injected.
package calendar

import (
	"time"
)

// TradingCalendar answers trading-day questions for one exchange.
// Holiday awareness is a quality property of the implementation; the
// engine only relies on weekends being skipped.
type TradingCalendar interface {
	// PreviousTradingDay returns the closest trading day strictly before d.
	PreviousTradingDay(d time.Time) time.Time
	// IsTradingDay reports whether d is a regular session day.
	IsTradingDay(d time.Time) bool
}

// WeekendCalendar is a TradingCalendar that skips Saturdays, Sundays and
// an optional set of exchange holidays. Dates are compared at midnight UTC.
type WeekendCalendar struct {
	holidays map[string]struct{}
}

// NewWeekendCalendar creates a calendar with the given holiday dates,
// each formatted as an ISO date string (2006-01-02).
func NewWeekendCalendar(holidays []string) *WeekendCalendar {
	set := make(map[string]struct{}, len(holidays))
	for _, h := range holidays {
		set[h] = struct{}{}
	}
	return &WeekendCalendar{holidays: set}
}

// IsTradingDay reports whether d falls on a weekday that is not a holiday
func (c *WeekendCalendar) IsTradingDay(d time.Time) bool {
	d = day(d)
	if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	_, holiday := c.holidays[d.Format("2006-01-02")]
	return !holiday
}

// PreviousTradingDay steps backwards from d until it lands on a trading day
func (c *WeekendCalendar) PreviousTradingDay(d time.Time) time.Time {
	cur := day(d).AddDate(0, 0, -1)
	for !c.IsTradingDay(cur) {
		cur = cur.AddDate(0, 0, -1)
	}
	return cur
}

func day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
