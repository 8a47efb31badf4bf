package marketdata

import (
	"time"
)

// MinuteBar represents a single minute-resolution OHLCV bar for an
// instrument. Bars are immutable once loaded and unique per
// (instrument, timestamp).
type MinuteBar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// IsValid checks basic OHLC consistency of the bar
func (b MinuteBar) IsValid() bool {
	return !b.Time.IsZero() &&
		b.High >= b.Low && b.High >= b.Open && b.High >= b.Close &&
		b.Low <= b.Open && b.Low <= b.Close &&
		b.Volume >= 0
}

// Date returns the bar's calendar date truncated to midnight UTC
func (b MinuteBar) Date() time.Time {
	return Day(b.Time)
}

// PctChange returns the intraday percentage change (close-open)/open.
// The result is not finite when Open is zero; callers treat such rows
// as data-quality events and exclude them.
func (b MinuteBar) PctChange() float64 {
	return (b.Close - b.Open) / b.Open
}

// Range returns the bar's high-low range
func (b MinuteBar) Range() float64 {
	return b.High - b.Low
}

// DailyBar represents a single day's OHLCV summary for an instrument.
// High/low are not carried because nothing downstream consumes them.
type DailyBar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// IsValid checks basic consistency of the daily bar
func (d DailyBar) IsValid() bool {
	return !d.Date.IsZero() && d.Volume >= 0
}

// Day truncates a timestamp to midnight UTC. All date keys in the engine
// are normalized through this function so map lookups and calendar
// arithmetic agree regardless of the source timezone.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
