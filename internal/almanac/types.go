package almanac

import (
	"math"
	"time"

	"almanac/internal/marketdata"
)

// DerivedDaily extends a raw daily bar with the per-day fields the
// filter composer consumes: the trailing 10-day rolling average volume
// and the day's open-to-close return percentage.
type DerivedDaily struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`

	// VolumeSMA10 is the rolling mean of volume over the trailing 10
	// trading days including the current one, computed with an effective
	// window of min(10, rows seen so far). It is defined for every row.
	VolumeSMA10 float64 `json:"volume_sma_10"`

	// ReturnPct is (close-open)/open*100. NaN when open is zero; such
	// rows are data-quality events, logged at build time and excluded
	// from any comparison that consults them.
	ReturnPct float64 `json:"day_return_pct"`
}

// PreviousDay is the view of the prior trading day's derived metrics
// attached to each minute row by the join.
type PreviousDay struct {
	Date        time.Time `json:"date"`
	Open        float64   `json:"p_open"`
	Close       float64   `json:"p_close"`
	Volume      float64   `json:"p_volume"`
	VolumeSMA10 float64   `json:"p_volume_sma_10"`
	ReturnPct   float64   `json:"p_return_pct"`
}

// RelVol returns the previous day's volume divided by its trailing
// average. NaN when the average is zero, so the row falls out of both
// relative-volume comparisons.
func (p PreviousDay) RelVol() float64 {
	if p.VolumeSMA10 == 0 {
		return math.NaN()
	}
	return p.Volume / p.VolumeSMA10
}

// Row is one minute bar joined with its previous-trading-day view.
// Rows whose date had no previous-day metrics never become Rows; the
// join drops them.
type Row struct {
	Bar  marketdata.MinuteBar `json:"bar"`
	Date time.Time            `json:"date"`
	Prev PreviousDay          `json:"prev"`
}

// PctChange returns the row's intraday percentage change (close-open)/open
func (r Row) PctChange() float64 {
	return r.Bar.PctChange()
}

// Range returns the row's high-low range
func (r Row) Range() float64 {
	return r.Bar.Range()
}

// TimePoint is an intraday (hour, minute) reference used by the
// time-of-day comparison filters.
type TimePoint struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// IsValid reports whether the time point is a real wall-clock minute
func (tp TimePoint) IsValid() bool {
	return tp.Hour >= 0 && tp.Hour <= 23 && tp.Minute >= 0 && tp.Minute <= 59
}

// CompareOp selects the direction of a threshold or price comparison
type CompareOp int

const (
	// GreaterThan keeps rows where the left side exceeds the right
	GreaterThan CompareOp = iota
	// LessThan keeps rows where the left side is below the right
	LessThan
)

// String returns the operator's display form
func (op CompareOp) String() string {
	if op == GreaterThan {
		return ">"
	}
	return "<"
}

// Default parameters for the engine
const (
	// DefaultVolumeSMAWindow is the trailing window for average volume
	DefaultVolumeSMAWindow = 10

	// Default quantile bounds for extremes trimming
	DefaultTrimLower = 0.05
	DefaultTrimUpper = 0.95

	// MinObservationsForRobustStats is the bucket size below which the
	// trimmed-mean and outlier figures fall back to the plain mean
	MinObservationsForRobustStats = 10
)
