package domain

import (
	"time"
)

// StatsQueryRequest describes one conditional statistics query: an
// instrument, a date range, the filter vocabulary to apply, and the
// thresholds that arm the threshold-dependent filters. Absent
// thresholds leave their filters inert.
type StatsQueryRequest struct {
	Symbol   string    `json:"symbol" validate:"required,min=1,max=12"`
	DateFrom time.Time `json:"date_from" validate:"required"`
	DateTo   time.Time `json:"date_to" validate:"required,gtefield=DateFrom"`

	Filters         []string   `json:"filters,omitempty"`
	VolumeThreshold *float64   `json:"volume_threshold,omitempty" validate:"omitempty,gt=0"`
	PctThreshold    *float64   `json:"pct_threshold,omitempty" validate:"omitempty,gt=0"`
	TimeA           *TimePoint `json:"time_a,omitempty"`
	TimeB           *TimePoint `json:"time_b,omitempty"`

	// Hour selects the hour for the minute-of-hour breakdown. When nil
	// only the hourly series is returned.
	Hour *int `json:"hour,omitempty" validate:"omitempty,min=0,max=23"`

	// IncludeCalendar adds weekday and monthly bucket series.
	IncludeCalendar bool `json:"include_calendar,omitempty"`
}

// TimePoint is an intraday time reference used by the time comparison
// filters.
type TimePoint struct {
	Hour   int `json:"hour" validate:"min=0,max=23"`
	Minute int `json:"minute" validate:"min=0,max=59"`
}

// StatsQueryResponse carries the bucketed statistics for one query
type StatsQueryResponse struct {
	Symbol   string    `json:"symbol"`
	DateFrom time.Time `json:"date_from"`
	DateTo   time.Time `json:"date_to"`

	// Stages reports the row count surviving each pipeline stage, in
	// application order.
	Stages []StageCount `json:"stages"`

	Hourly  []BucketStat `json:"hourly"`
	Minutes []BucketStat `json:"minutes,omitempty"`

	Weekdays []BucketStat `json:"weekdays,omitempty"`
	Months   []BucketStat `json:"months,omitempty"`

	DurationMS int64 `json:"duration_ms"`
}

// StageCount reports how many rows survived one pipeline stage
type StageCount struct {
	Stage string `json:"stage"`
	Rows  int    `json:"rows"`
}

// BucketStat is one aggregation bucket. Buckets with no members are
// absent from the series rather than zero-filled. Undefined measures
// (a variance over fewer than two observations) are null.
type BucketStat struct {
	Bucket    int          `json:"bucket"`
	Label     string       `json:"label,omitempty"`
	Count     int          `json:"count"`
	PctChange MeasureStats `json:"pct_change"`
	Range     MeasureStats `json:"range"`
}

// MeasureStats holds one measure's statistics for a bucket. Pointer
// fields are null when the underlying value is undefined.
type MeasureStats struct {
	Mean        *float64       `json:"mean"`
	Variance    *float64       `json:"variance"`
	Median      *float64       `json:"median"`
	Mode        *float64       `json:"mode"`
	TrimmedMean *float64       `json:"trimmed_mean"`
	Outlier     *float64       `json:"outlier"`
	Scaled      ScaledVariance `json:"scaled_variance"`
}

// ScaledVariance is the display form of a variance: mantissa in
// [10, 100) and the power of ten it was multiplied by. An undefined or
// non-positive variance is represented as (0, 0).
type ScaledVariance struct {
	Mantissa float64 `json:"mantissa"`
	Exponent int     `json:"exponent"`
}
