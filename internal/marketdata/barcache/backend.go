// Package barcache provides pluggable cache backends for loaded bar
// data. Backends hold raw bars only; computed statistics are never
// cached. A Chain composes backends into an explicit ranked list that
// is tried in order.
package barcache

import (
	"context"
	"fmt"
	"time"

	"almanac/internal/marketdata"
)

// Key identifies one cached bar range. Start and End are inclusive and
// normalized to midnight UTC by String, so equivalent ranges map to the
// same entry regardless of intraday components.
type Key struct {
	Symbol string
	Start  time.Time
	End    time.Time
}

// String renders the key in a form safe for map keys and file names
func (k Key) String() string {
	return fmt.Sprintf("%s_%s_%s",
		k.Symbol,
		marketdata.Day(k.Start).Format("20060102"),
		marketdata.Day(k.End).Format("20060102"))
}

// Backend is a single cache tier. Get returns ok=false on a miss; an
// error means the backend itself failed, which callers treat as a miss
// and continue.
type Backend interface {
	// Name identifies the backend in logs and chain results.
	Name() string

	GetMinute(ctx context.Context, key Key) ([]marketdata.MinuteBar, bool, error)
	PutMinute(ctx context.Context, key Key, bars []marketdata.MinuteBar) error

	GetDaily(ctx context.Context, key Key) ([]marketdata.DailyBar, bool, error)
	PutDaily(ctx context.Context, key Key, bars []marketdata.DailyBar) error
}

// Noop is a backend that stores nothing and always misses. It stands in
// where a tier is configured off, keeping chain wiring uniform.
type Noop struct{}

// Name implements Backend.
func (Noop) Name() string { return "noop" }

// GetMinute implements Backend.
func (Noop) GetMinute(context.Context, Key) ([]marketdata.MinuteBar, bool, error) {
	return nil, false, nil
}

// PutMinute implements Backend.
func (Noop) PutMinute(context.Context, Key, []marketdata.MinuteBar) error { return nil }

// GetDaily implements Backend.
func (Noop) GetDaily(context.Context, Key) ([]marketdata.DailyBar, bool, error) {
	return nil, false, nil
}

// PutDaily implements Backend.
func (Noop) PutDaily(context.Context, Key, []marketdata.DailyBar) error { return nil }
