// Package events provides the economic-event calendar contract consumed
// by the almanac engine's event-day filters. The curation of release
// dates themselves is an external concern; this package only defines the
// lookup contract and a set-backed implementation fed with injected data.
package events

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Type identifies one category of scheduled economic release
type Type string

const (
	CPI         Type = "CPI"
	FOMC        Type = "FOMC"
	NFP         Type = "NFP"
	PPI         Type = "PPI"
	RetailSales Type = "RETAIL_SALES"
	GDP         Type = "GDP"
	PCE         Type = "PCE"
)

// AllTypes lists every known event type
func AllTypes() []Type {
	return []Type{CPI, FOMC, NFP, PPI, RetailSales, GDP, PCE}
}

// Calendar answers whether a date carries a scheduled economic release
type Calendar interface {
	// IsEventDate reports whether date d has a release of the given type.
	IsEventDate(d time.Time, t Type) bool
	// AllMajorEventDates returns the union of all event dates, keyed by
	// ISO date string (2006-01-02).
	AllMajorEventDates() map[string]struct{}
}

// SetCalendar is a Calendar backed by per-type date sets
type SetCalendar struct {
	dates map[Type]map[string]struct{}
	major map[string]struct{}
}

// NewSetCalendar builds a SetCalendar from per-type lists of ISO date
// strings. Unknown keys are carried as-is so callers can extend the
// vocabulary without touching this package.
func NewSetCalendar(byType map[Type][]string) *SetCalendar {
	c := &SetCalendar{
		dates: make(map[Type]map[string]struct{}, len(byType)),
		major: make(map[string]struct{}),
	}
	for t, list := range byType {
		set := make(map[string]struct{}, len(list))
		for _, d := range list {
			set[d] = struct{}{}
			c.major[d] = struct{}{}
		}
		c.dates[t] = set
	}
	return c
}

// IsEventDate reports whether d (compared by ISO date string) has a
// release of type t
func (c *SetCalendar) IsEventDate(d time.Time, t Type) bool {
	set, ok := c.dates[t]
	if !ok {
		return false
	}
	_, hit := set[d.UTC().Format("2006-01-02")]
	return hit
}

// AllMajorEventDates returns the union of every configured event date
func (c *SetCalendar) AllMajorEventDates() map[string]struct{} {
	return c.major
}

// LoadCalendar reads a YAML file mapping event type names to lists of
// ISO date strings and returns the resulting SetCalendar.
func LoadCalendar(path string) (*SetCalendar, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read event calendar: %w", err)
	}

	var byName map[string][]string
	if err := yaml.Unmarshal(raw, &byName); err != nil {
		return nil, fmt.Errorf("parse event calendar: %w", err)
	}

	byType := make(map[Type][]string, len(byName))
	for name, list := range byName {
		byType[Type(name)] = list
	}
	return NewSetCalendar(byType), nil
}
