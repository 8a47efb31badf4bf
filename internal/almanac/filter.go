package almanac

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"almanac/internal/events"
)

// Filter is one narrowing step over joined minute rows. Filters never
// mutate their input; Apply returns a new, possibly shorter, row slice.
//
// The set of implementations is closed: every wire token maps to exactly
// one variant below, and a threshold-dependent token whose threshold is
// absent simply produces no filter at all, making the no-op rule a typed
// absence instead of a runtime check.
type Filter interface {
	// Name returns the filter's wire token for logging and stage counts.
	Name() string
	Apply(rows []Row) []Row
}

// Spec is the wire shape of a filter request: an unordered token set
// plus the optional thresholds and time points some tokens consult.
// Unknown tokens are ignored, never errors.
type Spec struct {
	Tokens       []string   `json:"tokens"`
	VolThreshold *float64   `json:"vol_threshold,omitempty"`
	PctThreshold *float64   `json:"pct_threshold,omitempty"`
	TimeA        *TimePoint `json:"time_a,omitempty"`
	TimeB        *TimePoint `json:"time_b,omitempty"`
}

// Has reports whether the spec carries the given token
func (s Spec) Has(token string) bool {
	for _, t := range s.Tokens {
		if strings.EqualFold(t, token) {
			return true
		}
	}
	return false
}

// Wire tokens understood by ParseSpec. Weekday tokens are the lowercase
// English day names monday..friday.
const (
	TokenPrevPos       = "prev_pos"
	TokenPrevNeg       = "prev_neg"
	TokenPrevPctPos    = "prev_pct_pos"
	TokenPrevPctNeg    = "prev_pct_neg"
	TokenRelVolGT      = "relvol_gt"
	TokenRelVolLT      = "relvol_lt"
	TokenTimeAGTTimeB  = "timeA_gt_timeB"
	TokenTimeALTTimeB  = "timeA_lt_timeB"
	TokenTrimExtremes  = "trim_extremes"
	TokenMajorEventDay = "major_event_day"
)

// weekdayTokens maps the weekday token vocabulary to time.Weekday
var weekdayTokens = map[string]time.Weekday{
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
}

// eventTokens maps event-day tokens to their event type
var eventTokens = []struct {
	token string
	typ   events.Type
}{
	{"cpi_day", events.CPI},
	{"fomc_day", events.FOMC},
	{"nfp_day", events.NFP},
	{"ppi_day", events.PPI},
	{"retail_sales_day", events.RetailSales},
	{"gdp_day", events.GDP},
	{"pce_day", events.PCE},
}

// ParseSpec translates a wire-level Spec into the ordered filter list to
// fold over the joined rows. The application order is fixed regardless
// of token order: weekday, economic events, previous-day direction,
// previous-day percentage threshold, relative volume, time-of-day
// comparison, extremes trimming last.
//
// Tokens outside the vocabulary are ignored. A threshold-dependent token
// without its threshold, or a time-comparison token without both valid
// time points, contributes nothing. Event tokens require an event
// calendar; with a nil calendar they are skipped.
func ParseSpec(spec Spec, cal events.Calendar) []Filter {
	var filters []Filter

	// Weekday tokens collapse into a single set-valued filter so the
	// empty-or-full no-op rule can see the whole selection at once.
	days := make(map[time.Weekday]struct{})
	for token, wd := range weekdayTokens {
		if spec.Has(token) {
			days[wd] = struct{}{}
		}
	}
	if len(days) > 0 {
		filters = append(filters, WeekdayFilter{Days: days})
	}

	if cal != nil {
		for _, et := range eventTokens {
			if spec.Has(et.token) {
				filters = append(filters, EventFilter{Type: et.typ, Calendar: cal})
			}
		}
		if spec.Has(TokenMajorEventDay) {
			filters = append(filters, MajorEventFilter{Calendar: cal})
		}
	}

	// prev_pos and prev_neg compose as AND when both are present.
	if spec.Has(TokenPrevPos) {
		filters = append(filters, PrevDirectionFilter{Positive: true})
	}
	if spec.Has(TokenPrevNeg) {
		filters = append(filters, PrevDirectionFilter{Positive: false})
	}

	if spec.PctThreshold != nil {
		if spec.Has(TokenPrevPctPos) {
			filters = append(filters, PrevPctFilter{Positive: true, Threshold: *spec.PctThreshold})
		}
		if spec.Has(TokenPrevPctNeg) {
			filters = append(filters, PrevPctFilter{Positive: false, Threshold: *spec.PctThreshold})
		}
	}

	if spec.VolThreshold != nil {
		if spec.Has(TokenRelVolGT) {
			filters = append(filters, RelVolFilter{Op: GreaterThan, Threshold: *spec.VolThreshold})
		}
		if spec.Has(TokenRelVolLT) {
			filters = append(filters, RelVolFilter{Op: LessThan, Threshold: *spec.VolThreshold})
		}
	}

	if spec.TimeA != nil && spec.TimeB != nil && spec.TimeA.IsValid() && spec.TimeB.IsValid() {
		if spec.Has(TokenTimeAGTTimeB) {
			filters = append(filters, TimeCompareFilter{Op: GreaterThan, A: *spec.TimeA, B: *spec.TimeB})
		}
		if spec.Has(TokenTimeALTTimeB) {
			filters = append(filters, TimeCompareFilter{Op: LessThan, A: *spec.TimeA, B: *spec.TimeB})
		}
	}

	if spec.Has(TokenTrimExtremes) {
		filters = append(filters, TrimExtremesFilter{Lower: DefaultTrimLower, Upper: DefaultTrimUpper})
	}

	return filters
}

// StageCount records the surviving row count after one filter stage
type StageCount struct {
	Filter string `json:"filter"`
	Rows   int    `json:"rows"`
}

// ApplyFilters folds the filter list over the rows in order, returning
// the surviving rows and the per-stage counts.
func ApplyFilters(ctx context.Context, rows []Row, filters []Filter, logger *slog.Logger) ([]Row, []StageCount) {
	if logger == nil {
		logger = slog.Default()
	}

	stages := make([]StageCount, 0, len(filters))
	for _, f := range filters {
		before := len(rows)
		rows = f.Apply(rows)
		stages = append(stages, StageCount{Filter: f.Name(), Rows: len(rows)})
		logger.DebugContext(ctx, "applied filter",
			"filter", f.Name(),
			"rows_before", before,
			"rows_after", len(rows),
		)
	}
	return rows, stages
}

// WeekdayFilter keeps rows whose date falls on one of the selected
// weekdays. An empty selection and the full Monday..Friday selection
// are both defined as "apply no restriction": selecting no weekdays
// means no weekday filtering, not "exclude everything". Downstream
// consumers depend on that exact behavior.
type WeekdayFilter struct {
	Days map[time.Weekday]struct{}
}

// Name returns the stage label for the weekday filter
func (f WeekdayFilter) Name() string { return "weekday" }

// Apply keeps rows on the selected weekdays, honoring the no-op rule
func (f WeekdayFilter) Apply(rows []Row) []Row {
	if len(f.Days) == 0 || len(f.Days) == len(weekdayTokens) {
		return rows
	}
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if _, ok := f.Days[r.Date.Weekday()]; ok {
			out = append(out, r)
		}
	}
	return out
}

// EventFilter keeps rows whose date carries a scheduled release of one
// economic event type.
type EventFilter struct {
	Type     events.Type
	Calendar events.Calendar
}

// Name returns the stage label for the event filter
func (f EventFilter) Name() string {
	return strings.ToLower(string(f.Type)) + "_day"
}

// Apply keeps rows dated on a release day of the filter's event type
func (f EventFilter) Apply(rows []Row) []Row {
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if f.Calendar.IsEventDate(r.Date, f.Type) {
			out = append(out, r)
		}
	}
	return out
}

// MajorEventFilter keeps rows dated on any major economic event day
type MajorEventFilter struct {
	Calendar events.Calendar
}

// Name returns the stage label for the major-event filter
func (f MajorEventFilter) Name() string { return TokenMajorEventDay }

// Apply keeps rows whose ISO date appears in the union of event dates
func (f MajorEventFilter) Apply(rows []Row) []Row {
	major := f.Calendar.AllMajorEventDates()
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if _, ok := major[r.Date.Format("2006-01-02")]; ok {
			out = append(out, r)
		}
	}
	return out
}

// PrevDirectionFilter keeps rows by the previous day's close-vs-open
// direction. Rows where the previous close equals the previous open
// satisfy neither direction.
type PrevDirectionFilter struct {
	Positive bool
}

// Name returns the stage label for the direction filter
func (f PrevDirectionFilter) Name() string {
	if f.Positive {
		return TokenPrevPos
	}
	return TokenPrevNeg
}

// Apply keeps rows whose previous day closed in the filter's direction
func (f PrevDirectionFilter) Apply(rows []Row) []Row {
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if f.Positive && r.Prev.Close > r.Prev.Open {
			out = append(out, r)
		} else if !f.Positive && r.Prev.Close < r.Prev.Open {
			out = append(out, r)
		}
	}
	return out
}

// PrevPctFilter keeps rows by the previous day's return percentage
// against a threshold: >= threshold for the positive side, <= -threshold
// for the negative side. A NaN return (zero-open data-quality event)
// satisfies neither comparison.
type PrevPctFilter struct {
	Positive  bool
	Threshold float64
}

// Name returns the stage label for the percentage-threshold filter
func (f PrevPctFilter) Name() string {
	if f.Positive {
		return TokenPrevPctPos
	}
	return TokenPrevPctNeg
}

// Apply keeps rows whose previous-day return clears the threshold
func (f PrevPctFilter) Apply(rows []Row) []Row {
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if f.Positive && r.Prev.ReturnPct >= f.Threshold {
			out = append(out, r)
		} else if !f.Positive && r.Prev.ReturnPct <= -f.Threshold {
			out = append(out, r)
		}
	}
	return out
}

// RelVolFilter keeps rows by the previous day's relative volume against
// a threshold. Rows whose trailing average volume is zero have an
// undefined relative volume and are excluded from both directions.
type RelVolFilter struct {
	Op        CompareOp
	Threshold float64
}

// Name returns the stage label for the relative-volume filter
func (f RelVolFilter) Name() string {
	if f.Op == GreaterThan {
		return TokenRelVolGT
	}
	return TokenRelVolLT
}

// Apply keeps rows whose previous-day relative volume clears the threshold
func (f RelVolFilter) Apply(rows []Row) []Row {
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		rv := r.Prev.RelVol()
		if math.IsNaN(rv) {
			continue
		}
		if f.Op == GreaterThan && rv > f.Threshold {
			out = append(out, r)
		} else if f.Op == LessThan && rv < f.Threshold {
			out = append(out, r)
		}
	}
	return out
}

// TimeCompareFilter keeps rows by comparing each date's close price at
// two exact intraday minutes. The reference prices are resolved from the
// rows the filter is applied to; a date lacking a bar at either exact
// minute (a holiday-shortened session, for example) has no reference
// price and all of that date's rows are excluded.
type TimeCompareFilter struct {
	Op   CompareOp
	A, B TimePoint
}

// Name returns the stage label for the time-comparison filter
func (f TimeCompareFilter) Name() string {
	if f.Op == GreaterThan {
		return TokenTimeAGTTimeB
	}
	return TokenTimeALTTimeB
}

// Apply keeps rows whose date's price at time A compares to time B per Op
func (f TimeCompareFilter) Apply(rows []Row) []Row {
	priceA := make(map[time.Time]float64)
	priceB := make(map[time.Time]float64)
	for _, r := range rows {
		h, m := r.Bar.Time.UTC().Hour(), r.Bar.Time.UTC().Minute()
		if h == f.A.Hour && m == f.A.Minute {
			priceA[r.Date] = r.Bar.Close
		}
		if h == f.B.Hour && m == f.B.Minute {
			priceB[r.Date] = r.Bar.Close
		}
	}

	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		a, okA := priceA[r.Date]
		b, okB := priceB[r.Date]
		if !okA || !okB {
			continue
		}
		if f.Op == GreaterThan && a > b {
			out = append(out, r)
		} else if f.Op == LessThan && a < b {
			out = append(out, r)
		}
	}
	return out
}

// TrimExtremesFilter removes quantile outliers by percentage change and
// range. It is always the last stage; see TrimExtremes for the
// never-empty fallback.
type TrimExtremesFilter struct {
	Lower, Upper float64
}

// Name returns the stage label for the trimming filter
func (f TrimExtremesFilter) Name() string { return TokenTrimExtremes }

// Apply trims quantile extremes, falling back to the input when the trim
// would empty it
func (f TrimExtremesFilter) Apply(rows []Row) []Row {
	return TrimExtremes(rows, f.Lower, f.Upper)
}

// String renders the spec's active tokens for logging
func (s Spec) String() string {
	return fmt.Sprintf("filters[%s]", strings.Join(s.Tokens, ","))
}
