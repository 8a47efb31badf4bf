package almanac

import (
	"math"
	"sort"
	"time"
)

// MeasureStats holds the per-bucket statistics of one measure.
// Variance is the sample variance (divisor n-1) and is NaN when fewer
// than two observations exist; a NaN here is surfaced to callers as an
// undefined value, never coerced to zero.
type MeasureStats struct {
	Mean        float64 `json:"mean"`
	Variance    float64 `json:"variance"`
	Median      float64 `json:"median"`
	Mode        float64 `json:"mode"`
	TrimmedMean float64 `json:"trimmed_mean"`
	Outlier     float64 `json:"outlier"`
}

// BucketStat holds the statistics of one aggregation bucket. Bucket ids
// are hours (0-23), minutes of a chosen hour (0-59), weekdays
// (0=Monday..6=Sunday) or months (1-12) depending on which aggregation
// produced them. Buckets with no member rows are simply absent from the
// result, never emitted as zeros.
type BucketStat struct {
	Bucket    int          `json:"bucket"`
	Count     int          `json:"count"`
	PctChange MeasureStats `json:"pct_change"`
	Range     MeasureStats `json:"range"`
}

// DefaultTrimPct is the percentage trimmed from each tail for the
// trimmed-mean measure
const DefaultTrimPct = 5.0

// ComputeHourlyStats buckets rows by hour of day (0-23) and computes
// mean/variance (and the robust companion measures) of percentage
// change and range per bucket. The result is sorted by bucket and
// sparse: empty hours are absent.
func ComputeHourlyStats(rows []Row, trimPct float64) []BucketStat {
	return computeBuckets(rows, trimPct, func(r Row) int {
		return r.Bar.Time.UTC().Hour()
	})
}

// ComputeMinuteStats restricts rows to the given hour and buckets them
// by minute of hour (0-59). The result is sparse like ComputeHourlyStats.
func ComputeMinuteStats(rows []Row, hour int, trimPct float64) []BucketStat {
	hourRows := make([]Row, 0, len(rows))
	for _, r := range rows {
		if r.Bar.Time.UTC().Hour() == hour {
			hourRows = append(hourRows, r)
		}
	}
	return computeBuckets(hourRows, trimPct, func(r Row) int {
		return r.Bar.Time.UTC().Minute()
	})
}

// ComputeWeekdayStats buckets rows by day of week, 0=Monday through
// 6=Sunday.
func ComputeWeekdayStats(rows []Row, trimPct float64) []BucketStat {
	return computeBuckets(rows, trimPct, func(r Row) int {
		// time.Weekday counts from Sunday; shift to Monday-based.
		return (int(r.Date.Weekday()) + 6) % 7
	})
}

// ComputeMonthlyStats buckets rows by calendar month, 1=January through
// 12=December.
func ComputeMonthlyStats(rows []Row, trimPct float64) []BucketStat {
	return computeBuckets(rows, trimPct, func(r Row) int {
		return int(r.Date.Month())
	})
}

// WeekdayLabel returns the display name of a weekday bucket id
func WeekdayLabel(bucket int) string {
	names := []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}
	if bucket < 0 || bucket >= len(names) {
		return "unknown"
	}
	return names[bucket]
}

// MonthLabel returns the display name of a month bucket id
func MonthLabel(bucket int) string {
	if bucket < 1 || bucket > 12 {
		return "unknown"
	}
	return time.Month(bucket).String()
}

// computeBuckets groups rows by the key function and computes both
// measures per group
func computeBuckets(rows []Row, trimPct float64, key func(Row) int) []BucketStat {
	if trimPct <= 0 || trimPct >= 50 {
		trimPct = DefaultTrimPct
	}

	type group struct {
		count  int
		pcts   []float64
		ranges []float64
	}
	groups := make(map[int]*group)

	for _, r := range rows {
		k := key(r)
		g, ok := groups[k]
		if !ok {
			g = &group{}
			groups[k] = g
		}
		g.count++
		// A non-finite percentage change (zero-open bar) is excluded
		// from the pct statistics only; the row still contributes its
		// range.
		if pc := r.PctChange(); !math.IsNaN(pc) && !math.IsInf(pc, 0) {
			g.pcts = append(g.pcts, pc)
		}
		g.ranges = append(g.ranges, r.Range())
	}

	stats := make([]BucketStat, 0, len(groups))
	for k, g := range groups {
		stats = append(stats, BucketStat{
			Bucket:    k,
			Count:     g.count,
			PctChange: measureStats(g.pcts, trimPct),
			Range:     measureStats(g.ranges, trimPct),
		})
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Bucket < stats[j].Bucket })
	return stats
}

// measureStats computes the full measure set over one bucket's values.
// Buckets smaller than MinObservationsForRobustStats fall back to the
// plain mean for the trimmed-mean and outlier figures.
func measureStats(values []float64, trimPct float64) MeasureStats {
	n := len(values)
	if n == 0 {
		nan := math.NaN()
		return MeasureStats{Mean: nan, Variance: nan, Median: nan, Mode: nan, TrimmedMean: nan, Outlier: nan}
	}

	mean := meanOf(values)
	median := Quantile(values, 0.5)
	mode := modeOf(values, median)

	trimmedMean, outlier := mean, mean
	if n >= MinObservationsForRobustStats {
		low := trimPct / 100.0
		qLow, qHigh := Quantile(values, low), Quantile(values, 1.0-low)

		inner := make([]float64, 0, n)
		for _, v := range values {
			if v >= qLow && v <= qHigh {
				inner = append(inner, v)
			}
		}
		if len(inner) > 0 {
			trimmedMean = meanOf(inner)
		}
		outlier = (qLow + qHigh) / 2
	}

	return MeasureStats{
		Mean:        mean,
		Variance:    sampleVariance(values, mean),
		Median:      median,
		Mode:        mode,
		TrimmedMean: trimmedMean,
		Outlier:     outlier,
	}
}

func meanOf(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// sampleVariance returns the n-1 divisor variance, NaN when n < 2
func sampleVariance(values []float64, mean float64) float64 {
	n := len(values)
	if n < 2 {
		return math.NaN()
	}
	sumSq := 0.0
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return sumSq / float64(n-1)
}

// modeOf returns the most frequent value, breaking frequency ties by
// the smallest value; when every value is unique it falls back to the
// median.
func modeOf(values []float64, fallback float64) float64 {
	counts := make(map[float64]int, len(values))
	for _, v := range values {
		counts[v]++
	}

	best, bestCount := 0.0, 0
	for v, c := range counts {
		if c > bestCount || (c == bestCount && v < best) {
			best, bestCount = v, c
		}
	}
	if bestCount <= 1 && len(values) > 1 {
		return fallback
	}
	return best
}
