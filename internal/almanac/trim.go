package almanac

import (
	"math"
	"sort"
)

// TrimExtremes removes outlier rows by intraday percentage change and
// range. The lower/upper quantiles of each measure are computed
// independently and a row survives only when both of its measures fall
// inside their respective bounds, inclusive.
//
// Trimming never empties a non-empty input: when every row would be
// removed, the untrimmed input is returned unchanged. Rows whose
// percentage change is not finite (zero-open bars) are treated as
// outliers and never survive a trim.
func TrimExtremes(rows []Row, lower, upper float64) []Row {
	if len(rows) == 0 {
		return rows
	}

	pcts := make([]float64, 0, len(rows))
	ranges := make([]float64, 0, len(rows))
	for _, r := range rows {
		if pc := r.PctChange(); !math.IsNaN(pc) && !math.IsInf(pc, 0) {
			pcts = append(pcts, pc)
		}
		ranges = append(ranges, r.Range())
	}
	if len(pcts) == 0 {
		return rows
	}

	lowPC, highPC := Quantile(pcts, lower), Quantile(pcts, upper)
	lowR, highR := Quantile(ranges, lower), Quantile(ranges, upper)

	trimmed := make([]Row, 0, len(rows))
	for _, r := range rows {
		pc := r.PctChange()
		if math.IsNaN(pc) || math.IsInf(pc, 0) {
			continue
		}
		rng := r.Range()
		if pc >= lowPC && pc <= highPC && rng >= lowR && rng <= highR {
			trimmed = append(trimmed, r)
		}
	}

	if len(trimmed) == 0 {
		return rows
	}
	return trimmed
}

// Quantile returns the q-th quantile of values using linear
// interpolation between closest ranks, matching the convention of
// common statistical libraries. The input need not be sorted; it is
// copied, not mutated. Returns NaN for an empty input.
func Quantile(values []float64, q float64) float64 {
	n := len(values)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return values[0]
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[n-1]
	}

	pos := q * float64(n-1)
	idx := int(math.Floor(pos))
	frac := pos - float64(idx)
	if idx+1 >= n {
		return sorted[n-1]
	}
	return sorted[idx] + frac*(sorted[idx+1]-sorted[idx])
}
