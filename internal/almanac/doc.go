// Package almanac implements the conditional filter and statistical
// aggregation engine over intraday futures bars.
//
// The pipeline is a strict sequence of pure transformations:
//
//	daily bars -> BuildDailyMetrics -> DerivedDaily
//	minute bars + DerivedDaily + TradingCalendar -> JoinPreviousDay -> rows
//	rows + parsed filter variants -> ApplyFilters -> surviving rows
//	surviving rows -> ComputeHourlyStats / ComputeMinuteStats -> buckets
//	bucket variance -> ScaleVariance -> display mantissa/exponent
//
// Every stage consumes an immutable input and produces a new value; no
// stage mutates what it was given, so concurrent invocations for
// different instruments share nothing. Failure modes degrade to fewer
// surviving rows or absent buckets, never to errors: a minute date
// without previous-trading-day metrics is dropped, a zero divisor flags
// the affected value as NaN and the row falls out of any comparison that
// consults it, and a filter set that excludes everything yields an empty
// result with all buckets absent.
package almanac
