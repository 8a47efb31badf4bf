// Package marketdata defines the raw bar types consumed by the almanac
// engine and the sources that load them.
//
// A BarSource returns minute and daily bars for one instrument over an
// inclusive calendar date range, ordered ascending, with missing bars simply
// absent (no gap filling). Implementations in this package cover in-memory
// data (tests, embedding), CSV files on disk, and a chunked loader that
// bounds memory on very large ranges while preserving previous-trading-day
// context across chunk boundaries.
package marketdata
