// Package services contains the application services that sit between
// the HTTP transport and the statistics engine. Services own pipeline
// orchestration: loading bars, deriving previous-day metrics, composing
// filters and aggregating buckets.
package services
