package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"almanac/internal/almanac"
	"almanac/internal/calendar"
	"almanac/internal/config"
	"almanac/internal/events"
	"almanac/internal/infrastructure"
	"almanac/internal/marketdata"
	"almanac/pkg/contracts/domain"
)

// QueryService runs conditional statistics queries end to end: load
// bars, derive previous-day metrics, join, filter, aggregate. All
// collaborators are injected through the constructor; the service holds
// no process-wide state.
type QueryService struct {
	source    marketdata.BarSource
	calendar  calendar.TradingCalendar
	events    events.Calendar
	engineCfg config.EngineConfig
	metrics   *infrastructure.EngineMetrics
	logger    *slog.Logger
}

// NewQueryService creates a query service. The event calendar may be
// nil, in which case event-day filters are inert. The logger defaults
// to slog.Default() when nil.
func NewQueryService(source marketdata.BarSource, cal calendar.TradingCalendar, ev events.Calendar, engineCfg config.EngineConfig, logger *slog.Logger) *QueryService {
	if logger == nil {
		logger = slog.Default()
	}
	return &QueryService{
		source:    source,
		calendar:  cal,
		events:    ev,
		engineCfg: engineCfg,
		logger:    logger,
	}
}

// WithMetrics attaches metric instruments; a nil argument leaves the
// service unmetered.
func (s *QueryService) WithMetrics(m *infrastructure.EngineMetrics) *QueryService {
	s.metrics = m
	return s
}

// Run executes one statistics query. Data-quality conditions narrow the
// result (fewer rows, absent buckets) rather than failing; an error here
// means the bar source itself failed.
func (s *QueryService) Run(ctx context.Context, req domain.StatsQueryRequest) (*domain.StatsQueryResponse, error) {
	start := time.Now()

	s.logger.InfoContext(ctx, "statistics query started",
		"symbol", req.Symbol,
		"date_from", req.DateFrom.Format("2006-01-02"),
		"date_to", req.DateTo.Format("2006-01-02"),
		"filters", req.Filters,
	)

	// The daily window extends back so the range's first minute date has
	// previous-day context and a warmed rolling volume mean.
	warmupDays := 2 * s.volumeWindow()
	dailyStart := marketdata.Day(req.DateFrom).AddDate(0, 0, -warmupDays)

	daily, loadDaily := infrastructure.Invoke(ctx, s.logger, "load_daily_bars", func(ctx context.Context) ([]marketdata.DailyBar, error) {
		return s.source.LoadDailyBars(ctx, req.Symbol, dailyStart, req.DateTo)
	})
	if loadDaily.Err != nil {
		s.recordQuery(ctx, req.Symbol, time.Since(start), 0, 0, loadDaily.Err)
		return nil, fmt.Errorf("loading daily bars for %s: %w", req.Symbol, loadDaily.Err)
	}

	minutes, loadMinute := infrastructure.Invoke(ctx, s.logger, "load_minute_bars", func(ctx context.Context) ([]marketdata.MinuteBar, error) {
		return s.source.LoadMinuteBars(ctx, req.Symbol, req.DateFrom, req.DateTo)
	})
	if loadMinute.Err != nil {
		s.recordQuery(ctx, req.Symbol, time.Since(start), 0, 0, loadMinute.Err)
		return nil, fmt.Errorf("loading minute bars for %s: %w", req.Symbol, loadMinute.Err)
	}

	derived := almanac.BuildDailyMetricsWindow(ctx, daily, s.volumeWindow(), s.logger)
	rows := almanac.JoinPreviousDay(ctx, minutes, derived, s.calendar, s.logger)
	joined := len(rows)

	spec := almanac.Spec{
		Tokens:       req.Filters,
		VolThreshold: req.VolumeThreshold,
		PctThreshold: req.PctThreshold,
	}
	if req.TimeA != nil {
		spec.TimeA = &almanac.TimePoint{Hour: req.TimeA.Hour, Minute: req.TimeA.Minute}
	}
	if req.TimeB != nil {
		spec.TimeB = &almanac.TimePoint{Hour: req.TimeB.Hour, Minute: req.TimeB.Minute}
	}

	filters := s.applyTrimBounds(almanac.ParseSpec(spec, s.events))
	rows, stages := almanac.ApplyFilters(ctx, rows, filters, s.logger)

	resp := &domain.StatsQueryResponse{
		Symbol:   req.Symbol,
		DateFrom: req.DateFrom,
		DateTo:   req.DateTo,
		Stages: append(
			[]domain.StageCount{
				{Stage: "loaded", Rows: len(minutes)},
				{Stage: "joined", Rows: joined},
			},
			stageCounts(stages)...,
		),
		Hourly: bucketStats(almanac.ComputeHourlyStats(rows, s.trimPct()), nil),
	}

	if req.Hour != nil {
		resp.Minutes = bucketStats(almanac.ComputeMinuteStats(rows, *req.Hour, s.trimPct()), nil)
	}
	if req.IncludeCalendar {
		resp.Weekdays = bucketStats(almanac.ComputeWeekdayStats(rows, s.trimPct()), almanac.WeekdayLabel)
		resp.Months = bucketStats(almanac.ComputeMonthlyStats(rows, s.trimPct()), almanac.MonthLabel)
	}

	elapsed := time.Since(start)
	resp.DurationMS = elapsed.Milliseconds()
	s.recordQuery(ctx, req.Symbol, elapsed, joined, len(rows), nil)

	s.logger.InfoContext(ctx, "statistics query completed",
		"symbol", req.Symbol,
		"rows_joined", joined,
		"rows_final", len(rows),
		"hourly_buckets", len(resp.Hourly),
		"duration_ms", resp.DurationMS,
	)

	return resp, nil
}

func (s *QueryService) volumeWindow() int {
	if s.engineCfg.VolumeSMAWindow > 0 {
		return s.engineCfg.VolumeSMAWindow
	}
	return almanac.DefaultVolumeSMAWindow
}

func (s *QueryService) trimPct() float64 {
	if s.engineCfg.TrimPct > 0 && s.engineCfg.TrimPct < 50 {
		return s.engineCfg.TrimPct
	}
	return almanac.DefaultTrimPct
}

// applyTrimBounds substitutes configured quantile bounds into any
// trimming stage the filter spec produced.
func (s *QueryService) applyTrimBounds(filters []almanac.Filter) []almanac.Filter {
	lower, upper := s.engineCfg.TrimLower, s.engineCfg.TrimUpper
	if lower <= 0 && upper <= 0 {
		return filters
	}
	if lower < 0 || upper > 1 || lower >= upper {
		return filters
	}
	for i, f := range filters {
		if _, ok := f.(almanac.TrimExtremesFilter); ok {
			filters[i] = almanac.TrimExtremesFilter{Lower: lower, Upper: upper}
		}
	}
	return filters
}

func (s *QueryService) recordQuery(ctx context.Context, symbol string, duration time.Duration, joined, filtered int, err error) {
	infrastructure.RecordQueryMetrics(ctx, s.metrics, symbol, duration, joined, filtered, err)
}

// stageCounts converts engine stage counts to the wire shape
func stageCounts(stages []almanac.StageCount) []domain.StageCount {
	out := make([]domain.StageCount, len(stages))
	for i, st := range stages {
		out[i] = domain.StageCount{Stage: st.Filter, Rows: st.Rows}
	}
	return out
}

// bucketStats converts engine buckets to the wire shape, mapping
// undefined (NaN) measures to nulls.
func bucketStats(buckets []almanac.BucketStat, label func(int) string) []domain.BucketStat {
	out := make([]domain.BucketStat, len(buckets))
	for i, b := range buckets {
		stat := domain.BucketStat{
			Bucket:    b.Bucket,
			Count:     b.Count,
			PctChange: measureStats(b.PctChange),
			Range:     measureStats(b.Range),
		}
		if label != nil {
			stat.Label = label(b.Bucket)
		}
		out[i] = stat
	}
	return out
}

func measureStats(m almanac.MeasureStats) domain.MeasureStats {
	mantissa, exponent := almanac.ScaleVariance(m.Variance)
	return domain.MeasureStats{
		Mean:        finiteOrNil(m.Mean),
		Variance:    finiteOrNil(m.Variance),
		Median:      finiteOrNil(m.Median),
		Mode:        finiteOrNil(m.Mode),
		TrimmedMean: finiteOrNil(m.TrimmedMean),
		Outlier:     finiteOrNil(m.Outlier),
		Scaled: domain.ScaledVariance{
			Mantissa: mantissa,
			Exponent: exponent,
		},
	}
}

// finiteOrNil maps NaN and infinities to nil so undefined measures
// serialize as JSON null.
func finiteOrNil(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
