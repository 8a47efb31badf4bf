package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"almanac/internal/calendar"
	"almanac/internal/config"
	"almanac/internal/events"
	"almanac/internal/marketdata"
	"almanac/internal/services"
	"almanac/pkg/contracts/domain"
)

func main() {
	dataDir := flag.String("data", "data", "Directory containing <SYMBOL>_daily.csv and <SYMBOL>_minute.csv files")
	symbol := flag.String("symbol", "", "Instrument symbol to analyze (required)")
	from := flag.String("from", "", "Start date, YYYY-MM-DD (required)")
	to := flag.String("to", "", "End date, YYYY-MM-DD (required)")
	filters := flag.String("filters", "", "Comma-separated filter tokens, e.g. prev_pos,vol_above,trim")
	volThreshold := flag.Float64("vol-threshold", 0, "Relative volume threshold for vol_above/vol_below")
	pctThreshold := flag.Float64("pct-threshold", 0, "Percent-change threshold for pct_above/pct_below")
	hour := flag.Int("hour", -1, "Hour for the minute-of-hour breakdown (omit to skip)")
	timeA := flag.String("time-a", "", "First intraday reference time HH:MM for time comparison filters")
	timeB := flag.String("time-b", "", "Second intraday reference time HH:MM for time comparison filters")
	includeCalendar := flag.Bool("calendar", false, "Include weekday and monthly breakdowns")
	eventsFile := flag.String("events", "", "Optional YAML event calendar for event-day filters")
	holidays := flag.String("holidays", "", "Comma-separated ISO dates treated as market holidays")
	output := flag.String("output", "", "Optional CSV file for the hourly breakdown")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	req, err := buildRequest(*symbol, *from, *to, *filters, *volThreshold, *pctThreshold, *hour, *timeA, *timeB, *includeCalendar)
	if err != nil {
		logger.Error("invalid arguments", "error", err)
		flag.Usage()
		os.Exit(1)
	}

	var eventCal events.Calendar
	if *eventsFile != "" {
		cal, err := events.LoadCalendar(*eventsFile)
		if err != nil {
			logger.Error("failed to load event calendar", "path", *eventsFile, "error", err)
			os.Exit(1)
		}
		eventCal = cal
	}

	source := marketdata.NewCSVSource(*dataDir, logger)
	tradingCal := calendar.NewWeekendCalendar(splitList(*holidays))

	service := services.NewQueryService(source, tradingCal, eventCal, config.EngineConfig{}, logger)

	ctx := context.Background()
	resp, err := service.Run(ctx, req)
	if err != nil {
		logger.Error("query failed", "symbol", req.Symbol, "error", err)
		os.Exit(1)
	}

	renderStages(resp.Stages)
	renderBuckets("Hourly breakdown", "Hour", resp.Hourly)
	if len(resp.Minutes) > 0 {
		renderBuckets(fmt.Sprintf("Minute breakdown for hour %02d", *hour), "Minute", resp.Minutes)
	}
	if len(resp.Weekdays) > 0 {
		renderBuckets("Weekday breakdown", "Weekday", resp.Weekdays)
	}
	if len(resp.Months) > 0 {
		renderBuckets("Monthly breakdown", "Month", resp.Months)
	}
	fmt.Printf("\nCompleted in %d ms\n", resp.DurationMS)

	if *output != "" {
		if err := writeCSV(*output, resp.Hourly); err != nil {
			logger.Error("failed to write CSV output", "path", *output, "error", err)
			os.Exit(1)
		}
		fmt.Printf("Hourly breakdown written to %s\n", *output)
	}
}

func buildRequest(symbol, from, to, filterList string, volThreshold, pctThreshold float64, hour int, timeA, timeB string, includeCalendar bool) (domain.StatsQueryRequest, error) {
	var req domain.StatsQueryRequest

	if symbol == "" {
		return req, fmt.Errorf("-symbol is required")
	}
	dateFrom, err := time.Parse("2006-01-02", from)
	if err != nil {
		return req, fmt.Errorf("invalid -from date %q: %w", from, err)
	}
	dateTo, err := time.Parse("2006-01-02", to)
	if err != nil {
		return req, fmt.Errorf("invalid -to date %q: %w", to, err)
	}
	if dateTo.Before(dateFrom) {
		return req, fmt.Errorf("-to %s precedes -from %s", to, from)
	}

	req = domain.StatsQueryRequest{
		Symbol:          strings.ToUpper(symbol),
		DateFrom:        dateFrom,
		DateTo:          dateTo,
		Filters:         splitList(filterList),
		IncludeCalendar: includeCalendar,
	}
	if volThreshold > 0 {
		req.VolumeThreshold = &volThreshold
	}
	if pctThreshold > 0 {
		req.PctThreshold = &pctThreshold
	}
	if hour >= 0 {
		if hour > 23 {
			return req, fmt.Errorf("-hour must be between 0 and 23")
		}
		req.Hour = &hour
	}
	if req.TimeA, err = parseTimePoint(timeA); err != nil {
		return req, fmt.Errorf("invalid -time-a: %w", err)
	}
	if req.TimeB, err = parseTimePoint(timeB); err != nil {
		return req, fmt.Errorf("invalid -time-b: %w", err)
	}
	return req, nil
}

func parseTimePoint(s string) (*domain.TimePoint, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return nil, fmt.Errorf("expected HH:MM, got %q", s)
	}
	return &domain.TimePoint{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func renderStages(stages []domain.StageCount) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("Pipeline stages")
	t.AppendHeader(table.Row{"Stage", "Rows"})
	for _, st := range stages {
		t.AppendRow(table.Row{st.Stage, st.Rows})
	}
	t.SetStyle(table.StyleLight)
	t.Render()
}

func renderBuckets(title, bucketName string, buckets []domain.BucketStat) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle(title)
	t.AppendHeader(table.Row{
		bucketName, "Count",
		"Pct Mean", "Pct Var", "Pct Median", "Pct Trimmed",
		"Rng Mean", "Rng Var", "Rng Median", "Rng Trimmed",
	})
	for _, b := range buckets {
		label := strconv.Itoa(b.Bucket)
		if b.Label != "" {
			label = b.Label
		}
		t.AppendRow(table.Row{
			label, b.Count,
			cell(b.PctChange.Mean), cell(b.PctChange.Variance), cell(b.PctChange.Median), cell(b.PctChange.TrimmedMean),
			cell(b.Range.Mean), cell(b.Range.Variance), cell(b.Range.Median), cell(b.Range.TrimmedMean),
		})
	}
	t.SetStyle(table.StyleLight)
	t.Render()
}

// cell formats a nullable measure for display; undefined measures show
// as a dash.
func cell(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'g', 6, 64)
}

func writeCSV(path string, buckets []domain.BucketStat) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{
		"bucket", "label", "count",
		"pct_mean", "pct_variance", "pct_median", "pct_mode", "pct_trimmed_mean", "pct_outlier",
		"range_mean", "range_variance", "range_median", "range_mode", "range_trimmed_mean", "range_outlier",
	}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, b := range buckets {
		row := []string{
			strconv.Itoa(b.Bucket), b.Label, strconv.Itoa(b.Count),
			csvCell(b.PctChange.Mean), csvCell(b.PctChange.Variance), csvCell(b.PctChange.Median),
			csvCell(b.PctChange.Mode), csvCell(b.PctChange.TrimmedMean), csvCell(b.PctChange.Outlier),
			csvCell(b.Range.Mean), csvCell(b.Range.Variance), csvCell(b.Range.Median),
			csvCell(b.Range.Mode), csvCell(b.Range.TrimmedMean), csvCell(b.Range.Outlier),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func csvCell(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}
