package marketdata

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// CSVSource loads bars from per-symbol CSV files in a data directory.
//
// File layout: <dir>/<SYMBOL>_minute.csv and <dir>/<SYMBOL>_daily.csv.
// Minute files carry (time, open, high, low, close, volume); daily files
// carry (date, open, close, volume). A header row is detected and skipped.
// Malformed records are logged and skipped, not fatal.
type CSVSource struct {
	dir    string
	logger *slog.Logger
}

// NewCSVSource creates a CSVSource reading from the given directory
func NewCSVSource(dir string, logger *slog.Logger) *CSVSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVSource{dir: dir, logger: logger}
}

// LoadMinuteBars loads the symbol's minute bars inside [start, end] inclusive
func (s *CSVSource) LoadMinuteBars(ctx context.Context, symbol string, start, end time.Time) ([]MinuteBar, error) {
	path := filepath.Join(s.dir, fmt.Sprintf("%s_minute.csv", strings.ToUpper(symbol)))
	records, err := s.readRecords(ctx, path)
	if err != nil {
		return nil, err
	}

	startDay, endDay := Day(start), Day(end)
	var bars []MinuteBar
	for i, record := range records {
		bar, err := parseMinuteRecord(record)
		if err != nil {
			s.logger.WarnContext(ctx, "failed to parse minute bar record",
				"file", filepath.Base(path),
				"line", i+1,
				"error", err,
			)
			continue
		}
		d := bar.Date()
		if d.Before(startDay) || d.After(endDay) {
			continue
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

// LoadDailyBars loads the symbol's daily bars inside [start, end] inclusive
func (s *CSVSource) LoadDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]DailyBar, error) {
	path := filepath.Join(s.dir, fmt.Sprintf("%s_daily.csv", strings.ToUpper(symbol)))
	records, err := s.readRecords(ctx, path)
	if err != nil {
		return nil, err
	}

	startDay, endDay := Day(start), Day(end)
	var bars []DailyBar
	for i, record := range records {
		bar, err := parseDailyRecord(record)
		if err != nil {
			s.logger.WarnContext(ctx, "failed to parse daily bar record",
				"file", filepath.Base(path),
				"line", i+1,
				"error", err,
			)
			continue
		}
		d := Day(bar.Date)
		if d.Before(startDay) || d.After(endDay) {
			continue
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

// readRecords reads all CSV records from path, skipping a header row
func (s *CSVSource) readRecords(ctx context.Context, path string) ([][]string, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bar file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read CSV records: %w", err)
	}
	if len(records) > 0 && isHeaderRecord(records[0]) {
		records = records[1:]
	}
	return records, nil
}

// isHeaderRecord reports whether the record looks like a column header
func isHeaderRecord(record []string) bool {
	if len(record) == 0 {
		return false
	}
	_, err := parseTimestamp(strings.TrimSpace(record[0]))
	return err != nil
}

func parseMinuteRecord(record []string) (MinuteBar, error) {
	if len(record) < 6 {
		return MinuteBar{}, fmt.Errorf("insufficient columns: expected 6, got %d", len(record))
	}

	ts, err := parseTimestamp(strings.TrimSpace(record[0]))
	if err != nil {
		return MinuteBar{}, fmt.Errorf("parse time: %w", err)
	}

	fields := make([]float64, 5)
	names := []string{"open", "high", "low", "close", "volume"}
	for i := range fields {
		fields[i], err = parseBarFloat(record[i+1], names[i])
		if err != nil {
			return MinuteBar{}, err
		}
	}

	return MinuteBar{
		Time:   ts,
		Open:   fields[0],
		High:   fields[1],
		Low:    fields[2],
		Close:  fields[3],
		Volume: fields[4],
	}, nil
}

func parseDailyRecord(record []string) (DailyBar, error) {
	if len(record) < 4 {
		return DailyBar{}, fmt.Errorf("insufficient columns: expected 4, got %d", len(record))
	}

	date, err := parseTimestamp(strings.TrimSpace(record[0]))
	if err != nil {
		return DailyBar{}, fmt.Errorf("parse date: %w", err)
	}

	open, err := parseBarFloat(record[1], "open")
	if err != nil {
		return DailyBar{}, err
	}
	closePx, err := parseBarFloat(record[2], "close")
	if err != nil {
		return DailyBar{}, err
	}
	volume, err := parseBarFloat(record[3], "volume")
	if err != nil {
		return DailyBar{}, err
	}

	return DailyBar{Date: Day(date), Open: open, Close: closePx, Volume: volume}, nil
}

// parseTimestamp attempts to parse timestamps in the formats bar exports use
func parseTimestamp(value string) (time.Time, error) {
	formats := []string{
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		time.RFC3339,
		"2006-01-02",
		"2006/01/02",
	}
	for _, format := range formats {
		if ts, err := time.Parse(format, value); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse timestamp: %s", value)
}

func parseBarFloat(value, field string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", field, err)
	}
	return f, nil
}
