package barcache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"

	"almanac/internal/marketdata"
)

// minuteRecord is the on-disk row shape for minute bars. Timestamps are
// stored as Unix milliseconds so files stay readable by standard
// columnar tooling.
type minuteRecord struct {
	Timestamp int64   `parquet:"t"`
	Open      float64 `parquet:"o"`
	High      float64 `parquet:"h"`
	Low       float64 `parquet:"l"`
	Close     float64 `parquet:"c"`
	Volume    float64 `parquet:"v"`
}

// dailyRecord is the on-disk row shape for daily bars
type dailyRecord struct {
	Date   int64   `parquet:"d"`
	Open   float64 `parquet:"o"`
	Close  float64 `parquet:"c"`
	Volume float64 `parquet:"v"`
}

// Parquet is a filesystem cache backend writing one Parquet file per
// symbol and date range. Writes go through a temp file and rename so a
// crashed write never leaves a torn entry.
type Parquet struct {
	dir string
}

// NewParquet creates a Parquet backend rooted at dir, creating the
// directory if needed.
func NewParquet(dir string) (*Parquet, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	return &Parquet{dir: dir}, nil
}

// Name implements Backend.
func (p *Parquet) Name() string { return "parquet" }

func (p *Parquet) path(key Key, resolution string) string {
	return filepath.Join(p.dir, fmt.Sprintf("%s_%s.parquet", key.String(), resolution))
}

// GetMinute implements Backend.
func (p *Parquet) GetMinute(_ context.Context, key Key) ([]marketdata.MinuteBar, bool, error) {
	path := p.path(key, "minute")
	records, err := parquet.ReadFile[minuteRecord](path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("reading %s: %w", path, err)
	}

	bars := make([]marketdata.MinuteBar, len(records))
	for i, r := range records {
		bars[i] = marketdata.MinuteBar{
			Time:   time.UnixMilli(r.Timestamp).UTC(),
			Open:   r.Open,
			High:   r.High,
			Low:    r.Low,
			Close:  r.Close,
			Volume: r.Volume,
		}
	}
	return bars, true, nil
}

// PutMinute implements Backend.
func (p *Parquet) PutMinute(_ context.Context, key Key, bars []marketdata.MinuteBar) error {
	records := make([]minuteRecord, len(bars))
	for i, b := range bars {
		records[i] = minuteRecord{
			Timestamp: b.Time.UnixMilli(),
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    b.Volume,
		}
	}
	return p.writeFile(p.path(key, "minute"), records)
}

// GetDaily implements Backend.
func (p *Parquet) GetDaily(_ context.Context, key Key) ([]marketdata.DailyBar, bool, error) {
	path := p.path(key, "daily")
	records, err := parquet.ReadFile[dailyRecord](path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("reading %s: %w", path, err)
	}

	bars := make([]marketdata.DailyBar, len(records))
	for i, r := range records {
		bars[i] = marketdata.DailyBar{
			Date:   time.UnixMilli(r.Date).UTC(),
			Open:   r.Open,
			Close:  r.Close,
			Volume: r.Volume,
		}
	}
	return bars, true, nil
}

// PutDaily implements Backend.
func (p *Parquet) PutDaily(_ context.Context, key Key, bars []marketdata.DailyBar) error {
	records := make([]dailyRecord, len(bars))
	for i, b := range bars {
		records[i] = dailyRecord{
			Date:   b.Date.UnixMilli(),
			Open:   b.Open,
			Close:  b.Close,
			Volume: b.Volume,
		}
	}
	return p.writeFile(p.path(key, "daily"), records)
}

func (p *Parquet) writeFile(path string, rows any) error {
	tmp := path + ".tmp"
	var err error
	switch records := rows.(type) {
	case []minuteRecord:
		err = parquet.WriteFile(tmp, records)
	case []dailyRecord:
		err = parquet.WriteFile(tmp, records)
	default:
		return fmt.Errorf("unsupported record type %T", rows)
	}
	if err != nil {
		os.Remove(tmp)
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("committing %s: %w", path, err)
	}
	return nil
}
