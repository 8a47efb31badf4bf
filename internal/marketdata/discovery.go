package marketdata

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"
)

// SymbolInfo describes one discovered instrument and the bar files
// backing it.
type SymbolInfo struct {
	Symbol    string    `json:"symbol"`
	HasMinute bool      `json:"has_minute"`
	HasDaily  bool      `json:"has_daily"`
	SizeBytes int64     `json:"size_bytes"`
	ModTime   time.Time `json:"mod_time"`
}

// DiscoverSymbols scans a data directory for per-symbol bar files and
// returns the instruments found, sorted by symbol. A symbol is reported
// when at least one of its minute or daily files exists. Unreadable
// entries are skipped.
func DiscoverSymbols(dir string) ([]SymbolInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading data directory %s: %w", dir, err)
	}

	bySymbol := make(map[string]*SymbolInfo)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		symbol, kind, ok := splitBarFileName(entry.Name())
		if !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}

		si, exists := bySymbol[symbol]
		if !exists {
			si = &SymbolInfo{Symbol: symbol}
			bySymbol[symbol] = si
		}
		switch kind {
		case "minute":
			si.HasMinute = true
		case "daily":
			si.HasDaily = true
		}
		si.SizeBytes += info.Size()
		if info.ModTime().After(si.ModTime) {
			si.ModTime = info.ModTime()
		}
	}

	out := make([]SymbolInfo, 0, len(bySymbol))
	for _, si := range bySymbol {
		out = append(out, *si)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

// splitBarFileName decomposes "<SYMBOL>_minute.csv" or
// "<SYMBOL>_daily.csv"; other names are rejected.
func splitBarFileName(name string) (symbol, kind string, ok bool) {
	base, found := strings.CutSuffix(name, ".csv")
	if !found {
		return "", "", false
	}
	idx := strings.LastIndex(base, "_")
	if idx <= 0 {
		return "", "", false
	}
	symbol, kind = base[:idx], base[idx+1:]
	if kind != "minute" && kind != "daily" {
		return "", "", false
	}
	return strings.ToUpper(symbol), kind, true
}
