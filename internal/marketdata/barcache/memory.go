package barcache

import (
	"context"
	"sync"

	"almanac/internal/marketdata"
)

// Memory is an in-process cache backend. It is safe for concurrent use
// and returns copies so callers cannot mutate cached state.
type Memory struct {
	mu     sync.RWMutex
	minute map[string][]marketdata.MinuteBar
	daily  map[string][]marketdata.DailyBar
}

// NewMemory creates an empty in-memory backend
func NewMemory() *Memory {
	return &Memory{
		minute: make(map[string][]marketdata.MinuteBar),
		daily:  make(map[string][]marketdata.DailyBar),
	}
}

// Name implements Backend.
func (m *Memory) Name() string { return "memory" }

// GetMinute implements Backend.
func (m *Memory) GetMinute(_ context.Context, key Key) ([]marketdata.MinuteBar, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	bars, ok := m.minute[key.String()]
	if !ok {
		return nil, false, nil
	}
	out := make([]marketdata.MinuteBar, len(bars))
	copy(out, bars)
	return out, true, nil
}

// PutMinute implements Backend.
func (m *Memory) PutMinute(_ context.Context, key Key, bars []marketdata.MinuteBar) error {
	stored := make([]marketdata.MinuteBar, len(bars))
	copy(stored, bars)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.minute[key.String()] = stored
	return nil
}

// GetDaily implements Backend.
func (m *Memory) GetDaily(_ context.Context, key Key) ([]marketdata.DailyBar, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	bars, ok := m.daily[key.String()]
	if !ok {
		return nil, false, nil
	}
	out := make([]marketdata.DailyBar, len(bars))
	copy(out, bars)
	return out, true, nil
}

// PutDaily implements Backend.
func (m *Memory) PutDaily(_ context.Context, key Key, bars []marketdata.DailyBar) error {
	stored := make([]marketdata.DailyBar, len(bars))
	copy(stored, bars)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.daily[key.String()] = stored
	return nil
}
