package barcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"almanac/internal/marketdata"
)

func testKey() Key {
	return Key{
		Symbol: "GC",
		Start:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:    time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
	}
}

func testMinuteBars() []marketdata.MinuteBar {
	return []marketdata.MinuteBar{
		{Time: time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC), Open: 100, High: 101, Low: 99, Close: 100.5, Volume: 1200},
		{Time: time.Date(2024, 1, 2, 9, 31, 0, 0, time.UTC), Open: 100.5, High: 102, Low: 100, Close: 101, Volume: 900},
	}
}

// failingBackend simulates a broken tier
type failingBackend struct{ Noop }

func (failingBackend) Name() string { return "failing" }

func (failingBackend) GetMinute(context.Context, Key) ([]marketdata.MinuteBar, bool, error) {
	return nil, false, errors.New("backend unavailable")
}

func TestKeyString(t *testing.T) {
	key := Key{
		Symbol: "ES",
		Start:  time.Date(2024, 3, 1, 15, 4, 5, 0, time.UTC),
		End:    time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
	}
	assert.Equal(t, "ES_20240301_20240331", key.String(),
		"intraday components must not leak into the key")
}

func TestMemoryBackend(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	key := testKey()

	_, ok, err := mem.GetMinute(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	bars := testMinuteBars()
	require.NoError(t, mem.PutMinute(ctx, key, bars))

	got, ok, err := mem.GetMinute(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, bars, got)

	t.Run("returned slice is a copy", func(t *testing.T) {
		got[0].Open = -1
		again, ok, err := mem.GetMinute(ctx, key)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, 100.0, again[0].Open)
	})

	t.Run("daily bars are keyed independently", func(t *testing.T) {
		daily := []marketdata.DailyBar{{Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Open: 100, Close: 101, Volume: 50000}}
		require.NoError(t, mem.PutDaily(ctx, key, daily))

		got, ok, err := mem.GetDaily(ctx, key)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, daily, got)
	})
}

func TestChain(t *testing.T) {
	ctx := context.Background()
	key := testKey()
	bars := testMinuteBars()

	t.Run("hit at a lower tier is promoted upward", func(t *testing.T) {
		fast, slow := NewMemory(), NewMemory()
		require.NoError(t, slow.PutMinute(ctx, key, bars))

		chain := NewChain(nil, fast, slow)
		got, ok, results := chain.GetMinute(ctx, key)
		require.True(t, ok)
		assert.Equal(t, bars, got)

		require.Len(t, results, 2)
		assert.False(t, results[0].Hit)
		assert.True(t, results[1].Hit)

		_, ok, err := fast.GetMinute(ctx, key)
		require.NoError(t, err)
		assert.True(t, ok, "hit must be promoted into the faster tier")
	})

	t.Run("failing tier is skipped, not fatal", func(t *testing.T) {
		slow := NewMemory()
		require.NoError(t, slow.PutMinute(ctx, key, bars))

		chain := NewChain(nil, failingBackend{}, slow)
		got, ok, results := chain.GetMinute(ctx, key)
		require.True(t, ok)
		assert.Equal(t, bars, got)

		require.Len(t, results, 2)
		assert.Error(t, results[0].Err)
		assert.True(t, results[1].Hit)
	})

	t.Run("full miss reports every tier", func(t *testing.T) {
		chain := NewChain(nil, NewMemory(), Noop{})
		_, ok, results := chain.GetMinute(ctx, key)
		assert.False(t, ok)
		require.Len(t, results, 2)
		assert.Equal(t, []string{"memory", "noop"}, chain.Backends())
	})

	t.Run("put fans out to every tier", func(t *testing.T) {
		fast, slow := NewMemory(), NewMemory()
		chain := NewChain(nil, fast, slow)
		require.NoError(t, chain.PutMinute(ctx, key, bars))

		for _, tier := range []*Memory{fast, slow} {
			_, ok, err := tier.GetMinute(ctx, key)
			require.NoError(t, err)
			assert.True(t, ok)
		}
	})
}

// countingSource counts loads so tests can assert cache effectiveness
type countingSource struct {
	inner       marketdata.BarSource
	minuteLoads int
	dailyLoads  int
}

func (c *countingSource) LoadMinuteBars(ctx context.Context, symbol string, start, end time.Time) ([]marketdata.MinuteBar, error) {
	c.minuteLoads++
	return c.inner.LoadMinuteBars(ctx, symbol, start, end)
}

func (c *countingSource) LoadDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]marketdata.DailyBar, error) {
	c.dailyLoads++
	return c.inner.LoadDailyBars(ctx, symbol, start, end)
}

func TestCachingSource(t *testing.T) {
	ctx := context.Background()
	key := testKey()
	bars := testMinuteBars()

	mem := marketdata.NewMemorySource()
	mem.AddMinuteBars("GC", bars)

	counted := &countingSource{inner: mem}
	source := NewCachingSource(counted, NewChain(nil, NewMemory()), nil)

	first, err := source.LoadMinuteBars(ctx, "GC", key.Start, key.End)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, 1, counted.minuteLoads)

	second, err := source.LoadMinuteBars(ctx, "GC", key.Start, key.End)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, counted.minuteLoads, "repeat load must be served by the cache")
}
