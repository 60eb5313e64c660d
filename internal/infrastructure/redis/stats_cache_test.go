package redisstore_test

import (
	"context"
	"math"
	"testing"
	"time"

	"cip-service/internal/cip"
	"cip-service/internal/domain"
	redisstore "cip-service/internal/infrastructure/redis"

	"github.com/stretchr/testify/require"
)

func sampleStats() *cip.Statistics {
	col := domain.AUD.DeviationColumn()
	return &cip.Statistics{
		Columns:     []string{col},
		Overall:     map[string]cip.Summary{col: {Count: 3, Mean: 1.5, Std: domain.Number(math.NaN())}},
		Correlation: [][]domain.Number{{1}},
		Annual:      map[string][]cip.YearSummary{col: {{Year: 2024, Count: 3, Mean: 1.5}}},
	}
}

func TestStatsCache_SetGet(t *testing.T) {
	_, client := newClient(t)
	cache := redisstore.NewStatsCache(client, time.Minute)
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, "stats:a")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, cache.Set(ctx, "stats:a", sampleStats()))
	got, ok, err := cache.Get(ctx, "stats:a")
	require.NoError(t, err)
	require.True(t, ok)
	s := got.Overall[domain.AUD.DeviationColumn()]
	require.Equal(t, 3, s.Count)
	require.Equal(t, 1.5, s.Mean.Float())
	require.True(t, math.IsNaN(s.Std.Float()))
}

func TestStatsCache_Expires(t *testing.T) {
	mr, client := newClient(t)
	cache := redisstore.NewStatsCache(client, time.Minute)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "stats:a", sampleStats()))
	mr.FastForward(2 * time.Minute)
	_, ok, err := cache.Get(ctx, "stats:a")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestStatsCache_Purge(t *testing.T) {
	mr, client := newClient(t)
	cache := redisstore.NewStatsCache(client, time.Minute)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "stats:a", sampleStats()))
	require.NoError(t, cache.Set(ctx, "stats:b", sampleStats()))
	require.NoError(t, mr.Set("idem:run:x", "1"))

	require.NoError(t, cache.Purge(ctx))
	_, ok, err := cache.Get(ctx, "stats:a")
	require.NoError(t, err)
	require.False(t, ok)
	require.True(t, mr.Exists("idem:run:x"))
}
