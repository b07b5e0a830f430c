package postgres

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartmoney-lab/internal/domain"
	"smartmoney-lab/internal/storage"
)

func TestLiveConfigStore_UnsetReturnsNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewLiveConfigStore(pool)
	ctx := context.Background()

	_, err := store.GetWeights(ctx)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = store.GetThreshold(ctx)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = store.GetSizing(ctx)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = store.GetExitRules(ctx)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestLiveConfigStore_UpsertAndGetWeights(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewLiveConfigStore(pool)
	ctx := context.Background()

	weights := &domain.ScoringWeights{
		WalletReputation:   decimal.RequireFromString("0.30"),
		TokenMetrics:       decimal.RequireFromString("0.20"),
		Liquidity:          decimal.RequireFromString("0.20"),
		HolderDistribution: decimal.RequireFromString("0.10"),
		Momentum:           decimal.RequireFromString("0.20"),
	}

	err := store.UpsertWeights(ctx, weights)
	require.NoError(t, err)

	got, err := store.GetWeights(ctx)
	require.NoError(t, err)
	assert.True(t, weights.WalletReputation.Equal(got.WalletReputation))
	assert.True(t, weights.Momentum.Equal(got.Momentum))
}

func TestLiveConfigStore_UpsertOverwrites(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewLiveConfigStore(pool)
	ctx := context.Background()

	err := store.UpsertThreshold(ctx, &domain.Threshold{Score: decimal.NewFromInt(70)})
	require.NoError(t, err)

	err = store.UpsertThreshold(ctx, &domain.Threshold{Score: decimal.RequireFromString("82.5")})
	require.NoError(t, err)

	got, err := store.GetThreshold(ctx)
	require.NoError(t, err)
	assert.True(t, got.Score.Equal(decimal.RequireFromString("82.5")), "threshold: %s", got.Score)
}

func TestLiveConfigStore_SubConfigsAreIndependent(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewLiveConfigStore(pool)
	ctx := context.Background()

	sizing := &domain.PositionSizing{
		BaseSize:             decimal.NewFromInt(100),
		ConfidenceScaling:    true,
		ConfidenceMultiplier: decimal.RequireFromString("1.5"),
		MaxSize:              decimal.NewFromInt(500),
	}
	err := store.UpsertSizing(ctx, sizing)
	require.NoError(t, err)

	exits := &domain.ExitRules{
		StopLossPct:   decimal.RequireFromString("0.10"),
		TakeProfitPct: decimal.RequireFromString("0.25"),
		TrailingPct:   decimal.RequireFromString("0.05"),
		MaxHoldMs:     3600000,
	}
	err = store.UpsertExitRules(ctx, exits)
	require.NoError(t, err)

	gotSizing, err := store.GetSizing(ctx)
	require.NoError(t, err)
	assert.True(t, gotSizing.ConfidenceScaling)
	assert.True(t, gotSizing.MaxSize.Equal(decimal.NewFromInt(500)))

	gotExits, err := store.GetExitRules(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3600000), gotExits.MaxHoldMs)
	assert.True(t, gotExits.TakeProfitPct.Equal(decimal.RequireFromString("0.25")))

	// Writing sizing and exits leaves weights unset.
	_, err = store.GetWeights(ctx)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
