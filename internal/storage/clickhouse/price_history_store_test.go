package clickhouse

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartmoney-lab/internal/domain"
)

func TestPriceHistoryStore_InsertBulkAndQuery(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPriceHistoryStore(conn)
	ctx := context.Background()

	points := []*domain.PriceObservation{
		{TokenMint: "MintA", TimestampMs: 1000, Price: decimal.RequireFromString("0.000001523")},
		{TokenMint: "MintA", TimestampMs: 2000, Price: decimal.RequireFromString("0.000001987")},
		{TokenMint: "MintB", TimestampMs: 1500, Price: decimal.RequireFromString("12.5")},
	}

	err := store.InsertBulk(ctx, points)
	require.NoError(t, err)

	got, err := store.GetByTokensAndRange(ctx, []string{"MintA", "MintB"}, 0, 3000)
	require.NoError(t, err)
	require.Len(t, got, 3)

	// Ordered by (token, time).
	assert.Equal(t, "MintA", got[0].TokenMint)
	assert.Equal(t, int64(1000), got[0].TimestampMs)
	assert.True(t, got[0].Price.Equal(decimal.RequireFromString("0.000001523")), "price: %s", got[0].Price)
	assert.Equal(t, "MintB", got[2].TokenMint)
	assert.True(t, got[2].Price.Equal(decimal.RequireFromString("12.5")), "price: %s", got[2].Price)
}

func TestPriceHistoryStore_FiltersTokensAndWindow(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPriceHistoryStore(conn)
	ctx := context.Background()

	points := []*domain.PriceObservation{
		{TokenMint: "MintA", TimestampMs: 1000, Price: decimal.NewFromInt(1)},
		{TokenMint: "MintA", TimestampMs: 5000, Price: decimal.NewFromInt(2)},
		{TokenMint: "Other", TimestampMs: 1000, Price: decimal.NewFromInt(3)},
	}
	err := store.InsertBulk(ctx, points)
	require.NoError(t, err)

	// Window bounds are inclusive; unlisted tokens are excluded.
	got, err := store.GetByTokensAndRange(ctx, []string{"MintA"}, 1000, 2000)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1000), got[0].TimestampMs)
}

func TestPriceHistoryStore_EmptyInputs(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPriceHistoryStore(conn)
	ctx := context.Background()

	err := store.InsertBulk(ctx, nil)
	require.NoError(t, err)

	got, err := store.GetByTokensAndRange(ctx, nil, 0, 1000)
	require.NoError(t, err)
	assert.Empty(t, got)
}
