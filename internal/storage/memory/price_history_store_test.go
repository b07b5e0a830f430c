package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"smartmoney-lab/internal/domain"
	"smartmoney-lab/internal/storage"
)

func TestPriceHistoryStore_InsertBulkAndQuery(t *testing.T) {
	store := NewPriceHistoryStore()
	ctx := context.Background()

	points := []*domain.PriceObservation{
		{TokenMint: "m1", TimestampMs: 1000, Price: decimal.NewFromFloat(1.5)},
		{TokenMint: "m1", TimestampMs: 2000, Price: decimal.NewFromFloat(1.6)},
		{TokenMint: "m2", TimestampMs: 1500, Price: decimal.NewFromFloat(0.2)},
	}
	if err := store.InsertBulk(ctx, points); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetByTokensAndRange(ctx, []string{"m1", "m2"}, 0, 3000)
	if err != nil {
		t.Fatalf("GetByTokensAndRange failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(got))
	}
	// Ordered by (token, time).
	if got[0].TokenMint != "m1" || got[0].TimestampMs != 1000 {
		t.Errorf("First result should be m1@1000, got %s@%d", got[0].TokenMint, got[0].TimestampMs)
	}
	if got[2].TokenMint != "m2" {
		t.Errorf("Last result should be m2, got %s", got[2].TokenMint)
	}
}

func TestPriceHistoryStore_FiltersTokensAndWindow(t *testing.T) {
	store := NewPriceHistoryStore()
	ctx := context.Background()

	points := []*domain.PriceObservation{
		{TokenMint: "m1", TimestampMs: 1000, Price: decimal.NewFromInt(1)},
		{TokenMint: "m1", TimestampMs: 5000, Price: decimal.NewFromInt(2)},
		{TokenMint: "other", TimestampMs: 1000, Price: decimal.NewFromInt(3)},
	}
	if err := store.InsertBulk(ctx, points); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetByTokensAndRange(ctx, []string{"m1"}, 0, 2000)
	if err != nil {
		t.Fatalf("GetByTokensAndRange failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(got))
	}
	if got[0].TimestampMs != 1000 {
		t.Errorf("Expected the 1000ms observation, got %d", got[0].TimestampMs)
	}
}

func TestPriceHistoryStore_AllowsDuplicates(t *testing.T) {
	store := NewPriceHistoryStore()
	ctx := context.Background()

	p := &domain.PriceObservation{TokenMint: "m1", TimestampMs: 1000, Price: decimal.NewFromInt(1)}
	if err := store.InsertBulk(ctx, []*domain.PriceObservation{p, p}); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, _ := store.GetByTokensAndRange(ctx, []string{"m1"}, 0, 2000)
	if len(got) != 2 {
		t.Errorf("Raw observations are not deduplicated; expected 2, got %d", len(got))
	}
}

func TestPriceHistoryStore_InvalidInput(t *testing.T) {
	store := NewPriceHistoryStore()
	ctx := context.Background()

	err := store.InsertBulk(ctx, []*domain.PriceObservation{{TokenMint: ""}})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}
