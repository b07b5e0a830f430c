package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"smartmoney-lab/internal/domain"
	"smartmoney-lab/internal/storage"
)

func TestSignalStore_InsertAndQuery(t *testing.T) {
	store := NewSignalStore()
	ctx := context.Background()

	r := &domain.SignalRow{
		SignalID:      "s1",
		Timestamp:     1000,
		TokenMint:     "mint1",
		WalletAddress: "wallet1",
		Score:         decimal.NewFromInt(75),
	}

	if err := store.Insert(ctx, r); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByTimeRange(ctx, 0, 2000)
	if err != nil {
		t.Fatalf("GetByTimeRange failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(got))
	}
	if got[0].SignalID != "s1" {
		t.Errorf("SignalID mismatch: got %s, want s1", got[0].SignalID)
	}
	if !got[0].Score.Equal(decimal.NewFromInt(75)) {
		t.Errorf("Score mismatch: got %s, want 75", got[0].Score)
	}
}

func TestSignalStore_DuplicateKey(t *testing.T) {
	store := NewSignalStore()
	ctx := context.Background()

	r := &domain.SignalRow{SignalID: "s1", Timestamp: 1000, TokenMint: "m", WalletAddress: "w"}

	if err := store.Insert(ctx, r); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}
	if err := store.Insert(ctx, r); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestSignalStore_InvalidInput(t *testing.T) {
	store := NewSignalStore()
	ctx := context.Background()

	if err := store.Insert(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for nil, got %v", err)
	}
	if err := store.Insert(ctx, &domain.SignalRow{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for empty id, got %v", err)
	}
}

func TestSignalStore_GetByTimeRange(t *testing.T) {
	store := NewSignalStore()
	ctx := context.Background()

	rows := []*domain.SignalRow{
		{SignalID: "s1", Timestamp: 1000, TokenMint: "m", WalletAddress: "w"},
		{SignalID: "s2", Timestamp: 2000, TokenMint: "m", WalletAddress: "w"},
		{SignalID: "s3", Timestamp: 3000, TokenMint: "m", WalletAddress: "w"},
		{SignalID: "s4", Timestamp: 4000, TokenMint: "m", WalletAddress: "w"},
	}
	for _, r := range rows {
		if err := store.Insert(ctx, r); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	// Bounds are inclusive.
	result, err := store.GetByTimeRange(ctx, 2000, 3000)
	if err != nil {
		t.Fatalf("GetByTimeRange failed: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(result))
	}
	if result[0].SignalID != "s2" || result[1].SignalID != "s3" {
		t.Errorf("Expected s2, s3 in timestamp order, got %s, %s", result[0].SignalID, result[1].SignalID)
	}
}

func TestSignalStore_ReturnsCopies(t *testing.T) {
	store := NewSignalStore()
	ctx := context.Background()

	if err := store.Insert(ctx, &domain.SignalRow{SignalID: "s1", Timestamp: 1000, TokenMint: "m", WalletAddress: "w"}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	first, _ := store.GetByTimeRange(ctx, 0, 2000)
	first[0].TokenMint = "mutated"

	second, _ := store.GetByTimeRange(ctx, 0, 2000)
	if second[0].TokenMint != "m" {
		t.Error("Stored row mutated through a returned copy")
	}
}

func TestSignalStore_QueryCount(t *testing.T) {
	store := NewSignalStore()
	ctx := context.Background()

	if got := store.QueryCount(); got != 0 {
		t.Errorf("Expected 0 queries, got %d", got)
	}
	store.GetByTimeRange(ctx, 0, 1000)
	store.GetByTimeRange(ctx, 0, 1000)
	if got := store.QueryCount(); got != 2 {
		t.Errorf("Expected 2 queries, got %d", got)
	}
}

func TestSignalStore_ConcurrentInserts(t *testing.T) {
	store := NewSignalStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			_ = store.Insert(ctx, &domain.SignalRow{
				SignalID:  string(rune('a'+id%26)) + string(rune('0'+id)),
				Timestamp: int64(id * 1000),
				TokenMint: "m",
			})
		}(i)
	}
	wg.Wait()
}
