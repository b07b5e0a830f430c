package scoring

import (
	"testing"

	"github.com/shopspring/decimal"

	"smartmoney-lab/internal/domain"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func equalWeights() domain.ScoringWeights {
	return domain.ScoringWeights{
		WalletReputation:   d("0.2"),
		TokenMetrics:       d("0.2"),
		Liquidity:          d("0.2"),
		HolderDistribution: d("0.2"),
		Momentum:           d("0.2"),
	}
}

func TestComposite_WeightedSum(t *testing.T) {
	factors := domain.FactorValues{
		WalletReputation:   d("80"),
		TokenMetrics:       d("60"),
		Liquidity:          d("40"),
		HolderDistribution: d("20"),
		Momentum:           d("100"),
	}

	// 0.2*(80+60+40+20+100) = 60
	score := Composite(factors, equalWeights())

	if !score.Equal(d("60")) {
		t.Errorf("expected 60, got %s", score)
	}
}

func TestComposite_RoundsToTwoPlaces(t *testing.T) {
	factors := domain.FactorValues{WalletReputation: d("33.333")}
	weights := domain.ScoringWeights{WalletReputation: d("1")}

	if score := Composite(factors, weights); !score.Equal(d("33.33")) {
		t.Errorf("expected 33.33, got %s", score)
	}
}

func TestComposite_ClampsToRange(t *testing.T) {
	factors := domain.FactorValues{WalletReputation: d("100")}

	over := Composite(factors, domain.ScoringWeights{WalletReputation: d("2")})
	if !over.Equal(d("100")) {
		t.Errorf("expected clamp to 100, got %s", over)
	}

	under := Composite(factors, domain.ScoringWeights{WalletReputation: d("-1")})
	if !under.IsZero() {
		t.Errorf("expected clamp to 0, got %s", under)
	}
}

func TestComposite_Deterministic(t *testing.T) {
	// Exact decimal arithmetic: repeated evaluation never drifts.
	factors := domain.FactorValues{
		WalletReputation:   d("73.21"),
		TokenMetrics:       d("11.07"),
		Liquidity:          d("99.99"),
		HolderDistribution: d("0.01"),
		Momentum:           d("55.55"),
	}
	weights := domain.ScoringWeights{
		WalletReputation:   d("0.31"),
		TokenMetrics:       d("0.17"),
		Liquidity:          d("0.23"),
		HolderDistribution: d("0.09"),
		Momentum:           d("0.2"),
	}

	first := Composite(factors, weights)
	for i := 0; i < 100; i++ {
		if got := Composite(factors, weights); !got.Equal(first) {
			t.Fatalf("iteration %d drifted: %s vs %s", i, got, first)
		}
	}
}

func TestRescore_ReplacesOnlyScore(t *testing.T) {
	sig := &domain.HistoricalSignal{
		SignalID:       "s1",
		Timestamp:      1000,
		TokenMint:      "mint",
		WalletAddress:  "wallet",
		Score:          d("42"),
		Factors:        domain.FactorValues{WalletReputation: d("80")},
		ActuallyTraded: true,
		ActualPnL:      d("3"),
		PriceAtSignal:  d("1.5"),
		PricePath: []domain.PricePoint{
			{TimestampMs: 1000, Price: d("1.5")},
		},
	}

	rescored := Rescore(sig, domain.ScoringWeights{WalletReputation: d("1")})

	if !rescored.Score.Equal(d("80")) {
		t.Errorf("expected rescored 80, got %s", rescored.Score)
	}
	// Original untouched.
	if !sig.Score.Equal(d("42")) {
		t.Errorf("original score mutated to %s", sig.Score)
	}
	// Everything else carries through.
	if rescored.SignalID != sig.SignalID || rescored.Timestamp != sig.Timestamp {
		t.Error("identity fields not carried through")
	}
	if !rescored.ActualPnL.Equal(sig.ActualPnL) || !rescored.PriceAtSignal.Equal(sig.PriceAtSignal) {
		t.Error("outcome and price fields not carried through")
	}
	if len(rescored.PricePath) != 1 {
		t.Error("price path not carried through")
	}
}
