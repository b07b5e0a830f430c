// Package scoring recomputes composite signal scores under alternate
// weight vectors. All arithmetic is exact fixed-point so repeated runs
// over identical inputs never drift.
package scoring

import (
	"github.com/shopspring/decimal"

	"smartmoney-lab/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// Composite computes the weighted linear combination of a signal's
// factor values, scaled to 0-100 and rounded to 2 decimal places.
// Factors are already on the 0-100 scale, so weights are applied
// directly and the result is clamped to [0, 100].
func Composite(f domain.FactorValues, w domain.ScoringWeights) decimal.Decimal {
	score := f.WalletReputation.Mul(w.WalletReputation).
		Add(f.TokenMetrics.Mul(w.TokenMetrics)).
		Add(f.Liquidity.Mul(w.Liquidity)).
		Add(f.HolderDistribution.Mul(w.HolderDistribution)).
		Add(f.Momentum.Mul(w.Momentum)).
		Round(2)

	if score.IsNegative() {
		return decimal.Zero
	}
	if score.GreaterThan(hundred) {
		return hundred
	}
	return score
}

// Rescore returns a copy of the signal with only the score replaced by
// the composite under the given weights. Every other field, including
// the price path, is carried through unchanged.
func Rescore(sig *domain.HistoricalSignal, w domain.ScoringWeights) *domain.HistoricalSignal {
	rescored := *sig
	rescored.Score = Composite(sig.Factors, w)
	return &rescored
}
