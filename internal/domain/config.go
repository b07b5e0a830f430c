package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Config validation errors.
var (
	// ErrInvalidWindow is returned when the window end precedes its start.
	ErrInvalidWindow = errors.New("invalid backtest window: end must be after start")

	// ErrInvalidInput is returned when config validation fails.
	ErrInvalidInput = errors.New("invalid input")
)

// ScoringWeights is the weight vector applied to signal factor values.
// Weights are expressed as decimal fractions; the composite score is
// scaled to 0-100.
type ScoringWeights struct {
	WalletReputation   decimal.Decimal
	TokenMetrics       decimal.Decimal
	Liquidity          decimal.Decimal
	HolderDistribution decimal.Decimal
	Momentum           decimal.Decimal
}

// Threshold is the live score-threshold record: signals scoring at or
// above it are tradable.
type Threshold struct {
	Score decimal.Decimal
}

// PositionSizing controls how a hypothetical position is sized.
type PositionSizing struct {
	BaseSize             decimal.Decimal
	ConfidenceScaling    bool
	ConfidenceMultiplier decimal.Decimal
	MaxSize              decimal.Decimal
}

// ExitRules defines the priority-ordered exit policy applied to a
// forward price path. Percentages are fractions (0.10 = 10%).
type ExitRules struct {
	StopLossPct   decimal.Decimal
	TakeProfitPct decimal.Decimal
	TrailingPct   decimal.Decimal
	MaxHoldMs     int64
}

// BacktestConfig is the full configuration a run executes under.
// Immutable once a run starts: the orchestrator copies it into the
// terminal result and never mutates it mid-run.
type BacktestConfig struct {
	StartTime int64 // window start (ms, inclusive)
	EndTime   int64 // window end (ms, inclusive)

	Weights        ScoringWeights
	ScoreThreshold decimal.Decimal
	Sizing         PositionSizing
	Exits          ExitRules

	SlippagePct decimal.Decimal
	GasCost     decimal.Decimal
	IncludeGas  bool
}

// Validate checks the config for input errors. Input errors fail fast
// and are never turned into a FAILED result.
func (c *BacktestConfig) Validate() error {
	if c.EndTime < c.StartTime {
		return ErrInvalidWindow
	}
	if c.ScoreThreshold.IsNegative() {
		return fmt.Errorf("%w: score threshold must be >= 0", ErrInvalidInput)
	}
	if c.Sizing.BaseSize.IsNegative() || c.Sizing.MaxSize.IsNegative() {
		return fmt.Errorf("%w: position sizes must be >= 0", ErrInvalidInput)
	}
	if c.SlippagePct.IsNegative() {
		return fmt.Errorf("%w: slippage must be >= 0", ErrInvalidInput)
	}
	if c.Exits.MaxHoldMs < 0 {
		return fmt.Errorf("%w: max hold duration must be >= 0", ErrInvalidInput)
	}
	return nil
}
