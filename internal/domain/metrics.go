package domain

import "github.com/shopspring/decimal"

// PerformanceMetrics is a pure aggregate of a time-ordered trade list.
// The same formulas compute both the actual and the simulated side of a
// comparison; the two must never diverge.
type PerformanceMetrics struct {
	TotalTrades   int
	WinningTrades int
	LosingTrades  int

	TotalPnL    decimal.Decimal
	GrossProfit decimal.Decimal
	GrossLoss   decimal.Decimal // reported as a positive magnitude
	AvgWin      decimal.Decimal // zero when no winning trades
	AvgLoss     decimal.Decimal // zero when no losing trades
	WinRate     decimal.Decimal // zero when no trades

	MaxDrawdown          decimal.Decimal
	MaxConsecutiveLosses int
}

// MetricsComparison pairs the metrics of what actually happened with
// the metrics of what the simulated configuration would have done,
// computed independently over the same period.
type MetricsComparison struct {
	Actual    PerformanceMetrics
	Simulated PerformanceMetrics
}

// TradeComparison pairs a signal's actual outcome with its simulated
// outcome. Rows whose decisions diverge sort first.
type TradeComparison struct {
	SignalID  string
	Timestamp int64
	TokenMint string

	ActualTraded    bool
	SimulatedTraded bool
	ActualPnL       decimal.Decimal
	SimulatedPnL    decimal.Decimal

	OutcomeChanged bool // trade/no-trade decision differs
	PnLChanged     bool // PnL differs materially
}
