package domain

import "github.com/shopspring/decimal"

// FactorValues holds the raw factor inputs a signal was scored from.
// Factors are stored on the 0-100 scale used by the live scorer.
type FactorValues struct {
	WalletReputation   decimal.Decimal
	TokenMetrics       decimal.Decimal
	Liquidity          decimal.Decimal
	HolderDistribution decimal.Decimal
	Momentum           decimal.Decimal
}

// PricePoint is one observation on a signal's forward price path.
type PricePoint struct {
	TimestampMs int64
	Price       decimal.Decimal
}

// HistoricalSignal joins a stored signal with its realized outcome (if
// any) and the price path observed after signal time. Built once by the
// loader; read-only downstream.
//
// Invariant: PricePath is time-ordered and every point's timestamp is
// >= Timestamp.
type HistoricalSignal struct {
	SignalID      string
	Timestamp     int64 // ms
	TokenMint     string
	WalletAddress string

	// Scoring
	Score   decimal.Decimal // original composite score (0-100)
	Factors FactorValues

	// Realized outcome
	ActuallyTraded   bool
	ActualEntryPrice decimal.Decimal // zero when not traded
	ActualExitPrice  decimal.Decimal // zero when not traded
	ActualPnL        decimal.Decimal // zero when not traded

	// Forward price data
	PriceAtSignal decimal.Decimal
	PricePath     []PricePoint // capped, ascending by time
	MaxPriceAfter decimal.Decimal
	MinPriceAfter decimal.Decimal
}

// SignalRow is the raw signal record returned by the signal store.
// Validated once at the load boundary; downstream stages rely on the
// joined HistoricalSignal instead.
type SignalRow struct {
	SignalID      string
	Timestamp     int64
	TokenMint     string
	WalletAddress string
	Score         decimal.Decimal
	Factors       FactorValues
}

// TradeOutcome is a realized trade matched to a signal.
type TradeOutcome struct {
	SignalID   string
	EntryPrice decimal.Decimal
	ExitPrice  decimal.Decimal
	PnL        decimal.Decimal
	Win        bool
}

// PriceObservation is one row from the price-history store.
type PriceObservation struct {
	TokenMint   string
	TimestampMs int64
	Price       decimal.Decimal
}
