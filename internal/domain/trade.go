package domain

import "github.com/shopspring/decimal"

// SimulatedTrade is a counterfactual trade produced by replaying a
// signal under an alternate configuration. Exactly one exists per
// signal clearing the score threshold; absent otherwise.
type SimulatedTrade struct {
	SignalID       string
	TokenMint      string
	EntryTime      int64 // ms, equals the signal timestamp
	SimulatedScore decimal.Decimal

	EntryPrice decimal.Decimal
	ExitPrice  decimal.Decimal
	ExitTime   int64 // ms
	ExitReason string

	PositionSize decimal.Decimal
	GrossPnL     decimal.Decimal
	SlippageCost decimal.Decimal
	GasCost      decimal.Decimal
	NetPnL       decimal.Decimal
	Win          bool
}

// Exit reason codes, in evaluation priority order. A sample breaching
// both stop-loss and take-profit levels resolves to stop_loss.
const (
	ExitReasonStopLoss     = "stop_loss"
	ExitReasonTakeProfit   = "take_profit"
	ExitReasonTrailingStop = "trailing_stop"
	ExitReasonTimeLimit    = "time_limit"
	ExitReasonEndOfData    = "end_of_data"
	ExitReasonNoData       = "no_data"
)
