// Package simulate replays signals under a hypothetical configuration:
// trade/no-trade decisions, position sizing, and priority-ordered exit
// rules walked over each signal's forward price path.
package simulate

import (
	"github.com/shopspring/decimal"

	"smartmoney-lab/internal/domain"
)

var one = decimal.NewFromInt(1)

// ExitOutcome is the resolved exit of one simulated position.
type ExitOutcome struct {
	Price       decimal.Decimal
	TimestampMs int64
	Reason      string
}

// SimulateExit walks a forward price path applying the exit policy.
//
// Per path point, in time order:
//  1. elapsed >= max hold -> time_limit at the current price
//  2. peak ratchets up; trailing trigger = peak * (1 - trailing%)
//  3. fixed priority: stop-loss, then take-profit, then trailing stop
//     (trailing only once peak exceeds entry)
//
// A sample breaching stop-loss and take-profit simultaneously resolves
// to stop_loss: ties always go to loss protection. An exhausted path
// exits end_of_data at the last price; an empty path or zero entry
// price exits no_data flat at entry.
func SimulateExit(entryPrice decimal.Decimal, entryTime int64, path []domain.PricePoint, rules domain.ExitRules) ExitOutcome {
	if len(path) == 0 || entryPrice.IsZero() {
		return ExitOutcome{
			Price:       entryPrice,
			TimestampMs: entryTime,
			Reason:      domain.ExitReasonNoData,
		}
	}

	stopLevel := entryPrice.Mul(one.Sub(rules.StopLossPct))
	takeLevel := entryPrice.Mul(one.Add(rules.TakeProfitPct))
	peak := entryPrice

	for _, point := range path {
		if point.TimestampMs-entryTime >= rules.MaxHoldMs {
			return ExitOutcome{
				Price:       point.Price,
				TimestampMs: point.TimestampMs,
				Reason:      domain.ExitReasonTimeLimit,
			}
		}

		if point.Price.GreaterThan(peak) {
			peak = point.Price
		}
		trailingTrigger := peak.Mul(one.Sub(rules.TrailingPct))

		switch {
		case point.Price.LessThanOrEqual(stopLevel):
			return ExitOutcome{
				Price:       point.Price,
				TimestampMs: point.TimestampMs,
				Reason:      domain.ExitReasonStopLoss,
			}
		case point.Price.GreaterThanOrEqual(takeLevel):
			return ExitOutcome{
				Price:       point.Price,
				TimestampMs: point.TimestampMs,
				Reason:      domain.ExitReasonTakeProfit,
			}
		case point.Price.LessThanOrEqual(trailingTrigger) && peak.GreaterThan(entryPrice):
			return ExitOutcome{
				Price:       point.Price,
				TimestampMs: point.TimestampMs,
				Reason:      domain.ExitReasonTrailingStop,
			}
		}
	}

	last := path[len(path)-1]
	return ExitOutcome{
		Price:       last.Price,
		TimestampMs: last.TimestampMs,
		Reason:      domain.ExitReasonEndOfData,
	}
}
