// Package compare pairs each signal's actual outcome with its
// simulated outcome, surfacing behaviorally interesting deltas first.
package compare

import (
	"sort"

	"github.com/shopspring/decimal"

	"smartmoney-lab/internal/domain"
)

// pnlEpsilon is the materiality threshold for flagging a PnL delta.
var pnlEpsilon = decimal.NewFromFloat(0.01)

// Build emits one comparison row per original signal. A signal with no
// simulated trade means the proposed configuration would not trade it.
// Rows sort: changed trade/no-trade decisions first, then materially
// changed PnL, then timestamp for stability.
func Build(signals []*domain.HistoricalSignal, trades []*domain.SimulatedTrade) []*domain.TradeComparison {
	tradeByID := make(map[string]*domain.SimulatedTrade, len(trades))
	for _, t := range trades {
		tradeByID[t.SignalID] = t
	}

	rows := make([]*domain.TradeComparison, 0, len(signals))
	for _, s := range signals {
		row := &domain.TradeComparison{
			SignalID:     s.SignalID,
			Timestamp:    s.Timestamp,
			TokenMint:    s.TokenMint,
			ActualTraded: s.ActuallyTraded,
			ActualPnL:    s.ActualPnL,
			SimulatedPnL: decimal.Zero,
		}

		if t, ok := tradeByID[s.SignalID]; ok {
			row.SimulatedTraded = true
			row.SimulatedPnL = t.NetPnL
		}

		row.OutcomeChanged = row.ActualTraded != row.SimulatedTraded
		row.PnLChanged = row.ActualPnL.Sub(row.SimulatedPnL).Abs().GreaterThan(pnlEpsilon)

		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].OutcomeChanged != rows[j].OutcomeChanged {
			return rows[i].OutcomeChanged
		}
		if rows[i].PnLChanged != rows[j].PnLChanged {
			return rows[i].PnLChanged
		}
		if rows[i].Timestamp != rows[j].Timestamp {
			return rows[i].Timestamp < rows[j].Timestamp
		}
		return rows[i].SignalID < rows[j].SignalID
	})

	return rows
}
