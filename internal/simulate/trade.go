package simulate

import (
	"sync"

	"github.com/shopspring/decimal"

	"smartmoney-lab/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// defaultWorkers bounds the simulation worker pool. Per-signal
// simulation shares no mutable state, so the pool size only trades
// memory for throughput; outputs are identical at any size.
const defaultWorkers = 8

// SimulateTrade decides trade/no-trade for one rescored signal and, if
// trading, sizes the position, resolves the exit, and nets costs.
// Returns nil when the signal would not be traded: score strictly below
// threshold (a score exactly at threshold is tradable) or no usable
// price at signal time.
func SimulateTrade(sig *domain.HistoricalSignal, cfg *domain.BacktestConfig) *domain.SimulatedTrade {
	if sig.Score.LessThan(cfg.ScoreThreshold) {
		return nil
	}
	if sig.PriceAtSignal.IsZero() {
		return nil
	}

	size := positionSize(sig.Score, cfg.Sizing)
	exit := SimulateExit(sig.PriceAtSignal, sig.Timestamp, sig.PricePath, cfg.Exits)

	// gross = size * (exit - entry) / entry; entry is non-zero here.
	gross := size.Mul(exit.Price.Sub(sig.PriceAtSignal)).Div(sig.PriceAtSignal)
	slippage := size.Mul(cfg.SlippagePct)

	gas := decimal.Zero
	if cfg.IncludeGas {
		gas = cfg.GasCost
	}

	net := gross.Sub(slippage).Sub(gas)

	return &domain.SimulatedTrade{
		SignalID:       sig.SignalID,
		TokenMint:      sig.TokenMint,
		EntryTime:      sig.Timestamp,
		SimulatedScore: sig.Score,
		EntryPrice:     sig.PriceAtSignal,
		ExitPrice:      exit.Price,
		ExitTime:       exit.TimestampMs,
		ExitReason:     exit.Reason,
		PositionSize:   size,
		GrossPnL:       gross,
		SlippageCost:   slippage,
		GasCost:        gas,
		NetPnL:         net,
		Win:            net.IsPositive(),
	}
}

// SimulateAll simulates every signal through a worker pool and returns
// the produced trades in signal order. Skipped signals contribute no
// entry. Results match a sequential pass exactly.
func SimulateAll(signals []*domain.HistoricalSignal, cfg *domain.BacktestConfig) []*domain.SimulatedTrade {
	if len(signals) == 0 {
		return nil
	}

	workers := defaultWorkers
	if len(signals) < workers {
		workers = len(signals)
	}

	slots := make([]*domain.SimulatedTrade, len(signals))
	indexes := make(chan int)

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range indexes {
				slots[i] = SimulateTrade(signals[i], cfg)
			}
		}()
	}

	for i := range signals {
		indexes <- i
	}
	close(indexes)
	wg.Wait()

	trades := make([]*domain.SimulatedTrade, 0, len(signals))
	for _, t := range slots {
		if t != nil {
			trades = append(trades, t)
		}
	}
	return trades
}

// positionSize applies the sizing policy: base size, optionally scaled
// by (score/100) * multiplier and capped at max size.
func positionSize(score decimal.Decimal, sizing domain.PositionSizing) decimal.Decimal {
	if !sizing.ConfidenceScaling {
		return sizing.BaseSize
	}

	size := sizing.BaseSize.Mul(score.Div(hundred)).Mul(sizing.ConfidenceMultiplier)
	if size.GreaterThan(sizing.MaxSize) {
		return sizing.MaxSize
	}
	return size
}
