package simulate

import (
	"testing"

	"github.com/shopspring/decimal"

	"smartmoney-lab/internal/domain"
)

func baseConfig() *domain.BacktestConfig {
	return &domain.BacktestConfig{
		StartTime:      0,
		EndTime:        10000,
		ScoreThreshold: d("70"),
		Sizing: domain.PositionSizing{
			BaseSize: d("100"),
			MaxSize:  d("500"),
		},
		Exits: domain.ExitRules{
			StopLossPct:   d("0.10"),
			TakeProfitPct: d("0.20"),
			TrailingPct:   d("0.05"),
			MaxHoldMs:     3600000,
		},
		SlippagePct: d("0.01"),
		GasCost:     d("0.5"),
	}
}

func tradableSignal(id string, score string) *domain.HistoricalSignal {
	return &domain.HistoricalSignal{
		SignalID:      id,
		Timestamp:     1000,
		TokenMint:     "mint",
		Score:         d(score),
		PriceAtSignal: d("100"),
		PricePath: []domain.PricePoint{
			pp(1000, "100"),
			pp(2000, "121"), // take-profit at +21%
		},
	}
}

func TestSimulateTrade_BelowThresholdSkipped(t *testing.T) {
	trade := SimulateTrade(tradableSignal("s1", "69.99"), baseConfig())

	if trade != nil {
		t.Errorf("expected nil trade below threshold, got %+v", trade)
	}
}

func TestSimulateTrade_AtThresholdTrades(t *testing.T) {
	// Score exactly at the threshold is tradable.
	trade := SimulateTrade(tradableSignal("s1", "70"), baseConfig())

	if trade == nil {
		t.Fatal("expected a trade at exact threshold")
	}
	if trade.ExitReason != domain.ExitReasonTakeProfit {
		t.Errorf("expected take_profit exit, got %s", trade.ExitReason)
	}
}

func TestSimulateTrade_NoPriceSkipped(t *testing.T) {
	sig := tradableSignal("s1", "90")
	sig.PriceAtSignal = decimal.Zero
	sig.PricePath = nil

	if trade := SimulateTrade(sig, baseConfig()); trade != nil {
		t.Errorf("expected nil trade without a usable entry price, got %+v", trade)
	}
}

func TestSimulateTrade_PnLArithmetic(t *testing.T) {
	// Entry 100, exit 121, size 100:
	//   gross    = 100 * (121-100)/100 = 21
	//   slippage = 100 * 0.01          = 1
	//   gas excluded by default        = 0
	//   net      = 20
	trade := SimulateTrade(tradableSignal("s1", "80"), baseConfig())

	if trade == nil {
		t.Fatal("expected a trade")
	}
	if !trade.GrossPnL.Equal(d("21")) {
		t.Errorf("expected gross 21, got %s", trade.GrossPnL)
	}
	if !trade.SlippageCost.Equal(d("1")) {
		t.Errorf("expected slippage 1, got %s", trade.SlippageCost)
	}
	if !trade.GasCost.IsZero() {
		t.Errorf("expected zero gas when excluded, got %s", trade.GasCost)
	}
	if !trade.NetPnL.Equal(d("20")) {
		t.Errorf("expected net 20, got %s", trade.NetPnL)
	}
	if !trade.Win {
		t.Error("expected win for positive net PnL")
	}
}

func TestSimulateTrade_GasIncluded(t *testing.T) {
	cfg := baseConfig()
	cfg.IncludeGas = true

	trade := SimulateTrade(tradableSignal("s1", "80"), cfg)

	if trade == nil {
		t.Fatal("expected a trade")
	}
	if !trade.GasCost.Equal(d("0.5")) {
		t.Errorf("expected gas 0.5, got %s", trade.GasCost)
	}
	if !trade.NetPnL.Equal(d("19.5")) {
		t.Errorf("expected net 19.5, got %s", trade.NetPnL)
	}
}

func TestSimulateTrade_ZeroNetIsNotWin(t *testing.T) {
	cfg := baseConfig()
	cfg.SlippagePct = d("0.21") // slippage exactly eats the 21% gross

	trade := SimulateTrade(tradableSignal("s1", "80"), cfg)

	if trade == nil {
		t.Fatal("expected a trade")
	}
	if !trade.NetPnL.IsZero() {
		t.Fatalf("expected zero net, got %s", trade.NetPnL)
	}
	if trade.Win {
		t.Error("zero net PnL must not count as a win")
	}
}

func TestPositionSize_FlatWithoutScaling(t *testing.T) {
	sizing := domain.PositionSizing{BaseSize: d("100"), MaxSize: d("500")}

	if size := positionSize(d("95"), sizing); !size.Equal(d("100")) {
		t.Errorf("expected flat base size 100, got %s", size)
	}
}

func TestPositionSize_ConfidenceScaling(t *testing.T) {
	sizing := domain.PositionSizing{
		BaseSize:             d("100"),
		ConfidenceScaling:    true,
		ConfidenceMultiplier: d("2"),
		MaxSize:              d("500"),
	}

	// 100 * (80/100) * 2 = 160
	if size := positionSize(d("80"), sizing); !size.Equal(d("160")) {
		t.Errorf("expected scaled size 160, got %s", size)
	}
}

func TestPositionSize_CappedAtMax(t *testing.T) {
	sizing := domain.PositionSizing{
		BaseSize:             d("100"),
		ConfidenceScaling:    true,
		ConfidenceMultiplier: d("10"),
		MaxSize:              d("500"),
	}

	// 100 * (90/100) * 10 = 900, capped at 500.
	if size := positionSize(d("90"), sizing); !size.Equal(d("500")) {
		t.Errorf("expected capped size 500, got %s", size)
	}
}

func TestSimulateAll_PreservesSignalOrder(t *testing.T) {
	cfg := baseConfig()
	signals := make([]*domain.HistoricalSignal, 0, 50)
	for i := 0; i < 50; i++ {
		score := "80"
		if i%3 == 0 {
			score = "10" // skipped
		}
		sig := tradableSignal(signalID(i), score)
		sig.Timestamp = int64(1000 + i)
		signals = append(signals, sig)
	}

	trades := SimulateAll(signals, cfg)

	expected := 0
	for i := 0; i < 50; i++ {
		if i%3 != 0 {
			expected++
		}
	}
	if len(trades) != expected {
		t.Fatalf("expected %d trades, got %d", expected, len(trades))
	}

	// Output preserves input signal order despite parallel workers.
	last := -1
	for _, tr := range trades {
		idx := signalIndex(tr.SignalID)
		if idx <= last {
			t.Fatalf("trade order violated: %d after %d", idx, last)
		}
		last = idx
	}
}

func TestSimulateAll_MatchesSequential(t *testing.T) {
	cfg := baseConfig()
	signals := make([]*domain.HistoricalSignal, 0, 30)
	for i := 0; i < 30; i++ {
		sig := tradableSignal(signalID(i), "80")
		sig.Timestamp = int64(1000 + i)
		signals = append(signals, sig)
	}

	parallel := SimulateAll(signals, cfg)

	sequential := make([]*domain.SimulatedTrade, 0, len(signals))
	for _, sig := range signals {
		if tr := SimulateTrade(sig, cfg); tr != nil {
			sequential = append(sequential, tr)
		}
	}

	if len(parallel) != len(sequential) {
		t.Fatalf("parallel %d trades vs sequential %d", len(parallel), len(sequential))
	}
	for i := range parallel {
		if parallel[i].SignalID != sequential[i].SignalID {
			t.Errorf("trade %d: id %s vs %s", i, parallel[i].SignalID, sequential[i].SignalID)
		}
		if !parallel[i].NetPnL.Equal(sequential[i].NetPnL) {
			t.Errorf("trade %d: net %s vs %s", i, parallel[i].NetPnL, sequential[i].NetPnL)
		}
	}
}

func TestSimulateAll_EmptyInput(t *testing.T) {
	if trades := SimulateAll(nil, baseConfig()); trades != nil {
		t.Errorf("expected nil for empty input, got %v", trades)
	}
}

// signalID formats a zero-padded id so lexical order matches index order.
func signalID(i int) string {
	return string([]byte{'s', byte('0' + i/10), byte('0' + i%10)})
}

// signalIndex reverses signalID.
func signalIndex(id string) int {
	return int(id[1]-'0')*10 + int(id[2]-'0')
}
