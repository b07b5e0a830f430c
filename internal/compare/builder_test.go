package compare

import (
	"testing"

	"github.com/shopspring/decimal"

	"smartmoney-lab/internal/domain"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func signal(id string, ts int64, traded bool, pnl string) *domain.HistoricalSignal {
	return &domain.HistoricalSignal{
		SignalID:       id,
		Timestamp:      ts,
		TokenMint:      "mint-" + id,
		ActuallyTraded: traded,
		ActualPnL:      d(pnl),
	}
}

func trade(signalID string, netPnL string) *domain.SimulatedTrade {
	return &domain.SimulatedTrade{SignalID: signalID, NetPnL: d(netPnL)}
}

func TestBuild_RowPerSignal(t *testing.T) {
	signals := []*domain.HistoricalSignal{
		signal("a", 1000, true, "5"),
		signal("b", 2000, false, "0"),
	}
	trades := []*domain.SimulatedTrade{trade("a", "5")}

	rows := Build(signals, trades)

	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
}

func TestBuild_UnsimulatedSignalHasZeroPnL(t *testing.T) {
	rows := Build([]*domain.HistoricalSignal{signal("a", 1000, false, "0")}, nil)

	row := rows[0]
	if row.SimulatedTraded {
		t.Error("expected SimulatedTraded false")
	}
	if !row.SimulatedPnL.IsZero() {
		t.Errorf("expected zero simulated PnL, got %s", row.SimulatedPnL)
	}
	if row.OutcomeChanged {
		t.Error("not traded either way, outcome should be unchanged")
	}
}

func TestBuild_OutcomeChanged(t *testing.T) {
	signals := []*domain.HistoricalSignal{
		signal("was-traded", 1000, true, "5"),  // traded live, skipped in sim
		signal("now-traded", 2000, false, "0"), // skipped live, traded in sim
	}
	trades := []*domain.SimulatedTrade{trade("now-traded", "3")}

	rows := Build(signals, trades)

	for _, row := range rows {
		if !row.OutcomeChanged {
			t.Errorf("%s: expected OutcomeChanged", row.SignalID)
		}
	}
}

func TestBuild_PnLChangedEpsilon(t *testing.T) {
	cases := []struct {
		name      string
		actual    string
		simulated string
		changed   bool
	}{
		{"identical", "5", "5", false},
		{"delta exactly epsilon", "5", "5.01", false},
		{"delta above epsilon", "5", "5.011", true},
		{"negative delta above epsilon", "5", "4.98", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			signals := []*domain.HistoricalSignal{signal("a", 1000, true, tc.actual)}
			trades := []*domain.SimulatedTrade{trade("a", tc.simulated)}

			row := Build(signals, trades)[0]
			if row.PnLChanged != tc.changed {
				t.Errorf("actual %s vs simulated %s: PnLChanged = %v, want %v",
					tc.actual, tc.simulated, row.PnLChanged, tc.changed)
			}
		})
	}
}

func TestBuild_SortOrder(t *testing.T) {
	// unchanged late, unchanged early, pnl-changed, outcome-changed.
	signals := []*domain.HistoricalSignal{
		signal("unchanged-late", 4000, true, "5"),
		signal("unchanged-early", 1000, true, "5"),
		signal("pnl-changed", 3000, true, "5"),
		signal("outcome-changed", 2000, true, "5"),
	}
	trades := []*domain.SimulatedTrade{
		trade("unchanged-late", "5"),
		trade("unchanged-early", "5"),
		trade("pnl-changed", "9"),
		// outcome-changed has no simulated trade.
	}

	rows := Build(signals, trades)

	want := []string{"outcome-changed", "pnl-changed", "unchanged-early", "unchanged-late"}
	for i, id := range want {
		if rows[i].SignalID != id {
			t.Errorf("position %d: got %s, want %s", i, rows[i].SignalID, id)
		}
	}
}

func TestBuild_TimestampTieBreaksOnSignalID(t *testing.T) {
	signals := []*domain.HistoricalSignal{
		signal("b", 1000, false, "0"),
		signal("a", 1000, false, "0"),
	}

	rows := Build(signals, nil)

	if rows[0].SignalID != "a" || rows[1].SignalID != "b" {
		t.Errorf("expected a then b, got %s then %s", rows[0].SignalID, rows[1].SignalID)
	}
}
