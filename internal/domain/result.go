package domain

// Run lifecycle status. RUNNING transitions to exactly one of
// COMPLETED or FAILED; terminal states never transition again.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// BacktestResult is the terminal record of a run. Mutated only by the
// orchestrator; persisted once terminal.
type BacktestResult struct {
	RunID  string
	Config BacktestConfig
	Status string

	StartedAt   int64 // ms
	CompletedAt int64 // ms, zero while running
	DurationMs  int64

	TotalSignals   int
	SimulatedCount int

	Comparison  MetricsComparison
	Trades      []*SimulatedTrade
	Comparisons []*TradeComparison

	Error string // set only when Status == failed
}

// Progress is the live view of an in-flight run. It exists only in the
// in-memory registry while the run executes; never persisted.
type Progress struct {
	RunID            string
	Status           string
	SignalsProcessed int
	SignalsTotal     int
	Phase            string
	ElapsedSeconds   float64
	RemainingSeconds float64 // average-cost estimate, zero until known
}
