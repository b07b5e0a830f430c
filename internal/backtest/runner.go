// Package backtest orchestrates counterfactual runs: load history,
// rescore, simulate, compute both performance ledgers, compare, and
// persist the terminal result.
package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"smartmoney-lab/internal/compare"
	"smartmoney-lab/internal/domain"
	"smartmoney-lab/internal/histdata"
	"smartmoney-lab/internal/observability"
	"smartmoney-lab/internal/perf"
	"smartmoney-lab/internal/scoring"
	"smartmoney-lab/internal/simulate"
	"smartmoney-lab/internal/storage"
)

// Phase labels reported through Progress.
const (
	PhaseLoading     = "loading signals"
	PhaseRescoring   = "rescoring signals"
	PhaseSimulating  = "simulating trades"
	PhaseMetrics     = "computing metrics"
	PhaseComparisons = "building comparisons"
	PhaseSaving      = "saving results"
)

// progressEvery bounds progress-callback overhead: during rescoring,
// progress is emitted every Nth signal rather than on every one.
const progressEvery = 10

// ProgressFunc receives progress snapshots at bounded intervals.
type ProgressFunc func(domain.Progress)

// Runner executes backtest runs. A run transitions RUNNING to exactly
// one of COMPLETED or FAILED and is never retried here.
type Runner struct {
	loader   *histdata.Loader
	results  storage.ResultStore
	registry *ProgressRegistry
	logger   zerolog.Logger
	metrics  *observability.Metrics
}

// NewRunner creates a new Runner.
func NewRunner(loader *histdata.Loader, results storage.ResultStore, registry *ProgressRegistry, logger zerolog.Logger) *Runner {
	return &Runner{
		loader:   loader,
		results:  results,
		registry: registry,
		logger:   logger,
	}
}

// WithMetrics attaches Prometheus metrics to the runner. Without it the
// runner records nothing.
func (r *Runner) WithMetrics(m *observability.Metrics) *Runner {
	r.metrics = m
	return r
}

// Run executes one backtest under cfg. Input errors fail fast with a
// non-nil error and no result. Any failure past validation yields a
// FAILED terminal result carrying the error text; the result, COMPLETED
// or FAILED, is persisted and the live progress entry deregistered
// either way. onProgress may be nil.
func (r *Runner) Run(ctx context.Context, cfg domain.BacktestConfig, onProgress ProgressFunc) (*domain.BacktestResult, error) {
	runID, err := r.start(cfg)
	if err != nil {
		return nil, err
	}
	return r.execute(ctx, runID, cfg, onProgress), nil
}

// RunAsync validates cfg, registers the run and returns its ID, then
// executes in a background goroutine. Progress is observable through
// GetProgress as soon as this returns.
func (r *Runner) RunAsync(ctx context.Context, cfg domain.BacktestConfig, onProgress ProgressFunc) (string, error) {
	runID, err := r.start(cfg)
	if err != nil {
		return "", err
	}
	go r.execute(ctx, runID, cfg, onProgress)
	return runID, nil
}

// start validates cfg and registers a fresh run in the progress
// registry.
func (r *Runner) start(cfg domain.BacktestConfig) (string, error) {
	if err := cfg.Validate(); err != nil {
		return "", err
	}

	runID := uuid.NewString()
	r.registry.Set(domain.Progress{
		RunID:  runID,
		Status: domain.RunStatusRunning,
		Phase:  PhaseLoading,
	})
	return runID, nil
}

// execute runs all phases for an already-registered run.
func (r *Runner) execute(ctx context.Context, runID string, cfg domain.BacktestConfig, onProgress ProgressFunc) *domain.BacktestResult {
	startedAt := time.Now()

	if r.metrics != nil {
		r.metrics.RunsInFlight.Inc()
		defer r.metrics.RunsInFlight.Dec()
	}

	result := &domain.BacktestResult{
		RunID:     runID,
		Config:    cfg,
		Status:    domain.RunStatusRunning,
		StartedAt: startedAt.UnixMilli(),
	}

	progress := domain.Progress{
		RunID:  runID,
		Status: domain.RunStatusRunning,
		Phase:  PhaseLoading,
	}
	defer r.registry.Delete(runID)

	r.logger.Info().Str("run_id", runID).
		Int64("start", cfg.StartTime).Int64("end", cfg.EndTime).
		Msg("backtest run started")

	signals, err := r.loader.Load(ctx, cfg.StartTime, cfg.EndTime)
	if err != nil {
		return r.fail(ctx, result, startedAt, fmt.Errorf("load historical signals: %w", err))
	}

	result.TotalSignals = len(signals)
	progress.SignalsTotal = len(signals)
	if r.metrics != nil {
		r.metrics.SignalsLoaded.Add(float64(len(signals)))
	}

	// Rescore with bounded progress emission and an average-cost
	// estimate of remaining time.
	progress.Phase = PhaseRescoring
	rescored := make([]*domain.HistoricalSignal, len(signals))
	for i, sig := range signals {
		rescored[i] = scoring.Rescore(sig, cfg.Weights)

		processed := i + 1
		if processed%progressEvery == 0 || processed == len(signals) {
			elapsed := time.Since(startedAt).Seconds()
			progress.SignalsProcessed = processed
			progress.ElapsedSeconds = elapsed
			progress.RemainingSeconds = estimateRemaining(elapsed, processed, len(signals))
			r.emit(progress, onProgress)
		}
	}

	progress.Phase = PhaseSimulating
	r.emit(progress, onProgress)
	trades := simulate.SimulateAll(rescored, &cfg)
	result.Trades = trades
	result.SimulatedCount = len(trades)
	if r.metrics != nil {
		r.metrics.TradesSimulated.Add(float64(len(trades)))
	}

	progress.Phase = PhaseMetrics
	r.emit(progress, onProgress)
	result.Comparison = domain.MetricsComparison{
		Actual:    perf.Compute(perf.FromActual(signals)),
		Simulated: perf.Compute(perf.FromSimulated(trades)),
	}

	progress.Phase = PhaseComparisons
	r.emit(progress, onProgress)
	result.Comparisons = compare.Build(signals, trades)

	progress.Phase = PhaseSaving
	r.emit(progress, onProgress)

	completedAt := time.Now()
	result.Status = domain.RunStatusCompleted
	result.CompletedAt = completedAt.UnixMilli()
	result.DurationMs = completedAt.Sub(startedAt).Milliseconds()

	if err := r.results.Insert(ctx, result); err != nil {
		return r.fail(ctx, result, startedAt, fmt.Errorf("persist result: %w", err))
	}

	r.logger.Info().Str("run_id", runID).
		Int("signals", result.TotalSignals).Int("trades", result.SimulatedCount).
		Int64("duration_ms", result.DurationMs).
		Msg("backtest run completed")

	r.recordTerminal(result)
	return result
}

// recordTerminal records the terminal status and duration of a run.
func (r *Runner) recordTerminal(result *domain.BacktestResult) {
	if r.metrics == nil {
		return
	}
	r.metrics.RunsTotal.WithLabelValues(result.Status).Inc()
	r.metrics.RunDuration.Observe(float64(result.DurationMs) / 1000)
}

// GetProgress returns the live progress of a run, if any.
func (r *Runner) GetProgress(runID string) (domain.Progress, bool) {
	return r.registry.Get(runID)
}

// fail finalizes a run as FAILED, preserving the underlying error
// text, and persists the terminal result best effort.
func (r *Runner) fail(ctx context.Context, result *domain.BacktestResult, startedAt time.Time, cause error) *domain.BacktestResult {
	completedAt := time.Now()
	result.Status = domain.RunStatusFailed
	result.Error = cause.Error()
	result.CompletedAt = completedAt.UnixMilli()
	result.DurationMs = completedAt.Sub(startedAt).Milliseconds()

	r.logger.Error().Str("run_id", result.RunID).Err(cause).Msg("backtest run failed")

	if err := r.results.Insert(ctx, result); err != nil {
		r.logger.Error().Str("run_id", result.RunID).Err(err).Msg("persist failed result")
	}

	r.recordTerminal(result)
	return result
}

// emit pushes a snapshot to the registry and the optional callback.
func (r *Runner) emit(p domain.Progress, onProgress ProgressFunc) {
	r.registry.Set(p)
	if onProgress != nil {
		onProgress(p)
	}
}

// estimateRemaining projects remaining seconds from the average
// per-signal cost so far. Zero until at least one signal is processed.
func estimateRemaining(elapsedSeconds float64, processed, total int) float64 {
	if processed == 0 || total <= processed {
		return 0
	}
	avg := elapsedSeconds / float64(processed)
	return avg * float64(total-processed)
}
