package backtest

import (
	"context"

	"smartmoney-lab/internal/domain"
	"smartmoney-lab/internal/histdata"
	"smartmoney-lab/internal/settings"
	"smartmoney-lab/internal/storage"
)

// Service is the engine's produced interface: run a backtest, poll its
// progress, promote a completed run's settings, clear the loader cache.
type Service struct {
	loader  *histdata.Loader
	runner  *Runner
	applier *settings.Applier
	results storage.ResultStore
}

// NewService creates a new Service.
func NewService(loader *histdata.Loader, runner *Runner, applier *settings.Applier, results storage.ResultStore) *Service {
	return &Service{
		loader:  loader,
		runner:  runner,
		applier: applier,
		results: results,
	}
}

// Run executes a backtest; see Runner.Run.
func (s *Service) Run(ctx context.Context, cfg domain.BacktestConfig, onProgress ProgressFunc) (*domain.BacktestResult, error) {
	return s.runner.Run(ctx, cfg, onProgress)
}

// RunAsync starts a backtest in the background; see Runner.RunAsync.
func (s *Service) RunAsync(ctx context.Context, cfg domain.BacktestConfig, onProgress ProgressFunc) (string, error) {
	return s.runner.RunAsync(ctx, cfg, onProgress)
}

// GetResult returns the terminal result of a run.
func (s *Service) GetResult(ctx context.Context, runID string) (*domain.BacktestResult, error) {
	return s.results.GetByID(ctx, runID)
}

// GetProgress returns the live progress of a run, if any.
func (s *Service) GetProgress(runID string) (domain.Progress, bool) {
	return s.runner.GetProgress(runID)
}

// ApplySettings promotes a completed run's settings; see Applier.Apply.
func (s *Service) ApplySettings(ctx context.Context, req domain.ApplyRequest) (*domain.ApplyResult, error) {
	return s.applier.Apply(ctx, req)
}

// ClearCache drops the loader's memoized signal sets.
func (s *Service) ClearCache() {
	s.loader.ClearCache()
}
