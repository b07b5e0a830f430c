package backtest

import (
	"sync"

	"smartmoney-lab/internal/domain"
)

// ProgressRegistry tracks the live progress of in-flight runs. One
// writer (the running orchestration) updates a run's entry; concurrent
// readers poll it. Entries are stored and returned by value, so a
// reader sees an at-most-stale snapshot, never a half-written one.
//
// The registry is an explicitly owned instance injected per service
// process; there is no package-level singleton.
type ProgressRegistry struct {
	mu   sync.RWMutex
	runs map[string]domain.Progress
}

// NewProgressRegistry creates an empty registry.
func NewProgressRegistry() *ProgressRegistry {
	return &ProgressRegistry{
		runs: make(map[string]domain.Progress),
	}
}

// Set stores a progress snapshot for its run id.
func (r *ProgressRegistry) Set(p domain.Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[p.RunID] = p
}

// Get returns the latest snapshot for a run, if the run is live.
func (r *ProgressRegistry) Get(runID string) (domain.Progress, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.runs[runID]
	return p, ok
}

// Delete removes a run's entry once it reaches a terminal state.
func (r *ProgressRegistry) Delete(runID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.runs, runID)
}
