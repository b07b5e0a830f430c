// Package settings promotes a completed run's configuration into live
// configuration, recording previous values for audit.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"smartmoney-lab/internal/domain"
	"smartmoney-lab/internal/observability"
	"smartmoney-lab/internal/storage"
)

// Apply refusal errors. A refusal writes nothing.
var (
	// ErrNoConfirmation is returned when the explicit confirmation flag is absent.
	ErrNoConfirmation = errors.New("apply refused: confirmation flag not set")

	// ErrRunNotFound is returned when the referenced run does not exist.
	ErrRunNotFound = errors.New("apply refused: run not found")

	// ErrRunNotCompleted is returned when the referenced run is not in a
	// completed state.
	ErrRunNotCompleted = errors.New("apply refused: run is not completed")
)

// Field names reported in applied changes.
const (
	FieldWeights   = "scoring_weights"
	FieldThreshold = "score_threshold"
	FieldSizing    = "position_sizing"
	FieldExitRules = "exit_rules"
)

// Applier promotes backtested sub-configs into the live config store.
type Applier struct {
	results storage.ResultStore
	live    storage.LiveConfigStore
	logger  zerolog.Logger
	metrics *observability.Metrics
}

// NewApplier creates a new Applier.
func NewApplier(results storage.ResultStore, live storage.LiveConfigStore, logger zerolog.Logger) *Applier {
	return &Applier{
		results: results,
		live:    live,
		logger:  logger,
	}
}

// WithMetrics attaches Prometheus metrics for apply accounting.
func (a *Applier) WithMetrics(m *observability.Metrics) *Applier {
	a.metrics = m
	return a
}

// refuse records the refusal reason and builds the error result.
func (a *Applier) refuse(result *domain.ApplyResult, reason string, err error) (*domain.ApplyResult, error) {
	if a.metrics != nil {
		a.metrics.ApplyRefusals.WithLabelValues(reason).Inc()
	}
	result.Error = err.Error()
	return result, err
}

// Apply promotes the selected sub-configs of a completed run. It
// refuses outright, writing nothing, without the confirmation flag or
// when the run is missing or not completed.
//
// Promotion is a best-effort sequence of independent writes, not one
// transaction: on a mid-sequence failure the returned result lists the
// changes that were already written plus the error, and reverting via
// the recorded previous values is the caller's responsibility.
func (a *Applier) Apply(ctx context.Context, req domain.ApplyRequest) (*domain.ApplyResult, error) {
	result := &domain.ApplyResult{RunID: req.RunID}

	if !req.Confirm {
		return a.refuse(result, "no_confirmation", ErrNoConfirmation)
	}

	run, err := a.results.GetByID(ctx, req.RunID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return a.refuse(result, "run_not_found", ErrRunNotFound)
		}
		return nil, fmt.Errorf("load run %s: %w", req.RunID, err)
	}
	if run.Status != domain.RunStatusCompleted {
		return a.refuse(result, "run_not_completed", ErrRunNotCompleted)
	}

	steps := a.selectSteps(req, &run.Config)
	for _, step := range steps {
		change, err := step(ctx)
		if err != nil {
			// Partial apply: report what was written, then stop.
			result.Error = err.Error()
			return result, fmt.Errorf("apply %s: %w", req.RunID, err)
		}
		result.Applied = append(result.Applied, change)
		if a.metrics != nil {
			a.metrics.SettingsApplied.WithLabelValues(change.Field).Inc()
		}
		a.logger.Info().Str("run_id", req.RunID).Str("field", change.Field).Msg("live config promoted")
	}

	result.Success = true
	return result, nil
}

// applyStep reads the current live value, records it, and writes the
// backtested value for one sub-config.
type applyStep func(ctx context.Context) (domain.AppliedChange, error)

// selectSteps builds the write sequence for the selected sub-configs;
// unrelated sub-configs are untouched.
func (a *Applier) selectSteps(req domain.ApplyRequest, cfg *domain.BacktestConfig) []applyStep {
	var steps []applyStep

	if req.ApplyWeights {
		steps = append(steps, func(ctx context.Context) (domain.AppliedChange, error) {
			previous, err := snapshot(a.live.GetWeights(ctx))
			if err != nil {
				return domain.AppliedChange{}, fmt.Errorf("read live weights: %w", err)
			}
			if err := a.live.UpsertWeights(ctx, &cfg.Weights); err != nil {
				return domain.AppliedChange{}, fmt.Errorf("write weights: %w", err)
			}
			return change(FieldWeights, previous, cfg.Weights), nil
		})
	}

	if req.ApplyThreshold {
		steps = append(steps, func(ctx context.Context) (domain.AppliedChange, error) {
			previous, err := snapshot(a.live.GetThreshold(ctx))
			if err != nil {
				return domain.AppliedChange{}, fmt.Errorf("read live threshold: %w", err)
			}
			threshold := domain.Threshold{Score: cfg.ScoreThreshold}
			if err := a.live.UpsertThreshold(ctx, &threshold); err != nil {
				return domain.AppliedChange{}, fmt.Errorf("write threshold: %w", err)
			}
			return change(FieldThreshold, previous, threshold), nil
		})
	}

	if req.ApplySizing {
		steps = append(steps, func(ctx context.Context) (domain.AppliedChange, error) {
			previous, err := snapshot(a.live.GetSizing(ctx))
			if err != nil {
				return domain.AppliedChange{}, fmt.Errorf("read live sizing: %w", err)
			}
			if err := a.live.UpsertSizing(ctx, &cfg.Sizing); err != nil {
				return domain.AppliedChange{}, fmt.Errorf("write sizing: %w", err)
			}
			return change(FieldSizing, previous, cfg.Sizing), nil
		})
	}

	if req.ApplyExitRules {
		steps = append(steps, func(ctx context.Context) (domain.AppliedChange, error) {
			previous, err := snapshot(a.live.GetExitRules(ctx))
			if err != nil {
				return domain.AppliedChange{}, fmt.Errorf("read live exit rules: %w", err)
			}
			if err := a.live.UpsertExitRules(ctx, &cfg.Exits); err != nil {
				return domain.AppliedChange{}, fmt.Errorf("write exit rules: %w", err)
			}
			return change(FieldExitRules, previous, cfg.Exits), nil
		})
	}

	return steps
}

// snapshot serializes the current live value for the audit record. An
// unset sub-config snapshots as the empty string.
func snapshot[T any](value *T, err error) (string, error) {
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// change builds an AppliedChange with the applied value serialized.
func change(field, previous string, applied any) domain.AppliedChange {
	raw, err := json.Marshal(applied)
	if err != nil {
		// Marshal of plain config structs cannot fail; keep the field.
		raw = []byte("{}")
	}
	return domain.AppliedChange{
		Field:    field,
		Previous: previous,
		Applied:  string(raw),
	}
}
