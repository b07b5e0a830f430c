package domain

// ApplyRequest selects which sub-configs of a completed run to promote
// into live configuration. Nothing is written unless Confirm is set.
type ApplyRequest struct {
	RunID string

	ApplyWeights   bool
	ApplyThreshold bool
	ApplySizing    bool
	ApplyExitRules bool

	Confirm bool
}

// AppliedChange records one promoted sub-config together with the live
// value it replaced, so a caller can revert manually.
type AppliedChange struct {
	Field    string
	Previous string
	Applied  string
}

// ApplyResult reports the outcome of a settings promotion. Promotion is
// a best-effort sequence of independent writes: on a mid-sequence
// failure Applied lists only the changes that actually happened and
// Error carries the failure.
type ApplyResult struct {
	RunID   string
	Success bool
	Applied []AppliedChange
	Error   string
}
