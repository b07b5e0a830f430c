// Package main applies the configuration of a completed backtest run
// to the live trading configuration.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"smartmoney-lab/internal/domain"
	"smartmoney-lab/internal/observability"
	"smartmoney-lab/internal/settings"
	pgstore "smartmoney-lab/internal/storage/postgres"
)

func main() {
	runID := flag.String("run-id", "", "Backtest run ID to apply (required)")
	applyWeights := flag.Bool("weights", false, "Apply scoring weights")
	applyThreshold := flag.Bool("threshold", false, "Apply score threshold")
	applySizing := flag.Bool("sizing", false, "Apply position sizing")
	applyExits := flag.Bool("exits", false, "Apply exit rules")
	all := flag.Bool("all", false, "Apply every settings group")
	confirm := flag.Bool("confirm", false, "Confirm the apply; refused without it")

	postgresDSN := flag.String("postgres-dsn", os.Getenv("SMARTMONEY_POSTGRES_DSN"), "PostgreSQL connection string")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")

	flag.Parse()

	logger := observability.NewLogger(*logLevel, "console")

	if *runID == "" {
		logger.Fatal().Msg("--run-id is required")
	}
	if *postgresDSN == "" {
		logger.Fatal().Msg("--postgres-dsn is required")
	}
	if *all {
		*applyWeights = true
		*applyThreshold = true
		*applySizing = true
		*applyExits = true
	}
	if !*applyWeights && !*applyThreshold && !*applySizing && !*applyExits {
		logger.Fatal().Msg("nothing selected: pass --weights, --threshold, --sizing, --exits or --all")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect to postgres")
	}
	defer pool.Close()

	applier := settings.NewApplier(pgstore.NewResultStore(pool), pgstore.NewLiveConfigStore(pool), logger)

	result, err := applier.Apply(ctx, domain.ApplyRequest{
		RunID:          *runID,
		ApplyWeights:   *applyWeights,
		ApplyThreshold: *applyThreshold,
		ApplySizing:    *applySizing,
		ApplyExitRules: *applyExits,
		Confirm:        *confirm,
	})
	if err != nil {
		// A refused or partial apply still carries a result worth showing.
		if result != nil {
			printResult(result)
		}
		logger.Fatal().Err(err).Msg("apply failed")
	}

	printResult(result)
}

// printResult outputs the audit trail of applied changes.
func printResult(r *domain.ApplyResult) {
	fmt.Printf("Run ID:   %s\n", r.RunID)
	fmt.Printf("Success:  %v\n", r.Success)
	if r.Error != "" {
		fmt.Printf("Error:    %s\n", r.Error)
	}

	for _, change := range r.Applied {
		previous := change.Previous
		if previous == "" {
			previous = "(unset)"
		}
		fmt.Printf("\n%s:\n", change.Field)
		fmt.Printf("  previous: %s\n", compactJSON(previous))
		fmt.Printf("  applied:  %s\n", compactJSON(change.Applied))
	}
}

// compactJSON re-encodes a JSON value without insignificant whitespace;
// non-JSON input passes through unchanged.
func compactJSON(s string) string {
	var v interface{}
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	out, err := json.Marshal(v)
	if err != nil {
		return s
	}
	return string(out)
}
