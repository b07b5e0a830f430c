// Package main runs a single counterfactual backtest from the command
// line and prints the resulting metrics comparison.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"smartmoney-lab/config"
	"smartmoney-lab/internal/backtest"
	"smartmoney-lab/internal/domain"
	"smartmoney-lab/internal/histdata"
	"smartmoney-lab/internal/observability"
	"smartmoney-lab/internal/storage"
	chstore "smartmoney-lab/internal/storage/clickhouse"
	"smartmoney-lab/internal/storage/memory"
	pgstore "smartmoney-lab/internal/storage/postgres"
)

var hundred = decimal.NewFromInt(100)

func main() {
	configPath := flag.String("config", "", "Backtest config YAML (required)")

	// Storage
	postgresDSN := flag.String("postgres-dsn", os.Getenv("SMARTMONEY_POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("SMARTMONEY_CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage")

	// Output
	outputJSON := flag.Bool("json", false, "Output the full result as JSON")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")

	flag.Parse()

	logger := observability.NewLogger(*logLevel, "console")

	if *configPath == "" {
		logger.Fatal().Msg("--config is required")
	}

	cfg, err := config.LoadBacktest(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("load backtest config")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
		cancel()
	}()

	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("create stores")
	}
	defer cleanup()

	loader := histdata.NewLoader(stores.signals, stores.outcomes, stores.prices, logger)
	registry := backtest.NewProgressRegistry()
	runner := backtest.NewRunner(loader, stores.results, registry, logger)

	logger.Info().
		Int64("start", cfg.StartTime).
		Int64("end", cfg.EndTime).
		Str("threshold", cfg.ScoreThreshold.String()).
		Msg("running backtest")

	result, err := runner.Run(ctx, *cfg, func(p domain.Progress) {
		logger.Info().
			Str("phase", p.Phase).
			Int("processed", p.SignalsProcessed).
			Int("total", p.SignalsTotal).
			Float64("remaining_s", p.RemainingSeconds).
			Msg("progress")
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("backtest failed")
	}
	if result.Status == domain.RunStatusFailed {
		logger.Fatal().Str("run_id", result.RunID).Str("error", result.Error).Msg("backtest failed")
	}

	if *outputJSON {
		output, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(output))
		return
	}

	printResult(result)
}

// runStores holds the storage implementations the backtest needs.
type runStores struct {
	signals  storage.SignalStore
	outcomes storage.TradeOutcomeStore
	prices   storage.PriceHistoryStore
	results  storage.ResultStore
}

// createStores wires either in-memory stores or PostgreSQL plus
// ClickHouse, returning a cleanup func for the connections.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool, logger zerolog.Logger) (*runStores, func(), error) {
	if useMemory {
		stores := &runStores{
			signals:  memory.NewSignalStore(),
			outcomes: memory.NewTradeOutcomeStore(),
			prices:   memory.NewPriceHistoryStore(),
			results:  memory.NewResultStore(),
		}
		return stores, func() {}, nil
	}

	if postgresDSN == "" {
		return nil, nil, fmt.Errorf("--postgres-dsn is required when not using --use-memory")
	}
	if clickhouseDSN == "" {
		return nil, nil, fmt.Errorf("--clickhouse-dsn is required when not using --use-memory")
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}

	conn, err := chstore.NewConn(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
	}

	stores := &runStores{
		signals:  pgstore.NewSignalStore(pool),
		outcomes: pgstore.NewTradeOutcomeStore(pool),
		prices:   chstore.NewPriceHistoryStore(conn),
		results:  pgstore.NewResultStore(pool),
	}

	cleanup := func() {
		conn.Close()
		pool.Close()
	}

	logger.Debug().Msg("connected to postgres and clickhouse")
	return stores, cleanup, nil
}

// printResult outputs a human-readable run summary.
func printResult(r *domain.BacktestResult) {
	fmt.Println()
	fmt.Println("=== Backtest Result ===")
	fmt.Printf("Run ID:             %s\n", r.RunID)
	fmt.Printf("Status:             %s\n", r.Status)
	fmt.Printf("Window:             %s .. %s\n",
		time.UnixMilli(r.Config.StartTime).UTC().Format(time.RFC3339),
		time.UnixMilli(r.Config.EndTime).UTC().Format(time.RFC3339))
	fmt.Printf("Duration:           %v\n", time.Duration(r.DurationMs)*time.Millisecond)
	fmt.Printf("Signals:            %d loaded, %d simulated trades\n", r.TotalSignals, r.SimulatedCount)
	fmt.Println()

	printMetrics("Actual", &r.Comparison.Actual)
	fmt.Println()
	printMetrics("Simulated", &r.Comparison.Simulated)

	changed := 0
	for _, c := range r.Comparisons {
		if c.OutcomeChanged {
			changed++
		}
	}
	fmt.Println()
	fmt.Printf("Outcome changes:    %d of %d signals\n", changed, len(r.Comparisons))
}

// printMetrics outputs one side of the comparison.
func printMetrics(label string, m *domain.PerformanceMetrics) {
	fmt.Printf("%s:\n", label)
	fmt.Printf("  Trades:           %d (%d wins, %d losses)\n", m.TotalTrades, m.WinningTrades, m.LosingTrades)
	fmt.Printf("  Total PnL:        %s\n", m.TotalPnL.StringFixed(4))
	fmt.Printf("  Gross Profit:     %s\n", m.GrossProfit.StringFixed(4))
	fmt.Printf("  Gross Loss:       %s\n", m.GrossLoss.StringFixed(4))
	fmt.Printf("  Win Rate:         %s%%\n", m.WinRate.Mul(hundred).StringFixed(2))
	fmt.Printf("  Avg Win / Loss:   %s / %s\n", m.AvgWin.StringFixed(4), m.AvgLoss.StringFixed(4))
	fmt.Printf("  Max Drawdown:     %s\n", m.MaxDrawdown.StringFixed(4))
	fmt.Printf("  Max Loss Streak:  %d\n", m.MaxConsecutiveLosses)
}
