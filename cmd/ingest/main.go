// Package main ingests a historical dataset into the backing stores:
// wallet signals and realized outcomes into PostgreSQL, price
// observations into ClickHouse.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"smartmoney-lab/internal/domain"
	"smartmoney-lab/internal/observability"
	"smartmoney-lab/internal/solana"
	"smartmoney-lab/internal/storage"
	chstore "smartmoney-lab/internal/storage/clickhouse"
	"smartmoney-lab/internal/storage/migrations"
	pgstore "smartmoney-lab/internal/storage/postgres"
)

// priceBatchSize bounds one ClickHouse insert batch.
const priceBatchSize = 10000

func main() {
	inputPath := flag.String("input", "", "Dataset JSON file (required)")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("SMARTMONEY_POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("SMARTMONEY_CLICKHOUSE_DSN"), "ClickHouse connection string")
	migrate := flag.Bool("migrate", false, "Run schema migrations before ingesting")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")

	flag.Parse()

	logger := observability.NewLogger(*logLevel, "console")

	if *inputPath == "" {
		logger.Fatal().Msg("--input is required")
	}
	if *postgresDSN == "" {
		logger.Fatal().Msg("--postgres-dsn is required")
	}
	if *clickhouseDSN == "" {
		logger.Fatal().Msg("--clickhouse-dsn is required")
	}

	dataset, err := loadDataset(*inputPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("load dataset")
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

	conn, err := chstore.NewConn(ctx, *clickhouseDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect to clickhouse")
	}
	defer conn.Close()

	if *migrate {
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			logger.Fatal().Err(err).Msg("postgres migrations")
		}
		if err := migrations.RunClickhouseMigrations(ctx, conn); err != nil {
			logger.Fatal().Err(err).Msg("clickhouse migrations")
		}
		logger.Info().Msg("migrations applied")
	}

	ingester := &Ingester{
		signals:  pgstore.NewSignalStore(pool),
		outcomes: pgstore.NewTradeOutcomeStore(pool),
		prices:   chstore.NewPriceHistoryStore(conn),
		logger:   logger,
	}

	if err := ingester.Run(ctx, dataset); err != nil {
		logger.Fatal().Err(err).Msg("ingest failed")
	}
}

// datasetSignal is the wire shape of one signal, optionally carrying
// its realized outcome.
type datasetSignal struct {
	SignalID      string          `json:"signal_id"`
	Timestamp     int64           `json:"timestamp"`
	TokenMint     string          `json:"token_mint"`
	WalletAddress string          `json:"wallet_address"`
	Score         decimal.Decimal `json:"score"`

	Factors struct {
		WalletReputation   decimal.Decimal `json:"wallet_reputation"`
		TokenMetrics       decimal.Decimal `json:"token_metrics"`
		Liquidity          decimal.Decimal `json:"liquidity"`
		HolderDistribution decimal.Decimal `json:"holder_distribution"`
		Momentum           decimal.Decimal `json:"momentum"`
	} `json:"factors"`

	Outcome *struct {
		EntryPrice decimal.Decimal `json:"entry_price"`
		ExitPrice  decimal.Decimal `json:"exit_price"`
		PnL        decimal.Decimal `json:"pnl"`
		Win        bool            `json:"win"`
	} `json:"outcome"`
}

// datasetPrice is the wire shape of one price observation.
type datasetPrice struct {
	TokenMint   string          `json:"token_mint"`
	TimestampMs int64           `json:"timestamp_ms"`
	Price       decimal.Decimal `json:"price"`
}

// dataset is the full input file.
type dataset struct {
	Signals []datasetSignal `json:"signals"`
	Prices  []datasetPrice  `json:"prices"`
}

// loadDataset reads and decodes the input file.
func loadDataset(path string) (*dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", path, err)
	}

	var d dataset
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse dataset %s: %w", path, err)
	}
	return &d, nil
}

// Ingester writes a dataset into the stores.
type Ingester struct {
	signals  *pgstore.SignalStore
	outcomes *pgstore.TradeOutcomeStore
	prices   *chstore.PriceHistoryStore
	logger   zerolog.Logger
}

// Run ingests the dataset. Invalid records are skipped with a warning;
// duplicate signal ids are counted and skipped.
func (in *Ingester) Run(ctx context.Context, d *dataset) error {
	inserted, outcomes, skipped, duplicates := 0, 0, 0, 0

	for i := range d.Signals {
		sig := &d.Signals[i]

		if sig.SignalID == "" {
			in.logger.Warn().Int("index", i).Msg("skipping signal with empty id")
			skipped++
			continue
		}
		if err := solana.ValidateMint(sig.TokenMint); err != nil {
			in.logger.Warn().Str("signal_id", sig.SignalID).Err(err).Msg("skipping signal with bad token mint")
			skipped++
			continue
		}
		if err := solana.ValidateWallet(sig.WalletAddress); err != nil {
			in.logger.Warn().Str("signal_id", sig.SignalID).Err(err).Msg("skipping signal with bad wallet address")
			skipped++
			continue
		}

		row := &domain.SignalRow{
			SignalID:      sig.SignalID,
			Timestamp:     sig.Timestamp,
			TokenMint:     sig.TokenMint,
			WalletAddress: sig.WalletAddress,
			Score:         sig.Score,
			Factors: domain.FactorValues{
				WalletReputation:   sig.Factors.WalletReputation,
				TokenMetrics:       sig.Factors.TokenMetrics,
				Liquidity:          sig.Factors.Liquidity,
				HolderDistribution: sig.Factors.HolderDistribution,
				Momentum:           sig.Factors.Momentum,
			},
		}

		if err := in.signals.Insert(ctx, row); err != nil {
			if errors.Is(err, storage.ErrDuplicateKey) {
				duplicates++
				continue
			}
			return fmt.Errorf("insert signal %s: %w", sig.SignalID, err)
		}
		inserted++

		if sig.Outcome == nil {
			continue
		}
		outcome := &domain.TradeOutcome{
			SignalID:   sig.SignalID,
			EntryPrice: sig.Outcome.EntryPrice,
			ExitPrice:  sig.Outcome.ExitPrice,
			PnL:        sig.Outcome.PnL,
			Win:        sig.Outcome.Win,
		}
		if err := in.outcomes.Insert(ctx, outcome); err != nil {
			if errors.Is(err, storage.ErrDuplicateKey) {
				duplicates++
				continue
			}
			return fmt.Errorf("insert outcome for %s: %w", sig.SignalID, err)
		}
		outcomes++
	}

	points := make([]*domain.PriceObservation, 0, len(d.Prices))
	for i := range d.Prices {
		p := &d.Prices[i]
		if err := solana.ValidateMint(p.TokenMint); err != nil {
			in.logger.Warn().Str("token_mint", p.TokenMint).Err(err).Msg("skipping price with bad token mint")
			skipped++
			continue
		}
		points = append(points, &domain.PriceObservation{
			TokenMint:   p.TokenMint,
			TimestampMs: p.TimestampMs,
			Price:       p.Price,
		})
	}

	for start := 0; start < len(points); start += priceBatchSize {
		end := start + priceBatchSize
		if end > len(points) {
			end = len(points)
		}
		if err := in.prices.InsertBulk(ctx, points[start:end]); err != nil {
			return fmt.Errorf("insert price batch: %w", err)
		}
	}

	in.logger.Info().
		Int("signals", inserted).
		Int("outcomes", outcomes).
		Int("prices", len(points)).
		Int("skipped", skipped).
		Int("duplicates", duplicates).
		Msg("ingest complete")

	return nil
}
