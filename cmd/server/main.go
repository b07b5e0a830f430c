// Package main serves the backtest engine over HTTP: start runs, poll
// or stream their progress, fetch results, and promote a completed
// run's settings into live configuration.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"smartmoney-lab/config"
	"smartmoney-lab/internal/backtest"
	"smartmoney-lab/internal/domain"
	"smartmoney-lab/internal/histdata"
	"smartmoney-lab/internal/observability"
	"smartmoney-lab/internal/settings"
	"smartmoney-lab/internal/storage"
	chstore "smartmoney-lab/internal/storage/clickhouse"
	"smartmoney-lab/internal/storage/memory"
	"smartmoney-lab/internal/storage/migrations"
	pgstore "smartmoney-lab/internal/storage/postgres"
)

// wsPollInterval is how often the progress websocket samples the
// registry between pushes.
const wsPollInterval = 500 * time.Millisecond

func main() {
	configPath := flag.String("config", "config.yaml", "Service config YAML")
	addr := flag.String("addr", "", "Listen address, overrides config")
	migrate := flag.Bool("migrate", false, "Run schema migrations on startup")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	logger := observability.NewLogger(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores, cleanup, err := createStores(ctx, cfg, *migrate, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("create stores")
	}
	defer cleanup()

	metrics := observability.NewMetrics("")

	loader := histdata.NewLoader(stores.signals, stores.outcomes, stores.prices, logger).WithMetrics(metrics)
	registry := backtest.NewProgressRegistry()
	runner := backtest.NewRunner(loader, stores.results, registry, logger).WithMetrics(metrics)
	applier := settings.NewApplier(stores.results, stores.live, logger).WithMetrics(metrics)
	service := backtest.NewService(loader, runner, applier, stores.results)

	server := &Server{
		service: service,
		metrics: metrics,
		logger:  logger,
		runCtx:  ctx,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: server.routes(),
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("http shutdown")
		}
	}()

	logger.Info().Str("addr", cfg.Server.Addr).Msg("server listening")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("http server")
	}
	logger.Info().Msg("shutdown complete")
}

// serviceStores holds the storage implementations the server needs.
type serviceStores struct {
	signals  storage.SignalStore
	outcomes storage.TradeOutcomeStore
	prices   storage.PriceHistoryStore
	results  storage.ResultStore
	live     storage.LiveConfigStore
}

// createStores wires either in-memory stores or PostgreSQL plus
// ClickHouse, optionally running migrations first.
func createStores(ctx context.Context, cfg *config.Config, migrate bool, logger zerolog.Logger) (*serviceStores, func(), error) {
	if cfg.Storage.UseMemory {
		stores := &serviceStores{
			signals:  memory.NewSignalStore(),
			outcomes: memory.NewTradeOutcomeStore(),
			prices:   memory.NewPriceHistoryStore(),
			results:  memory.NewResultStore(),
			live:     memory.NewLiveConfigStore(),
		}
		return stores, func() {}, nil
	}

	if cfg.Storage.PostgresDSN == "" || cfg.Storage.ClickhouseDSN == "" {
		return nil, nil, fmt.Errorf("postgres and clickhouse DSNs are required unless storage.use_memory is set")
	}

	pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}

	conn, err := chstore.NewConn(ctx, cfg.Storage.ClickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
	}

	cleanup := func() {
		conn.Close()
		pool.Close()
	}

	if migrate {
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("postgres migrations: %w", err)
		}
		if err := migrations.RunClickhouseMigrations(ctx, conn); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		logger.Info().Msg("migrations applied")
	}

	stores := &serviceStores{
		signals:  pgstore.NewSignalStore(pool),
		outcomes: pgstore.NewTradeOutcomeStore(pool),
		prices:   chstore.NewPriceHistoryStore(conn),
		results:  pgstore.NewResultStore(pool),
		live:     pgstore.NewLiveConfigStore(pool),
	}
	return stores, cleanup, nil
}

// Server exposes the backtest service over HTTP.
type Server struct {
	service  *backtest.Service
	metrics  *observability.Metrics
	logger   zerolog.Logger
	runCtx   context.Context
	upgrader websocket.Upgrader
}

// routes builds the HTTP router.
func (s *Server) routes() http.Handler {
	r := mux.NewRouter()
	r.Use(s.instrument)

	r.HandleFunc("/api/runs", s.handleCreateRun).Methods(http.MethodPost)
	r.HandleFunc("/api/runs/{id}", s.handleGetRun).Methods(http.MethodGet)
	r.HandleFunc("/api/runs/{id}/progress", s.handleGetProgress).Methods(http.MethodGet)
	r.HandleFunc("/ws/runs/{id}/progress", s.handleProgressWS).Methods(http.MethodGet)
	r.HandleFunc("/api/settings/apply", s.handleApply).Methods(http.MethodPost)
	r.HandleFunc("/api/cache/clear", s.handleClearCache).Methods(http.MethodPost)

	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	r.Handle("/metrics", observability.Handler()).Methods(http.MethodGet)

	return r
}

// instrument records request durations per route template and method.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)

		route := "unmatched"
		if current := mux.CurrentRoute(r); current != nil {
			if tpl, err := current.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		s.metrics.RequestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

// runRequest is the wire shape of a backtest config. Decimal fields
// accept JSON numbers or strings.
type runRequest struct {
	StartTime int64 `json:"start_time"`
	EndTime   int64 `json:"end_time"`

	Weights struct {
		WalletReputation   decimal.Decimal `json:"wallet_reputation"`
		TokenMetrics       decimal.Decimal `json:"token_metrics"`
		Liquidity          decimal.Decimal `json:"liquidity"`
		HolderDistribution decimal.Decimal `json:"holder_distribution"`
		Momentum           decimal.Decimal `json:"momentum"`
	} `json:"weights"`

	ScoreThreshold decimal.Decimal `json:"score_threshold"`

	Sizing struct {
		BaseSize             decimal.Decimal `json:"base_size"`
		ConfidenceScaling    bool            `json:"confidence_scaling"`
		ConfidenceMultiplier decimal.Decimal `json:"confidence_multiplier"`
		MaxSize              decimal.Decimal `json:"max_size"`
	} `json:"sizing"`

	Exits struct {
		StopLossPct   decimal.Decimal `json:"stop_loss_pct"`
		TakeProfitPct decimal.Decimal `json:"take_profit_pct"`
		TrailingPct   decimal.Decimal `json:"trailing_pct"`
		MaxHoldMs     int64           `json:"max_hold_ms"`
	} `json:"exits"`

	SlippagePct decimal.Decimal `json:"slippage_pct"`
	GasCost     decimal.Decimal `json:"gas_cost"`
	IncludeGas  bool            `json:"include_gas"`
}

// toDomain maps the wire shape onto the domain config.
func (req *runRequest) toDomain() domain.BacktestConfig {
	return domain.BacktestConfig{
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Weights: domain.ScoringWeights{
			WalletReputation:   req.Weights.WalletReputation,
			TokenMetrics:       req.Weights.TokenMetrics,
			Liquidity:          req.Weights.Liquidity,
			HolderDistribution: req.Weights.HolderDistribution,
			Momentum:           req.Weights.Momentum,
		},
		ScoreThreshold: req.ScoreThreshold,
		Sizing: domain.PositionSizing{
			BaseSize:             req.Sizing.BaseSize,
			ConfidenceScaling:    req.Sizing.ConfidenceScaling,
			ConfidenceMultiplier: req.Sizing.ConfidenceMultiplier,
			MaxSize:              req.Sizing.MaxSize,
		},
		Exits: domain.ExitRules{
			StopLossPct:   req.Exits.StopLossPct,
			TakeProfitPct: req.Exits.TakeProfitPct,
			TrailingPct:   req.Exits.TrailingPct,
			MaxHoldMs:     req.Exits.MaxHoldMs,
		},
		SlippagePct: req.SlippagePct,
		GasCost:     req.GasCost,
		IncludeGas:  req.IncludeGas,
	}
}

// handleCreateRun starts a backtest in the background and returns its
// run ID immediately.
func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	// Runs outlive the request; tie them to the server, not this ctx.
	runID, err := s.service.RunAsync(s.runCtx, req.toDomain(), nil)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	s.writeJSON(w, http.StatusAccepted, map[string]string{
		"run_id": runID,
		"status": domain.RunStatusRunning,
	})
}

// handleGetRun returns the terminal result of a run.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["id"]

	result, err := s.service.GetResult(r.Context(), runID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Still executing runs have progress but no stored result.
			if _, ok := s.service.GetProgress(runID); ok {
				s.writeJSON(w, http.StatusOK, map[string]string{
					"run_id": runID,
					"status": domain.RunStatusRunning,
				})
				return
			}
			s.writeError(w, http.StatusNotFound, fmt.Errorf("run %s not found", runID))
			return
		}
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

// progressResponse is the wire shape of a progress snapshot.
type progressResponse struct {
	RunID            string  `json:"run_id"`
	Status           string  `json:"status"`
	SignalsProcessed int     `json:"signals_processed"`
	SignalsTotal     int     `json:"signals_total"`
	Phase            string  `json:"phase"`
	ElapsedSeconds   float64 `json:"elapsed_seconds"`
	RemainingSeconds float64 `json:"remaining_seconds"`
}

func toProgressResponse(p domain.Progress) progressResponse {
	return progressResponse{
		RunID:            p.RunID,
		Status:           p.Status,
		SignalsProcessed: p.SignalsProcessed,
		SignalsTotal:     p.SignalsTotal,
		Phase:            p.Phase,
		ElapsedSeconds:   p.ElapsedSeconds,
		RemainingSeconds: p.RemainingSeconds,
	}
}

// snapshotProgress returns the live progress of a run, or a terminal
// snapshot synthesized from the stored result once the run finished.
func (s *Server) snapshotProgress(ctx context.Context, runID string) (progressResponse, bool, error) {
	if p, ok := s.service.GetProgress(runID); ok {
		return toProgressResponse(p), true, nil
	}

	result, err := s.service.GetResult(ctx, runID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return progressResponse{}, false, nil
		}
		return progressResponse{}, false, err
	}

	return progressResponse{
		RunID:            runID,
		Status:           result.Status,
		SignalsProcessed: result.TotalSignals,
		SignalsTotal:     result.TotalSignals,
		Phase:            "finished",
		ElapsedSeconds:   float64(result.DurationMs) / 1000,
	}, true, nil
}

// handleGetProgress returns one progress snapshot.
func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["id"]

	snapshot, ok, err := s.snapshotProgress(r.Context(), runID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if !ok {
		s.writeError(w, http.StatusNotFound, fmt.Errorf("run %s not found", runID))
		return
	}

	s.writeJSON(w, http.StatusOK, snapshot)
}

// handleProgressWS streams progress snapshots over a websocket until
// the run reaches a terminal state, then sends the final snapshot and
// closes.
func (s *Server) handleProgressWS(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["id"]

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(wsPollInterval)
	defer ticker.Stop()

	for {
		snapshot, ok, err := s.snapshotProgress(r.Context(), runID)
		if err != nil {
			s.logger.Error().Str("run_id", runID).Err(err).Msg("progress snapshot")
			return
		}
		if !ok {
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "run not found"))
			return
		}

		if err := conn.WriteJSON(snapshot); err != nil {
			return
		}
		if snapshot.Status != domain.RunStatusRunning {
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

// applyRequest is the wire shape of a settings promotion.
type applyRequest struct {
	RunID     string `json:"run_id"`
	Weights   bool   `json:"weights"`
	Threshold bool   `json:"threshold"`
	Sizing    bool   `json:"sizing"`
	ExitRules bool   `json:"exit_rules"`
	Confirm   bool   `json:"confirm"`
}

// handleApply promotes a completed run's settings to live config.
func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	var req applyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	result, err := s.service.ApplySettings(r.Context(), domain.ApplyRequest{
		RunID:          req.RunID,
		ApplyWeights:   req.Weights,
		ApplyThreshold: req.Threshold,
		ApplySizing:    req.Sizing,
		ApplyExitRules: req.ExitRules,
		Confirm:        req.Confirm,
	})
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, settings.ErrNoConfirmation):
			status = http.StatusBadRequest
		case errors.Is(err, settings.ErrRunNotFound):
			status = http.StatusNotFound
		case errors.Is(err, settings.ErrRunNotCompleted):
			status = http.StatusConflict
		}
		if result != nil {
			// Refusals and partial applies still carry an audit record.
			s.writeJSON(w, status, result)
			return
		}
		s.writeError(w, status, err)
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

// handleClearCache drops the loader's memoized signal sets.
func (s *Server) handleClearCache(w http.ResponseWriter, _ *http.Request) {
	s.service.ClearCache()
	w.WriteHeader(http.StatusNoContent)
}

// writeJSON writes v as a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error().Err(err).Msg("encode response")
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
