// Package config loads service configuration from a YAML file and the
// environment.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"smartmoney-lab/internal/domain"
)

// Config is the full service configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig controls the HTTP surface.
type ServerConfig struct {
	Addr string `yaml:"addr"` // listen address, e.g. ":8080"
}

// StorageConfig controls the backing stores.
type StorageConfig struct {
	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickhouseDSN string `yaml:"clickhouse_dsn"`
	UseMemory     bool   `yaml:"use_memory"` // in-memory stores for dev
}

// LogConfig controls log output.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // console | json
}

// Load reads configuration from a YAML file, after loading a .env file
// if one exists. Environment variables SMARTMONEY_POSTGRES_DSN and
// SMARTMONEY_CLICKHOUSE_DSN override the file values so credentials
// can stay out of the config file.
func Load(path string) (*Config, error) {
	// Best effort: a missing .env is not an error.
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if dsn := os.Getenv("SMARTMONEY_POSTGRES_DSN"); dsn != "" {
		cfg.Storage.PostgresDSN = dsn
	}
	if dsn := os.Getenv("SMARTMONEY_CLICKHOUSE_DSN"); dsn != "" {
		cfg.Storage.ClickhouseDSN = dsn
	}

	return cfg, nil
}

// backtestFile mirrors domain.BacktestConfig with string-typed decimal
// fields, since YAML cannot decode into decimal.Decimal directly.
// Values parse exactly; "0.25" and 0.25 read the same.
type backtestFile struct {
	StartTime int64 `yaml:"start_time"`
	EndTime   int64 `yaml:"end_time"`

	Weights struct {
		WalletReputation   string `yaml:"wallet_reputation"`
		TokenMetrics       string `yaml:"token_metrics"`
		Liquidity          string `yaml:"liquidity"`
		HolderDistribution string `yaml:"holder_distribution"`
		Momentum           string `yaml:"momentum"`
	} `yaml:"weights"`

	ScoreThreshold string `yaml:"score_threshold"`

	Sizing struct {
		BaseSize             string `yaml:"base_size"`
		ConfidenceScaling    bool   `yaml:"confidence_scaling"`
		ConfidenceMultiplier string `yaml:"confidence_multiplier"`
		MaxSize              string `yaml:"max_size"`
	} `yaml:"sizing"`

	Exits struct {
		StopLossPct   string `yaml:"stop_loss_pct"`
		TakeProfitPct string `yaml:"take_profit_pct"`
		TrailingPct   string `yaml:"trailing_pct"`
		MaxHoldMs     int64  `yaml:"max_hold_ms"`
	} `yaml:"exits"`

	SlippagePct string `yaml:"slippage_pct"`
	GasCost     string `yaml:"gas_cost"`
	IncludeGas  bool   `yaml:"include_gas"`
}

// LoadBacktest reads a backtest run configuration from a YAML file.
func LoadBacktest(path string) (*domain.BacktestConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read backtest config %s: %w", path, err)
	}

	var file backtestFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse backtest config %s: %w", path, err)
	}

	cfg, err := file.toDomain()
	if err != nil {
		return nil, fmt.Errorf("parse backtest config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// toDomain parses the string-typed decimal fields exactly.
func (f *backtestFile) toDomain() (*domain.BacktestConfig, error) {
	cfg := &domain.BacktestConfig{
		StartTime:  f.StartTime,
		EndTime:    f.EndTime,
		IncludeGas: f.IncludeGas,
	}
	cfg.Exits.MaxHoldMs = f.Exits.MaxHoldMs
	cfg.Sizing.ConfidenceScaling = f.Sizing.ConfidenceScaling

	fields := []struct {
		name string
		raw  string
		dest *decimal.Decimal
	}{
		{"weights.wallet_reputation", f.Weights.WalletReputation, &cfg.Weights.WalletReputation},
		{"weights.token_metrics", f.Weights.TokenMetrics, &cfg.Weights.TokenMetrics},
		{"weights.liquidity", f.Weights.Liquidity, &cfg.Weights.Liquidity},
		{"weights.holder_distribution", f.Weights.HolderDistribution, &cfg.Weights.HolderDistribution},
		{"weights.momentum", f.Weights.Momentum, &cfg.Weights.Momentum},
		{"score_threshold", f.ScoreThreshold, &cfg.ScoreThreshold},
		{"sizing.base_size", f.Sizing.BaseSize, &cfg.Sizing.BaseSize},
		{"sizing.confidence_multiplier", f.Sizing.ConfidenceMultiplier, &cfg.Sizing.ConfidenceMultiplier},
		{"sizing.max_size", f.Sizing.MaxSize, &cfg.Sizing.MaxSize},
		{"exits.stop_loss_pct", f.Exits.StopLossPct, &cfg.Exits.StopLossPct},
		{"exits.take_profit_pct", f.Exits.TakeProfitPct, &cfg.Exits.TakeProfitPct},
		{"exits.trailing_pct", f.Exits.TrailingPct, &cfg.Exits.TrailingPct},
		{"slippage_pct", f.SlippagePct, &cfg.SlippagePct},
		{"gas_cost", f.GasCost, &cfg.GasCost},
	}

	for _, field := range fields {
		if field.raw == "" {
			*field.dest = decimal.Zero
			continue
		}
		d, err := decimal.NewFromString(field.raw)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field.name, err)
		}
		*field.dest = d
	}

	return cfg, nil
}

// defaultConfig returns the configuration defaults applied before the
// file is read.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":8080"},
		Log:    LogConfig{Level: "info", Format: "console"},
	}
}
