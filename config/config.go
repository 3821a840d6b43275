// Package config loads and validates run configuration from YAML or JSON.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete run configuration.
type Config struct {
	Backtest BacktestConfig `json:"backtest" yaml:"backtest"`
	Journal  JournalConfig  `json:"journal" yaml:"journal"`
	Live     LiveConfig     `json:"live" yaml:"live"`
}

// BacktestConfig holds the immutable per-run simulation parameters.
type BacktestConfig struct {
	InitialCapital    float64 `json:"initial_capital" yaml:"initial_capital"`
	CommissionPct     float64 `json:"commission_pct" yaml:"commission_pct"`
	SlippagePct       float64 `json:"slippage_pct" yaml:"slippage_pct"`
	MaxPositions      int     `json:"max_positions" yaml:"max_positions"`
	ForceIntradayExit bool    `json:"force_intraday_exit" yaml:"force_intraday_exit"`
	RiskPerTradePct   float64 `json:"risk_per_trade_pct" yaml:"risk_per_trade_pct"`
	FallbackFraction  float64 `json:"fallback_fraction" yaml:"fallback_fraction"`
	RiskFreeRate      float64 `json:"risk_free_rate" yaml:"risk_free_rate"`

	// EODCutoff is the local HH:MM after which no entries are taken and,
	// with ForceIntradayExit, all positions are closed. Defaults to 15
	// minutes before the 15:30 session close.
	EODCutoff string `json:"eod_cutoff" yaml:"eod_cutoff"`
}

// JournalConfig selects the journaling backend.
type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // "none", "csv" or "sqlite"
	FillsFile  string `json:"fills_file,omitempty" yaml:"fills_file,omitempty"`
	TradesFile string `json:"trades_file,omitempty" yaml:"trades_file,omitempty"`
	EquityFile string `json:"equity_file,omitempty" yaml:"equity_file,omitempty"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// LiveConfig tunes the paper-trading polling loop.
type LiveConfig struct {
	ScanInterval     string `json:"scan_interval" yaml:"scan_interval"`
	FailureThreshold int    `json:"failure_threshold" yaml:"failure_threshold"`
	Cooldown         string `json:"cooldown" yaml:"cooldown"`
}

// LoadFromFile reads YAML or JSON configuration and validates it.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Backtest.EODCutoff == "" {
		c.Backtest.EODCutoff = "15:15"
	}
	if c.Backtest.MaxPositions == 0 {
		c.Backtest.MaxPositions = 1
	}
	if c.Backtest.FallbackFraction == 0 {
		c.Backtest.FallbackFraction = 0.10
	}
	if c.Journal.Type == "" {
		c.Journal.Type = "none"
	}
	if c.Live.ScanInterval == "" {
		c.Live.ScanInterval = "5s"
	}
	if c.Live.FailureThreshold == 0 {
		c.Live.FailureThreshold = 5
	}
	if c.Live.Cooldown == "" {
		c.Live.Cooldown = "1m"
	}
}

// Validate checks ranges and cross-field consistency.
func (c *Config) Validate() error {
	b := c.Backtest
	if b.InitialCapital <= 0 {
		return fmt.Errorf("backtest.initial_capital must be positive")
	}
	if b.CommissionPct < 0 || b.CommissionPct >= 1 {
		return fmt.Errorf("backtest.commission_pct must be in [0, 1)")
	}
	if b.SlippagePct < 0 || b.SlippagePct >= 1 {
		return fmt.Errorf("backtest.slippage_pct must be in [0, 1)")
	}
	if b.MaxPositions < 1 {
		return fmt.Errorf("backtest.max_positions must be at least 1")
	}
	if b.RiskPerTradePct < 0 || b.RiskPerTradePct > 1 {
		return fmt.Errorf("backtest.risk_per_trade_pct must be in [0, 1]")
	}
	if _, err := ParseCutoff(b.EODCutoff); err != nil {
		return fmt.Errorf("backtest.eod_cutoff: %w", err)
	}

	switch c.Journal.Type {
	case "none", "":
	case "csv":
		if c.Journal.FillsFile == "" || c.Journal.TradesFile == "" || c.Journal.EquityFile == "" {
			return fmt.Errorf("journal fills_file, trades_file and equity_file required for csv type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for sqlite type")
		}
	default:
		return fmt.Errorf("journal.type must be none, csv or sqlite")
	}

	if _, err := time.ParseDuration(c.Live.ScanInterval); err != nil {
		return fmt.Errorf("live.scan_interval: %w", err)
	}
	if _, err := time.ParseDuration(c.Live.Cooldown); err != nil {
		return fmt.Errorf("live.cooldown: %w", err)
	}
	return nil
}

// ParseCutoff parses an "HH:MM" cutoff into minutes since midnight.
func ParseCutoff(s string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("cutoff must be HH:MM: %w", err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	c := &Config{
		Backtest: BacktestConfig{
			InitialCapital:    100_000,
			CommissionPct:     0.0005,
			SlippagePct:       0.0002,
			MaxPositions:      1,
			ForceIntradayExit: true,
			RiskPerTradePct:   0.01,
			FallbackFraction:  0.10,
			RiskFreeRate:      0.05,
			EODCutoff:         "15:15",
		},
		Journal: JournalConfig{Type: "none"},
		Live: LiveConfig{
			ScanInterval:     "5s",
			FailureThreshold: 5,
			Cooldown:         "1m",
		},
	}
	return c
}
