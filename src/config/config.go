package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
)

// Config locates the mode configuration file.
type Config struct {
	ModeConfigPath string `envconfig:"MODE_CONFIG_PATH" default:"mode.json"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}

// Trading modes supported by the strategy factory.
const (
	ModePureLending      = "pure_lending"
	ModeBasisTrade       = "basis_trade"
	ModeLeveragedStaking = "leveraged_staking"
	ModeMarketNeutral    = "market_neutral"
	ModeDirectional      = "directional"
)

// RiskLimits are the hard limits the risk monitor assesses against.
type RiskLimits struct {
	MaxLeverage        decimal.Decimal `json:"max_leverage"`
	MinLiquidationDist decimal.Decimal `json:"min_liquidation_distance"`
	MaxDrawdown        decimal.Decimal `json:"max_drawdown"`
}

// BacktestWindow bounds a historical replay.
type BacktestWindow struct {
	Start time.Time     `json:"start"`
	End   time.Time     `json:"end"`
	Step  time.Duration `json:"-"`
	// StepSeconds is the serialized form of Step.
	StepSeconds int `json:"step_seconds"`
}

// ModeConfig is the frozen per-mode configuration. It is read once at
// construction time and never mutated afterwards.
type ModeConfig struct {
	Mode              string                     `json:"mode"`
	ReportingCurrency string                     `json:"reporting_currency"`
	Venues            []string                   `json:"venues"`
	Assets            []string                   `json:"assets"`
	AttributionTypes  []string                   `json:"attribution_types"`
	DataRequirements  []string                   `json:"data_requirements"`
	RiskLimits        RiskLimits                 `json:"risk_limits"`
	ReconTolerance    decimal.Decimal            `json:"recon_tolerance"` // relative, e.g. 0.01
	PnLTolerance      decimal.Decimal            `json:"pnl_tolerance"`   // relative, attribution-vs-exposure
	Params            map[string]decimal.Decimal `json:"params,omitempty"`
	InitialBalances   map[string]decimal.Decimal `json:"initial_balances,omitempty"`
	FeeRate           decimal.Decimal            `json:"fee_rate"`
	Backtest          BacktestWindow             `json:"backtest"`
}

var knownModes = map[string]bool{
	ModePureLending:      true,
	ModeBasisTrade:       true,
	ModeLeveragedStaking: true,
	ModeMarketNeutral:    true,
	ModeDirectional:      true,
}

// Load reads, validates and freezes the mode configuration from path.
// Any validation failure is fatal by design: a misconfigured mode must not
// reach the trading loop.
func Load(path string) (*ModeConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mode config %s: %w", path, err)
	}

	var cfg ModeConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse mode config %s: %w", path, err)
	}
	cfg.Backtest.Step = time.Duration(cfg.Backtest.StepSeconds) * time.Second

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger.WithFields(logger.Fields{
		"mode":               cfg.Mode,
		"reporting_currency": cfg.ReportingCurrency,
		"venues":             cfg.Venues,
		"attribution_types":  cfg.AttributionTypes,
	}).Info("mode config loaded")

	return &cfg, nil
}

// Validate checks the structural invariants of the configuration.
func (c *ModeConfig) Validate() error {
	if !knownModes[c.Mode] {
		return fmt.Errorf("unknown mode %q", c.Mode)
	}
	if c.ReportingCurrency == "" {
		return fmt.Errorf("reporting_currency not set")
	}
	if len(c.Venues) == 0 {
		return fmt.Errorf("mode %s has no venues configured", c.Mode)
	}
	if len(c.Assets) == 0 {
		return fmt.Errorf("mode %s has no assets configured", c.Mode)
	}
	for _, t := range c.AttributionTypes {
		if !recognizedAttributionTypes[t] {
			return fmt.Errorf("unrecognized attribution type %q", t)
		}
	}
	if c.ReconTolerance.IsNegative() {
		return fmt.Errorf("recon_tolerance must not be negative")
	}
	if c.PnLTolerance.IsZero() {
		c.PnLTolerance = decimal.RequireFromString("0.000001")
	}
	return nil
}

// Param returns a named strategy parameter, or def when unset.
func (c *ModeConfig) Param(name string, def decimal.Decimal) decimal.Decimal {
	if v, ok := c.Params[name]; ok {
		return v
	}
	return def
}

// Recognized attribution categories. Extending the set means adding a name
// here and a matching computation in the attribution package.
var recognizedAttributionTypes = map[string]bool{
	"supply_yield":          true,
	"borrow_costs":          true,
	"staking_yield_oracle":  true,
	"staking_yield_rewards": true,
	"funding_pnl":           true,
	"delta_pnl":             true,
	"basis_pnl":             true,
	"dust_pnl":              true,
	"transaction_costs":     true,
}
