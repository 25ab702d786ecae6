package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func writeModeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mode.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write mode file: %v", err)
	}
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeModeFile(t, `{
		"mode": "basis_trade",
		"reporting_currency": "USDT",
		"venues": ["binance", "phemex"],
		"assets": ["BTC", "USDT"],
		"attribution_types": ["funding_pnl", "delta_pnl", "transaction_costs", "dust_pnl"],
		"data_requirements": ["prices", "perp_prices", "funding_rates"],
		"risk_limits": {
			"max_leverage": "3",
			"min_liquidation_distance": "0.1",
			"max_drawdown": "0.2"
		},
		"recon_tolerance": "0.01",
		"params": {"target_notional": "10000"},
		"backtest": {
			"start": "2026-01-01T00:00:00Z",
			"end": "2026-02-01T00:00:00Z",
			"step_seconds": 3600
		}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}

	if cfg.Mode != ModeBasisTrade {
		t.Fatalf("mode mismatch. got=%s", cfg.Mode)
	}
	if cfg.Backtest.Step != time.Hour {
		t.Fatalf("step mismatch. got=%s want=1h", cfg.Backtest.Step)
	}
	if !cfg.RiskLimits.MaxLeverage.Equal(decimal.RequireFromString("3")) {
		t.Fatalf("max leverage mismatch. got=%s", cfg.RiskLimits.MaxLeverage)
	}
	if !cfg.Param("target_notional", decimal.Zero).Equal(decimal.RequireFromString("10000")) {
		t.Fatalf("param mismatch. got=%s", cfg.Param("target_notional", decimal.Zero))
	}
	if cfg.PnLTolerance.IsZero() {
		t.Fatal("pnl tolerance should default when unset")
	}
}

func TestLoadRejectsInvalidConfigs(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "unknown mode",
			content: `{"mode": "carry_harvest", "reporting_currency": "USDT", "venues": ["a"], "assets": ["BTC"]}`,
		},
		{
			name:    "missing reporting currency",
			content: `{"mode": "pure_lending", "venues": ["a"], "assets": ["USDT"]}`,
		},
		{
			name:    "no venues",
			content: `{"mode": "pure_lending", "reporting_currency": "USDT", "venues": [], "assets": ["USDT"]}`,
		},
		{
			name:    "no assets",
			content: `{"mode": "pure_lending", "reporting_currency": "USDT", "venues": ["a"], "assets": []}`,
		},
		{
			name:    "unrecognized attribution type",
			content: `{"mode": "pure_lending", "reporting_currency": "USDT", "venues": ["a"], "assets": ["USDT"], "attribution_types": ["alpha_decay"]}`,
		},
		{
			name:    "negative recon tolerance",
			content: `{"mode": "pure_lending", "reporting_currency": "USDT", "venues": ["a"], "assets": ["USDT"], "recon_tolerance": "-0.1"}`,
		},
		{
			name:    "malformed json",
			content: `{"mode": `,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeModeFile(t, tt.content)
			if _, err := Load(path); err == nil {
				t.Fatal("expected load error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestParamDefault(t *testing.T) {
	cfg := &ModeConfig{}
	def := decimal.RequireFromString("0.5")
	if !cfg.Param("loop_ltv", def).Equal(def) {
		t.Fatal("unset param must fall back to the default")
	}
}
