package exposure

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"yieldengine/src/config"
	"yieldengine/src/model"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func usdConfig() *config.ModeConfig {
	return &config.ModeConfig{ReportingCurrency: "USDT"}
}

func TestComputeValuesPositions(t *testing.T) {
	market := model.MarketSnapshot{
		Timestamp: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Prices: map[string]decimal.Decimal{
			"BTC":  d("50000"),
			"USDT": d("1"),
		},
		PerpPrices: map[string]decimal.Decimal{
			"BTC": d("50100"),
		},
	}
	position := model.Position{
		"USDT":            d("1000"),
		"BTC":             d("0.1"),
		"phemex/BTC/perp": d("-0.1"),
	}

	exp, err := Compute(position, market, usdConfig())
	if err != nil {
		t.Fatalf("unexpected compute error: %v", err)
	}

	// Spot legs at spot, perp leg at the perp mark.
	wantNet := d("1000").Add(d("5000")).Add(d("-5010"))
	if !exp.NetUSD.Equal(wantNet) {
		t.Fatalf("net mismatch. got=%s want=%s", exp.NetUSD, wantNet)
	}
	wantGross := d("1000").Add(d("5000")).Add(d("5010"))
	if !exp.GrossUSD.Equal(wantGross) {
		t.Fatalf("gross mismatch. got=%s want=%s", exp.GrossUSD, wantGross)
	}
	if !exp.NetReporting.Equal(wantNet) {
		t.Fatalf("reporting conversion at par mismatch. got=%s", exp.NetReporting)
	}
	if !exp.ByAsset["phemex/BTC/perp"].PriceUSD.Equal(d("50100")) {
		t.Fatalf("perp position must value at the perp mark, got %s",
			exp.ByAsset["phemex/BTC/perp"].PriceUSD)
	}
}

func TestComputeIsDeterministic(t *testing.T) {
	market := model.MarketSnapshot{
		Prices: map[string]decimal.Decimal{"ETH": d("2500"), "USDT": d("1")},
	}
	position := model.Position{"ETH": d("4"), "aave/ETH/supply": d("2")}

	first, err := Compute(position, market, usdConfig())
	if err != nil {
		t.Fatalf("unexpected compute error: %v", err)
	}
	second, err := Compute(position, market, usdConfig())
	if err != nil {
		t.Fatalf("unexpected compute error: %v", err)
	}

	if !first.NetUSD.Equal(second.NetUSD) || !first.GrossUSD.Equal(second.GrossUSD) {
		t.Fatal("identical inputs must produce identical exposure")
	}
}

func TestComputeMissingPriceFails(t *testing.T) {
	market := model.MarketSnapshot{
		Prices: map[string]decimal.Decimal{"USDT": d("1")},
	}
	position := model.Position{"SOL": d("10")}

	if _, err := Compute(position, market, usdConfig()); err == nil {
		t.Fatal("expected error for unpriced position")
	}
}

func TestComputeMissingReportingCurrencyFails(t *testing.T) {
	market := model.MarketSnapshot{
		Prices: map[string]decimal.Decimal{"BTC": d("50000")},
	}
	position := model.Position{"BTC": d("1")}

	if _, err := Compute(position, market, usdConfig()); err == nil {
		t.Fatal("expected error for unpriced reporting currency")
	}
}

func TestNetDeltaSpansPositionKinds(t *testing.T) {
	position := model.Position{
		"BTC":             d("0.5"),
		"phemex/BTC/perp": d("-0.3"),
		"aave/BTC/supply": d("0.1"),
		"ETH":             d("99"),
	}

	net := NetDelta(position, "BTC")
	if !net.Equal(d("0.3")) {
		t.Fatalf("net delta mismatch. got=%s want=0.3", net)
	}
}
