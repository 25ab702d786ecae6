package marketdata

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"yieldengine/src/model"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestStaticProviderServesByTimestamp(t *testing.T) {
	ts := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	provider := NewStaticProvider(model.MarketSnapshot{
		Timestamp: ts,
		Prices:    map[string]decimal.Decimal{"BTC": d("50000")},
	})

	snap, err := provider.GetData(ts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !snap.Prices["BTC"].Equal(d("50000")) {
		t.Fatalf("price mismatch: %s", snap.Prices["BTC"])
	}

	if _, err := provider.GetData(ts.Add(time.Hour)); err == nil {
		t.Fatal("expected error for unknown timestamp")
	}
}

func TestStaticProviderValidateRequirements(t *testing.T) {
	ts := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	provider := NewStaticProvider(model.MarketSnapshot{
		Timestamp:    ts,
		Prices:       map[string]decimal.Decimal{"BTC": d("50000")},
		FundingRates: map[string]decimal.Decimal{"BTC": d("0.0001")},
	})

	if err := provider.ValidateRequirements(
		[]string{"prices", "funding_rates"}, []string{"BTC"},
	); err != nil {
		t.Fatalf("requirements should be satisfied: %v", err)
	}

	if err := provider.ValidateRequirements(
		[]string{"prices", "supply_rates"}, []string{"BTC"},
	); err == nil {
		t.Fatal("expected error for unserved field")
	}

	if err := provider.ValidateRequirements(
		[]string{"prices", "sentiment"}, []string{"BTC"},
	); err == nil {
		t.Fatal("expected error for unknown field name")
	}
}

func TestStaticProviderStablecoinParPricing(t *testing.T) {
	ts := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	provider := NewStaticProvider(model.MarketSnapshot{
		Timestamp: ts,
		Prices:    map[string]decimal.Decimal{"BTC": d("50000")},
	})

	// USDT has no explicit price series but counts as priced.
	if err := provider.ValidateRequirements(
		[]string{"prices"}, []string{"BTC", "USDT"},
	); err != nil {
		t.Fatalf("stables should validate without a candle series: %v", err)
	}
}
