package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// AssetExposure is the valued position in one asset key.
type AssetExposure struct {
	Amount   decimal.Decimal `json:"amount"`
	PriceUSD decimal.Decimal `json:"price_usd"`
	ValueUSD decimal.Decimal `json:"value_usd"`
}

// Exposure is the derived valuation of a position snapshot. It is never a
// source of truth: it can always be recomputed from Position + prices.
type Exposure struct {
	Timestamp         time.Time                `json:"timestamp"`
	ReportingCurrency string                   `json:"reporting_currency"`
	NetUSD            decimal.Decimal          `json:"net_usd"`   // signed sum, the equity
	GrossUSD          decimal.Decimal          `json:"gross_usd"` // sum of absolute values
	NetReporting      decimal.Decimal          `json:"net_reporting"`
	ByAsset           map[string]AssetExposure `json:"by_asset"`
}

// RiskVerdict is the pass/fail outcome of a risk assessment.
type RiskVerdict string

const (
	RiskPass RiskVerdict = "pass"
	RiskFail RiskVerdict = "fail"
)

// RiskAssessment carries the derived risk metrics plus the verdict against
// the configured limits.
type RiskAssessment struct {
	Timestamp         time.Time       `json:"timestamp"`
	Leverage          decimal.Decimal `json:"leverage"`
	LiquidationBuffer decimal.Decimal `json:"liquidation_buffer"` // fraction of headroom left before max leverage
	Drawdown          decimal.Decimal `json:"drawdown"`           // fraction below high-water mark
	Verdict           RiskVerdict     `json:"verdict"`
	Breaches          []string        `json:"breaches,omitempty"`
}

// Passed reports whether the assessment cleared every configured limit.
func (r RiskAssessment) Passed() bool { return r.Verdict == RiskPass }

// AttributionRecord decomposes one period's PnL into named categories.
// Categories absent from the map contributed zero by definition.
type AttributionRecord struct {
	PeriodStart   time.Time                  `json:"period_start"`
	PeriodEnd     time.Time                  `json:"period_end"`
	Contributions map[string]decimal.Decimal `json:"contributions"`
	Total         decimal.Decimal            `json:"total"`        // sum of contributions
	ExposurePnL   decimal.Decimal            `json:"exposure_pnl"` // independent total from exposure deltas
}

// ReconciliationStatus is the lifecycle outcome of one reconciliation check.
type ReconciliationStatus string

const (
	ReconAccepted  ReconciliationStatus = "accepted"  // drift within tolerance, recorded only
	ReconCorrected ReconciliationStatus = "corrected" // drift beyond tolerance, ledger corrected
)

// ReconciliationRecord is the point-in-time diff between the ledger and an
// external truth snapshot.
type ReconciliationRecord struct {
	Timestamp time.Time                  `json:"timestamp"`
	Diffs     map[string]decimal.Decimal `json:"diffs,omitempty"` // internal minus external, only non-zero entries
	MaxDrift  decimal.Decimal            `json:"max_drift"`       // largest relative diff seen
	Status    ReconciliationStatus       `json:"status"`
}
