package attribution

import (
	"fmt"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"yieldengine/src/config"
	"yieldengine/src/model"
)

// Category names. The recognized set is fixed; a mode activates a subset via
// its attribution_types config. Adding a category means adding a name and a
// compute function to the table below, nothing else.
const (
	CategorySupplyYield    = "supply_yield"
	CategoryBorrowCosts    = "borrow_costs"
	CategoryStakingOracle  = "staking_yield_oracle"
	CategoryStakingRewards = "staking_yield_rewards"
	CategoryFundingPnL     = "funding_pnl"
	CategoryDeltaPnL       = "delta_pnl"
	CategoryBasisPnL       = "basis_pnl"
	CategoryDustPnL        = "dust_pnl"
	CategoryTxCosts        = "transaction_costs"
)

// Inputs is everything a category computation may consume for one period.
type Inputs struct {
	PrevExposure model.Exposure
	CurrExposure model.Exposure
	PrevMarket   model.MarketSnapshot
	CurrMarket   model.MarketSnapshot
	OpenPosition model.Position // position snapshot at period start
	PeriodYears  decimal.Decimal
	Trades       []model.Trade // trades executed during the period
}

// computeFunc returns the category contribution and whether the data it
// needs was present. Absent data degrades to zero, it never fails the cycle.
type computeFunc func(in Inputs) (decimal.Decimal, bool)

var categories = map[string]computeFunc{
	CategorySupplyYield:    supplyYield,
	CategoryBorrowCosts:    borrowCosts,
	CategoryStakingOracle:  stakingYieldOracle,
	CategoryStakingRewards: stakingYieldRewards,
	CategoryFundingPnL:     fundingPnL,
	CategoryDeltaPnL:       deltaPnL,
	CategoryBasisPnL:       basisPnL,
	CategoryTxCosts:        transactionCosts,
	// dust_pnl is the residual bucket, handled inline by Attribute.
}

// Engine decomposes period PnL into the mode's configured categories.
type Engine struct {
	cfg *config.ModeConfig
}

func New(cfg *config.ModeConfig) *Engine {
	return &Engine{cfg: cfg}
}

// Attribute computes one attribution record for the period between the two
// exposure snapshots. Categories outside the configured list are never
// computed, even when the data for them exists. The record total is checked
// against the exposure-derived period PnL; a mismatch beyond tolerance is
// the only error this method returns.
func (e *Engine) Attribute(in Inputs) (model.AttributionRecord, error) {
	record := model.AttributionRecord{
		PeriodStart:   in.PrevExposure.Timestamp,
		PeriodEnd:     in.CurrExposure.Timestamp,
		Contributions: make(map[string]decimal.Decimal, len(e.cfg.AttributionTypes)),
		ExposurePnL:   in.CurrExposure.NetUSD.Sub(in.PrevExposure.NetUSD),
	}

	total := decimal.Zero
	dustConfigured := false
	for _, name := range e.cfg.AttributionTypes {
		if name == CategoryDustPnL {
			dustConfigured = true
			continue
		}
		compute, ok := categories[name]
		if !ok {
			// Validated at config load; reaching this is a programming error.
			return record, fmt.Errorf("no computation registered for category %s", name)
		}

		value, dataPresent := compute(in)
		if !dataPresent {
			logger.WithFields(logger.Fields{
				"category":   name,
				"period_end": in.CurrExposure.Timestamp,
			}).Info("attribution data missing, category contributes zero")
			value = decimal.Zero
		}
		record.Contributions[name] = value
		total = total.Add(value)
	}

	if dustConfigured {
		dust := record.ExposurePnL.Sub(total)
		record.Contributions[CategoryDustPnL] = dust
		total = total.Add(dust)
	}
	record.Total = total

	if err := e.checkTotal(record); err != nil {
		return record, err
	}
	return record, nil
}

// checkTotal verifies the attribution sum against the independently computed
// exposure PnL, within the configured relative tolerance.
func (e *Engine) checkTotal(record model.AttributionRecord) error {
	diff := record.Total.Sub(record.ExposurePnL).Abs()
	scale := decimal.NewFromInt(1)
	if abs := record.ExposurePnL.Abs(); abs.GreaterThan(scale) {
		scale = abs
	}
	if diff.GreaterThan(e.cfg.PnLTolerance.Mul(scale)) {
		return fmt.Errorf(
			"attribution total %s diverges from exposure pnl %s beyond tolerance",
			record.Total.String(), record.ExposurePnL.String(),
		)
	}
	return nil
}
