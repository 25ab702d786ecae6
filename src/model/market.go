package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// MarketSnapshot is the time-indexed market and protocol data handed to the
// engine for one cycle. All maps are keyed by base asset symbol.
type MarketSnapshot struct {
	Timestamp time.Time

	// Market data
	Prices     map[string]decimal.Decimal // spot price in USD
	PerpPrices map[string]decimal.Decimal // perp mark price in USD

	// Protocol data, annualized rates unless stated otherwise
	SupplyRates    map[string]decimal.Decimal
	BorrowRates    map[string]decimal.Decimal
	FundingRates   map[string]decimal.Decimal // per funding interval, already scaled to the cycle period
	RewardRates    map[string]decimal.Decimal // staking reward emissions, annualized
	StakingOracles map[string]decimal.Decimal // staked-asset oracle exchange rate
}

// Price returns the spot USD price for asset and whether it is known.
func (m MarketSnapshot) Price(asset string) (decimal.Decimal, bool) {
	p, ok := m.Prices[asset]
	return p, ok
}

// Data requirement field names a mode may declare. The data provider must be
// able to serve every declared field or startup fails.
const (
	DataFieldPrices         = "prices"
	DataFieldPerpPrices     = "perp_prices"
	DataFieldSupplyRates    = "supply_rates"
	DataFieldBorrowRates    = "borrow_rates"
	DataFieldFundingRates   = "funding_rates"
	DataFieldRewardRates    = "reward_rates"
	DataFieldStakingOracles = "staking_oracles"
)
