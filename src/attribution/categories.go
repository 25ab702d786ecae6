package attribution

import (
	"github.com/shopspring/decimal"

	"yieldengine/src/model"
)

// Category computations. Each one is a pure function of Inputs. The
// convention throughout: contributions are in USD, positive is profit.

// supplyYield accrues interest on lending positions at the supply rate in
// effect at period start.
func supplyYield(in Inputs) (decimal.Decimal, bool) {
	return accrueByKind(in, model.KindSupply, in.PrevMarket.SupplyRates)
}

// borrowCosts accrues interest owed on borrow positions. Borrow balances are
// negative, so the contribution comes out negative on its own.
func borrowCosts(in Inputs) (decimal.Decimal, bool) {
	return accrueByKind(in, model.KindBorrow, in.PrevMarket.BorrowRates)
}

// stakingYieldRewards accrues staking reward emissions at the reward rate.
func stakingYieldRewards(in Inputs) (decimal.Decimal, bool) {
	return accrueByKind(in, model.KindStake, in.PrevMarket.RewardRates)
}

// accrueByKind sums amount * price * rate * periodYears over positions of
// one kind. Data is considered absent when the rate map is nil or misses
// every relevant asset.
func accrueByKind(in Inputs, kind string, rates map[string]decimal.Decimal) (decimal.Decimal, bool) {
	if rates == nil {
		return decimal.Zero, false
	}
	total := decimal.Zero
	matched := false
	for key, amount := range in.OpenPosition {
		if model.PositionKind(key) != kind {
			continue
		}
		base := model.BaseAsset(key)
		rate, ok := rates[base]
		if !ok {
			continue
		}
		price, ok := in.PrevMarket.Price(base)
		if !ok {
			continue
		}
		matched = true
		total = total.Add(amount.Mul(price).Mul(rate).Mul(in.PeriodYears))
	}
	if !matched && kindPresent(in.OpenPosition, kind) {
		return decimal.Zero, false
	}
	return total, true
}

// stakingYieldOracle values the appreciation of the staked-asset oracle
// exchange rate over the period.
func stakingYieldOracle(in Inputs) (decimal.Decimal, bool) {
	if in.PrevMarket.StakingOracles == nil || in.CurrMarket.StakingOracles == nil {
		return decimal.Zero, false
	}
	total := decimal.Zero
	matched := false
	for key, amount := range in.OpenPosition {
		if model.PositionKind(key) != model.KindStake {
			continue
		}
		base := model.BaseAsset(key)
		prev, okPrev := in.PrevMarket.StakingOracles[base]
		curr, okCurr := in.CurrMarket.StakingOracles[base]
		price, okPrice := in.PrevMarket.Price(base)
		if !okPrev || !okCurr || !okPrice || prev.IsZero() {
			continue
		}
		matched = true
		growth := curr.Div(prev).Sub(decimal.NewFromInt(1))
		total = total.Add(amount.Mul(price).Mul(growth))
	}
	if !matched && kindPresent(in.OpenPosition, model.KindStake) {
		return decimal.Zero, false
	}
	return total, true
}

// fundingPnL applies the period funding rate to perp positions. Longs pay
// positive funding, shorts receive it.
func fundingPnL(in Inputs) (decimal.Decimal, bool) {
	if in.CurrMarket.FundingRates == nil {
		return decimal.Zero, false
	}
	total := decimal.Zero
	matched := false
	for key, amount := range in.OpenPosition {
		if model.PositionKind(key) != model.KindPerp {
			continue
		}
		base := model.BaseAsset(key)
		rate, ok := in.CurrMarket.FundingRates[base]
		if !ok {
			continue
		}
		price, okPrice := in.PrevMarket.Price(base)
		if !okPrice {
			continue
		}
		matched = true
		total = total.Sub(amount.Mul(price).Mul(rate))
	}
	if !matched && kindPresent(in.OpenPosition, model.KindPerp) {
		return decimal.Zero, false
	}
	return total, true
}

// deltaPnL marks every open position to the spot price move of its base
// asset over the period.
func deltaPnL(in Inputs) (decimal.Decimal, bool) {
	total := decimal.Zero
	for key, amount := range in.OpenPosition {
		base := model.BaseAsset(key)
		prev, okPrev := in.PrevMarket.Price(base)
		curr, okCurr := in.CurrMarket.Price(base)
		if !okPrev || !okCurr {
			return decimal.Zero, false
		}
		total = total.Add(amount.Mul(curr.Sub(prev)))
	}
	return total, true
}

// basisPnL captures the perp-vs-spot basis move on perp positions, the part
// of perp mark-to-market that deltaPnL's spot marking misses.
func basisPnL(in Inputs) (decimal.Decimal, bool) {
	if in.PrevMarket.PerpPrices == nil || in.CurrMarket.PerpPrices == nil {
		return decimal.Zero, false
	}
	total := decimal.Zero
	matched := false
	for key, amount := range in.OpenPosition {
		if model.PositionKind(key) != model.KindPerp {
			continue
		}
		base := model.BaseAsset(key)
		prevPerp, ok1 := in.PrevMarket.PerpPrices[base]
		currPerp, ok2 := in.CurrMarket.PerpPrices[base]
		prevSpot, ok3 := in.PrevMarket.Price(base)
		currSpot, ok4 := in.CurrMarket.Price(base)
		if !ok1 || !ok2 || !ok3 || !ok4 {
			continue
		}
		matched = true
		basisMove := currPerp.Sub(currSpot).Sub(prevPerp.Sub(prevSpot))
		total = total.Add(amount.Mul(basisMove))
	}
	if !matched && kindPresent(in.OpenPosition, model.KindPerp) {
		return decimal.Zero, false
	}
	return total, true
}

// transactionCosts sums the fees paid on the period's successful trades.
func transactionCosts(in Inputs) (decimal.Decimal, bool) {
	total := decimal.Zero
	for _, trade := range in.Trades {
		if !trade.Success {
			continue
		}
		total = total.Sub(trade.FeeUSD)
	}
	return total, true
}

func kindPresent(position model.Position, kind string) bool {
	for key := range position {
		if model.PositionKind(key) == kind {
			return true
		}
	}
	return false
}
