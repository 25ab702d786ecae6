package risk

import (
	"github.com/shopspring/decimal"

	"yieldengine/src/config"
	"yieldengine/src/model"
)

// Assess derives risk metrics from an exposure snapshot and checks them
// against the configured limits. Pure function: no hidden state, no
// hysteresis. A breach is a fail even if the previous cycle passed; any
// smoothing belongs to the strategy, not here.
//
// highWater is the running high-water mark of net reporting value, tracked
// by the orchestrator across cycles.
func Assess(exp model.Exposure, highWater decimal.Decimal, limits config.RiskLimits) model.RiskAssessment {
	out := model.RiskAssessment{
		Timestamp: exp.Timestamp,
		Verdict:   model.RiskPass,
	}

	out.Leverage = leverage(exp)
	out.LiquidationBuffer = liquidationBuffer(out.Leverage, limits.MaxLeverage)
	out.Drawdown = drawdown(exp.NetReporting, highWater)

	if exp.NetUSD.LessThanOrEqual(decimal.Zero) && exp.GrossUSD.GreaterThan(decimal.Zero) {
		out.Breaches = append(out.Breaches, "non_positive_equity")
	}
	if limits.MaxLeverage.GreaterThan(decimal.Zero) && out.Leverage.GreaterThan(limits.MaxLeverage) {
		out.Breaches = append(out.Breaches, "max_leverage")
	}
	if limits.MinLiquidationDist.GreaterThan(decimal.Zero) && out.LiquidationBuffer.LessThan(limits.MinLiquidationDist) {
		out.Breaches = append(out.Breaches, "min_liquidation_distance")
	}
	if limits.MaxDrawdown.GreaterThan(decimal.Zero) && out.Drawdown.GreaterThan(limits.MaxDrawdown) {
		out.Breaches = append(out.Breaches, "max_drawdown")
	}

	if len(out.Breaches) > 0 {
		out.Verdict = model.RiskFail
	}
	return out
}

// leverage is gross exposure over equity. An empty book has leverage zero;
// a book with exposure but no equity is reported as the gross value itself,
// which will trip any sane max-leverage limit.
func leverage(exp model.Exposure) decimal.Decimal {
	if exp.GrossUSD.IsZero() {
		return decimal.Zero
	}
	if exp.NetUSD.LessThanOrEqual(decimal.Zero) {
		return exp.GrossUSD
	}
	return exp.GrossUSD.Div(exp.NetUSD)
}

// liquidationBuffer is the fraction of leverage headroom left before the
// configured maximum: 1 at zero leverage, 0 at the limit, negative beyond.
func liquidationBuffer(lev, maxLev decimal.Decimal) decimal.Decimal {
	if maxLev.LessThanOrEqual(decimal.Zero) {
		return decimal.NewFromInt(1)
	}
	return maxLev.Sub(lev).Div(maxLev)
}

// drawdown is the fraction the current net value sits below the high-water
// mark. Zero when at or above the mark, or when no mark exists yet.
func drawdown(net, highWater decimal.Decimal) decimal.Decimal {
	if highWater.LessThanOrEqual(decimal.Zero) || net.GreaterThanOrEqual(highWater) {
		return decimal.Zero
	}
	return highWater.Sub(net).Div(highWater)
}
