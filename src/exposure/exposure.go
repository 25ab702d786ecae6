package exposure

import (
	"fmt"

	"github.com/shopspring/decimal"

	"yieldengine/src/config"
	"yieldengine/src/model"
)

// Compute derives the portfolio exposure from a position snapshot and a
// market snapshot. It is a pure function of its inputs: identical inputs
// produce identical outputs, which is what makes historical replay
// deterministic.
//
// Every position is valued at the spot price of its base asset; perp
// positions are valued at the perp mark price when available.
func Compute(position model.Position, market model.MarketSnapshot, cfg *config.ModeConfig) (model.Exposure, error) {
	exp := model.Exposure{
		Timestamp:         market.Timestamp,
		ReportingCurrency: cfg.ReportingCurrency,
		NetUSD:            decimal.Zero,
		GrossUSD:          decimal.Zero,
		ByAsset:           make(map[string]model.AssetExposure, len(position)),
	}

	for key, amount := range position {
		base := model.BaseAsset(key)
		price, ok := market.Price(base)
		if model.PositionKind(key) == model.KindPerp {
			if perp, has := market.PerpPrices[base]; has {
				price, ok = perp, true
			}
		}
		if !ok {
			return model.Exposure{}, fmt.Errorf("no price for asset %s (position %s)", base, key)
		}

		value := amount.Mul(price)
		exp.ByAsset[key] = model.AssetExposure{
			Amount:   amount,
			PriceUSD: price,
			ValueUSD: value,
		}
		exp.NetUSD = exp.NetUSD.Add(value)
		exp.GrossUSD = exp.GrossUSD.Add(value.Abs())
	}

	reportingPrice, ok := market.Price(cfg.ReportingCurrency)
	if !ok {
		return model.Exposure{}, fmt.Errorf("no price for reporting currency %s", cfg.ReportingCurrency)
	}
	if reportingPrice.IsZero() {
		return model.Exposure{}, fmt.Errorf("zero price for reporting currency %s", cfg.ReportingCurrency)
	}
	exp.NetReporting = exp.NetUSD.Div(reportingPrice)

	return exp, nil
}

// NetDelta returns the net directional exposure to one base asset across all
// position kinds, in asset units. Used by hedging strategies.
func NetDelta(position model.Position, asset string) decimal.Decimal {
	net := decimal.Zero
	for key, amount := range position {
		if model.BaseAsset(key) != asset {
			continue
		}
		net = net.Add(amount)
	}
	return net
}
