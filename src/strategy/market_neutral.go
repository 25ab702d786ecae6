package strategy

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"yieldengine/src/config"
	"yieldengine/src/model"
)

// MarketNeutral keeps the book's net delta in the working asset inside a
// band by hedging with perps. It never originates exposure of its own; it
// only offsets what the rest of the book carries.
type MarketNeutral struct {
	perpVenue string
	asset     string
	band      decimal.Decimal // acceptable |net delta| in asset units
}

func NewMarketNeutral(cfg *config.ModeConfig) *MarketNeutral {
	return &MarketNeutral{
		perpVenue: cfg.Venues[0],
		asset:     cfg.Assets[0],
		band:      cfg.Param("delta_band", decimal.RequireFromString("0.05")),
	}
}

func (s *MarketNeutral) Name() string { return config.ModeMarketNeutral }

func (s *MarketNeutral) Decide(ts time.Time, market model.MarketSnapshot, exp model.Exposure, risk model.RiskAssessment) []model.Order {
	net := decimal.Zero
	for key, ae := range exp.ByAsset {
		if model.BaseAsset(key) != s.asset {
			continue
		}
		net = net.Add(ae.Amount)
	}

	if net.Abs().LessThanOrEqual(s.band) {
		return nil
	}

	// A hedge reduces risk, so it goes out even when the risk verdict is
	// fail; that is the one decision this mode exists to make.
	return []model.Order{{
		ID:            uuid.NewString(),
		Operation:     model.OpPerpTrade,
		Venue:         s.perpVenue,
		Asset:         s.asset,
		Amount:        net.Neg(),
		ExecutionMode: model.ExecSequential,
		Reason:        "hedge net delta",
	}}
}
