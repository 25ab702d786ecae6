package strategy

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"yieldengine/src/config"
	"yieldengine/src/model"
)

// Directional holds a configured long or short perp position of fixed
// notional and rebalances toward it as price moves.
type Directional struct {
	perpVenue string
	asset     string
	bias      decimal.Decimal // +1 long, -1 short
	notional  decimal.Decimal // target |position| in USD
	tolerance decimal.Decimal // rebalance when off target by this fraction
}

func NewDirectional(cfg *config.ModeConfig) *Directional {
	return &Directional{
		perpVenue: cfg.Venues[0],
		asset:     cfg.Assets[0],
		bias:      cfg.Param("bias", decimal.NewFromInt(1)),
		notional:  cfg.Param("target_notional", decimal.NewFromInt(10000)),
		tolerance: cfg.Param("rebalance_tolerance", decimal.RequireFromString("0.02")),
	}
}

func (s *Directional) Name() string { return config.ModeDirectional }

func (s *Directional) Decide(ts time.Time, market model.MarketSnapshot, exp model.Exposure, risk model.RiskAssessment) []model.Order {
	price, ok := market.Price(s.asset)
	if !ok || price.IsZero() {
		return nil
	}

	perpKey := model.VenueAssetKey(s.perpVenue, s.asset, model.KindPerp)
	held := exp.ByAsset[perpKey].Amount

	target := s.notional.Div(price).Mul(s.bias)
	if !risk.Passed() {
		// Reduce-only: flatten instead of chasing the target.
		target = decimal.Zero
	}

	gap := target.Sub(held)
	if target.IsZero() && held.IsZero() {
		return nil
	}
	if !target.IsZero() && gap.Abs().LessThan(target.Abs().Mul(s.tolerance)) {
		return nil
	}
	if gap.IsZero() {
		return nil
	}

	return []model.Order{{
		ID:            uuid.NewString(),
		Operation:     model.OpPerpTrade,
		Venue:         s.perpVenue,
		Asset:         s.asset,
		Amount:        gap,
		ExecutionMode: model.ExecSequential,
		Reason:        "rebalance to target",
	}}
}
