package strategy

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"yieldengine/src/config"
	"yieldengine/src/model"
)

// BasisTrade runs the classic cash-and-carry: long spot, short perp of the
// same size, harvesting funding while delta stays flat. Both legs open and
// close as one atomic group; holding either leg alone is directional risk
// the mode must never take.
type BasisTrade struct {
	spotVenue  string
	perpVenue  string
	asset      string
	notional   decimal.Decimal // target position size in USD
	minFunding decimal.Decimal // entry threshold, per period
}

func NewBasisTrade(cfg *config.ModeConfig) *BasisTrade {
	perpVenue := cfg.Venues[0]
	if len(cfg.Venues) > 1 {
		perpVenue = cfg.Venues[1]
	}
	return &BasisTrade{
		spotVenue:  cfg.Venues[0],
		perpVenue:  perpVenue,
		asset:      cfg.Assets[0],
		notional:   cfg.Param("target_notional", decimal.NewFromInt(10000)),
		minFunding: cfg.Param("min_funding", decimal.Zero),
	}
}

func (s *BasisTrade) Name() string { return config.ModeBasisTrade }

func (s *BasisTrade) Decide(ts time.Time, market model.MarketSnapshot, exp model.Exposure, risk model.RiskAssessment) []model.Order {
	price, ok := market.Price(s.asset)
	if !ok || price.IsZero() {
		return nil
	}
	perpKey := model.VenueAssetKey(s.perpVenue, s.asset, model.KindPerp)
	perpHeld := exp.ByAsset[perpKey].Amount
	spotHeld := exp.ByAsset[s.asset].Amount
	funding := market.FundingRates[s.asset]

	open := !spotHeld.IsPositive() && perpHeld.IsZero()
	carryGone := funding.LessThan(s.minFunding)

	// Risk failure or dead carry: unwind whatever is on.
	if (!risk.Passed() || carryGone) && !perpHeld.IsZero() {
		return s.pair(spotHeld.Neg(), perpHeld.Neg(), "unwind basis position")
	}
	if !risk.Passed() || carryGone || !open {
		return nil
	}

	qty := s.notional.Div(price)
	return s.pair(qty, qty.Neg(), "open basis position")
}

// pair emits the spot and perp legs under one atomic group id.
func (s *BasisTrade) pair(spotQty, perpQty decimal.Decimal, reason string) []model.Order {
	if spotQty.IsZero() && perpQty.IsZero() {
		return nil
	}
	groupID := uuid.NewString()
	return []model.Order{
		{
			ID:            uuid.NewString(),
			Operation:     model.OpSpotTrade,
			Venue:         s.spotVenue,
			Asset:         s.asset,
			Amount:        spotQty,
			ExecutionMode: model.ExecAtomicGroup,
			AtomicGroupID: groupID,
			Reason:        reason,
		},
		{
			ID:            uuid.NewString(),
			Operation:     model.OpPerpTrade,
			Venue:         s.perpVenue,
			Asset:         s.asset,
			Amount:        perpQty,
			ExecutionMode: model.ExecAtomicGroup,
			AtomicGroupID: groupID,
			Reason:        reason,
		},
	}
}
