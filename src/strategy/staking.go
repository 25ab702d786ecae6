package strategy

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"yieldengine/src/config"
	"yieldengine/src/model"
)

// LeveragedStaking stakes the working asset, borrows stable against it, buys
// more of the asset and stakes that too. The whole loop is one atomic group:
// a half-executed loop would leave unhedged borrow exposure.
type LeveragedStaking struct {
	venue   string
	asset   string
	stable  string
	loopLTV decimal.Decimal // borrow fraction of staked value per loop
	minLot  decimal.Decimal
}

func NewLeveragedStaking(cfg *config.ModeConfig) *LeveragedStaking {
	stable := cfg.ReportingCurrency
	if len(cfg.Assets) > 1 {
		stable = cfg.Assets[1]
	}
	return &LeveragedStaking{
		venue:   cfg.Venues[0],
		asset:   cfg.Assets[0],
		stable:  stable,
		loopLTV: cfg.Param("loop_ltv", decimal.RequireFromString("0.5")),
		minLot:  cfg.Param("min_lot", decimal.RequireFromString("0.01")),
	}
}

func (s *LeveragedStaking) Name() string { return config.ModeLeveragedStaking }

func (s *LeveragedStaking) Decide(ts time.Time, market model.MarketSnapshot, exp model.Exposure, risk model.RiskAssessment) []model.Order {
	price, ok := market.Price(s.asset)
	if !ok || price.IsZero() {
		return nil
	}

	stakeKey := model.VenueAssetKey(s.venue, s.asset, model.KindStake)
	borrowKey := model.VenueAssetKey(s.venue, s.stable, model.KindBorrow)
	staked := exp.ByAsset[stakeKey].Amount
	debt := exp.ByAsset[borrowKey].Amount // negative when borrowed

	// Risk failure: deleverage by repaying debt from the wallet, atomically
	// with the unstake that funds it.
	if !risk.Passed() {
		if debt.IsZero() {
			return nil
		}
		return s.deleverage(debt.Abs(), price)
	}

	wallet := exp.ByAsset[s.asset].Amount
	if wallet.LessThan(s.minLot) || !staked.IsZero() {
		return nil
	}

	borrowAmt := wallet.Mul(price).Mul(s.loopLTV)
	buyQty := borrowAmt.Div(price)
	groupID := uuid.NewString()

	return []model.Order{
		s.leg(groupID, model.OpStake, s.asset, wallet, "stake wallet balance"),
		s.leg(groupID, model.OpBorrow, s.stable, borrowAmt, "borrow against stake"),
		s.leg(groupID, model.OpSpotTrade, s.asset, buyQty, "buy with borrowed stable"),
		s.leg(groupID, model.OpStake, s.asset, buyQty, "stake bought balance"),
	}
}

func (s *LeveragedStaking) deleverage(debt, price decimal.Decimal) []model.Order {
	unstakeQty := debt.Div(price)
	groupID := uuid.NewString()
	return []model.Order{
		s.leg(groupID, model.OpUnstake, s.asset, unstakeQty, "unwind leverage"),
		s.leg(groupID, model.OpSpotTrade, s.asset, unstakeQty.Neg(), "sell unstaked balance"),
		s.leg(groupID, model.OpRepay, s.stable, debt, "repay borrow"),
	}
}

func (s *LeveragedStaking) leg(groupID string, op model.OperationType, asset string, amount decimal.Decimal, reason string) model.Order {
	return model.Order{
		ID:            uuid.NewString(),
		Operation:     op,
		Venue:         s.venue,
		Asset:         asset,
		Amount:        amount,
		ExecutionMode: model.ExecAtomicGroup,
		AtomicGroupID: groupID,
		Reason:        reason,
	}
}
