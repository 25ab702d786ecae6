package strategy

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"yieldengine/src/config"
	"yieldengine/src/model"
)

// PureLending keeps the working asset supplied to the lending venue and only
// holds back a configured idle reserve in the wallet.
type PureLending struct {
	venue   string
	asset   string
	reserve decimal.Decimal // wallet amount kept unlent
	minLot  decimal.Decimal // ignore dust below this size
}

func NewPureLending(cfg *config.ModeConfig) *PureLending {
	return &PureLending{
		venue:   cfg.Venues[0],
		asset:   cfg.Assets[0],
		reserve: cfg.Param("idle_reserve", decimal.Zero),
		minLot:  cfg.Param("min_lot", decimal.NewFromInt(1)),
	}
}

func (s *PureLending) Name() string { return config.ModePureLending }

func (s *PureLending) Decide(ts time.Time, market model.MarketSnapshot, exp model.Exposure, risk model.RiskAssessment) []model.Order {
	wallet := exp.ByAsset[s.asset].Amount

	// Risk failure means no new deployments; an unlevered lending book has
	// nothing to unwind.
	if !risk.Passed() {
		return nil
	}

	idle := wallet.Sub(s.reserve)
	if idle.LessThan(s.minLot) {
		return nil
	}

	return []model.Order{{
		ID:            uuid.NewString(),
		Operation:     model.OpSupply,
		Venue:         s.venue,
		Asset:         s.asset,
		Amount:        idle,
		ExecutionMode: model.ExecSequential,
		Reason:        "deploy idle balance",
	}}
}
