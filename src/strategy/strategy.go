package strategy

import (
	"fmt"
	"time"

	"yieldengine/src/config"
	"yieldengine/src/model"
)

// Strategy is the one capability every trading mode implements. Decide reads
// the current market, exposure and risk state and returns the orders it
// wants executed this cycle, in execution order. Returning no orders is a
// normal outcome, not a failure.
type Strategy interface {
	Name() string
	Decide(ts time.Time, market model.MarketSnapshot, exp model.Exposure, risk model.RiskAssessment) []model.Order
}

// New resolves the concrete variant for the configured mode, once, at
// construction time. After this point nothing in the engine branches on the
// mode identifier again.
func New(cfg *config.ModeConfig) (Strategy, error) {
	switch cfg.Mode {
	case config.ModePureLending:
		return NewPureLending(cfg), nil
	case config.ModeBasisTrade:
		return NewBasisTrade(cfg), nil
	case config.ModeLeveragedStaking:
		return NewLeveragedStaking(cfg), nil
	case config.ModeMarketNeutral:
		return NewMarketNeutral(cfg), nil
	case config.ModeDirectional:
		return NewDirectional(cfg), nil
	default:
		return nil, fmt.Errorf("no strategy for mode %q", cfg.Mode)
	}
}
