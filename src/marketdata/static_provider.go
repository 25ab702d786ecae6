package marketdata

import (
	"fmt"
	"time"

	"yieldengine/src/model"
)

// StaticProvider serves pre-built snapshots keyed by timestamp. Useful for
// deterministic engine tests and dry runs without a market database.
type StaticProvider struct {
	snapshots map[int64]model.MarketSnapshot
}

func NewStaticProvider(snapshots ...model.MarketSnapshot) *StaticProvider {
	p := &StaticProvider{snapshots: make(map[int64]model.MarketSnapshot, len(snapshots))}
	for _, snap := range snapshots {
		p.snapshots[snap.Timestamp.Unix()] = snap
	}
	return p
}

// Add registers or replaces the snapshot for its timestamp.
func (p *StaticProvider) Add(snap model.MarketSnapshot) {
	p.snapshots[snap.Timestamp.Unix()] = snap
}

func (p *StaticProvider) GetData(ts time.Time) (model.MarketSnapshot, error) {
	snap, ok := p.snapshots[ts.Unix()]
	if !ok {
		return model.MarketSnapshot{}, fmt.Errorf("no snapshot for %s", ts)
	}
	return snap, nil
}

// ValidateRequirements checks every registered snapshot carries the declared
// fields for the configured assets.
func (p *StaticProvider) ValidateRequirements(fields []string, assets []string) error {
	if err := checkFieldNames(fields); err != nil {
		return err
	}
	for _, snap := range p.snapshots {
		for _, field := range fields {
			for _, asset := range assets {
				if !snapshotHas(snap, field, asset) {
					return fmt.Errorf("data requirement unmet: no %s data for %s at %s",
						field, asset, snap.Timestamp)
				}
			}
		}
	}
	return nil
}

func snapshotHas(snap model.MarketSnapshot, field, asset string) bool {
	switch field {
	case model.DataFieldPrices:
		_, ok := snap.Prices[asset]
		return ok || stableAssets[asset]
	case model.DataFieldPerpPrices:
		_, ok := snap.PerpPrices[asset]
		return ok
	case model.DataFieldSupplyRates:
		_, ok := snap.SupplyRates[asset]
		return ok
	case model.DataFieldBorrowRates:
		_, ok := snap.BorrowRates[asset]
		return ok
	case model.DataFieldFundingRates:
		_, ok := snap.FundingRates[asset]
		return ok
	case model.DataFieldRewardRates:
		_, ok := snap.RewardRates[asset]
		return ok
	case model.DataFieldStakingOracles:
		_, ok := snap.StakingOracles[asset]
		return ok
	}
	return false
}
