package marketdata

import (
	"fmt"
	"time"

	"yieldengine/src/model"
)

// Provider supplies the time-indexed market and protocol data the engine
// consumes each cycle.
type Provider interface {
	// GetData returns the snapshot in effect at ts.
	GetData(ts time.Time) (model.MarketSnapshot, error)
	// ValidateRequirements checks the provider can serve every data field
	// the active mode declares. Called once at startup; a missing field is
	// a configuration error, not a runtime gap.
	ValidateRequirements(fields []string, assets []string) error
}

// validFields is the closed set of declarable data requirement names.
var validFields = map[string]bool{
	model.DataFieldPrices:         true,
	model.DataFieldPerpPrices:     true,
	model.DataFieldSupplyRates:    true,
	model.DataFieldBorrowRates:    true,
	model.DataFieldFundingRates:   true,
	model.DataFieldRewardRates:    true,
	model.DataFieldStakingOracles: true,
}

func checkFieldNames(fields []string) error {
	for _, f := range fields {
		if !validFields[f] {
			return fmt.Errorf("unknown data requirement field %q", f)
		}
	}
	return nil
}
