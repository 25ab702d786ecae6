package connectors

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"yieldengine/src/model"
)

// PriceSource supplies the market snapshot a simulated venue fills against.
type PriceSource interface {
	GetData(ts time.Time) (model.MarketSnapshot, error)
}

// SimVenue fills orders instantly against historical market data. It backs
// every venue in backtest mode and charges a flat proportional fee in the
// quote asset.
type SimVenue struct {
	Venue      string
	QuoteAsset string
	FeeRate    decimal.Decimal
	Prices     PriceSource

	// RejectFunc, when set, lets tests and chaos runs inject venue
	// rejections for specific orders.
	RejectFunc func(order model.Order) string
}

func NewSimVenue(venue, quoteAsset string, feeRate decimal.Decimal, prices PriceSource) *SimVenue {
	return &SimVenue{
		Venue:      venue,
		QuoteAsset: quoteAsset,
		FeeRate:    feeRate,
		Prices:     prices,
	}
}

// Submit executes one order against the simulated venue.
func (v *SimVenue) Submit(ctx context.Context, order model.Order, ts time.Time) (model.Trade, error) {
	if err := ctx.Err(); err != nil {
		return model.Trade{}, err
	}

	if v.RejectFunc != nil {
		if reason := v.RejectFunc(order); reason != "" {
			return v.rejected(order, ts, reason), nil
		}
	}
	if order.Amount.IsZero() {
		return v.rejected(order, ts, "zero amount"), nil
	}

	market, err := v.Prices.GetData(ts)
	if err != nil {
		return model.Trade{}, fmt.Errorf("sim venue %s: %w", v.Venue, err)
	}
	price, ok := market.Price(order.Asset)
	if !ok {
		return model.Trade{}, fmt.Errorf("sim venue %s: no price for %s", v.Venue, order.Asset)
	}

	delta, fee := v.deltasFor(order, price)
	if delta == nil {
		return v.rejected(order, ts, "unsupported operation "+string(order.Operation)), nil
	}

	return model.Trade{
		ID:             uuid.NewString(),
		OrderID:        order.ID,
		Operation:      order.Operation,
		Venue:          v.Venue,
		Success:        true,
		PositionDelta:  delta,
		FeeUSD:         fee,
		VenueTimestamp: ts,
	}, nil
}

// deltasFor translates an operation into its position deltas. Quantities
// move between the wallet key and the venue-scoped position key; trading
// operations additionally pay a fee out of the quote wallet.
func (v *SimVenue) deltasFor(order model.Order, price decimal.Decimal) (map[string]decimal.Decimal, decimal.Decimal) {
	amt := order.Amount
	asset := order.Asset

	switch order.Operation {
	case model.OpSupply:
		return map[string]decimal.Decimal{
			asset: amt.Neg(),
			model.VenueAssetKey(v.Venue, asset, model.KindSupply): amt,
		}, decimal.Zero
	case model.OpWithdraw:
		return map[string]decimal.Decimal{
			asset: amt,
			model.VenueAssetKey(v.Venue, asset, model.KindSupply): amt.Neg(),
		}, decimal.Zero
	case model.OpBorrow:
		return map[string]decimal.Decimal{
			asset: amt,
			model.VenueAssetKey(v.Venue, asset, model.KindBorrow): amt.Neg(),
		}, decimal.Zero
	case model.OpRepay:
		return map[string]decimal.Decimal{
			asset: amt.Neg(),
			model.VenueAssetKey(v.Venue, asset, model.KindBorrow): amt,
		}, decimal.Zero
	case model.OpStake:
		return map[string]decimal.Decimal{
			asset: amt.Neg(),
			model.VenueAssetKey(v.Venue, asset, model.KindStake): amt,
		}, decimal.Zero
	case model.OpUnstake:
		return map[string]decimal.Decimal{
			asset: amt,
			model.VenueAssetKey(v.Venue, asset, model.KindStake): amt.Neg(),
		}, decimal.Zero
	case model.OpSpotTrade:
		fee := amt.Abs().Mul(price).Mul(v.FeeRate)
		return map[string]decimal.Decimal{
			asset:        amt,
			v.QuoteAsset: amt.Mul(price).Neg().Sub(fee),
		}, fee
	case model.OpPerpTrade:
		fee := amt.Abs().Mul(price).Mul(v.FeeRate)
		return map[string]decimal.Decimal{
			model.VenueAssetKey(v.Venue, asset, model.KindPerp): amt,
			v.QuoteAsset: fee.Neg(),
		}, fee
	case model.OpTransfer:
		return map[string]decimal.Decimal{asset: amt}, decimal.Zero
	default:
		return nil, decimal.Zero
	}
}

func (v *SimVenue) rejected(order model.Order, ts time.Time, reason string) model.Trade {
	return model.Trade{
		ID:             uuid.NewString(),
		OrderID:        order.ID,
		Operation:      order.Operation,
		Venue:          v.Venue,
		Success:        false,
		VenueTimestamp: ts,
		FailureReason:  reason,
	}
}
