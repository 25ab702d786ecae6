package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Position maps an asset key to its signed balance. It is owned exclusively
// by the ledger; everyone else works on snapshots.
//
// Asset keys come in two shapes:
//
//	"USDT"               plain wallet balance
//	"aave/USDT/supply"   venue position: venue "/" base asset "/" kind
//
// The kind segment is one of supply, borrow, perp, stake.
type Position map[string]decimal.Decimal

const (
	KindWallet = "wallet"
	KindSupply = "supply"
	KindBorrow = "borrow"
	KindPerp   = "perp"
	KindStake  = "stake"
)

// VenueAssetKey builds the canonical key for a venue-held position.
func VenueAssetKey(venue, asset, kind string) string {
	return venue + "/" + asset + "/" + kind
}

// BaseAsset returns the priced asset behind a position key.
func BaseAsset(key string) string {
	parts := strings.Split(key, "/")
	if len(parts) == 3 {
		return parts[1]
	}
	return key
}

// PositionKind returns the kind segment of a key, or KindWallet for plain
// wallet balances.
func PositionKind(key string) string {
	parts := strings.Split(key, "/")
	if len(parts) == 3 {
		return parts[2]
	}
	return KindWallet
}

// PositionVenue returns the venue segment of a key, empty for wallet balances.
func PositionVenue(key string) string {
	parts := strings.Split(key, "/")
	if len(parts) == 3 {
		return parts[0]
	}
	return ""
}

// Clone returns an independent copy of the position map.
func (p Position) Clone() Position {
	out := make(Position, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Get returns the balance for key, decimal.Zero when absent.
func (p Position) Get(key string) decimal.Decimal {
	if v, ok := p[key]; ok {
		return v
	}
	return decimal.Zero
}
