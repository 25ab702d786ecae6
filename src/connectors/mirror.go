package connectors

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"yieldengine/src/model"
)

// Mirror is the backtest stand-in for venue-reported truth: it accumulates
// the same successful trade deltas as the ledger, but independently, so
// reconciliation has a second bookkeeper to compare against. Drift can be
// injected explicitly for chaos runs and tests.
type Mirror struct {
	mu       sync.Mutex
	balances model.Position
}

func NewMirror() *Mirror {
	return &Mirror{balances: make(model.Position)}
}

// Record folds successful trades into the mirror's books.
func (m *Mirror) Record(trades []model.Trade) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, trade := range trades {
		if !trade.Success {
			continue
		}
		for asset, delta := range trade.PositionDelta {
			next := m.balances.Get(asset).Add(delta)
			if next.IsZero() {
				delete(m.balances, asset)
			} else {
				m.balances[asset] = next
			}
		}
	}
}

// Seed mirrors an initial ledger balance.
func (m *Mirror) Seed(asset string, amount decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[asset] = m.balances.Get(asset).Add(amount)
}

// Adjust injects drift, shifting one balance away from what the ledger saw.
func (m *Mirror) Adjust(asset string, delta decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[asset] = m.balances.Get(asset).Add(delta)
}

// FetchPositions returns the venue-reported balances.
func (m *Mirror) FetchPositions(ctx context.Context, ts time.Time) (model.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances.Clone(), nil
}
