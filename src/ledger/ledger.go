package ledger

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"yieldengine/src/health"
	"yieldengine/src/model"
)

// Ledger holds the authoritative per-asset balances. Balances change only
// through applied trade deltas or explicit reconciliation corrections, both
// logged. Every reader gets an immutable snapshot.
type Ledger struct {
	mu       sync.Mutex
	balances model.Position
	applied  map[string]bool // trade IDs, guards against double application
	tracker  *health.Tracker
}

func New() *Ledger {
	return &Ledger{
		balances: make(model.Position),
		applied:  make(map[string]bool),
		tracker:  health.NewTracker(10),
	}
}

// Seed installs an initial balance. Only valid before the engine starts
// trading; seeded balances are logged like any other mutation.
func (l *Ledger) Seed(asset string, amount decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[asset] = l.balances.Get(asset).Add(amount)

	logger.WithFields(logger.Fields{
		"asset":  asset,
		"amount": amount.String(),
	}).Info("ledger seeded")
}

// Apply folds the deltas of successful trades into the balances, in the
// order given. Failed trades contribute nothing. A trade ID that was already
// applied is skipped and reported: the execution layer does not guarantee
// exactly-once delivery of fills.
func (l *Ledger) Apply(trades []model.Trade) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, trade := range trades {
		if !trade.Success {
			continue
		}
		if trade.ID == "" {
			l.tracker.MarkFailed("trade without ID reached the ledger")
			return fmt.Errorf("trade for order %s has no ID", trade.OrderID)
		}
		if l.applied[trade.ID] {
			l.tracker.RecordError("duplicate trade " + trade.ID)
			logger.WithFields(logger.Fields{
				"trade_id": trade.ID,
				"order_id": trade.OrderID,
			}).Warn("duplicate trade skipped")
			continue
		}

		for asset, delta := range trade.PositionDelta {
			next := l.balances.Get(asset).Add(delta)
			if next.IsZero() {
				delete(l.balances, asset)
			} else {
				l.balances[asset] = next
			}
		}
		l.applied[trade.ID] = true

		logger.WithFields(logger.Fields{
			"trade_id":  trade.ID,
			"order_id":  trade.OrderID,
			"operation": string(trade.Operation),
			"venue":     trade.Venue,
		}).Debug("trade applied")
	}
	return nil
}

// Correct applies an explicit reconciliation correction to one asset.
// Corrections are distinguishable from trade-derived deltas in the log.
func (l *Ledger) Correct(asset string, delta decimal.Decimal, reason string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := l.balances.Get(asset).Add(delta)
	if next.IsZero() {
		delete(l.balances, asset)
	} else {
		l.balances[asset] = next
	}

	logger.WithFields(logger.Fields{
		"asset":  asset,
		"delta":  delta.String(),
		"reason": reason,
	}).Warn("ledger correction applied")
}

// Snapshot returns an immutable copy of the balances. Callers must never
// mutate the returned map in place, and cannot affect the ledger if they do.
func (l *Ledger) Snapshot() model.Position {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances.Clone()
}

// Health is the probe accessor the ledger registers with the health manager.
func (l *Ledger) Health() health.Report {
	return l.tracker.Report()
}
