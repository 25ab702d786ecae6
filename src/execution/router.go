package execution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	logger "github.com/sirupsen/logrus"

	"yieldengine/src/events"
	"yieldengine/src/health"
	"yieldengine/src/model"
)

// RouteKey selects a venue adapter.
type RouteKey struct {
	Operation model.OperationType
	Venue     string
}

// VenueAdapter is the capability every venue integration implements.
// A returned error means the call itself failed (transport, timeout);
// a clean rejection comes back as a Trade with Success=false.
type VenueAdapter interface {
	Submit(ctx context.Context, order model.Order, ts time.Time) (model.Trade, error)
}

// ErrCompensationFailed signals that an atomic-group rollback could not be
// completed. The ledger may no longer match the pre-group state, so this is
// unrecoverable at the router level and must surface to the orchestrator.
var ErrCompensationFailed = errors.New("atomic group compensation failed")

// Options tune the router's retry and timeout behaviour.
type Options struct {
	CallTimeout time.Duration // per adapter call; exceeded calls count as failed trades
	MaxAttempts int           // bounded retry for sequential orders
	BackoffBase time.Duration // exponential backoff seed
}

func defaultOptions(o Options) Options {
	if o.CallTimeout <= 0 {
		o.CallTimeout = 10 * time.Second
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = 200 * time.Millisecond
	}
	return o
}

// Router maps orders to venue-specific trades. Sequential orders execute
// independently in list order; orders sharing an atomic group id execute
// all-or-nothing with reverse-order compensation on first failure.
type Router struct {
	adapters map[RouteKey]VenueAdapter
	events   *events.Logger
	opts     Options
	tracker  *health.Tracker

	sleep func(time.Duration) // swapped out in tests
}

func NewRouter(evts *events.Logger, opts Options) *Router {
	return &Router{
		adapters: make(map[RouteKey]VenueAdapter),
		events:   evts,
		opts:     defaultOptions(opts),
		tracker:  health.NewTracker(10),
		sleep:    time.Sleep,
	}
}

// Register installs the adapter for an (operation, venue) pair.
func (r *Router) Register(op model.OperationType, venue string, adapter VenueAdapter) {
	r.adapters[RouteKey{Operation: op, Venue: venue}] = adapter
}

// RegisterAll installs one adapter for every listed operation on a venue.
func (r *Router) RegisterAll(venue string, adapter VenueAdapter, ops ...model.OperationType) {
	for _, op := range ops {
		r.Register(op, venue, adapter)
	}
}

// Route executes the given orders and returns the resulting trades in ledger
// application order. One execution event is emitted per trade, success or
// failure, before Route returns.
//
// An unknown (operation, venue) pair fails the whole call: silently skipping
// an order the strategy asked for would desynchronize intent and state.
func (r *Router) Route(ctx context.Context, orders []model.Order, ts time.Time) ([]model.Trade, error) {
	for _, order := range orders {
		if _, ok := r.adapters[RouteKey{Operation: order.Operation, Venue: order.Venue}]; !ok {
			err := fmt.Errorf("no adapter for operation %s on venue %s", order.Operation, order.Venue)
			r.tracker.RecordError(err.Error())
			return nil, err
		}
	}

	var out []model.Trade
	processedGroups := make(map[string]bool)

	for i, order := range orders {
		if order.ExecutionMode == model.ExecAtomicGroup {
			if processedGroups[order.AtomicGroupID] {
				continue
			}
			processedGroups[order.AtomicGroupID] = true

			group := collectGroup(orders[i:], order.AtomicGroupID)
			trades, err := r.routeAtomicGroup(ctx, group, ts)
			out = append(out, trades...)
			if err != nil {
				return out, err
			}
			continue
		}

		trade := r.submitWithRetry(ctx, order, ts)
		r.events.EmitTrade(ctx, ts, trade)
		out = append(out, trade)
	}
	return out, nil
}

// Health is the router's probe accessor.
func (r *Router) Health() health.Report {
	return r.tracker.Report()
}

func collectGroup(orders []model.Order, groupID string) []model.Order {
	var group []model.Order
	for _, o := range orders {
		if o.ExecutionMode == model.ExecAtomicGroup && o.AtomicGroupID == groupID {
			group = append(group, o)
		}
	}
	return group
}

// submitWithRetry drives one sequential order: bounded exponential backoff
// on transport failures, no retry on a clean venue rejection.
func (r *Router) submitWithRetry(ctx context.Context, order model.Order, ts time.Time) model.Trade {
	var lastErr error
	for attempt := 1; attempt <= r.opts.MaxAttempts; attempt++ {
		trade, err := r.submit(ctx, order, ts)
		if err == nil {
			return trade
		}
		lastErr = err
		r.tracker.RecordError(err.Error())

		logger.WithFields(logger.Fields{
			"order_id": order.ID,
			"venue":    order.Venue,
			"attempt":  attempt,
		}).WithError(err).Warn("venue call failed")

		if attempt < r.opts.MaxAttempts {
			r.sleep(r.opts.BackoffBase << (attempt - 1))
		}
	}
	return failedTrade(order, ts, lastErr.Error())
}

// submit performs a single adapter call under the configured timeout.
// A timeout is a failed trade, never an "unknown" outcome: atomic rollback
// needs a deterministic signal. Live mode re-checks possibly-executed
// timeouts through reconciliation on the next cycle.
func (r *Router) submit(ctx context.Context, order model.Order, ts time.Time) (model.Trade, error) {
	adapter, ok := r.adapters[RouteKey{Operation: order.Operation, Venue: order.Venue}]
	if !ok {
		return model.Trade{}, fmt.Errorf("no adapter for operation %s on venue %s", order.Operation, order.Venue)
	}

	callCtx, cancel := context.WithTimeout(ctx, r.opts.CallTimeout)
	defer cancel()

	trade, err := adapter.Submit(callCtx, order, ts)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return model.Trade{}, fmt.Errorf("venue %s timed out: %w", order.Venue, err)
		}
		return model.Trade{}, err
	}
	if trade.ID == "" {
		trade.ID = uuid.NewString()
	}
	trade.OrderID = order.ID
	trade.Operation = order.Operation
	trade.Venue = order.Venue
	return trade, nil
}

func failedTrade(order model.Order, ts time.Time, reason string) model.Trade {
	return model.Trade{
		ID:             uuid.NewString(),
		OrderID:        order.ID,
		Operation:      order.Operation,
		Venue:          order.Venue,
		Success:        false,
		VenueTimestamp: ts,
		FailureReason:  reason,
	}
}
