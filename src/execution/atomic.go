package execution

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	logger "github.com/sirupsen/logrus"

	"yieldengine/src/model"
)

// routeAtomicGroup executes a group of orders as a unit. Every leg runs in
// list order with no retry: retrying inside the group would stretch the
// window between a leg and its eventual compensation. On the first failure,
// every already-applied leg is compensated in reverse order and the group is
// reported as a single failed outcome.
//
// Returned trades: the succeeded legs, then the failed leg, then the
// compensation legs in reverse order. Their deltas net to zero, so ledger
// application leaves the pre-group state intact.
func (r *Router) routeAtomicGroup(ctx context.Context, group []model.Order, ts time.Time) ([]model.Trade, error) {
	groupID := group[0].AtomicGroupID

	var applied []model.Order
	var out []model.Trade

	for _, order := range group {
		trade, err := r.submit(ctx, order, ts)
		if err != nil {
			trade = failedTrade(order, ts, err.Error())
		}
		r.events.EmitTrade(ctx, ts, trade)
		out = append(out, trade)

		if !trade.Success {
			r.tracker.RecordError(fmt.Sprintf("atomic group %s failed at order %s", groupID, order.ID))
			logger.WithFields(logger.Fields{
				"group_id": groupID,
				"order_id": order.ID,
				"reason":   trade.FailureReason,
			}).Warn("atomic group failed, rolling back")

			compensations, rollbackErr := r.rollback(ctx, applied, groupID, ts)
			out = append(out, compensations...)
			if rollbackErr != nil {
				return out, rollbackErr
			}
			return out, nil
		}
		applied = append(applied, order)
	}
	return out, nil
}

// rollback issues one compensating inverse action per applied order, newest
// first. A compensation that itself fails leaves the ledger off the
// pre-group state, which the router cannot repair; it reports
// ErrCompensationFailed for the orchestrator to act on.
func (r *Router) rollback(ctx context.Context, applied []model.Order, groupID string, ts time.Time) ([]model.Trade, error) {
	var out []model.Trade
	for i := len(applied) - 1; i >= 0; i-- {
		comp := InverseOrder(applied[i])

		trade, err := r.submit(ctx, comp, ts)
		if err != nil {
			trade = failedTrade(comp, ts, err.Error())
		}
		trade.Compensation = true
		r.events.EmitTrade(ctx, ts, trade)
		out = append(out, trade)

		if !trade.Success {
			r.tracker.MarkFailed(fmt.Sprintf(
				"compensation for order %s in group %s failed: %s",
				applied[i].ID, groupID, trade.FailureReason,
			))
			return out, fmt.Errorf("group %s order %s: %w", groupID, applied[i].ID, ErrCompensationFailed)
		}
	}
	return out, nil
}

// InverseOrder builds the compensating action for an already-applied order.
// Paired operations invert to their counterpart with the same amount; the
// self-inverse operations invert by negating the amount.
func InverseOrder(o model.Order) model.Order {
	inv := model.Order{
		ID:            uuid.NewString(),
		Venue:         o.Venue,
		Asset:         o.Asset,
		Amount:        o.Amount,
		ExecutionMode: model.ExecSequential,
		Reason:        "compensation for " + o.ID,
	}
	switch o.Operation {
	case model.OpSupply:
		inv.Operation = model.OpWithdraw
	case model.OpWithdraw:
		inv.Operation = model.OpSupply
	case model.OpBorrow:
		inv.Operation = model.OpRepay
	case model.OpRepay:
		inv.Operation = model.OpBorrow
	case model.OpStake:
		inv.Operation = model.OpUnstake
	case model.OpUnstake:
		inv.Operation = model.OpStake
	default:
		// spot_trade, perp_trade, transfer reverse themselves
		inv.Operation = o.Operation
		inv.Amount = o.Amount.Neg()
	}
	return inv
}
