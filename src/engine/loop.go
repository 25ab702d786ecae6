package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"yieldengine/src/attribution"
	"yieldengine/src/events"
	"yieldengine/src/execution"
	"yieldengine/src/exposure"
	"yieldengine/src/health"
	"yieldengine/src/model"
	"yieldengine/src/reconcile"
	"yieldengine/src/risk"
)

// RunBacktest replays the configured window, one full loop per step, and
// ends at the end timestamp. Pending fills are drained between cycles so
// tight-loop updates never overlap a full loop's critical section.
func (e *Engine) RunBacktest(ctx context.Context) error {
	window := e.cfg.Backtest
	if window.Step <= 0 {
		return fmt.Errorf("backtest step not configured")
	}

	logger.WithFields(logger.Fields{
		"mode":  e.cfg.Mode,
		"start": window.Start,
		"end":   window.End,
	}).Info("backtest starting")

	for ts := window.Start; !ts.After(window.End); ts = ts.Add(window.Step) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if e.halted {
			return fmt.Errorf("engine halted before %s", ts)
		}

		e.drainFills(ctx)

		if err := e.runCycle(ctx, ts); err != nil {
			return err
		}
	}

	logger.WithField("mode", e.cfg.Mode).Info("backtest finished")
	return nil
}

// RunLive ticks on the wall clock until the context is cancelled. Fills
// arriving between ticks are applied immediately through the tight loop.
func (e *Engine) RunLive(ctx context.Context, period time.Duration) error {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	logger.WithFields(logger.Fields{
		"mode":   e.cfg.Mode,
		"period": period,
	}).Info("live loop starting")

	for {
		select {
		case <-ctx.Done():
			logger.Info("live loop stopped")
			return nil

		case trade := <-e.fills:
			e.applyFill(ctx, trade)

		case <-ticker.C:
			if !e.healthGate() {
				return fmt.Errorf("engine halted: core component unhealthy")
			}
			if err := e.runCycle(ctx, time.Now().UTC()); err != nil {
				if e.halted {
					return err
				}
				// Degraded but recoverable: skip this cycle, keep running.
				logger.WithError(err).Error("cycle failed")
			}
		}
	}
}

// healthGate halts the full loop when the ledger or the router reports
// unhealthy. Degraded components keep running.
func (e *Engine) healthGate() bool {
	for _, name := range []string{ComponentLedger, ComponentRouter} {
		report := e.healthMgr.Check(name)
		if report.Status == health.StatusUnhealthy {
			e.halted = true
			e.tracker.MarkFailed(name + " unhealthy")
			logger.WithFields(logger.Fields{
				"component": name,
				"errors":    report.RecentErrors,
			}).Error("halting full loop")
			return false
		}
	}
	return true
}

// runCycle is the full loop: Exposure -> Risk -> PnL -> Strategy ->
// Execution -> Ledger -> Reconciliation, in that order, no step skipped.
func (e *Engine) runCycle(ctx context.Context, ts time.Time) error {
	e.events.Emit(ctx, events.KindCycleStart, ts, nil)

	market, err := e.data.GetData(ts)
	if err != nil {
		e.dataTrk.RecordError(err.Error())
		e.capture(ctx, "engine", "GetData", "high", err)
		return fmt.Errorf("no market data for %s: %w", ts, err)
	}
	e.lastMarket = &market

	position := e.book.Snapshot()
	exp, err := exposure.Compute(position, market, e.cfg)
	if err != nil {
		e.capture(ctx, "engine", "Compute", "high", err)
		return err
	}

	assessment := risk.Assess(exp, e.highWater, e.cfg.RiskLimits)
	if exp.NetReporting.GreaterThan(e.highWater) {
		e.highWater = exp.NetReporting
	}

	if err := e.attributePeriod(ctx, ts, exp, market); err != nil {
		// Attribution mismatch is an accounting alarm, not a trading halt.
		e.capture(ctx, "attribution", "Attribute", "high", err)
	}

	orders := e.strat.Decide(ts, market, exp, assessment)
	for _, order := range orders {
		e.events.EmitOrder(ctx, ts, order)
	}

	trades, err := e.executeAndReconcile(ctx, orders, ts)
	if err != nil {
		return err
	}

	e.prevExposure = &exp
	e.prevMarket = market
	e.prevPosition = position
	e.periodTrades = trades

	e.events.Emit(ctx, events.KindCycleEnd, ts, map[string]interface{}{
		"orders":        len(orders),
		"trades":        len(trades),
		"net_usd":       exp.NetUSD.String(),
		"risk_verdict":  string(assessment.Verdict),
		"risk_breaches": assessment.Breaches,
	})
	return nil
}

// executeAndReconcile runs the critical section on the ledger: routing,
// ledger application and reconciliation never interleave with tight-loop
// fills.
func (e *Engine) executeAndReconcile(ctx context.Context, orders []model.Order, ts time.Time) ([]model.Trade, error) {
	e.ledgerMu.Lock()
	defer e.ledgerMu.Unlock()

	trades, routeErr := e.router.Route(ctx, orders, ts)

	if err := e.book.Apply(trades); err != nil {
		e.halted = true
		e.tracker.MarkFailed(err.Error())
		e.capture(ctx, "ledger", "Apply", "critical", err)
		return trades, err
	}
	if e.observer != nil {
		e.observer.Record(trades)
	}

	if routeErr != nil {
		if errors.Is(routeErr, execution.ErrCompensationFailed) {
			// The ledger may no longer match pre-group state; nothing below
			// the orchestrator can decide this, so stop taking cycles.
			e.halted = true
			e.tracker.MarkFailed(routeErr.Error())
			e.capture(ctx, "execution_router", "Route", "critical", routeErr)
			return trades, routeErr
		}
		e.capture(ctx, "execution_router", "Route", "high", routeErr)
		return trades, routeErr
	}

	external, err := e.external.FetchPositions(ctx, ts)
	if err != nil {
		e.capture(ctx, "reconcile", "FetchPositions", "high", err)
		return trades, err
	}
	if _, err := e.reconciler.Reconcile(ctx, e.book.Snapshot(), external, ts); err != nil {
		var divergence *reconcile.ErrDivergence
		if errors.As(err, &divergence) {
			e.halted = true
			e.tracker.MarkFailed(err.Error())
			e.capture(ctx, "reconcile", "Reconcile", "critical", err)
		}
		return trades, err
	}
	return trades, nil
}

// attributePeriod decomposes the PnL between the previous full loop and now.
// Nothing to attribute on the first cycle.
func (e *Engine) attributePeriod(ctx context.Context, ts time.Time, exp model.Exposure, market model.MarketSnapshot) error {
	if e.prevExposure == nil {
		return nil
	}

	record, err := e.attrib.Attribute(attribution.Inputs{
		PrevExposure: *e.prevExposure,
		CurrExposure: exp,
		PrevMarket:   e.prevMarket,
		CurrMarket:   market,
		OpenPosition: e.prevPosition,
		PeriodYears:  yearsBetween(e.prevExposure.Timestamp, ts),
		Trades:       e.periodTrades,
	})
	if err != nil {
		return err
	}

	contributions := make(map[string]interface{}, len(record.Contributions))
	for name, value := range record.Contributions {
		contributions[name] = value.String()
	}
	e.events.Emit(ctx, events.KindAttribution, ts, map[string]interface{}{
		"pnl_total":         record.Total.String(),
		"pnl_exposure":      record.ExposurePnL.String(),
		"pnl_contributions": contributions,
	})
	return nil
}

// applyFill is the tight loop: fold one asynchronous fill into the ledger
// and refresh derived state, without re-running the strategy decision.
func (e *Engine) applyFill(ctx context.Context, trade model.Trade) {
	e.ledgerMu.Lock()
	defer e.ledgerMu.Unlock()

	if err := e.book.Apply([]model.Trade{trade}); err != nil {
		e.halted = true
		e.tracker.MarkFailed(err.Error())
		e.capture(ctx, "ledger", "Apply", "critical", err)
		return
	}
	if e.observer != nil {
		e.observer.Record([]model.Trade{trade})
	}
	e.periodTrades = append(e.periodTrades, trade)
	e.events.EmitTrade(ctx, trade.VenueTimestamp, trade)

	if e.lastMarket == nil {
		return
	}
	exp, err := exposure.Compute(e.book.Snapshot(), *e.lastMarket, e.cfg)
	if err != nil {
		logger.WithError(err).Warn("tight loop exposure refresh failed")
		return
	}
	assessment := risk.Assess(exp, e.highWater, e.cfg.RiskLimits)

	logger.WithFields(logger.Fields{
		"trade_id":     trade.ID,
		"net_usd":      exp.NetUSD.String(),
		"risk_verdict": string(assessment.Verdict),
	}).Debug("tight loop applied fill")
}

func (e *Engine) drainFills(ctx context.Context) {
	for {
		select {
		case trade := <-e.fills:
			e.applyFill(ctx, trade)
		default:
			return
		}
	}
}

func (e *Engine) capture(ctx context.Context, module, method, level string, err error) {
	e.events.Emit(ctx, events.KindError, time.Now().UTC(), map[string]interface{}{
		"module": module,
		"method": method,
		"level":  level,
		"error":  err.Error(),
	})
	if e.exceptions != nil {
		e.exceptions.Capture(ctx, module, method, level, err, nil)
	}
}

// yearsBetween converts a period to year fraction for rate accrual.
func yearsBetween(from, to time.Time) decimal.Decimal {
	seconds := decimal.NewFromFloat(to.Sub(from).Seconds())
	return seconds.Div(decimal.NewFromInt(365 * 24 * 3600))
}
