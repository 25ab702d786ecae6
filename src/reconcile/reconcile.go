package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"yieldengine/src/events"
	"yieldengine/src/model"
)

// ExternalSource fetches the venue-reported truth the ledger is compared
// against.
type ExternalSource interface {
	FetchPositions(ctx context.Context, ts time.Time) (model.Position, error)
}

type corrector interface {
	Correct(asset string, delta decimal.Decimal, reason string)
}

type auditSink interface {
	Create(ctx context.Context, log *model.ReconciliationLog) error
}

// ErrDivergence reports drift beyond the configured tolerance. The ledger
// has already been corrected when this is returned; the orchestrator decides
// whether the run may continue.
type ErrDivergence struct {
	Asset string
	Drift decimal.Decimal
}

func (e *ErrDivergence) Error() string {
	return fmt.Sprintf("reconciliation divergence on %s: relative drift %s", e.Asset, e.Drift.String())
}

// Reconciler compares ledger snapshots against external truth once per full
// loop and resolves the resulting record before the loop completes.
type Reconciler struct {
	mode      string
	tolerance decimal.Decimal // relative
	ledger    corrector
	events    *events.Logger
	audit     auditSink
}

// New builds a reconciler. audit may be nil in tests.
func New(mode string, tolerance decimal.Decimal, ledger corrector, evts *events.Logger, audit auditSink) *Reconciler {
	return &Reconciler{
		mode:      mode,
		tolerance: tolerance,
		ledger:    ledger,
		events:    evts,
		audit:     audit,
	}
}

// Reconcile diffs the two snapshots per asset. Drift within tolerance is
// recorded and accepted; drift beyond tolerance corrects the ledger to the
// external value, asset by asset, and returns ErrDivergence for the worst
// offender. Either way the resolved record is written to the audit log and
// only the log survives the call.
func (r *Reconciler) Reconcile(ctx context.Context, internal, external model.Position, ts time.Time) (model.ReconciliationRecord, error) {
	record := model.ReconciliationRecord{
		Timestamp: ts,
		Diffs:     make(map[string]decimal.Decimal),
		MaxDrift:  decimal.Zero,
		Status:    model.ReconAccepted,
	}

	var worst *ErrDivergence
	for _, asset := range unionKeys(internal, external) {
		in := internal.Get(asset)
		ext := external.Get(asset)
		diff := in.Sub(ext)
		if diff.IsZero() {
			continue
		}
		record.Diffs[asset] = diff

		drift := relativeDrift(diff, ext)
		if drift.GreaterThan(record.MaxDrift) {
			record.MaxDrift = drift
		}

		if drift.GreaterThan(r.tolerance) {
			record.Status = model.ReconCorrected
			r.ledger.Correct(asset, diff.Neg(), "reconciliation against venue truth")
			r.events.Emit(ctx, events.KindCorrection, ts, map[string]interface{}{
				"asset": asset,
				"delta": diff.Neg().String(),
				"drift": drift.String(),
			})
			if worst == nil || drift.GreaterThan(worst.Drift) {
				worst = &ErrDivergence{Asset: asset, Drift: drift}
			}
		} else {
			logger.WithFields(logger.Fields{
				"asset": asset,
				"diff":  diff.String(),
				"drift": drift.String(),
			}).Info("reconciliation drift within tolerance")
		}
	}

	r.events.Emit(ctx, events.KindReconciliation, ts, map[string]interface{}{
		"status":    string(record.Status),
		"max_drift": record.MaxDrift.String(),
		"diffs":     len(record.Diffs),
	})
	r.persist(ctx, record)

	if worst != nil {
		return record, worst
	}
	return record, nil
}

func (r *Reconciler) persist(ctx context.Context, record model.ReconciliationRecord) {
	if r.audit == nil {
		return
	}
	diffs := make(map[string]string, len(record.Diffs))
	for asset, diff := range record.Diffs {
		diffs[asset] = diff.String()
	}
	encoded, err := json.Marshal(diffs)
	if err != nil {
		encoded = []byte("{}")
	}
	if err := r.audit.Create(ctx, &model.ReconciliationLog{
		Mode:      r.mode,
		CycleTime: record.Timestamp.UTC(),
		Status:    string(record.Status),
		MaxDrift:  record.MaxDrift.String(),
		Diffs:     string(encoded),
	}); err != nil {
		logger.WithError(err).Warn("failed to persist reconciliation log")
	}
}

// relativeDrift scales the diff by the external balance, falling back to the
// absolute diff for assets the venue does not report at all.
func relativeDrift(diff, external decimal.Decimal) decimal.Decimal {
	if external.IsZero() {
		return diff.Abs()
	}
	return diff.Abs().Div(external.Abs())
}

func unionKeys(a, b model.Position) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var keys []string
	for k := range a {
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	for k := range b {
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	return keys
}
