package events

import (
	"context"
	"encoding/json"
	"io"
	"time"

	logger "github.com/sirupsen/logrus"

	"yieldengine/src/model"
)

// Kind names one audit event type.
type Kind string

const (
	KindCycleStart     Kind = "cycle_start"
	KindCycleEnd       Kind = "cycle_end"
	KindOrder          Kind = "order"
	KindTrade          Kind = "trade"
	KindReconciliation Kind = "reconciliation"
	KindAttribution    Kind = "attribution"
	KindCorrection     Kind = "correction"
	KindError          Kind = "error"
)

type persister interface {
	Create(ctx context.Context, event *model.EngineEvent) error
}

// Logger is the structured event sink: one JSON-line record per event on the
// stream writer, plus best-effort persistence for audit queries.
type Logger struct {
	mode   string
	stream *logger.Logger
	repo   persister
}

// NewLogger builds an event logger writing JSON lines to w. repo may be nil,
// in which case events are stream-only (used by unit tests).
func NewLogger(mode string, w io.Writer, repo persister) *Logger {
	stream := logger.New()
	stream.SetOutput(w)
	stream.SetFormatter(&logger.JSONFormatter{})
	stream.SetLevel(logger.InfoLevel)

	return &Logger{
		mode:   mode,
		stream: stream,
		repo:   repo,
	}
}

// Emit writes one event record. Stream and persistence failures never
// propagate: losing an audit line must not break the cycle that produced it.
func (l *Logger) Emit(ctx context.Context, kind Kind, cycle time.Time, payload map[string]interface{}) {
	fields := logger.Fields{
		"event":      string(kind),
		"mode":       l.mode,
		"cycle_time": cycle.UTC().Format(time.RFC3339Nano),
	}
	for k, v := range payload {
		fields[k] = v
	}
	l.stream.WithFields(fields).Info("engine event")

	if l.repo == nil {
		return
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		logger.WithError(err).WithField("event", string(kind)).
			Warn("failed to encode event payload")
		encoded = []byte("{}")
	}
	if err := l.repo.Create(ctx, &model.EngineEvent{
		Kind:      string(kind),
		Mode:      l.mode,
		CycleTime: cycle.UTC(),
		Payload:   string(encoded),
	}); err != nil {
		logger.WithError(err).WithField("event", string(kind)).
			Warn("failed to persist event")
	}
}

// EmitTrade is a convenience wrapper emitting the canonical trade payload.
func (l *Logger) EmitTrade(ctx context.Context, cycle time.Time, trade model.Trade) {
	l.Emit(ctx, KindTrade, cycle, map[string]interface{}{
		"trade_id":       trade.ID,
		"order_id":       trade.OrderID,
		"operation":      string(trade.Operation),
		"venue":          trade.Venue,
		"success":        trade.Success,
		"compensation":   trade.Compensation,
		"failure_reason": trade.FailureReason,
	})
}

// EmitOrder is a convenience wrapper emitting the canonical order payload.
func (l *Logger) EmitOrder(ctx context.Context, cycle time.Time, order model.Order) {
	l.Emit(ctx, KindOrder, cycle, map[string]interface{}{
		"order_id":        order.ID,
		"operation":       string(order.Operation),
		"venue":           order.Venue,
		"asset":           order.Asset,
		"amount":          order.Amount.String(),
		"execution_mode":  string(order.ExecutionMode),
		"atomic_group_id": order.AtomicGroupID,
	})
}
