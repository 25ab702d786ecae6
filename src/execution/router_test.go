package execution

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"yieldengine/src/events"
	"yieldengine/src/model"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func testEvents() *events.Logger {
	return events.NewLogger("test", io.Discard, nil)
}

// stubAdapter scripts adapter outcomes per call.
type stubAdapter struct {
	calls   int
	submit  func(call int, order model.Order, ts time.Time) (model.Trade, error)
	history []model.Order
}

func (a *stubAdapter) Submit(ctx context.Context, order model.Order, ts time.Time) (model.Trade, error) {
	a.calls++
	a.history = append(a.history, order)
	return a.submit(a.calls, order, ts)
}

func fill(order model.Order, delta map[string]decimal.Decimal) model.Trade {
	return model.Trade{
		ID:            "fill-" + order.ID,
		Success:       true,
		PositionDelta: delta,
	}
}

func reject(reason string) model.Trade {
	return model.Trade{ID: "rej", Success: false, FailureReason: reason}
}

func newTestRouter(opts Options) *Router {
	r := NewRouter(testEvents(), opts)
	r.sleep = func(time.Duration) {}
	return r
}

func TestRouteSequentialSuccess(t *testing.T) {
	adapter := &stubAdapter{
		submit: func(_ int, order model.Order, _ time.Time) (model.Trade, error) {
			return fill(order, map[string]decimal.Decimal{
				order.Asset: order.Amount.Neg(),
				model.VenueAssetKey(order.Venue, order.Asset, model.KindSupply): order.Amount,
			}), nil
		},
	}
	r := newTestRouter(Options{})
	r.Register(model.OpSupply, "aave", adapter)

	order := model.Order{
		ID:            "o1",
		Operation:     model.OpSupply,
		Venue:         "aave",
		Asset:         "USDT",
		Amount:        d("1000"),
		ExecutionMode: model.ExecSequential,
	}

	trades, err := r.Route(context.Background(), []model.Order{order}, time.Now())
	if err != nil {
		t.Fatalf("unexpected route error: %v", err)
	}
	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(trades))
	}
	if !trades[0].Success {
		t.Fatalf("expected success, got failure: %s", trades[0].FailureReason)
	}
	if trades[0].OrderID != "o1" || trades[0].Operation != model.OpSupply || trades[0].Venue != "aave" {
		t.Fatalf("trade not stamped with order identity: %+v", trades[0])
	}
}

func TestRouteUnknownAdapterFailsWholeCall(t *testing.T) {
	r := newTestRouter(Options{})
	r.Register(model.OpSupply, "aave", &stubAdapter{
		submit: func(_ int, order model.Order, _ time.Time) (model.Trade, error) {
			return fill(order, nil), nil
		},
	})

	orders := []model.Order{
		{ID: "o1", Operation: model.OpSupply, Venue: "aave", Amount: d("1")},
		{ID: "o2", Operation: model.OpPerpTrade, Venue: "phantom", Amount: d("1")},
	}

	trades, err := r.Route(context.Background(), orders, time.Now())
	if err == nil {
		t.Fatal("expected routing error for unknown venue")
	}
	if len(trades) != 0 {
		t.Fatalf("no order may execute when routing fails, got %d trades", len(trades))
	}
}

func TestRouteRetriesTransportErrors(t *testing.T) {
	adapter := &stubAdapter{
		submit: func(call int, order model.Order, _ time.Time) (model.Trade, error) {
			if call < 3 {
				return model.Trade{}, errors.New("connection reset")
			}
			return fill(order, nil), nil
		},
	}
	r := newTestRouter(Options{MaxAttempts: 3})
	r.Register(model.OpSpotTrade, "binance", adapter)

	trades, err := r.Route(context.Background(), []model.Order{
		{ID: "o1", Operation: model.OpSpotTrade, Venue: "binance", Asset: "BTC", Amount: d("1")},
	}, time.Now())
	if err != nil {
		t.Fatalf("unexpected route error: %v", err)
	}
	if adapter.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", adapter.calls)
	}
	if !trades[0].Success {
		t.Fatalf("expected eventual success, got: %s", trades[0].FailureReason)
	}
}

func TestRouteExhaustedRetriesBecomeFailedTrade(t *testing.T) {
	adapter := &stubAdapter{
		submit: func(int, model.Order, time.Time) (model.Trade, error) {
			return model.Trade{}, errors.New("connection reset")
		},
	}
	r := newTestRouter(Options{MaxAttempts: 2})
	r.Register(model.OpSpotTrade, "binance", adapter)

	trades, err := r.Route(context.Background(), []model.Order{
		{ID: "o1", Operation: model.OpSpotTrade, Venue: "binance", Asset: "BTC", Amount: d("1")},
	}, time.Now())
	if err != nil {
		t.Fatalf("a dead venue is a failed trade, not a route error: %v", err)
	}
	if adapter.calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", adapter.calls)
	}
	if trades[0].Success {
		t.Fatal("expected failed trade after exhausted retries")
	}
	if trades[0].FailureReason == "" {
		t.Fatal("failed trade must carry the transport failure reason")
	}
}

func TestRouteDoesNotRetryVenueRejections(t *testing.T) {
	adapter := &stubAdapter{
		submit: func(int, model.Order, time.Time) (model.Trade, error) {
			return reject("insufficient balance"), nil
		},
	}
	r := newTestRouter(Options{MaxAttempts: 3})
	r.Register(model.OpSupply, "aave", adapter)

	trades, err := r.Route(context.Background(), []model.Order{
		{ID: "o1", Operation: model.OpSupply, Venue: "aave", Asset: "USDT", Amount: d("1")},
	}, time.Now())
	if err != nil {
		t.Fatalf("unexpected route error: %v", err)
	}
	if adapter.calls != 1 {
		t.Fatalf("a clean rejection must not be retried, got %d calls", adapter.calls)
	}
	if trades[0].Success {
		t.Fatal("expected rejected trade")
	}
}

func TestRouteTimeoutIsFailedTrade(t *testing.T) {
	adapter := &stubAdapter{
		submit: func(_ int, _ model.Order, _ time.Time) (model.Trade, error) {
			return model.Trade{}, context.DeadlineExceeded
		},
	}
	r := newTestRouter(Options{MaxAttempts: 1, CallTimeout: time.Millisecond})
	r.Register(model.OpPerpTrade, "phemex", adapter)

	trades, err := r.Route(context.Background(), []model.Order{
		{ID: "o1", Operation: model.OpPerpTrade, Venue: "phemex", Asset: "BTC", Amount: d("1")},
	}, time.Now())
	if err != nil {
		t.Fatalf("unexpected route error: %v", err)
	}
	if trades[0].Success {
		t.Fatal("a timed-out call must come back as a failed trade")
	}
}
