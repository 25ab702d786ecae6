package engine

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"yieldengine/src/config"
	"yieldengine/src/connectors"
	"yieldengine/src/events"
	"yieldengine/src/execution"
	"yieldengine/src/health"
	"yieldengine/src/ledger"
	"yieldengine/src/marketdata"
	"yieldengine/src/model"
	"yieldengine/src/reconcile"
	"yieldengine/src/strategy"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var t0 = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func lendingConfig(steps int) *config.ModeConfig {
	return &config.ModeConfig{
		Mode:              config.ModePureLending,
		ReportingCurrency: "USDT",
		Venues:            []string{"aave"},
		Assets:            []string{"USDT"},
		AttributionTypes:  []string{"supply_yield", "dust_pnl"},
		DataRequirements:  []string{"prices", "supply_rates"},
		ReconTolerance:    d("0.01"),
		PnLTolerance:      d("0.000001"),
		InitialBalances:   map[string]decimal.Decimal{"USDT": d("1000")},
		Backtest: config.BacktestWindow{
			Start: t0,
			End:   t0.Add(time.Duration(steps-1) * time.Hour),
			Step:  time.Hour,
		},
	}
}

func lendingSnapshots(steps int) *marketdata.StaticProvider {
	provider := marketdata.NewStaticProvider()
	for i := 0; i < steps; i++ {
		provider.Add(model.MarketSnapshot{
			Timestamp:   t0.Add(time.Duration(i) * time.Hour),
			Prices:      map[string]decimal.Decimal{"USDT": d("1")},
			SupplyRates: map[string]decimal.Decimal{"USDT": d("0.05")},
		})
	}
	return provider
}

type testRig struct {
	engine *Engine
	book   *ledger.Ledger
	mirror *connectors.Mirror
	health *health.Manager
}

func newLendingRig(t *testing.T, cfg *config.ModeConfig, provider marketdata.Provider) *testRig {
	t.Helper()

	evts := events.NewLogger(cfg.Mode, io.Discard, nil)
	book := ledger.New()
	mirror := connectors.NewMirror()
	for asset, amount := range cfg.InitialBalances {
		book.Seed(asset, amount)
		mirror.Seed(asset, amount)
	}

	router := execution.NewRouter(evts, execution.Options{})
	sim := connectors.NewSimVenue("aave", "USDT", decimal.Zero, provider)
	router.RegisterAll("aave", sim,
		model.OpSupply, model.OpWithdraw,
		model.OpBorrow, model.OpRepay,
		model.OpSpotTrade, model.OpPerpTrade,
		model.OpStake, model.OpUnstake,
		model.OpTransfer,
	)

	strat, err := strategy.New(cfg)
	if err != nil {
		t.Fatalf("failed to build strategy: %v", err)
	}

	healthMgr := health.NewManager()
	eng, err := New(Deps{
		Config:     cfg,
		Data:       provider,
		Strategy:   strat,
		Router:     router,
		Ledger:     book,
		Reconciler: reconcile.New(cfg.Mode, cfg.ReconTolerance, book, evts, nil),
		External:   mirror,
		Health:     healthMgr,
		Events:     evts,
		Observer:   mirror,
	})
	if err != nil {
		t.Fatalf("failed to build engine: %v", err)
	}

	return &testRig{engine: eng, book: book, mirror: mirror, health: healthMgr}
}

func TestNewRejectsIncompleteWiring(t *testing.T) {
	cfg := lendingConfig(1)
	provider := lendingSnapshots(1)
	evts := events.NewLogger(cfg.Mode, io.Discard, nil)

	_, err := New(Deps{
		Config: cfg,
		Data:   provider,
		Events: evts,
	})
	if err == nil {
		t.Fatal("expected wiring error")
	}
}

func TestNewRejectsUnservableDataRequirements(t *testing.T) {
	cfg := lendingConfig(1)
	cfg.DataRequirements = []string{"prices", "funding_rates"}

	provider := lendingSnapshots(1)
	rigErr := func() error {
		evts := events.NewLogger(cfg.Mode, io.Discard, nil)
		book := ledger.New()
		strat, err := strategy.New(cfg)
		if err != nil {
			return err
		}
		_, err = New(Deps{
			Config:     cfg,
			Data:       provider,
			Strategy:   strat,
			Router:     execution.NewRouter(evts, execution.Options{}),
			Ledger:     book,
			Reconciler: reconcile.New(cfg.Mode, cfg.ReconTolerance, book, evts, nil),
			External:   connectors.NewMirror(),
			Health:     health.NewManager(),
			Events:     evts,
		})
		return err
	}()
	if rigErr == nil {
		t.Fatal("expected data requirements error")
	}
}

func TestBacktestDeploysAndStaysReconciled(t *testing.T) {
	cfg := lendingConfig(3)
	rig := newLendingRig(t, cfg, lendingSnapshots(3))

	if err := rig.engine.RunBacktest(context.Background()); err != nil {
		t.Fatalf("unexpected backtest error: %v", err)
	}

	snap := rig.book.Snapshot()
	if _, ok := snap["USDT"]; ok {
		t.Fatalf("wallet should be fully deployed, got %s", snap.Get("USDT"))
	}
	if !snap.Get("aave/USDT/supply").Equal(d("1000")) {
		t.Fatalf("supply position mismatch. got=%s want=1000", snap.Get("aave/USDT/supply"))
	}

	// The mirror walked the same trades, so the books agree.
	external, err := rig.mirror.FetchPositions(context.Background(), t0)
	if err != nil {
		t.Fatalf("unexpected fetch error: %v", err)
	}
	if !external.Get("aave/USDT/supply").Equal(d("1000")) {
		t.Fatalf("mirror disagrees with ledger: %v", external)
	}
}

func TestBacktestHaltsOnDivergence(t *testing.T) {
	cfg := lendingConfig(3)
	rig := newLendingRig(t, cfg, lendingSnapshots(3))

	// The venue disagrees with the ledger by 10% before the run starts.
	rig.mirror.Adjust("USDT", d("-100"))

	err := rig.engine.RunBacktest(context.Background())
	var divergence *reconcile.ErrDivergence
	if !errors.As(err, &divergence) {
		t.Fatalf("expected ErrDivergence, got %v", err)
	}

	report := rig.health.Check(ComponentEngine)
	if report.Status != health.StatusUnhealthy {
		t.Fatalf("engine must report unhealthy after halting, got %s", report.Status)
	}
}

func TestTightLoopFillIsAppliedBeforeNextCycle(t *testing.T) {
	cfg := lendingConfig(2)
	// Large reserve so the strategy leaves the wallet alone and the fill's
	// effect stays visible.
	cfg.Params = map[string]decimal.Decimal{"idle_reserve": d("100000")}
	rig := newLendingRig(t, cfg, lendingSnapshots(2))

	fill := model.Trade{
		ID:      "async-1",
		OrderID: "o-async",
		Success: true,
		PositionDelta: map[string]decimal.Decimal{
			"USDT": d("50"),
		},
		VenueTimestamp: t0,
	}
	rig.engine.Fills() <- fill

	if err := rig.engine.RunBacktest(context.Background()); err != nil {
		t.Fatalf("unexpected backtest error: %v", err)
	}

	if !rig.book.Snapshot().Get("USDT").Equal(d("1050")) {
		t.Fatalf("fill not applied. got=%s want=1050", rig.book.Snapshot().Get("USDT"))
	}
}

func TestRunLiveStopsOnContextCancel(t *testing.T) {
	cfg := lendingConfig(1)
	cfg.Params = map[string]decimal.Decimal{"idle_reserve": d("100000")}
	rig := newLendingRig(t, cfg, lendingSnapshots(1))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- rig.engine.RunLive(ctx, time.Hour)
	}()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("cancelled live loop should return nil, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("live loop did not stop on cancel")
	}
}
