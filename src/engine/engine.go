package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"yieldengine/src/attribution"
	"yieldengine/src/config"
	"yieldengine/src/events"
	"yieldengine/src/execution"
	"yieldengine/src/health"
	"yieldengine/src/ledger"
	"yieldengine/src/marketdata"
	"yieldengine/src/model"
	"yieldengine/src/reconcile"
	"yieldengine/src/strategy"
)

// Component names under which probes register with the health manager.
const (
	ComponentLedger = "ledger"
	ComponentRouter = "execution_router"
	ComponentData   = "data_provider"
	ComponentEngine = "engine"
)

type exceptionSink interface {
	Capture(ctx context.Context, module, method, level string, err error, context map[string]interface{})
}

// TradeObserver is notified of every trade the ledger applied. The backtest
// truth mirror uses it to keep its independent books.
type TradeObserver interface {
	Record(trades []model.Trade)
}

// Deps carries the collaborators the orchestrator owns. Everything is an
// explicitly constructed instance; the engine does the wiring and owns the
// initialization boundary.
type Deps struct {
	Config     *config.ModeConfig
	Data       marketdata.Provider
	Strategy   strategy.Strategy
	Router     *execution.Router
	Ledger     *ledger.Ledger
	Reconciler *reconcile.Reconciler
	External   reconcile.ExternalSource
	Health     *health.Manager
	Events     *events.Logger
	Exceptions exceptionSink // may be nil
	Observer   TradeObserver // may be nil
}

// Engine drives the two cycle kinds: the periodic full loop and the
// event-triggered tight loop. A single logical timestep always runs to
// completion before the next begins.
type Engine struct {
	cfg        *config.ModeConfig
	data       marketdata.Provider
	strat      strategy.Strategy
	router     *execution.Router
	book       *ledger.Ledger
	reconciler *reconcile.Reconciler
	external   reconcile.ExternalSource
	healthMgr  *health.Manager
	events     *events.Logger
	exceptions exceptionSink
	observer   TradeObserver
	attrib     *attribution.Engine
	tracker    *health.Tracker
	dataTrk    *health.Tracker

	fills chan model.Trade

	// ledgerMu guards the Execution -> Ledger -> Reconciliation span. Tight
	// loop fills take the same lock, so they never interleave with it.
	ledgerMu sync.Mutex

	// full-loop state carried across cycles
	prevExposure *model.Exposure
	prevMarket   model.MarketSnapshot
	prevPosition model.Position
	periodTrades []model.Trade
	lastMarket   *model.MarketSnapshot
	highWater    decimal.Decimal
	halted       bool
}

// New validates the wiring, registers health probes and returns a ready
// engine. Data requirements are checked here: a mode whose provider cannot
// serve a declared field must not start.
func New(deps Deps) (*Engine, error) {
	if deps.Config == nil || deps.Data == nil || deps.Strategy == nil ||
		deps.Router == nil || deps.Ledger == nil || deps.Reconciler == nil ||
		deps.External == nil || deps.Health == nil || deps.Events == nil {
		return nil, fmt.Errorf("engine wiring incomplete")
	}

	if err := deps.Data.ValidateRequirements(deps.Config.DataRequirements, deps.Config.Assets); err != nil {
		return nil, fmt.Errorf("data requirements not met for mode %s: %w", deps.Config.Mode, err)
	}

	e := &Engine{
		cfg:        deps.Config,
		data:       deps.Data,
		strat:      deps.Strategy,
		router:     deps.Router,
		book:       deps.Ledger,
		reconciler: deps.Reconciler,
		external:   deps.External,
		healthMgr:  deps.Health,
		events:     deps.Events,
		exceptions: deps.Exceptions,
		observer:   deps.Observer,
		attrib:     attribution.New(deps.Config),
		tracker:    health.NewTracker(10),
		dataTrk:    health.NewTracker(10),
		fills:      make(chan model.Trade, 256),
	}

	deps.Health.Register(ComponentLedger, deps.Ledger.Health)
	deps.Health.Register(ComponentRouter, deps.Router.Health)
	deps.Health.Register(ComponentData, e.dataHealth)
	deps.Health.Register(ComponentEngine, e.tracker.Report)

	return e, nil
}

// Fills is where asynchronous execution confirmations arrive; each one
// triggers a tight-loop update.
func (e *Engine) Fills() chan<- model.Trade {
	return e.fills
}

// dataHealth degrades when recent snapshot fetches failed.
func (e *Engine) dataHealth() health.Report {
	return e.dataTrk.Report()
}
