package backtest

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"yieldengine/src/config"
	"yieldengine/src/connectors"
	"yieldengine/src/database"
	"yieldengine/src/engine"
	"yieldengine/src/events"
	"yieldengine/src/execution"
	"yieldengine/src/health"
	"yieldengine/src/ledger"
	"yieldengine/src/marketdata"
	"yieldengine/src/model"
	"yieldengine/src/reconcile"
	"yieldengine/src/repository"
	"yieldengine/src/strategy"
)

// Runner wires and runs one historical replay.
type Runner struct{}

func (t *Runner) Start() error {
	_ = GetConfig()
	appCfg := config.GetConfig()

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	if err := database.InitBacktestDB(); err != nil {
		logrus.WithError(err).Error("Failed to open backtest database")
		return err
	}

	modeCfg, err := config.Load(appCfg.ModeConfigPath)
	if err != nil {
		logrus.WithError(err).Error("Failed to load mode config")
		return err
	}

	eng, err := buildEngine(modeCfg)
	if err != nil {
		logrus.WithError(err).Error("Failed to build engine")
		return err
	}

	logrus.WithField("mode", modeCfg.Mode).Info("Starting backtest")
	return eng.RunBacktest(ctx)
}

// buildEngine constructs every collaborator explicitly and hands the wiring
// to the engine. Simulated venues fill against the historical data; the
// truth mirror gives reconciliation an independent second bookkeeper.
func buildEngine(modeCfg *config.ModeConfig) (*engine.Engine, error) {
	provider := marketdata.NewDBProvider(database.MainDB, modeCfg.Assets)

	healthMgr := health.NewManager()
	eventRepo := repository.NewEngineEventRepository()
	exceptionRepo := repository.NewExceptionRepository()
	reconRepo := repository.NewReconciliationRepository()
	evts := events.NewLogger(modeCfg.Mode, os.Stdout, eventRepo)

	book := ledger.New()
	mirror := connectors.NewMirror()
	for asset, amount := range modeCfg.InitialBalances {
		book.Seed(asset, amount)
		mirror.Seed(asset, amount)
	}

	router := execution.NewRouter(evts, execution.Options{})
	for _, venue := range modeCfg.Venues {
		sim := connectors.NewSimVenue(venue, modeCfg.ReportingCurrency, modeCfg.FeeRate, provider)
		router.RegisterAll(venue, sim,
			model.OpSupply, model.OpWithdraw,
			model.OpBorrow, model.OpRepay,
			model.OpSpotTrade, model.OpPerpTrade,
			model.OpStake, model.OpUnstake,
			model.OpTransfer,
		)
	}

	strat, err := strategy.New(modeCfg)
	if err != nil {
		return nil, err
	}

	reconciler := reconcile.New(modeCfg.Mode, modeCfg.ReconTolerance, book, evts, reconRepo)

	return engine.New(engine.Deps{
		Config:     modeCfg,
		Data:       provider,
		Strategy:   strat,
		Router:     router,
		Ledger:     book,
		Reconciler: reconciler,
		External:   mirror,
		Health:     healthMgr,
		Events:     evts,
		Exceptions: exceptionRepo,
		Observer:   mirror,
	})
}
