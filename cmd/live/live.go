package live

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
	"yieldengine/src/security"
	"yieldengine/src/server"
	"yieldengine/src/strategy"
)

// Runner wires and runs the live trading loop.
type Runner struct{}

func (t *Runner) Start() error {
	cfg := GetConfig()
	appCfg := config.GetConfig()

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Error("Failed to connect to main database")
		return err
	}

	modeCfg, err := config.Load(appCfg.ModeConfigPath)
	if err != nil {
		logrus.WithError(err).Error("Failed to load mode config")
		return err
	}

	apiKey, err := security.DecryptString(cfg.VenueAPIKeyEnc)
	if err != nil {
		logrus.WithError(err).Error("Failed to decrypt venue API key")
		return err
	}
	apiSecret, err := security.DecryptString(cfg.VenueSecretEnc)
	if err != nil {
		logrus.WithError(err).Error("Failed to decrypt venue API secret")
		return err
	}

	eng, healthMgr, err := buildEngine(modeCfg, cfg, apiKey, apiSecret)
	if err != nil {
		logrus.WithError(err).Error("Failed to build engine")
		return err
	}

	go server.StartServer(ctx, cfg.ServerPort, healthMgr)

	// Asynchronous confirmations feed the tight loop.
	stream := connectors.NewFillStream(modeCfg.Venues[0], cfg.VenueWSURL)
	go stream.Run(ctx, eng.Fills())

	logrus.WithFields(logrus.Fields{
		"mode":   modeCfg.Mode,
		"period": cfg.LoopPeriod,
	}).Info("Starting live loop")
	return eng.RunLive(ctx, cfg.LoopPeriod)
}

// buildEngine constructs every collaborator explicitly. Live venues are all
// reached through the same execution gateway URL; the gateway routes by
// venue name and reports positions across all of them, which is what the
// reconciler compares the ledger against.
func buildEngine(modeCfg *config.ModeConfig, cfg *Config, apiKey, apiSecret string) (*engine.Engine, *health.Manager, error) {
	provider := marketdata.NewDBProvider(database.MainDB, modeCfg.Assets)

	healthMgr := health.NewManager()
	eventRepo := repository.NewEngineEventRepository()
	exceptionRepo := repository.NewExceptionRepository()
	reconRepo := repository.NewReconciliationRepository()
	evts := events.NewLogger(modeCfg.Mode, os.Stdout, eventRepo)

	book := ledger.New()
	for asset, amount := range modeCfg.InitialBalances {
		book.Seed(asset, amount)
	}

	router := execution.NewRouter(evts, execution.Options{})
	var truth *connectors.RestVenue
	for _, venue := range modeCfg.Venues {
		rest := connectors.NewRestVenue(venue, cfg.VenueBaseURL, apiKey, apiSecret)
		if truth == nil {
			truth = rest
		}
		router.RegisterAll(venue, rest,
			model.OpSupply, model.OpWithdraw,
			model.OpBorrow, model.OpRepay,
			model.OpSpotTrade, model.OpPerpTrade,
			model.OpStake, model.OpUnstake,
			model.OpTransfer,
		)
	}

	strat, err := strategy.New(modeCfg)
	if err != nil {
		return nil, nil, err
	}

	reconciler := reconcile.New(modeCfg.Mode, modeCfg.ReconTolerance, book, evts, reconRepo)

	eng, err := engine.New(engine.Deps{
		Config:     modeCfg,
		Data:       provider,
		Strategy:   strat,
		Router:     router,
		Ledger:     book,
		Reconciler: reconciler,
		External:   truth,
		Health:     healthMgr,
		Events:     evts,
		Exceptions: exceptionRepo,
	})
	if err != nil {
		return nil, nil, err
	}
	return eng, healthMgr, nil
}
