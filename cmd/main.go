package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"yieldengine/cmd/backtest"
	"yieldengine/cmd/live"
	"yieldengine/cmd/marketdata"
)

var Version string

func main() {
	setupLogger()

	app := cli.NewApp()
	app.Name = "yieldengine"
	app.Usage = "crypto yield strategy engine"

	app.Commands = []cli.Command{
		backtestCMD,
		liveCMD,
		marketdataCMD,
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setupLogger() {
	level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	if os.Getenv("LOG_FORMAT") == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

var (
	backtestCMD = cli.Command{
		Name:        "backtest",
		Usage:       "run a historical replay",
		Action:      backtestAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Replay the configured mode over its backtest window`,
	}
	liveCMD = cli.Command{
		Name:        "live",
		Usage:       "run the live trading loop",
		Action:      liveAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Run the configured mode against live venues`,
	}
	marketdataCMD = cli.Command{
		Name:        "marketdata",
		Usage:       "backfill OHLCV candles",
		Action:      marketdataAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Backfill OHLCV candles into the market database`,
	}
)

func backtestAction(_ *cli.Context) error {
	logrus.Info("Starting backtest CMD")

	runner := &backtest.Runner{}
	if err := runner.Start(); err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}
	return nil
}

func liveAction(_ *cli.Context) error {
	logrus.Info("Starting live CMD")

	runner := &live.Runner{}
	if err := runner.Start(); err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}
	return nil
}

func marketdataAction(_ *cli.Context) error {
	logrus.Info("Starting marketdata CMD")

	runner := &marketdata.Backfill{}
	if err := runner.Start(); err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}
	return nil
}
