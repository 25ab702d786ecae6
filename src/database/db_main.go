package database

import (
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"yieldengine/src/model"
)

// MainDB is the audit and market-data database connection used by the
// application. Live mode runs against Postgres, backtests against a local
// SQLite file.
var MainDB *gorm.DB

// InitMainDB initializes the Postgres connection and runs migrations.
// This should be called once at application startup (e.g. in main()).
func InitMainDB() error {
	config := GetConfig()
	db, err := gorm.Open(postgres.Open(config.DatabaseURLMain),
		&gorm.Config{
			TranslateError: true,
			Logger:         logger.Default.LogMode(logger.LogLevel(config.GormLogLevel)),
		},
	)
	if err != nil {
		logrus.WithError(err).Error("failed to connect to database")
		return err
	}

	sqlDB, err := db.DB()
	if err != nil {
		logrus.WithError(err).Error("failed to get DB from GORM")
		return err
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(1 * time.Hour)

	// Assign to the global variable only after a successful connection.
	MainDB = db

	logrus.Info("[database] MainDB connection established")

	return autoMigrate(MainDB)
}

// InitBacktestDB opens the local SQLite database used for historical replay
// runs and migrates the same schema.
func InitBacktestDB() error {
	config := GetConfig()
	db, err := gorm.Open(sqlite.Open(config.BacktestDBPath),
		&gorm.Config{
			TranslateError: true,
			Logger:         logger.Default.LogMode(logger.LogLevel(config.GormLogLevel)),
		},
	)
	if err != nil {
		logrus.WithError(err).Error("failed to open backtest database")
		return err
	}

	MainDB = db

	logrus.WithField("path", config.BacktestDBPath).
		Info("[database] backtest DB opened")

	return autoMigrate(MainDB)
}

func autoMigrate(db *gorm.DB) error {
	// Add here all models that belong to the audit/market schema.
	if err := db.AutoMigrate(
		&model.EngineEvent{},
		&model.Exception{},
		&model.ReconciliationLog{},
		&model.OHLCVCrypto1h{},
		&model.ProtocolRate{},
	); err != nil {
		logrus.WithError(err).Error("failed to migrate database")
		return err
	}
	return nil
}
