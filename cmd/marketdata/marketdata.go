package marketdata

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/nntaoli-project/goex"
	"github.com/nntaoli-project/goex/binance"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"yieldengine/src/database"
	"yieldengine/src/model"
)

// Backfill pulls hourly candles from the exchange and upserts them into the
// market database. Candles are stored per base asset; the historical data
// provider reads them back as the price series for backtests.
type Backfill struct {
	Config   *Config
	DB       *gorm.DB
	exchange goex.API
}

func (b *Backfill) Start() error {
	b.Config = GetConfig()

	if b.DB == nil {
		if err := database.InitMainDB(); err != nil {
			logger.WithError(err).Error("Failed to connect to main database")
			return err
		}
		b.DB = database.MainDB
	}

	b.exchange = newBinanceInstance()

	if b.Config.AutoMode {
		if err := b.determineStartPoint(); err != nil {
			return err
		}
	}

	return b.fetchAndSave()
}

func newBinanceInstance() *binance.Binance {
	apiConfig := &goex.APIConfig{
		HttpClient: http.DefaultClient,
		Endpoint:   binance.GLOBAL_API_BASE_URL,
	}
	return binance.NewWithConfig(apiConfig)
}

func (b *Backfill) fetchAndSave() error {
	series, err := b.fetchKlines()
	if err != nil {
		return err
	}

	for i := range series {
		result := series[i]

		candle := &model.OHLCVCrypto1h{
			Symbol:   b.Config.Symbol,
			Datetime: time.Unix(result.Timestamp, 0).UTC(),
			Open:     decimal.NewFromFloat(result.Open),
			High:     decimal.NewFromFloat(result.High),
			Low:      decimal.NewFromFloat(result.Low),
			Close:    decimal.NewFromFloat(result.Close),
			Volume:   decimal.NewFromFloat(result.Vol),
		}

		// Upsert: on conflict on (symbol, datetime) do update
		if err := b.DB.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "symbol"}, {Name: "datetime"}},
			DoUpdates: clause.AssignmentColumns([]string{"open", "high", "low", "close", "volume"}),
		}).Create(candle).Error; err != nil {
			logger.WithError(err).Error("fetchAndSave, Create, ")
			return err
		}
	}

	logger.WithFields(logger.Fields{
		"symbol":  b.Config.Symbol,
		"candles": len(series),
	}).Info("OHLCV backfill finished")

	return nil
}

// determineStartPoint resumes from the latest stored candle instead of the
// configured window, re-fetching the last hour so a partial candle gets
// overwritten by the final one.
func (b *Backfill) determineStartPoint() error {
	b.Config.EndDt = time.Now()

	var latestTime *sql.NullTime
	result := b.DB.Model(&model.OHLCVCrypto1h{}).
		Select("MAX(datetime)").
		Where("symbol = ?", b.Config.Symbol).
		Take(&latestTime)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			logger.
				WithField("StartDt", b.Config.StartDt.String()).
				WithField("EndDt", b.Config.EndDt.String()).
				Info("no candles found, starting from the configured StartDt")
			return nil
		}
		logger.WithError(result.Error).Error("Failed to query latest datetime")
		return result.Error
	}

	if latestTime.Valid {
		b.Config.StartDt = latestTime.Time.Add(-time.Hour)
		logger.
			WithField("StartDt", b.Config.StartDt.String()).
			WithField("EndDt", b.Config.EndDt.String()).
			Info("determineStartPoint resuming from latest candle")
	}

	return nil
}

func (b *Backfill) fetchKlines() ([]goex.Kline, error) {
	targetSymbol := goex.NewCurrencyPair(
		goex.Currency{Symbol: b.Config.Symbol},
		goex.Currency{Symbol: b.Config.Quote},
	)

	const millis = 1000
	klines, err := b.exchange.GetKlineRecords(
		targetSymbol,
		goex.KLINE_PERIOD_1H,
		b.Config.Limit,
		goex.OptionalParameter{}.
			Optional("startTime", b.Config.StartDt.Unix()*millis).
			Optional("endTime", b.Config.EndDt.Unix()*millis),
	)
	if err != nil {
		return nil, err
	}

	return klines, nil
}
