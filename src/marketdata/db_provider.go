package marketdata

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"yieldengine/src/model"
)

// DBProvider serves historical snapshots from the market database: hourly
// candles for prices and protocol_rates rows for everything else. Used by
// backtest mode; rows are backfilled by the marketdata command.
type DBProvider struct {
	db     *gorm.DB
	assets []string

	mu    sync.Mutex
	cache map[int64]model.MarketSnapshot
}

func NewDBProvider(db *gorm.DB, assets []string) *DBProvider {
	return &DBProvider{
		db:     db,
		assets: assets,
		cache:  make(map[int64]model.MarketSnapshot),
	}
}

// GetData builds the snapshot in effect at ts from the most recent rows at
// or before ts. Snapshots are cached per timestamp; a backtest revisits the
// same cycle time from several components.
func (p *DBProvider) GetData(ts time.Time) (model.MarketSnapshot, error) {
	p.mu.Lock()
	if snap, ok := p.cache[ts.Unix()]; ok {
		p.mu.Unlock()
		return snap, nil
	}
	p.mu.Unlock()

	snap := model.MarketSnapshot{
		Timestamp:      ts,
		Prices:         make(map[string]decimal.Decimal),
		PerpPrices:     make(map[string]decimal.Decimal),
		SupplyRates:    make(map[string]decimal.Decimal),
		BorrowRates:    make(map[string]decimal.Decimal),
		FundingRates:   make(map[string]decimal.Decimal),
		RewardRates:    make(map[string]decimal.Decimal),
		StakingOracles: make(map[string]decimal.Decimal),
	}

	for _, asset := range p.assets {
		price, err := p.latestClose(asset, ts)
		if err != nil {
			return model.MarketSnapshot{}, err
		}
		snap.Prices[asset] = price
	}

	rates, err := p.latestRates(ts)
	if err != nil {
		return model.MarketSnapshot{}, err
	}
	for _, rate := range rates {
		switch rate.Field {
		case model.DataFieldPerpPrices:
			snap.PerpPrices[rate.Symbol] = rate.Value
		case model.DataFieldSupplyRates:
			snap.SupplyRates[rate.Symbol] = rate.Value
		case model.DataFieldBorrowRates:
			snap.BorrowRates[rate.Symbol] = rate.Value
		case model.DataFieldFundingRates:
			snap.FundingRates[rate.Symbol] = rate.Value
		case model.DataFieldRewardRates:
			snap.RewardRates[rate.Symbol] = rate.Value
		case model.DataFieldStakingOracles:
			snap.StakingOracles[rate.Symbol] = rate.Value
		}
	}

	p.mu.Lock()
	p.cache[ts.Unix()] = snap
	p.mu.Unlock()
	return snap, nil
}

// stableAssets are priced at par without a candle series.
var stableAssets = map[string]bool{
	"USDT": true,
	"USDC": true,
	"DAI":  true,
}

func (p *DBProvider) latestClose(symbol string, ts time.Time) (decimal.Decimal, error) {
	if stableAssets[symbol] {
		return decimal.NewFromInt(1), nil
	}
	var candle model.OHLCVCrypto1h
	err := p.db.
		Where("symbol = ? AND datetime <= ?", symbol, ts).
		Order("datetime DESC").
		First(&candle).Error
	if err != nil {
		return decimal.Zero, fmt.Errorf("no candle for %s at or before %s: %w", symbol, ts, err)
	}
	return candle.Close, nil
}

// latestRates returns, per (field, symbol), the most recent protocol rate at
// or before ts.
func (p *DBProvider) latestRates(ts time.Time) ([]model.ProtocolRate, error) {
	var rates []model.ProtocolRate
	err := p.db.
		Where("datetime <= ?", ts).
		Where(`(field, symbol, datetime) IN (
			SELECT field, symbol, MAX(datetime) FROM protocol_rates
			WHERE datetime <= ? GROUP BY field, symbol)`, ts).
		Find(&rates).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load protocol rates: %w", err)
	}
	return rates, nil
}

// ValidateRequirements fails fast when the database cannot serve a declared
// field for any configured asset.
func (p *DBProvider) ValidateRequirements(fields []string, assets []string) error {
	if err := checkFieldNames(fields); err != nil {
		return err
	}

	for _, field := range fields {
		for _, asset := range assets {
			if field == model.DataFieldPrices && stableAssets[asset] {
				continue
			}
			var count int64
			var err error
			if field == model.DataFieldPrices {
				err = p.db.Model(&model.OHLCVCrypto1h{}).
					Where("symbol = ?", asset).
					Count(&count).Error
			} else {
				err = p.db.Model(&model.ProtocolRate{}).
					Where("field = ? AND symbol = ?", field, asset).
					Count(&count).Error
			}
			if err != nil {
				return fmt.Errorf("data requirement check for %s/%s: %w", field, asset, err)
			}
			if count == 0 {
				return fmt.Errorf("data requirement unmet: no %s data for %s", field, asset)
			}
		}
	}

	logger.WithFields(logger.Fields{
		"fields": fields,
		"assets": assets,
	}).Info("data requirements satisfied")
	return nil
}
