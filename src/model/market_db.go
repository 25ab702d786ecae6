package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OHLCVCrypto1h is one hourly candle row in the market database, keyed by
// (symbol, datetime). Backfilled by the marketdata command and read by the
// historical data provider.
type OHLCVCrypto1h struct {
	ID       uint            `gorm:"primaryKey"`
	Symbol   string          `json:"symbol"   gorm:"type:varchar(50);not null;uniqueIndex:ux_ohlcv_crypto_1h_symbol_datetime,priority:1"`
	Datetime time.Time       `json:"datetime" gorm:"not null;uniqueIndex:ux_ohlcv_crypto_1h_symbol_datetime,priority:2;index:idx_ohlcv_crypto_1h_datetime"`
	Open     decimal.Decimal `json:"open"   gorm:"type:double precision;not null"`
	High     decimal.Decimal `json:"high"   gorm:"type:double precision;not null"`
	Low      decimal.Decimal `json:"low"    gorm:"type:double precision;not null"`
	Close    decimal.Decimal `json:"close"  gorm:"type:double precision;not null"`
	Volume   decimal.Decimal `json:"volume" gorm:"type:double precision;not null"`
}

func (OHLCVCrypto1h) TableName() string {
	return "ohlcv_crypto_1h"
}

// ProtocolRate is one protocol data point (supply/borrow/funding/reward rate
// or staking oracle value) for an asset at a timestamp.
type ProtocolRate struct {
	ID       uint            `gorm:"primaryKey"`
	Field    string          `json:"field"  gorm:"type:varchar(50);not null;uniqueIndex:ux_protocol_rates_field_symbol_datetime,priority:1"`
	Symbol   string          `json:"symbol" gorm:"type:varchar(50);not null;uniqueIndex:ux_protocol_rates_field_symbol_datetime,priority:2"`
	Datetime time.Time       `json:"datetime" gorm:"not null;uniqueIndex:ux_protocol_rates_field_symbol_datetime,priority:3;index:idx_protocol_rates_datetime"`
	Value    decimal.Decimal `json:"value" gorm:"type:double precision;not null"`
}

func (ProtocolRate) TableName() string {
	return "protocol_rates"
}
