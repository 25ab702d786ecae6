package connectors

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"yieldengine/src/model"
)

// FillStream subscribes to a venue's websocket feed of asynchronous
// execution confirmations and forwards them as trades for the engine's
// tight loop.
type FillStream struct {
	URL   string
	Venue string

	reconnectWait time.Duration
}

func NewFillStream(venue, url string) *FillStream {
	return &FillStream{
		URL:           url,
		Venue:         venue,
		reconnectWait: 5 * time.Second,
	}
}

type fillMessage struct {
	TradeID       string            `json:"trade_id"`
	OrderID       string            `json:"order_id"`
	Operation     string            `json:"operation"`
	PositionDelta map[string]string `json:"position_delta"`
	FeeUSD        string            `json:"fee_usd"`
	ExecutedAt    int64             `json:"executed_at"`
}

// Run connects and pumps fills into out until ctx is cancelled. Connection
// drops reconnect after a fixed wait; decoding failures skip the message.
func (s *FillStream) Run(ctx context.Context, out chan<- model.Trade) {
	for {
		if ctx.Err() != nil {
			return
		}
		if err := s.pump(ctx, out); err != nil {
			logger.WithError(err).
				WithField("venue", s.Venue).
				Warn("fill stream disconnected, reconnecting")
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.reconnectWait):
		}
	}
}

func (s *FillStream) pump(ctx context.Context, out chan<- model.Trade) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.URL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	logger.WithFields(logger.Fields{
		"venue": s.Venue,
		"url":   s.URL,
	}).Info("fill stream connected")

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var msg fillMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			logger.WithError(err).Warn("unparseable fill message skipped")
			continue
		}
		trade, err := s.toTrade(msg)
		if err != nil {
			logger.WithError(err).
				WithField("trade_id", msg.TradeID).
				Warn("invalid fill message skipped")
			continue
		}

		select {
		case out <- trade:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *FillStream) toTrade(msg fillMessage) (model.Trade, error) {
	trade := model.Trade{
		ID:             msg.TradeID,
		OrderID:        msg.OrderID,
		Operation:      model.OperationType(msg.Operation),
		Venue:          s.Venue,
		Success:        true,
		PositionDelta:  make(map[string]decimal.Decimal, len(msg.PositionDelta)),
		VenueTimestamp: time.UnixMilli(msg.ExecutedAt).UTC(),
	}
	for asset, raw := range msg.PositionDelta {
		value, err := decimal.NewFromString(raw)
		if err != nil {
			return model.Trade{}, err
		}
		trade.PositionDelta[asset] = value
	}
	if msg.FeeUSD != "" {
		fee, err := decimal.NewFromString(msg.FeeUSD)
		if err != nil {
			return model.Trade{}, err
		}
		trade.FeeUSD = fee
	}
	return trade, nil
}
