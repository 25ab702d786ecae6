package connectors

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"yieldengine/src/model"
)

// RestVenue submits orders to a live venue over its signed REST API.
type RestVenue struct {
	Venue  string
	client *resty.Client
	apiKey string
	secret string
}

func NewRestVenue(venue, baseURL, apiKey, apiSecret string) *RestVenue {
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetRetryCount(0) // retry policy belongs to the execution router

	return &RestVenue{
		Venue:  venue,
		client: client,
		apiKey: apiKey,
		secret: apiSecret,
	}
}

type restOrderRequest struct {
	ClientOrderID string `json:"client_order_id"`
	Operation     string `json:"operation"`
	Asset         string `json:"asset"`
	Amount        string `json:"amount"`
	Timestamp     int64  `json:"timestamp"`
}

type restOrderResponse struct {
	TradeID       string            `json:"trade_id"`
	Status        string            `json:"status"` // filled | rejected
	Reason        string            `json:"reason,omitempty"`
	PositionDelta map[string]string `json:"position_delta,omitempty"`
	FeeUSD        string            `json:"fee_usd,omitempty"`
	ExecutedAt    int64             `json:"executed_at"`
}

// Submit places one order and maps the venue response onto a Trade.
func (v *RestVenue) Submit(ctx context.Context, order model.Order, ts time.Time) (model.Trade, error) {
	body := restOrderRequest{
		ClientOrderID: order.ID,
		Operation:     string(order.Operation),
		Asset:         order.Asset,
		Amount:        order.Amount.String(),
		Timestamp:     ts.UnixMilli(),
	}

	var parsed restOrderResponse
	resp, err := v.client.R().
		SetContext(ctx).
		SetHeader("X-API-KEY", v.apiKey).
		SetHeader("X-SIGNATURE", v.sign(body)).
		SetBody(body).
		SetResult(&parsed).
		Post("/v1/orders")
	if err != nil {
		return model.Trade{}, fmt.Errorf("venue %s order submit: %w", v.Venue, err)
	}
	if resp.IsError() {
		return model.Trade{}, fmt.Errorf("venue %s returned %s", v.Venue, resp.Status())
	}

	trade := model.Trade{
		ID:             parsed.TradeID,
		OrderID:        order.ID,
		Operation:      order.Operation,
		Venue:          v.Venue,
		Success:        parsed.Status == "filled",
		FailureReason:  parsed.Reason,
		VenueTimestamp: time.UnixMilli(parsed.ExecutedAt).UTC(),
	}
	if trade.ID == "" {
		trade.ID = uuid.NewString()
	}

	if trade.Success {
		trade.PositionDelta = make(map[string]decimal.Decimal, len(parsed.PositionDelta))
		for asset, raw := range parsed.PositionDelta {
			value, parseErr := decimal.NewFromString(raw)
			if parseErr != nil {
				return model.Trade{}, fmt.Errorf("venue %s delta for %s: %w", v.Venue, asset, parseErr)
			}
			trade.PositionDelta[asset] = value
		}
		if parsed.FeeUSD != "" {
			fee, parseErr := decimal.NewFromString(parsed.FeeUSD)
			if parseErr != nil {
				return model.Trade{}, fmt.Errorf("venue %s fee: %w", v.Venue, parseErr)
			}
			trade.FeeUSD = fee
		}
	}

	logger.WithFields(logger.Fields{
		"venue":    v.Venue,
		"order_id": order.ID,
		"trade_id": trade.ID,
		"status":   parsed.Status,
	}).Debug("venue order submitted")

	return trade, nil
}

// FetchPositions pulls the venue-reported balances, the external truth the
// reconciliation component compares the ledger against.
func (v *RestVenue) FetchPositions(ctx context.Context, ts time.Time) (model.Position, error) {
	var parsed map[string]string
	resp, err := v.client.R().
		SetContext(ctx).
		SetHeader("X-API-KEY", v.apiKey).
		SetResult(&parsed).
		Get("/v1/positions")
	if err != nil {
		return nil, fmt.Errorf("venue %s positions: %w", v.Venue, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("venue %s positions returned %s", v.Venue, resp.Status())
	}

	out := make(model.Position, len(parsed))
	for asset, raw := range parsed {
		value, parseErr := decimal.NewFromString(raw)
		if parseErr != nil {
			return nil, fmt.Errorf("venue %s position %s: %w", v.Venue, asset, parseErr)
		}
		out[asset] = value
	}
	return out, nil
}

// sign computes the HMAC-SHA256 request signature the venue expects.
func (v *RestVenue) sign(req restOrderRequest) string {
	payload := req.ClientOrderID + req.Operation + req.Asset + req.Amount +
		strconv.FormatInt(req.Timestamp, 10)
	mac := hmac.New(sha256.New, []byte(v.secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
