package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"yieldengine/src/model"
)

type failingRepo struct {
	created []*model.EngineEvent
	err     error
}

func (r *failingRepo) Create(ctx context.Context, event *model.EngineEvent) error {
	if r.err != nil {
		return r.err
	}
	r.created = append(r.created, event)
	return nil
}

func TestEmitWritesJSONLine(t *testing.T) {
	var buf bytes.Buffer
	repo := &failingRepo{}
	l := NewLogger("basis_trade", &buf, repo)

	cycle := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l.Emit(context.Background(), KindCycleStart, cycle, map[string]interface{}{
		"net_usd": "1000",
	})

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "cycle_start", line["event"])
	require.Equal(t, "basis_trade", line["mode"])
	require.Equal(t, "1000", line["net_usd"])

	require.Len(t, repo.created, 1)
	require.Equal(t, "cycle_start", repo.created[0].Kind)
	require.JSONEq(t, `{"net_usd":"1000"}`, repo.created[0].Payload)
}

func TestEmitSurvivesPersistenceFailure(t *testing.T) {
	var buf bytes.Buffer
	repo := &failingRepo{err: errors.New("db down")}
	l := NewLogger("basis_trade", &buf, repo)

	// Must not panic; the stream line still goes out.
	l.Emit(context.Background(), KindError, time.Now(), map[string]interface{}{"oops": true})
	require.Contains(t, buf.String(), `"event":"error"`)
}

func TestEmitTradePayload(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger("basis_trade", &buf, nil)

	l.EmitTrade(context.Background(), time.Now(), model.Trade{
		ID:           "t1",
		OrderID:      "o1",
		Operation:    model.OpPerpTrade,
		Venue:        "phemex",
		Success:      false,
		Compensation: true,
		FeeUSD:       decimal.Zero,
	})

	out := buf.String()
	require.Contains(t, out, `"trade_id":"t1"`)
	require.Contains(t, out, `"compensation":true`)
	require.Equal(t, 1, strings.Count(out, "\n"), "one event, one line")
}
