package exchange

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

func newWSServer(t *testing.T, frames []string, conns *atomic.Int32) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/btcusdt@trade" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conns.Add(1)
		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		// рвём соединение после отправки, клиент должен переподключиться
	}))
	t.Cleanup(srv.Close)
	return "ws://" + strings.TrimPrefix(srv.URL, "http://")
}

func TestStreamTradesDecodesAndReconnects(t *testing.T) {
	var conns atomic.Int32
	frames := []string{
		`{"e":"trade","E":1,"s":"BTCUSDT","t":1,"p":"100","q":"0.5","T":1700000000000,"m":false}`,
		`not json`,
		`{"e":"trade","E":2,"s":"BTCUSDT","t":2,"p":"100","q":"0.25","T":1700000000500,"m":true}`,
	}
	wsURL := newWSServer(t, frames, &conns)

	c := &Client{
		dialer:         websocket.DefaultDialer,
		wsURL:          wsURL,
		log:            zap.NewNop(),
		reconnectPause: 10 * time.Millisecond,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	trades := c.StreamTrades(ctx, "BTCUSDT")

	for i := 0; i < 4; i++ {
		select {
		case tr := <-trades:
			wantSeller := i%2 == 1
			if tr.Symbol != "BTCUSDT" || tr.TakerIsSeller != wantSeller {
				t.Fatalf("trade %d: unexpected %+v", i, tr)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for trade %d", i)
		}
	}
	if conns.Load() < 2 {
		t.Fatalf("expected reconnect, got %d connections", conns.Load())
	}

	cancel()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-trades:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatalf("stream did not close after cancel")
		}
	}
}

func TestDecodeTrade(t *testing.T) {
	tr, ok := decodeTrade([]byte(`{"e":"trade","q":"1.25","m":true,"T":1700000000000}`), "ETHUSDT")
	if !ok {
		t.Fatalf("expected trade")
	}
	if tr.Quantity.String() != "1.25" || !tr.TakerIsSeller || tr.Symbol != "ETHUSDT" {
		t.Fatalf("unexpected trade %+v", tr)
	}

	for _, bad := range []string{`{"e":"aggTrade","q":"1"}`, `{"e":"trade","q":"x"}`, `{"e":"trade","q":"-1"}`, `[]`} {
		if _, ok := decodeTrade([]byte(bad), "ETHUSDT"); ok {
			t.Fatalf("expected %s to be rejected", bad)
		}
	}
}
