package exchange

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"signal_bot/internal/modules/config"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &config.Config{FetchTimeout: 2 * time.Second}
	cfg.Exchange.RestURL = srv.URL
	return NewClient(cfg, zap.NewNop())
}

func TestKlines(t *testing.T) {
	const body = `[
		[1700000000000,"10.0","11.5","9.5","11.0","100",1700000899999,"1000",10,"50","500","0"],
		[1700000900000,"11.0","12.0","10.5","11.8","120",1700001799999,"1300",12,"60","600","0"]
	]`
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/fapi/v1/klines" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("symbol") != "BTCUSDT" || q.Get("interval") != "1h" || q.Get("limit") != "100" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(body))
	}))

	series, err := c.Klines(context.Background(), "BTCUSDT", "60m", 100)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if series.Interval != "1h" || series.Len() != 2 {
		t.Fatalf("unexpected series %+v", series)
	}
	if !series.Bars[1].Close.Equal(decimal.RequireFromString("11.8")) {
		t.Fatalf("expected oldest first, got last close %s", series.Bars[1].Close)
	}
	if !series.Bars[0].High.Equal(decimal.RequireFromString("11.5")) || !series.Bars[0].Low.Equal(decimal.RequireFromString("9.5")) {
		t.Fatalf("unexpected first bar %+v", series.Bars[0])
	}
}

func TestKlinesMalformedRow(t *testing.T) {
	const body = `[[1700000000000,"10.0","oops","9.5","11.0","100",1700000899999,"1000",10,"50","500","0"]]`
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))

	series, err := c.Klines(context.Background(), "BTCUSDT", "15m", 200)
	if err == nil {
		t.Fatalf("expected error")
	}
	if series.Len() != 0 {
		t.Fatalf("expected empty series on error")
	}
}

func TestKlinesTransportError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"code":-1000,"msg":"boom"}`))
	}))

	if _, err := c.Klines(context.Background(), "BTCUSDT", "15m", 200); err == nil {
		t.Fatalf("expected error")
	}
}

func TestOpenInterest(t *testing.T) {
	const body = `[
		{"symbol":"BTCUSDT","sumOpenInterest":"1","sumOpenInterestValue":"100","timestamp":1700000000000},
		{"symbol":"BTCUSDT","sumOpenInterest":"1","sumOpenInterestValue":"100.5","timestamp":1700000300000}
	]`
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/futures/data/openInterestHist" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("period") != "5m" || r.URL.Query().Get("limit") != "2" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(body))
	}))

	snap, err := c.OpenInterest(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if snap.Current.String() != "100.5" || snap.Previous.String() != "100" {
		t.Fatalf("unexpected snapshot %s / %s", snap.Current, snap.Previous)
	}
}

func TestLongShortRatio(t *testing.T) {
	const body = `[
		{"symbol":"BTCUSDT","longShortRatio":"1.9","longAccount":"0.65","shortAccount":"0.35","timestamp":1700000000000},
		{"symbol":"BTCUSDT","longShortRatio":"1.7","longAccount":"0.63","shortAccount":"0.37","timestamp":1700000300000}
	]`
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/futures/data/globalLongShortAccountRatio" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(body))
	}))

	snap, err := c.LongShortRatio(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if snap.Current.String() != "1.7" || snap.Previous.String() != "1.9" {
		t.Fatalf("unexpected snapshot %s / %s", snap.Current, snap.Previous)
	}
}

func TestMetricSinglePoint(t *testing.T) {
	const body = `[{"symbol":"BTCUSDT","longShortRatio":"1.9","longAccount":"0.65","shortAccount":"0.35","timestamp":1700000000000}]`
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))

	snap, err := c.LongShortRatio(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if snap.Current.Ok() || snap.Previous.Ok() {
		t.Fatalf("expected both values missing with a single point")
	}
}
