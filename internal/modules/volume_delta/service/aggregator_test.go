package service

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"signal_bot/internal/models"
)

func trade(qty string, seller bool) models.Trade {
	return models.Trade{
		Symbol:        "BTCUSDT",
		Quantity:      decimal.RequireFromString(qty),
		TakerIsSeller: seller,
		Time:          time.Unix(1700000000, 0),
	}
}

func TestNormalizedDelta(t *testing.T) {
	cases := []struct {
		buy, sell, want string
	}{
		{"3", "1", "0.5"},
		{"1", "3", "-0.5"},
		{"5", "1", "0.67"},
		{"2", "0", "1"},
		{"0", "0", "0"},
		{"1.5", "1.5", "0"},
	}
	for _, c := range cases {
		got := NormalizedDelta(decimal.RequireFromString(c.buy), decimal.RequireFromString(c.sell))
		if !got.Equal(decimal.RequireFromString(c.want)) {
			t.Fatalf("buy=%s sell=%s: expected %s got %s", c.buy, c.sell, c.want, got)
		}
	}
}

func TestNormalizedDeltaBounded(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	one := decimal.NewFromInt(1)
	for i := 0; i < 500; i++ {
		var w window
		for j := 0; j < rnd.Intn(20); j++ {
			w.add(models.Trade{
				Quantity:      decimal.NewFromInt(int64(rnd.Intn(1000))).Div(decimal.NewFromInt(7)),
				TakerIsSeller: rnd.Intn(2) == 0,
			})
		}
		d := w.close(time.Now()).Delta
		if d.GreaterThan(one) || d.LessThan(one.Neg()) {
			t.Fatalf("delta out of [-1,1]: %s", d)
		}
	}
}

func TestWindowResetsOnClose(t *testing.T) {
	var w window
	w.add(trade("2", false))
	w.add(trade("1", true))

	s := w.close(time.Now())
	if !s.BuyVolume.Equal(decimal.NewFromInt(2)) || !s.SellVolume.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("unexpected volumes %s/%s", s.BuyVolume, s.SellVolume)
	}
	if !w.buy.IsZero() || !w.sell.IsZero() {
		t.Fatalf("window must be empty after close")
	}
	if next := w.close(time.Now()); !next.Delta.IsZero() {
		t.Fatalf("empty window must publish 0, got %s", next.Delta)
	}
}

func waitDelta(t *testing.T, reg *Registry, symbol, want string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if v := reg.Delta(symbol); v.Ok() && v.Decimal().Equal(decimal.RequireFromString(want)) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for delta %s, have %s", want, reg.Delta(symbol))
}

func TestAggregatorRun(t *testing.T) {
	reg := NewRegistry([]string{"BTCUSDT"})
	agg := NewAggregator("BTCUSDT", reg, zap.NewNop())

	trades := make(chan models.Trade)
	ticks := make(chan time.Time)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		agg.Run(ctx, trades, ticks)
		close(done)
	}()

	if reg.Delta("BTCUSDT").Ok() {
		t.Fatalf("delta must be unknown before the first window closes")
	}

	trades <- trade("3", false)
	trades <- trade("1", true)
	ticks <- time.Now()
	waitDelta(t, reg, "BTCUSDT", "0.5")

	// тик без сделок: дельта сбрасывается в 0
	ticks <- time.Now()
	waitDelta(t, reg, "BTCUSDT", "0")

	trades <- trade("1", false)
	trades <- trade("3", true)
	ticks <- time.Now()
	waitDelta(t, reg, "BTCUSDT", "-0.5")

	close(trades)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("aggregator did not stop after trades closed")
	}
}

func TestRegistryUnknownSymbol(t *testing.T) {
	reg := NewRegistry([]string{"BTCUSDT"})
	reg.publish("ETHUSDT", Snapshot{Delta: decimal.NewFromInt(1)})

	if reg.Delta("ETHUSDT").Ok() {
		t.Fatalf("untracked symbol must stay unknown")
	}
	if _, ok := reg.Snapshot("BTCUSDT"); ok {
		t.Fatalf("tracked symbol without windows must be unknown")
	}
}
