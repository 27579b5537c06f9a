package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"signal_bot/internal/models"
	"signal_bot/pkg/metrics"
)

const deltaPlaces = 2

// window — накопление объёмов между границами окна.
type window struct {
	buy         decimal.Decimal
	sell        decimal.Decimal
	lastUpdated time.Time
}

func (w *window) add(t models.Trade) {
	if t.TakerIsSeller {
		w.sell = w.sell.Add(t.Quantity)
	} else {
		w.buy = w.buy.Add(t.Quantity)
	}
	w.lastUpdated = t.Time
}

// close считает дельту и обнуляет окно.
func (w *window) close(at time.Time) Snapshot {
	s := Snapshot{
		Delta:       NormalizedDelta(w.buy, w.sell),
		BuyVolume:   w.buy,
		SellVolume:  w.sell,
		LastUpdated: w.lastUpdated,
		At:          at,
	}
	*w = window{}
	return s
}

// NormalizedDelta = (buy - sell) / (buy + sell), округлено до 2 знаков; 0 без объёма.
func NormalizedDelta(buy, sell decimal.Decimal) decimal.Decimal {
	total := buy.Add(sell)
	if total.IsZero() {
		return decimal.Zero
	}
	return buy.Sub(sell).Div(total).Round(deltaPlaces)
}

// Aggregator — tumbling-окно по одному символу.
type Aggregator struct {
	symbol string
	reg    *Registry
	log    *zap.Logger
}

func NewAggregator(symbol string, reg *Registry, log *zap.Logger) *Aggregator {
	return &Aggregator{symbol: symbol, reg: reg, log: log}
}

// Run копит сделки и на каждом тике публикует дельту. Тики не зависят
// от прихода сделок. Выходит по ctx или когда закрыт поток сделок.
func (a *Aggregator) Run(ctx context.Context, trades <-chan models.Trade, ticks <-chan time.Time) {
	var w window
	for {
		select {
		case <-ctx.Done():
			return

		case t, ok := <-trades:
			if !ok {
				return
			}
			w.add(t)

		case now := <-ticks:
			s := w.close(now)
			a.reg.publish(a.symbol, s)
			metrics.VolumeDelta.WithLabelValues(a.symbol).Set(s.Delta.InexactFloat64())
			a.log.Debug("volume delta published",
				zap.String("symbol", a.symbol),
				zap.String("delta", s.Delta.String()),
				zap.String("buy", s.BuyVolume.String()),
				zap.String("sell", s.SellVolume.String()),
			)
		}
	}
}
