package exchange

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"signal_bot/internal/helper"
	"signal_bot/internal/models"
	"signal_bot/internal/modules/config"
)

const (
	// OI и long/short ratio: две последние 5-минутные точки
	metricPeriod = "5m"
	metricLimit  = 2
)

// Client — REST Binance USDⓈ-M futures (свечи, OI, LSR) и поток сделок.
type Client struct {
	rest   *futures.Client
	dialer *websocket.Dialer
	wsURL  string
	log    *zap.Logger

	reconnectPause time.Duration
	connected      atomic.Int32
}

func NewClient(cfg *config.Config, log *zap.Logger) *Client {
	rest := futures.NewClient("", "")
	if cfg.Exchange.RestURL != "" {
		rest.BaseURL = cfg.Exchange.RestURL
	}
	rest.HTTPClient = &http.Client{Timeout: cfg.FetchTimeout}

	return &Client{
		rest:           rest,
		dialer:         &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		wsURL:          cfg.Exchange.WSURL,
		log:            log.Named("exchange"),
		reconnectPause: time.Second,
	}
}

// Klines — свечи старые первыми. Любая битая строка = ошибка всего ряда.
func (c *Client) Klines(ctx context.Context, symbol, interval string, limit int) (models.PriceSeries, error) {
	interval = helper.NormInterval(interval)
	out := models.PriceSeries{Symbol: symbol, Interval: interval}

	rows, err := c.rest.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return out, errors.Wrapf(err, "klines %s %s", symbol, interval)
	}

	bars := make([]models.Bar, 0, len(rows))
	for i, k := range rows {
		high, errH := decimal.NewFromString(k.High)
		low, errL := decimal.NewFromString(k.Low)
		closep, errC := decimal.NewFromString(k.Close)
		if errH != nil || errL != nil || errC != nil {
			return out, errors.Errorf("klines %s %s: malformed row %d", symbol, interval, i)
		}
		bars = append(bars, models.Bar{High: high, Low: low, Close: closep})
	}
	out.Bars = bars
	return out, nil
}

// OpenInterest — sumOpenInterestValue по двум последним точкам.
func (c *Client) OpenInterest(ctx context.Context, symbol string) (models.MetricSnapshot, error) {
	rows, err := c.rest.NewOpenInterestStatisticsService().
		Symbol(symbol).
		Period(metricPeriod).
		Limit(metricLimit).
		Do(ctx)
	if err != nil {
		return models.MetricSnapshot{}, errors.Wrapf(err, "open interest %s", symbol)
	}

	vals := make([]string, 0, len(rows))
	for _, r := range rows {
		vals = append(vals, r.SumOpenInterestValue)
	}
	return lastTwo(vals), nil
}

// LongShortRatio — глобальный long/short по аккаунтам, две последние точки.
func (c *Client) LongShortRatio(ctx context.Context, symbol string) (models.MetricSnapshot, error) {
	rows, err := c.rest.NewLongShortRatioService().
		Symbol(symbol).
		Period(metricPeriod).
		Limit(metricLimit).
		Do(ctx)
	if err != nil {
		return models.MetricSnapshot{}, errors.Wrapf(err, "long/short ratio %s", symbol)
	}

	vals := make([]string, 0, len(rows))
	for _, r := range rows {
		vals = append(vals, r.LongShortRatio)
	}
	return lastTwo(vals), nil
}

// lastTwo: меньше двух точек — обе пустые.
func lastTwo(vals []string) models.MetricSnapshot {
	if len(vals) < 2 {
		return models.MetricSnapshot{}
	}
	return models.MetricSnapshot{
		Current:  helper.ParseDecimal(vals[len(vals)-1]),
		Previous: helper.ParseDecimal(vals[len(vals)-2]),
	}
}

// Connected — сколько потоков сделок сейчас подключено.
func (c *Client) Connected() int { return int(c.connected.Load()) }
