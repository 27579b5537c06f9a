package exchange

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"signal_bot/internal/models"
	"signal_bot/pkg/metrics"
)

const (
	tradeBuffer  = 1024
	pingInterval = 15 * time.Second
	readTimeout  = 60 * time.Second
	writeWait    = 5 * time.Second
)

// tradeFrame — <symbol>@trade: q — объём, m — покупатель мейкер.
type tradeFrame struct {
	Event        string `json:"e"`
	Symbol       string `json:"s"`
	Quantity     string `json:"q"`
	TradeTime    int64  `json:"T"`
	IsBuyerMaker bool   `json:"m"`
}

// StreamTrades — поток сделок по символу. После обрыва переподключаемся
// через reconnectPause; канал закрывается только по ctx.
func (c *Client) StreamTrades(ctx context.Context, symbol string) <-chan models.Trade {
	out := make(chan models.Trade, tradeBuffer)
	url := fmt.Sprintf("%s/%s@trade", c.wsURL, strings.ToLower(symbol))

	go func() {
		defer close(out)
		for {
			err := c.consumeTrades(ctx, url, symbol, out)
			if ctx.Err() != nil {
				return
			}
			c.log.Warn("trade stream disconnected, reconnecting",
				zap.String("symbol", symbol),
				zap.Duration("pause", c.reconnectPause),
				zap.Error(err),
			)
			select {
			case <-time.After(c.reconnectPause):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func (c *Client) consumeTrades(ctx context.Context, url, symbol string, out chan<- models.Trade) error {
	conn, _, err := c.dialer.DialContext(ctx, url, nil)
	if err != nil {
		return errors.Wrapf(err, "dial %s", url)
	}
	defer conn.Close()

	c.connected.Add(1)
	defer c.connected.Add(-1)
	c.log.Info("trade stream connected", zap.String("symbol", symbol))

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	// keepalive ping + закрытие соединения по ctx, иначе ReadMessage висит
	done := make(chan struct{})
	defer close(done)
	go func() {
		t := time.NewTicker(pingInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				_ = conn.Close()
				return
			case <-done:
				return
			case <-t.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					c.log.Debug("trade stream ping failed", zap.String("symbol", symbol), zap.Error(err))
				}
			}
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errors.Wrap(err, "read")
		}
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))

		tr, ok := decodeTrade(msg, symbol)
		if !ok {
			c.log.Debug("skip trade frame", zap.String("symbol", symbol), zap.ByteString("frame", msg))
			continue
		}

		select {
		case out <- tr:
			metrics.TradesTotal.WithLabelValues(symbol).Inc()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func decodeTrade(msg []byte, symbol string) (models.Trade, bool) {
	var f tradeFrame
	if err := sonic.Unmarshal(msg, &f); err != nil {
		return models.Trade{}, false
	}
	if f.Event != "" && f.Event != "trade" {
		return models.Trade{}, false
	}
	qty, err := decimal.NewFromString(f.Quantity)
	if err != nil || qty.IsNegative() {
		return models.Trade{}, false
	}
	return models.Trade{
		Symbol:        symbol,
		Quantity:      qty,
		TakerIsSeller: f.IsBuyerMaker,
		Time:          time.UnixMilli(f.TradeTime),
	}, true
}
