package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"signal_bot/internal/models"
	"signal_bot/internal/modules/config"
)

type TradeStreamer interface {
	StreamTrades(ctx context.Context, symbol string) <-chan models.Trade
}

// Service держит по одному слушателю сделок на каждый символ.
type Service struct {
	symbols []string
	window  time.Duration
	stream  TradeStreamer
	reg     *Registry
	log     *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewService(cfg *config.Config, stream TradeStreamer, reg *Registry, log *zap.Logger) *Service {
	return &Service{
		symbols: cfg.Symbols,
		window:  cfg.DeltaWindow,
		stream:  stream,
		reg:     reg,
		log:     log.Named("volume_delta"),
	}
}

// Start не блокирует; слушатели живут до Stop.
func (s *Service) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	for _, sym := range s.symbols {
		trades := s.stream.StreamTrades(ctx, sym)
		agg := NewAggregator(sym, s.reg, s.log)

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			ticker := time.NewTicker(s.window)
			defer ticker.Stop()
			agg.Run(ctx, trades, ticker.C)
		}()
	}
	s.log.Info("volume delta listeners started",
		zap.Strings("symbols", s.symbols),
		zap.Duration("window", s.window),
	)
}

func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	s.wg.Wait()
}
