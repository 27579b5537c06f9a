package volume_delta

import (
	"context"

	"go.uber.org/fx"

	"signal_bot/internal/exchange"
	"signal_bot/internal/modules/config"
	"signal_bot/internal/modules/volume_delta/service"
)

// Module поднимает слушатели сделок и агрегацию дельты объёма.
func Module() fx.Option {
	return fx.Module("volume_delta",
		fx.Provide(
			func(cfg *config.Config) *service.Registry {
				return service.NewRegistry(cfg.Symbols)
			},
			func(c *exchange.Client) service.TradeStreamer { return c },
			service.NewService,
		),
		fx.Invoke(func(lc fx.Lifecycle, s *service.Service) {
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					s.Start()
					return nil
				},
				OnStop: func(context.Context) error {
					s.Stop()
					return nil
				},
			})
		}),
	)
}
