package runner

import (
	"context"

	"go.uber.org/fx"

	"signal_bot/internal/exchange"
	"signal_bot/internal/modules/volume_delta/service"
)

// Providers — Runner без запуска цикла (команда check вызывает CheckSignals сама).
func Providers() fx.Option {
	return fx.Provide(
		func(c *exchange.Client) MarketData { return c },
		func(r *service.Registry) DeltaSource { return r },
		New,
	)
}

func Module() fx.Option {
	return fx.Module("runner",
		Providers(),
		fx.Invoke(func(lc fx.Lifecycle, r *Runner) {
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					r.Start()
					return nil
				},
				OnStop: func(context.Context) error {
					r.Stop()
					return nil
				},
			})
		}),
	)
}
