package telegram

import (
	"context"

	"go.uber.org/fx"

	"signal_bot/internal/modules/telegram_bot/service"
)

// Module — команды бота в чате сигналов.
func Module() fx.Option {
	return fx.Module("telegram",
		fx.Provide(
			service.NewCommands,
		),
		fx.Invoke(
			func(lc fx.Lifecycle, c *service.Commands) {
				lc.Append(fx.Hook{
					OnStart: func(ctx context.Context) error {
						c.Start()
						return nil
					},
					OnStop: func(ctx context.Context) error {
						c.Stop()
						return nil
					},
				})
			},
		),
	)
}
