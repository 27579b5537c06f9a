package cli

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"signal_bot/internal/exchange"
	"signal_bot/internal/modules/config"
	"signal_bot/internal/modules/health"
	telegram "signal_bot/internal/modules/telegram_bot"
	"signal_bot/internal/modules/volume_delta"
	"signal_bot/internal/notify"
	"signal_bot/internal/runner"
	"signal_bot/pkg/logger"
	"signal_bot/pkg/tracing"
)

const serviceName = "signal-bot"

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logger.New(cfg.LogLevel, serviceName)
}

func logConfig(cfg *config.Config, log *zap.Logger) {
	dump, err := cfg.Dump()
	if err != nil {
		log.Warn("config dump failed", zap.Error(err))
		return
	}
	log.Info("effective config\n" + dump)
}

func initTracing(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) error {
	tracing.SetServiceName(serviceName)
	_, closeFn, err := tracing.InitTracer(tracing.Config{Host: cfg.Tracing.Host, Port: cfg.Tracing.Port})
	if err != nil {
		return err
	}
	if cfg.Tracing.Host != "" {
		log.Info("tracing enabled", zap.String("host", cfg.Tracing.Host), zap.Int("port", cfg.Tracing.Port))
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			closeFn()
			return nil
		},
	})
	return nil
}

// core — общее для run и check: конфиг, логгер, трейсинг, биржа, дельта объёма, доставка.
func core() fx.Option {
	return fx.Options(
		config.Module(),
		fx.Provide(newLogger),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
		fx.Invoke(logConfig, initTracing),
		exchange.Module(),
		volume_delta.Module(),
		notify.Module(),
	)
}

// serviceApp — полный сервис: слушатели, периодический цикл, health-сервер, команды бота.
func serviceApp() *fx.App {
	return fx.New(
		core(),
		health.Module(),
		runner.Module(),
		telegram.Module(),
	)
}

// checkApp — без цикла и HTTP, Runner отдаётся наружу для ручного прогона.
func checkApp(r **runner.Runner) *fx.App {
	return fx.New(
		core(),
		health.StateModule(),
		runner.Providers(),
		fx.Populate(r),
	)
}
