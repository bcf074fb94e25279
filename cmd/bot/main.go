package main

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"volatility_bot/internal/metrics"
	"volatility_bot/internal/modules/config"
	"volatility_bot/internal/modules/health"
	"volatility_bot/internal/modules/market"
	"volatility_bot/internal/modules/storage"
	telegram "volatility_bot/internal/modules/telegram_bot"
	"volatility_bot/internal/modules/tracing"
	"volatility_bot/internal/runner"
	"volatility_bot/pkg/logger"
)

func main() {
	app := fx.New(
		fx.Provide(
			func() context.Context {
				return context.Background()
			},
		),
		fx.WithLogger(func(cfg *config.Config) (fxevent.Logger, error) {
			l, err := logger.Init(cfg.Log)
			if err != nil {
				return nil, err
			}
			logger.SetServiceName(cfg.Service.Name)
			return &fxevent.ZapLogger{Logger: l}, nil
		}),
		config.Module(),
		tracing.Module(),
		metrics.Module(),
		storage.Module(),
		market.Module(),
		telegram.Module(),
		runner.Module(),
		health.Module(),
	)
	defer logger.Sync()

	app.Run()
}
