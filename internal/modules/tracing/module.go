package tracing

import (
	"context"

	"go.uber.org/fx"

	"volatility_bot/internal/modules/config"
	"volatility_bot/pkg/logger"
	jaegertracing "volatility_bot/pkg/tracing"
)

func Start(lc fx.Lifecycle, cfg *config.Config) error {
	closer, err := jaegertracing.InitTracer(cfg.Tracing, cfg.Service.Name)
	if err != nil {
		return err
	}
	if cfg.Tracing.Enabled {
		logger.Info("[TRACE] jaeger agent %s:%d", cfg.Tracing.Host, cfg.Tracing.Port)
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error { return closer.Close() },
	})
	return nil
}

func Module() fx.Option {
	return fx.Module("tracing",
		fx.Invoke(Start),
	)
}
