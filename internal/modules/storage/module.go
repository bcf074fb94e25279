package storage

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	"volatility_bot/internal/metrics"
	"volatility_bot/internal/modules/config"
	"volatility_bot/internal/modules/postgres"
	"volatility_bot/internal/modules/storage/service"
	"volatility_bot/pkg/logger"
)

// NewStore выбирает бэкенд по storage.driver.
func NewStore(ctx context.Context, cfg *config.Config) (service.Store, error) {
	switch cfg.Storage.Driver {
	case "none":
		return service.Nop{}, nil
	case "file":
		return service.NewFile(cfg.Storage.Path), nil
	case "sqlite":
		return service.NewSQLite(cfg.Storage.Path)
	case "postgres":
		m, err := postgres.Connect(ctx, cfg.DB)
		if err != nil {
			return nil, err
		}
		return service.NewPostgres(ctx, m)
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}

func NewSaver(store service.Store, m *metrics.Metrics) *service.Saver {
	return service.NewSaver(store, func(error) { m.StoreErrors.Inc() })
}

func RunSaver(lc fx.Lifecycle, s *service.Saver, store service.Store) {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go s.Run(ctx)
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-s.Done():
			case <-stopCtx.Done():
				logger.Warn("saver: final flush did not finish: %v", stopCtx.Err())
			}
			return store.Close()
		},
	})
}

func Module() fx.Option {
	return fx.Module("storage",
		fx.Provide(
			NewStore,
			NewSaver,
		),
		fx.Invoke(RunSaver),
	)
}
