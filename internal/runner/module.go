package runner

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"volatility_bot/internal/indicator"
	"volatility_bot/internal/metrics"
	"volatility_bot/internal/modules/config"
	health "volatility_bot/internal/modules/health/service"
	market "volatility_bot/internal/modules/market/service"
	storage "volatility_bot/internal/modules/storage/service"
	telegram "volatility_bot/internal/modules/telegram_bot/service"
	"volatility_bot/internal/notify"
	"volatility_bot/internal/paper"
	"volatility_bot/internal/strategy"
	"volatility_bot/pkg/logger"
)

// NewPaper — счёт, каждое изменение которого уходит в очередь сохранения.
func NewPaper(cfg *config.Config, saver *storage.Saver) *paper.Engine {
	return paper.NewEngine(cfg.Paper, paper.WithSnapshotHook(saver.Submit))
}

// NewNotifier собирает синки: лог всегда, Telegram и Redis — если настроены.
func NewNotifier(lc fx.Lifecycle, cfg *config.Config, tg *telegram.Telegram, m *metrics.Metrics) notify.Notifier {
	sinks := []notify.Sink{notify.NewLog()}
	if tg != nil {
		sinks = append(sinks, tg)
	}
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		lc.Append(fx.Hook{
			OnStop: func(context.Context) error { return client.Close() },
		})
		sinks = append(sinks, notify.NewRedis(client, cfg.Redis.Channel))
	}

	return notify.NewFanout(func(sink string, _ error) {
		m.NotifyErrors.WithLabelValues(sink).Inc()
	}, sinks...)
}

func NewRunner(
	cfg *config.Config,
	pe *paper.Engine,
	feed market.Feed,
	n notify.Notifier,
	m *metrics.Metrics,
	state *health.State,
) *Runner {
	return New(
		Params{
			Instruments:   cfg.InstrumentIDs(),
			Timeframe:     cfg.Market.Timeframe,
			FetchLimit:    cfg.Market.FetchLimit,
			CheckInterval: cfg.Runner.CheckInterval,
			CycleTimeout:  cfg.Runner.CycleTimeout,
		},
		indicator.NewEngine(cfg.Indicator),
		strategy.NewGenerator(cfg.Signal),
		pe,
		feed,
		n,
		m,
		WithCycleHook(state.TouchTick),
	)
}

// Restore поднимает счёт из последнего снимка. Без снимка — чистый счёт.
func Restore(ctx context.Context, store storage.Store, pe *paper.Engine, withPositions bool) {
	snap, err := store.Load(ctx)
	switch {
	case errors.Is(err, storage.ErrNoSnapshot):
		logger.Info("[RUNNER] снимка нет, старт с балансом %.2f", pe.Balance())
		return
	case err != nil:
		logger.Error("[RUNNER] загрузка снимка: %v, старт с чистого счёта", err)
		return
	}
	for _, rel := range pe.Restore(snap, withPositions) {
		logger.Warn("[RUNNER] %s: позиция из снимка не восстановлена, маржа %.4f возвращена на баланс",
			rel.Instrument, rel.Margin)
	}
	logger.Info("[RUNNER] восстановлено: баланс %.4f, комиссии %.4f, позиций %d",
		pe.Balance(), snap.CumulativeFees, len(pe.Positions()))
}

func RunLoop(lc fx.Lifecycle, cfg *config.Config, r *Runner, store storage.Store, n notify.Notifier, state *health.State) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			Restore(startCtx, store, r.Paper(), cfg.Storage.RestorePositions)
			n.Publish(startCtx, notify.BotStarted(cfg.Summary(), time.Now()))

			go func() {
				defer close(done)
				r.Run(ctx)
			}()
			state.SetReady(true)
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			state.SetReady(false)
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
			n.Publish(stopCtx, notify.BotStopped(r.Paper().Stats(), time.Now()))
			return nil
		},
	})
}

func Module() fx.Option {
	return fx.Module("runner",
		fx.Provide(
			NewPaper,
			NewNotifier,
			NewRunner,
		),
		fx.Invoke(RunLoop),
	)
}
