package market

import (
	"context"

	"go.uber.org/fx"

	"volatility_bot/internal/modules/config"
	health "volatility_bot/internal/modules/health/service"
	"volatility_bot/internal/modules/market/service"
	"volatility_bot/pkg/logger"
)

func NewClient(cfg *config.Config, state *health.State) *service.Client {
	c := service.NewClient(cfg.Market.RestURL, cfg.Market.WSURL, cfg.Market.RequestTimeout)
	c.OnConnState(state.SetWSConnected)
	return c
}

// NewFeed: в режиме rest каждый цикл ходит в REST, в stream — кэш поверх WS.
func NewFeed(lc fx.Lifecycle, cfg *config.Config, c *service.Client) service.Feed {
	if cfg.Market.Mode != "stream" {
		return c
	}

	feed := service.NewCachedFeed(c, cfg.Market.Timeframe, cfg.Market.FetchLimit)
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			insts := cfg.InstrumentIDs()
			go func() {
				if err := feed.Warmup(ctx, insts); err != nil {
					logger.Warn("[FEED] warmup: %v", err)
				}
				feed.Run(ctx, c.StreamCandles(ctx, insts, cfg.Market.Timeframe))
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
	return feed
}

// CheckInstruments предупреждает о символах, которых нет среди живых свопов OKX.
// По таким инструментам фид будет падать каждый цикл, торговлю это не останавливает.
func CheckInstruments(lc fx.Lifecycle, cfg *config.Config, c *service.Client) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			unknown, err := c.Unknown(ctx, cfg.InstrumentIDs())
			if err != nil {
				logger.Warn("[MARKET] instruments check skipped: %v", err)
				return nil
			}
			for _, inst := range unknown {
				logger.Warn("[MARKET] %s не найден среди live SWAP OKX", inst)
			}
			return nil
		},
	})
}

// Module поднимает источник свечей OKX.
func Module() fx.Option {
	return fx.Module("market",
		fx.Provide(
			NewClient,
			NewFeed,
		),
		fx.Invoke(CheckInstruments),
	)
}
