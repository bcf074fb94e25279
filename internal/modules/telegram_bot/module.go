package telegram

import (
	"context"

	"go.uber.org/fx"

	"volatility_bot/internal/modules/config"
	"volatility_bot/internal/modules/telegram_bot/service"
	"volatility_bot/internal/runner"
	"volatility_bot/pkg/logger"
)

// NewTelegram: без токена бот работает без Telegram, уведомления уходят только в лог.
func NewTelegram(cfg *config.Config) (*service.Telegram, error) {
	if cfg.Telegram.Token == "" {
		logger.Warn("[TG] token is empty, telegram disabled")
		return nil, nil
	}
	return service.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID)
}

func StartCommands(lc fx.Lifecycle, t *service.Telegram, r *runner.Runner) {
	if t == nil {
		return
	}
	t.Attach(r.Paper(), r)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			t.Start(context.Background())
			return nil
		},
		OnStop: func(context.Context) error {
			t.Stop()
			return nil
		},
	})
}

func Module() fx.Option {
	return fx.Module("telegram",
		fx.Provide(NewTelegram),
		fx.Invoke(StartCommands),
	)
}
