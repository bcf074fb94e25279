package health

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"volatility_bot/internal/metrics"
	"volatility_bot/internal/modules/config"
	"volatility_bot/internal/modules/health/service"
	"volatility_bot/internal/runner"
	"volatility_bot/pkg/logger"
)

// stallCycles — сколько интервалов без цикла терпит /readyz.
const stallCycles = 5

func NewHandler(cfg *config.Config, state *service.State, r *runner.Runner, m *metrics.Metrics) *service.Handler {
	return service.NewHandler(state, r.Paper(), r.Halted, m.Handler(),
		stallCycles*cfg.Runner.CheckInterval+cfg.Runner.CycleTimeout)
}

func NewEcho(h *service.Handler) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = service.SonicSerializer{}
	e.Use(recoverMiddleware)
	h.RegisterRoutes(e)
	return e
}

func recoverMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		defer func() {
			if p := recover(); p != nil {
				logger.L().Error("admin http panic", zap.Any("panic", p), zap.String("path", c.Path()))
				err = c.String(http.StatusInternalServerError, "internal error")
			}
		}()
		return next(c)
	}
}

func RunHTTP(lc fx.Lifecycle, cfg *config.Config, e *echo.Echo) {
	addr := fmt.Sprintf(":%d", cfg.Service.AdminPort)
	e.Server.ReadHeaderTimeout = 5 * time.Second

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return err
			}
			e.Listener = ln
			go func() {
				if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("[HTTP] admin server: %v", err)
				}
			}()
			logger.Info("[HTTP] admin server on %s", addr)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return e.Shutdown(ctx)
		},
	})
}

func Module() fx.Option {
	return fx.Module("health",
		fx.Provide(
			service.NewState,
			NewHandler,
			NewEcho,
		),
		fx.Invoke(RunHTTP),
	)
}
