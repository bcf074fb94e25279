package service

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"volatility_bot/internal/models"
)

// StatusSource — чтение состояния бота для /status.
type StatusSource interface {
	Stats() models.Stats
	Positions() []models.Position
}

type Status struct {
	Stats     models.Stats      `json:"stats"`
	Positions []models.Position `json:"positions"`
	Halted    []models.Halt     `json:"halted,omitempty"`
}

type Handler struct {
	state    *State
	source   StatusSource
	halted   func() []models.Halt
	metrics  http.Handler
	maxStall time.Duration
}

// NewHandler: maxStall — сколько можно жить без завершённого цикла, оставаясь ready.
func NewHandler(state *State, source StatusSource, halted func() []models.Halt, metrics http.Handler, maxStall time.Duration) *Handler {
	return &Handler{state: state, source: source, halted: halted, metrics: metrics, maxStall: maxStall}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/livez", h.Livez)
	e.GET("/readyz", h.Readyz)
	e.GET("/healthz", h.Healthz)
	e.GET("/status", h.Status)
	if h.metrics != nil {
		e.GET("/metrics", echo.WrapHandler(h.metrics))
	}
}

// Livez: процесс жив.
func (h *Handler) Livez(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// Readyz: бот запущен и циклы идут.
func (h *Handler) Readyz(c echo.Context) error {
	if !h.state.Ready() {
		return c.String(http.StatusServiceUnavailable, "not ready")
	}
	if h.state.Stalled(time.Now(), h.maxStall) {
		return c.String(http.StatusServiceUnavailable, "stalled")
	}
	return c.String(http.StatusOK, "ready")
}

func (h *Handler) Healthz(c echo.Context) error {
	var lastCycle int64
	if t := h.state.LastTick(); !t.IsZero() {
		lastCycle = t.Unix()
	}
	return c.JSON(http.StatusOK, map[string]any{
		"ready":         h.state.Ready(),
		"wsConnected":   h.state.WSConnected(),
		"uptimeSec":     int64(h.state.Uptime().Seconds()),
		"lastCycleUnix": lastCycle,
	})
}

// Status — чистое чтение: статистика счёта и открытые позиции.
func (h *Handler) Status(c echo.Context) error {
	st := Status{
		Stats:     h.source.Stats(),
		Positions: h.source.Positions(),
	}
	if h.halted != nil {
		st.Halted = h.halted()
	}
	return c.JSON(http.StatusOK, st)
}
