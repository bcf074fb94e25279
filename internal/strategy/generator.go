package strategy

import (
	"errors"
	"fmt"
	"time"

	"volatility_bot/internal/models"
)

// ErrZonesOverlap — нижняя зона залезла на верхнюю. Это дефект расчёта или
// конфига, а не рыночная ситуация: торговлю по инструменту надо остановить.
var ErrZonesOverlap = errors.New("bottom zone overlaps top zone")

// minFrames — текущая и предыдущая точки наблюдения плюс формирующийся бар.
const minFrames = 3

type Params struct {
	CooldownBars int  `yaml:"cooldown_bars" mapstructure:"cooldown_bars" default:"20" validate:"gte=0"`
	AntiRepaint  bool `yaml:"anti_repaint" mapstructure:"anti_repaint" default:"true"`
}

// Generator — чистый запрос: фреймы + память -> none/buy/sell.
// Память не трогает, её обновляет вызывающий после реального входа.
type Generator struct {
	p Params
}

func NewGenerator(p Params) *Generator {
	return &Generator{p: p}
}

func (g *Generator) Params() Params { return g.p }

// Evaluate ищет вход в зону на точке наблюдения.
func (g *Generator) Evaluate(frames []models.DerivedFrame, mem models.SignalMemory) (models.Signal, error) {
	defined := models.DefinedFrames(frames)
	cur, prev, ok := g.points(defined)
	if !ok {
		return models.SignalNone, nil
	}

	for _, f := range [...]models.DerivedFrame{prev, cur} {
		if f.BottomZone.Top > f.TopZone.Bottom {
			return models.SignalNone, fmt.Errorf("%w at %s: bottom.top=%.8f top.bottom=%.8f",
				ErrZonesOverlap, f.Time.Format(time.RFC3339), f.BottomZone.Top, f.TopZone.Bottom)
		}
	}
	// плоское окно: зоны схлопнулись и касаются, сигналов нет
	if degenerate(prev) || degenerate(cur) {
		return models.SignalNone, nil
	}

	rawBuy := inBottomZone(cur) && !inBottomZone(prev)
	rawSell := inTopZone(cur) && !inTopZone(prev)

	switch {
	case rawBuy && mem.CurrentBar-mem.LastBuyBar >= g.p.CooldownBars:
		return models.SignalBuy, nil
	case rawSell && mem.CurrentBar-mem.LastSellBar >= g.p.CooldownBars:
		return models.SignalSell, nil
	}
	return models.SignalNone, nil
}

// Observation — фрейм, по которому принимается решение (цена входа берётся из него).
func (g *Generator) Observation(frames []models.DerivedFrame) (models.DerivedFrame, bool) {
	cur, _, ok := g.points(models.DefinedFrames(frames))
	return cur, ok
}

// points: с anti-repaint смотрим на предпоследний и третий с конца бары,
// живой бар в решение не попадает.
func (g *Generator) points(defined []models.DerivedFrame) (cur, prev models.DerivedFrame, ok bool) {
	n := len(defined)
	if n < minFrames {
		return models.DerivedFrame{}, models.DerivedFrame{}, false
	}
	if g.p.AntiRepaint {
		return defined[n-2], defined[n-3], true
	}
	return defined[n-1], defined[n-2], true
}

func degenerate(f models.DerivedFrame) bool { return f.BottomZone.Top == f.TopZone.Bottom }

func inTopZone(f models.DerivedFrame) bool    { return f.Close > f.TopZone.Bottom }
func inBottomZone(f models.DerivedFrame) bool { return f.Close < f.BottomZone.Top }
