package strategy

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volatility_bot/internal/models"
)

var start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func frame(i int, close float64) models.DerivedFrame {
	return models.DerivedFrame{
		Time:        start.Add(time.Duration(i) * time.Minute),
		Close:       close,
		Basis:       100,
		Upper:       104,
		Lower:       96,
		SmoothUpper: 105,
		SmoothLower: 95,
		TopZone:     models.Zone{Bottom: 110, Top: 120},
		BottomZone:  models.Zone{Bottom: 80, Top: 90},
		ATR:         1,
		ADX:         25,
		PlusDI:      20,
		MinusDI:     15,
	}
}

func frames(closes ...float64) []models.DerivedFrame {
	out := make([]models.DerivedFrame, len(closes))
	for i, c := range closes {
		out[i] = frame(i, c)
	}
	return out
}

func fresh() models.SignalMemory {
	m := models.NewSignalMemory()
	m.Advance()
	return m
}

func TestEvaluateZoneEntry(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name        string
		antiRepaint bool
		closes      []float64
		want        models.Signal
	}{
		{"too few frames", true, []float64{100, 85}, models.SignalNone},
		{"buy on bottom zone entry", true, []float64{100, 85, 100}, models.SignalBuy},
		{"sell on top zone entry", true, []float64{100, 115, 100}, models.SignalSell},
		{"sustained bottom membership", true, []float64{85, 85, 85}, models.SignalNone},
		{"sustained top membership", true, []float64{100, 115, 116, 100}, models.SignalNone},
		{"live bar ignored with anti-repaint", true, []float64{100, 100, 85}, models.SignalNone},
		{"live bar used without anti-repaint", false, []float64{100, 100, 85}, models.SignalBuy},
		{"zone boundary is outside", true, []float64{100, 90, 100}, models.SignalNone},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			g := NewGenerator(Params{CooldownBars: 20, AntiRepaint: tc.antiRepaint})
			got, err := g.Evaluate(frames(tc.closes...), fresh())
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestEvaluateSkipsUndefinedFrames(t *testing.T) {
	t.Parallel()

	warm := frame(0, 50)
	warm.ADX = math.NaN()
	def := frames(100, 85, 100)
	fs := []models.DerivedFrame{warm, warm, def[0], warm, def[1], def[2]}

	g := NewGenerator(Params{CooldownBars: 20, AntiRepaint: true})
	got, err := g.Evaluate(fs, fresh())
	require.NoError(t, err)
	assert.Equal(t, models.SignalBuy, got)

	obs, ok := g.Observation(fs)
	require.True(t, ok)
	assert.Equal(t, 85.0, obs.Close)
}

func TestEvaluateOverlappingZones(t *testing.T) {
	t.Parallel()

	fs := frames(100, 85, 100)
	fs[1].BottomZone.Top = 112

	_, err := NewGenerator(Params{AntiRepaint: true}).Evaluate(fs, fresh())
	require.ErrorIs(t, err, ErrZonesOverlap)
}

func TestEvaluateFlatBandGivesNoSignal(t *testing.T) {
	t.Parallel()

	// std = 0 и нулевой диапазон: обе зоны сжаты в точку 100
	flat := func(i int, close float64) models.DerivedFrame {
		f := frame(i, close)
		f.SmoothUpper, f.SmoothLower = 100, 100
		f.TopZone = models.Zone{Bottom: 100, Top: 100}
		f.BottomZone = models.Zone{Bottom: 100, Top: 100}
		return f
	}
	g := NewGenerator(Params{CooldownBars: 20, AntiRepaint: true})

	for _, closes := range [][]float64{{100, 99, 100}, {100, 101, 100}} {
		in := []models.DerivedFrame{flat(0, closes[0]), flat(1, closes[1]), flat(2, closes[2])}
		sig, err := g.Evaluate(in, fresh())
		require.NoError(t, err)
		assert.Equal(t, models.SignalNone, sig, "closes %v", closes)
	}

	// схлопнулась только предыдущая точка
	in := frames(100, 85, 100)
	in[0] = flat(0, 100)
	sig, err := g.Evaluate(in, fresh())
	require.NoError(t, err)
	assert.Equal(t, models.SignalNone, sig)
}

func TestCooldown(t *testing.T) {
	t.Parallel()

	g := NewGenerator(Params{CooldownBars: 20, AntiRepaint: true})
	raw := frames(100, 85, 100)
	mem := models.NewSignalMemory()

	at := func(bar int) models.Signal {
		mem.CurrentBar = bar
		got, err := g.Evaluate(raw, mem)
		require.NoError(t, err)
		return got
	}

	require.Equal(t, models.SignalBuy, at(5))
	mem.Accept(models.SignalBuy)

	assert.Equal(t, models.SignalNone, at(10))
	assert.Equal(t, models.SignalNone, at(24))
	assert.Equal(t, models.SignalBuy, at(25))
	assert.Equal(t, models.SignalBuy, at(26))
	assert.Equal(t, 5, mem.LastBuyBar)
}

func TestCooldownIsPerSide(t *testing.T) {
	t.Parallel()

	g := NewGenerator(Params{CooldownBars: 20, AntiRepaint: true})
	mem := models.SignalMemory{LastBuyBar: 9, LastSellBar: models.NoSignalBar, CurrentBar: 10}

	got, err := g.Evaluate(frames(100, 115, 100), mem)
	require.NoError(t, err)
	assert.Equal(t, models.SignalSell, got)
}
