package indicator

import (
	"math"

	"volatility_bot/internal/models"
)

// Params — окна и множители полос. Значения по умолчанию — рабочий пресет бота.
type Params struct {
	BandLength    int     `yaml:"band_length" mapstructure:"band_length" default:"15" validate:"gte=2"`
	BandMult      float64 `yaml:"band_mult" mapstructure:"band_mult" default:"2.0" validate:"gt=0"`
	SmoothLength  int     `yaml:"smooth_length" mapstructure:"smooth_length" default:"50" validate:"gte=1"`
	ADXLength     int     `yaml:"adx_length" mapstructure:"adx_length" default:"14" validate:"gte=1"`
	ADXSmooth     int     `yaml:"adx_smooth" mapstructure:"adx_smooth" default:"14" validate:"gte=1"`
	ADXInfluence  float64 `yaml:"adx_influence" mapstructure:"adx_influence" default:"0.8" validate:"gte=0"`
	ZoneOffset    float64 `yaml:"zone_offset" mapstructure:"zone_offset" default:"1.0" validate:"gte=0"`
	ZoneExpansion float64 `yaml:"zone_expansion" mapstructure:"zone_expansion" default:"1.0" validate:"gte=0"`
	ATRLength     int     `yaml:"atr_length" mapstructure:"atr_length" default:"14" validate:"gte=1"`
}

// Engine — чистая функция свечи -> фреймы, состояния между вызовами нет.
// Безопасен для одновременного использования из разных горутин.
type Engine struct {
	p Params
}

func NewEngine(p Params) *Engine {
	return &Engine{p: p}
}

func (e *Engine) Params() Params { return e.p }

// Warmup — сколько первых фреймов гарантированно не определены.
// Окна идут цепочкой: ADX (length + smooth - 1) или полоса, затем сглаживание краёв.
func (e *Engine) Warmup() int {
	adxFirst := e.p.ADXLength + e.p.ADXSmooth - 1
	band := max(adxFirst, e.p.BandLength-1)
	return max(band+e.p.SmoothLength-1, e.p.ATRLength)
}

// ExtraBars — сверх прогрева: точка наблюдения, предыдущая свеча и живая.
const ExtraBars = 3

// MinHistory — минимальная длина серии, на которой возможен сигнал.
func (e *Engine) MinHistory() int { return e.Warmup() + ExtraBars }

// Compute считает фрейм на каждую свечу серии. Не паникует и не возвращает
// ошибку на короткой истории: недостающее остаётся NaN.
func (e *Engine) Compute(series models.BarSeries) []models.DerivedFrame {
	n := len(series.Bars)
	high := make([]float64, n)
	low := make([]float64, n)
	closes := make([]float64, n)
	for i, b := range series.Bars {
		high[i], low[i], closes[i] = b.High, b.Low, b.Close
	}

	adx, plusDI, minusDI := e.adx(high, low, closes)
	atr := wilder(trueRange(high, low, closes), e.p.ATRLength, 1)

	basis := rollingMean(closes, e.p.BandLength)
	std := rollingStd(closes, e.p.BandLength)

	upper, lower := nanSeries(n), nanSeries(n)
	for i := 0; i < n; i++ {
		half := e.p.BandMult * std[i] * (1 + adx[i]/100*e.p.ADXInfluence)
		upper[i] = basis[i] + half
		lower[i] = basis[i] - half
	}
	smoothUpper := rollingMean(upper, e.p.SmoothLength)
	smoothLower := rollingMean(lower, e.p.SmoothLength)

	frames := make([]models.DerivedFrame, n)
	for i, b := range series.Bars {
		su, sl := smoothUpper[i], smoothLower[i]
		rng := su - sl
		offset := rng * e.p.ZoneOffset
		width := rng * e.p.ZoneExpansion

		frames[i] = models.DerivedFrame{
			Time:        b.Time,
			Close:       b.Close,
			High:        b.High,
			Low:         b.Low,
			Basis:       basis[i],
			Upper:       upper[i],
			Lower:       lower[i],
			SmoothUpper: su,
			SmoothLower: sl,
			TopZone:     models.Zone{Bottom: su + offset, Top: su + offset + width},
			BottomZone:  models.Zone{Top: sl - offset, Bottom: sl - offset - width},
			ATR:         atr[i],
			ADX:         adx[i],
			PlusDI:      plusDI[i],
			MinusDI:     minusDI[i],
		}
	}
	return frames
}

// adx — ADX Уайлдера со своими +DI/-DI, шкала 0..100.
func (e *Engine) adx(high, low, closes []float64) (adx, plusDI, minusDI []float64) {
	n := len(closes)
	plusDM, minusDM := directional(high, low)
	tr := trueRange(high, low, closes)

	smTR := wilder(tr, e.p.ADXLength, 1)
	smPlus := wilder(plusDM, e.p.ADXLength, 1)
	smMinus := wilder(minusDM, e.p.ADXLength, 1)

	plusDI, minusDI = nanSeries(n), nanSeries(n)
	dx := nanSeries(n)
	for i := 0; i < n; i++ {
		if math.IsNaN(smTR[i]) {
			continue
		}
		plusDI[i], minusDI[i] = 0, 0
		if smTR[i] > 0 {
			plusDI[i] = 100 * smPlus[i] / smTR[i]
			minusDI[i] = 100 * smMinus[i] / smTR[i]
		}
		dx[i] = 0
		if sum := plusDI[i] + minusDI[i]; sum > 0 {
			dx[i] = 100 * math.Abs(plusDI[i]-minusDI[i]) / sum
		}
	}

	adx = wilder(dx, e.p.ADXSmooth, e.p.ADXLength)
	return adx, plusDI, minusDI
}

// Latest — последний определённый фрейм.
func Latest(frames []models.DerivedFrame) (models.DerivedFrame, bool) {
	for i := len(frames) - 1; i >= 0; i-- {
		if frames[i].Defined() {
			return frames[i], true
		}
	}
	return models.DerivedFrame{}, false
}
