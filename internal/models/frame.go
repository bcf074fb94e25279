package models

import (
	"math"
	"time"
)

// Zone — ценовой коридор [Bottom, Top].
type Zone struct {
	Bottom float64 `json:"bottom"`
	Top    float64 `json:"top"`
}

// DerivedFrame — рассчитанные индикаторы на одну свечу.
// Ещё не посчитанные значения — NaN, нулём они не становятся никогда.
type DerivedFrame struct {
	Time  time.Time
	Close float64
	High  float64
	Low   float64

	Basis       float64
	Upper       float64
	Lower       float64
	SmoothUpper float64
	SmoothLower float64
	TopZone     Zone
	BottomZone  Zone

	ATR     float64
	ADX     float64
	PlusDI  float64
	MinusDI float64
}

// Defined — все поля фрейма уже доступны.
func (f DerivedFrame) Defined() bool {
	for _, v := range [...]float64{
		f.Basis, f.Upper, f.Lower, f.SmoothUpper, f.SmoothLower,
		f.TopZone.Bottom, f.TopZone.Top, f.BottomZone.Bottom, f.BottomZone.Top,
		f.ATR, f.ADX, f.PlusDI, f.MinusDI,
	} {
		if math.IsNaN(v) {
			return false
		}
	}
	return true
}

// DefinedFrames отбрасывает непрогретые фреймы, сохраняя порядок.
func DefinedFrames(frames []DerivedFrame) []DerivedFrame {
	out := make([]DerivedFrame, 0, len(frames))
	for _, f := range frames {
		if f.Defined() {
			out = append(out, f)
		}
	}
	return out
}
