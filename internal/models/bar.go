package models

import (
	"errors"
	"fmt"
	"time"
)

// InstrumentID — идентификатор инструмента в формате биржи, например BTC-USDT-SWAP.
type InstrumentID string

func (i InstrumentID) String() string { return string(i) }

var ErrUnorderedBars = errors.New("bars are not strictly ordered by time")

// Bar — одна закрытая (или формирующаяся) OHLCV свеча.
type Bar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// BarSeries — упорядоченный по времени буфер свечей одного инструмента.
type BarSeries struct {
	Instrument InstrumentID
	Timeframe  string
	Bars       []Bar
}

func NewBarSeries(inst InstrumentID, timeframe string, bars []Bar) (BarSeries, error) {
	for i := 1; i < len(bars); i++ {
		if !bars[i].Time.After(bars[i-1].Time) {
			return BarSeries{}, fmt.Errorf("%s bar %d at %s: %w", inst, i, bars[i].Time.Format(time.RFC3339), ErrUnorderedBars)
		}
	}
	return BarSeries{Instrument: inst, Timeframe: timeframe, Bars: bars}, nil
}

// Append добавляет свечу строго позже последней.
func (s *BarSeries) Append(b Bar) error {
	if n := len(s.Bars); n > 0 && !b.Time.After(s.Bars[n-1].Time) {
		return fmt.Errorf("%s append at %s: %w", s.Instrument, b.Time.Format(time.RFC3339), ErrUnorderedBars)
	}
	s.Bars = append(s.Bars, b)
	return nil
}

func (s BarSeries) Len() int { return len(s.Bars) }

func (s BarSeries) Last() (Bar, bool) {
	if len(s.Bars) == 0 {
		return Bar{}, false
	}
	return s.Bars[len(s.Bars)-1], true
}

// Tail — последние n свечей (копия, исходный буфер не делится).
func (s BarSeries) Tail(n int) BarSeries {
	if n >= len(s.Bars) {
		n = len(s.Bars)
	}
	out := make([]Bar, n)
	copy(out, s.Bars[len(s.Bars)-n:])
	return BarSeries{Instrument: s.Instrument, Timeframe: s.Timeframe, Bars: out}
}
