package models

import (
	"fmt"
	"time"
)

type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// Sign: +1 для лонга, -1 для шорта.
func (s Side) Sign() float64 {
	if s == SideShort {
		return -1
	}
	return 1
}

func (s Side) Valid() bool { return s == SideLong || s == SideShort }

// Position — открытая бумажная позиция. Одна на инструмент.
type Position struct {
	Instrument InstrumentID `json:"instrument"`
	Side       Side         `json:"side"`
	EntryPrice float64      `json:"entry_price"`
	EntryTime  time.Time    `json:"entry_time"`
	Size       float64      `json:"size"` // notional = margin * leverage
	Margin     float64      `json:"margin"`
	Leverage   float64      `json:"leverage"`
	EntryFee   float64      `json:"entry_fee"`

	StopLoss float64 `json:"stop_loss"`
	TP1      float64 `json:"tp1"`
	TP2      float64 `json:"tp2"`

	PartialTaken bool     `json:"partial_taken"`
	TrailingStop *float64 `json:"trailing_stop,omitempty"`
	HighWater    *float64 `json:"high_water,omitempty"`

	EntryATR float64 `json:"entry_atr"`
}

// CheckLevels проверяет порядок уровней на момент входа:
// лонг sl < entry < tp1 < tp2, шорт зеркально.
func (p Position) CheckLevels() error {
	if !p.Side.Valid() {
		return fmt.Errorf("unknown side %q", p.Side)
	}
	if p.Margin <= 0 || p.Leverage <= 0 {
		return fmt.Errorf("margin %.6f and leverage %.2f must be positive", p.Margin, p.Leverage)
	}

	ok := p.StopLoss < p.EntryPrice && p.EntryPrice < p.TP1 && p.TP1 < p.TP2
	if p.Side == SideShort {
		ok = p.StopLoss > p.EntryPrice && p.EntryPrice > p.TP1 && p.TP1 > p.TP2
	}
	if !ok {
		return fmt.Errorf("%s %s levels out of order: sl=%.8f entry=%.8f tp1=%.8f tp2=%.8f",
			p.Instrument, p.Side, p.StopLoss, p.EntryPrice, p.TP1, p.TP2)
	}
	return nil
}
