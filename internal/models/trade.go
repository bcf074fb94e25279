package models

import "time"

type ExitReason string

const (
	ExitTP1        ExitReason = "tp1"
	ExitTP2        ExitReason = "tp2"
	ExitStopLoss   ExitReason = "sl"
	ExitTrailingSL ExitReason = "trailing_sl"
)

// Trade — неизменяемая запись о закрытии (частичном или полном).
type Trade struct {
	ID         string       `json:"id"`
	Instrument InstrumentID `json:"instrument"`
	Side       Side         `json:"side"`
	EntryPrice float64      `json:"entry_price"`
	ExitPrice  float64      `json:"exit_price"`
	EntryTime  time.Time    `json:"entry_time"`
	ExitTime   time.Time    `json:"exit_time"`
	Margin     float64      `json:"margin"`
	PnL        float64      `json:"pnl"`
	PnLPercent float64      `json:"pnl_percent"`
	Reason     ExitReason   `json:"reason"`
	Fees       float64      `json:"fees"`
	Partial    bool         `json:"partial"`
}
