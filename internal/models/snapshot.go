package models

import "time"

// Snapshot — состояние бухгалтерии для сохранения и восстановления.
type Snapshot struct {
	Seq            uint64                    `json:"seq"`
	Balance        float64                   `json:"balance"`
	CumulativeFees float64                   `json:"cumulative_fees"`
	OpenPositions  map[InstrumentID]Position `json:"open_positions"`
	TradeHistory   []Trade                   `json:"trade_history"`
	SavedAt        time.Time                 `json:"saved_at"`
}

// Stats — ответ на запрос статуса, чистое чтение.
type Stats struct {
	Balance       float64 `json:"balance" yaml:"balance"`
	TotalTrades   int     `json:"total_trades" yaml:"total_trades"`
	WinningTrades int     `json:"winning_trades" yaml:"winning_trades"`
	LosingTrades  int     `json:"losing_trades" yaml:"losing_trades"`
	WinRate       float64 `json:"win_rate" yaml:"win_rate"`
	TotalPnL      float64 `json:"total_pnl" yaml:"total_pnl"`
	TotalFees     float64 `json:"total_fees" yaml:"total_fees"`
	OpenPositions int     `json:"open_positions" yaml:"open_positions"`
}

// Halt — инструмент, снятый с торговли после нарушения инварианта.
type Halt struct {
	Instrument InstrumentID `json:"instrument" yaml:"instrument"`
	Reason     string       `json:"reason" yaml:"reason"`
}
