package models

type Signal string

const (
	SignalNone Signal = ""
	SignalBuy  Signal = "buy"
	SignalSell Signal = "sell"
)

// NoSignalBar — «давно в прошлом», чтобы первый сигнал не упирался в cooldown.
const NoSignalBar = -999

// SignalMemory — память генератора по одному инструменту.
type SignalMemory struct {
	LastBuyBar  int `json:"last_buy_bar"`
	LastSellBar int `json:"last_sell_bar"`
	CurrentBar  int `json:"current_bar"`
}

func NewSignalMemory() SignalMemory {
	return SignalMemory{LastBuyBar: NoSignalBar, LastSellBar: NoSignalBar}
}

// Advance сдвигает счётчик циклов и возвращает новый номер бара.
func (m *SignalMemory) Advance() int {
	m.CurrentBar++
	return m.CurrentBar
}

// Accept фиксирует принятый сигнал на текущем баре.
// Вызывается только после реального открытия позиции.
func (m *SignalMemory) Accept(s Signal) {
	switch s {
	case SignalBuy:
		m.LastBuyBar = m.CurrentBar
	case SignalSell:
		m.LastSellBar = m.CurrentBar
	}
}

// Side — сторона позиции для сигнала.
func (s Signal) Side() (Side, bool) {
	switch s {
	case SignalBuy:
		return SideLong, true
	case SignalSell:
		return SideShort, true
	}
	return "", false
}
