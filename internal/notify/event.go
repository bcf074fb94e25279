package notify

import (
	"fmt"
	"strings"
	"time"

	"volatility_bot/internal/models"
)

type Kind string

const (
	KindEntryOpened    Kind = "entry_opened"
	KindPositionClosed Kind = "position_closed"
	KindBotStarted     Kind = "bot_started"
	KindBotStopped     Kind = "bot_stopped"
)

// Event — структурное уведомление от ядра. Заполнены только поля своего Kind.
type Event struct {
	Kind       Kind                `json:"kind"`
	Time       time.Time           `json:"time"`
	Instrument models.InstrumentID `json:"instrument,omitempty"`
	Position   *models.Position    `json:"position,omitempty"`
	Trade      *models.Trade       `json:"trade,omitempty"`
	Balance    float64             `json:"balance"`
	Summary    string              `json:"summary,omitempty"`
	Stats      *models.Stats       `json:"stats,omitempty"`
}

func EntryOpened(pos models.Position, balance float64) Event {
	return Event{Kind: KindEntryOpened, Time: pos.EntryTime, Instrument: pos.Instrument, Position: &pos, Balance: balance}
}

func PositionClosed(tr models.Trade, balance float64) Event {
	return Event{Kind: KindPositionClosed, Time: tr.ExitTime, Instrument: tr.Instrument, Trade: &tr, Balance: balance}
}

func BotStarted(summary string, at time.Time) Event {
	return Event{Kind: KindBotStarted, Time: at, Summary: summary}
}

func BotStopped(st models.Stats, at time.Time) Event {
	return Event{Kind: KindBotStopped, Time: at, Stats: &st, Balance: st.Balance}
}

// Text — человекочитаемое сообщение для чата и логов.
func Text(e Event) string {
	switch e.Kind {
	case KindEntryOpened:
		p := e.Position
		emoji := "🟢"
		if p.Side == models.SideShort {
			emoji = "🔴"
		}
		return fmt.Sprintf("%s [%s] вход %s @ %.6f\nSL: %.6f\nTP1: %.6f\nTP2: %.6f\nБаланс: $%.2f",
			emoji, p.Instrument, strings.ToUpper(string(p.Side)), p.EntryPrice, p.StopLoss, p.TP1, p.TP2, e.Balance)

	case KindPositionClosed:
		t := e.Trade
		emoji := "✅"
		if t.PnL < 0 {
			emoji = "❌"
		}
		kind := "закрытие"
		if t.Partial {
			kind = "частичное закрытие"
		}
		return fmt.Sprintf("%s [%s] %s %s (%s) @ %.6f\nPnL: $%.4f (%.2f%%) | комиссия: $%.4f\nБаланс: $%.2f",
			emoji, t.Instrument, kind, strings.ToUpper(string(t.Side)), t.Reason, t.ExitPrice,
			t.PnL, t.PnLPercent, t.Fees, e.Balance)

	case KindBotStarted:
		return "🚀 Бот запущен (paper trading)\n\n" + e.Summary

	case KindBotStopped:
		return "⏹ Бот остановлен\n\n" + StatsText(*e.Stats)
	}
	return string(e.Kind)
}

func StatsText(st models.Stats) string {
	return fmt.Sprintf("💰 Баланс: $%.2f\n📈 Сделок: %d (✅ %d / ❌ %d)\n🎯 Winrate: %.1f%%\n💵 PnL: $%.4f\n💸 Комиссии: $%.4f\n📂 Открыто позиций: %d",
		st.Balance, st.TotalTrades, st.WinningTrades, st.LosingTrades, st.WinRate, st.TotalPnL, st.TotalFees, st.OpenPositions)
}
