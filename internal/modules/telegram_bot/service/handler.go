package service

import (
	"context"
	"strings"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"volatility_bot/internal/models"
	"volatility_bot/pkg/logger"
)

func (t *Telegram) handleUpdate(ctx context.Context, update tgbot.Update) {
	msg := update.Message
	if msg == nil || msg.Chat == nil || !msg.IsCommand() {
		return
	}
	chatID := msg.Chat.ID
	// чужие чаты молча игнорируем
	if t.chatID != 0 && chatID != t.chatID {
		return
	}

	reply := t.command(ctx, msg.Command(), msg.CommandArguments())
	if reply == "" {
		return
	}
	if _, err := t.Send(chatID, reply); err != nil {
		logger.Error("[TG] reply to /%s: %v", msg.Command(), err)
	}
}

// command возвращает текст ответа; пустая строка — не отвечать.
func (t *Telegram) command(ctx context.Context, cmd, args string) string {
	t.mu.Lock()
	ledger, ctl := t.ledger, t.ctl
	t.mu.Unlock()

	switch cmd {
	case "start", "help":
		return helpText
	}
	if ledger == nil || ctl == nil {
		return "⏳ Бот ещё запускается"
	}

	switch cmd {
	case "status":
		return formatStatus(ledger.Stats(), ledger.Positions())

	case "positions":
		return formatPositions(ledger.Positions())

	case "v":
		inst, ok := parseInstrument(args)
		if !ok {
			return "Использование: /v BTC или /v BTC-USDT-SWAP"
		}
		f, err := ctl.Indicators(ctx, inst)
		if err != nil {
			return "❗️ " + err.Error()
		}
		return formatIndicators(inst, f)

	case "resume":
		inst, ok := parseInstrument(args)
		if !ok {
			return "Использование: /resume BTC-USDT-SWAP"
		}
		if !ctl.Resume(inst) {
			return "ℹ️ " + inst.String() + " не был остановлен"
		}
		return "▶️ " + inst.String() + " снова торгуется"
	}
	return ""
}

const helpText = "Paper trading бот на полосах волатильности.\n\n" +
	"/status — баланс и статистика\n" +
	"/positions — открытые позиции\n" +
	"/v BTC — текущие значения индикатора\n" +
	"/resume BTC — вернуть остановленный инструмент"

// parseInstrument: "btc" -> BTC-USDT-SWAP, полный id оставляем как есть.
func parseInstrument(args string) (models.InstrumentID, bool) {
	s := strings.ToUpper(strings.TrimSpace(args))
	if s == "" || strings.ContainsAny(s, " \t") {
		return "", false
	}
	if !strings.Contains(s, "-") {
		s += "-USDT-SWAP"
	}
	return models.InstrumentID(s), true
}
