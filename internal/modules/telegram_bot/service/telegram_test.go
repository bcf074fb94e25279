package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volatility_bot/internal/models"
	"volatility_bot/internal/notify"
)

type fakeBot struct {
	mu      sync.Mutex
	sent    []tgbot.MessageConfig
	updates chan tgbot.Update
}

func newFakeBot() *fakeBot { return &fakeBot{updates: make(chan tgbot.Update, 8)} }

func (b *fakeBot) Send(c tgbot.Chattable) (tgbot.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if m, ok := c.(tgbot.MessageConfig); ok {
		b.sent = append(b.sent, m)
	}
	return tgbot.Message{}, nil
}

func (b *fakeBot) GetUpdatesChan(tgbot.UpdateConfig) tgbot.UpdatesChannel { return b.updates }

func (b *fakeBot) StopReceivingUpdates() {}

func (b *fakeBot) messages() []tgbot.MessageConfig {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]tgbot.MessageConfig(nil), b.sent...)
}

type fakeLedger struct{}

func (fakeLedger) Stats() models.Stats {
	return models.Stats{Balance: 101.25, TotalTrades: 4, WinningTrades: 3, LosingTrades: 1, WinRate: 75, OpenPositions: 1}
}

func (fakeLedger) Positions() []models.Position {
	ts := 100.4
	return []models.Position{{
		Instrument: "BTC-USDT-SWAP", Side: models.SideLong, EntryPrice: 100, Margin: 2.5,
		StopLoss: 99.92, TP1: 100.1, TP2: 100.15, PartialTaken: true, TrailingStop: &ts,
	}}
}

type fakeController struct {
	resumed []models.InstrumentID
}

func (c *fakeController) Indicators(_ context.Context, inst models.InstrumentID) (models.DerivedFrame, error) {
	if inst != "BTC-USDT-SWAP" {
		return models.DerivedFrame{}, errors.New("instrument " + inst.String() + " is not watched")
	}
	return models.DerivedFrame{Close: 100, ADX: 23.456, BottomZone: models.Zone{Bottom: 95, Top: 97}}, nil
}

func (c *fakeController) Resume(inst models.InstrumentID) bool {
	c.resumed = append(c.resumed, inst)
	return inst == "BTC-USDT-SWAP"
}

func TestParseInstrument(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want models.InstrumentID
		ok   bool
	}{
		{"btc", "BTC-USDT-SWAP", true},
		{" eth-usdt-swap ", "ETH-USDT-SWAP", true},
		{"", "", false},
		{"btc eth", "", false},
	}
	for _, c := range cases {
		got, ok := parseInstrument(c.in)
		assert.Equal(t, c.ok, ok, c.in)
		assert.Equal(t, c.want, got, c.in)
	}
}

func TestCommands(t *testing.T) {
	t.Parallel()

	tg := newTelegram(newFakeBot(), 42)
	ctx := context.Background()

	assert.Contains(t, tg.command(ctx, "status", ""), "запускается")

	ctl := &fakeController{}
	tg.Attach(fakeLedger{}, ctl)

	status := tg.command(ctx, "status", "")
	assert.Contains(t, status, "$101.25")
	assert.Contains(t, status, "BTC-USDT-SWAP [LONG]")

	pos := tg.command(ctx, "positions", "")
	assert.Contains(t, pos, "trail=100.400000")
	assert.Contains(t, pos, "½")

	v := tg.command(ctx, "v", "btc")
	assert.Contains(t, v, "ADX: 23.46")
	assert.Contains(t, v, "Зона покупки: 95.000000 … 97.000000")
	assert.Contains(t, tg.command(ctx, "v", "doge"), "not watched")
	assert.Contains(t, tg.command(ctx, "v", ""), "Использование")

	assert.Contains(t, tg.command(ctx, "resume", "BTC"), "снова торгуется")
	assert.Contains(t, tg.command(ctx, "resume", "ETH"), "не был остановлен")
	assert.Equal(t, []models.InstrumentID{"BTC-USDT-SWAP", "ETH-USDT-SWAP"}, ctl.resumed)

	assert.Empty(t, tg.command(ctx, "unknown", ""))
	assert.Contains(t, tg.command(ctx, "help", ""), "/resume")
}

func TestNotifySendsToConfiguredChat(t *testing.T) {
	t.Parallel()

	bot := newFakeBot()
	tg := newTelegram(bot, 42)

	require.NoError(t, tg.Notify(context.Background(), notify.BotStarted("timeframe: 1m", time.Now())))

	msgs := bot.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, int64(42), msgs[0].ChatID)
	assert.Contains(t, msgs[0].Text, "timeframe: 1m")
}

func TestPollingIgnoresForeignChats(t *testing.T) {
	t.Parallel()

	bot := newFakeBot()
	tg := newTelegram(bot, 42)
	tg.Attach(fakeLedger{}, &fakeController{})

	command := func(chatID int64, text string) tgbot.Update {
		return tgbot.Update{Message: &tgbot.Message{
			Chat:     &tgbot.Chat{ID: chatID},
			Text:     text,
			Entities: []tgbot.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(text)}},
		}}
	}

	tg.Start(context.Background())
	bot.updates <- command(7, "/status")
	bot.updates <- command(42, "/positions")

	require.Eventually(t, func() bool { return len(bot.messages()) == 1 }, time.Second, 10*time.Millisecond)
	tg.Stop()

	msgs := bot.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, int64(42), msgs[0].ChatID)
	assert.Contains(t, msgs[0].Text, "Открытые позиции")
}
