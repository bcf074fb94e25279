package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"volatility_bot/internal/models"
	"volatility_bot/internal/notify"
	"volatility_bot/pkg/logger"
)

// botAPI — то, что нужно от *tgbot.BotAPI.
type botAPI interface {
	Send(c tgbot.Chattable) (tgbot.Message, error)
	GetUpdatesChan(config tgbot.UpdateConfig) tgbot.UpdatesChannel
	StopReceivingUpdates()
}

// Ledger — чтение состояния счёта для /status и /positions.
type Ledger interface {
	Stats() models.Stats
	Positions() []models.Position
}

// Controller — команды, которые трогают раннер.
type Controller interface {
	Indicators(ctx context.Context, inst models.InstrumentID) (models.DerivedFrame, error)
	Resume(inst models.InstrumentID) bool
}

// Telegram — синк уведомлений и обработчик команд в одном чате.
type Telegram struct {
	bot    botAPI
	chatID int64

	mu     sync.Mutex
	ledger Ledger
	ctl    Controller

	started atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewTelegram(token string, chatID int64) (*Telegram, error) {
	b, err := tgbot.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return newTelegram(b, chatID), nil
}

func newTelegram(b botAPI, chatID int64) *Telegram {
	return &Telegram{bot: b, chatID: chatID, done: make(chan struct{})}
}

// Attach подключает источники для команд. До него команды отвечают «не готов».
func (t *Telegram) Attach(l Ledger, c Controller) {
	t.mu.Lock()
	t.ledger, t.ctl = l, c
	t.mu.Unlock()
}

func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) Notify(_ context.Context, e notify.Event) error {
	_, err := t.Send(t.chatID, notify.Text(e))
	return err
}

func (t *Telegram) Send(chatID int64, msg string) (tgbot.Message, error) {
	return t.bot.Send(tgbot.NewMessage(chatID, msg))
}

func (t *Telegram) SendF(chatID int64, format string, args ...any) (tgbot.Message, error) {
	return t.Send(chatID, fmt.Sprintf(format, args...))
}

// Start — long polling до Stop или отмены ctx. Повторный вызов ничего не делает.
func (t *Telegram) Start(ctx context.Context) {
	if !t.started.CompareAndSwap(false, true) {
		return
	}
	ctx, t.cancel = context.WithCancel(ctx)

	u := tgbot.NewUpdate(0)
	u.Timeout = 30
	updates := t.bot.GetUpdatesChan(u)

	go func() {
		defer close(t.done)
		for {
			select {
			case <-ctx.Done():
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				t.handleUpdate(ctx, update)
			}
		}
	}()
	logger.Info("[TG] polling started, chat=%d", t.chatID)
}

func (t *Telegram) Stop() {
	if !t.started.Load() {
		return
	}
	t.cancel()
	t.bot.StopReceivingUpdates()
	<-t.done
}
