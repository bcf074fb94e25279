package notify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"volatility_bot/pkg/logger"
)

// Sink — канал доставки уведомлений.
type Sink interface {
	Name() string
	Notify(ctx context.Context, e Event) error
}

// Notifier — то, что дёргает раннер. Доставка best-effort, ошибок наружу нет.
type Notifier interface {
	Publish(ctx context.Context, e Event)
}

const sinkTimeout = 5 * time.Second

// Fanout рассылает событие по всем синкам последовательно, каждому свой таймаут.
type Fanout struct {
	sinks   []Sink
	onError func(sink string, err error)
}

func NewFanout(onError func(sink string, err error), sinks ...Sink) *Fanout {
	out := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return &Fanout{sinks: out, onError: onError}
}

func (f *Fanout) Publish(ctx context.Context, e Event) {
	for _, s := range f.sinks {
		sctx, cancel := context.WithTimeout(ctx, sinkTimeout)
		err := s.Notify(sctx, e)
		cancel()
		if err == nil {
			continue
		}

		logger.L().Warn("notification failed",
			zap.String("sink", s.Name()),
			zap.String("kind", string(e.Kind)),
			zap.Error(err),
		)
		if f.onError != nil {
			f.onError(s.Name(), err)
		}
	}
}

// Log — синк в лог, работает всегда, даже без телеграма.
type Log struct{}

func NewLog() *Log { return &Log{} }

func (l *Log) Name() string { return "log" }

func (l *Log) Notify(_ context.Context, e Event) error {
	logger.L().Info(Text(e),
		zap.String("kind", string(e.Kind)),
		zap.String("instrument", e.Instrument.String()),
	)
	return nil
}
