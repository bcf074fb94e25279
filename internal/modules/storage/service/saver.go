package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"volatility_bot/internal/models"
	"volatility_bot/pkg/logger"
)

const saveTimeout = 10 * time.Second

// Saver — единственный писатель в Store. Submit не блокирует: держим только
// самый свежий снимок, устаревшие (меньший Seq) отбрасываются.
type Saver struct {
	store   Store
	onError func(error)

	mu      sync.Mutex
	pending *models.Snapshot

	writeMu   sync.Mutex
	lastSaved uint64

	wake chan struct{}
	done chan struct{}
}

func NewSaver(store Store, onError func(error)) *Saver {
	return &Saver{
		store:   store,
		onError: onError,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

// Submit вызывается под мьютексом бухгалтерии, поэтому только кладёт и будит.
func (s *Saver) Submit(snap models.Snapshot) {
	s.mu.Lock()
	if s.pending == nil || snap.Seq > s.pending.Seq {
		s.pending = &snap
	}
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Run крутится до отмены ctx, затем дописывает последний снимок.
func (s *Saver) Run(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			fctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
			s.Flush(fctx)
			cancel()
			return
		case <-s.wake:
			s.Flush(ctx)
		}
	}
}

// Done закрывается после финальной записи.
func (s *Saver) Done() <-chan struct{} { return s.done }

// Flush синхронно пишет отложенный снимок, если он новее сохранённого.
func (s *Saver) Flush(ctx context.Context) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	snap := s.pending
	s.pending = nil
	s.mu.Unlock()

	if snap == nil || (s.lastSaved != 0 && snap.Seq <= s.lastSaved) {
		return
	}

	sctx, cancel := context.WithTimeout(ctx, saveTimeout)
	defer cancel()
	if err := s.store.Save(sctx, *snap); err != nil {
		logger.L().Error("snapshot save failed", zap.Uint64("seq", snap.Seq), zap.Error(err))
		if s.onError != nil {
			s.onError(err)
		}
		// вернём обратно, если за это время не пришёл более свежий
		s.mu.Lock()
		if s.pending == nil {
			s.pending = snap
		}
		s.mu.Unlock()
		return
	}
	s.lastSaved = snap.Seq
}
