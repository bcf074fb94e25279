package service

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"volatility_bot/internal/models"
	"volatility_bot/pkg/logger"
)

// warmupParallel — сколько инструментов греем одновременно, чтобы не словить rate limit OKX.
const warmupParallel = 8

type barFetcher interface {
	FetchBars(ctx context.Context, inst models.InstrumentID, timeframe string, count int) (models.BarSeries, error)
}

// CachedFeed держит буфер свечей на инструмент: REST-прогрев, дальше апдейты из WS.
// Последняя свеча в буфере может быть формирующейся, её перезаписывают апдейты с тем же ts.
type CachedFeed struct {
	rest      barFetcher
	timeframe string
	capacity  int

	mu     sync.RWMutex
	series map[models.InstrumentID]*models.BarSeries
}

func NewCachedFeed(rest barFetcher, timeframe string, capacity int) *CachedFeed {
	return &CachedFeed{
		rest:      rest,
		timeframe: timeframe,
		capacity:  capacity,
		series:    make(map[models.InstrumentID]*models.BarSeries),
	}
}

// Warmup подтягивает историю по REST. Ошибка по одному инструменту не мешает остальным,
// возвращается первая.
func (f *CachedFeed) Warmup(ctx context.Context, insts []models.InstrumentID) error {
	var (
		mu       sync.Mutex
		firstErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(warmupParallel)
	for _, inst := range insts {
		g.Go(func() error {
			s, err := f.rest.FetchBars(gctx, inst, f.timeframe, f.capacity)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("warmup %s: %w", inst, err)
				}
				mu.Unlock()
				return nil
			}
			f.store(s)
			return nil
		})
	}
	_ = g.Wait()

	logger.Info("[FEED] warmup done: %d instruments, tf=%s", len(insts), f.timeframe)
	return firstErr
}

// Run применяет свечи из стрима до закрытия канала.
func (f *CachedFeed) Run(ctx context.Context, candles <-chan Candle) {
	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-candles:
			if !ok {
				return
			}
			f.Apply(c)
		}
	}
}

// Apply: тот же ts — обновление формирующейся свечи, более поздний — новая свеча.
// Свечи старше последней игнорируются.
func (f *CachedFeed) Apply(c Candle) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.series[c.Instrument]
	if !ok {
		// без прогрева буфер не заводим: серия с дыркой испортит индикаторы
		return
	}

	n := len(s.Bars)
	switch {
	case n > 0 && s.Bars[n-1].Time.Equal(c.Bar.Time):
		s.Bars[n-1] = c.Bar
	case n == 0 || c.Bar.Time.After(s.Bars[n-1].Time):
		s.Bars = append(s.Bars, c.Bar)
		if f.capacity > 0 && len(s.Bars) > f.capacity {
			s.Bars = append(s.Bars[:0:0], s.Bars[len(s.Bars)-f.capacity:]...)
		}
	}
}

// FetchBars отдаёт копию хвоста буфера; если буфер короче count — идёт в REST.
func (f *CachedFeed) FetchBars(ctx context.Context, inst models.InstrumentID, timeframe string, count int) (models.BarSeries, error) {
	if timeframe == f.timeframe {
		f.mu.RLock()
		s, ok := f.series[inst]
		if ok && s.Len() >= count {
			out := s.Tail(count)
			f.mu.RUnlock()
			return out, nil
		}
		f.mu.RUnlock()
	}

	s, err := f.rest.FetchBars(ctx, inst, timeframe, count)
	if err != nil {
		return models.BarSeries{}, err
	}
	if timeframe == f.timeframe {
		f.store(s)
	}
	return s, nil
}

func (f *CachedFeed) store(s models.BarSeries) {
	cp := s.Tail(s.Len())

	f.mu.Lock()
	f.series[s.Instrument] = &cp
	f.mu.Unlock()
}

// Feed — источник свечей для цикла.
type Feed interface {
	FetchBars(ctx context.Context, inst models.InstrumentID, timeframe string, count int) (models.BarSeries, error)
}
