package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volatility_bot/internal/models"
)

var t0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

type fakeRest struct {
	calls atomic.Int32
	fail  map[models.InstrumentID]bool
	n     int
}

func (f *fakeRest) FetchBars(_ context.Context, inst models.InstrumentID, tf string, count int) (models.BarSeries, error) {
	f.calls.Add(1)
	if f.fail[inst] {
		return models.BarSeries{}, errors.New("boom")
	}
	bars := make([]models.Bar, f.n)
	for i := range bars {
		p := float64(100 + i)
		bars[i] = models.Bar{Time: t0.Add(time.Duration(i) * time.Minute), Open: p, High: p, Low: p, Close: p}
	}
	return models.NewBarSeries(inst, tf, bars)
}

func TestCachedFeedApply(t *testing.T) {
	rest := &fakeRest{n: 5}
	f := NewCachedFeed(rest, "1m", 5)
	require.NoError(t, f.Warmup(context.Background(), []models.InstrumentID{"A"}))

	// обновление формирующейся свечи
	f.Apply(Candle{Instrument: "A", Bar: models.Bar{Time: t0.Add(4 * time.Minute), Close: 200}})
	// новая свеча, буфер режется до capacity
	f.Apply(Candle{Instrument: "A", Bar: models.Bar{Time: t0.Add(5 * time.Minute), Close: 300}})
	// старая, игнор
	f.Apply(Candle{Instrument: "A", Bar: models.Bar{Time: t0, Close: 1}})
	// без прогрева не заводим
	f.Apply(Candle{Instrument: "B", Bar: models.Bar{Time: t0, Close: 1}})

	s, err := f.FetchBars(context.Background(), "A", "1m", 5)
	require.NoError(t, err)
	require.Equal(t, 5, s.Len())
	assert.Equal(t, 101.0, s.Bars[0].Close)
	assert.Equal(t, 200.0, s.Bars[3].Close)
	assert.Equal(t, 300.0, s.Bars[4].Close)
	assert.Equal(t, int32(1), rest.calls.Load())
}

func TestCachedFeedFallsBackToRest(t *testing.T) {
	rest := &fakeRest{n: 3}
	f := NewCachedFeed(rest, "1m", 10)

	s, err := f.FetchBars(context.Background(), "A", "1m", 10)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())

	// буфер короче запрошенного — снова REST
	_, err = f.FetchBars(context.Background(), "A", "1m", 10)
	require.NoError(t, err)
	assert.Equal(t, int32(2), rest.calls.Load())
}

func TestCachedFeedCopiesTail(t *testing.T) {
	f := NewCachedFeed(&fakeRest{n: 3}, "1m", 3)
	require.NoError(t, f.Warmup(context.Background(), []models.InstrumentID{"A"}))

	s, err := f.FetchBars(context.Background(), "A", "1m", 3)
	require.NoError(t, err)
	s.Bars[0].Close = -1

	again, err := f.FetchBars(context.Background(), "A", "1m", 3)
	require.NoError(t, err)
	assert.Equal(t, 100.0, again.Bars[0].Close)
}

func TestWarmupKeepsGoingOnError(t *testing.T) {
	rest := &fakeRest{n: 3, fail: map[models.InstrumentID]bool{"BAD": true}}
	f := NewCachedFeed(rest, "1m", 3)

	err := f.Warmup(context.Background(), []models.InstrumentID{"A", "BAD", "C"})
	require.ErrorContains(t, err, "warmup BAD")

	for _, inst := range []models.InstrumentID{"A", "C"} {
		s, err := f.FetchBars(context.Background(), inst, "1m", 3)
		require.NoError(t, err)
		assert.Equal(t, 3, s.Len())
	}
	assert.Equal(t, int32(3), rest.calls.Load())
}

func TestRunStopsOnClosedChannel(t *testing.T) {
	f := NewCachedFeed(&fakeRest{n: 1}, "1m", 3)
	require.NoError(t, f.Warmup(context.Background(), []models.InstrumentID{"A"}))

	ch := make(chan Candle, 1)
	ch <- Candle{Instrument: "A", Bar: models.Bar{Time: t0.Add(time.Minute), Close: 7}}
	close(ch)
	f.Run(context.Background(), ch)

	s, err := f.FetchBars(context.Background(), "A", "1m", 2)
	require.NoError(t, err)
	assert.Equal(t, 7.0, s.Bars[1].Close)
}
