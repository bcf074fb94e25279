package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volatility_bot/internal/models"
)

var at = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func sampleSnapshot(seq uint64) models.Snapshot {
	hw := 100.1
	return models.Snapshot{
		Seq:            seq,
		Balance:        97.4875,
		CumulativeFees: 0.0375,
		OpenPositions: map[models.InstrumentID]models.Position{
			"BTC-USDT-SWAP": {
				Instrument: "BTC-USDT-SWAP", Side: models.SideLong, EntryPrice: 100, EntryTime: at,
				Size: 25, Margin: 2.5, Leverage: 10, EntryFee: 0.025,
				StopLoss: 100, TP1: 100.1, TP2: 100.15, PartialTaken: true, HighWater: &hw, EntryATR: 1,
			},
		},
		TradeHistory: []models.Trade{{
			ID: "01HNZX0000000000000000000A", Instrument: "BTC-USDT-SWAP", Side: models.SideLong,
			EntryPrice: 100, ExitPrice: 100.1, EntryTime: at, ExitTime: at.Add(time.Minute),
			Margin: 2.5, PnL: 0.025, PnLPercent: 1, Reason: models.ExitTP1, Fees: 0.0375, Partial: true,
		}},
		SavedAt: at,
	}
}

func assertSnapshot(t *testing.T, want, got models.Snapshot) {
	t.Helper()

	assert.Equal(t, want.Seq, got.Seq)
	assert.InDelta(t, want.Balance, got.Balance, 1e-12)
	require.Len(t, got.OpenPositions, 1)
	pos := got.OpenPositions["BTC-USDT-SWAP"]
	assert.True(t, pos.PartialTaken)
	require.NotNil(t, pos.HighWater)
	assert.InDelta(t, 100.1, *pos.HighWater, 1e-12)
	assert.Nil(t, pos.TrailingStop)
	require.Len(t, got.TradeHistory, 1)
	assert.Equal(t, models.ExitTP1, got.TradeHistory[0].Reason)
	assert.True(t, got.TradeHistory[0].ExitTime.Equal(want.TradeHistory[0].ExitTime))
}

func TestFileStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := NewFile(filepath.Join(t.TempDir(), "state", "trading_state.json"))

	_, err := f.Load(ctx)
	require.ErrorIs(t, err, ErrNoSnapshot)

	want := sampleSnapshot(3)
	require.NoError(t, f.Save(ctx, want))

	got, err := f.Load(ctx)
	require.NoError(t, err)
	assertSnapshot(t, want, got)
}

func TestSQLiteStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "bot.db"))
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Load(ctx)
	require.ErrorIs(t, err, ErrNoSnapshot)

	want := sampleSnapshot(5)
	require.NoError(t, s.Save(ctx, want))
	require.NoError(t, s.Save(ctx, want))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assertSnapshot(t, want, got)

	n, err := s.TradeCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

type memStore struct {
	mu    sync.Mutex
	saved []uint64
	fail  bool
}

func (m *memStore) Load(context.Context) (models.Snapshot, error) { return models.Snapshot{}, ErrNoSnapshot }
func (m *memStore) Close() error                                  { return nil }

func (m *memStore) Save(_ context.Context, s models.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("disk full")
	}
	m.saved = append(m.saved, s.Seq)
	return nil
}

func (m *memStore) seqs() []uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]uint64(nil), m.saved...)
}

func TestSaverDropsStaleSnapshots(t *testing.T) {
	t.Parallel()

	store := &memStore{}
	s := NewSaver(store, nil)

	s.Submit(sampleSnapshot(2))
	s.Submit(sampleSnapshot(4))
	s.Submit(sampleSnapshot(3))
	s.Flush(context.Background())
	assert.Equal(t, []uint64{4}, store.seqs())

	s.Submit(sampleSnapshot(4))
	s.Flush(context.Background())
	assert.Equal(t, []uint64{4}, store.seqs())
}

func TestSaverRetriesAfterFailure(t *testing.T) {
	t.Parallel()

	store := &memStore{fail: true}
	var errs int
	s := NewSaver(store, func(error) { errs++ })

	s.Submit(sampleSnapshot(1))
	s.Flush(context.Background())
	assert.Equal(t, 1, errs)
	assert.Empty(t, store.seqs())

	store.mu.Lock()
	store.fail = false
	store.mu.Unlock()

	s.Flush(context.Background())
	assert.Equal(t, []uint64{1}, store.seqs())
}

func TestSaverRunFlushesOnShutdown(t *testing.T) {
	t.Parallel()

	store := &memStore{}
	s := NewSaver(store, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)

	s.Submit(sampleSnapshot(1))
	require.Eventually(t, func() bool { return len(store.seqs()) == 1 }, time.Second, 5*time.Millisecond)

	s.Submit(sampleSnapshot(2))
	cancel()
	<-s.Done()
	assert.Equal(t, uint64(2), store.seqs()[len(store.seqs())-1])
}
