package paper

import (
	"math"
	"sort"
	"sync"
	"time"

	"volatility_bot/internal/models"
)

// Engine — бумажный счёт: баланс, открытые позиции и история сделок под одним
// мьютексом. Все изменения идут только через методы Engine.
type Engine struct {
	p   Params
	now func() time.Time

	mu        sync.Mutex
	balance   float64
	fees      float64
	positions map[models.InstrumentID]*models.Position
	history   []models.Trade
	seq       uint64

	// вызывается под мьютексом после каждой мутации, блокироваться не должен
	onChange func(models.Snapshot)
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithSnapshotHook — куда отдавать снимок после каждой мутации (очередь сохранения).
func WithSnapshotHook(fn func(models.Snapshot)) Option {
	return func(e *Engine) { e.onChange = fn }
}

func NewEngine(p Params, opts ...Option) *Engine {
	e := &Engine{
		p:         p,
		now:       time.Now,
		balance:   p.InitialBalance,
		positions: make(map[models.InstrumentID]*models.Position),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *Engine) Params() Params { return e.p }

func (e *Engine) Balance() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.balance
}

// Position — копия открытой позиции.
func (e *Engine) Position(inst models.InstrumentID) (models.Position, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	pos, ok := e.positions[inst]
	if !ok {
		return models.Position{}, false
	}
	return clonePosition(pos), true
}

// Positions — открытые позиции, отсортированные по инструменту.
func (e *Engine) Positions() []models.Position {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.positionsLocked()
}

func (e *Engine) History() []models.Trade {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]models.Trade(nil), e.history...)
}

// Stats — чистое чтение для /status.
func (e *Engine) Stats() models.Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := models.Stats{
		Balance:       e.balance,
		TotalTrades:   len(e.history),
		TotalFees:     e.fees,
		OpenPositions: len(e.positions),
	}
	for _, t := range e.history {
		st.TotalPnL += t.PnL
		switch {
		case t.PnL > 0:
			st.WinningTrades++
		case t.PnL < 0:
			st.LosingTrades++
		}
	}
	if st.TotalTrades > 0 {
		st.WinRate = float64(st.WinningTrades) / float64(st.TotalTrades) * 100
	}
	return st
}

func (e *Engine) Snapshot() models.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Released — позиция из снимка, которую не стали поднимать: её маржа
// вернулась на баланс.
type Released struct {
	Instrument models.InstrumentID
	Margin     float64
}

// Restore поднимает баланс, комиссии и историю из снимка. Открытые позиции
// поднимаются только при withPositions, иначе их оставшаяся маржа
// возвращается на баланс. Входная комиссия уже списана и остаётся в fees.
func (e *Engine) Restore(s models.Snapshot, withPositions bool) []Released {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.balance = s.Balance
	e.fees = s.CumulativeFees
	e.seq = s.Seq
	e.history = append([]models.Trade(nil), s.TradeHistory...)
	e.positions = make(map[models.InstrumentID]*models.Position, len(s.OpenPositions))

	var released []Released
	for inst, pos := range s.OpenPositions {
		if withPositions && pos.Side.Valid() && pos.Margin > 0 && validPrice(pos.EntryPrice) {
			p := clonePosition(&pos)
			p.Instrument = inst
			e.positions[inst] = &p
			continue
		}
		margin := math.Max(pos.Margin, 0)
		e.balance += margin
		released = append(released, Released{Instrument: inst, Margin: margin})
	}
	sort.Slice(released, func(i, j int) bool { return released[i].Instrument < released[j].Instrument })

	if len(released) > 0 {
		e.changedLocked()
	}
	return released
}

func (e *Engine) positionsLocked() []models.Position {
	out := make([]models.Position, 0, len(e.positions))
	for _, p := range e.positions {
		out = append(out, clonePosition(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Instrument < out[j].Instrument })
	return out
}

func (e *Engine) snapshotLocked() models.Snapshot {
	open := make(map[models.InstrumentID]models.Position, len(e.positions))
	for inst, p := range e.positions {
		open[inst] = clonePosition(p)
	}
	return models.Snapshot{
		Seq:            e.seq,
		Balance:        e.balance,
		CumulativeFees: e.fees,
		OpenPositions:  open,
		TradeHistory:   append([]models.Trade(nil), e.history...),
		SavedAt:        e.now(),
	}
}

// changedLocked — после каждой мутации бухгалтерии.
func (e *Engine) changedLocked() {
	e.seq++
	if e.onChange != nil {
		e.onChange(e.snapshotLocked())
	}
}

func clonePosition(p *models.Position) models.Position {
	c := *p
	if p.TrailingStop != nil {
		v := *p.TrailingStop
		c.TrailingStop = &v
	}
	if p.HighWater != nil {
		v := *p.HighWater
		c.HighWater = &v
	}
	return c
}
