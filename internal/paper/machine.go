package paper

import (
	"fmt"
	"time"

	"volatility_bot/internal/models"
	"volatility_bot/pkg/id"
)

type OpenRequest struct {
	Instrument models.InstrumentID
	Side       models.Side
	EntryPrice float64
	ATR        float64
	Time       time.Time
}

type OpenResult struct {
	Position models.Position
	Rejected Rejection
	Balance  float64
}

func (r OpenResult) Opened() bool { return r.Rejected == "" }

// ExitResult — итог события выхода. Full=false означает частичное закрытие,
// Position тогда — состояние после него.
type ExitResult struct {
	Trade    models.Trade
	Position models.Position
	Full     bool
	Rejected Rejection
	Balance  float64
}

// Tick — цены текущего бара для проверки лестницы выходов.
type Tick struct {
	Close float64
	High  float64
	Low   float64
	Time  time.Time
}

// Open: списывает margin + fee и создаёт позицию с уровнями.
func (e *Engine) Open(req OpenRequest) (OpenResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.positions[req.Instrument]; ok {
		return OpenResult{Rejected: RejectAlreadyOpen, Balance: e.balance}, nil
	}
	if !validPrice(req.EntryPrice) {
		return OpenResult{}, fmt.Errorf("%w: %s entry price %v", ErrInvariant, req.Instrument, req.EntryPrice)
	}

	fee := Fee(e.p.Margin, e.p.Leverage, e.p.FeeRate)
	sl, tp1, tp2 := e.p.Levels(req.Side, req.EntryPrice, req.ATR)
	pos := models.Position{
		Instrument: req.Instrument,
		Side:       req.Side,
		EntryPrice: req.EntryPrice,
		EntryTime:  e.timeOr(req.Time),
		Size:       e.p.Margin * e.p.Leverage,
		Margin:     e.p.Margin,
		Leverage:   e.p.Leverage,
		EntryFee:   fee,
		StopLoss:   sl,
		TP1:        tp1,
		TP2:        tp2,
		EntryATR:   req.ATR,
	}
	if err := pos.CheckLevels(); err != nil {
		return OpenResult{}, fmt.Errorf("%w: %v", ErrInvariant, err)
	}

	if e.balance < e.p.Margin+fee {
		return OpenResult{Rejected: RejectInsufficientBalance, Balance: e.balance}, nil
	}

	e.balance -= e.p.Margin + fee
	e.fees += fee
	e.positions[req.Instrument] = &pos
	e.changedLocked()

	return OpenResult{Position: clonePosition(&pos), Balance: e.balance}, nil
}

// ApplyPartialExit закрывает половину позиции на tp1: стоп в безубыток,
// затравка high-water. Повторный вызов — отказ partial-taken.
func (e *Engine) ApplyPartialExit(inst models.InstrumentID, price float64, at time.Time) (ExitResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	pos, ok := e.positions[inst]
	if !ok {
		return ExitResult{Rejected: RejectNoPosition, Balance: e.balance}, nil
	}
	if pos.PartialTaken {
		return ExitResult{Rejected: RejectPartialTaken, Position: clonePosition(pos), Balance: e.balance}, nil
	}
	return e.partialLocked(pos, price, e.timeOr(at))
}

// Close — полное закрытие остатка.
func (e *Engine) Close(inst models.InstrumentID, price float64, reason models.ExitReason, at time.Time) (ExitResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	pos, ok := e.positions[inst]
	if !ok {
		return ExitResult{Rejected: RejectNoPosition, Balance: e.balance}, nil
	}
	return e.closeLocked(pos, price, reason, e.timeOr(at))
}

// UpdateTrailingStop подтягивает трейлинг после частичного выхода.
// Возвращает true, если стоп сдвинулся.
func (e *Engine) UpdateTrailingStop(inst models.InstrumentID, price float64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	pos, ok := e.positions[inst]
	if !ok {
		return false
	}
	return trailLocked(pos, price)
}

// CheckExits — трейлинг и лестница выходов одной критической секцией:
// tp2 -> tp1 -> trailing -> sl, срабатывает первое совпадение, исполнение по уровню.
func (e *Engine) CheckExits(inst models.InstrumentID, tick Tick) (ExitResult, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	pos, ok := e.positions[inst]
	if !ok {
		return ExitResult{Rejected: RejectNoPosition, Balance: e.balance}, false, nil
	}
	if !validPrice(tick.High) || !validPrice(tick.Low) || !validPrice(tick.Close) {
		return ExitResult{}, false, fmt.Errorf("%w: %s tick h=%v l=%v c=%v", ErrInvariant, inst, tick.High, tick.Low, tick.Close)
	}

	if trailLocked(pos, tick.Close) {
		// позиция изменилась, снимок нужен даже без выхода
		e.changedLocked()
	}

	at := e.timeOr(tick.Time)
	long := pos.Side == models.SideLong
	reached := func(level float64) bool {
		if long {
			return tick.High >= level
		}
		return tick.Low <= level
	}
	breached := func(stop float64) bool {
		if long {
			return tick.Low <= stop
		}
		return tick.High >= stop
	}

	var (
		res ExitResult
		err error
	)
	switch {
	case reached(pos.TP2):
		res, err = e.closeLocked(pos, pos.TP2, models.ExitTP2, at)
	case !pos.PartialTaken && reached(pos.TP1):
		res, err = e.partialLocked(pos, pos.TP1, at)
	case pos.TrailingStop != nil && breached(*pos.TrailingStop):
		res, err = e.closeLocked(pos, *pos.TrailingStop, models.ExitTrailingSL, at)
	case breached(pos.StopLoss):
		res, err = e.closeLocked(pos, pos.StopLoss, models.ExitStopLoss, at)
	default:
		return ExitResult{Position: clonePosition(pos), Balance: e.balance}, false, nil
	}
	if err != nil {
		return ExitResult{}, false, err
	}
	return res, true, nil
}

func (e *Engine) partialLocked(pos *models.Position, price float64, at time.Time) (ExitResult, error) {
	closing := pos.Margin * partialFraction
	trade, err := e.settleLocked(pos, closing, price, models.ExitTP1, at)
	if err != nil {
		return ExitResult{}, err
	}
	trade.Partial = true
	trade.Fees += pos.EntryFee

	pos.Margin -= closing
	pos.Size = pos.Margin * pos.Leverage
	pos.PartialTaken = true
	pos.StopLoss = pos.EntryPrice
	hw := pos.EntryPrice
	if pos.Side == models.SideLong {
		hw = price
	}
	pos.HighWater = &hw

	e.history = append(e.history, trade)
	e.changedLocked()
	return ExitResult{Trade: trade, Position: clonePosition(pos), Balance: e.balance}, nil
}

func (e *Engine) closeLocked(pos *models.Position, price float64, reason models.ExitReason, at time.Time) (ExitResult, error) {
	trade, err := e.settleLocked(pos, pos.Margin, price, reason, at)
	if err != nil {
		return ExitResult{}, err
	}
	if !pos.PartialTaken {
		trade.Fees += pos.EntryFee
	}

	closed := clonePosition(pos)
	delete(e.positions, pos.Instrument)
	e.history = append(e.history, trade)
	e.changedLocked()
	return ExitResult{Trade: trade, Position: closed, Full: true, Balance: e.balance}, nil
}

// settleLocked проводит деньги по закрываемой марже и собирает Trade (без entry fee).
func (e *Engine) settleLocked(pos *models.Position, closing, price float64, reason models.ExitReason, at time.Time) (models.Trade, error) {
	if !validPrice(price) {
		return models.Trade{}, fmt.Errorf("%w: %s exit price %v", ErrInvariant, pos.Instrument, price)
	}
	if closing <= 0 {
		return models.Trade{}, fmt.Errorf("%w: %s closing margin %.8f", ErrInvariant, pos.Instrument, closing)
	}

	exitFee := Fee(closing, pos.Leverage, e.p.FeeRate)
	pnl := PnL(pos.Side, pos.EntryPrice, price, closing, pos.Leverage)

	e.balance += closing + pnl - exitFee
	e.fees += exitFee

	return models.Trade{
		ID:         id.NewAt(at),
		Instrument: pos.Instrument,
		Side:       pos.Side,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  price,
		EntryTime:  pos.EntryTime,
		ExitTime:   at,
		Margin:     closing,
		PnL:        pnl,
		PnLPercent: PriceChangePct(pos.Side, pos.EntryPrice, price) * pos.Leverage,
		Reason:     reason,
		Fees:       exitFee,
	}, nil
}

// trailLocked: лонг — новый максимум close двигает high-water и стоп = hw - ATR входа,
// шорт зеркально. Стоп только подтягивается.
func trailLocked(pos *models.Position, price float64) bool {
	if !pos.PartialTaken || pos.HighWater == nil {
		return false
	}

	hw := *pos.HighWater
	switch pos.Side {
	case models.SideLong:
		if price <= hw {
			return false
		}
		stop := price - pos.EntryATR
		pos.HighWater = &price
		if pos.TrailingStop == nil || stop > *pos.TrailingStop {
			pos.TrailingStop = &stop
		}
	case models.SideShort:
		if price >= hw {
			return false
		}
		stop := price + pos.EntryATR
		pos.HighWater = &price
		if pos.TrailingStop == nil || stop < *pos.TrailingStop {
			pos.TrailingStop = &stop
		}
	default:
		return false
	}
	return true
}

func (e *Engine) timeOr(t time.Time) time.Time {
	if t.IsZero() {
		return e.now()
	}
	return t
}
