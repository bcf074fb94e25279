package runner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/opentracing/opentracing-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"volatility_bot/internal/indicator"
	"volatility_bot/internal/metrics"
	"volatility_bot/internal/models"
	"volatility_bot/internal/notify"
	"volatility_bot/internal/paper"
	"volatility_bot/internal/strategy"
	"volatility_bot/pkg/logger"
	"volatility_bot/pkg/tracing"
)

type Feed interface {
	FetchBars(ctx context.Context, inst models.InstrumentID, timeframe string, count int) (models.BarSeries, error)
}

type Params struct {
	Instruments   []models.InstrumentID
	Timeframe     string
	FetchLimit    int
	CheckInterval time.Duration
	CycleTimeout  time.Duration
}

// outcome — чем закончилась оценка инструмента (тег спана и лог).
type outcome string

const (
	outcomeHalted       outcome = "halted"
	outcomeFetchError   outcome = "fetch_error"
	outcomeInsufficient outcome = "insufficient"
	outcomeHold         outcome = "hold"
	outcomeExit         outcome = "exit"
	outcomeNoSignal     outcome = "no_signal"
	outcomeRejected     outcome = "rejected"
	outcomeOpened       outcome = "opened"
	outcomeInvariant    outcome = "invariant"
	outcomeCanceled     outcome = "canceled"
)

// Runner гоняет цикл оценки по всем инструментам: параллельно между
// инструментами, строго последовательно внутри одного.
type Runner struct {
	p Params

	ind   *indicator.Engine
	gen   *strategy.Generator
	paper *paper.Engine
	feed  Feed
	n     notify.Notifier
	m     *metrics.Metrics

	onCycle func(time.Time)

	// замок на инструмент: цикл N завершается до начала N+1
	instMu map[models.InstrumentID]*sync.Mutex

	mu     sync.Mutex // mem, halted
	mem    map[models.InstrumentID]*models.SignalMemory
	halted map[models.InstrumentID]error
}

type Option func(*Runner)

// WithCycleHook — вызывается после каждого завершённого цикла.
func WithCycleHook(fn func(time.Time)) Option {
	return func(r *Runner) { r.onCycle = fn }
}

func New(
	p Params,
	ind *indicator.Engine,
	gen *strategy.Generator,
	pe *paper.Engine,
	feed Feed,
	n notify.Notifier,
	m *metrics.Metrics,
	opts ...Option,
) *Runner {
	r := &Runner{
		p:      p,
		ind:    ind,
		gen:    gen,
		paper:  pe,
		feed:   feed,
		n:      n,
		m:      m,
		instMu: make(map[models.InstrumentID]*sync.Mutex, len(p.Instruments)),
		mem:    make(map[models.InstrumentID]*models.SignalMemory, len(p.Instruments)),
		halted: make(map[models.InstrumentID]error),
	}
	for _, inst := range p.Instruments {
		r.instMu[inst] = &sync.Mutex{}
		mem := models.NewSignalMemory()
		r.mem[inst] = &mem
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *Runner) Instruments() []models.InstrumentID {
	return append([]models.InstrumentID(nil), r.p.Instruments...)
}

func (r *Runner) Paper() *paper.Engine { return r.paper }

// Run: первый цикл сразу, дальше по тикеру до отмены ctx.
func (r *Runner) Run(ctx context.Context) {
	logger.Info("[RUNNER] ▶️ старт: %d инструментов, tf=%s, интервал %s",
		len(r.p.Instruments), r.p.Timeframe, r.p.CheckInterval)

	t := time.NewTicker(r.p.CheckInterval)
	defer t.Stop()

	for {
		r.RunCycle(ctx)

		select {
		case <-ctx.Done():
			logger.Info("[RUNNER] ⏹ остановлен")
			return
		case <-t.C:
		}
	}
}

// RunCycle — один цикл: fan-out по инструментам, ожидание всех.
func (r *Runner) RunCycle(ctx context.Context) {
	start := time.Now()

	var g errgroup.Group
	for _, inst := range r.p.Instruments {
		g.Go(func() error {
			r.evaluate(ctx, inst)
			return nil
		})
	}
	_ = g.Wait()

	r.m.Cycles.Inc()
	r.m.CycleDuration.Observe(time.Since(start).Seconds())
	r.m.ObserveStats(r.paper.Stats())
	if r.onCycle != nil {
		r.onCycle(time.Now())
	}
}

func (r *Runner) evaluate(ctx context.Context, inst models.InstrumentID) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "runner.evaluate")
	span.SetTag("instrument", inst.String())
	defer span.Finish()

	out := r.evaluateLocked(ctx, inst)
	span.SetTag("outcome", string(out))
}

func (r *Runner) evaluateLocked(ctx context.Context, inst models.InstrumentID) outcome {
	if r.isHalted(inst) {
		return outcomeHalted
	}

	lock := r.instMu[inst]
	lock.Lock()
	defer lock.Unlock()

	ctx, cancel := context.WithTimeout(ctx, r.p.CycleTimeout)
	defer cancel()

	series, err := r.feed.FetchBars(ctx, inst, r.p.Timeframe, r.p.FetchLimit)
	if err != nil {
		r.m.FetchErrors.WithLabelValues(inst.String()).Inc()
		logger.Warn("[RUNNER] %s: feed: %v", inst, err)
		return outcomeFetchError
	}
	if series.Len() < r.ind.MinHistory() {
		logger.Debug("[RUNNER] %s: мало данных %d/%d", inst, series.Len(), r.ind.MinHistory())
		return outcomeInsufficient
	}

	r.mu.Lock()
	mem := r.mem[inst]
	mem.Advance()
	snapshot := *mem
	r.mu.Unlock()

	frames := r.ind.Compute(series)

	var out outcome
	if _, open := r.paper.Position(inst); open {
		out, err = r.manageExit(ctx, inst, series)
	} else {
		out, err = r.tryEntry(ctx, inst, frames, snapshot)
	}
	if err != nil {
		r.halt(inst, err)
		return outcomeInvariant
	}
	return out
}

// manageExit — трейлинг и лестница выходов по живому бару.
func (r *Runner) manageExit(ctx context.Context, inst models.InstrumentID, series models.BarSeries) (outcome, error) {
	last, _ := series.Last()
	res, exited, err := r.paper.CheckExits(inst, paper.Tick{
		Close: last.Close,
		High:  last.High,
		Low:   last.Low,
	})
	if err != nil {
		return "", err
	}
	if !exited {
		return outcomeHold, nil
	}

	r.m.ObserveTrade(res.Trade)
	logger.L().Info("position exit",
		zap.String("instrument", inst.String()),
		zap.String("reason", string(res.Trade.Reason)),
		zap.Bool("full", res.Full),
		zap.Float64("price", res.Trade.ExitPrice),
		zap.Float64("pnl", res.Trade.PnL),
		zap.Float64("balance", res.Balance),
		zap.String("trace_id", tracing.TraceID(opentracing.SpanFromContext(ctx))),
	)
	r.n.Publish(ctx, notify.PositionClosed(res.Trade, res.Balance))
	return outcomeExit, nil
}

func (r *Runner) tryEntry(ctx context.Context, inst models.InstrumentID, frames []models.DerivedFrame, mem models.SignalMemory) (outcome, error) {
	sig, err := r.gen.Evaluate(frames, mem)
	if err != nil {
		return "", err
	}
	side, ok := sig.Side()
	if !ok {
		return outcomeNoSignal, nil
	}
	r.m.Signals.WithLabelValues(string(sig)).Inc()

	// цикл истёк или бот останавливается: сигнал не исполняем и не запоминаем
	if err := ctx.Err(); err != nil {
		logger.Info("[RUNNER] %s: %s пропущен: %v", inst, sig, err)
		return outcomeCanceled, nil
	}

	obs, _ := r.gen.Observation(frames)
	latest, _ := indicator.Latest(frames)

	res, err := r.paper.Open(paper.OpenRequest{
		Instrument: inst,
		Side:       side,
		EntryPrice: obs.Close,
		ATR:        latest.ATR,
	})
	if err != nil {
		return "", err
	}
	if !res.Opened() {
		r.m.Rejections.WithLabelValues(string(res.Rejected)).Inc()
		logger.Info("[RUNNER] %s: %s отклонён: %s (баланс %.4f)", inst, sig, res.Rejected, res.Balance)
		return outcomeRejected, nil
	}

	r.mu.Lock()
	r.mem[inst].Accept(sig)
	r.mu.Unlock()

	pos := res.Position
	logger.L().Info("position opened",
		zap.String("instrument", inst.String()),
		zap.String("side", string(pos.Side)),
		zap.Float64("entry", pos.EntryPrice),
		zap.Float64("sl", pos.StopLoss),
		zap.Float64("tp1", pos.TP1),
		zap.Float64("tp2", pos.TP2),
		zap.Float64("balance", res.Balance),
		zap.String("trace_id", tracing.TraceID(opentracing.SpanFromContext(ctx))),
	)
	r.n.Publish(ctx, notify.EntryOpened(pos, res.Balance))
	return outcomeOpened, nil
}

// halt снимает инструмент с торговли до Resume. Только для нарушений инвариантов.
func (r *Runner) halt(inst models.InstrumentID, err error) {
	r.mu.Lock()
	r.halted[inst] = err
	n := len(r.halted)
	r.mu.Unlock()

	r.m.Halted.Set(float64(n))
	fields := []zap.Field{zap.String("instrument", inst.String()), zap.Error(err)}
	switch {
	case errors.Is(err, strategy.ErrZonesOverlap):
		fields = append(fields, zap.String("kind", "zones_overlap"))
	case errors.Is(err, paper.ErrInvariant):
		fields = append(fields, zap.String("kind", "ledger_invariant"))
	}
	logger.L().Error("instrument halted", fields...)
}

func (r *Runner) isHalted(inst models.InstrumentID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.halted[inst]
	return ok
}

// Resume возвращает инструмент в торговлю. false — он не был остановлен.
func (r *Runner) Resume(inst models.InstrumentID) bool {
	r.mu.Lock()
	_, ok := r.halted[inst]
	delete(r.halted, inst)
	n := len(r.halted)
	r.mu.Unlock()

	if ok {
		r.m.Halted.Set(float64(n))
		logger.Info("[RUNNER] %s снова в работе", inst)
	}
	return ok
}

// Halted — остановленные инструменты с причиной, по алфавиту.
func (r *Runner) Halted() []models.Halt {
	r.mu.Lock()
	out := make([]models.Halt, 0, len(r.halted))
	for inst, err := range r.halted {
		out = append(out, models.Halt{Instrument: inst, Reason: err.Error()})
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Instrument < out[j].Instrument })
	return out
}

// Indicators — свежий срез индикатора по инструменту для /v. Состояние не меняет.
func (r *Runner) Indicators(ctx context.Context, inst models.InstrumentID) (models.DerivedFrame, error) {
	if _, ok := r.instMu[inst]; !ok {
		return models.DerivedFrame{}, fmt.Errorf("instrument %s is not watched", inst)
	}

	ctx, cancel := context.WithTimeout(ctx, r.p.CycleTimeout)
	defer cancel()

	series, err := r.feed.FetchBars(ctx, inst, r.p.Timeframe, r.p.FetchLimit)
	if err != nil {
		return models.DerivedFrame{}, err
	}
	f, ok := indicator.Latest(r.ind.Compute(series))
	if !ok {
		return models.DerivedFrame{}, fmt.Errorf("%s: not enough history (%d bars)", inst, series.Len())
	}
	return f, nil
}
