package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"

	"volatility_bot/internal/models"
)

// Metrics — счётчики бота на собственном реестре (без глобального состояния,
// несколько экземпляров в тестах не конфликтуют).
type Metrics struct {
	reg *prometheus.Registry

	Cycles        prometheus.Counter
	CycleDuration prometheus.Histogram
	FetchErrors   *prometheus.CounterVec // instrument
	Signals       *prometheus.CounterVec // side
	Rejections    *prometheus.CounterVec // reason
	Trades        *prometheus.CounterVec // reason, side
	Balance       prometheus.Gauge
	FeesTotal     prometheus.Gauge
	OpenPositions prometheus.Gauge
	Halted        prometheus.Gauge
	NotifyErrors  *prometheus.CounterVec // sink
	StoreErrors   prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		Cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bot_cycles_total",
			Help: "Evaluation cycles completed",
		}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bot_cycle_duration_seconds",
			Help:    "Wall time of one fan-out evaluation cycle",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		FetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bot_fetch_errors_total",
			Help: "Market data fetch failures",
		}, []string{"instrument"}),
		Signals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bot_signals_total",
			Help: "Accepted entry signals",
		}, []string{"side"}),
		Rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bot_rejections_total",
			Help: "Business rejections from the paper engine",
		}, []string{"reason"}),
		Trades: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bot_trades_total",
			Help: "Closed trades (partial and full)",
		}, []string{"reason", "side"}),
		Balance: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bot_balance",
			Help: "Paper account balance",
		}),
		FeesTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bot_fees_total",
			Help: "Cumulative fees paid",
		}),
		OpenPositions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bot_open_positions",
			Help: "Currently open positions",
		}),
		Halted: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bot_halted_instruments",
			Help: "Instruments halted after an invariant violation",
		}),
		NotifyErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bot_notify_errors_total",
			Help: "Failed notification deliveries",
		}, []string{"sink"}),
		StoreErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bot_store_errors_total",
			Help: "Failed snapshot saves",
		}),
	}

	m.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Cycles, m.CycleDuration, m.FetchErrors, m.Signals, m.Rejections, m.Trades,
		m.Balance, m.FeesTotal, m.OpenPositions, m.Halted, m.NotifyErrors, m.StoreErrors,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// ObserveStats выставляет гейджи по текущему состоянию счёта.
func (m *Metrics) ObserveStats(st models.Stats) {
	m.Balance.Set(st.Balance)
	m.FeesTotal.Set(st.TotalFees)
	m.OpenPositions.Set(float64(st.OpenPositions))
}

func (m *Metrics) ObserveTrade(t models.Trade) {
	m.Trades.WithLabelValues(string(t.Reason), string(t.Side)).Inc()
}

func Module() fx.Option {
	return fx.Module("metrics",
		fx.Provide(New),
	)
}
