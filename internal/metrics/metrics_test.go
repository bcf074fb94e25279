package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volatility_bot/internal/models"
)

func TestObserve(t *testing.T) {
	t.Parallel()

	m := New()
	m.ObserveStats(models.Stats{Balance: 97.5, TotalFees: 0.05, OpenPositions: 2})
	m.ObserveTrade(models.Trade{Reason: models.ExitTP1, Side: models.SideLong})
	m.ObserveTrade(models.Trade{Reason: models.ExitTP1, Side: models.SideLong})

	assert.Equal(t, 97.5, testutil.ToFloat64(m.Balance))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.OpenPositions))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Trades.WithLabelValues("tp1", "long")))
}

func TestHandlerServesOwnRegistry(t *testing.T) {
	t.Parallel()

	a, b := New(), New()
	a.Cycles.Inc()

	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "bot_cycles_total 1")

	assert.Equal(t, 0.0, testutil.ToFloat64(b.Cycles))
}
