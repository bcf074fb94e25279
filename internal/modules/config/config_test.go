package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volatility_bot/internal/models"
	"volatility_bot/internal/paper"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "values.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "service:\n  admin_port: 9090\n"))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Service.AdminPort)
	assert.Equal(t, "volatility_bot", cfg.Service.Name)
	assert.Equal(t, 4*time.Second, cfg.Runner.CheckInterval)
	assert.Equal(t, 200, cfg.Market.FetchLimit)
	assert.Equal(t, 15, cfg.Indicator.BandLength)
	assert.Equal(t, 0.8, cfg.Indicator.ADXInfluence)
	assert.Equal(t, 20, cfg.Signal.CooldownBars)
	assert.True(t, cfg.Signal.AntiRepaint)
	assert.Equal(t, paper.LevelsPercent, cfg.Paper.LevelMode)
	assert.Equal(t, 0.0005, cfg.Paper.FeeRate)
	assert.Equal(t, "file", cfg.Storage.Driver)
	assert.Len(t, cfg.InstrumentIDs(), len(DefaultInstruments))
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "token-from-env")
	t.Setenv("TELEGRAM_CHAT_ID", "42")
	t.Setenv("DATABASE_DSN", "postgres://bot@localhost/bot")

	cfg, err := Load(writeConfig(t, "telegram:\n  token: from-file\nmarket:\n  instruments: [btc-usdt-swap]\n"))
	require.NoError(t, err)

	assert.Equal(t, "token-from-env", cfg.Telegram.Token)
	assert.Equal(t, int64(42), cfg.Telegram.ChatID)
	assert.Equal(t, "postgres://bot@localhost/bot", cfg.DB)
	assert.Equal(t, []models.InstrumentID{"BTC-USDT-SWAP"}, cfg.InstrumentIDs())
}

func TestLoadValidation(t *testing.T) {
	cases := map[string]string{
		"tp2 below tp1":     "paper:\n  tp1_percent: 0.2\n  tp2_percent: 0.1\n",
		"unknown level":     "paper:\n  level_mode: fixed\n",
		"negative offset":   "indicator:\n  zone_offset: -1\n",
		"bad storage":       "storage:\n  driver: mongo\n",
		"zero fetch limit":  "market:\n  fetch_limit: 0\n",
		"unknown log level": "log:\n  level: loud\n",
		"short fetch limit": "market:\n  fetch_limit: 78\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestFetchLimitCoversIndicatorHistory(t *testing.T) {
	// 76 фреймов прогрева + 3
	cfg, err := Load(writeConfig(t, "market:\n  fetch_limit: 79\n"))
	require.NoError(t, err)
	assert.Equal(t, 79, cfg.Market.FetchLimit)

	// более короткое сглаживание снижает порог
	_, err = Load(writeConfig(t, "market:\n  fetch_limit: 50\nindicator:\n  smooth_length: 20\n"))
	require.NoError(t, err)

	_, err = Load(writeConfig(t, "market:\n  fetch_limit: 78\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "79 bars")
}

func TestInstrumentIDsDeduplicated(t *testing.T) {
	cfg, err := Load(writeConfig(t, "market:\n  instruments: [btc-usdt-swap, ' BTC-USDT-SWAP', eth-usdt-swap, Btc-Usdt-Swap]\n"))
	require.NoError(t, err)

	assert.Equal(t, []models.InstrumentID{"BTC-USDT-SWAP", "ETH-USDT-SWAP"}, cfg.InstrumentIDs())
	assert.Contains(t, cfg.Summary(), "instruments: 2")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestSummary(t *testing.T) {
	cfg, err := Load(writeConfig(t, "{}\n"))
	require.NoError(t, err)

	s := cfg.Summary()
	assert.Contains(t, s, "timeframe: 1m")
	assert.Contains(t, s, "cooldown_bars: 20")
	assert.Contains(t, s, "level_mode: percent")
}
