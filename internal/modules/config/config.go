package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"

	"volatility_bot/internal/indicator"
	"volatility_bot/internal/models"
	"volatility_bot/internal/paper"
	"volatility_bot/internal/strategy"
	"volatility_bot/pkg/logger"
	"volatility_bot/pkg/tracing"
)

const (
	configFilePathENV = "CONFIG_FILE"
	configDir         = "configs"
	defaultConfigFile = "values_local.yaml"
)

// DefaultInstruments — бессрочные USDT-свопы, если список в конфиге пуст.
var DefaultInstruments = []string{
	"BTC-USDT-SWAP", "ETH-USDT-SWAP", "SOL-USDT-SWAP", "BNB-USDT-SWAP", "XRP-USDT-SWAP",
	"ADA-USDT-SWAP", "DOGE-USDT-SWAP", "AVAX-USDT-SWAP", "LINK-USDT-SWAP", "DOT-USDT-SWAP",
	"LTC-USDT-SWAP", "TRX-USDT-SWAP", "ATOM-USDT-SWAP", "UNI-USDT-SWAP", "TAO-USDT-SWAP",
	"AAVE-USDT-SWAP", "ENA-USDT-SWAP", "BCH-USDT-SWAP", "HYPE-USDT-SWAP", "SUI-USDT-SWAP",
}

// Config — неизменяемый после загрузки конфиг бота.
type Config struct {
	Service struct {
		Name      string `mapstructure:"name" default:"volatility_bot" validate:"required"`
		AdminPort int    `mapstructure:"admin_port" default:"8080" validate:"gt=0,lt=65536"`
	} `mapstructure:"service"`

	Log logger.Config `mapstructure:"log"`

	Telegram struct {
		Token  string `mapstructure:"token"`
		ChatID int64  `mapstructure:"chat_id"`
	} `mapstructure:"telegram"`

	DB string `mapstructure:"db_dsn"`

	Market struct {
		Mode           string        `mapstructure:"mode" default:"rest" validate:"oneof=rest stream"`
		RestURL        string        `mapstructure:"rest_url" default:"https://www.okx.com" validate:"url"`
		WSURL          string        `mapstructure:"ws_url" default:"wss://ws.okx.com:8443/ws/v5/business" validate:"url"`
		Timeframe      string        `mapstructure:"timeframe" default:"1m" validate:"required"`
		FetchLimit     int           `mapstructure:"fetch_limit" default:"200" validate:"gte=3,lte=300"`
		RequestTimeout time.Duration `mapstructure:"request_timeout" default:"10s" validate:"gt=0"`
		Instruments    []string      `mapstructure:"instruments" validate:"dive,required"`
	} `mapstructure:"market"`

	Runner struct {
		CheckInterval time.Duration `mapstructure:"check_interval" default:"4s" validate:"gt=0"`
		CycleTimeout  time.Duration `mapstructure:"cycle_timeout" default:"15s" validate:"gt=0"`
	} `mapstructure:"runner"`

	Indicator indicator.Params `mapstructure:"indicator"`
	Signal    strategy.Params  `mapstructure:"signal"`
	Paper     paper.Params     `mapstructure:"paper"`

	Storage struct {
		Driver           string `mapstructure:"driver" default:"file" validate:"oneof=none file sqlite postgres"`
		Path             string `mapstructure:"path" default:"trading_state.json"`
		RestorePositions bool   `mapstructure:"restore_positions"`
	} `mapstructure:"storage"`

	Redis struct {
		Addr    string `mapstructure:"addr"`
		Channel string `mapstructure:"channel" default:"volatility_bot.events"`
	} `mapstructure:"redis"`

	Tracing tracing.Config `mapstructure:"tracing"`
}

// NewConfig читает configs/$CONFIG_FILE (по умолчанию values_local.yaml).
func NewConfig() (*Config, error) {
	name := os.Getenv(configFilePathENV)
	if name == "" {
		name = defaultConfigFile
	}
	return Load(filepath.Join(configDir, name))
}

// Load: дефолты из тегов -> yaml -> переменные окружения -> валидация.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range map[string]string{
		"telegram.token":   "TELEGRAM_TOKEN",
		"telegram.chat_id": "TELEGRAM_CHAT_ID",
		"db_dsn":           "DATABASE_DSN",
		"redis.addr":       "REDIS_ADDR",
	} {
		if err := v.BindEnv(key, env); err != nil {
			return nil, err
		}
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}

	if len(cfg.Market.Instruments) == 0 {
		cfg.Market.Instruments = append([]string(nil), DefaultInstruments...)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	if need := indicator.NewEngine(cfg.Indicator).MinHistory(); cfg.Market.FetchLimit < need {
		return nil, fmt.Errorf("invalid config %s: market.fetch_limit %d is below the %d bars the indicator needs",
			path, cfg.Market.FetchLimit, need)
	}
	return cfg, nil
}

// InstrumentIDs — нормализованные инструменты без повторов, в порядке конфига.
func (c *Config) InstrumentIDs() []models.InstrumentID {
	seen := make(map[models.InstrumentID]struct{}, len(c.Market.Instruments))
	out := make([]models.InstrumentID, 0, len(c.Market.Instruments))
	for _, s := range c.Market.Instruments {
		id := models.InstrumentID(strings.ToUpper(strings.TrimSpace(s)))
		if _, dup := seen[id]; dup || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Summary — торговые параметры в yaml для стартового уведомления.
func (c *Config) Summary() string {
	out, err := yaml.Marshal(struct {
		Timeframe   string           `yaml:"timeframe"`
		Instruments int              `yaml:"instruments"`
		Interval    string           `yaml:"check_interval"`
		Indicator   indicator.Params `yaml:"indicator"`
		Signal      strategy.Params  `yaml:"signal"`
		Paper       paper.Params     `yaml:"paper"`
	}{
		Timeframe:   c.Market.Timeframe,
		Instruments: len(c.InstrumentIDs()),
		Interval:    c.Runner.CheckInterval.String(),
		Indicator:   c.Indicator,
		Signal:      c.Signal,
		Paper:       c.Paper,
	})
	if err != nil {
		return err.Error()
	}
	return string(out)
}
