package paper

import (
	"errors"
	"math"

	"volatility_bot/internal/models"
)

// ErrInvariant — нарушение инварианта позиции (перевёрнутые уровни, отрицательная
// маржа, мусорная цена). Для инструмента это фатально.
var ErrInvariant = errors.New("position invariant violated")

// Rejection — штатный бизнес-отказ, не ошибка.
type Rejection string

const (
	RejectAlreadyOpen         Rejection = "already-open"
	RejectInsufficientBalance Rejection = "insufficient-balance"
	RejectPartialTaken        Rejection = "partial-taken"
	RejectNoPosition          Rejection = "no-position"
)

type LevelMode string

const (
	LevelsPercent LevelMode = "percent"
	LevelsATR     LevelMode = "atr"
)

// partialFraction — доля остатка, закрываемая на tp1.
const partialFraction = 0.5

type Params struct {
	InitialBalance float64   `yaml:"initial_balance" mapstructure:"initial_balance" default:"100" validate:"gt=0"`
	Margin         float64   `yaml:"margin" mapstructure:"margin" default:"5" validate:"gt=0"`
	Leverage       float64   `yaml:"leverage" mapstructure:"leverage" default:"10" validate:"gt=0"`
	FeeRate        float64   `yaml:"fee_rate" mapstructure:"fee_rate" default:"0.0005" validate:"gte=0,lt=1"`
	LevelMode      LevelMode `yaml:"level_mode" mapstructure:"level_mode" default:"percent" validate:"oneof=percent atr"`

	// проценты от цены входа
	TP1Percent float64 `yaml:"tp1_percent" mapstructure:"tp1_percent" default:"0.1" validate:"gt=0"`
	TP2Percent float64 `yaml:"tp2_percent" mapstructure:"tp2_percent" default:"0.15" validate:"gtfield=TP1Percent"`
	SLPercent  float64 `yaml:"sl_percent" mapstructure:"sl_percent" default:"0.08" validate:"gt=0"`

	// множители ATR
	TP1ATRMult float64 `yaml:"tp1_atr_mult" mapstructure:"tp1_atr_mult" default:"1.5" validate:"gt=0"`
	TP2ATRMult float64 `yaml:"tp2_atr_mult" mapstructure:"tp2_atr_mult" default:"3.0" validate:"gtfield=TP1ATRMult"`
	SLATRMult  float64 `yaml:"sl_atr_mult" mapstructure:"sl_atr_mult" default:"1.0" validate:"gt=0"`
}

// Fee — комиссия с закрываемой (или открываемой) маржи: margin * leverage * rate.
func Fee(margin, leverage, rate float64) float64 {
	return margin * leverage * rate
}

// Levels строит sl/tp1/tp2 от цены входа в выбранном режиме.
func (p Params) Levels(side models.Side, entry, atr float64) (sl, tp1, tp2 float64) {
	d1, d2, ds := entry*p.TP1Percent/100, entry*p.TP2Percent/100, entry*p.SLPercent/100
	if p.LevelMode == LevelsATR {
		d1, d2, ds = atr*p.TP1ATRMult, atr*p.TP2ATRMult, atr*p.SLATRMult
	}

	s := side.Sign()
	return entry - s*ds, entry + s*d1, entry + s*d2
}

// PriceChangePct — изменение цены в процентах в пользу позиции.
func PriceChangePct(side models.Side, entry, exit float64) float64 {
	return side.Sign() * (exit - entry) / entry * 100
}

// PnL в валюте на закрываемом номинале.
func PnL(side models.Side, entry, exit, closingMargin, leverage float64) float64 {
	return closingMargin * leverage * PriceChangePct(side, entry, exit) / 100
}

func validPrice(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
