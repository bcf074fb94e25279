package service

import (
	"context"
	"errors"

	"volatility_bot/internal/models"
)

// ErrNoSnapshot — сохранённого состояния ещё нет, стартуем с чистого счёта.
var ErrNoSnapshot = errors.New("no saved snapshot")

// Store — хранилище снимков бухгалтерии.
type Store interface {
	Load(ctx context.Context) (models.Snapshot, error)
	Save(ctx context.Context, s models.Snapshot) error
	Close() error
}

// Nop — хранение выключено.
type Nop struct{}

func (Nop) Load(context.Context) (models.Snapshot, error) { return models.Snapshot{}, ErrNoSnapshot }
func (Nop) Save(context.Context, models.Snapshot) error   { return nil }
func (Nop) Close() error                                  { return nil }
