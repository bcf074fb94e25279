package postgres

import (
	"context"
	"fmt"

	"volatility_bot/pkg/db"
)

// Connect поднимает пул на мастер и проверяет соединение.
func Connect(ctx context.Context, dsn string) (*db.PgTxManager, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres: empty dsn")
	}

	poolMaster, err := db.NewPool(ctx, db.PoolConfig{
		DSN: dsn,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create poolMaster: %w", err)
	}

	if err = poolMaster.Ping(ctx); err != nil {
		poolMaster.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return db.NewPgTxManager(poolMaster), nil
}
