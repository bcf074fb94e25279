package service

import (
	"context"

	"github.com/bytedance/sonic"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"volatility_bot/internal/models"
	"volatility_bot/pkg/db"
)

// PostgresSchema применяется при старте, миграций у бота нет.
const PostgresSchema = `
CREATE TABLE IF NOT EXISTS ledger_snapshot (
	id SMALLINT PRIMARY KEY CHECK (id = 1),
	seq BIGINT NOT NULL,
	saved_at TIMESTAMPTZ NOT NULL,
	payload JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS trades (
	trade_id TEXT PRIMARY KEY,
	instrument TEXT NOT NULL,
	side TEXT NOT NULL,
	entry_price DOUBLE PRECISION NOT NULL,
	exit_price DOUBLE PRECISION NOT NULL,
	open_time TIMESTAMPTZ NOT NULL,
	close_time TIMESTAMPTZ NOT NULL,
	pnl DOUBLE PRECISION NOT NULL,
	fees DOUBLE PRECISION NOT NULL,
	reason TEXT NOT NULL,
	partial BOOLEAN NOT NULL
);
`

// Postgres — снимок jsonb + журнал сделок, всё в одной транзакции.
type Postgres struct {
	db *db.PgTxManager
}

func NewPostgres(ctx context.Context, m *db.PgTxManager) (*Postgres, error) {
	if _, err := m.Conn().Exec(ctx, PostgresSchema); err != nil {
		return nil, errors.Wrap(err, "apply postgres schema")
	}
	return &Postgres{db: m}, nil
}

func (p *Postgres) Load(ctx context.Context) (snap models.Snapshot, err error) {
	var payload []byte
	err = p.db.Conn().QueryRow(ctx, `SELECT payload FROM ledger_snapshot WHERE id = 1`).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Snapshot{}, ErrNoSnapshot
	}
	if err != nil {
		return models.Snapshot{}, errors.Wrap(err, "pg.Load")
	}
	if err = sonic.Unmarshal(payload, &snap); err != nil {
		return models.Snapshot{}, errors.Wrap(err, "pg.Load decode")
	}
	return snap, nil
}

func (p *Postgres) Save(ctx context.Context, snap models.Snapshot) error {
	payload, err := sonic.Marshal(&snap)
	if err != nil {
		return errors.Wrap(err, "pg.Save encode")
	}

	err = p.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctxTx, `
			INSERT INTO ledger_snapshot (id, seq, saved_at, payload) VALUES (1, $1, $2, $3)
			ON CONFLICT (id) DO UPDATE SET seq = EXCLUDED.seq, saved_at = EXCLUDED.saved_at, payload = EXCLUDED.payload
			WHERE ledger_snapshot.seq < EXCLUDED.seq`,
			int64(snap.Seq), snap.SavedAt, payload,
		); err != nil {
			return err
		}

		batch := &pgx.Batch{}
		for _, t := range snap.TradeHistory {
			batch.Queue(`
				INSERT INTO trades
				(trade_id, instrument, side, entry_price, exit_price, open_time, close_time, pnl, fees, reason, partial)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
				ON CONFLICT (trade_id) DO NOTHING`,
				t.ID, string(t.Instrument), string(t.Side), t.EntryPrice, t.ExitPrice,
				t.EntryTime, t.ExitTime, t.PnL, t.Fees, string(t.Reason), t.Partial,
			)
		}
		if batch.Len() == 0 {
			return nil
		}
		return tx.SendBatch(ctxTx, batch).Close()
	})
	return errors.Wrap(err, "pg.Save")
}

func (p *Postgres) Close() error {
	p.db.Close()
	return nil
}
