package service

import (
	"context"
	"database/sql"

	"github.com/bytedance/sonic"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"volatility_bot/internal/models"
)

// SQLiteSchema: одна строка со снимком + журнал сделок (дубли по trade_id игнорируются).
const SQLiteSchema = `
CREATE TABLE IF NOT EXISTS ledger_snapshot (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	seq INTEGER NOT NULL,
	saved_at DATETIME NOT NULL,
	payload BLOB NOT NULL
);

CREATE TABLE IF NOT EXISTS trades (
	trade_id TEXT PRIMARY KEY,
	instrument TEXT NOT NULL,
	side TEXT NOT NULL,
	entry_price REAL NOT NULL,
	exit_price REAL NOT NULL,
	open_time DATETIME NOT NULL,
	close_time DATETIME NOT NULL,
	pnl REAL NOT NULL,
	fees REAL NOT NULL,
	reason TEXT NOT NULL,
	partial INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_close_time ON trades(close_time);
`

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrapf(err, "open sqlite %s", path)
	}
	// один писатель
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(SQLiteSchema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "apply sqlite schema")
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Load(ctx context.Context) (models.Snapshot, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM ledger_snapshot WHERE id = 1`).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Snapshot{}, ErrNoSnapshot
	}
	if err != nil {
		return models.Snapshot{}, errors.Wrap(err, "select snapshot")
	}

	var snap models.Snapshot
	if err := sonic.Unmarshal(payload, &snap); err != nil {
		return models.Snapshot{}, errors.Wrap(err, "decode snapshot")
	}
	return snap, nil
}

func (s *SQLite) Save(ctx context.Context, snap models.Snapshot) (err error) {
	payload, err := sonic.Marshal(&snap)
	if err != nil {
		return errors.Wrap(err, "encode snapshot")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO ledger_snapshot (id, seq, saved_at, payload) VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET seq = excluded.seq, saved_at = excluded.saved_at, payload = excluded.payload`,
		snap.Seq, snap.SavedAt, payload,
	); err != nil {
		return errors.Wrap(err, "upsert snapshot")
	}

	for _, t := range snap.TradeHistory {
		if _, err = tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO trades
			(trade_id, instrument, side, entry_price, exit_price, open_time, close_time, pnl, fees, reason, partial)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, string(t.Instrument), string(t.Side), t.EntryPrice, t.ExitPrice,
			t.EntryTime, t.ExitTime, t.PnL, t.Fees, string(t.Reason), t.Partial,
		); err != nil {
			return errors.Wrapf(err, "insert trade %s", t.ID)
		}
	}

	return errors.Wrap(tx.Commit(), "commit")
}

// TradeCount — сколько сделок в журнале.
func (s *SQLite) TradeCount(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM trades`).Scan(&n)
	return n, errors.Wrap(err, "count trades")
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
