package history

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ppiankov/agentgate/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS history (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	hkey       TEXT NOT NULL,
	tool       TEXT NOT NULL,
	policy     TEXT NOT NULL,
	decision   TEXT NOT NULL,
	risk       INTEGER NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS history_key ON history (hkey, id);
`

// SQLiteStore persists history in a SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	closed atomic.Bool
}

// NewSQLiteStore opens (or creates) the database at path and migrates it.
// ":memory:" gives a private in-memory database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if path == ":memory:" {
		// Each connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	} else if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Recent(ctx context.Context, key string) ([]model.HistoryEntry, error) {
	if s.closed.Load() {
		return nil, ErrStoreClosed
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT tool, policy, decision, risk, created_at FROM (
			SELECT id, tool, policy, decision, risk, created_at
			FROM history WHERE hkey = ? ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC`, key, model.MaxHistory)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []model.HistoryEntry
	for rows.Next() {
		var e model.HistoryEntry
		var decision, ts string
		if err := rows.Scan(&e.Tool, &e.Policy, &decision, &e.Risk, &ts); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		e.Decision = model.Verdict(decision)
		e.Timestamp, err = time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("parse timestamp %q: %w", ts, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Append(ctx context.Context, key string, e model.HistoryEntry) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO history (hkey, tool, policy, decision, risk, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		key, e.Tool, e.Policy, string(e.Decision), e.Risk, e.Timestamp.UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM history WHERE hkey = ? AND id NOT IN (
			SELECT id FROM history WHERE hkey = ? ORDER BY id DESC LIMIT ?
		)`, key, key, model.MaxHistory); err != nil {
		return fmt.Errorf("trim history: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}
