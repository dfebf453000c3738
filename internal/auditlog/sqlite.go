package auditlog

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteRepository is a Repository backed by modernc.org/sqlite, the
// dependency-free alternative to PostgresRepository for tests and
// single-process demos.
type SQLiteRepository struct {
	db *sql.DB
}

// OpenSQLiteRepository opens dsn (e.g. a file path, or ":memory:") and
// ensures the completed_transactions table exists.
func OpenSQLiteRepository(ctx context.Context, dsn string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("auditlog: open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("auditlog: ping sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // sqlite tolerates one writer at a time

	r := &SQLiteRepository{db: db}
	if err := r.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

func (r *SQLiteRepository) initSchema(ctx context.Context) error {
	const schema = `CREATE TABLE IF NOT EXISTS completed_transactions (
		txn_id TEXT PRIMARY KEY,
		path TEXT NOT NULL,
		attempts INTEGER NOT NULL,
		aborted INTEGER NOT NULL,
		abort_reason TEXT,
		result_json TEXT,
		committed_at DATETIME NOT NULL
	)`
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("auditlog: init sqlite schema: %w", err)
	}
	const index = `CREATE INDEX IF NOT EXISTS idx_completed_transactions_path
		ON completed_transactions(path)`
	if _, err := r.db.ExecContext(ctx, index); err != nil {
		return fmt.Errorf("auditlog: init sqlite index: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Record(ctx context.Context, rec Record) error {
	const query = `INSERT INTO completed_transactions
		(txn_id, path, attempts, aborted, abort_reason, result_json, committed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(txn_id) DO UPDATE SET
		attempts = excluded.attempts,
		aborted = excluded.aborted,
		abort_reason = excluded.abort_reason,
		result_json = excluded.result_json,
		committed_at = excluded.committed_at`
	_, err := r.db.ExecContext(ctx, query,
		rec.TxnID, rec.Path, rec.Attempts, rec.Aborted, rec.AbortReason, rec.ResultJSON, rec.CommittedAt)
	if err != nil {
		return fmt.Errorf("auditlog: record %s: %w", rec.TxnID, err)
	}
	return nil
}

func (r *SQLiteRepository) ListByPath(ctx context.Context, path string, limit int) ([]Record, error) {
	const query = `SELECT txn_id, path, attempts, aborted, abort_reason, result_json, committed_at
		FROM completed_transactions WHERE path = ? ORDER BY committed_at DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, path, limit)
	if err != nil {
		return nil, fmt.Errorf("auditlog: list %s: %w", path, err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}
