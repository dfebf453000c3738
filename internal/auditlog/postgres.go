package auditlog

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// PostgresRepository is a Repository backed by PostgreSQL.
type PostgresRepository struct {
	db *sql.DB
}

// OpenPostgresRepository opens connStr and ensures the
// completed_transactions table exists.
func OpenPostgresRepository(ctx context.Context, connStr string) (*PostgresRepository, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("auditlog: open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("auditlog: ping postgres: %w", err)
	}

	r := &PostgresRepository{db: db}
	if err := r.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

func (r *PostgresRepository) initSchema(ctx context.Context) error {
	const schema = `CREATE TABLE IF NOT EXISTS completed_transactions (
		txn_id TEXT PRIMARY KEY,
		path TEXT NOT NULL,
		attempts INTEGER NOT NULL,
		aborted BOOLEAN NOT NULL,
		abort_reason TEXT,
		result_json TEXT,
		committed_at TIMESTAMP WITH TIME ZONE NOT NULL
	)`
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("auditlog: init postgres schema: %w", err)
	}
	const index = `CREATE INDEX IF NOT EXISTS idx_completed_transactions_path
		ON completed_transactions(path)`
	if _, err := r.db.ExecContext(ctx, index); err != nil {
		return fmt.Errorf("auditlog: init postgres index: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Record(ctx context.Context, rec Record) error {
	const query = `INSERT INTO completed_transactions
		(txn_id, path, attempts, aborted, abort_reason, result_json, committed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (txn_id) DO UPDATE SET
		attempts = EXCLUDED.attempts,
		aborted = EXCLUDED.aborted,
		abort_reason = EXCLUDED.abort_reason,
		result_json = EXCLUDED.result_json,
		committed_at = EXCLUDED.committed_at`
	_, err := r.db.ExecContext(ctx, query,
		rec.TxnID, rec.Path, rec.Attempts, rec.Aborted, rec.AbortReason, rec.ResultJSON, rec.CommittedAt)
	if err != nil {
		return fmt.Errorf("auditlog: record %s: %w", rec.TxnID, err)
	}
	return nil
}

func (r *PostgresRepository) ListByPath(ctx context.Context, path string, limit int) ([]Record, error) {
	const query = `SELECT txn_id, path, attempts, aborted, abort_reason, result_json, committed_at
		FROM completed_transactions WHERE path = $1 ORDER BY committed_at DESC LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, path, limit)
	if err != nil {
		return nil, fmt.Errorf("auditlog: list %s: %w", path, err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (r *PostgresRepository) Close() error {
	return r.db.Close()
}
