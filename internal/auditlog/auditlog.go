// Package auditlog records completed transactions for internal/fakeserver's
// authoritative store (SPEC_FULL.md §4). The client-side synchronization
// core never writes to it; it exists so a fakeserver-backed integration
// test or demo can answer "what transactions committed, and with what
// result" after the fact.
package auditlog

import (
	"context"
	"errors"
	"time"
)

// ErrClosed names a closed repository. PostgresRepository and
// SQLiteRepository do not return it: after Close their methods fail
// with database/sql's own error, wrapped.
var ErrClosed = errors.New("auditlog: repository closed")

// Record is one completed transaction's audit trail entry.
type Record struct {
	TxnID       string
	Path        string
	Attempts    int
	Aborted     bool
	AbortReason string
	ResultJSON  string // wire-form JSON of the committed value, empty if Aborted
	CommittedAt time.Time
}

// Repository persists and queries Records. Two interchangeable SQL
// backends implement it: PostgresRepository and SQLiteRepository.
type Repository interface {
	Record(ctx context.Context, rec Record) error
	ListByPath(ctx context.Context, path string, limit int) ([]Record, error)
	Close() error
}
