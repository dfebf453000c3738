package auditlog

import (
	"database/sql"
	"fmt"
)

// rowScanner is satisfied by both *sql.Rows and *sql.Row.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(s rowScanner) (Record, error) {
	var rec Record
	var abortReason, resultJSON sql.NullString
	if err := s.Scan(&rec.TxnID, &rec.Path, &rec.Attempts, &rec.Aborted, &abortReason, &resultJSON, &rec.CommittedAt); err != nil {
		return Record{}, fmt.Errorf("auditlog: scan record: %w", err)
	}
	rec.AbortReason = abortReason.String
	rec.ResultJSON = resultJSON.String
	return rec, nil
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("auditlog: iterate records: %w", err)
	}
	return out, nil
}
