package txn

import "errors"

// Transaction failure reasons (spec.md §4.6 "Abort semantics", §7
// "TransactionAbort"). These are wrapped with fmt.Errorf where more
// context is useful, but callers can compare against them with
// errors.Is.
var (
	// ErrSet is returned to a transaction in the run state when Abort
	// reaches it, whatever reason Abort was given. Repo.Set and
	// Repo.Merge do not call Abort.
	ErrSet = errors.New("txn: aborted by overlay write")

	// ErrMaxRetries is returned once a transaction has attempted 25
	// server sends without a successful commit.
	ErrMaxRetries = errors.New("txn: max retries exceeded")

	// ErrInvalidState guards against abort/ack calls that do not match
	// any state transition the engine defines.
	ErrInvalidState = errors.New("txn: invalid state transition")
)

// ServerError is the ServerError{code} shape from spec.md §6. Code
// "datastale" drives a rerun; every other code is fatal to whatever
// transactions were in flight on the put that produced it.
type ServerError struct {
	Code string
}

func (e *ServerError) Error() string { return "txn: server error " + e.Code }

// CodeDataStale is the one ServerError code the engine treats specially.
const CodeDataStale = "datastale"

// IsDataStale reports whether err is a ServerError carrying the
// datastale code.
func IsDataStale(err error) bool {
	se, ok := err.(*ServerError)
	return ok && se.Code == CodeDataStale
}
