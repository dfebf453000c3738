package txn

import "github.com/latticedb/sync-core/internal/data"

// Status is a Transaction's position in the lifecycle described in
// spec.md §4.6. The zero value is "pending rerun" (the source's null
// status): a freshly created transaction, or one reset after its node
// was found stale.
type Status int

const (
	StatusPending Status = iota
	StatusRun
	StatusSent
	StatusSentNeedsAbort
	StatusCompleted
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRun:
		return "run"
	case StatusSent:
		return "sent"
	case StatusSentNeedsAbort:
		return "sentNeedsAbort"
	case StatusCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// UpdateFunc is the caller-supplied transaction body: given the current
// value at the transaction's path, return the value it should become.
// A returned error aborts the transaction with that error rather than
// propagating into the scheduler (spec.md §9).
type UpdateFunc func(current *data.TSD) (*data.TSD, error)

// Completer is a single-shot promise delivering a transaction's final
// outcome. Firing it twice is a programming error (spec.md §9).
type Completer struct {
	done   bool
	result *data.TSD
	err    error
	onDone func(*data.TSD, error)
}

// OnComplete registers the callback to run when the transaction
// finishes. If it has already finished, fn runs immediately.
func (c *Completer) OnComplete(fn func(result *data.TSD, err error)) {
	c.onDone = fn
	if c.done {
		fn(c.result, c.err)
	}
}

func (c *Completer) complete(result *data.TSD, err error) {
	if c.done {
		panic("txn: completer already completed")
	}
	c.done = true
	c.result, c.err = result, err
	if c.onDone != nil {
		c.onDone(result, err)
	}
}

// Transaction is one optimistic compare-and-set attempt at a path
// (spec.md §3). It is owned by the TransactionsNode at its path and
// does not outlive Completer firing.
type Transaction struct {
	Path         data.Path
	Update       UpdateFunc
	ApplyLocally bool

	Order      int64
	RetryCount int
	Status     Status

	CurrentInput          *data.TSD
	CurrentOutputRaw      *data.TSD
	CurrentOutputResolved *data.TSD
	CurrentWriteID        int64
	HasWrite              bool

	AbortReason error

	Completer *Completer
}

func newTransaction(path data.Path, update UpdateFunc, applyLocally bool, order int64) *Transaction {
	return &Transaction{
		Path:         path,
		Update:       update,
		ApplyLocally: applyLocally,
		Order:        order,
		Status:       StatusPending,
		Completer:    &Completer{},
	}
}
