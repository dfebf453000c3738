package txn

import "github.com/latticedb/sync-core/internal/data"

// TransactionsNode is one path's bundle of pending Transactions plus
// the subtree of TransactionsNodes below it (spec.md §3). Input is the
// snapshot a rerun replays transactions against.
type TransactionsNode struct {
	Path         data.Path
	Transactions []*Transaction
	Children     map[data.Name]*TransactionsNode
	Input        *data.TSD
	LastID       int64
}

func newTransactionsNode(path data.Path) *TransactionsNode {
	return &TransactionsNode{Path: path, Children: make(map[data.Name]*TransactionsNode)}
}

func (n *TransactionsNode) isEmpty() bool {
	if len(n.Transactions) > 0 {
		return false
	}
	for _, c := range n.Children {
		if !c.isEmpty() {
			return false
		}
	}
	return true
}

// allRun reports whether every non-completed Transaction in n and its
// descendants is currently in StatusRun — the "ready to send" predicate
// of spec.md §4.6 step 3. Completed transactions no longer block
// sending; they are pruned lazily by dropCompleted.
func (n *TransactionsNode) allRun() bool {
	for _, tx := range n.Transactions {
		if tx.Status == StatusCompleted {
			continue
		}
		if tx.Status != StatusRun {
			return false
		}
	}
	for _, c := range n.Children {
		if !c.allRun() {
			return false
		}
	}
	return true
}

// walk calls fn for every Transaction in n and its descendants, in no
// particular order.
func (n *TransactionsNode) walk(fn func(*Transaction)) {
	for _, tx := range n.Transactions {
		fn(tx)
	}
	for _, c := range n.Children {
		c.walk(fn)
	}
}

// compositeOutput computes the value this node's Transactions (and any
// child subtree that has seen a more recently ordered Transaction run)
// would produce for a single server put at n.Path (spec.md §4.6
// "Composite output"). Start from input, apply this node's last
// transaction's raw output, then overlay any child whose LastID is
// newer than n.LastID, recursively.
func compositeOutput(n *TransactionsNode) *data.TSD {
	out := n.Input
	if last := len(n.Transactions); last > 0 {
		out = n.Transactions[last-1].CurrentOutputRaw
	}
	for name, child := range n.Children {
		if child.LastID > n.LastID {
			out = out.SetChild(name, compositeOutput(child))
		}
	}
	return out
}

// dropCompleted removes completed transactions from n's own list; empty
// child nodes left behind are pruned too.
func (n *TransactionsNode) dropCompleted() {
	kept := n.Transactions[:0]
	for _, tx := range n.Transactions {
		if tx.Status != StatusCompleted {
			kept = append(kept, tx)
		}
	}
	n.Transactions = kept
	for name, child := range n.Children {
		child.dropCompleted()
		if child.isEmpty() {
			delete(n.Children, name)
		}
	}
}
