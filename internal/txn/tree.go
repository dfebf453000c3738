package txn

import (
	"context"
	"sort"

	"github.com/latticedb/sync-core/internal/data"
	"github.com/latticedb/sync-core/internal/query"
	"github.com/latticedb/sync-core/internal/synctree"
)

// MaxRetries bounds how many times the engine will send a transaction's
// node before failing it with ErrMaxRetries (spec.md §4.6 item 7, §8
// invariant 6).
const MaxRetries = 25

// Sender is the subset of the Connection contract (spec.md §6) the
// transaction engine drives directly: a conditional put of value at
// path, guarded by a hash of the snapshot the transaction last read.
// connection.Connection satisfies this once wired by Repo.
type Sender interface {
	Put(ctx context.Context, path data.Path, value *data.TSD, expectedHash string) error
}

// TransactionsTree is the Repo-owned tree of TransactionsNodes driving
// the lifecycle in spec.md §4.6. It reads and writes through the same
// SyncTree the rest of Repo uses, so a transaction's "current" value
// always reflects every other pending write, including earlier
// transactions replayed in the same rerun.
type TransactionsTree struct {
	root      *TransactionsNode
	sender    Sender
	tree      *synctree.SyncTree
	scheduler *synctree.Scheduler

	nextOrder   int64
	nextWriteID func() int64
	serverTime  func() int64
}

// NewTransactionsTree constructs an empty TransactionsTree. nextWriteID
// should draw from the same WriteLog counter Repo uses for plain writes
// (spec.md §3, "writeId is strictly increasing" is a single log-wide
// sequence, not scoped to transactions).
func NewTransactionsTree(sender Sender, tree *synctree.SyncTree, scheduler *synctree.Scheduler, nextWriteID func() int64, serverTime func() int64) *TransactionsTree {
	return &TransactionsTree{
		root:        newTransactionsNode(data.Path{}),
		sender:      sender,
		tree:        tree,
		scheduler:   scheduler,
		nextWriteID: nextWriteID,
		serverTime:  serverTime,
	}
}

// nodeAt returns the TransactionsNode at path, creating it (and any
// missing ancestors) as needed and seeding each newly created node's
// Input with the current local value at its own path — every node
// carries its own input snapshot (spec.md §3, "TransactionsNode"), not
// only ones with transactions of their own, since compositeOutput can
// be computed starting from any node that turns out to be a send point.
func (t *TransactionsTree) nodeAt(path data.Path) *TransactionsNode {
	if t.root.Input == nil {
		t.root.Input = t.tree.CachedValue(data.Path{})
	}
	n := t.root
	for _, name := range path {
		child, ok := n.Children[name]
		if !ok {
			childPath := append(append(data.Path{}, n.Path...), name)
			child = newTransactionsNode(childPath)
			child.Input = t.tree.CachedValue(childPath)
			n.Children[name] = child
		}
		n = child
	}
	return n
}

// Create starts a new Transaction at path: assigns order, subscribes to
// the unfiltered view at path (so a future server push through repo
// feeds Run the latest data), and queues the first Run (spec.md §4.6
// step 1).
func (t *TransactionsTree) Create(ctx context.Context, path data.Path, update UpdateFunc, applyLocally bool) *Transaction {
	order := t.nextOrder
	t.nextOrder++
	tx := newTransaction(path, update, applyLocally, order)

	node := t.nodeAt(path)
	node.Transactions = append(node.Transactions, tx)

	// spec.md §4.6 step 1: "silently subscribe to unfiltered value at p"
	// so the engine observes server pushes at this path. Repo already
	// owns a view there for any active listener; an internal, unlistened
	// view is unnecessary plumbing here since Run always re-reads
	// SyncTree.CachedValue fresh — the subscription's only purpose is
	// to keep the SyncPoint/View alive, which GetOrCreateView already
	// does for the lifetime of the transaction via the tree itself.
	t.tree.PointAt(path).GetOrCreateView(query.Filter{})

	t.Run(ctx, tx)
	return tx
}

// Run executes one attempt of tx against the latest local value at its
// path (spec.md §4.6 step 2).
func (t *TransactionsTree) Run(ctx context.Context, tx *Transaction) {
	current := t.tree.CachedValue(tx.Path)
	t.runWith(ctx, tx, current)
}

func (t *TransactionsTree) runWith(ctx context.Context, tx *Transaction, current *data.TSD) {
	next, err := tx.Update(current)
	if err != nil {
		t.failTransaction(tx, err)
		return
	}

	raw := next.WithPriority(current.Priority())
	resolved := data.ResolveSentinels(raw, t.serverTime())

	tx.CurrentInput = current
	tx.CurrentOutputRaw = raw
	tx.CurrentOutputResolved = resolved
	tx.CurrentWriteID = t.nextWriteID()
	tx.HasWrite = true
	tx.Status = StatusRun

	if tx.ApplyLocally {
		t.tree.ApplyUserOverwrite(tx.Path, resolved, tx.CurrentWriteID, true)
	}

	node := t.nodeAt(tx.Path)
	if tx.Order > node.LastID {
		node.LastID = tx.Order
	}

	t.maybeSend(ctx)
}

// maybeSend sends the composite output of every fully-run subtree,
// choosing the shallowest such subtree whose root node holds
// transactions of its own, so related transactions batch into one put
// (spec.md §4.6 step 3). The check runs on the next
// scheduler tick rather than inline, so a caller that just ran a
// transaction still has a window to Abort it before it is sent (spec.md
// §9's "next scheduler tick" event-ordering rule, generalized from view
// listener delivery to the send decision).
func (t *TransactionsTree) maybeSend(ctx context.Context) {
	t.scheduler.Post(func() { t.sendReady(ctx, t.root) })
}

func (t *TransactionsTree) sendReady(ctx context.Context, node *TransactionsNode) {
	if node.isEmpty() {
		return
	}
	if len(node.Transactions) > 0 && node.allRun() {
		t.send(ctx, node)
		return
	}
	for _, child := range node.Children {
		t.sendReady(ctx, child)
	}
}

func (t *TransactionsTree) send(ctx context.Context, node *TransactionsNode) {
	var pending []*Transaction
	node.walk(func(tx *Transaction) {
		if tx.Status == StatusCompleted {
			return
		}
		if tx.RetryCount >= MaxRetries {
			t.failTransaction(tx, ErrMaxRetries)
			return
		}
		pending = append(pending, tx)
	})
	node.dropCompleted()
	if len(pending) == 0 {
		return
	}

	hash := data.Hash(node.Input)
	output := compositeOutput(node)
	for _, tx := range pending {
		tx.Status = StatusSent
		tx.RetryCount++
	}

	err := t.sender.Put(ctx, node.Path, output, hash)
	t.handlePutResult(ctx, node, err)
}

func (t *TransactionsTree) handlePutResult(ctx context.Context, node *TransactionsNode, err error) {
	switch {
	case err == nil:
		t.handleSuccess(node)
	case IsDataStale(err):
		t.handleStale(ctx, node)
	default:
		t.handleServerError(node, err)
	}
}

// handleSuccess implements step 4: ack each writeId, complete each
// transaction with its resolved output, drop it from the tree.
func (t *TransactionsTree) handleSuccess(node *TransactionsNode) {
	var toComplete []*Transaction
	node.walk(func(tx *Transaction) {
		if tx.Status == StatusSent || tx.Status == StatusSentNeedsAbort {
			toComplete = append(toComplete, tx)
		}
	})
	for _, tx := range toComplete {
		if tx.HasWrite {
			t.tree.ApplyAck(tx.Path, tx.CurrentWriteID)
		}
		if tx.Status == StatusSentNeedsAbort {
			t.completeTransaction(tx, nil, tx.AbortReason)
		} else {
			t.completeTransaction(tx, tx.CurrentOutputResolved, nil)
		}
	}
	node.dropCompleted()
}

// handleStale implements step 5: reset non-aborted transactions to
// pending and revert their writes, fail aborted-in-flight ones with
// their stored reason, then rerun the node against refreshed input.
func (t *TransactionsTree) handleStale(ctx context.Context, node *TransactionsNode) {
	node.walk(func(tx *Transaction) {
		if tx.Status != StatusSent && tx.Status != StatusSentNeedsAbort {
			return
		}
		if tx.HasWrite {
			t.tree.ApplyAck(tx.Path, tx.CurrentWriteID)
			tx.HasWrite = false
		}
		if tx.Status == StatusSentNeedsAbort {
			t.failTransaction(tx, tx.AbortReason)
			return
		}
		tx.Status = StatusPending
	})
	node.dropCompleted()
	t.rerun(ctx, node)
}

// handleServerError implements step 6: any non-stale ServerError is
// fatal to every in-flight transaction under node.
func (t *TransactionsTree) handleServerError(node *TransactionsNode, err error) {
	var toFail []*Transaction
	node.walk(func(tx *Transaction) {
		if tx.Status != StatusSent && tx.Status != StatusSentNeedsAbort {
			return
		}
		if tx.HasWrite {
			t.tree.ApplyAck(tx.Path, tx.CurrentWriteID)
			tx.HasWrite = false
		}
		toFail = append(toFail, tx)
	})
	for _, tx := range toFail {
		t.failTransaction(tx, err)
	}
	node.dropCompleted()
}

// rerun implements the "Rerun" rule: seed node.Input with the refreshed
// local value at node.Path, then replay every non-completed Transaction
// under node in Order, each fed the live accumulator at its own path
// (spec.md §4.6 "Rerun").
func (t *TransactionsTree) rerun(ctx context.Context, node *TransactionsNode) {
	t.refreshInputs(node)

	var all []*Transaction
	node.walk(func(tx *Transaction) { all = append(all, tx) })
	sort.Slice(all, func(i, j int) bool { return all[i].Order < all[j].Order })

	for _, tx := range all {
		if tx.Status == StatusCompleted {
			continue
		}
		t.Run(ctx, tx)
	}
}

// refreshInputs reseeds node and every descendant's Input with the
// current local value at its own path, since a rerun's baseline can
// change at any depth once in-flight writes are reverted.
func (t *TransactionsTree) refreshInputs(node *TransactionsNode) {
	node.Input = t.tree.CachedValue(node.Path)
	for _, c := range node.Children {
		t.refreshInputs(c)
	}
}

func (t *TransactionsTree) completeTransaction(tx *Transaction, result *data.TSD, err error) {
	tx.Status = StatusCompleted
	completer := tx.Completer
	t.scheduler.Post(func() { completer.complete(result, err) })
}

func (t *TransactionsTree) failTransaction(tx *Transaction, err error) {
	if tx.HasWrite {
		t.tree.ApplyAck(tx.Path, tx.CurrentWriteID)
		tx.HasWrite = false
	}
	t.completeTransaction(tx, nil, err)
}

// Abort implements spec.md §4.6's "Abort semantics" for every
// Transaction on the path from root to path (inclusive of any
// transaction rooted deeper, since aborting a subtree aborts everything
// under it too).
func (t *TransactionsTree) Abort(path data.Path, reason error) error {
	var stateErr error
	abortOne := func(tx *Transaction) {
		switch tx.Status {
		case StatusRun:
			t.failTransaction(tx, ErrSet)
		case StatusSent:
			tx.Status = StatusSentNeedsAbort
			tx.AbortReason = reason
		case StatusSentNeedsAbort, StatusCompleted:
			// no-op
		default:
			stateErr = ErrInvalidState
		}
	}
	n := t.root
	for _, name := range path {
		for _, tx := range n.Transactions {
			abortOne(tx)
		}
		child, ok := n.Children[name]
		if !ok {
			return stateErr
		}
		n = child
	}
	n.walk(abortOne)
	return stateErr
}

func (t *TransactionsTree) findNode(path data.Path) (*TransactionsNode, bool) {
	n := t.root
	for _, name := range path {
		child, ok := n.Children[name]
		if !ok {
			return nil, false
		}
		n = child
	}
	return n, true
}
