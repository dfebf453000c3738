package disconnect

import (
	"errors"

	"github.com/latticedb/sync-core/internal/data"
	"github.com/latticedb/sync-core/internal/synctree"
)

// ErrConnectionLost is the reason RunOnDisconnectEvents passes to Abort
// for each replayed path. An already-sent transaction fails with it; one
// still in the run state fails with txn.ErrSet instead.
var ErrConnectionLost = errors.New("disconnect: connection lost")

// Aborter is the subset of txn.TransactionsTree the disconnect replay
// drives: abort every transaction at a path once the server value there
// is about to be overwritten out from under it.
type Aborter interface {
	Abort(path data.Path, reason error) error
}

// Manager owns one Repo's onDisconnect tree and replays it once the
// Connection reports a drop (spec.md §4.7).
type Manager struct {
	tree    *SparseSnapshotTree
	sync    *synctree.SyncTree
	aborter Aborter
}

// NewManager constructs an empty Manager over syncTree, aborting
// transactions on aborter when a remembered write is replayed.
func NewManager(syncTree *synctree.SyncTree, aborter Aborter) *Manager {
	return &Manager{tree: NewSparseSnapshotTree(), sync: syncTree, aborter: aborter}
}

// Remember records tsd to be applied at path if the connection drops
// (spec.md §4.7 "remember").
func (m *Manager) Remember(path data.Path, tsd *data.TSD) {
	m.tree.Remember(path, tsd)
}

// Forget cancels a previously remembered write at path (spec.md §4.7
// "forget").
func (m *Manager) Forget(path data.Path) {
	m.tree.Forget(path)
}

// RunOnDisconnectEvents implements spec.md §4.7's replay: every stored
// TSD has its sentinels resolved against serverTimeMillis and is
// applied as an unfiltered server overwrite, any transaction at that
// path is aborted, and the sparse tree is cleared.
func (m *Manager) RunOnDisconnectEvents(serverTimeMillis int64) {
	entries := m.tree.Walk()
	for _, e := range entries {
		resolved := data.ResolveSentinels(e.TSD, serverTimeMillis)
		m.sync.ApplyServerOverwrite(e.Path, nil, resolved)
		if m.aborter != nil {
			m.aborter.Abort(e.Path, ErrConnectionLost)
		}
	}
	m.tree = NewSparseSnapshotTree()
}
