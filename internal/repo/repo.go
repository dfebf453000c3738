// Package repo implements the Repo coordinator (spec.md §2, §3
// "Ownership"): the single stateful owner of one SyncTree, write log,
// TransactionsTree, onDisconnect tree, and tag table, wired to one
// Connection.
package repo

import (
	"context"
	"fmt"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/latticedb/sync-core/internal/connection"
	"github.com/latticedb/sync-core/internal/data"
	"github.com/latticedb/sync-core/internal/disconnect"
	"github.com/latticedb/sync-core/internal/pushid"
	"github.com/latticedb/sync-core/internal/query"
	"github.com/latticedb/sync-core/internal/synctree"
	"github.com/latticedb/sync-core/internal/txn"
)

// Repo glues SyncTree, the write log, TransactionsTree, the onDisconnect
// tree, and the tag table to a Connection, and demultiplexes the
// Connection's event streams back into the tree (spec.md §2).
//
// mu is the single lock standing in for spec.md §5's "one logical
// scheduler thread": every access to tree, log, tags, txns, and disc
// (none of which guard themselves) is made holding mu, whether the
// caller is the demux goroutine or an application goroutine calling a
// public method directly. mu is released around blocking Connection
// calls so one in-flight request never stalls unrelated local state
// reads, then re-acquired to apply the result.
type Repo struct {
	URL string

	mu sync.Mutex

	tree  *synctree.SyncTree
	sched *synctree.Scheduler
	log   *synctree.WriteLog
	tags  *synctree.TagTable
	txns  *txn.TransactionsTree
	disc  *disconnect.Manager
	push  *pushid.Generator
	conn  connection.Connection

	cancel context.CancelFunc
}

// New constructs a Repo over conn and starts demultiplexing its
// OnConnect and Messages streams. Callers are responsible for calling
// Close when done.
func New(url string, conn connection.Connection) *Repo {
	sched := synctree.NewScheduler()
	tree := synctree.NewSyncTree(sched)
	writeLog := synctree.NewWriteLog()

	r := &Repo{
		URL:   url,
		tree:  tree,
		sched: sched,
		log:   writeLog,
		tags:  synctree.NewTagTable(),
		push:  pushid.New(),
		conn:  conn,
	}
	r.txns = txn.NewTransactionsTree(conn, tree, sched, writeLog.NextWriteID, conn.ServerTime)
	r.disc = disconnect.NewManager(tree, r.txns)

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	go r.demux(ctx)
	return r
}

// CachedValue returns the unfiltered local version at path, or nil if
// none exists (spec.md §4 "cachedValue" open question, resolved as a
// plain read).
func (r *Repo) CachedValue(path data.Path) *data.TSD {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tree.CachedValue(path)
}

// demux drains conn's OnConnect and Messages streams, routing each into
// the SyncTree/TransactionsTree/disconnect tree on the Repo's single
// logical scheduler thread (spec.md §5). Each event is handled and
// drained under mu, the same lock every public method takes, so the
// tree/log/tags/txns never see a concurrent mutation from the calling
// goroutine and the demux goroutine at once.
func (r *Repo) demux(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case connected, ok := <-r.conn.OnConnect():
			if !ok {
				return
			}
			r.mu.Lock()
			r.handleConnectChange(connected)
			r.sched.Drain()
			r.mu.Unlock()
		case msg, ok := <-r.conn.Messages():
			if !ok {
				return
			}
			r.mu.Lock()
			r.handleMessage(msg)
			r.sched.Drain()
			r.mu.Unlock()
		}
	}
}

// handleConnectChange must be called with mu held.
func (r *Repo) handleConnectChange(connected bool) {
	if connected {
		return
	}
	r.disc.RunOnDisconnectEvents(r.conn.ServerTime())
}

// handleMessage must be called with mu held.
func (r *Repo) handleMessage(msg connection.Message) {
	switch msg.Action {
	case connection.ActionSet:
		path, filter := r.resolveTag(msg)
		r.tree.ApplyServerOverwrite(path, filter, msg.Data)
	case connection.ActionMerge:
		path, filter := r.resolveTag(msg)
		r.tree.ApplyServerMerge(path, filter, msg.ChangedChildren)
	case connection.ActionListenRevoked:
		filter := query.Filter{}
		if msg.Query != nil {
			filter = *msg.Query
		}
		r.tree.ApplyListenRevoked(msg.Path, filter, fmt.Errorf("repo: listen revoked at %s", msg.Path))
		r.tags.Remove(msg.Path, filter)
	case connection.ActionAuthRevoked:
		log.Printf("repo: auth revoked")
	case connection.ActionSecurityDebug:
		log.Printf("repo: security debug: %s", msg.DebugMessage)
	}
}

// resolveTag must be called with mu held.
func (r *Repo) resolveTag(msg connection.Message) (data.Path, *query.Filter) {
	if msg.Tag == nil {
		return msg.Path, nil
	}
	path, filter, ok := r.tags.Lookup(*msg.Tag)
	if !ok {
		return msg.Path, nil
	}
	return path, &filter
}

// AddListener registers cb for event type t on filter at path,
// creating the View and issuing conn.Listen if this is the first
// listener for that (path, filter) pair (spec.md §4.2 addListener).
func (r *Repo) AddListener(ctx context.Context, path data.Path, filter query.Filter, t synctree.EventType, cb synctree.Listener) (synctree.Subscription, error) {
	r.mu.Lock()
	point := r.tree.PointAt(path)
	view, created := point.GetOrCreateView(filter)
	sub, _ := view.AddListener(t, cb)
	var tag int
	if created {
		tag = r.tags.Assign(path, filter)
	}
	r.mu.Unlock()

	if !created {
		return sub, nil
	}

	var wq *query.Filter
	if !filter.IsUnfiltered() {
		f := filter
		wq = &f
	}
	if _, err := r.conn.Listen(ctx, path, wq, tag); err != nil {
		r.mu.Lock()
		point.RemoveView(filter)
		r.tags.Remove(path, filter)
		r.mu.Unlock()
		return synctree.Subscription{}, err
	}
	return sub, nil
}

// RemoveListener unregisters sub from filter's View at path, tearing
// down the View and issuing conn.Unlisten once no listener of any type
// remains on it.
func (r *Repo) RemoveListener(ctx context.Context, path data.Path, filter query.Filter, sub synctree.Subscription) error {
	r.mu.Lock()
	point, ok := r.tree.ExistingPointAt(path)
	if !ok {
		r.mu.Unlock()
		return nil
	}
	view, ok := point.View(filter)
	if !ok {
		r.mu.Unlock()
		return nil
	}
	if !view.RemoveListener(sub) {
		r.mu.Unlock()
		return nil
	}
	point.RemoveView(filter)
	tag := r.tags.Assign(path, filter)
	r.tags.Remove(path, filter)
	r.mu.Unlock()

	var wq *query.Filter
	if !filter.IsUnfiltered() {
		f := filter
		wq = &f
	}
	return r.conn.Unlisten(ctx, path, wq, tag)
}

// Set resolves value's sentinels, appends a pending write, applies it
// locally, and submits it to the Connection, acking the write log entry
// on completion either way (spec.md §3 "Pending write" lifecycle).
func (r *Repo) Set(ctx context.Context, path data.Path, value *data.TSD) error {
	resolved := data.ResolveSentinels(value, r.conn.ServerTime())

	r.mu.Lock()
	writeID := r.log.NextWriteID()
	w := r.tree.ApplyUserOverwrite(path, resolved, writeID, true)
	r.log.Add(w)
	r.sched.Drain()
	r.mu.Unlock()

	err := r.conn.Put(ctx, path, resolved, "")

	r.mu.Lock()
	r.log.Remove(writeID)
	r.tree.ApplyAck(path, writeID)
	r.sched.Drain()
	r.mu.Unlock()
	return err
}

// Merge resolves changedChildren's sentinels and submits a merge write,
// mirroring Set's lifecycle for a group of per-child overwrites
// committed atomically under one writeId (spec.md §4.3 applyUserMerge).
func (r *Repo) Merge(ctx context.Context, path data.Path, changedChildren map[data.Name]*data.TSD) error {
	resolved := make(map[data.Name]*data.TSD, len(changedChildren))
	now := r.conn.ServerTime()
	for name, child := range changedChildren {
		resolved[name] = data.ResolveSentinels(child, now)
	}

	r.mu.Lock()
	writeID := r.log.NextWriteID()
	w := r.tree.ApplyUserMerge(path, resolved, writeID, true)
	r.log.Add(w)
	r.sched.Drain()
	r.mu.Unlock()

	err := r.conn.Merge(ctx, path, resolved)

	r.mu.Lock()
	r.log.Remove(writeID)
	r.tree.ApplyAck(path, writeID)
	r.sched.Drain()
	r.mu.Unlock()
	return err
}

// Push generates a new push-id child of path and Sets value there,
// returning the child's full path (spec.md §4.5). pushid.Generator
// guards its own counter, so Push needs no lock of its own beyond the
// one Set already takes.
func (r *Repo) Push(ctx context.Context, path data.Path, value *data.TSD) (data.Path, error) {
	id := r.push.Next(r.conn.ServerTime())
	child := path.Child(data.Name(id))
	return child, r.Set(ctx, child, value)
}

// Transact runs an optimistic compare-and-set transaction at path
// (spec.md §4.6) and blocks until it completes, fails, or ctx is
// cancelled. The transaction engine's own network round trips (sent
// from within Drain, via TransactionsTree.send) happen while mu is
// held: they correlate by request id on the Connection itself, never
// by waiting on the demux goroutine, so holding mu here only serializes
// other local mutations against this round trip, it cannot deadlock
// against demux.
func (r *Repo) Transact(ctx context.Context, path data.Path, update txn.UpdateFunc, applyLocally bool) (*data.TSD, error) {
	r.mu.Lock()
	tx := r.txns.Create(ctx, path, update, applyLocally)
	r.sched.Drain()

	resultCh := make(chan struct {
		value *data.TSD
		err   error
	}, 1)
	tx.Completer.OnComplete(func(value *data.TSD, err error) {
		resultCh <- struct {
			value *data.TSD
			err   error
		}{value, err}
	})
	r.sched.Drain()
	r.mu.Unlock()

	select {
	case res := <-resultCh:
		return res.value, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// OnDisconnectSet registers value to be applied locally and forwards
// the registration to the Connection, matching the dual bookkeeping
// spec.md §4.7 requires (the sparse tree is this core's own local
// simulation of the server's disconnect handler).
func (r *Repo) OnDisconnectSet(ctx context.Context, path data.Path, value *data.TSD) error {
	r.mu.Lock()
	r.disc.Remember(path, value)
	r.mu.Unlock()
	return r.conn.OnDisconnectPut(ctx, path, value)
}

// OnDisconnectMerge is OnDisconnectSet's merge-shaped counterpart.
func (r *Repo) OnDisconnectMerge(ctx context.Context, path data.Path, changedChildren map[data.Name]*data.TSD) error {
	r.mu.Lock()
	r.disc.Remember(path, data.Children(changedChildren))
	r.mu.Unlock()
	return r.conn.OnDisconnectMerge(ctx, path, changedChildren)
}

// OnDisconnectCancel forgets any onDisconnect registration at path,
// locally and on the Connection.
func (r *Repo) OnDisconnectCancel(ctx context.Context, path data.Path) error {
	r.mu.Lock()
	r.disc.Forget(path)
	r.mu.Unlock()
	return r.conn.OnDisconnectCancel(ctx, path)
}

// Abort aborts every transaction at or below path (spec.md §4.6 "Abort
// semantics").
func (r *Repo) Abort(path data.Path, reason error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	err := r.txns.Abort(path, reason)
	r.sched.Drain()
	return err
}

// Close cancels the demux loop, unlistens every active tag concurrently
// via errgroup, and closes the underlying Connection (spec.md §5
// "Cancellation": in-flight puts reject, pending transactions fail via
// the Connection's own teardown).
func (r *Repo) Close(ctx context.Context) error {
	r.cancel()

	type unlistenJob struct {
		path   data.Path
		filter query.Filter
		tag    int
	}

	r.mu.Lock()
	tags := r.tags.AllTags()
	jobs := make([]unlistenJob, 0, len(tags))
	for _, tag := range tags {
		path, filter, ok := r.tags.Lookup(tag)
		if !ok {
			continue
		}
		jobs = append(jobs, unlistenJob{path, filter, tag})
	}
	r.mu.Unlock()

	g, ctx := errgroup.WithContext(ctx)
	for _, job := range jobs {
		job := job
		g.Go(func() error {
			var wq *query.Filter
			if !job.filter.IsUnfiltered() {
				f := job.filter
				wq = &f
			}
			return r.conn.Unlisten(ctx, job.path, wq, job.tag)
		})
	}
	if err := g.Wait(); err != nil {
		log.Printf("repo: unlisten during close: %v", err)
	}
	return r.conn.Close()
}
