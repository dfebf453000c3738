package txn

import (
	"context"
	"testing"

	"github.com/latticedb/sync-core/internal/data"
	"github.com/latticedb/sync-core/internal/query"
	"github.com/latticedb/sync-core/internal/synctree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSender models the server side of a conditional put for tests: the
// first call fails with datastale and, as the scenario in spec.md §8 S3
// requires, lets a server overwrite land before the engine reruns; every
// call after that commits whatever value it is given.
type fakeSender struct {
	tree    *synctree.SyncTree
	attempt int
	onFirst func()
}

func (f *fakeSender) Put(_ context.Context, path data.Path, value *data.TSD, _ string) error {
	f.attempt++
	if f.attempt == 1 {
		if f.onFirst != nil {
			f.onFirst()
		}
		return &ServerError{Code: CodeDataStale}
	}
	f.tree.ApplyServerOverwrite(path, nil, value)
	return nil
}

func incrementUpdate(current *data.TSD) (*data.TSD, error) {
	v, _ := current.Value().(int64)
	return data.Leaf(v + 1), nil
}

// S3: a datastale conflict forces exactly one rerun against the
// refreshed server value before the transaction commits.
func TestScenarioTransactionConflictThenCommit(t *testing.T) {
	sched := synctree.NewScheduler()
	tree := synctree.NewSyncTree(sched)
	path := data.ParsePath("n")
	tree.ApplyServerOverwrite(path, nil, data.Leaf(int64(5)))

	sender := &fakeSender{tree: tree}
	sender.onFirst = func() { tree.ApplyServerOverwrite(path, nil, data.Leaf(int64(7))) }

	var nextWrite int64
	tt := NewTransactionsTree(sender, tree, sched,
		func() int64 { id := nextWrite; nextWrite++; return id },
		func() int64 { return 0 },
	)

	var result *data.TSD
	var resultErr error
	done := false

	tx := tt.Create(context.Background(), path, incrementUpdate, true)
	tx.Completer.OnComplete(func(r *data.TSD, err error) {
		done, result, resultErr = true, r, err
	})
	sched.Drain()

	require.True(t, done)
	require.NoError(t, resultErr)
	assert.Equal(t, int64(8), result.Value())
	assert.Equal(t, 2, sender.attempt)
}

// A plain, uncontested transaction commits on the first send.
func TestTransactionCommitsWithoutConflict(t *testing.T) {
	sched := synctree.NewScheduler()
	tree := synctree.NewSyncTree(sched)
	path := data.ParsePath("n")
	tree.PointAt(path).GetOrCreateView(query.Filter{})
	tree.ApplyServerOverwrite(path, nil, data.Leaf(int64(1)))

	sender := &blockingSender{}
	tt := NewTransactionsTree(sender, tree, sched,
		func() int64 { return 0 },
		func() int64 { return 0 },
	)

	var result *data.TSD
	tx := tt.Create(context.Background(), path, incrementUpdate, true)
	tx.Completer.OnComplete(func(r *data.TSD, err error) { result = r })
	sched.Drain()

	assert.Equal(t, int64(2), result.Value())
	assert.Equal(t, 1, sender.calls)
}

// Invariant 6: a transaction that keeps hitting datastale fails with
// ErrMaxRetries rather than sending forever.
func TestTransactionFailsAfterMaxRetries(t *testing.T) {
	sched := synctree.NewScheduler()
	tree := synctree.NewSyncTree(sched)
	path := data.ParsePath("n")
	tree.ApplyServerOverwrite(path, nil, data.Leaf(int64(0)))

	alwaysStale := &alwaysStaleSender{}
	tt := NewTransactionsTree(alwaysStale, tree, sched,
		func() int64 { return 0 },
		func() int64 { return 0 },
	)

	var resultErr error
	done := false
	tx := tt.Create(context.Background(), path, incrementUpdate, true)
	tx.Completer.OnComplete(func(_ *data.TSD, err error) { done, resultErr = true, err })
	sched.Drain()

	require.True(t, done)
	assert.ErrorIs(t, resultErr, ErrMaxRetries)
	assert.LessOrEqual(t, tx.RetryCount, MaxRetries)
}

type alwaysStaleSender struct{}

func (*alwaysStaleSender) Put(context.Context, data.Path, *data.TSD, string) error {
	return &ServerError{Code: CodeDataStale}
}

// Abort semantics: a run-in-progress transaction fails immediately with
// ErrSet. Sending happens on the next scheduler tick, so Abort called
// right after Create always wins the race against Send.
func TestAbortFailsRunningTransactionImmediately(t *testing.T) {
	sched := synctree.NewScheduler()
	tree := synctree.NewSyncTree(sched)
	path := data.ParsePath("n")
	tree.ApplyServerOverwrite(path, nil, data.Leaf(int64(1)))

	blocking := &blockingSender{}
	tt := NewTransactionsTree(blocking, tree, sched,
		func() int64 { return 0 },
		func() int64 { return 0 },
	)

	var resultErr error
	done := false
	tx := tt.Create(context.Background(), path, incrementUpdate, true)
	tx.Completer.OnComplete(func(_ *data.TSD, err error) { done, resultErr = true, err })

	assert.Equal(t, StatusRun, tx.Status)
	require.NoError(t, tt.Abort(path, nil))
	sched.Drain()

	require.True(t, done)
	assert.ErrorIs(t, resultErr, ErrSet)
	assert.Zero(t, blocking.calls)
}

type blockingSender struct{ calls int }

func (b *blockingSender) Put(context.Context, data.Path, *data.TSD, string) error {
	b.calls++
	return nil
}
