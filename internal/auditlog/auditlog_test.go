package auditlog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteRepositoryRecordsAndLists(t *testing.T) {
	ctx := context.Background()
	repo, err := OpenSQLiteRepository(ctx, ":memory:")
	require.NoError(t, err)
	defer repo.Close()

	now := time.Date(2026, 8, 6, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Record(ctx, Record{
		TxnID:       "t1",
		Path:        "a/b",
		Attempts:    1,
		ResultJSON:  `{"x":1}`,
		CommittedAt: now,
	}))
	require.NoError(t, repo.Record(ctx, Record{
		TxnID:       "t2",
		Path:        "a/b",
		Attempts:    4,
		Aborted:     true,
		AbortReason: "retry cap exceeded",
		CommittedAt: now.Add(time.Second),
	}))
	require.NoError(t, repo.Record(ctx, Record{
		TxnID:       "t3",
		Path:        "a/c",
		Attempts:    1,
		CommittedAt: now,
	}))

	records, err := repo.ListByPath(ctx, "a/b", 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "t2", records[0].TxnID) // most recent first
	assert.True(t, records[0].Aborted)
	assert.Equal(t, "retry cap exceeded", records[0].AbortReason)
	assert.Equal(t, "t1", records[1].TxnID)
	assert.Equal(t, `{"x":1}`, records[1].ResultJSON)
}

func TestSQLiteRepositoryRecordUpsertsOnConflict(t *testing.T) {
	ctx := context.Background()
	repo, err := OpenSQLiteRepository(ctx, ":memory:")
	require.NoError(t, err)
	defer repo.Close()

	now := time.Now().UTC()
	require.NoError(t, repo.Record(ctx, Record{TxnID: "t1", Path: "a", Attempts: 1, CommittedAt: now}))
	require.NoError(t, repo.Record(ctx, Record{TxnID: "t1", Path: "a", Attempts: 2, CommittedAt: now}))

	records, err := repo.ListByPath(ctx, "a", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 2, records[0].Attempts)
}
