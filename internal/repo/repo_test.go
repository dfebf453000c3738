package repo

import (
	"context"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latticedb/sync-core/internal/connection"
	"github.com/latticedb/sync-core/internal/connection/mocks"
	"github.com/latticedb/sync-core/internal/data"
	"github.com/latticedb/sync-core/internal/query"
	"github.com/latticedb/sync-core/internal/synctree"
)

func newTestRepo(t *testing.T) (*Repo, *mocks.MockConnection) {
	ctrl := gomock.NewController(t)
	conn := mocks.NewMockConnection(ctrl)

	onConnectCh := make(chan bool, 1)
	messagesCh := make(chan connection.Message, 8)
	conn.EXPECT().OnConnect().Return((<-chan bool)(onConnectCh)).AnyTimes()
	conn.EXPECT().Messages().Return((<-chan connection.Message)(messagesCh)).AnyTimes()
	conn.EXPECT().ServerTime().Return(int64(1000)).AnyTimes()

	r := New("test://repo", conn)
	t.Cleanup(func() {
		conn.EXPECT().Close().Return(nil).AnyTimes()
		r.Close(context.Background())
	})
	return r, conn
}

func TestSetAppliesLocallyAndAcksOnSuccess(t *testing.T) {
	r, conn := newTestRepo(t)
	path := data.ParsePath("a")

	conn.EXPECT().Listen(gomock.Any(), path, (*query.Filter)(nil), gomock.Any()).Return(connection.ListenResult{}, nil)
	_, err := r.AddListener(context.Background(), path, query.Filter{}, synctree.EventValue, func(synctree.Event) {})
	require.NoError(t, err)

	// The server echoes the committed value as an actionSet before the
	// put succeeds; the ack then drops the pending write.
	conn.EXPECT().Put(gomock.Any(), path, gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, p data.Path, value *data.TSD, _ string) error {
			r.mu.Lock()
			r.handleMessage(connection.Message{Action: connection.ActionSet, Path: p, Data: value})
			r.mu.Unlock()
			return nil
		})
	err = r.Set(context.Background(), path, data.Leaf(int64(5)))
	require.NoError(t, err)

	assert.Equal(t, int64(5), r.CachedValue(path).Value())
}

func TestSetRevertsOnFailure(t *testing.T) {
	r, conn := newTestRepo(t)
	path := data.ParsePath("a")

	conn.EXPECT().Listen(gomock.Any(), path, (*query.Filter)(nil), gomock.Any()).Return(connection.ListenResult{}, nil)
	_, err := r.AddListener(context.Background(), path, query.Filter{}, synctree.EventValue, func(synctree.Event) {})
	require.NoError(t, err)

	conn.EXPECT().Put(gomock.Any(), path, gomock.Any(), gomock.Any()).Return(&mockTransportError{})
	err = r.Set(context.Background(), path, data.Leaf(int64(5)))
	require.Error(t, err)

	assert.Nil(t, r.CachedValue(path))
}

func TestTransactCommitsWithoutConflict(t *testing.T) {
	r, conn := newTestRepo(t)
	path := data.ParsePath("n")

	conn.EXPECT().Put(gomock.Any(), path, gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, _ data.Path, value *data.TSD, _ string) error {
			return nil
		})

	result, err := r.Transact(context.Background(), path, func(current *data.TSD) (*data.TSD, error) {
		if current == nil {
			return data.Leaf(int64(1)), nil
		}
		return data.Leaf(current.Value().(int64) + 1), nil
	}, true)

	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Value())
}

func TestRemoveListenerUnlistensOnceEmpty(t *testing.T) {
	r, conn := newTestRepo(t)
	path := data.ParsePath("a")

	conn.EXPECT().Listen(gomock.Any(), path, (*query.Filter)(nil), gomock.Any()).Return(connection.ListenResult{}, nil)
	sub, err := r.AddListener(context.Background(), path, query.Filter{}, synctree.EventValue, func(synctree.Event) {})
	require.NoError(t, err)

	conn.EXPECT().Unlisten(gomock.Any(), path, (*query.Filter)(nil), gomock.Any()).Return(nil)
	err = r.RemoveListener(context.Background(), path, query.Filter{}, sub)
	require.NoError(t, err)
}

type mockTransportError struct{}

func (e *mockTransportError) Error() string { return "transport error" }
