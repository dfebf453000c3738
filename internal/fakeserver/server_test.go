package fakeserver

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latticedb/sync-core/internal/connection"
	"github.com/latticedb/sync-core/internal/data"
	"github.com/latticedb/sync-core/internal/query"
	"github.com/latticedb/sync-core/internal/txn"
)

func dialTestServer(t *testing.T, s *Server) (*connection.WebSocketConnection, func()) {
	httpSrv := httptest.NewServer(s)
	wsURL := "ws" + strings.TrimPrefix(httpSrv.URL, "http")
	conn, err := connection.Dial(context.Background(), wsURL)
	require.NoError(t, err)
	return conn, func() {
		conn.Close()
		httpSrv.Close()
	}
}

func TestPutThenListenSeesCommittedValue(t *testing.T) {
	s := NewServer()
	conn, closeAll := dialTestServer(t, s)
	defer closeAll()

	path := data.ParsePath("a/b")
	require.NoError(t, conn.Put(context.Background(), path, data.Leaf(int64(7)), ""))

	_, err := conn.Listen(context.Background(), path, nil, 1)
	require.NoError(t, err)

	select {
	case msg := <-conn.Messages():
		assert.Equal(t, connection.ActionSet, msg.Action)
		assert.Equal(t, float64(7), msg.Data.Value()) // JSON numbers decode as float64
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for initial listen push")
	}
}

func TestListenReceivesPushOnSubsequentPut(t *testing.T) {
	s := NewServer()
	conn, closeAll := dialTestServer(t, s)
	defer closeAll()

	path := data.ParsePath("a")
	_, err := conn.Listen(context.Background(), path, nil, 1)
	require.NoError(t, err)

	select { // discard the initial (absent) push
	case <-conn.Messages():
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for initial listen push")
	}

	require.NoError(t, conn.Put(context.Background(), path, data.Leaf("hello"), ""))

	select {
	case msg := <-conn.Messages():
		assert.Equal(t, "hello", msg.Data.Value())
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for put push")
	}
}

func TestConditionalPutRejectsOnHashMismatch(t *testing.T) {
	s := NewServer()
	conn, closeAll := dialTestServer(t, s)
	defer closeAll()

	path := data.ParsePath("a")
	err := conn.Put(context.Background(), path, data.Leaf(int64(1)), data.Hash(nil)+"stale")
	require.Error(t, err)
	se, ok := err.(*txn.ServerError)
	require.True(t, ok)
	assert.Equal(t, txn.CodeDataStale, se.Code)
}

func TestConditionalPutCommitsOnHashMatch(t *testing.T) {
	s := NewServer()
	conn, closeAll := dialTestServer(t, s)
	defer closeAll()

	path := data.ParsePath("a")
	require.NoError(t, conn.Put(context.Background(), path, data.Leaf(int64(1)), data.Hash(nil)))

	_, err := conn.Listen(context.Background(), path, nil, 1)
	require.NoError(t, err)
	select {
	case msg := <-conn.Messages():
		assert.Equal(t, float64(1), msg.Data.Value())
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for listen push")
	}
}

func TestInjectDataStaleForcesRejectionRegardlessOfHash(t *testing.T) {
	s := NewServer()
	conn, closeAll := dialTestServer(t, s)
	defer closeAll()

	path := data.ParsePath("a")
	s.InjectDataStale("a", 1)

	err := conn.Put(context.Background(), path, data.Leaf(int64(1)), data.Hash(nil))
	require.Error(t, err)

	require.NoError(t, conn.Put(context.Background(), path, data.Leaf(int64(1)), data.Hash(nil)))
}

func TestOnDisconnectPutReplaysAfterClose(t *testing.T) {
	s := NewServer()
	watcherConn, closeWatcher := dialTestServer(t, s)
	defer closeWatcher()

	path := data.ParsePath("a/b")
	_, err := watcherConn.Listen(context.Background(), path, nil, 1)
	require.NoError(t, err)
	<-watcherConn.Messages() // discard initial push

	writerConn, err := connection.Dial(context.Background(), watcherURL(t, s))
	require.NoError(t, err)
	require.NoError(t, writerConn.OnDisconnectPut(context.Background(), path, data.Leaf("bye")))
	require.NoError(t, writerConn.Close())

	select {
	case msg := <-watcherConn.Messages():
		assert.Equal(t, "bye", msg.Data.Value())
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for onDisconnect replay push")
	}
}

func TestListenWithFilterWindowsChildren(t *testing.T) {
	s := NewServer()
	conn, closeAll := dialTestServer(t, s)
	defer closeAll()

	path := data.ParsePath("a")
	require.NoError(t, conn.Put(context.Background(), path.Child("x"), data.Leaf(int64(3)), ""))
	require.NoError(t, conn.Put(context.Background(), path.Child("y"), data.Leaf(int64(1)), ""))
	require.NoError(t, conn.Put(context.Background(), path.Child("z"), data.Leaf(int64(2)), ""))

	filter := query.Filter{OrderBy: query.OrderByValue, Limit: 2, Reverse: true}
	_, err := conn.Listen(context.Background(), path, &filter, 1)
	require.NoError(t, err)

	select {
	case msg := <-conn.Messages():
		require.NotNil(t, msg.Data)
		assert.Nil(t, msg.Data.GetChild("y")) // smallest value, dropped by the limit window
		assert.Equal(t, float64(3), msg.Data.GetChild("x").Value())
		assert.Equal(t, float64(2), msg.Data.GetChild("z").Value())
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for filtered listen push")
	}
}

func watcherURL(t *testing.T, s *Server) string {
	httpSrv := httptest.NewServer(s)
	t.Cleanup(httpSrv.Close)
	return "ws" + strings.TrimPrefix(httpSrv.URL, "http")
}
