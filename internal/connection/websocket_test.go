package connection

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/latticedb/sync-core/internal/data"
	"github.com/latticedb/sync-core/internal/txn"
)

// echoServer accepts one websocket connection, answers its first
// request with an "ok" response, then pushes one actionSet frame.
func echoServer(t *testing.T) *httptest.Server {
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		req, err := DecodeFrame(raw)
		require.NoError(t, err)

		resp, _ := EncodeFrame(Frame{Type: "response", ReqID: req.ReqID, Status: "ok", ServerTime: 4242})
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, resp))

		push, _ := EncodeFrame(Frame{Type: "push", Action: string(ActionSet), Path: "a", Data: data.ToWire(data.Leaf(int64(9)))})
		conn.WriteMessage(websocket.TextMessage, push)

		time.Sleep(50 * time.Millisecond)
	}))
}

func TestPutRoundTripsAndUpdatesServerTime(t *testing.T) {
	srv := echoServer(t)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, err := Dial(context.Background(), wsURL)
	require.NoError(t, err)
	defer conn.Close()

	err = conn.Put(context.Background(), data.ParsePath("a"), data.Leaf(int64(1)), "h")
	require.NoError(t, err)
	require.Equal(t, int64(4242), conn.ServerTime())

	select {
	case msg := <-conn.Messages():
		require.Equal(t, ActionSet, msg.Action)
		require.Equal(t, "a", msg.Path.String())
		require.Equal(t, float64(9), msg.Data.Value()) // JSON numbers decode as float64
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for pushed message")
	}
}

func TestPutPropagatesServerErrorCode(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		req, _ := DecodeFrame(raw)
		resp, _ := EncodeFrame(Frame{Type: "response", ReqID: req.ReqID, Status: "error", Code: "datastale"})
		conn.WriteMessage(websocket.TextMessage, resp)
		time.Sleep(50 * time.Millisecond)
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, err := Dial(context.Background(), wsURL)
	require.NoError(t, err)
	defer conn.Close()

	err = conn.Put(context.Background(), data.ParsePath("a"), data.Leaf(int64(1)), "h")
	require.Error(t, err)
	require.True(t, txn.IsDataStale(err))
}
