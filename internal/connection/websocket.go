package connection

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/latticedb/sync-core/internal/data"
	"github.com/latticedb/sync-core/internal/query"
	"github.com/latticedb/sync-core/internal/txn"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = 54 * time.Second
	readLimitBytes = 4 << 20
)

// WebSocketConnection is the reference Connection implementation
// (spec.md §6) over a single gorilla/websocket duplex channel, grounded
// on the read-pump/write-pump/ping-ticker shape the teacher's
// WebSocketServer uses for its own connections.
type WebSocketConnection struct {
	conn *websocket.Conn

	mu        sync.Mutex
	nextReqID int64
	pending   map[int64]chan Frame

	onConnect chan bool
	messages  chan Message

	serverTime int64 // atomic, millis

	closeOnce sync.Once
	closed    chan struct{}
}

// Dial opens a WebSocketConnection to url and starts its pumps.
func Dial(ctx context.Context, rawURL string) (*WebSocketConnection, error) {
	if _, err := url.Parse(rawURL); err != nil {
		return nil, fmt.Errorf("connection: invalid url: %w", err)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("connection: dial: %w", err)
	}
	return newWebSocketConnection(conn), nil
}

func newWebSocketConnection(conn *websocket.Conn) *WebSocketConnection {
	c := &WebSocketConnection{
		conn:      conn,
		pending:   make(map[int64]chan Frame),
		onConnect: make(chan bool, 1),
		messages:  make(chan Message, 64),
		closed:    make(chan struct{}),
	}
	c.onConnect <- true
	go c.readPump()
	go c.pingLoop()
	return c
}

func (c *WebSocketConnection) OnConnect() <-chan bool   { return c.onConnect }
func (c *WebSocketConnection) Messages() <-chan Message { return c.messages }
func (c *WebSocketConnection) ServerTime() int64        { return atomic.LoadInt64(&c.serverTime) }

func (c *WebSocketConnection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		err = c.conn.Close()
		c.failPending()
		select {
		case c.onConnect <- false:
		default:
		}
	})
	return err
}

func (c *WebSocketConnection) failPending() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, ch := range c.pending {
		delete(c.pending, id)
		ch <- Frame{Status: "error", Code: "transport"}
	}
}

// request sends f with a freshly assigned ReqID and blocks for the
// matching response frame, or ctx's cancellation.
func (c *WebSocketConnection) request(ctx context.Context, f Frame) (Frame, error) {
	c.mu.Lock()
	c.nextReqID++
	f.ReqID = c.nextReqID
	f.Type = "request"
	ch := make(chan Frame, 1)
	c.pending[f.ReqID] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, f.ReqID)
		c.mu.Unlock()
	}()

	raw, err := EncodeFrame(f)
	if err != nil {
		return Frame{}, fmt.Errorf("connection: encode request: %w", err)
	}
	if err := c.writeMessage(raw); err != nil {
		return Frame{}, fmt.Errorf("connection: write request: %w", err)
	}

	select {
	case resp := <-ch:
		if resp.Status == "error" {
			return resp, &txn.ServerError{Code: resp.Code}
		}
		return resp, nil
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	case <-c.closed:
		return Frame{}, fmt.Errorf("connection: closed while awaiting response")
	}
}

func (c *WebSocketConnection) writeMessage(raw []byte) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, raw)
}

func (c *WebSocketConnection) Auth(ctx context.Context, token string) (AuthData, error) {
	resp, err := c.request(ctx, Frame{Action: "auth", Token: token})
	if err != nil {
		return nil, err
	}
	return resp.Auth, nil
}

func (c *WebSocketConnection) Unauth(ctx context.Context) error {
	_, err := c.request(ctx, Frame{Action: "unauth"})
	return err
}

func (c *WebSocketConnection) Put(ctx context.Context, path data.Path, value *data.TSD, expectedHash string) error {
	_, err := c.request(ctx, Frame{Action: "put", Path: path.String(), Data: data.ToWire(value), Hash: expectedHash})
	return err
}

func (c *WebSocketConnection) Merge(ctx context.Context, path data.Path, changedChildren map[data.Name]*data.TSD) error {
	_, err := c.request(ctx, Frame{Action: "merge", Path: path.String(), Data: EncodeChangedChildren(changedChildren)})
	return err
}

func (c *WebSocketConnection) Listen(ctx context.Context, path data.Path, filter *query.Filter, tag int) (ListenResult, error) {
	var wq *query.WireQuery
	if filter != nil {
		wq = filter.ToWireQuery()
	}
	resp, err := c.request(ctx, Frame{Action: "listen", Path: path.String(), Query: wq, Tag: &tag})
	if err != nil {
		return ListenResult{}, err
	}
	return ListenResult{Warnings: resp.Warnings}, nil
}

func (c *WebSocketConnection) Unlisten(ctx context.Context, path data.Path, filter *query.Filter, tag int) error {
	var wq *query.WireQuery
	if filter != nil {
		wq = filter.ToWireQuery()
	}
	_, err := c.request(ctx, Frame{Action: "unlisten", Path: path.String(), Query: wq, Tag: &tag})
	return err
}

func (c *WebSocketConnection) OnDisconnectPut(ctx context.Context, path data.Path, value *data.TSD) error {
	_, err := c.request(ctx, Frame{Action: "onDisconnectPut", Path: path.String(), Data: data.ToWire(value)})
	return err
}

func (c *WebSocketConnection) OnDisconnectMerge(ctx context.Context, path data.Path, changedChildren map[data.Name]*data.TSD) error {
	_, err := c.request(ctx, Frame{Action: "onDisconnectMerge", Path: path.String(), Data: EncodeChangedChildren(changedChildren)})
	return err
}

func (c *WebSocketConnection) OnDisconnectCancel(ctx context.Context, path data.Path) error {
	_, err := c.request(ctx, Frame{Action: "onDisconnectCancel", Path: path.String()})
	return err
}

func (c *WebSocketConnection) pingLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.closed:
			return
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		}
	}
}

func (c *WebSocketConnection) readPump() {
	defer c.Close()
	c.conn.SetReadLimit(readLimitBytes)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		f, err := DecodeFrame(raw)
		if err != nil {
			continue
		}
		if f.ServerTime > 0 {
			atomic.StoreInt64(&c.serverTime, f.ServerTime)
		}
		c.dispatch(f)
	}
}

func (c *WebSocketConnection) dispatch(f Frame) {
	switch f.Type {
	case "response":
		c.mu.Lock()
		ch, ok := c.pending[f.ReqID]
		c.mu.Unlock()
		if ok {
			ch <- f
		}
	case "push":
		if f.Action == string(ActionAuthRevoked) {
			c.messages <- Message{Action: ActionAuthRevoked}
			return
		}
		c.messages <- PushToMessage(f)
	}
}
