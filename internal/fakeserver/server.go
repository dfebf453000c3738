// Package fakeserver is an in-process authoritative server speaking the
// same connection.Frame wire protocol internal/connection's
// WebSocketConnection client speaks (spec.md §6), grounded on the
// teacher's WebSocketServer/WebSocketConnection read-pump/write-pump
// shape (internal/rpc/websocket.go). It exists for integration tests
// and demos that need a real round trip without a production
// Firebase-Realtime-Database-compatible backend: one authoritative TSD
// tree, listen fan-out driven by query.Filter, server-side onDisconnect
// replay, and injectable "datastale" rejections for exercising the
// transaction retry path end to end.
package fakeserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/latticedb/sync-core/internal/auditlog"
	"github.com/latticedb/sync-core/internal/blobstore"
	"github.com/latticedb/sync-core/internal/connection"
	"github.com/latticedb/sync-core/internal/data"
	"github.com/latticedb/sync-core/internal/query"
	"github.com/latticedb/sync-core/internal/txn"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = 54 * time.Second
	readLimitBytes = 4 << 20
	sendBuffer     = 256
)

// registration is one connection's listen: spec.md §4.1's Filter at a
// path, keyed by the tag the client chose.
type registration struct {
	path   data.Path
	filter query.Filter
}

type onDisconnectOp struct {
	merge    bool
	value    *data.TSD                 // set when !merge
	children map[data.Name]*data.TSD   // set when merge
}

// serverConn is one upgraded websocket, grounded on the teacher's
// WebSocketConnection.
type serverConn struct {
	id     string
	ws     *websocket.Conn
	send   chan []byte
	ctx    context.Context
	cancel context.CancelFunc

	closeOnce sync.Once

	mu           sync.Mutex
	listens      map[int]registration
	onDisconnect map[string]onDisconnectOp // keyed by Path.String()
	attempts     map[string]int           // conditional-put retry counter, keyed by Path.String()
}

// Server is the authoritative in-process server. The zero value is not
// usable; construct with NewServer.
type Server struct {
	upgrader websocket.Upgrader

	mu   sync.Mutex
	root *data.TSD
	conns map[string]*serverConn

	store *blobstore.Store     // optional: persists committed values
	audit auditlog.Repository  // optional: records conditional-put commits

	staleMu     sync.Mutex
	forcedStale map[string]int // Path.String() -> remaining forced datastale rejections

	nextConnID int64
}

// Option configures a Server at construction.
type Option func(*Server)

// WithBlobstore persists every committed value through store.
func WithBlobstore(store *blobstore.Store) Option {
	return func(s *Server) { s.store = store }
}

// WithAuditLog records every conditional put (a transaction commit, in
// spec.md §4.5 terms) to repo.
func WithAuditLog(repo auditlog.Repository) Option {
	return func(s *Server) { s.audit = repo }
}

// NewServer constructs a Server with an empty authoritative tree.
func NewServer(opts ...Option) *Server {
	s := &Server{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		conns:       make(map[string]*serverConn),
		forcedStale: make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// InjectDataStale forces the next n conditional puts at path to fail
// with a "datastale" ServerError regardless of whether their expected
// hash actually matches, for testing a transaction's retry loop.
func (s *Server) InjectDataStale(path string, n int) {
	s.staleMu.Lock()
	defer s.staleMu.Unlock()
	s.forcedStale[path] = n
}

func (s *Server) consumeForcedStale(path string) bool {
	s.staleMu.Lock()
	defer s.staleMu.Unlock()
	n, ok := s.forcedStale[path]
	if !ok || n <= 0 {
		return false
	}
	s.forcedStale[path] = n - 1
	return true
}

// ServeHTTP upgrades the request to a websocket and starts the
// connection's read/write pumps.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("fakeserver: upgrade failed: %v", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	sc := &serverConn{
		id:           fmt.Sprintf("conn-%d", atomic.AddInt64(&s.nextConnID, 1)),
		ws:           conn,
		send:         make(chan []byte, sendBuffer),
		ctx:          ctx,
		cancel:       cancel,
		listens:      make(map[int]registration),
		onDisconnect: make(map[string]onDisconnectOp),
		attempts:     make(map[string]int),
	}

	s.mu.Lock()
	s.conns[sc.id] = sc
	s.mu.Unlock()

	go s.writePump(sc)
	go s.readPump(sc)
}

// Close tears down every open connection, replaying each one's
// onDisconnect writes first.
func (s *Server) Close() error {
	s.mu.Lock()
	conns := make([]*serverConn, 0, len(s.conns))
	for _, c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		s.closeConnection(c)
	}
	return nil
}

func (s *Server) readPump(sc *serverConn) {
	defer s.closeConnection(sc)

	sc.ws.SetReadLimit(readLimitBytes)
	sc.ws.SetReadDeadline(time.Now().Add(pongWait))
	sc.ws.SetPongHandler(func(string) error {
		sc.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := sc.ws.ReadMessage()
		if err != nil {
			return
		}
		f, err := connection.DecodeFrame(raw)
		if err != nil {
			continue
		}
		sc.sendFrame(s.handleFrame(sc, f))
	}
}

func (s *Server) writePump(sc *serverConn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-sc.ctx.Done():
			return
		case raw := <-sc.send:
			sc.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sc.ws.WriteMessage(websocket.TextMessage, raw); err != nil {
				return
			}
		case <-ticker.C:
			sc.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sc.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (sc *serverConn) sendFrame(f connection.Frame) {
	raw, err := connection.EncodeFrame(f)
	if err != nil {
		log.Printf("fakeserver: encode frame: %v", err)
		return
	}
	select {
	case sc.send <- raw:
	case <-sc.ctx.Done():
	default:
		log.Printf("fakeserver: send channel full, closing connection %s", sc.id)
		sc.cancel()
	}
}

func (s *Server) closeConnection(sc *serverConn) {
	sc.closeOnce.Do(func() {
		s.replayOnDisconnect(sc)

		s.mu.Lock()
		delete(s.conns, sc.id)
		s.mu.Unlock()

		sc.cancel()
		sc.ws.Close()
	})
}

func (s *Server) handleFrame(sc *serverConn, f connection.Frame) connection.Frame {
	resp := s.dispatch(sc, f)
	resp.Type = "response"
	resp.ReqID = f.ReqID
	resp.ServerTime = time.Now().UnixMilli()
	return resp
}

func (s *Server) dispatch(sc *serverConn, f connection.Frame) connection.Frame {
	switch f.Action {
	case "auth":
		return okResponse(func(r *connection.Frame) { r.Auth = connection.AuthData{"uid": f.Token} })
	case "unauth":
		return okResponse()
	case "put":
		return s.handlePut(sc, f)
	case "merge":
		return s.handleMerge(sc, f)
	case "listen":
		return s.handleListen(sc, f)
	case "unlisten":
		return s.handleUnlisten(sc, f)
	case "onDisconnectPut":
		return s.handleOnDisconnectPut(sc, f)
	case "onDisconnectMerge":
		return s.handleOnDisconnectMerge(sc, f)
	case "onDisconnectCancel":
		return s.handleOnDisconnectCancel(sc, f)
	default:
		return errorResponse("unknownAction")
	}
}

func okResponse(opts ...func(*connection.Frame)) connection.Frame {
	f := connection.Frame{Status: "ok"}
	for _, opt := range opts {
		opt(&f)
	}
	return f
}

func errorResponse(code string) connection.Frame {
	return connection.Frame{Status: "error", Code: code}
}

func (s *Server) handlePut(sc *serverConn, f connection.Frame) connection.Frame {
	path := data.ParsePath(f.Path)
	value := data.FromWire(f.Data)

	if f.Hash == "" {
		s.mu.Lock()
		s.root = setAtPath(s.root, path, value)
		jobs := s.fanoutLocked(path)
		s.mu.Unlock()

		s.pushAll(jobs)
		s.persist(value)
		return okResponse()
	}

	sc.mu.Lock()
	sc.attempts[f.Path]++
	attempts := sc.attempts[f.Path]
	sc.mu.Unlock()

	s.mu.Lock()
	current := getAtPath(s.root, path)
	if s.consumeForcedStale(f.Path) || data.Hash(current) != f.Hash {
		s.mu.Unlock()
		return errorResponse(txn.CodeDataStale)
	}
	s.root = setAtPath(s.root, path, value)
	jobs := s.fanoutLocked(path)
	s.mu.Unlock()

	s.pushAll(jobs)
	s.persist(value)

	sc.mu.Lock()
	delete(sc.attempts, f.Path)
	sc.mu.Unlock()

	s.recordCommit(path, value, attempts)
	return okResponse()
}

func (s *Server) handleMerge(sc *serverConn, f connection.Frame) connection.Frame {
	path := data.ParsePath(f.Path)
	changed := connection.DecodeChangedChildren(f.Data)

	s.mu.Lock()
	s.root = mergeAtPath(s.root, path, changed)
	jobs := s.fanoutLocked(path)
	s.mu.Unlock()

	s.pushAll(jobs)
	return okResponse()
}

func (s *Server) handleListen(sc *serverConn, f connection.Frame) connection.Frame {
	path := data.ParsePath(f.Path)
	filter := query.FromWireQuery(f.Query)
	tag := tagOf(f.Tag)

	sc.mu.Lock()
	sc.listens[tag] = registration{path: path, filter: filter}
	sc.mu.Unlock()

	s.mu.Lock()
	windowed := filterNode(getAtPath(s.root, path), filter)
	s.mu.Unlock()

	t := tag
	sc.sendFrame(connection.Frame{
		Type: "push", Action: string(connection.ActionSet),
		Path: path.String(), Data: data.ToWire(windowed), Tag: &t,
	})
	return okResponse()
}

func (s *Server) handleUnlisten(sc *serverConn, f connection.Frame) connection.Frame {
	sc.mu.Lock()
	delete(sc.listens, tagOf(f.Tag))
	sc.mu.Unlock()
	return okResponse()
}

func (s *Server) handleOnDisconnectPut(sc *serverConn, f connection.Frame) connection.Frame {
	value := data.FromWire(f.Data)
	sc.mu.Lock()
	sc.onDisconnect[f.Path] = onDisconnectOp{value: value}
	sc.mu.Unlock()
	return okResponse()
}

func (s *Server) handleOnDisconnectMerge(sc *serverConn, f connection.Frame) connection.Frame {
	changed := connection.DecodeChangedChildren(f.Data)
	sc.mu.Lock()
	sc.onDisconnect[f.Path] = onDisconnectOp{merge: true, children: changed}
	sc.mu.Unlock()
	return okResponse()
}

func (s *Server) handleOnDisconnectCancel(sc *serverConn, f connection.Frame) connection.Frame {
	sc.mu.Lock()
	delete(sc.onDisconnect, f.Path)
	sc.mu.Unlock()
	return okResponse()
}

// replayOnDisconnect applies sc's queued onDisconnect writes against
// the authoritative tree in path-sorted order, the way
// internal/disconnect.Manager replays them against the local tree:
// deterministic, one path at a time.
func (s *Server) replayOnDisconnect(sc *serverConn) {
	sc.mu.Lock()
	ops := sc.onDisconnect
	sc.onDisconnect = nil
	sc.mu.Unlock()

	if len(ops) == 0 {
		return
	}

	paths := make([]string, 0, len(ops))
	for p := range ops {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var jobs []pushJob
	s.mu.Lock()
	for _, p := range paths {
		op := ops[p]
		path := data.ParsePath(p)
		if op.merge {
			s.root = mergeAtPath(s.root, path, op.children)
		} else {
			s.root = setAtPath(s.root, path, op.value)
		}
		jobs = append(jobs, s.fanoutLocked(path)...)
	}
	s.mu.Unlock()

	s.pushAll(jobs)
}

type pushJob struct {
	conn  *serverConn
	frame connection.Frame
}

// fanoutLocked must be called with s.mu held; it reads s.root, so it
// has to run after the mutation it is reporting on. It returns one push
// per registration whose path relates to the just-changed path.
func (s *Server) fanoutLocked(changed data.Path) []pushJob {
	var jobs []pushJob
	for _, c := range s.conns {
		c.mu.Lock()
		for tag, reg := range c.listens {
			if !related(reg.path, changed) {
				continue
			}
			windowed := filterNode(getAtPath(s.root, reg.path), reg.filter)
			t := tag
			jobs = append(jobs, pushJob{conn: c, frame: connection.Frame{
				Type: "push", Action: string(connection.ActionSet),
				Path: reg.path.String(), Data: data.ToWire(windowed), Tag: &t,
			}})
		}
		c.mu.Unlock()
	}
	return jobs
}

func (s *Server) pushAll(jobs []pushJob) {
	for _, j := range jobs {
		j.conn.sendFrame(j.frame)
	}
}

func (s *Server) persist(value *data.TSD) {
	if s.store == nil || value == nil {
		return
	}
	if _, err := s.store.Put(value); err != nil {
		log.Printf("fakeserver: persist: %v", err)
	}
}

func (s *Server) recordCommit(path data.Path, value *data.TSD, attempts int) {
	if s.audit == nil {
		return
	}
	wire, err := json.Marshal(data.ToWire(value))
	if err != nil {
		log.Printf("fakeserver: marshal committed value: %v", err)
		return
	}
	now := time.Now().UTC()
	rec := auditlog.Record{
		TxnID:       fmt.Sprintf("%s@%d", path.String(), now.UnixNano()),
		Path:        path.String(),
		Attempts:    attempts,
		ResultJSON:  string(wire),
		CommittedAt: now,
	}
	if err := s.audit.Record(context.Background(), rec); err != nil {
		log.Printf("fakeserver: record commit: %v", err)
	}
}

func tagOf(tag *int) int {
	if tag == nil {
		return 0
	}
	return *tag
}
