// Package connection defines the duplex channel the synchronization
// core consumes (spec.md §6) and ships one reference implementation of
// it over a websocket.
package connection

import (
	"context"

	"github.com/latticedb/sync-core/internal/data"
	"github.com/latticedb/sync-core/internal/query"
)

// Action names one of the message-stream payloads a Connection
// delivers (spec.md §6).
type Action string

const (
	ActionSet           Action = "actionSet"
	ActionMerge         Action = "actionMerge"
	ActionAuthRevoked   Action = "actionAuthRevoked"
	ActionListenRevoked Action = "actionListenRevoked"
	ActionSecurityDebug Action = "actionSecurityDebug"
)

// Message is one push the Connection delivers on its message stream.
// Which fields are populated depends on Action.
type Message struct {
	Action Action

	Path data.Path   // actionSet, actionMerge, actionListenRevoked
	Tag  *int        // actionSet, actionMerge, when the push is tagged to a listen
	Data *data.TSD   // actionSet: the full overwrite; actionMerge: decoded as changed children below

	ChangedChildren map[data.Name]*data.TSD // actionMerge

	Query *query.Filter // actionListenRevoked

	DebugMessage string // actionSecurityDebug
}

// AuthData is whatever claims the server returns on successful auth;
// the core treats it as an opaque payload.
type AuthData map[string]interface{}

// ListenResult carries any non-fatal warnings the server attached to a
// listen acknowledgement.
type ListenResult struct {
	Warnings []string
}

// Connection is the external collaborator spec.md §6 describes. Repo
// drives it; the core never constructs one itself.
type Connection interface {
	Auth(ctx context.Context, token string) (AuthData, error)
	Unauth(ctx context.Context) error

	Put(ctx context.Context, path data.Path, value *data.TSD, expectedHash string) error
	Merge(ctx context.Context, path data.Path, changedChildren map[data.Name]*data.TSD) error

	Listen(ctx context.Context, path data.Path, filter *query.Filter, tag int) (ListenResult, error)
	Unlisten(ctx context.Context, path data.Path, filter *query.Filter, tag int) error

	OnDisconnectPut(ctx context.Context, path data.Path, value *data.TSD) error
	OnDisconnectMerge(ctx context.Context, path data.Path, changedChildren map[data.Name]*data.TSD) error
	OnDisconnectCancel(ctx context.Context, path data.Path) error

	// OnConnect delivers true when the duplex channel comes up, false
	// when it drops. Repo's onConnect=false handling is what triggers
	// onDisconnect replay (spec.md §4.7).
	OnConnect() <-chan bool

	// Messages delivers every server push not otherwise consumed by a
	// direct call's response (spec.md §6 message stream).
	Messages() <-chan Message

	// ServerTime returns the Connection's best estimate of the server's
	// wall clock in milliseconds since epoch, used for push-ids and
	// sentinel resolution (spec.md §4.5, §6).
	ServerTime() int64

	// Close tears down the duplex channel. In-flight calls should
	// reject with a transport error (spec.md §5 "Cancellation").
	Close() error
}
