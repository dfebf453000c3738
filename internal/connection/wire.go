package connection

import (
	"encoding/json"

	"github.com/latticedb/sync-core/internal/data"
	"github.com/latticedb/sync-core/internal/query"
)

// Frame is the one wire envelope every message, request, and response
// travels in (spec.md §6). ReqID is 0 for server-initiated pushes
// (actionSet, actionMerge, actionAuthRevoked, actionListenRevoked,
// actionSecurityDebug); non-zero ReqID frames with Type "response"
// answer a matching "request" frame. Exported so internal/fakeserver's
// server-side handler speaks the identical wire shape without this
// package exposing a server API of its own.
type Frame struct {
	Type  string `json:"t"` // "request", "response", "push"
	ReqID int64  `json:"r,omitempty"`

	// request fields
	Action string           `json:"a,omitempty"`
	Path   string           `json:"p,omitempty"`
	Data   interface{}      `json:"d,omitempty"`
	Hash   string           `json:"h,omitempty"`
	Tag    *int             `json:"tag,omitempty"`
	Query  *query.WireQuery `json:"q,omitempty"`
	Token  string           `json:"tok,omitempty"`

	// response fields
	Status   string   `json:"s,omitempty"` // "ok" or "error"
	Code     string   `json:"c,omitempty"`
	Warnings []string `json:"w,omitempty"`
	Auth     AuthData `json:"auth,omitempty"`

	// push-only
	DebugMessage string `json:"msg,omitempty"`

	ServerTime int64 `json:"st,omitempty"`
}

// EncodeFrame and DecodeFrame are the sole (de)serialization points for
// the wire protocol, shared by the client Connection and
// internal/fakeserver's server handler.
func EncodeFrame(f Frame) ([]byte, error) {
	return json.Marshal(f)
}

func DecodeFrame(raw []byte) (Frame, error) {
	var f Frame
	err := json.Unmarshal(raw, &f)
	return f, err
}

// PushToMessage decodes a "push"-typed Frame into the Message shape
// Connection.Messages() delivers.
func PushToMessage(f Frame) Message {
	msg := Message{Action: Action(f.Action), Path: data.ParsePath(f.Path), Tag: f.Tag}
	switch msg.Action {
	case ActionSet:
		msg.Data = data.FromWire(f.Data)
	case ActionMerge:
		msg.ChangedChildren = DecodeChangedChildren(f.Data)
	case ActionListenRevoked:
		q := query.FromWireQuery(f.Query)
		msg.Query = &q
	case ActionSecurityDebug:
		msg.DebugMessage = f.DebugMessage
	}
	return msg
}

// DecodeChangedChildren and EncodeChangedChildren convert the
// actionMerge/merge payload between its wire form and
// map[data.Name]*data.TSD.
func DecodeChangedChildren(raw interface{}) map[data.Name]*data.TSD {
	m, ok := raw.(map[string]interface{})
	if !ok {
		return nil
	}
	out := make(map[data.Name]*data.TSD, len(m))
	for k, v := range m {
		out[data.Name(k)] = data.FromWire(v)
	}
	return out
}

func EncodeChangedChildren(children map[data.Name]*data.TSD) map[string]interface{} {
	out := make(map[string]interface{}, len(children))
	for name, tsd := range children {
		out[string(name)] = data.ToWire(tsd)
	}
	return out
}
