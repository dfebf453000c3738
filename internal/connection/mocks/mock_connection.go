// Package mocks holds a mockgen-style generated mock of
// connection.Connection, used by internal/repo tests
// (SPEC_FULL.md §2 "Test tooling"). Hand-authored in the shape
// `mockgen -source=connection.go` would produce, since the toolchain
// that would otherwise generate it is not run in this workspace.
package mocks

import (
	"context"
	"reflect"

	"github.com/golang/mock/gomock"

	"github.com/latticedb/sync-core/internal/connection"
	"github.com/latticedb/sync-core/internal/data"
	"github.com/latticedb/sync-core/internal/query"
)

// MockConnection is a mock of the connection.Connection interface.
type MockConnection struct {
	ctrl     *gomock.Controller
	recorder *MockConnectionMockRecorder
}

// MockConnectionMockRecorder records expected calls on MockConnection.
type MockConnectionMockRecorder struct {
	mock *MockConnection
}

// NewMockConnection returns a new mock of connection.Connection.
func NewMockConnection(ctrl *gomock.Controller) *MockConnection {
	mock := &MockConnection{ctrl: ctrl}
	mock.recorder = &MockConnectionMockRecorder{mock}
	return mock
}

// EXPECT returns an object allowing callers to set expectations.
func (m *MockConnection) EXPECT() *MockConnectionMockRecorder {
	return m.recorder
}

func (m *MockConnection) Auth(ctx context.Context, token string) (connection.AuthData, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Auth", ctx, token)
	ret0, _ := ret[0].(connection.AuthData)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

func (mr *MockConnectionMockRecorder) Auth(ctx, token interface{}) *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Auth", reflect.TypeOf((*MockConnection)(nil).Auth), ctx, token)
}

func (m *MockConnection) Unauth(ctx context.Context) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Unauth", ctx)
	ret0, _ := ret[0].(error)
	return ret0
}

func (mr *MockConnectionMockRecorder) Unauth(ctx interface{}) *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Unauth", reflect.TypeOf((*MockConnection)(nil).Unauth), ctx)
}

func (m *MockConnection) Put(ctx context.Context, path data.Path, value *data.TSD, expectedHash string) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Put", ctx, path, value, expectedHash)
	ret0, _ := ret[0].(error)
	return ret0
}

func (mr *MockConnectionMockRecorder) Put(ctx, path, value, expectedHash interface{}) *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Put", reflect.TypeOf((*MockConnection)(nil).Put), ctx, path, value, expectedHash)
}

func (m *MockConnection) Merge(ctx context.Context, path data.Path, changedChildren map[data.Name]*data.TSD) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Merge", ctx, path, changedChildren)
	ret0, _ := ret[0].(error)
	return ret0
}

func (mr *MockConnectionMockRecorder) Merge(ctx, path, changedChildren interface{}) *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Merge", reflect.TypeOf((*MockConnection)(nil).Merge), ctx, path, changedChildren)
}

func (m *MockConnection) Listen(ctx context.Context, path data.Path, filter *query.Filter, tag int) (connection.ListenResult, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Listen", ctx, path, filter, tag)
	ret0, _ := ret[0].(connection.ListenResult)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

func (mr *MockConnectionMockRecorder) Listen(ctx, path, filter, tag interface{}) *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Listen", reflect.TypeOf((*MockConnection)(nil).Listen), ctx, path, filter, tag)
}

func (m *MockConnection) Unlisten(ctx context.Context, path data.Path, filter *query.Filter, tag int) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Unlisten", ctx, path, filter, tag)
	ret0, _ := ret[0].(error)
	return ret0
}

func (mr *MockConnectionMockRecorder) Unlisten(ctx, path, filter, tag interface{}) *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Unlisten", reflect.TypeOf((*MockConnection)(nil).Unlisten), ctx, path, filter, tag)
}

func (m *MockConnection) OnDisconnectPut(ctx context.Context, path data.Path, value *data.TSD) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "OnDisconnectPut", ctx, path, value)
	ret0, _ := ret[0].(error)
	return ret0
}

func (mr *MockConnectionMockRecorder) OnDisconnectPut(ctx, path, value interface{}) *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "OnDisconnectPut", reflect.TypeOf((*MockConnection)(nil).OnDisconnectPut), ctx, path, value)
}

func (m *MockConnection) OnDisconnectMerge(ctx context.Context, path data.Path, changedChildren map[data.Name]*data.TSD) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "OnDisconnectMerge", ctx, path, changedChildren)
	ret0, _ := ret[0].(error)
	return ret0
}

func (mr *MockConnectionMockRecorder) OnDisconnectMerge(ctx, path, changedChildren interface{}) *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "OnDisconnectMerge", reflect.TypeOf((*MockConnection)(nil).OnDisconnectMerge), ctx, path, changedChildren)
}

func (m *MockConnection) OnDisconnectCancel(ctx context.Context, path data.Path) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "OnDisconnectCancel", ctx, path)
	ret0, _ := ret[0].(error)
	return ret0
}

func (mr *MockConnectionMockRecorder) OnDisconnectCancel(ctx, path interface{}) *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "OnDisconnectCancel", reflect.TypeOf((*MockConnection)(nil).OnDisconnectCancel), ctx, path)
}

func (m *MockConnection) OnConnect() <-chan bool {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "OnConnect")
	ret0, _ := ret[0].(<-chan bool)
	return ret0
}

func (mr *MockConnectionMockRecorder) OnConnect() *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "OnConnect", reflect.TypeOf((*MockConnection)(nil).OnConnect))
}

func (m *MockConnection) Messages() <-chan connection.Message {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Messages")
	ret0, _ := ret[0].(<-chan connection.Message)
	return ret0
}

func (mr *MockConnectionMockRecorder) Messages() *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Messages", reflect.TypeOf((*MockConnection)(nil).Messages))
}

func (m *MockConnection) ServerTime() int64 {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "ServerTime")
	ret0, _ := ret[0].(int64)
	return ret0
}

func (mr *MockConnectionMockRecorder) ServerTime() *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ServerTime", reflect.TypeOf((*MockConnection)(nil).ServerTime))
}

func (m *MockConnection) Close() error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Close")
	ret0, _ := ret[0].(error)
	return ret0
}

func (mr *MockConnectionMockRecorder) Close() *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Close", reflect.TypeOf((*MockConnection)(nil).Close))
}
