package server

import (
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scribble/protocol"
)

func TestRegistryRegisterUnique(t *testing.T) {
	r := NewRegistry(nil)
	a := newFakeConn("a")

	_, err := r.Register(a, "alice")
	require.NoError(t, err)
	_, err = r.Register(newFakeConn("b"), "alice")
	assert.ErrorIs(t, err, ErrDuplicateIdentity)
	_, err = r.Register(a, "other")
	assert.ErrorIs(t, err, ErrDuplicateIdentity)
	assert.Equal(t, 1, r.Count())

	conn, ok := r.Lookup("alice")
	require.True(t, ok)
	assert.Equal(t, "a", conn.ID())
	name, ok := r.NameOf(a)
	require.True(t, ok)
	assert.Equal(t, "alice", name)
}

func TestRegistryUnregisterIdempotent(t *testing.T) {
	r := NewRegistry(nil)
	a := newFakeConn("a")
	_, err := r.Register(a, "alice")
	require.NoError(t, err)

	name, ok := r.Unregister(a)
	assert.True(t, ok)
	assert.Equal(t, "alice", name)

	_, ok = r.Unregister(a)
	assert.False(t, ok)
	assert.Equal(t, 0, r.Count())

	// 释放后可被重新使用
	_, err = r.Register(newFakeConn("b"), "alice")
	assert.NoError(t, err)
}

func TestRegistryPlayersInJoinOrder(t *testing.T) {
	r := NewRegistry(nil)
	for _, name := range []string{"carol", "alice", "bob"} {
		_, err := r.Register(newFakeConn(name), name)
		require.NoError(t, err)
	}
	_, _ = r.Unregister(newFakeConn("alice"))

	var names []string
	for _, p := range r.Players() {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"carol", "bob"}, names)
}

func TestRegistryBroadcastExclude(t *testing.T) {
	r := NewRegistry(nil)
	a, b, c := newFakeConn("a"), newFakeConn("b"), newFakeConn("c")
	for name, conn := range map[string]*fakeConn{"alice": a, "bob": b, "carol": c} {
		_, err := r.Register(conn, name)
		require.NoError(t, err)
	}

	require.NoError(t, r.Broadcast(protocol.TypeNotification, protocol.Notification{Message: "hi"}, b))

	assert.Len(t, a.all(protocol.TypeNotification), 1)
	assert.Empty(t, b.all(protocol.TypeNotification))
	assert.Len(t, c.all(protocol.TypeNotification), 1)
}

func TestRegistryFailedPeerDoesNotAbortBroadcast(t *testing.T) {
	metrics := &Metrics{}
	r := NewRegistry(metrics)
	a, b, c := newFakeConn("a"), newFakeConn("b"), newFakeConn("c")
	b.full = true
	for _, conn := range []*fakeConn{a, b, c} {
		_, err := r.Register(conn, conn.id)
		require.NoError(t, err)
	}

	require.NoError(t, r.Broadcast(protocol.TypeTimerUpdate, protocol.TimerUpdate{TimeLeft: 3}, nil))

	assert.True(t, b.kicked)
	assert.False(t, a.kicked)
	assert.Len(t, a.all(protocol.TypeTimerUpdate), 1)
	assert.Len(t, c.all(protocol.TypeTimerUpdate), 1)
	assert.EqualValues(t, 1, metrics.Kicked)
	// 清理由读循环完成，广播本身不注销
	assert.Equal(t, 3, r.Count())
}

func TestRegistryUnicastUnregistered(t *testing.T) {
	r := NewRegistry(nil)
	c := newFakeConn("x")
	require.NoError(t, r.Unicast(c, protocol.TypeError, protocol.Error{Message: "nope"}))
	env, ok := c.last(protocol.TypeError)
	require.True(t, ok)
	var e protocol.Error
	require.NoError(t, env.DecodeData(&e))
	assert.Equal(t, "nope", e.Message)
}

func TestRegistryBroadcastEncodeError(t *testing.T) {
	r := NewRegistry(nil)
	a := newFakeConn("a")
	_, err := r.Register(a, "alice")
	require.NoError(t, err)

	err = r.Broadcast(protocol.TypeNotification, map[string]any{"bad": make(chan int)}, nil)
	assert.Error(t, err)
	assert.Empty(t, a.all(protocol.TypeNotification))
}

func TestRegistryKickCountedOncePerConnection(t *testing.T) {
	metrics := &Metrics{}
	r := NewRegistry(metrics)
	a, b := newFakeConn("a"), newFakeConn("b")
	b.full = true
	for _, conn := range []*fakeConn{a, b} {
		_, err := r.Register(conn, conn.id)
		require.NoError(t, err)
	}

	for i := 0; i < 3; i++ {
		require.NoError(t, r.Broadcast(protocol.TypeTimerUpdate, protocol.TimerUpdate{TimeLeft: i}, nil))
	}
	assert.EqualValues(t, 1, metrics.Kicked)
}

func TestRegistryClosingConnectionIsNotCountedAsKick(t *testing.T) {
	metrics := &Metrics{}
	r := NewRegistry(metrics)
	a, b := newFakeConn("a"), newFakeConn("b")
	b.closed = true
	for _, conn := range []*fakeConn{a, b} {
		_, err := r.Register(conn, conn.id)
		require.NoError(t, err)
	}

	require.NoError(t, r.Broadcast(protocol.TypeNotification, protocol.Notification{Message: "bye"}, nil))
	assert.Zero(t, metrics.Kicked)
	assert.Len(t, a.all(protocol.TypeNotification), 1)
}

// stubTransport 不做任何 I/O 的传输
type stubTransport struct{ closed int32 }

func (t *stubTransport) ReadFrame() ([]byte, error)       { return nil, io.EOF }
func (t *stubTransport) WriteFrame([]byte) error          { return nil }
func (t *stubTransport) SetWriteDeadline(time.Time) error { return nil }
func (t *stubTransport) Close() error                     { atomic.AddInt32(&t.closed, 1); return nil }
func (t *stubTransport) RemoteAddr() string               { return "stub" }

func TestClientConnKickReportsOpenState(t *testing.T) {
	tr := &stubTransport{}
	c := NewClientConn(tr, 1)
	assert.True(t, c.Kick())
	assert.False(t, c.Kick())
	assert.False(t, c.Enqueue([]byte("x\n")))
	assert.EqualValues(t, 1, atomic.LoadInt32(&tr.closed))

	closing := NewClientConn(&stubTransport{}, 1)
	closing.Close()
	assert.False(t, closing.Kick())
}

func TestRegistryCountsKickOfClosedClientConnOnce(t *testing.T) {
	metrics := &Metrics{}
	r := NewRegistry(metrics)
	open := NewClientConn(&stubTransport{}, 1)
	leaving := NewClientConn(&stubTransport{}, 1)
	leaving.Close()
	_, err := r.Register(open, "open")
	require.NoError(t, err)
	_, err = r.Register(leaving, "leaving")
	require.NoError(t, err)

	// 第一条入队成功，第二条队列满
	require.NoError(t, r.Broadcast(protocol.TypeTimerUpdate, protocol.TimerUpdate{TimeLeft: 2}, nil))
	require.NoError(t, r.Broadcast(protocol.TypeTimerUpdate, protocol.TimerUpdate{TimeLeft: 1}, nil))
	assert.EqualValues(t, 1, metrics.Kicked)
}
