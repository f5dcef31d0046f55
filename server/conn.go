package server

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	writeWait  = 5 * time.Second
	pingPeriod = 30 * time.Second
)

// transport 底层连接：TCP 换行流或 WebSocket
type transport interface {
	ReadFrame() ([]byte, error)
	WriteFrame(frame []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
	RemoteAddr() string
}

// pinger 需要保活的传输（WebSocket）
type pinger interface {
	Ping() error
}

// ClientConn 一个客户端连接：读由处理协程完成，写经发送队列由 writePump 完成
type ClientConn struct {
	id string
	t  transport

	mu     sync.Mutex
	send   chan []byte
	closed bool

	closeOnce sync.Once
}

func NewClientConn(t transport, queueSize int) *ClientConn {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &ClientConn{
		id:   uuid.NewString(),
		t:    t,
		send: make(chan []byte, queueSize),
	}
}

func (c *ClientConn) ID() string { return c.id }

func (c *ClientConn) RemoteAddr() string { return c.t.RemoteAddr() }

func (c *ClientConn) ReadFrame() ([]byte, error) { return c.t.ReadFrame() }

// Enqueue 将一条已编码的记录压入发送队列（非阻塞）；队列满或连接已关闭时返回 false
func (c *ClientConn) Enqueue(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// Close 停止接收新消息；writePump 发完队列后关闭底层连接
func (c *ClientConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Kick 立即关闭底层连接，读循环随之退出并走正常的离开流程。
// 返回连接在此之前是否仍处于打开状态
func (c *ClientConn) Kick() bool {
	c.mu.Lock()
	wasOpen := !c.closed
	if wasOpen {
		c.closed = true
		close(c.send)
	}
	c.mu.Unlock()
	c.closeTransport()
	return wasOpen
}

func (c *ClientConn) closeTransport() {
	c.closeOnce.Do(func() {
		_ = c.t.Close()
	})
}

// writePump 独立协程，负责从 send 队列写出到连接
func (c *ClientConn) writePump() {
	defer c.closeTransport()

	var ping <-chan time.Time
	p, canPing := c.t.(pinger)
	if canPing {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		ping = ticker.C
	}

	for {
		select {
		case frame, ok := <-c.send:
			if !ok {
				return
			}
			_ = c.t.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.t.WriteFrame(frame); err != nil {
				Log.Debugw("write failed", "conn", c.id, "error", err)
				c.Close()
				return
			}
		case <-ping:
			if err := p.Ping(); err != nil {
				Log.Debugw("ping failed", "conn", c.id, "error", err)
				c.Close()
				return
			}
		}
	}
}
