package server

import (
	"errors"
	"net"
	"time"

	"scribble/protocol"
)

// lineTransport 原始 TCP 连接：每条记录以换行结尾
type lineTransport struct {
	conn net.Conn
	r    *protocol.Reader
}

func newLineTransport(conn net.Conn, maxFrame int) *lineTransport {
	return &lineTransport{conn: conn, r: protocol.NewReader(conn, maxFrame)}
}

func (t *lineTransport) ReadFrame() ([]byte, error) { return t.r.ReadFrame() }

func (t *lineTransport) WriteFrame(frame []byte) error {
	_, err := t.conn.Write(frame)
	return err
}

func (t *lineTransport) SetWriteDeadline(d time.Time) error { return t.conn.SetWriteDeadline(d) }

func (t *lineTransport) Close() error { return t.conn.Close() }

func (t *lineTransport) RemoteAddr() string { return t.conn.RemoteAddr().String() }

// ServeTCP 在监听器上接受连接，每个连接一个处理协程；监听器关闭后返回
func (s *Server) ServeTCP(ln net.Listener) error {
	Log.Infof("tcp listening on %s", ln.Addr())
	var backoff time.Duration
	for {
		nc, err := ln.Accept()
		if err != nil {
			if s.isClosing() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				if backoff == 0 {
					backoff = 5 * time.Millisecond
				} else if backoff < time.Second {
					backoff *= 2
				}
				Log.Warnw("accept failed, retrying", "error", err, "backoff", backoff)
				time.Sleep(backoff)
				continue
			}
			return err
		}
		backoff = 0
		s.serve(NewClientConn(newLineTransport(nc, s.cfg.MaxFrameBytes), s.cfg.SendQueueSize))
	}
}
