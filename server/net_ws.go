package server

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"scribble/protocol"
)

// wsTransport WebSocket 连接：每个文本帧一条记录（帧内多行时拆分）
type wsTransport struct {
	ws       *websocket.Conn
	maxFrame int
	pending  [][]byte
}

func newWSTransport(ws *websocket.Conn, maxFrame int) *wsTransport {
	return &wsTransport{ws: ws, maxFrame: maxFrame}
}

// ReadFrame 与 TCP 一致：超长的帧被读完丢弃并返回 ErrFrameTooLong，连接保持
func (t *wsTransport) ReadFrame() ([]byte, error) {
	for len(t.pending) == 0 {
		_, r, err := t.ws.NextReader()
		if err != nil {
			return nil, err
		}
		payload, err := io.ReadAll(io.LimitReader(r, int64(t.maxFrame)+1))
		if err != nil {
			return nil, err
		}
		if len(payload) > t.maxFrame {
			if _, err := io.Copy(io.Discard, r); err != nil {
				return nil, err
			}
			return nil, protocol.ErrFrameTooLong
		}
		for _, line := range bytes.Split(payload, []byte("\n")) {
			line = bytes.TrimRight(line, "\r")
			if len(bytes.TrimSpace(line)) > 0 {
				t.pending = append(t.pending, line)
			}
		}
	}
	frame := t.pending[0]
	t.pending = t.pending[1:]
	return frame, nil
}

func (t *wsTransport) WriteFrame(frame []byte) error {
	return t.ws.WriteMessage(websocket.TextMessage, bytes.TrimSuffix(frame, []byte("\n")))
}

func (t *wsTransport) SetWriteDeadline(d time.Time) error { return t.ws.SetWriteDeadline(d) }

func (t *wsTransport) Ping() error {
	return t.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (t *wsTransport) Close() error { return t.ws.Close() }

func (t *wsTransport) RemoteAddr() string { return t.ws.RemoteAddr().String() }

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// 客户端为独立程序，不做来源限制
		return true
	},
}

// HandleWS WebSocket 接入：连接建立后与 TCP 客户端一样先发送 join
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	if s.isClosing() {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		Log.Warnw("upgrade error", "remote", r.RemoteAddr, "error", err)
		return
	}
	s.serve(NewClientConn(newWSTransport(ws, s.cfg.MaxFrameBytes), s.cfg.SendQueueSize))
}
