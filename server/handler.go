package server

import (
	"errors"
	"io"
	"net"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"scribble/protocol"
)

// peerConn 处理协程所需的连接能力（ClientConn 实现）
type peerConn interface {
	Sender
	ReadFrame() ([]byte, error)
	RemoteAddr() string
	Close()
}

// Handler 每个连接一个读循环：解码记录，按会话状态校验后调用状态机
type Handler struct {
	session *Session
	metrics *Metrics
	limit   rate.Limit
	burst   int
}

func NewHandler(session *Session, metrics *Metrics, perSecond float64, burst int) *Handler {
	if metrics == nil {
		metrics = &Metrics{}
	}
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	if burst <= 0 {
		burst = 1
	}
	return &Handler{session: session, metrics: metrics, limit: limit, burst: burst}
}

// Serve 阻塞直到连接结束；返回前一定完成离开流程
func (h *Handler) Serve(c peerConn) {
	log := Log.With("conn", c.ID(), "remote", c.RemoteAddr())
	defer c.Close()
	defer h.session.Leave(c)

	name, ok := h.awaitJoin(c, log)
	if !ok {
		return
	}
	log = log.With("player", name)

	limiter := rate.NewLimiter(h.limit, h.burst)
	for {
		line, err := c.ReadFrame()
		if err != nil {
			if errors.Is(err, protocol.ErrFrameTooLong) {
				h.metrics.IncProtocolError()
				log.Warnw("dropping oversized record", "error", err)
				continue
			}
			logReadEnd(log, err)
			return
		}
		if !limiter.Allow() {
			h.metrics.IncRateLimited()
			log.Debugw("rate limited, dropping record")
			continue
		}
		env, err := protocol.Decode(line)
		if err != nil {
			h.metrics.IncProtocolError()
			log.Warnw("dropping malformed record", "error", err)
			continue
		}
		h.handle(log, name, env)
	}
}

func (h *Handler) handle(log *zap.SugaredLogger, name string, env protocol.Envelope) {
	err := dispatch(h.session, name, env)
	switch {
	case err == nil:
		h.metrics.IncAccepted()
	case errors.Is(err, protocol.ErrMalformed):
		h.metrics.IncProtocolError()
		log.Warnw("dropping malformed record", "type", env.Type, "error", err)
	case errors.Is(err, ErrIllegalAction), errors.Is(err, ErrUnknownPlayer):
		h.metrics.IncIllegalAction()
		log.Debugw("ignoring illegal action", "type", env.Type)
	default:
		log.Errorw("handle record failed", "type", env.Type, "error", err)
	}
}

// awaitJoin 第一条有效记录必须是 join；加入失败时连接关闭
func (h *Handler) awaitJoin(c peerConn, log *zap.SugaredLogger) (string, bool) {
	for {
		line, err := c.ReadFrame()
		if err != nil {
			if errors.Is(err, protocol.ErrFrameTooLong) {
				h.metrics.IncProtocolError()
				continue
			}
			logReadEnd(log, err)
			return "", false
		}
		env, err := protocol.Decode(line)
		if err != nil {
			h.metrics.IncProtocolError()
			log.Warnw("dropping malformed record before join", "error", err)
			continue
		}
		if env.Type != protocol.TypeJoin {
			h.metrics.IncIllegalAction()
			log.Infow("first record is not join, closing", "type", env.Type)
			return "", false
		}
		var req protocol.Join
		if err := env.DecodeData(&req); err != nil {
			h.metrics.IncProtocolError()
			log.Warnw("malformed join", "error", err)
			return "", false
		}
		if err := h.session.Join(c, req.Username); err != nil {
			log.Infow("join rejected", "username", req.Username, "error", err)
			return "", false
		}
		h.metrics.IncAccepted()
		return req.Username, true
	}
}

func logReadEnd(log *zap.SugaredLogger, err error) {
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		log.Debugw("connection closed")
		return
	}
	log.Infow("read error, closing connection", "error", err)
}
