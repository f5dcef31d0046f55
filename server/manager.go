package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"scribble/clock"
	"scribble/results"
)

// ResultsReader 读取最近的结算记录（管理接口使用）
type ResultsReader interface {
	Recent(ctx context.Context, n int) ([]results.GameResult, error)
}

// ServerConfig 服务端参数
type ServerConfig struct {
	Rules         Rules
	Words         []string
	Clock         clock.Clock
	Seed          int64
	Recorder      results.Recorder
	Results       ResultsReader
	SendQueueSize int
	MaxFrameBytes int
	RateLimit     float64
	RateBurst     int
	TickInterval  time.Duration
}

// Server 管理唯一会话与所有在线连接的生命周期
type Server struct {
	cfg      ServerConfig
	session  *Session
	handler  *Handler
	registry *Registry
	metrics  *Metrics

	mu      sync.Mutex
	conns   map[string]*ClientConn
	closing bool
	wg      sync.WaitGroup
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.SendQueueSize <= 0 {
		cfg.SendQueueSize = 256
	}
	if cfg.MaxFrameBytes <= 0 {
		cfg.MaxFrameBytes = 64 * 1024
	}
	metrics := &Metrics{}
	registry := NewRegistry(metrics)
	session, err := NewSession(SessionConfig{
		Rules:        cfg.Rules,
		Words:        cfg.Words,
		Clock:        cfg.Clock,
		Seed:         cfg.Seed,
		Registry:     registry,
		Metrics:      metrics,
		Recorder:     cfg.Recorder,
		TickInterval: cfg.TickInterval,
	})
	if err != nil {
		return nil, err
	}
	return &Server{
		cfg:      cfg,
		session:  session,
		handler:  NewHandler(session, metrics, cfg.RateLimit, cfg.RateBurst),
		registry: registry,
		metrics:  metrics,
		conns:    make(map[string]*ClientConn),
	}, nil
}

func (s *Server) Session() *Session { return s.session }

func (s *Server) Metrics() *Metrics { return s.metrics }

// Start 启动会话计时
func (s *Server) Start() {
	s.session.Start()
}

func (s *Server) isClosing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closing
}

// serve 接管一个新连接：启动写协程与读循环
func (s *Server) serve(c *ClientConn) {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		c.Kick()
		return
	}
	s.conns[c.ID()] = c
	s.wg.Add(1)
	s.mu.Unlock()

	Log.Debugw("connection accepted", "conn", c.ID(), "remote", c.RemoteAddr())
	go c.writePump()
	go func() {
		defer s.wg.Done()
		defer s.forget(c)
		s.handler.Serve(c)
	}()
}

func (s *Server) forget(c *ClientConn) {
	s.mu.Lock()
	delete(s.conns, c.ID())
	s.mu.Unlock()
}

// Shutdown 停止计时并断开所有连接，等待读循环全部退出或 ctx 到期
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		return errors.New("server already shutting down")
	}
	s.closing = true
	conns := make([]*ClientConn, 0, len(s.conns))
	for _, c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	s.session.Stop()
	for _, c := range conns {
		c.Kick()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		Log.Infow("all connections closed", "count", len(conns))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
