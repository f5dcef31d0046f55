package server

import (
	"errors"
	"sync"
	"time"

	"scribble/protocol"
)

var ErrDuplicateIdentity = errors.New("username already taken")

// Registry 维护在线连接与玩家身份的映射，提供单播/广播
type Registry struct {
	mu      sync.RWMutex
	byConn  map[string]*Player
	byName  map[string]*Player
	order   []*Player
	metrics *Metrics
}

func NewRegistry(metrics *Metrics) *Registry {
	if metrics == nil {
		metrics = &Metrics{}
	}
	return &Registry{
		byConn:  make(map[string]*Player),
		byName:  make(map[string]*Player),
		metrics: metrics,
	}
}

// Register 绑定连接与显示名；显示名区分大小写，已存在时返回 ErrDuplicateIdentity
func (r *Registry) Register(conn Sender, name string) (*Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[name]; ok {
		return nil, ErrDuplicateIdentity
	}
	if _, ok := r.byConn[conn.ID()]; ok {
		return nil, ErrDuplicateIdentity
	}
	p := &Player{Name: name, Conn: conn, JoinedAt: time.Now()}
	r.byConn[conn.ID()] = p
	r.byName[name] = p
	r.order = append(r.order, p)
	return p, nil
}

// Unregister 幂等：返回被释放的显示名
func (r *Registry) Unregister(conn Sender) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byConn[conn.ID()]
	if !ok {
		return "", false
	}
	delete(r.byConn, conn.ID())
	delete(r.byName, p.Name)
	for i, q := range r.order {
		if q == p {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return p.Name, true
}

func (r *Registry) Lookup(name string) (Sender, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byName[name]
	if !ok {
		return nil, false
	}
	return p.Conn, true
}

func (r *Registry) NameOf(conn Sender) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byConn[conn.ID()]
	if !ok {
		return "", false
	}
	return p.Name, true
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Players 按加入顺序返回快照
func (r *Registry) Players() []Player {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Player, len(r.order))
	for i, p := range r.order {
		out[i] = *p
	}
	return out
}

// Broadcast 只序列化一次，发给除 exclude 外的所有连接；单个连接失败不影响其余连接
func (r *Registry) Broadcast(msgType string, payload any, exclude Sender) error {
	frame, err := protocol.Encode(msgType, payload)
	if err != nil {
		return err
	}
	r.mu.RLock()
	targets := make([]Sender, 0, len(r.order))
	for _, p := range r.order {
		if exclude != nil && p.Conn.ID() == exclude.ID() {
			continue
		}
		targets = append(targets, p.Conn)
	}
	r.mu.RUnlock()

	for _, conn := range targets {
		r.deliver(conn, msgType, frame)
	}
	return nil
}

// Unicast 发给单个连接（可以是尚未注册的连接）
func (r *Registry) Unicast(conn Sender, msgType string, payload any) error {
	frame, err := protocol.Encode(msgType, payload)
	if err != nil {
		return err
	}
	r.deliver(conn, msgType, frame)
	return nil
}

func (r *Registry) deliver(conn Sender, msgType string, frame []byte) {
	if conn.Enqueue(frame) {
		return
	}
	// 对端写不进去：断开连接，由读循环走与正常离开相同的清理流程。已在关闭中的连接不计数
	if !conn.Kick() {
		return
	}
	r.metrics.IncKicked()
	Log.Warnw("send queue full, kicked connection", "conn", conn.ID(), "type", msgType)
}
