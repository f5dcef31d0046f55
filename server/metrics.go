package server

import (
	"sync/atomic"
)

// Metrics 记录会话运行期的关键指标（用于监控与调试）
type Metrics struct {
	MessagesAccepted int64 // 成功处理的客户端消息数
	ProtocolErrors   int64 // 无法解析或超长而被丢弃的记录数
	IllegalActions   int64 // 当前状态/身份下不允许而被忽略的操作数
	RateLimited      int64 // 因限流被丢弃的消息数
	Kicked           int64 // 因发送队列满或写失败被断开的连接数
	RoundsStarted    int64 // 开始的回合数
	GamesFinished    int64 // 结束的游戏局数
	TickCount        int64 // 计时 Tick 次数
	TotalTickNs      int64 // Tick 累计耗时（纳秒）
}

func (m *Metrics) IncAccepted() { atomic.AddInt64(&m.MessagesAccepted, 1) }
func (m *Metrics) IncProtocolError() { atomic.AddInt64(&m.ProtocolErrors, 1) }
func (m *Metrics) IncIllegalAction() { atomic.AddInt64(&m.IllegalActions, 1) }
func (m *Metrics) IncRateLimited() { atomic.AddInt64(&m.RateLimited, 1) }
func (m *Metrics) IncKicked() { atomic.AddInt64(&m.Kicked, 1) }
func (m *Metrics) IncRoundsStarted() { atomic.AddInt64(&m.RoundsStarted, 1) }
func (m *Metrics) IncGamesFinished() { atomic.AddInt64(&m.GamesFinished, 1) }
func (m *Metrics) AddTick(ns int64) {
	atomic.AddInt64(&m.TickCount, 1)
	atomic.AddInt64(&m.TotalTickNs, ns)
}

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *Metrics) Snapshot() map[string]any {
	tick := atomic.LoadInt64(&m.TickCount)
	total := atomic.LoadInt64(&m.TotalTickNs)
	var avgMs float64
	if tick > 0 {
		avgMs = float64(total) / float64(tick) / 1e6
	}
	return map[string]any{
		"messages_accepted": atomic.LoadInt64(&m.MessagesAccepted),
		"protocol_errors":   atomic.LoadInt64(&m.ProtocolErrors),
		"illegal_actions":   atomic.LoadInt64(&m.IllegalActions),
		"rate_limited":      atomic.LoadInt64(&m.RateLimited),
		"kicked":            atomic.LoadInt64(&m.Kicked),
		"rounds_started":    atomic.LoadInt64(&m.RoundsStarted),
		"games_finished":    atomic.LoadInt64(&m.GamesFinished),
		"tick_count":        tick,
		"avg_tick_ms":       avgMs,
	}
}
