package server

import "time"

// Sender 可接收已编码记录的连接句柄（ClientConn 实现；测试中可替换）
type Sender interface {
	ID() string
	// Enqueue 非阻塞入队，失败表示对端已不可写
	Enqueue(frame []byte) bool
	// Kick 立即断开，随后由读循环完成离开流程；连接此前已关闭时返回 false
	Kick() bool
}

// Player 已加入会话的玩家：唯一显示名 + 连接句柄（非拥有引用）
type Player struct {
	Name     string
	Conn     Sender
	JoinedAt time.Time
}
