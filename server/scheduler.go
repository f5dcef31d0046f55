package server

import (
	"sync"
	"time"
)

// DefaultTickInterval 回合倒计时的推进频率
const DefaultTickInterval = time.Second

// Scheduler 会话拥有的定时器：周期 Tick 与回合结束后的一次性延续
// 两者都在整个进程生命周期内复用，状态不匹配时由回调自行 no-op
type Scheduler struct {
	interval time.Duration

	mu      sync.Mutex
	running bool
	// stopped 之后不再接受新的延续
	stopped bool
	stop    chan struct{}
	done    chan struct{}
	pending *time.Timer
}

func NewScheduler(interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Scheduler{interval: interval}
}

// Start 启动周期 Tick 循环；重复调用无效
func (s *Scheduler) Start(tick func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stopped = false
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stop, s.done
	go func() {
		defer close(done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				tick()
			case <-stop:
				return
			}
		}
	}()
}

// Stop 停止 Tick 循环并取消待执行的延续，等待 Tick 协程退出。
// 之后的 After 调用被忽略，直到再次 Start
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	if s.pending != nil {
		s.pending.Stop()
		s.pending = nil
	}
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stop)
	done := s.done
	s.mu.Unlock()
	<-done
}

// After 安排一次性延续，替换尚未触发的上一个；已 Stop 时忽略
func (s *Scheduler) After(d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != nil {
		s.pending.Stop()
		s.pending = nil
	}
	if s.stopped {
		return
	}
	s.pending = time.AfterFunc(d, fn)
}

// Cancel 取消尚未触发的延续
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != nil {
		s.pending.Stop()
		s.pending = nil
	}
}
