package scoring

import (
	"math"
	"time"
)

const (
	// BasePoints 猜中即得的基础分
	BasePoints = 10
	// SpeedBonus 按剩余时间比例折算的最高奖励
	SpeedBonus = 5
)

// Points 计算一次正确猜测的得分：10 + floor(5 * remaining / total)，剩余时间小于 0 按 0 计
func Points(remaining, total time.Duration) int {
	if total <= 0 {
		return BasePoints
	}
	if remaining < 0 {
		remaining = 0
	}
	if remaining > total {
		remaining = total
	}
	bonus := math.Floor(SpeedBonus * remaining.Seconds() / total.Seconds())
	return BasePoints + int(bonus)
}

// Table 按加入顺序保存的积分表。非并发安全，由会话锁保护
type Table struct {
	order  []string
	scores map[string]int
}

func NewTable() *Table {
	return &Table{scores: make(map[string]int)}
}

// Add 新玩家以 0 分加入，已存在时不变
func (t *Table) Add(name string) bool {
	if _, ok := t.scores[name]; ok {
		return false
	}
	t.order = append(t.order, name)
	t.scores[name] = 0
	return true
}

func (t *Table) Remove(name string) bool {
	if _, ok := t.scores[name]; !ok {
		return false
	}
	delete(t.scores, name)
	for i, n := range t.order {
		if n == name {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return true
}

func (t *Table) Has(name string) bool {
	_, ok := t.scores[name]
	return ok
}

// Award 为玩家加分，返回新总分
func (t *Table) Award(name string, points int) int {
	if _, ok := t.scores[name]; !ok {
		return 0
	}
	t.scores[name] += points
	return t.scores[name]
}

func (t *Table) Score(name string) int {
	return t.scores[name]
}

// Reset 所有分数归零但保留条目
func (t *Table) Reset() {
	for name := range t.scores {
		t.scores[name] = 0
	}
}

func (t *Table) Len() int {
	return len(t.order)
}

// Names 按加入顺序返回玩家名
func (t *Table) Names() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

func (t *Table) Snapshot() map[string]int {
	out := make(map[string]int, len(t.scores))
	for name, score := range t.scores {
		out[name] = score
	}
	return out
}

// Leader 返回最高分玩家；平分时取最早加入者
func (t *Table) Leader() (name string, score int, ok bool) {
	for _, n := range t.order {
		s := t.scores[n]
		if !ok || s > score {
			name, score, ok = n, s, true
		}
	}
	return name, score, ok
}
