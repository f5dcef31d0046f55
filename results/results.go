package results

import (
	"context"
	"errors"
	"time"
)

// Reason 本局结束原因
const (
	ReasonRoundsComplete   = "rounds_complete"
	ReasonNotEnoughPlayers = "not_enough_players"
)

var ErrNilStore = errors.New("results: store cannot be nil")

// GameResult 一局结束时的结算记录
type GameResult struct {
	FinishedAt   time.Time      `json:"finished_at"`
	RoundsPlayed int            `json:"rounds_played"`
	MaxRounds    int            `json:"max_rounds"`
	Winner       string         `json:"winner,omitempty"`
	Scores       map[string]int `json:"scores"`
	Reason       string         `json:"reason"`
}

// Recorder 会话在持锁期间调用，实现不得阻塞
type Recorder interface {
	Record(result GameResult)
}

// Store 结算记录的持久化后端
type Store interface {
	Save(ctx context.Context, result GameResult) error
	Recent(ctx context.Context, n int) ([]GameResult, error)
}

// Discard 不记录任何结果
type Discard struct{}

func (Discard) Record(GameResult) {}
