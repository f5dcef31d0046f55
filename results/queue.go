package results

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Queue 异步写入 Store，Record 永不阻塞；队列满时丢弃并记录日志
type Queue struct {
	store   Store
	ch      chan GameResult
	log     *zap.SugaredLogger
	timeout time.Duration
}

func NewQueue(store Store, size int, log *zap.SugaredLogger) (*Queue, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	if size <= 0 {
		size = 16
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Queue{
		store:   store,
		ch:      make(chan GameResult, size),
		log:     log,
		timeout: 3 * time.Second,
	}, nil
}

func (q *Queue) Record(result GameResult) {
	select {
	case q.ch <- result:
	default:
		q.log.Warnw("results queue full, dropping result", "winner", result.Winner, "reason", result.Reason)
	}
}

// Run 持续写入直到 ctx 取消，退出前尽量写完已排队的记录
func (q *Queue) Run(ctx context.Context) {
	for {
		select {
		case r := <-q.ch:
			q.save(r)
		case <-ctx.Done():
			for {
				select {
				case r := <-q.ch:
					q.save(r)
				default:
					return
				}
			}
		}
	}
}

func (q *Queue) save(r GameResult) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()
	if err := q.store.Save(ctx, r); err != nil {
		q.log.Errorw("save game result failed", "error", err)
		return
	}
	q.log.Infow("game result saved", "winner", r.Winner, "rounds", r.RoundsPlayed, "reason", r.Reason)
}

// Recent 透传给底层存储
func (q *Queue) Recent(ctx context.Context, n int) ([]GameResult, error) {
	return q.store.Recent(ctx, n)
}
