package results

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
)

type RedisStoreTestSuite struct {
	suite.Suite
	mr      *miniredis.Miniredis
	client  *redis.Client
	store   Store
	testNow time.Time
}

func (s *RedisStoreTestSuite) SetupTest() {
	mr, err := miniredis.Run()
	s.Require().NoError(err)
	s.mr = mr

	s.client = redis.NewClient(&redis.Options{Addr: s.mr.Addr()})

	store, err := NewRedis(context.Background(), &Config{
		RedisClient: s.client,
		Keep:        3,
	})
	s.Require().NoError(err)
	s.store = store

	s.testNow = time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
}

func (s *RedisStoreTestSuite) TearDownTest() {
	s.client.Close()
	s.mr.Close()
}

func TestRedisStoreTestSuite(t *testing.T) {
	suite.Run(t, new(RedisStoreTestSuite))
}

func (s *RedisStoreTestSuite) result(winner string, score int) GameResult {
	return GameResult{
		FinishedAt:   s.testNow,
		RoundsPlayed: 6,
		MaxRounds:    6,
		Winner:       winner,
		Scores:       map[string]int{winner: score, "other": 0},
		Reason:       ReasonRoundsComplete,
	}
}

func (s *RedisStoreTestSuite) TestSaveAndRecent() {
	ctx := context.Background()
	s.Require().NoError(s.store.Save(ctx, s.result("ann", 30)))
	s.Require().NoError(s.store.Save(ctx, s.result("bob", 25)))

	got, err := s.store.Recent(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal("bob", got[0].Winner)
	s.Equal("ann", got[1].Winner)
	s.Equal(30, got[1].Scores["ann"])
	s.Equal(s.testNow.Unix(), got[1].FinishedAt.Unix())
}

func (s *RedisStoreTestSuite) TestSaveTrimsList() {
	ctx := context.Background()
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		s.Require().NoError(s.store.Save(ctx, s.result(name, 10)))
	}

	got, err := s.store.Recent(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(got, 3)
	s.Equal("e", got[0].Winner)
	s.Equal("c", got[2].Winner)
}

func (s *RedisStoreTestSuite) TestSavePublishes() {
	ctx := context.Background()
	sub := s.client.Subscribe(ctx, defaultChannel)
	defer sub.Close()
	_, err := sub.Receive(ctx)
	s.Require().NoError(err)

	s.Require().NoError(s.store.Save(ctx, s.result("ann", 15)))

	select {
	case msg := <-sub.Channel():
		var r GameResult
		s.Require().NoError(json.Unmarshal([]byte(msg.Payload), &r))
		s.Equal("ann", r.Winner)
	case <-time.After(2 * time.Second):
		s.Fail("no message published")
	}
}

func (s *RedisStoreTestSuite) TestRecentNonPositive() {
	got, err := s.store.Recent(context.Background(), 0)
	s.Require().NoError(err)
	s.Empty(got)
}

func (s *RedisStoreTestSuite) TestNewRedisValidatesConfig() {
	_, err := NewRedis(context.Background(), nil)
	s.Error(err)

	_, err = NewRedis(context.Background(), &Config{})
	s.Error(err)
}

func (s *RedisStoreTestSuite) TestQueueWritesThrough() {
	q, err := NewQueue(s.store, 4, nil)
	s.Require().NoError(err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		q.Run(ctx)
		close(done)
	}()

	q.Record(s.result("ann", 12))

	s.Eventually(func() bool {
		got, err := q.Recent(context.Background(), 1)
		return err == nil && len(got) == 1 && got[0].Winner == "ann"
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done
}

func (s *RedisStoreTestSuite) TestQueueRequiresStore() {
	_, err := NewQueue(nil, 1, nil)
	s.ErrorIs(err, ErrNilStore)
}
