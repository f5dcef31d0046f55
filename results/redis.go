package results

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	defaultListKey = "scribble:results:recent"
	defaultChannel = "scribble:results"
	defaultKeep    = 50
)

// Config Redis 结算存储配置
type Config struct {
	RedisClient *redis.Client
	// ListKey 最近结算列表的键
	ListKey string
	// Channel 每次结算发布的频道
	Channel string
	// Keep 列表保留条数
	Keep int
}

type redisStore struct {
	client  *redis.Client
	listKey string
	channel string
	keep    int64
}

// NewRedis 创建 Redis 结算存储，并检查连接
func NewRedis(ctx context.Context, cfg *Config) (*redisStore, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if cfg.RedisClient == nil {
		return nil, errors.New("redis client cannot be nil")
	}
	if err := cfg.RedisClient.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	s := &redisStore{
		client:  cfg.RedisClient,
		listKey: cfg.ListKey,
		channel: cfg.Channel,
		keep:    int64(cfg.Keep),
	}
	if s.listKey == "" {
		s.listKey = defaultListKey
	}
	if s.channel == "" {
		s.channel = defaultChannel
	}
	if s.keep <= 0 {
		s.keep = defaultKeep
	}
	return s, nil
}

// Save 推入最近列表、裁剪长度并发布到频道
func (s *redisStore) Save(ctx context.Context, result GameResult) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	pipe := s.client.Pipeline()
	pipe.LPush(ctx, s.listKey, raw)
	pipe.LTrim(ctx, s.listKey, 0, s.keep-1)
	pipe.Publish(ctx, s.channel, raw)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save result: %w", err)
	}
	return nil
}

// Recent 最新的 n 条结算，最新在前
func (s *redisStore) Recent(ctx context.Context, n int) ([]GameResult, error) {
	if n <= 0 {
		return []GameResult{}, nil
	}
	items, err := s.client.LRange(ctx, s.listKey, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read results: %w", err)
	}
	out := make([]GameResult, 0, len(items))
	for _, item := range items {
		var r GameResult
		if err := json.Unmarshal([]byte(item), &r); err != nil {
			return nil, fmt.Errorf("failed to unmarshal result: %w", err)
		}
		out = append(out, r)
	}
	return out, nil
}
