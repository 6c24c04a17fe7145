package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"recipe-extractor/internal/pkg/common"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const redisPrefix = "recipe-extractor:ai:"

// RedisConfig 共用快取設定
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// RedisStore 多個實例共用的補全快取
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore 連線並 ping 一次，失敗時回傳錯誤
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	common.RegisterSecret(cfg.Password)
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 2 * time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	return &RedisStore{client: client, ttl: cfg.TTL}, nil
}

// Get 獲取緩存；連線錯誤視為未命中
func (s *RedisStore) Get(ctx context.Context, prompt string) (string, bool) {
	val, err := s.client.Get(ctx, redisPrefix+Key(prompt)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			common.LogWarn("Redis get failed", zap.Error(err))
		}
		common.LogCacheMiss("redis")
		return "", false
	}
	common.LogCacheHit("redis")
	return val, true
}

// Set 設置緩存
func (s *RedisStore) Set(ctx context.Context, prompt, value string) error {
	if err := s.client.Set(ctx, redisPrefix+Key(prompt), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}

// Close 關閉連線
func (s *RedisStore) Close() error {
	return s.client.Close()
}
