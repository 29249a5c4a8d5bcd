package kv

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"locator/internal/logger"
)

// Redis 以 Redis 字符串为后端的存储；键统一加前缀，便于多实例共用一个库
type Redis struct {
	rdb    *redis.Client
	prefix string
}

// OpenRedis 使用地址、密码与库号打开客户端
// 约束：未配置地址时返回 nil，由调用方回退到其他后端
func OpenRedis(addr, pass string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	logger.L().Debug("redis_open", "addr", addr, "db", db)
	return redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db})
}

func NewRedis(rdb *redis.Client, prefix string) *Redis {
	return &Redis{rdb: rdb, prefix: prefix}
}

func (s *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.rdb.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// Set 不设置 TTL；过期语义由上层按写入时间判定
func (s *Redis) Set(ctx context.Context, key, value string) error {
	return s.rdb.Set(ctx, s.prefix+key, value, 0).Err()
}

func (s *Redis) Remove(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, s.prefix+key).Err()
}
