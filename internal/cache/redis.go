package cache

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"time"

	"github.com/redis/go-redis/v9"

	xerrors "A2A-Supervisor/internal/errors"
)

// DefaultRedisPrefix 是结果缓存键的默认前缀。
const DefaultRedisPrefix = "a2a:result:"

// RedisConfig 描述 Redis 缓存的连接参数。
type RedisConfig struct {
	Address  string
	Password string
	DB       int
	Prefix   string
}

// RedisCache 使用 Redis 字符串与 EX 过期时间保存结果。
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache 创建 Redis 缓存并通过 PING 校验连接。
func NewRedisCache(ctx context.Context, cfg RedisConfig) (*RedisCache, error) {
	if cfg.Address == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "Redis address 不能为空")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, xerrors.Wrap(xerrors.CodeCacheFailure, err, "连接 Redis 失败")
	}
	return NewRedisCacheFromClient(client, cfg.Prefix), nil
}

// NewRedisCacheFromClient 复用已有客户端。
func NewRedisCacheFromClient(client *redis.Client, prefix string) *RedisCache {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisCache{client: client, prefix: prefix}
}

// Get 实现 Cache。
func (c *RedisCache) Get(ctx context.Context, key string) (json.RawMessage, bool, error) {
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if stdErrors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, xerrors.Wrap(xerrors.CodeCacheFailure, err, "读取 Redis 缓存失败")
	}
	return json.RawMessage(raw), true, nil
}

// Set 实现 Cache，ttl <= 0 时不设置过期时间。
func (c *RedisCache) Set(ctx context.Context, key string, value json.RawMessage, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := c.client.Set(ctx, c.prefix+key, []byte(value), ttl).Err(); err != nil {
		return xerrors.Wrap(xerrors.CodeCacheFailure, err, "写入 Redis 缓存失败")
	}
	return nil
}

// Purge 实现 Cache，通过 SCAN 分批删除该方法前缀下的键。
func (c *RedisCache) Purge(ctx context.Context, method string) error {
	pattern := c.prefix + methodPrefix(method) + "*"
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	batch := make([]string, 0, 100)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err := c.client.Del(ctx, batch...).Err(); err != nil {
				return xerrors.Wrap(xerrors.CodeCacheFailure, err, "清理 Redis 缓存失败")
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return xerrors.Wrap(xerrors.CodeCacheFailure, err, "扫描 Redis 缓存失败")
	}
	if len(batch) > 0 {
		if err := c.client.Del(ctx, batch...).Err(); err != nil {
			return xerrors.Wrap(xerrors.CodeCacheFailure, err, "清理 Redis 缓存失败")
		}
	}
	return nil
}

// Close 关闭 Redis 连接。
func (c *RedisCache) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

var _ Cache = (*RedisCache)(nil)
