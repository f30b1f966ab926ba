package job

import (
	"context"
	stdErrors "errors"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	xerrors "A2A-Supervisor/internal/errors"
	"A2A-Supervisor/pkg/logger"
)

// DefaultRedisQueueKey 是作业队列使用的 Redis list 键。
const DefaultRedisQueueKey = "a2a:jobs"

// RedisQueueConfig 描述 Redis 队列的连接参数。
type RedisQueueConfig struct {
	Address   string
	Password  string
	DB        int
	Key       string
	BlockWait time.Duration
}

// RedisQueue 使用 Redis list 实现作业队列，LPUSH 投递、BRPOP 消费。
type RedisQueue struct {
	client *redis.Client
	key    string
	wait   time.Duration
	logger *slog.Logger
}

// NewRedisQueue 创建 Redis 队列实例并校验连接。
func NewRedisQueue(ctx context.Context, cfg RedisQueueConfig) (*RedisQueue, error) {
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
		return nil, xerrors.Wrap(xerrors.CodeQueueFailure, err, "连接 Redis 失败",
			xerrors.WithMetadata("address", cfg.Address))
	}
	return NewRedisQueueFromClient(client, cfg.Key, cfg.BlockWait), nil
}

// NewRedisQueueFromClient 基于已有连接创建队列，key 为空时使用 DefaultRedisQueueKey。
func NewRedisQueueFromClient(client *redis.Client, key string, wait time.Duration) *RedisQueue {
	if key == "" {
		key = DefaultRedisQueueKey
	}
	if wait <= 0 {
		wait = 5 * time.Second
	}
	return &RedisQueue{client: client, key: key, wait: wait, logger: logger.Named("queue")}
}

// Publish 将作业投递到 Redis。
func (q *RedisQueue) Publish(ctx context.Context, jobID string) error {
	if err := q.client.LPush(ctx, q.key, jobID).Err(); err != nil {
		return xerrors.Wrap(xerrors.CodeQueueFailure, err, "Redis 投递作业失败")
	}
	return nil
}

// Consume 启动 workerCount 个协程通过 BRPOP 取作业，直到 ctx 结束或连接关闭。
func (q *RedisQueue) Consume(ctx context.Context, workerCount int, handler Handler) error {
	if workerCount <= 0 {
		workerCount = 1
	}
	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ctx.Err() == nil {
				values, err := q.client.BRPop(ctx, q.wait, q.key).Result()
				if err != nil {
					if stdErrors.Is(err, redis.Nil) {
						continue
					}
					if ctx.Err() != nil {
						return
					}
					once.Do(func() {
						firstErr = xerrors.Wrap(xerrors.CodeQueueFailure, err, "Redis 取作业失败")
						cancel()
					})
					return
				}
				if len(values) != 2 {
					continue
				}
				jobID := values[1]
				if !reportHandlerError(ctx, q.logger, jobID, handler(ctx, jobID)) {
					continue
				}
				// 可重试的失败重新放回队列，等待下一次消费。
				if err := q.client.RPush(context.WithoutCancel(ctx), q.key, jobID).Err(); err != nil {
					q.logger.Error("作业重新入队失败", slog.String("job_id", jobID), slog.Any("error", err))
				}
			}
		}()
	}
	wg.Wait()
	if firstErr != nil {
		return firstErr
	}
	return context.Cause(ctx)
}

// Close 关闭 Redis 连接。
func (q *RedisQueue) Close() error {
	if q == nil || q.client == nil {
		return nil
	}
	return q.client.Close()
}

var _ Queue = (*RedisQueue)(nil)
