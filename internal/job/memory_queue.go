package job

import (
	"context"
	"log/slog"
	"sync"

	xerrors "A2A-Supervisor/internal/errors"
	"A2A-Supervisor/pkg/logger"
)

// MemoryQueue 使用带缓冲的 channel 作为进程内队列。
type MemoryQueue struct {
	ch     chan string
	done   chan struct{}
	once   sync.Once
	logger *slog.Logger
}

// NewMemoryQueue 创建一个内存队列，size <= 0 时使用 64。
func NewMemoryQueue(size int) *MemoryQueue {
	if size <= 0 {
		size = 64
	}
	return &MemoryQueue{
		ch:     make(chan string, size),
		done:   make(chan struct{}),
		logger: logger.Named("queue"),
	}
}

// Publish 将作业投递到队列，队列已满时阻塞直到 ctx 结束或队列关闭。
func (q *MemoryQueue) Publish(ctx context.Context, jobID string) error {
	select {
	case <-q.done:
		return errQueueClosed()
	default:
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-q.done:
		return errQueueClosed()
	case q.ch <- jobID:
		return nil
	}
}

// Consume 启动指定数量的工作协程消费队列，直到 ctx 结束或队列关闭。
// 处理失败且错误可重试时，作业会在队列未满的情况下重新入队。
func (q *MemoryQueue) Consume(ctx context.Context, workerCount int, handler Handler) error {
	if workerCount <= 0 {
		workerCount = 1
	}
	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case <-q.done:
					return
				case jobID := <-q.ch:
					if !reportHandlerError(ctx, q.logger, jobID, handler(ctx, jobID)) {
						continue
					}
					select {
					case q.ch <- jobID:
					default:
						q.logger.Warn("队列已满，放弃重新入队", slog.String("job_id", jobID))
					}
				}
			}
		}()
	}
	wg.Wait()
	return ctx.Err()
}

// Close 关闭队列，阻塞中的 Publish 立即返回错误，之后的 Publish 同样返回错误。
func (q *MemoryQueue) Close() error {
	q.once.Do(func() { close(q.done) })
	return nil
}

func errQueueClosed() error {
	return xerrors.New(xerrors.CodeQueueFailure, "队列已关闭")
}

var _ Queue = (*MemoryQueue)(nil)
