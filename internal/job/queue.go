package job

import (
	"context"
	"log/slog"

	xerrors "A2A-Supervisor/internal/errors"
	"A2A-Supervisor/internal/protocol"
)

// Handler 处理来自队列的作业 ID。
type Handler func(ctx context.Context, jobID string) error

// Producer 负责向队列投递作业。
type Producer interface {
	Publish(ctx context.Context, jobID string) error
	Close() error
}

// Consumer 负责从队列中消费作业。
type Consumer interface {
	Consume(ctx context.Context, workerCount int, handler Handler) error
	Close() error
}

// Queue 同时具备生产者与消费者能力。
type Queue interface {
	Producer
	Consumer
}

// Store 抽象了作业状态的保存接口。
type Store interface {
	Create(ctx context.Context, job *Job) error
	Get(ctx context.Context, id string) (*Job, error)
	Claim(ctx context.Context, id string) (*Job, error)
	MarkSucceeded(ctx context.Context, id string, responses []protocol.TaskResponse) error
	MarkFailed(ctx context.Context, id string, code xerrors.Code, lastError string) error
	List(ctx context.Context, limit int) ([]*Job, error)
	Close() error
}

// reportHandlerError 按错误的严重程度记录处理失败，返回作业是否应当重新投递。
func reportHandlerError(ctx context.Context, l *slog.Logger, jobID string, err error) bool {
	if err == nil {
		return false
	}
	requeue := xerrors.RetryableError(err)
	l.Log(ctx, levelFor(err), "作业处理失败",
		slog.String("job_id", jobID),
		slog.Bool("requeue", requeue),
		slog.Any("error", err))
	return requeue
}

// levelFor 把错误严重程度映射为日志级别。
func levelFor(err error) slog.Level {
	switch xerrors.SeverityOf(err) {
	case xerrors.SeverityInfo:
		return slog.LevelInfo
	case xerrors.SeverityWarning:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
