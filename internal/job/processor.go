package job

import (
	"context"
	stdErrors "errors"
	"log/slog"

	xerrors "A2A-Supervisor/internal/errors"
	"A2A-Supervisor/internal/protocol"
	"A2A-Supervisor/pkg/logger"
)

// Executor 定义处理器所需的查询执行能力，supervisor.Supervisor 实现了该接口。
type Executor interface {
	HandleQuery(ctx context.Context, text string) []protocol.TaskResponse
}

// Processor 负责从队列消费作业并交给 Executor 执行。
type Processor struct {
	executor    Executor
	store       Store
	consumer    Consumer
	workerCount int
	logger      *slog.Logger
}

// ProcessorOption 定义可选配置。
type ProcessorOption func(*Processor)

// WithProcessorLogger 指定日志输出。
func WithProcessorLogger(l *slog.Logger) ProcessorOption {
	return func(p *Processor) {
		p.logger = l
	}
}

// WithWorkerCount 设置消费协程数量。
func WithWorkerCount(workers int) ProcessorOption {
	return func(p *Processor) {
		if workers > 0 {
			p.workerCount = workers
		}
	}
}

// NewProcessor 构造 Processor。
func NewProcessor(executor Executor, store Store, consumer Consumer, opts ...ProcessorOption) *Processor {
	p := &Processor{
		executor:    executor,
		store:       store,
		consumer:    consumer,
		workerCount: 1,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	if p.logger == nil {
		p.logger = logger.Named("job")
	}
	return p
}

// Start 启动作业处理循环，直到 ctx 结束或队列关闭。
func (p *Processor) Start(ctx context.Context) error {
	if p.consumer == nil {
		return xerrors.New(xerrors.CodeInitializationFailure, "未配置作业消费者")
	}
	return p.consumer.Consume(ctx, p.workerCount, p.handle)
}

func (p *Processor) handle(ctx context.Context, jobID string) error {
	if p.store == nil || p.executor == nil {
		return xerrors.New(xerrors.CodeInitializationFailure, "处理器未初始化")
	}
	job, err := p.store.Claim(ctx, jobID)
	if err != nil {
		if stdErrors.Is(err, ErrJobNotFound) || stdErrors.Is(err, ErrJobCompleted) || stdErrors.Is(err, ErrJobConflict) {
			p.logger.Debug("跳过作业", slog.String("job_id", jobID), slog.String("reason", err.Error()))
			return nil
		}
		p.logger.Error("领取作业失败", slog.Any("error", err), slog.String("job_id", jobID))
		return err
	}

	responses := p.executor.HandleQuery(ctx, job.Query)
	if err := ctx.Err(); err != nil {
		// 关闭期间被中断的作业不写入不完整的结果；使用独立上下文回写状态。
		var opts []xerrors.Option
		if stdErrors.Is(err, context.Canceled) {
			// 进程关闭导致的取消属于预期行为。
			opts = append(opts, xerrors.WithSeverity(xerrors.SeverityInfo))
		}
		cause := xerrors.Wrap(CodeJobCancelled, err, "作业在完成前被取消", opts...)
		if storeErr := p.store.MarkFailed(context.WithoutCancel(ctx), job.ID, CodeJobCancelled, cause.Error()); storeErr != nil {
			return storeErr
		}
		logger.Audit().Log(context.WithoutCancel(ctx), levelFor(cause), "作业被取消",
			slog.String("job_id", job.ID),
			slog.String("query", job.Query),
			slog.String("severity", string(xerrors.SeverityOf(cause))))
		return cause
	}

	if err := p.store.MarkSucceeded(ctx, job.ID, responses); err != nil {
		p.logger.Error("标记作业成功状态失败", slog.Any("error", err), slog.String("job_id", job.ID))
		return err
	}
	logger.Audit().Info("作业执行完成",
		slog.String("job_id", job.ID),
		slog.String("query", job.Query),
		slog.Int("tasks", len(responses)),
	)
	return nil
}
