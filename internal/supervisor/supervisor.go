package supervisor

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"A2A-Supervisor/internal/agent"
	"A2A-Supervisor/internal/cache"
	xerrors "A2A-Supervisor/internal/errors"
	"A2A-Supervisor/internal/parser"
	"A2A-Supervisor/internal/protocol"
	"A2A-Supervisor/pkg/logger"
)

const (
	// DefaultTimeout 是单次尝试的默认时间预算。
	DefaultTimeout = 3 * time.Second
	// DefaultMaxAttempts 为首次调用加一次超时重试。
	DefaultMaxAttempts = 2

	unhandledMessage = "Unexpected error: task handling failed without timeout"
)

// Resolver 按技能 ID 查找智能体，registry.Registry 实现了该接口。
type Resolver interface {
	Resolve(skill string) (agent.Agent, bool)
}

// Recorder 接收每个任务的处理结果，metrics.Collector 实现了该接口。
type Recorder interface {
	ObserveDispatch(method string, code, attempts int, duration time.Duration)
	ObserveCacheHit(method string)
}

// Supervisor 解析查询、并发委派任务并按原顺序汇总响应。
type Supervisor struct {
	resolver       Resolver
	parser         parser.Parser
	timeout        time.Duration
	maxAttempts    int
	maxConcurrency int
	cache          cache.Cache
	cacheTTL       time.Duration
	metrics        Recorder
	logger         *slog.Logger
	audit          *slog.Logger
}

// New 构造 Supervisor。p 为空时使用默认的关键词解析器。
func New(resolver Resolver, p parser.Parser, opts ...Option) *Supervisor {
	s := &Supervisor{
		resolver:    resolver,
		parser:      p,
		timeout:     DefaultTimeout,
		maxAttempts: DefaultMaxAttempts,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.parser == nil {
		s.parser = parser.NewKeywordParser()
	}
	if s.logger == nil {
		s.logger = logger.Named("supervisor")
	}
	if s.audit == nil {
		s.audit = logger.Audit()
	}
	return s
}

// Timeout 返回默认的单次尝试时间预算。
func (s *Supervisor) Timeout() time.Duration {
	return s.timeout
}

// Parse 使用配置的解析器拆分查询。
func (s *Supervisor) Parse(text string) []protocol.TaskRequest {
	return s.parser.Parse(text)
}

// HandleQuery 解析文本并并发执行全部任务，返回与任务顺序一致的响应列表。
// 单个任务的失败以错误响应表示，HandleQuery 本身不会失败。
func (s *Supervisor) HandleQuery(ctx context.Context, text string) []protocol.TaskResponse {
	tasks := s.Parse(text)
	s.logger.Debug("查询解析完成", slog.Int("tasks", len(tasks)))
	return s.DelegateAll(ctx, tasks)
}

// Invalidate 丢弃某个方法的全部缓存结果，供数据源重新加载后调用。未启用缓存时什么也不做。
func (s *Supervisor) Invalidate(ctx context.Context, method string) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Purge(ctx, method); err != nil {
		return xerrors.Wrap(xerrors.CodeCacheFailure, err, "清理结果缓存失败",
			xerrors.WithMetadata("method", method))
	}
	s.logger.Debug("结果缓存已清理", slog.String("method", method))
	return nil
}

// DelegateAll 为每个任务启动一个协程，等待全部完成后按输入顺序返回。
func (s *Supervisor) DelegateAll(ctx context.Context, tasks []protocol.TaskRequest) []protocol.TaskResponse {
	responses := make([]protocol.TaskResponse, len(tasks))
	if len(tasks) == 0 {
		return responses
	}

	var g errgroup.Group
	if s.maxConcurrency > 0 {
		g.SetLimit(s.maxConcurrency)
	}
	for i, task := range tasks {
		g.Go(func() error {
			responses[i] = s.Delegate(ctx, task)
			return nil
		})
	}
	_ = g.Wait()
	return responses
}

// Delegate 以默认时间预算处理单个任务。
func (s *Supervisor) Delegate(ctx context.Context, task protocol.TaskRequest) protocol.TaskResponse {
	return s.DelegateWithTimeout(ctx, task, s.timeout)
}

// DelegateWithTimeout 以指定的单次尝试预算处理单个任务，timeout <= 0 时使用默认值。
func (s *Supervisor) DelegateWithTimeout(ctx context.Context, task protocol.TaskRequest, timeout time.Duration) protocol.TaskResponse {
	if timeout <= 0 {
		timeout = s.timeout
	}
	start := time.Now()
	resp, attempts, cached := s.delegate(ctx, task, timeout)
	s.record(task, resp, attempts, cached, time.Since(start))
	return resp
}

func (s *Supervisor) delegate(ctx context.Context, task protocol.TaskRequest, timeout time.Duration) (protocol.TaskResponse, int, bool) {
	ag, ok := s.resolver.Resolve(task.Method)
	if !ok || ag == nil {
		return protocol.Failure(task.ID, protocol.Errorf(protocol.CodeMethodNotFound, "Method %s not found", task.Method)), 0, false
	}

	if resp, hit := s.lookup(ctx, task); hit {
		return resp, 0, true
	}

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		resp, err := s.attempt(ctx, ag, task, timeout)
		if err == nil {
			if resp.OK() {
				s.store(ctx, task, resp)
			}
			return resp, attempt, false
		}
		if !xerrors.RetryableError(err) {
			return protocol.Failure(task.ID, protocol.NewError(protocol.CodeInvocationFailed, faultMessage(err))), attempt, false
		}
		if attempt == s.maxAttempts {
			return protocol.Failure(task.ID, protocol.Errorf(protocol.CodeTimeout, "Timeout after %s seconds", formatSeconds(timeout))), attempt, false
		}
		s.logger.Debug("任务超时，准备重试",
			slog.String("task_id", task.ID),
			slog.String("method", task.Method),
			slog.Int("attempt", attempt))
	}
	return protocol.Failure(task.ID, protocol.NewError(protocol.CodeUnhandled, unhandledMessage)), s.maxAttempts, false
}

// attempt 在独立协程中调用智能体。超时只放弃等待，不会中断未响应取消信号的智能体。
func (s *Supervisor) attempt(ctx context.Context, ag agent.Agent, task protocol.TaskRequest, timeout time.Duration) (protocol.TaskResponse, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan protocol.TaskResponse, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- protocol.Failure(task.ID, protocol.NewError(protocol.CodeInvocationFailed, fmt.Sprint(r)))
			}
		}()
		done <- agent.Handle(attemptCtx, ag, task)
	}()

	select {
	case resp := <-done:
		// 智能体因预算耗尽而返回的错误同样按超时处理。
		if !resp.OK() && ctx.Err() == nil && stdErrors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			return protocol.TaskResponse{}, timeoutError(task)
		}
		resp.ID = task.ID
		return resp, nil
	case <-attemptCtx.Done():
		if err := ctx.Err(); err != nil {
			return protocol.TaskResponse{}, xerrors.Wrap(xerrors.CodeInvocationFailure, err, "任务在完成前被取消")
		}
		return protocol.TaskResponse{}, timeoutError(task)
	}
}

func timeoutError(task protocol.TaskRequest) error {
	return xerrors.New(xerrors.CodeTimeout, "任务执行超时",
		xerrors.WithMetadata("task_id", task.ID),
		xerrors.WithMetadata("method", task.Method))
}

func (s *Supervisor) lookup(ctx context.Context, task protocol.TaskRequest) (protocol.TaskResponse, bool) {
	if s.cache == nil {
		return protocol.TaskResponse{}, false
	}
	key, err := cache.Key(task.Method, task.Params)
	if err != nil {
		s.logger.Warn("无法计算缓存键", slog.String("method", task.Method), slog.Any("error", err))
		return protocol.TaskResponse{}, false
	}
	raw, hit, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("读取结果缓存失败", slog.String("method", task.Method), slog.Any("error", err))
		return protocol.TaskResponse{}, false
	}
	if !hit {
		return protocol.TaskResponse{}, false
	}
	return protocol.Success(task.ID, raw), true
}

func (s *Supervisor) store(ctx context.Context, task protocol.TaskRequest, resp protocol.TaskResponse) {
	if s.cache == nil {
		return
	}
	key, err := cache.Key(task.Method, task.Params)
	if err != nil {
		return
	}
	raw, err := json.Marshal(resp.Result)
	if err != nil {
		s.logger.Warn("结果无法序列化，跳过缓存", slog.String("method", task.Method), slog.Any("error", err))
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.cacheTTL); err != nil {
		s.logger.Warn("写入结果缓存失败", slog.String("method", task.Method), slog.Any("error", err))
	}
}

func (s *Supervisor) record(task protocol.TaskRequest, resp protocol.TaskResponse, attempts int, cached bool, elapsed time.Duration) {
	code := 0
	if resp.Error != nil {
		code = resp.Error.Code
	}
	if s.metrics != nil {
		if cached {
			s.metrics.ObserveCacheHit(task.Method)
		}
		s.metrics.ObserveDispatch(task.Method, code, attempts, elapsed)
	}

	attrs := []any{
		slog.String("task_id", task.ID),
		slog.String("method", task.Method),
		slog.Int("code", code),
		slog.Int("attempts", attempts),
		slog.Bool("cached", cached),
		slog.Duration("duration", elapsed),
	}
	if resp.Error != nil {
		s.audit.Warn("任务处理失败", append(attrs, slog.String("error", resp.Error.Message))...)
		return
	}
	s.audit.Info("任务处理成功", attrs...)
}

// faultMessage 取出引擎故障的原始描述，避免把内部错误码暴露到响应中。
func faultMessage(err error) string {
	if e, ok := xerrors.From(err); ok && e.Unwrap() != nil {
		return e.Unwrap().Error()
	}
	return err.Error()
}

// formatSeconds 以秒为单位输出时间预算，整数秒保留一位小数（3s → "3.0"）。
func formatSeconds(d time.Duration) string {
	out := strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
	if !strings.Contains(out, ".") {
		out += ".0"
	}
	return out
}
