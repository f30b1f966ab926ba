package supervisor

import (
	"log/slog"
	"time"

	"A2A-Supervisor/internal/cache"
)

// Option 定义 Supervisor 的可选配置。
type Option func(*Supervisor)

// WithTimeout 设置单次尝试的默认时间预算。
func WithTimeout(timeout time.Duration) Option {
	return func(s *Supervisor) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// WithMaxAttempts 设置每个任务的最大尝试次数（仅超时会触发重试），最小为 1。
func WithMaxAttempts(attempts int) Option {
	return func(s *Supervisor) {
		if attempts > 0 {
			s.maxAttempts = attempts
		}
	}
}

// WithMaxConcurrency 限制单个查询内同时执行的任务数，0 表示不限制。
func WithMaxConcurrency(limit int) Option {
	return func(s *Supervisor) {
		if limit >= 0 {
			s.maxConcurrency = limit
		}
	}
}

// WithCache 启用结果缓存，ttl <= 0 表示不过期。
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(s *Supervisor) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

// WithMetrics 配置指标记录器。
func WithMetrics(recorder Recorder) Option {
	return func(s *Supervisor) {
		s.metrics = recorder
	}
}

// WithLogger 指定诊断日志输出。
func WithLogger(logger *slog.Logger) Option {
	return func(s *Supervisor) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithAuditLogger 指定任务结果的审计日志输出。
func WithAuditLogger(logger *slog.Logger) Option {
	return func(s *Supervisor) {
		if logger != nil {
			s.audit = logger
		}
	}
}
