package api

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	xerrors "A2A-Supervisor/internal/errors"
	"A2A-Supervisor/internal/job"
	"A2A-Supervisor/internal/metrics"
	"A2A-Supervisor/internal/protocol"
	"A2A-Supervisor/internal/registry"
	"A2A-Supervisor/pkg/logger"
)

const maxBodyBytes = 1 << 20

// QueryHandler 执行一次同步查询，supervisor.Supervisor 实现了该接口。
type QueryHandler interface {
	HandleQuery(ctx context.Context, text string) []protocol.TaskResponse
}

// Catalog 列出已注册的技能绑定，registry.Registry 实现了该接口。
type Catalog interface {
	Bindings() []registry.Binding
}

// Server 负责暴露 REST 接口，供外部提交查询与作业。
type Server struct {
	addr    string
	queries QueryHandler
	jobs    *job.Service
	catalog Catalog
	metrics *metrics.Collector
	logger  *slog.Logger
}

// Option 定义可选配置。
type Option func(*Server)

// WithJobs 启用异步作业接口。
func WithJobs(svc *job.Service) Option {
	return func(s *Server) { s.jobs = svc }
}

// WithCatalog 启用智能体列表接口。
func WithCatalog(c Catalog) Option {
	return func(s *Server) { s.catalog = c }
}

// WithMetrics 记录请求指标并暴露 /metrics。
func WithMetrics(c *metrics.Collector) Option {
	return func(s *Server) { s.metrics = c }
}

// WithLogger 指定日志输出。
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer 构造 API 服务实例。
func NewServer(addr string, queries QueryHandler, opts ...Option) *Server {
	s := &Server{addr: addr, queries: queries}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.logger == nil {
		s.logger = logger.Named("api")
	}
	return s
}

type queryRequest struct {
	Query string `json:"query"`
}

// Handler 返回注册了全部路由的 http.Handler。
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/query", s.handleQuery)
	mux.HandleFunc("POST /api/v1/jobs", s.handleCreateJob)
	mux.HandleFunc("GET /api/v1/jobs", s.handleListJobs)
	mux.HandleFunc("GET /api/v1/jobs/{id}", s.handleJobDetail)
	mux.HandleFunc("GET /api/v1/agents", s.handleAgents)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}
	return s.instrument(mux)
}

// Start 启动 HTTP 服务，直到上下文取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           withContext(ctx, s.Handler()),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !stdErrors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	s.logger.Info("API 服务已启动", slog.String("address", s.addr))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// handleQuery 同步执行查询并返回与任务顺序一致的响应列表。
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if s.queries == nil {
		writeError(w, http.StatusServiceUnavailable, "Supervisor 未初始化")
		return
	}
	query, ok := decodeQuery(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.queries.HandleQuery(r.Context(), query))
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	if s.jobs == nil {
		writeError(w, http.StatusServiceUnavailable, "作业服务未启用")
		return
	}
	query, ok := decodeQuery(w, r)
	if !ok {
		return
	}
	created, err := s.jobs.Submit(r.Context(), query)
	if err != nil {
		s.logger.Error("提交作业失败", slog.Any("error", err))
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, created)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	if s.jobs == nil {
		writeError(w, http.StatusServiceUnavailable, "作业服务未启用")
		return
	}
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "limit 必须为正整数")
			return
		}
		limit = parsed
	}
	jobs, err := s.jobs.List(r.Context(), limit)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (s *Server) handleJobDetail(w http.ResponseWriter, r *http.Request) {
	if s.jobs == nil {
		writeError(w, http.StatusServiceUnavailable, "作业服务未启用")
		return
	}
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "缺少作业 ID")
		return
	}
	found, err := s.jobs.Get(r.Context(), id)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, found)
}

func (s *Server) handleAgents(w http.ResponseWriter, _ *http.Request) {
	if s.catalog == nil {
		writeJSON(w, http.StatusOK, []registry.Binding{})
		return
	}
	writeJSON(w, http.StatusOK, s.catalog.Bindings())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decodeQuery 解析请求体，失败时按 JSON-RPC 约定写入 -32700 或 -32600 错误。
func decodeQuery(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req queryRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := decoder.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, protocol.Failure("", protocol.NewError(protocol.CodeParseError, "Parse error: "+err.Error())))
		return "", false
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, protocol.Failure("", protocol.NewError(protocol.CodeInvalidRequest, "Invalid Request: query must not be empty")))
		return "", false
	}
	return req.Query, true
}

func statusFor(err error) int {
	switch xerrors.CodeOf(err) {
	case job.CodeJobNotFound, xerrors.CodeNotFound:
		return http.StatusNotFound
	case job.CodeJobValidation, xerrors.CodeInvalidArgument:
		return http.StatusBadRequest
	case job.CodeJobConflict:
		return http.StatusConflict
	case xerrors.CodeInitializationFailure, job.CodeJobPublish, xerrors.CodeQueueFailure:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// instrument 记录每个请求的状态码与耗时，路由标签使用匹配到的模式以避免基数膨胀。
func (s *Server) instrument(mux *http.ServeMux) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		mux.ServeHTTP(rec, r)
		if s.metrics == nil {
			return
		}
		_, pattern := mux.Handler(r)
		if pattern == "" {
			pattern = "unmatched"
		}
		s.metrics.ObserveHTTPRequest(pattern, r.Method, rec.status, time.Since(start))
	})
}

// withContext 确保请求处理能够感知根上下文取消。
func withContext(ctx context.Context, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-ctx.Done():
			http.Error(w, "服务已关闭", http.StatusServiceUnavailable)
			return
		default:
		}
		handler.ServeHTTP(w, r)
	})
}
