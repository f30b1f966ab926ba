package main

import (
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"

	"A2A-Supervisor/internal/agent/catalog"
	"A2A-Supervisor/internal/agent/webresearch"
	"A2A-Supervisor/internal/cache"
	"A2A-Supervisor/internal/config"
	"A2A-Supervisor/internal/descriptor"
	"A2A-Supervisor/internal/metrics"
	"A2A-Supervisor/internal/registry"
	"A2A-Supervisor/internal/supervisor"
	"A2A-Supervisor/internal/tools/crm"
	"A2A-Supervisor/internal/tools/news"
	"A2A-Supervisor/pkg/logger"
)

// app 聚合一次进程运行所需的全部组件。
type app struct {
	cfg      *config.Config
	registry *registry.Registry
	sup      *supervisor.Supervisor
	metrics  *metrics.Collector
	catalog  *news.StaticSource
	cache    cache.Cache
	logger   *slog.Logger
}

// bootstrap 按 配置 → 日志 → 描述文件 → 注册表 → 缓存 → Supervisor 的顺序装配组件。
func bootstrap(ctx context.Context, opts *rootOptions) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.timeout > 0 {
		cfg.Supervisor.Timeout = opts.timeout
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}

	if err := logger.Init(logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		OutputPaths: cfg.Log.Outputs,
		Audit: logger.AuditConfig{
			Enabled:    cfg.Log.Audit.Enabled,
			Path:       cfg.Log.Audit.Path,
			MaxSizeMB:  cfg.Log.Audit.MaxSizeMB,
			MaxBackups: cfg.Log.Audit.MaxBackups,
			MaxAgeDays: cfg.Log.Audit.MaxAgeDays,
		},
	}); err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}
	log := logger.Named("bootstrap")

	descs, err := descriptor.Load(cfg.Agents.Cards...)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, metrics: metrics.New(), logger: log}

	deps := catalog.Deps{
		News: news.MockSource{Latency: cfg.Agents.MockLatency},
		CRM:  crm.MockSource{Latency: cfg.Agents.MockLatency},
	}
	if cfg.Agents.NewsCatalog != "" {
		source, err := news.LoadStaticSource(cfg.Agents.NewsCatalog, cfg.Agents.NewsMaxResults)
		if err != nil {
			return nil, err
		}
		a.catalog = source
		deps.News = source
		log.Info("已加载新闻目录", slog.String("path", cfg.Agents.NewsCatalog), slog.Int("companies", source.Len()))
	}

	a.registry = registry.Build(descs, catalog.Builtin(deps), registry.WithLogger(logger.Named("registry")))
	log.Info("智能体注册完成", slog.Int("skills", a.registry.Len()), slog.String("config", cfg.Path))

	a.cache, err = openCache(ctx, cfg.Cache)
	if err != nil {
		return nil, err
	}

	a.sup = supervisor.New(a.registry, nil,
		supervisor.WithTimeout(cfg.Supervisor.Timeout),
		supervisor.WithMaxAttempts(cfg.Supervisor.MaxAttempts),
		supervisor.WithMaxConcurrency(cfg.Supervisor.MaxConcurrency),
		supervisor.WithCache(a.cache, cfg.Cache.TTL),
		supervisor.WithMetrics(a.metrics),
	)
	return a, nil
}

func openCache(ctx context.Context, cfg config.CacheConfig) (cache.Cache, error) {
	switch cfg.Driver {
	case "none":
		return cache.Nop{}, nil
	case "memory", "":
		return cache.NewMemoryCache(), nil
	case "redis":
		return cache.NewRedisCache(ctx, cache.RedisConfig{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})
	default:
		return nil, fmt.Errorf("未知的缓存驱动: %s", cfg.Driver)
	}
}

// newsReloaded 在新闻目录重新加载后清理新闻结果缓存，使后续查询读取新目录。
func (a *app) newsReloaded(ctx context.Context) {
	if err := a.sup.Invalidate(ctx, webresearch.MethodCompanyNews); err != nil {
		a.logger.Warn("新闻目录已更新但缓存清理失败", slog.Any("error", err))
	}
}

// close 释放缓存连接并刷新日志文件。
func (a *app) close() error {
	var err error
	if a.cache != nil {
		err = stdErrors.Join(err, a.cache.Close())
	}
	return stdErrors.Join(err, logger.Sync())
}
