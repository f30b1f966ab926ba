package main

import (
	"context"
	stdErrors "errors"
	"log/slog"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"A2A-Supervisor/internal/api"
	"A2A-Supervisor/internal/job"
	"A2A-Supervisor/internal/tools/news"
	"A2A-Supervisor/pkg/logger"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the query, job and metrics HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := bootstrap(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.close()
			if addr != "" {
				a.cfg.Server.Address = addr
			}
			return serve(cmd.Context(), a)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address override, e.g. :8080")
	return cmd
}

// serve 同时运行 API 服务、作业处理器与可选的新闻目录监听，任一出错即全部退出。
func serve(ctx context.Context, a *app) error {
	queue, err := openQueue(ctx, a)
	if err != nil {
		return err
	}
	store := job.NewMemoryStore()
	jobs := job.NewService(store, queue)
	defer jobs.Close()

	processor := job.NewProcessor(a.sup, store, queue,
		job.WithWorkerCount(a.cfg.Jobs.Workers),
		job.WithProcessorLogger(logger.Named("job")))

	server := api.NewServer(a.cfg.Server.Address, a.sup,
		api.WithJobs(jobs),
		api.WithCatalog(a.registry),
		api.WithMetrics(a.metrics),
		api.WithLogger(logger.Named("api")))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return processor.Start(gctx) })
	g.Go(func() error { return server.Start(gctx) })
	if a.catalog != nil && a.cfg.Agents.WatchCatalog {
		g.Go(func() error {
			return news.Watch(gctx, a.catalog, a.cfg.Agents.NewsCatalog, logger.Named("news"),
				news.OnReload(a.newsReloaded))
		})
	}

	err = g.Wait()
	if stdErrors.Is(err, context.Canceled) {
		a.logger.Info("服务已停止")
		return nil
	}
	if err != nil {
		a.logger.Error("服务异常退出", slog.Any("error", err))
	}
	return err
}

func openQueue(ctx context.Context, a *app) (job.Queue, error) {
	cfg := a.cfg.Jobs
	switch cfg.Driver {
	case "redis":
		return job.NewRedisQueue(ctx, job.RedisQueueConfig{
			Address:   cfg.Redis.Address,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			Key:       cfg.Redis.Key,
			BlockWait: cfg.Redis.BlockWait,
		})
	case "rabbitmq":
		return job.NewRabbitMQQueue(ctx, job.RabbitMQQueueConfig{
			URL:        cfg.RabbitMQ.URL,
			Queue:      cfg.RabbitMQ.Queue,
			Prefetch:   cfg.RabbitMQ.Prefetch,
			Durable:    cfg.RabbitMQ.Durable,
			AutoDelete: cfg.RabbitMQ.AutoDelete,
		})
	default:
		return job.NewMemoryQueue(cfg.QueueSize), nil
	}
}
