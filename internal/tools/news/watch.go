package news

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 200 * time.Millisecond

// WatchOption 定义 Watch 的可选配置。
type WatchOption func(*watchOptions)

type watchOptions struct {
	onReload []func(context.Context)
}

// OnReload 注册在每次成功重新加载后调用的回调，例如清理依赖旧目录的结果缓存。
func OnReload(fn func(context.Context)) WatchOption {
	return func(o *watchOptions) {
		if fn != nil {
			o.onReload = append(o.onReload, fn)
		}
	}
}

// Watch 监听目录文件变更并热加载到 source，直到 ctx 结束。
// 监听的是文件所在目录，以兼容编辑器先写临时文件再重命名的保存方式。
func Watch(ctx context.Context, source *StaticSource, path string, logger *slog.Logger, opts ...WatchOption) error {
	var options watchOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	if source == nil {
		return fmt.Errorf("新闻源不能为空")
	}
	if logger == nil {
		logger = slog.Default()
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("解析新闻目录路径失败: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("创建文件监听器失败: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		return fmt.Errorf("监听新闻目录失败: %w", err)
	}

	var (
		timer   *time.Timer
		pending <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != absPath {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(defaultDebounce)
			} else {
				timer.Reset(defaultDebounce)
			}
			pending = timer.C
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("新闻目录监听异常", slog.Any("error", err))
		case <-pending:
			pending = nil
			if err := source.Reload(absPath); err != nil {
				logger.Warn("新闻目录重新加载失败，保留旧数据", slog.String("path", absPath), slog.Any("error", err))
				continue
			}
			logger.Info("新闻目录已重新加载", slog.String("path", absPath), slog.Int("companies", source.Len()))
			for _, fn := range options.onReload {
				fn(ctx)
			}
		}
	}
}
