package cache

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"
)

// DefaultSweepInterval 是两次清理过期条目之间的最短间隔。
const DefaultSweepInterval = time.Minute

type memoryItem struct {
	value     json.RawMessage
	expiresAt time.Time
}

// MemoryCache 是进程内的 TTL 缓存。过期条目在读取时清理，
// 写入时每隔 sweepEvery 还会整体扫描一次，避免不再被读取的键常驻内存。
type MemoryCache struct {
	mu         sync.Mutex
	items      map[string]memoryItem
	now        func() time.Time
	sweepEvery time.Duration
	nextSweep  time.Time
}

// MemoryOption 定义内存缓存的可选配置。
type MemoryOption func(*MemoryCache)

// WithClock 替换时间来源，主要用于测试。
func WithClock(now func() time.Time) MemoryOption {
	return func(c *MemoryCache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithSweepInterval 设置过期条目的扫描间隔，d <= 0 时保持默认值。
func WithSweepInterval(d time.Duration) MemoryOption {
	return func(c *MemoryCache) {
		if d > 0 {
			c.sweepEvery = d
		}
	}
}

// NewMemoryCache 创建内存缓存。
func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	c := &MemoryCache{
		items:      make(map[string]memoryItem),
		now:        time.Now,
		sweepEvery: DefaultSweepInterval,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	c.nextSweep = c.now().Add(c.sweepEvery)
	return c
}

// Get 实现 Cache。
func (c *MemoryCache) Get(_ context.Context, key string) (json.RawMessage, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	item, ok := c.items[key]
	if !ok {
		return nil, false, nil
	}
	if !item.expiresAt.IsZero() && !c.now().Before(item.expiresAt) {
		delete(c.items, key)
		return nil, false, nil
	}
	return cloneRaw(item.value), true, nil
}

// Set 实现 Cache，ttl <= 0 表示永不过期。
func (c *MemoryCache) Set(_ context.Context, key string, value json.RawMessage, ttl time.Duration) error {
	now := c.now()
	item := memoryItem{value: cloneRaw(value)}
	if ttl > 0 {
		item.expiresAt = now.Add(ttl)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !now.Before(c.nextSweep) {
		c.sweepLocked(now)
	}
	c.items[key] = item
	return nil
}

// Purge 实现 Cache。
func (c *MemoryCache) Purge(_ context.Context, method string) error {
	prefix := methodPrefix(method)
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.items {
		if strings.HasPrefix(key, prefix) {
			delete(c.items, key)
		}
	}
	return nil
}

func (c *MemoryCache) sweepLocked(now time.Time) {
	for key, item := range c.items {
		if !item.expiresAt.IsZero() && !now.Before(item.expiresAt) {
			delete(c.items, key)
		}
	}
	c.nextSweep = now.Add(c.sweepEvery)
}

// Len 返回当前条目数（包含尚未清理的过期条目）。
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Close 清空缓存。
func (c *MemoryCache) Close() error {
	c.mu.Lock()
	c.items = make(map[string]memoryItem)
	c.mu.Unlock()
	return nil
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	out := make(json.RawMessage, len(raw))
	copy(out, raw)
	return out
}

var _ Cache = (*MemoryCache)(nil)
