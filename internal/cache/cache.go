package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// Cache 保存成功任务的结果，按 TTL 过期。
type Cache interface {
	Get(ctx context.Context, key string) (json.RawMessage, bool, error)
	Set(ctx context.Context, key string, value json.RawMessage, ttl time.Duration) error
	// Purge 删除某个方法的全部缓存结果，数据源变化后调用。
	Purge(ctx context.Context, method string) error
	Close() error
}

// Key 由方法名与参数的规范化 JSON 计算缓存键。encoding/json 对 map 键排序，
// 因此相同参数总是得到相同的键。
func Key(method string, params map[string]any) (string, error) {
	if params == nil {
		params = map[string]any{}
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return methodPrefix(method) + hex.EncodeToString(sum[:]), nil
}

func methodPrefix(method string) string {
	return method + ":"
}

// Nop 是不做任何缓存的实现，对应配置 driver: none。
type Nop struct{}

// Get 总是未命中。
func (Nop) Get(context.Context, string) (json.RawMessage, bool, error) { return nil, false, nil }

// Set 丢弃写入。
func (Nop) Set(context.Context, string, json.RawMessage, time.Duration) error { return nil }

// Purge 无需处理。
func (Nop) Purge(context.Context, string) error { return nil }

// Close 无需释放资源。
func (Nop) Close() error { return nil }

var _ Cache = Nop{}
