package news

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"A2A-Supervisor/internal/protocol"
)

// CatalogEntry 描述目录文件中一家公司的新闻条目。
type CatalogEntry struct {
	Company  string    `yaml:"company"`
	Keywords []string  `yaml:"keywords"`
	Articles []Article `yaml:"articles"`
}

// StaticSource 通过加载 YAML/JSON 目录文件提供离线新闻检索能力。
type StaticSource struct {
	mu         sync.RWMutex
	items      []CatalogEntry
	maxResults int
}

// NewStaticSource 创建静态新闻源实例。
func NewStaticSource(items []CatalogEntry, maxResults int) *StaticSource {
	if maxResults <= 0 {
		maxResults = 5
	}
	return &StaticSource{
		items:      items,
		maxResults: maxResults,
	}
}

// LoadStaticSource 从目录文件加载新闻条目，JSON 作为 YAML 的子集同样可以解析。
func LoadStaticSource(path string, maxResults int) (*StaticSource, error) {
	entries, err := readCatalog(path)
	if err != nil {
		return nil, err
	}
	return NewStaticSource(entries, maxResults), nil
}

// Replace 原子地替换目录条目。
func (s *StaticSource) Replace(items []CatalogEntry) {
	s.mu.Lock()
	s.items = items
	s.mu.Unlock()
}

// Reload 重新读取目录文件，解析失败时保留原有条目。
func (s *StaticSource) Reload(path string) error {
	entries, err := readCatalog(path)
	if err != nil {
		return err
	}
	s.Replace(entries)
	return nil
}

// Len 返回当前目录中的公司数量。
func (s *StaticSource) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func readCatalog(path string) ([]CatalogEntry, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("新闻目录文件路径不能为空")
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("解析新闻目录路径失败: %w", err)
	}

	raw, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("读取新闻目录文件失败: %w", err)
	}

	var entries []CatalogEntry
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("解析新闻目录文件失败: %w", err)
	}
	return entries, nil
}

// Fetch 根据公司名与关键字做简单匹配，未命中时返回空列表而不是错误。
func (s *StaticSource) Fetch(ctx context.Context, company string) (protocol.TaskResponse, error) {
	if err := ctx.Err(); err != nil {
		return protocol.TaskResponse{}, err
	}

	report := Report{CompanyName: company, Articles: []Article{}}
	if s == nil {
		return protocol.Success(mockEnvelopeID, report), nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	query := strings.ToLower(strings.TrimSpace(company))
	for _, item := range s.items {
		if !matches(item, query) {
			continue
		}
		for _, article := range item.Articles {
			report.Articles = append(report.Articles, article)
			if len(report.Articles) >= s.maxResults {
				return protocol.Success(mockEnvelopeID, report), nil
			}
		}
	}
	return protocol.Success(mockEnvelopeID, report), nil
}

func matches(entry CatalogEntry, query string) bool {
	if query == "" {
		return false
	}
	if strings.ToLower(strings.TrimSpace(entry.Company)) == query {
		return true
	}
	for _, keyword := range entry.Keywords {
		normalized := strings.ToLower(strings.TrimSpace(keyword))
		if normalized == "" {
			continue
		}
		if strings.Contains(query, normalized) {
			return true
		}
	}
	return false
}

// Ensure StaticSource 实现 Source 接口。
var _ Source = (*StaticSource)(nil)
