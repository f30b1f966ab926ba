package parser

import (
	"regexp"
	"slices"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"A2A-Supervisor/internal/protocol"
)

// Parser 将自由文本转换为有序的任务请求列表。
type Parser interface {
	Parse(text string) []protocol.TaskRequest
}

// Intent 描述一条关键词规则：文本包含 Phrase 且分词结果包含全部 Required 时，
// 取 Anchor 首次出现之后的 EntityWords 个词作为实体。
type Intent struct {
	Phrase      string
	Anchor      string
	Required    []string
	EntityWords int
	Method      string
	Param       string
}

// DefaultIntents 是内置的两条规则，输出顺序固定为新闻在前、CRM 在后。
var DefaultIntents = []Intent{
	{
		Phrase:      "news about",
		Anchor:      "about",
		Required:    []string{"news", "about"},
		EntityWords: 2,
		Method:      "get_company_news",
		Param:       "company_name",
	},
	{
		Phrase:      "crm history for",
		Anchor:      "for",
		Required:    []string{"crm", "history", "for"},
		EntityWords: 2,
		Method:      "get_crm_history",
		Param:       "contact_name",
	},
}

// 仅保留字母、数字、下划线与空白。
var punctuation = regexp.MustCompile(`[^\p{L}\p{N}\p{M}_\s\p{Z}]`)

// KeywordParser 是基于关键词匹配的朴素解析器。
type KeywordParser struct {
	intents []Intent
	newID   func() string
}

// Option 定义解析器的可选配置。
type Option func(*KeywordParser)

// WithIDGenerator 替换任务 ID 生成函数，默认使用 UUIDv4。
func WithIDGenerator(fn func() string) Option {
	return func(p *KeywordParser) {
		if fn != nil {
			p.newID = fn
		}
	}
}

// WithIntents 替换规则表，规则顺序即输出顺序。
func WithIntents(intents ...Intent) Option {
	return func(p *KeywordParser) {
		p.intents = append([]Intent(nil), intents...)
	}
}

// NewKeywordParser 创建解析器。
func NewKeywordParser(opts ...Option) *KeywordParser {
	p := &KeywordParser{
		intents: DefaultIntents,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Parse 实现 Parser。标点会在分词前被移除，因此实体末尾的标点同样丢失（"Acme Inc." → "Acme Inc"）。
func (p *KeywordParser) Parse(text string) []protocol.TaskRequest {
	cleaned := StripPunctuation(text)
	lowered := strings.ToLower(cleaned)
	words := strings.Fields(lowered)

	tasks := make([]protocol.TaskRequest, 0, len(p.intents))
	for _, intent := range p.intents {
		if !strings.Contains(lowered, intent.Phrase) {
			continue
		}
		entity := extract(words, intent)
		if entity == "" {
			continue
		}
		tasks = append(tasks, protocol.NewRequest(p.newID(), intent.Method, map[string]any{
			intent.Param: entity,
		}))
	}
	return tasks
}

// StripPunctuation 删除字母、数字、下划线与空白之外的全部字符。
func StripPunctuation(text string) string {
	return punctuation.ReplaceAllString(text, "")
}

func extract(words []string, intent Intent) string {
	for _, token := range intent.Required {
		if !slices.Contains(words, token) {
			return ""
		}
	}
	idx := slices.Index(words, intent.Anchor)
	if idx < 0 {
		return ""
	}
	start := idx + 1
	end := min(start+intent.EntityWords, len(words))
	if start >= end {
		return ""
	}
	return titleCase(words[start:end])
}

// titleCase 将每个单词首字母大写，下划线分隔的片段分别处理（john_doe 得到 John_Doe）。
func titleCase(words []string) string {
	caser := cases.Title(language.English)
	out := make([]string, len(words))
	for i, word := range words {
		parts := strings.Split(word, "_")
		for j, part := range parts {
			parts[j] = caser.String(part)
		}
		out[i] = strings.Join(parts, "_")
	}
	return strings.Join(out, " ")
}

var _ Parser = (*KeywordParser)(nil)
