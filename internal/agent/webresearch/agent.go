// Package webresearch implements the agent answering company news lookups.
package webresearch

import (
	"context"

	"A2A-Supervisor/internal/agent"
	"A2A-Supervisor/internal/tools/news"
)

// Slug 是智能体在描述文件中的标识。
const Slug = "web-research-agent"

// MethodCompanyNews 是该智能体唯一支持的方法。
const MethodCompanyNews = "get_company_news"

// Agent 负责检索公司相关新闻。
type Agent struct {
	*agent.Base
	source news.Source
}

// New 创建智能体，source 为空时使用模拟数据源。
func New(source news.Source) *Agent {
	if source == nil {
		source = news.MockSource{}
	}
	a := &Agent{source: source}
	a.Base = agent.NewBase(Slug, map[string]agent.MethodFunc{
		MethodCompanyNews: a.companyNews,
	})
	return a
}

// companyNews 需要 company_name 参数，返回 {"articles": <数据源信封>}。
func (a *Agent) companyNews(ctx context.Context, params map[string]any) (any, error) {
	company, err := agent.RequireString(params, "company_name")
	if err != nil {
		return nil, err
	}
	envelope, err := a.source.Fetch(ctx, company)
	if err != nil {
		return nil, err
	}
	return map[string]any{"articles": envelope}, nil
}
