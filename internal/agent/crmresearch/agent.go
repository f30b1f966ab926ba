// Package crmresearch implements the agent answering CRM history lookups.
package crmresearch

import (
	"context"

	"A2A-Supervisor/internal/agent"
	"A2A-Supervisor/internal/tools/crm"
)

const (
	Slug              = "crm-research-agent"
	MethodCRMHistory  = "get_crm_history"
	paramsContactName = "contact_name"
)

// Agent 负责查询联系人的 CRM 交互历史。
type Agent struct {
	*agent.Base
	source crm.Source
}

// New 创建智能体，source 为空时使用模拟数据源。
func New(source crm.Source) *Agent {
	if source == nil {
		source = crm.MockSource{}
	}
	a := &Agent{source: source}
	a.Base = agent.NewBase(Slug, map[string]agent.MethodFunc{
		MethodCRMHistory: a.history,
	})
	return a
}

func (a *Agent) history(ctx context.Context, params map[string]any) (any, error) {
	contact, err := agent.RequireString(params, paramsContactName)
	if err != nil {
		return nil, err
	}
	return a.source.Fetch(ctx, contact)
}
