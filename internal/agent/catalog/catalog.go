// Package catalog holds the compile-time table of agent implementations
// known to this binary, keyed by descriptor slug.
package catalog

import (
	"A2A-Supervisor/internal/agent"
	"A2A-Supervisor/internal/agent/crmresearch"
	"A2A-Supervisor/internal/agent/webresearch"
	"A2A-Supervisor/internal/registry"
	"A2A-Supervisor/internal/tools/crm"
	"A2A-Supervisor/internal/tools/news"
)

// Deps carries the tool layers handed to the built-in agents. Nil fields fall
// back to the mock sources.
type Deps struct {
	News news.Source
	CRM  crm.Source
}

// Builtin returns a fresh factory table for the agents compiled into this
// binary.
func Builtin(deps Deps) map[string]registry.Factory {
	return map[string]registry.Factory{
		webresearch.Slug: func() (agent.Agent, error) {
			return webresearch.New(deps.News), nil
		},
		crmresearch.Slug: func() (agent.Agent, error) {
			return crmresearch.New(deps.CRM), nil
		},
	}
}

// Slugs lists the slugs Builtin knows about, in a stable order.
func Slugs() []string {
	return []string{crmresearch.Slug, webresearch.Slug}
}
