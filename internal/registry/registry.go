package registry

import (
	"log/slog"
	"sort"

	"A2A-Supervisor/internal/agent"
	"A2A-Supervisor/internal/descriptor"
	"A2A-Supervisor/pkg/logger"
)

// Factory 创建一个智能体实例，每个描述文件只调用一次。
type Factory func() (agent.Agent, error)

// Binding 描述一个技能绑定到的智能体。
type Binding struct {
	Skill string `json:"skill"`
	Slug  string `json:"agent"`
}

type entry struct {
	slug  string
	agent agent.Agent
}

// Registry 是技能 ID 到智能体实例的只读映射，构建完成后可被并发查询而无需加锁。
type Registry struct {
	skills map[string]entry
}

// Option 定义构建时的可选配置。
type Option func(*builder)

type builder struct {
	logger *slog.Logger
}

// WithLogger 指定构建过程的诊断日志输出。
func WithLogger(l *slog.Logger) Option {
	return func(b *builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// Build 按描述文件顺序实例化智能体并绑定技能。
//
// 没有对应工厂或工厂返回错误的描述文件会被跳过并记录告警；后出现的描述文件会覆盖已绑定的同名技能。
func Build(descs []descriptor.Descriptor, factories map[string]Factory, opts ...Option) *Registry {
	b := &builder{}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	if b.logger == nil {
		b.logger = logger.Named("registry")
	}

	reg := &Registry{skills: make(map[string]entry)}
	for _, desc := range descs {
		slug := desc.Slug()
		factory, ok := factories[slug]
		if !ok || factory == nil {
			b.logger.Warn("未注册的智能体实现，跳过描述文件",
				slog.String("agent", slug),
				slog.String("source", desc.Source))
			continue
		}
		instance, err := factory()
		if err != nil || instance == nil {
			b.logger.Warn("智能体实例化失败，跳过描述文件",
				slog.String("agent", slug),
				slog.String("source", desc.Source),
				slog.Any("error", err))
			continue
		}
		for _, skill := range desc.SkillIDs() {
			if previous, exists := reg.skills[skill]; exists {
				b.logger.Warn("技能已被绑定，使用后加载的智能体覆盖",
					slog.String("skill", skill),
					slog.String("previous", previous.slug),
					slog.String("agent", slug))
			}
			reg.skills[skill] = entry{slug: slug, agent: instance}
		}
		b.logger.Debug("智能体已注册",
			slog.String("agent", slug),
			slog.Int("skills", len(desc.SkillIDs())))
	}
	return reg
}

// Resolve 返回支持该技能的智能体，不存在时第二个返回值为 false。
func (r *Registry) Resolve(skill string) (agent.Agent, bool) {
	if r == nil {
		return nil, false
	}
	e, ok := r.skills[skill]
	if !ok {
		return nil, false
	}
	return e.agent, true
}

// Skills 返回已绑定的技能 ID，按字典序排列。
func (r *Registry) Skills() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.skills))
	for skill := range r.skills {
		out = append(out, skill)
	}
	sort.Strings(out)
	return out
}

// Bindings 返回全部技能绑定，按技能 ID 排序。
func (r *Registry) Bindings() []Binding {
	skills := r.Skills()
	out := make([]Binding, 0, len(skills))
	for _, skill := range skills {
		out = append(out, Binding{Skill: skill, Slug: r.skills[skill].slug})
	}
	return out
}

// Len 返回已绑定技能的数量。
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.skills)
}
