package registry

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"A2A-Supervisor/internal/agent"
	"A2A-Supervisor/internal/descriptor"
)

func stubFactory(name string, calls *int) Factory {
	return func() (agent.Agent, error) {
		*calls++
		return agent.NewBase(name, map[string]agent.MethodFunc{
			"ping": func(context.Context, map[string]any) (any, error) { return name, nil },
		}), nil
	}
}

func bufferLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestBuildBindsEverySkillToOneInstance(t *testing.T) {
	var calls int
	descs := []descriptor.Descriptor{{
		Name:   "Multi Agent",
		Skills: []descriptor.Skill{{ID: "alpha"}, {ID: "beta"}},
	}}

	reg := Build(descs, map[string]Factory{"multi-agent": stubFactory("multi", &calls)}, WithLogger(bufferLogger(&bytes.Buffer{})))

	assert.Equal(t, 1, calls)
	alpha, ok := reg.Resolve("alpha")
	require.True(t, ok)
	beta, ok := reg.Resolve("beta")
	require.True(t, ok)
	assert.Same(t, alpha, beta)
	assert.Equal(t, []string{"alpha", "beta"}, reg.Skills())
	assert.Equal(t, []Binding{{Skill: "alpha", Slug: "multi-agent"}, {Skill: "beta", Slug: "multi-agent"}}, reg.Bindings())
}

func TestBuildSkipsUnknownSlug(t *testing.T) {
	var buf bytes.Buffer
	var calls int
	descs := []descriptor.Descriptor{
		{Name: "Ghost Agent", Skills: []descriptor.Skill{{ID: "haunt"}}},
		{Name: "Real", SlugValue: "real", Skills: []descriptor.Skill{{ID: "work"}}},
	}

	reg := Build(descs, map[string]Factory{"real": stubFactory("real", &calls)}, WithLogger(bufferLogger(&buf)))

	_, ok := reg.Resolve("haunt")
	assert.False(t, ok)
	_, ok = reg.Resolve("work")
	assert.True(t, ok)
	assert.Equal(t, 1, reg.Len())
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "ghost-agent")
}

func TestBuildSkipsFailingFactory(t *testing.T) {
	var buf bytes.Buffer
	descs := []descriptor.Descriptor{{Name: "broken", Skills: []descriptor.Skill{{ID: "x"}}}}
	factories := map[string]Factory{
		"broken": func() (agent.Agent, error) { return nil, errors.New("no credentials") },
	}

	reg := Build(descs, factories, WithLogger(bufferLogger(&buf)))

	assert.Zero(t, reg.Len())
	assert.Contains(t, buf.String(), "no credentials")
}

func TestBuildDuplicateSkillLastWins(t *testing.T) {
	var buf bytes.Buffer
	var firstCalls, secondCalls int
	descs := []descriptor.Descriptor{
		{Name: "first", Skills: []descriptor.Skill{{ID: "shared"}}},
		{Name: "second", Skills: []descriptor.Skill{{ID: "shared"}}},
	}
	factories := map[string]Factory{
		"first":  stubFactory("first", &firstCalls),
		"second": stubFactory("second", &secondCalls),
	}

	reg := Build(descs, factories, WithLogger(bufferLogger(&buf)))

	ag, ok := reg.Resolve("shared")
	require.True(t, ok)
	assert.Equal(t, "second", agent.NameOf(ag))
	assert.Contains(t, buf.String(), "previous=first")
}

func TestResolveIsIdempotentAndConcurrentSafe(t *testing.T) {
	var calls int
	reg := Build(
		[]descriptor.Descriptor{{Name: "solo", Skills: []descriptor.Skill{{ID: "ping"}}}},
		map[string]Factory{"solo": stubFactory("solo", &calls)},
		WithLogger(bufferLogger(&bytes.Buffer{})),
	)
	first, ok := reg.Resolve("ping")
	require.True(t, ok)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			again, ok := reg.Resolve("ping")
			assert.True(t, ok)
			assert.Same(t, first, again)
		}()
	}
	wg.Wait()

	_, ok = reg.Resolve("missing")
	assert.False(t, ok)
}

func TestNilRegistryResolve(t *testing.T) {
	var reg *Registry
	_, ok := reg.Resolve("anything")
	assert.False(t, ok)
	assert.Empty(t, reg.Skills())
}
