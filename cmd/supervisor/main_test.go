package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testConfig = filepath.Join("..", "..", "configs", "supervisor.yaml")

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("A2A_LOG_OUTPUTS", "discard")
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(append([]string{"--config", testConfig}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestReadQuery(t *testing.T) {
	text, err := readQuery(strings.NewReader("ignored"), []string{"news", "about", "Acme"})
	require.NoError(t, err)
	assert.Equal(t, "news about Acme", text)

	text, err = readQuery(strings.NewReader("  crm history for Jane Smith\n"), nil)
	require.NoError(t, err)
	assert.Equal(t, "crm history for Jane Smith", text)

	text, err = readQuery(strings.NewReader(""), nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultQuery, text)
}

func TestQueryCommandPrintsResponsesInOrder(t *testing.T) {
	stdout, stderr, err := execute(t, "query", "Find", "recent", "company", "news", "about", "Acme", "Inc", "and", "pull", "CRM", "history", "for", "John", "Doe")
	require.NoError(t, err)

	var responses []map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &responses))
	require.Len(t, responses, 2)
	for _, resp := range responses {
		assert.Equal(t, "2.0", resp["jsonrpc"])
		assert.Contains(t, resp, "result")
		assert.NotContains(t, resp, "error")
	}

	news := responses[0]["result"].(map[string]any)["articles"].(map[string]any)["result"].(map[string]any)
	assert.Equal(t, "Acme Inc", news["company_name"])
	crm := responses[1]["result"].(map[string]any)
	assert.Equal(t, "John Doe", crm["contact_name"])
	assert.Contains(t, stderr, "2 task(s) succeeded")
}

func TestQueryCommandNoMatch(t *testing.T) {
	stdout, stderr, err := execute(t, "query", "what", "is", "the", "weather")
	require.NoError(t, err)
	assert.Equal(t, "[]\n", stdout)
	assert.Contains(t, stderr, "no task matched")
}

func TestAgentsCommand(t *testing.T) {
	stdout, _, err := execute(t, "agents")
	require.NoError(t, err)
	assert.Contains(t, stdout, "get_company_news")
	assert.Contains(t, stdout, "web-research-agent")
	assert.Contains(t, stdout, "get_crm_history")
	assert.Contains(t, stdout, "crm-research-agent")
}

func TestMissingConfigFails(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml"), "agents"})
	assert.Error(t, cmd.Execute())
}

func TestNewsReloadInvalidatesCachedResults(t *testing.T) {
	t.Setenv("A2A_LOG_OUTPUTS", "discard")
	dir := t.TempDir()
	cards, err := filepath.Abs(filepath.Join("..", "..", "agent_cards", "web_research_agent_card.json"))
	require.NoError(t, err)
	catalogPath := filepath.Join(dir, "news.yaml")
	writeCatalog := func(title string) {
		content := fmt.Sprintf("- company: Acme Inc\n  articles:\n    - {title: %q, date: \"2025-01-01\"}\n", title)
		require.NoError(t, os.WriteFile(catalogPath, []byte(content), 0o644))
	}
	writeCatalog("old")
	configPath := filepath.Join(dir, "supervisor.yaml")
	config := fmt.Sprintf("agents:\n  cards: [%q]\n  news_catalog: news.yaml\ncache:\n  driver: memory\n  ttl: 5m\n", cards)
	require.NoError(t, os.WriteFile(configPath, []byte(config), 0o644))

	a, err := bootstrap(context.Background(), &rootOptions{configPath: configPath})
	require.NoError(t, err)
	defer a.close()

	firstTitle := func() string {
		responses := a.sup.HandleQuery(context.Background(), "news about Acme Inc")
		require.Len(t, responses, 1)
		raw, err := json.Marshal(responses[0])
		require.NoError(t, err)
		var decoded struct {
			Result struct {
				Articles struct {
					Result struct {
						Articles []struct {
							Title string `json:"title"`
						} `json:"articles"`
					} `json:"result"`
				} `json:"articles"`
			} `json:"result"`
		}
		require.NoError(t, json.Unmarshal(raw, &decoded))
		require.NotEmpty(t, decoded.Result.Articles.Result.Articles)
		return decoded.Result.Articles.Result.Articles[0].Title
	}

	assert.Equal(t, "old", firstTitle())

	writeCatalog("new")
	require.NoError(t, a.catalog.Reload(catalogPath))
	a.newsReloaded(context.Background())

	assert.Equal(t, "new", firstTitle())
}
