package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitWritesToFile(t *testing.T) {
	dir := t.TempDir()
	appLog := filepath.Join(dir, "app", "supervisor.log")
	t.Cleanup(func() { _ = Sync() })

	require.NoError(t, Init(Config{Level: "debug", Format: "json", OutputPaths: []string{appLog}}))
	Named("registry").Debug("bound", "skill", "get_crm_history")
	require.NoError(t, Sync())

	raw, err := os.ReadFile(appLog)
	require.NoError(t, err)
	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(string(raw))), &record))
	assert.Equal(t, "bound", record["msg"])
	assert.Equal(t, "registry", record["component"])
	assert.Equal(t, "get_crm_history", record["skill"])
}

func TestAuditLoggerUsesRotatingFile(t *testing.T) {
	dir := t.TempDir()
	auditPath := filepath.Join(dir, "audit", "audit.log")
	t.Cleanup(func() { _ = Sync() })

	require.NoError(t, Init(Config{
		OutputPaths: []string{"discard"},
		Audit:       AuditConfig{Enabled: true, Path: auditPath, MaxSizeMB: 1},
	}))
	Audit().Info("任务处理成功", "task_id", "t-1")
	L().Info("not audited")
	require.NoError(t, Sync())

	raw, err := os.ReadFile(auditPath)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"task_id":"t-1"`)
	assert.NotContains(t, string(raw), "not audited")
}

func TestAuditRequiresPath(t *testing.T) {
	err := Init(Config{OutputPaths: []string{"discard"}, Audit: AuditConfig{Enabled: true}})
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", parseLevel("debug").String())
	assert.Equal(t, "WARN", parseLevel("warning").String())
	assert.Equal(t, "ERROR", parseLevel("ERROR").String())
	assert.Equal(t, "INFO", parseLevel("").String())
}

func TestLoggersAvailableWithoutInit(t *testing.T) {
	assert.NotNil(t, L())
	assert.NotNil(t, Audit())
}
