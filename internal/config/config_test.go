package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(configPathEnv, "")
	t.Setenv(serverAddrEnv, "")
	t.Setenv(apiKeyEnv, "")
	t.Setenv(llmModelEnv, "")
	t.Setenv(llmBaseURLEnv, "")
	t.Setenv(historyDSNEnv, "")

	cfg := Load()
	require.Equal(t, ":8008", cfg.Server.Addr)
	require.Equal(t, "info", cfg.Log.Level)
	require.Equal(t, 2, cfg.Workflow.DefaultLoopLimit)
	require.Equal(t, 256, cfg.Workflow.EventBuffer)
	require.Equal(t, "memory", cfg.History.Backend)
	require.Equal(t, "openai", cfg.LLM.Provider)
	require.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
}

func TestLoadFromYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9090"
log:
  level: debug
workflow:
  defaultLoopLimit: 4
history:
  backend: sqlite
  path: /tmp/flow.db
llm:
  provider: openai
  model: gpt-4o
  roles:
    reviewer: gpt-4o-mini
`), 0o600))

	t.Setenv(configPathEnv, path)
	t.Setenv(serverAddrEnv, "")
	t.Setenv(apiKeyEnv, "")
	t.Setenv(llmModelEnv, "")
	t.Setenv(llmBaseURLEnv, "")
	t.Setenv(historyDSNEnv, "")

	cfg := Load()
	require.Equal(t, ":9090", cfg.Server.Addr)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, 4, cfg.Workflow.DefaultLoopLimit)
	require.Equal(t, 256, cfg.Workflow.EventBuffer, "unset fields keep defaults")
	require.Equal(t, "sqlite", cfg.History.Backend)
	require.Equal(t, "/tmp/flow.db", cfg.History.Path)
	require.Equal(t, "gpt-4o", cfg.LLM.Model)
	require.Equal(t, "gpt-4o-mini", cfg.LLM.Roles.Reviewer)
}

func TestLoadEnvOverridesBeatFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  addr: \":9090\"\n"), 0o600))

	t.Setenv(configPathEnv, path)
	t.Setenv(serverAddrEnv, ":7777")
	t.Setenv(apiKeyEnv, "sk-test")
	t.Setenv(llmModelEnv, "gpt-5")
	t.Setenv(llmBaseURLEnv, "http://localhost:1234/v1")
	t.Setenv(historyDSNEnv, "runs.db")

	cfg := Load()
	require.Equal(t, ":7777", cfg.Server.Addr)
	require.Equal(t, "sk-test", cfg.LLM.APIKey)
	require.Equal(t, "gpt-5", cfg.LLM.Model)
	require.Equal(t, "http://localhost:1234/v1", cfg.LLM.BaseURL)
	require.Equal(t, "sqlite", cfg.History.Backend)
	require.Equal(t, "runs.db", cfg.History.Path)
}

func TestLoadIgnoresUnreadableFile(t *testing.T) {
	t.Setenv(configPathEnv, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv(serverAddrEnv, "")
	t.Setenv(apiKeyEnv, "")
	t.Setenv(llmModelEnv, "")
	t.Setenv(llmBaseURLEnv, "")
	t.Setenv(historyDSNEnv, "")

	cfg := Load()
	require.Equal(t, ":8008", cfg.Server.Addr)
}
