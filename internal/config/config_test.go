package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "finguard", cfg.Name)
	assert.Equal(t, ":5001", cfg.Server.Addr)
	assert.Equal(t, "groq", cfg.LLM.Provider)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "finguard.yaml")
	data := `
data_dir: /var/lib/finguard
server:
  addr: ":8080"
llm:
  router_model: test-router
  agent_models:
    planning: test-planner
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "test-router", cfg.LLM.RouterModel)
	assert.Equal(t, "test-planner", cfg.LLM.AgentModel("planning"))
	// Missing entries fall back to the router model.
	assert.Equal(t, "test-router", cfg.LLM.AgentModel("analysis"))
	assert.Equal(t, "/var/lib/finguard/finguard.db", cfg.StorePath())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "gsk_test")
	t.Setenv("FINGUARD_ADDR", ":9999")
	t.Setenv("FINGUARD_DEBUG", "1")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "gsk_test", cfg.LLM.APIKey)
	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.True(t, cfg.Logging.DebugMode)
}

func TestInvalidDurationRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "finguard.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm:\n  timeout: bogus\n"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}
