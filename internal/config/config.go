// Package config loads FinGuard configuration from a YAML file with
// environment variable overrides applied on top.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all FinGuard configuration.
type Config struct {
	Name string `yaml:"name"`

	// DataDir roots the SQLite database, knowledge docs and log files.
	DataDir string `yaml:"data_dir"`

	LLM       LLMConfig       `yaml:"llm"`
	Store     StoreConfig     `yaml:"store"`
	Knowledge KnowledgeConfig `yaml:"knowledge"`
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// StoreConfig configures the persistent store.
type StoreConfig struct {
	// Path to the SQLite database file. Relative paths resolve under DataDir.
	Path string `yaml:"path"`
	// InsightTTL bounds how long cached insights stay valid.
	InsightTTL string `yaml:"insight_ttl"`
}

// KnowledgeConfig configures the knowledge base.
type KnowledgeConfig struct {
	// DocsDir is scanned (and watched) for markdown/text documents.
	DocsDir string `yaml:"docs_dir"`
	// EmbeddingAPIKey enables semantic search; empty falls back to keyword search.
	EmbeddingAPIKey string `yaml:"embedding_api_key"`
	EmbeddingModel  string `yaml:"embedding_model"`
	// Watch re-indexes documents when files under DocsDir change.
	Watch bool `yaml:"watch"`
}

// ServerConfig configures the HTTP boundary.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LoggingConfig configures categorized file logging.
type LoggingConfig struct {
	DebugMode bool   `yaml:"debug_mode"`
	Level     string `yaml:"level"`
}

// Default returns the baseline configuration.
func Default() *Config {
	return &Config{
		Name:    "finguard",
		DataDir: "data",
		LLM: LLMConfig{
			Provider:    "groq",
			BaseURL:     "https://api.groq.com/openai/v1",
			RouterModel: "openai/gpt-oss-20b",
			MergeModel:  "openai/gpt-oss-20b",
			AgentModels: map[string]string{
				"analysis":    "llama-3.3-70b-versatile",
				"knowledge":   "llama-3.3-70b-versatile",
				"planning":    "openai/gpt-oss-20b",
				"transaction": "meta-llama/llama-4-maverick-17b-128e-instruct",
			},
			Timeout: "120s",
		},
		Store: StoreConfig{
			Path:       "finguard.db",
			InsightTTL: "24h",
		},
		Knowledge: KnowledgeConfig{
			DocsDir:        "knowledge",
			EmbeddingModel: "gemini-embedding-001",
		},
		Server: ServerConfig{
			Addr: ":5001",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from path, falling back to defaults when the file
// does not exist. Environment overrides are always applied last.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		case os.IsNotExist(err):
			// Defaults are fine.
		default:
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("GROQ_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.Knowledge.EmbeddingAPIKey = v
	}
	if v := os.Getenv("FINGUARD_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("FINGUARD_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("FINGUARD_LLM_BASE_URL"); v != "" {
		c.LLM.BaseURL = v
	}
	if v := os.Getenv("FINGUARD_DEBUG"); v == "1" || v == "true" {
		c.Logging.DebugMode = true
	}
}

func (c *Config) validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr must not be empty")
	}
	if _, err := c.LLMTimeout(); err != nil {
		return fmt.Errorf("invalid llm.timeout: %w", err)
	}
	if _, err := c.InsightTTL(); err != nil {
		return fmt.Errorf("invalid store.insight_ttl: %w", err)
	}
	return nil
}

// StorePath resolves the database path under DataDir.
func (c *Config) StorePath() string {
	if filepath.IsAbs(c.Store.Path) {
		return c.Store.Path
	}
	return filepath.Join(c.DataDir, c.Store.Path)
}

// DocsDir resolves the knowledge docs directory under DataDir.
func (c *Config) DocsDir() string {
	if filepath.IsAbs(c.Knowledge.DocsDir) {
		return c.Knowledge.DocsDir
	}
	return filepath.Join(c.DataDir, c.Knowledge.DocsDir)
}

// LLMTimeout parses the configured LLM request timeout.
func (c *Config) LLMTimeout() (time.Duration, error) {
	if c.LLM.Timeout == "" {
		return 120 * time.Second, nil
	}
	return time.ParseDuration(c.LLM.Timeout)
}

// InsightTTL parses the configured insight cache TTL.
func (c *Config) InsightTTL() (time.Duration, error) {
	if c.Store.InsightTTL == "" {
		return 24 * time.Hour, nil
	}
	return time.ParseDuration(c.Store.InsightTTL)
}
