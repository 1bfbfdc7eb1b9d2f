// Package config loads application settings from YAML with environment
// overrides.
package config

import (
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv = "CAMPFLOW_CONFIG"
	serverAddrEnv = "CAMPFLOW_ADDR"
	apiKeyEnv     = "OPENAI_API_KEY"
	llmModelEnv   = "CAMPFLOW_LLM_MODEL"
	llmBaseURLEnv = "CAMPFLOW_LLM_BASE_URL"
	historyDSNEnv = "CAMPFLOW_HISTORY_PATH"
)

// Config holds high-level settings required across the application.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Workflow WorkflowConfig `yaml:"workflow"`
	History  HistoryConfig  `yaml:"history"`
	LLM      LLMConfig      `yaml:"llm"`
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig controls slog output.
type LogConfig struct {
	Level string `yaml:"level"`
}

// WorkflowConfig carries coordinator defaults.
type WorkflowConfig struct {
	// DefaultLoopLimit applies when a start request omits loop_limit.
	DefaultLoopLimit int `yaml:"defaultLoopLimit"`

	// EventBuffer sizes the live event stream buffer.
	EventBuffer int `yaml:"eventBuffer"`
}

// HistoryConfig selects where published packages are retained.
type HistoryConfig struct {
	// Backend is "memory" or "sqlite".
	Backend string `yaml:"backend"`

	// Path is the SQLite database file when Backend is "sqlite".
	Path string `yaml:"path"`
}

// LLMConfig defines how to reach the model backend for all agent roles.
type LLMConfig struct {
	// Provider is "openai" (or any OpenAI-compatible endpoint via baseUrl)
	// or "offline" for credential-free runs.
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"apiKey"`
	BaseURL  string `yaml:"baseUrl"`

	// Roles optionally overrides the model per role.
	Roles RoleModels `yaml:"roles"`
}

// RoleModels names per-role model overrides.
type RoleModels struct {
	Planner   string `yaml:"planner"`
	Writer    string `yaml:"writer"`
	Reviewer  string `yaml:"reviewer"`
	Publisher string `yaml:"publisher"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(serverAddrEnv); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv(apiKeyEnv); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv(llmModelEnv); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv(llmBaseURLEnv); v != "" {
		c.LLM.BaseURL = v
	}
	if v := os.Getenv(historyDSNEnv); v != "" {
		c.History.Backend = "sqlite"
		c.History.Path = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Server.Addr != "" {
		base.Server = override.Server
	}
	if override.Log.Level != "" {
		base.Log = override.Log
	}

	if override.Workflow.DefaultLoopLimit > 0 {
		base.Workflow.DefaultLoopLimit = override.Workflow.DefaultLoopLimit
	}
	if override.Workflow.EventBuffer > 0 {
		base.Workflow.EventBuffer = override.Workflow.EventBuffer
	}

	if override.History.Backend != "" {
		base.History.Backend = override.History.Backend
	}
	if override.History.Path != "" {
		base.History.Path = override.History.Path
	}

	if override.LLM.Provider != "" {
		base.LLM.Provider = override.LLM.Provider
	}
	if override.LLM.Model != "" {
		base.LLM.Model = override.LLM.Model
	}
	if override.LLM.APIKey != "" {
		base.LLM.APIKey = override.LLM.APIKey
	}
	if override.LLM.BaseURL != "" {
		base.LLM.BaseURL = override.LLM.BaseURL
	}
	if override.LLM.Roles != (RoleModels{}) {
		base.LLM.Roles = override.LLM.Roles
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Server:   ServerConfig{Addr: ":8008"},
		Log:      LogConfig{Level: "info"},
		Workflow: WorkflowConfig{DefaultLoopLimit: 2, EventBuffer: 256},
		History:  HistoryConfig{Backend: "memory"},
		LLM: LLMConfig{
			Provider: "openai",
			Model:    "gpt-4o-mini",
		},
	}
}
