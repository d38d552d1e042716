// Package config loads deepagent.yaml and applies AGT_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/petasbytes/deepagent/agent"
)

// DefaultPath is looked up in the working directory when no file is given.
const DefaultPath = "deepagent.yaml"

// Store drivers.
const (
	StoreMemory = "memory"
	StoreJSONL  = "jsonl"
	StoreSQLite = "sqlite3"
	StoreMySQL  = "mysql"
	StoreRedis  = "redis"
)

// Providers.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// Config is the full runtime configuration.
type Config struct {
	Agent     AgentConfig      `yaml:"agent"`
	SubAgents []agent.SubAgent `yaml:"subagents"`
	Store     StoreConfig      `yaml:"store"`
	Sandbox   SandboxConfig    `yaml:"sandbox"`
	Log       LogConfig        `yaml:"log"`
	Metrics   MetricsConfig    `yaml:"metrics"`
}

// AgentConfig describes the top-level agent. An empty Tools list enables
// every built-in tool. GeneralPurpose defaults to true.
type AgentConfig struct {
	Name          string   `yaml:"name"`
	Provider      string   `yaml:"provider"`
	Model         string   `yaml:"model"`
	Instructions  string   `yaml:"instructions"`
	Tools         []string `yaml:"tools"`
	MaxIterations int      `yaml:"max_iterations"`
	TokenBudget   int      `yaml:"token_budget"`
	MaxTokens     int64    `yaml:"max_tokens"`
	Verbose       bool     `yaml:"verbose"`
	// GeneralPurpose enables the general-purpose subagent.
	GeneralPurpose *bool `yaml:"general_purpose"`
}

// GeneralPurposeEnabled reports whether the general-purpose subagent is on.
func (a AgentConfig) GeneralPurposeEnabled() bool {
	return a.GeneralPurpose == nil || *a.GeneralPurpose
}

// StoreConfig selects the conversation backend. Dir is used by jsonl, DSN by
// sqlite3 and mysql, Addr/Password/DB/KeyPrefix by redis.
type StoreConfig struct {
	Driver    string `yaml:"driver"`
	Dir       string `yaml:"dir"`
	DSN       string `yaml:"dsn"`
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

// SandboxConfig bounds the file tools.
type SandboxConfig struct {
	ReadRoot  string `yaml:"read_root"`
	WriteRoot string `yaml:"write_root"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
	File   string `yaml:"file"`
}

// MetricsConfig enables the Prometheus endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults(".")
	return cfg
}

// Load reads path, applies defaults and environment overrides, and validates
// the result. An empty path loads DefaultPath if present and defaults otherwise.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	cfg := &Config{}
	content, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(content, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// no file; defaults and env only
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.applyDefaults(filepath.Dir(path))
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults(baseDir string) {
	if c.Agent.Name == "" {
		c.Agent.Name = agent.DefaultName
	}
	if c.Agent.Provider == "" {
		c.Agent.Provider = ProviderAnthropic
	}
	if c.Agent.MaxIterations == 0 {
		c.Agent.MaxIterations = agent.DefaultMaxIterations
	}
	if c.Store.Driver == "" {
		c.Store.Driver = StoreMemory
	}
	if c.Store.Dir == "" {
		c.Store.Dir = filepath.Join(baseDir, ".agent", "sessions")
	} else if !filepath.IsAbs(c.Store.Dir) {
		c.Store.Dir = filepath.Join(baseDir, c.Store.Dir)
	}
	if c.Sandbox.ReadRoot == "" {
		c.Sandbox.ReadRoot = "."
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// applyEnv overrides file values with AGT_READ_ROOT, AGT_WRITE_ROOT,
// AGT_TOKEN_BUDGET and AGT_LOG_LEVEL.
func (c *Config) applyEnv() error {
	if v := os.Getenv("AGT_READ_ROOT"); v != "" {
		c.Sandbox.ReadRoot = v
	}
	if v := os.Getenv("AGT_WRITE_ROOT"); v != "" {
		c.Sandbox.WriteRoot = v
	}
	if v := strings.TrimSpace(os.Getenv("AGT_TOKEN_BUDGET")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid AGT_TOKEN_BUDGET %q: %w", v, err)
		}
		c.Agent.TokenBudget = n
	}
	if v := os.Getenv("AGT_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	return nil
}

// Validate reports configuration the runtime cannot honour.
func (c *Config) Validate() error {
	switch c.Agent.Provider {
	case ProviderAnthropic, ProviderOpenAI:
	default:
		return fmt.Errorf("config: unknown provider %q", c.Agent.Provider)
	}
	switch c.Store.Driver {
	case StoreMemory, StoreJSONL:
	case StoreSQLite, StoreMySQL:
		if c.Store.DSN == "" {
			return fmt.Errorf("config: store driver %s requires dsn", c.Store.Driver)
		}
	case StoreRedis:
		if c.Store.Addr == "" {
			return errors.New("config: store driver redis requires addr")
		}
	default:
		return fmt.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
	if c.Agent.MaxIterations < 0 {
		return errors.New("config: max_iterations must not be negative")
	}
	if c.Agent.TokenBudget < 0 {
		return errors.New("config: token_budget must not be negative")
	}
	seen := map[string]bool{}
	for _, s := range c.SubAgents {
		if s.Name == "" {
			return errors.New("config: subagent without name")
		}
		if seen[s.Name] {
			return fmt.Errorf("config: duplicate subagent %q", s.Name)
		}
		seen[s.Name] = true
	}
	return nil
}
