package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/JaimeStill/kontrib/internal/kontent"
	"github.com/pelletier/go-toml/v2"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvKontribEnv             = "KONTRIB_ENV"
	EnvKontribShutdownTimeout = "KONTRIB_SHUTDOWN_TIMEOUT"
	EnvKontribVersion         = "KONTRIB_VERSION"
	EnvMCPEnabled             = "KONTRIB_MCP_ENABLED"
)

var kontentEnv = &kontent.Env{
	ManagementURL:      "KONTRIB_KONTENT_MANAGEMENT_URL",
	SubscriptionURL:    "KONTRIB_KONTENT_SUBSCRIPTION_URL",
	EnvironmentID:      "KONTRIB_KONTENT_ENVIRONMENT_ID",
	SubscriptionID:     "KONTRIB_KONTENT_SUBSCRIPTION_ID",
	ManagementAPIKey:   "KONTRIB_KONTENT_MANAGEMENT_API_KEY",
	SubscriptionAPIKey: "KONTRIB_KONTENT_SUBSCRIPTION_API_KEY",
	Timeout:            "KONTRIB_KONTENT_TIMEOUT",
	DefaultWorkflow:    "KONTRIB_KONTENT_DEFAULT_WORKFLOW",
}

// Config is the root configuration for the kontrib service and CLI.
type Config struct {
	Server          ServerConfig     `toml:"server"`
	API             APIConfig        `toml:"api"`
	Kontent         kontent.Config   `toml:"kontent"`
	Assignment      AssignmentConfig `toml:"assignment"`
	Logging         LoggingConfig    `toml:"logging"`
	MCP             MCPConfig        `toml:"mcp"`
	ShutdownTimeout string           `toml:"shutdown_timeout"`
	Version         string           `toml:"version"`
}

// MCPConfig toggles the MCP tool endpoints.
type MCPConfig struct {
	Enabled bool `toml:"enabled"`
}

// Env returns the KONTRIB_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvKontribEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Load reads config.toml from the working directory (if present), applies
// any environment overlay, and finalizes all values. If no config.toml
// exists, defaults and environment variables provide all configuration.
func Load() (*Config, error) {
	return LoadFrom(BaseConfigFile)
}

// LoadFrom behaves like Load with an explicit base config path. The overlay
// is looked up next to the base file.
func LoadFrom(path string) (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(path); err == nil {
		loaded, err := load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else if path != BaseConfigFile {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	if overlay := overlayPath(filepath.Dir(path)); overlay != "" {
		o, err := load(overlay)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", overlay, err)
		}
		cfg.Merge(o)
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	if overlay.MCP.Enabled {
		c.MCP.Enabled = true
	}
	c.Server.Merge(&overlay.Server)
	c.API.Merge(&overlay.API)
	c.Kontent.Merge(&overlay.Kontent)
	c.Assignment.Merge(&overlay.Assignment)
	c.Logging.Merge(&overlay.Logging)
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if err := c.Kontent.Finalize(kontentEnv); err != nil {
		return fmt.Errorf("kontent: %w", err)
	}
	if err := c.Assignment.Finalize(); err != nil {
		return fmt.Errorf("assignment: %w", err)
	}
	if err := c.Logging.Finalize(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvKontribShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvKontribVersion); v != "" {
		c.Version = v
	}
	if v := os.Getenv(EnvMCPEnabled); v != "" {
		c.MCP.Enabled = v == "true" || v == "1"
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath(dir string) string {
	if env := os.Getenv(EnvKontribEnv); env != "" {
		path := filepath.Join(dir, fmt.Sprintf(OverlayConfigPattern, env))
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
