// Package config loads CircuitFlow settings from config.yaml in the data
// directory, then applies CIRCUITFLOW_* environment overrides and defaults.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	FileName = "config.yaml"

	EnvDataDir         = "CIRCUITFLOW_DATA_DIR"
	EnvLogLevel        = "CIRCUITFLOW_LOG_LEVEL"
	EnvTickInterval    = "CIRCUITFLOW_TICK_INTERVAL"
	EnvChatMinDelay    = "CIRCUITFLOW_CHAT_MIN_DELAY"
	EnvChatMaxDelay    = "CIRCUITFLOW_CHAT_MAX_DELAY"
	EnvAutosave        = "CIRCUITFLOW_AUTOSAVE"
	EnvTemplatesDir    = "CIRCUITFLOW_TEMPLATES_DIR"
	EnvServerAddr      = "CIRCUITFLOW_SERVER_ADDR"
	EnvArchiveDriver   = "CIRCUITFLOW_ARCHIVE_DRIVER"
	EnvArchiveURI      = "CIRCUITFLOW_ARCHIVE_URI"
	EnvArchivePassword = "CIRCUITFLOW_ARCHIVE_PASSWORD"
)

type Config struct {
	DataDir   string          `yaml:"dataDir"`
	LogLevel  string          `yaml:"logLevel"`
	Execution ExecutionConfig `yaml:"execution"`
	Chat      ChatConfig      `yaml:"chat"`
	Autosave  AutosaveConfig  `yaml:"autosave"`
	Templates TemplatesConfig `yaml:"templates"`
	Server    ServerConfig    `yaml:"server"`
	Archive   ArchiveConfig   `yaml:"archive"`
}

type ExecutionConfig struct {
	TickInterval time.Duration `yaml:"tickInterval"`
	Step         int           `yaml:"step"`
}

type ChatConfig struct {
	MinDelay time.Duration `yaml:"minDelay"`
	MaxDelay time.Duration `yaml:"maxDelay"`
}

type AutosaveConfig struct {
	Schedule string `yaml:"schedule"`
	Disabled bool   `yaml:"disabled"`
}

type TemplatesConfig struct {
	Dir string `yaml:"dir"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// ArchiveConfig points at an optional external store that saved workflows
// can be published to. An empty Driver disables archiving.
type ArchiveConfig struct {
	Driver   string `yaml:"driver"` // mongodb | postgres | mysql | sqlite
	URI      string `yaml:"uri"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	SSLMode  string `yaml:"sslMode"`
}

// Default returns the built-in settings rooted at dataDir.
func Default(dataDir string) *Config {
	return &Config{
		DataDir:   dataDir,
		LogLevel:  "info",
		Execution: ExecutionConfig{TickInterval: 200 * time.Millisecond, Step: 10},
		Chat:      ChatConfig{MinDelay: time.Second, MaxDelay: 3 * time.Second},
		Autosave:  AutosaveConfig{Schedule: "@every 30s"},
		Templates: TemplatesConfig{Dir: filepath.Join(dataDir, "templates")},
		Server:    ServerConfig{Addr: ":8765"},
	}
}

// DefaultDataDir is ~/.local/share/circuitflow.
func DefaultDataDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "circuitflow")
}

// Load resolves the data dir, reads config.yaml from it if present, and
// finalizes the result.
func Load() (*Config, error) {
	dataDir := os.Getenv(EnvDataDir)
	if dataDir == "" {
		dataDir = DefaultDataDir()
	}
	return LoadFile(filepath.Join(dataDir, FileName), dataDir)
}

// LoadFile reads path over the defaults for dataDir. A missing file is not an error.
func LoadFile(path, dataDir string) (*Config, error) {
	cfg := Default(dataDir)

	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}
	cfg.fillDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadEnv() error {
	if v := os.Getenv(EnvDataDir); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	for env, dst := range map[string]*time.Duration{
		EnvTickInterval: &c.Execution.TickInterval,
		EnvChatMinDelay: &c.Chat.MinDelay,
		EnvChatMaxDelay: &c.Chat.MaxDelay,
	} {
		v := os.Getenv(env)
		if v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", env, err)
		}
		*dst = d
	}
	if v := os.Getenv(EnvAutosave); v != "" {
		if off, err := strconv.ParseBool(v); err == nil {
			c.Autosave.Disabled = !off
		} else {
			c.Autosave.Schedule = v
		}
	}
	if v := os.Getenv(EnvTemplatesDir); v != "" {
		c.Templates.Dir = v
	}
	if v := os.Getenv(EnvServerAddr); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv(EnvArchiveDriver); v != "" {
		c.Archive.Driver = v
	}
	if v := os.Getenv(EnvArchiveURI); v != "" {
		c.Archive.URI = v
	}
	return nil
}

func (c *Config) fillDefaults() {
	d := Default(c.DataDir)
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.Execution.TickInterval <= 0 {
		c.Execution.TickInterval = d.Execution.TickInterval
	}
	if c.Execution.Step <= 0 {
		c.Execution.Step = d.Execution.Step
	}
	if c.Chat.MinDelay <= 0 {
		c.Chat.MinDelay = d.Chat.MinDelay
	}
	if c.Chat.MaxDelay <= 0 {
		c.Chat.MaxDelay = d.Chat.MaxDelay
	}
	if c.Autosave.Schedule == "" {
		c.Autosave.Schedule = d.Autosave.Schedule
	}
	if c.Templates.Dir == "" {
		c.Templates.Dir = d.Templates.Dir
	}
	if c.Server.Addr == "" {
		c.Server.Addr = d.Server.Addr
	}
	c.Archive.Driver = strings.ToLower(c.Archive.Driver)
}

func (c *Config) validate() error {
	if c.DataDir == "" {
		return errors.New("dataDir is required")
	}
	if c.Chat.MaxDelay < c.Chat.MinDelay {
		return fmt.Errorf("chat.maxDelay %s is below chat.minDelay %s", c.Chat.MaxDelay, c.Chat.MinDelay)
	}
	if c.Execution.Step > 100 {
		return fmt.Errorf("execution.step %d exceeds 100", c.Execution.Step)
	}
	switch c.Archive.Driver {
	case "", "mongodb", "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("archive.driver %q is not supported", c.Archive.Driver)
	}
	return nil
}

// DBPath is the primary SQLite database file.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "circuitflow.db")
}

// SlogLevel maps LogLevel onto slog.
func (c *Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
