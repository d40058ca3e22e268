// Package config provides configuration for rolo.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the rolo configuration.
type Config struct {
	// Server settings
	HTTPPort int `yaml:"http_port"`

	// Storage
	DBPath              string `yaml:"db_path"`
	BackupDir           string `yaml:"backup_dir"`
	AutoBackupRetention int    `yaml:"auto_backup_retention"`

	// Conversation
	MaxHistory        int `yaml:"max_history"`
	MaxToolIterations int `yaml:"max_tool_iterations"`

	// Tools and policy
	EnabledTools       []string `yaml:"enabled_tools"`
	DisabledTools      []string `yaml:"disabled_tools"`
	ConfirmDestructive bool     `yaml:"confirm_destructive"`
	ReadOnly           bool     `yaml:"read_only"`
	PolicyFile         string   `yaml:"policy_file"`

	// Language model
	LLMURL     string        `yaml:"llm_url"`
	LLMModel   string        `yaml:"llm_model"`
	LLMAPIKey  string        `yaml:"llm_api_key"`
	LLMTimeout time.Duration `yaml:"llm_timeout"`

	// Logging
	LogLevel string `yaml:"log_level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	dataDir := defaultDataDir()
	return &Config{
		HTTPPort:            8765,
		DBPath:              filepath.Join(dataDir, "rolo.db"),
		BackupDir:           filepath.Join(dataDir, "backups"),
		AutoBackupRetention: 10,
		MaxHistory:          50,
		MaxToolIterations:   10,
		ConfirmDestructive:  true,
		LLMURL:              "http://localhost:11434",
		LLMModel:            "llama3.1",
		LLMTimeout:          120 * time.Second,
		LogLevel:            "info",
	}
}

// Load loads configuration from environment variables on top of defaults.
func Load() *Config {
	cfg := Default()
	cfg.applyEnv()
	return cfg
}

// LoadFile reads a YAML file on top of defaults, then applies environment
// variables, which take precedence. An empty path behaves like Load.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() {
	c.HTTPPort = getEnvInt("ROLO_HTTP_PORT", c.HTTPPort)
	c.DBPath = getEnv("ROLO_DB_PATH", c.DBPath)
	c.BackupDir = getEnv("ROLO_BACKUP_DIR", c.BackupDir)
	c.AutoBackupRetention = getEnvInt("ROLO_AUTO_BACKUP_RETENTION", c.AutoBackupRetention)
	c.MaxHistory = getEnvInt("ROLO_MAX_HISTORY", c.MaxHistory)
	c.MaxToolIterations = getEnvInt("ROLO_MAX_TOOL_ITERATIONS", c.MaxToolIterations)
	c.EnabledTools = getEnvList("ROLO_ENABLED_TOOLS", c.EnabledTools)
	c.DisabledTools = getEnvList("ROLO_DISABLED_TOOLS", c.DisabledTools)
	c.ConfirmDestructive = getEnvBool("ROLO_CONFIRM_DESTRUCTIVE", c.ConfirmDestructive)
	c.ReadOnly = getEnvBool("ROLO_READ_ONLY", c.ReadOnly)
	c.PolicyFile = getEnv("ROLO_POLICY_FILE", c.PolicyFile)
	c.LLMURL = getEnv("ROLO_LLM_URL", c.LLMURL)
	c.LLMModel = getEnv("ROLO_LLM_MODEL", c.LLMModel)
	c.LLMAPIKey = getEnv("ROLO_LLM_API_KEY", c.LLMAPIKey)
	c.LLMTimeout = time.Duration(getEnvInt("ROLO_LLM_TIMEOUT_MS", int(c.LLMTimeout/time.Millisecond))) * time.Millisecond
	c.LogLevel = getEnv("ROLO_LOG_LEVEL", c.LogLevel)
}

// Validate rejects settings the orchestrator cannot run with.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	if c.BackupDir == "" {
		return fmt.Errorf("backup_dir is required")
	}
	if c.AutoBackupRetention <= 0 {
		return fmt.Errorf("auto_backup_retention must be positive, got %d", c.AutoBackupRetention)
	}
	if c.MaxHistory <= 0 {
		return fmt.Errorf("max_history must be positive, got %d", c.MaxHistory)
	}
	if c.MaxToolIterations <= 0 {
		return fmt.Errorf("max_tool_iterations must be positive, got %d", c.MaxToolIterations)
	}
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("http_port out of range: %d", c.HTTPPort)
	}
	return nil
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "rolo")
	}
	return ".rolo"
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvList(key string, defaultVal []string) []string {
	val, ok := os.LookupEnv(key)
	if !ok {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
