// Package config loads the service configuration from per-environment
// YAML files with ${VAR} expansion.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the catalogsearch API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Storage   StorageConfig   `yaml:"storage"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Learning  LearningConfig  `yaml:"learning"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds Redis connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// RetrievalConfig tunes the fusion engine.
type RetrievalConfig struct {
	SignalLimit  int     `yaml:"signal_limit"`  // per-signal candidate cap
	TrigramFloor float64 `yaml:"trigram_floor"` // minimum trigram similarity
	RRFK         int     `yaml:"rrf_k"`
	PoolSize     int     `yaml:"pool_size"` // signal fan-out worker pool
}

// TelemetryConfig holds click telemetry settings.
type TelemetryConfig struct {
	RetentionDays int `yaml:"retention_days"`
}

// LearningConfig tunes the click-to-vocabulary loop.
type LearningConfig struct {
	Enabled      bool `yaml:"enabled"`
	LookbackDays int  `yaml:"lookback_days"`
	MinClicks    int  `yaml:"min_clicks"`
	IntervalSec  int  `yaml:"interval_sec"`
}

// EmbeddingConfig holds embedding provider and worker settings.
type EmbeddingConfig struct {
	APIKey     string       `yaml:"api_key"`
	BaseURL    string       `yaml:"base_url"`
	Model      string       `yaml:"model"`
	Dimensions int          `yaml:"dimensions"`
	Cache      bool         `yaml:"cache"`
	Worker     WorkerConfig `yaml:"worker"`
}

// WorkerConfig holds embedding worker settings.
type WorkerConfig struct {
	Enabled         bool `yaml:"enabled"`
	PollIntervalSec int  `yaml:"poll_interval_sec"`
	MaxJobAttempts  int  `yaml:"max_job_attempts"`
	PoolSize        int  `yaml:"pool_size"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment name. CATSEARCH_ENV wins over the
// generic ENV; both unset means "local".
func GetEnv() string {
	if env := os.Getenv("CATSEARCH_ENV"); env != "" {
		return env
	}
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "catsearch:"
	}
	if c.Retrieval.SignalLimit <= 0 {
		c.Retrieval.SignalLimit = 100
	}
	if c.Retrieval.TrigramFloor <= 0 {
		c.Retrieval.TrigramFloor = 0.15
	}
	if c.Retrieval.RRFK <= 0 {
		c.Retrieval.RRFK = 60
	}
	if c.Retrieval.PoolSize <= 0 {
		c.Retrieval.PoolSize = 32
	}
	if c.Telemetry.RetentionDays <= 0 {
		c.Telemetry.RetentionDays = 90
	}
	if c.Learning.LookbackDays <= 0 {
		c.Learning.LookbackDays = 30
	}
	if c.Learning.MinClicks <= 0 {
		c.Learning.MinClicks = 3
	}
	if c.Learning.IntervalSec <= 0 {
		c.Learning.IntervalSec = 900
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.Embedding.Worker.PollIntervalSec <= 0 {
		c.Embedding.Worker.PollIntervalSec = 2
	}
	if c.Embedding.Worker.MaxJobAttempts <= 0 {
		c.Embedding.Worker.MaxJobAttempts = 3
	}
	if c.Embedding.Worker.PoolSize <= 0 {
		c.Embedding.Worker.PoolSize = 4
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if c.Retrieval.TrigramFloor >= 1 {
		return fmt.Errorf("retrieval.trigram_floor must be below 1, got %v", c.Retrieval.TrigramFloor)
	}
	if c.Embedding.Worker.Enabled && c.Embedding.APIKey == "" {
		return fmt.Errorf("embedding.api_key is required when the worker is enabled")
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
