package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the docmatch service configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Templates  TemplatesConfig  `yaml:"templates"`
	Dispatcher DispatcherConfig `yaml:"dispatcher"`
	Matching   MatchingConfig   `yaml:"matching"`
	Notify     NotifyConfig     `yaml:"notify"`
	Transport  TransportConfig  `yaml:"transport"`
	Auth       AuthConfig       `yaml:"auth"`
	Logging    LoggingConfig    `yaml:"logging"`
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

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // valkey, redis (default: valkey)
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"` // только для redis
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// EmbeddingConfig holds the embedding provider and cache settings.
type EmbeddingConfig struct {
	Provider     string      `yaml:"provider"`
	APIKey       string      `yaml:"api_key"`
	BaseURL      string      `yaml:"base_url"`
	Model        string      `yaml:"model"`
	Dimensions   int         `yaml:"dimensions"`
	MaxBatchSize int         `yaml:"max_batch_size"`
	Cache        CacheConfig `yaml:"cache"`
}

// CacheConfig holds line-embedding cache settings.
type CacheConfig struct {
	LRUSize      int    `yaml:"lru_size"`
	StoreEnabled bool   `yaml:"store_enabled"`
	KeyPrefix    string `yaml:"key_prefix"`
}

// TemplatesConfig holds template source and persistence settings.
type TemplatesConfig struct {
	Dir         string `yaml:"dir"`
	KeyPrefix   string `yaml:"key_prefix"`
	ManifestKey string `yaml:"manifest_key"`
}

// DispatcherConfig holds admission and overflow queue settings.
type DispatcherConfig struct {
	Capacity        int    `yaml:"capacity"`
	DrainIntervalMs int    `yaml:"drain_interval_ms"`
	QueueKey        string `yaml:"queue_key"`
}

// MatchingConfig holds matching engine settings.
type MatchingConfig struct {
	Threshold        float64 `yaml:"threshold"`
	BuildConcurrency int     `yaml:"build_concurrency"`
}

// NotifyConfig holds the outbound notification channel.
type NotifyConfig struct {
	Channel string `yaml:"channel"`
}

// TransportConfig holds inbound pub/sub settings.
type TransportConfig struct {
	SubscribeChannels []string `yaml:"subscribe_channels"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod, docker).
// A .env file in the working directory is loaded first when present.
func Load(env string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

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

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
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
	if c.Database.Driver == "" {
		c.Database.Driver = "valkey"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.Embedding.MaxBatchSize <= 0 {
		c.Embedding.MaxBatchSize = 100
	}
	if c.Embedding.Cache.LRUSize <= 0 {
		c.Embedding.Cache.LRUSize = 10000
	}
	if c.Embedding.Cache.KeyPrefix == "" {
		c.Embedding.Cache.KeyPrefix = "emb:"
	}
	if c.Templates.Dir == "" {
		c.Templates.Dir = "templates/model"
	}
	if c.Templates.KeyPrefix == "" {
		c.Templates.KeyPrefix = "Templates-"
	}
	if c.Templates.ManifestKey == "" {
		c.Templates.ManifestKey = "Templates-count"
	}
	if c.Dispatcher.Capacity <= 0 {
		c.Dispatcher.Capacity = 2
	}
	if c.Dispatcher.DrainIntervalMs <= 0 {
		c.Dispatcher.DrainIntervalMs = 3000
	}
	if c.Dispatcher.QueueKey == "" {
		c.Dispatcher.QueueKey = "requestQueue"
	}
	if c.Matching.Threshold == 0 {
		c.Matching.Threshold = 0.75
	}
	if c.Matching.BuildConcurrency <= 0 {
		c.Matching.BuildConcurrency = 4
	}
	if c.Notify.Channel == "" {
		c.Notify.Channel = "after-analysis"
	}
	if len(c.Transport.SubscribeChannels) == 0 {
		c.Transport.SubscribeChannels = []string{"analysis", "web-analysis"}
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
	switch c.Database.Driver {
	case "valkey", "redis":
	default:
		return fmt.Errorf("database.driver must be \"valkey\" or \"redis\", got %q", c.Database.Driver)
	}
	if c.Matching.Threshold <= 0 || c.Matching.Threshold >= 1 {
		return fmt.Errorf("matching.threshold must be in (0, 1), got %v", c.Matching.Threshold)
	}
	if c.Templates.KeyPrefix == c.Templates.ManifestKey {
		return fmt.Errorf("templates.key_prefix and templates.manifest_key must differ")
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
