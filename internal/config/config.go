package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Session store drivers.
const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
)

// Config holds the docchat server configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Logging   LoggingConfig   `yaml:"logging"`
	Auth      AuthConfig      `yaml:"auth"`
	Session   SessionConfig   `yaml:"session"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Assistant AssistantConfig `yaml:"assistant"`
	Upstream  UpstreamConfig  `yaml:"upstream"`
	Search    SearchConfig    `yaml:"search"`
	Chat      ChatConfig      `yaml:"chat"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds inbound API key settings. Empty disables the check.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int      `yaml:"port"`
	ReadTimeoutSec  int      `yaml:"read_timeout_sec"`
	WriteTimeoutSec int      `yaml:"write_timeout_sec"`
	ShutdownSec     int      `yaml:"shutdown_timeout_sec"`
	AllowedOrigins  []string `yaml:"allowed_origins"`
}

// SessionConfig selects and tunes the chat session store.
type SessionConfig struct {
	Driver           string   `yaml:"driver"` // memory, redis (default: memory)
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	TTLSec           int      `yaml:"ttl_sec"` // 0 = sessions never expire
	KeyPrefix        string   `yaml:"key_prefix"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// DiscoveryConfig holds search service settings.
type DiscoveryConfig struct {
	BaseURL       string  `yaml:"base_url"`
	APIKey        string  `yaml:"api_key"`
	Version       string  `yaml:"version"`
	EnvironmentID string  `yaml:"environment_id"`
	CollectionID  string  `yaml:"collection_id"`
	RatePerSec    float64 `yaml:"rate_per_sec"` // 0 = unthrottled
}

// AssistantConfig holds dialog service settings.
type AssistantConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKey      string `yaml:"api_key"`
	Version     string `yaml:"version"`
	WorkspaceID string `yaml:"workspace_id"`
}

// UpstreamConfig tunes the HTTP client shared by both upstream services.
type UpstreamConfig struct {
	RetryMax   int `yaml:"retry_max"`
	TimeoutSec int `yaml:"timeout_sec"`
}

// SearchConfig holds settings of the stateless search endpoint.
type SearchConfig struct {
	PageSize int `yaml:"page_size"`
}

// ChatConfig holds settings of the session chat surface.
type ChatConfig struct {
	Welcome        string `yaml:"welcome"`
	SearchHeader   string `yaml:"search_header"`
	SearchPageSize int    `yaml:"search_page_size"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
// A .env file in the working directory, if present, is loaded first.
func Load(env string) (Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return Config{}, err
	}

	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse expands env variables in data, decodes it, applies defaults and validates.
func Parse(data []byte) (Config, error) {
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
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Session.Driver == "" {
		c.Session.Driver = DriverMemory
	}
	if c.Session.KeyPrefix == "" {
		c.Session.KeyPrefix = "docchat:session:"
	}
	if c.Session.ReadinessTimeout <= 0 {
		c.Session.ReadinessTimeout = 10
	}
	if c.Discovery.Version == "" {
		c.Discovery.Version = "2020-11-15"
	}
	if c.Assistant.Version == "" {
		c.Assistant.Version = "2020-03-01"
	}
	if c.Upstream.RetryMax < 0 {
		c.Upstream.RetryMax = 0
	}
	if c.Upstream.TimeoutSec <= 0 {
		c.Upstream.TimeoutSec = 15
	}
	if c.Search.PageSize <= 0 {
		c.Search.PageSize = 3
	}
	if c.Chat.Welcome == "" {
		c.Chat.Welcome = "Welcome to the document search chatbot!"
	}
	if c.Chat.SearchHeader == "" {
		c.Chat.SearchHeader = "Here are some excerpts from the Users Guide:"
	}
	if c.Chat.SearchPageSize <= 0 {
		c.Chat.SearchPageSize = 4
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Session.Driver {
	case DriverMemory:
	case DriverRedis:
		if len(c.Session.Addrs) == 0 {
			return fmt.Errorf("session.addrs is required for the redis driver")
		}
	default:
		return fmt.Errorf("session.driver must be %q or %q, got %q", DriverMemory, DriverRedis, c.Session.Driver)
	}
	if c.Session.TTLSec < 0 {
		return fmt.Errorf("session.ttl_sec must not be negative, got %d", c.Session.TTLSec)
	}
	if err := validateBaseURL("discovery.base_url", c.Discovery.BaseURL); err != nil {
		return err
	}
	if c.Discovery.EnvironmentID == "" || c.Discovery.CollectionID == "" {
		return fmt.Errorf("discovery.environment_id and discovery.collection_id are required")
	}
	if c.Discovery.RatePerSec < 0 {
		return fmt.Errorf("discovery.rate_per_sec must not be negative, got %g", c.Discovery.RatePerSec)
	}
	if err := validateBaseURL("assistant.base_url", c.Assistant.BaseURL); err != nil {
		return err
	}
	if c.Assistant.WorkspaceID == "" {
		return fmt.Errorf("assistant.workspace_id is required")
	}
	return nil
}

func validateBaseURL(name, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", name)
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s must be an absolute URL, got %q", name, raw)
	}
	return nil
}

// loadDotEnv loads variables from path without overriding ones already set.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load %s: %w", path, err)
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

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
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
