// Package config loads the SDK's client configuration: the API key, the
// service endpoint, and the default request timeout.
//
// Resolution order, highest precedence first:
//
//  1. Explicit values passed through options
//  2. Environment variables (AGB_API_KEY, AGB_ENDPOINT, AGB_TIMEOUT)
//  3. The config file at ~/.agb/config.yaml
//  4. Built-in defaults
//
// Configuration is read once when the client is constructed and is immutable
// afterwards.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultEndpoint is the production AGB service endpoint.
	DefaultEndpoint = "https://api.agb.cloud"

	// DefaultTimeout is the request timeout used when neither the caller
	// nor the environment specifies one.
	DefaultTimeout = 60 * time.Second

	// EnvAPIKey is the environment variable holding the API key.
	EnvAPIKey = "AGB_API_KEY"

	// EnvEndpoint is the environment variable overriding the endpoint.
	EnvEndpoint = "AGB_ENDPOINT"

	// EnvTimeout is the environment variable overriding the request
	// timeout. Parsed as a Go duration string, for example "30s".
	EnvTimeout = "AGB_TIMEOUT"
)

// Config is the resolved, immutable client configuration.
type Config struct {
	// APIKey authenticates every remote call. Required.
	APIKey string

	// Endpoint is the base URL of the AGB service.
	Endpoint string

	// Timeout is the default per-request deadline.
	Timeout time.Duration
}

// fileConfig is the on-disk shape. Timeout is a duration string ("30s") so
// the file stays human-editable.
type fileConfig struct {
	APIKey   string `yaml:"api_key"`
	Endpoint string `yaml:"endpoint"`
	Timeout  string `yaml:"timeout"`
}

// Option overrides one resolved configuration value.
type Option func(*Config)

// WithAPIKey sets the API key explicitly, taking precedence over the
// environment and the config file.
func WithAPIKey(key string) Option {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithEndpoint sets the service endpoint explicitly.
func WithEndpoint(endpoint string) Option {
	return func(c *Config) {
		c.Endpoint = endpoint
	}
}

// WithTimeout sets the default request timeout explicitly.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

// Load resolves the configuration. A missing or unreadable config file is
// not an error; a malformed one is. A missing API key is not an error here;
// the client validates it at construction so the message can name the
// environment variable.
func Load(opts ...Option) (*Config, error) {
	cfg := &Config{
		Endpoint: DefaultEndpoint,
		Timeout:  DefaultTimeout,
	}

	fileCfg, err := loadFile()
	if err != nil {
		return nil, err
	}
	if fileCfg != nil {
		merge(cfg, fileCfg)
	}

	if v := os.Getenv(EnvAPIKey); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv(EnvEndpoint); v != "" {
		cfg.Endpoint = v
	}
	if v := os.Getenv(EnvTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s value %q: %w", EnvTimeout, v, err)
		}
		cfg.Timeout = d
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return cfg, nil
}

// FilePath returns the config file location, ~/.agb/config.yaml.
func FilePath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".agb", "config.yaml"), nil
}

func loadFile() (*Config, error) {
	path, err := FilePath()
	if err != nil {
		// No home directory; fall back to env and defaults.
		return nil, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		// Missing file is the common case; unreadable files are treated
		// the same rather than blocking client construction.
		return nil, nil
	}

	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	cfg := &Config{APIKey: fc.APIKey, Endpoint: fc.Endpoint}
	if fc.Timeout != "" {
		d, err := time.ParseDuration(fc.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout %q in config file %s: %w", fc.Timeout, path, err)
		}
		cfg.Timeout = d
	}
	return cfg, nil
}

func merge(dst, src *Config) {
	if src.APIKey != "" {
		dst.APIKey = src.APIKey
	}
	if src.Endpoint != "" {
		dst.Endpoint = src.Endpoint
	}
	if src.Timeout > 0 {
		dst.Timeout = src.Timeout
	}
}
