package config

import (
	"fmt"
	"math"
	"net/url"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"github.com/sirupsen/logrus"
)

// maxCacheDays keeps max_cache_days expressed in seconds within an int64
const maxCacheDays = math.MaxInt64 / (24 * 60 * 60)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server" koanf:"server"`
	Favicon  FaviconConfig  `yaml:"favicon" koanf:"favicon"`
	Upstream UpstreamConfig `yaml:"upstream" koanf:"upstream"`
	Log      LogConfig      `yaml:"log" koanf:"log"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Port            int    `yaml:"port" koanf:"port"`
	ShutdownTimeout string `yaml:"shutdown_timeout" koanf:"shutdown_timeout"`
}

// FaviconConfig contains the icon location and its client cache lifetime
type FaviconConfig struct {
	BaseDir      string `yaml:"base_dir" koanf:"base_dir"`
	IconPath     string `yaml:"icon_path" koanf:"icon_path"`
	MaxCacheDays int    `yaml:"max_cache_days" koanf:"max_cache_days"`
}

// UpstreamConfig points to the application other requests are forwarded to.
// Empty URL means other requests get a 404.
type UpstreamConfig struct {
	URL string `yaml:"url" koanf:"url"`
}

// LogConfig contains logging configuration
type LogConfig struct {
	Level  string `yaml:"level" koanf:"level"`
	Format string `yaml:"format" koanf:"format"` // "text" or "json"
}

// Default returns the configuration used for every key the file leaves out
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ShutdownTimeout: "10s",
		},
		Favicon: FaviconConfig{
			BaseDir:      ".",
			IconPath:     "public/favicon.ico",
			MaxCacheDays: 365,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file on top of the defaults.
// An empty path only returns the defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var config Config
	if err := k.UnmarshalWithConf("", &config, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return &config, nil
}

// GetShutdownTimeout parses and returns the graceful shutdown timeout
func (c *Config) GetShutdownTimeout() (time.Duration, error) {
	return time.ParseDuration(c.Server.ShutdownTimeout)
}

// GetUpstreamURL parses the upstream URL, nil when none is configured
func (c *Config) GetUpstreamURL() (*url.URL, error) {
	if c.Upstream.URL == "" {
		return nil, nil
	}
	return url.Parse(c.Upstream.URL)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}

	if _, err := c.GetShutdownTimeout(); err != nil {
		return fmt.Errorf("invalid shutdown timeout format: %w", err)
	}

	if c.Favicon.IconPath == "" {
		return fmt.Errorf("favicon icon path is required")
	}

	if c.Favicon.MaxCacheDays < 0 {
		return fmt.Errorf("favicon max cache days must not be negative, got: %d", c.Favicon.MaxCacheDays)
	}
	if int64(c.Favicon.MaxCacheDays) > maxCacheDays {
		return fmt.Errorf("favicon max cache days must be at most %d, got: %d", int64(maxCacheDays), c.Favicon.MaxCacheDays)
	}

	upstream, err := c.GetUpstreamURL()
	if err != nil {
		return fmt.Errorf("invalid upstream URL: %w", err)
	}
	if upstream != nil && ((upstream.Scheme != "http" && upstream.Scheme != "https") || upstream.Host == "") {
		return fmt.Errorf("upstream URL must be an absolute http(s) URL, got: %s", c.Upstream.URL)
	}

	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log format must be 'text' or 'json', got: %s", c.Log.Format)
	}

	return nil
}
