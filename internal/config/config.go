package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g. IMAGE_LOADER_LOADER_WORKERS
const EnvPrefix = "IMAGE_LOADER"

// Config represents the entire application configuration.
// It is built once by Load and not modified afterwards.
type Config struct {
	Loader  LoaderConfig  `mapstructure:"loader"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Output  OutputConfig  `mapstructure:"output"`
	Logging LoggingConfig `mapstructure:"logging"`
	History HistoryConfig `mapstructure:"history"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// LoaderConfig contains worker pool settings
type LoaderConfig struct {
	Workers          int    `mapstructure:"workers"`
	Force            bool   `mapstructure:"force"`
	ProgressInterval string `mapstructure:"progress_interval"`
}

// HTTPConfig contains connection pool settings
type HTTPConfig struct {
	Timeout        string `mapstructure:"timeout"`
	MaxConnections int    `mapstructure:"max_connections"`
	PoolGroups     int    `mapstructure:"pool_groups"`
	UserAgent      string `mapstructure:"user_agent"`
}

// OutputConfig contains destination directory settings
type OutputConfig struct {
	DirMode      string `mapstructure:"dir_mode"`
	FileMode     string `mapstructure:"file_mode"`
	BufferSizeKB int    `mapstructure:"buffer_size_kb"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// HistoryConfig contains the optional outcome journal settings
type HistoryConfig struct {
	Path string `mapstructure:"path"`
}

// MetricsConfig contains the optional metrics textfile settings
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

// LoadOptions controls where configuration is read from
type LoadOptions struct {
	// ConfigPath is an optional YAML file
	ConfigPath string

	// Flags are bound by name, see FlagKeys
	Flags *pflag.FlagSet

	// Overrides are applied last, keyed by config key
	Overrides map[string]interface{}
}

// FlagKeys maps command line flag names to config keys
var FlagKeys = map[string]string{
	"workers":         "loader.workers",
	"force":           "loader.force",
	"timeout":         "http.timeout",
	"max-connections": "http.max_connections",
	"log-format":      "logging.format",
	"history-db":      "history.path",
	"metrics-file":    "metrics.textfile",
}

// Load builds the configuration from defaults, an optional file,
// IMAGE_LOADER_* environment variables, flags and overrides, in
// increasing order of precedence.
func Load(opts LoadOptions) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.ConfigPath != "" {
		v.SetConfigFile(opts.ConfigPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if opts.Flags != nil {
		for name, key := range FlagKeys {
			f := opts.Flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
			}
		}
	}

	for key, value := range opts.Overrides {
		v.Set(key, value)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("loader.workers", 10)
	v.SetDefault("loader.force", false)
	v.SetDefault("loader.progress_interval", "5s")
	v.SetDefault("http.timeout", "10s")
	v.SetDefault("http.max_connections", 10)
	v.SetDefault("http.pool_groups", 10)
	v.SetDefault("http.user_agent", "")
	v.SetDefault("output.dir_mode", "0750")
	v.SetDefault("output.file_mode", "0640")
	v.SetDefault("output.buffer_size_kb", 256)
	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.format", "text")
	v.SetDefault("history.path", "")
	v.SetDefault("metrics.textfile", "")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Loader.Workers < 1 || c.Loader.Workers > 256 {
		return fmt.Errorf("loader.workers must be between 1 and 256")
	}
	if _, err := parsePositiveDuration(c.Loader.ProgressInterval); err != nil {
		return fmt.Errorf("invalid loader.progress_interval: %w", err)
	}

	if _, err := parsePositiveDuration(c.HTTP.Timeout); err != nil {
		return fmt.Errorf("invalid http.timeout: %w", err)
	}
	if c.HTTP.MaxConnections < 1 {
		return fmt.Errorf("http.max_connections must be positive")
	}
	if c.HTTP.PoolGroups < 1 {
		return fmt.Errorf("http.pool_groups must be positive")
	}

	if _, err := parseMode(c.Output.DirMode); err != nil {
		return fmt.Errorf("invalid output.dir_mode: %w", err)
	}
	if _, err := parseMode(c.Output.FileMode); err != nil {
		return fmt.Errorf("invalid output.file_mode: %w", err)
	}
	if c.Output.BufferSizeKB < 0 {
		return fmt.Errorf("output.buffer_size_kb must not be negative")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		// Valid levels
	default:
		return fmt.Errorf("invalid logging.level: %s", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "json", "text":
		// Valid formats
	default:
		return fmt.Errorf("invalid logging.format: %s", c.Logging.Format)
	}

	return nil
}

// Warnings returns settings that are valid but likely to hurt throughput
func (c *Config) Warnings() []string {
	var out []string
	if c.HTTP.MaxConnections < c.Loader.Workers {
		out = append(out, fmt.Sprintf(
			"http.max_connections (%d) is lower than loader.workers (%d); workers will wait for connections",
			c.HTTP.MaxConnections, c.Loader.Workers))
	}
	return out
}

// GetProgressInterval returns the progress log interval as time.Duration
func (c *LoaderConfig) GetProgressInterval() time.Duration {
	d, _ := time.ParseDuration(c.ProgressInterval)
	if d <= 0 {
		return 5 * time.Second
	}
	return d
}

// GetTimeout returns the request timeout as time.Duration
func (c *HTTPConfig) GetTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	if d <= 0 {
		return 10 * time.Second
	}
	return d
}

// GetDirMode returns the destination directory mode
func (c *OutputConfig) GetDirMode() os.FileMode {
	m, err := parseMode(c.DirMode)
	if err != nil {
		return 0o750
	}
	return m
}

// GetFileMode returns the mode for newly created files
func (c *OutputConfig) GetFileMode() os.FileMode {
	m, err := parseMode(c.FileMode)
	if err != nil {
		return 0o640
	}
	return m
}

// GetBufferSize returns the copy buffer size in bytes
func (c *OutputConfig) GetBufferSize() int {
	if c.BufferSizeKB <= 0 {
		return 256 * 1024
	}
	return c.BufferSizeKB * 1024
}

func parsePositiveDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive: %s", s)
	}
	return d, nil
}

// parseMode parses an octal permission string such as "0750"
func parseMode(s string) (os.FileMode, error) {
	n, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return 0, err
	}
	if n == 0 || n > 0o777 {
		return 0, fmt.Errorf("permission bits out of range: %s", s)
	}
	return os.FileMode(n), nil
}
