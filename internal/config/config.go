// Package config provides run configuration for the permit export CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	str2duration "github.com/xhit/go-str2duration/v2"
	"gopkg.in/yaml.v3"

	"github.com/permitwatch/phx-permit-client/pkg/client"
	"github.com/permitwatch/phx-permit-client/pkg/pagination"
	"github.com/permitwatch/phx-permit-client/pkg/ratelimit"
)

// Configuration validation errors.
var (
	ErrMissingEndpoint   = errors.New("source.endpoint is required")
	ErrInvalidTimeout    = errors.New("source.timeout must be positive")
	ErrMissingStartDate  = errors.New("fetch.start_date is required")
	ErrMissingEndDate    = errors.New("fetch.end_date is required")
	ErrInvalidDateFormat = errors.New("dates must be MM/DD/YYYY")
	ErrInvalidDateRange  = errors.New("fetch.start_date must not be after fetch.end_date")
	ErrInvalidPageSize   = errors.New("fetch.page_size must be at least 1")
	ErrInvalidDelay      = errors.New("fetch.delay must be non-negative")
	ErrInvalidPreview    = errors.New("output.preview must be non-negative")
	ErrMissingRedisAddr  = errors.New("redis.addr is required when redis is enabled")
	ErrInvalidLogLevel   = errors.New("logging.level must be one of: debug, info, warn, error")
)

// Duration is a time.Duration that unmarshals from YAML strings, accepting
// day and week units ("30d", "2w") in addition to Go's own.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}

	parsed, err := str2duration.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}

	*d = Duration(parsed)
	return nil
}

// Std returns the standard library representation.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config represents the complete permit export configuration.
type Config struct {
	Source  SourceConfig  `yaml:"source"`
	Fetch   FetchConfig   `yaml:"fetch"`
	Output  OutputConfig  `yaml:"output"`
	Redis   RedisConfig   `yaml:"redis"`
	Logging LoggingConfig `yaml:"logging"`
}

// SourceConfig describes the permit search endpoint.
type SourceConfig struct {
	Endpoint  string   `yaml:"endpoint"`
	Timeout   Duration `yaml:"timeout"`
	UserAgent string   `yaml:"user_agent"`
}

// FetchConfig controls the pagination loop. Dates use the endpoint's
// MM/DD/YYYY format.
type FetchConfig struct {
	StartDate string   `yaml:"start_date"`
	EndDate   string   `yaml:"end_date"`
	PageSize  int      `yaml:"page_size"`
	Delay     Duration `yaml:"delay"`
}

// OutputConfig controls the CSV sink and console preview.
type OutputConfig struct {
	CSVDir  string `yaml:"csv_dir"`
	Preview int    `yaml:"preview"`
}

// RedisConfig controls the optional Redis sink.
type RedisConfig struct {
	Enabled bool     `yaml:"enabled"`
	Addr    string   `yaml:"addr"`
	DB      int      `yaml:"db"`
	KeyTTL  Duration `yaml:"key_ttl"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Default returns the baseline configuration. The fetch dates are left
// empty on purpose: they are required input, from the config file or flags.
func Default() *Config {
	return &Config{
		Source: SourceConfig{
			Endpoint: client.DefaultEndpoint,
			Timeout:  Duration(30 * time.Second),
		},
		Fetch: FetchConfig{
			PageSize: pagination.DefaultPageSize,
			Delay:    Duration(ratelimit.DefaultDelay),
		},
		Output: OutputConfig{
			CSVDir:  ".",
			Preview: 5,
		},
		Redis: RedisConfig{
			Addr:   "localhost:6379",
			KeyTTL: Duration(30 * 24 * time.Hour),
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Parse reads a YAML config file on top of the defaults without validating,
// so callers can apply overrides before Validate.
func Parse(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return cfg, nil
}

// Load reads and validates a YAML config file.
func Load(path string) (*Config, error) {
	cfg, err := Parse(path)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Source.Endpoint == "" {
		return ErrMissingEndpoint
	}
	if c.Source.Timeout.Std() <= 0 {
		return ErrInvalidTimeout
	}

	if c.Fetch.StartDate == "" {
		return ErrMissingStartDate
	}
	if c.Fetch.EndDate == "" {
		return ErrMissingEndDate
	}
	start, end, err := c.DateRange()
	if err != nil {
		return err
	}
	if end.Before(start) {
		return ErrInvalidDateRange
	}
	if c.Fetch.PageSize < 1 {
		return ErrInvalidPageSize
	}
	if c.Fetch.Delay < 0 {
		return ErrInvalidDelay
	}

	if c.Output.Preview < 0 {
		return ErrInvalidPreview
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		return ErrMissingRedisAddr
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return ErrInvalidLogLevel
	}

	return nil
}

// DateRange parses the fetch window into local-time calendar dates.
func (c *Config) DateRange() (start, end time.Time, err error) {
	start, err = time.ParseInLocation(client.WireDateFormat, c.Fetch.StartDate, time.Local)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: start_date %q", ErrInvalidDateFormat, c.Fetch.StartDate)
	}

	end, err = time.ParseInLocation(client.WireDateFormat, c.Fetch.EndDate, time.Local)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: end_date %q", ErrInvalidDateFormat, c.Fetch.EndDate)
	}

	return start, end, nil
}
