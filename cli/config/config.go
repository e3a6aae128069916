// Package config loads the toolproxy configuration file.
//
// The file lives in the toolproxy home directory ($TOOLPROXY_HOME, default
// ~/.toolproxy) as config.yaml or config.toml. Every value is optional. A
// missing file yields the defaults, which leave telemetry disabled.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/pithecene-io/toolproxy/lode"
)

// DefaultTelemetryDir is the telemetry directory name inside the home directory.
const DefaultTelemetryDir = "telemetry"

// Config represents a toolproxy configuration file.
type Config struct {
	Telemetry TelemetryConfig `yaml:"telemetry" toml:"telemetry"`
	Toolchain ToolchainConfig `yaml:"toolchain" toml:"toolchain"`
	Log       LogConfig       `yaml:"log" toml:"log"`
	Adapter   AdapterConfig   `yaml:"adapter" toml:"adapter"`

	// home is the directory relative paths are resolved against.
	home string
}

// TelemetryConfig controls event capture and storage.
type TelemetryConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Dir     string `yaml:"dir" toml:"dir"`
	// Program is the instrumented program's basename (default rustc).
	Program string   `yaml:"program" toml:"program"`
	Backend string   `yaml:"backend" toml:"backend"`
	S3      S3Config `yaml:"s3" toml:"s3"`
}

// S3Config holds the s3 backend settings.
type S3Config struct {
	// Path is "bucket" or "bucket/prefix".
	Path      string `yaml:"path" toml:"path"`
	Region    string `yaml:"region" toml:"region"`
	Endpoint  string `yaml:"endpoint" toml:"endpoint"`
	PathStyle bool   `yaml:"path_style" toml:"path_style"`
}

// ToolchainConfig locates the real executables in shim mode.
type ToolchainConfig struct {
	BinDir string `yaml:"bin_dir" toml:"bin_dir"`
}

// LogConfig controls diagnostics. Logs never go to stdout.
type LogConfig struct {
	Level string `yaml:"level" toml:"level"`
	// File receives logs instead of stderr when set.
	File string `yaml:"file" toml:"file"`
}

// AdapterConfig holds the optional downstream forwarding settings.
type AdapterConfig struct {
	Type    string            `yaml:"type" toml:"type"`
	URL     string            `yaml:"url" toml:"url"`
	Channel string            `yaml:"channel,omitempty" toml:"channel"`
	Headers map[string]string `yaml:"headers,omitempty" toml:"headers"`
	Timeout Duration          `yaml:"timeout,omitempty" toml:"timeout"`
	Retries *int              `yaml:"retries,omitempty" toml:"retries"`
}

// Duration wraps time.Duration for string parsing (e.g. "500ms", "2s").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	return d.UnmarshalText([]byte(s))
}

// UnmarshalText parses a duration string. Used by the TOML decoder.
func (d *Duration) UnmarshalText(text []byte) error {
	s := string(text)
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// Default returns the configuration used when no file exists.
func Default(home string) *Config {
	return &Config{home: home}
}

// Home returns the directory the configuration was loaded for.
func (c *Config) Home() string {
	return c.home
}

// TelemetryEnabled reports whether instrumented programs produce telemetry.
func (c *Config) TelemetryEnabled() bool {
	return c.Telemetry.Enabled
}

// TelemetryDir returns the telemetry base directory. A relative dir is
// resolved against the home directory.
func (c *Config) TelemetryDir() string {
	dir := c.Telemetry.Dir
	if dir == "" {
		dir = DefaultTelemetryDir
	}
	if filepath.IsAbs(dir) || c.home == "" {
		return dir
	}
	return filepath.Join(c.home, dir)
}

// BinDir returns the toolchain bin directory, resolved like TelemetryDir.
// Empty means search PATH.
func (c *Config) BinDir() string {
	dir := c.Toolchain.BinDir
	if dir == "" || filepath.IsAbs(dir) || c.home == "" {
		return dir
	}
	return filepath.Join(c.home, dir)
}

// StoreConfig converts the telemetry section into a store configuration.
func (c *Config) StoreConfig() (lode.StoreConfig, error) {
	backend, err := lode.ParseBackend(c.Telemetry.Backend)
	if err != nil {
		return lode.StoreConfig{}, err
	}

	cfg := lode.StoreConfig{Backend: backend, Dir: c.TelemetryDir()}
	if backend == lode.BackendS3 {
		bucket, prefix := lode.ParseS3Path(c.Telemetry.S3.Path)
		cfg.S3 = lode.S3Config{
			Bucket:       bucket,
			Prefix:       prefix,
			Region:       c.Telemetry.S3.Region,
			Endpoint:     c.Telemetry.S3.Endpoint,
			UsePathStyle: c.Telemetry.S3.PathStyle,
		}
	}
	return cfg, nil
}

// StoragePath describes where records go, for logs and forwarded messages.
func (c *Config) StoragePath() string {
	if strings.EqualFold(c.Telemetry.Backend, string(lode.BackendS3)) {
		return "s3://" + c.Telemetry.S3.Path
	}
	return c.TelemetryDir()
}

// Validate checks values that cannot be checked by the decoder.
func (c *Config) Validate() error {
	if _, err := lode.ParseBackend(c.Telemetry.Backend); err != nil {
		return err
	}
	if lode.Backend(c.Telemetry.Backend) == lode.BackendS3 && c.Telemetry.S3.Path == "" {
		return errors.New("telemetry.s3.path is required for the s3 backend")
	}

	switch c.Adapter.Type {
	case "":
	case "webhook", "redis":
		if c.Adapter.URL == "" {
			return fmt.Errorf("adapter.url is required for the %s adapter", c.Adapter.Type)
		}
	default:
		return fmt.Errorf("invalid adapter.type %q (must be webhook or redis)", c.Adapter.Type)
	}
	if c.Adapter.Retries != nil && *c.Adapter.Retries < 0 {
		return fmt.Errorf("adapter.retries must be >= 0, got %d", *c.Adapter.Retries)
	}
	return nil
}
