package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Environment variables recognized by toolproxy.
const (
	EnvHome         = "TOOLPROXY_HOME"
	EnvTelemetry    = "TOOLPROXY_TELEMETRY"
	EnvTelemetryDir = "TOOLPROXY_TELEMETRY_DIR"
	EnvLogLevel     = "TOOLPROXY_LOG"
)

// DefaultHomeName is the home directory name under the user's home.
const DefaultHomeName = ".toolproxy"

// configNames are tried in order inside the home directory.
var configNames = []string{"config.yaml", "config.yml", "config.toml"}

// HomeDir returns the toolproxy home directory: $TOOLPROXY_HOME, or
// ~/.toolproxy.
func HomeDir() (string, error) {
	if home := os.Getenv(EnvHome); home != "" {
		return home, nil
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(userHome, DefaultHomeName), nil
}

// Load reads a YAML or TOML config file (chosen by extension), expands
// environment variables, and unmarshals into a Config struct. Relative
// paths in the file resolve against the file's directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("cannot read config file %q: %w", path, err)
	}

	expanded := ExpandEnv(string(data))

	cfg := Default(filepath.Dir(path))
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expanded, cfg); err != nil {
			return nil, fmt.Errorf("invalid TOML in %s: %w", path, err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("invalid YAML in %s: %w", path, err)
		}
	}

	return cfg, nil
}

// LoadHome loads the first config file found in home and applies
// environment overrides. A home without a config file yields defaults.
func LoadHome(home string) (*Config, error) {
	cfg, err := loadFirst(home)
	if err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func loadFirst(home string) (*Config, error) {
	for _, name := range configNames {
		path := filepath.Join(home, name)
		_, err := os.Stat(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("cannot stat config file %q: %w", path, err)
		}
		return Load(path)
	}
	return Default(home), nil
}

// applyEnv overrides file values with environment variables.
func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvTelemetry); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvTelemetry, v, err)
		}
		c.Telemetry.Enabled = enabled
	}
	if v := os.Getenv(EnvTelemetryDir); v != "" {
		c.Telemetry.Dir = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	return nil
}
