// Package config loads host configuration from a YAML file and
// WEBTAGS_-prefixed environment variables, in that order of precedence
// (environment wins).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the full host configuration.
type Config struct {
	// BaseDir confines every repository the extension may request. All
	// repository paths resolve inside it.
	BaseDir string `mapstructure:"base_dir" yaml:"base_dir"`

	LogLevel string `mapstructure:"log_level" yaml:"log_level"`

	// LogFile receives rotating structured logs. Empty means stderr
	// only; stdout is never an option since it carries the protocol.
	LogFile string `mapstructure:"log_file" yaml:"log_file"`

	LogMaxSizeMB  int `mapstructure:"log_max_size_mb" yaml:"log_max_size_mb"`
	LogMaxBackups int `mapstructure:"log_max_backups" yaml:"log_max_backups"`
	LogMaxAgeDays int `mapstructure:"log_max_age_days" yaml:"log_max_age_days"`

	// GitHubAPIURL overrides the REST base URL, for GitHub Enterprise.
	GitHubAPIURL string `mapstructure:"github_api_url" yaml:"github_api_url,omitempty"`
}

// DefaultBaseDir is where bookmark repositories live when nothing is
// configured.
func DefaultBaseDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "webtags"
	}
	return filepath.Join(dir, "webtags")
}

// DefaultConfigPath is the config file location used when --config is not
// given.
func DefaultConfigPath() string {
	return filepath.Join(DefaultBaseDir(), "config.yaml")
}

// Load reads the file at path (optional) and the environment. A missing
// file is fine; a malformed one is an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("WEBTAGS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("base_dir", DefaultBaseDir())
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("log_max_size_mb", 10)
	v.SetDefault("log_max_backups", 3)
	v.SetDefault("log_max_age_days", 30)
	v.SetDefault("github_api_url", "")

	if path == "" {
		path = DefaultConfigPath()
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		if !os.IsNotExist(err) {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Save writes the config as YAML, creating parent directories as needed.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
