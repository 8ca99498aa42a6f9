package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds global restaround settings, read from config.yaml in the
// user profile root. Profiles themselves are plain directories next to it.
type Config struct {
	Restic           string `yaml:"restic"`
	SystemRoot       string `yaml:"system_root"`
	LogLevel         string `yaml:"log_level"`
	PassUnknownFlags bool   `yaml:"pass_unknown_flags"`
	DisableHistory   bool   `yaml:"disable_history"`

	HookTimeout    time.Duration `yaml:"-"`
	HookTimeoutStr string        `yaml:"hook_timeout"`
}

// Load reads configuration from the given directory
func Load(configDir string) (*Config, error) {
	cfg := &Config{
		Restic:   "restic",
		LogLevel: "info",
	}

	configPath := filepath.Join(configDir, "config.yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil // Return defaults
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.HookTimeoutStr != "" {
		cfg.HookTimeout, err = time.ParseDuration(cfg.HookTimeoutStr)
		if err != nil {
			return nil, fmt.Errorf("parsing hook_timeout: %w", err)
		}
	}
	if cfg.Restic == "" {
		cfg.Restic = "restic"
	}

	return cfg, nil
}

// Save writes configuration to the given directory
func (c *Config) Save(configDir string) error {
	if c.HookTimeout > 0 {
		c.HookTimeoutStr = c.HookTimeout.String()
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	configPath := filepath.Join(configDir, "config.yaml")
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}
