package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"bblaunch/internal/domain"

	"gopkg.in/yaml.v3"
)

// DefaultHookTimeout bounds a single hook script when config.yaml sets none
const DefaultHookTimeout = 60 * time.Second

// Config holds global application settings
type Config struct {
	DefaultInstall    string            `yaml:"default_install,omitempty"`
	DefaultLinkMethod domain.LinkMethod `yaml:"-"`
	LinkMethodStr     string            `yaml:"default_link_method"`
	Keybindings       string            `yaml:"keybindings"`
	DataPath          string            `yaml:"data_path,omitempty"`
	HookTimeout       time.Duration     `yaml:"hook_timeout"`
}

// Load reads configuration from the given directory
func Load(configDir string) (*Config, error) {
	cfg := &Config{
		DefaultLinkMethod: domain.LinkCopy,
		Keybindings:       "vim",
		HookTimeout:       DefaultHookTimeout,
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
		return nil, fmt.Errorf("%w: parsing config: %v", domain.ErrInvalidConfig, err)
	}

	if cfg.LinkMethodStr != "" {
		cfg.DefaultLinkMethod = domain.ParseLinkMethod(cfg.LinkMethodStr)
	}
	if cfg.Keybindings != "vim" && cfg.Keybindings != "standard" {
		return nil, fmt.Errorf("%w: keybindings must be vim or standard, got %q", domain.ErrInvalidConfig, cfg.Keybindings)
	}
	if cfg.HookTimeout <= 0 {
		cfg.HookTimeout = DefaultHookTimeout
	}
	cfg.DataPath = ExpandPath(cfg.DataPath)

	return cfg, nil
}

// Save writes configuration to the given directory
func (c *Config) Save(configDir string) error {
	c.LinkMethodStr = c.DefaultLinkMethod.String()

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
