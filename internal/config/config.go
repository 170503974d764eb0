// Package config loads the small YAML file cmd/hostctl reads at startup
// (prefix, default provider, idle/ready/lock defaults). It is intentionally
// thin — CLI flag parsing and output formatting live in cmd/hostctl, not
// here (SPEC_FULL.md §1 Non-goals).
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk shape of ~/.hostctl/config.yaml.
type Config struct {
	Prefix             string  `yaml:"prefix"`
	DefaultProvider    string  `yaml:"default_provider"`
	HostDir            string  `yaml:"host_dir"`
	ReadyTimeoutSeconds float64 `yaml:"ready_timeout_seconds"`
	LockTimeoutSeconds  float64 `yaml:"lock_timeout_seconds"`
	IdleTimeoutSeconds  float64 `yaml:"idle_timeout_seconds"`
	UnsetVars          []string `yaml:"unset_vars"`
	Slack              Slack    `yaml:"slack"`
}

// Slack holds the bot credentials internal/notify needs; a blank Token
// leaves notifications disabled.
type Slack struct {
	Token   string `yaml:"token"`
	Channel string `yaml:"channel"`
}

// Default returns the baseline configuration applied before any file or
// override is read.
func Default() Config {
	return Config{
		Prefix:              "hostctl-",
		DefaultProvider:     "docker",
		HostDir:             "/home/hostctl/.hostctl",
		ReadyTimeoutSeconds: 10,
		LockTimeoutSeconds:  30,
		IdleTimeoutSeconds:  0,
		UnsetVars:           []string{"SSH_AUTH_SOCK"},
	}
}

// Load reads path, applying its contents over Default(). A missing file is
// not an error: it means the caller runs on defaults alone.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.Prefix = strings.TrimSpace(cfg.Prefix)
	if cfg.Prefix == "" {
		cfg.Prefix = Default().Prefix
	}
	cfg.DefaultProvider = strings.TrimSpace(cfg.DefaultProvider)
	if cfg.DefaultProvider == "" {
		cfg.DefaultProvider = Default().DefaultProvider
	}
	cfg.HostDir = strings.TrimSpace(cfg.HostDir)
	if cfg.HostDir == "" {
		cfg.HostDir = Default().HostDir
	}
	return cfg, nil
}
