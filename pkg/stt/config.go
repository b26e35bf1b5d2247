package stt

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// fileConfig is the on-disk YAML shape Config is loaded from — a flat
// backend_type/parameters/credentials triple, not a multi-context
// API-key layout: engine config has no notion of "contexts", since a
// process runs one backend at a time.
type fileConfig struct {
	BackendType string            `yaml:"backend_type"`
	Parameters  map[string]string `yaml:"parameters,omitempty"`
	Credentials map[string]string `yaml:"credentials,omitempty"`
}

// LoadConfigFile reads a YAML file at path into a Config. Missing
// parameters/credentials sections decode to nil maps; callers use
// Config's typed accessors, which already treat a missing key as
// "use the default", so no extra nil-checking is needed here.
func LoadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("stt: read config %s: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return Config{}, fmt.Errorf("stt: parse config %s: %w", path, err)
	}
	if fc.BackendType == "" {
		return Config{}, fmt.Errorf("stt: config %s missing required field %q", path, "backend_type")
	}
	return Config{
		BackendType: fc.BackendType,
		Parameters:  fc.Parameters,
		Credentials: fc.Credentials,
	}, nil
}

// SaveConfigFile writes cfg to path as YAML.
func SaveConfigFile(path string, cfg Config) error {
	fc := fileConfig{
		BackendType: cfg.BackendType,
		Parameters:  cfg.Parameters,
		Credentials: cfg.Credentials,
	}
	data, err := yaml.Marshal(fc)
	if err != nil {
		return fmt.Errorf("stt: marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("stt: write config %s: %w", path, err)
	}
	return nil
}
