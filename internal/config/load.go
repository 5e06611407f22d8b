// internal/config/load.go
package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Environment overrides applied by Load.
const (
	EnvLogLevel      = "BINDER_LOG_LEVEL"
	EnvMetricsListen = "BINDER_METRICS_LISTEN"
)

// Load reads a YAML file. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return Parse(raw)
}

// Parse decodes YAML and applies environment overrides.
func Parse(raw []byte) (*Config, error) {
	var cfg Config

	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}

	if v, ok := os.LookupEnv(EnvLogLevel); ok {
		cfg.Binder.Log.Level = v
	}
	if v, ok := os.LookupEnv(EnvMetricsListen); ok {
		cfg.Binder.Metrics.Listen = v
	}

	return &cfg, nil
}
