/*
Package config holds the configuration of the dspcheck command.

Configuration is read from a YAML file:

   policy:
     file: site.dsp
     watch: true
     debounce: 250ms
   logging:
     level: info        # debug | info | warn | error
     sink: zap          # zap | tracing
   metrics:
     enabled: true
     namespace: dsp
     listen: 127.0.0.1:9464

Missing values are set to defaults before the configuration is validated.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2022 Norbert Pillmayer <norbert@pillmayer.com>
*/
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values for configuration fields.
const (
	DefaultDebounce         = 100 * time.Millisecond
	DefaultLogLevel         = "info"
	DefaultLogSink          = "zap"
	DefaultMetricsNamespace = "dsp"
	DefaultMetricsListen    = "127.0.0.1:9464"
)

// ErrNoPolicyFile is returned by Validate if no policy file is configured.
var ErrNoPolicyFile = errors.New("no policy file configured")

// Config is the configuration of the dspcheck command.
type Config struct {
	Policy  PolicyConfig  `yaml:"policy"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// PolicyConfig configures where the policy comes from.
type PolicyConfig struct {
	File     string        `yaml:"file"`
	Watch    bool          `yaml:"watch"`
	Debounce time.Duration `yaml:"debounce"`
}

// LoggingConfig configures console output.
type LoggingConfig struct {
	Level string `yaml:"level"`
	Sink  string `yaml:"sink"`
}

// MetricsConfig configures the Prometheus endpoint of the watch command.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
	Listen    string `yaml:"listen"`
}

// Load reads a configuration file, applies defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data, applies defaults and validates
// the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}
	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// Default returns a configuration with all defaults set and no policy file.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults sets defaults for all unset fields.
func ApplyDefaults(cfg *Config) {
	if cfg.Policy.Debounce <= 0 {
		cfg.Policy.Debounce = DefaultDebounce
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	if cfg.Logging.Sink == "" {
		cfg.Logging.Sink = DefaultLogSink
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Metrics.Listen == "" {
		cfg.Metrics.Listen = DefaultMetricsListen
	}
}

// Validate checks a configuration for consistency.
func Validate(cfg *Config) error {
	if cfg.Policy.File == "" {
		return ErrNoPolicyFile
	}
	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", cfg.Logging.Level)
	}
	switch cfg.Logging.Sink {
	case "zap", "tracing":
	default:
		return fmt.Errorf("invalid log sink %q", cfg.Logging.Sink)
	}
	return nil
}
