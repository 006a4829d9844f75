package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	LogLevel string `yaml:"log_level" default:"info"`

	// EventBuffer is the capacity of the platform event queue; the oldest event is
	// dropped when a slow consumer lets it fill up.
	EventBuffer int `yaml:"event_buffer" default:"64"`
	// OutputBuffer is the capacity of the Lua print() capture buffer.
	OutputBuffer int `yaml:"output_buffer" default:"1024"`

	ScanDuration    time.Duration `yaml:"scan_duration" default:"10s"`
	AllowDuplicates bool          `yaml:"allow_duplicates" default:"false"`

	// Central manager options accepted from scripts when they do not set their own.
	ShowPowerAlert    bool   `yaml:"show_power_alert" default:"true"`
	RestoreIdentifier string `yaml:"restore_identifier"`
}

// DefaultConfig returns default configuration values
func DefaultConfig() *Config {
	cfg := &Config{}
	defaults.SetDefaults(cfg)
	return cfg
}

// Load reads a YAML configuration file over the defaults.
// An empty path returns the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML configuration over the defaults. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if c.EventBuffer <= 0 {
		return fmt.Errorf("event_buffer must be > 0, got %d", c.EventBuffer)
	}
	if c.OutputBuffer <= 0 {
		return fmt.Errorf("output_buffer must be > 0, got %d", c.OutputBuffer)
	}
	if c.ScanDuration < 0 {
		return fmt.Errorf("scan_duration must not be negative, got %s", c.ScanDuration)
	}
	return nil
}

// Level returns the parsed log level, info if LogLevel is invalid.
func (c *Config) Level() logrus.Level {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

// NewLogger creates a configured logger instance
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(c.Level())

	// Use structured logging format
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	return logger
}
