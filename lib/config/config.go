// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Environment selects which override section applies.
type Environment string

const (
	Development Environment = "development"
	Production  Environment = "production"
)

// EnvConfigPath names the environment variable Load reads.
const EnvConfigPath = "FOTAWATCH_CONFIG"

// Config is the complete fotawatch configuration.
type Config struct {
	Environment Environment `yaml:"environment"`

	Serial   SerialConfig   `yaml:"serial"`
	Logging  LoggingConfig  `yaml:"logging"`
	Queues   QueuesConfig   `yaml:"queues"`
	Rollout  RolloutConfig  `yaml:"rollout"`
	Audit    AuditConfig    `yaml:"audit"`
	Delivery DeliveryConfig `yaml:"delivery"`
	Metrics  MetricsConfig  `yaml:"metrics"`

	// StateSocket is the Unix socket serving the version map. Empty
	// disables it.
	StateSocket string `yaml:"state_socket"`

	// ShutdownGrace bounds how long the writer and tracker may take to
	// stop before they are abandoned.
	ShutdownGrace time.Duration `yaml:"shutdown_grace"`

	Development *Overrides `yaml:"development,omitempty"`
	Production  *Overrides `yaml:"production,omitempty"`
}

// Overrides holds per-environment replacements. Non-empty fields win.
type Overrides struct {
	Serial   *SerialConfig   `yaml:"serial,omitempty"`
	Logging  *LoggingConfig  `yaml:"logging,omitempty"`
	Rollout  *RolloutConfig  `yaml:"rollout,omitempty"`
	Delivery *DeliveryConfig `yaml:"delivery,omitempty"`
}

// SerialConfig selects the device transport.
type SerialConfig struct {
	// Device is a tty path or tcp://host:port.
	Device string `yaml:"device"`
	Baud   int    `yaml:"baud"`
}

// LoggingConfig covers both the process log and the device log file.
type LoggingConfig struct {
	// Level of the process log: debug, info, warn, or error.
	Level string `yaml:"level"`

	// File receives the formatted device log.
	File string `yaml:"file"`

	// MaxBytes rotates File; zero disables rotation.
	MaxBytes int64 `yaml:"max_bytes"`

	// Compression of rotated segments: none, zstd, or lz4.
	Compression string `yaml:"compression"`

	// Color of the console device log: auto, always, or never.
	Color string `yaml:"color"`
}

// QueuesConfig sizes the fan-out queues.
type QueuesConfig struct {
	Capacity     int `yaml:"capacity"`
	Subscription int `yaml:"subscription"`
}

// RolloutConfig drives the rollout controller.
type RolloutConfig struct {
	DeviceID     string        `yaml:"device_id"`
	Manifest     string        `yaml:"manifest"`
	Timeout      time.Duration `yaml:"timeout"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

// AuditConfig locates the audit trail.
type AuditConfig struct {
	CSV    string `yaml:"csv"`
	SQLite string `yaml:"sqlite"`
}

// DeliveryConfig selects how firmware reaches the device.
type DeliveryConfig struct {
	// Kind is http or command.
	Kind    string        `yaml:"kind"`
	URL     string        `yaml:"url"`
	Token   string        `yaml:"token"`
	Command []string      `yaml:"command"`
	Timeout time.Duration `yaml:"timeout"`
}

// MetricsConfig enables the Prometheus endpoint.
type MetricsConfig struct {
	// Listen is a host:port for /metrics. Empty disables it.
	Listen string `yaml:"listen"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Environment: Development,
		Serial: SerialConfig{
			Baud: 115200,
		},
		Logging: LoggingConfig{
			Level:       "info",
			File:        "serial_log.txt",
			Compression: "zstd",
			Color:       "auto",
		},
		Queues: QueuesConfig{
			Capacity:     20000,
			Subscription: 1024,
		},
		Rollout: RolloutConfig{
			Timeout:      120 * time.Second,
			PollInterval: 2 * time.Second,
		},
		Audit: AuditConfig{
			CSV: "fota_audit.csv",
		},
		Delivery: DeliveryConfig{
			Kind:    "http",
			Timeout: 5 * time.Minute,
		},
		ShutdownGrace: 3 * time.Second,
	}
}

// Load reads the file named by FOTAWATCH_CONFIG, or returns the
// defaults (with environment fallbacks applied) when it is unset.
func Load() (*Config, error) {
	path := os.Getenv(EnvConfigPath)
	if path == "" {
		cfg := Default()
		cfg.applyEnvironmentFallbacks()
		cfg.expandVariables()
		return cfg, nil
	}
	return LoadFile(path)
}

// LoadFile reads the configuration at path over the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}
	cfg.applyEnvironmentOverrides()
	cfg.applyEnvironmentFallbacks()
	cfg.expandVariables()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		// JSON is a subset of YAML, so one decoder serves both once
		// comments and trailing commas are gone.
		data = jsonc.ToJSON(data)
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) applyEnvironmentOverrides() {
	var overrides *Overrides
	switch c.Environment {
	case Development:
		overrides = c.Development
	case Production:
		overrides = c.Production
	}
	if overrides == nil {
		return
	}

	if overrides.Serial != nil {
		setString(&c.Serial.Device, overrides.Serial.Device)
		if overrides.Serial.Baud != 0 {
			c.Serial.Baud = overrides.Serial.Baud
		}
	}
	if overrides.Logging != nil {
		setString(&c.Logging.Level, overrides.Logging.Level)
		setString(&c.Logging.File, overrides.Logging.File)
		setString(&c.Logging.Compression, overrides.Logging.Compression)
		setString(&c.Logging.Color, overrides.Logging.Color)
		if overrides.Logging.MaxBytes != 0 {
			c.Logging.MaxBytes = overrides.Logging.MaxBytes
		}
	}
	if overrides.Rollout != nil {
		setString(&c.Rollout.DeviceID, overrides.Rollout.DeviceID)
		setString(&c.Rollout.Manifest, overrides.Rollout.Manifest)
		if overrides.Rollout.Timeout != 0 {
			c.Rollout.Timeout = overrides.Rollout.Timeout
		}
		if overrides.Rollout.PollInterval != 0 {
			c.Rollout.PollInterval = overrides.Rollout.PollInterval
		}
	}
	if overrides.Delivery != nil {
		setString(&c.Delivery.Kind, overrides.Delivery.Kind)
		setString(&c.Delivery.URL, overrides.Delivery.URL)
		setString(&c.Delivery.Token, overrides.Delivery.Token)
		if len(overrides.Delivery.Command) > 0 {
			c.Delivery.Command = overrides.Delivery.Command
		}
	}
}

func setString(target *string, value string) {
	if value != "" {
		*target = value
	}
}

// EnvName returns the environment variable consulted for a dotted key.
func EnvName(key string) string {
	return "FOTAWATCH_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// applyEnvironmentFallbacks fills keys still at their default from the
// environment.
func (c *Config) applyEnvironmentFallbacks() {
	defaults := Default()
	fields := []struct {
		key      string
		target   *string
		fallback string
	}{
		{"serial.device", &c.Serial.Device, defaults.Serial.Device},
		{"rollout.device_id", &c.Rollout.DeviceID, defaults.Rollout.DeviceID},
		{"delivery.url", &c.Delivery.URL, defaults.Delivery.URL},
		{"delivery.token", &c.Delivery.Token, defaults.Delivery.Token},
	}
	for _, entry := range fields {
		if *entry.target != entry.fallback {
			continue
		}
		if value := os.Getenv(EnvName(entry.key)); value != "" {
			*entry.target = value
		}
	}

	if c.Serial.Baud == defaults.Serial.Baud {
		if value := os.Getenv(EnvName("serial.baud")); value != "" {
			// Unparseable values are left for Validate to report.
			if baud, err := strconv.Atoi(value); err == nil {
				c.Serial.Baud = baud
			} else {
				c.Serial.Baud = -1
			}
		}
	}
}

func (c *Config) expandVariables() {
	c.Logging.File = expandVars(c.Logging.File)
	c.Rollout.Manifest = expandVars(c.Rollout.Manifest)
	c.Audit.CSV = expandVars(c.Audit.CSV)
	c.Audit.SQLite = expandVars(c.Audit.SQLite)
	c.StateSocket = expandVars(c.StateSocket)
	c.Delivery.Token = expandVars(c.Delivery.Token)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} from the environment.
func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		return parts[2]
	})
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %q", c.Environment))
	}
	if c.Serial.Baud <= 0 {
		errs = append(errs, fmt.Errorf("serial.baud must be positive"))
	}
	if _, err := c.Logging.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if !oneOf(c.Logging.Compression, "none", "zstd", "lz4") {
		errs = append(errs, fmt.Errorf("logging.compression must be one of none, zstd, lz4; got %q", c.Logging.Compression))
	}
	if !oneOf(c.Logging.Color, "auto", "always", "never") {
		errs = append(errs, fmt.Errorf("logging.color must be one of auto, always, never; got %q", c.Logging.Color))
	}
	if c.Logging.MaxBytes < 0 {
		errs = append(errs, fmt.Errorf("logging.max_bytes must not be negative"))
	}
	if c.Queues.Capacity <= 0 {
		errs = append(errs, fmt.Errorf("queues.capacity must be positive"))
	}
	if c.Queues.Subscription <= 0 {
		errs = append(errs, fmt.Errorf("queues.subscription must be positive"))
	}
	if c.Rollout.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("rollout.timeout must be positive"))
	}
	if c.Rollout.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("rollout.poll_interval must be positive"))
	} else if c.Rollout.PollInterval > c.Rollout.Timeout {
		errs = append(errs, fmt.Errorf("rollout.poll_interval (%s) exceeds rollout.timeout (%s)", c.Rollout.PollInterval, c.Rollout.Timeout))
	}
	if c.Delivery.Kind != "" && !oneOf(c.Delivery.Kind, "http", "command") {
		errs = append(errs, fmt.Errorf("delivery.kind must be http or command; got %q", c.Delivery.Kind))
	}
	if c.ShutdownGrace < 0 {
		errs = append(errs, fmt.Errorf("shutdown_grace must not be negative"))
	}

	return errors.Join(errs...)
}

// SlogLevel parses Level.
func (l LoggingConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("logging.level: %w", err)
	}
	return level, nil
}

func oneOf(value string, allowed ...string) bool {
	for _, candidate := range allowed {
		if value == candidate {
			return true
		}
	}
	return false
}
