// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/liaison/lib/codec"
)

// EnvironmentVariable names the config file for Load.
const EnvironmentVariable = "LIAISON_CONFIG"

// Environment represents the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Production  Environment = "production"
)

// Config is the complete liaison configuration.
type Config struct {
	Environment Environment `yaml:"environment" toml:"environment" json:"environment"`

	Paths   PathsConfig   `yaml:"paths" toml:"paths" json:"paths"`
	Payload PayloadConfig `yaml:"payload" toml:"payload" json:"payload"`
	Attach  AttachConfig  `yaml:"attach" toml:"attach" json:"attach"`
	Logging LoggingConfig `yaml:"logging" toml:"logging" json:"logging"`

	// Per-environment overrides, applied after loading.
	Development *Overrides `yaml:"development,omitempty" toml:"development,omitempty" json:"development,omitempty"`
	Production  *Overrides `yaml:"production,omitempty" toml:"production,omitempty" json:"production,omitempty"`
}

// Overrides holds the fields an environment section may replace.
type Overrides struct {
	Paths   *PathsConfig   `yaml:"paths,omitempty" toml:"paths,omitempty" json:"paths,omitempty"`
	Payload *PayloadConfig `yaml:"payload,omitempty" toml:"payload,omitempty" json:"payload,omitempty"`
	Attach  *AttachConfig  `yaml:"attach,omitempty" toml:"attach,omitempty" json:"attach,omitempty"`
	Logging *LoggingConfig `yaml:"logging,omitempty" toml:"logging,omitempty" json:"logging,omitempty"`
}

// PathsConfig configures filesystem locations.
type PathsConfig struct {
	// RuntimeDir holds attach sockets (attach-<pid>.sock) and the
	// controller's callback socket.
	RuntimeDir string `yaml:"runtime_dir" toml:"runtime_dir" json:"runtime_dir"`

	// Units is where synthesized units are written.
	Units string `yaml:"units" toml:"units" json:"units"`

	// Ledger is the campaign history database. Empty disables it.
	Ledger string `yaml:"ledger" toml:"ledger" json:"ledger"`
}

// PayloadConfig configures payload packaging.
type PayloadConfig struct {
	// Budget is the transport size limit in characters.
	Budget int `yaml:"budget" toml:"budget" json:"budget"`

	// Compression is "none", "zstd", or "lz4".
	Compression string `yaml:"compression" toml:"compression" json:"compression"`

	// DisableCache makes the materializer write a fresh unit on
	// every conversion.
	DisableCache bool `yaml:"disable_cache" toml:"disable_cache" json:"disable_cache"`
}

// AttachConfig configures the attach protocol.
type AttachConfig struct {
	// SessionTimeout bounds undetached sessions on targets, as a Go
	// duration string.
	SessionTimeout string `yaml:"session_timeout" toml:"session_timeout" json:"session_timeout"`

	// Controller names this controller in attach requests.
	Controller string `yaml:"controller" toml:"controller" json:"controller"`
}

// LoggingConfig configures the command logger.
type LoggingConfig struct {
	// Level is debug, info, warn, or error.
	Level string `yaml:"level" toml:"level" json:"level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	runtimeDir := defaultRuntimeDir()
	return &Config{
		Environment: Development,
		Paths: PathsConfig{
			RuntimeDir: runtimeDir,
			Units:      filepath.Join(os.TempDir(), "liaison-units"),
			Ledger:     filepath.Join(runtimeDir, "ledger.db"),
		},
		Payload: PayloadConfig{
			Budget:      1024,
			Compression: codec.DefaultCompression.String(),
		},
		Attach: AttachConfig{
			SessionTimeout: "2m",
			Controller:     "liaison",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

func defaultRuntimeDir() string {
	if runtime := os.Getenv("XDG_RUNTIME_DIR"); runtime != "" {
		return filepath.Join(runtime, "liaison")
	}
	return filepath.Join(os.TempDir(), fmt.Sprintf("liaison-%d", os.Getuid()))
}

// Load loads the file named by LIAISON_CONFIG.
func Load() (*Config, error) {
	path := os.Getenv(EnvironmentVariable)
	if path == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your liaison config file, or use --config", EnvironmentVariable)
	}
	return LoadFile(path)
}

// LoadFile loads path over the defaults, applies the matching
// environment section, and expands path variables.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}
	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, c)
	case ".toml":
		_, err := toml.Decode(string(data), c)
		return err
	case ".json", ".jsonc":
		return json.Unmarshal(jsonc.ToJSON(data), c)
	default:
		return fmt.Errorf("unsupported config format %q (want .yaml, .yml, .toml, .json, or .jsonc)", filepath.Ext(path))
	}
}

func (c *Config) applyEnvironmentOverrides() {
	var overrides *Overrides
	switch c.Environment {
	case Development:
		overrides = c.Development
	case Production:
		overrides = c.Production
		if overrides == nil {
			overrides = &Overrides{Logging: &LoggingConfig{Level: "warn"}}
		}
	}
	if overrides == nil {
		return
	}

	if paths := overrides.Paths; paths != nil {
		setIfNonEmpty(&c.Paths.RuntimeDir, paths.RuntimeDir)
		setIfNonEmpty(&c.Paths.Units, paths.Units)
		setIfNonEmpty(&c.Paths.Ledger, paths.Ledger)
	}
	if payload := overrides.Payload; payload != nil {
		if payload.Budget > 0 {
			c.Payload.Budget = payload.Budget
		}
		setIfNonEmpty(&c.Payload.Compression, payload.Compression)
		// DisableCache is a bool, so it is always applied.
		c.Payload.DisableCache = payload.DisableCache
	}
	if attach := overrides.Attach; attach != nil {
		setIfNonEmpty(&c.Attach.SessionTimeout, attach.SessionTimeout)
		setIfNonEmpty(&c.Attach.Controller, attach.Controller)
	}
	if logging := overrides.Logging; logging != nil {
		setIfNonEmpty(&c.Logging.Level, logging.Level)
	}
}

func setIfNonEmpty(target *string, value string) {
	if value != "" {
		*target = value
	}
}

func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME":            os.Getenv("HOME"),
		"XDG_RUNTIME_DIR": os.Getenv("XDG_RUNTIME_DIR"),
	}
	c.Paths.RuntimeDir = expandVars(c.Paths.RuntimeDir, vars)
	vars["LIAISON_RUNTIME"] = c.Paths.RuntimeDir

	c.Paths.Units = expandVars(c.Paths.Units, vars)
	c.Paths.Ledger = expandVars(c.Paths.Ledger, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default}, preferring vars over
// the process environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		name, defaultValue := parts[1], parts[2]
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// SessionTimeoutDuration parses Attach.SessionTimeout.
func (c *Config) SessionTimeoutDuration() (time.Duration, error) {
	duration, err := time.ParseDuration(c.Attach.SessionTimeout)
	if err != nil {
		return 0, fmt.Errorf("attach.session_timeout: %w", err)
	}
	return duration, nil
}

var logLevels = []string{"debug", "info", "warn", "error"}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}
	if c.Paths.RuntimeDir == "" {
		errs = append(errs, errors.New("paths.runtime_dir is required"))
	}
	if c.Paths.Units == "" {
		errs = append(errs, errors.New("paths.units is required"))
	}
	if c.Payload.Budget <= 0 {
		errs = append(errs, fmt.Errorf("payload.budget must be positive, got %d", c.Payload.Budget))
	}
	if _, err := codec.ParseCompressionTag(c.Payload.Compression); err != nil {
		errs = append(errs, fmt.Errorf("payload.compression: %w", err))
	}
	if duration, err := c.SessionTimeoutDuration(); err != nil {
		errs = append(errs, err)
	} else if duration <= 0 {
		errs = append(errs, errors.New("attach.session_timeout must be positive"))
	}
	if !slices.Contains(logLevels, c.Logging.Level) {
		errs = append(errs, fmt.Errorf("logging.level must be one of: %v", logLevels))
	}

	return errors.Join(errs...)
}

// EnsurePaths creates the runtime and unit directories.
func (c *Config) EnsurePaths() error {
	for _, path := range []string{c.Paths.RuntimeDir, c.Paths.Units} {
		if err := os.MkdirAll(path, 0o700); err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
	}
	return nil
}
