// Copyright (C) 2026 The reflectd Authors.
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package config loads the single process-level YAML document reflectd
// reads at startup: log configuration, the debug-server bind address,
// and the policy's root directory and mirror command.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/reflectd/reflectd/lib/logger"
)

// Config is the top-level, strictly-decoded configuration document.
type Config struct {
	// LogLevel is one of "debug", "verbose", "normal", or "error".
	LogLevel string `yaml:"log_level"`

	// LogFile is an optional path appended to (open-append-close per
	// message) for every log line.
	LogFile string `yaml:"log_file"`

	// Syslog enables the syslog destination.
	Syslog bool `yaml:"syslog"`

	// DebugAddr is the listen address for the debug HTTP surface
	// (§4.H), e.g. "127.0.0.1:8384". Empty disables it.
	DebugAddr string `yaml:"debug_addr"`

	// Root is the absolute or relative path to the tree being mirrored.
	Root string `yaml:"root"`

	// MirrorCommand and MirrorArgs configure the reference mirror
	// policy (lib/policy/mirror): the command invoked, with the
	// resolved root appended as its final argument, on every debounced
	// burst of activity.
	MirrorCommand string   `yaml:"mirror_command"`
	MirrorArgs    []string `yaml:"mirror_args"`
}

var validLogLevels = map[string]logger.Level{
	"debug":   logger.LevelDebug,
	"verbose": logger.LevelVerbose,
	"normal":  logger.LevelNormal,
	"error":   logger.LevelError,
}

// Load reads, strictly decodes, and validates the YAML document at path.
// Unknown keys are rejected so operator typos surface at startup instead
// of silently falling back to defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: cannot open %q: %w", path, err)
	}
	defer f.Close()

	var cfg Config
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("config: cannot parse %q: %w", path, err)
	}

	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config: validation failed for %q: %w", path, err)
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "normal"
	}
}

// LoggerLevel resolves the validated LogLevel string to a logger.Level.
func (c *Config) LoggerLevel() logger.Level {
	return validLogLevels[c.LogLevel]
}

func validate(cfg *Config) error {
	var errs []error

	if _, ok := validLogLevels[cfg.LogLevel]; !ok {
		errs = append(errs, fmt.Errorf("log_level %q must be one of: debug, verbose, normal, error", cfg.LogLevel))
	}
	if cfg.Root == "" {
		errs = append(errs, errors.New("root is required"))
	}
	if cfg.MirrorCommand == "" {
		errs = append(errs, errors.New("mirror_command is required"))
	}

	return errors.Join(errs...)
}
