// Copyright (C) 2026 The reflectd Authors.
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/reflectd/reflectd/lib/logger"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "reflectd.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeConfig(t, `
root: /srv/data
mirror_command: rsync
mirror_args: ["-a", "--delete"]
log_level: debug
debug_addr: "127.0.0.1:8384"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Root != "/srv/data" || cfg.MirrorCommand != "rsync" {
		t.Errorf("got %+v", cfg)
	}
	if cfg.LoggerLevel() != logger.LevelDebug {
		t.Errorf("LoggerLevel() = %v, want Debug", cfg.LoggerLevel())
	}
}

func TestLoadAppliesLogLevelDefault(t *testing.T) {
	path := writeConfig(t, `
root: /srv/data
mirror_command: rsync
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "normal" {
		t.Errorf("LogLevel = %q, want normal default", cfg.LogLevel)
	}
}

func TestLoadRejectsMissingRequiredFields(t *testing.T) {
	path := writeConfig(t, `log_level: normal`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected a validation error for missing root/mirror_command")
	}
}

func TestLoadRejectsBadLogLevel(t *testing.T) {
	path := writeConfig(t, `
root: /srv/data
mirror_command: rsync
log_level: loud
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected a validation error for an invalid log_level")
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, `
root: /srv/data
mirror_command: rsync
bogus_key: true
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected a decode error for an unknown key")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/does/not/exist.yaml"); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}
