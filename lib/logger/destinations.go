// Copyright (C) 2026 The reflectd Authors.
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package logger

import (
	"fmt"
	"log/syslog"
	"os"
	"time"
)

// Config describes the three destinations a Logger can be wired to. It is
// the in-memory form of the "Log configuration" process-wide triple from
// §3 of the spec, as loaded by lib/config.
type Config struct {
	MinLevel   Level
	LogFile    string // empty disables the log-file destination
	Syslog     bool
	Daemonized bool // consulted, never set, by this package (see DESIGN.md)
}

// Install registers the standard destinations on l according to cfg,
// applied in the order the spec lists them: console, log file, syslog.
// A failure to open the configured log file is fatal, matching §4.A / §7.
func Install(l *Logger, cfg Config) error {
	l.SetMinLevel(cfg.MinLevel)

	if !cfg.Daemonized {
		l.AddHandler(LevelDebug, consoleHandler)
	}

	if cfg.LogFile != "" {
		if err := probeLogFile(cfg.LogFile); err != nil {
			return fmt.Errorf("open log file %q: %w", cfg.LogFile, err)
		}
		path := cfg.LogFile
		l.AddHandler(LevelDebug, func(level Level, line string) {
			writeLogFile(path, level, line)
		})
	}

	if cfg.Syslog {
		w, err := syslog.New(syslog.LOG_DAEMON, "reflectd")
		if err != nil {
			return fmt.Errorf("connect syslog: %w", err)
		}
		l.AddHandler(LevelDebug, func(level Level, line string) {
			writeSyslog(w, level, line)
		})
	}

	return nil
}

// consoleHandler writes to stdout, except Error which goes to stderr, each
// line prefixed by wall-clock HH:MM:SS.
func consoleHandler(level Level, line string) {
	ts := time.Now().Format("15:04:05")
	out := os.Stdout
	if level == LevelError {
		out = os.Stderr
	}
	fmt.Fprintf(out, "%s %s\n", ts, line)
}

// probeLogFile verifies the log file can be opened for append, without
// keeping it open: §4.A opens, appends, and closes the file per message,
// so the only thing worth validating up front is that the path is usable.
func probeLogFile(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	return f.Close()
}

// writeLogFile opens, appends, and closes path for a single message. Per
// §7, the log file is the one sink whose failure is NOT swallowed: a
// message that cannot be opened or written terminates the process.
func writeLogFile(path string, level Level, line string) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fatalLogFileError(path, err)
	}
	defer f.Close()
	ts := time.Now().Format("2006-01-02 15:04:05")
	if _, err := fmt.Fprintf(f, "%s %s\n", ts, line); err != nil {
		fatalLogFileError(path, err)
	}
}

func fatalLogFileError(path string, err error) {
	fmt.Fprintf(os.Stderr, "log file %q unwritable: %v\n", path, err)
	os.Exit(1)
}

// writeSyslog maps the core's four levels onto syslog priorities per §4.A:
// Debug->debug, Verbose/Normal->notice, Error->err.
func writeSyslog(w *syslog.Writer, level Level, line string) {
	var err error
	switch level {
	case LevelDebug:
		err = w.Debug(line)
	case LevelVerbose, LevelNormal:
		err = w.Notice(line)
	case LevelError:
		err = w.Err(line)
	}
	_ = err // sink failure is swallowed, per §7
}
