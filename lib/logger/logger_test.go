// Copyright (C) 2026 The reflectd Authors.
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAPI(t *testing.T) {
	l := New()

	debug := 0
	l.AddHandler(LevelDebug, checkFunc(t, LevelDebug, &debug))
	normal := 0
	l.AddHandler(LevelNormal, checkFunc(t, LevelNormal, &normal))
	errs := 0
	l.AddHandler(LevelError, checkFunc(t, LevelError, &errs))

	l.Logf(OriginCore, LevelDebug, "test %d", 0)
	l.Log(OriginCore, LevelDebug, "test 0")
	l.Logf(OriginCore, LevelNormal, "test %d", 1)
	l.Log(OriginCore, LevelNormal, "test 1")
	l.Logf(OriginCore, LevelError, "test %d", 2)
	l.Log(OriginCore, LevelError, "test 2")

	if debug != 6 {
		t.Errorf("debug handler called %d != 6 times", debug)
	}
	if normal != 4 {
		t.Errorf("normal handler called %d != 4 times", normal)
	}
	if errs != 2 {
		t.Errorf("error handler called %d != 2 times", errs)
	}
}

// apiMessages is the text TestAPI logs at each level. A handler sees every
// message at or above its own level, so the expected text follows the
// level of the message received, not the level of the handler.
var apiMessages = map[Level]string{
	LevelDebug:  "test 0",
	LevelNormal: "test 1",
	LevelError:  "test 2",
}

func checkFunc(t *testing.T, expectl Level, counter *int) Handler {
	return func(l Level, msg string) {
		*counter++
		if l < expectl {
			t.Errorf("incorrect message level %d < %d", l, expectl)
		}
		if expectmsg := apiMessages[l]; !strings.HasSuffix(msg, expectmsg) {
			t.Errorf("%q does not end with %q", msg, expectmsg)
		}
	}
}

func TestMinLevelFiltersBeforeHandlers(t *testing.T) {
	l := New()
	l.SetMinLevel(LevelNormal)

	calls := 0
	l.AddHandler(LevelDebug, func(Level, string) { calls++ })

	l.Log(OriginCore, LevelDebug, "dropped")
	l.Log(OriginCore, LevelVerbose, "dropped")
	l.Log(OriginCore, LevelNormal, "kept")

	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestOriginPrefix(t *testing.T) {
	l := New()
	var got string
	l.AddHandler(LevelDebug, func(_ Level, line string) { got = line })

	l.Log(OriginPolicy, LevelNormal, "hello")
	if !strings.HasPrefix(got, "[policy] ") {
		t.Errorf("expected policy prefix, got %q", got)
	}

	l.Log(OriginCore, LevelNormal, "hello")
	if !strings.HasPrefix(got, "[core] ") {
		t.Errorf("expected core prefix, got %q", got)
	}
}

func TestInstallLogFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reflectd.log")

	l := New()
	if err := Install(l, Config{MinLevel: LevelDebug, LogFile: path, Daemonized: true}); err != nil {
		t.Fatalf("Install: %v", err)
	}

	l.Log(OriginCore, LevelNormal, "written to file")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "written to file") {
		t.Errorf("log file missing message: %q", data)
	}
}

func TestInstallBadLogFileIsFatal(t *testing.T) {
	l := New()
	err := Install(l, Config{MinLevel: LevelDebug, LogFile: "/nonexistent-dir-xyz/reflectd.log", Daemonized: true})
	if err == nil {
		t.Fatal("expected error opening an unwritable log file path")
	}
}
