// Copyright (C) 2026 The reflectd Authors.
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package osutil

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"testing"

	"github.com/reflectd/reflectd/lib/core"
	"github.com/reflectd/reflectd/lib/logger"
)

func TestSubDirs(t *testing.T) {
	dir := t.TempDir()
	mustMkdir(t, filepath.Join(dir, "a"))
	mustMkdir(t, filepath.Join(dir, "b"))
	mustWriteFile(t, filepath.Join(dir, "c.txt"))

	got, err := SubDirs(dir)
	if err != nil {
		t.Fatalf("SubDirs: %v", err)
	}
	sort.Strings(got)
	want := []string{"a", "b"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("SubDirs(%q) = %v, want %v", dir, got, want)
	}
}

func TestSubDirsHonorsResetMidScan(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 10000; i++ {
		mustMkdir(t, filepath.Join(dir, "d"+strconv.Itoa(i)))
	}

	core.ClearReset()
	defer core.ClearReset()

	// We can't deterministically stop "mid-scan" from outside SubDirs, but
	// we can verify that a reset flag set before the call returns a
	// (possibly empty) prefix rather than panicking or erroring.
	core.SetReset()
	got, err := SubDirs(dir)
	if err != nil {
		t.Fatalf("SubDirs with reset set: %v", err)
	}
	if len(got) > 10000 {
		t.Errorf("got more entries than exist: %d", len(got))
	}
}

func TestSubDirsMissingDir(t *testing.T) {
	if _, err := SubDirs("/does/not/exist/xyz"); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestRealDir(t *testing.T) {
	dir := t.TempDir()
	l := logger.New()

	real, ok := RealDir(l, dir)
	if !ok {
		t.Fatalf("RealDir(%q) failed", dir)
	}
	if real[len(real)-1] != os.PathSeparator {
		t.Errorf("RealDir(%q) = %q, missing trailing separator", dir, real)
	}
}

func TestRealDirRejectsFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f")
	mustWriteFile(t, file)

	l := logger.New()
	if _, ok := RealDir(l, file); ok {
		t.Errorf("RealDir(%q) should have failed: not a directory", file)
	}
}

func TestRealDirMissingPath(t *testing.T) {
	l := logger.New()
	if _, ok := RealDir(l, "/does/not/exist/xyz"); ok {
		t.Error("RealDir should fail for a missing path")
	}
}

func TestExecReturnsZeroOnBadBinary(t *testing.T) {
	if pid := Exec("/does/not/exist/binary-xyz"); pid != 0 {
		t.Errorf("Exec of nonexistent binary returned pid %d, want 0", pid)
	}
}

func TestExecReturnsPid(t *testing.T) {
	pid := Exec("/bin/true")
	if pid == 0 {
		t.Skip("/bin/true not available in this environment")
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		t.Fatalf("FindProcess: %v", err)
	}
	_, _ = proc.Wait()
}

func mustMkdir(t *testing.T, path string) {
	t.Helper()
	if err := os.Mkdir(path, 0755); err != nil {
		t.Fatalf("mkdir %q: %v", path, err)
	}
}

func mustWriteFile(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatalf("write %q: %v", path, err)
	}
}
