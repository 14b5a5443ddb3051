// Copyright (C) 2026 The reflectd Authors.
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package osutil provides the handful of filesystem and process helpers
// the policy layer cannot implement itself: directory enumeration, path
// canonicalization, and subprocess spawning. None of it interprets watch
// descriptors or event masks — that lives in lib/notify.
package osutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/reflectd/reflectd/lib/core"
	"github.com/reflectd/reflectd/lib/logger"
)

// SubDirs enumerates absPath and returns the basenames of entries that are
// directories, excluding "." and "..". It honors the reset flag: if the
// flag is set partway through, it returns the partial sequence accumulated
// so far rather than continuing or erroring.
func SubDirs(absPath string) ([]string, error) {
	entries, err := os.ReadDir(absPath)
	if err != nil {
		return nil, fmt.Errorf("read directory %q: %w", absPath, err)
	}

	dirs := make([]string, 0, len(entries))
	for _, entry := range entries {
		if core.IsReset() {
			return dirs, nil
		}

		name := entry.Name()
		if name == "." || name == ".." {
			continue
		}

		isDir := entry.IsDir()
		if entry.Type()&os.ModeSymlink != 0 {
			// The directory entry's type bits don't tell us what a symlink
			// points at; stat through it.
			info, statErr := os.Stat(filepath.Join(absPath, name))
			isDir = statErr == nil && info.IsDir()
		}
		if isDir {
			dirs = append(dirs, name)
		}
	}
	return dirs, nil
}

// RealDir canonicalizes path, verifies the result is a directory, and
// returns it with a trailing separator. On any failure it logs an error
// through log and returns ok=false rather than an error value, matching
// the "reported-and-continue" taxonomy of §7.
func RealDir(log *logger.Logger, path string) (real string, ok bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		log.Errorf("resolve path %q: %v", path, err)
		return "", false
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		log.Errorf("resolve path %q: %v", path, err)
		return "", false
	}

	info, err := os.Stat(resolved)
	if err != nil {
		log.Errorf("stat %q: %v", resolved, err)
		return "", false
	}
	if !info.IsDir() {
		log.Errorf("%q is not a directory", resolved)
		return "", false
	}

	if !strings.HasSuffix(resolved, string(os.PathSeparator)) {
		resolved += string(os.PathSeparator)
	}
	return resolved, true
}

// Exec spawns binary with argv[0] set to binary and the given arguments,
// inheriting the parent's standard streams. It returns the child pid, or 0
// if the process could not be started.
//
// Go's os.StartProcess already performs the fork+exec atomically (no
// separate "child logs and exits" step is observable from user code the
// way it is with a raw fork(2)/execve(2) pair): a failed exec is reported
// to the caller directly as an error, which this function collapses to
// the same pid==0 contract the spec describes for a failed fork.
func Exec(binary string, args ...string) int {
	argv := append([]string{binary}, args...)
	attr := &os.ProcAttr{
		Files: []*os.File{os.Stdin, os.Stdout, os.Stderr},
	}
	proc, err := os.StartProcess(binary, argv, attr)
	if err != nil {
		return 0
	}
	return proc.Pid
}
