// Copyright (C) 2026 The reflectd Authors.
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package mirror is a minimal reference Policy implementation. It is
// demonstration and test scaffolding exercising most of the CoreServices
// surface — logging, path canonicalization, watch registration,
// directory enumeration, the clock, subprocess spawning, and reaping; it
// never calls RemoveWatch, AddUp, RunnerPath or Terminate. It is not a
// product requirement: actual
// synchronization decision logic is explicitly out of scope for the
// core this policy is embedded in.
package mirror

import (
	"fmt"
	"path/filepath"

	"github.com/reflectd/reflectd/lib/core"
	"github.com/reflectd/reflectd/lib/logger"
	"github.com/reflectd/reflectd/lib/loop"
	"github.com/reflectd/reflectd/lib/notify"
	"github.com/reflectd/reflectd/lib/policy"
)

// debounce is how long the policy waits after the last observed event
// before it actually shells out to the mirror command, so a burst of
// events (e.g. an editor's save-via-rename dance) collapses into one
// invocation.
const debounce = core.Ticks(core.TicksPerSecond / 2)

// Policy watches a single root tree and invokes command once per
// debounced burst of activity, passing the root as its final argument.
type Policy struct {
	services policy.CoreServices

	root    string
	command string
	args    []string

	dirty bool
	dueAt core.Ticks
}

// New constructs a mirror policy rooted at root, invoking command with
// args plus the resolved root path on every debounced change.
func New(root, command string, args ...string) *Policy {
	return &Policy{root: root, command: command, args: args}
}

func (p *Policy) Version() string { return policy.CoreVersion }

func (p *Policy) Initialize(services policy.CoreServices) error {
	p.services = services

	real, ok := services.RealDir(p.root)
	if !ok {
		return fmt.Errorf("mirror: %q is not a usable directory", p.root)
	}
	p.root = real

	if _, err := services.AddWatch(p.root); err != nil {
		return fmt.Errorf("mirror: watch root: %w", err)
	}

	subs, err := services.SubDirs(p.root)
	if err != nil {
		return fmt.Errorf("mirror: enumerate root: %w", err)
	}
	for _, sub := range subs {
		if _, err := services.AddWatch(filepath.Join(p.root, sub)); err != nil {
			services.Logf(logger.LevelError, "mirror: watch %s: %v", sub, err)
		}
	}

	services.Logf(logger.LevelNormal, "mirror: watching %s (%d subdirectories)", p.root, len(subs))
	return nil
}

func (p *Policy) GetAlarm(now core.Ticks) loop.Alarm {
	if !p.dirty {
		return loop.Alarm{State: loop.Idle}
	}
	if core.After(p.dueAt, now) {
		return loop.Alarm{State: loop.Waiting, At: p.dueAt}
	}
	return loop.Alarm{State: loop.ImmediatelyDue}
}

func (p *Policy) Dispatch(now core.Ticks) {
	if !p.dirty || core.After(p.dueAt, now) {
		return
	}
	p.dirty = false
	p.runMirror()
}

func (p *Policy) Event(e notify.Event) {
	if e.Kind == notify.KindCreate && e.IsDir {
		sub := filepath.Join(p.root, e.Name)
		if _, err := p.services.AddWatch(sub); err != nil {
			p.services.Logf(logger.LevelError, "mirror: watch new directory %s: %v", sub, err)
		}
	}

	p.dirty = true
	p.dueAt = core.AddUp(p.services.Now(), debounce)
}

func (p *Policy) Overflow() {
	p.services.Log(logger.LevelError, "mirror: event queue overflowed; forcing a full resync")
	p.dirty = true
	p.dueAt = p.services.Now()
}

// runMirror spawns the configured command and blocks the dispatching
// loop iteration until it exits, using WaitPids the same way any other
// policy-level subprocess batch would.
func (p *Policy) runMirror() {
	args := append(append([]string{}, p.args...), p.root)
	pid := p.services.Exec(p.command, args...)
	if pid == 0 {
		p.services.Logf(logger.LevelError, "mirror: failed to start %s", p.command)
		return
	}

	pids := []int{pid}
	p.services.WaitPids(pids, func(pid int, exitCode int) int {
		if exitCode != 0 {
			p.services.Logf(logger.LevelError, "mirror: %s exited %d", p.command, exitCode)
		}
		return 0
	})
}
