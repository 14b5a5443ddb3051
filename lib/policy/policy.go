// Copyright (C) 2026 The reflectd Authors.
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package policy defines the embedding-boundary contract between the
// native core and whatever decides what to synchronize and when (§4.F).
// In the original design this boundary was a scripting-runtime
// embedding; no scripting runtime exists anywhere in the example pack
// this rewrite draws from, so the boundary is expressed here as a plain
// pair of Go interfaces instead (see DESIGN.md).
package policy

import (
	"github.com/reflectd/reflectd/lib/core"
	"github.com/reflectd/reflectd/lib/logger"
	"github.com/reflectd/reflectd/lib/loop"
	"github.com/reflectd/reflectd/lib/notify"
	"github.com/reflectd/reflectd/lib/reaper"
)

// CoreVersion is the compiled-in version string the core publishes at
// startup. A Policy's Version() must equal-string this value; a
// mismatch is fatal (§4.F, §7).
const CoreVersion = "reflectd-core-1"

// Policy is implemented by the decision layer and called by the core.
// It satisfies loop.Policy (GetAlarm, Dispatch) plus the three named
// entry points of §4.F: Initialize, Event, Overflow.
type Policy interface {
	loop.Policy

	// Version must equal-string CoreVersion or startup is aborted.
	Version() string

	// Initialize is invoked once, before the master loop starts, with
	// the core's service surface.
	Initialize(services CoreServices) error

	// Event is invoked once per normalized event dispatched by the
	// master loop.
	Event(e notify.Event)

	// Overflow is invoked when the kernel reports a lost-event queue
	// overflow; the policy layer decides how (or whether) to recover,
	// typically by forcing a full resync.
	Overflow()
}

// CoreServices is implemented by the core and handed to the policy
// layer's Initialize. It exposes exactly the named operations of §6:
// logging, OS helpers, the child reaper, watch registration, clock
// arithmetic, the runner-file path, and termination — nothing about the
// event normalizer's internals or the master loop's scheduling is
// reachable from here.
type CoreServices interface {
	// Log and Logf mirror logger.Logger's API but are always attributed
	// to OriginPolicy at the embedding boundary.
	Log(level logger.Level, msg string)
	Logf(level logger.Level, format string, args ...interface{})

	SubDirs(absPath string) ([]string, error)
	RealDir(path string) (real string, ok bool)
	Exec(binary string, args ...string) int

	WaitPids(pids []int, collector reaper.Collector)

	AddWatch(path string) (watch int32, err error)
	RemoveWatch(watch int32) error

	// Now returns the current wrap-safe tick count, for policies that
	// want to compute alarm times relative to it without importing
	// lib/core directly.
	Now() core.Ticks

	// AddUp mirrors core.AddUp, for policies computing alarm times
	// without importing lib/core directly.
	AddUp(a, b core.Ticks) core.Ticks

	// RunnerPath is the --runner flag value, passed through unopened and
	// unparsed; empty if the flag was not given. Interpreting it is
	// entirely the policy layer's business.
	RunnerPath() string

	// Terminate requests that the master loop stop after the current
	// iteration and that the process exit with code. Exit code 0 iff the
	// most recent Terminate call passed 0.
	Terminate(code int)
}

// CheckVersion enforces the version-string handshake of §4.F: a
// mismatch between p.Version() and CoreVersion is a fatal startup
// condition, never a recoverable one, because it means the policy
// layer was built against a different core contract than this binary
// implements.
func CheckVersion(p Policy) error {
	if v := p.Version(); v != CoreVersion {
		return &VersionMismatchError{Got: v, Want: CoreVersion}
	}
	return nil
}

// VersionMismatchError reports a policy/core version handshake failure.
type VersionMismatchError struct {
	Got  string
	Want string
}

func (e *VersionMismatchError) Error() string {
	return "policy: version mismatch: policy reports " + e.Got + ", core is " + e.Want
}
