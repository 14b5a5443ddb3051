// Copyright (C) 2026 The reflectd Authors.
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package core holds the small amount of process-global state the spec
// requires to remain global: the reset flag, which a signal handler must
// be able to touch with nothing but an async-signal-safe store. Everything
// else that the original source kept as a package global (the log
// configuration, the pending-move buffer) is instead threaded explicitly
// through the master loop and the policy interface, per DESIGN.md.
package core

import "sync/atomic"

// resetFlag is set from a signal handler and polled at every loop
// boundary in the master loop, the event-drain inner loop, and directory
// enumeration.
var resetFlag int32

// SetReset requests prompt termination of all cooperative loops. Safe to
// call from a signal handler: it performs a single atomic store and
// nothing else.
func SetReset() {
	atomic.StoreInt32(&resetFlag, 1)
}

// IsReset reports whether SetReset has been called since the last
// ClearReset (or process start).
func IsReset() bool {
	return atomic.LoadInt32(&resetFlag) != 0
}

// ClearReset resets the flag. Exists for tests that run more than one
// loop in the same process; production code never needs to call it.
func ClearReset() {
	atomic.StoreInt32(&resetFlag, 0)
}
