// Copyright (C) 2026 The reflectd Authors.
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package reaper implements the child reaper described in §4.C of the
// spec: wait_pids blocks until every non-zero pid in a caller-supplied set
// has either been reaped or been replaced by 0 via a collector callback.
// Centralising reaping here lets the policy layer model a "batch" of
// cooperating subprocesses without re-entering the master loop while the
// batch is outstanding.
package reaper

import (
	"syscall"

	"github.com/reflectd/reflectd/lib/logger"
)

// Collector is invoked once per reaped pid, even if that pid value
// occupies more than one slot of the set; its result is then applied to
// every matching slot. It returns 0 if the child's slot is done, or a
// new pid if the slot should be replaced (a retry or follow-up spawn)
// and waited on in turn.
type Collector func(pid int, exitCode int) (replacement int)

// WaitPids blocks until every non-zero entry of pids has been zeroed,
// mutating pids in place as slots are replaced. Passing a nil collector
// simply waits for each pid to exit (every slot is implicitly replaced
// with 0 once reaped).
//
// Per §7/§9, a reap that did not terminate via a normal exit (signal-killed
// or stopped) is silently ignored and does not decrement the remaining
// count — such processes must be handled out-of-band by the caller or they
// will never be retried by this function. This mirrors a known quirk of
// the original implementation that is preserved here rather than "fixed".
func WaitPids(log *logger.Logger, pids []int, collector Collector) {
	remaining := countNonZero(pids)

	for remaining > 0 {
		var status syscall.WaitStatus
		pid, err := syscall.Wait4(-1, &status, 0, nil)
		if err == syscall.EINTR {
			continue
		}
		if err != nil {
			// No children left to reap (ECHILD) or some other syscall
			// failure: there is nothing more this call can do.
			log.Errorf("wait_pids: wait4: %v", err)
			return
		}
		if !status.Exited() {
			// Signal-killed or stopped: does not decrement remaining.
			continue
		}

		exitCode := status.ExitStatus()
		matched := false
		repl := 0
		for i, p := range pids {
			if p != pid {
				continue
			}
			if !matched {
				matched = true
				if collector != nil {
					repl = collector(pid, exitCode)
				}
			}
			pids[i] = repl
		}
		if !matched {
			log.Debugf("wait_pids: reaped stranger pid %d", pid)
		}

		remaining = countNonZero(pids)
	}
}

func countNonZero(pids []int) int {
	n := 0
	for _, p := range pids {
		if p != 0 {
			n++
		}
	}
	return n
}
