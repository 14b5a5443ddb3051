// Copyright (C) 2026 The reflectd Authors.
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package policy

import (
	"sync/atomic"

	"github.com/reflectd/reflectd/lib/core"
	"github.com/reflectd/reflectd/lib/logger"
	"github.com/reflectd/reflectd/lib/notify"
	"github.com/reflectd/reflectd/lib/osutil"
	"github.com/reflectd/reflectd/lib/reaper"
)

// Services is the core's implementation of CoreServices. It also tracks
// the watch table (descriptor → path) purely to serve the debug
// surface's snapshot; that bookkeeping is invisible to the Policy and
// to the master loop's control flow, per §4.F.
type Services struct {
	log  *logger.Logger
	norm *notify.Normalizer

	watches WatchTable

	runnerPath string
	exitCode   int32
}

// NewServices constructs the core's service surface around a logger and
// an already-open event normalizer. runnerPath is the --runner flag
// value, passed through verbatim (§6); it may be empty.
func NewServices(log *logger.Logger, norm *notify.Normalizer, runnerPath string) *Services {
	return &Services{
		log:        log,
		norm:       norm,
		watches:    NewWatchTable(),
		runnerPath: runnerPath,
	}
}

func (s *Services) Log(level logger.Level, msg string) {
	s.log.Log(logger.OriginPolicy, level, msg)
}

func (s *Services) Logf(level logger.Level, format string, args ...interface{}) {
	s.log.Logf(logger.OriginPolicy, level, format, args...)
}

func (s *Services) SubDirs(absPath string) ([]string, error) {
	return osutil.SubDirs(absPath)
}

func (s *Services) RealDir(path string) (string, bool) {
	return osutil.RealDir(s.log, path)
}

func (s *Services) Exec(binary string, args ...string) int {
	return osutil.Exec(binary, args...)
}

func (s *Services) WaitPids(pids []int, collector reaper.Collector) {
	reaper.WaitPids(s.log, pids, collector)
}

func (s *Services) AddWatch(path string) (int32, error) {
	wd, err := s.norm.AddWatch(path)
	if err != nil {
		return 0, err
	}
	s.watches.Add(wd, path)
	return wd, nil
}

func (s *Services) RemoveWatch(wd int32) error {
	// The kernel confirms removal asynchronously via IN_IGNORED; the
	// watch table entry is dropped there (see HandleIgnored), not here,
	// so a debug snapshot taken between this call and the IN_IGNORED
	// record still shows the watch as live.
	return s.norm.RemoveWatch(wd)
}

func (s *Services) Now() core.Ticks {
	return core.Now()
}

func (s *Services) AddUp(a, b core.Ticks) core.Ticks {
	return core.AddUp(a, b)
}

func (s *Services) RunnerPath() string {
	return s.runnerPath
}

// Terminate records code and trips the reset flag so the master loop
// returns after the current iteration. Safe to call from the policy's
// Dispatch or Event, which run on the master loop's own goroutine.
func (s *Services) Terminate(code int) {
	atomic.StoreInt32(&s.exitCode, int32(code))
	core.SetReset()
}

// ExitCode returns the code passed to the most recent Terminate call, or
// 0 if Terminate was never called. Read by main once the master loop has
// returned.
func (s *Services) ExitCode() int {
	return int(atomic.LoadInt32(&s.exitCode))
}

// HandleIgnored is wired as the normalizer's onIgnored callback so the
// watch table stays in sync with the kernel's own view of which watches
// are still live. It is never exposed to the Policy.
func (s *Services) HandleIgnored(wd int32) {
	s.watches.Remove(wd)
}

// Snapshot returns a point-in-time copy of the watch table and the
// normalizer's pending-move occupancy, for the debug surface.
func (s *Services) Snapshot() (watches map[int32]string, pendingOccupied bool) {
	return s.watches.Snapshot(), s.norm.PendingOccupied()
}
