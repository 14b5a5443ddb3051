// Copyright (C) 2026 The reflectd Authors.
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package loop implements the master loop of §4.E: a single-threaded
// cooperative multiplexer between the policy-driven alarm, the inotify
// event source, and the reset flag. It owns no domain logic of its own —
// it only sequences calls into the notify.Normalizer and the Policy.
package loop

import (
	"fmt"

	"github.com/reflectd/reflectd/lib/core"
	"github.com/reflectd/reflectd/lib/logger"
	"github.com/reflectd/reflectd/lib/notify"
)

// AlarmState is the policy's answer to get_alarm: whether dispatch is
// due immediately, should wait for a future tick, or can block
// indefinitely.
type AlarmState int

const (
	// ImmediatelyDue means the loop must not wait on the event source at
	// all this iteration; it falls straight through to dispatch.
	ImmediatelyDue AlarmState = iota
	// Waiting means the loop should wait on the event source with a
	// timeout derived from the alarm time.
	Waiting
	// Idle means the loop should block on the event source with no
	// timeout until new data arrives.
	Idle
)

// Alarm is one get_alarm(now) answer.
type Alarm struct {
	State AlarmState
	// At is only meaningful when State == Waiting; it must be strictly
	// after the `now` passed to get_alarm.
	At core.Ticks
}

// Policy is the subset of the embedding shim's policy-facing contract
// the master loop itself drives. The full Policy interface (with
// Initialize, Event, Overflow, Version) lives in lib/policy; the loop
// only needs GetAlarm and Dispatch to sequence an iteration, so it
// depends on this narrower interface to stay decoupled from the rest of
// the embedding shim.
type Policy interface {
	GetAlarm(now core.Ticks) Alarm
	Dispatch(now core.Ticks)
}

// Loop drives one Normalizer and one Policy until the reset flag is
// observed set or a fatal condition ends Run.
type Loop struct {
	log       *logger.Logger
	norm      *notify.Normalizer
	policy    Policy
	onIgnored func(watch int32)
}

// New builds a Loop. onIgnored, if non-nil, is invoked for every
// IN_IGNORED record the normalizer sees; it exists purely so the
// embedding shim can keep its debug watch table in sync with the
// kernel and is never exposed to the Policy (§4.F).
func New(log *logger.Logger, norm *notify.Normalizer, policy Policy, onIgnored func(watch int32)) *Loop {
	return &Loop{log: log, norm: norm, policy: policy, onIgnored: onIgnored}
}

// Run executes the master loop until the reset flag is set or a fatal
// condition (a past alarm, or an event-source error) is hit, in which
// case it returns a non-nil error. A clean stop via the reset flag
// returns nil.
func (l *Loop) Run() error {
	for !core.IsReset() {
		if err := l.iterate(); err != nil {
			return err
		}
	}
	return nil
}

func (l *Loop) iterate() error {
	now := core.Now()
	alarm := l.policy.GetAlarm(now)

	switch alarm.State {
	case ImmediatelyDue:
		// Do not touch the event source at all this iteration: the
		// inotify fd is opened blocking (§4.E step 3), so a read here
		// with no data pending would block indefinitely and starve the
		// very timer that just fired.
		l.policy.Dispatch(now)
		return nil

	case Waiting:
		if !core.After(alarm.At, now) {
			l.log.Errorf("loop: alarm at %d is not after now (%d): scheduler corruption", alarm.At, now)
			return fmt.Errorf("loop: alarm at %d is not after now (%d)", alarm.At, now)
		}
		timeoutMs := ticksToMillis(alarm.At - now)
		ready, err := l.norm.Wait(timeoutMs)
		if err != nil {
			return fmt.Errorf("loop: wait: %w", err)
		}
		if !ready {
			// Timeout expired, or a spurious signal wakeup: either way
			// re-enter at step 1 to re-query the alarm rather than
			// assuming data is present.
			return nil
		}

	case Idle:
		ready, err := l.norm.Wait(-1)
		if err != nil {
			return fmt.Errorf("loop: wait: %w", err)
		}
		if !ready {
			// Signal-interrupted indefinite wait: spurious, re-query.
			return nil
		}

	default:
		return fmt.Errorf("loop: unknown alarm state %d", alarm.State)
	}

	if err := l.drain(); err != nil {
		return err
	}

	l.norm.FlushPending(l.dispatchEvent)

	now = core.Now()
	l.policy.Dispatch(now)
	return nil
}

// drain repeatedly reads and classifies raw records, peeking the source
// with a zero timeout between reads, until no more data is immediately
// available or the reset flag is observed.
func (l *Loop) drain() error {
	for !core.IsReset() {
		if _, err := l.norm.Drain(l.dispatchEvent, l.dispatchOverflow, l.onIgnored); err != nil {
			return fmt.Errorf("loop: drain: %w", err)
		}

		more, err := l.norm.Wait(0)
		if err != nil {
			return fmt.Errorf("loop: peek: %w", err)
		}
		if !more {
			return nil
		}
	}
	return nil
}

func (l *Loop) dispatchEvent(e notify.Event) {
	// The Policy interface used by the loop doesn't carry Event itself
	// (see eventPolicy below); this indirection lets lib/policy's
	// richer Policy satisfy both contracts via embedding.
	if ep, ok := l.policy.(eventPolicy); ok {
		ep.Event(e)
	}
}

func (l *Loop) dispatchOverflow() {
	if op, ok := l.policy.(overflowPolicy); ok {
		op.Overflow()
	}
}

type eventPolicy interface {
	Event(e notify.Event)
}

type overflowPolicy interface {
	Overflow()
}

func ticksToMillis(d core.Ticks) int {
	ms := int(d) * 1000 / core.TicksPerSecond
	if ms < 0 {
		ms = 0
	}
	return ms
}
