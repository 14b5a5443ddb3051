// Copyright (C) 2026 The reflectd Authors.
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package notify

import (
	"fmt"
	"strings"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/reflectd/reflectd/lib/logger"
)

const initialBufSize = 2048

// watchMask is the fixed set of events requested on every watch. The
// spec does not expose mask selection to the policy layer, so there is
// exactly one mask for every directory watched.
const watchMask = unix.IN_ATTRIB | unix.IN_CLOSE_WRITE | unix.IN_CREATE |
	unix.IN_DELETE | unix.IN_DELETE_SELF | unix.IN_MOVED_FROM | unix.IN_MOVED_TO |
	unix.IN_DONT_FOLLOW | unix.IN_ONLYDIR

// rawRecord is one deserialized inotify_event, before classification.
type rawRecord struct {
	wd     int32
	mask   uint32
	cookie uint32
	name   string
	isDir  bool
}

// Normalizer owns the inotify file descriptor, the growable read buffer,
// and the single-slot pending-move buffer described in §4.D. It is not
// safe for concurrent use; the master loop is its only caller.
type Normalizer struct {
	fd      int
	buf     []byte
	pending *rawRecord
	log     *logger.Logger
}

// NewNormalizer opens a fresh inotify instance.
func NewNormalizer(log *logger.Logger) (*Normalizer, error) {
	fd, err := unix.InotifyInit1(unix.IN_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("notify: inotify_init1: %w", err)
	}
	return &Normalizer{
		fd:  fd,
		buf: make([]byte, initialBufSize),
		log: log,
	}, nil
}

// Fd returns the underlying inotify descriptor, for use by a supervisor
// that wants to multiplex it alongside other sources.
func (n *Normalizer) Fd() int { return n.fd }

// AddWatch registers path and returns its watch descriptor. The core
// never interprets the descriptor's value; it only round-trips it on the
// events that reference it.
func (n *Normalizer) AddWatch(path string) (int32, error) {
	wd, err := unix.InotifyAddWatch(n.fd, path, watchMask)
	if err != nil {
		return 0, fmt.Errorf("notify: add watch %q: %w", path, err)
	}
	return int32(wd), nil
}

// RemoveWatch cancels a previously added watch. The kernel answers with
// an IN_IGNORED record once the removal completes; callers should not
// assume removal is synchronous.
func (n *Normalizer) RemoveWatch(wd int32) error {
	_, err := unix.InotifyRmWatch(n.fd, uint32(wd))
	if err != nil {
		return fmt.Errorf("notify: remove watch %d: %w", wd, err)
	}
	return nil
}

// Wait blocks until the event source is readable or timeoutMs elapses.
// timeoutMs < 0 blocks indefinitely (the Idle alarm state); 0 peeks
// without blocking. A wakeup lost to a signal is reported as
// ready=false, err=nil: the caller treats it as spurious and re-enters
// its alarm evaluation from the top, never as a fatal condition.
func (n *Normalizer) Wait(timeoutMs int) (ready bool, err error) {
	fds := []unix.PollFd{{Fd: int32(n.fd), Events: unix.POLLIN}}
	count, perr := unix.Poll(fds, timeoutMs)
	if perr == unix.EINTR {
		return false, nil
	}
	if perr != nil {
		return false, fmt.Errorf("notify: poll: %w", perr)
	}
	return count > 0, nil
}

// Drain performs one read(2) of the event source and classifies every
// record it contains, dispatching normalized events to dispatch,
// invoking overflow on IN_Q_OVERFLOW, and invoking onIgnored (if
// non-nil) on IN_IGNORED for watch-table bookkeeping. It returns the
// number of raw records consumed from the read.
//
// A read that returns EINVAL means the buffer was smaller than the next
// pending event; the buffer is doubled and the read retried, per the
// growable-buffer rule of §4.D.
func (n *Normalizer) Drain(dispatch func(Event), overflow func(), onIgnored func(int32)) (int, error) {
	nread, err := unix.Read(n.fd, n.buf)
	for err == unix.EINVAL {
		n.buf = make([]byte, len(n.buf)*2)
		nread, err = unix.Read(n.fd, n.buf)
	}
	if err != nil {
		return 0, fmt.Errorf("notify: read: %w", err)
	}
	if nread < unix.SizeofInotifyEvent {
		return 0, fmt.Errorf("notify: short read (%d bytes)", nread)
	}

	count := 0
	offset := 0
	for offset <= nread-unix.SizeofInotifyEvent {
		raw := (*unix.InotifyEvent)(unsafe.Pointer(&n.buf[offset]))
		nameLen := int(raw.Len)

		var name string
		if nameLen > 0 {
			start := offset + unix.SizeofInotifyEvent
			name = strings.TrimRight(string(n.buf[start:start+nameLen]), "\x00")
		}

		rec := rawRecord{
			wd:     raw.Wd,
			mask:   raw.Mask,
			cookie: raw.Cookie,
			name:   name,
			isDir:  raw.Mask&unix.IN_ISDIR != 0,
		}
		n.processRecord(rec, dispatch, overflow, onIgnored)

		count++
		offset += unix.SizeofInotifyEvent + nameLen
	}
	return count, nil
}

// FlushPending emits a Delete for an occupied pending-move buffer and
// clears it. It is called once the master loop confirms the event
// source has no more immediately available data (§4.D's flush rule),
// never between records of the same drain. It returns whether anything
// was flushed.
func (n *Normalizer) FlushPending(dispatch func(Event)) bool {
	if n.pending == nil {
		return false
	}
	buffered := *n.pending
	n.pending = nil
	dispatch(deleteEvent(buffered))
	return true
}

// PendingOccupied reports whether a moved-from record is currently
// buffered awaiting its pair. Exposed only for the debug surface.
func (n *Normalizer) PendingOccupied() bool { return n.pending != nil }

// Close releases the inotify descriptor.
func (n *Normalizer) Close() error {
	return unix.Close(n.fd)
}

// processRecord applies the classification table of §4.D to a single
// raw record, dispatching zero or more canonical events. It loops
// instead of recursing when a buffered moved-from record is displaced:
// the displaced record is flushed and rec is reclassified against the
// now-empty pending buffer.
func (n *Normalizer) processRecord(rec rawRecord, dispatch func(Event), overflow func(), onIgnored func(int32)) {
	for {
		switch {
		case rec.mask&unix.IN_Q_OVERFLOW != 0:
			if overflow != nil {
				overflow()
			}
			return

		case rec.mask&unix.IN_IGNORED != 0:
			if onIgnored != nil {
				onIgnored(rec.wd)
			}
			return

		case rec.mask&unix.IN_MOVED_FROM != 0:
			if n.pending == nil {
				cp := rec
				n.pending = &cp
				return
			}
			buffered := *n.pending
			n.pending = nil
			dispatch(deleteEvent(buffered))
			continue // buffer now empty; reclassify rec against it

		case rec.mask&unix.IN_MOVED_TO != 0:
			if n.pending != nil {
				buffered := *n.pending
				n.pending = nil
				if buffered.cookie == rec.cookie {
					dispatch(Event{
						Kind:  KindMove,
						Watch: buffered.wd,
						IsDir: rec.isDir,
						Name:  buffered.name,
						Name2: rec.name,
					})
					return
				}
				dispatch(deleteEvent(buffered))
				continue // buffer now empty; reclassify rec against it
			}
			dispatch(Event{Kind: KindCreate, Watch: rec.wd, IsDir: rec.isDir, Name: rec.name})
			return

		case rec.mask&unix.IN_ATTRIB != 0:
			dispatch(Event{Kind: KindAttrib, Watch: rec.wd, IsDir: rec.isDir, Name: rec.name})
			return

		case rec.mask&unix.IN_CLOSE_WRITE != 0:
			dispatch(Event{Kind: KindModify, Watch: rec.wd, IsDir: rec.isDir, Name: rec.name})
			return

		case rec.mask&unix.IN_CREATE != 0:
			dispatch(Event{Kind: KindCreate, Watch: rec.wd, IsDir: rec.isDir, Name: rec.name})
			return

		case rec.mask&unix.IN_DELETE != 0 || rec.mask&unix.IN_DELETE_SELF != 0:
			dispatch(Event{Kind: KindDelete, Watch: rec.wd, IsDir: rec.isDir, Name: rec.name})
			return

		default:
			n.log.Debugf("notify: unrecognized mask %#x on watch %d", rec.mask, rec.wd)
			return
		}
	}
}

func deleteEvent(rec rawRecord) Event {
	return Event{Kind: KindDelete, Watch: rec.wd, IsDir: rec.isDir, Name: rec.name}
}
