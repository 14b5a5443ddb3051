// Copyright (C) 2026 The reflectd Authors.
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package policy

import "sync"

// WatchTable maps a live watch descriptor to the path it was registered
// against. It exists solely to feed the debug surface's snapshot; the
// core's control flow never queries it.
type WatchTable struct {
	mu    sync.RWMutex
	paths map[int32]string
}

func NewWatchTable() WatchTable {
	return WatchTable{paths: make(map[int32]string)}
}

func (t *WatchTable) Add(wd int32, path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.paths[wd] = path
}

func (t *WatchTable) Remove(wd int32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.paths, wd)
}

func (t *WatchTable) Snapshot() map[int32]string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[int32]string, len(t.paths))
	for k, v := range t.paths {
		out[k] = v
	}
	return out
}
