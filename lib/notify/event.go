// Copyright (C) 2026 The reflectd Authors.
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package notify reads raw inotify records from a watched tree, pairs
// rename halves into atomic move events, and normalizes everything into
// the canonical event vocabulary the policy layer consumes. This is the
// hardest part of the core (§1 of the spec): renames straddle read
// boundaries, may go unmatched, and must never be reordered or duplicated
// relative to what the kernel emitted.
package notify

// Kind is one of the canonical event kinds dispatched to the policy
// layer. Values are stable and exported verbatim at the embedding
// boundary (§6).
type Kind int

const (
	KindNone     Kind = 0
	KindAttrib   Kind = 1
	KindModify   Kind = 2
	KindCreate   Kind = 3
	KindDelete   Kind = 4
	KindMove     Kind = 5
	KindMoveFrom Kind = 6 // exported for policy convenience; never dispatched
	KindMoveTo   Kind = 7 // exported for policy convenience; never dispatched
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "None"
	case KindAttrib:
		return "Attrib"
	case KindModify:
		return "Modify"
	case KindCreate:
		return "Create"
	case KindDelete:
		return "Delete"
	case KindMove:
		return "Move"
	case KindMoveFrom:
		return "MoveFrom"
	case KindMoveTo:
		return "MoveTo"
	default:
		return "Unknown"
	}
}

// Event is the canonical (kind, watch, is_directory, name, name2) tuple
// of §3. Name2 is only meaningful when Kind is KindMove.
type Event struct {
	Kind  Kind
	Watch int32
	IsDir bool
	Name  string
	Name2 string
}
