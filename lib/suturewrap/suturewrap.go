// Copyright (C) 2026 The reflectd Authors.
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package suturewrap adapts a plain context-cancellable function into a
// thejerf/suture/v4 Service, the same shape syncthing's own
// lib/suturewrap uses to let ad-hoc goroutines join a supervisor tree
// without each one hand-rolling the Service interface.
package suturewrap

import (
	"context"
	"fmt"
	"sync"
)

// Func is the body of a supervised service. It must return once ctx is
// done; Serve does not return until it does.
type Func func(ctx context.Context)

// Service wraps a Func as a suture.Service, giving it a name used in
// panic messages and in supervisor logs via String.
type Service struct {
	fn   Func
	name string

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	stopped bool
}

// AsService adapts fn into a named Service. The returned Service's own
// cancellation (via Stop) is independent of whatever context Serve is
// later invoked with, so Stop is safe to call even before Serve starts.
func AsService(fn Func, name string) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{fn: fn, name: name, ctx: ctx, cancel: cancel}
}

func (s *Service) String() string { return s.name }

// Serve implements suture.Service. The wrapped function runs under a
// context that is cancelled when either the supervisor-provided ctx or
// this Service's own Stop ends first.
func (s *Service) Serve(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-done:
		}
	}()
	defer close(done)

	s.fn(s.ctx)
	return nil
}

// Stop cancels the service's context. Calling it more than once is a
// programming error and panics, naming the service, so a double-stop
// bug surfaces immediately instead of silently no-op'ing.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		panic(fmt.Sprintf("suturewrap: service %q stopped twice", s.name))
	}
	s.stopped = true
	s.cancel()
}
