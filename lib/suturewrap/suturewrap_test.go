// Copyright (C) 2026 The reflectd Authors.
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package suturewrap

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestStopTwicePanics(t *testing.T) {
	name := "foo"
	s := AsService(func(ctx context.Context) {
		<-ctx.Done()
	}, name)

	go s.Serve(context.Background())
	s.Stop()

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected a panic on double Stop")
		}
		msg, ok := r.(string)
		if !ok || !strings.Contains(msg, name) {
			t.Fatalf("expected panic message to contain %q, got %v", name, r)
		}
	}()
	s.Stop()
}

func TestServeReturnsWhenParentContextCancelled(t *testing.T) {
	ran := make(chan struct{})
	s := AsService(func(ctx context.Context) {
		<-ctx.Done()
		close(ran)
	}, "bar")

	ctx, cancel := context.WithCancel(context.Background())
	go s.Serve(ctx)
	cancel()

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("service did not stop when its parent context was cancelled")
	}
}

func TestString(t *testing.T) {
	s := AsService(func(context.Context) {}, "named")
	if s.String() != "named" {
		t.Errorf("String() = %q, want %q", s.String(), "named")
	}
}
