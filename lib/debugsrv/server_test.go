// Copyright (C) 2026 The reflectd Authors.
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package debugsrv

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/reflectd/reflectd/lib/logger"
)

func testServer() *Server {
	watchFn := func() (map[int32]string, bool) {
		return map[int32]string{1: "/data"}, true
	}
	return New(logger.New(), watchFn)
}

func TestHealthz(t *testing.T) {
	s := testServer()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("got status %d, want 200", rec.Code)
	}
}

func TestWatchesHandler(t *testing.T) {
	s := testServer()
	req := httptest.NewRequest(http.MethodGet, "/debug/watches", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", rec.Code)
	}

	var payload struct {
		Watches         map[string]string `json:"watches"`
		PendingOccupied bool              `json:"pending_move_occupied"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Watches["1"] != "/data" || !payload.PendingOccupied {
		t.Errorf("got %+v", payload)
	}
}

func TestEventsWebSocketReplaysRingThenTails(t *testing.T) {
	s := testServer()
	s.ring.append(Entry{Kind: "Create", Name: "existing"})

	httpSrv := httptest.NewServer(s)
	defer httpSrv.Close()

	wsURL := "ws" + strings.TrimPrefix(httpSrv.URL, "http") + "/debug/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	var replayed Entry
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&replayed); err != nil {
		t.Fatalf("read replayed entry: %v", err)
	}
	if replayed.Name != "existing" {
		t.Errorf("got %+v, want replayed entry named 'existing'", replayed)
	}

	// Give the handler a moment to register its subscription before we
	// record a new event for it to tail.
	time.Sleep(50 * time.Millisecond)
	s.Record(Entry{Kind: "Modify", Name: "live"})

	var tailed Entry
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&tailed); err != nil {
		t.Fatalf("read tailed entry: %v", err)
	}
	if tailed.Name != "live" {
		t.Errorf("got %+v, want tailed entry named 'live'", tailed)
	}
}

func TestRecordNeverBlocksOnFullSubscriberChannel(t *testing.T) {
	s := testServer()
	ch := make(chan Entry) // unbuffered, never read from
	s.subscribe(ch)
	defer s.unsubscribe(ch)

	done := make(chan struct{})
	go func() {
		s.Record(Entry{Kind: "Create"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Record blocked on a full subscriber channel")
	}
}
