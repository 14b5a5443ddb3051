// Copyright (C) 2026 The reflectd Authors.
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package debugsrv is the strictly read-only observability surface of
// §4.H: a liveness probe, a JSON watch-table dump, and a WebSocket tail
// of canonical events, all served over an isolated chi router so a slow
// or disconnected client can never block the master loop's dispatch.
package debugsrv

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/reflectd/reflectd/lib/logger"
)

const ringCapacity = 512

// WatchSnapshotFunc returns a point-in-time copy of the watch table and
// the normalizer's pending-move occupancy. It is supplied by the
// embedding shim (policy.Services.Snapshot) and must not block.
type WatchSnapshotFunc func() (watches map[int32]string, pendingOccupied bool)

// Server serves the debug HTTP surface. It holds no reference to the
// normalizer, master loop, or reaper: everything it reports arrives via
// Record or WatchSnapshotFunc.
type Server struct {
	log      *logger.Logger
	ring     *ring
	watchFn  WatchSnapshotFunc
	router   chi.Router
	upgrader websocket.Upgrader

	subsMu sync.Mutex
	subs   map[chan Entry]struct{}
}

// New builds a Server. watchFn is polled on every /debug/watches request
// and is expected to return instantly (it reads a pre-computed
// snapshot, not live state).
func New(log *logger.Logger, watchFn WatchSnapshotFunc) *Server {
	s := &Server{
		log:     log,
		ring:    newRing(ringCapacity),
		watchFn: watchFn,
		subs:    make(map[chan Entry]struct{}),
		upgrader: websocket.Upgrader{
			// The debug surface is meant for a trusted operator, typically
			// over a loopback bind; it does not need browser CSRF-style
			// origin checking.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Get("/healthz", s.handleHealthz)
	r.Get("/debug/watches", s.handleWatches)
	r.Get("/debug/events", s.handleEvents)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// ServeHTTP lets Server itself be used as an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleWatches(w http.ResponseWriter, r *http.Request) {
	watches, pendingOccupied := s.watchFn()
	payload := struct {
		Watches         map[int32]string `json:"watches"`
		PendingOccupied bool             `json:"pending_move_occupied"`
	}{watches, pendingOccupied}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Errorf("debugsrv: encode watches: %v", err)
	}
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Errorf("debugsrv: websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	connID := uuid.New().String()
	s.log.Debugf("debugsrv: events tail %s connected", connID)
	defer s.log.Debugf("debugsrv: events tail %s disconnected", connID)

	for _, e := range s.ring.snapshot() {
		if err := conn.WriteJSON(e); err != nil {
			return
		}
	}

	ch := make(chan Entry, 32)
	s.subscribe(ch)
	defer s.unsubscribe(ch)

	for e := range ch {
		if err := conn.WriteJSON(e); err != nil {
			return
		}
	}
}

func (s *Server) subscribe(ch chan Entry) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	s.subs[ch] = struct{}{}
}

func (s *Server) unsubscribe(ch chan Entry) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	delete(s.subs, ch)
	close(ch)
}

// Record appends e to the bounded ring, updates metrics, and fans it out
// to any connected WebSocket clients. It never blocks: a subscriber
// whose channel is full simply misses this entry rather than stalling
// the caller, which runs on the master loop's own goroutine.
func (s *Server) Record(e Entry) {
	stored := s.ring.append(e)
	metricEventsTotal.WithLabelValues(e.Kind).Inc()

	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- stored:
		default:
		}
	}
}

// RecordOverflow updates the overflow counter. It carries no event
// payload since an overflow has no associated watch/name.
func (s *Server) RecordOverflow() {
	metricOverflowsTotal.Inc()
}

// RefreshWatchMetrics is called after each dispatch to keep the
// watch-count and pending-move gauges current without requiring the
// embedding shim to import the prometheus client directly.
func (s *Server) RefreshWatchMetrics() {
	watches, pendingOccupied := s.watchFn()
	metricWatchCount.Set(float64(len(watches)))
	if pendingOccupied {
		metricPendingMoveOccupied.Set(1)
	} else {
		metricPendingMoveOccupied.Set(0)
	}
}
