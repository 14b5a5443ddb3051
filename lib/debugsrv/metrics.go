// Copyright (C) 2026 The reflectd Authors.
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package debugsrv

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var metricEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "reflectd",
	Subsystem: "core",
	Name:      "events_total",
}, []string{"kind"})

var metricOverflowsTotal = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "reflectd",
	Subsystem: "core",
	Name:      "overflows_total",
})

var metricWatchCount = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "reflectd",
	Subsystem: "core",
	Name:      "watches",
})

var metricPendingMoveOccupied = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "reflectd",
	Subsystem: "core",
	Name:      "pending_move_occupied",
})
