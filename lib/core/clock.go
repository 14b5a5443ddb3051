// Copyright (C) 2026 The reflectd Authors.
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package core

import "time"

// Ticks is the monotonic tick counter the policy layer uses for alarm
// scheduling. It deliberately wraps at 32 bits, the same as the kernel
// clock_t this core's ancestor read via times(2): the policy layer must
// never be handed wall-clock time for alarms, and comparisons must stay
// correct across a rollover.
type Ticks int32

// TicksPerSecond is the tick rate captured at startup. The spec calls for
// reading the kernel's clock ticks-per-second once at startup; on this
// platform that rate is fixed, so it is a constant rather than a runtime
// read.
const TicksPerSecond = 100

var processStart = time.Now()

// Now returns the current tick count, monotonic relative to process
// start.
func Now() Ticks {
	ms := time.Since(processStart).Milliseconds()
	return Ticks(ms / (1000 / TicksPerSecond))
}

// AddUp adds two tick values with 32-bit wraparound, the same width as
// Ticks itself.
func AddUp(a, b Ticks) Ticks {
	return Ticks(int32(a) + int32(b))
}

// After reports whether a is strictly after b, using wrap-safe
// subtraction: (int32)(b-a) < 0.
func After(a, b Ticks) bool {
	return int32(b-a) < 0
}
