// Copyright 2026 The Timepace Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package clockutil provides monotonic clock sources for interp.Interpolator
// and a small lock-free helper for correlating a stream's epoch with
// wall-clock time.
package clockutil

import (
	"sync"
	"time"
)

// SystemClock implements interp.Clock over the Go runtime's monotonic
// clock reading. It is stateless and safe for concurrent use.
type SystemClock struct{}

// systemClockBase anchors SystemClock readings to the Unix epoch once; later
// readings advance from it by monotonic elapsed time.
var systemClockBase = time.Now()

// NowUsecs returns a monotonic reading in microseconds, anchored to Unix
// time at package initialisation so it does not jump when the wall clock is
// stepped afterwards.
func (SystemClock) NowUsecs() int64 {
	return systemClockBase.UnixMicro() + time.Since(systemClockBase).Microseconds()
}

// ManualClock is a test double implementing interp.Clock with an explicit,
// settable counter. Not used in production; it exists to drive the
// concrete scenarios of the interpolator's test suite deterministically.
type ManualClock struct {
	mu  sync.Mutex
	now int64
}

// NewManualClock returns a ManualClock starting at 0.
func NewManualClock() *ManualClock {
	return &ManualClock{}
}

// NowUsecs implements interp.Clock.
func (c *ManualClock) NowUsecs() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by delta microseconds and returns the new
// value. delta may be negative only in tests deliberately exercising a
// clock-sampling race; interp.GetStreamUsecs is defensive against it.
func (c *ManualClock) Advance(delta int64) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += delta
	return c.now
}

// Set pins the clock to an absolute value.
func (c *ManualClock) Set(v int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = v
}
