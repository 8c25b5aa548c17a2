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

package clockutil

import (
	"go.uber.org/atomic"
)

// EpochTracker correlates a stream's wall-clock start time across multiple
// independent estimators, first-writer-wins, and records how far any later
// estimate disagreed with the winner. It is independent of an
// interp.Interpolator's own DLL-adjusted t0/pos0: this is bookkeeping about
// when the stream started, not about how it's currently being paced.
// source.RTPSource shares one EpochTracker between its own packet-arrival
// estimate and the NTP-derived estimate folded in from RTCP sender
// reports, the way the teacher's clockSync is shared across a
// participant's audio and video appwriters.
type EpochTracker struct {
	startTime atomic.Int64
	endTime   atomic.Int64
	delay     atomic.Int64
}

// GetOrSetStartTime sets the start time on first call and returns it;
// subsequent calls return the originally recorded value and, the first
// time a later caller arrives, record the gap between it and the winner as
// delay.
func (e *EpochTracker) GetOrSetStartTime(t int64) int64 {
	if e.startTime.CAS(0, t) {
		return t
	}

	startTime := e.startTime.Load()
	e.delay.CAS(0, t-startTime)
	return startTime
}

// GetStartTime returns the recorded start time, or 0 if none has been set.
func (e *EpochTracker) GetStartTime() int64 {
	return e.startTime.Load()
}

// SetEndTime records the stream's end time.
func (e *EpochTracker) SetEndTime(t int64) {
	e.endTime.Store(t)
}

// GetEndTime returns the recorded end time, or 0 if none has been set.
func (e *EpochTracker) GetEndTime() int64 {
	return e.endTime.Load()
}

// GetDelay returns the gap between the winning start time and the first
// later caller to observe it, or 0 if only one caller has ever arrived.
func (e *EpochTracker) GetDelay() int64 {
	return e.delay.Load()
}
