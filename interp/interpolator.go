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

// Package interp implements a delay-locked-loop stream clock: given
// discrete, bursty buffer-delivery callbacks from a FIFO-backed audio sink,
// it synthesizes a monotonic, microsecond-resolution media clock suitable
// for driving audio/video sync. See Adriaensen, "Using a DLL to Filter
// Time" (2005) for the underlying control law.
package interp

import (
	"math"

	"github.com/linkdata/deadlock"
)

// DefaultAudioLatency is used whenever SetLatency is called with a
// non-positive value, and as the initial value of a freshly constructed
// Interpolator. It matches a typical HAL buffering of 4x20ms, doubled for
// headroom.
const DefaultAudioLatency int64 = 160_000

// initialOffsetFloor bounds how aggressive the startup offset can be for
// very-low-latency configurations. Empirical; do not remove even when
// latency/2 would be smaller.
const initialOffsetFloor int64 = 40_000

const (
	tfMin = 0.5
	tfMax = 2.0
)

// Interpolator is a single stateful DLL-driven stream clock. It is safe
// for concurrent use: post_buffer and the control primitives are expected
// to be called from a single realtime thread, while GetStreamUsecs and the
// trivial accessors may be called from any number of goroutines.
type Interpolator struct {
	mu deadlock.Mutex

	clock Clock
	diag  Diagnostics

	state State

	tf   float64 // time-scale factor, ~1.0 in steady state
	t0   int64   // system-clock epoch of the current control cycle
	pos0 int64   // media position corresponding to t0

	read    int64 // cumulative media time folded in through the previous post_buffer
	queued  int64 // media time submitted in the most recent post_buffer, not yet folded in
	latency int64 // configured FIFO depth, usecs

	last    int64 // last value returned by GetStreamUsecs
	nowLast int64 // system time at which last was computed (diagnostic only)
}

// New constructs an Interpolator in StateStopped with the defaults from the
// data model: pos0 = read = queued = 0, Tf = 0, last = 0, latency =
// DefaultAudioLatency. A nil diag is replaced with a no-op sink.
func New(clock Clock, diag Diagnostics) *Interpolator {
	if diag == nil {
		diag = noopDiagnostics{}
	}
	return &Interpolator{
		clock:   clock,
		diag:    diag,
		state:   StateStopped,
		latency: DefaultAudioLatency,
	}
}

// State returns the current state.
func (in *Interpolator) State() State {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.state
}

// Tf returns the current time-scale factor: 1.0 after a startup or Resume,
// clamped to [tfMin, tfMax] after each DLL control cycle, and 0 in a freshly
// constructed Interpolator or after Stop, Reset or an underrun.
func (in *Interpolator) Tf() float64 {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.tf
}

// SetLatency configures the FIFO depth. Values <= 0 reset to
// DefaultAudioLatency. Safe to call in any state; takes effect on the next
// control cycle.
func (in *Interpolator) SetLatency(v int64) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if v > 0 {
		in.latency = v
	} else {
		in.latency = DefaultAudioLatency
	}
}

// Seek forcibly repositions the stream to mediaTime. State is unchanged.
func (in *Interpolator) Seek(mediaTime int64) {
	in.mu.Lock()
	defer in.mu.Unlock()
	now := in.clock.NowUsecs()
	in.seekLocked(now, mediaTime)
}

// seekLocked implements section 4.3. Seeking while ROLLING is accepted per
// the documented behavior even though the transition table's naive reading
// suggests STOPPED/PAUSED as the only legal entry states; a state-change
// trace still fires for the unexpected transition.
func (in *Interpolator) seekLocked(now, mediaTime int64) {
	switch in.state {
	case StateStopped, StatePaused:
		in.pos0 = mediaTime
		in.read = mediaTime
		in.queued = 0
		in.t0 = now
		in.tf = 0
		in.last = mediaTime
	case StateRolling:
		in.diag.StateChange(in.state, in.state)
		in.read = mediaTime
		in.pos0 = in.read - in.latency
		in.queued = 0
		in.t0 = now
		in.tf = 1.0
		in.last = in.pos0
	}
}

// Pause freezes the clock. If flushing is true, this is equivalent to a
// stop followed by a seek to the current write pointer; otherwise, in
// ROLLING, it snapshots the last reported position and transitions to
// PAUSED. It is a no-op outside ROLLING when flushing is false.
func (in *Interpolator) Pause(flushing bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	now := in.clock.NowUsecs()
	in.pauseLocked(now, flushing)
}

func (in *Interpolator) pauseLocked(now int64, flushing bool) {
	if flushing {
		writePointer := in.read + in.queued
		in.setState(StateStopped)
		in.seekLocked(now, writePointer)
		return
	}
	if in.state == StateRolling {
		in.setState(StatePaused)
		in.read += in.queued
		in.pos0 = in.last
		in.t0 = now
		in.queued = 0
	}
}

// Stop is equivalent to Pause(true).
func (in *Interpolator) Stop() {
	in.mu.Lock()
	defer in.mu.Unlock()
	now := in.clock.NowUsecs()
	in.pauseLocked(now, true)
}

// Resume is valid only in PAUSED: it re-anchors the epoch and requests unity
// Tf. It does not itself transition state; PAUSED -> ROLLING happens on the
// next PostBuffer call. Calling Resume outside PAUSED is an illegal
// transition: it emits a state-change trace and is a no-op.
func (in *Interpolator) Resume() {
	in.mu.Lock()
	defer in.mu.Unlock()
	now := in.clock.NowUsecs()
	if in.state != StatePaused {
		in.diag.StateChange(in.state, in.state)
		return
	}
	in.t0 = now
	in.tf = 1.0
}

// Reset is equivalent to Stop() followed by Seek(0).
func (in *Interpolator) Reset() {
	in.mu.Lock()
	defer in.mu.Unlock()
	now := in.clock.NowUsecs()
	in.pauseLocked(now, true)
	in.seekLocked(now, 0)
}

// ForciblyUpdateReadPointer overrides the read pointer directly:
// read <- p - queued. Diagnostic/override use only.
func (in *Interpolator) ForciblyUpdateReadPointer(p int64) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.read = p - in.queued
}

// UsecsQueued returns the media time submitted in the most recent
// PostBuffer call but not yet folded into read.
func (in *Interpolator) UsecsQueued() int64 {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.queued
}

// ReadPointer returns read + queued: the media time of the most recently
// written byte.
func (in *Interpolator) ReadPointer() int64 {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.read + in.queued
}

// GetStreamUsecs returns the current media time. See section 4.4: the
// result is clamped to never exceed the write pointer, and a computed
// value below the last-reported one triggers a rewind warning but is still
// returned.
func (in *Interpolator) GetStreamUsecs() int64 {
	in.mu.Lock()
	defer in.mu.Unlock()

	now := in.clock.NowUsecs()

	if in.state == StatePaused {
		return in.pos0
	}

	dt := in.tf * float64(now-in.t0)
	if dt < 0 {
		dt = 0
	}
	t := in.pos0 + floor64(dt)

	if t < in.last {
		in.diag.RewindWarning(t, in.last)
	}

	if t >= in.read+in.queued && in.state == StateRolling {
		t = in.read + in.queued
		in.errUnderrunLocked()
	}

	in.last = t
	in.nowLast = now
	return t
}

// PostBuffer is called at the start of an audio callback with the media
// time just submitted to the FIFO. It drives the DLL: see section 4.5.
func (in *Interpolator) PostBuffer(frameUsecs int64) {
	in.mu.Lock()
	defer in.mu.Unlock()

	now := in.clock.NowUsecs()

	switch in.state {
	case StateStopped:
		initialOffset := in.latency / 2
		if initialOffset < initialOffsetFloor {
			initialOffset = initialOffsetFloor
		}
		in.t0 = now
		in.setState(StateRolling)
		in.read += frameUsecs
		in.pos0 = in.read - initialOffset
		in.queued = 0
		in.tf = 1.0

	case StatePaused:
		in.setState(StateRolling)
		in.postBufferRollingLocked(now, frameUsecs, true)

	case StateRolling:
		in.postBufferRollingLocked(now, frameUsecs, false)
	}
}

// postBufferRollingLocked implements the DLL's main branch (and, via
// setTfToUnity, the fall-through from the resume branch).
func (in *Interpolator) postBufferRollingLocked(now, frameUsecs int64, setTfToUnity bool) {
	t1 := now
	dt := t1 - in.t0

	// Aggregation test: the callback fired unusually quickly relative to
	// the data volume being posted. Fold into the current cycle rather
	// than let the DLL react to it; this is what keeps back-to-back
	// callbacks from spiking Tf toward its ceiling.
	if dt < frameUsecs/4 {
		in.queued += frameUsecs
		return
	}

	in.read += in.queued
	pos1 := in.pos0 + floor64(in.tf*float64(dt))
	pos1Desired := in.read - in.latency
	e := pos1 - pos1Desired

	var tf float64
	if setTfToUnity {
		tf = 1.0
	} else {
		tf = 1.0 - float64(e)/float64(in.latency)
	}

	in.pos0 = pos1
	in.t0 = t1
	in.queued = frameUsecs
	in.tf = tf

	if in.tf >= tfMax {
		in.tf = tfMax
		in.errOverrunLocked(now)
	} else if in.tf < tfMin {
		in.tf = tfMin
	}

	if in.pos0 >= in.read {
		in.errUnderrunLocked()
	}
}

// errOverrunLocked handles Tf saturating high: the FIFO is filling faster
// than the DLL expects. The epoch snaps forward; the monotonicity
// guarantee is relaxed only because the caller's own write pattern
// violated the stability precondition in section 4.7.
func (in *Interpolator) errOverrunLocked(now int64) {
	in.pos0 = in.read - in.latency
	in.t0 = now
	in.diag.Overrun(in.pos0)
}

// errUnderrunLocked handles the FIFO starving: the reported stream time
// has caught the write pointer, or the DLL update itself walked pos0 past
// read. The clock freezes at read and the state machine returns to
// STOPPED; the next PostBuffer restarts via the startup branch.
func (in *Interpolator) errUnderrunLocked() {
	in.tf = 0
	in.read += in.queued
	in.pos0 = in.read
	in.queued = 0
	in.setState(StateStopped)
	in.diag.Underrun(in.read)
}

// setState transitions state, tracing the change unless it's a no-op.
func (in *Interpolator) setState(newState State) {
	if newState != in.state {
		old := in.state
		in.state = newState
		in.diag.StateChange(old, newState)
	}
}

func floor64(x float64) int64 {
	return int64(math.Floor(x))
}
