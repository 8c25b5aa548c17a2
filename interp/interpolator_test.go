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

package interp_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamforge/timepace/clockutil"
	"github.com/streamforge/timepace/interp"
)

// recordingDiag records every diagnostic call for assertions.
type recordingDiag struct {
	stateChanges   [][2]interp.State
	rewindWarnings [][2]int64
	underruns      []int64
	overruns       []int64
}

func (d *recordingDiag) StateChange(from, to interp.State) {
	d.stateChanges = append(d.stateChanges, [2]interp.State{from, to})
}

func (d *recordingDiag) RewindWarning(computed, last int64) {
	d.rewindWarnings = append(d.rewindWarnings, [2]int64{computed, last})
}

func (d *recordingDiag) Underrun(readPointer int64) {
	d.underruns = append(d.underruns, readPointer)
}

func (d *recordingDiag) Overrun(newPos0 int64) {
	d.overruns = append(d.overruns, newPos0)
}

func newTestInterpolator() (*interp.Interpolator, *clockutil.ManualClock, *recordingDiag) {
	clock := clockutil.NewManualClock()
	diag := &recordingDiag{}
	return interp.New(clock, diag), clock, diag
}

// --- Scenario 1: cold start ---

func TestColdStart(t *testing.T) {
	in, clock, _ := newTestInterpolator()

	require.Equal(t, int64(0), in.GetStreamUsecs())

	in.PostBuffer(20_000)
	require.Equal(t, interp.StateRolling, in.State())

	t0 := in.GetStreamUsecs()
	assert.GreaterOrEqual(t, t0, int64(-140_000))
	assert.LessOrEqual(t, t0, int64(20_000))

	_ = clock
}

// --- Scenario 2: steady-state convergence ---

func TestSteadyStateConvergence(t *testing.T) {
	in, clock, _ := newTestInterpolator()
	in.SetLatency(80_000)

	// The DLL's error term decays geometrically (ratio 1-frame/latency =
	// 0.75 per cycle here), so early cycles run well off unity Tf while it
	// settles. Only the tail is expected to track wall-clock cadence
	// tightly; that matches the spec's "after 40 iterations" framing.
	var prev int64
	for i := 0; i < 40; i++ {
		clock.Advance(20_000)
		in.PostBuffer(20_000)
		if i >= 35 {
			cur := in.GetStreamUsecs()
			if prev != 0 {
				delta := cur - prev
				assert.InDelta(t, 20_000, delta, 500, "iteration %d", i)
			}
			prev = cur
		}
	}
}

// --- Scenario 3: underrun ---

func TestUnderrun(t *testing.T) {
	in, clock, diag := newTestInterpolator()
	in.SetLatency(80_000)

	for i := 0; i < 10; i++ {
		clock.Advance(20_000)
		in.PostBuffer(20_000)
	}

	writePointer := in.ReadPointer()
	clock.Advance(2 * 80_000)

	got := in.GetStreamUsecs()
	assert.Equal(t, writePointer, got)
	assert.Equal(t, interp.StateStopped, in.State())
	require.Len(t, diag.underruns, 1)
}

// --- Scenario 4: overrun ---

func TestOverrun(t *testing.T) {
	in, clock, diag := newTestInterpolator()
	in.SetLatency(80_000)

	for i := 0; i < 10; i++ {
		clock.Advance(20_000)
		in.PostBuffer(20_000)
	}

	// A single oversized post_buffer at normal cadence is aggregated (its
	// duration exceeds 4x the elapsed real time), so it just inflates the
	// queued backlog without disturbing pos0/read. The *next* normal-sized
	// callback then folds that backlog into read all at once while pos0
	// only advances by one ordinary step, which is what actually drives Tf
	// past its ceiling.
	clock.Advance(20_000)
	in.PostBuffer(200_000)
	require.Equal(t, interp.StateRolling, in.State())
	require.Empty(t, diag.overruns, "the oversized callback itself should aggregate, not overrun")

	clock.Advance(20_000)
	in.PostBuffer(20_000)

	require.Len(t, diag.overruns, 1)
	assert.Equal(t, interp.StateRolling, in.State())
}

// --- Scenario 5: pause/resume preserves position ---

func TestPauseResumePreservesPosition(t *testing.T) {
	in, clock, _ := newTestInterpolator()
	in.SetLatency(80_000)

	for i := 0; i < 10; i++ {
		clock.Advance(20_000)
		in.PostBuffer(20_000)
	}

	before := in.GetStreamUsecs()
	in.Pause(false)
	assert.Equal(t, interp.StatePaused, in.State())

	clock.Advance(1_000_000)
	during := in.GetStreamUsecs()
	assert.Equal(t, before, during)

	in.Resume()
	// State does not flip until the next PostBuffer; querying now still
	// returns pos0 because the interpolator is still PAUSED.
	assert.Equal(t, interp.StatePaused, in.State())
	assert.Equal(t, before, in.GetStreamUsecs())

	clock.Advance(20_000)
	in.PostBuffer(20_000)
	assert.Equal(t, interp.StateRolling, in.State())
}

// --- Scenario 6: seek during ROLLING ---

func TestSeekDuringRolling(t *testing.T) {
	in, clock, _ := newTestInterpolator()
	in.SetLatency(80_000)

	for i := 0; i < 10; i++ {
		clock.Advance(20_000)
		in.PostBuffer(20_000)
	}

	in.Seek(5_000_000)
	assert.Equal(t, interp.StateRolling, in.State())

	t0 := in.GetStreamUsecs()
	assert.GreaterOrEqual(t, t0, int64(5_000_000-80_000))
	assert.LessOrEqual(t, t0, int64(5_000_000))

	for i := 0; i < 10; i++ {
		clock.Advance(20_000)
		in.PostBuffer(20_000)
	}
	// Steady posting tracks read - latency, not read itself: the position
	// stays roughly one latency window behind the write pointer even once
	// Tf has settled near unity.
	want := float64(5_000_000 - 80_000 + 200_000)
	assert.InDelta(t, want, float64(in.GetStreamUsecs()), 5_000)
}

// --- P1: monotonicity in the stable regime ---

func TestMonotonicityUnderStablePosting(t *testing.T) {
	in, clock, _ := newTestInterpolator()
	in.SetLatency(160_000)

	var last int64
	first := true
	for i := 0; i < 200; i++ {
		clock.Advance(10_000)
		in.PostBuffer(10_000)
		cur := in.GetStreamUsecs()
		if !first {
			assert.GreaterOrEqual(t, cur, last)
		}
		last = cur
		first = false
	}
}

// --- P2: bounded Tf ---

func TestTfBoundedAfterEveryPostBuffer(t *testing.T) {
	in, clock, _ := newTestInterpolator()
	in.SetLatency(80_000)

	// Moderate jitter around the nominal 20ms cadence, none of it extreme
	// enough to itself trigger an overrun or underrun: Tf is clamped to
	// [0.5, 2.0] on every ordinary cycle, so the position can advance by at
	// most 2x and at least 0.5x the elapsed wall-clock time between two
	// consecutive readings taken immediately after each post_buffer call.
	frames := []int64{20_000, 20_000, 25_000, 15_000, 20_000, 22_000, 18_000, 20_000}
	var prev int64
	haveFirst := false
	for _, f := range frames {
		clock.Advance(20_000)
		in.PostBuffer(f)
		require.Equal(t, interp.StateRolling, in.State())

		cur := in.GetStreamUsecs()
		if haveFirst {
			growth := cur - prev
			assert.GreaterOrEqual(t, growth, int64(20_000*0.5)-1)
			assert.LessOrEqual(t, growth, int64(20_000*2.0)+1)
		}
		prev = cur
		haveFirst = true
	}
}

// --- P3: never exceed the write pointer ---

func TestNeverExceedsWritePointer(t *testing.T) {
	in, clock, _ := newTestInterpolator()
	in.SetLatency(80_000)

	for i := 0; i < 5; i++ {
		clock.Advance(20_000)
		in.PostBuffer(20_000)
		assert.LessOrEqual(t, in.GetStreamUsecs(), in.ReadPointer())
	}

	// advance far without posting: get_stream_usecs must clamp, not
	// overshoot, even as it triggers underrun.
	clock.Advance(10_000_000)
	assert.LessOrEqual(t, in.GetStreamUsecs(), in.ReadPointer())
}

// --- P4: queue semantics ---

func TestQueueSemantics(t *testing.T) {
	in, clock, _ := newTestInterpolator()
	in.SetLatency(80_000)

	in.PostBuffer(20_000) // startup
	readAfterStartup := in.ReadPointer()

	clock.Advance(20_000)
	in.PostBuffer(30_000) // non-aggregation, non-startup
	assert.Equal(t, readAfterStartup, in.ReadPointer()-30_000)
	assert.Equal(t, int64(30_000), in.UsecsQueued())
}

// --- P5: idempotent stop / reset ---

func TestIdempotentStop(t *testing.T) {
	in, clock, _ := newTestInterpolator()
	in.SetLatency(80_000)

	for i := 0; i < 5; i++ {
		clock.Advance(20_000)
		in.PostBuffer(20_000)
	}

	in.Stop()
	afterFirst := in.GetStreamUsecs()
	stateAfterFirst := in.State()

	in.Stop()
	afterSecond := in.GetStreamUsecs()

	assert.Equal(t, stateAfterFirst, in.State())
	assert.Equal(t, afterFirst, afterSecond)
}

func TestIdempotentReset(t *testing.T) {
	in, clock, _ := newTestInterpolator()
	in.SetLatency(80_000)

	for i := 0; i < 5; i++ {
		clock.Advance(20_000)
		in.PostBuffer(20_000)
	}

	in.Reset()
	assert.Equal(t, int64(0), in.GetStreamUsecs())
	assert.Equal(t, interp.StateStopped, in.State())

	in.Reset()
	assert.Equal(t, int64(0), in.GetStreamUsecs())
	assert.Equal(t, interp.StateStopped, in.State())
}

// --- P6: seek effect in STOPPED ---

func TestSeekInStopped(t *testing.T) {
	in, _, _ := newTestInterpolator()

	in.Seek(42_000)
	assert.Equal(t, int64(42_000), in.GetStreamUsecs())
	assert.Equal(t, int64(42_000), in.GetStreamUsecs())
	assert.Equal(t, interp.StateStopped, in.State())
}

// --- Open question: resume() before the next PostBuffer stays PAUSED ---

func TestResumeDoesNotItselfChangeState(t *testing.T) {
	in, clock, _ := newTestInterpolator()
	in.SetLatency(80_000)

	clock.Advance(20_000)
	in.PostBuffer(20_000)
	in.Pause(false)
	require.Equal(t, interp.StatePaused, in.State())

	in.Resume()
	assert.Equal(t, interp.StatePaused, in.State(), "resume alone must not flip PAUSED->ROLLING")
}

// --- Illegal transition: resume() outside PAUSED is a no-op with a trace ---

func TestResumeOutsidePausedIsNoop(t *testing.T) {
	in, clock, diag := newTestInterpolator()
	in.SetLatency(80_000)

	clock.Advance(20_000)
	in.PostBuffer(20_000)
	require.Equal(t, interp.StateRolling, in.State())

	in.Resume()
	assert.Equal(t, interp.StateRolling, in.State())
	require.NotEmpty(t, diag.stateChanges)
	last := diag.stateChanges[len(diag.stateChanges)-1]
	assert.Equal(t, last[0], last[1])
}

// --- Default latency and invariants ---

func TestDefaultLatency(t *testing.T) {
	in, _, _ := newTestInterpolator()
	in.SetLatency(0)
	// Observed indirectly: startup offset uses latency/2 clamped to the
	// 40ms floor. DefaultAudioLatency/2 = 80,000 > 40,000, so the startup
	// window should be [read-80000, read].
	in.PostBuffer(20_000)
	t0 := in.GetStreamUsecs()
	assert.GreaterOrEqual(t, t0, int64(20_000-interp.DefaultAudioLatency/2))
}

func TestForciblyUpdateReadPointer(t *testing.T) {
	in, clock, _ := newTestInterpolator()
	clock.Advance(20_000)
	in.PostBuffer(20_000)

	in.ForciblyUpdateReadPointer(100_000)
	assert.Equal(t, int64(100_000), in.ReadPointer())
}

func TestNilDiagnosticsIsSafe(t *testing.T) {
	clock := clockutil.NewManualClock()
	in := interp.New(clock, nil)
	assert.NotPanics(t, func() {
		in.PostBuffer(20_000)
		clock.Advance(10_000_000)
		in.GetStreamUsecs()
	})
}

func TestTfObservableViaAccessor(t *testing.T) {
	in, clock, _ := newTestInterpolator()
	in.SetLatency(80_000)

	// STOPPED: Tf hasn't been computed yet.
	assert.Equal(t, float64(0), in.Tf())

	clock.Advance(20_000)
	in.PostBuffer(20_000)
	assert.Equal(t, float64(1.0), in.Tf(), "startup branch always sets unity Tf")

	clock.Advance(20_000)
	in.PostBuffer(20_000)
	assert.InDelta(t, 1.0, in.Tf(), 0.5, "second cycle's Tf stays within the DLL's clamp")
}
