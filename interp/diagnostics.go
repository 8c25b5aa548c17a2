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

package interp

// Diagnostics receives the four warning categories the Interpolator can
// emit. None of them are propagated as errors: the component always
// self-corrects and continues. Implementations must not block or perform
// slow I/O since they are invoked from inside the Interpolator's critical
// section.
type Diagnostics interface {
	// StateChange fires on every state transition, including the no-op
	// traces for a seek() accepted while ROLLING and an illegal call
	// (e.g. resume() outside PAUSED) where from == to.
	StateChange(from, to State)
	// RewindWarning fires when a computed stream time is less than the
	// previously reported value. The computed value is still returned to
	// the caller.
	RewindWarning(computed, last int64)
	// Underrun fires when the FIFO starves: the reported time has caught
	// the write pointer.
	Underrun(readPointer int64)
	// Overrun fires when Tf saturates at its upper clamp: the FIFO is
	// filling faster than the DLL can track.
	Overrun(newPos0 int64)
}

type noopDiagnostics struct{}

func (noopDiagnostics) StateChange(State, State)   {}
func (noopDiagnostics) RewindWarning(int64, int64) {}
func (noopDiagnostics) Underrun(int64)             {}
func (noopDiagnostics) Overrun(int64)              {}
