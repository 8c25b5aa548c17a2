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

// State is one of the three states the Interpolator's clock can be in.
type State int

const (
	// StateStopped is the initial state: clock frozen, FIFO conceptually flushed.
	StateStopped State = iota
	// StateRolling: clock advancing under DLL control.
	StateRolling
	// StatePaused: clock frozen, FIFO state preserved.
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "STOPPED"
	case StateRolling:
		return "ROLLING"
	case StatePaused:
		return "PAUSED"
	default:
		return "UNKNOWN"
	}
}
