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

// Package source contains host-side collaborators that drive
// interp.Interpolator.PostBuffer from a real or simulated audio callback.
// None of this is part of the core: the core never imports this package.
package source

import (
	"time"

	"github.com/frostbyte73/core"

	"github.com/streamforge/timepace/interp"
)

// TickerSource drives PostBuffer from a time.Ticker, posting a fixed
// frameUsecs on every tick. It is used for demos and for exercising the
// interpolator's steady-state behavior without a live peer connection.
type TickerSource struct {
	in         *interp.Interpolator
	period     time.Duration
	frameUsecs int64
	done       core.Fuse
}

// NewTickerSource builds a source that posts frameUsecs to in every
// period. period would normally equal the wall-clock duration that
// frameUsecs of audio represents, e.g. 20ms of audio posted every 20ms.
func NewTickerSource(in *interp.Interpolator, period time.Duration, frameUsecs int64) *TickerSource {
	return &TickerSource{
		in:         in,
		period:     period,
		frameUsecs: frameUsecs,
	}
}

// Run posts frameUsecs to the interpolator on every tick until Close is
// called. It blocks the calling goroutine, matching the "exactly one
// realtime caller drives PostBuffer" constraint on the interpolator.
func (s *TickerSource) Run() {
	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	for {
		select {
		case <-s.done.Watch():
			return
		case <-ticker.C:
			s.in.PostBuffer(s.frameUsecs)
		}
	}
}

// Close stops the source. Safe to call multiple times.
func (s *TickerSource) Close() {
	s.done.Break()
}
