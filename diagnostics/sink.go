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

// Package diagnostics routes interp.Interpolator's four warning categories
// to structured logs (and, via Multi, to any other interested sink such as
// a metrics collector or a live dashboard feed).
package diagnostics

import (
	"go.uber.org/zap"

	"github.com/streamforge/timepace/interp"
)

// ZapSink logs the four diagnostic categories through a *zap.Logger.
type ZapSink struct {
	log *zap.Logger
}

// NewZapSink builds a ZapSink. log must not be nil.
func NewZapSink(log *zap.Logger) *ZapSink {
	return &ZapSink{log: log.Named("interp")}
}

func (s *ZapSink) StateChange(from, to interp.State) {
	if from == to {
		s.log.Debug("state trace: no-op or rejected transition", zap.Stringer("state", from))
		return
	}
	s.log.Debug("state change", zap.Stringer("from", from), zap.Stringer("to", to))
}

func (s *ZapSink) RewindWarning(computed, last int64) {
	s.log.Warn("stream time rewound",
		zap.Int64("computed", computed),
		zap.Int64("last", last),
		zap.Int64("delta", last-computed),
	)
}

func (s *ZapSink) Underrun(readPointer int64) {
	s.log.Warn("buffer underrun, stopping", zap.Int64("readPointer", readPointer))
}

func (s *ZapSink) Overrun(newPos0 int64) {
	s.log.Warn("buffer overrun, snapping epoch forward", zap.Int64("newPos0", newPos0))
}

// Multi fans every call out to a set of sinks, in order.
type Multi []interp.Diagnostics

func (m Multi) StateChange(from, to interp.State) {
	for _, s := range m {
		s.StateChange(from, to)
	}
}

func (m Multi) RewindWarning(computed, last int64) {
	for _, s := range m {
		s.RewindWarning(computed, last)
	}
}

func (m Multi) Underrun(readPointer int64) {
	for _, s := range m {
		s.Underrun(readPointer)
	}
}

func (m Multi) Overrun(newPos0 int64) {
	for _, s := range m {
		s.Overrun(newPos0)
	}
}
