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

// Package metrics exposes an interp.Interpolator's live state as
// Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/streamforge/timepace/interp"
)

// Collector mirrors an Interpolator's state as Prometheus gauges and
// counters. It holds no independent state of its own beyond the collector
// handles: every gauge value is read from the Interpolator at Sample time,
// and every counter increments only in response to a diagnostic event.
type Collector struct {
	streamFactor  prometheus.Gauge
	streamUsecs   prometheus.Gauge
	queuedUsecs   prometheus.Gauge
	readPointer   prometheus.Gauge
	overrunsTotal prometheus.Counter
	underrunsTotal prometheus.Counter
	stateGauge    *prometheus.GaugeVec
}

// NewCollector builds a Collector and registers it with reg. nodeID is
// attached as a constant label, matching the teacher's per-node metric
// labeling convention.
func NewCollector(reg prometheus.Registerer, nodeID string) *Collector {
	labels := prometheus.Labels{"node_id": nodeID}

	c := &Collector{
		streamFactor: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "timepace",
			Name:        "stream_factor",
			Help:        "Last-observed time-scale factor (Tf) of the interpolator.",
			ConstLabels: labels,
		}),
		streamUsecs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "timepace",
			Name:        "stream_usecs",
			Help:        "Last value returned by GetStreamUsecs, in microseconds.",
			ConstLabels: labels,
		}),
		queuedUsecs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "timepace",
			Name:        "queued_usecs",
			Help:        "Media time submitted but not yet folded into the read pointer.",
			ConstLabels: labels,
		}),
		readPointer: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "timepace",
			Name:        "read_pointer_usecs",
			Help:        "Media time of the most recently written byte.",
			ConstLabels: labels,
		}),
		overrunsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "timepace",
			Name:        "overruns_total",
			Help:        "Number of buffer overrun corrections applied.",
			ConstLabels: labels,
		}),
		underrunsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "timepace",
			Name:        "underruns_total",
			Help:        "Number of buffer underrun stops.",
			ConstLabels: labels,
		}),
		stateGauge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   "timepace",
			Name:        "state",
			Help:        "1 for the interpolator's current state, 0 otherwise.",
			ConstLabels: labels,
		}, []string{"state"}),
	}

	reg.MustRegister(c.streamFactor, c.streamUsecs, c.queuedUsecs, c.readPointer,
		c.overrunsTotal, c.underrunsTotal, c.stateGauge)

	return c
}

// Sample reads the gauges from in. The host is responsible for calling
// this on its own schedule (e.g. from a metrics scrape handler or a
// ticker); the core has no scheduler of its own.
func (c *Collector) Sample(in *interp.Interpolator) {
	c.streamUsecs.Set(float64(in.GetStreamUsecs()))
	c.queuedUsecs.Set(float64(in.UsecsQueued()))
	c.readPointer.Set(float64(in.ReadPointer()))
	c.streamFactor.Set(in.Tf())

	current := in.State()
	for _, s := range []interp.State{interp.StateStopped, interp.StateRolling, interp.StatePaused} {
		v := 0.0
		if s == current {
			v = 1.0
		}
		c.stateGauge.WithLabelValues(s.String()).Set(v)
	}
}

// SetStreamFactor overrides the stream_factor gauge directly. Sample
// already reads Tf from the Interpolator on every call; this is only useful
// for a caller that wants to report Tf at its own post_buffer call site
// (e.g. right after posting a frame) instead of waiting for the next
// periodic Sample.
func (c *Collector) SetStreamFactor(tf float64) {
	c.streamFactor.Set(tf)
}

// AsDiagnostics adapts the Collector into an interp.Diagnostics that
// increments the overrun/underrun counters. Combine with diagnostics.Multi
// to also log the events.
func (c *Collector) AsDiagnostics() interp.Diagnostics {
	return collectorDiag{c}
}

type collectorDiag struct{ c *Collector }

func (d collectorDiag) StateChange(interp.State, interp.State) {}

func (d collectorDiag) RewindWarning(int64, int64) {}

func (d collectorDiag) Underrun(int64) {
	d.c.underrunsTotal.Inc()
}

func (d collectorDiag) Overrun(int64) {
	d.c.overrunsTotal.Inc()
}
