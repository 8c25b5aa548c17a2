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

package source

import (
	"sync"

	"github.com/frostbyte73/core"
	"github.com/pion/rtcp"
	"github.com/pion/webrtc/v4"
	"go.uber.org/zap"

	"github.com/streamforge/timepace/clockutil"
	"github.com/streamforge/timepace/errs"
	"github.com/streamforge/timepace/interp"
)

// RTPSource drives PostBuffer from an inbound RTP audio track: every
// packet's payload duration, computed from the track's clock rate and RTP
// timestamp delta, is posted at the moment the packet is received. This
// mirrors the "call at start of audio callback" contract of section 6:
// the receive itself is the callback.
//
// Run's packet loop and OnRTCP are called from different goroutines (a
// caller wires OnRTCP to the peer connection's separate RTCP reader), so
// the timestamp state they share is guarded by mu, the same way the
// teacher's TrackSynchronizer guards firstTS/lastTS against its own
// receive loop and onSenderReport.
type RTPSource struct {
	in    *interp.Interpolator
	track *webrtc.TrackRemote
	epoch *clockutil.EpochTracker
	log   *zap.Logger

	done core.Fuse

	nsPerRTP float64

	mu       sync.Mutex
	firstTS  uint32
	lastTS   uint32
	haveLast bool
}

// NewRTPSource builds a source bound to a single remote track. track must
// not be nil. epoch correlates this track's wall-clock start against any
// other track (e.g. video) sharing the same stream; RTPSource records its
// own arrival-time estimate on the first packet and reconciles it against
// senders' RTCP reports in OnRTCP.
func NewRTPSource(in *interp.Interpolator, track *webrtc.TrackRemote, epoch *clockutil.EpochTracker, log *zap.Logger) (*RTPSource, error) {
	if track == nil {
		return nil, errs.ErrNoTrack
	}
	return &RTPSource{
		in:       in,
		track:    track,
		epoch:    epoch,
		log:      log.Named("rtp_source"),
		nsPerRTP: 1e9 / float64(track.Codec().ClockRate),
	}, nil
}

// Run reads packets from the track until it errors or Close is called.
// It blocks the calling goroutine; run it on its own single goroutine per
// the interpolator's single-realtime-caller contract.
func (s *RTPSource) Run() {
	defer s.recordStreamEnd()

	for {
		if s.done.IsBroken() {
			return
		}

		pkt, _, err := s.track.ReadRTP()
		if err != nil {
			s.log.Debug("rtp read stopped", zap.Error(err))
			return
		}

		frameUsecs, isFirst := s.frameUsecs(pkt.Timestamp)
		if isFirst {
			s.epoch.GetOrSetStartTime(clockutil.SystemClock{}.NowUsecs())
		}
		s.in.PostBuffer(frameUsecs)
	}
}

// recordStreamEnd marks the stream's end in epoch and logs its total
// duration, if a start time was ever recorded.
func (s *RTPSource) recordStreamEnd() {
	s.epoch.SetEndTime(clockutil.SystemClock{}.NowUsecs())
	if start := s.epoch.GetStartTime(); start != 0 {
		s.log.Debug("rtp source stopped", zap.Int64("duration_usecs", s.epoch.GetEndTime()-start))
	}
}

// bootstrapFrameUsecs is posted for the very first packet of a track,
// which has no predecessor to diff its RTP timestamp against.
const bootstrapFrameUsecs = 20_000

// frameUsecs estimates the duration this packet represents from the delta
// against the previous packet's RTP timestamp, and reports whether this
// was the track's first packet. Guarded by mu since OnRTCP reads firstTS
// from another goroutine.
func (s *RTPSource) frameUsecs(ts uint32) (usecs int64, isFirst bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.haveLast {
		s.firstTS = ts
		s.lastTS = ts
		s.haveLast = true
		return bootstrapFrameUsecs, true
	}

	// The int32 conversion keeps uint32 wraparound working while letting a
	// timestamp that moved backwards come out negative.
	diff := int64(int32(ts - s.lastTS))
	s.lastTS = ts
	if diff <= 0 {
		return 0, false
	}
	return int64(float64(diff) * s.nsPerRTP / 1000), false
}

// ntpEpochOffsetSeconds is the gap between the NTP epoch (1900-01-01) and
// the Unix epoch, per RFC 5905.
const ntpEpochOffsetSeconds = 2208988800

// largeEpochDriftUsecs mirrors the teacher's largePTSDrift threshold: a gap
// this size between our own arrival-time epoch estimate and a sender
// report's NTP-derived one is worth a log line, short of being the
// multi-second discard case the teacher guards against separately.
const largeEpochDriftUsecs = 20_000

// OnRTCP folds RTCP sender reports into epoch's drift bookkeeping, adapted
// from the teacher's Synchronizer.OnRTCP/onSenderReport: a sender report's
// NTP timestamp plus its RTP timestamp let us re-derive when, in wall-clock
// terms, the stream must have started; that estimate is reconciled against
// the arrival-time epoch this source already recorded for its first
// packet. Unlike the teacher, which aligns NTP start times across every
// track in a participant, this tracks a single track's drift against
// whatever epoch was set first, since the interpolator's own DLL, not this
// source, owns steady-state drift correction.
func (s *RTPSource) OnRTCP(packet rtcp.Packet) {
	sr, ok := packet.(*rtcp.SenderReport)
	if !ok {
		return
	}

	s.mu.Lock()
	haveLast, firstTS := s.haveLast, s.firstTS
	s.mu.Unlock()
	if !haveLast {
		return
	}

	diffTS := int64(sr.RTPTime - firstTS)
	ptsUsecs := int64(float64(diffTS) * s.nsPerRTP / 1000)
	estimatedStart := ntpToUnixUsecs(sr.NTPTime) - ptsUsecs

	s.epoch.GetOrSetStartTime(estimatedStart)
	if drift := s.epoch.GetDelay(); drift > largeEpochDriftUsecs || drift < -largeEpochDriftUsecs {
		s.log.Debug("sender report epoch drift", zap.Int64("drift_usecs", drift))
	}
}

// ntpToUnixUsecs converts an RTCP sender report's 32.32 fixed-point NTP
// timestamp into microseconds since the Unix epoch.
func ntpToUnixUsecs(ntp uint64) int64 {
	seconds := int64(ntp>>32) - ntpEpochOffsetSeconds
	frac := int64(ntp & 0xffffffff)
	nsec := int64(float64(frac) * (1e9 / 4294967296.0))
	return seconds*1_000_000 + nsec/1000
}

// Close stops the source. Safe to call multiple times.
func (s *RTPSource) Close() {
	s.done.Break()
}
