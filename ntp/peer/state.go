/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package peer holds PeerState: the per-peer acceptance gate, root
// distance / fitness check, and poll scheduling. It is deliberately free
// of goroutines or I/O; internal/peertask drives one of these per peer.
package peer

import (
	"github.com/facebook/ntpcore/ntp/filter"
	"github.com/facebook/ntpcore/ntp/protocol"
	"github.com/facebook/ntpcore/ntp/reach"
)

// State is PeerState: per-peer statistics, the measurement register, the
// last accepted packet header, and the polling schedule. A State is
// owned by exactly one peer task; nothing here is safe for concurrent
// use by multiple goroutines, matching SPEC_FULL.md §5's "at most one
// task runs per peer" rule.
type State struct {
	Statistics filter.Statistics
	Register   *filter.Register
	LastHeader protocol.Header

	// Time is the local timestamp of the last accepted sample.
	Time protocol.NtpTimestamp

	PeerID protocol.ReferenceId
	OurID  protocol.ReferenceId

	HostPoll protocol.NtpDuration
	Burst    uint8
	OutDate  protocol.NtpTimestamp
	NextDate protocol.NtpTimestamp

	Reach reach.Register
}

// New returns a freshly created PeerState: zeroed statistics, an
// all-dummy register, and unreachable.
func New(peerID, ourID protocol.ReferenceId) *State {
	return &State{
		Register: filter.NewRegister(),
		PeerID:   peerID,
		OurID:    ourID,
	}
}

// Ingest is PeerState.ingest_packet: the acceptance gate described in
// SPEC_FULL.md §4.2. On success it returns a built FilterSample, which
// the caller must immediately pass to ClockFilter.
func (p *State) Ingest(localClockTime protocol.NtpTimestamp, systemPrecision protocol.NtpDuration, header protocol.Header, destination protocol.NtpTimestamp) (filter.Sample, error) {
	if header.Stratum == 0 {
		header.Stratum = protocol.MaxStratum
	}
	p.LastHeader = header

	if !header.Leap.IsSynchronized() || header.Stratum >= protocol.MaxStratum {
		return filter.Sample{}, ErrUnsynchronized
	}

	packetDispersion := header.RootDelay/2 + header.RootDispersion
	if packetDispersion >= protocol.MaxDispersion || header.ReferenceTimestamp.After(header.TransmitTimestamp) {
		return filter.Sample{}, ErrInvalidHeader
	}

	p.OnPollCompleted(localClockTime, p.HostPoll)
	p.Reach.OnReceive()

	return filter.BuildSample(&header, systemPrecision, destination, localClockTime)
}

// ClockFilter runs FilterEvaluator.Evaluate against this peer's register
// and, on DecisionProcess, commits the resulting statistics and time.
func (p *State) ClockFilter(sample filter.Sample, systemLeap protocol.LeapIndicator, systemPrecisionSeconds float64) filter.Decision {
	stats, newTime, decision := filter.Evaluate(p.Register, sample, p.Time, systemLeap, systemPrecisionSeconds)
	if decision == filter.DecisionProcess {
		p.Statistics = stats
		p.Time = newTime
	}
	return decision
}

// RootDistance computes the worst-case error to the primary server, per
// SPEC_FULL.md §4.5's distance-error formula.
func (p *State) RootDistance(localClockTime protocol.NtpTimestamp) protocol.NtpDuration {
	half := protocol.Max(protocol.MinDispersion, p.LastHeader.RootDelay+p.Statistics.Delay) / 2
	return half +
		p.LastHeader.RootDispersion +
		p.Statistics.Dispersion +
		protocol.MultiplyByPhi(localClockTime.Sub(p.Time)) +
		protocol.DurationFromSeconds(p.Statistics.Jitter)
}

// AcceptForSelection is PeerState::accept_for_selection: the
// stratum/distance/loop checks from SPEC_FULL.md §4.5. Reachability is
// deliberately not consulted here (Open Question (b) in DESIGN.md); that
// gate lives in the peer-task lifecycle instead.
func (p *State) AcceptForSelection(localClockTime protocol.NtpTimestamp, systemPoll protocol.NtpDuration) bool {
	if !p.LastHeader.Leap.IsSynchronized() || p.LastHeader.Stratum >= protocol.MaxStratum {
		return false
	}

	distance := p.RootDistance(localClockTime)
	if distance > protocol.MaxDistance+protocol.MultiplyByPhi(systemPoll) {
		return false
	}

	if p.LastHeader.Stratum != 1 && p.LastHeader.ReferenceID == p.OurID {
		return false
	}

	return true
}

// NextPollDeadline is PeerState::next_poll_deadline.
func (p *State) NextPollDeadline() protocol.NtpTimestamp {
	return p.NextDate
}
