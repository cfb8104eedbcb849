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

// Package peertask drives one goroutine per peer, alternating between the
// poll deadline and an inbound packet channel, the way peer.rs's
// PeerTask/Wait trait does. Each Task is the only code that mutates its
// own PeerState.
package peertask

import (
	"context"
	"errors"
	"math/rand"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/facebook/ntpcore/internal/clock"
	"github.com/facebook/ntpcore/internal/coordinator"
	"github.com/facebook/ntpcore/internal/stats"
	"github.com/facebook/ntpcore/ntp/filter"
	"github.com/facebook/ntpcore/ntp/peer"
	"github.com/facebook/ntpcore/ntp/protocol"
)

// ErrNetworkGone is surfaced (as coordinator.MsgNetworkIssue) when Socket
// reports the network is unreachable at the OS level, per SPEC_FULL.md §7.
var ErrNetworkGone = errors.New("peertask: network is gone")

// Socket is the "consumed from the socket abstraction" collaborator of
// SPEC_FULL.md §6.
type Socket interface {
	// Send transmits a poll and returns the local send timestamp.
	Send(ctx context.Context) (sentAt protocol.NtpTimestamp, err error)
	// Receive blocks for the next datagram and returns its parsed
	// header plus the local receive timestamp.
	Receive(ctx context.Context) (header protocol.Header, destination protocol.NtpTimestamp, err error)
	Close() error
}

// SystemView exposes the single-writer system snapshot (leap indicator,
// system poll interval) peer tasks read at the start of each operation,
// per SPEC_FULL.md §5's "shared-resource policy".
type SystemView interface {
	Leap() protocol.LeapIndicator
	SystemPoll() protocol.NtpDuration
	SystemPrecisionSeconds() float64
}

// Task drives a single peer's PeerState end to end.
type Task struct {
	ID     string
	Peer   *peer.State
	Socket Socket
	Clock  clock.Clock
	System SystemView
	Stats  *stats.PeerStats

	coordinator chan<- coordinator.Message
	counters    *stats.Counters
}

// NewTask wires a peer's collaborators together.
func NewTask(id string, p *peer.State, sock Socket, clk clock.Clock, sysView SystemView, peerStats *stats.PeerStats, coordSend chan<- coordinator.Message, counters *stats.Counters) *Task {
	return &Task{
		ID:          id,
		Peer:        p,
		Socket:      sock,
		Clock:       clk,
		System:      sysView,
		Stats:       peerStats,
		coordinator: coordSend,
		counters:    counters,
	}
}

// Run executes the per-peer loop until ctx is canceled or a fatal
// condition (NetworkGone, Unreachable) occurs.
func (t *Task) Run(ctx context.Context) error {
	defer t.Socket.Close()

	for {
		deadline := t.Peer.NextPollDeadline().Time()
		timer := time.NewTimer(jitteredInterval(time.Until(deadline)))

		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			if err := t.poll(ctx); err != nil {
				return err
			}
		}
	}
}

// poll sends a request, waits for the reply, and feeds it through
// ingest/clock_filter, publishing the outcome to the coordinator.
func (t *Task) poll(ctx context.Context) error {
	now, err := t.Clock.Now()
	if err != nil {
		return clock.ErrUnavailable
	}
	t.Peer.OnPollSent(now)

	if _, err := t.Socket.Send(ctx); err != nil {
		t.coordinator <- coordinator.Message{Kind: coordinator.MsgNetworkIssue, PeerID: t.ID}
		return ErrNetworkGone
	}

	header, destination, err := t.Socket.Receive(ctx)
	if err != nil {
		// No reply: reach already shifted by OnPollSent. Re-run the
		// schedule so the next poll deadline advances, and check
		// whether eight consecutive misses made the peer unreachable.
		silenceNow, clkErr := t.Clock.Now()
		if clkErr != nil {
			return clock.ErrUnavailable
		}
		t.rescheduleAfterSilence(silenceNow)
		if !t.Peer.Reach.IsReachable() {
			t.coordinator <- coordinator.Message{Kind: coordinator.MsgUnreachable, PeerID: t.ID}
			return errors.New("peertask: peer unreachable")
		}
		return nil
	}

	localNow, err := t.Clock.Now()
	if err != nil {
		return clock.ErrUnavailable
	}

	sample, err := t.Peer.Ingest(localNow, protocol.DurationFromSeconds(t.System.SystemPrecisionSeconds()), header, destination)
	if err != nil {
		t.countIngestDrop(err)
		return nil
	}

	decision := t.Peer.ClockFilter(sample, t.System.Leap(), t.System.SystemPrecisionSeconds())
	t.publish(decision, localNow)
	return nil
}

func (t *Task) countIngestDrop(err error) {
	switch {
	case errors.Is(err, peer.ErrUnsynchronized):
		t.counters.UpdateCounterBy(stats.CounterUnsynchronized, 1)
		log.WithField("peer", t.ID).Debug("dropped unsynchronized sample")
	case errors.Is(err, peer.ErrInvalidHeader):
		t.counters.UpdateCounterBy(stats.CounterInvalidHeader, 1)
		log.WithField("peer", t.ID).Debug("dropped sample with invalid header")
	case errors.Is(err, filter.ErrBroadcastUnsupported):
		log.WithField("peer", t.ID).Warn("broadcast-mode peer is unsupported")
	}
}

func (t *Task) publish(decision filter.Decision, localNow protocol.NtpTimestamp) {
	kind := coordinator.MsgUpdatedSnapshot
	if decision == filter.DecisionProcess {
		kind = coordinator.MsgNewMeasurement
		t.counters.UpdateCounterBy(stats.CounterAccepted, 1)
		if t.Stats != nil {
			t.Stats.Observe(t.Peer.Statistics, t.Peer.Reach.IsReachable())
		}
	} else {
		t.counters.UpdateCounterBy(stats.CounterStale, 1)
	}

	fit := t.Peer.AcceptForSelection(localNow, t.System.SystemPoll())
	t.coordinator <- coordinator.Message{
		Kind:   kind,
		PeerID: t.ID,
		Snapshot: coordinator.PeerSnapshot{
			Offset:       t.Peer.Statistics.Offset,
			RootDistance: t.Peer.RootDistance(localNow),
			Stratum:      t.Peer.LastHeader.Stratum,
			Fit:          fit,
		},
	}
}

// rescheduleAfterSilence re-runs OnPollCompleted using the peer's current
// HostPoll so the next deadline advances even without a reply.
func (t *Task) rescheduleAfterSilence(localNow protocol.NtpTimestamp) {
	t.Peer.OnPollCompleted(localNow, t.Peer.HostPoll)
}

// jitteredInterval randomizes d by a uniform factor in [1.01, 1.05], per
// peer.rs's update_poll_wait and SPEC_FULL.md §4.6's randomization note.
func jitteredInterval(d time.Duration) time.Duration {
	factor := 1.01 + rand.Float64()*0.04
	return time.Duration(float64(d) * factor)
}
