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

// Package coordinator is the cross-peer aggregator described in
// SPEC_FULL.md §5: it consumes immutable snapshots of peer state over a
// FIFO channel and runs IntervalSelector rounds, never touching a
// PeerState directly. Its message taxonomy is carried over from
// original_source/ntpd/src/daemon/peer.rs's MsgForSystem enum.
package coordinator

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/facebook/ntpcore/internal/stats"
	"github.com/facebook/ntpcore/ntp/protocol"
	"github.com/facebook/ntpcore/ntp/selection"
)

// MsgKind mirrors peer.rs's MsgForSystem variants.
type MsgKind int

const (
	// MsgNewMeasurement carries a fresh per-peer snapshot after a
	// DecisionProcess outcome.
	MsgNewMeasurement MsgKind = iota
	// MsgUpdatedSnapshot carries a snapshot refresh with no new
	// measurement (sent when clock_filter ignored a stale sample).
	MsgUpdatedSnapshot
	// MsgMustDemobilize reports a KissDemobilize condition.
	MsgMustDemobilize
	// MsgNetworkIssue reports a NetworkGone condition.
	MsgNetworkIssue
	// MsgUnreachable reports eight consecutive unanswered polls.
	MsgUnreachable
)

// PeerSnapshot is the plain-value copy of the peer state fields a
// selection round needs; it never aliases a PeerState.
type PeerSnapshot struct {
	Offset       protocol.NtpDuration
	RootDistance protocol.NtpDuration
	Stratum      uint8
	Fit          bool
}

// Message is one coordinator-bound event. Messages for a given PeerID are
// delivered in send order because incoming is an unbuffered-safe Go
// channel and each peer task is the sole sender for its own ID.
type Message struct {
	Kind     MsgKind
	PeerID   string
	Snapshot PeerSnapshot
}

// Coordinator aggregates peer snapshots and runs selection rounds. The
// snapshot map is only ever touched from the Run goroutine, so no lock is
// needed around it; Result() is safe for concurrent readers because it
// only reads the most recently published, already-copied survivor slice.
type Coordinator struct {
	incoming chan Message
	counters *stats.Counters

	snapshots map[string]PeerSnapshot

	resultMu sync.RWMutex
	result   []selection.SurvivorTuple
}

// New returns a Coordinator ready to Run.
func New(counters *stats.Counters) *Coordinator {
	return &Coordinator{
		incoming:  make(chan Message, 64),
		counters:  counters,
		snapshots: make(map[string]PeerSnapshot),
	}
}

// Send returns the channel peer tasks post messages to.
func (c *Coordinator) Send() chan<- Message {
	return c.incoming
}

// Result returns the most recently computed survivor set.
func (c *Coordinator) Result() []selection.SurvivorTuple {
	c.resultMu.RLock()
	defer c.resultMu.RUnlock()
	return c.result
}

// Run drains incoming until ctx is canceled, updating the snapshot map
// and re-running selection on every measurement update.
func (c *Coordinator) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-c.incoming:
			c.handle(msg)
		}
	}
}

func (c *Coordinator) handle(msg Message) {
	switch msg.Kind {
	case MsgNewMeasurement, MsgUpdatedSnapshot:
		c.snapshots[msg.PeerID] = msg.Snapshot
		c.runSelection()
	case MsgMustDemobilize:
		delete(c.snapshots, msg.PeerID)
		c.counters.UpdateCounterBy(stats.CounterKissDemobilize, 1)
		log.WithField("peer", msg.PeerID).Info("peer demobilized by kiss-o'-death")
		c.runSelection()
	case MsgNetworkIssue:
		delete(c.snapshots, msg.PeerID)
		c.counters.UpdateCounterBy(stats.CounterNetworkGone, 1)
		log.WithField("peer", msg.PeerID).Warn("peer task exited: network gone")
		c.runSelection()
	case MsgUnreachable:
		delete(c.snapshots, msg.PeerID)
		c.counters.UpdateCounterBy(stats.CounterUnreachable, 1)
		log.WithField("peer", msg.PeerID).Warn("peer task exited: unreachable")
		c.runSelection()
	}
}

func (c *Coordinator) runSelection() {
	inputs := make([]selection.PeerInput, 0, len(c.snapshots))
	for id, snap := range c.snapshots {
		if !snap.Fit {
			continue
		}
		inputs = append(inputs, selection.PeerInput{
			ID:           id,
			Offset:       snap.Offset,
			RootDistance: snap.RootDistance,
			Stratum:      snap.Stratum,
		})
	}

	c.counters.UpdateCounterBy(stats.CounterSelectionRounds, 1)
	survivors := selection.Select(inputs)
	if len(survivors) == 0 {
		c.counters.UpdateCounterBy(stats.CounterSelectionNoQuorum, 1)
	}

	c.resultMu.Lock()
	c.result = survivors
	c.resultMu.Unlock()
}
