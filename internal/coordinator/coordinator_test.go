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

package coordinator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/facebook/ntpcore/internal/stats"
	"github.com/facebook/ntpcore/ntp/protocol"
)

func fitSnapshot(offset float64) PeerSnapshot {
	return PeerSnapshot{
		Offset:       protocol.DurationFromSeconds(offset),
		RootDistance: protocol.DurationFromSeconds(0.01),
		Stratum:      2,
		Fit:          true,
	}
}

func TestHandleNewMeasurementRunsSelection(t *testing.T) {
	c := New(stats.NewCounters())
	c.handle(Message{Kind: MsgNewMeasurement, PeerID: "a", Snapshot: fitSnapshot(0)})
	c.handle(Message{Kind: MsgNewMeasurement, PeerID: "b", Snapshot: fitSnapshot(0.01)})

	require.Len(t, c.Result(), 2)
	require.Equal(t, int64(2), c.counters.Get(stats.CounterSelectionRounds))
}

func TestHandleUnfitSnapshotExcludedFromSelection(t *testing.T) {
	c := New(stats.NewCounters())
	c.handle(Message{Kind: MsgNewMeasurement, PeerID: "a", Snapshot: fitSnapshot(0)})
	unfit := fitSnapshot(0)
	unfit.Fit = false
	c.handle(Message{Kind: MsgNewMeasurement, PeerID: "b", Snapshot: unfit})

	require.Len(t, c.Result(), 1)
	require.Equal(t, "a", c.Result()[0].ID)
}

func TestHandleDemobilizeRemovesPeerAndIncrementsCounter(t *testing.T) {
	c := New(stats.NewCounters())
	c.handle(Message{Kind: MsgNewMeasurement, PeerID: "a", Snapshot: fitSnapshot(0)})
	c.handle(Message{Kind: MsgMustDemobilize, PeerID: "a"})

	require.Empty(t, c.snapshots)
	require.Equal(t, int64(1), c.counters.Get(stats.CounterKissDemobilize))
}

func TestHandleNetworkIssueRemovesPeerAndIncrementsCounter(t *testing.T) {
	c := New(stats.NewCounters())
	c.handle(Message{Kind: MsgNewMeasurement, PeerID: "a", Snapshot: fitSnapshot(0)})
	c.handle(Message{Kind: MsgNetworkIssue, PeerID: "a"})

	require.Empty(t, c.snapshots)
	require.Equal(t, int64(1), c.counters.Get(stats.CounterNetworkGone))
}

func TestHandleUnreachableRemovesPeerAndIncrementsCounter(t *testing.T) {
	c := New(stats.NewCounters())
	c.handle(Message{Kind: MsgNewMeasurement, PeerID: "a", Snapshot: fitSnapshot(0)})
	c.handle(Message{Kind: MsgUnreachable, PeerID: "a"})

	require.Empty(t, c.snapshots)
	require.Equal(t, int64(1), c.counters.Get(stats.CounterUnreachable))
}

func TestRunSelectionNoQuorumIncrementsCounter(t *testing.T) {
	c := New(stats.NewCounters())
	c.handle(Message{Kind: MsgNewMeasurement, PeerID: "a", Snapshot: fitSnapshot(0)})
	c.handle(Message{Kind: MsgNewMeasurement, PeerID: "b", Snapshot: fitSnapshot(100)})

	require.Empty(t, c.Result())
	require.Equal(t, int64(1), c.counters.Get(stats.CounterSelectionNoQuorum))
}

// TestRunDrainsIncomingUntilCanceled exercises the actual goroutine loop,
// not just handle(), confirming messages posted via Send() reach the
// snapshot map and Run returns the cancellation error.
func TestRunDrainsIncomingUntilCanceled(t *testing.T) {
	c := New(stats.NewCounters())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	c.Send() <- Message{Kind: MsgNewMeasurement, PeerID: "a", Snapshot: fitSnapshot(0)}

	require.Eventually(t, func() bool {
		return len(c.Result()) == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	err := <-done
	require.True(t, errors.Is(err, context.Canceled))
}
