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

package refclock

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"

	"github.com/facebook/ntpcore/internal/clock"
	"github.com/facebook/ntpcore/internal/coordinator"
	"github.com/facebook/ntpcore/ntp/filter"
	"github.com/facebook/ntpcore/ntp/peer"
	"github.com/facebook/ntpcore/ntp/protocol"
)

// Task feeds one Source's samples directly into a PeerState's clock_filter,
// skipping Ingest (there is no packet to run the acceptance gate over) but
// otherwise following the same shift-register/statistics path a network
// peer does. Its snapshot is always marked fit (AcceptForSelection is not
// run) and carries the filtered dispersion as its root distance.
type Task struct {
	ID     string
	Source *Source
	Peer   *peer.State
	Clock  clock.Clock

	SystemLeap            protocol.LeapIndicator
	SystemPrecisionSeconds float64

	coordinator chan<- coordinator.Message
}

// NewTask wires a refclock Source into the coordinator's message stream.
func NewTask(id string, src *Source, p *peer.State, clk clock.Clock, coordSend chan<- coordinator.Message) *Task {
	return &Task{
		ID:          id,
		Source:      src,
		Peer:        p,
		Clock:       clk,
		coordinator: coordSend,
	}
}

// Run reads fix sentences until ctx is canceled or the device is lost.
func (t *Task) Run(ctx context.Context) error {
	defer t.Source.Close()

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		sample, err := t.Source.ReadSample(t.Clock)
		if err != nil {
			var noFix ErrNoFix
			if errors.As(err, &noFix) {
				continue
			}
			log.WithField("refclock", t.ID).WithError(err).Warn("refclock task exited")
			t.coordinator <- coordinator.Message{Kind: coordinator.MsgNetworkIssue, PeerID: t.ID}
			return err
		}

		decision := t.Peer.ClockFilter(sample, t.SystemLeap, t.SystemPrecisionSeconds)
		if decision != filter.DecisionProcess {
			continue
		}

		t.coordinator <- coordinator.Message{
			Kind:   coordinator.MsgNewMeasurement,
			PeerID: t.ID,
			Snapshot: coordinator.PeerSnapshot{
				Offset:       t.Peer.Statistics.Offset,
				RootDistance: t.Peer.Statistics.Dispersion,
				Stratum:      t.Source.Stratum(),
				Fit:          true,
			},
		}
	}
}
