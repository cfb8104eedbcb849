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

package statsserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/facebook/ntpcore/internal/coordinator"
	"github.com/facebook/ntpcore/internal/stats"
	"github.com/facebook/ntpcore/ntp/filter"
	"github.com/facebook/ntpcore/ntp/protocol"
)

func TestServerFetchCountersAndSurvivorsRoundTrip(t *testing.T) {
	counters := stats.NewCounters()
	counters.UpdateCounterBy(stats.CounterAccepted, 3)

	coord := coordinator.New(counters)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go coord.Run(ctx)

	coord.Send() <- coordinator.Message{
		Kind:   coordinator.MsgNewMeasurement,
		PeerID: "a",
		Snapshot: coordinator.PeerSnapshot{
			Offset:       protocol.DurationFromSeconds(0),
			RootDistance: protocol.DurationFromSeconds(0.01),
			Stratum:      2,
			Fit:          true,
		},
	}
	require.Eventually(t, func() bool { return len(coord.Result()) == 1 }, time.Second, 10*time.Millisecond)

	peerStats, err := stats.NewPeerStats("a")
	require.NoError(t, err)
	peerStats.Observe(filter.Statistics{
		Offset:     protocol.DurationFromSeconds(0),
		Delay:      protocol.DurationFromSeconds(0.01),
		Dispersion: protocol.DurationFromSeconds(0.002),
		Jitter:     0.001,
	}, true)

	srv := New(counters, coord, map[string]*stats.PeerStats{"a": peerStats})
	mux := http.NewServeMux()
	mux.HandleFunc("/", srv.handleSurvivors)
	mux.HandleFunc("/counters", srv.handleCounters)
	mux.HandleFunc("/quality", srv.handleQuality)
	ts := httptest.NewServer(mux)
	defer ts.Close()

	gotCounters, err := FetchCounters(ts.URL)
	require.NoError(t, err)
	require.Equal(t, int64(3), gotCounters[stats.CounterAccepted])

	gotSurvivors, err := FetchSurvivors(ts.URL)
	require.NoError(t, err)
	require.Len(t, gotSurvivors, 1)
	require.Equal(t, "a", gotSurvivors[0].ID)

	gotQuality, err := FetchQuality(ts.URL)
	require.NoError(t, err)
	require.True(t, gotQuality["a"].HasSamples)
	require.InDelta(t, 0.002+2*0.001, gotQuality["a"].Score, 1e-9)
}
