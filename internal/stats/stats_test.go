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

package stats

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/facebook/ntpcore/ntp/filter"
	"github.com/facebook/ntpcore/ntp/protocol"
)

func TestNewPeerStatsCompilesScore(t *testing.T) {
	ps, err := NewPeerStats("192.0.2.1")
	require.NoError(t, err)
	require.Len(t, ps.Collectors(), 5)
}

func TestPeerStatsScore(t *testing.T) {
	ps, err := NewPeerStats("192.0.2.1")
	require.NoError(t, err)

	st := filter.Statistics{
		Dispersion: protocol.DurationFromSeconds(0.01),
		Jitter:     0.02,
	}
	score, err := ps.Score(st)
	require.NoError(t, err)
	require.InDelta(t, 0.05, score, 1e-9)
}

func TestPeerStatsObserveUpdatesVariance(t *testing.T) {
	ps, err := NewPeerStats("192.0.2.1")
	require.NoError(t, err)

	offsets := []float64{0.01, -0.02, 0.03, -0.01, 0.02}
	for _, off := range offsets {
		st := filter.Statistics{Offset: protocol.DurationFromSeconds(off)}
		ps.Observe(st, true)
	}

	require.Greater(t, ps.OffsetStddev(), 0.0)
}

func TestPeerStatsObserveSingleSampleNoPanic(t *testing.T) {
	ps, err := NewPeerStats("192.0.2.1")
	require.NoError(t, err)

	ps.Observe(filter.Statistics{Offset: protocol.DurationFromSeconds(0.1)}, false)
	require.GreaterOrEqual(t, ps.OffsetStddev(), 0.0)
}

func TestPeerStatsQualityBeforeFirstObserve(t *testing.T) {
	ps, err := NewPeerStats("192.0.2.1")
	require.NoError(t, err)

	_, _, ok := ps.Quality()
	require.False(t, ok)
}

func TestPeerStatsQualityAfterObserve(t *testing.T) {
	ps, err := NewPeerStats("192.0.2.1")
	require.NoError(t, err)

	ps.Observe(filter.Statistics{
		Dispersion: protocol.DurationFromSeconds(0.01),
		Jitter:     0.02,
	}, true)

	score, stddev, ok := ps.Quality()
	require.True(t, ok)
	require.InDelta(t, 0.05, score, 1e-9)
	require.GreaterOrEqual(t, stddev, 0.0)
}
