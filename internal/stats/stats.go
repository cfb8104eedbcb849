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

// Package stats wires per-peer Prometheus gauges, a welford-based online
// variance estimate of offset, and a govaluate-evaluated composite
// quality score, following the pattern in fbclock/daemon/math.go.
package stats

import (
	"sync"

	"github.com/Knetic/govaluate"
	"github.com/eclesh/welford"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/facebook/ntpcore/ntp/filter"
)

// defaultScoreExpression favors low jitter and low dispersion. It is a
// fixed constant; no config setting replaces it.
const defaultScoreExpression = "dispersion + 2 * jitter"

// PeerStats holds the live Prometheus gauges and variance estimator for
// one peer.
type PeerStats struct {
	mu sync.Mutex

	offsetGauge     prometheus.Gauge
	delayGauge      prometheus.Gauge
	dispersionGauge prometheus.Gauge
	jitterGauge     prometheus.Gauge
	reachGauge      prometheus.Gauge

	offsetVariance *welford.Stats
	score          *govaluate.EvaluableExpression
	lastStats      filter.Statistics
	haveStats      bool
}

// NewPeerStats builds the gauges for a peer identified by id (typically
// its configured address) and compiles the quality-score expression.
func NewPeerStats(id string) (*PeerStats, error) {
	expr, err := govaluate.NewEvaluableExpression(defaultScoreExpression)
	if err != nil {
		return nil, err
	}
	labels := prometheus.Labels{"peer": id}
	return &PeerStats{
		offsetGauge:     prometheus.NewGauge(prometheus.GaugeOpts{Name: "ntpcore_peer_offset_seconds", ConstLabels: labels}),
		delayGauge:      prometheus.NewGauge(prometheus.GaugeOpts{Name: "ntpcore_peer_delay_seconds", ConstLabels: labels}),
		dispersionGauge: prometheus.NewGauge(prometheus.GaugeOpts{Name: "ntpcore_peer_dispersion_seconds", ConstLabels: labels}),
		jitterGauge:     prometheus.NewGauge(prometheus.GaugeOpts{Name: "ntpcore_peer_jitter_seconds", ConstLabels: labels}),
		reachGauge:      prometheus.NewGauge(prometheus.GaugeOpts{Name: "ntpcore_peer_reach", ConstLabels: labels}),
		offsetVariance:  welford.New(),
		score:           expr,
	}, nil
}

// Collectors returns every Prometheus collector owned by this PeerStats,
// for registration with a prometheus.Registry.
func (s *PeerStats) Collectors() []prometheus.Collector {
	return []prometheus.Collector{s.offsetGauge, s.delayGauge, s.dispersionGauge, s.jitterGauge, s.reachGauge}
}

// Observe records a freshly committed Statistics and reachability flag.
func (s *PeerStats) Observe(st filter.Statistics, reachable bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.offsetGauge.Set(st.Offset.Seconds())
	s.delayGauge.Set(st.Delay.Seconds())
	s.dispersionGauge.Set(st.Dispersion.Seconds())
	s.jitterGauge.Set(st.Jitter)
	if reachable {
		s.reachGauge.Set(1)
	} else {
		s.reachGauge.Set(0)
	}
	s.offsetVariance.Add(st.Offset.Seconds())
	s.lastStats = st
	s.haveStats = true
}

// OffsetStddev returns the running standard deviation of observed
// offsets, in seconds.
func (s *PeerStats) OffsetStddev() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offsetVariance.Stddev()
}

// Score evaluates the configured composite quality expression (lower is
// better) against the most recent statistics.
func (s *PeerStats) Score(st filter.Statistics) (float64, error) {
	params := map[string]interface{}{
		"dispersion": st.Dispersion.Seconds(),
		"jitter":     st.Jitter,
	}
	result, err := s.score.Evaluate(params)
	if err != nil {
		return 0, err
	}
	v, _ := result.(float64)
	return v, nil
}

// Quality reports the composite score of the most recently observed
// Statistics plus the running offset standard deviation, for display in
// ntpcorectl's status table. ok is false until the first Observe call.
func (s *PeerStats) Quality() (score, stddev float64, ok bool) {
	s.mu.Lock()
	last, have := s.lastStats, s.haveStats
	stddev = s.offsetVariance.Stddev()
	s.mu.Unlock()

	if !have {
		return 0, stddev, false
	}
	score, err := s.Score(last)
	if err != nil {
		return 0, stddev, false
	}
	return score, stddev, true
}
