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

// Package selection implements the cross-peer Marzullo-style interval
// intersection and survivor extraction described in SPEC_FULL.md §4.7.
//
// It takes plain value inputs (PeerInput) rather than a peer reference,
// so a selection round never borrows a PeerState across a suspension
// point — the ownership concern SPEC_FULL.md §9 flags is sidestepped by
// construction.
package selection

import (
	"sort"

	"github.com/facebook/ntpcore/ntp/protocol"
)

// EndpointType tags which edge of a peer's correctness interval a
// candidate tuple represents.
type EndpointType int8

// Endpoint tag values, used directly as the chime increment/decrement in
// findInterval.
const (
	EndpointUpper  EndpointType = 1
	EndpointMiddle EndpointType = 0
	EndpointLower  EndpointType = -1
)

// PeerInput is the minimal per-peer snapshot the selector needs: a
// caller-chosen identity, the peer's current offset estimate, its root
// distance from the local clock, and its stratum (for the survivor
// metric).
type PeerInput struct {
	ID           string
	Offset       protocol.NtpDuration
	RootDistance protocol.NtpDuration
	Stratum      uint8
}

// SurvivorTuple is one truechimer's identity plus its selection metric:
// lower is better, ordered first by stratum then by root distance.
type SurvivorTuple struct {
	ID     string
	Metric protocol.NtpDuration
}

type candidateTuple struct {
	id       string
	endpoint EndpointType
	edge     protocol.NtpDuration
}

// Select runs the full three-step algorithm (candidate construction,
// find_interval, construct_survivors) over the given fit peers. It
// returns nil if no consistent intersection exists.
func Select(peers []PeerInput) []SurvivorTuple {
	candidates := buildCandidates(peers)
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].edge < candidates[j].edge
	})

	low, high, ok := findInterval(candidates)
	if !ok {
		return nil
	}
	return constructSurvivors(candidates, peers, low, high)
}

func buildCandidates(peers []PeerInput) []candidateTuple {
	out := make([]candidateTuple, 0, len(peers)*3)
	for _, p := range peers {
		out = append(out,
			candidateTuple{id: p.ID, endpoint: EndpointUpper, edge: p.Offset + p.RootDistance},
			candidateTuple{id: p.ID, endpoint: EndpointMiddle, edge: p.Offset},
			candidateTuple{id: p.ID, endpoint: EndpointLower, edge: p.Offset - p.RootDistance},
		)
	}
	return out
}

// findInterval implements the Marzullo sweep. The acceptance threshold is
// n-allow, not n-found; found only decides whether a given allow level is
// rejected for having passed too many Middle tuples.
func findInterval(sorted []candidateTuple) (low, high protocol.NtpDuration, ok bool) {
	n := len(sorted) / 3
	if n == 0 {
		return 0, 0, false
	}

	for allow := 0; 2*allow < n; allow++ {
		found := 0
		threshold := n - allow

		chime := 0
		haveLow := false
		for _, c := range sorted {
			chime -= int(c.endpoint)
			if chime >= threshold {
				low = c.edge
				haveLow = true
				break
			}
			if c.endpoint == EndpointMiddle {
				found++
			}
		}

		chime = 0
		haveHigh := false
		for i := len(sorted) - 1; i >= 0; i-- {
			c := sorted[i]
			chime += int(c.endpoint)
			if chime >= threshold {
				high = c.edge
				haveHigh = true
				break
			}
			if c.endpoint == EndpointMiddle {
				found++
			}
		}

		if found > allow {
			continue
		}
		if haveLow && haveHigh {
			return low, high, true
		}
	}
	return 0, 0, false
}

func constructSurvivors(sorted []candidateTuple, peers []PeerInput, low, high protocol.NtpDuration) []SurvivorTuple {
	byID := make(map[string]PeerInput, len(peers))
	for _, p := range peers {
		byID[p.ID] = p
	}

	var out []SurvivorTuple
	for _, c := range sorted {
		if c.endpoint != EndpointMiddle || c.edge < low || c.edge > high {
			continue
		}
		p := byID[c.id]
		metric := protocol.MaxDistance.MulInt(int(p.Stratum)) + p.RootDistance
		out = append(out, SurvivorTuple{ID: c.id, Metric: metric})
	}
	return out
}
