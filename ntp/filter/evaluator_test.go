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

package filter

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/facebook/ntpcore/ntp/protocol"
)

// TestEvaluateDummyOnlyDispersionBound is invariant 1: with a register that
// has never received a real sample, the committed dispersion approaches but
// never reaches MaxDispersion (16s).
func TestEvaluateDummyOnlyDispersionBound(t *testing.T) {
	reg := NewRegister()

	stats, _, decision := Evaluate(reg, Dummy, protocol.NtpTimestamp(0), protocol.LeapUnknown, 0)
	require.Equal(t, DecisionProcess, decision)
	require.Less(t, stats.Dispersion.Seconds(), protocol.MaxDispersion.Seconds())
	require.InDelta(t, 16*255.0/256.0, stats.Dispersion.Seconds(), 1e-6)
}

// TestEvaluateDummyInvalidity is invariant 2: dummy slots never enter the
// "valid" prefix used for jitter, so a single real sample among seven
// dummies produces a jitter floored at the system precision, not inflated
// by the dummy's large offset/delay.
func TestEvaluateDummyInvalidity(t *testing.T) {
	reg := NewRegister()
	real := Sample{
		Offset:     protocol.DurationFromSeconds(0.01),
		Delay:      protocol.DurationFromSeconds(0.05),
		Dispersion: protocol.DurationFromSeconds(0.001),
		Time:       tsAt(10),
	}

	stats, newTime, decision := Evaluate(reg, real, protocol.NtpTimestamp(0), protocol.LeapNoWarning, 0.002)
	require.Equal(t, DecisionProcess, decision)
	require.Equal(t, real.Time, newTime)
	require.Equal(t, real.Offset, stats.Offset)
	require.Equal(t, real.Delay, stats.Delay)
	require.InDelta(t, 0.002, stats.Jitter, 1e-9)
}

// TestEvaluatePrimeDirective is invariant 6 / scenario S9: once the system
// is synchronized, a sample no newer than the last accepted one is ignored
// outright, leaving lastAcceptedTime unchanged.
func TestEvaluatePrimeDirective(t *testing.T) {
	reg := NewRegister()
	lastAccepted := tsAt(100)

	stale := Sample{Offset: 1, Delay: protocol.DurationFromSeconds(0.01), Time: tsAt(50)}
	stats, newTime, decision := Evaluate(reg, stale, lastAccepted, protocol.LeapNoWarning, 0)

	require.Equal(t, DecisionIgnore, decision)
	require.Equal(t, lastAccepted, newTime)
	require.Equal(t, Statistics{}, stats)
}

// TestEvaluateColdStartBypassesPrimeDirective is the cold-start exception
// to the prime directive: an unsynchronized system (LeapUnknown) must accept a sample even if it is
// not strictly newer than lastAcceptedTime, since there is no prior
// synchronized time to compare against in practice.
func TestEvaluateColdStartBypassesPrimeDirective(t *testing.T) {
	reg := NewRegister()
	lastAccepted := tsAt(100)

	s := Sample{Offset: 1, Delay: protocol.DurationFromSeconds(0.01), Time: tsAt(50)}
	_, _, decision := Evaluate(reg, s, lastAccepted, protocol.LeapUnknown, 0)

	require.Equal(t, DecisionProcess, decision)
}

// TestEvaluateJitterAcrossMultipleSamples exercises the jitter formula
// (RMS deviation from the best sample's offset) across several accepted
// samples with varying offsets.
func TestEvaluateJitterAcrossMultipleSamples(t *testing.T) {
	reg := NewRegister()
	last := protocol.NtpTimestamp(0)

	offsets := []float64{0.10, 0.12, 0.09, 0.11}
	var stats Statistics
	for i, off := range offsets {
		s := Sample{
			Offset:     protocol.DurationFromSeconds(off),
			Delay:      protocol.DurationFromSeconds(0.05),
			Dispersion: protocol.DurationFromSeconds(0.001),
			Time:       tsAt(float64(10 * (i + 1))),
		}
		var decision Decision
		stats, last, decision = Evaluate(reg, s, last, protocol.LeapNoWarning, 0)
		require.Equal(t, DecisionProcess, decision)
	}

	require.Greater(t, stats.Jitter, 0.0)
}
