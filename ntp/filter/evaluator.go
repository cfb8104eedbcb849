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
	"math"
	"sort"

	"github.com/facebook/ntpcore/ntp/protocol"
)

// Decision is the outcome of a clock_filter evaluation.
type Decision uint8

const (
	// DecisionIgnore means the sample was not newer than the last
	// accepted one; peer statistics are unchanged.
	DecisionIgnore Decision = iota
	// DecisionProcess means peer statistics were updated from the
	// register's current smallest-delay sample.
	DecisionProcess
)

// Statistics is PeerStatistics: the offset/delay/dispersion/jitter
// committed by the most recent DecisionProcess outcome.
type Statistics struct {
	Offset     protocol.NtpDuration
	Delay      protocol.NtpDuration
	Dispersion protocol.NtpDuration
	Jitter     float64
}

// Evaluate runs the clock_filter core: shift the register, sort by
// delay, apply the prime directive, and (if accepted) compute the new
// dispersion/jitter. Its only side effect is the shift-and-insert on reg;
// it does no I/O and keeps no state of its own.
//
// lastAcceptedTime is the peer's current `time` field; on DecisionProcess
// the caller must update it to the returned NtpTimestamp.
func Evaluate(reg *Register, newSample Sample, lastAcceptedTime protocol.NtpTimestamp, systemLeap protocol.LeapIndicator, systemPrecisionSeconds float64) (Statistics, protocol.NtpTimestamp, Decision) {
	dispersionCorrection := protocol.MultiplyByPhi(newSample.Time.Sub(lastAcceptedTime))
	reg.ShiftAndInsert(newSample, dispersionCorrection)

	sorted := reg.Slots()
	sortedSlice := sorted[:]
	sort.SliceStable(sortedSlice, func(i, j int) bool {
		return sortedSlice[i].Delay < sortedSlice[j].Delay
	})

	best := sortedSlice[0]

	// Prime directive: never accept a sample that isn't strictly newer
	// than the last one, once the system is already synchronized.
	if !best.Time.After(lastAcceptedTime) && systemLeap.IsSynchronized() {
		return Statistics{}, lastAcceptedTime, DecisionIgnore
	}

	dispersion := weightedDispersion(sortedSlice)
	valid := validPrefix(sortedSlice)
	jitter := computeJitter(valid, best, systemPrecisionSeconds)

	stats := Statistics{
		Offset:     best.Offset,
		Delay:      best.Delay,
		Dispersion: dispersion,
		Jitter:     jitter,
	}
	return stats, best.Time, DecisionProcess
}

// weightedDispersion sums each slot's dispersion discounted by 2^-(i+1),
// over the delay-sorted slots: the smallest-delay slot is charged half
// weight and each later slot half as much as the one before it.
func weightedDispersion(sorted []Sample) protocol.NtpDuration {
	var total protocol.NtpDuration
	for i, s := range sorted {
		total += s.Dispersion / protocol.NtpDuration(int64(1)<<uint(i+1))
	}
	return total
}

// validPrefix returns the sorted slots with any trailing run of dummies
// removed.
func validPrefix(sorted []Sample) []Sample {
	end := len(sorted)
	for end > 0 && sorted[end-1].IsDummy() {
		end--
	}
	return sorted[:end]
}

// computeJitter is the RMS deviation of valid offsets from the best
// sample's offset, lower-bounded by system precision.
func computeJitter(valid []Sample, best Sample, systemPrecisionSeconds float64) float64 {
	var sumSq float64
	for _, s := range valid {
		d := (s.Offset - best.Offset).Seconds()
		sumSq += d * d
	}
	divisor := len(valid) - 1
	if divisor < 1 {
		divisor = 1
	}
	jitter := math.Sqrt(sumSq) / float64(divisor)
	return math.Max(jitter, systemPrecisionSeconds)
}
