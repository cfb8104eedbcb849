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

func TestNewRegisterAllDummy(t *testing.T) {
	r := NewRegister()
	slots := r.Slots()
	for i, s := range slots {
		require.Truef(t, s.IsDummy(), "slot %d not dummy", i)
	}
}

// TestRegisterShiftCorrectness is invariant 4: inserting shifts every
// existing slot down by one, correcting each non-dummy slot's dispersion,
// and never touches dummy slots.
func TestRegisterShiftCorrectness(t *testing.T) {
	r := NewRegister()

	a := Sample{Offset: protocol.DurationFromSeconds(1), Delay: protocol.DurationFromSeconds(0.1), Dispersion: protocol.DurationFromSeconds(0.01), Time: tsAt(10)}
	r.ShiftAndInsert(a, protocol.DurationZero)
	require.Equal(t, a, r.Slots()[0])

	correction := protocol.DurationFromSeconds(0.002)
	b := Sample{Offset: protocol.DurationFromSeconds(2), Delay: protocol.DurationFromSeconds(0.2), Dispersion: protocol.DurationFromSeconds(0.02), Time: tsAt(20)}
	r.ShiftAndInsert(b, correction)

	slots := r.Slots()
	require.Equal(t, b, slots[0])

	wantA := a
	wantA.Dispersion += correction
	require.Equal(t, wantA, slots[1])

	for i := 2; i < protocol.RegisterSize; i++ {
		require.Truef(t, slots[i].IsDummy(), "slot %d not dummy", i)
	}
}

func TestRegisterDummySlotsNeverCorrected(t *testing.T) {
	r := NewRegister()
	r.ShiftAndInsert(Dummy, protocol.DurationFromSeconds(5))
	for i, s := range r.Slots() {
		require.Equalf(t, Dummy, s, "slot %d diverged from dummy sentinel", i)
	}
}

func TestRegisterDropsOldestAfterEightInserts(t *testing.T) {
	r := NewRegister()
	var samples [protocol.RegisterSize]Sample
	for i := 0; i < protocol.RegisterSize; i++ {
		s := Sample{Offset: protocol.NtpDuration(i + 1), Time: tsAt(float64(i))}
		samples[i] = s
		r.ShiftAndInsert(s, protocol.DurationZero)
	}
	slots := r.Slots()
	for i := 0; i < protocol.RegisterSize; i++ {
		require.Equal(t, samples[protocol.RegisterSize-1-i].Offset, slots[i].Offset)
	}

	// A ninth insert must push the original oldest sample (samples[0]) out.
	r.ShiftAndInsert(Sample{Offset: 99, Time: tsAt(100)}, protocol.DurationZero)
	slots = r.Slots()
	for _, s := range slots {
		require.NotEqual(t, samples[0].Offset, s.Offset)
	}
}
