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
	"container/ring"

	"github.com/facebook/ntpcore/ntp/protocol"
)

// Register is the 8-slot measurement shift register, indexed 0 (newest)
// through 7 (oldest). It is backed by container/ring the same way
// slidingWindow in the donor's sptp/client/window.go is: the head pointer
// moves backward on insert and the vacated node becomes the new slot 0,
// which discards the old slot 7 without any element copying.
type Register struct {
	head *ring.Ring
}

// NewRegister returns a register with all slots set to the dummy sample.
func NewRegister() *Register {
	r := ring.New(protocol.RegisterSize)
	for i := 0; i < protocol.RegisterSize; i++ {
		r.Value = Dummy
		r = r.Next()
	}
	return &Register{head: r}
}

// ShiftAndInsert applies dispersionCorrection to every non-dummy slot,
// then shifts the register right by one and inserts sample at slot 0.
// Dummies never receive the correction: adding to a dummy's dispersion
// would silently promote an empty slot into a real-looking sample.
func (m *Register) ShiftAndInsert(sample Sample, dispersionCorrection protocol.NtpDuration) {
	cur := m.head
	for i := 0; i < protocol.RegisterSize; i++ {
		if s := cur.Value.(Sample); !s.IsDummy() {
			s.Dispersion += dispersionCorrection
			cur.Value = s
		}
		cur = cur.Next()
	}
	m.head = m.head.Prev()
	m.head.Value = sample
}

// Slots returns the register contents ordered from slot 0 (newest) to
// slot 7 (oldest).
func (m *Register) Slots() [protocol.RegisterSize]Sample {
	var out [protocol.RegisterSize]Sample
	cur := m.head
	for i := 0; i < protocol.RegisterSize; i++ {
		out[i] = cur.Value.(Sample)
		cur = cur.Next()
	}
	return out
}
