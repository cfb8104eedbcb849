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

// Package filter implements the per-peer measurement pipeline: turning a
// parsed packet into a sample, maintaining the 8-slot shift register, and
// the clock_filter evaluation that picks the best recent sample.
package filter

import (
	"errors"

	"github.com/facebook/ntpcore/ntp/protocol"
)

// ErrBroadcastUnsupported is returned by BuildSample for broadcast-mode
// headers. Broadcast-mode measurement is acknowledged as a protocol
// variant but intentionally left unimplemented.
var ErrBroadcastUnsupported = errors.New("filter: broadcast-mode measurement is not implemented")

// Sample is an immutable (offset, delay, dispersion, time) tuple derived
// from a single protocol exchange.
type Sample struct {
	Offset     protocol.NtpDuration
	Delay      protocol.NtpDuration
	Dispersion protocol.NtpDuration
	Time       protocol.NtpTimestamp
}

// Dummy is the canonical empty-slot sentinel: it sorts last by delay and
// is excluded from the valid prefix in FilterEvaluator.
var Dummy = Sample{
	Offset:     protocol.DurationZero,
	Delay:      protocol.MaxDispersion,
	Dispersion: protocol.MaxDispersion,
	Time:       protocol.NtpTimestamp(0),
}

// IsDummy reports whether s is the dummy sentinel.
func (s Sample) IsDummy() bool {
	return s == Dummy
}

// BuildSample converts a parsed header plus local send/receive timestamps
// into a Sample, per SPEC_FULL.md §4.1. destination is the local receive
// timestamp (T4); clockTime is the local timestamp recorded on the
// resulting sample.
func BuildSample(h *protocol.Header, systemPrecision protocol.NtpDuration, destination, clockTime protocol.NtpTimestamp) (Sample, error) {
	if h.Mode == protocol.ModeBroadcast {
		return Sample{}, ErrBroadcastUnsupported
	}

	packetPrecision := protocol.DurationFromExponent(h.Precision)

	offset1 := h.ReceiveTimestamp.Sub(h.OriginTimestamp)
	offset2 := destination.Sub(h.TransmitTimestamp)
	offset := (offset1 + offset2) / 2

	delta1 := destination.Sub(h.OriginTimestamp)
	delta2 := h.TransmitTimestamp.Sub(h.ReceiveTimestamp)
	rawDelay := delta1 - delta2
	delay := protocol.Max(systemPrecision, rawDelay)

	dispersion := packetPrecision + systemPrecision + protocol.MultiplyByPhi(delta1)

	return Sample{Offset: offset, Delay: delay, Dispersion: dispersion, Time: clockTime}, nil
}
