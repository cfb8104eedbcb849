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

package protocol

import "time"

// ntpEpoch is the NTP era-0 epoch, 1900-01-01T00:00:00Z.
var ntpEpoch = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)

// NtpTimestamp is an unsigned Q32.32 fixed-point value representing
// seconds since the NTP epoch. Arithmetic wraps modulo 2^64; era
// rollover is the caller's concern.
type NtpTimestamp uint64

// Sub returns t-o as a signed duration, correct across 2^64 wraparound
// because the subtraction is performed on the unsigned ticks and then
// reinterpreted as signed.
func (t NtpTimestamp) Sub(o NtpTimestamp) NtpDuration {
	return NtpDuration(int64(t - o))
}

// Add returns t shifted by d.
func (t NtpTimestamp) Add(d NtpDuration) NtpTimestamp {
	return NtpTimestamp(uint64(int64(t) + int64(d)))
}

// Less reports whether t is before o, using wraparound-aware signed
// comparison (t.Sub(o) < 0) rather than naive uint64 ordering, so a
// timestamp just after an era rollover still compares correctly against
// one just before it.
func (t NtpTimestamp) Less(o NtpTimestamp) bool {
	return t.Sub(o) < 0
}

// After reports whether t is strictly after o.
func (t NtpTimestamp) After(o NtpTimestamp) bool {
	return o.Less(t)
}

// TimestampFromFixedInt builds an NtpTimestamp directly from a raw tick
// count, mirroring the reference implementation's test-only
// from_fixed_int constructor.
func TimestampFromFixedInt(v int64) NtpTimestamp {
	return NtpTimestamp(uint64(v))
}

// TimestampFromTime converts a wall-clock time.Time into an NtpTimestamp,
// used by the system Clock adapter (internal/clock). This is not part of
// the wire codec: it never touches packet bytes, only the local
// abstraction's Now() result.
func TimestampFromTime(t time.Time) NtpTimestamp {
	since := t.Sub(ntpEpoch)
	sec := uint64(since / time.Second)
	frac := (uint64(since%time.Second) << fracBits) / uint64(time.Second)
	return NtpTimestamp(sec<<fracBits | frac)
}

// Time converts an NtpTimestamp back to a wall-clock time.Time, for
// logging and diagnostics.
func (t NtpTimestamp) Time() time.Time {
	sec := uint64(t) >> fracBits
	nsec := ((uint64(t) & (1<<fracBits - 1)) * uint64(time.Second)) >> fracBits
	return ntpEpoch.Add(time.Duration(sec)*time.Second + time.Duration(nsec))
}
