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

// Package protocol holds the fixed-point time types and wire-level
// constants shared by the filter, peer, and selection packages.
package protocol

import "math"

// fracBits is the number of fractional bits in the Q32.32 representation
// shared by NtpDuration and NtpTimestamp.
const fracBits = 32

// oneTick is the raw tick count corresponding to one second.
const oneTick = int64(1) << fracBits

// NtpDuration is a signed Q32.32 fixed-point duration, in ticks of
// 2^-32 seconds. It supports ordinary Go arithmetic operators directly
// since it is a defined int64 type.
type NtpDuration int64

// Named durations from RFC 5905.
const (
	// DurationZero is the additive identity.
	DurationZero NtpDuration = 0
	// DurationOne is exactly one second.
	DurationOne NtpDuration = NtpDuration(oneTick)
	// MaxDispersion is the ceiling placed on any dispersion value (~16s).
	MaxDispersion NtpDuration = NtpDuration(16 * oneTick)
)

// MinDispersion is the RFC 5905 floor under any dispersion value (~1ms).
// It is not an exact binary fraction of a second, so it is computed at
// init time rather than declared as a const.
var MinDispersion = DurationFromSeconds(0.001)

// Phi is the assumed local-clock frequency tolerance: 15 parts per
// million, applied via MultiplyByPhi using the same integer formula as
// the reference implementation to avoid floating-point drift.
const Phi = 15e-6

// Wire-level constants from SPEC_FULL.md §6, not negotiable.
const (
	MaxStratum       uint8       = 16
	MaxDistance      NtpDuration = DurationOne
	MinPollExponent  int8        = 4
	MaxPollExponent  int8        = 17
	BurstInterval    NtpDuration = NtpDuration(2 * oneTick)
	RegisterSize     int         = 8
)

// DurationFromSeconds converts a floating-point second count to the
// nearest representable NtpDuration.
func DurationFromSeconds(s float64) NtpDuration {
	return NtpDuration(math.Round(s * float64(oneTick)))
}

// DurationFromExponent returns 2^e seconds, per the "construction from a
// signed exponent" rule used for poll intervals and packet precision.
func DurationFromExponent(e int8) NtpDuration {
	return DurationFromSeconds(math.Pow(2, float64(e)))
}

// DurationFromFixedInt builds an NtpDuration directly from a raw tick
// count. It mirrors the reference implementation's test-only
// from_fixed_int constructor, used where test vectors specify edges as
// small integers rather than as seconds.
func DurationFromFixedInt(v int64) NtpDuration {
	return NtpDuration(v)
}

// Seconds returns the duration as IEEE-754 seconds.
func (d NtpDuration) Seconds() float64 {
	return float64(d) / float64(oneTick)
}

// MulInt scales a duration by an integer factor.
func (d NtpDuration) MulInt(n int) NtpDuration {
	return NtpDuration(int64(d) * int64(n))
}

// MultiplyByPhi applies the 15ppm frequency-tolerance factor to a
// duration, using integer arithmetic ((d*15)/1_000_000) rather than
// floating point, as SPEC_FULL.md §4.1 requires.
func MultiplyByPhi(d NtpDuration) NtpDuration {
	return NtpDuration(int64(d) * 15 / 1_000_000)
}

// Max returns the larger of two durations.
func Max(a, b NtpDuration) NtpDuration {
	return MaxOrdered(a, b)
}

// Min returns the smaller of two durations.
func Min(a, b NtpDuration) NtpDuration {
	return MinOrdered(a, b)
}

// Clamp restricts v to the closed interval [lo, hi].
func Clamp(v, lo, hi NtpDuration) NtpDuration {
	return ClampOrdered(v, lo, hi)
}
