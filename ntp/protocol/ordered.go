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

import "golang.org/x/exp/constraints"

// ClampOrdered restricts v to the closed interval [lo, hi]. Shared by
// NtpDuration and anything else in this package built on an ordered
// fixed-point representation (PollScheduler clamps its poll durations
// through the Clamp wrapper around it).
func ClampOrdered[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// MaxOrdered returns the larger of two ordered values.
func MaxOrdered[T constraints.Ordered](a, b T) T {
	if a > b {
		return a
	}
	return b
}

// MinOrdered returns the smaller of two ordered values.
func MinOrdered[T constraints.Ordered](a, b T) T {
	if a < b {
		return a
	}
	return b
}
