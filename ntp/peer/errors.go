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

package peer

import "errors"

// IgnoreReason is returned by Ingest when a packet is dropped before it
// ever reaches the filter. Both values are local conditions: the peer
// keeps operating, only the sample is discarded.
var (
	// ErrUnsynchronized is returned when the incoming header's leap
	// indicator is Unknown, or its stratum is at or past MaxStratum.
	ErrUnsynchronized = errors.New("peer: incoming packet is not synchronized")
	// ErrInvalidHeader is returned when the header fails the
	// packet-dispersion or reference-timestamp sanity check.
	ErrInvalidHeader = errors.New("peer: incoming packet failed header sanity check")
)
