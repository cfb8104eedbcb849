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

// Package clock is the "consumed from the clock abstraction" collaborator
// of SPEC_FULL.md §6: Now() only, never frequency or step control (that
// belongs to the out-of-scope clock-discipline loop).
package clock

import (
	"errors"
	"time"

	"github.com/facebook/ntpcore/ntp/protocol"
)

// ErrUnavailable is the ClockError of SPEC_FULL.md §7: fatal to the
// daemon, since a poll cannot stamp its origin timestamp without it.
var ErrUnavailable = errors.New("clock: local clock is unavailable")

// Clock is the collaborator interface the core reads the local time
// through.
type Clock interface {
	Now() (protocol.NtpTimestamp, error)
}

// System is the production Clock, backed by time.Now().
type System struct{}

// Now returns the current wall-clock time as an NtpTimestamp.
func (System) Now() (protocol.NtpTimestamp, error) {
	return protocol.TimestampFromTime(time.Now()), nil
}
