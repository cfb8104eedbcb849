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

import "github.com/facebook/ntpcore/ntp/protocol"

// OnPollCompleted is PollScheduler.on_poll_completed: it updates HostPoll
// and recomputes NextDate under normal and burst scheduling, per
// SPEC_FULL.md §4.6.
//
// The burst branch's early return on a deadline that has already passed
// is the documented source deviation (SPEC_FULL.md §9 "Known source-code
// deviation"): it skips the final floor-check below entirely, not just
// the burst bump.
func (p *State) OnPollCompleted(localClockTime protocol.NtpTimestamp, requestedPollInterval protocol.NtpDuration) {
	minPoll := protocol.DurationFromExponent(protocol.MinPollExponent)
	maxPoll := protocol.DurationFromExponent(protocol.MaxPollExponent)
	p.HostPoll = protocol.Clamp(requestedPollInterval, minPoll, maxPoll)

	if p.Burst > 0 {
		if p.NextDate.Less(localClockTime) {
			return
		}
		p.NextDate = p.NextDate.Add(protocol.BurstInterval)
	} else {
		offset := protocol.Clamp(p.HostPoll, minPoll, protocol.DurationFromExponent(p.LastHeader.Poll))
		p.NextDate = p.OutDate.Add(offset)
	}

	if p.NextDate.Less(localClockTime) {
		p.NextDate = localClockTime.Add(protocol.DurationOne)
	}
}

// OnPollSent records that a poll was just transmitted: it shifts the
// reachability register (recording a not-yet-answered attempt) and
// stamps OutDate, the anchor OnPollCompleted measures the next deadline
// from.
func (p *State) OnPollSent(localClockTime protocol.NtpTimestamp) {
	p.Reach.OnSend()
	p.OutDate = localClockTime
}
