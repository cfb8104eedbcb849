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

package stats

import "sync"

// Counters is a simple named-event counter map, in the same shape as
// sptp/client/stats.go's Stats type: a mutex-protected map with
// UpdateCounterBy/Get/Copy/Reset.
type Counters struct {
	mu       sync.Mutex
	counters map[string]int64
}

// NewCounters returns an empty counter set.
func NewCounters() *Counters {
	return &Counters{counters: make(map[string]int64)}
}

// UpdateCounterBy adds delta to the named counter.
func (c *Counters) UpdateCounterBy(name string, delta int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters[name] += delta
}

// Get returns the current value of the named counter.
func (c *Counters) Get(name string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counters[name]
}

// Copy returns a snapshot of all counters.
func (c *Counters) Copy() map[string]int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int64, len(c.counters))
	for k, v := range c.counters {
		out[k] = v
	}
	return out
}

// Reset clears all counters.
func (c *Counters) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters = make(map[string]int64)
}

// Well-known counter names, surfaced by the §7 error taxonomy.
const (
	CounterAccepted          = "accepted"
	CounterUnsynchronized    = "dropped.unsynchronized"
	CounterInvalidHeader     = "dropped.invalid_header"
	CounterStale             = "dropped.stale"
	CounterKissDemobilize    = "demobilized.kiss"
	CounterNetworkGone       = "demobilized.network_gone"
	CounterUnreachable       = "demobilized.unreachable"
	CounterSelectionRounds   = "selection.rounds"
	CounterSelectionNoQuorum = "selection.no_quorum"
)
