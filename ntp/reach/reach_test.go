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

package reach

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegisterZeroValueUnreachable(t *testing.T) {
	var r Register
	require.False(t, r.IsReachable())
}

func TestRegisterReceiveMakesReachable(t *testing.T) {
	var r Register
	r.OnSend()
	r.OnReceive()
	require.True(t, r.IsReachable())
}

// TestRegisterMonotonicity is invariant 3: the peer is reachable iff at
// least one of the last eight send/receive events was an OnReceive;
// eight consecutive unanswered sends shift every trace of that receipt
// out of the register.
func TestRegisterMonotonicity(t *testing.T) {
	var r Register
	r.OnSend()
	r.OnReceive()
	require.True(t, r.IsReachable())

	for i := 0; i < 7; i++ {
		r.OnSend()
		require.Truef(t, r.IsReachable(), "still reachable after %d silent sends", i+1)
	}

	r.OnSend()
	require.False(t, r.IsReachable())
}

func TestRegisterAllSilence(t *testing.T) {
	var r Register
	for i := 0; i < 20; i++ {
		r.OnSend()
	}
	require.False(t, r.IsReachable())
}
