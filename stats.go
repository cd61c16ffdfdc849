// Copyright 2025 icmping Author. All Rights Reserved.
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//      http://www.apache.org/licenses/LICENSE-2.0
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package icmping

import (
	"fmt"
	"sync"
	"time"
)

// Stats accumulates the outcome of a ping session.
type Stats struct {
	mu       sync.Mutex
	tx       uint
	rx       uint
	late     uint
	rtt      time.Duration
	avgRtt   time.Duration
	min, max time.Duration
}

// Send counts an echo request on the wire.
func (s *Stats) Send() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tx++
}

// Recv counts a matched echo reply.
func (s *Stats) Recv(rtt time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rx++
	s.rtt = rtt
	if s.rx == 1 {
		s.avgRtt, s.min, s.max = rtt, rtt, rtt
		return
	}
	s.avgRtt += (rtt - s.avgRtt) / time.Duration(s.rx)
	if rtt < s.min {
		s.min = rtt
	}
	if rtt > s.max {
		s.max = rtt
	}
}

// Late counts an echo reply that arrived for an earlier sequence.
func (s *Stats) Late() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.late++
}

func (s *Stats) Tx() uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx
}

func (s *Stats) Rx() uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rx
}

func (s *Stats) Lost() uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx - s.rx
}

func (s *Stats) LateReplies() uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.late
}

// Loss returns the lost fraction of sent requests.
func (s *Stats) Loss() float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tx == 0 {
		return 0
	}
	return float32(s.tx-s.rx) / float32(s.tx)
}

// Latency returns the running average round trip time.
func (s *Stats) Latency() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.avgRtt
}

func (s *Stats) Min() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.min
}

func (s *Stats) Max() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.max
}

// Rtt returns the last round trip time.
func (s *Stats) Rtt() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rtt
}

func (s *Stats) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fmt.Sprintf("tx=%d, rx=%d, late=%d, rtt=%s, avgRtt=%s", s.tx, s.rx, s.late, s.rtt, s.avgRtt)
}
