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
	"net/netip"
	"time"
)

// Result is one classified datagram read by Pinger.Receive.
type Result struct {
	Response Response
	TTL      uint8      // TTL of the enclosing IP header
	Len      int        // bytes received, IP header included
	From     netip.Addr // IP source address
}

func (r *Result) String() string {
	return fmt.Sprintf("From: %v, TTL: %d, Len: %d, %v", r.From, r.TTL, r.Len, r.Response)
}

// Reply is the outcome of one Attempt. Result is nil when the attempt timed out.
type Reply struct {
	Seq    uint16
	Sent   int
	Result *Result
	RTT    time.Duration
	State  State
}

func pongReply(a *Attempt, sent int, at time.Time) *Reply {
	return &Reply{Seq: a.Seq(), Sent: sent, Result: a.Result(), RTT: at.Sub(a.SentAt()), State: a.State()}
}

func timeoutReply(a *Attempt, sent int) *Reply {
	return &Reply{Seq: a.Seq(), Sent: sent, State: a.State()}
}

// Lost reports whether no usable echo reply came back.
func (r *Reply) Lost() bool {
	if r.Result == nil {
		return true
	}
	_, ok := r.Result.Response.(EchoReply)
	return !ok
}

func (r *Reply) Outcome() string {
	if r.Result == nil {
		return Outcome(nil)
	}
	return Outcome(r.Result.Response)
}

func (r *Reply) String() string {
	if r.Result == nil {
		return fmt.Sprintf("Seq: %d, Sent: %d, %v", r.Seq, r.Sent, r.State)
	}
	return fmt.Sprintf("Seq: %d, Sent: %d, Rtt: %v, %v", r.Seq, r.Sent, r.RTT, r.Result)
}
