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

import "time"

// State is the position of an Attempt in its lifecycle.
type State int

const (
	Idle State = iota
	AwaitingReply
	Matched
	TimedOut
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingReply:
		return "awaiting reply"
	case Matched:
		return "matched"
	case TimedOut:
		return "timed out"
	}
	return "invalid"
}

// Attempt tracks one outstanding echo request until a response is accepted
// or the deadline passes.
//
//	Idle -> AwaitingReply -> Matched
//	                      -> TimedOut
//
// Echo replies, invalid checksums and Time Exceeded messages whose quoted
// request carries another identifier or sequence are dropped, as are Unknown
// messages; the raw socket sees every ICMP datagram for the host.
type Attempt struct {
	state    State
	id, seq  uint16
	sentAt   time.Time
	deadline time.Time
	result   *Result
}

func (a *Attempt) State() State        { return a.state }
func (a *Attempt) Seq() uint16         { return a.seq }
func (a *Attempt) SentAt() time.Time   { return a.sentAt }
func (a *Attempt) Deadline() time.Time { return a.deadline }
func (a *Attempt) Result() *Result     { return a.result }

// Await starts waiting for the reply to the request id/seq sent at sentAt.
// It returns false unless the attempt is Idle.
func (a *Attempt) Await(id, seq uint16, sentAt, deadline time.Time) bool {
	if a.state != Idle {
		return false
	}
	a.state = AwaitingReply
	a.id, a.seq = id, seq
	a.sentAt, a.deadline = sentAt, deadline
	return true
}

// Offer hands a received datagram to the attempt and reports whether it was
// accepted. An accepted result moves the attempt to Matched.
func (a *Attempt) Offer(r *Result) bool {
	if a.state != AwaitingReply || r == nil {
		return false
	}
	var ok bool
	switch resp := r.Response.(type) {
	case EchoReply:
		ok = a.matches(resp.Echo.ID, resp.Echo.Seq, true)
	case InvalidChecksum:
		ok = a.matches(resp.Echo.ID, resp.Echo.Seq, true)
	case TTLExceeded:
		ok = a.matches(quotedEcho(resp.Quoted))
	case FragmentReassemblyTimeExceeded:
		ok = a.matches(quotedEcho(resp.Quoted))
	}
	if !ok {
		return false
	}
	a.state = Matched
	a.result = r
	return true
}

func (a *Attempt) matches(id, seq uint16, ok bool) bool {
	return ok && id == a.id && seq == a.seq
}

// Expire moves the attempt to TimedOut once now reaches the deadline.
func (a *Attempt) Expire(now time.Time) bool {
	if a.state != AwaitingReply || now.Before(a.deadline) {
		return false
	}
	a.state = TimedOut
	return true
}

// Remaining is the time left before the deadline, zero when past it.
func (a *Attempt) Remaining(now time.Time) time.Duration {
	if d := a.deadline.Sub(now); d > 0 {
		return d
	}
	return 0
}
