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
	"context"
	"errors"
	"fmt"
	"net/netip"
	"syscall"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

type step struct {
	r   *Result
	err error
}

// fakeProber answers every request with the steps script returns for its
// sequence number, then times out.
type fakeProber struct {
	id       uint16
	sendErrs []error
	sent     []uint16
	script   func(seq uint16) []step
	queue    []step
	timeouts []time.Duration
	closed   bool
	onSend   func()
}

func (p *fakeProber) ID() uint16 { return p.id }

func (p *fakeProber) Send(dst netip.Addr, seq uint16) (int, error) {
	if len(p.sendErrs) > 0 {
		err := p.sendErrs[0]
		p.sendErrs = p.sendErrs[1:]
		if err != nil {
			return 0, networkError(NetSend, err)
		}
	}
	if p.onSend != nil {
		p.onSend()
	}
	p.sent = append(p.sent, seq)
	if p.script != nil {
		p.queue = p.script(seq)
	}
	return HeaderLen + len(echoPayload), nil
}

func (p *fakeProber) Receive() (*Result, error) {
	if len(p.queue) == 0 {
		return nil, networkError(NetTimeout, ErrTimeout)
	}
	s := p.queue[0]
	p.queue = p.queue[1:]
	return s.r, s.err
}

func (p *fakeProber) SetReadTimeout(d time.Duration) error {
	if d <= 0 {
		return ErrInvalidTimeout
	}
	p.timeouts = append(p.timeouts, d)
	return nil
}

func (p *fakeProber) Close() error {
	p.closed = true
	return nil
}

var testDst = netip.MustParseAddr("192.0.2.1")

func runSession(t *testing.T, p *fakeProber, count int) []*Reply {
	t.Helper()
	s := NewSession(p, testDst, count)
	s.Interval(0)
	s.Timeout(50 * time.Millisecond)
	s.SendRetry(time.Millisecond)
	var replies []*Reply
	s.ReplyHandler(func(r *Reply) { replies = append(replies, r) })
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return replies
}

func TestSessionMatchesSequence(t *testing.T) {
	p := &fakeProber{id: 42}
	p.script = func(seq uint16) []step {
		return []step{
			{r: echoResult(42, seq-1, "192.0.2.1")},
			{r: echoResult(43, seq, "192.0.2.1")},
			{err: networkError(NetMalformed, ErrIPv6Unsupported)},
			{r: responseResult(Unknown{Type: 8}, "192.0.2.1")},
			{r: echoResult(42, seq, "192.0.2.1")},
		}
	}
	s := NewSession(p, testDst, 3)
	s.Interval(0)
	s.Timeout(time.Second)
	var replies []*Reply
	s.ReplyHandler(func(r *Reply) { replies = append(replies, r) })
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if diff := cmp.Diff([]uint16{0, 1, 2}, p.sent); diff != "" {
		t.Fatalf("sent sequences (-want +got):\n%s", diff)
	}
	if len(replies) != 3 {
		t.Fatalf("%d replies", len(replies))
	}
	for i, r := range replies {
		if r.Seq != uint16(i) || r.State != Matched || r.Lost() || r.Outcome() != "echo_reply" {
			t.Fatalf("reply %d: %v", i, r)
		}
		if e := r.Result.Response.(EchoReply).Echo; e.Seq != uint16(i) || e.ID != 42 {
			t.Fatalf("reply %d carries echo %v", i, e)
		}
	}
	st := s.Stats()
	if st.Tx() != 3 || st.Rx() != 3 || st.Lost() != 0 || st.LateReplies() != 3 {
		t.Fatalf("stats %v", st)
	}
	for _, d := range p.timeouts {
		if d <= 0 || d > time.Second {
			t.Fatalf("read timeout %v outside the attempt window", d)
		}
	}
}

func TestSessionTimeout(t *testing.T) {
	p := &fakeProber{id: 1}
	replies := runSession(t, p, 2)
	if len(replies) != 2 {
		t.Fatalf("%d replies", len(replies))
	}
	for _, r := range replies {
		if r.State != TimedOut || r.Result != nil || !r.Lost() || r.Outcome() != "timeout" {
			t.Fatalf("reply %v", r)
		}
	}
}

func TestSessionNegativeResponse(t *testing.T) {
	p := &fakeProber{id: 1}
	p.script = func(seq uint16) []step {
		return []step{{r: responseResult(TTLExceeded{Quoted: quoteRequest(1, seq)}, "10.0.0.1")}}
	}
	s := NewSession(p, testDst, 1)
	s.Interval(0)
	var got *Reply
	s.ReplyHandler(func(r *Reply) { got = r })
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got == nil || got.State != Matched || !got.Lost() || got.Outcome() != "ttl_exceeded" {
		t.Fatalf("reply %v", got)
	}
	if st := s.Stats(); st.Tx() != 1 || st.Rx() != 0 || st.Loss() != 1 {
		t.Fatalf("stats %v", st)
	}
}

func TestSessionRTTIncludesSend(t *testing.T) {
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p := &fakeProber{id: 5}
	p.onSend = func() { clock = clock.Add(3 * time.Millisecond) }
	p.script = func(seq uint16) []step {
		return []step{{r: echoResult(5, seq, "192.0.2.1")}}
	}
	s := NewSession(p, testDst, 1)
	s.now = func() time.Time { return clock }
	var got *Reply
	s.ReplyHandler(func(r *Reply) { got = r })
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got == nil || got.RTT != 3*time.Millisecond {
		t.Fatalf("reply %v", got)
	}
	if s.Stats().Rtt() != 3*time.Millisecond {
		t.Fatalf("stats %v", s.Stats())
	}
}

func TestSessionSendRetry(t *testing.T) {
	p := &fakeProber{id: 1, sendErrs: []error{syscall.ENOBUFS, syscall.ENOBUFS, nil}}
	replies := runSession(t, p, 1)
	if len(replies) != 1 || len(p.sent) != 1 || p.sent[0] != 0 {
		t.Fatalf("replies %d, sent %v", len(replies), p.sent)
	}
}

func TestSessionIPv6Fails(t *testing.T) {
	p := &fakeProber{id: 1, sendErrs: []error{fmt.Errorf("%w: destination ::1", ErrIPv6Unsupported)}}
	s := NewSession(p, testDst, 1)
	if err := s.Run(context.Background()); !errors.Is(err, ErrIPv6Unsupported) {
		t.Fatalf("err = %v", err)
	}
}

func TestSessionContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := &fakeProber{id: 1, sendErrs: []error{syscall.ENOBUFS}}
	s := NewSession(p, testDst, 0)
	called := false
	s.ReplyHandler(func(r *Reply) { called = true })

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
	if called {
		t.Fatal("reply handler called after cancel")
	}
}
