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
	"net/netip"
	"time"
)

// Session sends echo requests to one destination, one at a time, and waits
// for each reply with an Attempt.
type Session struct {
	prober       Prober
	dst          netip.Addr
	count        int
	interval     time.Duration
	timeout      time.Duration
	sendRetry    time.Duration
	seq          uint16
	stats        *Stats
	metrics      *Metrics
	replyHandler func(reply *Reply)
	now          func() time.Time
}

// NewSession returns a session of count attempts; count <= 0 runs until the
// context passed to Run is done.
func NewSession(p Prober, dst netip.Addr, count int) *Session {
	return &Session{
		prober:    p,
		dst:       dst,
		count:     count,
		interval:  time.Second,
		timeout:   time.Second,
		sendRetry: time.Second,
		stats:     &Stats{},
		now:       time.Now,
	}
}

func (s *Session) Dst() netip.Addr                     { return s.dst }
func (s *Session) Stats() *Stats                       { return s.stats }
func (s *Session) Interval(d time.Duration)            { s.interval = d }
func (s *Session) Timeout(d time.Duration)             { s.timeout = d }
func (s *Session) SendRetry(d time.Duration)           { s.sendRetry = d }
func (s *Session) Metrics(m *Metrics)                  { s.metrics = m }
func (s *Session) ReplyHandler(handler func(r *Reply)) { s.replyHandler = handler }

// Run blocks until count attempts finished or ctx is done. It returns an
// error only when the session cannot go on, e.g. for an IPv6 destination.
func (s *Session) Run(ctx context.Context) error {
	for i := 0; s.count <= 0 || i < s.count; i++ {
		if i > 0 && !sleep(ctx, s.interval) {
			return nil
		}
		reply, err := s.once(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if s.replyHandler != nil {
			s.replyHandler(reply)
		}
	}
	return nil
}

func (s *Session) once(ctx context.Context) (*Reply, error) {
	seq := s.seq
	sent, sentAt, err := s.send(ctx, seq)
	if err != nil {
		return nil, err
	}
	s.seq++
	s.stats.Send()
	s.metrics.sendOK()

	a := &Attempt{}
	a.Await(s.prober.ID(), seq, sentAt, sentAt.Add(s.timeout))
	at, err := await(ctx, s.prober, a, s.now, func(r *Result) {
		if e, ok := r.Response.(EchoReply); ok && e.Echo.ID == s.prober.ID() {
			log.Debugf("late reply seq[%d] while waiting for seq[%d]", e.Echo.Seq, seq)
			s.stats.Late()
		}
	})
	if err != nil {
		return nil, err
	}

	var reply *Reply
	if a.State() == Matched {
		reply = pongReply(a, sent, at)
	} else {
		reply = timeoutReply(a, sent)
	}
	if !reply.Lost() {
		s.stats.Recv(reply.RTT)
	}
	s.metrics.reply(reply)
	return reply, nil
}

// send writes the request for seq, retrying until it succeeds, and returns the
// bytes written and the time the successful write started.
func (s *Session) send(ctx context.Context, seq uint16) (int, time.Time, error) {
	for {
		sentAt := s.now()
		n, err := s.prober.Send(s.dst, seq)
		if err == nil {
			return n, sentAt, nil
		}
		s.metrics.sendFailed()
		if errors.Is(err, ErrIPv6Unsupported) {
			return 0, time.Time{}, err
		}
		log.Warningf("send to dstAddr[%s] seq[%d] error: %v, retry in %v", s.dst, seq, err, s.sendRetry)
		if !sleep(ctx, s.sendRetry) {
			return 0, time.Time{}, ctx.Err()
		}
	}
}

// await reads from p until a is no longer AwaitingReply. Datagrams the
// attempt rejects go to discard. The returned time is when the accepted
// datagram was read.
func await(ctx context.Context, p Prober, a *Attempt, now func() time.Time, discard func(r *Result)) (time.Time, error) {
	for {
		if err := ctx.Err(); err != nil {
			return time.Time{}, err
		}
		t := now()
		if a.Expire(t) {
			return t, nil
		}
		if err := p.SetReadTimeout(a.Remaining(t)); err != nil {
			return time.Time{}, err
		}
		r, err := p.Receive()
		t = now()
		switch {
		case errors.Is(err, ErrTimeout):
			a.Expire(a.Deadline())
			return t, nil
		case err != nil:
			log.Debugf("seq[%d] skip datagram: %v", a.Seq(), err)
		case a.Offer(r):
			return t, nil
		default:
			if discard != nil && r != nil {
				discard(r)
			}
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
