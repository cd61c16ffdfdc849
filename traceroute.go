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
	"fmt"
	"net/netip"
	"time"
)

// ProbeCloser is a Prober that owns its socket.
type ProbeCloser interface {
	Prober
	Close() error
}

// Opener creates a prober whose datagrams leave with the given TTL.
type Opener func(ttl uint8, timeout time.Duration) (ProbeCloser, error)

func openPinger(ttl uint8, timeout time.Duration) (ProbeCloser, error) {
	p, err := NewPinger(ttl, timeout)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Hop is the answer to the echo request sent with one TTL. Response is nil
// when nothing came back in time.
type Hop struct {
	TTL      uint8
	From     netip.Addr
	RTT      time.Duration
	Response Response
}

func (h *Hop) Lost() bool { return h.Response == nil }

func (h *Hop) String() string {
	if h.Lost() {
		return fmt.Sprintf("TTL: %d, *", h.TTL)
	}
	return fmt.Sprintf("TTL: %d, Addr: %v, Rtt: %v, %v", h.TTL, h.From, h.RTT, h.Response)
}

// Traceroute walks the path to dst by raising the TTL one hop at a time until
// the destination answers with an echo reply.
type Traceroute struct {
	dst        netip.Addr
	maxTTL     uint8
	timeout    time.Duration
	open       Opener
	hopHandler func(hop *Hop)
	now        func() time.Time
}

// NewTraceroute returns a traceroute to dst probing at most maxTTL hops, one
// second per hop.
func NewTraceroute(dst netip.Addr, maxTTL uint8) *Traceroute {
	return &Traceroute{
		dst:     dst,
		maxTTL:  maxTTL,
		timeout: time.Second,
		open:    openPinger,
		now:     time.Now,
	}
}

func (tr *Traceroute) Dst() netip.Addr                   { return tr.dst }
func (tr *Traceroute) Timeout(d time.Duration)           { tr.timeout = d }
func (tr *Traceroute) Opener(open Opener)                { tr.open = open }
func (tr *Traceroute) HopHandler(handler func(hop *Hop)) { tr.hopHandler = handler }

// Run probes TTL 1 to maxTTL and stops early once dst replied.
func (tr *Traceroute) Run(ctx context.Context) error {
	for ttl := 1; ttl <= int(tr.maxTTL); ttl++ {
		if ctx.Err() != nil {
			return nil
		}
		hop, err := tr.probe(ctx, uint8(ttl))
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if tr.hopHandler != nil {
			tr.hopHandler(hop)
		}
		if _, ok := hop.Response.(EchoReply); ok {
			return nil
		}
	}
	return nil
}

func (tr *Traceroute) probe(ctx context.Context, ttl uint8) (*Hop, error) {
	p, err := tr.open(ttl, tr.timeout)
	if err != nil {
		return nil, err
	}
	defer p.Close()

	seq := uint16(ttl)
	sentAt := tr.now()
	if _, err := p.Send(tr.dst, seq); err != nil {
		return nil, err
	}
	a := &Attempt{}
	a.Await(p.ID(), seq, sentAt, sentAt.Add(tr.timeout))
	at, err := await(ctx, p, a, tr.now, func(r *Result) {
		log.Debugf("ttl[%d] skip %v from %s", ttl, r.Response, r.From)
	})
	if err != nil {
		return nil, err
	}

	hop := &Hop{TTL: ttl}
	if r := a.Result(); r != nil {
		hop.From = r.From
		hop.RTT = at.Sub(sentAt)
		hop.Response = r.Response
	}
	return hop, nil
}
