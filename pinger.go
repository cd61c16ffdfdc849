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
	"errors"
	"fmt"
	"net/netip"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

const (
	// IPv4 header with options is at most 32 bytes here; one extra byte tells
	// an oversized datagram apart from one that fills the buffer exactly.
	maxIPHeaderLen = 32
	recvBufLen     = maxIPHeaderLen + MaxMessageLen + 1
)

var echoPayload = []byte("abcdefghijklmnopqrstuvwabcdefghi")

type rawConn interface {
	SetTTL(ttl int) error
	SetReadTimeout(d time.Duration) error
	SendTo(b []byte, dst netip.Addr) (int, error)
	RecvFrom(b []byte) (int, error)
	Close() error
}

// Prober is the part of Pinger used to drive round trips.
type Prober interface {
	ID() uint16
	Send(dst netip.Addr, seq uint16) (int, error)
	Receive() (*Result, error)
	SetReadTimeout(d time.Duration) error
}

// Pinger owns a raw ICMPv4 socket. It is not safe for concurrent use.
type Pinger struct {
	conn    rawConn
	ttl     uint8
	timeout time.Duration
	id      uint16
	buf     []byte
}

// NewPinger opens a raw ICMPv4 socket with the given TTL and read timeout.
// It needs CAP_NET_RAW. Errors are *SetupError.
func NewPinger(ttl uint8, timeout time.Duration) (*Pinger, error) {
	conn, err := openRawConn()
	if err != nil {
		return nil, &SetupError{Kind: SetupSocket, Err: err}
	}
	return newPinger(conn, ttl, timeout)
}

func newPinger(conn rawConn, ttl uint8, timeout time.Duration) (*Pinger, error) {
	fail := func(kind SetupKind, err error) (*Pinger, error) {
		_ = conn.Close()
		return nil, &SetupError{Kind: kind, Err: err}
	}
	if timeout <= 0 {
		return fail(SetupSocket, ErrInvalidTimeout)
	}
	if err := conn.SetReadTimeout(timeout); err != nil {
		return fail(SetupSocket, err)
	}
	if err := conn.SetTTL(int(ttl)); err != nil {
		return fail(SetupTTL, err)
	}
	p := &Pinger{
		conn:    conn,
		ttl:     ttl,
		timeout: timeout,
		id:      uint16(os.Getpid() & 0xffff),
		buf:     make([]byte, recvBufLen),
	}
	log.Debugf("open raw socket ttl[%d] timeout[%v] id[%d]", ttl, timeout, p.id)
	return p, nil
}

// ID is the echo identifier stamped on every request.
func (p *Pinger) ID() uint16 { return p.id }

// TTL is the time to live set on outgoing datagrams.
func (p *Pinger) TTL() uint8 { return p.ttl }

// Timeout is the read timeout currently applied to Receive.
func (p *Pinger) Timeout() time.Duration { return p.timeout }

// Send writes one echo request for seq to dst and returns the bytes written.
func (p *Pinger) Send(dst netip.Addr, seq uint16) (int, error) {
	dst = dst.Unmap()
	if !dst.Is4() {
		return 0, networkError(NetSend, fmt.Errorf("%w: destination %s", ErrIPv6Unsupported, dst))
	}
	e, err := echoRequest(p.id, seq, echoPayload)
	if err != nil {
		return 0, networkError(NetSend, err)
	}
	n, err := p.conn.SendTo(e.Bytes(), dst)
	if err != nil {
		log.Debugf("write to dstAddr[%s] ttl[%d] id[%d] seq[%d] error: %v", dst, p.ttl, p.id, seq, err)
		return n, networkError(NetSend, err)
	}
	log.Debugf("write to dstAddr[%s] ttl[%d] id[%d] seq[%d] ok len: %d", dst, p.ttl, p.id, seq, n)
	return n, nil
}

// Receive blocks for at most the read timeout and classifies the next
// datagram. Replies to other processes or earlier sequences are returned as
// they are.
func (p *Pinger) Receive() (*Result, error) {
	n, err := p.conn.RecvFrom(p.buf)
	if err != nil {
		if errors.Is(err, ErrTimeout) {
			return nil, networkError(NetTimeout, err)
		}
		return nil, networkError(NetReceive, err)
	}
	r, err := parseDatagram(p.buf[:n])
	if err != nil {
		log.Debugf("read %d bytes error: %v", n, err)
		return nil, err
	}
	log.Debugf("read from srcAddr[%s] ttl[%d] len[%d]: %v", r.From, r.TTL, r.Len, r.Response)
	return r, nil
}

// SetReadTimeout bounds every following Receive.
func (p *Pinger) SetReadTimeout(d time.Duration) error {
	if d <= 0 {
		return ErrInvalidTimeout
	}
	if err := p.conn.SetReadTimeout(d); err != nil {
		return err
	}
	p.timeout = d
	return nil
}

func (p *Pinger) Close() error { return p.conn.Close() }

// parseDatagram strips the IPv4 header from b and classifies the ICMP message
// behind it.
func parseDatagram(b []byte) (*Result, error) {
	if len(b) == 0 {
		return nil, networkError(NetMalformed, errors.New("empty datagram"))
	}
	switch version := b[0] >> 4; version {
	case 4:
	case 6:
		return nil, networkError(NetMalformed, ErrIPv6Unsupported)
	default:
		return nil, networkError(NetMalformed, fmt.Errorf("ip version %d", version))
	}
	var ip layers.IPv4
	if err := ip.DecodeFromBytes(b, gopacket.NilDecodeFeedback); err != nil {
		return nil, networkError(NetMalformed, err)
	}
	// ip.Payload stops at the total length, dropping link padding
	h, err := ParseHeader(ip.Payload)
	if err != nil {
		return nil, networkError(NetMalformed, err)
	}
	from, _ := netip.AddrFromSlice(ip.SrcIP)
	return &Result{
		Response: h.Classify(),
		TTL:      ip.TTL,
		Len:      len(b),
		From:     from.Unmap(),
	}, nil
}
