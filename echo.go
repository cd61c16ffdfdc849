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
	"encoding/binary"
	"fmt"

	"golang.org/x/net/ipv4"
)

const (
	// HeaderLen is the length of the fixed ICMP header.
	HeaderLen = 8
	// MaxMessageLen is the largest ICMP datagram accepted, see RFC 1812 section 4.3.
	MaxMessageLen = 576
	// MaxPayloadLen leaves room for the header inside MaxMessageLen.
	MaxPayloadLen = MaxMessageLen - HeaderLen
)

// Echo is an ICMPv4 Echo or Echo Reply message (RFC 792).
type Echo struct {
	Type     uint8
	Code     uint8
	Checksum uint16
	ID       uint16
	Seq      uint16
	Payload  []byte
}

// NewEcho builds an echo message and fills its checksum.
func NewEcho(typ, code uint8, id, seq uint16, payload []byte) (*Echo, error) {
	if len(payload) > MaxPayloadLen {
		return nil, fmt.Errorf("%w: %d bytes", ErrPayloadTooLong, len(payload))
	}
	e := &Echo{
		Type:    typ,
		Code:    code,
		ID:      id,
		Seq:     seq,
		Payload: append([]byte(nil), payload...),
	}
	e.Checksum = e.sum()
	return e, nil
}

func echoRequest(id, seq uint16, payload []byte) (*Echo, error) {
	return NewEcho(uint8(ipv4.ICMPTypeEcho), 0, id, seq, payload)
}

// Bytes returns the wire form of the message.
//
// The checksum bytes are the big-endian encoding of the one's-complement sum.
// Older builds of this tool read and wrote the field with the host byte order
// on both sides, which cancels out; the bytes on the wire are the same.
func (e *Echo) Bytes() []byte {
	b := make([]byte, HeaderLen+len(e.Payload))
	e.put(b, e.Checksum)
	return b
}

// ValidChecksum recomputes the checksum and compares it with e.Checksum.
func (e *Echo) ValidChecksum() bool { return e.sum() == e.Checksum }

func (e *Echo) sum() uint16 {
	b := make([]byte, HeaderLen+len(e.Payload))
	e.put(b, 0)
	return Checksum(b)
}

func (e *Echo) put(b []byte, checksum uint16) {
	b[0] = e.Type
	b[1] = e.Code
	binary.BigEndian.PutUint16(b[2:4], checksum)
	binary.BigEndian.PutUint16(b[4:6], e.ID)
	binary.BigEndian.PutUint16(b[6:8], e.Seq)
	copy(b[HeaderLen:], e.Payload)
}

func (e *Echo) String() string {
	return fmt.Sprintf("Type: %d, Code: %d, Checksum: %#04x, ID: %d, Seq: %d, Len: %d",
		e.Type, e.Code, e.Checksum, e.ID, e.Seq, len(e.Payload))
}
