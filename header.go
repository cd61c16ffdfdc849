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

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
)

const (
	protocolICMP = 1

	codeTTLExceeded        = 0
	codeReassemblyExceeded = 1
)

// Header is the generic view of an ICMP message: the fixed 8 bytes split into
// type, code, checksum and the 4 bytes whose meaning depends on type and code.
type Header struct {
	Type         uint8
	Code         uint8
	Checksum     uint16
	RestOfHeader uint32
	Payload      []byte

	raw []byte
}

// ParseHeader parses the ICMP message in b. The returned Header keeps its own
// copy of b.
func ParseHeader(b []byte) (*Header, error) {
	if len(b) > MaxMessageLen {
		return nil, fmt.Errorf("%w: %d bytes", ErrMessageTooLong, len(b))
	}
	if len(b) < HeaderLen {
		return nil, fmt.Errorf("%w: %d bytes", ErrMessageTooShort, len(b))
	}
	raw := append([]byte(nil), b...)
	return &Header{
		Type:         raw[0],
		Code:         raw[1],
		Checksum:     binary.BigEndian.Uint16(raw[2:4]),
		RestOfHeader: binary.BigEndian.Uint32(raw[4:8]),
		Payload:      raw[HeaderLen:],
		raw:          raw,
	}, nil
}

// Bytes returns a copy of the parsed message.
func (h *Header) Bytes() []byte { return append([]byte(nil), h.raw...) }

// Classify maps the message to one of the known responses. It never fails.
func (h *Header) Classify() Response {
	switch ipv4.ICMPType(h.Type) {
	case ipv4.ICMPTypeEchoReply:
		if h.Code != 0 {
			break
		}
		e := &Echo{
			Type:     h.Type,
			Code:     h.Code,
			Checksum: h.Checksum,
			ID:       uint16(h.RestOfHeader >> 16),
			Seq:      uint16(h.RestOfHeader),
			Payload:  h.Payload,
		}
		if !e.ValidChecksum() {
			return InvalidChecksum{Echo: e}
		}
		return EchoReply{Echo: e}
	case ipv4.ICMPTypeTimeExceeded:
		switch h.Code {
		case codeTTLExceeded:
			return TTLExceeded{Quoted: h.Payload}
		case codeReassemblyExceeded:
			return FragmentReassemblyTimeExceeded{Quoted: h.Payload}
		}
	}
	return Unknown{Type: h.Type, Code: h.Code}
}

// quotedEcho returns the identifier and sequence of the echo request quoted
// in a Time Exceeded message. ok is false when the quoted datagram is not an
// ICMP echo request.
func quotedEcho(quoted []byte) (id, seq uint16, ok bool) {
	var ip layers.IPv4
	if err := ip.DecodeFromBytes(quoted, gopacket.NilDecodeFeedback); err != nil {
		return 0, 0, false
	}
	if ip.Version != 4 || ip.Protocol != layers.IPProtocolICMPv4 {
		return 0, 0, false
	}
	msg, err := icmp.ParseMessage(protocolICMP, ip.Payload)
	if err != nil || msg.Type != ipv4.ICMPTypeEcho {
		return 0, 0, false
	}
	echo, isEcho := msg.Body.(*icmp.Echo)
	if !isEcho {
		return 0, 0, false
	}
	return uint16(echo.ID), uint16(echo.Seq), true
}
