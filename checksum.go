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

	"github.com/google/netstack/tcpip/header"
)

// Checksum returns the RFC 1071 internet checksum of b. Words are read big-endian
// and an odd trailing byte is padded with zero.
func Checksum(b []byte) uint16 { return header.Checksum(b, 0) ^ 0xffff }

// VerifyChecksum reports whether the checksum carried at offset 2 of the
// serialized ICMP message b matches its content.
func VerifyChecksum(b []byte) bool {
	if len(b) < HeaderLen {
		return false
	}
	want := binary.BigEndian.Uint16(b[2:4])
	buf := make([]byte, len(b))
	copy(buf, b)
	buf[2], buf[3] = 0, 0
	return Checksum(buf) == want
}
