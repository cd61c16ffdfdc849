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

import "fmt"

// Response is a classified ICMP message. The set of implementations is closed:
// EchoReply, TTLExceeded, FragmentReassemblyTimeExceeded, InvalidChecksum and
// Unknown. Callers switch on the concrete type.
type Response interface {
	fmt.Stringer
	response()
}

type (
	// EchoReply is an echo reply whose checksum verified.
	EchoReply struct{ Echo *Echo }
	// TTLExceeded is Time Exceeded, code 0. Quoted holds the IP header and
	// leading bytes of the datagram that expired.
	TTLExceeded struct{ Quoted []byte }
	// FragmentReassemblyTimeExceeded is Time Exceeded, code 1.
	FragmentReassemblyTimeExceeded struct{ Quoted []byte }
	// InvalidChecksum is an echo reply whose checksum did not verify.
	InvalidChecksum struct{ Echo *Echo }
	// Unknown is every other type and code.
	Unknown struct{ Type, Code uint8 }
)

func (EchoReply) response()                      {}
func (TTLExceeded) response()                    {}
func (FragmentReassemblyTimeExceeded) response() {}
func (InvalidChecksum) response()                {}
func (Unknown) response()                        {}

func (r EchoReply) String() string {
	return "echo reply: " + r.Echo.String()
}

func (TTLExceeded) String() string {
	return "ttl exceeded"
}

func (FragmentReassemblyTimeExceeded) String() string {
	return "fragment reassembly time exceeded"
}

func (InvalidChecksum) String() string {
	return "invalid checksum"
}

func (r Unknown) String() string {
	return fmt.Sprintf("unknown type[%d] code[%d]", r.Type, r.Code)
}

// Outcome names resp for logs, metrics and feeds. A nil resp is a timeout.
func Outcome(resp Response) string {
	switch resp.(type) {
	case nil:
		return "timeout"
	case EchoReply:
		return "echo_reply"
	case TTLExceeded:
		return "ttl_exceeded"
	case FragmentReassemblyTimeExceeded:
		return "reassembly_time_exceeded"
	case InvalidChecksum:
		return "invalid_checksum"
	}
	return "unknown"
}
