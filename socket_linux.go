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

//go:build linux

package icmping

import (
	"errors"
	"net/netip"
	"time"

	"golang.org/x/sys/unix"
)

// rawSocket is an AF_INET/SOCK_RAW/IPPROTO_ICMP socket. Reads return the whole
// IP datagram, writes carry the ICMP message only.
type rawSocket struct{ fd int }

func openRawConn() (rawConn, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_RAW|unix.SOCK_CLOEXEC, unix.IPPROTO_ICMP)
	if err != nil {
		return nil, err
	}
	return &rawSocket{fd: fd}, nil
}

func (s *rawSocket) SetTTL(ttl int) error {
	return unix.SetsockoptInt(s.fd, unix.IPPROTO_IP, unix.IP_TTL, ttl)
}

func (s *rawSocket) SetReadTimeout(d time.Duration) error {
	// a zero timeval disables the timeout
	if d < time.Microsecond {
		d = time.Microsecond
	}
	tv := unix.NsecToTimeval(d.Nanoseconds())
	return unix.SetsockoptTimeval(s.fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv)
}

func (s *rawSocket) SendTo(b []byte, dst netip.Addr) (int, error) {
	sa := &unix.SockaddrInet4{Addr: dst.As4()}
	for {
		err := unix.Sendto(s.fd, b, 0, sa)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return 0, err
		}
		return len(b), nil
	}
}

func (s *rawSocket) RecvFrom(b []byte) (int, error) {
	for {
		n, _, err := unix.Recvfrom(s.fd, b, 0)
		switch {
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.EAGAIN):
			return 0, ErrTimeout
		case err != nil:
			return 0, err
		}
		return n, nil
	}
}

func (s *rawSocket) Close() error { return unix.Close(s.fd) }
