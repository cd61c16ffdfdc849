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
)

var (
	// ErrPayloadTooLong rejects echo payloads that do not fit MaxMessageLen.
	ErrPayloadTooLong = errors.New("echo payload over 568 bytes")

	// ErrMessageTooShort and ErrMessageTooLong bound a parseable ICMP message.
	ErrMessageTooShort = errors.New("icmp message shorter than 8 bytes")
	ErrMessageTooLong  = errors.New("icmp message over 576 bytes")

	// ErrTimeout is a read that ended at the socket's read timeout.
	ErrTimeout = errors.New("read timeout")

	ErrIPv6Unsupported = errors.New("ipv6 is not implemented")
	ErrInvalidTimeout  = errors.New("timeout must be positive")
	ErrUnsupported     = errors.New("raw icmp sockets are not supported on this platform")
)

// SetupKind names the step of Pinger creation that failed.
type SetupKind int

const (
	SetupSocket SetupKind = iota
	SetupTTL
)

func (k SetupKind) String() string {
	switch k {
	case SetupSocket:
		return "socket creation"
	case SetupTTL:
		return "ttl setup"
	}
	return "setup"
}

// SetupError is returned when a Pinger cannot be created. It is not retryable;
// both kinds usually mean missing privileges or platform support.
type SetupError struct {
	Kind SetupKind
	Err  error
}

func (e *SetupError) Error() string { return fmt.Sprintf("%s: %v", e.Kind, e.Err) }
func (e *SetupError) Unwrap() error { return e.Err }

// NetworkKind classifies a NetworkError.
type NetworkKind int

const (
	NetSend NetworkKind = iota
	NetReceive
	NetTimeout
	NetMalformed
)

func (k NetworkKind) String() string {
	switch k {
	case NetSend:
		return "send"
	case NetReceive:
		return "receive"
	case NetTimeout:
		return "receive timeout"
	case NetMalformed:
		return "invalid ip packet"
	}
	return "network"
}

// NetworkError is a failed send or receive. The caller decides whether to retry.
type NetworkError struct {
	Kind NetworkKind
	Err  error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("%s: %v", e.Kind, e.Err) }
func (e *NetworkError) Unwrap() error { return e.Err }

// Timeout reports whether no datagram arrived before the read timeout.
func (e *NetworkError) Timeout() bool { return e.Kind == NetTimeout }

func networkError(kind NetworkKind, err error) error { return &NetworkError{Kind: kind, Err: err} }
