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

package main

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"net/netip"
	"strings"
	"testing"
	"time"

	"github.com/go-the-way/icmping"
	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"
)

var dst = netip.MustParseAddr("192.0.2.1")

func echoReply(seq uint16) *icmping.Reply {
	return &icmping.Reply{
		Seq: seq,
		Result: &icmping.Result{
			Response: icmping.EchoReply{Echo: &icmping.Echo{ID: 1, Seq: seq}},
			TTL:      57,
			Len:      60,
			From:     dst,
		},
		RTT:   1500 * time.Microsecond,
		State: icmping.Matched,
	}
}

func TestDescribeReply(t *testing.T) {
	router := netip.MustParseAddr("10.0.0.1")
	for _, tc := range []struct {
		reply *icmping.Reply
		want  string
	}{
		{echoReply(3), "60 bytes from 192.0.2.1: icmp_seq=3 ttl=57 time=1.500 ms"},
		{&icmping.Reply{Seq: 4, State: icmping.TimedOut}, "Request timeout for icmp_seq=4"},
		{
			&icmping.Reply{Seq: 5, Result: &icmping.Result{Response: icmping.TTLExceeded{}, From: router}},
			"From 10.0.0.1 icmp_seq=5: got response, but was a TTL exceeded one",
		},
		{
			&icmping.Reply{Seq: 6, Result: &icmping.Result{Response: icmping.Unknown{Type: 3, Code: 1}, From: router}},
			"From 10.0.0.1 icmp_seq=6: got response, but was an unknown packet type",
		},
	} {
		if got := describeReply(tc.reply, dst); got != tc.want {
			t.Errorf("describeReply(%d) = %q, want %q", tc.reply.Seq, got, tc.want)
		}
	}
}

func TestEvents(t *testing.T) {
	got := replyEvent(echoReply(9))
	want := &event{Kind: "reply", Seq: 9, TTL: 57, From: "192.0.2.1", Bytes: 60, RttMs: 1.5, Outcome: "echo_reply"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("replyEvent (-want +got):\n%s", diff)
	}

	got = hopEvent(&icmping.Hop{TTL: 4})
	want = &event{Kind: "hop", TTL: 4, Outcome: "timeout"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("hopEvent (-want +got):\n%s", diff)
	}
}

func TestSummary(t *testing.T) {
	var st icmping.Stats
	st.Send()
	st.Recv(2 * time.Millisecond)
	st.Send()

	var buf bytes.Buffer
	printSummary(&buf, "example.org", &st)
	out := buf.String()
	for _, s := range []string{"--- example.org ping statistics ---", "50.0%", "2.000 ms"} {
		if !strings.Contains(out, s) {
			t.Fatalf("summary misses %q:\n%s", s, out)
		}
	}
}

func TestFeed(t *testing.T) {
	f := newFeed()
	srv := httptest.NewServer(f)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(5 * time.Second)
	for {
		f.mu.Lock()
		n := len(f.clients)
		f.mu.Unlock()
		if n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	f.publish(replyEvent(echoReply(2)))
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var ev event
	if err := json.Unmarshal(msg, &ev); err != nil {
		t.Fatalf("decode %s: %v", msg, err)
	}
	if ev.Kind != "reply" || ev.Seq != 2 || ev.Outcome != "echo_reply" {
		t.Fatalf("event %+v", ev)
	}

	f.close()
	if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Fatalf("after close: %v", err)
	}

	var nilFeed *feed
	nilFeed.publish(&event{})
	nilFeed.close()
}
