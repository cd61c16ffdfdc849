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
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-the-way/icmping"
	"github.com/gorilla/websocket"
)

const (
	feedWriteWait = 5 * time.Second
	feedClientBuf = 16
	feedReadLimit = 512
)

type event struct {
	Kind    string  `json:"kind"`
	Seq     uint16  `json:"seq"`
	TTL     uint8   `json:"ttl"`
	From    string  `json:"from,omitempty"`
	Bytes   int     `json:"bytes,omitempty"`
	RttMs   float64 `json:"rtt_ms,omitempty"`
	Outcome string  `json:"outcome"`
}

func replyEvent(r *icmping.Reply) *event {
	ev := &event{Kind: "reply", Seq: r.Seq, Outcome: r.Outcome()}
	if r.Result != nil {
		ev.TTL = r.Result.TTL
		ev.From = r.Result.From.String()
		ev.Bytes = r.Result.Len
		ev.RttMs = millis(r.RTT)
	}
	return ev
}

func hopEvent(h *icmping.Hop) *event {
	ev := &event{Kind: "hop", TTL: h.TTL, Outcome: icmping.Outcome(h.Response)}
	if !h.Lost() {
		ev.From = h.From.String()
		ev.RttMs = millis(h.RTT)
	}
	return ev
}

// feed broadcasts events to websocket clients. Clients that fall behind are
// disconnected. A nil *feed drops everything.
type feed struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]chan []byte
}

func newFeed() *feed {
	return &feed{clients: make(map[*websocket.Conn]chan []byte)}
}

func (f *feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debugf("%s: websocket upgrade from %s: %v", appName, r.RemoteAddr, err)
		return
	}
	defer conn.Close()
	ch := f.add(conn)

	// reads only serve control frames and notice the peer going away
	conn.SetReadLimit(feedReadLimit)
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				f.remove(conn)
				return
			}
		}
	}()

	for msg := range ch {
		_ = conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			log.Debugf("%s: websocket write to %s: %v", appName, r.RemoteAddr, err)
			f.remove(conn)
			return
		}
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(feedWriteWait))
}

func (f *feed) add(conn *websocket.Conn) chan []byte {
	ch := make(chan []byte, feedClientBuf)
	f.mu.Lock()
	f.clients[conn] = ch
	f.mu.Unlock()
	return ch
}

func (f *feed) remove(conn *websocket.Conn) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ch, ok := f.clients[conn]; ok {
		delete(f.clients, conn)
		close(ch)
	}
}

func (f *feed) publish(ev *event) {
	if f == nil {
		return
	}
	msg, err := json.Marshal(ev)
	if err != nil {
		log.Warningf("%s: encode event: %v", appName, err)
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for conn, ch := range f.clients {
		select {
		case ch <- msg:
		default:
			delete(f.clients, conn)
			close(ch)
		}
	}
}

func (f *feed) close() {
	if f == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for conn, ch := range f.clients {
		delete(f.clients, conn)
		close(ch)
	}
}
