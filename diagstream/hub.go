// Copyright 2026 The Timepace Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package diagstream fans an interp.Interpolator's diagnostic events out to
// any number of connected websocket clients, for a live dashboard.
package diagstream

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/streamforge/timepace/interp"
)

const pingPeriod = 30 * time.Second

// Event is one diagnostic occurrence, JSON-encoded onto the feed.
type Event struct {
	Type   string         `json:"type"`
	At     time.Time      `json:"at"`
	Fields map[string]any `json:"fields,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Hub is both an interp.Diagnostics implementation and an http.Handler
// that upgrades incoming requests to websocket clients of the feed.
type Hub struct {
	log *zap.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *client) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// NewHub builds a Hub. log must not be nil.
func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		log:     log.Named("diagstream"),
		clients: make(map[*client]struct{}),
	}
}

// ServeHTTP upgrades the request to a websocket connection and registers it
// as a feed client until it disconnects or a write to it fails.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{conn: conn}
	conn.SetPingHandler(func(string) error {
		return c.writeJSON(map[string]string{"type": "pong"})
	})

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go h.readLoop(c)
	go h.pingLoop(c)
}

// pingLoop sends periodic pings so a dead client is detected even if it
// never sends its own diagnostic-triggering traffic.
func (h *Hub) pingLoop(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for range ticker.C {
		c.mu.Lock()
		err := c.conn.WriteMessage(websocket.PingMessage, nil)
		c.mu.Unlock()
		if err != nil {
			h.remove(c)
			return
		}
	}
}

// readLoop keeps the connection's read side draining so ping/pong control
// frames are processed, and deregisters the client once the peer goes
// away, mirroring the teacher's websocket sink read-loop pattern.
func (h *Hub) readLoop(c *client) {
	defer h.remove(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	_ = c.conn.Close()
}

func (h *Hub) broadcast(evt Event) {
	h.mu.Lock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.Unlock()

	for _, c := range targets {
		if err := c.writeJSON(evt); err != nil {
			h.remove(c)
		}
	}
}

func (h *Hub) StateChange(from, to interp.State) {
	h.broadcast(Event{
		Type: "state_change",
		At:   time.Now(),
		Fields: map[string]any{
			"from": from.String(),
			"to":   to.String(),
		},
	})
}

func (h *Hub) RewindWarning(computed, last int64) {
	h.broadcast(Event{
		Type: "rewind_warning",
		At:   time.Now(),
		Fields: map[string]any{
			"computed": computed,
			"last":     last,
		},
	})
}

func (h *Hub) Underrun(readPointer int64) {
	h.broadcast(Event{
		Type: "underrun",
		At:   time.Now(),
		Fields: map[string]any{
			"readPointer": readPointer,
		},
	})
}

func (h *Hub) Overrun(newPos0 int64) {
	h.broadcast(Event{
		Type: "overrun",
		At:   time.Now(),
		Fields: map[string]any{
			"newPos0": newPos0,
		},
	})
}
