// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Hub broadcasts Records to every connected websocket client, adapted from
// the teacher's calibration-session websocket handler: accept-all origin
// check, one goroutine writing per tick, drop the client on write failure.
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]bool
}

// NewHub builds an empty Hub.
func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]bool),
	}
}

// ServeHTTP upgrades the request to a websocket and registers the
// connection for broadcast.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("telemetry: ws upgrade failed: %v", err)
		return
	}
	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()
}

// Run broadcasts every record received on ch to all connected clients until
// ctx is canceled.
func (h *Hub) Run(ctx context.Context, ch <-chan Record) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case rec := <-ch:
			h.broadcast(rec)
		}
	}
}

func (h *Hub) broadcast(rec Record) {
	payload, err := json.Marshal(rec)
	if err != nil {
		log.Printf("telemetry: ws: marshal record: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.Close()
		delete(h.clients, conn)
	}
}
