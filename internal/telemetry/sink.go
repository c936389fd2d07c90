// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package telemetry fans out per-tick trace records to external
// collaborators (MQTT, a live websocket dashboard, an HTTP snapshot API)
// without ever blocking the control loop that produces them.
package telemetry

import (
	"log"
	"sync"
	"time"
)

// RuleTrace is one active rule's firing strength and crisp consequent,
// carried in Record.Rules when the producer fills it in; an empty Rules is
// left out of the JSON.
type RuleTrace struct {
	W float64 `json:"w"`
	Z float64 `json:"z"`
}

// Record is one tick's trace: the normalized state, the command issued, and
// optionally the rules that produced it.
type Record struct {
	Time   time.Time   `json:"time"`
	ThetaN float64     `json:"theta_n"`
	OmegaN float64     `json:"omega_n"`
	U      float64     `json:"u"`
	Rules  []RuleTrace `json:"rules,omitempty"`
}

// Sink is a fan-out point: the scheduler calls Publish once per tick, and
// any number of subscribers (MQTT publisher, websocket hub, HTTP snapshot)
// drain their own bounded channel at their own pace. A slow subscriber drops
// records instead of backpressuring the publisher.
type Sink struct {
	mu   sync.Mutex
	subs []chan Record
}

// NewSink builds an empty Sink.
func NewSink() *Sink {
	return &Sink{}
}

// Subscribe registers a new bounded channel and returns it for reading.
func (s *Sink) Subscribe(buffer int) <-chan Record {
	ch := make(chan Record, buffer)
	s.mu.Lock()
	s.subs = append(s.subs, ch)
	s.mu.Unlock()
	return ch
}

// Publish fans r out to every subscriber, dropping it for any subscriber
// whose channel is full.
func (s *Sink) Publish(r Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- r:
		default:
			log.Printf("telemetry: subscriber channel full, dropping record")
		}
	}
}
