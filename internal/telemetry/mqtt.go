// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTPublisher drains a Record subscription and publishes each record as
// JSON to a single topic, the way the teacher's producers publish pose and
// IMU-raw samples.
type MQTTPublisher struct {
	client mqtt.Client
	topic  string
}

// NewMQTTPublisher connects to broker and returns a publisher bound to
// topic.
func NewMQTTPublisher(broker, clientID, topic string) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions().AddBroker(broker).SetClientID(clientID)
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("telemetry: mqtt connect: %w", token.Error())
	}
	return &MQTTPublisher{client: client, topic: topic}, nil
}

// Run publishes every record received on ch until ctx is canceled.
func (p *MQTTPublisher) Run(ctx context.Context, ch <-chan Record) {
	defer p.client.Disconnect(250)
	for {
		select {
		case <-ctx.Done():
			return
		case rec := <-ch:
			payload, err := json.Marshal(rec)
			if err != nil {
				log.Printf("telemetry: mqtt: marshal record: %v", err)
				continue
			}
			p.client.Publish(p.topic, 0, false, payload)
		}
	}
}
