// Copyright (c) 2026 higuchi-learn / freelen
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package telemetry publishes controller events to MQTT for bench consoles.
package telemetry

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"
)

// Topic kinds under <prefix>/<deviceId>/.
const (
	KindAction = "action"
	KindMatch  = "match"
)

// ActionEvent is published when the held action changes.
type ActionEvent struct {
	DeviceID string    `json:"deviceId"`
	From     string    `json:"from"`
	To       string    `json:"to"`
	State    string    `json:"state"`
	Time     time.Time `json:"time"`
}

// MatchEvent is published when the match state changes or the server
// answers with a status text.
type MatchEvent struct {
	DeviceID string    `json:"deviceId"`
	From     string    `json:"from"`
	To       string    `json:"to"`
	Reply    string    `json:"reply,omitempty"`
	Time     time.Time `json:"time"`
}

// Publisher receives controller events. Implementations must not block the
// caller for long.
type Publisher interface {
	Action(ev ActionEvent)
	Match(ev MatchEvent)
	Close()
}

// Nop discards everything.
type Nop struct{}

func (Nop) Action(ActionEvent) {}
func (Nop) Match(MatchEvent)   {}
func (Nop) Close()             {}

// Topic builds <prefix>/<deviceID>/<kind>.
func Topic(prefix, deviceID, kind string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return deviceID + "/" + kind
	}
	return prefix + "/" + deviceID + "/" + kind
}

// MQTT publishes retained QoS 0 JSON messages.
type MQTT struct {
	prefix  string
	publish func(topic string, payload []byte) error
	close   func()
}

// DefaultPublishTimeout bounds how long one publish may hold up a tick.
const DefaultPublishTimeout = 200 * time.Millisecond

// DialMQTT connects to broker and returns a publisher.
func DialMQTT(broker, clientID, prefix string) (*MQTT, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.WaitTimeout(5*time.Second) && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", broker, token.Error())
	}
	log.Info().Str("broker", broker).Str("client", clientID).Msg("telemetry: connected to MQTT broker")

	return &MQTT{
		prefix: prefix,
		publish: func(topic string, payload []byte) error {
			token := client.Publish(topic, 0, true, payload)
			if !token.WaitTimeout(DefaultPublishTimeout) {
				return fmt.Errorf("publish %s: timed out", topic)
			}
			return token.Error()
		},
		close: func() { client.Disconnect(250) },
	}, nil
}

func (m *MQTT) Action(ev ActionEvent) { m.send(Topic(m.prefix, ev.DeviceID, KindAction), ev) }
func (m *MQTT) Match(ev MatchEvent)   { m.send(Topic(m.prefix, ev.DeviceID, KindMatch), ev) }

func (m *MQTT) Close() {
	if m.close != nil {
		m.close()
	}
}

func (m *MQTT) send(topic string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		log.Warn().Err(err).Str("topic", topic).Msg("telemetry: marshal error")
		return
	}
	if err := m.publish(topic, payload); err != nil {
		log.Warn().Err(err).Str("topic", topic).Msg("telemetry: publish error")
	}
}
