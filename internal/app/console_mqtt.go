// Copyright (c) 2026 higuchi-learn / freelen
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/higuchi-learn/freelen/internal/config"
	"github.com/higuchi-learn/freelen/internal/telemetry"
)

// RunConsoleMQTT subscribes to every controller's action and match topics
// and prints one line per event to out until ctx is cancelled.
func RunConsoleMQTT(ctx context.Context, cfg *config.Config, out io.Writer) error {
	if cfg.MQTTBroker == "" {
		return fmt.Errorf("console: no MQTT broker configured")
	}
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientID + "-console")

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)
	log.Info().Str("broker", cfg.MQTTBroker).Msg("console: connected to MQTT broker")

	for _, kind := range []string{telemetry.KindAction, telemetry.KindMatch} {
		topic := telemetry.Topic(cfg.TopicPrefix, "+", kind)
		token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
			line, err := consoleLine(msg.Topic(), msg.Payload())
			if err != nil {
				log.Warn().Err(err).Str("topic", msg.Topic()).Msg("console: bad payload")
				return
			}
			fmt.Fprintln(out, line)
		})
		token.Wait()
		if token.Error() != nil {
			return token.Error()
		}
		log.Info().Str("topic", topic).Msg("console: subscribed")
	}

	<-ctx.Done()
	log.Info().Msg("console: shutting down")
	return nil
}

// consoleLine formats one telemetry message, picking the event type from the
// last topic segment.
func consoleLine(topic string, payload []byte) (string, error) {
	kind := topic[strings.LastIndex(topic, "/")+1:]
	switch kind {
	case telemetry.KindAction:
		var ev telemetry.ActionEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return "", err
		}
		return fmt.Sprintf("[ACT  %s] %-10s -> %-10s (%s)",
			ev.DeviceID, ev.From, ev.To, ev.State), nil
	case telemetry.KindMatch:
		var ev telemetry.MatchEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return "", err
		}
		if ev.Reply != "" {
			return fmt.Sprintf("[SRV  %s] %s", ev.DeviceID, ev.Reply), nil
		}
		return fmt.Sprintf("[MATCH %s] %s -> %s", ev.DeviceID, ev.From, ev.To), nil
	}
	return "", fmt.Errorf("unknown topic kind %q", kind)
}
