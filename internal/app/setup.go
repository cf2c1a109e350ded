// Copyright (c) 2026 higuchi-learn / freelen
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/higuchi-learn/freelen/internal/config"
	"github.com/higuchi-learn/freelen/internal/controls"
	"github.com/higuchi-learn/freelen/internal/feedback"
	"github.com/higuchi-learn/freelen/internal/hw"
	"github.com/higuchi-learn/freelen/internal/imu"
	"github.com/higuchi-learn/freelen/internal/match"
	"github.com/higuchi-learn/freelen/internal/netlink"
	"github.com/higuchi-learn/freelen/internal/profile"
	"github.com/higuchi-learn/freelen/internal/sensors"
	"github.com/higuchi-learn/freelen/internal/status"
	"github.com/higuchi-learn/freelen/internal/telemetry"
)

// AutoReady presses the ready button on every tick. Used on benches without
// a button wired.
type AutoReady struct{}

func (AutoReady) Poll() bool { return true }

// closers collects cleanup functions in reverse order.
type closers []func()

func (c *closers) add(f func()) { *c = append(*c, f) }

func (c closers) run() {
	for i := len(c) - 1; i >= 0; i-- {
		c[i]()
	}
}

// RunController wires a controller from cfg and runs it until ctx is done.
// Startup failures are returned; nothing after startup is fatal.
func RunController(ctx context.Context, cfg *config.Config) error {
	var cleanup closers
	defer cleanup.run()

	p, err := profile.Resolve(cfg.Role, cfg.ProfileFile)
	if err != nil {
		return err
	}
	log.Info().Str("role", p.Name).Str("device", cfg.DeviceID).Msg("controller: profile loaded")

	needHost := cfg.SensorSource == "mpu6050" || len(cfg.LEDPins) > 0 ||
		cfg.SpeakerPin != "" || cfg.ButtonPin != "" || cfg.DisplayEnabled
	if needHost {
		if err := hw.Init(); err != nil {
			return err
		}
	}

	src, err := openSource(cfg, &cleanup)
	if err != nil {
		return err
	}

	fb, err := openFeedback(cfg, p)
	if err != nil {
		return err
	}
	cleanup.add(fb.Silence)

	deps := Deps{
		DeviceID: cfg.DeviceID,
		Profile:  p,
		Source:   src,
		Feedback: fb,
	}

	if p.Handshake {
		if cfg.ButtonPin == "" {
			log.Warn().Msg("controller: no BUTTON_PIN, readying automatically")
			deps.Button = AutoReady{}
		} else {
			sw, err := hw.OpenSwitch(cfg.ButtonPin)
			if err != nil {
				return err
			}
			deps.Button = controls.NewButton(sw, time.Duration(cfg.ButtonDebounceMs)*time.Millisecond)
		}
	}

	if cfg.DisplayEnabled {
		d, err := hw.OpenDisplay(cfg.I2CBus)
		if err != nil {
			return err
		}
		cleanup.add(func() { d.Close() })
		deps.Screen = d
	}

	if p.Networked() {
		if cfg.ServerURL == "" {
			return fmt.Errorf("role %s needs SERVER_URL", p.Name)
		}
		link := netlink.InterfaceLink{
			Name:         cfg.NetworkInterface,
			ReconnectCmd: strings.Fields(cfg.NetworkReconnectCmd),
		}
		if err := netlink.Join(ctx, link, cfg.NetworkJoinAttempts, time.Second); err != nil {
			return err
		}
		deps.Link = netlink.NewMonitor(link, time.Duration(cfg.NetworkReconnectMs)*time.Millisecond)

		method := http.MethodPost
		if p.Report == profile.ReportGet {
			method = http.MethodGet
		}
		deps.Transport = match.NewHTTPClient(cfg.ServerURL, method, time.Duration(cfg.RequestTimeoutMs)*time.Millisecond)
	}

	if cfg.MQTTBroker != "" {
		pub, err := telemetry.DialMQTT(cfg.MQTTBroker, cfg.MQTTClientID+"-"+cfg.DeviceID, cfg.TopicPrefix)
		if err != nil {
			// telemetry is optional
			log.Warn().Err(err).Msg("controller: telemetry disabled")
		} else {
			cleanup.add(pub.Close)
			deps.Telemetry = pub
		}
	}

	if cfg.StatusServerPort > 0 {
		hub := status.NewHub()
		deps.Status = hub
		go func() {
			if err := status.Serve(ctx, fmt.Sprintf(":%d", cfg.StatusServerPort), hub); err != nil {
				log.Error().Err(err).Msg("status: server stopped")
			}
		}()
	}

	c, err := NewController(deps)
	if err != nil {
		return err
	}
	return c.Run(ctx, time.Duration(cfg.TickIntervalMs)*time.Millisecond)
}

func openSource(cfg *config.Config, cleanup *closers) (imu.Source, error) {
	switch strings.ToLower(cfg.SensorSource) {
	case "mock":
		log.Info().Msg("controller: using mock accelerometer")
		return sensors.NewMockSource(), nil
	case "serial":
		s, err := sensors.OpenSerial(cfg.SerialPort, cfg.SerialBaudRate, time.Duration(cfg.SampleMaxAgeMs)*time.Millisecond)
		if err != nil {
			return nil, err
		}
		cleanup.add(func() { s.Close() })
		return s, nil
	default:
		m, err := sensors.OpenMPU6050(cfg.I2CBus, cfg.MPU6050Addr)
		if err != nil {
			return nil, err
		}
		cleanup.add(func() { m.Close() })
		return m, nil
	}
}

func openFeedback(cfg *config.Config, p *profile.Profile) (*feedback.Driver, error) {
	leds, err := hw.OpenLEDs(cfg.LEDPins)
	if err != nil {
		return nil, err
	}
	for _, id := range p.Feedback.LEDIDs() {
		if _, ok := leds[id]; !ok {
			log.Debug().Str("led", id).Msg("controller: pattern LED has no pin")
		}
	}

	var buzzer feedback.Buzzer
	if cfg.SpeakerPin != "" {
		b, err := hw.OpenBuzzer(cfg.SpeakerPin)
		if err != nil {
			return nil, err
		}
		buzzer = b
	}
	return feedback.NewDriver(p.Feedback, leds, buzzer), nil
}
