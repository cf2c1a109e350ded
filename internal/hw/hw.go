// Copyright (c) 2026 higuchi-learn / freelen
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package hw binds the controller's outputs and inputs to periph GPIO pins.
package hw

import (
	"fmt"
	"sort"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"github.com/higuchi-learn/freelen/internal/feedback"
)

// Init loads the periph host drivers. Safe to call more than once.
func Init() error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("periph host init: %w", err)
	}
	return nil
}

func lookup(name string) (gpio.PinIO, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("gpio pin %q not found", name)
	}
	return p, nil
}

// LED is an indicator driven high when on.
type LED struct {
	pin gpio.PinOut
}

func NewLED(pin gpio.PinOut) *LED { return &LED{pin: pin} }

func (l *LED) Set(on bool) error {
	return l.pin.Out(gpio.Level(on))
}

// OpenLEDs resolves an id -> pin name map and drives every LED low.
func OpenLEDs(pins map[string]string) (map[string]feedback.LED, error) {
	ids := make([]string, 0, len(pins))
	for id := range pins {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	leds := make(map[string]feedback.LED, len(pins))
	for _, id := range ids {
		p, err := lookup(pins[id])
		if err != nil {
			return nil, fmt.Errorf("led %s: %w", id, err)
		}
		if err := p.Out(gpio.Low); err != nil {
			return nil, fmt.Errorf("led %s: %w", id, err)
		}
		leds[id] = NewLED(p)
	}
	return leds, nil
}

// Buzzer is a passive piezo on a PWM capable pin, driven at 50% duty.
type Buzzer struct {
	pin gpio.PinOut
}

func NewBuzzer(pin gpio.PinOut) *Buzzer { return &Buzzer{pin: pin} }

// OpenBuzzer resolves the speaker pin and silences it.
func OpenBuzzer(name string) (*Buzzer, error) {
	p, err := lookup(name)
	if err != nil {
		return nil, fmt.Errorf("speaker: %w", err)
	}
	b := NewBuzzer(p)
	if err := b.Stop(); err != nil {
		return nil, fmt.Errorf("speaker: %w", err)
	}
	return b, nil
}

func (b *Buzzer) Start(hz int) error {
	if hz <= 0 {
		return b.Stop()
	}
	return b.pin.PWM(gpio.DutyHalf, physic.Frequency(hz)*physic.Hertz)
}

func (b *Buzzer) Stop() error {
	return b.pin.Out(gpio.Low)
}

// Switch is a push button wired to ground with the internal pull-up.
type Switch struct {
	pin gpio.PinIn
}

// OpenSwitch resolves the button pin and enables the pull-up.
func OpenSwitch(name string) (*Switch, error) {
	p, err := lookup(name)
	if err != nil {
		return nil, fmt.Errorf("button: %w", err)
	}
	return NewSwitch(p)
}

func NewSwitch(pin gpio.PinIn) (*Switch, error) {
	if err := pin.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("button: configure input: %w", err)
	}
	return &Switch{pin: pin}, nil
}

// Pressed reports whether the button currently pulls the line low.
func (s *Switch) Pressed() (bool, error) {
	return s.pin.Read() == gpio.Low, nil
}
