// Copyright (c) 2026 higuchi-learn / freelen
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package feedback

import (
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/higuchi-learn/freelen/internal/gesture"
)

// LED is a single on/off indicator.
type LED interface {
	Set(on bool) error
}

// Buzzer is a square-wave tone generator.
type Buzzer interface {
	Start(hz int) error
	Stop() error
}

// Driver renders patterns onto LEDs and a buzzer. Rendering blocks until the
// melody has finished.
type Driver struct {
	table  Table
	leds   map[string]LED
	order  []string
	buzzer Buzzer
	sleep  func(time.Duration)
}

// NewDriver wires a pattern table to outputs. A nil buzzer or missing LEDs
// are allowed; the corresponding output is skipped.
func NewDriver(table Table, leds map[string]LED, buzzer Buzzer) *Driver {
	order := make([]string, 0, len(leds))
	for id := range leds {
		order = append(order, id)
	}
	sort.Strings(order)
	return &Driver{
		table:  table,
		leds:   leds,
		order:  order,
		buzzer: buzzer,
		sleep:  time.Sleep,
	}
}

// Render lights the LEDs of a's pattern, turns every other LED off and plays
// the melody to completion.
func (d *Driver) Render(a gesture.Action) {
	p := d.table.Lookup(a)
	d.setLEDs(p.LEDs)

	d.stop()
	for _, step := range p.Steps {
		if step.Hz > 0 {
			d.start(step.Hz)
		}
		d.sleep(step.Duration)
		d.stop()
	}
	if p.Sustain > 0 {
		d.start(p.Sustain)
	}
}

// ShowLEDs sets exactly the LEDs belonging to the given actions.
func (d *Driver) ShowLEDs(actions []gesture.Action) {
	var ids []string
	for _, a := range actions {
		ids = append(ids, d.table.Lookup(a).LEDs...)
	}
	d.setLEDs(ids)
}

// Silence stops any sounding tone.
func (d *Driver) Silence() {
	d.stop()
}

func (d *Driver) setLEDs(on []string) {
	want := make(map[string]bool, len(on))
	for _, id := range on {
		want[id] = true
	}
	for _, id := range d.order {
		if err := d.leds[id].Set(want[id]); err != nil {
			log.Debug().Err(err).Str("led", id).Msg("feedback: led write failed")
		}
	}
}

func (d *Driver) start(hz int) {
	if d.buzzer == nil {
		return
	}
	if err := d.buzzer.Start(hz); err != nil {
		log.Debug().Err(err).Int("hz", hz).Msg("feedback: buzzer start failed")
	}
}

func (d *Driver) stop() {
	if d.buzzer == nil {
		return
	}
	if err := d.buzzer.Stop(); err != nil {
		log.Debug().Err(err).Msg("feedback: buzzer stop failed")
	}
}
