// Copyright (c) 2026 higuchi-learn / freelen
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package feedback

import (
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/higuchi-learn/freelen/internal/gesture"
)

type fakeLED struct {
	on bool
}

func (l *fakeLED) Set(on bool) error {
	l.on = on
	return nil
}

// recorder logs buzzer calls and sleeps in order.
type recorder struct {
	events   []string
	sounding bool
	overlaps int
}

func (r *recorder) Start(hz int) error {
	if r.sounding {
		r.overlaps++
	}
	r.sounding = true
	r.events = append(r.events, fmt.Sprintf("start %d", hz))
	return nil
}

func (r *recorder) Stop() error {
	r.sounding = false
	r.events = append(r.events, "stop")
	return nil
}

func (r *recorder) sleep(d time.Duration) {
	r.events = append(r.events, fmt.Sprintf("sleep %s", d))
}

func testTable() Table {
	ms := time.Millisecond
	return Table{
		gesture.ActionAttack: {
			LEDs:  []string{"attack"},
			Steps: []Tone{{A5, 30 * ms}, {0, 30 * ms}, {A5, 30 * ms}},
		},
		gesture.ActionCollection: {
			LEDs:  []string{"stay"},
			Steps: []Tone{{A4, 100 * ms}},
		},
		gesture.ActionDefend: {
			LEDs:    []string{"defend"},
			Sustain: A3,
		},
	}
}

func newTestDriver() (*Driver, *recorder, map[string]*fakeLED) {
	rec := &recorder{}
	fakes := map[string]*fakeLED{"attack": {}, "stay": {}, "defend": {}}
	leds := make(map[string]LED, len(fakes))
	for id, l := range fakes {
		leds[id] = l
	}
	d := NewDriver(testTable(), leds, rec)
	d.sleep = rec.sleep
	return d, rec, fakes
}

func TestRenderPlaysSequenceWithoutOverlap(t *testing.T) {
	d, rec, leds := newTestDriver()
	d.Render(gesture.ActionAttack)

	want := []string{
		"stop",
		"start 880", "sleep 30ms", "stop",
		"sleep 30ms", "stop",
		"start 880", "sleep 30ms", "stop",
	}
	if !reflect.DeepEqual(rec.events, want) {
		t.Fatalf("events = %v\nwant %v", rec.events, want)
	}
	if rec.overlaps != 0 {
		t.Fatalf("buzzer started %d times while already sounding", rec.overlaps)
	}
	if !leds["attack"].on || leds["stay"].on || leds["defend"].on {
		t.Fatalf("led state attack=%v stay=%v defend=%v, want only attack", leds["attack"].on, leds["stay"].on, leds["defend"].on)
	}
}

func TestRenderSustainStopsPreviousFirst(t *testing.T) {
	d, rec, leds := newTestDriver()
	d.Render(gesture.ActionDefend)
	d.Render(gesture.ActionCollection)

	if rec.overlaps != 0 {
		t.Fatalf("buzzer overlap detected: %v", rec.events)
	}
	if rec.sounding {
		t.Fatal("collection pattern should end silent")
	}
	if leds["defend"].on || !leds["stay"].on {
		t.Fatal("LEDs should follow the latest pattern")
	}
}

func TestSilence(t *testing.T) {
	d, rec, _ := newTestDriver()
	d.Render(gesture.ActionDefend)
	if !rec.sounding {
		t.Fatal("defend should sustain a tone")
	}
	d.Silence()
	if rec.sounding {
		t.Fatal("Silence should stop the tone")
	}
}

func TestRenderUnknownActionTurnsEverythingOff(t *testing.T) {
	d, rec, leds := newTestDriver()
	d.Render(gesture.ActionAttack)
	d.Render(gesture.ActionFinish)
	for id, l := range leds {
		if l.on {
			t.Fatalf("led %s still on after finish", id)
		}
	}
	if rec.sounding {
		t.Fatal("finish should be silent")
	}
}

func TestShowLEDs(t *testing.T) {
	d, _, leds := newTestDriver()
	d.ShowLEDs([]gesture.Action{gesture.ActionAttack, gesture.ActionDefend})
	if !leds["attack"].on || !leds["defend"].on || leds["stay"].on {
		t.Fatal("ShowLEDs should light exactly the listed actions")
	}
}

func TestNilBuzzer(t *testing.T) {
	d := NewDriver(testTable(), nil, nil)
	d.sleep = func(time.Duration) {}
	d.Render(gesture.ActionAttack)
	d.Silence()
}
