// Copyright (c) 2026 higuchi-learn / freelen
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package controls turns raw switch levels into debounced press events.
package controls

import "time"

// DefaultDebounce is the lockout after a release during which a new press is
// treated as contact bounce.
const DefaultDebounce = 30 * time.Millisecond

// Switch reports the raw level of a push button.
type Switch interface {
	Pressed() (bool, error)
}

// Button emits one event per physical press. The switch is polled once per
// call to Poll. A press is reported on the released to pressed edge, unless
// the previous release happened within the debounce window. A single down
// read is enough, so a short press seen on one tick still counts.
type Button struct {
	sw       Switch
	debounce time.Duration
	now      func() time.Time

	down     bool
	released time.Time // time of the last pressed to released edge
}

func NewButton(sw Switch, debounce time.Duration) *Button {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Button{sw: sw, debounce: debounce, now: time.Now}
}

// Poll samples the switch and returns true on the poll a press starts.
// Read errors count as released.
func (b *Button) Poll() bool {
	pressed, err := b.sw.Pressed()
	now := b.now()
	if err != nil || !pressed {
		if b.down {
			b.down = false
			b.released = now
		}
		return false
	}

	if b.down {
		return false
	}
	b.down = true
	if !b.released.IsZero() && now.Sub(b.released) <= b.debounce {
		return false
	}
	return true
}
