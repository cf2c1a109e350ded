// Copyright (c) 2026 higuchi-learn / freelen
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package feedback drives the indicator LEDs and the buzzer for an action.
package feedback

import (
	"time"

	"github.com/higuchi-learn/freelen/internal/gesture"
)

// Note frequencies used by the controller melodies.
const (
	A3 = 220
	A4 = 440
	A5 = 880
)

// Tone is one step of a melody. Hz 0 is a rest.
type Tone struct {
	Hz       int
	Duration time.Duration
}

// Pattern is the LED set and melody associated with an action.
type Pattern struct {
	LEDs  []string
	Steps []Tone
	// Sustain, when non-zero, is left sounding after Steps finish until the
	// next Render or Silence.
	Sustain int
}

// Table is a read-only lookup from action to pattern.
type Table map[gesture.Action]Pattern

// Lookup returns the pattern for a; unknown actions map to a silent pattern
// with every LED off.
func (t Table) Lookup(a gesture.Action) Pattern {
	if p, ok := t[a]; ok {
		return p
	}
	return Pattern{}
}

// LEDIDs returns the set of LED ids referenced anywhere in the table.
func (t Table) LEDIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, p := range t {
		for _, id := range p.LEDs {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids
}
