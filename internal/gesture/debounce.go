// Copyright (c) 2026 higuchi-learn / freelen
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gesture

// Change is emitted when the reported action moves to a new label.
type Change struct {
	From Action `json:"from"`
	To   Action `json:"to"`
}

// Debouncer suppresses repeated labels. It compares against the last
// reported label, not the last sampled one.
type Debouncer struct {
	last Action
}

func NewDebouncer(initial Action) *Debouncer {
	return &Debouncer{last: initial}
}

// Update returns a change iff a differs from the last reported label.
func (d *Debouncer) Update(a Action) (Change, bool) {
	if a == d.last {
		return Change{}, false
	}
	c := Change{From: d.last, To: a}
	d.last = a
	return c, true
}

// Last returns the last reported label.
func (d *Debouncer) Last() Action { return d.last }

// Reset re-seeds the reported label without emitting a change.
func (d *Debouncer) Reset(a Action) { d.last = a }
