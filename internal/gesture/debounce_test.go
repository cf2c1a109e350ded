// Copyright (c) 2026 higuchi-learn / freelen
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gesture

import (
	"testing"

	"github.com/higuchi-learn/freelen/internal/imu"
)

func TestDebouncerEmitsOnlyOnTransition(t *testing.T) {
	d := NewDebouncer(ActionStay)
	seq := []Action{ActionStay, ActionAttack, ActionAttack, ActionAttack, ActionDefend, ActionAttack, ActionAttack}
	wantChange := []bool{false, true, false, false, true, true, false}

	for i, a := range seq {
		c, changed := d.Update(a)
		if changed != wantChange[i] {
			t.Fatalf("step %d (%q): changed = %v, want %v", i, a, changed, wantChange[i])
		}
		if changed && c.To != a {
			t.Fatalf("step %d: change.To = %q, want %q", i, c.To, a)
		}
		if d.Last() != a {
			t.Fatalf("step %d: Last = %q, want %q", i, d.Last(), a)
		}
	}
}

func TestDebouncerChangeCarriesFrom(t *testing.T) {
	d := NewDebouncer(ActionCollection)
	c, changed := d.Update(ActionDefend)
	if !changed || c.From != ActionCollection || c.To != ActionDefend {
		t.Fatalf("Update = %+v, %v; want collection->defend", c, changed)
	}
}

func TestDebouncerReset(t *testing.T) {
	d := NewDebouncer(ActionFinish)
	d.Reset(ActionCollection)
	if _, changed := d.Update(ActionCollection); changed {
		t.Fatal("Update after Reset to same label should not emit")
	}
}

func TestClassifyDebounceScenario(t *testing.T) {
	rs := ledRules(t)
	samples := []imu.Sample{
		{Ax: 0, Ay: 0, Az: 0},
		{Ax: 9, Ay: 0, Az: 0},
		{Ax: 9, Ay: 0, Az: 0},
		{Ax: 0, Ay: 9, Az: 0},
	}
	prev := ActionStay
	wantLabels := []Action{prev, ActionAttack, ActionAttack, ActionStay}

	d := NewDebouncer(prev)
	var changesAt []int
	held := prev
	for i, s := range samples {
		held = Classify(s, rs, held)
		if held != wantLabels[i] {
			t.Fatalf("sample %d: label = %q, want %q", i, held, wantLabels[i])
		}
		if _, changed := d.Update(held); changed {
			changesAt = append(changesAt, i)
		}
	}
	if len(changesAt) != 2 || changesAt[0] != 1 || changesAt[1] != 3 {
		t.Fatalf("changes at %v, want [1 3]", changesAt)
	}
}
