// Copyright (c) 2026 higuchi-learn / freelen
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gesture

import (
	"fmt"

	"github.com/higuchi-learn/freelen/internal/imu"
)

// Rule maps one axis to an action. The axis is a candidate when the sample
// magnitude on it is strictly above Threshold, in either direction.
type Rule struct {
	Axis      Axis
	Threshold float64 // m/s²
	Action    Action
	// Negative, when set, replaces Action on the negative side only.
	Negative Action
}

// Rules holds at most one rule per axis.
type Rules struct {
	byAxis [3]*Rule
}

// NewRules validates and indexes the given rules.
func NewRules(rules ...Rule) (Rules, error) {
	var rs Rules
	for i := range rules {
		r := rules[i]
		if r.Axis < AxisX || r.Axis > AxisZ {
			return Rules{}, fmt.Errorf("rule %d: invalid axis %d", i, r.Axis)
		}
		if rs.byAxis[r.Axis] != nil {
			return Rules{}, fmt.Errorf("rule %d: duplicate rule for axis %s", i, r.Axis)
		}
		if r.Threshold <= 0 {
			return Rules{}, fmt.Errorf("rule %d: threshold must be > 0, got %v", i, r.Threshold)
		}
		if r.Action == ActionNone {
			return Rules{}, fmt.Errorf("rule %d: axis %s has no action", i, r.Axis)
		}
		rs.byAxis[r.Axis] = &r
	}
	return rs, nil
}

// Rule returns the rule for an axis, if any.
func (rs Rules) Rule(a Axis) (Rule, bool) {
	if a < AxisX || a > AxisZ || rs.byAxis[a] == nil {
		return Rule{}, false
	}
	return *rs.byAxis[a], true
}

// Actions lists every action the rules can produce, in axis order.
func (rs Rules) Actions() []Action {
	var out []Action
	for _, ax := range axisOrder {
		r := rs.byAxis[ax]
		if r == nil {
			continue
		}
		out = append(out, r.Action)
		if r.Negative != ActionNone {
			out = append(out, r.Negative)
		}
	}
	return out
}

func component(s imu.Sample, a Axis) float64 {
	switch a {
	case AxisX:
		return s.Ax
	case AxisY:
		return s.Ay
	default:
		return s.Az
	}
}

// Classify returns the action for one sample. Axes are checked x, y, z and
// every axis over its threshold overwrites the result, so the last one wins.
// When no axis fires the previous action is returned unchanged.
func Classify(s imu.Sample, rules Rules, prev Action) Action {
	act := prev
	for _, ax := range axisOrder {
		r := rules.byAxis[ax]
		if r == nil {
			continue
		}
		v := component(s, ax)
		switch {
		case v > r.Threshold:
			act = r.Action
		case v < -r.Threshold:
			act = r.Action
			if r.Negative != ActionNone {
				act = r.Negative
			}
		}
	}
	return act
}

// Active reports which axes are over threshold right now, independent of
// any held label. Used for per-axis indicator LEDs.
func Active(s imu.Sample, rules Rules) []Action {
	var out []Action
	for _, ax := range axisOrder {
		r := rules.byAxis[ax]
		if r == nil {
			continue
		}
		v := component(s, ax)
		if v > r.Threshold {
			out = append(out, r.Action)
		} else if v < -r.Threshold {
			if r.Negative != ActionNone {
				out = append(out, r.Negative)
			} else {
				out = append(out, r.Action)
			}
		}
	}
	return out
}
