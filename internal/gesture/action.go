// Copyright (c) 2026 higuchi-learn / freelen
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package gesture turns accelerometer samples into discrete game actions.
package gesture

import "fmt"

// Action is a discrete gesture label.
type Action string

const (
	ActionNone       Action = ""
	ActionStay       Action = "stay"
	ActionAttack     Action = "attack"
	ActionDefend     Action = "defend"
	ActionCollection Action = "collection"
	ActionFinish     Action = "finish"
)

// ParseAction accepts the canonical names plus the "defence" spelling used by
// the LED demo devices.
func ParseAction(s string) (Action, error) {
	switch s {
	case "stay", "idle":
		return ActionStay, nil
	case "attack":
		return ActionAttack, nil
	case "defend", "defence", "defense":
		return ActionDefend, nil
	case "collection":
		return ActionCollection, nil
	case "finish":
		return ActionFinish, nil
	}
	return ActionNone, fmt.Errorf("unknown action %q", s)
}

// Axis identifies one accelerometer axis.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

// axisOrder is the fixed evaluation order. Later axes overwrite earlier ones.
var axisOrder = [...]Axis{AxisX, AxisY, AxisZ}

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	}
	return fmt.Sprintf("axis(%d)", int(a))
}

// ParseAxis maps "x", "y" or "z" to an Axis.
func ParseAxis(s string) (Axis, error) {
	switch s {
	case "x", "X":
		return AxisX, nil
	case "y", "Y":
		return AxisY, nil
	case "z", "Z":
		return AxisZ, nil
	}
	return 0, fmt.Errorf("unknown axis %q", s)
}
