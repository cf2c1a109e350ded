// Copyright (c) 2026 higuchi-learn / freelen
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package match tracks the two-player readiness handshake against the
// coordination server.
package match

import "github.com/higuchi-learn/freelen/internal/gesture"

// State is the match phase as seen by one device. The values are the
// strings sent on the wire.
type State string

const (
	NotReady State = "noReady"
	Ready    State = "ready"
	Fighting State = "fighting"
)

// Report is one outbound message to the server.
type Report struct {
	DeviceID string `json:"deviceId"`
	Action   string `json:"action"`
	State    State  `json:"state,omitempty"`
}

// Local is the device-side input for one tick.
type Local struct {
	// ReadyPressed is a debounced press of the ready button.
	ReadyPressed bool
	// Action is the currently held gesture label.
	Action gesture.Action
	// Changed is true when the debouncer emitted a change this tick. Only
	// handshake-less clients use it; a fighter reports every tick.
	Changed bool
	// SessionEnd is true when the held label ends the local session.
	SessionEnd bool
}
