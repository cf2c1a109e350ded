// Copyright (c) 2026 higuchi-learn / freelen
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package match

import "github.com/higuchi-learn/freelen/internal/gesture"

// Step advances the handshake by one tick. reply is the server's answer to
// the previous tick's report, or nil if there was none.
//
// A reply that changes the state consumes the step and no report is sent.
// Otherwise local input is applied and the report for the resulting state is
// returned. Every state reports on every tick: a fighter that holds still
// still has to hear about a server side reset. The returned report has no
// DeviceID set.
func Step(cur State, in Local, reply *Reply) (State, *Report) {
	if reply != nil {
		if next := applyReply(cur, *reply); next != cur {
			return next, nil
		}
	}

	switch cur {
	case NotReady:
		next := cur
		if in.ReadyPressed {
			next = Ready
		}
		return next, &Report{Action: string(in.Action), State: next}
	case Ready:
		return cur, &Report{Action: string(in.Action), State: cur}
	case Fighting:
		if in.SessionEnd {
			return NotReady, &Report{Action: string(in.Action), State: NotReady}
		}
		return cur, &Report{Action: string(in.Action), State: cur}
	}
	return cur, nil
}

func applyReply(cur State, r Reply) State {
	switch r.Kind {
	case ReplyTransition:
		if r.To == Fighting && cur == Ready {
			return Fighting
		}
	case ReplyRejected:
		if cur == Fighting {
			return NotReady
		}
	}
	return cur
}

// EndsSession reports whether a is one of the session-ending labels.
func EndsSession(a gesture.Action, end []gesture.Action) bool {
	for _, e := range end {
		if a == e {
			return true
		}
	}
	return false
}
