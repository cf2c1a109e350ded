// Copyright (c) 2026 higuchi-learn / freelen
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package match

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/higuchi-learn/freelen/internal/gesture"
)

// Options configures a Client.
type Options struct {
	DeviceID string
	// Handshake enables the ready/fighting protocol. Without it the client
	// is permanently fighting and omits the state field.
	Handshake bool
	// EveryTick makes a handshake-less client report the held action on
	// every tick instead of only on changes. Handshake clients always do.
	EveryTick bool
	// Aliases overrides the wire name of an action.
	Aliases map[gesture.Action]string
}

// Outcome summarises one client tick.
type Outcome struct {
	From, To State
	Sent     *Report
	Reply    *Reply
	Err      error // already handled; returned for logging and status
	Dropped  bool  // a report was due but the link was down
}

// Client owns the match state of one device. It is not safe for concurrent
// use; the main loop is its only caller.
type Client struct {
	transport Transport
	opts      Options

	state   State
	pending *Report
	reply   *Reply
}

func NewClient(t Transport, opts Options) *Client {
	c := &Client{transport: t, opts: opts, state: NotReady}
	if !opts.Handshake {
		c.state = Fighting
	}
	return c
}

func (c *Client) State() State { return c.state }

// Pending returns the report waiting to be retried, if any.
func (c *Client) Pending() *Report { return c.pending }

// Tick runs one step of the state machine and at most one exchange. It never
// returns an error; failures are folded into the outcome and state is only
// changed by local input or a decoded server reply.
func (c *Client) Tick(ctx context.Context, in Local, online bool) Outcome {
	out := Outcome{From: c.state}

	if c.opts.EveryTick {
		in.Changed = true
	}

	var report *Report
	if c.opts.Handshake {
		c.state, report = Step(c.state, in, c.reply)
	} else if in.Changed {
		report = &Report{Action: string(in.Action)}
	}
	c.reply = nil
	out.To = c.state

	if out.To != out.From {
		// anything queued belonged to the previous phase
		c.pending = nil
	}
	if report != nil {
		report.DeviceID = c.opts.DeviceID
		report.Action = c.wireName(gesture.Action(report.Action))
		c.pending = nil
	} else if c.pending != nil {
		report, c.pending = c.pending, nil
	}
	if report == nil {
		return out
	}

	if !online {
		out.Dropped = true
		return out
	}

	reply, err := c.transport.Exchange(ctx, *report)
	if err != nil {
		out.Err = err
		var te *TransportError
		if errors.As(err, &te) {
			c.pending = report
			log.Warn().Err(err).Str("action", report.Action).Msg("match: report not delivered, retrying next tick")
		} else {
			log.Warn().Err(err).Str("action", report.Action).Msg("match: unusable reply, ignoring")
		}
		return out
	}

	out.Sent = report
	out.Reply = &reply
	if c.opts.Handshake {
		c.reply = &reply
	}
	if reply.Detail != "" {
		log.Info().Str("detail", reply.Detail).Msg("match: unrecognised server reply")
	}
	return out
}

func (c *Client) wireName(a gesture.Action) string {
	if name, ok := c.opts.Aliases[a]; ok {
		return name
	}
	return string(a)
}
