// Copyright (c) 2026 higuchi-learn / freelen
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/higuchi-learn/freelen/internal/gesture"
	"github.com/higuchi-learn/freelen/internal/imu"
	"github.com/higuchi-learn/freelen/internal/match"
	"github.com/higuchi-learn/freelen/internal/profile"
	"github.com/higuchi-learn/freelen/internal/status"
	"github.com/higuchi-learn/freelen/internal/telemetry"
)

// Feedback renders local feedback for an action.
type Feedback interface {
	Render(a gesture.Action)
	ShowLEDs(active []gesture.Action)
	Silence()
}

// Presser reports a debounced ready-button press.
type Presser interface {
	Poll() bool
}

// Screen shows a few lines of text.
type Screen interface {
	Show(lines []string) error
}

// Online reports whether reports can be sent this tick.
type Online interface {
	Online() bool
}

// Deps are the collaborators of one controller. Only Profile, Source and
// Feedback are required.
type Deps struct {
	DeviceID  string
	Profile   *profile.Profile
	Source    imu.Source
	Feedback  Feedback
	Button    Presser
	Transport match.Transport
	Link      Online
	Telemetry telemetry.Publisher
	Status    *status.Hub
	Screen    Screen
}

// DeviceState is everything one device mutates from tick to tick.
type DeviceState struct {
	Held       gesture.Action
	Debouncer  *gesture.Debouncer
	Match      *match.Client // nil for offline roles
	Sample     imu.Sample
	HaveSample bool
	Online     bool
	Server     string
	Tick       uint64
}

// Result summarises one tick.
type Result struct {
	State     match.State
	Action    gesture.Action
	Change    *gesture.Change
	Match     match.Outcome
	SensorErr error
}

// Controller runs the sample, classify, feedback and report loop.
type Controller struct {
	deps  Deps
	state DeviceState
}

func NewController(d Deps) (*Controller, error) {
	if d.Profile == nil || d.Source == nil || d.Feedback == nil {
		return nil, errors.New("controller: profile, source and feedback are required")
	}
	if d.Telemetry == nil {
		d.Telemetry = telemetry.Nop{}
	}
	c := &Controller{deps: d}
	c.state.Held = d.Profile.Initial
	c.state.Debouncer = gesture.NewDebouncer(d.Profile.Initial)
	if d.Profile.Networked() {
		if d.Transport == nil {
			return nil, fmt.Errorf("controller: profile %s needs a transport", d.Profile.Name)
		}
		c.state.Match = match.NewClient(d.Transport, match.Options{
			DeviceID:  d.DeviceID,
			Handshake: d.Profile.Handshake,
			EveryTick: d.Profile.EveryTick,
			Aliases:   d.Profile.Aliases,
		})
	}
	return c, nil
}

// State returns a copy of the device state.
func (c *Controller) State() DeviceState { return c.state }

func (c *Controller) matchState() match.State {
	if c.state.Match == nil {
		return match.Fighting
	}
	return c.state.Match.State()
}

// Tick runs one iteration. It never fails; every error is logged and folded
// into the result.
func (c *Controller) Tick(ctx context.Context) Result {
	p := c.deps.Profile
	st := &c.state
	st.Tick++

	pressed := c.deps.Button != nil && c.deps.Button.Poll()

	res := Result{}
	sample, err := c.deps.Source.Next()
	if err != nil {
		res.SensorErr = err
		log.Debug().Err(err).Uint64("tick", st.Tick).Msg("controller: sensor read failed, holding action")
	} else {
		st.Sample = sample
		st.HaveSample = true
	}

	local := match.Local{ReadyPressed: pressed, Action: st.Held}
	if c.matchState() == match.Fighting && err == nil {
		label := gesture.Classify(sample, p.Rules, st.Held)
		st.Held = label
		if ch, changed := st.Debouncer.Update(label); changed {
			res.Change = &ch
			local.Changed = true
			c.deps.Feedback.Render(label)
			c.deps.Telemetry.Action(telemetry.ActionEvent{
				DeviceID: c.deps.DeviceID,
				From:     p.WireName(ch.From),
				To:       p.WireName(ch.To),
				State:    string(c.matchState()),
				Time:     time.Now(),
			})
			log.Info().Str("from", string(ch.From)).Str("to", string(ch.To)).Msg("controller: action changed")
		} else {
			c.deps.Feedback.Silence()
		}
		if p.LEDMode == profile.LEDAxes {
			c.deps.Feedback.ShowLEDs(gesture.Active(sample, p.Rules))
		}
		local.Action = label
		local.SessionEnd = match.EndsSession(label, p.EndActions)
	}

	st.Online = c.deps.Link == nil || c.deps.Link.Online()
	if st.Match != nil {
		out := st.Match.Tick(ctx, local, st.Online)
		res.Match = out
		c.afterMatch(out)
	}

	res.State = c.matchState()
	res.Action = st.Held
	c.publish()
	return res
}

func (c *Controller) afterMatch(out match.Outcome) {
	p := c.deps.Profile
	st := &c.state

	if out.Reply != nil {
		st.Server = describeReply(*out.Reply)
		if out.Reply.Kind == match.ReplyStatus {
			c.deps.Telemetry.Match(telemetry.MatchEvent{
				DeviceID: c.deps.DeviceID,
				From:     string(out.From),
				To:       string(out.To),
				Reply:    out.Reply.Status,
				Time:     time.Now(),
			})
		}
	} else if out.Err != nil {
		st.Server = "error: " + out.Err.Error()
	}

	if out.From == out.To {
		return
	}
	log.Info().Str("from", string(out.From)).Str("to", string(out.To)).Msg("controller: match state changed")
	c.deps.Telemetry.Match(telemetry.MatchEvent{
		DeviceID: c.deps.DeviceID,
		From:     string(out.From),
		To:       string(out.To),
		Time:     time.Now(),
	})
	switch out.To {
	case match.Fighting:
		st.Held = p.Initial
		st.Debouncer.Reset(p.Initial)
	case match.NotReady:
		c.deps.Feedback.Silence()
	}
}

func describeReply(r match.Reply) string {
	switch r.Kind {
	case match.ReplyRejected:
		return string(r.Reason)
	case match.ReplyTransition:
		return "change " + string(r.To)
	case match.ReplyStatus:
		return r.Status
	}
	if r.Detail != "" {
		return r.Detail
	}
	return "ok"
}

func (c *Controller) publish() {
	st := c.state
	if c.deps.Status != nil {
		snap := status.Snapshot{
			DeviceID: c.deps.DeviceID,
			Role:     c.deps.Profile.Name,
			State:    string(c.matchState()),
			Action:   c.deps.Profile.WireName(st.Held),
			Sample:   st.Sample,
			Online:   st.Online,
			Server:   st.Server,
			Tick:     st.Tick,
			Time:     time.Now(),
		}
		if st.Match != nil {
			snap.Pending = st.Match.Pending() != nil
		}
		c.deps.Status.Publish(snap)
	}
	if c.deps.Screen != nil {
		if err := c.deps.Screen.Show(c.screenLines()); err != nil {
			log.Debug().Err(err).Msg("controller: display update failed")
		}
	}
}

func (c *Controller) screenLines() []string {
	st := c.state
	p := c.deps.Profile
	if p.Display == profile.DisplaySample {
		return []string{
			fmt.Sprintf("ax: %.2f", st.Sample.Ax),
			fmt.Sprintf("ay: %.2f", st.Sample.Ay),
			fmt.Sprintf("az: %.2f", st.Sample.Az),
			p.WireName(st.Held),
		}
	}
	net := "online"
	if !st.Online {
		net = "offline"
	}
	return []string{
		fmt.Sprintf("%s #%s %s", p.Name, c.deps.DeviceID, net),
		string(c.matchState()),
		p.WireName(st.Held),
		st.Server,
	}
}

// Run ticks at interval until ctx is cancelled. Ticks that overrun the
// interval are not caught up.
func (c *Controller) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = c.deps.Profile.TickInterval
	}
	log.Info().
		Str("role", c.deps.Profile.Name).
		Str("device", c.deps.DeviceID).
		Dur("interval", interval).
		Msg("controller: starting tick loop")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.Tick(ctx)
		}
	}
}
