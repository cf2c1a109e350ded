// Copyright (c) 2026 higuchi-learn / freelen
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/higuchi-learn/freelen/internal/arbiter"
	"github.com/higuchi-learn/freelen/internal/gesture"
	"github.com/higuchi-learn/freelen/internal/imu"
	"github.com/higuchi-learn/freelen/internal/match"
	"github.com/higuchi-learn/freelen/internal/netlink"
	"github.com/higuchi-learn/freelen/internal/profile"
	"github.com/higuchi-learn/freelen/internal/sensors"
	"github.com/higuchi-learn/freelen/internal/status"
	"github.com/higuchi-learn/freelen/internal/telemetry"
)

type recorder struct {
	renders  []gesture.Action
	leds     [][]gesture.Action
	silences int
}

func (r *recorder) Render(a gesture.Action)          { r.renders = append(r.renders, a) }
func (r *recorder) ShowLEDs(active []gesture.Action) { r.leds = append(r.leds, active) }
func (r *recorder) Silence()                         { r.silences++ }

// pressOnce presses on the first poll only.
type pressOnce struct{ done bool }

func (p *pressOnce) Poll() bool {
	if p.done {
		return false
	}
	p.done = true
	return true
}

type fakeTelemetry struct {
	actions []telemetry.ActionEvent
	matches []telemetry.MatchEvent
}

func (f *fakeTelemetry) Action(ev telemetry.ActionEvent) { f.actions = append(f.actions, ev) }
func (f *fakeTelemetry) Match(ev telemetry.MatchEvent)   { f.matches = append(f.matches, ev) }
func (f *fakeTelemetry) Close()                          {}

type fakeScreen struct{ last []string }

func (f *fakeScreen) Show(lines []string) error {
	f.last = lines
	return nil
}

type fakeTransport struct {
	sent []match.Report
}

func (f *fakeTransport) Exchange(_ context.Context, r match.Report) (match.Reply, error) {
	f.sent = append(f.sent, r)
	return match.Accepted(), nil
}

func mustProfile(t *testing.T, name string) *profile.Profile {
	t.Helper()
	p, err := profile.Builtin(name)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

// arbiterURL starts a two-player arbiter that answers in dict form.
func arbiterURL(t *testing.T) string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	srv := httptest.NewServer(arbiter.NewRouter(arbiter.NewMatch(2), arbiter.Options{DictReplies: true}))
	t.Cleanup(srv.Close)
	return srv.URL + arbiter.DevicePath
}

func newPlayer2(t *testing.T, url, id string, src imu.Source, fb Feedback, tel telemetry.Publisher) *Controller {
	t.Helper()
	c, err := NewController(Deps{
		DeviceID:  id,
		Profile:   mustProfile(t, "player2"),
		Source:    src,
		Feedback:  fb,
		Button:    &pressOnce{},
		Transport: match.NewHTTPClient(url, "", time.Second),
		Link:      netlink.NewMonitor(netlink.NewStaticLink(true), time.Second),
		Telemetry: tel,
	})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

type statePair struct{ s1, s2 match.State }

func runPair(t *testing.T, c1, c2 *Controller, want []statePair) {
	t.Helper()
	ctx := context.Background()
	for i, w := range want {
		r1 := c1.Tick(ctx)
		r2 := c2.Tick(ctx)
		if r1.State != w.s1 || r2.State != w.s2 {
			t.Fatalf("tick %d: states %s/%s, want %s/%s (c1 %+v, c2 %+v)", i+1, r1.State, r2.State, w.s1, w.s2, r1.Match, r2.Match)
		}
		if r1.Match.Err != nil || r2.Match.Err != nil {
			t.Fatalf("tick %d: errors %v / %v", i+1, r1.Match.Err, r2.Match.Err)
		}
	}
}

func TestTwoPlayersAgainstArbiter(t *testing.T) {
	url := arbiterURL(t)
	zero := imu.Sample{}
	src1 := sensors.NewScriptSource(zero, zero, zero, imu.Sample{Ax: -9}, zero, zero)
	src2 := sensors.NewScriptSource(zero, zero, imu.Sample{Ay: 9}, zero, imu.Sample{Az: 9}, zero)
	fb1, fb2 := &recorder{}, &recorder{}
	tel2 := &fakeTelemetry{}
	c1 := newPlayer2(t, url, "1", src1, fb1, nil)
	c2 := newPlayer2(t, url, "2", src2, fb2, tel2)

	runPair(t, c1, c2, []statePair{
		{match.Ready, match.Ready},       // both press ready, the second report starts the fight
		{match.Ready, match.Fighting},    // c1 polls again and learns about the fight
		{match.Fighting, match.Fighting}, // c2 attacks
		{match.NotReady, match.Fighting}, // c1 finishes, c2's report meets the reset
		{match.NotReady, match.NotReady}, // c2 defends locally, then applies opponent not ready
		{match.NotReady, match.NotReady},
	})

	if len(fb2.renders) != 2 || fb2.renders[0] != gesture.ActionAttack || fb2.renders[1] != gesture.ActionDefend {
		t.Fatalf("c2 renders = %v", fb2.renders)
	}
	if len(fb1.renders) != 1 || fb1.renders[0] != gesture.ActionFinish {
		t.Fatalf("c1 renders = %v", fb1.renders)
	}
	if len(tel2.actions) != 2 || tel2.actions[0].From != "collection" || tel2.actions[0].To != "attack" {
		t.Fatalf("c2 action telemetry = %+v", tel2.actions)
	}
	// noReady->ready, ready->fighting, fighting->noReady
	if len(tel2.matches) != 3 {
		t.Fatalf("c2 match telemetry = %+v", tel2.matches)
	}
}

func TestStillFighterSeesMatchReset(t *testing.T) {
	url := arbiterURL(t)
	zero := imu.Sample{}
	src1 := sensors.NewScriptSource(zero, zero, zero, imu.Sample{Ax: -9}, zero, zero)
	// c2 never moves once the fight starts
	src2 := sensors.NewScriptSource(zero, zero, zero, zero, zero, zero)
	c1 := newPlayer2(t, url, "1", src1, &recorder{}, nil)
	c2 := newPlayer2(t, url, "2", src2, &recorder{}, nil)

	runPair(t, c1, c2, []statePair{
		{match.Ready, match.Ready},
		{match.Ready, match.Fighting},
		{match.Fighting, match.Fighting},
		{match.NotReady, match.Fighting}, // reset by c1's finish
		{match.NotReady, match.NotReady},
		{match.NotReady, match.NotReady},
	})
}

func TestFightingEntryResetsHeldAction(t *testing.T) {
	p := mustProfile(t, "player2")
	ft := &scriptedTransport{replies: []match.Reply{match.TransitionTo(match.Fighting)}}
	src := sensors.NewScriptSource(imu.Sample{}, imu.Sample{}, imu.Sample{Ay: 9})
	fb := &recorder{}
	c, err := NewController(Deps{DeviceID: "2", Profile: p, Source: src, Feedback: fb, Button: &pressOnce{}, Transport: ft})
	if err != nil {
		t.Fatal(err)
	}
	c.state.Held = gesture.ActionDefend
	c.state.Debouncer.Reset(gesture.ActionDefend)

	ctx := context.Background()
	c.Tick(ctx) // ready
	if r := c.Tick(ctx); r.State != match.Fighting || r.Action != gesture.ActionCollection {
		t.Fatalf("entry tick = %+v", r)
	}
	if c.State().Debouncer.Last() != gesture.ActionCollection {
		t.Fatal("debouncer not reset")
	}
	if r := c.Tick(ctx); r.Change == nil || r.Change.From != gesture.ActionCollection || r.Change.To != gesture.ActionAttack {
		t.Fatalf("first fighting tick = %+v", r)
	}
}

type scriptedTransport struct {
	replies []match.Reply
}

func (s *scriptedTransport) Exchange(context.Context, match.Report) (match.Reply, error) {
	if len(s.replies) == 0 {
		return match.Accepted(), nil
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	return r, nil
}

func TestSensorFailureHoldsAction(t *testing.T) {
	p := mustProfile(t, "player1")
	src := sensors.NewScriptSource(imu.Sample{Ay: 9}).Fail(errors.New("i2c nack")).Then(imu.Sample{})
	fb := &recorder{}
	ft := &fakeTransport{}
	c, err := NewController(Deps{DeviceID: "1", Profile: p, Source: src, Feedback: fb, Transport: ft})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if r := c.Tick(ctx); r.Action != gesture.ActionAttack || r.Change == nil {
		t.Fatalf("tick 1 = %+v", r)
	}
	r := c.Tick(ctx)
	if r.SensorErr == nil || r.Action != gesture.ActionAttack || r.Change != nil {
		t.Fatalf("tick 2 = %+v", r)
	}
	if r := c.Tick(ctx); r.Action != gesture.ActionAttack || r.Change != nil {
		t.Fatalf("tick 3 = %+v", r)
	}
	// the held label is still reported while the sensor is failing
	if len(ft.sent) != 3 {
		t.Fatalf("sent %d reports, want 3", len(ft.sent))
	}
	for _, r := range ft.sent {
		if r.Action != "attack" || r.State != "" {
			t.Fatalf("sent = %+v", ft.sent)
		}
	}
	if fb.silences != 1 {
		t.Fatalf("silences = %d, want 1", fb.silences)
	}
}

func TestOfflineDropsReportsButKeepsFeedback(t *testing.T) {
	p := mustProfile(t, "player1")
	link := netlink.NewStaticLink(false)
	ft := &fakeTransport{}
	fb := &recorder{}
	c, err := NewController(Deps{
		DeviceID:  "1",
		Profile:   p,
		Source:    sensors.NewScriptSource(imu.Sample{Az: 9}),
		Feedback:  fb,
		Transport: ft,
		Link:      netlink.NewMonitor(link, time.Hour),
	})
	if err != nil {
		t.Fatal(err)
	}
	r := c.Tick(context.Background())
	if !r.Match.Dropped || len(ft.sent) != 0 {
		t.Fatalf("result = %+v, sent %d", r, len(ft.sent))
	}
	if len(fb.renders) != 1 || fb.renders[0] != gesture.ActionDefend {
		t.Fatalf("renders = %v", fb.renders)
	}
}

func TestPassiveRole(t *testing.T) {
	p := mustProfile(t, "passive")
	ft := &fakeTransport{}
	fb := &recorder{}
	screen := &fakeScreen{}
	hub := status.NewHub()
	c, err := NewController(Deps{
		DeviceID:  "3",
		Profile:   p,
		Source:    sensors.NewScriptSource(imu.Sample{Az: 8, Ax: 1}, imu.Sample{Az: 8}),
		Feedback:  fb,
		Transport: ft,
		Screen:    screen,
		Status:    hub,
	})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	c.Tick(ctx)
	c.Tick(ctx)

	if len(ft.sent) != 1 || ft.sent[0].Action != "defence" {
		t.Fatalf("sent = %+v", ft.sent)
	}
	if len(fb.leds) != 2 || len(fb.leds[0]) != 1 || fb.leds[0][0] != gesture.ActionDefend {
		t.Fatalf("leds = %v", fb.leds)
	}
	if len(screen.last) != 4 || screen.last[2] != "az: 8.00" || screen.last[3] != "defence" {
		t.Fatalf("screen = %q", screen.last)
	}
	snap, ok := hub.Latest()
	if !ok || snap.Action != "defence" || snap.Tick != 2 || snap.Role != "passive" {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestSoloRoleNeedsNoTransport(t *testing.T) {
	p := mustProfile(t, "solo")
	fb := &recorder{}
	c, err := NewController(Deps{DeviceID: "0", Profile: p, Source: sensors.NewScriptSource(imu.Sample{Ax: 9, Ay: 9}), Feedback: fb})
	if err != nil {
		t.Fatal(err)
	}
	r := c.Tick(context.Background())
	if r.State != match.Fighting || r.Action != gesture.ActionStay {
		t.Fatalf("result = %+v", r)
	}
	if len(fb.leds) != 1 || len(fb.leds[0]) != 2 {
		t.Fatalf("leds = %v", fb.leds)
	}
}

func TestNewControllerValidation(t *testing.T) {
	if _, err := NewController(Deps{}); err == nil {
		t.Fatal("expected error for empty deps")
	}
	p := mustProfile(t, "player1")
	if _, err := NewController(Deps{Profile: p, Source: sensors.NewScriptSource(), Feedback: &recorder{}}); err == nil {
		t.Fatal("expected error for networked profile without transport")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	p := mustProfile(t, "solo")
	c, err := NewController(Deps{Profile: p, Source: sensors.NewMockSource(), Feedback: &recorder{}})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if err := c.Run(ctx, 5*time.Millisecond); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if c.State().Tick < 2 {
		t.Fatalf("ticks = %d", c.State().Tick)
	}
}
