// Copyright (c) 2026 higuchi-learn / freelen
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package profile

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/higuchi-learn/freelen/internal/gesture"
	"github.com/higuchi-learn/freelen/internal/imu"
)

func TestBuiltinsLoad(t *testing.T) {
	names := Names()
	want := []string{"passive", "player1", "player2", "solo"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Fatalf("Names() = %v, want %v", names, want)
	}
	for _, n := range names {
		p, err := Builtin(n)
		if err != nil {
			t.Fatalf("Builtin(%q) error = %v", n, err)
		}
		if p.Name != n {
			t.Errorf("profile %q has name %q", n, p.Name)
		}
	}
}

func TestPlayer2(t *testing.T) {
	p, err := Builtin("player2")
	if err != nil {
		t.Fatal(err)
	}
	if !p.Handshake || p.Report != ReportPost || p.TickInterval != 500*time.Millisecond {
		t.Fatalf("player2 = %+v", p)
	}
	if p.Initial != gesture.ActionCollection {
		t.Fatalf("Initial = %s", p.Initial)
	}
	if len(p.EndActions) != 1 || p.EndActions[0] != gesture.ActionFinish {
		t.Fatalf("EndActions = %v", p.EndActions)
	}
	if got := gesture.Classify(imu.Sample{Ax: -9}, p.Rules, p.Initial); got != gesture.ActionFinish {
		t.Fatalf("x negative = %s, want finish", got)
	}
	if got := gesture.Classify(imu.Sample{Ax: 9}, p.Rules, p.Initial); got != gesture.ActionCollection {
		t.Fatalf("x positive = %s, want collection", got)
	}
	attack := p.Feedback.Lookup(gesture.ActionAttack)
	if len(attack.Steps) != 5 || attack.Steps[0].Hz != 880 || attack.Steps[0].Duration != 30*time.Millisecond {
		t.Fatalf("attack pattern = %+v", attack)
	}
	if p.Feedback.Lookup(gesture.ActionDefend).Sustain != 220 {
		t.Fatal("defend should sustain A3")
	}
}

func TestPlayer1ReportsEveryTick(t *testing.T) {
	p, err := Builtin("player1")
	if err != nil {
		t.Fatal(err)
	}
	if p.Handshake || !p.EveryTick || p.Report != ReportPost {
		t.Fatalf("player1 = %+v", p)
	}
	passive, err := Builtin("passive")
	if err != nil {
		t.Fatal(err)
	}
	if passive.EveryTick {
		t.Fatal("passive should only report changes")
	}
}

func TestPassiveAliasesDefence(t *testing.T) {
	p, err := Builtin("passive")
	if err != nil {
		t.Fatal(err)
	}
	if p.Report != ReportGet || p.LEDMode != LEDAxes || p.Display != DisplaySample {
		t.Fatalf("passive = %+v", p)
	}
	if got := gesture.Classify(imu.Sample{Az: 8}, p.Rules, p.Initial); got != gesture.ActionDefend {
		t.Fatalf("z = %s", got)
	}
	if p.WireName(gesture.ActionDefend) != "defence" || p.WireName(gesture.ActionStay) != "stay" {
		t.Fatal("wire alias mismatch")
	}
}

func TestSoloThreshold(t *testing.T) {
	p, err := Builtin("solo")
	if err != nil {
		t.Fatal(err)
	}
	if p.Networked() {
		t.Fatal("solo should not be networked")
	}
	// 7.5 is below the solo threshold of 8
	if got := gesture.Classify(imu.Sample{Ax: 7.5}, p.Rules, p.Initial); got != gesture.ActionStay {
		t.Fatalf("Classify = %s", got)
	}
}

func TestBuiltinUnknown(t *testing.T) {
	if _, err := Builtin("player3"); !errors.Is(err, ErrUnknownProfile) {
		t.Fatalf("error = %v, want ErrUnknownProfile", err)
	}
}

func TestParseErrors(t *testing.T) {
	tests := map[string]string{
		"no name":          "rules: [{axis: x, threshold: 1, action: attack}]",
		"no rules":         "name: a",
		"bad axis":         "name: a\nrules: [{axis: w, threshold: 1, action: attack}]",
		"bad action":       "name: a\nrules: [{axis: x, threshold: 1, action: jump}]",
		"zero threshold":   "name: a\nrules: [{axis: x, threshold: 0, action: attack}]",
		"duplicate axis":   "name: a\nrules: [{axis: x, threshold: 1, action: attack}, {axis: x, threshold: 2, action: stay}]",
		"handshake on get": "name: a\nhandshake: true\nreport: get\nrules: [{axis: x, threshold: 1, action: attack}]",
		"end without hs":   "name: a\nend_actions: [finish]\nrules: [{axis: x, threshold: 1, action: attack}]",
		"bad report":       "name: a\nreport: udp\nrules: [{axis: x, threshold: 1, action: attack}]",
		"bad yaml":         "name: [",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(doc)); err == nil {
				t.Fatalf("Parse(%q) succeeded", doc)
			}
		})
	}
}

func TestResolveFileOverridesBuiltin(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "custom.yaml")
	doc := "name: custom\ntick_interval_ms: 250\nrules:\n  - {axis: y, threshold: 3.5, action: attack}\n"
	if err := os.WriteFile(file, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	p, err := Resolve("player1", file)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if p.Name != "custom" || p.TickInterval != 250*time.Millisecond || p.Report != ReportPost {
		t.Fatalf("profile = %+v", p)
	}
	if p.Initial != gesture.ActionStay || p.LEDMode != LEDHeld {
		t.Fatalf("defaults not applied: %+v", p)
	}
}
