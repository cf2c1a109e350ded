// Copyright (c) 2026 higuchi-learn / freelen
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package profile describes the per-role behaviour of a controller: its
// gesture rules, feedback table and how it talks to the match server.
package profile

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/higuchi-learn/freelen/internal/feedback"
	"github.com/higuchi-learn/freelen/internal/gesture"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

var ErrUnknownProfile = errors.New("profile: unknown profile")

// ReportMode selects how actions reach the server.
type ReportMode string

const (
	ReportPost ReportMode = "post"
	ReportGet  ReportMode = "get"
	ReportNone ReportMode = "none"
)

// LEDMode selects what the indicator LEDs show.
type LEDMode string

const (
	// LEDHeld lights the LEDs of the held action's pattern.
	LEDHeld LEDMode = "held"
	// LEDAxes lights one LED per axis currently over threshold.
	LEDAxes LEDMode = "axes"
)

// DisplayMode selects the OLED layout.
type DisplayMode string

const (
	DisplayStatus DisplayMode = "status"
	DisplaySample DisplayMode = "sample"
)

// Profile is a validated role description.
type Profile struct {
	Name         string
	TickInterval time.Duration
	Handshake    bool
	Report       ReportMode
	EveryTick    bool
	Initial      gesture.Action
	EndActions   []gesture.Action
	LEDMode      LEDMode
	Display      DisplayMode
	Aliases      map[gesture.Action]string
	Rules        gesture.Rules
	Feedback     feedback.Table
}

// Networked reports whether the role talks to a server at all.
func (p *Profile) Networked() bool { return p.Report != ReportNone }

type ruleFile struct {
	Axis      string  `yaml:"axis"`
	Threshold float64 `yaml:"threshold"`
	Action    string  `yaml:"action"`
	Negative  string  `yaml:"negative"`
}

type toneFile struct {
	Hz int `yaml:"hz"`
	Ms int `yaml:"ms"`
}

type patternFile struct {
	LEDs    []string   `yaml:"leds"`
	Steps   []toneFile `yaml:"steps"`
	Sustain int        `yaml:"sustain"`
}

type profileFile struct {
	Name            string                 `yaml:"name"`
	TickIntervalMs  int                    `yaml:"tick_interval_ms"`
	Handshake       bool                   `yaml:"handshake"`
	Report          string                 `yaml:"report"`
	ReportEveryTick bool                   `yaml:"report_every_tick"`
	InitialAction   string                 `yaml:"initial_action"`
	EndActions      []string               `yaml:"end_actions"`
	LEDMode         string                 `yaml:"led_mode"`
	Display         string                 `yaml:"display"`
	Aliases         map[string]string      `yaml:"aliases"`
	Rules           []ruleFile             `yaml:"rules"`
	Feedback        map[string]patternFile `yaml:"feedback"`
}

// Names lists the built-in profiles.
func Names() []string {
	entries, err := builtinFS.ReadDir("builtin")
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names
}

// Builtin returns the embedded profile called name.
func Builtin(name string) (*Profile, error) {
	data, err := builtinFS.ReadFile(path.Join("builtin", name+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("%w: %q (have %s)", ErrUnknownProfile, name, strings.Join(Names(), ", "))
	}
	return Parse(data)
}

// Load reads a profile from a YAML file.
func Load(file string) (*Profile, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	return p, nil
}

// Resolve loads file when set, otherwise the built-in called name.
func Resolve(name, file string) (*Profile, error) {
	if file != "" {
		return Load(file)
	}
	return Builtin(name)
}

// Parse decodes and validates a YAML profile.
func Parse(data []byte) (*Profile, error) {
	var f profileFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("profile: decode: %w", err)
	}
	return f.build()
}

func (f *profileFile) build() (*Profile, error) {
	if f.Name == "" {
		return nil, errors.New("profile: name is required")
	}
	p := &Profile{
		Name:         f.Name,
		TickInterval: time.Duration(f.TickIntervalMs) * time.Millisecond,
		Handshake:    f.Handshake,
		Report:       ReportMode(strings.ToLower(f.Report)),
		EveryTick:    f.ReportEveryTick,
		LEDMode:      LEDMode(f.LEDMode),
		Display:      DisplayMode(f.Display),
		Aliases:      make(map[gesture.Action]string),
		Feedback:     make(feedback.Table),
	}

	if p.TickInterval <= 0 {
		p.TickInterval = time.Second
	}
	switch p.Report {
	case "":
		p.Report = ReportPost
	case ReportPost, ReportGet, ReportNone:
	default:
		return nil, fmt.Errorf("profile %s: unknown report mode %q", f.Name, f.Report)
	}
	if p.Handshake && p.Report != ReportPost {
		return nil, fmt.Errorf("profile %s: handshake requires report: post", f.Name)
	}
	switch p.LEDMode {
	case "":
		p.LEDMode = LEDHeld
	case LEDHeld, LEDAxes:
	default:
		return nil, fmt.Errorf("profile %s: unknown led_mode %q", f.Name, f.LEDMode)
	}
	switch p.Display {
	case "":
		p.Display = DisplayStatus
	case DisplayStatus, DisplaySample:
	default:
		return nil, fmt.Errorf("profile %s: unknown display %q", f.Name, f.Display)
	}

	initial := f.InitialAction
	if initial == "" {
		initial = "stay"
	}
	a, err := gesture.ParseAction(initial)
	if err != nil {
		return nil, fmt.Errorf("profile %s: initial_action: %w", f.Name, err)
	}
	p.Initial = a

	for _, s := range f.EndActions {
		a, err := gesture.ParseAction(s)
		if err != nil {
			return nil, fmt.Errorf("profile %s: end_actions: %w", f.Name, err)
		}
		p.EndActions = append(p.EndActions, a)
	}
	if len(p.EndActions) > 0 && !p.Handshake {
		return nil, fmt.Errorf("profile %s: end_actions require handshake", f.Name)
	}

	for k, v := range f.Aliases {
		a, err := gesture.ParseAction(k)
		if err != nil {
			return nil, fmt.Errorf("profile %s: aliases: %w", f.Name, err)
		}
		p.Aliases[a] = v
	}

	rules := make([]gesture.Rule, 0, len(f.Rules))
	for i, rf := range f.Rules {
		r, err := rf.rule()
		if err != nil {
			return nil, fmt.Errorf("profile %s: rule %d: %w", f.Name, i, err)
		}
		rules = append(rules, r)
	}
	if len(rules) == 0 {
		return nil, fmt.Errorf("profile %s: no rules", f.Name)
	}
	if p.Rules, err = gesture.NewRules(rules...); err != nil {
		return nil, fmt.Errorf("profile %s: %w", f.Name, err)
	}

	for k, pf := range f.Feedback {
		a, err := gesture.ParseAction(k)
		if err != nil {
			return nil, fmt.Errorf("profile %s: feedback: %w", f.Name, err)
		}
		pat := feedback.Pattern{LEDs: pf.LEDs, Sustain: pf.Sustain}
		for _, t := range pf.Steps {
			if t.Hz < 0 || t.Ms < 0 {
				return nil, fmt.Errorf("profile %s: feedback %s: negative tone", f.Name, k)
			}
			pat.Steps = append(pat.Steps, feedback.Tone{Hz: t.Hz, Duration: time.Duration(t.Ms) * time.Millisecond})
		}
		p.Feedback[a] = pat
	}
	return p, nil
}

func (rf ruleFile) rule() (gesture.Rule, error) {
	ax, err := gesture.ParseAxis(rf.Axis)
	if err != nil {
		return gesture.Rule{}, err
	}
	act, err := gesture.ParseAction(rf.Action)
	if err != nil {
		return gesture.Rule{}, err
	}
	r := gesture.Rule{Axis: ax, Threshold: rf.Threshold, Action: act}
	if rf.Negative != "" {
		if r.Negative, err = gesture.ParseAction(rf.Negative); err != nil {
			return gesture.Rule{}, err
		}
	}
	return r, nil
}

// WireName returns the name a sends on the wire for this profile.
func (p *Profile) WireName(a gesture.Action) string {
	if n, ok := p.Aliases[a]; ok {
		return n
	}
	return string(a)
}
