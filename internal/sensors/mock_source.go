// Copyright (c) 2026 higuchi-learn / freelen
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"math"
	"time"

	"github.com/higuchi-learn/freelen/internal/imu"
)

// MockSource sweeps a strong swing through x, y and z in turn so every
// gesture fires on a bench without hardware. One axis peaks every period.
type MockSource struct {
	start  time.Time
	period time.Duration
	peak   float64
	now    func() time.Time
}

// NewMockSource creates a mock that peaks at 12 m/s² every 2 s.
func NewMockSource() *MockSource {
	return &MockSource{start: time.Now(), period: 2 * time.Second, peak: 12, now: time.Now}
}

func (m *MockSource) Next() (imu.Sample, error) {
	elapsed := m.now().Sub(m.start)
	slot := int(elapsed/m.period) % 4
	phase := float64(elapsed%m.period) / float64(m.period)
	v := m.peak * math.Sin(phase*math.Pi)

	s := imu.Sample{Source: "mock"}
	switch slot {
	case 0:
		s.Ax = v
	case 1:
		s.Ay = v
	case 2:
		s.Az = v
	case 3:
		s.Ax = -v
	}
	return s, nil
}

// Reading is one scripted sensor result.
type Reading struct {
	Sample imu.Sample
	Err    error
}

// ScriptSource replays a fixed list of readings, one per call, and then
// reports imu.ErrNoSample.
type ScriptSource struct {
	Readings []Reading
	i        int
}

func NewScriptSource(samples ...imu.Sample) *ScriptSource {
	s := &ScriptSource{}
	for _, v := range samples {
		s.Readings = append(s.Readings, Reading{Sample: v})
	}
	return s
}

// Fail appends a failed read.
func (s *ScriptSource) Fail(err error) *ScriptSource {
	s.Readings = append(s.Readings, Reading{Err: err})
	return s
}

// Then appends more samples.
func (s *ScriptSource) Then(samples ...imu.Sample) *ScriptSource {
	for _, v := range samples {
		s.Readings = append(s.Readings, Reading{Sample: v})
	}
	return s
}

func (s *ScriptSource) Next() (imu.Sample, error) {
	if s.i >= len(s.Readings) {
		return imu.Sample{}, imu.ErrNoSample
	}
	r := s.Readings[s.i]
	s.i++
	return r.Sample, r.Err
}
