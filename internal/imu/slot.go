// Copyright (c) 2026 higuchi-learn / freelen
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import (
	"sync/atomic"
	"time"
)

type stamped struct {
	sample Sample
	at     time.Time
}

// Slot hands the latest sample from one producer goroutine to the tick loop.
// A whole sample is swapped atomically so the reader never sees a torn value.
type Slot struct {
	latest atomic.Pointer[stamped]
	maxAge time.Duration
	now    func() time.Time
}

// NewSlot returns an empty slot. Samples older than maxAge are reported as
// stale; maxAge <= 0 disables the check.
func NewSlot(maxAge time.Duration) *Slot {
	return &Slot{maxAge: maxAge, now: time.Now}
}

func (s *Slot) Store(sample Sample) {
	s.latest.Store(&stamped{sample: sample, at: s.now()})
}

// Next returns the most recently stored sample.
func (s *Slot) Next() (Sample, error) {
	p := s.latest.Load()
	if p == nil {
		return Sample{}, ErrNoSample
	}
	if s.maxAge > 0 && s.now().Sub(p.at) > s.maxAge {
		return p.sample, ErrStaleSample
	}
	return p.sample, nil
}
