// Copyright (c) 2026 higuchi-learn / freelen
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import "errors"

var (
	ErrNoSample    = errors.New("imu: no sample available yet")
	ErrStaleSample = errors.New("imu: latest sample is stale")
)

// Sample is one calibrated accelerometer reading in m/s².
type Sample struct {
	Source string `json:"source"` // "mpu6050", "serial", "mock", ...

	Ax float64 `json:"ax"`
	Ay float64 `json:"ay"`
	Az float64 `json:"az"`
}

// Source produces a fresh sample on demand.
type Source interface {
	Next() (Sample, error)
}
