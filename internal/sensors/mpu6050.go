// Copyright (c) 2026 higuchi-learn / freelen
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"encoding/binary"
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/higuchi-learn/freelen/internal/imu"
)

// MPU6050 register map (subset).
const (
	MPU6050DefaultAddr = 0x68

	regPwrMgmt1   = 0x6B
	regAccelXOutH = 0x3B
)

// lsbPerG is the accelerometer sensitivity at the power-on ±2g range.
const lsbPerG = 16384.0

const standardGravity = 9.81

// MPU6050 reads acceleration from an MPU6050 over I2C.
type MPU6050 struct {
	dev    *i2c.Dev
	closer func() error
}

// OpenMPU6050 initialises the periph host, opens the named I2C bus ("" for
// the first one) and wakes the sensor.
func OpenMPU6050(bus string, addr uint16) (*MPU6050, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("MPU6050: periph host init: %w", err)
	}
	b, err := i2creg.Open(bus)
	if err != nil {
		return nil, fmt.Errorf("MPU6050: open I2C bus %q: %w", bus, err)
	}
	m, err := NewMPU6050(b, addr)
	if err != nil {
		b.Close()
		return nil, err
	}
	m.closer = b.Close
	return m, nil
}

// NewMPU6050 wakes the sensor on an already open bus.
func NewMPU6050(bus i2c.Bus, addr uint16) (*MPU6050, error) {
	if addr == 0 {
		addr = MPU6050DefaultAddr
	}
	m := &MPU6050{dev: &i2c.Dev{Bus: bus, Addr: addr}}
	// clear SLEEP, internal oscillator
	if err := m.dev.Tx([]byte{regPwrMgmt1, 0x00}, nil); err != nil {
		return nil, fmt.Errorf("MPU6050: wake at %#x: %w", addr, err)
	}
	return m, nil
}

// Next performs one burst read of the three acceleration registers.
func (m *MPU6050) Next() (imu.Sample, error) {
	var buf [6]byte
	if err := m.dev.Tx([]byte{regAccelXOutH}, buf[:]); err != nil {
		return imu.Sample{}, fmt.Errorf("MPU6050: read accel: %w", err)
	}
	return imu.Sample{
		Source: "mpu6050",
		Ax:     rawToMS2(buf[0:2]),
		Ay:     rawToMS2(buf[2:4]),
		Az:     rawToMS2(buf[4:6]),
	}, nil
}

func (m *MPU6050) Close() error {
	if m.closer == nil {
		return nil
	}
	return m.closer()
}

func rawToMS2(b []byte) float64 {
	raw := int16(binary.BigEndian.Uint16(b))
	return float64(raw) / lsbPerG * standardGravity
}
