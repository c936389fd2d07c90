// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imutransport

import (
	"fmt"
	"math"
	"sync"

	"github.com/tim8trudeau/carriage-flc/internal/config"
	"github.com/tim8trudeau/carriage-flc/internal/ctlerr"
	"github.com/tim8trudeau/carriage-flc/internal/plant"
)

const radToDeg = 180.0 / math.Pi

// SimTransport stands in for the real bus in front of an in-process
// plant.Sim: ReadAllAxes projects the plant's (theta, omega) onto raw accel
// and gyro counts the same way the conditioner would read them off a real
// LSM6DS3TR-C, and WriteByte/ReadByte emulate just enough of the register
// map (WHO_AM_I, CTRL3_C, STATUS) to satisfy callers that probe those
// registers.
type SimTransport struct {
	mu        sync.Mutex
	sim       *plant.Sim
	accel1g   float64
	gyroLSB   float64
	tiltPlane config.TiltPlane
	rateAxis  config.RateAxis

	ctrl3c float64
}

// NewSim wraps a plant.Sim as a Transport, using the accelerometer/gyro
// scale factors and mechanical mounting axes from cfg.
func NewSim(sim *plant.Sim, cfg *config.Config) *SimTransport {
	return &SimTransport{
		sim:       sim,
		accel1g:   cfg.ControllerParams.Accel1gRaw,
		gyroLSB:   cfg.ControllerParams.GyroLSBPerDPS,
		tiltPlane: cfg.ControllerParams.TiltPlane,
		rateAxis:  cfg.ControllerParams.RateAxis,
	}
}

func (s *SimTransport) ReadByte(reg byte) (byte, error) {
	switch reg {
	case RegWhoAmI:
		return whoAmIExpected, nil
	case RegCtrl3C:
		return byte(int(s.ctrl3c)), nil
	case RegStatus:
		return statusXLDA | statusGDA, nil
	default:
		return 0, nil
	}
}

func (s *SimTransport) ReadBlock(reg byte, n int) ([]byte, error) {
	if reg != RegOutXLG || n != 12 {
		return make([]byte, n), nil
	}
	ax, ay, az, gx, gy, gz, err := s.ReadAllAxes()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 12)
	putLE := func(off int, v int16) {
		buf[off] = byte(uint16(v))
		buf[off+1] = byte(uint16(v) >> 8)
	}
	putLE(0, gx)
	putLE(2, gy)
	putLE(4, gz)
	putLE(6, ax)
	putLE(8, ay)
	putLE(10, az)
	return buf, nil
}

func (s *SimTransport) WriteByte(reg, val byte) error {
	if reg == RegCtrl3C {
		s.ctrl3c = float64(val)
	}
	return nil
}

// ReadAllAxes projects the plant's current tilt and rate onto raw axis
// counts, as if a real IMU were mounted with the configured tilt plane and
// rate axis.
func (s *SimTransport) ReadAllAxes() (ax, ay, az, gx, gy, gz int16, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	theta, omega, _, _ := s.sim.State()

	var u, v float64 // in-plane, out-of-plane accel components
	u = s.accel1g * math.Sin(theta)
	v = -s.accel1g * math.Cos(theta)

	switch s.tiltPlane {
	case config.TiltPlaneXZ:
		ax, az = clampI16(u), clampI16(v)
	case config.TiltPlaneYZ:
		ay, az = clampI16(u), clampI16(v)
	default:
		return 0, 0, 0, 0, 0, 0, fmt.Errorf("%w: unknown tilt plane %q", ctlerr.ErrConfig, s.tiltPlane)
	}

	rate := clampI16(omega * radToDeg * s.gyroLSB)
	switch s.rateAxis {
	case config.RateAxisX:
		gx = rate
	case config.RateAxisY:
		gy = rate
	case config.RateAxisZ:
		gz = rate
	default:
		return 0, 0, 0, 0, 0, 0, fmt.Errorf("%w: unknown rate axis %q", ctlerr.ErrConfig, s.rateAxis)
	}

	return ax, ay, az, gx, gy, gz, nil
}

// SetMotorCommand advances the plant by one tick under the given normalized
// command in [-1, 1], closing the loop between actuation and sensing in
// offline simulation runs.
func (s *SimTransport) SetMotorCommand(cmd float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sim.Step(cmd)
}

func (s *SimTransport) Close() error { return nil }

func clampI16(v float64) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}
