// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package actuation maps a normalized motor command to dual complementary
// PWM channels with a dead-zone, and drives them over GPIO.
package actuation

import (
	"fmt"
	"math"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"

	"github.com/tim8trudeau/carriage-flc/internal/ctlerr"
)

// deadZoneEpsilon is the minimum |u| below which duty is forced to zero,
// matching scenario values in the single-digit-microcommand range.
const deadZoneEpsilon = 1e-6

// maxDutyPPM is the full-scale duty cycle in parts-per-million, the unit
// the underlying PWM API expects.
const maxDutyPPM = 1_000_000

// Motor is the actuation contract the scheduler drives once per tick.
type Motor interface {
	SetSpeed(u float64) error
	Stop() error
}

// dutyForSpeed applies the dead-zone mapping from spec: below epsilon the
// duty is zero; otherwise it's linearly interpolated between minPWM and
// maxPWM in parts-per-million.
func dutyForSpeed(u float64, minPWM, maxPWM int) (cw, ccw int) {
	v := math.Min(math.Abs(u), 1.0)
	if v < deadZoneEpsilon {
		return 0, 0
	}

	duty := int(float64(minPWM) + v*float64(maxPWM-minPWM))
	if u > 0 {
		return duty, 0
	}
	return 0, duty
}

// GPIOMotor drives CH_CW and CH_CCW on two periph.io GPIO pins using
// software PWM at a fixed frequency.
type GPIOMotor struct {
	cw, ccw    gpio.PinIO
	freqHz     float64
	minPWM     int
	maxPWM     int
}

// NewGPIOMotor opens the named CW/CCW GPIO pins for PWM output.
func NewGPIOMotor(cwPin, ccwPin string, freqHz float64, minPWM, maxPWM int) (*GPIOMotor, error) {
	cw := gpioreg.ByName(cwPin)
	if cw == nil {
		return nil, fmt.Errorf("%w: gpio pin %q not found", ctlerr.ErrBus, cwPin)
	}
	ccw := gpioreg.ByName(ccwPin)
	if ccw == nil {
		return nil, fmt.Errorf("%w: gpio pin %q not found", ctlerr.ErrBus, ccwPin)
	}
	return &GPIOMotor{cw: cw, ccw: ccw, freqHz: freqHz, minPWM: minPWM, maxPWM: maxPWM}, nil
}

// SetSpeed drives the dead-zone-mapped duty onto whichever channel matches
// the command's sign, zeroing the other.
func (m *GPIOMotor) SetSpeed(u float64) error {
	cwDuty, ccwDuty := dutyForSpeed(u, m.minPWM, m.maxPWM)

	if err := m.cw.PWM(ppmToDuty(cwDuty), physic.Frequency(m.freqHz)*physic.Hertz); err != nil {
		return fmt.Errorf("%w: set CW PWM: %v", ctlerr.ErrBus, err)
	}
	if err := m.ccw.PWM(ppmToDuty(ccwDuty), physic.Frequency(m.freqHz)*physic.Hertz); err != nil {
		return fmt.Errorf("%w: set CCW PWM: %v", ctlerr.ErrBus, err)
	}
	return nil
}

// Stop drives both channels to zero duty. The pins stay configured as
// outputs.
func (m *GPIOMotor) Stop() error {
	if err := m.cw.PWM(gpio.DutyMin, 0); err != nil {
		return fmt.Errorf("%w: stop CW: %v", ctlerr.ErrBus, err)
	}
	if err := m.ccw.PWM(gpio.DutyMin, 0); err != nil {
		return fmt.Errorf("%w: stop CCW: %v", ctlerr.ErrBus, err)
	}
	return nil
}

// ppmToDuty converts a parts-per-million duty value into periph's
// gpio.Duty (full scale gpio.DutyMax).
func ppmToDuty(ppm int) gpio.Duty {
	return gpio.Duty(int64(ppm) * int64(gpio.DutyMax) / maxDutyPPM)
}

// SimMotor is an in-process test double recording the last command and
// whether Stop has been called, for scheduler and integration tests.
type SimMotor struct {
	LastU     float64
	LastCW    int
	LastCCW   int
	Stopped   bool
	SetCount  int
	minPWM    int
	maxPWM    int
	lastSetAt time.Time
}

// NewSimMotor builds a SimMotor using the given dead-zone parameters.
func NewSimMotor(minPWM, maxPWM int) *SimMotor {
	return &SimMotor{minPWM: minPWM, maxPWM: maxPWM}
}

func (m *SimMotor) SetSpeed(u float64) error {
	m.LastU = u
	m.LastCW, m.LastCCW = dutyForSpeed(u, m.minPWM, m.maxPWM)
	m.SetCount++
	m.lastSetAt = time.Now()
	m.Stopped = false
	return nil
}

func (m *SimMotor) Stop() error {
	m.LastCW, m.LastCCW = 0, 0
	m.Stopped = true
	return nil
}
