// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package plant simulates the rotary carriage-on-wheel-rim dynamics the
// controller stabilizes, for development and testing without hardware.
// It integrates rigid-body rotation under gravity torque, viscous damping,
// and a DC motor model, with semi-implicit Euler steps.
package plant

import "math"

// MotorParams describes the DC drive motor and gear train.
type MotorParams struct {
	R         float64 // armature resistance, ohms
	Kt        float64 // torque constant, N*m/A
	Kv        float64 // back-EMF constant, V*s/rad
	VMax      float64 // supply voltage
	IMax      float64 // current saturation, A
	TauMax    float64 // shaft torque saturation, N*m
	GearRatio float64
	Eta       float64 // gear efficiency
}

// Params describes the rigid body: moment of inertia, mass, radius to
// center of mass, viscous damping, and local gravity.
type Params struct {
	I float64 // moment of inertia, kg*m^2
	M float64 // mass, kg
	R float64 // radius to center of mass, m
	B float64 // viscous damping, N*m*s/rad
	G float64 // gravitational acceleration, m/s^2
}

// DefaultParams returns a representative small-carriage configuration.
func DefaultParams() Params {
	return Params{I: 0.02, M: 0.5, R: 0.08, B: 0.0005, G: 9.80665}
}

// DefaultMotorParams returns a representative small-DC-motor configuration.
func DefaultMotorParams() MotorParams {
	return MotorParams{R: 3.0, Kt: 0.05, Kv: 0.05, VMax: 12.0, IMax: 5.0, TauMax: 0.6, GearRatio: 20, Eta: 0.85}
}

// Sim is the integrated carriage state. Build it with New: the zero value
// has no physical parameters and Step would divide by a zero moment of
// inertia. Call Reset to pick a nonzero initial tilt.
type Sim struct {
	Plant Params
	Motor MotorParams
	Dt    float64 // integration step, seconds

	Theta float64 // rad, current tilt
	Omega float64 // rad/s, current rate
	T     float64 // seconds, elapsed sim time

	lastTauM float64
	lastTauG float64
}

// New builds a simulator with the given physical parameters and integration
// step.
func New(p Params, m MotorParams, dt float64) *Sim {
	return &Sim{Plant: p, Motor: m, Dt: dt}
}

// Reset sets the carriage to a known state and zeros elapsed time.
func (s *Sim) Reset(theta, omega float64) {
	s.Theta = theta
	s.Omega = omega
	s.T = 0
	s.lastTauM = 0
	s.lastTauG = 0
}

func (s *Sim) gravityTorque(theta float64) float64 {
	return s.Plant.M * s.Plant.G * s.Plant.R * math.Sin(theta)
}

func (s *Sim) motorTorque(cmd, omega float64) float64 {
	c := math.Max(-1.0, math.Min(1.0, cmd))
	v := c * s.Motor.VMax

	omegaM := s.Motor.GearRatio * omega
	i := (v - s.Motor.Kv*omegaM) / s.Motor.R
	i = math.Max(-s.Motor.IMax, math.Min(s.Motor.IMax, i))

	tauShaft := math.Max(-s.Motor.TauMax, math.Min(s.Motor.TauMax, s.Motor.Kt*i))
	return tauShaft * s.Motor.GearRatio * s.Motor.Eta
}

// Step advances the simulation by Dt, driven by a motor command in [-1, 1]
// (out-of-range values are clamped, mirroring the dead-zone mapper's own
// output range).
func (s *Sim) Step(cmd float64) {
	cmd = math.Max(-1.0, math.Min(1.0, cmd))

	tauM := s.motorTorque(cmd, s.Omega)
	tauG := s.gravityTorque(s.Theta)
	tauD := -s.Plant.B * s.Omega

	alpha := (tauM + tauG + tauD) / s.Plant.I

	s.Omega += alpha * s.Dt
	s.Theta += s.Omega * s.Dt
	s.T += s.Dt

	s.lastTauM = tauM
	s.lastTauG = tauG
}

// State returns the current tilt, rate, and the last step's motor and
// gravity torques, for logging/telemetry.
func (s *Sim) State() (theta, omega, tauM, tauG float64) {
	return s.Theta, s.Omega, s.lastTauM, s.lastTauG
}
