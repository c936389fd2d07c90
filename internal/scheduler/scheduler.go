// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package scheduler runs the fixed-period control loop: condition, fuzzify,
// evaluate, defuzzify, actuate, sleep. It owns the Init -> Running ->
// Stopping -> Stopped lifecycle and guarantees the motor is stopped on every
// exit path.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/tim8trudeau/carriage-flc/internal/actuation"
	"github.com/tim8trudeau/carriage-flc/internal/conditioner"
	"github.com/tim8trudeau/carriage-flc/internal/ctlerr"
	"github.com/tim8trudeau/carriage-flc/internal/fuzzy"
	"github.com/tim8trudeau/carriage-flc/internal/imutransport"
)

// State is the scheduler's lifecycle state, observable for diagnostics.
type State int

const (
	StateInit State = iota
	StateRunning
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// sleepIncrement bounds how long a single sleep call blocks, so a shutdown
// request is honored within this window even mid-period.
const sleepIncrement = 2 * time.Millisecond

// Tick is the per-tick trace record passed to an optional TickObserver.
type Tick struct {
	Time     time.Time
	ThetaN   float64
	OmegaN   float64
	U        float64
	Duration time.Duration
	Overrun  bool
}

// TickObserver is invoked once per completed tick, after actuation. It must
// not block; the scheduler does not buffer missed calls.
type TickObserver func(Tick)

// Scheduler runs the fixed-rate control loop against one transport and
// motor.
type Scheduler struct {
	Transport imutransport.Transport
	Motor     actuation.Motor
	Cond      *conditioner.Conditioner
	Fuzzy     *fuzzy.Fuzzifier
	Rules     *fuzzy.RuleEngine

	Period        time.Duration
	ReadyTimeout  time.Duration
	Observer      TickObserver

	state       State
	lastElapsed time.Duration

	consecutiveBusFailures     int
	consecutiveNotReady        int
	haveLastNormalized         bool
	lastThetaN, lastOmegaN     float64
}

// maxConsecutiveBusFailures and maxConsecutiveNotReady bound how many
// in-loop transient failures the scheduler tolerates before treating them
// as fatal (spec §7: BusError N=10, NotReady M, both default 10).
const (
	maxConsecutiveBusFailures = 10
	maxConsecutiveNotReady    = 10
)

// New builds a Scheduler. loopFreqHz determines the fixed tick period;
// readyTimeout bounds the startup IMU-ready probe (defaults to 3s if zero).
func New(t imutransport.Transport, motor actuation.Motor, cond *conditioner.Conditioner, fz *fuzzy.Fuzzifier, rules *fuzzy.RuleEngine, loopFreqHz float64, readyTimeout time.Duration) *Scheduler {
	if readyTimeout == 0 {
		readyTimeout = 3 * time.Second
	}
	return &Scheduler{
		Transport:    t,
		Motor:        motor,
		Cond:         cond,
		Fuzzy:        fz,
		Rules:        rules,
		Period:       time.Duration(float64(time.Second) / loopFreqHz),
		ReadyTimeout: readyTimeout,
		state:        StateInit,
	}
}

// State returns the scheduler's current lifecycle state.
func (s *Scheduler) State() State { return s.state }

// Run blocks until ctx is canceled or a fatal error occurs. The motor is
// guaranteed stopped before Run returns, even on panic.
func (s *Scheduler) Run(ctx context.Context) (err error) {
	defer func() {
		s.state = StateStopping
		if stopErr := s.Motor.Stop(); stopErr != nil {
			log.Printf("scheduler: motor stop on exit failed: %v", stopErr)
		}
		s.state = StateStopped
		if r := recover(); r != nil {
			err = fmt.Errorf("scheduler: panic in control loop: %v", r)
		}
	}()

	if err := s.waitReady(ctx); err != nil {
		return err
	}

	s.state = StateRunning
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if err := s.tick(); err != nil {
			return err
		}

		if err := s.sleepRemainder(ctx); err != nil {
			return err
		}
	}
}

// waitReady polls the transport until ReadAllAxes succeeds or ReadyTimeout
// elapses.
func (s *Scheduler) waitReady(ctx context.Context) error {
	deadline := time.Now().Add(s.ReadyTimeout)
	for {
		_, _, _, _, _, _, err := s.Transport.ReadAllAxes()
		if err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: imu not ready within %s at startup: %v", ctlerr.ErrNotReady, s.ReadyTimeout, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleepIncrement):
		}
	}
}

func (s *Scheduler) tick() error {
	t0 := time.Now()

	thetaN, omegaN, err := s.readNormalizedWithRetry()
	if err != nil {
		return err
	}

	fzTheta, err := s.Fuzzy.Fuzzify("theta", thetaN)
	if err != nil {
		return fmt.Errorf("scheduler: fuzzify theta: %w", err)
	}
	fzOmega, err := s.Fuzzy.Fuzzify("omega", omegaN)
	if err != nil {
		return fmt.Errorf("scheduler: fuzzify omega: %w", err)
	}

	active := s.Rules.Evaluate(fzTheta, fzOmega, thetaN, omegaN)
	u := fuzzy.Defuzzify(active)

	if err := s.Motor.SetSpeed(u); err != nil {
		return fmt.Errorf("scheduler: actuation: %w", err)
	}

	elapsed := time.Since(t0)
	overrun := elapsed > s.Period
	if overrun {
		log.Printf("scheduler: tick overrun: %s > period %s", elapsed, s.Period)
	}

	if s.Observer != nil {
		s.Observer(Tick{Time: t0, ThetaN: thetaN, OmegaN: omegaN, U: u, Duration: elapsed, Overrun: overrun})
	}

	s.lastElapsed = elapsed
	return nil
}

// readNormalizedWithRetry implements the §7 propagation policy: a bus
// failure is retried once before counting against the consecutive-failure
// budget; a NotReady timeout reuses the previous normalized sample (the
// conditioner's own filters already smooth over one missed reading) unless
// NotReady has now recurred too many ticks in a row.
func (s *Scheduler) readNormalizedWithRetry() (thetaN, omegaN float64, err error) {
	thetaN, omegaN, err = s.Cond.ReadNormalized()
	if err == nil {
		s.consecutiveBusFailures = 0
		s.consecutiveNotReady = 0
		s.haveLastNormalized = true
		s.lastThetaN, s.lastOmegaN = thetaN, omegaN
		return thetaN, omegaN, nil
	}

	if errors.Is(err, ctlerr.ErrNotReady) {
		s.consecutiveNotReady++
		if s.consecutiveNotReady > maxConsecutiveNotReady {
			return 0, 0, fmt.Errorf("scheduler: %d consecutive NotReady ticks: %w", s.consecutiveNotReady, err)
		}
		if s.haveLastNormalized {
			return s.lastThetaN, s.lastOmegaN, nil
		}
		return 0, 0, fmt.Errorf("scheduler: conditioner not ready with no prior sample: %w", err)
	}

	if errors.Is(err, ctlerr.ErrBus) {
		thetaN, omegaN, retryErr := s.Cond.ReadNormalized()
		if retryErr == nil {
			s.consecutiveBusFailures = 0
			s.haveLastNormalized = true
			s.lastThetaN, s.lastOmegaN = thetaN, omegaN
			return thetaN, omegaN, nil
		}
		s.consecutiveBusFailures++
		if s.consecutiveBusFailures > maxConsecutiveBusFailures {
			return 0, 0, fmt.Errorf("scheduler: %d consecutive bus failures: %w", s.consecutiveBusFailures, retryErr)
		}
		if s.haveLastNormalized {
			return s.lastThetaN, s.lastOmegaN, nil
		}
		return 0, 0, fmt.Errorf("scheduler: conditioner: %w", retryErr)
	}

	return 0, 0, fmt.Errorf("scheduler: conditioner: %w", err)
}

func (s *Scheduler) sleepRemainder(ctx context.Context) error {
	remaining := s.Period - s.lastElapsed
	if remaining <= 0 {
		return nil
	}
	deadline := time.Now().Add(remaining)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(sleepIncrement):
		}
	}
	return nil
}
