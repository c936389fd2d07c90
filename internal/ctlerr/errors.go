// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package ctlerr defines the sentinel error kinds shared across the control
// pipeline, so callers can classify a failure with errors.Is instead of
// parsing message text.
package ctlerr

import "errors"

var (
	// ErrConfig marks a malformed or inconsistent configuration: bad
	// membership-function ordering, a missing scaling table, a rule
	// violating the negative-feedback constraint, or a rule referencing an
	// unknown input variable. Fatal at load time.
	ErrConfig = errors.New("ctlerr: invalid configuration")

	// ErrBus marks a transport-level I2C failure.
	ErrBus = errors.New("ctlerr: bus error")

	// ErrNotReady marks an IMU STATUS-ready timeout.
	ErrNotReady = errors.New("ctlerr: imu not ready")

	// ErrUnknownInput marks a fuzzifier lookup against an input variable
	// that has no membership functions configured.
	ErrUnknownInput = errors.New("ctlerr: unknown input variable")
)

// Overrun is informational, not a sentinel error: the scheduler logs it and
// continues. SaturationWarning is likewise informational, emitted by the
// defuzzifier. Neither implements error because neither is ever returned
// from a function that can fail the tick.
