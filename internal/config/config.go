// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package config loads the immutable, load-once parameter struct consumed by
// every component of the control pipeline: scaling ranges, IIR filter
// coefficients, IMU options, the rule base, membership tables, and the PWM
// and loop timing parameters.
package config

import (
	"fmt"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/tim8trudeau/carriage-flc/internal/ctlerr"
)

// TiltPlane selects which pair of accelerometer axes define the tilt plane,
// a mechanical-mounting choice fixed at configuration time (spec §9).
type TiltPlane string

const (
	TiltPlaneXZ TiltPlane = "XZ"
	TiltPlaneYZ TiltPlane = "YZ"
)

// RateAxis selects which gyro axis reports the wheel's angular rate.
type RateAxis string

const (
	RateAxisX RateAxis = "X"
	RateAxisY RateAxis = "Y"
	RateAxisZ RateAxis = "Z"
)

// Scaling holds the [scaling] table. The rule engine reads its scale
// factors; the conditioner does not read it and normalizes tilt with
// controller_params.THETA_RANGE_RAD instead.
type Scaling struct {
	ThetaMaxRad      float64 `toml:"THETA_MAX_RAD"`
	OmegaMaxRadS     float64 `toml:"OMEGA_MAX_RAD_S"`
	ThetaScaleFactor float64 `toml:"THETA_SCALE_FACTOR"`
	OmegaScaleFactor float64 `toml:"OMEGA_SCALE_FACTOR"`
}

// IIR holds the low-pass filter design parameters (§3 "Filter state").
type IIR struct {
	SampleRateHz  float64 `toml:"SAMPLE_RATE_HZ"`
	AccelCutoffHz float64 `toml:"ACCEL_CUTOFF_HZ"`
	// OmegaCutoffHz is the canonical key. CutoffFreqHz is a legacy alias
	// honored only when OmegaCutoffHz is zero (see DESIGN.md Open Question).
	OmegaCutoffHz float64 `toml:"OMEGA_CUTOFF_HZ"`
	CutoffFreqHz  float64 `toml:"CUTOFF_FREQ_HZ"`
}

// resolvedOmegaCutoff applies the OMEGA_CUTOFF_HZ > CUTOFF_FREQ_HZ precedence.
func (i IIR) resolvedOmegaCutoff() float64 {
	if i.OmegaCutoffHz > 0 {
		return i.OmegaCutoffHz
	}
	return i.CutoffFreqHz
}

// IMU holds the sensor conditioning options (§3 "Configuration", §4.2).
type IMU struct {
	ThetaRangeRad     float64   `toml:"THETA_RANGE_RAD"`
	OmegaMaxRadS      float64   `toml:"OMEGA_MAX_RAD_S"`
	GyroFullScaleRadS float64   `toml:"GYRO_FULL_SCALE_RADS_S"`
	AccelRawFS        float64   `toml:"ACCEL_RAW_FS"`
	Accel1gRaw        float64   `toml:"ACCEL_1G_RAW"`
	GyroLSBPerDPS     float64   `toml:"GYRO_LSB_PER_DPS"`
	DoGyroBiasCal     bool      `toml:"DO_GYRO_BIAS_CAL"`
	GyroBiasSamples   int       `toml:"GYRO_BIAS_SAMPLES"`
	UseComplementary  bool      `toml:"USE_COMPLEMENTARY"`
	CompAlpha         float64   `toml:"COMP_ALPHA"`
	AccelMagTolG      float64   `toml:"ACCEL_MAG_TOL_G"`
	LoopFreqHz        float64   `toml:"LOOP_FREQ_HZ"`
	PWMFreqHz         float64   `toml:"PWM_FREQ_HZ"`
	I2CBus            int       `toml:"I2C_BUS"`
	I2CAddr           uint16    `toml:"I2C_ADDR"`
	TiltPlane         TiltPlane `toml:"TILT_PLANE"`
	RateAxis          RateAxis  `toml:"RATE_AXIS"`
}

// MembershipSet is one linguistic set's parameters: 3 floats for a triangle
// (a, b, c) or 4 for a trapezoid (a, b, c, d). Validated at load time.
type MembershipSet []float64

// MFTable maps a linguistic set name to its parameters for one input
// variable.
type MFTable map[string]MembershipSet

// RuleOutput is a rule's Sugeno consequent coefficients (§3 "Rule").
type RuleOutput struct {
	ThetaCoeff float64 `toml:"theta_coeff"`
	OmegaCoeff float64 `toml:"omega_coeff"`
	Bias       float64 `toml:"bias"`
}

// Rule is one row of the rule base.
type Rule struct {
	Antecedent [2]string  `toml:"rule"`
	Output     RuleOutput `toml:"output"`
}

// PWM holds the actuation dead-zone parameters (§4.6).
type PWM struct {
	MinPWM int `toml:"MIN_PWM"`
	MaxPWM int `toml:"MAX_PWM"`
}

// Config is the single immutable structure built once at load and shared
// read-only by every component for the program's lifetime.
type Config struct {
	Scaling             Scaling            `toml:"scaling"`
	IIRRaw              IIR                `toml:"iir_filter"`
	IIRParamsRaw        IIR                `toml:"iir_params"`
	ControllerParams    IMU                `toml:"controller_params"`
	MembershipFunctions map[string]MFTable `toml:"membership_functions"`
	RuleBase            []Rule             `toml:"rule_base"`
	PWMParams           PWM                `toml:"pwm"`

	// resolved* are computed once at load from IIRRaw/IIRParamsRaw per the
	// OMEGA_CUTOFF_HZ/CUTOFF_FREQ_HZ precedence rule (see Open Question in
	// spec §9, resolved in SPEC_FULL.md).
	resolvedOmegaCutoffHz float64
	resolvedAccelCutoffHz float64
	resolvedSampleRateHz  float64
}

// OmegaCutoffHz returns the resolved gyro low-pass cutoff, honoring the
// OMEGA_CUTOFF_HZ > CUTOFF_FREQ_HZ precedence across both [iir_filter] and
// [iir_params] tables.
func (c *Config) OmegaCutoffHz() float64 { return c.resolvedOmegaCutoffHz }

// AccelCutoffHz returns the resolved accelerometer low-pass cutoff.
func (c *Config) AccelCutoffHz() float64 { return c.resolvedAccelCutoffHz }

// SampleRateHz returns the resolved IIR sample rate.
func (c *Config) SampleRateHz() float64 { return c.resolvedSampleRateHz }

var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
	initErr      error
)

// Load reads and validates a TOML configuration file, returning the
// immutable Config.
func Load(path string) (*Config, error) {
	var cfg Config
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ctlerr.ErrConfig, path, err)
	}
	if !md.IsDefined("scaling") {
		return nil, fmt.Errorf("%w: %s: missing [scaling] table", ctlerr.ErrConfig, path)
	}

	ResolveCutoffs(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ResolveCutoffs applies the precedence rule: prefer [iir_filter] over
// [iir_params] when both are present (the newer table wins over the legacy
// one), then OMEGA_CUTOFF_HZ over CUTOFF_FREQ_HZ within whichever table
// supplied a sample rate. Exported so tests can build a Config by hand and
// still exercise the real resolution logic.
func ResolveCutoffs(cfg *Config) {
	primary := cfg.IIRRaw
	if primary.SampleRateHz == 0 {
		primary = cfg.IIRParamsRaw
	}
	cfg.resolvedSampleRateHz = primary.SampleRateHz
	cfg.resolvedAccelCutoffHz = primary.AccelCutoffHz
	cfg.resolvedOmegaCutoffHz = primary.resolvedOmegaCutoff()
}

// validate enforces the invariants spec §3/§4.3/§4.4 require at load time:
// MF parameter ordering, the rule base's negative-feedback constraint, and
// that every rule references a known input set.
func (c *Config) validate() error {
	if c.resolvedSampleRateHz <= 0 {
		return fmt.Errorf("%w: iir_filter.SAMPLE_RATE_HZ must be > 0", ctlerr.ErrConfig)
	}
	if c.resolvedAccelCutoffHz <= 0 {
		return fmt.Errorf("%w: iir_filter.ACCEL_CUTOFF_HZ must be > 0", ctlerr.ErrConfig)
	}
	if c.resolvedOmegaCutoffHz <= 0 {
		return fmt.Errorf("%w: iir_filter.OMEGA_CUTOFF_HZ (or CUTOFF_FREQ_HZ) must be > 0", ctlerr.ErrConfig)
	}
	if c.ControllerParams.ThetaRangeRad <= 0 {
		return fmt.Errorf("%w: controller_params.THETA_RANGE_RAD must be > 0", ctlerr.ErrConfig)
	}
	switch c.ControllerParams.TiltPlane {
	case TiltPlaneXZ, TiltPlaneYZ:
	default:
		return fmt.Errorf("%w: controller_params.TILT_PLANE must be XZ or YZ, got %q", ctlerr.ErrConfig, c.ControllerParams.TiltPlane)
	}
	switch c.ControllerParams.RateAxis {
	case RateAxisX, RateAxisY, RateAxisZ:
	default:
		return fmt.Errorf("%w: controller_params.RATE_AXIS must be X, Y, or Z, got %q", ctlerr.ErrConfig, c.ControllerParams.RateAxis)
	}

	for varName, table := range c.MembershipFunctions {
		for setName, params := range table {
			if err := validateMF(params); err != nil {
				return fmt.Errorf("%w: membership_functions.%s.%s: %v", ctlerr.ErrConfig, varName, setName, err)
			}
		}
	}

	for i, rule := range c.RuleBase {
		thetaSet, omegaSet := rule.Antecedent[0], rule.Antecedent[1]
		if _, ok := c.MembershipFunctions["theta"][thetaSet]; !ok {
			return fmt.Errorf("%w: rule_base[%d] references unknown theta set %q", ctlerr.ErrConfig, i, thetaSet)
		}
		if _, ok := c.MembershipFunctions["omega"][omegaSet]; !ok {
			return fmt.Errorf("%w: rule_base[%d] references unknown omega set %q", ctlerr.ErrConfig, i, omegaSet)
		}
		if rule.Output.ThetaCoeff > 0 || rule.Output.OmegaCoeff > 0 {
			return fmt.Errorf("%w: rule_base[%d] violates negative-feedback constraint (theta_coeff=%.3f, omega_coeff=%.3f must both be <= 0)",
				ctlerr.ErrConfig, i, rule.Output.ThetaCoeff, rule.Output.OmegaCoeff)
		}
	}

	if c.PWMParams.MaxPWM <= c.PWMParams.MinPWM {
		return fmt.Errorf("%w: pwm.MAX_PWM (%d) must exceed pwm.MIN_PWM (%d)", ctlerr.ErrConfig, c.PWMParams.MaxPWM, c.PWMParams.MinPWM)
	}

	if c.ControllerParams.LoopFreqHz <= 0 {
		return fmt.Errorf("%w: controller_params.LOOP_FREQ_HZ must be > 0", ctlerr.ErrConfig)
	}

	return nil
}

func validateMF(params MembershipSet) error {
	switch len(params) {
	case 3:
		a, b, c := params[0], params[1], params[2]
		if !(a <= b && b <= c) {
			return fmt.Errorf("triangular params must satisfy a<=b<=c, got [%.3f %.3f %.3f]", a, b, c)
		}
	case 4:
		a, b, c, d := params[0], params[1], params[2], params[3]
		if !(a <= b && b <= c && c <= d) {
			return fmt.Errorf("trapezoidal params must satisfy a<=b<=c<=d, got [%.3f %.3f %.3f %.3f]", a, b, c, d)
		}
	default:
		return fmt.Errorf("membership function must have 3 (triangle) or 4 (trapezoid) params, got %d", len(params))
	}
	return nil
}

// InitGlobal loads the configuration once and stores it as the process-wide
// singleton. Safe to call more than once; only the first call's path takes
// effect.
func InitGlobal(path string) error {
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, initErr = Load(path)
	})
	return initErr
}

// Get returns the global configuration. InitGlobal must run first, or this
// returns nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
