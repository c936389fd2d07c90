// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package conditioner turns raw six-axis IMU samples into normalized tilt
// and angular rate in [-1, 1], applying soft saturation, a first-order
// low-pass filter, gyro-bias removal, and an optional complementary
// estimator blending gyro integration with accelerometer tilt.
package conditioner

import (
	"fmt"
	"math"
	"time"

	"github.com/tim8trudeau/carriage-flc/internal/config"
	"github.com/tim8trudeau/carriage-flc/internal/imutransport"
)

// omegaFSLSB is the raw gyro full-scale count (int16 magnitude) used to
// normalize the filtered rate into [-1, 1].
const omegaFSLSB = 32768.0

const degToRad = math.Pi / 180.0

// Conditioner holds the filter state carried between ticks: low-passed
// accelerometer axes, filtered gyro rate, gyro bias, and (when the
// complementary filter is enabled) the blended tilt estimate and last
// sample time.
type Conditioner struct {
	t   imutransport.Transport
	cfg *config.Config

	alphaAcc   float64
	alphaOmega float64

	axLP      float64
	azLP      float64
	omegaFilt float64
	gyroBiasY float64

	thetaEst  float64
	lastT     time.Time
	haveLastT bool
}

// New builds a Conditioner bound to t and cfg, running gyro-bias calibration
// first if cfg.ControllerParams.DoGyroBiasCal is set. The caller must keep
// the carriage stationary until New returns.
func New(t imutransport.Transport, cfg *config.Config) (*Conditioner, error) {
	c := &Conditioner{
		t:          t,
		cfg:        cfg,
		alphaAcc:   computeAlpha(cfg.AccelCutoffHz(), cfg.SampleRateHz()),
		alphaOmega: computeAlpha(cfg.OmegaCutoffHz(), cfg.SampleRateHz()),
	}

	if cfg.ControllerParams.DoGyroBiasCal {
		n := cfg.ControllerParams.GyroBiasSamples
		if n <= 0 {
			n = 200
		}
		if err := c.Calibrate(n); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// computeAlpha derives the exponential-filter coefficient from a cutoff
// frequency and sample rate: alpha = dt / (RC + dt), RC = 1 / (2*pi*fc).
func computeAlpha(cutoffHz, sampleRateHz float64) float64 {
	dt := 1.0 / sampleRateHz
	rc := 1.0 / (2 * math.Pi * cutoffHz)
	return dt / (rc + dt)
}

// Calibrate reads n samples off the rate axis, averages them into the gyro
// bias, discards the samples, and resets all filter state to zero. The
// carriage must be stationary for the duration of the call.
func (c *Conditioner) Calibrate(n int) error {
	var sum float64
	for i := 0; i < n; i++ {
		_, _, _, gx, gy, gz, err := c.t.ReadAllAxes()
		if err != nil {
			return fmt.Errorf("conditioner: gyro bias calibration sample %d/%d: %w", i+1, n, err)
		}
		sum += c.rateRaw(gx, gy, gz)
	}
	c.gyroBiasY = sum / float64(n)
	c.axLP, c.azLP, c.omegaFilt, c.thetaEst = 0, 0, 0, 0
	c.haveLastT = false
	return nil
}

// ReadNormalized performs one conditioning cycle: read raw axes, soft-clip
// and low-pass the accelerometer, low-pass and de-bias the gyro, optionally
// blend in the complementary filter, then normalize and clamp both outputs
// to [-1, 1].
func (c *Conditioner) ReadNormalized() (thetaN, omegaN float64, err error) {
	ax, ay, az, gx, gy, gz, err := c.t.ReadAllAxes()
	if err != nil {
		return 0, 0, err
	}

	u, v := c.tiltRaw(ax, ay, az)
	fs := c.cfg.ControllerParams.AccelRawFS
	uClip := softClip(u, fs)
	vClip := softClip(v, fs)

	c.axLP += c.alphaAcc * (uClip - c.axLP)
	c.azLP += c.alphaAcc * (vClip - c.azLP)

	rate := c.rateRaw(gx, gy, gz) - c.gyroBiasY
	c.omegaFilt += c.alphaOmega * (rate - c.omegaFilt)

	thetaAcc := math.Atan2(c.axLP, -c.azLP)
	theta := thetaAcc

	if c.cfg.ControllerParams.UseComplementary {
		theta = c.blendComplementary(thetaAcc)
	}

	thetaN = clamp(theta/c.cfg.ControllerParams.ThetaRangeRad, -1, 1)
	omegaN = clamp(c.omegaFilt/omegaFSLSB, -1, 1)
	return thetaN, omegaN, nil
}

func (c *Conditioner) blendComplementary(thetaAcc float64) float64 {
	now := time.Now()
	dt := 1.0 / c.cfg.ControllerParams.LoopFreqHz
	if c.haveLastT {
		dt = now.Sub(c.lastT).Seconds()
	}
	c.lastT = now
	c.haveLastT = true

	omegaRadS := c.omegaFilt / c.cfg.ControllerParams.GyroLSBPerDPS * degToRad
	thetaGyro := c.thetaEst + omegaRadS*dt

	mag := math.Hypot(c.axLP, c.azLP) / c.cfg.ControllerParams.Accel1gRaw
	tol := c.cfg.ControllerParams.AccelMagTolG
	alpha := c.cfg.ControllerParams.CompAlpha
	if mag < 1-tol || mag > 1+tol {
		alpha = 1.0 // accel reading untrustworthy this sample, trust gyro only
	}

	theta := alpha*thetaGyro + (1-alpha)*thetaAcc
	c.thetaEst = theta
	return theta
}

// rateRaw selects the configured rate axis from one gyro sample. Config
// validation rejects any RateAxis outside {X, Y, Z}, so an unrecognized
// value here only happens with a hand-built Config that skipped validate;
// it defaults to Y, the spec's primary mounting, rather than falling
// through to Z.
func (c *Conditioner) rateRaw(gx, gy, gz int16) float64 {
	switch c.cfg.ControllerParams.RateAxis {
	case config.RateAxisX:
		return float64(gx)
	case config.RateAxisZ:
		return float64(gz)
	default:
		return float64(gy)
	}
}

// tiltRaw selects the configured tilt-plane axes (in-plane, then the axis
// gravity projects onto at rest) from one accelerometer sample. As with
// rateRaw, an unrecognized TiltPlane defaults to the spec's primary
// mounting (XZ) rather than YZ.
func (c *Conditioner) tiltRaw(ax, ay, az int16) (u, v float64) {
	switch c.cfg.ControllerParams.TiltPlane {
	case config.TiltPlaneYZ:
		return float64(ay), float64(az)
	default:
		return float64(ax), float64(az)
	}
}

// softClip asymptotes toward +-fs instead of hard-clipping, so atan2 never
// sees a flat-topped input near saturation.
func softClip(v, fs float64) float64 {
	out := fs * math.Tanh(v/fs)
	// tanh rounds to exactly +-1 once |v/fs| passes ~19; keep the result
	// one step inside +-fs so it never equals the bound.
	if math.Abs(out) >= fs {
		return math.Copysign(math.Nextafter(fs, 0), v)
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
