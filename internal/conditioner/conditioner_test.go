// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package conditioner

import (
	"math"
	"testing"

	"github.com/tim8trudeau/carriage-flc/internal/config"
)

// fixedAxes replays a fixed sequence of raw samples, one per ReadAllAxes
// call, repeating the last entry once exhausted.
type fixedAxes struct {
	samples [][6]int16
	i       int
}

func (f *fixedAxes) ReadByte(reg byte) (byte, error)         { return 0, nil }
func (f *fixedAxes) ReadBlock(reg byte, n int) ([]byte, error) { return make([]byte, n), nil }
func (f *fixedAxes) WriteByte(reg, val byte) error            { return nil }
func (f *fixedAxes) Close() error                             { return nil }

func (f *fixedAxes) ReadAllAxes() (ax, ay, az, gx, gy, gz int16, err error) {
	s := f.samples[f.i]
	if f.i < len(f.samples)-1 {
		f.i++
	}
	return s[0], s[1], s[2], s[3], s[4], s[5], nil
}

func baseConfig() *config.Config {
	cfg := &config.Config{}
	cfg.ControllerParams = config.IMU{
		ThetaRangeRad:   math.Pi / 2,
		AccelRawFS:      16384,
		Accel1gRaw:      16384,
		GyroLSBPerDPS:   65.5,
		LoopFreqHz:      100,
		TiltPlane:       config.TiltPlaneXZ,
		RateAxis:        config.RateAxisY,
		GyroBiasSamples: 20,
	}
	cfg.IIRRaw = config.IIR{SampleRateHz: 100, AccelCutoffHz: 20, OmegaCutoffHz: 20}
	config.ResolveCutoffs(cfg)
	return cfg
}

func TestThetaZeroAtTop(t *testing.T) {
	transport := &fixedAxes{samples: [][6]int16{{0, 0, -16384, 0, 0, 0}}}
	cfg := baseConfig()
	c, err := New(transport, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var thetaN float64
	for i := 0; i < 50; i++ {
		thetaN, _, err = c.ReadNormalized()
		if err != nil {
			t.Fatalf("ReadNormalized: %v", err)
		}
	}
	if math.Abs(thetaN) >= 1e-3 {
		t.Errorf("thetaN = %v, want |thetaN| < 1e-3", thetaN)
	}
}

func TestThetaPlus90CCW(t *testing.T) {
	transport := &fixedAxes{samples: [][6]int16{{16384, 0, 0, 0, 0, 0}}}
	cfg := baseConfig()
	c, err := New(transport, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var thetaN float64
	for i := 0; i < 50; i++ {
		thetaN, _, err = c.ReadNormalized()
		if err != nil {
			t.Fatalf("ReadNormalized: %v", err)
		}
	}
	if thetaN <= 0.90 {
		t.Errorf("thetaN = %v, want > 0.90", thetaN)
	}
}

func TestOmegaSignAndClamp(t *testing.T) {
	cfg := baseConfig()
	// Raw gyro counts are int16, so the de-biased rate only passes full
	// scale when the bias has the opposite sign: calibrate at one extreme,
	// then read the other.
	cfg.ControllerParams.DoGyroBiasCal = true
	n := cfg.ControllerParams.GyroBiasSamples
	withBias := func(bias, gy int16) [][6]int16 {
		s := make([][6]int16, n+1)
		for i := 0; i < n; i++ {
			s[i] = [6]int16{0, 0, -16384, 0, bias, 0}
		}
		s[n] = [6]int16{0, 0, -16384, 0, gy, 0}
		return s
	}

	pos := &fixedAxes{samples: withBias(-32768, 32767)}
	c, err := New(pos, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	var omegaN float64
	for i := 0; i < 50; i++ {
		_, omegaN, _ = c.ReadNormalized()
	}
	if omegaN != 1.0 {
		t.Errorf("positive clamp: omegaN = %v, want 1.0", omegaN)
	}

	neg := &fixedAxes{samples: withBias(32767, -32768)}
	c2, err := New(neg, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i := 0; i < 50; i++ {
		_, omegaN, _ = c2.ReadNormalized()
	}
	if omegaN != -1.0 {
		t.Errorf("negative clamp: omegaN = %v, want -1.0", omegaN)
	}
}

func TestGyroBiasCalibrationZeroesConstantGyro(t *testing.T) {
	cfg := baseConfig()
	cfg.ControllerParams.DoGyroBiasCal = true
	cfg.ControllerParams.GyroBiasSamples = 20

	transport := &fixedAxes{samples: [][6]int16{{0, 0, -16384, 0, 100, 0}}}
	c, err := New(transport, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var omegaN float64
	for i := 0; i < 50; i++ {
		_, omegaN, _ = c.ReadNormalized()
	}
	if math.Abs(omegaN) >= 0.02 {
		t.Errorf("omegaN = %v, want |omegaN| < 0.02 after bias calibration", omegaN)
	}
}

func TestSoftClipNeverSaturatesExactly(t *testing.T) {
	fs := 16384.0
	for _, v := range []float64{1e6, -1e6, fs, -fs, 0} {
		got := softClip(v, fs)
		if math.Abs(got) >= fs {
			t.Errorf("softClip(%v, %v) = %v, want |result| < fs", v, fs, got)
		}
	}
}
