// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/tim8trudeau/carriage-flc/internal/ctlerr"
)

const validTOML = `
[scaling]
THETA_MAX_RAD = 1.5708
OMEGA_MAX_RAD_S = 10.0
THETA_SCALE_FACTOR = 1.0
OMEGA_SCALE_FACTOR = 1.0

[iir_filter]
SAMPLE_RATE_HZ = 200.0
ACCEL_CUTOFF_HZ = 5.0
OMEGA_CUTOFF_HZ = 10.0

[controller_params]
THETA_RANGE_RAD = 1.5708
OMEGA_MAX_RAD_S = 10.0
ACCEL_1G_RAW = 16384.0
GYRO_LSB_PER_DPS = 114.0
LOOP_FREQ_HZ = 200.0
PWM_FREQ_HZ = 20000.0
I2C_BUS = 1
I2C_ADDR = 0x6A
TILT_PLANE = "XZ"
RATE_AXIS = "Y"

[pwm]
MIN_PWM = 57000
MAX_PWM = 1000000

[membership_functions.theta]
NL = [-1.0, -1.0, -0.5]
ZE = [-0.5, 0.0, 0.5]
PL = [0.5, 1.0, 1.0]

[membership_functions.omega]
NL = [-1.0, -1.0, -0.5]
ZE = [-0.5, 0.0, 0.5]
PL = [0.5, 1.0, 1.0]

[[rule_base]]
rule = ["NL", "ZE"]
output = { theta_coeff = -1.0, omega_coeff = 0.0, bias = 0.0 }

[[rule_base]]
rule = ["ZE", "NL"]
output = { theta_coeff = 0.0, omega_coeff = -1.0, bias = 0.0 }
`

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "flc_config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeTemp(t, validTOML)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.OmegaCutoffHz() != 10.0 {
		t.Errorf("OmegaCutoffHz() = %v, want 10.0", cfg.OmegaCutoffHz())
	}
	if cfg.SampleRateHz() != 200.0 {
		t.Errorf("SampleRateHz() = %v, want 200.0", cfg.SampleRateHz())
	}
	if len(cfg.RuleBase) != 2 {
		t.Fatalf("RuleBase len = %d, want 2", len(cfg.RuleBase))
	}
}

func TestResolveCutoffsLegacyFallback(t *testing.T) {
	cfg := &Config{
		IIRParamsRaw: IIR{SampleRateHz: 100.0, AccelCutoffHz: 4.0, CutoffFreqHz: 8.0},
	}
	ResolveCutoffs(cfg)
	if cfg.SampleRateHz() != 100.0 {
		t.Errorf("SampleRateHz() = %v, want 100.0 (from iir_params)", cfg.SampleRateHz())
	}
	if cfg.OmegaCutoffHz() != 8.0 {
		t.Errorf("OmegaCutoffHz() = %v, want 8.0 (CUTOFF_FREQ_HZ alias)", cfg.OmegaCutoffHz())
	}
}

func TestResolveCutoffsPrefersNewTableAndKey(t *testing.T) {
	cfg := &Config{
		IIRRaw:       IIR{SampleRateHz: 200.0, AccelCutoffHz: 5.0, OmegaCutoffHz: 12.0, CutoffFreqHz: 99.0},
		IIRParamsRaw: IIR{SampleRateHz: 100.0, AccelCutoffHz: 4.0, CutoffFreqHz: 8.0},
	}
	ResolveCutoffs(cfg)
	if cfg.SampleRateHz() != 200.0 {
		t.Errorf("SampleRateHz() = %v, want 200.0 (iir_filter wins)", cfg.SampleRateHz())
	}
	if cfg.OmegaCutoffHz() != 12.0 {
		t.Errorf("OmegaCutoffHz() = %v, want 12.0 (OMEGA_CUTOFF_HZ wins over CUTOFF_FREQ_HZ)", cfg.OmegaCutoffHz())
	}
}

func TestLoadRejectsPositiveFeedbackRule(t *testing.T) {
	bad := validTOML + "\n[[rule_base]]\nrule = [\"PL\", \"PL\"]\noutput = { theta_coeff = 1.0, omega_coeff = 0.0, bias = 0.0 }\n"
	path := writeTemp(t, bad)
	_, err := Load(path)
	if !errors.Is(err, ctlerr.ErrConfig) {
		t.Fatalf("Load with positive-feedback rule: err = %v, want ctlerr.ErrConfig", err)
	}
}

func TestLoadRejectsUnknownRuleSet(t *testing.T) {
	bad := validTOML + "\n[[rule_base]]\nrule = [\"HUGE\", \"ZE\"]\noutput = { theta_coeff = -1.0, omega_coeff = 0.0, bias = 0.0 }\n"
	path := writeTemp(t, bad)
	_, err := Load(path)
	if !errors.Is(err, ctlerr.ErrConfig) {
		t.Fatalf("Load with unknown rule set: err = %v, want ctlerr.ErrConfig", err)
	}
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if !errors.Is(err, ctlerr.ErrConfig) {
		t.Fatalf("Load missing file: err = %v, want ctlerr.ErrConfig", err)
	}
}
