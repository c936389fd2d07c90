// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package fuzzy

import (
	"testing"

	"github.com/tim8trudeau/carriage-flc/internal/config"
)

func ruleTestConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Scaling = config.Scaling{ThetaScaleFactor: 1, OmegaScaleFactor: 1}
	cfg.RuleBase = []config.Rule{
		{
			Antecedent: [2]string{"ZERO", "ZERO"},
			Output:     config.RuleOutput{ThetaCoeff: -1, OmegaCoeff: -1, Bias: 0},
		},
		{
			Antecedent: [2]string{"POS", "POS"},
			Output:     config.RuleOutput{ThetaCoeff: -1, OmegaCoeff: -0.5, Bias: -0.1},
		},
	}
	return cfg
}

func TestRuleEngineDropsZeroFiringRules(t *testing.T) {
	r := NewRuleEngine(ruleTestConfig())
	fzTheta := map[string]float64{"ZERO": 1.0}
	fzOmega := map[string]float64{}

	active := r.Evaluate(fzTheta, fzOmega, 0.2, 0.1)
	if len(active) != 1 {
		t.Fatalf("len(active) = %d, want 1 (second rule has zero firing strength)", len(active))
	}
	if active[0].W != 1.0 {
		t.Errorf("W = %v, want 1.0 (max of theta=1.0, omega=0)", active[0].W)
	}
}

func TestRuleEngineNegativeFeedback(t *testing.T) {
	r := NewRuleEngine(ruleTestConfig())
	fzTheta := map[string]float64{"ZERO": 1.0}
	fzOmega := map[string]float64{"ZERO": 1.0}

	active := r.Evaluate(fzTheta, fzOmega, 0.5, 0.5)
	if len(active) != 1 {
		t.Fatalf("len(active) = %d, want 1", len(active))
	}
	// theta_coeff=-1, omega_coeff=-1, bias=0: positive error must produce a
	// negative crisp consequent.
	if active[0].Z >= 0 {
		t.Errorf("Z = %v, want < 0 for positive (thetaN, omegaN) under negative-feedback coefficients", active[0].Z)
	}
}

func TestRuleEngineOutputOrderMatchesDeclaration(t *testing.T) {
	r := NewRuleEngine(ruleTestConfig())
	fzTheta := map[string]float64{"ZERO": 1.0, "POS": 1.0}
	fzOmega := map[string]float64{"ZERO": 1.0, "POS": 1.0}

	active := r.Evaluate(fzTheta, fzOmega, 0.1, 0.1)
	if len(active) != 2 {
		t.Fatalf("len(active) = %d, want 2", len(active))
	}
	// rule 0 (ZERO/ZERO) has bias 0, rule 1 (POS/POS) has bias -0.1: declaration
	// order means rule 0's Z is computed before rule 1's.
	wantZ0 := -1*0.1 + -1*0.1
	if active[0].Z != wantZ0 {
		t.Errorf("active[0].Z = %v, want %v", active[0].Z, wantZ0)
	}
}
