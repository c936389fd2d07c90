// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package fuzzy

import (
	"math"

	"github.com/tim8trudeau/carriage-flc/internal/config"
)

// Firing is one active rule's firing strength and crisp consequent.
type Firing struct {
	W float64
	Z float64
}

// RuleEngine evaluates the configured rule base against a pair of fuzzified
// inputs.
type RuleEngine struct {
	rules      []config.Rule
	thetaScale float64
	omegaScale float64
}

// NewRuleEngine builds a RuleEngine from the loaded rule base and scaling
// factors.
func NewRuleEngine(cfg *config.Config) *RuleEngine {
	return &RuleEngine{
		rules:      cfg.RuleBase,
		thetaScale: cfg.Scaling.ThetaScaleFactor,
		omegaScale: cfg.Scaling.OmegaScaleFactor,
	}
}

// Evaluate combines each rule's antecedent membership degrees with
// fuzzy-OR (max), drops rules with zero firing strength, and computes the
// surviving rules' linear Sugeno consequent on the normalized crisp inputs.
// Output order matches rule-declaration order.
func (r *RuleEngine) Evaluate(fzTheta, fzOmega map[string]float64, thetaN, omegaN float64) []Firing {
	var active []Firing
	for _, rule := range r.rules {
		muTheta := fzTheta[rule.Antecedent[0]]
		muOmega := fzOmega[rule.Antecedent[1]]
		w := math.Max(muTheta, muOmega)
		if w == 0 {
			continue
		}

		z := rule.Output.ThetaCoeff*r.thetaScale*thetaN +
			rule.Output.OmegaCoeff*r.omegaScale*omegaN +
			rule.Output.Bias

		active = append(active, Firing{W: w, Z: z})
	}
	return active
}
