// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package fuzzy

import (
	"fmt"

	"github.com/tim8trudeau/carriage-flc/internal/config"
	"github.com/tim8trudeau/carriage-flc/internal/ctlerr"
)

// Fuzzifier maps a crisp input value to the degree it belongs to each
// linguistic set of a named input variable ("theta", "omega").
type Fuzzifier struct {
	tables map[string]config.MFTable
}

// NewFuzzifier builds a Fuzzifier from the loaded membership-function
// tables.
func NewFuzzifier(cfg *config.Config) *Fuzzifier {
	return &Fuzzifier{tables: cfg.MembershipFunctions}
}

// Fuzzify returns the membership degree of x in every set of inputName,
// omitting sets with zero degree. Returns ErrUnknownInput if inputName has
// no membership functions configured.
func (f *Fuzzifier) Fuzzify(inputName string, x float64) (map[string]float64, error) {
	table, ok := f.tables[inputName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ctlerr.ErrUnknownInput, inputName)
	}

	out := make(map[string]float64, len(table))
	for setName, params := range table {
		mu := membershipDegree(x, params)
		if mu > 0 {
			out[setName] = mu
		}
	}
	return out, nil
}
