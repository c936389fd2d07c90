// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package fuzzy implements the Sugeno-style inference pipeline: fuzzification
// against triangular/trapezoidal membership functions, OR-combined rule
// firing with a linear crisp consequent, and weighted-average defuzzification.
package fuzzy

import "github.com/tim8trudeau/carriage-flc/internal/config"

// membershipDegree evaluates a triangular (3-parameter) or trapezoidal
// (4-parameter) membership function at x. Parameter ordering is validated
// at config load time, so only the two valid lengths are handled here.
func membershipDegree(x float64, params config.MembershipSet) float64 {
	if len(params) == 4 {
		return trapezoid(x, params[0], params[1], params[2], params[3])
	}
	return triangle(x, params[0], params[1], params[2])
}

func triangle(x, a, b, c float64) float64 {
	switch {
	case x < a || x > c:
		return 0
	case x <= b:
		if b == a {
			return 1
		}
		return (x - a) / (b - a)
	default:
		if c == b {
			return 1
		}
		return (c - x) / (c - b)
	}
}

func trapezoid(x, a, b, c, d float64) float64 {
	switch {
	case x < a || x > d:
		return 0
	case x < b:
		if b == a {
			return 1
		}
		return (x - a) / (b - a)
	case x <= c:
		return 1
	default:
		if d == c {
			return 1
		}
		return (d - x) / (d - c)
	}
}
