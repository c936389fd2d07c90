// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package fuzzy

import (
	"testing"

	"github.com/tim8trudeau/carriage-flc/internal/config"
)

func TestTriangleEdgesAndPlateau(t *testing.T) {
	params := config.MembershipSet{-1, 0, 1}
	cases := []struct {
		x    float64
		want float64
	}{
		{-1, 0},
		{-0.5, 0.5},
		{0, 1},
		{0.5, 0.5},
		{1, 0},
		{2, 0},
	}
	for _, c := range cases {
		got := membershipDegree(c.x, params)
		if got != c.want {
			t.Errorf("triangle(%v) = %v, want %v", c.x, got, c.want)
		}
	}
}

func TestTriangleDegenerateSlopeReturnsOne(t *testing.T) {
	params := config.MembershipSet{0, 0, 1}
	if got := membershipDegree(0, params); got != 1 {
		t.Errorf("degenerate left slope at apex = %v, want 1", got)
	}
}

func TestTrapezoidPlateau(t *testing.T) {
	params := config.MembershipSet{-2, -1, 1, 2}
	cases := []struct {
		x    float64
		want float64
	}{
		{-2, 0},
		{-1.5, 0.5},
		{-1, 1},
		{0, 1},
		{1, 1},
		{1.5, 0.5},
		{2, 0},
	}
	for _, c := range cases {
		got := membershipDegree(c.x, params)
		if got != c.want {
			t.Errorf("trapezoid(%v) = %v, want %v", c.x, got, c.want)
		}
	}
}
