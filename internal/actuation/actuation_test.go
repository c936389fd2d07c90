// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package actuation

import "testing"

func TestDutyForSpeedDeadZone(t *testing.T) {
	cw, ccw := dutyForSpeed(0, 57000, 1000000)
	if cw != 0 || ccw != 0 {
		t.Errorf("dutyForSpeed(0) = (%d, %d), want (0, 0)", cw, ccw)
	}

	cw, ccw = dutyForSpeed(1e-7, 57000, 1000000)
	if cw != 0 || ccw != 0 {
		t.Errorf("dutyForSpeed(1e-7) = (%d, %d), want (0, 0) (below dead zone)", cw, ccw)
	}
}

func TestDutyForSpeedScenario(t *testing.T) {
	cw, ccw := dutyForSpeed(0.5, 57000, 1000000)
	if cw != 528500 {
		t.Errorf("dutyForSpeed(0.5) cw = %d, want 528500", cw)
	}
	if ccw != 0 {
		t.Errorf("dutyForSpeed(0.5) ccw = %d, want 0", ccw)
	}
}

func TestDutyForSpeedNegativeUsesCCW(t *testing.T) {
	cw, ccw := dutyForSpeed(-0.5, 57000, 1000000)
	if cw != 0 {
		t.Errorf("dutyForSpeed(-0.5) cw = %d, want 0", cw)
	}
	if ccw != 528500 {
		t.Errorf("dutyForSpeed(-0.5) ccw = %d, want 528500", ccw)
	}
}

func TestDutyForSpeedClampsMagnitude(t *testing.T) {
	cw, _ := dutyForSpeed(5.0, 57000, 1000000)
	if cw != 1000000 {
		t.Errorf("dutyForSpeed(5.0) cw = %d, want clamped to 1000000", cw)
	}
}

func TestSimMotorStopZeroesDuty(t *testing.T) {
	m := NewSimMotor(57000, 1000000)
	if err := m.SetSpeed(0.5); err != nil {
		t.Fatalf("SetSpeed: %v", err)
	}
	if m.LastCW == 0 {
		t.Fatalf("expected nonzero CW duty before Stop")
	}
	if err := m.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if !m.Stopped || m.LastCW != 0 || m.LastCCW != 0 {
		t.Errorf("after Stop: Stopped=%v LastCW=%d LastCCW=%d, want true 0 0", m.Stopped, m.LastCW, m.LastCCW)
	}
}
