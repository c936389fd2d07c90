// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package imutransport talks register-level I2C to an LSM6DS3TR-C-class IMU,
// or to an in-process simulated plant standing in for one. Everything above
// this layer (internal/conditioner) only ever sees raw axis counts.
package imutransport

// Transport is the register-level contract the conditioner's raw-sample
// reader is built on. A real I2C bus and a simulated plant both implement it.
type Transport interface {
	ReadByte(reg byte) (byte, error)
	ReadBlock(reg byte, n int) ([]byte, error)
	WriteByte(reg, val byte) error

	// ReadAllAxes returns one synchronized sample: accelerometer and gyro
	// raw counts for all three axes.
	ReadAllAxes() (ax, ay, az, gx, gy, gz int16, err error)

	Close() error
}

// Register map for the LSM6DS3TR-C (and register-compatible parts). Values
// match the vendor datasheet.
const (
	RegWhoAmI    = 0x0F
	RegFIFOCtrl5 = 0x0A // FIFO mode / ODR
	RegCtrl1XL   = 0x10 // accel ODR / full-scale
	RegCtrl2G    = 0x11 // gyro ODR / full-scale
	RegCtrl3C    = 0x12 // BDU, IF_INC, soft reset
	RegCtrl10C   = 0x19 // embedded function enable
	RegStatus    = 0x1E
	RegOutXLG    = 0x22 // first of 12 contiguous bytes: gx,gy,gz,ax,ay,az
	RegFuncSrc1  = 0x53 // latched interrupt sources, cleared on read

	whoAmIExpected = 0x69

	ctrl3BDUBit   = 0x40
	ctrl3IfIncBit = 0x04

	// ctrl1XLConfig and ctrl2GConfig select ODR ~52 Hz with the narrowest
	// full-scale range (+-2g accel, +-245dps gyro), the bring-up defaults
	// this device is always initialized to regardless of configured scaling.
	ctrl1XLConfig = 0x30
	ctrl2GConfig  = 0x30

	// ctrl10CDisableEmbedded turns off the pedometer/tap/timestamp block so
	// it cannot contend for the data-ready latch.
	ctrl10CDisableEmbedded = 0x00

	// fifoBypassMode disables the FIFO so OUTX_L_G always reflects the
	// latest sample instead of a queued one.
	fifoBypassMode = 0x00

	statusGDA  = 0x02
	statusXLDA = 0x01
)

func int16FromLE(lo, hi byte) int16 {
	return int16(uint16(lo) | uint16(hi)<<8)
}
