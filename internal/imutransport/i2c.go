// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imutransport

import (
	"context"
	"fmt"
	"log"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/tim8trudeau/carriage-flc/internal/ctlerr"
)

// I2CTransport drives a real LSM6DS3TR-C over periph.io's i2c.Dev.
type I2CTransport struct {
	dev    *i2c.Dev
	bus    i2c.BusCloser
	name   string
	readyTimeout time.Duration
}

// OpenI2C opens the named I2C bus (e.g. "1" for /dev/i2c-1) and runs the
// device's deterministic bring-up sequence: set Block-Data-Update and
// register auto-increment, set full-scale (+-2g accel, +-245dps gyro) and
// ODR (~52Hz) on both accel and gyro, disable embedded functions, bypass
// the FIFO, and clear any latched interrupts. WHO_AM_I is checked but only
// warned on mismatch, since register-compatible clones report different
// IDs.
func OpenI2C(busName string, addr uint16, readyTimeout time.Duration) (*I2CTransport, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("%w: periph host init: %v", ctlerr.ErrBus, err)
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("%w: open i2c bus %s: %v", ctlerr.ErrBus, busName, err)
	}
	dev := &i2c.Dev{Addr: addr, Bus: bus}

	t := &I2CTransport{dev: dev, bus: bus, name: busName, readyTimeout: readyTimeout}

	who, err := t.ReadByte(RegWhoAmI)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("%w: read WHO_AM_I: %v", ctlerr.ErrBus, err)
	}
	if who != whoAmIExpected {
		log.Printf("imutransport: bus %s: WHO_AM_I=0x%02X, expected 0x%02X, continuing anyway", busName, who, whoAmIExpected)
	}

	cur, err := t.ReadByte(RegCtrl3C)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("%w: read CTRL3_C: %v", ctlerr.ErrBus, err)
	}
	want := (cur | ctrl3BDUBit | ctrl3IfIncBit) & 0xFF
	if want != cur {
		if err := t.WriteByte(RegCtrl3C, want); err != nil {
			bus.Close()
			return nil, fmt.Errorf("%w: write CTRL3_C: %v", ctlerr.ErrBus, err)
		}
	}

	for _, w := range []struct {
		reg, val byte
		what     string
	}{
		{RegCtrl1XL, ctrl1XLConfig, "CTRL1_XL"},
		{RegCtrl2G, ctrl2GConfig, "CTRL2_G"},
		{RegCtrl10C, ctrl10CDisableEmbedded, "CTRL10_C"},
		{RegFIFOCtrl5, fifoBypassMode, "FIFO_CTRL5"},
	} {
		if err := t.WriteByte(w.reg, w.val); err != nil {
			bus.Close()
			return nil, fmt.Errorf("%w: write %s: %v", ctlerr.ErrBus, w.what, err)
		}
	}

	if _, err := t.ReadByte(RegFuncSrc1); err != nil {
		bus.Close()
		return nil, fmt.Errorf("%w: clear latched interrupts: %v", ctlerr.ErrBus, err)
	}

	return t, nil
}

func (t *I2CTransport) ReadByte(reg byte) (byte, error) {
	out := make([]byte, 1)
	if err := t.dev.Tx([]byte{reg}, out); err != nil {
		return 0, fmt.Errorf("%w: read reg 0x%02X: %v", ctlerr.ErrBus, reg, err)
	}
	return out[0], nil
}

// ReadBlock reads n bytes starting at reg one register at a time, each with
// its own addressing phase, rather than relying on the device's
// auto-increment burst mode: on this part auto-increment does not reliably
// update the gyro-status latch across a multi-byte transaction.
func (t *I2CTransport) ReadBlock(reg byte, n int) ([]byte, error) {
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		b, err := t.ReadByte(reg + byte(i))
		if err != nil {
			return nil, fmt.Errorf("%w: read block 0x%02X len %d at offset %d: %v", ctlerr.ErrBus, reg, n, i, err)
		}
		out[i] = b
	}
	return out, nil
}

func (t *I2CTransport) WriteByte(reg, val byte) error {
	if err := t.dev.Tx([]byte{reg, val}, nil); err != nil {
		return fmt.Errorf("%w: write reg 0x%02X: %v", ctlerr.ErrBus, reg, err)
	}
	return nil
}

// ReadAllAxes polls STATUS until both the gyro and accel data-ready bits are
// set (or readyTimeout elapses), then reads the 12-byte block starting at
// OUTX_L_G byte-by-byte.
func (t *I2CTransport) ReadAllAxes() (ax, ay, az, gx, gy, gz int16, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), t.readyTimeout)
	defer cancel()

	const pollInterval = 200 * time.Microsecond
	for {
		status, err := t.ReadByte(RegStatus)
		if err != nil {
			return 0, 0, 0, 0, 0, 0, err
		}
		if status&(statusXLDA|statusGDA) == statusXLDA|statusGDA {
			break
		}
		select {
		case <-ctx.Done():
			return 0, 0, 0, 0, 0, 0, fmt.Errorf("%w: status ready poll on bus %s", ctlerr.ErrNotReady, t.name)
		case <-time.After(pollInterval):
		}
	}

	block, err := t.ReadBlock(RegOutXLG, 12)
	if err != nil {
		return 0, 0, 0, 0, 0, 0, err
	}

	gx = int16FromLE(block[0], block[1])
	gy = int16FromLE(block[2], block[3])
	gz = int16FromLE(block[4], block[5])
	ax = int16FromLE(block[6], block[7])
	ay = int16FromLE(block[8], block[9])
	az = int16FromLE(block[10], block[11])
	return ax, ay, az, gx, gy, gz, nil
}

func (t *I2CTransport) Close() error {
	return t.bus.Close()
}
