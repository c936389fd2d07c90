// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package statusdisplay drives an optional small SSD1306 OLED showing the
// controller's live tilt, command, and overrun count. Purely diagnostic:
// nothing in the control path depends on it, and its failure to initialize
// is not fatal.
package statusdisplay

import (
	"fmt"
	"image"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/tim8trudeau/carriage-flc/internal/scheduler"
)

// Display wraps one SSD1306 panel.
type Display struct {
	dev *ssd1306.Dev
}

// Open initializes the display on the given I2C bus and address, and shows
// a splash screen.
func Open(bus i2c.Bus, addr uint16) (*Display, error) {
	opts := ssd1306.DefaultOpts
	opts.Addr = addr
	dev, err := ssd1306.NewI2C(bus, &opts)
	if err != nil {
		return nil, fmt.Errorf("statusdisplay: init: %w", err)
	}
	d := &Display{dev: dev}
	if err := d.splash(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Display) splash() error {
	img := blankImage()
	drawer := newDrawer(img)
	drawer.Dot = fixed.P(10, 26)
	drawer.DrawBytes([]byte("Carriage FLC"))
	drawer.Dot = fixed.P(5, 43)
	drawer.DrawBytes([]byte("Stabilizing..."))
	return d.dev.Draw(d.dev.Bounds(), img, image.Point{})
}

// Update renders the most recent tick onto the panel: normalized tilt and
// rate, the issued command, and a running overrun count.
func (d *Display) Update(tick scheduler.Tick, overrunCount int) error {
	img := blankImage()
	drawer := newDrawer(img)

	drawer.Dot = fixed.P(0, 13)
	drawer.DrawBytes([]byte(fmt.Sprintf("th: %+.3f", tick.ThetaN)))

	drawer.Dot = fixed.P(0, 26)
	drawer.DrawBytes([]byte(fmt.Sprintf("om: %+.3f", tick.OmegaN)))

	drawer.Dot = fixed.P(0, 39)
	drawer.DrawBytes([]byte(fmt.Sprintf("u:  %+.3f", tick.U)))

	drawer.Dot = fixed.P(0, 52)
	drawer.DrawBytes([]byte(fmt.Sprintf("overruns: %d", overrunCount)))

	return d.dev.Draw(d.dev.Bounds(), img, image.Point{})
}

func blankImage() *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, 128, 64))
	for i := range img.Pix {
		img.Pix[i] = 0
	}
	return img
}

func newDrawer(img *image1bit.VerticalLSB) *font.Drawer {
	return &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
}
