// Copyright (c) 2026 higuchi-learn / freelen
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package hw

import (
	"fmt"
	"image"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

const (
	displayW   = 128
	displayH   = 64
	lineHeight = 13
	// MaxLines fits the 7x13 font on a 64 pixel panel.
	MaxLines = displayH / lineHeight
)

// Display is a 128x64 SSD1306 OLED showing a few lines of text.
type Display struct {
	dev    *ssd1306.Dev
	closer func() error
}

// OpenDisplay opens the named I2C bus ("" for the first) and the panel on it.
func OpenDisplay(bus string) (*Display, error) {
	b, err := i2creg.Open(bus)
	if err != nil {
		return nil, fmt.Errorf("display: open I2C bus %q: %w", bus, err)
	}
	d, err := NewDisplay(b)
	if err != nil {
		b.Close()
		return nil, err
	}
	d.closer = b.Close
	return d, nil
}

// NewDisplay initialises a panel on an open bus.
func NewDisplay(bus i2c.Bus) (*Display, error) {
	opts := ssd1306.DefaultOpts
	dev, err := ssd1306.NewI2C(bus, &opts)
	if err != nil {
		return nil, fmt.Errorf("display: init ssd1306: %w", err)
	}
	return &Display{dev: dev}, nil
}

// Show clears the panel and draws lines top to bottom.
func (d *Display) Show(lines []string) error {
	return d.dev.Draw(d.dev.Bounds(), RenderLines(lines), image.Point{})
}

func (d *Display) Close() error {
	err := d.dev.Halt()
	if d.closer != nil {
		if cerr := d.closer(); err == nil {
			err = cerr
		}
	}
	return err
}

// RenderLines draws up to MaxLines lines of text into a panel sized bitmap.
func RenderLines(lines []string) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, displayW, displayH))
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	for i, line := range lines {
		if i >= MaxLines {
			break
		}
		drawer.Dot = fixed.P(0, (i+1)*lineHeight-2)
		drawer.DrawString(line)
	}
	return img
}
