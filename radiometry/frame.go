// Copyright 2026 The go-flir Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package radiometry

import (
	"image"
	"image/color"
	"math"
)

// Frame holds the raw ADC counts of one thermal image, row-major. Values are
// typically in the unsigned 16-bit range of the sensor. The frame is built
// once by the extraction layer and not mutated afterwards.
type Frame struct {
	Pix    []uint16
	Width  int
	Height int
}

// NewFrame allocates a zeroed w by h raw frame.
func NewFrame(w, h int) *Frame {
	return &Frame{Pix: make([]uint16, w*h), Width: w, Height: h}
}

// At returns the raw count at (x, y).
func (f *Frame) At(x, y int) uint16 {
	return f.Pix[y*f.Width+x]
}

// FrameFromGray16 copies a decoded 16-bit grayscale image into a raw frame.
func FrameFromGray16(img *image.Gray16) *Frame {
	b := img.Bounds()
	f := NewFrame(b.Dx(), b.Dy())
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			f.Pix[y*f.Width+x] = img.Gray16At(b.Min.X+x, b.Min.Y+y).Y
		}
	}
	return f
}

// TempFrame is a calibrated temperature map in Celsius, same shape as the
// raw frame it was converted from. Pixels whose Planck inversion had no
// physical solution are NaN.
type TempFrame struct {
	Pix    []float64
	Width  int
	Height int
}

// NewTempFrame allocates a zeroed w by h temperature frame.
func NewTempFrame(w, h int) *TempFrame {
	return &TempFrame{Pix: make([]float64, w*h), Width: w, Height: h}
}

// At returns the temperature in Celsius at (x, y).
func (t *TempFrame) At(x, y int) float64 {
	return t.Pix[y*t.Width+x]
}

// Bounds returns the pixel rectangle of the frame.
func (t *TempFrame) Bounds() image.Rectangle {
	return image.Rect(0, 0, t.Width, t.Height)
}

// MinMax returns the lowest and highest finite temperatures in the frame.
// NaN pixels are skipped. Returns (NaN, NaN) if no pixel is finite.
func (t *TempFrame) MinMax() (min, max float64) {
	min = math.NaN()
	max = math.NaN()
	for _, v := range t.Pix {
		if math.IsNaN(v) {
			continue
		}
		if math.IsNaN(min) || v < min {
			min = v
		}
		if math.IsNaN(max) || v > max {
			max = v
		}
	}
	return min, max
}

// NaNCount returns the number of pixels without a physical solution.
func (t *TempFrame) NaNCount() int {
	n := 0
	for _, v := range t.Pix {
		if math.IsNaN(v) {
			n++
		}
	}
	return n
}

// AGC reduces the frame's dynamic range down to 8 bits very naively without
// gamma. NaN pixels render as black. dst must have the same dimensions.
func (t *TempFrame) AGC(dst *image.Gray) {
	floor, ceil := t.MinMax()
	delta := ceil - floor
	for y := 0; y < t.Height; y++ {
		for x := 0; x < t.Width; x++ {
			v := t.Pix[y*t.Width+x]
			if math.IsNaN(v) || delta <= 0 {
				dst.Pix[dst.Stride*y+x] = 0
				continue
			}
			dst.Pix[dst.Stride*y+x] = uint8((v - floor) / delta * 255)
		}
	}
}

// Gray16CentiK renders the frame as 16-bit grayscale in centikelvin, for
// lossless-enough archival: 0.01°C resolution over 0K to 655.35K covers any
// scene a microbolometer can see. NaN pixels render as 0.
func (t *TempFrame) Gray16CentiK() *image.Gray16 {
	dst := image.NewGray16(t.Bounds())
	for y := 0; y < t.Height; y++ {
		for x := 0; x < t.Width; x++ {
			v := t.Pix[y*t.Width+x]
			if math.IsNaN(v) {
				continue
			}
			ck := math.Round(v*100) + 27315
			if ck < 0 {
				ck = 0
			} else if ck > 65535 {
				ck = 65535
			}
			dst.SetGray16(x, y, color.Gray16{Y: uint16(ck)})
		}
	}
	return dst
}

// AGCRGBLinear renders the frame with a linear black-blue-red-white ramp,
// scaled to the frame's own range like AGC. NaN pixels render as green so
// they stand out.
func (t *TempFrame) AGCRGBLinear() *image.RGBA {
	dst := image.NewRGBA(t.Bounds())
	floor, ceil := t.MinMax()
	delta := ceil - floor
	for y := 0; y < t.Height; y++ {
		for x := 0; x < t.Width; x++ {
			off := dst.Stride*y + 4*x
			v := t.Pix[y*t.Width+x]
			if math.IsNaN(v) || delta <= 0 {
				dst.Pix[off+1] = 255
				dst.Pix[off+3] = 255
				continue
			}
			i := int((v - floor) / delta * 765)
			r, g, b := 0, 0, 0
			switch {
			case i < 255:
				b = i
			case i < 510:
				b = 510 - i
				r = i - 255
			default:
				r = 255
				g = i - 510
				b = i - 510
			}
			dst.Pix[off] = uint8(r)
			dst.Pix[off+1] = uint8(g)
			dst.Pix[off+2] = uint8(b)
			dst.Pix[off+3] = 255
		}
	}
	return dst
}
