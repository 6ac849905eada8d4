// Copyright 2026 The go-flir Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package extract pulls the raw thermal payload and calibration metadata out
// of radiometric FLIR JPEGs and converts them into calibrated temperature
// frames.
//
// The proprietary container format is not parsed here; exiftool does that as
// a child process. This package owns the byte-stream plumbing around it:
// batching tag queries, decoding the embedded raw image, and fixing the
// sensor's byte-order quirk.
package extract

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"golang.org/x/image/tiff"

	"github.com/thermal-tools/go-flir/flirmeta"
	"github.com/thermal-tools/go-flir/radiometry"
)

// rawThermalTag is the metadata tag holding the embedded raw sensor image.
const rawThermalTag = "RawThermalImage"

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

// UnsupportedImageError reports an input file this library cannot process.
type UnsupportedImageError struct {
	Path   string
	Reason string
}

func (e *UnsupportedImageError) Error() string {
	return fmt.Sprintf("extract: %s: %s", e.Path, e.Reason)
}

// Result pairs a converted frame with the calibration it was converted
// under, so callers can report scene parameters alongside temperatures.
type Result struct {
	Path        string
	Temps       *radiometry.TempFrame
	Calibration flirmeta.Calibration
}

// Extractor converts radiometric FLIR JPEGs into temperature frames using a
// shared exiftool process.
type Extractor struct {
	tool *Exiftool

	// Modify, when set, adjusts each file's calibration after it is read
	// from metadata and before conversion. Scene overrides (known subject
	// distance, measured humidity) hook in here.
	Modify func(*flirmeta.Calibration)
}

// NewExtractor starts the underlying exiftool process. An empty path looks
// up "exiftool" in $PATH.
func NewExtractor(exiftoolPath string) (*Extractor, error) {
	tool, err := NewExiftool(exiftoolPath)
	if err != nil {
		return nil, err
	}
	return &Extractor{tool: tool}, nil
}

// Close shuts the exiftool process down.
func (x *Extractor) Close() error {
	return x.tool.Close()
}

// Thermal loads and converts a single file. Use ThermalBatch when loading
// several files; it fetches all their metadata in one round trip.
func (x *Extractor) Thermal(path string) (*Result, error) {
	results, err := x.ThermalBatch([]string{path})
	if err != nil {
		return nil, err
	}
	return results[0], nil
}

// ThermalBatch loads and converts multiple files, in input order.
func (x *Extractor) ThermalBatch(paths []string) ([]*Result, error) {
	tagMaps, err := x.tool.Tags(flirmeta.Tags, paths)
	if err != nil {
		return nil, err
	}
	results := make([]*Result, len(paths))
	for i, path := range paths {
		data, err := x.tool.Binary(rawThermalTag, path)
		if err != nil {
			return nil, err
		}
		raw, err := DecodeRaw(data)
		if err != nil {
			return nil, &UnsupportedImageError{Path: path, Reason: err.Error()}
		}
		cal, err := flirmeta.Normalize(tagMaps[i])
		if err != nil {
			return nil, fmt.Errorf("extract: %s: %w", path, err)
		}
		if x.Modify != nil {
			x.Modify(&cal)
		}
		temps, err := radiometry.Convert(raw, cal.Planck, cal.Atmosphere, cal.Environment)
		if err != nil {
			return nil, fmt.Errorf("extract: %s: %w", path, err)
		}
		results[i] = &Result{Path: path, Temps: temps, Calibration: cal}
	}
	return results, nil
}

// DecodeRaw decodes an embedded RawThermalImage payload into a raw frame.
// FLIR embeds either a 16-bit TIFF or a 16-bit PNG; the PNG variant stores
// its samples little-endian against the PNG spec (a known camera firmware
// bug), so those get byte-swapped after decoding.
func DecodeRaw(data []byte) (*radiometry.Frame, error) {
	var img image.Image
	var err error
	swap := false
	if bytes.HasPrefix(data, pngMagic) {
		img, err = png.Decode(bytes.NewReader(data))
		swap = true
	} else {
		img, err = tiff.Decode(bytes.NewReader(data))
	}
	if err != nil {
		return nil, fmt.Errorf("decoding raw thermal payload: %w", err)
	}
	gray, ok := img.(*image.Gray16)
	if !ok {
		return nil, fmt.Errorf("raw thermal payload decoded as %T, want 16-bit grayscale", img)
	}
	frame := radiometry.FrameFromGray16(gray)
	if swap {
		for i, v := range frame.Pix {
			frame.Pix[i] = v<<8 | v>>8
		}
	}
	return frame, nil
}
