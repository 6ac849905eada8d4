// Copyright 2026 The go-flir Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package flirmeta

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

func fullTags() map[string]any {
	return map[string]any{
		"Emissivity":                   0.95,
		"SubjectDistance":              "1.00 m",
		"ReflectedApparentTemperature": 20.0,
		"AtmosphericTemperature":       21.0,
		"IRWindowTemperature":          22.0,
		"IRWindowTransmission":         0.96,
		"RelativeHumidity":             "50.0 %",
		"PeakSpectralSensitivity":      9.585,
		"PlanckR1":                     21106.7695,
		"PlanckR2":                     0.0125452578,
		"PlanckB":                      json.Number("1501"),
		"PlanckO":                      -7340.0,
		"PlanckF":                      1.0,
		"AtmosphericTransAlpha1":       0.006569,
		"AtmosphericTransAlpha2":       0.01262,
		"AtmosphericTransBeta1":        -0.002276,
		"AtmosphericTransBeta2":        -0.00667,
		"AtmosphericTransX":            1.9,
	}
}

func TestNormalize(t *testing.T) {
	cal, err := Normalize(fullTags())
	if err != nil {
		t.Fatal(err)
	}
	if cal.Planck.R1 != 21106.7695 || cal.Planck.B != 1501 || cal.Planck.Zero != -7340 {
		t.Fatalf("planck constants: %+v", cal.Planck)
	}
	if cal.Atmosphere.X != 1.9 || cal.Atmosphere.Beta2 != -0.00667 {
		t.Fatalf("atmosphere constants: %+v", cal.Atmosphere)
	}
	e := cal.Environment
	if e.Emissivity != 0.95 || e.SubjectDistance != 1 || e.Humidity != 0.5 {
		t.Fatalf("environment: %+v", e)
	}
	if e.AtmosphericTemp != 21 || e.IRWindowTemp != 22 {
		t.Fatalf("explicit temperatures lost: %+v", e)
	}
}

func TestNormalizeUnits(t *testing.T) {
	// exiftool's human-readable output carries units. A "%" unit means the
	// value is a percentage and must come back as a fraction; any other unit
	// is dropped without scaling. Already-fractional numbers (the -n form)
	// pass through untouched.
	data := []struct {
		tag   string
		value any
		want  func(Calibration) float64
		out   float64
	}{
		{"RelativeHumidity", "50.0 %", func(c Calibration) float64 { return c.Environment.Humidity }, 0.5},
		{"RelativeHumidity", "100 %", func(c Calibration) float64 { return c.Environment.Humidity }, 1},
		{"RelativeHumidity", 0.57, func(c Calibration) float64 { return c.Environment.Humidity }, 0.57},
		{"RelativeHumidity", "0.57", func(c Calibration) float64 { return c.Environment.Humidity }, 0.57},
		{"IRWindowTransmission", "96.0 %", func(c Calibration) float64 { return c.Environment.IRWindowTransmission }, 0.96},
		{"SubjectDistance", "1.00 m", func(c Calibration) float64 { return c.Environment.SubjectDistance }, 1},
		{"SubjectDistance", "2.50 m", func(c Calibration) float64 { return c.Environment.SubjectDistance }, 2.5},
	}
	for _, line := range data {
		cal, err := Normalize(map[string]any{line.tag: line.value})
		if err != nil {
			t.Fatalf("%s=%v: %s", line.tag, line.value, err)
		}
		if got := line.want(cal); got != line.out {
			t.Fatalf("%s=%v: normalized to %g, want %g", line.tag, line.value, got, line.out)
		}
	}
}

func TestNormalizePartition(t *testing.T) {
	// Every recognized key lands in exactly one typed field; unrecognized
	// keys are dropped; no value is duplicated or lost. Probe by giving
	// each tag a distinct value and checking each lands once.
	tags := map[string]any{}
	for i, tag := range Tags {
		tags[tag] = 1000.0 + float64(i)
	}
	tags["SourceFile"] = "whatever.jpg"
	tags["Megapixels"] = 0.3

	cal, err := Normalize(tags)
	if err != nil {
		t.Fatal(err)
	}
	got := []float64{
		cal.Environment.Emissivity,
		cal.Environment.SubjectDistance,
		cal.Environment.ReflectedTemp,
		cal.Environment.AtmosphericTemp,
		cal.Environment.IRWindowTemp,
		cal.Environment.IRWindowTransmission,
		cal.Environment.Humidity,
		cal.Environment.PeakSpectralSensitivity,
		cal.Planck.R1,
		cal.Planck.R2,
		cal.Planck.B,
		cal.Planck.Zero,
		cal.Planck.F,
		cal.Atmosphere.Alpha1,
		cal.Atmosphere.Alpha2,
		cal.Atmosphere.Beta1,
		cal.Atmosphere.Beta2,
		cal.Atmosphere.X,
	}
	if len(got) != len(Tags) {
		t.Fatalf("probe covers %d fields for %d tags", len(got), len(Tags))
	}
	for i, v := range got {
		if want := 1000.0 + float64(i); v != want {
			t.Fatalf("tag %s: landed as %g, want %g", Tags[i], v, want)
		}
	}
}

func TestNormalizeDefaults(t *testing.T) {
	cal, err := Normalize(map[string]any{"ReflectedApparentTemperature": 25.0})
	if err != nil {
		t.Fatal(err)
	}
	if cal.Planck.R1 != 21106.77 {
		t.Fatalf("absent planck tags must default: %+v", cal.Planck)
	}
	if cal.Environment.Emissivity != 1 || cal.Environment.Humidity != 0.5 {
		t.Fatalf("absent environment tags must default: %+v", cal.Environment)
	}
	// Unset optional temperatures resolve from ReflectedTemp, once, here.
	if cal.Environment.AtmosphericTemp != 25 || cal.Environment.IRWindowTemp != 25 {
		t.Fatalf("optional temperatures not resolved: %+v", cal.Environment)
	}
	if math.IsNaN(cal.Environment.AtmosphericTemp) {
		t.Fatal("NaN leaked out of Normalize")
	}
}

func TestNormalizeGroupPrefix(t *testing.T) {
	cal, err := Normalize(map[string]any{
		"FLIR:PlanckR1":       14364.633,
		"APP1:FLIR:PlanckR2":  0.010866885,
		"FLIR:NotACalibTag":   1.0,
		"PlanckR1Uncertainty": 3.0, // suffix differs: must not match PlanckR1
	})
	if err != nil {
		t.Fatal(err)
	}
	if cal.Planck.R1 != 14364.633 || cal.Planck.R2 != 0.010866885 {
		t.Fatalf("prefixed tags not matched: %+v", cal.Planck)
	}
}

func TestNormalizeBadValue(t *testing.T) {
	_, err := Normalize(map[string]any{"Emissivity": "high"})
	var merr *UnsupportedMetadataError
	if !errors.As(err, &merr) {
		t.Fatalf("got %v, want UnsupportedMetadataError", err)
	}
}

func TestNormalizeStrict(t *testing.T) {
	tags := fullTags()
	if _, err := NormalizeStrict(tags); err != nil {
		t.Fatal(err)
	}
	delete(tags, "PlanckB")
	_, err := NormalizeStrict(tags)
	var merr *UnsupportedMetadataError
	if !errors.As(err, &merr) {
		t.Fatalf("got %v, want UnsupportedMetadataError", err)
	}
	if merr.Tag != "PlanckB" {
		t.Fatalf("wrong tag reported: %s", merr.Tag)
	}
}
