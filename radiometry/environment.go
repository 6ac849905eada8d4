// Copyright 2026 The go-flir Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package radiometry

import "math"

// Environment describes the scene between the subject and the sensor.
//
// AtmosphericTemp and IRWindowTemp may be left as NaN to mean "not
// measured"; Resolved() substitutes ReflectedTemp for them. Resolution
// happens once, at construction time, never inside the per-pixel loop.
type Environment struct {
	Emissivity           float64 // fraction in (0, 1], depends on subject material
	SubjectDistance      float64 // camera to subject, meters
	ReflectedTemp        float64 // apparent temperature reflected by the subject, °C
	AtmosphericTemp      float64 // °C, NaN means "use ReflectedTemp"
	IRWindowTemp         float64 // °C, NaN means "use ReflectedTemp"
	IRWindowTransmission float64 // fraction in (0, 1]
	Humidity             float64 // relative humidity in [0, 1]

	// PeakSpectralSensitivity is the wavelength of highest sensor
	// sensitivity in micrometers. Carried from the metadata for callers
	// that need it; the conversion itself does not use it.
	PeakSpectralSensitivity float64
}

// DefaultEnvironment returns the scene defaults FLIR assumes when metadata
// is silent: blackbody subject at 1m through clear air at 50% humidity, no
// IR window, 20°C ambient.
func DefaultEnvironment() Environment {
	return Environment{
		Emissivity:              1,
		SubjectDistance:         1,
		ReflectedTemp:           20,
		AtmosphericTemp:         math.NaN(),
		IRWindowTemp:            math.NaN(),
		IRWindowTransmission:    1,
		Humidity:                0.5,
		PeakSpectralSensitivity: 9.8,
	}
}

// Resolved returns a copy with unset (NaN) optional temperatures filled in
// from ReflectedTemp.
func (e Environment) Resolved() Environment {
	if math.IsNaN(e.AtmosphericTemp) {
		e.AtmosphericTemp = e.ReflectedTemp
	}
	if math.IsNaN(e.IRWindowTemp) {
		e.IRWindowTemp = e.ReflectedTemp
	}
	return e
}

// Validate checks every scalar parameter domain. It fails fast so that no
// per-pixel work is wasted on an environment that can't produce meaningful
// temperatures.
func (e Environment) Validate() error {
	// NaN compares false against every bound, so each range check needs an
	// explicit IsNaN or a NaN parameter would pass straight through.
	if e.Emissivity <= 0 || e.Emissivity > 1 || math.IsNaN(e.Emissivity) {
		return &InvalidParameterError{Param: "emissivity", Value: e.Emissivity, Range: "(0, 1]"}
	}
	if e.SubjectDistance < 0 || math.IsNaN(e.SubjectDistance) {
		return &InvalidParameterError{Param: "subject distance", Value: e.SubjectDistance, Range: "[0, ∞)"}
	}
	if e.IRWindowTransmission <= 0 || e.IRWindowTransmission > 1 || math.IsNaN(e.IRWindowTransmission) {
		return &InvalidParameterError{Param: "IR window transmission", Value: e.IRWindowTransmission, Range: "(0, 1]"}
	}
	if e.Humidity < 0 || e.Humidity > 1 || math.IsNaN(e.Humidity) {
		return &InvalidParameterError{Param: "relative humidity", Value: e.Humidity, Range: "[0, 1]"}
	}
	return nil
}
