// Copyright 2026 The go-flir Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package radiometry converts raw thermal-sensor ADC counts into calibrated
// temperatures in Celsius.
//
// The conversion follows the energy-balance model used by FLIR's own tools:
// the signal reaching the sensor is the subject's emission attenuated by the
// atmosphere and an optional IR window, plus radiance the subject reflects,
// plus the atmosphere's and the window's own emission. Removing the
// non-object terms and inverting the sensor's Planck-law response curve
// yields the subject temperature.
//
// References:
// Standard inversion: temperature = B/log(R1/(R2*(raw+O))+F) - 273.15
//   http://130.15.24.88/exiftool/forum/index.php/topic,4898.60.html
//
// Minkina and Dudzik, Infrared Thermography: Errors and Uncertainties.
//
// Glenn J. Tattersall, Thermimage: Thermal Image Analysis.
//   https://CRAN.R-project.org/package=Thermimage
package radiometry

import "math"

// Convert inverts a raw ADC frame into a calibrated temperature frame.
//
// The function is pure: identical inputs produce identical outputs, no state
// is kept, and the inputs are not modified. Frames sharing a camera and a
// scene can reuse the same constants concurrently.
//
// Scalar parameters are validated before any per-pixel work. Individual
// pixels outside the model's validity come back as NaN rather than failing
// the frame; values are never clamped.
func Convert(raw *Frame, planck PlanckConstants, atmos AtmosphereConstants, env Environment) (*TempFrame, error) {
	env = env.Resolved()
	if err := env.Validate(); err != nil {
		return nil, err
	}

	windowEmissivity := 1 - env.IRWindowTransmission
	// The window has an anti-reflective coating. Fixed model constant, not
	// configurable.
	const windowReflection = 0.0

	// The window is assumed to sit at the mid-point between subject and
	// sensor, splitting the atmospheric path into two equal legs.
	subjectToWindow := env.SubjectDistance / 2
	windowToSensor := env.SubjectDistance - subjectToWindow

	tauBeforeWindow, err := atmos.Transmittance(env.Humidity, env.AtmosphericTemp, subjectToWindow)
	if err != nil {
		return nil, err
	}
	tauAfterWindow, err := atmos.Transmittance(env.Humidity, env.AtmosphericTemp, windowToSensor)
	if err != nil {
		return nil, err
	}

	// divisor accumulates, stage by stage, the fraction of the end-to-end
	// signal attributable to the direct object-emission path. Each
	// non-object term is weighted by the divisor as of its own stage, so
	// the multiplication order below is part of the model.
	divisor := 1.0

	// Radiance reflecting off the subject, before the window.
	divisor *= env.Emissivity
	reflectedBeforeWindow := (1 - env.Emissivity) / divisor * planck.Radiance(env.ReflectedTemp)

	// The atmosphere's own emission, before the window.
	divisor *= tauBeforeWindow
	atmosphereBeforeWindow := (1 - tauBeforeWindow) / divisor * planck.Radiance(env.AtmosphericTemp)

	// The window's own emission.
	divisor *= env.IRWindowTransmission
	windowRadiance := windowEmissivity / divisor * planck.Radiance(env.IRWindowTemp)

	// Radiance reflecting off the window. Always zero under the current
	// model, kept as its own term so the chain keeps its full shape.
	reflectedAfterWindow := windowReflection / divisor * planck.Radiance(env.ReflectedTemp)

	// The atmosphere's own emission, after the window.
	divisor *= tauAfterWindow
	atmosphereAfterWindow := (1 - tauAfterWindow) / divisor * planck.Radiance(env.AtmosphericTemp)

	nonObjectRadiance := compensatedSum(
		reflectedBeforeWindow,
		atmosphereBeforeWindow,
		windowRadiance,
		reflectedAfterWindow,
		atmosphereAfterWindow,
	)

	out := NewTempFrame(raw.Width, raw.Height)
	for i, v := range raw.Pix {
		objectRadiance := float64(v)/divisor - nonObjectRadiance
		out.Pix[i] = planck.Temperature(objectRadiance)
	}
	return out, nil
}

// compensatedSum adds the terms with Neumaier's variant of Kahan summation
// so the result does not depend on floating-point association order.
func compensatedSum(terms ...float64) float64 {
	sum := 0.0
	compensation := 0.0
	for _, t := range terms {
		next := sum + t
		if math.Abs(sum) >= math.Abs(t) {
			compensation += (sum - next) + t
		} else {
			compensation += (t - next) + sum
		}
		sum = next
	}
	return sum + compensation
}
