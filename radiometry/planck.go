// Copyright 2026 The go-flir Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package radiometry

import "math"

// kelvinOffset is the offset between 0°C and 0°K.
const kelvinOffset = 273.15

// PlanckConstants are the factory-calibrated coefficients of a sensor's
// Planck-law response curve. They are specific to one camera/lens
// combination and are stored in the image metadata.
//
// The value is never mutated after construction; the same instance may be
// shared across a batch of frames taken by the same camera.
type PlanckConstants struct {
	R1   float64
	R2   float64
	B    float64
	Zero float64 // stored as PlanckO in FLIR metadata
	F    float64
}

// DefaultPlanck matches the factory calibration found in FLIR image metadata
// when a camera does not override it.
var DefaultPlanck = PlanckConstants{
	R1:   21106.77,
	R2:   0.012545258,
	B:    1501,
	Zero: -7340,
	F:    1,
}

// Radiance maps a temperature in Celsius to the sensor's radiance scale.
//
// L = R1 / (R2·(exp(B/T°K) − F)) − Zero
func (p PlanckConstants) Radiance(tempC float64) float64 {
	kelvin := tempC + kelvinOffset
	denominator := p.R2 * (math.Exp(p.B/kelvin) - p.F)
	return p.R1/denominator - p.Zero
}

// Temperature inverts Radiance, mapping a radiance value back to Celsius.
//
// T°K = B / ln(R1/(R2·(L+Zero)) + F)
//
// For a physically implausible radiance the argument of the logarithm is not
// positive and the result is NaN. This is deliberate: a handful of bad
// pixels (saturation, extreme local reflections) must not abort the frame,
// so the failure stays local to the pixel instead of becoming an error.
func (p PlanckConstants) Temperature(radiance float64) float64 {
	kelvin := p.B / math.Log(p.R1/(p.R2*(radiance+p.Zero))+p.F)
	return kelvin - kelvinOffset
}
