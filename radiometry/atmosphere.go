// Copyright 2026 The go-flir Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package radiometry

import (
	"fmt"
	"math"
)

// AtmosphereConstants are the empirical coefficients of the two-term
// atmospheric transmission model. Cameras write their own values into the
// image metadata; DefaultAtmosphere applies when they don't.
type AtmosphereConstants struct {
	Alpha1 float64
	Alpha2 float64
	Beta1  float64
	Beta2  float64
	X      float64
}

// DefaultAtmosphere matches the values found in FLIR image metadata.
var DefaultAtmosphere = AtmosphereConstants{
	Alpha1: 6.569e-3,
	Alpha2: 12.62e-3,
	Beta1:  -2.276e-3,
	Beta2:  -6.67e-3,
	X:      1.9,
}

// InvalidParameterError reports a scalar input outside its valid domain. It
// is returned eagerly, before any per-pixel work starts.
type InvalidParameterError struct {
	Param string
	Value float64
	Range string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("radiometry: %s is %g, must be in %s", e.Param, e.Value, e.Range)
}

// WaterVaporPressure returns the saturated water vapour pressure in mmHg for
// a temperature in Celsius, using a cubic-exponential empirical fit.
//
// The fit is only accurate over ambient temperatures; extrapolating far
// outside that range is an accepted source of error, not a failure.
func WaterVaporPressure(tempC float64) float64 {
	return math.Exp(1.5587 +
		0.06939*tempC -
		0.00027816*tempC*tempC +
		0.00000068455*tempC*tempC*tempC)
}

// Transmittance returns the fraction of IR radiance surviving an atmospheric
// path of distanceM meters at the given relative humidity (0 to 1) and air
// temperature in Celsius.
//
// A zero-length path has transmittance 1. The result is finite and in (0, 1]
// for all valid inputs.
func (a AtmosphereConstants) Transmittance(relHumidity, tempC, distanceM float64) (float64, error) {
	if relHumidity < 0 || relHumidity > 1 {
		return 0, &InvalidParameterError{Param: "relative humidity", Value: relHumidity, Range: "[0, 1]"}
	}
	if distanceM < 0 {
		return 0, &InvalidParameterError{Param: "distance", Value: distanceM, Range: "[0, ∞)"}
	}
	partialPressure := relHumidity * WaterVaporPressure(tempC)
	sqrtPressure := math.Sqrt(partialPressure)
	sqrtDistance := math.Sqrt(distanceM)
	term1 := math.Exp(-sqrtDistance * (a.Alpha1 + a.Beta1*sqrtPressure))
	term2 := math.Exp(-sqrtDistance * (a.Alpha2 + a.Beta2*sqrtPressure))
	return a.X*term1 + (1-a.X)*term2, nil
}
