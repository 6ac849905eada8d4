// Copyright 2026 The go-flir Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package radiometry

import (
	"math"
	"testing"
)

func TestRadianceTemperatureRoundTrip(t *testing.T) {
	// Forward and backward Planck maps are exact inverses over the whole
	// physically reasonable range, for any calibration.
	constants := []PlanckConstants{
		DefaultPlanck,
		{R1: 21106.7695, R2: 0.0125452578, B: 1501, Zero: -7340, F: 1},
		{R1: 14364.633, R2: 0.010866885, B: 1385.4, Zero: -5753, F: 1},
	}
	for _, planck := range constants {
		for tempC := -40.0; tempC <= 200.0; tempC += 0.5 {
			back := planck.Temperature(planck.Radiance(tempC))
			if math.Abs(back-tempC) > 1e-9 {
				t.Fatalf("round trip %g°C via %+v came back as %.12g", tempC, planck, back)
			}
		}
	}
}

func TestRadiance(t *testing.T) {
	planck := PlanckConstants{R1: 21106.7695, R2: 0.0125452578, B: 1501, Zero: -7340, F: 1}
	if got, want := planck.Radiance(20), 17452.307376006986; math.Abs(got-want) > 1e-8 {
		t.Fatalf("Radiance(20) = %.12g, want %.12g", got, want)
	}
}

func TestTemperatureMonotonic(t *testing.T) {
	// The inversion is strictly increasing in its radiance argument for
	// physically valid inputs.
	prev := math.Inf(-1)
	for radiance := 8000.0; radiance <= 60000.0; radiance += 250 {
		tempC := DefaultPlanck.Temperature(radiance)
		if math.IsNaN(tempC) || tempC <= prev {
			t.Fatalf("Temperature(%g) = %g, not above %g", radiance, tempC, prev)
		}
		prev = tempC
	}
}

func TestTemperatureNonPhysical(t *testing.T) {
	// A radiance that makes the log argument non-positive must produce NaN
	// for that value alone, not a panic or an error.
	for _, radiance := range []float64{0, 100, 7000, -DefaultPlanck.Zero - 10} {
		if got := DefaultPlanck.Temperature(radiance); !math.IsNaN(got) {
			t.Fatalf("Temperature(%g) = %g, want NaN", radiance, got)
		}
	}
}
