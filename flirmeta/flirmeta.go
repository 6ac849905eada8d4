// Copyright 2026 The go-flir Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package flirmeta maps the flat tag→value metadata of a radiometric FLIR
// image into the typed calibration and environment values the radiometry
// package consumes.
package flirmeta

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/thermal-tools/go-flir/radiometry"
)

// Metadata tag names as exiftool reports them.
const (
	TagEmissivity              = "Emissivity"
	TagSubjectDistance         = "SubjectDistance"
	TagReflectedTemp           = "ReflectedApparentTemperature"
	TagAtmosphericTemp         = "AtmosphericTemperature"
	TagIRWindowTemp            = "IRWindowTemperature"
	TagIRWindowTransmission    = "IRWindowTransmission"
	TagHumidity                = "RelativeHumidity"
	TagPeakSpectralSensitivity = "PeakSpectralSensitivity"

	TagPlanckR1 = "PlanckR1"
	TagPlanckR2 = "PlanckR2"
	TagPlanckB  = "PlanckB"
	TagPlanckO  = "PlanckO"
	TagPlanckF  = "PlanckF"

	TagAtmosAlpha1 = "AtmosphericTransAlpha1"
	TagAtmosAlpha2 = "AtmosphericTransAlpha2"
	TagAtmosBeta1  = "AtmosphericTransBeta1"
	TagAtmosBeta2  = "AtmosphericTransBeta2"
	TagAtmosX      = "AtmosphericTransX"
)

// Tags lists every tag Normalize recognizes, in the order they should be
// requested from the extraction tool.
var Tags = []string{
	TagEmissivity,
	TagSubjectDistance,
	TagReflectedTemp,
	TagAtmosphericTemp,
	TagIRWindowTemp,
	TagIRWindowTransmission,
	TagHumidity,
	TagPeakSpectralSensitivity,
	TagPlanckR1,
	TagPlanckR2,
	TagPlanckB,
	TagPlanckO,
	TagPlanckF,
	TagAtmosAlpha1,
	TagAtmosAlpha2,
	TagAtmosBeta1,
	TagAtmosBeta2,
	TagAtmosX,
}

// planckTags lists the tags a strict normalization refuses to default.
// Factory calibration is per-camera; silently substituting another camera's
// response curve produces wrong temperatures with no warning.
var planckTags = []string{TagPlanckR1, TagPlanckR2, TagPlanckB, TagPlanckO, TagPlanckF}

// Calibration bundles everything Normalize extracts from one image.
type Calibration struct {
	Planck      radiometry.PlanckConstants
	Atmosphere  radiometry.AtmosphereConstants
	Environment radiometry.Environment
}

// UnsupportedMetadataError reports metadata that cannot be normalized: a
// recognized tag whose value does not parse, or (in strict mode) a mandatory
// tag with no default that is absent.
type UnsupportedMetadataError struct {
	Tag    string
	Reason string
}

func (e *UnsupportedMetadataError) Error() string {
	return fmt.Sprintf("flirmeta: tag %s: %s", e.Tag, e.Reason)
}

// Normalize maps a flat tag mapping into typed calibration values.
//
// Tag names match exactly, with one deterministic fallback: a group prefix
// up to the last ':' (e.g. "FLIR:PlanckR1") is stripped and the remainder
// matched exactly. Unrecognized tags are ignored. Recognized tags that are
// absent take the documented FLIR defaults.
//
// Values may be numbers, json.Number, or numeric strings with an optional
// trailing unit ("1.00 m", "50.0 %"). A "%" unit scales the value to a
// fraction, so "50.0 %" and the numeric 0.5 normalize identically.
func Normalize(tags map[string]any) (Calibration, error) {
	return normalize(tags, false)
}

// NormalizeStrict is Normalize, except that all five Planck constants must
// be present in the mapping.
func NormalizeStrict(tags map[string]any) (Calibration, error) {
	return normalize(tags, true)
}

func normalize(tags map[string]any, strict bool) (Calibration, error) {
	values := map[string]float64{}
	for name, raw := range tags {
		tag, ok := recognize(name)
		if !ok {
			continue
		}
		v, err := parseValue(raw)
		if err != nil {
			return Calibration{}, &UnsupportedMetadataError{Tag: name, Reason: err.Error()}
		}
		values[tag] = v
	}
	if strict {
		for _, tag := range planckTags {
			if _, ok := values[tag]; !ok {
				return Calibration{}, &UnsupportedMetadataError{Tag: tag, Reason: "mandatory calibration constant is missing"}
			}
		}
	}

	cal := Calibration{
		Planck:      radiometry.DefaultPlanck,
		Atmosphere:  radiometry.DefaultAtmosphere,
		Environment: radiometry.DefaultEnvironment(),
	}
	pick := func(tag string, dst *float64) {
		if v, ok := values[tag]; ok {
			*dst = v
		}
	}
	pick(TagPlanckR1, &cal.Planck.R1)
	pick(TagPlanckR2, &cal.Planck.R2)
	pick(TagPlanckB, &cal.Planck.B)
	pick(TagPlanckO, &cal.Planck.Zero)
	pick(TagPlanckF, &cal.Planck.F)

	pick(TagAtmosAlpha1, &cal.Atmosphere.Alpha1)
	pick(TagAtmosAlpha2, &cal.Atmosphere.Alpha2)
	pick(TagAtmosBeta1, &cal.Atmosphere.Beta1)
	pick(TagAtmosBeta2, &cal.Atmosphere.Beta2)
	pick(TagAtmosX, &cal.Atmosphere.X)

	pick(TagEmissivity, &cal.Environment.Emissivity)
	pick(TagSubjectDistance, &cal.Environment.SubjectDistance)
	pick(TagReflectedTemp, &cal.Environment.ReflectedTemp)
	pick(TagAtmosphericTemp, &cal.Environment.AtmosphericTemp)
	pick(TagIRWindowTemp, &cal.Environment.IRWindowTemp)
	pick(TagIRWindowTransmission, &cal.Environment.IRWindowTransmission)
	pick(TagHumidity, &cal.Environment.Humidity)
	pick(TagPeakSpectralSensitivity, &cal.Environment.PeakSpectralSensitivity)

	cal.Environment = cal.Environment.Resolved()
	return cal, nil
}

// recognized is the fixed lookup table, built once at init and read-only
// afterwards.
var recognized = func() map[string]string {
	m := make(map[string]string, len(Tags))
	for _, tag := range Tags {
		m[tag] = tag
	}
	return m
}()

// recognize matches an external tag name against the table: exact match
// first, then exact match after stripping a vendor/group prefix ending in
// ':'. Anything looser (substring matching) could bind one external name to
// several fields, so it is deliberately not done.
func recognize(name string) (string, bool) {
	if tag, ok := recognized[name]; ok {
		return tag, true
	}
	if i := strings.LastIndexByte(name, ':'); i >= 0 {
		if tag, ok := recognized[name[i+1:]]; ok {
			return tag, true
		}
	}
	return "", false
}

// parseValue coerces the value forms exiftool emits into a float64.
func parseValue(raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	case string:
		// Accept a trailing unit, e.g. "1.00 m" or "50.0 %".
		s := strings.TrimSpace(v)
		var unit string
		if i := strings.IndexByte(s, ' '); i >= 0 {
			unit = strings.TrimSpace(s[i+1:])
			s = s[:i]
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("value %q is not numeric", v)
		}
		// The human-readable form writes ratios as percentages; the typed
		// fields all carry fractions, like exiftool's own -n output.
		if unit == "%" {
			f /= 100
		}
		return f, nil
	default:
		return 0, fmt.Errorf("value %v (%T) is not numeric", raw, raw)
	}
}
