// Copyright 2026 The go-flir Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package sceneconfig loads scene and tool settings from a YAML file and
// merges them over the camera metadata's own environment values.
package sceneconfig

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/thermal-tools/go-flir/radiometry"
)

// SceneConfig is the top-level structure of a scene.yaml. Every environment
// field is optional; absent fields leave the value from the image metadata
// (or the FLIR default) in place.
type SceneConfig struct {
	Exiftool string `yaml:"exiftool"` // path to the exiftool binary, "" means $PATH

	Environment struct {
		Emissivity           *float64 `yaml:"emissivity"`
		SubjectDistance      *float64 `yaml:"subject_distance_m"`
		ReflectedTemp        *float64 `yaml:"reflected_temp_c"`
		AtmosphericTemp      *float64 `yaml:"atmospheric_temp_c"`
		IRWindowTemp         *float64 `yaml:"ir_window_temp_c"`
		IRWindowTransmission *float64 `yaml:"ir_window_transmission"`
		Humidity             *float64 `yaml:"relative_humidity"`
	} `yaml:"environment"`

	Serve struct {
		Port     int    `yaml:"port"`
		WatchDir string `yaml:"watch_dir"`
	} `yaml:"serve"`
}

// Load reads and parses a scene.yaml.
func Load(path string) (*SceneConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene config: %w", err)
	}
	var cfg SceneConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse scene config: %w", err)
	}
	return &cfg, nil
}

// Apply overlays the configured overrides on an environment and returns the
// result. The input is not modified.
func (c *SceneConfig) Apply(env radiometry.Environment) radiometry.Environment {
	e := c.Environment
	if e.Emissivity != nil {
		env.Emissivity = *e.Emissivity
	}
	if e.SubjectDistance != nil {
		env.SubjectDistance = *e.SubjectDistance
	}
	if e.ReflectedTemp != nil {
		env.ReflectedTemp = *e.ReflectedTemp
	}
	if e.AtmosphericTemp != nil {
		env.AtmosphericTemp = *e.AtmosphericTemp
	}
	if e.IRWindowTemp != nil {
		env.IRWindowTemp = *e.IRWindowTemp
	}
	if e.IRWindowTransmission != nil {
		env.IRWindowTransmission = *e.IRWindowTransmission
	}
	if e.Humidity != nil {
		env.Humidity = *e.Humidity
	}
	return env.Resolved()
}
