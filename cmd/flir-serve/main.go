// Copyright 2026 The go-flir Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// flir-serve watches a drop directory for radiometric FLIR JPEGs, converts
// them to temperature maps as they land, and serves the latest frames over
// HTTP with a live websocket stream.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/maruel/interrupt"
	fsnotify "gopkg.in/fsnotify.v1"

	"github.com/thermal-tools/go-flir/extract"
	"github.com/thermal-tools/go-flir/flirmeta"
	"github.com/thermal-tools/go-flir/sceneconfig"
)

func mainImpl() error {
	port := flag.Int("port", 8010, "http port to listen on")
	watchDir := flag.String("watch", "", "directory to watch for incoming FLIR JPEGs")
	exiftoolPath := flag.String("exiftool", "", "path to the exiftool binary")
	scenePath := flag.String("scene", "", "optional scene.yaml with environment overrides")
	verbose := flag.Bool("v", false, "verbose mode")
	flag.Parse()
	if !*verbose {
		log.SetOutput(io.Discard)
	}
	log.SetFlags(log.Lmicroseconds)

	if len(flag.Args()) != 0 {
		return fmt.Errorf("unexpected argument: %s", flag.Args())
	}

	var scene *sceneconfig.SceneConfig
	if *scenePath != "" {
		var err error
		if scene, err = sceneconfig.Load(*scenePath); err != nil {
			return err
		}
		if *exiftoolPath == "" {
			*exiftoolPath = scene.Exiftool
		}
		if *watchDir == "" {
			*watchDir = scene.Serve.WatchDir
		}
		if scene.Serve.Port != 0 && *port == 8010 {
			*port = scene.Serve.Port
		}
	}
	if *watchDir == "" {
		return errors.New("supply -watch or a scene.yaml with serve.watch_dir")
	}

	x, err := extract.NewExtractor(*exiftoolPath)
	if err != nil {
		return err
	}
	defer x.Close()
	if scene != nil {
		x.Modify = func(cal *flirmeta.Calibration) {
			cal.Environment = scene.Apply(cal.Environment)
		}
	}

	interrupt.HandleCtrlC()
	srv := startServer(*port)

	if err := watchAndConvert(*watchDir, x, srv); err != nil {
		return err
	}
	return nil
}

// watchAndConvert converts FLIR JPEGs as they appear in dir, until
// interrupted. Existing files are converted once on startup so a restart
// doesn't serve an empty page.
func watchAndConvert(dir string, x *extract.Extractor, srv *server) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Add(dir); err != nil {
		return err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if !entry.IsDir() && isFLIRName(entry.Name()) {
			convert(x, filepath.Join(dir, entry.Name()), srv)
		}
	}

	for {
		select {
		case <-interrupt.Channel:
			return nil
		case err := <-watcher.Errors:
			return err
		case event := <-watcher.Events:
			// Writers create then fill the file; convert once it stops
			// growing enough to parse. A failed parse of a half-written
			// file logs and gets retried on its next write event.
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !isFLIRName(event.Name) {
				continue
			}
			convert(x, event.Name, srv)
		}
	}
}

func isFLIRName(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		return true
	}
	return false
}

func convert(x *extract.Extractor, path string, srv *server) {
	result, err := x.Thermal(path)
	if err != nil {
		log.Printf("%s: %s", path, err)
		return
	}
	min, max := result.Temps.MinMax()
	log.Printf("%s: %dx%d, %.2f°C to %.2f°C, %d dead pixels",
		path, result.Temps.Width, result.Temps.Height, min, max, result.Temps.NaNCount())
	srv.AddFrame(result)
}

// stats is the JSON shape served at /latest.json and on the M websocket
// frames.
type stats struct {
	Path     string  `json:"path"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	MinC     float64 `json:"min_c"`
	MaxC     float64 `json:"max_c"`
	NaNCount int     `json:"nan_count"`

	Emissivity      float64 `json:"emissivity"`
	SubjectDistance float64 `json:"subject_distance_m"`
	ReflectedTemp   float64 `json:"reflected_temp_c"`
	Humidity        float64 `json:"relative_humidity"`
}

func statsOf(r *extract.Result) stats {
	min, max := r.Temps.MinMax()
	if math.IsNaN(min) {
		min, max = 0, 0
	}
	return stats{
		Path:            r.Path,
		Width:           r.Temps.Width,
		Height:          r.Temps.Height,
		MinC:            min,
		MaxC:            max,
		NaNCount:        r.Temps.NaNCount(),
		Emissivity:      r.Calibration.Environment.Emissivity,
		SubjectDistance: r.Calibration.Environment.SubjectDistance,
		ReflectedTemp:   r.Calibration.Environment.ReflectedTemp,
		Humidity:        r.Calibration.Environment.Humidity,
	}
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "flir-serve: %s.\n", err)
		os.Exit(1)
	}
}
