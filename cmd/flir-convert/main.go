// Copyright 2026 The go-flir Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// flir-convert converts radiometric FLIR JPEGs into calibrated temperature
// maps, written as PNG renderings and/or CSV dumps in Celsius.
package main

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"image"
	"image/png"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/maruel/interrupt"

	"github.com/thermal-tools/go-flir/extract"
	"github.com/thermal-tools/go-flir/flirmeta"
	"github.com/thermal-tools/go-flir/sceneconfig"
)

// fileEntry is one converted file in the run manifest.
type fileEntry struct {
	Path     string  `json:"path"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	MinC     float64 `json:"min_c"`
	MaxC     float64 `json:"max_c"`
	MeanC    float64 `json:"mean_c"`
	NaNCount int     `json:"nan_count"`
}

// manifest summarizes one flir-convert run.
type manifest struct {
	RunID string      `json:"run_id"`
	Files []fileEntry `json:"files"`
}

// envFlags holds the per-flag scene overrides. NaN means "not given".
type envFlags struct {
	emissivity float64
	distance   float64
	reflected  float64
	humidity   float64
}

func (f *envFlags) apply(cal *flirmeta.Calibration) {
	if !math.IsNaN(f.emissivity) {
		cal.Environment.Emissivity = f.emissivity
	}
	if !math.IsNaN(f.distance) {
		cal.Environment.SubjectDistance = f.distance
	}
	if !math.IsNaN(f.reflected) {
		cal.Environment.ReflectedTemp = f.reflected
	}
	if !math.IsNaN(f.humidity) {
		cal.Environment.Humidity = f.humidity
	}
}

func mainImpl() error {
	exiftoolPath := flag.String("exiftool", "", "path to the exiftool binary")
	scenePath := flag.String("scene", "", "optional scene.yaml with environment overrides")
	outDir := flag.String("out", ".", "directory for converted output")
	writePNG := flag.Bool("png", true, "write a pseudo-color PNG per input")
	writeGray16 := flag.Bool("gray16", false, "write a 16-bit centikelvin PNG per input")
	writeCSV := flag.Bool("csv", false, "write a CSV temperature dump per input")
	manifestPath := flag.String("manifest", "", "write a JSON run manifest to this path")
	jobs := flag.Int("jobs", 4, "number of concurrent conversions")
	verbose := flag.Bool("v", false, "verbose mode")
	overrides := envFlags{}
	flag.Float64Var(&overrides.emissivity, "emissivity", math.NaN(), "override subject emissivity (0, 1]")
	flag.Float64Var(&overrides.distance, "distance", math.NaN(), "override subject distance in meters")
	flag.Float64Var(&overrides.reflected, "reflected", math.NaN(), "override reflected apparent temperature in °C")
	flag.Float64Var(&overrides.humidity, "humidity", math.NaN(), "override relative humidity [0, 1]")
	flag.Parse()
	if !*verbose {
		log.SetOutput(io.Discard)
	}
	log.SetFlags(log.Lmicroseconds)

	if flag.NArg() == 0 {
		return errors.New("supply radiometric FLIR JPEGs to convert")
	}
	if *jobs < 1 {
		return errors.New("-jobs must be at least 1")
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
	}

	x, err := extract.NewExtractor(*exiftoolPath)
	if err != nil {
		return err
	}
	defer x.Close()
	x.Modify = func(cal *flirmeta.Calibration) {
		if scene != nil {
			cal.Environment = scene.Apply(cal.Environment)
		}
		overrides.apply(cal)
	}

	interrupt.HandleCtrlC()

	// Every file is an independent unit of work; the batch is a plain
	// data-parallel map. exiftool I/O serializes on its single child
	// process, the numeric work runs truly in parallel.
	type outcome struct {
		index int
		entry fileEntry
		err   error
	}
	paths := flag.Args()
	work := make(chan int)
	results := make(chan outcome)
	var wg sync.WaitGroup
	for w := 0; w < *jobs; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range work {
				entry, err := convertOne(x, paths[i], *outDir, *writePNG, *writeGray16, *writeCSV)
				results <- outcome{index: i, entry: entry, err: err}
			}
		}()
	}
	go func() {
		defer close(work)
		for i := range paths {
			if interrupt.IsSet() {
				return
			}
			work <- i
		}
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	entries := make([]fileEntry, 0, len(paths))
	var firstErr error
	for r := range results {
		if r.err != nil {
			fmt.Fprintf(os.Stderr, "%s: %s\n", paths[r.index], r.err)
			if firstErr == nil {
				firstErr = r.err
			}
			continue
		}
		entries = append(entries, r.entry)
		fmt.Printf("%s: %dx%d, %.2f°C to %.2f°C\n", r.entry.Path, r.entry.Width, r.entry.Height, r.entry.MinC, r.entry.MaxC)
	}

	if *manifestPath != "" {
		m := manifest{RunID: uuid.NewString(), Files: entries}
		data, err := json.MarshalIndent(&m, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(*manifestPath, data, 0644); err != nil {
			return err
		}
		log.Printf("manifest %s written to %s", m.RunID, *manifestPath)
	}
	return firstErr
}

// convertOne converts a single file and writes the requested outputs next to
// outDir, named after the input.
func convertOne(x *extract.Extractor, path, outDir string, writePNG, writeGray16, writeCSV bool) (fileEntry, error) {
	result, err := x.Thermal(path)
	if err != nil {
		return fileEntry{}, err
	}
	t := result.Temps
	min, max := t.MinMax()
	sum := 0.0
	finite := 0
	for _, v := range t.Pix {
		if !math.IsNaN(v) {
			sum += v
			finite++
		}
	}
	mean := 0.0
	if finite > 0 {
		mean = sum / float64(finite)
	}
	// JSON has no NaN; a frame with no physical solution at all reports
	// zeros and its NaNCount tells the story.
	if math.IsNaN(min) {
		min, max = 0, 0
	}
	entry := fileEntry{
		Path:     path,
		Width:    t.Width,
		Height:   t.Height,
		MinC:     min,
		MaxC:     max,
		MeanC:    mean,
		NaNCount: t.NaNCount(),
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	writeImage := func(name string, img image.Image) error {
		f, err := os.Create(filepath.Join(outDir, name))
		if err != nil {
			return err
		}
		err = png.Encode(f, img)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		return err
	}
	if writePNG {
		if err := writeImage(base+".png", t.AGCRGBLinear()); err != nil {
			return entry, err
		}
	}
	if writeGray16 {
		if err := writeImage(base+"-centik.png", t.Gray16CentiK()); err != nil {
			return entry, err
		}
	}
	if writeCSV {
		f, err := os.Create(filepath.Join(outDir, base+".csv"))
		if err != nil {
			return entry, err
		}
		err = writeTempsCSV(f, t.Pix, t.Width)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return entry, err
		}
	}
	return entry, nil
}

// writeTempsCSV dumps temperatures row by row, one cell per pixel, NaN for
// pixels without a physical solution.
func writeTempsCSV(w io.Writer, pix []float64, width int) error {
	cw := csv.NewWriter(w)
	record := make([]string, width)
	for row := 0; row*width < len(pix); row++ {
		for col := 0; col < width; col++ {
			record[col] = strconv.FormatFloat(pix[row*width+col], 'f', 4, 64)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "flir-convert: %s.\n", err)
		os.Exit(1)
	}
}
