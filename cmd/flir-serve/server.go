// Copyright 2026 The go-flir Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"html/template"
	"image/png"
	"log"
	"net/http"
	"sync"

	"github.com/maruel/interrupt"
	"github.com/maruel/serve-dir/loghttp"
	"golang.org/x/net/websocket"

	"github.com/thermal-tools/go-flir/extract"
)

// server keeps the most recent converted frames and fans them out to
// websocket clients. A short ring absorbs bursts of files landing faster
// than clients drain them.
type server struct {
	cond      sync.Cond
	frames    [16]*extract.Result
	lastIndex int // index of the most recent frame, -1 before the first.
}

var rootTmpl = template.Must(template.New("root").Parse(`
	<html>
	<head>
		<title>flir-serve</title>
		<style>
			img.large {
				width: 640px;
				height: auto;
				image-rendering: pixelated;
			}
		</style>
		<script>
		function reload() {
			var latest = document.getElementById("latest");
			latest.src = "/latest.png#" + new Date().getTime();
		}
		</script>
	</head>
	<body>
	Latest frame:<br>
	<a href="/latest.png"><img class="large" id="latest" src="/latest.png" onload="reload()"></img></a>
	<br>
	{{.Path}}: {{.Width}}x{{.Height}}, {{printf "%.2f" .MinC}}°C to {{printf "%.2f" .MaxC}}°C
	<br>
	ε={{.Emissivity}} d={{.SubjectDistance}}m RH={{.Humidity}}
	</body>
	</html>`))

func startServer(port int) *server {
	s := &server{
		cond:      *sync.NewCond(&sync.Mutex{}),
		lastIndex: -1,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.root)
	mux.HandleFunc("/latest.png", s.latestPNG)
	mux.HandleFunc("/latest16.png", s.latest16PNG)
	mux.HandleFunc("/latest.json", s.latestJSON)
	mux.Handle("/stream", websocket.Handler(s.stream))
	fmt.Printf("Listening on %d\n", port)
	go http.ListenAndServe(fmt.Sprintf(":%d", port), &loghttp.Handler{Handler: mux})
	go func() {
		<-interrupt.Channel
		s.cond.Broadcast()
	}()
	return s
}

// AddFrame publishes a converted frame to the ring and wakes the clients.
func (s *server) AddFrame(r *extract.Result) {
	s.cond.L.Lock()
	defer s.cond.L.Unlock()
	s.lastIndex = (s.lastIndex + 1) % len(s.frames)
	s.frames[s.lastIndex] = r
	s.cond.Broadcast()
}

// latest returns the most recent frame, or nil before the first conversion.
func (s *server) latest() *extract.Result {
	s.cond.L.Lock()
	defer s.cond.L.Unlock()
	if s.lastIndex == -1 {
		return nil
	}
	return s.frames[s.lastIndex]
}

func (s *server) root(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	latest := s.latest()
	if latest == nil {
		http.Error(w, "no frame converted yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/html")
	if err := rootTmpl.Execute(w, statsOf(latest)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *server) latestPNG(w http.ResponseWriter, r *http.Request) {
	latest := s.latest()
	if latest == nil {
		http.Error(w, "no frame converted yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	if err := png.Encode(w, latest.Temps.AGCRGBLinear()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// latest16PNG serves the most recent frame as 16-bit grayscale centikelvin,
// for tooling that wants the actual temperatures rather than a rendering.
func (s *server) latest16PNG(w http.ResponseWriter, r *http.Request) {
	latest := s.latest()
	if latest == nil {
		http.Error(w, "no frame converted yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	if err := png.Encode(w, latest.Temps.Gray16CentiK()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *server) latestJSON(w http.ResponseWriter, r *http.Request) {
	latest := s.latest()
	if latest == nil {
		http.Error(w, "no frame converted yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	if err := json.NewEncoder(w).Encode(statsOf(latest)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// stream pushes every new frame as a base64 PNG ("I" frames) followed by its
// stats as JSON ("M" frames).
func (s *server) stream(w *websocket.Conn) {
	log.Printf("websocket from %s", w.Request().RemoteAddr)
	defer w.Close()
	buf := &bytes.Buffer{}
	s.cond.L.Lock()
	defer s.cond.L.Unlock()
	lastIndex := s.lastIndex
	for !interrupt.IsSet() {
		s.cond.Wait()
		for !interrupt.IsSet() && lastIndex != s.lastIndex {
			lastIndex = (lastIndex + 1) % len(s.frames)
			frame := s.frames[lastIndex]
			s.cond.L.Unlock()
			// Do the actual I/O without the lock.
			buf.Write([]byte("I"))
			encoder := base64.NewEncoder(base64.StdEncoding, buf)
			var err error
			if err = png.Encode(encoder, frame.Temps.AGCRGBLinear()); err == nil {
				encoder.Close()
				_, err = w.Write(buf.Bytes())
			}
			buf.Reset()
			if err == nil {
				buf.Write([]byte("M"))
				if err = json.NewEncoder(buf).Encode(statsOf(frame)); err == nil {
					_, err = w.Write(buf.Bytes())
				}
				buf.Reset()
			}

			s.cond.L.Lock()
			// To break out of the loop, the lock must be held.
			if err != nil {
				log.Printf("websocket err: %s", err)
				return
			}
		}
	}
}
