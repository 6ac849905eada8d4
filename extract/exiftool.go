// Copyright 2026 The go-flir Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package extract

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
)

// readyMarker terminates every response in exiftool's -stay_open protocol.
var readyMarker = []byte("{ready}\n")

// Exiftool drives a single long-lived exiftool child process in -stay_open
// mode, so a batch of files doesn't pay process startup per file. Safe for
// concurrent use; commands are serialized over the process's stdin.
type Exiftool struct {
	mu    sync.Mutex
	cmd   *exec.Cmd
	stdin io.WriteCloser
	out   *bufio.Reader
}

// NewExiftool starts an exiftool process. An empty path looks up "exiftool"
// in $PATH.
func NewExiftool(path string) (*Exiftool, error) {
	if path == "" {
		path = "exiftool"
	}
	cmd := exec.Command(path, "-stay_open", "True", "-@", "-")
	cmd.Stderr = os.Stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("extract: starting %s: %w", path, err)
	}
	return &Exiftool{cmd: cmd, stdin: stdin, out: bufio.NewReader(stdout)}, nil
}

// Close asks the child process to exit and waits for it.
func (e *Exiftool) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cmd == nil {
		return nil
	}
	_, werr := io.WriteString(e.stdin, "-stay_open\nFalse\n")
	cerr := e.stdin.Close()
	err := e.cmd.Wait()
	e.cmd = nil
	if err == nil {
		err = werr
	}
	if err == nil {
		err = cerr
	}
	return err
}

// execute sends one command (each argument on its own line, then -execute)
// and returns the response bytes up to but excluding the {ready} marker.
func (e *Exiftool) execute(args ...string) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cmd == nil {
		return nil, fmt.Errorf("extract: exiftool is closed")
	}
	for _, a := range args {
		if _, err := fmt.Fprintln(e.stdin, a); err != nil {
			return nil, err
		}
	}
	if _, err := io.WriteString(e.stdin, "-execute\n"); err != nil {
		return nil, err
	}
	return readResponse(e.out)
}

// readResponse accumulates output until the {ready} terminator and returns
// everything before it. Binary tag payloads pass through unmodified; the
// marker follows the payload directly, with no separator of its own.
func readResponse(r *bufio.Reader) ([]byte, error) {
	var buf bytes.Buffer
	for {
		line, err := r.ReadBytes('\n')
		if bytes.HasSuffix(line, readyMarker) {
			buf.Write(line[:len(line)-len(readyMarker)])
			return buf.Bytes(), nil
		}
		buf.Write(line)
		if err != nil {
			return nil, fmt.Errorf("extract: exiftool died mid-response: %w", err)
		}
	}
}

// Tags queries the given metadata tags for a batch of files in one round
// trip. Values come back in exiftool's -n numeric form. The result has one
// mapping per file, in input order.
func (e *Exiftool) Tags(tags []string, paths []string) ([]map[string]any, error) {
	args := make([]string, 0, len(tags)+len(paths)+2)
	args = append(args, "-j", "-n")
	for _, tag := range tags {
		args = append(args, "-"+tag)
	}
	args = append(args, paths...)
	out, err := e.execute(args...)
	if err != nil {
		return nil, err
	}
	var result []map[string]any
	if err := json.Unmarshal(out, &result); err != nil {
		return nil, fmt.Errorf("extract: bad exiftool JSON: %w", err)
	}
	if len(result) != len(paths) {
		return nil, fmt.Errorf("extract: %d results for %d files", len(result), len(paths))
	}
	return result, nil
}

// Binary extracts the raw bytes of a single tag from a single file. No batch
// form exists: exiftool gives no way to split concatenated binary output.
func (e *Exiftool) Binary(tag, path string) ([]byte, error) {
	out, err := e.execute("-b", "-"+tag, path)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, &UnsupportedImageError{
			Path:   path,
			Reason: fmt.Sprintf("no bytes for tag %s; is this a radiometric FLIR image?", tag),
		}
	}
	return out, nil
}
