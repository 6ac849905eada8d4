// Copyright 2026 The go-flir Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package extract

import (
	"bufio"
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"golang.org/x/image/tiff"
)

func color16(v uint16) color.Gray16 {
	return color.Gray16{Y: v}
}

func TestReadResponse(t *testing.T) {
	data := []struct {
		in   string
		want string
	}{
		{"{ready}\n", ""},
		{"line1\nline2\n{ready}\n", "line1\nline2\n"},
		// Binary payloads end flush against the marker, no separator.
		{"BIN\x00\x01\x02DATA{ready}\n", "BIN\x00\x01\x02DATA"},
		{"payload\nwith{ready}inside\n{ready}\n", "payload\nwith{ready}inside\n"},
	}
	for _, line := range data {
		got, err := readResponse(bufio.NewReader(strings.NewReader(line.in)))
		if err != nil {
			t.Fatalf("%q: %s", line.in, err)
		}
		if string(got) != line.want {
			t.Fatalf("%q: got %q, want %q", line.in, got, line.want)
		}
	}
}

func TestReadResponseTruncated(t *testing.T) {
	if _, err := readResponse(bufio.NewReader(strings.NewReader("no marker"))); err == nil {
		t.Fatal("expected failure on truncated response")
	}
}

func TestDecodeRawPNG(t *testing.T) {
	// FLIR's embedded PNGs store 16-bit samples little-endian against the
	// PNG spec. Encode the byte-swapped values, then check DecodeRaw
	// restores the real ones.
	want := []uint16{0x4650, 0x4800, 0x0300, 0xFFFF, 0, 0x1234}
	img := image.NewGray16(image.Rect(0, 0, 3, 2))
	for i, v := range want {
		img.SetGray16(i%3, i/3, color16(v<<8|v>>8))
	}
	buf := bytes.Buffer{}
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	frame, err := DecodeRaw(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if frame.Width != 3 || frame.Height != 2 {
		t.Fatalf("decoded %dx%d, want 3x2", frame.Width, frame.Height)
	}
	for i, v := range want {
		if frame.Pix[i] != v {
			t.Fatalf("pixel %d: got %#04x, want %#04x", i, frame.Pix[i], v)
		}
	}
}

func TestDecodeRawTIFF(t *testing.T) {
	// TIFF payloads carry their own byte order and need no correction.
	want := []uint16{0x4650, 0x4800, 0x0300, 0xFFFF}
	img := image.NewGray16(image.Rect(0, 0, 2, 2))
	for i, v := range want {
		img.SetGray16(i%2, i/2, color16(v))
	}
	buf := bytes.Buffer{}
	if err := tiff.Encode(&buf, img, nil); err != nil {
		t.Fatal(err)
	}
	frame, err := DecodeRaw(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range want {
		if frame.Pix[i] != v {
			t.Fatalf("pixel %d: got %#04x, want %#04x", i, frame.Pix[i], v)
		}
	}
}

func TestDecodeRawGarbage(t *testing.T) {
	if _, err := DecodeRaw([]byte("not an image at all")); err == nil {
		t.Fatal("expected decode failure")
	}
}

// fakeExiftool writes a shell script speaking just enough of the -stay_open
// protocol to play back a canned response per -execute.
func fakeExiftool(t *testing.T, response string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
	script := "#!/bin/sh\n" +
		"while read line; do\n" +
		"  case \"$line\" in\n" +
		"  -execute) printf '%s' " + shellQuote(response) + "; printf '{ready}\\n';;\n" +
		"  -stay_open) read v; if [ \"$v\" = \"False\" ]; then exit 0; fi;;\n" +
		"  esac\n" +
		"done\n"
	path := filepath.Join(t.TempDir(), "exiftool")
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func TestExiftoolTags(t *testing.T) {
	tool, err := NewExiftool(fakeExiftool(t, `[{"SourceFile":"a.jpg","Emissivity":0.95,"PlanckB":1501}]`))
	if err != nil {
		t.Fatal(err)
	}
	defer tool.Close()
	tags, err := tool.Tags([]string{"Emissivity", "PlanckB"}, []string{"a.jpg"})
	if err != nil {
		t.Fatal(err)
	}
	if len(tags) != 1 {
		t.Fatalf("got %d maps, want 1", len(tags))
	}
	if tags[0]["Emissivity"] != 0.95 {
		t.Fatalf("Emissivity = %v", tags[0]["Emissivity"])
	}
}

func TestExiftoolBinaryEmpty(t *testing.T) {
	tool, err := NewExiftool(fakeExiftool(t, ""))
	if err != nil {
		t.Fatal(err)
	}
	defer tool.Close()
	_, err = tool.Binary(rawThermalTag, "plain.jpg")
	if _, ok := err.(*UnsupportedImageError); !ok {
		t.Fatalf("got %v, want UnsupportedImageError", err)
	}
}

func TestExiftoolClosed(t *testing.T) {
	tool, err := NewExiftool(fakeExiftool(t, "x"))
	if err != nil {
		t.Fatal(err)
	}
	if err := tool.Close(); err != nil {
		t.Fatal(err)
	}
	if err := tool.Close(); err != nil {
		t.Fatal("second Close must be a no-op")
	}
	if _, err := tool.execute("-ver"); err == nil {
		t.Fatal("execute after Close must fail")
	}
}
