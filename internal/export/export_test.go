/*
 * Copyright (c) 2025 by TRYAM193 and the Design Studio contributors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package export

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func testImage(w, h int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	return img
}

func TestEncodePNG_RecordsDPI(t *testing.T) {
	data, err := EncodePNG(testImage(30, 20), 300)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if dpi, ok := PNGDPI(data); !ok || dpi != 300 {
		t.Fatalf("dpi = %d, %v", dpi, ok)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("png with pHYs no longer decodes: %v", err)
	}
	if img.Bounds().Dx() != 30 || img.Bounds().Dy() != 20 {
		t.Fatalf("bounds = %v", img.Bounds())
	}
	var plain bytes.Buffer
	_ = png.Encode(&plain, testImage(2, 2))
	if _, ok := PNGDPI(plain.Bytes()); ok {
		t.Fatalf("plain png must report no dpi")
	}
}

func TestEncodePDF_CreatesDocument(t *testing.T) {
	data, err := EncodePDF(testImage(600, 900), PDFOptions{Title: "Front", IncludeGuides: true})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Fatalf("not a pdf: %q", data[:8])
	}
	// 600x900 px at 300 dpi is 2x3 in, i.e. 144x216 pt.
	if !bytes.Contains(data, []byte("/MediaBox [0 0 144.00 216.00]")) {
		t.Fatalf("page size not derived from print area")
	}
	if _, err := EncodePDF(nil, PDFOptions{}); err == nil {
		t.Fatalf("nil image must fail")
	}
}

func TestProducePresets(t *testing.T) {
	img := testImage(2000, 100)
	arts, err := Produce(img, BatchOptions{Preset: PresetPrint, BaseName: "d1-front"})
	if err != nil {
		t.Fatal(err)
	}
	if len(arts) != 2 || arts[0].Name != "d1-front.png" || arts[1].Name != "d1-front.pdf" {
		t.Fatalf("print artifacts = %+v", arts)
	}
	web, err := Produce(img, BatchOptions{Preset: PresetWeb})
	if err != nil || len(web) != 1 {
		t.Fatalf("web artifacts = %v, %v", web, err)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(web[0].Data))
	if err != nil || cfg.Width != PreviewMaxWidth {
		t.Fatalf("preview width = %d, %v", cfg.Width, err)
	}
	if _, err := Produce(img, BatchOptions{Formats: []string{"tiff"}}); err == nil {
		t.Fatalf("unknown format must fail")
	}
	if p, err := ParsePreset("Proof"); err != nil || p != PresetProof {
		t.Fatalf("ParsePreset = %v, %v", p, err)
	}
	if _, err := ParsePreset("poster"); err == nil {
		t.Fatalf("unknown preset must fail")
	}
}

func TestWriteAll(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	paths, err := WriteAll(dir, []Artifact{{Name: "a.png", Data: []byte("x")}, {Name: "a.pdf", Data: []byte("y")}})
	if err != nil || len(paths) != 2 {
		t.Fatalf("WriteAll = %v, %v", paths, err)
	}
	b, err := os.ReadFile(paths[1])
	if err != nil || string(b) != "y" {
		t.Fatalf("content = %q, %v", b, err)
	}
	ents, _ := os.ReadDir(dir)
	for _, e := range ents {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Fatalf("temp file left behind: %s", e.Name())
		}
	}
}

func TestBundle(t *testing.T) {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	data, err := Bundle("d1", map[string][]Artifact{
		"back":  {{Format: "png", Name: "d1-back.png", Data: []byte("b")}},
		"front": {{Format: "png", Name: "d1-front.png", Data: []byte("f")}},
	}, created)
	if err != nil {
		t.Fatal(err)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("zip: %v", err)
	}
	var names []string
	var man BundleManifest
	for _, f := range zr.File {
		names = append(names, f.Name)
		if f.Name == "manifest.json" {
			rc, _ := f.Open()
			_ = json.NewDecoder(rc).Decode(&man)
			_ = rc.Close()
		}
	}
	if strings.Join(names, ",") != "front/d1-front.png,back/d1-back.png,manifest.json" {
		t.Fatalf("entries = %v", names)
	}
	if man.DesignID != "d1" || len(man.Files) != 2 || man.Files[0].Surface != "front" {
		t.Fatalf("manifest = %+v", man)
	}
}
