/*
 * Copyright (c) 2025 by TRYAM193 and the Design Studio contributors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package render

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/TRYAM193/design-studio-sub000/internal/design"
)

func rgbaAt(t *testing.T, img image.Image, x, y int) color.RGBA {
	t.Helper()
	return color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
}

func redSquare(id string) design.CanvasObject {
	return design.CanvasObject{ID: id, Type: design.TypeRect, Props: design.Props{
		"left": 10.0, "top": 10.0, "width": 50.0, "height": 50.0, "fill": "#ff0000",
	}}
}

func newWhiteSurface(t *testing.T, w, h int) *Surface {
	t.Helper()
	s, err := NewSurface(w, h, Options{Background: "white"})
	if err != nil {
		t.Fatalf("NewSurface: %v", err)
	}
	return s
}

func pngDataURL(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{0, 0, 255, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestParseColor(t *testing.T) {
	cases := []struct {
		in   string
		want color.NRGBA
		ok   bool
	}{
		{"#f00", color.NRGBA{255, 0, 0, 255}, true},
		{"#00ff0080", color.NRGBA{0, 255, 0, 128}, true},
		{"rgb(1, 2, 3)", color.NRGBA{1, 2, 3, 255}, true},
		{"rgba(255,0,0,0.5)", color.NRGBA{255, 0, 0, 128}, true},
		{"Navy", color.NRGBA{0, 0, 128, 255}, true},
		{"transparent", color.NRGBA{}, false},
		{"", color.NRGBA{}, false},
		{"#12", color.NRGBA{}, false},
		{"nonsense", color.NRGBA{}, false},
	}
	for _, c := range cases {
		got, ok := ParseColor(c.in)
		if ok != c.ok || (ok && got != c.want) {
			t.Fatalf("ParseColor(%q) = %v,%v want %v,%v", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestParsePath(t *testing.T) {
	ops, err := parsePath("m 10 10 l 5 0 5 5 h -10 z")
	if err != nil {
		t.Fatalf("parsePath: %v", err)
	}
	if got := pathString(ops); got != "M 10 10 L 15 10 L 20 15 L 10 15 Z" {
		t.Fatalf("absolute path = %q", got)
	}
	arr := []any{[]any{"M", 0.0, 0.0}, []any{"Q", 5.0, 5.0, 10.0, 0.0}}
	ops, err = parsePath(arr)
	if err != nil || pathString(ops) != "M 0 0 Q 5 5 10 0" {
		t.Fatalf("array path = %v, %v", pathString(ops), err)
	}
	if _, err := parsePath("M 0 0 A 1 1 0 0 1 2 2"); err == nil {
		t.Fatalf("arc commands are not supported and must be reported")
	}
}

func TestParsePathImplicitLineTo(t *testing.T) {
	for _, tc := range []struct {
		in       string
		wantCmds string
	}{
		{"M 0 0 10 10", "ML"},
		{"m 5 5 10 0 0 10", "mll"},
		{"M 1 1 L 2 2 3 3", "MLL"},
	} {
		ops, err := tokenizePath(tc.in)
		if err != nil {
			t.Fatalf("tokenizePath(%q): %v", tc.in, err)
		}
		var cmds []byte
		for _, op := range ops {
			cmds = append(cmds, op.cmd)
		}
		if string(cmds) != tc.wantCmds {
			t.Fatalf("tokenizePath(%q) commands = %q, want %q", tc.in, cmds, tc.wantCmds)
		}
	}
	ops, err := parsePath("m 5 5 10 0 0 10")
	if err != nil {
		t.Fatalf("parsePath: %v", err)
	}
	if got := pathString(ops); got != "M 5 5 L 15 5 L 15 15" {
		t.Fatalf("absolute path = %q", got)
	}
	if _, err := splitRepeats([]pathOp{{cmd: 'M', args: []float64{1, 2, 3}}}); err == nil {
		t.Fatalf("odd moveto argument count must be rejected")
	}
}

func TestSurfaceDrawsAndScales(t *testing.T) {
	s := newWhiteSurface(t, 200, 200)
	defer s.Dispose()
	if err := s.LoadObjects(context.Background(), design.ObjectList{redSquare("a")}, 2); err != nil {
		t.Fatalf("LoadObjects: %v", err)
	}
	img, err := s.Image()
	if err != nil {
		t.Fatal(err)
	}
	if got := rgbaAt(t, img, 100, 100); got != (color.RGBA{255, 0, 0, 255}) {
		t.Fatalf("inside pixel = %v", got)
	}
	if got := rgbaAt(t, img, 150, 150); got != (color.RGBA{255, 255, 255, 255}) {
		t.Fatalf("outside pixel = %v", got)
	}
}

func TestSurfaceHideShow(t *testing.T) {
	s := newWhiteSurface(t, 100, 100)
	defer s.Dispose()
	_ = s.LoadObjects(context.Background(), design.ObjectList{redSquare("a")}, 1)
	s.Hide("a")
	img, _ := s.Image()
	if got := rgbaAt(t, img, 35, 35); got != (color.RGBA{255, 255, 255, 255}) {
		t.Fatalf("hidden object drawn: %v", got)
	}
	s.Show("a")
	img, _ = s.Image()
	if got := rgbaAt(t, img, 35, 35); got != (color.RGBA{255, 0, 0, 255}) {
		t.Fatalf("shown object missing: %v", got)
	}
}

func TestRenderIsDeterministic(t *testing.T) {
	list := design.ObjectList{
		redSquare("a"),
		{ID: "t", Type: design.TypeText, Props: design.Props{"left": 5.0, "top": 70.0, "text": "Hello\nPrint", "fontSize": 14.0, "angle": 12.0}},
		{ID: "c", Type: design.TypeCircle, Props: design.Props{"left": 60.0, "top": 20.0, "radius": 15.0, "fill": "rgba(0,128,0,0.6)", "stroke": "black", "strokeWidth": 2.0}},
		{ID: "p", Type: design.TypePath, Props: design.Props{"left": 10.0, "top": 110.0, "path": "M 0 0 L 40 0 L 20 30 Z", "flipY": true}},
	}
	export := func() []byte {
		s := newWhiteSurface(t, 150, 150)
		defer s.Dispose()
		if err := s.LoadObjects(context.Background(), list, 1); err != nil {
			t.Fatal(err)
		}
		b, err := s.ExportBitmap(ExportOptions{Format: "png"})
		if err != nil {
			t.Fatal(err)
		}
		return b
	}
	if !bytes.Equal(export(), export()) {
		t.Fatalf("two renders of the same list differ")
	}
}

func TestExportBitmapOptions(t *testing.T) {
	s := newWhiteSurface(t, 100, 80)
	defer s.Dispose()
	_ = s.LoadObjects(context.Background(), design.ObjectList{redSquare("a")}, 1)

	b, err := s.ExportBitmap(ExportOptions{Multiplier: 2})
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(b))
	if err != nil || cfg.Width != 200 || cfg.Height != 160 {
		t.Fatalf("scaled export = %+v, %v", cfg, err)
	}
	if _, err := s.ExportBitmap(ExportOptions{Format: "jpeg", Quality: 0.8}); err != nil {
		t.Fatalf("jpeg export: %v", err)
	}
	var pe *design.ParseError
	if _, err := s.ExportBitmap(ExportOptions{Format: "gif"}); !errors.As(err, &pe) {
		t.Fatalf("expected ParseError for unknown format, got %v", err)
	}
}

func TestDisposeIsIdempotentAndFinal(t *testing.T) {
	s := newWhiteSurface(t, 10, 10)
	s.Dispose()
	s.Dispose()
	if !s.Disposed() {
		t.Fatalf("surface not marked disposed")
	}
	if err := s.LoadObjects(context.Background(), design.ObjectList{redSquare("a")}, 1); !errors.Is(err, ErrDisposed) {
		t.Fatalf("LoadObjects after dispose: %v", err)
	}
	if err := s.Render(); !errors.Is(err, ErrDisposed) {
		t.Fatalf("Render after dispose: %v", err)
	}
	s.Hide("a")
	if _, err := s.ExportBitmap(ExportOptions{}); !errors.Is(err, ErrDisposed) {
		t.Fatalf("Export after dispose: %v", err)
	}
}

func TestLoadObjectsHonoursCancellation(t *testing.T) {
	s := newWhiteSurface(t, 10, 10)
	defer s.Dispose()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	img := design.CanvasObject{ID: "i", Type: design.TypeImage, Props: design.Props{"src": pngDataURL(t, 2, 2)}}
	if err := s.LoadObjects(ctx, design.ObjectList{img}, 1); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(s.Objects()) != 0 {
		t.Fatalf("cancelled load must not change the surface")
	}
}

func TestImageObjectsAndExtent(t *testing.T) {
	s := newWhiteSurface(t, 100, 100)
	defer s.Dispose()
	img := design.CanvasObject{ID: "i", Type: design.TypeImage, Props: design.Props{
		"src": pngDataURL(t, 30, 20), "left": 0.0, "top": 0.0, "scaleX": 2.0, "scaleY": 2.0,
	}}
	if err := s.LoadObjects(context.Background(), design.ObjectList{img}, 1); err != nil {
		t.Fatal(err)
	}
	ext, ok := s.Extent(img)
	if !ok || ext.NativeW != 30 || ext.NativeH != 20 || ext.ScaledW != 60 || ext.ScaledH != 40 {
		t.Fatalf("extent = %+v, %v", ext, ok)
	}
	frame, _ := s.Image()
	if got := rgbaAt(t, frame, 50, 30); got != (color.RGBA{0, 0, 255, 255}) {
		t.Fatalf("image pixel = %v", got)
	}
	if got := rgbaAt(t, frame, 70, 50); got != (color.RGBA{255, 255, 255, 255}) {
		t.Fatalf("outside image pixel = %v", got)
	}
}

func TestImageLoaderSources(t *testing.T) {
	root := t.TempDir()
	var buf bytes.Buffer
	_ = png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 3, 3)))
	if err := os.WriteFile(filepath.Join(root, "logo.png"), buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	il := &ImageLoader{AssetRoot: root}
	ctx := context.Background()
	if img, err := il.Load(ctx, "logo.png"); err != nil || img.Bounds().Dx() != 3 {
		t.Fatalf("asset load: %v", err)
	}
	if _, err := il.Load(ctx, "../outside.png"); err == nil {
		t.Fatalf("path outside the asset root must be rejected")
	}
	if _, err := il.Load(ctx, "https://example.com/a.png"); !errors.Is(err, ErrRemoteDisabled) {
		t.Fatalf("expected ErrRemoteDisabled, got %v", err)
	}
}

func TestCaptureNormalizesToPrintSpace(t *testing.T) {
	live := design.ObjectList{
		{ID: design.PrintAreaBorderID, Type: design.TypeRect, Props: design.Props{"left": 0.0}},
		{ID: "t", CustomID: "ct", Type: design.TypeText, Props: design.Props{"left": 10.0, "top": 20.0, "text": 42.0}},
		{ID: "i", Type: design.TypeImage, Props: design.Props{"left": 5.0, "width": 300.0, "height": 200.0, "scaleX": 0.5}},
	}
	out := Capture(live, design.Size{Width: 500, Height: 600}, design.Size{Width: 4500, Height: 5400})
	if len(out) != 2 {
		t.Fatalf("scaffolding not dropped: %d objects", len(out))
	}
	txt := out[0].Props
	if txt.Float("left", 0) != 90 || txt.Float("top", 0) != 180 || txt.Float("scaleX", 0) != 9 {
		t.Fatalf("text not normalized: %v", txt)
	}
	if s, ok := txt.String("text"); !ok || s != "" {
		t.Fatalf("non-string text not coerced: %v", txt["text"])
	}
	if txt.StringOr("fontFamily", "") != defaultFontFamily || txt.Float("opacity", 0) != 1 {
		t.Fatalf("defaults not materialized: %v", txt)
	}
	im := out[1].Props
	if im.Float("scaleX", 0) != 4.5 || im.Float("naturalWidth", 0) != 300 {
		t.Fatalf("image not normalized: %v", im)
	}
	if live[1].Props.Float("left", 0) != 10 {
		t.Fatalf("capture mutated its input")
	}
}

func TestFontEnsureReportsFallbacks(t *testing.T) {
	fl := NewFontLibrary()
	list := design.ObjectList{
		{ID: "a", Type: design.TypeText, Props: design.Props{"text": "x", "fontFamily": "Lobster"}},
		{ID: "b", Type: design.TypeTextbox, Props: design.Props{"text": "y", "fontFamily": "Lobster", "fontWeight": "bold"}},
		{ID: "c", Type: design.TypeRect},
	}
	missing, err := fl.Ensure(context.Background(), list)
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if len(missing) != 1 || missing[0] != "Lobster" {
		t.Fatalf("missing = %v", missing)
	}
	if fam, bold, italic := styleFromName("Roboto-BoldItalic"); fam != "Roboto" || !bold || !italic {
		t.Fatalf("styleFromName = %s %v %v", fam, bold, italic)
	}
}
