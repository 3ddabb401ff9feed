/*
 * Copyright (c) 2025 by TRYAM193 and the Design Studio contributors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package render is the off-screen rendering capability: it rasterizes an
// object list onto a software surface and exports bitmaps from it.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"log/slog"
	"math"
	"strings"
	"sync"

	"github.com/fogleman/gg"
	xdraw "golang.org/x/image/draw"

	"github.com/TRYAM193/design-studio-sub000/internal/design"
	"github.com/TRYAM193/design-studio-sub000/internal/dpi"
	applog "github.com/TRYAM193/design-studio-sub000/internal/log"
)

// ErrDisposed is returned by every operation on a disposed surface.
var ErrDisposed = errors.New("render: surface disposed")

// Options configures a Surface.
type Options struct {
	Fonts      *FontLibrary
	Images     *ImageLoader
	Background string
}

// ExportOptions controls ExportBitmap. Format is "png" (default) or "jpeg";
// Quality is 0..1 and only used for jpeg; Multiplier scales the output.
type ExportOptions struct {
	Format     string
	Quality    float64
	Multiplier float64
}

// Surface is an off-screen canvas. All methods are safe for concurrent use;
// once disposed, it never mutates again.
type Surface struct {
	mu       sync.Mutex
	width    int
	height   int
	scale    float64
	bg       color.NRGBA
	hasBg    bool
	fonts    *FontLibrary
	images   *ImageLoader
	objects  design.ObjectList
	bitmaps  map[string]image.Image
	hidden   map[string]bool
	frame    image.Image
	disposed bool
}

// NewSurface allocates a width x height surface.
func NewSurface(width, height int, opts Options) (*Surface, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("render: invalid surface size %dx%d", width, height)
	}
	s := &Surface{
		width:   width,
		height:  height,
		scale:   1,
		fonts:   opts.Fonts,
		images:  opts.Images,
		bitmaps: map[string]image.Image{},
		hidden:  map[string]bool{},
	}
	if s.fonts == nil {
		s.fonts = NewFontLibrary()
	}
	if s.images == nil {
		s.images = &ImageLoader{}
	}
	s.bg, s.hasBg = ParseColor(opts.Background)
	return s, nil
}

// Size returns the pixel dimensions.
func (s *Surface) Size() (int, int) { return s.width, s.height }

// LoadObjects replaces the surface content with list drawn at scale and
// fetches every image source. ctx is checked before each fetch and the
// surface is left untouched when it has been disposed meanwhile.
func (s *Surface) LoadObjects(ctx context.Context, list design.ObjectList, scale float64) error {
	if s.Disposed() {
		return ErrDisposed
	}
	if scale <= 0 {
		scale = 1
	}
	l := applog.WithOperation(applog.WithComponent("render"), "load_objects")
	objs := list.Clone()
	bitmaps := map[string]image.Image{}
	for _, o := range objs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if o.Type != design.TypeImage {
			continue
		}
		src := o.Props.StringOr(design.PropSrc, "")
		if src == "" {
			continue
		}
		img, err := s.images.Load(ctx, src)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			l.Warn("image not loaded, object skipped", slog.String("id", o.ID), slog.Any("err", err))
			continue
		}
		bitmaps[o.ID] = img
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return ErrDisposed
	}
	s.objects = objs
	s.bitmaps = bitmaps
	s.scale = scale
	s.frame = nil
	l.Debug("objects loaded", slog.Int("objects", len(objs)), slog.Int("images", len(bitmaps)), slog.Float64("scale", scale))
	return nil
}

// Objects returns a copy of the loaded list.
func (s *Surface) Objects() design.ObjectList {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.objects.Clone()
}

// Render rasterizes the loaded objects. Objects that cannot be drawn are
// logged and skipped.
func (s *Surface) Render() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.renderLocked()
}

func (s *Surface) renderLocked() error {
	if s.disposed {
		return ErrDisposed
	}
	l := applog.WithOperation(applog.WithComponent("render"), "render")
	dc := gg.NewContext(s.width, s.height)
	if s.hasBg {
		dc.SetColor(s.bg)
		dc.Clear()
	}
	dc.Scale(s.scale, s.scale)
	for _, o := range s.objects {
		if s.hidden[o.ID] {
			continue
		}
		if err := s.drawObject(dc, o, s.scale); err != nil {
			l.Warn("object not drawn", slog.String("id", o.ID), slog.String("type", string(o.Type)), slog.Any("err", err))
		}
	}
	s.frame = dc.Image()
	return nil
}

// Image returns the current frame, rendering first when needed.
func (s *Surface) Image() (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return nil, ErrDisposed
	}
	if s.frame == nil {
		if err := s.renderLocked(); err != nil {
			return nil, err
		}
	}
	return s.frame, nil
}

// ExportBitmap encodes the current frame.
func (s *Surface) ExportBitmap(opts ExportOptions) ([]byte, error) {
	img, err := s.Image()
	if err != nil {
		return nil, err
	}
	if m := opts.Multiplier; m > 0 && m != 1 {
		b := img.Bounds()
		w := max(1, int(math.Round(float64(b.Dx())*m)))
		h := max(1, int(math.Round(float64(b.Dy())*m)))
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Over, nil)
		img = dst
	}
	var buf bytes.Buffer
	switch strings.ToLower(opts.Format) {
	case "", "png":
		err = png.Encode(&buf, img)
	case "jpeg", "jpg":
		q := opts.Quality
		if q <= 0 || q > 1 {
			q = 0.92
		}
		err = jpeg.Encode(&buf, flatten(img), &jpeg.Options{Quality: int(math.Round(q * 100))})
	default:
		return nil, &design.ParseError{Type: "ExportFormat", Value: opts.Format}
	}
	if err != nil {
		return nil, fmt.Errorf("render: encode %s: %w", opts.Format, err)
	}
	return buf.Bytes(), nil
}

// flatten composites img over white for formats without alpha.
func flatten(img image.Image) image.Image {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(out, out.Bounds(), image.NewUniform(color.White), image.Point{}, xdraw.Src)
	xdraw.Draw(out, out.Bounds(), img, b.Min, xdraw.Over)
	return out
}

// Hide excludes an object from subsequent frames.
func (s *Surface) Hide(id string) {
	s.setHidden(id, true)
}

// Show reverts Hide.
func (s *Surface) Show(id string) {
	s.setHidden(id, false)
}

func (s *Surface) setHidden(id string, hidden bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed || s.hidden[id] == hidden {
		return
	}
	if hidden {
		s.hidden[id] = true
	} else {
		delete(s.hidden, id)
	}
	s.frame = nil
}

// Extent reports the native pixel size of the loaded bitmap and the on-canvas
// size of obj. It satisfies dpi.Measurer.
func (s *Surface) Extent(obj design.CanvasObject) (dpi.Extent, bool) {
	ext, ok := dpi.PropsMeasurer.Extent(obj)
	s.mu.Lock()
	img := s.bitmaps[obj.ID]
	s.mu.Unlock()
	if img == nil {
		return ext, ok
	}
	b := img.Bounds()
	ext.NativeW, ext.NativeH = float64(b.Dx()), float64(b.Dy())
	if ext.ScaledW <= 0 || ext.ScaledH <= 0 {
		ext.ScaledW = ext.NativeW * obj.Props.Float(design.PropScaleX, 1)
		ext.ScaledH = ext.NativeH * obj.Props.Float(design.PropScaleY, 1)
	}
	return ext, ext.NativeW > 0 && ext.NativeH > 0 && ext.ScaledW > 0 && ext.ScaledH > 0
}

// Dispose releases the surface. Calling it again is a no-op.
func (s *Surface) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return
	}
	s.disposed = true
	s.objects = nil
	s.bitmaps = nil
	s.hidden = nil
	s.frame = nil
}

// Disposed reports whether Dispose has run.
func (s *Surface) Disposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}
