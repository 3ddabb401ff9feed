/*
 * Copyright (c) 2025 by TRYAM193 and the Design Studio contributors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package reproducer rebuilds the pixels of one design surface without an
// editor: it fetches the persisted document, picks the render-faithful object
// list, renders it off-screen at print resolution and signals readiness.
package reproducer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/TRYAM193/design-studio-sub000/internal/catalog"
	"github.com/TRYAM193/design-studio-sub000/internal/design"
	applog "github.com/TRYAM193/design-studio-sub000/internal/log"
	"github.com/TRYAM193/design-studio-sub000/internal/render"
	"github.com/TRYAM193/design-studio-sub000/internal/store"
)

// State is a step of a reproduction.
type State string

const (
	Idle         State = "IDLE"
	Loading      State = "LOADING"
	Sanitizing   State = "SANITIZING"
	Dimensioning State = "DIMENSIONING"
	Rendering    State = "RENDERING"
	Ready        State = "READY"
	Aborted      State = "ABORTED"
)

// Source tells which encoding a reproduction was built from.
type Source string

const (
	SourceRender Source = "render"
	SourceEditor Source = "editor"
	SourceEmpty  Source = "empty"
)

var (
	// ErrNoDocument is returned when the referenced document does not exist.
	ErrNoDocument = errors.New("reproducer: document not found")
	// ErrEmptyOutput is returned by Result.Image for surfaces without content.
	ErrEmptyOutput = errors.New("reproducer: surface has no content")
)

// DefaultTargetWidth is the output width when none is configured.
const DefaultTargetWidth = 2400

// Fetcher loads persisted documents; document.Serializer implements it.
type Fetcher interface {
	Load(ctx context.Context, collection, id string) (*design.DesignDocument, error)
}

// Request addresses one surface of one document.
type Request struct {
	Collection string
	ID         string
	Surface    string
	// MarkerKey names the ready marker; empty derives it from the request.
	MarkerKey string
}

// Key returns the marker key of the request.
func (r Request) Key() string {
	if r.MarkerKey != "" {
		return r.MarkerKey
	}
	return fmt.Sprintf("%s-%s", r.ID, r.surface())
}

func (r Request) surface() string {
	if r.Surface == "" {
		return design.DefaultSurface
	}
	return r.Surface
}

// Options configures a Reproducer.
type Options struct {
	TargetWidth      int
	DefaultPrintArea design.Size
	Catalog          *catalog.Catalog
	Fonts            *render.FontLibrary
	Images           *render.ImageLoader
	Background       string
	Marker           Marker
	// OnState observes every transition.
	OnState func(State)
	// NewSurface constructs render surfaces; nil uses render.NewSurface.
	NewSurface func(width, height int, opts render.Options) (*render.Surface, error)
}

// Reproducer runs reproductions. It is safe for concurrent use; every Run owns its own surface.
type Reproducer struct {
	fetch Fetcher
	opt   Options
}

// New returns a Reproducer reading documents through fetch.
func New(fetch Fetcher, opt Options) *Reproducer {
	if opt.TargetWidth <= 0 {
		opt.TargetWidth = DefaultTargetWidth
	}
	if !opt.DefaultPrintArea.Valid() {
		opt.DefaultPrintArea = catalog.DefaultPrintArea
	}
	if opt.Fonts == nil {
		opt.Fonts = render.NewFontLibrary()
	}
	if opt.NewSurface == nil {
		opt.NewSurface = render.NewSurface
	}
	return &Reproducer{fetch: fetch, opt: opt}
}

// Result is the outcome of a reproduction. Close releases its surface.
type Result struct {
	State        State
	Source       Source
	Width        int
	Height       int
	Scale        float64
	PrintArea    design.Size
	Objects      design.ObjectList
	MissingFonts []string

	surface   *render.Surface
	closeOnce sync.Once
}

// Empty reports whether the surface had nothing to render.
func (r *Result) Empty() bool { return r.surface == nil }

// Surface returns the rendered surface, nil for empty or aborted results.
func (r *Result) Surface() *render.Surface { return r.surface }

// Image returns the rendered frame.
func (r *Result) Image() (image.Image, error) {
	if r.surface == nil {
		return nil, ErrEmptyOutput
	}
	return r.surface.Image()
}

// Close disposes the surface exactly once.
func (r *Result) Close() {
	r.closeOnce.Do(func() {
		if r.surface != nil {
			r.surface.Dispose()
		}
	})
}

// run tracks one reproduction.
type run struct {
	ctx   context.Context
	res   *Result
	onSet func(State)
	log   *slog.Logger
}

func (r *run) enter(s State) bool {
	if r.ctx.Err() != nil {
		r.abort()
		return false
	}
	r.res.State = s
	if r.onSet != nil {
		r.onSet(s)
	}
	return true
}

func (r *run) alive() bool {
	if r.ctx.Err() != nil {
		r.abort()
		return false
	}
	return true
}

func (r *run) abort() {
	if r.res.State == Aborted || r.res.State == Ready {
		return
	}
	r.res.Close()
	r.res.surface = nil
	r.res.State = Aborted
	if r.onSet != nil {
		r.onSet(Aborted)
	}
	r.log.InfoContext(r.ctx, "reproduction aborted", slog.Any("cause", context.Cause(r.ctx)))
}

// Run reproduces req. Cancelling ctx at any point before READY yields an
// ABORTED result with a nil error and no live surface. Fetch and render
// failures end in ABORTED with the error. A READY result must be closed by
// the caller.
func (p *Reproducer) Run(ctx context.Context, req Request) (*Result, error) {
	surfaceName := req.surface()
	l := applog.WithOperation(applog.WithComponent("reproducer"), "run").With(
		slog.String("collection", req.Collection), slog.String("id", req.ID), slog.String("surface", surfaceName))
	r := &run{ctx: ctx, res: &Result{State: Idle}, onSet: p.opt.OnState, log: l}
	start := time.Now()

	fail := func(err error) (*Result, error) {
		if ctx.Err() != nil {
			r.abort()
			return r.res, nil
		}
		r.res.Close()
		r.res.surface = nil
		r.res.State = Aborted
		if r.onSet != nil {
			r.onSet(Aborted)
		}
		l.WarnContext(ctx, "reproduction failed", slog.Any("err", err))
		return r.res, err
	}

	if !r.enter(Loading) {
		return r.res, nil
	}
	doc, err := p.fetch.Load(ctx, req.Collection, req.ID)
	if errors.Is(err, store.ErrNotFound) {
		return fail(ErrNoDocument)
	}
	if err != nil {
		return fail(fmt.Errorf("reproducer: fetch: %w", err))
	}

	if !r.enter(Sanitizing) {
		return r.res, nil
	}
	printArea := p.printArea(doc, surfaceName)
	list, source := selectObjects(doc, surfaceName, printArea)
	r.res.Source = source
	if source == SourceEmpty {
		if !r.alive() {
			return r.res, nil
		}
		r.res.PrintArea = printArea
		r.res.State = Ready
		if r.onSet != nil {
			r.onSet(Ready)
		}
		l.InfoContext(ctx, "nothing to render for surface")
		return r.res, p.markReady(ctx, req, doc, r.res)
	}
	list = Sanitize(list)
	r.res.Objects = list

	if !r.enter(Dimensioning) {
		return r.res, nil
	}
	w, h, scale := Dimensions(p.opt.TargetWidth, printArea)
	r.res.Width, r.res.Height, r.res.Scale, r.res.PrintArea = w, h, scale, printArea

	if !r.enter(Rendering) {
		return r.res, nil
	}
	surf, err := p.opt.NewSurface(w, h, render.Options{Fonts: p.opt.Fonts, Images: p.opt.Images, Background: p.opt.Background})
	if err != nil {
		return fail(fmt.Errorf("reproducer: surface: %w", err))
	}
	r.res.surface = surf
	if !r.alive() {
		return r.res, nil
	}
	if err := surf.LoadObjects(ctx, list, scale); err != nil {
		return fail(err)
	}
	if !r.alive() {
		return r.res, nil
	}
	missing, err := p.opt.Fonts.Ensure(ctx, list)
	if err != nil {
		return fail(err)
	}
	r.res.MissingFonts = missing
	if !r.alive() {
		return r.res, nil
	}
	if err := surf.Render(); err != nil {
		return fail(err)
	}
	if !r.alive() {
		return r.res, nil
	}
	r.res.State = Ready
	if r.onSet != nil {
		r.onSet(Ready)
	}
	l.InfoContext(ctx, "surface reproduced",
		slog.String("source", string(source)),
		slog.Int("width", w), slog.Int("height", h),
		slog.Int("objects", len(list)),
		slog.Duration("took", time.Since(start)))
	if err := p.markReady(ctx, req, doc, r.res); err != nil {
		return r.res, err
	}
	return r.res, nil
}

func (p *Reproducer) markReady(ctx context.Context, req Request, doc *design.DesignDocument, res *Result) error {
	if p.opt.Marker == nil {
		return nil
	}
	info := ReadyInfo{
		Key:      req.Key(),
		DesignID: doc.ID,
		Surface:  req.surface(),
		Source:   res.Source,
		Width:    res.Width,
		Height:   res.Height,
		Objects:  len(res.Objects),
		At:       time.Now().UTC(),
	}
	if err := p.opt.Marker.MarkReady(ctx, info); err != nil {
		return fmt.Errorf("reproducer: mark ready: %w", err)
	}
	return nil
}

// printArea resolves the canonical print area: the document's own binding,
// then the catalog, then the configured default.
func (p *Reproducer) printArea(doc *design.DesignDocument, surface string) design.Size {
	if pc := doc.ProductConfig; pc != nil {
		if sz, ok := pc.PrintAreas[surface]; ok && sz.Valid() {
			return sz
		}
		if p.opt.Catalog != nil {
			return p.opt.Catalog.PrintArea(pc.ProductID, surface, p.opt.DefaultPrintArea)
		}
	}
	return p.opt.DefaultPrintArea
}

// Dimensions derives the output size from a fixed target width, preserving
// the print area's aspect ratio.
func Dimensions(targetWidth int, printArea design.Size) (w, h int, scale float64) {
	scale = float64(targetWidth) / printArea.Width
	return targetWidth, max(1, int(math.Round(printArea.Height*scale))), scale
}

// selectObjects prefers the render-faithful list of surface and falls back to
// the editor-reload list normalized into print-area space.
func selectObjects(doc *design.DesignDocument, surface string, printArea design.Size) (design.ObjectList, Source) {
	if l, ok := doc.CanvasViewStates[surface]; ok && l != nil {
		return l.Clone(), SourceRender
	}
	if l, ok := doc.CanvasData.Objects(surface); ok && l != nil {
		canvas := printArea
		if doc.EditorCanvas != nil && doc.EditorCanvas.Valid() {
			canvas = *doc.EditorCanvas
		}
		return render.Capture(l, canvas, printArea), SourceEditor
	}
	return nil, SourceEmpty
}

// Sanitize returns a copy of list in which every text-bearing object carries
// a string text prop; anything else is replaced by "".
func Sanitize(list design.ObjectList) design.ObjectList {
	out := list.Clone()
	for i := range out {
		if out[i].Props == nil {
			out[i].Props = design.Props{}
		}
		if !out[i].Type.IsText() {
			continue
		}
		if _, ok := out[i].Props[design.PropText].(string); !ok {
			out[i].Props[design.PropText] = ""
		}
	}
	return out
}
