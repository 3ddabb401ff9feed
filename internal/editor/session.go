/*
 * Copyright (c) 2025 by TRYAM193 and the Design Studio contributors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package editor is the interactive editing session: the single owner of the
// live object list, its per-surface history, the DPI registry, the selection
// and the document identity.
package editor

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/TRYAM193/design-studio-sub000/internal/catalog"
	"github.com/TRYAM193/design-studio-sub000/internal/design"
	"github.com/TRYAM193/design-studio-sub000/internal/document"
	"github.com/TRYAM193/design-studio-sub000/internal/dpi"
	"github.com/TRYAM193/design-studio-sub000/internal/history"
	applog "github.com/TRYAM193/design-studio-sub000/internal/log"
	"github.com/TRYAM193/design-studio-sub000/internal/objects"
	"github.com/TRYAM193/design-studio-sub000/internal/render"
	"github.com/TRYAM193/design-studio-sub000/internal/views"
)

// Tool is the active editing tool.
type Tool string

const (
	ToolSelect Tool = "select"
	ToolText   Tool = "text"
	ToolImage  Tool = "image"
	ToolShape  Tool = "shape"
	ToolDraw   Tool = "draw"
)

// ErrSaveInProgress is returned when a save is requested while another is running.
var ErrSaveInProgress = errors.New("editor: save already in progress")

// Config sets up a Session.
type Config struct {
	Name    string
	UserID  string
	Surface string
	// Canvas is the size of the on-screen editing canvas.
	Canvas  design.Size
	Product *design.ProductConfig
	Catalog *catalog.Catalog
	// DefaultPrintArea is used when neither the product nor the catalog names one.
	DefaultPrintArea design.Size
	HistoryDepth     int
	NewID            func() string
	Measurer         dpi.Measurer
}

// Session is one interactive editing session. Its methods may be called from
// any goroutine but a session is meant to be driven by one user at a time.
type Session struct {
	ser  *document.Serializer
	proc *objects.Processor
	hist *history.Manager
	dpi  *dpi.Registry
	cfg  Config

	mu        sync.Mutex
	views     *views.Store
	name      string
	product   *design.ProductConfig
	docID     string
	selection []string
	tool      Tool
	saving    bool
}

// New returns an empty session on cfg.Surface.
func New(ser *document.Serializer, cfg Config) *Session {
	if cfg.NewID == nil {
		cfg.NewID = design.NewID
	}
	if !cfg.DefaultPrintArea.Valid() {
		cfg.DefaultPrintArea = catalog.DefaultPrintArea
	}
	if cfg.Surface == "" {
		cfg.Surface = design.DefaultSurface
	}
	s := &Session{
		ser:     ser,
		proc:    &objects.Processor{NewID: cfg.NewID},
		hist:    history.NewManager(history.Config{MaxDepth: cfg.HistoryDepth, NewID: cfg.NewID}, nil),
		dpi:     dpi.NewRegistry(cfg.Measurer),
		cfg:     cfg,
		name:    cfg.Name,
		product: cfg.Product,
		tool:    ToolSelect,
	}
	s.views = views.NewStore(cfg.Surface, s.hist, s.capture)
	s.resetDimensions(cfg.Surface)
	return s
}

func (s *Session) logger(op string) *slog.Logger {
	return applog.WithOperation(applog.WithComponent("editor"), op)
}

// capture is the render-faithful snapshot of a surface: the live list
// normalized into print-area space.
func (s *Session) capture(surface string, live design.ObjectList) design.ObjectList {
	canvas, pa := s.dimensions(surface)
	return render.Capture(live, canvas, pa)
}

// PrintArea resolves the print area of surface.
func (s *Session) PrintArea(surface string) design.Size {
	s.mu.Lock()
	pc := s.product
	s.mu.Unlock()
	if pc == nil {
		return s.cfg.DefaultPrintArea
	}
	if sz, ok := pc.PrintAreas[surface]; ok && sz.Valid() {
		return sz
	}
	return s.cfg.Catalog.PrintArea(pc.ProductID, surface, s.cfg.DefaultPrintArea)
}

// dimensions returns the editing canvas and print area of surface.
func (s *Session) dimensions(surface string) (canvas, printArea design.Size) {
	printArea = s.PrintArea(surface)
	canvas = s.cfg.Canvas
	if !canvas.Valid() {
		canvas = printArea
	}
	return canvas, printArea
}

func (s *Session) resetDimensions(surface string) {
	s.dpi.SetDimensions(s.dimensions(surface))
}

// store returns the view store. The session lock is never held while calling
// into the store, whose capture hook takes the session lock.
func (s *Session) store() *views.Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.views
}

// Surface returns the active surface.
func (s *Session) Surface() string { return s.store().Current() }

// Objects returns a copy of the live object list.
func (s *Session) Objects() design.ObjectList { return s.hist.Present() }

// DocumentID is the id the next save overwrites; empty means the next save creates.
func (s *Session) DocumentID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.docID
}

// Selection returns the selected ids.
func (s *Session) Selection() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.selection...)
}

// Select replaces the selection. Ids that are not on the live surface are ignored.
func (s *Session) Select(ids ...string) {
	live := s.hist.Present()
	var sel []string
	for _, id := range ids {
		if live.IndexOf(id) >= 0 {
			sel = append(sel, id)
		}
	}
	s.mu.Lock()
	s.selection = sel
	s.mu.Unlock()
}

// Tool returns the active tool.
func (s *Session) Tool() Tool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tool
}

// SetTool switches the active tool.
func (s *Session) SetTool(t Tool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tool = t
}

func (s *Session) clearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = nil
	s.tool = ToolSelect
}

// pruneSelection drops selected ids that no longer exist in live.
func (s *Session) pruneSelection(live design.ObjectList) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.selection[:0]
	for _, id := range s.selection {
		if live.IndexOf(id) >= 0 {
			kept = append(kept, id)
		}
	}
	s.selection = kept
}

// Saving reports whether a save is running.
func (s *Session) Saving() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saving
}

// beginSaving raises the saving indicator; the returned func lowers it.
func (s *Session) beginSaving() (func(), bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saving {
		return nil, false
	}
	s.saving = true
	return func() {
		s.mu.Lock()
		s.saving = false
		s.mu.Unlock()
	}, true
}
