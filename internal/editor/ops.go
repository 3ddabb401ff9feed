/*
 * Copyright (c) 2025 by TRYAM193 and the Design Studio contributors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package editor

import (
	"context"
	"log/slog"
	"sort"

	"github.com/TRYAM193/design-studio-sub000/internal/design"
	"github.com/TRYAM193/design-studio-sub000/internal/document"
	"github.com/TRYAM193/design-studio-sub000/internal/dpi"
	"github.com/TRYAM193/design-studio-sub000/internal/objects"
	"github.com/TRYAM193/design-studio-sub000/internal/views"
)

// commit records next as a new history step and refreshes every DPI record.
func (s *Session) commit(next design.ObjectList) {
	s.hist.Commit(next)
	s.dpi.Refresh(next)
	s.pruneSelection(next)
}

// Add places obj on top of the live surface and selects it.
func (s *Session) Add(obj design.CanvasObject) design.CanvasObject {
	out, added := s.proc.Add(s.hist.Present(), obj)
	s.hist.Commit(out)
	s.dpi.Update(added)
	s.mu.Lock()
	s.selection = []string{added.ID}
	s.mu.Unlock()
	return added
}

// Update merges patch into the props of id, e.g. once a move or scale is committed.
func (s *Session) Update(id string, patch design.Props) bool {
	out, ok := objects.Update(s.hist.Present(), id, patch)
	if !ok {
		return false
	}
	s.hist.Commit(out)
	if obj, found := out.Find(id); found {
		s.dpi.Update(obj)
	}
	return true
}

// Remove deletes id from the live surface.
func (s *Session) Remove(id string) bool {
	live := s.hist.Present()
	obj, found := live.Find(id)
	if !found {
		return false
	}
	out, _ := objects.Remove(live, id)
	s.hist.Commit(out)
	s.dpi.Remove(obj)
	s.pruneSelection(out)
	return true
}

// Apply runs a bulk action on ids. A nil ids applies to the selection.
func (s *Session) Apply(action objects.Action, ids []string) objects.Result {
	if ids == nil {
		ids = s.Selection()
	}
	res := s.proc.Apply(s.hist.Present(), action, ids)
	if res.Changed {
		s.commit(res.Objects)
	}
	if res.ClearSelection {
		s.clearSelection()
	}
	s.logger("apply").Debug("bulk action", slog.String("action", string(action)),
		slog.Int("ids", len(ids)), slog.Bool("changed", res.Changed))
	return res
}

// MoveToIndex places id at index in the stacking order.
func (s *Session) MoveToIndex(id string, index int) bool {
	out, ok := objects.MoveToIndex(s.hist.Present(), id, index)
	if ok {
		s.hist.Commit(out)
	}
	return ok
}

// MoveRelative shifts id by delta positions in the stacking order.
func (s *Session) MoveRelative(id string, delta int) bool {
	out, ok := objects.MoveRelative(s.hist.Present(), id, delta)
	if ok {
		s.hist.Commit(out)
	}
	return ok
}

// Undo steps back in the history of the active surface.
func (s *Session) Undo() bool {
	list, ok := s.hist.Undo()
	if ok {
		s.dpi.Refresh(list)
		s.pruneSelection(list)
	}
	return ok
}

// Redo re-applies the next step of the active surface.
func (s *Session) Redo() bool {
	list, ok := s.hist.Redo()
	if ok {
		s.dpi.Refresh(list)
		s.pruneSelection(list)
	}
	return ok
}

// Copy puts the selected objects on the clipboard and returns how many were copied.
func (s *Session) Copy() int { return s.hist.Copy(s.Selection()) }

// Paste appends offset copies of the clipboard as one history step.
func (s *Session) Paste() bool {
	list, ok := s.hist.Paste()
	if ok {
		s.dpi.Refresh(list)
	}
	return ok
}

// SwitchSurface captures the active surface and makes next live with a fresh history.
func (s *Session) SwitchSurface(next string) bool {
	if !s.store().SwitchView(next) {
		return false
	}
	s.clearSelection()
	s.resetDimensions(next)
	s.dpi.Refresh(s.hist.Present())
	s.logger("switch").Info("surface switched", slog.String("surface", next))
	return true
}

// UseMeasurer swaps the extent source of DPI analysis, e.g. to a render
// surface that knows native image sizes, and recomputes all records.
func (s *Session) UseMeasurer(m dpi.Measurer) {
	s.dpi.SetMeasurer(m)
	s.dpi.Refresh(s.hist.Present())
}

// DpiRecords returns the current DPI record of every image on the live surface.
func (s *Session) DpiRecords() []design.DpiRecord { return s.dpi.Records() }

// Checkout blocks irreversible actions (cart, checkout) while any image on
// any surface prints poorly. The live surface uses the registry; stored
// surfaces are analyzed against their own print areas.
func (s *Session) Checkout() error {
	st := s.store()
	live := st.Current()
	records := s.dpi.Records()
	stored := st.EditorStates()
	names := make([]string, 0, len(stored))
	for name := range stored {
		if name != live {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		canvas, pa := s.dimensions(name)
		records = append(records, s.dpi.Measure(stored[name], canvas, pa)...)
	}
	if err := dpi.Gate(records); err != nil {
		s.logger("checkout").Warn("checkout blocked", slog.Any("err", err))
		return err
	}
	return nil
}

// Load opens a persisted document: its surfaces become the stored views and
// its active surface goes live with an empty history. The id becomes the
// session identity only for the user's own designs; anything else (templates,
// other users' designs) is saved as a new design.
func (s *Session) Load(ctx context.Context, collection, id string) error {
	doc, err := s.ser.Load(ctx, collection, id)
	if err != nil {
		return err
	}
	surface := doc.PreferredSurface()
	editor := doc.CanvasData.Surfaces
	if !doc.CanvasData.IsSurfaceKeyed() {
		editor = map[string]design.ObjectList{surface: doc.CanvasData.Flat}
	}
	st := views.NewStore(surface, s.hist, s.capture)
	s.mu.Lock()
	s.views = st
	s.name = doc.Name
	s.product = doc.ProductConfig
	s.docID = ""
	if collection == document.DesignsCollection(s.cfg.UserID) {
		s.docID = doc.ID
	}
	s.selection = nil
	s.tool = ToolSelect
	s.mu.Unlock()
	st.Load(editor, doc.CanvasViewStates)
	s.resetDimensions(surface)
	s.dpi.Refresh(s.hist.Present())
	s.logger("load").Info("document loaded", slog.String("id", doc.ID), slog.String("surface", surface))
	return nil
}

// MergeFrom appends the objects of a saved design or template to the live
// surface as one history step. A missing source is a no-op.
func (s *Session) MergeFrom(ctx context.Context, collection, id string) (bool, error) {
	out, ok, err := s.ser.MergeFrom(ctx, s.hist.Present(), collection, id)
	if err != nil || !ok {
		return false, err
	}
	s.commit(out)
	return true, nil
}

// ReplaceFrom swaps the live surface for the objects of a saved design or
// template. The session forgets its document identity, so the next save creates.
func (s *Session) ReplaceFrom(ctx context.Context, collection, id string, confirmed bool) (bool, error) {
	out, ok, err := s.ser.ReplaceFrom(ctx, collection, id, confirmed)
	if err != nil || !ok {
		return false, err
	}
	s.commit(out)
	s.mu.Lock()
	s.docID = ""
	s.mu.Unlock()
	s.clearSelection()
	return true, nil
}

// Snapshot captures the active surface and returns the state a document is built from.
func (s *Session) Snapshot() document.Snapshot {
	st := s.store()
	st.Capture()
	s.mu.Lock()
	name, product := s.name, s.product
	s.mu.Unlock()
	snap := document.Snapshot{
		Name:         name,
		UserID:       s.cfg.UserID,
		Surface:      st.Current(),
		Objects:      s.hist.Present(),
		ViewStates:   st.EditorStates(),
		RenderStates: st.RenderStates(),
	}
	if product != nil {
		pc := *product
		snap.Product = &pc
	}
	if s.cfg.Canvas.Valid() {
		c := s.cfg.Canvas
		snap.EditorCanvas = &c
	}
	return snap
}

// Save creates the document on first save and overwrites it afterwards. When
// canvas is not nil a thumbnail is uploaded and recorded; a thumbnail failure
// is logged and does not fail the save.
func (s *Session) Save(ctx context.Context, canvas document.Canvas) document.SaveResult {
	done, ok := s.beginSaving()
	if !ok {
		return document.SaveResult{Err: ErrSaveInProgress}
	}
	defer done()
	l := s.logger("save")

	snap := s.Snapshot()
	var res document.SaveResult
	if id := s.DocumentID(); id == "" {
		res = s.ser.Create(ctx, snap)
	} else {
		res = s.ser.Overwrite(ctx, id, snap)
	}
	if !res.OK {
		l.Error("save failed", slog.Any("err", res.Err))
		return res
	}
	s.mu.Lock()
	s.docID = res.ID
	s.mu.Unlock()
	if canvas != nil {
		if _, err := s.ser.AttachThumbnail(ctx, canvas, snap.UserID, res.ID); err != nil {
			l.Warn("thumbnail not stored", slog.String("id", res.ID), slog.Any("err", err))
		}
	}
	l.Info("design saved", slog.String("id", res.ID))
	return res
}

// SaveTemplate stores the live state as a template in category.
func (s *Session) SaveTemplate(ctx context.Context, category string, canvas document.Canvas) document.SaveResult {
	done, ok := s.beginSaving()
	if !ok {
		return document.SaveResult{Err: ErrSaveInProgress}
	}
	defer done()
	return s.ser.SaveTemplate(ctx, s.Snapshot(), category, canvas)
}
