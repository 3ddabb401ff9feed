/*
 * Copyright (c) 2025 by TRYAM193 and the Design Studio contributors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package document translates live editing state into persisted design
// documents and back, and ingests saved designs and templates into a session.
package document

import (
	"errors"
	"time"

	"github.com/TRYAM193/design-studio-sub000/internal/design"
)

// ErrConfirmationRequired is returned by IngestForReplace without explicit confirmation.
var ErrConfirmationRequired = errors.New("document: replacing the design requires confirmation")

// Offsets applied to ingested objects so they are distinguishable from what is already on the canvas.
const (
	DesignIngestOffset   = design.DuplicateOffset
	TemplateIngestOffset = 30.0
)

// Snapshot is the live state a document is built from.
type Snapshot struct {
	Name    string
	UserID  string
	Surface string
	// Objects is the live list of Surface.
	Objects design.ObjectList
	// ViewStates are the editor-reload lists of all surfaces.
	ViewStates map[string]design.ObjectList
	// RenderStates are the render-faithful lists of all surfaces.
	RenderStates map[string]design.ObjectList
	Product      *design.ProductConfig
	EditorCanvas *design.Size
	ImageData    string
}

// BuildDocument converts a snapshot into a document. Editor-only objects are
// stripped, the live list is merged into the view states under the active
// surface, and CreatedAt is only set for new documents.
func BuildDocument(s Snapshot, isNew bool, now time.Time) design.DesignDocument {
	surface := s.Surface
	if surface == "" {
		surface = design.DefaultSurface
	}
	now = now.UTC()
	doc := design.DesignDocument{
		Name:      s.Name,
		UserID:    s.UserID,
		UpdatedAt: now,
		ImageData: s.ImageData,
	}
	if isNew {
		created := now
		doc.CreatedAt = &created
	}
	if s.EditorCanvas != nil {
		ec := *s.EditorCanvas
		doc.EditorCanvas = &ec
	}
	live := s.Objects.WithoutScaffolding()

	if s.Product != nil {
		doc.Type = design.DocProduct
		views := make(map[string]design.ObjectList, len(s.ViewStates)+1)
		for k, v := range s.ViewStates {
			views[k] = v.WithoutScaffolding()
		}
		views[surface] = live
		doc.CanvasData = design.SurfaceCanvas(views)
		pc := *s.Product
		pc.ActiveSurface = surface
		if s.Product.PrintAreas != nil {
			pc.PrintAreas = make(map[string]design.Size, len(s.Product.PrintAreas))
			for k, v := range s.Product.PrintAreas {
				pc.PrintAreas[k] = v
			}
		}
		doc.ProductConfig = &pc
	} else {
		doc.Type = design.DocBlank
		doc.CanvasData = design.FlatCanvas(live)
	}

	if len(s.RenderStates) > 0 {
		doc.CanvasViewStates = make(map[string]design.ObjectList, len(s.RenderStates))
		for k, v := range s.RenderStates {
			doc.CanvasViewStates[k] = v.WithoutScaffolding()
		}
	}
	return doc
}

// Extract returns a deep copy of the object list a foreign document contributes:
// its flat list, or its preferred surface, falling back to "front".
func Extract(foreign *design.DesignDocument) design.ObjectList {
	if foreign == nil {
		return nil
	}
	return foreign.CanvasData.Primary(foreign.PreferredSurface()).WithoutScaffolding()
}

// IngestForMerge appends the foreign objects to live with fresh ids and
// customIds, shifted by offset. History is left to the caller.
func IngestForMerge(live design.ObjectList, foreign *design.DesignDocument, offset float64, newID func() string) design.ObjectList {
	if newID == nil {
		newID = design.NewID
	}
	out := live.Clone()
	if out == nil {
		out = design.ObjectList{}
	}
	for _, o := range Extract(foreign) {
		out = append(out, o.Offset(offset, offset).Reidentify(newID))
	}
	return out
}

// IngestForReplace returns the foreign objects as the new live list. The
// caller must clear its document identity so the next save creates a new
// document. Without confirmation nothing happens.
func IngestForReplace(foreign *design.DesignDocument, confirmed bool, newID func() string) (design.ObjectList, error) {
	if !confirmed {
		return nil, ErrConfirmationRequired
	}
	if newID == nil {
		newID = design.NewID
	}
	src := Extract(foreign)
	out := make(design.ObjectList, 0, len(src))
	for _, o := range src {
		out = append(out, o.Reidentify(newID))
	}
	return out, nil
}
