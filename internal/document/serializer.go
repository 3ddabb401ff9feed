/*
 * Copyright (c) 2025 by TRYAM193 and the Design Studio contributors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package document

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/TRYAM193/design-studio-sub000/internal/design"
	applog "github.com/TRYAM193/design-studio-sub000/internal/log"
	"github.com/TRYAM193/design-studio-sub000/internal/render"
	"github.com/TRYAM193/design-studio-sub000/internal/store"
)

// TemplatesCollection holds shared BLANK templates.
const TemplatesCollection = "templates"

// DesignsCollection is where a user's designs live.
func DesignsCollection(userID string) string {
	if userID == "" {
		return "designs"
	}
	return path.Join("users", userID, "designs")
}

// SaveResult reports the outcome of a save. Failures are carried in Err, never panicked.
type SaveResult struct {
	OK  bool
	ID  string
	Err error
}

// Canvas is the part of the rendering capability a thumbnail needs.
type Canvas interface {
	Hide(id string)
	Show(id string)
	ExportBitmap(opts render.ExportOptions) ([]byte, error)
}

// ThumbnailOptions is used for every thumbnail export.
var ThumbnailOptions = render.ExportOptions{Format: "png", Quality: 1, Multiplier: 0.5}

// Serializer persists and loads design documents.
type Serializer struct {
	Store store.DocumentStore
	Blobs store.BinaryStorage
	Now   func() time.Time
	NewID func() string
}

// New returns a serializer over ds. blobs may be nil when thumbnails are not uploaded.
func New(ds store.DocumentStore, blobs store.BinaryStorage) *Serializer {
	return &Serializer{Store: ds, Blobs: blobs, Now: time.Now, NewID: design.NewID}
}

func (s *Serializer) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *Serializer) newID() string {
	if s.NewID == nil {
		return design.NewID()
	}
	return s.NewID()
}

// Create stores snap as a new document under a fresh id.
func (s *Serializer) Create(ctx context.Context, snap Snapshot) SaveResult {
	id := s.newID()
	doc := BuildDocument(snap, true, s.now())
	return s.save(ctx, DesignsCollection(snap.UserID), id, doc, false)
}

// Overwrite merges snap into the existing document id; fields the snapshot
// does not produce, such as createdAt, are kept.
func (s *Serializer) Overwrite(ctx context.Context, existingID string, snap Snapshot) SaveResult {
	if existingID == "" {
		return SaveResult{Err: errors.New("document: overwrite without id")}
	}
	coll := DesignsCollection(snap.UserID)
	_, err := s.Store.Get(ctx, coll, existingID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		// Nothing to merge into: the record is created with its createdAt.
		return s.save(ctx, coll, existingID, BuildDocument(snap, true, s.now()), false)
	case err != nil:
		return SaveResult{ID: existingID, Err: fmt.Errorf("document: overwrite %s: %w", existingID, err)}
	}
	return s.save(ctx, coll, existingID, BuildDocument(snap, false, s.now()), true)
}

func (s *Serializer) save(ctx context.Context, collection, id string, doc design.DesignDocument, merge bool) (res SaveResult) {
	l := applog.WithOperation(applog.WithComponent("document"), "save").With(
		slog.String("collection", collection), slog.String("id", id), slog.Bool("merge", merge))
	defer func() {
		if r := recover(); r != nil {
			l.Error("save panicked", slog.Any("panic", r))
			res = SaveResult{ID: id, Err: fmt.Errorf("document: save panicked: %v", r)}
		}
	}()
	doc.ID = id
	raw, err := json.Marshal(doc)
	if err != nil {
		return SaveResult{ID: id, Err: fmt.Errorf("document: encode: %w", err)}
	}
	if err := s.Store.Put(ctx, collection, id, raw, store.PutOptions{Merge: merge}); err != nil {
		l.Warn("save failed", slog.Any("err", err))
		return SaveResult{ID: id, Err: fmt.Errorf("document: save %s: %w", id, err)}
	}
	l.Info("design saved", slog.String("type", string(doc.Type)))
	return SaveResult{OK: true, ID: id}
}

// Load fetches one document. A missing document yields store.ErrNotFound.
func (s *Serializer) Load(ctx context.Context, collection, id string) (*design.DesignDocument, error) {
	raw, err := s.Store.Get(ctx, collection, id)
	if err != nil {
		return nil, err
	}
	return decode(id, raw)
}

func decode(id string, raw json.RawMessage) (*design.DesignDocument, error) {
	var doc design.DesignDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("document: decode %s: %w", id, err)
	}
	if doc.ID == "" {
		doc.ID = id
	}
	return &doc, nil
}

// ingestOffset is larger for templates to signal their different provenance.
func ingestOffset(collection string) float64 {
	if collection == TemplatesCollection {
		return TemplateIngestOffset
	}
	return DesignIngestOffset
}

// MergeFrom fetches a saved design or template and appends its objects to live.
// A missing document is a silent no-op: live is returned unchanged with ok false.
func (s *Serializer) MergeFrom(ctx context.Context, live design.ObjectList, collection, id string) (design.ObjectList, bool, error) {
	doc, err := s.Load(ctx, collection, id)
	if errors.Is(err, store.ErrNotFound) {
		applog.WithOperation(applog.WithComponent("document"), "merge").Debug("source not found", slog.String("id", id))
		return live, false, nil
	}
	if err != nil {
		return live, false, err
	}
	return IngestForMerge(live, doc, ingestOffset(collection), s.newID), true, nil
}

// ReplaceFrom fetches a saved design or template as the new live list.
// A missing document is a silent no-op.
func (s *Serializer) ReplaceFrom(ctx context.Context, collection, id string, confirmed bool) (design.ObjectList, bool, error) {
	if !confirmed {
		return nil, false, ErrConfirmationRequired
	}
	doc, err := s.Load(ctx, collection, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	out, err := IngestForReplace(doc, true, s.newID)
	return out, err == nil, err
}

// ExportHidingBorder exports canvas with the print-area border hidden; the
// border is shown again whether or not the export succeeds.
func ExportHidingBorder(canvas Canvas, opts render.ExportOptions) ([]byte, error) {
	canvas.Hide(design.PrintAreaBorderID)
	defer canvas.Show(design.PrintAreaBorderID)
	return canvas.ExportBitmap(opts)
}

// ImageDataURL captures canvas as a PNG data URL for the reference image field.
func ImageDataURL(canvas Canvas) (string, error) {
	b, err := ExportHidingBorder(canvas, render.ExportOptions{Format: "png", Multiplier: 1})
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(b), nil
}

// Thumbnail exports canvas and uploads it to blobPath, returning its URL.
func (s *Serializer) Thumbnail(ctx context.Context, canvas Canvas, blobPath string) (string, error) {
	if s.Blobs == nil {
		return "", errors.New("document: no binary storage configured")
	}
	b, err := ExportHidingBorder(canvas, ThumbnailOptions)
	if err != nil {
		return "", fmt.Errorf("document: thumbnail export: %w", err)
	}
	url, err := s.Blobs.Upload(ctx, blobPath, b)
	if err != nil {
		return "", fmt.Errorf("document: thumbnail upload: %w", err)
	}
	return url, nil
}

// AttachThumbnail captures and uploads a thumbnail for a saved design and
// records its URL on the document.
func (s *Serializer) AttachThumbnail(ctx context.Context, canvas Canvas, userID, id string) (string, error) {
	url, err := s.Thumbnail(ctx, canvas, path.Join("thumbnails", id+".png"))
	if err != nil {
		return "", err
	}
	patch, _ := json.Marshal(map[string]string{"thumbnailUrl": url})
	if err := s.Store.Put(ctx, DesignsCollection(userID), id, patch, store.PutOptions{Merge: true}); err != nil {
		return "", fmt.Errorf("document: record thumbnail: %w", err)
	}
	return url, nil
}

// SaveTemplate stores snap as a BLANK template with a thumbnail and category.
// canvas may be nil to skip the thumbnail.
func (s *Serializer) SaveTemplate(ctx context.Context, snap Snapshot, category string, canvas Canvas) SaveResult {
	id := s.newID()
	snap.Product = nil
	doc := BuildDocument(snap, true, s.now())
	doc.Category = category
	if canvas != nil {
		url, err := s.Thumbnail(ctx, canvas, path.Join(TemplatesCollection, id+".png"))
		if err != nil {
			return SaveResult{ID: id, Err: err}
		}
		doc.ThumbnailURL = url
	}
	return s.save(ctx, TemplatesCollection, id, doc, false)
}

// ListTemplates returns templates of category, or all templates when category is empty.
func (s *Serializer) ListTemplates(ctx context.Context, category string) ([]design.DesignDocument, error) {
	f := store.Filter{}
	if category != "" {
		f = store.Where("category", category)
	}
	return s.list(ctx, TemplatesCollection, f)
}

// ListDesigns returns every design of a user.
func (s *Serializer) ListDesigns(ctx context.Context, userID string) ([]design.DesignDocument, error) {
	return s.list(ctx, DesignsCollection(userID), store.Filter{})
}

func (s *Serializer) list(ctx context.Context, collection string, f store.Filter) ([]design.DesignDocument, error) {
	entries, err := s.Store.Query(ctx, collection, f)
	if err != nil {
		return nil, err
	}
	out := make([]design.DesignDocument, 0, len(entries))
	for _, e := range entries {
		doc, err := decode(e.ID, e.Data)
		if err != nil {
			applog.WithOperation(applog.WithComponent("document"), "list").Warn("skipping undecodable document",
				slog.String("collection", collection), slog.String("id", e.ID), slog.Any("err", err))
			continue
		}
		out = append(out, *doc)
	}
	return out, nil
}
