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
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/TRYAM193/design-studio-sub000/internal/design"
	"github.com/TRYAM193/design-studio-sub000/internal/render"
	"github.com/TRYAM193/design-studio-sub000/internal/store"
)

var fixedNow = time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

func seqIDs() func() string {
	n := 0
	return func() string { n++; return fmt.Sprintf("id%d", n) }
}

func obj(id string, left, top float64) design.CanvasObject {
	return design.CanvasObject{ID: id, CustomID: "c-" + id, Type: design.TypeRect, Props: design.Props{"left": left, "top": top}}
}

func border() design.CanvasObject {
	return design.CanvasObject{ID: design.PrintAreaBorderID, Type: design.TypeRect, Props: design.Props{"excludeFromExport": true}}
}

func newSerializer(t *testing.T) (*Serializer, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	blobs, err := store.NewDir(t.TempDir(), "https://cdn.test")
	if err != nil {
		t.Fatal(err)
	}
	s := New(mem, blobs)
	s.Now = func() time.Time { return fixedNow }
	s.NewID = seqIDs()
	return s, mem
}

type fakeCanvas struct {
	calls []string
	fail  bool
}

func (c *fakeCanvas) Hide(id string) { c.calls = append(c.calls, "hide:"+id) }
func (c *fakeCanvas) Show(id string) { c.calls = append(c.calls, "show:"+id) }
func (c *fakeCanvas) ExportBitmap(opts render.ExportOptions) ([]byte, error) {
	c.calls = append(c.calls, "export")
	if c.fail {
		return nil, errors.New("gpu lost")
	}
	return []byte("png-bytes"), nil
}

type failingStore struct{ store.DocumentStore }

func (failingStore) Put(context.Context, string, string, json.RawMessage, store.PutOptions) error {
	return errors.New("network down")
}

func TestBuildDocumentProduct(t *testing.T) {
	snap := Snapshot{
		Name:       "Tee",
		Surface:    "back",
		Objects:    design.ObjectList{border(), obj("b1", 1, 1)},
		ViewStates: map[string]design.ObjectList{"front": {obj("f1", 0, 0), border()}, "back": {obj("stale", 0, 0)}},
		RenderStates: map[string]design.ObjectList{
			"front": {obj("f1", 0, 0)},
		},
		Product: &design.ProductConfig{ProductID: "tshirt", ActiveSurface: "front"},
	}
	doc := BuildDocument(snap, true, fixedNow)
	if doc.Type != design.DocProduct || doc.ProductConfig.ActiveSurface != "back" {
		t.Fatalf("product doc = %+v", doc)
	}
	if snap.Product.ActiveSurface != "front" {
		t.Fatalf("BuildDocument mutated the product binding")
	}
	back, _ := doc.CanvasData.Objects("back")
	front, _ := doc.CanvasData.Objects("front")
	if len(back) != 1 || back[0].ID != "b1" || len(front) != 1 || front[0].ID != "f1" {
		t.Fatalf("view states: front=%v back=%v", front, back)
	}
	if doc.CreatedAt == nil || !doc.CreatedAt.Equal(fixedNow) || !doc.UpdatedAt.Equal(fixedNow) {
		t.Fatalf("timestamps: %v %v", doc.CreatedAt, doc.UpdatedAt)
	}
	if len(doc.CanvasViewStates["front"]) != 1 {
		t.Fatalf("render states not carried: %v", doc.CanvasViewStates)
	}
	raw, _ := json.Marshal(doc)
	if err := design.ValidateJSON(raw); err != nil {
		t.Fatalf("built document does not match schema: %v", err)
	}
}

func TestBuildDocumentBlank(t *testing.T) {
	doc := BuildDocument(Snapshot{Objects: design.ObjectList{border(), obj("a", 0, 0)}}, false, fixedNow)
	if doc.Type != design.DocBlank || doc.CanvasData.IsSurfaceKeyed() || len(doc.CanvasData.Flat) != 1 {
		t.Fatalf("blank doc = %+v", doc)
	}
	if doc.CreatedAt != nil {
		t.Fatalf("createdAt must only be stamped for new documents")
	}
	raw, _ := json.Marshal(doc)
	if err := design.ValidateJSON(raw); err != nil {
		t.Fatalf("built document does not match schema: %v", err)
	}
}

func TestIngestForMergeAndReplace(t *testing.T) {
	live := design.ObjectList{obj("x", 0, 0)}
	foreign := &design.DesignDocument{
		Type:          design.DocProduct,
		CanvasData:    design.SurfaceCanvas(map[string]design.ObjectList{"front": {obj("a", 10, 10)}, "back": {obj("b", 0, 0)}}),
		ProductConfig: &design.ProductConfig{ProductID: "tshirt"},
	}
	merged := IngestForMerge(live, foreign, DesignIngestOffset, seqIDs())
	if len(merged) != 2 || merged[0].ID != "x" {
		t.Fatalf("merged = %v", merged)
	}
	n := merged[1]
	if n.ID != "id1" || n.CustomID != "id2" || n.Props.Float("left", 0) != 30 || n.Props.Float("top", 0) != 30 {
		t.Fatalf("ingested object = %+v", n)
	}
	if len(live) != 1 || foreign.CanvasData.Surfaces["front"][0].Props.Float("left", 0) != 10 {
		t.Fatalf("inputs mutated")
	}

	if _, err := IngestForReplace(foreign, false, nil); !errors.Is(err, ErrConfirmationRequired) {
		t.Fatalf("replace without confirmation: %v", err)
	}
	blank := &design.DesignDocument{Type: design.DocBlank, CanvasData: design.FlatCanvas(design.ObjectList{obj("t1", 5, 5), obj("t2", 6, 6)})}
	repl, err := IngestForReplace(blank, true, seqIDs())
	if err != nil || len(repl) != 2 || repl[0].ID == "t1" || repl[0].Props.Float("left", 0) != 5 {
		t.Fatalf("replace = %v, %v", repl, err)
	}
}

func TestCreateOverwriteLoad(t *testing.T) {
	s, _ := newSerializer(t)
	ctx := context.Background()
	snap := Snapshot{Name: "First", UserID: "u1", Objects: design.ObjectList{obj("a", 0, 0)}}
	res := s.Create(ctx, snap)
	if !res.OK || res.ID != "id1" || res.Err != nil {
		t.Fatalf("create = %+v", res)
	}
	s.Now = func() time.Time { return fixedNow.Add(time.Hour) }
	snap.Name = "Renamed"
	if res := s.Overwrite(ctx, "id1", snap); !res.OK {
		t.Fatalf("overwrite = %+v", res)
	}
	doc, err := s.Load(ctx, DesignsCollection("u1"), "id1")
	if err != nil {
		t.Fatal(err)
	}
	if doc.Name != "Renamed" || doc.CreatedAt == nil || !doc.CreatedAt.Equal(fixedNow) || !doc.UpdatedAt.Equal(fixedNow.Add(time.Hour)) {
		t.Fatalf("overwrite lost fields: %+v", doc)
	}
	if _, err := s.Load(ctx, DesignsCollection("u1"), "nope"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("missing load: %v", err)
	}
	list, err := s.ListDesigns(ctx, "u1")
	if err != nil || len(list) != 1 || list[0].ID != "id1" {
		t.Fatalf("ListDesigns = %v, %v", list, err)
	}
}

func TestOverwriteOfMissingRecordCreatesIt(t *testing.T) {
	s, _ := newSerializer(t)
	ctx := context.Background()
	res := s.Overwrite(ctx, "gone", Snapshot{Name: "Back again", UserID: "u1", Objects: design.ObjectList{obj("a", 0, 0)}})
	if !res.OK || res.ID != "gone" {
		t.Fatalf("overwrite = %+v", res)
	}
	doc, err := s.Load(ctx, DesignsCollection("u1"), "gone")
	if err != nil {
		t.Fatal(err)
	}
	if doc.CreatedAt == nil || !doc.CreatedAt.Equal(fixedNow) {
		t.Fatalf("recreated record must carry createdAt: %+v", doc.CreatedAt)
	}
}

func TestSaveFailureIsAResult(t *testing.T) {
	s, mem := newSerializer(t)
	s.Store = failingStore{mem}
	res := s.Create(context.Background(), Snapshot{Name: "x"})
	if res.OK || res.Err == nil || !strings.Contains(res.Err.Error(), "network down") {
		t.Fatalf("result = %+v", res)
	}
}

func TestMergeFromMissingIsNoop(t *testing.T) {
	s, _ := newSerializer(t)
	live := design.ObjectList{obj("x", 0, 0)}
	out, ok, err := s.MergeFrom(context.Background(), live, TemplatesCollection, "ghost")
	if err != nil || ok || len(out) != 1 {
		t.Fatalf("MergeFrom missing = %v %v %v", out, ok, err)
	}
	out, ok, err = s.ReplaceFrom(context.Background(), TemplatesCollection, "ghost", true)
	if err != nil || ok || out != nil {
		t.Fatalf("ReplaceFrom missing = %v %v %v", out, ok, err)
	}
}

func TestTemplatesRoundTrip(t *testing.T) {
	s, _ := newSerializer(t)
	ctx := context.Background()
	canvas := &fakeCanvas{}
	snap := Snapshot{
		Name:    "Retro",
		Objects: design.ObjectList{obj("a", 10, 10)},
		Product: &design.ProductConfig{ProductID: "tshirt"},
	}
	res := s.SaveTemplate(ctx, snap, "vintage", canvas)
	if !res.OK {
		t.Fatalf("SaveTemplate = %+v", res)
	}
	want := []string{"hide:" + design.PrintAreaBorderID, "export", "show:" + design.PrintAreaBorderID}
	if strings.Join(canvas.calls, ",") != strings.Join(want, ",") {
		t.Fatalf("canvas calls = %v", canvas.calls)
	}
	_ = s.SaveTemplate(ctx, Snapshot{Name: "Other"}, "sport", nil)

	tpls, err := s.ListTemplates(ctx, "vintage")
	if err != nil || len(tpls) != 1 {
		t.Fatalf("ListTemplates = %v, %v", tpls, err)
	}
	tpl := tpls[0]
	if tpl.Type != design.DocBlank || tpl.Category != "vintage" || tpl.ThumbnailURL != "https://cdn.test/templates/"+res.ID+".png" {
		t.Fatalf("template = %+v", tpl)
	}
	if all, _ := s.ListTemplates(ctx, ""); len(all) != 2 {
		t.Fatalf("all templates = %d", len(all))
	}

	out, ok, err := s.MergeFrom(ctx, nil, TemplatesCollection, res.ID)
	if err != nil || !ok || len(out) != 1 || out[0].Props.Float("left", 0) != 40 {
		t.Fatalf("template merge = %v %v %v", out, ok, err)
	}
}

func TestThumbnailRestoresBorderOnFailure(t *testing.T) {
	s, _ := newSerializer(t)
	canvas := &fakeCanvas{fail: true}
	if _, err := s.Thumbnail(context.Background(), canvas, "thumbnails/x.png"); err == nil {
		t.Fatalf("expected export failure")
	}
	if last := canvas.calls[len(canvas.calls)-1]; last != "show:"+design.PrintAreaBorderID {
		t.Fatalf("border not restored: %v", canvas.calls)
	}
}

func TestAttachThumbnail(t *testing.T) {
	s, _ := newSerializer(t)
	ctx := context.Background()
	res := s.Create(ctx, Snapshot{Name: "T", UserID: "u9"})
	url, err := s.AttachThumbnail(ctx, &fakeCanvas{}, "u9", res.ID)
	if err != nil {
		t.Fatal(err)
	}
	doc, _ := s.Load(ctx, DesignsCollection("u9"), res.ID)
	if doc.ThumbnailURL != url || doc.Name != "T" {
		t.Fatalf("thumbnail not recorded: %+v", doc)
	}
	data, err := ImageDataURL(&fakeCanvas{})
	if err != nil || !strings.HasPrefix(data, "data:image/png;base64,") {
		t.Fatalf("ImageDataURL = %q, %v", data, err)
	}
}
