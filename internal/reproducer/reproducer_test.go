/*
 * Copyright (c) 2025 by TRYAM193 and the Design Studio contributors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package reproducer

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/TRYAM193/design-studio-sub000/internal/catalog"
	"github.com/TRYAM193/design-studio-sub000/internal/design"
	"github.com/TRYAM193/design-studio-sub000/internal/render"
	"github.com/TRYAM193/design-studio-sub000/internal/store"
)

type fetchFunc func(ctx context.Context, collection, id string) (*design.DesignDocument, error)

func (f fetchFunc) Load(ctx context.Context, collection, id string) (*design.DesignDocument, error) {
	return f(ctx, collection, id)
}

func staticFetch(doc *design.DesignDocument) Fetcher {
	return fetchFunc(func(_ context.Context, _, id string) (*design.DesignDocument, error) {
		if doc == nil {
			return nil, store.ErrNotFound
		}
		c := *doc
		c.ID = id
		return &c, nil
	})
}

func rect(id string, left float64) design.CanvasObject {
	return design.CanvasObject{ID: id, Type: design.TypeRect, Props: design.Props{
		"left": left, "top": 100.0, "width": 900.0, "height": 900.0, "fill": "#336699",
	}}
}

func productDoc() *design.DesignDocument {
	return &design.DesignDocument{
		Name: "Tee",
		Type: design.DocProduct,
		CanvasData: design.SurfaceCanvas(map[string]design.ObjectList{
			"front": {rect("editor", 0)},
		}),
		CanvasViewStates: map[string]design.ObjectList{
			"front": {
				rect("r1", 450),
				{ID: "t1", Type: design.TypeText, Props: design.Props{"left": 100.0, "top": 2000.0, "text": "Print me", "fontSize": 300.0}},
			},
		},
		ProductConfig: &design.ProductConfig{ProductID: "tshirt"},
	}
}

type stateLog struct {
	mu     sync.Mutex
	states []State
}

func (s *stateLog) record(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = append(s.states, st)
}

func (s *stateLog) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	parts := make([]string, len(s.states))
	for i, st := range s.states {
		parts[i] = string(st)
	}
	return strings.Join(parts, ">")
}

func newTestReproducer(fetch Fetcher, mutate func(*Options)) *Reproducer {
	opt := Options{TargetWidth: 240, Background: "white", Catalog: catalog.Builtin()}
	if mutate != nil {
		mutate(&opt)
	}
	return New(fetch, opt)
}

func TestRunUsesRenderStates(t *testing.T) {
	var log stateLog
	marker := FileMarker{Dir: t.TempDir()}
	p := newTestReproducer(staticFetch(productDoc()), func(o *Options) {
		o.OnState = log.record
		o.Marker = marker
	})
	res, err := p.Run(context.Background(), Request{Collection: "designs", ID: "d1", Surface: "front"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	defer res.Close()
	if got := log.String(); got != "LOADING>SANITIZING>DIMENSIONING>RENDERING>READY" {
		t.Fatalf("transitions = %s", got)
	}
	if res.Source != SourceRender || res.Width != 240 || res.Height != 288 {
		t.Fatalf("result = %+v", res)
	}
	img, err := res.Image()
	if err != nil || img.Bounds().Dx() != 240 {
		t.Fatalf("image: %v", err)
	}
	info, ok, err := marker.Ready(context.Background(), "d1-front")
	if err != nil || !ok || info.DesignID != "d1" || info.Objects != 2 || info.Source != SourceRender {
		t.Fatalf("marker = %+v %v %v", info, ok, err)
	}
}

func TestRunFallsBackToEditorList(t *testing.T) {
	doc := &design.DesignDocument{
		Type:         design.DocBlank,
		CanvasData:   design.FlatCanvas(design.ObjectList{rect("a", 10)}),
		EditorCanvas: &design.Size{Width: 500, Height: 600},
	}
	p := newTestReproducer(staticFetch(doc), nil)
	res, err := p.Run(context.Background(), Request{ID: "d2", Surface: "back"})
	if err != nil {
		t.Fatal(err)
	}
	defer res.Close()
	if res.Source != SourceEditor || len(res.Objects) != 1 {
		t.Fatalf("result = %+v", res)
	}
	if left := res.Objects[0].Props.Float("left", 0); left != 90 {
		t.Fatalf("editor list not normalized to print space: left=%v", left)
	}
}

func TestRunWithoutContentIsReadyAndEmpty(t *testing.T) {
	doc := &design.DesignDocument{Type: design.DocProduct, CanvasData: design.SurfaceCanvas(nil), ProductConfig: &design.ProductConfig{ProductID: "tshirt"}}
	marker := FileMarker{Dir: t.TempDir()}
	var constructed int
	p := newTestReproducer(staticFetch(doc), func(o *Options) {
		o.Marker = marker
		o.NewSurface = func(w, h int, opts render.Options) (*render.Surface, error) {
			constructed++
			return render.NewSurface(w, h, opts)
		}
	})
	res, err := p.Run(context.Background(), Request{ID: "d3", Surface: "back"})
	if err != nil {
		t.Fatal(err)
	}
	if res.State != Ready || !res.Empty() || res.Source != SourceEmpty || constructed != 0 {
		t.Fatalf("result = %+v constructed=%d", res, constructed)
	}
	if _, err := res.Image(); !errors.Is(err, ErrEmptyOutput) {
		t.Fatalf("Image on empty result: %v", err)
	}
	if _, ok, _ := marker.Ready(context.Background(), "d3-back"); !ok {
		t.Fatalf("empty result must still be marked ready")
	}
	res.Close()
}

func TestRunMissingDocument(t *testing.T) {
	p := newTestReproducer(staticFetch(nil), nil)
	res, err := p.Run(context.Background(), Request{ID: "ghost"})
	if !errors.Is(err, ErrNoDocument) || res.State != Aborted {
		t.Fatalf("missing doc = %+v, %v", res, err)
	}
}

func TestSanitizeCoercesText(t *testing.T) {
	in := design.ObjectList{
		{ID: "a", Type: design.TypeIText, Props: design.Props{"text": []any{"x"}}},
		{ID: "b", Type: design.TypeTextbox},
		{ID: "c", Type: design.TypeText, Props: design.Props{"text": "ok"}},
		{ID: "d", Type: design.TypeRect, Props: design.Props{"text": 5.0}},
	}
	out := Sanitize(in)
	if out[0].Props["text"] != "" || out[1].Props["text"] != "" || out[2].Props["text"] != "ok" {
		t.Fatalf("sanitized = %v", out)
	}
	if out[3].Props["text"] != 5.0 {
		t.Fatalf("non-text objects must be left alone")
	}
	if _, ok := in[0].Props["text"].([]any); !ok {
		t.Fatalf("Sanitize mutated its input")
	}
}

func TestReproductionIsDeterministic(t *testing.T) {
	p := newTestReproducer(staticFetch(productDoc()), nil)
	export := func() []byte {
		res, err := p.Run(context.Background(), Request{ID: "d1"})
		if err != nil {
			t.Fatal(err)
		}
		defer res.Close()
		b, err := res.Surface().ExportBitmap(render.ExportOptions{Format: "png"})
		if err != nil {
			t.Fatal(err)
		}
		return b
	}
	if !bytes.Equal(export(), export()) {
		t.Fatalf("independent reproductions differ")
	}
}

func TestCancelDuringSanitizingOfEmptySurface(t *testing.T) {
	doc := &design.DesignDocument{Type: design.DocProduct, CanvasData: design.SurfaceCanvas(nil), ProductConfig: &design.ProductConfig{ProductID: "tshirt"}}
	marker := FileMarker{Dir: t.TempDir()}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var log stateLog
	p := newTestReproducer(staticFetch(doc), func(o *Options) {
		o.Marker = marker
		o.OnState = func(st State) {
			log.record(st)
			if st == Sanitizing {
				cancel()
			}
		}
	})
	res, err := p.Run(ctx, Request{ID: "d5", Surface: "back"})
	if err != nil {
		t.Fatalf("cancellation must not be an error: %v", err)
	}
	if res.State != Aborted {
		t.Fatalf("state = %s, transitions %s", res.State, log.String())
	}
	if got := log.String(); got != "LOADING>SANITIZING>ABORTED" {
		t.Fatalf("transitions = %s", got)
	}
	if _, ok, _ := marker.Ready(context.Background(), "d5-back"); ok {
		t.Fatalf("an aborted run must not be marked ready")
	}
}

func TestCancelBeforeFetchResolves(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	fetch := fetchFunc(func(ctx context.Context, _, _ string) (*design.DesignDocument, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	})
	var constructed int
	p := newTestReproducer(fetch, func(o *Options) {
		o.NewSurface = func(w, h int, opts render.Options) (*render.Surface, error) {
			constructed++
			return render.NewSurface(w, h, opts)
		}
	})
	go func() {
		<-started
		cancel()
	}()
	res, err := p.Run(ctx, Request{ID: "d1"})
	if err != nil {
		t.Fatalf("cancellation must not be an error: %v", err)
	}
	if res.State != Aborted || constructed != 0 || res.Surface() != nil {
		t.Fatalf("result = %+v constructed=%d", res, constructed)
	}
}

func TestCancelAfterSurfaceConstructionDisposes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var built *render.Surface
	var log stateLog
	p := newTestReproducer(staticFetch(productDoc()), func(o *Options) {
		o.OnState = log.record
		o.NewSurface = func(w, h int, opts render.Options) (*render.Surface, error) {
			s, err := render.NewSurface(w, h, opts)
			built = s
			cancel()
			return s, err
		}
	})
	res, err := p.Run(ctx, Request{ID: "d1"})
	if err != nil {
		t.Fatal(err)
	}
	if res.State != Aborted || built == nil || !built.Disposed() {
		t.Fatalf("surface not disposed on cancellation: state=%s", res.State)
	}
	if !strings.HasSuffix(log.String(), "RENDERING>ABORTED") {
		t.Fatalf("transitions = %s", log.String())
	}
	if len(built.Objects()) != 0 {
		t.Fatalf("disposed surface was mutated")
	}
	res.Close()
}

func TestPrintAreaResolution(t *testing.T) {
	p := newTestReproducer(nil, nil)
	mug := &design.DesignDocument{ProductConfig: &design.ProductConfig{ProductID: "mug"}}
	if got := p.printArea(mug, "front"); got != (design.Size{Width: 2475, Height: 1155}) {
		t.Fatalf("catalog area = %v", got)
	}
	own := &design.DesignDocument{ProductConfig: &design.ProductConfig{ProductID: "mug", PrintAreas: map[string]design.Size{"front": {Width: 100, Height: 50}}}}
	if got := p.printArea(own, "front"); got.Width != 100 {
		t.Fatalf("document area = %v", got)
	}
	if got := p.printArea(&design.DesignDocument{}, "front"); got != catalog.DefaultPrintArea {
		t.Fatalf("default area = %v", got)
	}
	w, h, scale := Dimensions(2400, design.Size{Width: 4500, Height: 5400})
	if w != 2400 || h != 2880 || scale != 2400.0/4500 {
		t.Fatalf("Dimensions = %d %d %v", w, h, scale)
	}
}

func TestFileMarker(t *testing.T) {
	m := FileMarker{Dir: filepath.Join(t.TempDir(), "ready")}
	ctx := context.Background()
	if _, ok, err := m.Ready(ctx, "k1"); ok || err != nil {
		t.Fatalf("unexpected marker: %v %v", ok, err)
	}
	if err := m.MarkReady(ctx, ReadyInfo{Key: "k1", DesignID: "d"}); err != nil {
		t.Fatal(err)
	}
	if info, ok, err := m.Ready(ctx, "k1"); !ok || err != nil || info.DesignID != "d" {
		t.Fatalf("marker = %+v %v %v", info, ok, err)
	}
	if err := m.Clear("k1"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := m.Ready(ctx, "k1"); ok {
		t.Fatalf("marker not cleared")
	}
	if err := m.MarkReady(ctx, ReadyInfo{Key: "../x"}); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("invalid key accepted")
	}
}

func TestRedisMarker(t *testing.T) {
	addr := os.Getenv("DSTUDIO_REDIS_ADDR")
	if addr == "" {
		addr = "127.0.0.1:6379"
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}
	m := NewRedisMarker(client)
	m.Prefix = "designstudio:test:"
	key := "k-" + time.Now().Format("150405.000000")
	if _, ok, err := m.Ready(ctx, key); ok || err != nil {
		t.Fatalf("unexpected marker: %v %v", ok, err)
	}
	if err := m.MarkReady(ctx, ReadyInfo{Key: key, Width: 10}); err != nil {
		t.Fatal(err)
	}
	if info, ok, err := m.Ready(ctx, key); !ok || err != nil || info.Width != 10 {
		t.Fatalf("marker = %+v %v %v", info, ok, err)
	}
	_ = client.Del(ctx, m.Prefix+key).Err()
}

func TestWatchReportsChangedDocuments(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	got := make(chan string, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, dir, 20*time.Millisecond, func(_ context.Context, id string) { got <- id })
	}()
	// Give the watcher a moment to register.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(dir, ".tmp-ignored"), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "d42.json"), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case id := <-got:
		if id != "d42" {
			t.Fatalf("id = %q", id)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("no change reported")
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Watch: %v", err)
	}
}
