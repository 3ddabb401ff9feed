/*
 * Copyright (c) 2025 by TRYAM193 and the Design Studio contributors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package history

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/TRYAM193/design-studio-sub000/internal/design"
	"github.com/TRYAM193/design-studio-sub000/internal/objects"
)

func obj(id string, left float64) design.CanvasObject {
	return design.CanvasObject{ID: id, Type: design.TypeRect, Props: design.Props{"left": left, "top": 0.0}}
}

func TestUndoRedoInverseLaw(t *testing.T) {
	p := objects.NewProcessor()
	start := design.ObjectList{obj("a", 0), obj("b", 10), obj("c", 20)}
	for _, action := range []objects.Action{objects.Delete, objects.Duplicate, objects.ToggleLock, objects.FlipVertical, objects.BringToFront, objects.SendBackward} {
		m := NewManager(Config{}, start)
		after := p.Apply(m.Present(), action, []string{"b"}).Objects
		m.Commit(after)

		got, ok := m.Undo()
		if !ok || !reflect.DeepEqual(got, start) {
			t.Fatalf("%s: undo = %+v, want %+v", action, got, start)
		}
		got, ok = m.Redo()
		if !ok || !reflect.DeepEqual(got, after) {
			t.Fatalf("%s: redo = %+v, want %+v", action, got, after)
		}
	}
}

func TestUndoRedoEmptyAreNoOps(t *testing.T) {
	m := NewManager(Config{}, nil)
	if _, ok := m.Undo(); ok {
		t.Fatalf("undo on empty history should be a no-op")
	}
	if _, ok := m.Redo(); ok {
		t.Fatalf("redo on empty future should be a no-op")
	}
	if got := m.Present(); got == nil || len(got) != 0 {
		t.Fatalf("present should be an empty list, got %#v", got)
	}
}

func TestCommitClearsFuture(t *testing.T) {
	m := NewManager(Config{}, design.ObjectList{obj("a", 0)})
	m.Commit(design.ObjectList{obj("a", 1)})
	m.Undo()
	if !m.CanRedo() {
		t.Fatalf("expected redo after undo")
	}
	m.Commit(design.ObjectList{obj("a", 2)})
	if m.CanRedo() {
		t.Fatalf("commit must clear future")
	}
}

func TestSnapshotsAreValueCopies(t *testing.T) {
	live := design.ObjectList{obj("a", 0)}
	m := NewManager(Config{}, live)
	live[0].Props["left"] = 500.0
	if m.Present()[0].Props.Float("left", -1) != 0 {
		t.Fatalf("manager shares state with the caller's list")
	}
	p := m.Present()
	p[0].Props["left"] = 42.0
	if m.Present()[0].Props.Float("left", -1) != 0 {
		t.Fatalf("Present leaks internal state")
	}
}

func TestCopyPaste(t *testing.T) {
	n := 0
	m := NewManager(Config{NewID: func() string { n++; return fmt.Sprintf("p%d", n) }}, design.ObjectList{obj("a", 0), obj("b", 100)})
	if _, ok := m.Paste(); ok {
		t.Fatalf("paste with empty clipboard should be a no-op")
	}
	if got := m.Copy([]string{"b", "missing"}); got != 1 {
		t.Fatalf("Copy = %d, want 1", got)
	}
	got, ok := m.Paste()
	if !ok || len(got) != 3 {
		t.Fatalf("paste: %+v", got)
	}
	pasted := got[2]
	if pasted.ID != "p1" || pasted.CustomID != "p2" || pasted.Props.Float("left", 0) != 120 || pasted.Props.Float("top", 0) != 20 {
		t.Fatalf("pasted object wrong: %+v", pasted)
	}
	if back, _ := m.Undo(); len(back) != 2 {
		t.Fatalf("paste must be undoable, got %+v", back)
	}
	if m.Copy(nil) != 0 || len(m.Clipboard()) != 1 {
		t.Fatalf("empty copy must keep the previous clipboard")
	}
}

func TestResetDiscardsTimeline(t *testing.T) {
	m := NewManager(Config{}, design.ObjectList{obj("a", 0)})
	m.Commit(design.ObjectList{obj("a", 1)})
	m.Commit(design.ObjectList{obj("a", 2)})
	m.Undo()
	m.Reset(design.ObjectList{obj("z", 9)})
	if m.CanUndo() || m.CanRedo() {
		t.Fatalf("reset must clear past and future")
	}
	if got := m.Present(); len(got) != 1 || got[0].ID != "z" {
		t.Fatalf("present after reset: %+v", got)
	}
}

func TestMaxDepthDropsOldest(t *testing.T) {
	m := NewManager(Config{MaxDepth: 2}, design.ObjectList{obj("a", 0)})
	for i := 1; i <= 4; i++ {
		m.Commit(design.ObjectList{obj("a", float64(i))})
	}
	if past, _, _ := m.Stats(); past != 2 {
		t.Fatalf("past depth = %d, want 2", past)
	}
	m.Undo()
	got, _ := m.Undo()
	if got[0].Props.Float("left", -1) != 2 {
		t.Fatalf("oldest retained state should be left=2, got %v", got[0].Props)
	}
	if m.CanUndo() {
		t.Fatalf("history beyond MaxDepth must be gone")
	}
}
