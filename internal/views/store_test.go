/*
 * Copyright (c) 2025 by TRYAM193 and the Design Studio contributors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package views

import (
	"reflect"
	"testing"

	"github.com/TRYAM193/design-studio-sub000/internal/design"
	"github.com/TRYAM193/design-studio-sub000/internal/history"
)

func rect(id string) design.CanvasObject {
	return design.CanvasObject{ID: id, Type: design.TypeRect, Props: design.Props{"left": 1.0}}
}

func TestSwitchViewPreservesContent(t *testing.T) {
	h := history.NewManager(history.Config{}, nil)
	s := NewStore("front", h, nil)

	h.Commit(design.ObjectList{rect("a")})
	h.Commit(design.ObjectList{rect("a"), rect("b")})
	beforeSwitch := h.Present()

	if !s.SwitchView("back") {
		t.Fatalf("switch to back should happen")
	}
	if got := h.Present(); len(got) != 0 {
		t.Fatalf("unvisited surface should start empty, got %+v", got)
	}
	if h.CanUndo() {
		t.Fatalf("history must not carry across surfaces")
	}
	h.Commit(design.ObjectList{rect("x")})
	h.Commit(design.ObjectList{rect("x"), rect("y")})

	s.SwitchView("front")
	if got := h.Present(); !reflect.DeepEqual(got, beforeSwitch) {
		t.Fatalf("front content = %+v, want %+v", got, beforeSwitch)
	}
	// Timeline accumulated on back never leaks into front.
	if got, _ := h.Undo(); !reflect.DeepEqual(got, beforeSwitch) {
		t.Fatalf("undo after returning must not replay back's history: %+v", got)
	}
	if got := s.EditorStates()["back"]; len(got) != 2 || got[1].ID != "y" {
		t.Fatalf("back content not captured: %+v", got)
	}
}

func TestSwitchToSameSurfaceIsNoOp(t *testing.T) {
	h := history.NewManager(history.Config{}, design.ObjectList{rect("a")})
	h.Commit(design.ObjectList{rect("a"), rect("b")})
	s := NewStore("", h, nil)
	if s.Current() != design.DefaultSurface {
		t.Fatalf("default surface = %q", s.Current())
	}
	if s.SwitchView("front") || s.SwitchView("") {
		t.Fatalf("switching to the current or empty surface must be a no-op")
	}
	if !h.CanUndo() {
		t.Fatalf("no-op switch must keep history")
	}
}

func TestCapturedSnapshotsAreValueCopies(t *testing.T) {
	h := history.NewManager(history.Config{}, design.ObjectList{rect("a")})
	var captured design.ObjectList
	s := NewStore("front", h, func(surface string, live design.ObjectList) design.ObjectList {
		if surface != "front" {
			t.Fatalf("capture surface = %q", surface)
		}
		captured = live
		out := live.Clone()
		out[0].Props["materialized"] = true
		return out
	})
	s.SwitchView("back")
	captured[0].Props["left"] = 999.0

	front := s.RenderStates()["front"]
	if front[0].Props.Float("left", 0) != 1 || !front[0].Props.Bool("materialized") {
		t.Fatalf("render snapshot shares state or lost capture: %+v", front[0].Props)
	}
	rs := s.RenderStates()
	rs["front"][0].Props["left"] = 5.0
	if s.RenderStates()["front"][0].Props.Float("left", 0) != 1 {
		t.Fatalf("RenderStates leaks internal state")
	}
}

func TestLoadResetsLiveSurface(t *testing.T) {
	h := history.NewManager(history.Config{}, nil)
	s := NewStore("back", h, nil)
	s.Load(map[string]design.ObjectList{"front": {rect("f")}, "back": {rect("b")}}, nil)
	if got := h.Present(); len(got) != 1 || got[0].ID != "b" {
		t.Fatalf("live surface after load: %+v", got)
	}
	if got := s.Surfaces(); !reflect.DeepEqual(got, []string{"back", "front"}) {
		t.Fatalf("Surfaces = %v", got)
	}
}
