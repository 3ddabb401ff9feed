/*
 * Copyright (c) 2025 by TRYAM193 and the Design Studio contributors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package views partitions a design into named surfaces (front, back, ...), each
// with its own editor-reload list and render-faithful snapshot, and mediates
// switching the single live editing surface between them.
package views

import (
	"sort"
	"sync"

	"github.com/TRYAM193/design-studio-sub000/internal/design"
	"github.com/TRYAM193/design-studio-sub000/internal/history"
)

// CaptureFunc produces the render-faithful snapshot of the live surface.
type CaptureFunc func(surface string, live design.ObjectList) design.ObjectList

// Store owns the surface → state mapping of one editing session.
type Store struct {
	mu      sync.Mutex
	current string
	editor  map[string]design.ObjectList
	render  map[string]design.ObjectList
	hist    *history.Manager
	capture CaptureFunc
}

// NewStore returns a store positioned on surface, whose live content is the history's present.
// A nil capture records a plain copy of the live list as the render snapshot.
func NewStore(surface string, hist *history.Manager, capture CaptureFunc) *Store {
	if surface == "" {
		surface = design.DefaultSurface
	}
	if capture == nil {
		capture = func(_ string, live design.ObjectList) design.ObjectList { return live.Clone() }
	}
	return &Store{
		current: surface,
		editor:  map[string]design.ObjectList{},
		render:  map[string]design.ObjectList{},
		hist:    hist,
		capture: capture,
	}
}

// Current returns the active surface.
func (s *Store) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Load seeds stored state, e.g. from a persisted document. The live surface is
// reset to the editor list stored for the current surface.
func (s *Store) Load(editor, render map[string]design.ObjectList) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.editor = cloneMap(editor)
	s.render = cloneMap(render)
	s.hist.Reset(s.editor[s.current])
}

// SwitchView captures the outgoing surface and makes next the live surface with
// a fresh history. Switching to the current surface is a no-op.
func (s *Store) SwitchView(next string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if next == "" || next == s.current {
		return false
	}
	s.captureLocked()
	incoming := s.editor[next]
	if incoming == nil {
		incoming = design.ObjectList{}
	}
	s.hist.Reset(incoming)
	s.current = next
	return true
}

// Capture stores the live surface under the current key without switching,
// e.g. right before the document is serialized.
func (s *Store) Capture() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.captureLocked()
}

func (s *Store) captureLocked() {
	live := s.hist.Present()
	s.editor[s.current] = live
	s.render[s.current] = s.capture(s.current, live).Clone()
}

// EditorStates returns a copy of every surface's editor-reload list.
func (s *Store) EditorStates() map[string]design.ObjectList {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneMap(s.editor)
}

// RenderStates returns a copy of every surface's render-faithful snapshot.
func (s *Store) RenderStates() map[string]design.ObjectList {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneMap(s.render)
}

// Surfaces lists the surfaces that have stored content, in name order.
func (s *Store) Surfaces() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.editor))
	for k := range s.editor {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func cloneMap(m map[string]design.ObjectList) map[string]design.ObjectList {
	out := make(map[string]design.ObjectList, len(m))
	for k, v := range m {
		out[k] = v.Clone()
	}
	return out
}
