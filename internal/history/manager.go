/*
 * Copyright (c) 2025 by TRYAM193 and the Design Studio contributors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package history keeps the past/present/future timeline of the active surface's
// object list plus a clipboard. Every stored state is a value copy; callers can
// never reach into a snapshot through a list they passed in or got back.
package history

import (
	"sync"

	"github.com/TRYAM193/design-studio-sub000/internal/design"
)

// Config controls depth caps.
type Config struct {
	// MaxDepth limits the number of past states kept (0 means unlimited).
	// The oldest entries are dropped first.
	MaxDepth int
	// NewID generates identities for pasted objects.
	NewID func() string
}

// Manager is the history of one editing session. It is safe for concurrent use,
// although a session normally drives it from one goroutine.
type Manager struct {
	cfg       Config
	mu        sync.Mutex
	past      []design.ObjectList
	present   design.ObjectList
	future    []design.ObjectList
	clipboard design.ObjectList
}

// NewManager returns a manager whose present is initial.
func NewManager(cfg Config, initial design.ObjectList) *Manager {
	if cfg.NewID == nil {
		cfg.NewID = design.NewID
	}
	return &Manager{cfg: cfg, present: snapshot(initial)}
}

func snapshot(l design.ObjectList) design.ObjectList {
	if l == nil {
		return design.ObjectList{}
	}
	return l.Clone()
}

// Present returns a copy of the current state.
func (m *Manager) Present() design.ObjectList {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.present.Clone()
}

// Commit pushes the current state onto the past and makes next the present.
// Any redo history is discarded.
func (m *Manager) Commit(next design.ObjectList) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commitLocked(snapshot(next))
}

func (m *Manager) commitLocked(next design.ObjectList) {
	m.past = append(m.past, m.present)
	m.present = next
	m.future = nil
	m.enforceCapsLocked()
}

// Undo restores the previous state. It returns the new present and false when there was nothing to undo.
func (m *Manager) Undo() (design.ObjectList, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.past)
	if n == 0 {
		return m.present.Clone(), false
	}
	prev := m.past[n-1]
	m.past = m.past[:n-1]
	m.future = append([]design.ObjectList{m.present}, m.future...)
	m.present = prev
	return m.present.Clone(), true
}

// Redo re-applies the next state. It returns the new present and false when there was nothing to redo.
func (m *Manager) Redo() (design.ObjectList, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.future) == 0 {
		return m.present.Clone(), false
	}
	next := m.future[0]
	m.future = m.future[1:]
	m.past = append(m.past, m.present)
	m.present = next
	m.enforceCapsLocked()
	return m.present.Clone(), true
}

// Copy stores the present objects whose id is in ids, in list order, as the clipboard.
// An empty match leaves the clipboard untouched.
func (m *Manager) Copy(ids []string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	var clip design.ObjectList
	for _, o := range m.present {
		if _, ok := want[o.ID]; ok {
			clip = append(clip, o.Clone())
		}
	}
	if len(clip) == 0 {
		return 0
	}
	m.clipboard = clip
	return len(clip)
}

// Clipboard returns a copy of the clipboard, nil when empty.
func (m *Manager) Clipboard() design.ObjectList {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clipboard.Clone()
}

// Paste appends an offset, re-identified copy of every clipboard object to the
// present and commits the result. The clipboard keeps its content, so repeated
// pastes land on the same offset from the source.
func (m *Manager) Paste() (design.ObjectList, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.clipboard) == 0 {
		return m.present.Clone(), false
	}
	next := m.present.Clone()
	if next == nil {
		next = design.ObjectList{}
	}
	for _, o := range m.clipboard {
		next = append(next, o.Offset(design.DuplicateOffset, design.DuplicateOffset).Reidentify(m.cfg.NewID))
	}
	m.commitLocked(next)
	return m.present.Clone(), true
}

// Reset discards past and future and makes to the present.
// Used when the active surface changes: timelines never carry across surfaces.
func (m *Manager) Reset(to design.ObjectList) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.past = nil
	m.future = nil
	m.present = snapshot(to)
}

// CanUndo reports whether Undo would change the present.
func (m *Manager) CanUndo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.past) > 0
}

// CanRedo reports whether Redo would change the present.
func (m *Manager) CanRedo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.future) > 0
}

// Stats returns current depths for diagnostics.
func (m *Manager) Stats() (past, future, clipboard int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.past), len(m.future), len(m.clipboard)
}

func (m *Manager) enforceCapsLocked() {
	if m.cfg.MaxDepth > 0 && len(m.past) > m.cfg.MaxDepth {
		drop := len(m.past) - m.cfg.MaxDepth
		m.past = append([]design.ObjectList(nil), m.past[drop:]...)
	}
}
