/*
 * Copyright (c) 2025 by TRYAM193 and the Design Studio contributors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package objects applies multi-selection actions and single-object edits to an
// object list. Every function returns a new list; the input is never mutated.
package objects

import (
	"github.com/TRYAM193/design-studio-sub000/internal/design"
)

// Action names a bulk operation.
type Action string

const (
	Delete         Action = "delete"
	Duplicate      Action = "duplicate"
	ToggleLock     Action = "toggleLock"
	FlipHorizontal Action = "flipHorizontal"
	FlipVertical   Action = "flipVertical"
	BringToFront   Action = "bringToFront"
	SendToBack     Action = "sendToBack"
	BringForward   Action = "bringForward"
	SendBackward   Action = "sendBackward"
)

var actions = map[Action]struct{}{
	Delete: {}, Duplicate: {}, ToggleLock: {}, FlipHorizontal: {}, FlipVertical: {},
	BringToFront: {}, SendToBack: {}, BringForward: {}, SendBackward: {},
}

// ParseAction validates an action name.
func ParseAction(s string) (Action, error) {
	if _, ok := actions[Action(s)]; ok {
		return Action(s), nil
	}
	return "", &design.ParseError{Type: "Action", Value: s}
}

// Result is the outcome of Apply. ClearSelection is set when the selected
// objects no longer exist and the caller must drop selection and active tool state.
type Result struct {
	Objects        design.ObjectList
	ClearSelection bool
	Changed        bool
}

// Processor applies bulk actions. NewID generates identities for copies.
type Processor struct {
	NewID func() string
}

// NewProcessor returns a Processor using random UUIDs.
func NewProcessor() *Processor { return &Processor{NewID: design.NewID} }

func (p *Processor) newID() string {
	if p == nil || p.NewID == nil {
		return design.NewID()
	}
	return p.NewID()
}

// Apply performs action on the objects whose id is in ids. Unknown actions,
// empty selections and empty lists leave the list unchanged.
func (p *Processor) Apply(list design.ObjectList, action Action, ids []string) Result {
	unchanged := Result{Objects: list.Clone()}
	if len(ids) == 0 || len(list) == 0 {
		return unchanged
	}
	sel := selection(ids)
	var out design.ObjectList
	switch action {
	case Delete:
		out = deleteSelected(list, sel)
		return Result{Objects: out, ClearSelection: true, Changed: len(out) != len(list)}
	case Duplicate:
		out = p.duplicate(list, sel)
	case ToggleLock:
		out = toggleLock(list, ids[0], sel)
	case FlipHorizontal:
		out = flip(list, sel, design.PropFlipX)
	case FlipVertical:
		out = flip(list, sel, design.PropFlipY)
	case BringToFront:
		out = partition(list, sel, true)
	case SendToBack:
		out = partition(list, sel, false)
	case BringForward:
		if len(ids) != 1 {
			return unchanged
		}
		out = step(list, ids[0], 1)
	case SendBackward:
		if len(ids) != 1 {
			return unchanged
		}
		out = step(list, ids[0], -1)
	default:
		return unchanged
	}
	if out == nil {
		return unchanged
	}
	return Result{Objects: out, Changed: true}
}

func selection(ids []string) map[string]struct{} {
	m := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return m
}

func deleteSelected(list design.ObjectList, sel map[string]struct{}) design.ObjectList {
	out := make(design.ObjectList, 0, len(list))
	for _, o := range list {
		if _, ok := sel[o.ID]; !ok {
			out = append(out, o.Clone())
		}
	}
	return out
}

// duplicate appends offset copies in list order so they render above the originals.
func (p *Processor) duplicate(list design.ObjectList, sel map[string]struct{}) design.ObjectList {
	out := list.Clone()
	n := len(out)
	for _, o := range list {
		if _, ok := sel[o.ID]; ok {
			out = append(out, o.Offset(design.DuplicateOffset, design.DuplicateOffset).Reidentify(p.newID))
		}
	}
	if len(out) == n {
		return nil
	}
	return out
}

// toggleLock inverts the lock state of the first selected object and applies
// that one target state to the whole selection.
func toggleLock(list design.ObjectList, firstID string, sel map[string]struct{}) design.ObjectList {
	first, ok := list.Find(firstID)
	if !ok {
		return nil
	}
	target := !first.Props.Bool(design.PropLockMovementX)
	out := list.Clone()
	for i := range out {
		if _, ok := sel[out[i].ID]; !ok {
			continue
		}
		if out[i].Props == nil {
			out[i].Props = design.Props{}
		}
		for _, k := range design.LockProps {
			out[i].Props[k] = target
		}
		out[i].Props[design.PropHasControls] = !target
	}
	return out
}

func flip(list design.ObjectList, sel map[string]struct{}, key string) design.ObjectList {
	out := list.Clone()
	hit := false
	for i := range out {
		if _, ok := sel[out[i].ID]; !ok {
			continue
		}
		if out[i].Props == nil {
			out[i].Props = design.Props{}
		}
		out[i].Props[key] = !out[i].Props.Bool(key)
		hit = true
	}
	if !hit {
		return nil
	}
	return out
}

// partition moves the selection as one block to the top (front) or bottom,
// keeping relative order inside both partitions.
func partition(list design.ObjectList, sel map[string]struct{}, front bool) design.ObjectList {
	var picked, rest design.ObjectList
	for _, o := range list {
		if _, ok := sel[o.ID]; ok {
			picked = append(picked, o.Clone())
		} else {
			rest = append(rest, o.Clone())
		}
	}
	if len(picked) == 0 {
		return nil
	}
	out := make(design.ObjectList, 0, len(list))
	if front {
		out = append(append(out, rest...), picked...)
	} else {
		out = append(append(out, picked...), rest...)
	}
	return out
}

// step swaps id with its neighbour in direction dir (+1 up, -1 down).
func step(list design.ObjectList, id string, dir int) design.ObjectList {
	i := list.IndexOf(id)
	j := i + dir
	if i < 0 || j < 0 || j >= len(list) {
		return nil
	}
	out := list.Clone()
	out[i], out[j] = out[j], out[i]
	return out
}
