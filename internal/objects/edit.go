/*
 * Copyright (c) 2025 by TRYAM193 and the Design Studio contributors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package objects

import (
	"github.com/TRYAM193/design-studio-sub000/internal/design"
)

// Add appends obj on top of the list. A missing id is generated; an id already
// present in the list is replaced with a fresh one to keep ids unique.
func (p *Processor) Add(list design.ObjectList, obj design.CanvasObject) (design.ObjectList, design.CanvasObject) {
	obj = obj.Clone()
	if obj.ID == "" || list.IndexOf(obj.ID) >= 0 {
		obj.ID = p.newID()
	}
	if obj.CustomID == "" {
		obj.CustomID = p.newID()
	}
	if obj.Props == nil {
		obj.Props = design.Props{}
	}
	out := append(list.Clone(), obj)
	return out, obj
}

// Update merges patch into the props of id. Unknown ids leave the list unchanged.
func Update(list design.ObjectList, id string, patch design.Props) (design.ObjectList, bool) {
	i := list.IndexOf(id)
	out := list.Clone()
	if i < 0 {
		return out, false
	}
	out[i].Props = out[i].Props.Merge(patch)
	return out, true
}

// Remove deletes a single object.
func Remove(list design.ObjectList, id string) (design.ObjectList, bool) {
	if list.IndexOf(id) < 0 {
		return list.Clone(), false
	}
	return deleteSelected(list, map[string]struct{}{id: {}}), true
}

// MoveToIndex places id at index, clamped to the list bounds.
func MoveToIndex(list design.ObjectList, id string, index int) (design.ObjectList, bool) {
	i := list.IndexOf(id)
	out := list.Clone()
	if i < 0 {
		return out, false
	}
	if index < 0 {
		index = 0
	}
	if index > len(out)-1 {
		index = len(out) - 1
	}
	if index == i {
		return out, false
	}
	obj := out[i]
	out = append(out[:i], out[i+1:]...)
	out = append(out[:index], append(design.ObjectList{obj}, out[index:]...)...)
	return out, true
}

// MoveRelative shifts id by delta positions (positive towards the top).
func MoveRelative(list design.ObjectList, id string, delta int) (design.ObjectList, bool) {
	i := list.IndexOf(id)
	if i < 0 {
		return list.Clone(), false
	}
	return MoveToIndex(list, id, i+delta)
}
