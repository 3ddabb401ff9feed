/*
 * Copyright (c) 2025 by TRYAM193 and the Design Studio contributors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package dpi

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/TRYAM193/design-studio-sub000/internal/design"
)

// ErrPoorQuality is returned by Registry.Gate when any image is below the poor threshold.
var ErrPoorQuality = errors.New("dpi: image resolution too low for print")

// Measurer reports an object's native and on-canvas size.
type Measurer interface {
	Extent(obj design.CanvasObject) (Extent, bool)
}

// MeasurerFunc adapts a function to Measurer.
type MeasurerFunc func(obj design.CanvasObject) (Extent, bool)

func (f MeasurerFunc) Extent(obj design.CanvasObject) (Extent, bool) { return f(obj) }

// PropsMeasurer derives extents from object props: naturalWidth/naturalHeight
// (falling back to width/height) as native size and width*scaleX, height*scaleY
// as on-canvas size.
var PropsMeasurer Measurer = MeasurerFunc(propsExtent)

func propsExtent(obj design.CanvasObject) (Extent, bool) {
	p := obj.Props
	w := p.Float(design.PropWidth, 0)
	h := p.Float(design.PropHeight, 0)
	nw := p.Float(design.PropNaturalWidth, w)
	nh := p.Float(design.PropNaturalHeight, h)
	ext := Extent{
		NativeW: nw,
		NativeH: nh,
		ScaledW: w * p.Float(design.PropScaleX, 1),
		ScaledH: h * p.Float(design.PropScaleY, 1),
	}
	return ext, nw > 0 && nh > 0 && ext.ScaledW > 0 && ext.ScaledH > 0
}

// Registry holds the current DpiRecord per image, keyed by customId (falling back to id).
type Registry struct {
	mu        sync.Mutex
	measurer  Measurer
	canvas    design.Size
	printArea design.Size
	records   map[string]design.DpiRecord
}

// NewRegistry returns an empty registry. A nil measurer uses PropsMeasurer.
func NewRegistry(m Measurer) *Registry {
	if m == nil {
		m = PropsMeasurer
	}
	return &Registry{measurer: m, records: map[string]design.DpiRecord{}}
}

// SetDimensions updates the canvas and print-area sizes used for future analyses.
func (r *Registry) SetDimensions(canvas, printArea design.Size) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.canvas = canvas
	r.printArea = printArea
}

// SetMeasurer swaps the extent source, e.g. once a render surface is attached.
func (r *Registry) SetMeasurer(m Measurer) {
	if m == nil {
		m = PropsMeasurer
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.measurer = m
}

// Update recomputes the record for one object (added or transformed).
// Objects that yield no record drop any previous one.
func (r *Registry) Update(obj design.CanvasObject) (*design.DpiRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.updateLocked(obj)
}

func (r *Registry) updateLocked(obj design.CanvasObject) (*design.DpiRecord, bool) {
	key := obj.Key()
	ext, ok := r.measurer.Extent(obj)
	if !ok {
		delete(r.records, key)
		return nil, false
	}
	rec := Analyze(obj, ext, r.canvas, r.printArea)
	if rec == nil {
		delete(r.records, key)
		return nil, false
	}
	r.records[key] = *rec
	return rec, true
}

// Remove drops the record of a deleted object.
func (r *Registry) Remove(obj design.CanvasObject) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, obj.Key())
}

// Refresh replaces all records with those computed for list.
func (r *Registry) Refresh(list design.ObjectList) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = make(map[string]design.DpiRecord, len(list))
	for _, o := range list {
		if o.IsScaffolding() {
			continue
		}
		r.updateLocked(o)
	}
}

// Records returns all records sorted by id.
func (r *Registry) Records() []design.DpiRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]design.DpiRecord, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Record returns the record for key.
func (r *Registry) Record(key string) (design.DpiRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[key]
	return rec, ok
}

// Measure analyzes list against the given dimensions with the registry's
// measurer without touching the stored records. It serves surfaces that are
// not live.
func (r *Registry) Measure(list design.ObjectList, canvas, printArea design.Size) []design.DpiRecord {
	r.mu.Lock()
	m := r.measurer
	r.mu.Unlock()
	var out []design.DpiRecord
	for _, o := range list {
		if o.IsScaffolding() {
			continue
		}
		ext, ok := m.Extent(o)
		if !ok {
			continue
		}
		if rec := Analyze(o, ext, canvas, printArea); rec != nil {
			out = append(out, *rec)
		}
	}
	return out
}

// Gate returns an error wrapping ErrPoorQuality when any record is poor.
func (r *Registry) Gate() error { return Gate(r.Records()) }

// Gate returns an error wrapping ErrPoorQuality when any of records is poor.
func Gate(records []design.DpiRecord) error {
	var poor []string
	for _, rec := range records {
		if rec.Status == design.DpiPoor {
			poor = append(poor, fmt.Sprintf("%s (%d DPI)", rec.ID, rec.DPI))
		}
	}
	if len(poor) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrPoorQuality, strings.Join(poor, ", "))
}
