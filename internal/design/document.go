/*
 * Copyright (c) 2025 by TRYAM193 and the Design Studio contributors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package design

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
	"time"
)

// DocType distinguishes product-bound documents from free-standing ones.
type DocType string

const (
	DocProduct DocType = "PRODUCT"
	DocBlank   DocType = "BLANK"
)

// ParseDocType accepts the canonical upper-case names in any case.
func ParseDocType(s string) (DocType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(DocProduct):
		return DocProduct, nil
	case string(DocBlank):
		return DocBlank, nil
	default:
		return "", &ParseError{Type: "DocType", Value: s}
	}
}

// DefaultSurface is assumed whenever a surface is not named.
const DefaultSurface = "front"

// Size is a pixel extent.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Valid reports whether both dimensions are positive.
func (s Size) Valid() bool { return s.Width > 0 && s.Height > 0 }

// ProductConfig binds a PRODUCT document to a catalog item.
type ProductConfig struct {
	ProductID     string          `json:"productId"`
	Color         string          `json:"color,omitempty"`
	Size          string          `json:"size,omitempty"`
	ActiveSurface string          `json:"activeSurface,omitempty"`
	PrintAreas    map[string]Size `json:"printAreas,omitempty"`
}

// CanvasData is the editor-reload encoding. PRODUCT documents keep one list per
// surface; BLANK documents keep a single flat list. Exactly one of the two fields is used.
type CanvasData struct {
	Flat     ObjectList
	Surfaces map[string]ObjectList
}

// FlatCanvas builds CanvasData for a BLANK document.
func FlatCanvas(l ObjectList) CanvasData {
	if l == nil {
		l = ObjectList{}
	}
	return CanvasData{Flat: l}
}

// SurfaceCanvas builds CanvasData for a PRODUCT document.
func SurfaceCanvas(m map[string]ObjectList) CanvasData {
	if m == nil {
		m = map[string]ObjectList{}
	}
	return CanvasData{Surfaces: m}
}

// IsSurfaceKeyed reports whether the data is per-surface.
func (c CanvasData) IsSurfaceKeyed() bool { return c.Surfaces != nil }

// Objects returns the list stored for surface. Flat data ignores the surface.
func (c CanvasData) Objects(surface string) (ObjectList, bool) {
	if !c.IsSurfaceKeyed() {
		return c.Flat, c.Flat != nil
	}
	l, ok := c.Surfaces[surface]
	return l, ok
}

// Primary picks the list to ingest from a foreign document: the flat list, or
// the preferred surface, or "front", or the first surface in name order.
func (c CanvasData) Primary(preferred string) ObjectList {
	if !c.IsSurfaceKeyed() {
		return c.Flat
	}
	if preferred != "" {
		if l, ok := c.Surfaces[preferred]; ok {
			return l
		}
	}
	if l, ok := c.Surfaces[DefaultSurface]; ok {
		return l
	}
	keys := make([]string, 0, len(c.Surfaces))
	for k := range c.Surfaces {
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return nil
	}
	sort.Strings(keys)
	return c.Surfaces[keys[0]]
}

// Clone returns a deep copy.
func (c CanvasData) Clone() CanvasData {
	out := CanvasData{Flat: c.Flat.Clone()}
	if c.Surfaces != nil {
		out.Surfaces = make(map[string]ObjectList, len(c.Surfaces))
		for k, v := range c.Surfaces {
			out.Surfaces[k] = v.Clone()
		}
	}
	return out
}

func (c CanvasData) MarshalJSON() ([]byte, error) {
	if c.IsSurfaceKeyed() {
		return json.Marshal(c.Surfaces)
	}
	return json.Marshal(c.Flat)
}

// UnmarshalJSON accepts a flat array, a surface map, or a serialized-canvas
// object of the form {"objects": [...]} (treated as flat).
func (c *CanvasData) UnmarshalJSON(data []byte) error {
	*c = CanvasData{}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if trimmed[0] == '[' {
		return json.Unmarshal(trimmed, &c.Flat)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return err
	}
	if objs, ok := raw["objects"]; ok {
		l, err := decodeList(objs)
		if err != nil {
			return err
		}
		c.Flat = l
		if c.Flat == nil {
			c.Flat = ObjectList{}
		}
		return nil
	}
	c.Surfaces = make(map[string]ObjectList, len(raw))
	for k, v := range raw {
		l, err := decodeList(v)
		if err != nil {
			return err
		}
		c.Surfaces[k] = l
	}
	return nil
}

// decodeList decodes either a bare array or a {"objects": [...]} wrapper.
func decodeList(data json.RawMessage) (ObjectList, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	var l ObjectList
	if trimmed[0] == '{' {
		var wrap struct {
			Objects ObjectList `json:"objects"`
		}
		if err := json.Unmarshal(trimmed, &wrap); err != nil {
			return nil, err
		}
		return wrap.Objects, nil
	}
	if err := json.Unmarshal(trimmed, &l); err != nil {
		return nil, err
	}
	return l, nil
}

// DesignDocument is the persisted unit of a design.
//
// CanvasViewStates is the render-faithful encoding, read only by the headless
// reproducer; consumers must not assume it is present.
type DesignDocument struct {
	ID               string                `json:"id,omitempty"`
	Name             string                `json:"name"`
	UserID           string                `json:"userId,omitempty"`
	Type             DocType               `json:"type"`
	CreatedAt        *time.Time            `json:"createdAt,omitempty"`
	UpdatedAt        time.Time             `json:"updatedAt"`
	CanvasData       CanvasData            `json:"canvasData"`
	CanvasViewStates map[string]ObjectList `json:"canvasViewStates,omitempty"`
	ProductConfig    *ProductConfig        `json:"productConfig,omitempty"`
	EditorCanvas     *Size                 `json:"editorCanvas,omitempty"`
	ImageData        string                `json:"imageData,omitempty"`
	ThumbnailURL     string                `json:"thumbnailUrl,omitempty"`
	Category         string                `json:"category,omitempty"`
}

// PreferredSurface is the active surface recorded in the product binding, or "front".
func (d *DesignDocument) PreferredSurface() string {
	if d.ProductConfig != nil && d.ProductConfig.ActiveSurface != "" {
		return d.ProductConfig.ActiveSurface
	}
	return DefaultSurface
}

// DpiStatus classifies print-resolution adequacy.
type DpiStatus string

const (
	DpiGood    DpiStatus = "good"
	DpiWarning DpiStatus = "warning"
	DpiPoor    DpiStatus = "poor"
)

// ParseDpiStatus parses a lower-case status name.
func ParseDpiStatus(s string) (DpiStatus, error) {
	switch DpiStatus(strings.ToLower(strings.TrimSpace(s))) {
	case DpiGood:
		return DpiGood, nil
	case DpiWarning:
		return DpiWarning, nil
	case DpiPoor:
		return DpiPoor, nil
	default:
		return "", &ParseError{Type: "DpiStatus", Value: s}
	}
}

// DpiRecord is the print-quality verdict for one image object.
type DpiRecord struct {
	ID      string    `json:"id"`
	Src     string    `json:"src"`
	DPI     int       `json:"dpi"`
	Status  DpiStatus `json:"status"`
	Message string    `json:"message"`
}
