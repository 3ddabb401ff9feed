/*
 * Copyright (c) 2025 by TRYAM193 and the Design Studio contributors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package design holds the object model of a user's design: placed canvas objects,
// per-surface object lists and the persisted design document.
//
// Z-order is implicit in every ObjectList: index 0 is the bottom-most object and
// the tail is the top-most one.
package design

import (
	"encoding/json"

	"github.com/google/uuid"
)

// ObjectType is the variant tag of a CanvasObject.
type ObjectType string

const (
	TypeImage    ObjectType = "image"
	TypeText     ObjectType = "text"
	TypeIText    ObjectType = "i-text"
	TypeTextbox  ObjectType = "textbox"
	TypeRect     ObjectType = "rect"
	TypeCircle   ObjectType = "circle"
	TypeEllipse  ObjectType = "ellipse"
	TypeTriangle ObjectType = "triangle"
	TypeLine     ObjectType = "line"
	TypePath     ObjectType = "path"
)

// IsText reports whether objects of this type carry a "text" prop.
func (t ObjectType) IsText() bool {
	return t == TypeText || t == TypeIText || t == TypeTextbox
}

// Well-known prop keys.
const (
	PropLeft              = "left"
	PropTop               = "top"
	PropWidth             = "width"
	PropHeight            = "height"
	PropScaleX            = "scaleX"
	PropScaleY            = "scaleY"
	PropAngle             = "angle"
	PropOpacity           = "opacity"
	PropFill              = "fill"
	PropStroke            = "stroke"
	PropStrokeWidth       = "strokeWidth"
	PropFlipX             = "flipX"
	PropFlipY             = "flipY"
	PropVisible           = "visible"
	PropShadow            = "shadow"
	PropSrc               = "src"
	PropText              = "text"
	PropFontFamily        = "fontFamily"
	PropFontSize          = "fontSize"
	PropFontWeight        = "fontWeight"
	PropTextAlign         = "textAlign"
	PropRadius            = "radius"
	PropRx                = "rx"
	PropRy                = "ry"
	PropPath              = "path"
	PropLockMovementX     = "lockMovementX"
	PropLockMovementY     = "lockMovementY"
	PropLockRotation      = "lockRotation"
	PropLockScalingX      = "lockScalingX"
	PropLockScalingY      = "lockScalingY"
	PropHasControls       = "hasControls"
	PropExcludeFromExport = "excludeFromExport"
	PropNaturalWidth      = "naturalWidth"
	PropNaturalHeight     = "naturalHeight"
)

// LockProps are the flags toggled together when an object is locked.
var LockProps = []string{PropLockMovementX, PropLockMovementY, PropLockRotation, PropLockScalingX, PropLockScalingY}

// PrintAreaBorderID is the id of the editor-only print-area outline object.
const PrintAreaBorderID = "print-area-border"

// DuplicateOffset is the left/top shift applied to copies so they are distinguishable from their source.
const DuplicateOffset = 20.0

// NewID returns a fresh object/document identifier.
func NewID() string { return uuid.NewString() }

// CanvasObject is one placed element.
type CanvasObject struct {
	ID       string     `json:"id"`
	CustomID string     `json:"customId,omitempty"`
	Type     ObjectType `json:"type"`
	Props    Props      `json:"props"`
}

// Clone returns a deep copy.
func (o CanvasObject) Clone() CanvasObject {
	o.Props = o.Props.Clone()
	return o
}

// IsScaffolding reports whether the object exists only for the editor and must never be persisted or exported.
func (o CanvasObject) IsScaffolding() bool {
	return o.ID == PrintAreaBorderID || o.Props.Bool(PropExcludeFromExport)
}

// Key is the identity used for cross references such as the DPI registry.
func (o CanvasObject) Key() string {
	if o.CustomID != "" {
		return o.CustomID
	}
	return o.ID
}

// Offset returns a copy moved by dx/dy.
func (o CanvasObject) Offset(dx, dy float64) CanvasObject {
	c := o.Clone()
	if c.Props == nil {
		c.Props = Props{}
	}
	c.Props[PropLeft] = c.Props.Float(PropLeft, 0) + dx
	c.Props[PropTop] = c.Props.Float(PropTop, 0) + dy
	return c
}

// Reidentify returns a copy with a fresh id and customId.
func (o CanvasObject) Reidentify(newID func() string) CanvasObject {
	c := o.Clone()
	c.ID = newID()
	c.CustomID = newID()
	return c
}

// ObjectList is the ordered content of one surface.
type ObjectList []CanvasObject

// Clone returns a deep copy; nil stays nil.
func (l ObjectList) Clone() ObjectList {
	if l == nil {
		return nil
	}
	out := make(ObjectList, len(l))
	for i, o := range l {
		out[i] = o.Clone()
	}
	return out
}

// IndexOf returns the position of id, or -1.
func (l ObjectList) IndexOf(id string) int {
	for i, o := range l {
		if o.ID == id {
			return i
		}
	}
	return -1
}

// Find returns the object with id.
func (l ObjectList) Find(id string) (CanvasObject, bool) {
	if i := l.IndexOf(id); i >= 0 {
		return l[i], true
	}
	return CanvasObject{}, false
}

// WithoutScaffolding returns a deep copy without editor-only objects.
func (l ObjectList) WithoutScaffolding() ObjectList {
	out := make(ObjectList, 0, len(l))
	for _, o := range l {
		if !o.IsScaffolding() {
			out = append(out, o.Clone())
		}
	}
	return out
}

// MarshalJSON writes nil lists as [] so consumers never see null surfaces.
func (l ObjectList) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]CanvasObject(l))
}
