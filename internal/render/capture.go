/*
 * Copyright (c) 2025 by TRYAM193 and the Design Studio contributors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package render

import (
	"github.com/TRYAM193/design-studio-sub000/internal/design"
)

// Capture produces the render-faithful encoding of list: editor-only objects
// are dropped, every prop the renderer reads is materialized, and positions
// and scales are converted from canvas space into print-area pixel space.
// The result shares nothing with list.
func Capture(list design.ObjectList, canvas, printArea design.Size) design.ObjectList {
	k := 1.0
	if canvas.Valid() && printArea.Valid() {
		k = printArea.Width / canvas.Width
	}
	out := make(design.ObjectList, 0, len(list))
	for _, o := range list {
		if o.IsScaffolding() {
			continue
		}
		c := o.Clone()
		if c.Props == nil {
			c.Props = design.Props{}
		}
		materialize(&c)
		p := c.Props
		p[design.PropLeft] = p.Float(design.PropLeft, 0) * k
		p[design.PropTop] = p.Float(design.PropTop, 0) * k
		p[design.PropScaleX] = p.Float(design.PropScaleX, 1) * k
		p[design.PropScaleY] = p.Float(design.PropScaleY, 1) * k
		out = append(out, c)
	}
	return out
}

func materialize(o *design.CanvasObject) {
	p := o.Props
	setDefault := func(key string, v any) {
		if _, ok := p[key]; !ok {
			p[key] = v
		}
	}
	setDefault(design.PropLeft, 0.0)
	setDefault(design.PropTop, 0.0)
	setDefault(design.PropScaleX, 1.0)
	setDefault(design.PropScaleY, 1.0)
	setDefault(design.PropAngle, 0.0)
	setDefault(design.PropOpacity, 1.0)
	setDefault(design.PropFlipX, false)
	setDefault(design.PropFlipY, false)
	setDefault(design.PropVisible, true)
	setDefault(propOriginX, "left")
	setDefault(propOriginY, "top")
	setDefault(design.PropStrokeWidth, 1.0)
	switch {
	case o.Type == design.TypeImage:
		setDefault(design.PropNaturalWidth, p.Float(design.PropWidth, 0))
		setDefault(design.PropNaturalHeight, p.Float(design.PropHeight, 0))
	case o.Type.IsText():
		setDefault(design.PropFill, defaultFill)
		setDefault(design.PropFontSize, defaultFontSize)
		setDefault(design.PropFontFamily, defaultFontFamily)
		setDefault(design.PropFontWeight, "normal")
		setDefault(propFontStyle, "normal")
		setDefault(design.PropTextAlign, "left")
		setDefault(propLineHeight, defaultLineHeight)
		if _, ok := p[design.PropText].(string); !ok {
			p[design.PropText] = ""
		}
	case o.Type == design.TypePath:
		setDefault(design.PropFill, defaultFill)
		if ops, err := parsePath(p[design.PropPath]); err == nil {
			if _, ok := p[propPathOffset]; !ok {
				cx, cy := pathCenter(p, ops)
				p[propPathOffset] = map[string]any{"x": cx, "y": cy}
			}
			p[design.PropPath] = pathString(ops)
		}
	default:
		setDefault(design.PropFill, defaultFill)
	}
}
