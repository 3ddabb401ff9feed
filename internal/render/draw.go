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
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/fogleman/gg"

	"github.com/TRYAM193/design-studio-sub000/internal/design"
)

const (
	defaultFontSize   = 40.0
	defaultFontFamily = "Times New Roman"
	defaultLineHeight = 1.16
	defaultFill       = "rgb(0,0,0)"
)

// Prop keys only the renderer reads.
const (
	propOriginX    = "originX"
	propOriginY    = "originY"
	propFontStyle  = "fontStyle"
	propLineHeight = "lineHeight"
	propPathOffset = "pathOffset"
	propX1         = "x1"
	propY1         = "y1"
	propX2         = "x2"
	propY2         = "y2"
)

func originFactor(v string, lo, hi string) float64 {
	switch v {
	case lo:
		return 0
	case hi:
		return 1
	case "center":
		return 0.5
	}
	return 0
}

// objectSize returns the untransformed width and height of an object.
func objectSize(o design.CanvasObject, img image.Image) (float64, float64) {
	p := o.Props
	w, h := p.Float(design.PropWidth, 0), p.Float(design.PropHeight, 0)
	switch o.Type {
	case design.TypeCircle:
		r := p.Float(design.PropRadius, 0)
		if w == 0 {
			w = 2 * r
		}
		if h == 0 {
			h = 2 * r
		}
	case design.TypeEllipse:
		if w == 0 {
			w = 2 * p.Float(design.PropRx, 0)
		}
		if h == 0 {
			h = 2 * p.Float(design.PropRy, 0)
		}
	case design.TypeLine:
		if w == 0 {
			w = math.Abs(p.Float(propX2, 0) - p.Float(propX1, 0))
		}
		if h == 0 {
			h = math.Abs(p.Float(propY2, 0) - p.Float(propY1, 0))
		}
	case design.TypeImage:
		if img != nil {
			if w == 0 {
				w = float64(img.Bounds().Dx())
			}
			if h == 0 {
				h = float64(img.Bounds().Dy())
			}
		}
	}
	return w, h
}

// drawObject paints o on dc. scale is the surface scale already applied to dc.
func (s *Surface) drawObject(dc *gg.Context, o design.CanvasObject, scale float64) error {
	p := o.Props
	if !p.BoolOr(design.PropVisible, true) {
		return nil
	}
	opacity := p.Float(design.PropOpacity, 1)
	if opacity <= 0 {
		return nil
	}
	img := s.bitmaps[o.ID]
	if o.Type.IsText() {
		if err := s.measureText(&p); err != nil {
			return err
		}
		o.Props = p
	}
	w, h := objectSize(o, img)
	scaleX, scaleY := p.Float(design.PropScaleX, 1), p.Float(design.PropScaleY, 1)
	sx, sy := scaleX, scaleY
	if p.Bool(design.PropFlipX) {
		sx = -sx
	}
	if p.Bool(design.PropFlipY) {
		sy = -sy
	}
	ox := originFactor(p.StringOr(propOriginX, "left"), "left", "right")
	oy := originFactor(p.StringOr(propOriginY, "top"), "top", "bottom")

	dc.Push()
	defer dc.Pop()
	dc.Translate(p.Float(design.PropLeft, 0), p.Float(design.PropTop, 0))
	dc.Rotate(gg.Radians(p.Float(design.PropAngle, 0)))
	dc.Translate((0.5-ox)*w*math.Abs(scaleX), (0.5-oy)*h*math.Abs(scaleY))
	if sx == 0 || sy == 0 {
		return nil
	}
	dc.Scale(sx, sy)
	k := scale * math.Sqrt(math.Abs(scaleX*scaleY))

	switch o.Type {
	case design.TypeImage:
		if img == nil || w <= 0 || h <= 0 {
			return nil
		}
		b := img.Bounds()
		dc.Push()
		dc.Translate(-w/2, -h/2)
		dc.Scale(w/float64(b.Dx()), h/float64(b.Dy()))
		dc.DrawImage(withAlpha(img, opacity), 0, 0)
		dc.Pop()
		return nil
	case design.TypeText, design.TypeIText, design.TypeTextbox:
		return s.drawText(dc, o, p, w, h, k, opacity)
	case design.TypeRect:
		rx := p.Float(design.PropRx, 0)
		if rx > 0 {
			dc.DrawRoundedRectangle(-w/2, -h/2, w, h, rx)
		} else {
			dc.DrawRectangle(-w/2, -h/2, w, h)
		}
	case design.TypeCircle:
		dc.DrawEllipse(0, 0, w/2, h/2)
	case design.TypeEllipse:
		dc.DrawEllipse(0, 0, w/2, h/2)
	case design.TypeTriangle:
		dc.MoveTo(-w/2, h/2)
		dc.LineTo(0, -h/2)
		dc.LineTo(w/2, h/2)
		dc.ClosePath()
	case design.TypeLine:
		x1, y1, x2, y2 := p.Float(propX1, 0), p.Float(propY1, 0), p.Float(propX2, 0), p.Float(propY2, 0)
		cx, cy := (x1+x2)/2, (y1+y2)/2
		dc.MoveTo(x1-cx, y1-cy)
		dc.LineTo(x2-cx, y2-cy)
		stroke, ok := paint(p[design.PropStroke])
		if !ok {
			stroke, ok = paint(p[design.PropFill])
		}
		if ok {
			dc.SetColor(withOpacity(stroke, opacity))
			dc.SetLineWidth(p.Float(design.PropStrokeWidth, 1) * k)
			dc.Stroke()
		}
		dc.ClearPath()
		return nil
	case design.TypePath:
		ops, err := parsePath(p[design.PropPath])
		if err != nil {
			return fmt.Errorf("object %s: %w", o.ID, err)
		}
		cx, cy := pathCenter(p, ops)
		appendPath(dc, ops, cx, cy)
	default:
		return nil
	}
	s.fillAndStroke(dc, p, k, opacity)
	return nil
}

func pathCenter(p design.Props, ops []pathOp) (float64, float64) {
	if off, ok := p[propPathOffset].(map[string]any); ok {
		po := design.Props(off)
		return po.Float("x", 0), po.Float("y", 0)
	}
	minX, minY, maxX, maxY := pathBounds(ops)
	return (minX + maxX) / 2, (minY + maxY) / 2
}

func appendPath(dc *gg.Context, ops []pathOp, cx, cy float64) {
	for _, op := range ops {
		a := op.args
		switch op.cmd {
		case 'M':
			dc.MoveTo(a[0]-cx, a[1]-cy)
		case 'L':
			dc.LineTo(a[0]-cx, a[1]-cy)
		case 'Q':
			dc.QuadraticTo(a[0]-cx, a[1]-cy, a[2]-cx, a[3]-cy)
		case 'C':
			dc.CubicTo(a[0]-cx, a[1]-cy, a[2]-cx, a[3]-cy, a[4]-cx, a[5]-cy)
		case 'Z':
			dc.ClosePath()
		}
	}
}

func (s *Surface) fillAndStroke(dc *gg.Context, p design.Props, k, opacity float64) {
	fillVal, hasFill := p[design.PropFill]
	if !hasFill {
		fillVal = defaultFill
	}
	if fill, ok := paint(fillVal); ok {
		dc.SetColor(withOpacity(fill, opacity))
		dc.FillPreserve()
	}
	if stroke, ok := paint(p[design.PropStroke]); ok {
		if sw := p.Float(design.PropStrokeWidth, 1); sw > 0 {
			dc.SetColor(withOpacity(stroke, opacity))
			dc.SetLineWidth(sw * k)
			dc.StrokePreserve()
		}
	}
	dc.ClearPath()
}

// measureText fills in width/height for text objects that do not carry them.
func (s *Surface) measureText(p *design.Props) error {
	if p.Float(design.PropWidth, 0) > 0 && p.Float(design.PropHeight, 0) > 0 {
		return nil
	}
	spec := textFontSpec(*p, 1)
	face, err := s.fonts.Face(spec)
	if err != nil {
		return err
	}
	mc := gg.NewContext(1, 1)
	mc.SetFontFace(face)
	text, _ := p.String(design.PropText)
	lines := strings.Split(text, "\n")
	maxW := 0.0
	for _, l := range lines {
		lw, _ := mc.MeasureString(l)
		maxW = max(maxW, lw)
	}
	np := p.Clone()
	if np.Float(design.PropWidth, 0) <= 0 {
		np[design.PropWidth] = maxW
	}
	if np.Float(design.PropHeight, 0) <= 0 {
		np[design.PropHeight] = float64(len(lines)) * spec.Size * np.Float(propLineHeight, defaultLineHeight)
	}
	*p = np
	return nil
}

// drawText renders text lines inside the local box. Glyphs are rasterized at
// the effective pixel size k, then placed with the rotation of the current matrix.
func (s *Surface) drawText(dc *gg.Context, o design.CanvasObject, p design.Props, w, h, k, opacity float64) error {
	text, _ := p.String(design.PropText)
	if text == "" || k <= 0 {
		return nil
	}
	fillVal, hasFill := p[design.PropFill]
	if !hasFill {
		fillVal = defaultFill
	}
	fill, ok := paint(fillVal)
	if !ok {
		return nil
	}
	spec := textFontSpec(p, k)
	face, err := s.fonts.Face(spec)
	if err != nil {
		return err
	}
	dc.Push()
	defer dc.Pop()
	dc.Scale(1/k, 1/k)
	dc.SetFontFace(face)
	dc.SetColor(withOpacity(fill, opacity))

	var lines []string
	for _, para := range strings.Split(text, "\n") {
		if o.Type == design.TypeTextbox && w > 0 {
			wrapped := dc.WordWrap(para, w*k)
			if len(wrapped) == 0 {
				wrapped = []string{""}
			}
			lines = append(lines, wrapped...)
			continue
		}
		lines = append(lines, para)
	}
	lineH := spec.Size * p.Float(propLineHeight, defaultLineHeight)
	ascent := float64(face.Metrics().Ascent.Round())
	x, ax := -w/2*k, 0.0
	switch p.StringOr(design.PropTextAlign, "left") {
	case "center":
		x, ax = 0, 0.5
	case "right":
		x, ax = w/2*k, 1
	}
	top := -h / 2 * k
	for i, line := range lines {
		dc.DrawStringAnchored(line, x, top+float64(i)*lineH+ascent, ax, 0)
	}
	return nil
}
