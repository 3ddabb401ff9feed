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
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"

	"github.com/TRYAM193/design-studio-sub000/internal/design"
	applog "github.com/TRYAM193/design-studio-sub000/internal/log"
)

// FontSpec selects a face. Size is in pixels.
type FontSpec struct {
	Family string
	Bold   bool
	Italic bool
	Size   float64
}

type fontKey struct {
	family string
	bold   bool
	italic bool
}

type faceKey struct {
	fontKey
	size float64
}

// FontLibrary stores loaded OpenType fonts by family and style. Families that
// are not loaded resolve to the built-in Go fonts, so output never depends on
// which fonts the host happens to have installed.
type FontLibrary struct {
	mu    sync.Mutex
	fonts map[fontKey]*opentype.Font
	faces map[faceKey]font.Face
}

func NewFontLibrary() *FontLibrary {
	return &FontLibrary{fonts: map[fontKey]*opentype.Font{}, faces: map[faceKey]font.Face{}}
}

var (
	builtinOnce  sync.Once
	builtinFonts map[fontKey]*opentype.Font
	builtinErr   error
)

func builtins() (map[fontKey]*opentype.Font, error) {
	builtinOnce.Do(func() {
		src := map[fontKey][]byte{
			{family: "go"}:                           goregular.TTF,
			{family: "go", bold: true}:               gobold.TTF,
			{family: "go", italic: true}:             goitalic.TTF,
			{family: "go", bold: true, italic: true}: gobolditalic.TTF,
		}
		builtinFonts = make(map[fontKey]*opentype.Font, len(src))
		for k, b := range src {
			f, err := opentype.Parse(b)
			if err != nil {
				builtinErr = fmt.Errorf("parse built-in font: %w", err)
				return
			}
			builtinFonts[k] = f
		}
	})
	return builtinFonts, builtinErr
}

// LoadTTF loads a font file under the given family and style.
func (fl *FontLibrary) LoadTTF(family string, bold, italic bool, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read font %s: %w", path, err)
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return fmt.Errorf("parse font %s: %w", path, err)
	}
	fl.mu.Lock()
	defer fl.mu.Unlock()
	fl.fonts[fontKey{family: normFamily(family), bold: bold, italic: italic}] = f
	return nil
}

// LoadDir loads every .ttf/.otf file in dir. Family and style come from the
// file name: "Roboto-BoldItalic.ttf" is family "Roboto", bold, italic.
func (fl *FontLibrary) LoadDir(dir string) (int, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read font dir: %w", err)
	}
	n := 0
	for _, e := range ents {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".ttf" && ext != ".otf") {
			continue
		}
		family, bold, italic := styleFromName(strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())))
		if err := fl.LoadTTF(family, bold, italic, filepath.Join(dir, e.Name())); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func styleFromName(base string) (family string, bold, italic bool) {
	family, style, found := strings.Cut(base, "-")
	if !found {
		return base, false, false
	}
	style = strings.ToLower(style)
	return family, strings.Contains(style, "bold"), strings.Contains(style, "italic") || strings.Contains(style, "oblique")
}

func normFamily(f string) string {
	f = strings.ToLower(strings.TrimSpace(f))
	return strings.Trim(f, `"'`)
}

// resolve returns the font for spec and whether a built-in fallback was used.
func (fl *FontLibrary) resolve(spec FontSpec) (*opentype.Font, bool, error) {
	want := fontKey{family: normFamily(spec.Family), bold: spec.Bold, italic: spec.Italic}
	fl.mu.Lock()
	if f, ok := fl.fonts[want]; ok {
		fl.mu.Unlock()
		return f, false, nil
	}
	for _, alt := range []fontKey{{want.family, want.bold, false}, {want.family, false, want.italic}, {want.family, false, false}} {
		if f, ok := fl.fonts[alt]; ok {
			fl.mu.Unlock()
			return f, false, nil
		}
	}
	fl.mu.Unlock()
	b, err := builtins()
	if err != nil {
		return nil, true, err
	}
	return b[fontKey{family: "go", bold: want.bold, italic: want.italic}], want.family != "go", nil
}

// Face returns a cached face for spec.
func (fl *FontLibrary) Face(spec FontSpec) (font.Face, error) {
	if spec.Size <= 0 {
		spec.Size = defaultFontSize
	}
	f, _, err := fl.resolve(spec)
	if err != nil {
		return nil, err
	}
	key := faceKey{fontKey{normFamily(spec.Family), spec.Bold, spec.Italic}, spec.Size}
	fl.mu.Lock()
	defer fl.mu.Unlock()
	if face, ok := fl.faces[key]; ok {
		return face, nil
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: spec.Size, DPI: 72, Hinting: font.HintingNone})
	if err != nil {
		return nil, fmt.Errorf("font face %q: %w", spec.Family, err)
	}
	fl.faces[key] = face
	return face, nil
}

// Ensure prepares a face for every text object in list and returns the
// families that had to fall back to the built-in fonts.
func (fl *FontLibrary) Ensure(ctx context.Context, list design.ObjectList) ([]string, error) {
	l := applog.WithOperation(applog.WithComponent("render"), "fonts_ensure")
	seen := map[string]bool{}
	var missing []string
	for _, o := range list {
		if err := ctx.Err(); err != nil {
			return missing, err
		}
		if !o.Type.IsText() {
			continue
		}
		spec := textFontSpec(o.Props, 1)
		if _, err := fl.Face(spec); err != nil {
			return missing, err
		}
		if _, fellBack, _ := fl.resolve(spec); fellBack && !seen[spec.Family] {
			seen[spec.Family] = true
			missing = append(missing, spec.Family)
			l.Debug("font family not loaded, using built-in", slog.String("family", spec.Family))
		}
	}
	return missing, nil
}

func textFontSpec(p design.Props, scale float64) FontSpec {
	weight := p.StringOr(design.PropFontWeight, "")
	bold := weight == "bold" || weight == "bolder" || p.Float(design.PropFontWeight, 400) >= 600
	return FontSpec{
		Family: p.StringOr(design.PropFontFamily, defaultFontFamily),
		Bold:   bold,
		Italic: p.StringOr(propFontStyle, "normal") == "italic",
		Size:   p.Float(design.PropFontSize, defaultFontSize) * scale,
	}
}
