/*
 * Copyright (c) 2025 by TRYAM193 and the Design Studio contributors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"image"
	"path/filepath"
	"strings"

	xdraw "golang.org/x/image/draw"
)

// PresetName represents a named export preset.
type PresetName string

const (
	// PresetPrint produces production print files.
	PresetPrint PresetName = "print"
	// PresetProof adds print-area guides for customer approval.
	PresetProof PresetName = "proof"
	// PresetWeb produces a small preview image.
	PresetWeb PresetName = "web"
)

// PreviewMaxWidth bounds the width of web preset previews.
const PreviewMaxWidth = 1024

// ParsePreset parses a preset name; empty means print.
func ParsePreset(s string) (PresetName, error) {
	switch p := PresetName(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PresetPrint, nil
	case PresetPrint, PresetProof, PresetWeb:
		return p, nil
	}
	return "", fmt.Errorf("unknown export preset %q", s)
}

// BatchOptions selects what Produce generates for one surface.
type BatchOptions struct {
	Preset        PresetName
	Formats       []string // png, pdf; empty means preset defaults
	DPI           int
	IncludeGuides *bool
	BaseName      string // file name stem, e.g. "<design>-<surface>"
	Title         string
}

// Artifact is one produced file.
type Artifact struct {
	Format string
	Name   string
	Data   []byte
}

// Produce encodes img according to the preset.
func Produce(img image.Image, opt BatchOptions) ([]Artifact, error) {
	if img == nil {
		return nil, fmt.Errorf("export: nil image")
	}
	formats := opt.Formats
	if len(formats) == 0 {
		formats = presetDefaultFormats(opt.Preset)
	}
	guides := presetIncludeGuides(opt.Preset)
	if opt.IncludeGuides != nil {
		guides = *opt.IncludeGuides
	}
	base := opt.BaseName
	if base == "" {
		base = "design"
	}
	src := img
	if opt.Preset == PresetWeb {
		src = downscale(img, PreviewMaxWidth)
	}
	var out []Artifact
	for _, f := range formats {
		f = strings.ToLower(strings.TrimSpace(f))
		switch f {
		case "png":
			data, err := EncodePNG(src, opt.DPI)
			if err != nil {
				return nil, err
			}
			out = append(out, Artifact{Format: f, Name: base + ".png", Data: data})
		case "pdf":
			data, err := EncodePDF(src, PDFOptions{DPI: opt.DPI, Title: opt.Title, IncludeGuides: guides})
			if err != nil {
				return nil, err
			}
			out = append(out, Artifact{Format: f, Name: base + ".pdf", Data: data})
		default:
			return nil, fmt.Errorf("unknown format: %s", f)
		}
	}
	return out, nil
}

// WriteAll writes artifacts into dir and returns their paths.
func WriteAll(dir string, arts []Artifact) ([]string, error) {
	paths := make([]string, 0, len(arts))
	for _, a := range arts {
		p := filepath.Join(dir, a.Name)
		if err := WriteFile(p, a.Data); err != nil {
			return paths, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

func downscale(img image.Image, maxW int) image.Image {
	b := img.Bounds()
	if b.Dx() <= maxW {
		return img
	}
	h := max(1, b.Dy()*maxW/b.Dx())
	dst := image.NewRGBA(image.Rect(0, 0, maxW, h))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, xdraw.Over, nil)
	return dst
}

func presetDefaultFormats(p PresetName) []string {
	switch p {
	case PresetWeb:
		return []string{"png"}
	case PresetProof:
		return []string{"pdf"}
	default:
		return []string{"png", "pdf"}
	}
}

func presetIncludeGuides(p PresetName) bool {
	return p == PresetProof
}
