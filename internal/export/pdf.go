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
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// PDFOptions controls PDF print files. The page is the physical print area:
// pixel size divided by DPI, in inches.
//
// IncludeGuides draws a hairline around the print area, which is useful for
// proofs but must be off for production files.
type PDFOptions struct {
	DPI           int
	Title         string
	Author        string
	IncludeGuides bool
	GuideColor    color.NRGBA
	Created       time.Time
}

// EncodePDF places img on a single page sized to its physical dimensions.
func EncodePDF(img image.Image, opt PDFOptions) ([]byte, error) {
	if img == nil {
		return nil, errors.New("export: nil image")
	}
	dpi := opt.DPI
	if dpi <= 0 {
		dpi = ReferenceDPI
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("export: empty image %v", b)
	}
	wIn := float64(b.Dx()) / float64(dpi)
	hIn := float64(b.Dy()) / float64(dpi)

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "in",
		Size:    gofpdf.SizeType{Wd: wIn, Ht: hIn},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	if opt.Title != "" {
		pdf.SetTitle(opt.Title, true)
	}
	author := opt.Author
	if author == "" {
		author = "Design Studio"
	}
	pdf.SetAuthor(author, true)
	created := opt.Created
	if created.IsZero() {
		created = time.Now()
	}
	pdf.SetCreationDate(created)
	pdf.AddPageFormat("P", gofpdf.SizeType{Wd: wIn, Ht: hIn})

	// The image goes in losslessly; gofpdf keeps the alpha channel as a soft mask.
	raw, err := EncodePNG(img, dpi)
	if err != nil {
		return nil, err
	}
	iopt := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("surface", iopt, bytes.NewReader(raw))
	pdf.ImageOptions("surface", 0, 0, wIn, hIn, false, iopt, 0, "")

	if opt.IncludeGuides {
		gc := opt.GuideColor
		if gc == (color.NRGBA{}) {
			gc = color.NRGBA{R: 255, A: 255}
		}
		pdf.SetDrawColor(int(gc.R), int(gc.G), int(gc.B))
		pdf.SetLineWidth(0.2 / 72)
		pdf.Rect(0, 0, wIn, hIn, "D")
	}

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, fmt.Errorf("export: write pdf: %w", err)
	}
	return out.Bytes(), nil
}
