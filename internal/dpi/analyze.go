/*
 * Copyright (c) 2025 by TRYAM193 and the Design Studio contributors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package dpi computes print-resolution adequacy of placed images and keeps the
// per-session registry that gates irreversible actions such as checkout.
package dpi

import (
	"fmt"
	"math"

	"github.com/TRYAM193/design-studio-sub000/internal/design"
)

// ReferencePPI is the nominal resolution print areas are authored at.
const ReferencePPI = 300.0

// Thresholds for the status classification.
const (
	PoorBelow    = 150
	WarningBelow = 300
)

// Extent is an image's native pixel size and its current rendered size on the editing canvas.
type Extent struct {
	NativeW, NativeH float64
	ScaledW, ScaledH float64
}

// Analyze returns the DPI record for an image object, or nil when obj is not an
// image or any size input is not positive.
func Analyze(obj design.CanvasObject, ext Extent, canvas, printArea design.Size) *design.DpiRecord {
	if obj.Type != design.TypeImage {
		return nil
	}
	for _, v := range []float64{ext.NativeW, ext.NativeH, ext.ScaledW, ext.ScaledH, canvas.Width, canvas.Height, printArea.Width, printArea.Height} {
		if !(v > 0) || math.IsInf(v, 0) {
			return nil
		}
	}
	inchesPerPxX := (printArea.Width / ReferencePPI) / canvas.Width
	inchesPerPxY := (printArea.Height / ReferencePPI) / canvas.Height
	dpiX := ext.NativeW / (ext.ScaledW * inchesPerPxX)
	dpiY := ext.NativeH / (ext.ScaledH * inchesPerPxY)
	dpi := int(math.Round(math.Min(dpiX, dpiY)))

	src, _ := obj.Props.String(design.PropSrc)
	status := Classify(dpi)
	return &design.DpiRecord{
		ID:      obj.Key(),
		Src:     src,
		DPI:     dpi,
		Status:  status,
		Message: message(status, dpi),
	}
}

// Classify maps a DPI value to its status.
func Classify(dpi int) design.DpiStatus {
	switch {
	case dpi < PoorBelow:
		return design.DpiPoor
	case dpi < WarningBelow:
		return design.DpiWarning
	default:
		return design.DpiGood
	}
}

func message(s design.DpiStatus, dpi int) string {
	switch s {
	case design.DpiPoor:
		return fmt.Sprintf("Low resolution (%d DPI): this image will print blurry. Use a larger image or make it smaller on the product.", dpi)
	case design.DpiWarning:
		return fmt.Sprintf("Medium resolution (%d DPI): this image may look soft when printed.", dpi)
	default:
		return fmt.Sprintf("Good resolution (%d DPI).", dpi)
	}
}
