/*
 * Copyright (c) 2025 by TRYAM193 and the Design Studio contributors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package export turns rendered surfaces into print files: PNG with physical
// resolution metadata, single-page PDF sized to the print area, and zip bundles.
package export

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"image"
	"image/png"
	"math"
	"math/rand"
	"os"
	"path/filepath"
)

// ReferenceDPI is the resolution print areas are expressed in.
const ReferenceDPI = 300

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

// EncodePNG encodes img and records dpi in a pHYs chunk so print tools pick
// up the physical size. dpi <= 0 uses ReferenceDPI.
func EncodePNG(img image.Image, dpi int) ([]byte, error) {
	if img == nil {
		return nil, errors.New("export: nil image")
	}
	if dpi <= 0 {
		dpi = ReferenceDPI
	}
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("export: encode png: %w", err)
	}
	return insertPHYs(buf.Bytes(), dpi)
}

// insertPHYs places a pHYs chunk right after IHDR.
func insertPHYs(data []byte, dpi int) ([]byte, error) {
	const ihdrEnd = 8 + 4 + 4 + 13 + 4
	if len(data) < ihdrEnd || !bytes.Equal(data[:8], pngSignature) {
		return nil, errors.New("export: not a png stream")
	}
	ppm := uint32(math.Round(float64(dpi) / 0.0254))
	body := make([]byte, 4+9)
	copy(body, "pHYs")
	binary.BigEndian.PutUint32(body[4:], ppm)
	binary.BigEndian.PutUint32(body[8:], ppm)
	body[12] = 1 // unit: metre
	chunk := make([]byte, 0, 4+len(body)+4)
	chunk = binary.BigEndian.AppendUint32(chunk, 9)
	chunk = append(chunk, body...)
	chunk = binary.BigEndian.AppendUint32(chunk, crc32.ChecksumIEEE(body))

	out := make([]byte, 0, len(data)+len(chunk))
	out = append(out, data[:ihdrEnd]...)
	out = append(out, chunk...)
	out = append(out, data[ihdrEnd:]...)
	return out, nil
}

// PNGDPI reads the resolution stored by EncodePNG; ok is false without a pHYs chunk.
func PNGDPI(data []byte) (dpi int, ok bool) {
	if len(data) < 8 || !bytes.Equal(data[:8], pngSignature) {
		return 0, false
	}
	for p := 8; p+12 <= len(data); {
		n := int(binary.BigEndian.Uint32(data[p:]))
		typ := string(data[p+4 : p+8])
		if typ == "pHYs" && n == 9 && p+8+n <= len(data) {
			ppm := binary.BigEndian.Uint32(data[p+8:])
			return int(math.Round(float64(ppm) * 0.0254)), true
		}
		if typ == "IDAT" {
			return 0, false
		}
		p += 12 + n
	}
	return 0, false
}

// WriteFile writes data to path transactionally: a temp file in the same
// directory is synced and renamed over the target.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", filepath.Base(path), os.Getpid(), rand.Int()))
	f, err := os.OpenFile(temp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(temp)
		return fmt.Errorf("write temp: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(temp)
		return fmt.Errorf("sync temp: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(temp, path); err != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
