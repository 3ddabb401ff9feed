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
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// BundleManifest describes the files of a print bundle.
type BundleManifest struct {
	DesignID string          `json:"designId"`
	Created  time.Time       `json:"created"`
	Files    []BundleFileRef `json:"files"`
}

// BundleFileRef is one manifest entry.
type BundleFileRef struct {
	Name    string `json:"name"`
	Surface string `json:"surface"`
	Format  string `json:"format"`
	Bytes   int    `json:"bytes"`
}

// Bundle packages print files of several surfaces into one zip archive with a
// manifest.json, the unit handed to a print shop.
func Bundle(designID string, bySurface map[string][]Artifact, created time.Time) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	man := BundleManifest{DesignID: designID, Created: created.UTC()}
	for _, surface := range sortedSurfaces(bySurface) {
		for _, a := range bySurface[surface] {
			name := surface + "/" + a.Name
			if err := addZipFile(zw, name, a.Data, created); err != nil {
				return nil, err
			}
			man.Files = append(man.Files, BundleFileRef{Name: name, Surface: surface, Format: a.Format, Bytes: len(a.Data)})
		}
	}
	mb, err := json.MarshalIndent(man, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	if err := addZipFile(zw, "manifest.json", mb, created); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close zip: %w", err)
	}
	return buf.Bytes(), nil
}

func addZipFile(zw *zip.Writer, name string, data []byte, modified time.Time) error {
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: modified})
	if err != nil {
		return fmt.Errorf("zip add %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("zip write %s: %w", name, err)
	}
	return nil
}

func sortedSurfaces(m map[string][]Artifact) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return surfaceLess(keys[i], keys[j]) })
	return keys
}

// surfaceLess orders "front" first, the rest alphabetically.
func surfaceLess(a, b string) bool {
	if a == "front" || b == "front" {
		return a == "front" && b != "front"
	}
	return a < b
}
