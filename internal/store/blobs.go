/*
 * Copyright (c) 2025 by TRYAM193 and the Design Studio contributors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Dir is a directory-backed BinaryStorage. Uploaded blobs are addressed by
// BaseURL joined with their slash-separated path.
type Dir struct {
	Root    string
	BaseURL string
}

// NewDir returns a Dir rooted at root.
func NewDir(root, baseURL string) (*Dir, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("store: blob root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("store: create blob root: %w", err)
	}
	return &Dir{Root: root, BaseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Upload writes data to path and returns its URL. Existing blobs are replaced.
func (d *Dir) Upload(ctx context.Context, path string, data []byte) (string, error) {
	path = strings.TrimLeft(path, "/")
	if err := validCollection(path); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	target := d.FilePath(path)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("store: create blob dir: %w", err)
	}
	temp := target + ".tmp"
	if err := writeFileSync(temp, data); err != nil {
		return "", fmt.Errorf("store: write blob: %w", err)
	}
	if err := os.Rename(temp, target); err != nil {
		_ = os.Remove(temp)
		return "", fmt.Errorf("store: replace blob: %w", err)
	}
	return d.URL(path), nil
}

// FilePath maps a blob path to its location on disk.
func (d *Dir) FilePath(path string) string {
	return filepath.Join(d.Root, filepath.FromSlash(path))
}

// URL returns the public URL of a blob path.
func (d *Dir) URL(path string) string {
	if d.BaseURL == "" {
		return "file://" + filepath.ToSlash(d.FilePath(path))
	}
	return d.BaseURL + "/" + path
}
