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
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrRemoteDisabled is returned for http(s) sources when remote fetching is off.
var ErrRemoteDisabled = errors.New("render: remote image fetch disabled")

const maxImageBytes = 64 << 20

// ImageLoader resolves the "src" of image objects. Supported sources are data
// URLs, paths relative to AssetRoot (or file:// URLs inside it) and, when
// AllowRemote is set, http(s) URLs.
type ImageLoader struct {
	AssetRoot   string
	AllowRemote bool
	Client      *http.Client
}

// Load fetches and decodes src.
func (il *ImageLoader) Load(ctx context.Context, src string) (image.Image, error) {
	data, err := il.fetch(ctx, src)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("render: decode %s: %w", shortSrc(src), err)
	}
	return img, nil
}

func (il *ImageLoader) fetch(ctx context.Context, src string) ([]byte, error) {
	switch {
	case strings.HasPrefix(src, "data:"):
		return decodeDataURL(src)
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		if !il.AllowRemote {
			return nil, ErrRemoteDisabled
		}
		return il.fetchRemote(ctx, src)
	case strings.HasPrefix(src, "file://"):
		u, err := url.Parse(src)
		if err != nil {
			return nil, fmt.Errorf("render: bad file url: %w", err)
		}
		return il.readAsset(u.Path)
	}
	return il.readAsset(src)
}

func decodeDataURL(src string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(src, "data:"), ",")
	if !ok {
		return nil, errors.New("render: malformed data url")
	}
	if strings.HasSuffix(meta, ";base64") {
		b, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("render: data url: %w", err)
		}
		return b, nil
	}
	s, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("render: data url: %w", err)
	}
	return []byte(s), nil
}

// readAsset reads a file that must live inside AssetRoot.
func (il *ImageLoader) readAsset(p string) ([]byte, error) {
	if il.AssetRoot == "" {
		return nil, fmt.Errorf("render: no asset root configured for %s", shortSrc(p))
	}
	root, err := filepath.Abs(il.AssetRoot)
	if err != nil {
		return nil, err
	}
	target := p
	if !filepath.IsAbs(target) {
		target = filepath.Join(root, filepath.FromSlash(p))
	}
	target = filepath.Clean(target)
	if rel, err := filepath.Rel(root, target); err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("render: %s is outside the asset root", p)
	}
	return os.ReadFile(target)
}

func (il *ImageLoader) fetchRemote(ctx context.Context, src string) ([]byte, error) {
	client := il.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("render: fetch image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("render: fetch image: status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
}

func shortSrc(src string) string {
	if len(src) > 48 {
		return src[:48] + "..."
	}
	return src
}

// withAlpha returns img with its alpha multiplied by opacity.
func withAlpha(img image.Image, opacity float64) image.Image {
	if opacity >= 1 {
		return img
	}
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	mask := image.NewUniform(colorAlpha(opacity))
	draw.DrawMask(out, out.Bounds(), img, b.Min, mask, image.Point{}, draw.Over)
	return out
}
