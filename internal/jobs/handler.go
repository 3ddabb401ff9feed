/*
 * Copyright (c) 2025 by TRYAM193 and the Design Studio contributors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"path"
	"time"

	"github.com/hibiken/asynq"

	"github.com/TRYAM193/design-studio-sub000/internal/design"
	"github.com/TRYAM193/design-studio-sub000/internal/dpi"
	"github.com/TRYAM193/design-studio-sub000/internal/export"
	applog "github.com/TRYAM193/design-studio-sub000/internal/log"
	"github.com/TRYAM193/design-studio-sub000/internal/reproducer"
	"github.com/TRYAM193/design-studio-sub000/internal/store"
)

// RendersPrefix is the blob folder print files are uploaded under.
const RendersPrefix = "renders"

// Handler executes render tasks: it reproduces the surface, encodes the
// preset's print files, uploads them and publishes a ready marker carrying their URLs.
// The reproducer must be built without a marker of its own.
type Handler struct {
	Reproducer *reproducer.Reproducer
	Blobs      store.BinaryStorage
	Marker     reproducer.Marker
	Now        func() time.Time
}

// Register installs the handler on mux.
func (h *Handler) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeRender, h.ProcessTask)
}

// ProcessTask implements asynq.Handler. Bad payloads and missing documents are
// not retried.
func (h *Handler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	taskID := ""
	if rw := t.ResultWriter(); rw != nil {
		taskID = rw.TaskID()
	}
	retry, _ := asynq.GetRetryCount(ctx)
	ctx = applog.ContextWith(ctx, slog.String("task_id", taskID))
	l := applog.WithOperation(applog.WithComponent("jobs"), "render").With(
		slog.String("task_id", taskID), slog.Int("retry", retry))

	p, err := decodePayload(t)
	if err != nil {
		l.Error("invalid render payload", slog.Any("err", err))
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}
	surface := p.Surface
	if surface == "" {
		surface = design.DefaultSurface
	}
	l = l.With(slog.String("id", p.ID), slog.String("surface", surface))
	req := reproducer.Request{Collection: p.Collection, ID: p.ID, Surface: p.Surface, MarkerKey: p.MarkerKey}

	res, err := h.Reproducer.Run(ctx, req)
	if errors.Is(err, reproducer.ErrNoDocument) {
		l.Warn("document vanished before rendering")
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}
	if err != nil {
		return err
	}
	defer res.Close()
	if res.State != reproducer.Ready {
		return fmt.Errorf("jobs: render aborted: %w", context.Cause(ctx))
	}

	var urls []string
	if !res.Empty() {
		urls, err = h.upload(ctx, p.ID+"-"+surface, p, res)
		if err != nil {
			return err
		}
	}
	info := reproducer.ReadyInfo{
		Key:      req.Key(),
		DesignID: p.ID,
		Surface:  surface,
		Source:   res.Source,
		Width:    res.Width,
		Height:   res.Height,
		Objects:  len(res.Objects),
		URLs:     urls,
		At:       h.now(),
	}
	if h.Marker != nil {
		if err := h.Marker.MarkReady(ctx, info); err != nil {
			return fmt.Errorf("jobs: mark ready: %w", err)
		}
	}
	l.Info("render job done", slog.Int("files", len(urls)), slog.String("source", string(res.Source)))
	return nil
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now().UTC()
	}
	return time.Now().UTC()
}

func (h *Handler) upload(ctx context.Context, base string, p RenderPayload, res *reproducer.Result) ([]string, error) {
	img, err := res.Image()
	if err != nil {
		return nil, err
	}
	preset, _ := export.ParsePreset(p.Preset)
	arts, err := export.Produce(img, export.BatchOptions{
		Preset:   preset,
		DPI:      PrintDPI(res.Width, res.PrintArea.Width),
		BaseName: base,
		Title:    p.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("jobs: export: %w", err)
	}
	urls := make([]string, 0, len(arts))
	for _, a := range arts {
		u, err := h.Blobs.Upload(ctx, path.Join(RendersPrefix, p.ID, a.Name), a.Data)
		if err != nil {
			return urls, fmt.Errorf("jobs: upload %s: %w", a.Name, err)
		}
		urls = append(urls, u)
	}
	return urls, nil
}

// PrintDPI is the resolution at which an image of widthPx covers a print area
// authored at the reference resolution.
func PrintDPI(widthPx int, printAreaWidth float64) int {
	if widthPx <= 0 || !(printAreaWidth > 0) {
		return int(dpi.ReferencePPI)
	}
	return max(1, int(math.Round(float64(widthPx)*dpi.ReferencePPI/printAreaWidth)))
}
