/*
 * Copyright (c) 2025 by TRYAM193 and the Design Studio contributors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/TRYAM193/design-studio-sub000/internal/crash"
	"github.com/TRYAM193/design-studio-sub000/internal/design"
	"github.com/TRYAM193/design-studio-sub000/internal/export"
	"github.com/TRYAM193/design-studio-sub000/internal/jobs"
	applog "github.com/TRYAM193/design-studio-sub000/internal/log"
	"github.com/TRYAM193/design-studio-sub000/internal/reproducer"
	"github.com/TRYAM193/design-studio-sub000/internal/server"
	"github.com/TRYAM193/design-studio-sub000/internal/store"
	"github.com/TRYAM193/design-studio-sub000/internal/version"
)

func usage() {
	fmt.Println("Design Studio")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  designstudio version|-v|--version                  Show version")
	fmt.Println("  designstudio render [--pdf out.pdf] [--watch] <collection> <id> <surface> <out.png>")
	fmt.Println("                                                     Reproduce one surface into print files")
	fmt.Println("  designstudio serve                                 Run the render HTTP API")
	fmt.Println("  designstudio worker                                Run the render job worker")
	fmt.Println("  designstudio enqueue [--preset p] [--marker key] <collection> <id> <surface>")
	fmt.Println("                                                     Queue a render job")
	fmt.Println("  designstudio validate <file.json>                  Check a document against the schema")
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	scope := crash.Scope{}
	if len(args) > 0 {
		scope.Command = args[0]
	}
	defer crash.Recover(scope)

	if len(args) == 0 {
		usage()
		return 2
	}
	switch args[0] {
	case "version", "--version", "-v":
		fmt.Println(version.String())
		return 0
	case "validate":
		return cmdValidate(args[1:])
	case "render", "serve", "worker", "enqueue":
	default:
		usage()
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	a, err := loadApp(ctx)
	if err != nil {
		fail(applog.WithComponent("cli"), "startup failed", err)
		return 1
	}
	defer a.Close()
	a.log.Debug("start", slog.String("command", args[0]), slog.Int("args", len(args)-1))

	switch args[0] {
	case "render":
		return cmdRender(ctx, a, args[1:])
	case "serve":
		return cmdServe(ctx, a)
	case "worker":
		return cmdWorker(ctx, a)
	default:
		return cmdEnqueue(ctx, a, args[1:])
	}
}

func cmdValidate(args []string) int {
	if len(args) != 1 {
		fmt.Println("validate requires <file.json>")
		usage()
		return 2
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Println("Error:", err)
		return 1
	}
	if err := design.ValidateJSON(data); err != nil {
		var se *design.SchemaError
		if errors.As(err, &se) {
			fmt.Println("Invalid document:")
			fmt.Println(se.Error())
			return 1
		}
		fmt.Println("Error:", err)
		return 1
	}
	fmt.Println("Document is valid.")
	return 0
}

func cmdRender(ctx context.Context, a *app, args []string) int {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	pdfOut := fs.String("pdf", "", "also write a PDF print file to this path")
	watch := fs.Bool("watch", false, "re-render whenever the document changes (files store only)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	rest := fs.Args()
	if len(rest) != 4 {
		fmt.Println("render requires <collection> <id> <surface> <out.png>")
		usage()
		return 2
	}
	req := reproducer.Request{Collection: rest[0], ID: rest[1], Surface: rest[2]}
	out := rest[3]
	rep := a.reproducer(reproducer.FileMarker{Dir: a.cfg.Render.MarkerDir})

	once := func(ctx context.Context) error {
		rctx, cancel := context.WithTimeout(ctx, a.renderTimeout())
		defer cancel()
		res, err := rep.Run(rctx, req)
		if err != nil {
			return err
		}
		defer res.Close()
		if res.State != reproducer.Ready {
			return fmt.Errorf("render aborted: %w", context.Cause(rctx))
		}
		if res.Empty() {
			fmt.Println("Surface has no content; nothing written.")
			return nil
		}
		img, err := res.Image()
		if err != nil {
			return err
		}
		dpi := jobs.PrintDPI(res.Width, res.PrintArea.Width)
		data, err := export.EncodePNG(img, dpi)
		if err != nil {
			return err
		}
		if err := export.WriteFile(out, data); err != nil {
			return err
		}
		if *pdfOut != "" {
			pdf, err := export.EncodePDF(img, export.PDFOptions{DPI: dpi, Title: req.ID})
			if err != nil {
				return err
			}
			if err := export.WriteFile(*pdfOut, pdf); err != nil {
				return err
			}
		}
		fmt.Printf("Rendered %s/%s surface %s (%dx%d px at %d DPI, %s source) to %s\n",
			req.Collection, req.ID, req.Surface, res.Width, res.Height, dpi, res.Source, out)
		if len(res.MissingFonts) > 0 {
			fmt.Printf("Substituted fonts: %s\n", strings.Join(res.MissingFonts, ", "))
		}
		return nil
	}

	if err := once(ctx); err != nil {
		fail(a.log, "render failed", err)
		return 1
	}
	if !*watch {
		return 0
	}
	files, ok := a.store.(*store.Files)
	if !ok {
		fmt.Println("--watch requires the files store driver")
		return 2
	}
	dir := files.CollectionDir(req.Collection)
	fmt.Printf("Watching %s for changes to %s (Ctrl+C to stop)\n", dir, req.ID)
	err := reproducer.Watch(ctx, dir, reproducer.DefaultDebounce, func(ctx context.Context, id string) {
		if id != req.ID {
			return
		}
		if err := once(ctx); err != nil {
			a.log.Warn("re-render failed", slog.String("id", id), slog.Any("err", err))
		}
	})
	if err != nil {
		fail(a.log, "watch failed", err)
		return 1
	}
	return 0
}

func cmdServe(ctx context.Context, a *app) int {
	marker, closeMarker := a.marker(ctx)
	defer closeMarker()
	client := asynq.NewClient(a.asynqOpt())
	defer func() { _ = client.Close() }()

	engine := server.New(server.Options{
		Reproducer: a.reproducer(nil),
		Queue:      client,
		Marker:     marker,
		Version:    version.String(),
	})
	engine.Static("/blobs", a.cfg.Blobs.Root)
	if err := server.Run(ctx, a.cfg.Server.Addr, engine); err != nil {
		fail(a.log, "server failed", err)
		return 1
	}
	return 0
}

func cmdWorker(ctx context.Context, a *app) int {
	marker, closeMarker := a.marker(ctx)
	defer closeMarker()
	h := &jobs.Handler{
		Reproducer: a.reproducer(nil),
		Blobs:      a.blobs,
		Marker:     marker,
	}
	w := jobs.NewWorker(a.asynqOpt(), a.cfg.Worker.Concurrency, h)
	go func() {
		<-ctx.Done()
		w.Shutdown()
	}()
	if err := w.Run(); err != nil {
		fail(a.log, "worker failed", err)
		return 1
	}
	return 0
}

func cmdEnqueue(ctx context.Context, a *app, args []string) int {
	fs := flag.NewFlagSet("enqueue", flag.ContinueOnError)
	preset := fs.String("preset", "", "export preset: print, proof or web")
	markerKey := fs.String("marker", "", "ready marker key (default <id>-<surface>)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	rest := fs.Args()
	if len(rest) != 3 {
		fmt.Println("enqueue requires <collection> <id> <surface>")
		usage()
		return 2
	}
	client := asynq.NewClient(a.asynqOpt())
	defer func() { _ = client.Close() }()
	p := jobs.RenderPayload{Collection: rest[0], ID: rest[1], Surface: rest[2], Preset: *preset, MarkerKey: *markerKey}
	taskID, err := jobs.EnqueueRender(ctx, client, p)
	if err != nil {
		fail(a.log, "enqueue failed", err)
		return 1
	}
	key := reproducer.Request{ID: p.ID, Surface: p.Surface, MarkerKey: p.MarkerKey}.Key()
	fmt.Printf("Queued task %s; ready marker %s\n", taskID, key)
	return 0
}
