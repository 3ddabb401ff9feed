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
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"

	"github.com/TRYAM193/design-studio-sub000/internal/catalog"
	"github.com/TRYAM193/design-studio-sub000/internal/config"
	"github.com/TRYAM193/design-studio-sub000/internal/design"
	"github.com/TRYAM193/design-studio-sub000/internal/document"
	applog "github.com/TRYAM193/design-studio-sub000/internal/log"
	"github.com/TRYAM193/design-studio-sub000/internal/render"
	"github.com/TRYAM193/design-studio-sub000/internal/reproducer"
	"github.com/TRYAM193/design-studio-sub000/internal/store"
)

// app holds the wired dependencies shared by the commands.
type app struct {
	cfg    config.AppConfig
	store  store.DocumentStore
	blobs  *store.Dir
	ser    *document.Serializer
	cat    *catalog.Catalog
	fonts  *render.FontLibrary
	images *render.ImageLoader
	log    *slog.Logger
}

func loadApp(ctx context.Context) (*app, error) {
	cfg, secret, err := config.Load()
	if err != nil {
		return nil, err
	}
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	})
	l := applog.WithComponent("cli")

	ds, err := store.Open(ctx, cfg.Store, secret)
	if err != nil {
		return nil, err
	}
	blobs, err := store.NewDir(cfg.Blobs.Root, cfg.Blobs.BaseURL)
	if err != nil {
		_ = ds.Close()
		return nil, err
	}
	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		_ = ds.Close()
		return nil, err
	}
	fonts := render.NewFontLibrary()
	if cfg.Render.FontDir != "" {
		n, err := fonts.LoadDir(cfg.Render.FontDir)
		if err != nil {
			l.Warn("font directory not loaded", slog.String("dir", cfg.Render.FontDir), slog.Any("err", err))
		} else {
			l.Info("fonts loaded", slog.Int("count", n))
		}
	}
	images := &render.ImageLoader{
		AssetRoot:   cfg.Render.AssetRoot,
		AllowRemote: cfg.Render.AllowRemoteFetch,
		Client:      &http.Client{Timeout: 30 * time.Second},
	}
	return &app{
		cfg:    cfg,
		store:  ds,
		blobs:  blobs,
		ser:    document.New(ds, blobs),
		cat:    cat,
		fonts:  fonts,
		images: images,
		log:    l,
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.Warn("store close failed", slog.Any("err", err))
	}
}

func (a *app) printArea() design.Size {
	return design.Size{Width: float64(a.cfg.Render.DefaultPrintW), Height: float64(a.cfg.Render.DefaultPrintH)}
}

// reproducer builds a reproducer; marker may be nil.
func (a *app) reproducer(marker reproducer.Marker) *reproducer.Reproducer {
	return reproducer.New(a.ser, reproducer.Options{
		TargetWidth:      a.cfg.Render.TargetWidth,
		DefaultPrintArea: a.printArea(),
		Catalog:          a.cat,
		Fonts:            a.fonts,
		Images:           a.images,
		Background:       "white",
		Marker:           marker,
	})
}

func (a *app) redisClient() *redis.Client {
	return redis.NewClient(&redis.Options{Addr: a.cfg.Redis.Addr, DB: a.cfg.Redis.DB})
}

func (a *app) asynqOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: a.cfg.Redis.Addr, DB: a.cfg.Redis.DB}
}

// marker prefers Redis when it answers and falls back to marker files.
func (a *app) marker(ctx context.Context) (reproducer.Marker, func()) {
	if a.cfg.Redis.Addr != "" {
		rdb := a.redisClient()
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		err := rdb.Ping(pingCtx).Err()
		if err == nil {
			a.log.Info("ready markers in redis", slog.String("addr", a.cfg.Redis.Addr))
			return reproducer.NewRedisMarker(rdb), func() { _ = rdb.Close() }
		}
		a.log.Warn("redis unavailable, using marker files", slog.Any("err", err))
		_ = rdb.Close()
	}
	return reproducer.FileMarker{Dir: a.cfg.Render.MarkerDir}, func() {}
}

func (a *app) renderTimeout() time.Duration {
	if a.cfg.Render.TimeoutSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(a.cfg.Render.TimeoutSeconds) * time.Second
}

func fail(l *slog.Logger, msg string, err error) {
	l.Error(msg, slog.Any("err", err))
	fmt.Println("Error:", err)
}
