/*
 * Copyright (c) 2025 by TRYAM193 and the Design Studio contributors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package server exposes headless renders over HTTP for order and mockup
// orchestrators.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/TRYAM193/design-studio-sub000/internal/jobs"
	applog "github.com/TRYAM193/design-studio-sub000/internal/log"
	"github.com/TRYAM193/design-studio-sub000/internal/reproducer"
)

const requestIDHeader = "X-Request-ID"

// Options wires the API. Queue and Marker are optional; the endpoints that
// need them answer 503 when they are missing.
type Options struct {
	Reproducer *reproducer.Reproducer
	Queue      jobs.Enqueuer
	Marker     reproducer.Marker
	Version    string
}

type api struct {
	opt Options
}

// New returns the HTTP handler. Collection names containing slashes, such as
// "users/<uid>/designs", are passed URL-encoded.
func New(opt Options) *gin.Engine {
	r := gin.New()
	r.UseRawPath = true
	r.UnescapePathValues = true
	r.Use(gin.Recovery(), requestLog())

	a := &api{opt: opt}
	r.GET("/healthz", a.health)
	v1 := r.Group("/v1")
	{
		v1.GET("/designs/:collection/:id/surfaces/:surface/render.png", a.renderPNG)
		v1.POST("/designs/:collection/:id/surfaces/:surface/jobs", a.enqueue)
		v1.GET("/ready/:key", a.ready)
	}
	return r
}

// requestLog tags each request with an id that follows it into the
// reproducer's log records.
func requestLog() gin.HandlerFunc {
	l := applog.WithComponent("http")
	return func(c *gin.Context) {
		start := time.Now()
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)
		ctx := applog.ContextWith(c.Request.Context(), slog.String("request_id", id))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
		l.InfoContext(ctx, "request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("took", time.Since(start)))
	}
}

func (a *api) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": a.opt.Version})
}

// Run serves h on addr until ctx is done, then shuts down gracefully.
func Run(ctx context.Context, addr string, h http.Handler) error {
	l := applog.WithOperation(applog.WithComponent("http"), "serve")
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() {
		l.Info("listening", slog.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()
	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	l.Info("server stopped")
	return nil
}
