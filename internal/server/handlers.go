/*
 * Copyright (c) 2025 by TRYAM193 and the Design Studio contributors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/TRYAM193/design-studio-sub000/internal/export"
	"github.com/TRYAM193/design-studio-sub000/internal/jobs"
	"github.com/TRYAM193/design-studio-sub000/internal/reproducer"
	"github.com/TRYAM193/design-studio-sub000/internal/store"
)

func surfaceRequest(c *gin.Context) reproducer.Request {
	return reproducer.Request{
		Collection: c.Param("collection"),
		ID:         c.Param("id"),
		Surface:    c.Param("surface"),
	}
}

// renderPNG reproduces a surface synchronously. The request context drives
// the reproduction, so a client that goes away aborts the render.
func (a *api) renderPNG(c *gin.Context) {
	req := surfaceRequest(c)
	res, err := a.opt.Reproducer.Run(c.Request.Context(), req)
	switch {
	case errors.Is(err, reproducer.ErrNoDocument):
		c.JSON(http.StatusNotFound, gin.H{"error": "design not found"})
		return
	case errors.Is(err, store.ErrInvalidName):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer res.Close()
	if res.State != reproducer.Ready {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "render cancelled"})
		return
	}
	c.Header("X-Render-Source", string(res.Source))
	if res.Empty() {
		c.Status(http.StatusNoContent)
		return
	}
	img, err := res.Image()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	data, err := export.EncodePNG(img, jobs.PrintDPI(res.Width, res.PrintArea.Width))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Header("X-Render-Width", strconv.Itoa(res.Width))
	c.Header("X-Render-Height", strconv.Itoa(res.Height))
	c.Data(http.StatusOK, "image/png", data)
}

type jobRequest struct {
	Preset    string `json:"preset"`
	MarkerKey string `json:"markerKey"`
}

func (a *api) enqueue(c *gin.Context) {
	if a.opt.Queue == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "job queue not configured"})
		return
	}
	var body jobRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
			return
		}
	}
	req := surfaceRequest(c)
	req.MarkerKey = body.MarkerKey
	p := jobs.RenderPayload{
		Collection: req.Collection,
		ID:         req.ID,
		Surface:    req.Surface,
		Preset:     body.Preset,
		MarkerKey:  body.MarkerKey,
	}
	if err := p.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	taskID, err := jobs.EnqueueRender(c.Request.Context(), a.opt.Queue, p)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"taskId": taskID, "markerKey": req.Key()})
}

func (a *api) ready(c *gin.Context) {
	if a.opt.Marker == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "ready markers not configured"})
		return
	}
	info, ok, err := a.opt.Marker.Ready(c.Request.Context(), c.Param("key"))
	switch {
	case errors.Is(err, reproducer.ErrInvalidKey):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	case !ok:
		c.JSON(http.StatusNotFound, gin.H{"ready": false})
	default:
		c.JSON(http.StatusOK, gin.H{"ready": true, "info": info})
	}
}
