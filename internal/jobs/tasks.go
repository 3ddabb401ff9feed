/*
 * Copyright (c) 2025 by TRYAM193 and the Design Studio contributors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package jobs queues and executes headless surface renders on asynq.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/TRYAM193/design-studio-sub000/internal/export"
)

// TypeRender is the task type of a surface render.
const TypeRender = "design:render"

// Task defaults.
const (
	DefaultMaxRetry = 3
	DefaultTimeout  = 2 * time.Minute
	DefaultQueue    = "default"
)

// RenderPayload addresses one surface and how to export it.
type RenderPayload struct {
	Collection string `json:"collection"`
	ID         string `json:"id"`
	Surface    string `json:"surface"`
	Preset     string `json:"preset,omitempty"`
	MarkerKey  string `json:"markerKey,omitempty"`
}

// Validate checks the payload before it is queued or executed.
func (p RenderPayload) Validate() error {
	if p.ID == "" {
		return errors.New("jobs: render payload without document id")
	}
	if _, err := export.ParsePreset(p.Preset); err != nil {
		return fmt.Errorf("jobs: %w", err)
	}
	return nil
}

// NewRenderTask builds a render task for p.
func NewRenderTask(p RenderPayload) (*asynq.Task, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeRender, b, asynq.MaxRetry(DefaultMaxRetry), asynq.Timeout(DefaultTimeout)), nil
}

func decodePayload(t *asynq.Task) (RenderPayload, error) {
	var p RenderPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return p, fmt.Errorf("jobs: decode payload: %w", err)
	}
	return p, p.Validate()
}

// Enqueuer is the part of asynq.Client used to queue tasks.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// EnqueueRender queues a render of p and returns the task id.
func EnqueueRender(ctx context.Context, q Enqueuer, p RenderPayload) (string, error) {
	task, err := NewRenderTask(p)
	if err != nil {
		return "", err
	}
	info, err := q.EnqueueContext(ctx, task, asynq.Queue(DefaultQueue))
	if err != nil {
		return "", fmt.Errorf("jobs: enqueue: %w", err)
	}
	return info.ID, nil
}
