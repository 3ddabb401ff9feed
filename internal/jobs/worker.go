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
	"log/slog"

	"github.com/hibiken/asynq"

	applog "github.com/TRYAM193/design-studio-sub000/internal/log"
)

// Worker runs render tasks from Redis.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	log    *slog.Logger
}

// NewWorker returns a worker processing render tasks with h. A concurrency
// below one uses the asynq default.
func NewWorker(redisOpt asynq.RedisConnOpt, concurrency int, h *Handler) *Worker {
	l := applog.WithComponent("worker")
	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{DefaultQueue: 1},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retry, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			l.Error("task failed", slog.String("type", task.Type()),
				slog.Int("retry", retry), slog.Int("max_retry", maxRetry), slog.Any("err", err))
		}),
	})
	mux := asynq.NewServeMux()
	h.Register(mux)
	return &Worker{server: srv, mux: mux, log: l}
}

// Run blocks until the worker is shut down or receives a termination signal.
func (w *Worker) Run() error {
	w.log.Info("worker starting")
	if err := w.server.Run(w.mux); err != nil && !errors.Is(err, asynq.ErrServerClosed) {
		return err
	}
	w.log.Info("worker stopped")
	return nil
}

// Shutdown stops fetching tasks and waits for running ones.
func (w *Worker) Shutdown() {
	w.server.Shutdown()
}
