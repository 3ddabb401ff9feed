/*
 * Copyright (c) 2025 by TRYAM193 and the Design Studio contributors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package reproducer

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	applog "github.com/TRYAM193/design-studio-sub000/internal/log"
)

// DefaultDebounce collapses bursts of writes to one document into one callback.
const DefaultDebounce = 300 * time.Millisecond

// Watch observes a files-store collection directory and calls onChange with
// the document id whenever "<id>.json" is written or replaced. It blocks until
// ctx is done. Callbacks for one id never overlap.
func Watch(ctx context.Context, dir string, debounce time.Duration, onChange func(ctx context.Context, id string)) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	l := applog.WithOperation(applog.WithComponent("reproducer"), "watch").With(slog.String("dir", dir))
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("reproducer: create watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("reproducer: watch %s: %w", dir, err)
	}
	l.Info("watching collection")

	var (
		mu      sync.Mutex
		timers  = map[string]*time.Timer{}
		running = map[string]*sync.Mutex{}
		wg      sync.WaitGroup
	)
	defer func() {
		mu.Lock()
		for _, t := range timers {
			if t.Stop() {
				wg.Done()
			}
		}
		mu.Unlock()
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			id, ok := documentID(event.Name)
			if !ok {
				continue
			}
			mu.Lock()
			if t, exists := timers[id]; exists && t.Stop() {
				wg.Done()
			}
			if running[id] == nil {
				running[id] = &sync.Mutex{}
			}
			lock := running[id]
			wg.Add(1)
			timers[id] = time.AfterFunc(debounce, func() {
				defer wg.Done()
				lock.Lock()
				defer lock.Unlock()
				if ctx.Err() != nil {
					return
				}
				l.Debug("document changed", slog.String("id", id))
				onChange(ctx, id)
			})
			mu.Unlock()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			l.Warn("watch error", slog.Any("err", err))
		}
	}
}

func documentID(name string) (string, bool) {
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") || !strings.HasSuffix(base, ".json") {
		return "", false
	}
	return strings.TrimSuffix(base, ".json"), true
}
