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
	"encoding/json"
	"sync"
)

// Memory is an in-process DocumentStore for tests and ephemeral sessions.
type Memory struct {
	mu   sync.RWMutex
	data map[string]map[string]json.RawMessage
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{data: map[string]map[string]json.RawMessage{}}
}

func (m *Memory) Get(ctx context.Context, collection, id string) (json.RawMessage, error) {
	if err := validAddress(collection, id); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.data[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	return append(json.RawMessage(nil), d...), nil
}

func (m *Memory) Put(ctx context.Context, collection, id string, data json.RawMessage, opts PutOptions) error {
	if err := validAddress(collection, id); err != nil {
		return err
	}
	if err := requireObject(data); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	coll := m.data[collection]
	if coll == nil {
		coll = map[string]json.RawMessage{}
		m.data[collection] = coll
	}
	next := append(json.RawMessage(nil), data...)
	if old, ok := coll[id]; ok && opts.Merge {
		merged, err := MergeTopLevel(old, data)
		if err != nil {
			return err
		}
		next = merged
	}
	coll[id] = next
	return nil
}

func (m *Memory) Query(ctx context.Context, collection string, f Filter) ([]Entry, error) {
	if err := validCollection(collection); err != nil {
		return nil, err
	}
	if err := validFilter(f); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Entry
	for id, d := range m.data[collection] {
		if matches(d, f) {
			out = append(out, Entry{ID: id, Data: append(json.RawMessage(nil), d...)})
		}
	}
	return finish(out, f), nil
}

func (m *Memory) Close() error { return nil }
