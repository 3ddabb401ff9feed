/*
 * Copyright (c) 2025 by TRYAM193 and the Design Studio contributors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package store persists design documents and binary assets.
//
// Documents are opaque JSON objects addressed by collection path and id. A
// collection path may have several segments ("users/u1/designs"); ids are a
// single segment. Merge writes replace top-level fields of the stored object
// and keep the ones the patch does not mention.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// ErrNotFound is returned by Get when no document exists at the address.
var ErrNotFound = errors.New("store: not found")

// ErrInvalidName is returned for collection paths, ids or filter fields that cannot be addressed safely.
var ErrInvalidName = errors.New("store: invalid name")

// PutOptions controls Put.
type PutOptions struct {
	Merge bool
}

// Filter selects documents by equality on top-level string fields.
type Filter struct {
	Equals map[string]string
	Limit  int
}

// Where returns a filter with a single equality condition.
func Where(field, value string) Filter {
	return Filter{Equals: map[string]string{field: value}}
}

// Entry is a query hit.
type Entry struct {
	ID   string
	Data json.RawMessage
}

// DocumentStore is the document database consumed by the serializer and the reproducer.
type DocumentStore interface {
	Get(ctx context.Context, collection, id string) (json.RawMessage, error)
	Put(ctx context.Context, collection, id string, data json.RawMessage, opts PutOptions) error
	Query(ctx context.Context, collection string, f Filter) ([]Entry, error)
	Close() error
}

// BinaryStorage stores blobs and returns a URL they can be fetched from.
type BinaryStorage interface {
	Upload(ctx context.Context, path string, data []byte) (string, error)
}

var (
	segmentRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_\-.]*$`)
	fieldRe   = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

func validID(id string) error {
	if !segmentRe.MatchString(id) || strings.Contains(id, "..") {
		return fmt.Errorf("%w: id %q", ErrInvalidName, id)
	}
	return nil
}

func validCollection(c string) error {
	if c == "" {
		return fmt.Errorf("%w: empty collection", ErrInvalidName)
	}
	for _, seg := range strings.Split(c, "/") {
		if !segmentRe.MatchString(seg) || strings.Contains(seg, "..") {
			return fmt.Errorf("%w: collection %q", ErrInvalidName, c)
		}
	}
	return nil
}

func validAddress(collection, id string) error {
	if err := validCollection(collection); err != nil {
		return err
	}
	return validID(id)
}

func validFilter(f Filter) error {
	for k := range f.Equals {
		if !fieldRe.MatchString(k) {
			return fmt.Errorf("%w: field %q", ErrInvalidName, k)
		}
	}
	return nil
}

// requireObject rejects payloads that are not a JSON object.
func requireObject(data json.RawMessage) error {
	t := bytes.TrimSpace(data)
	if len(t) == 0 || t[0] != '{' || !json.Valid(t) {
		return errors.New("store: document must be a JSON object")
	}
	return nil
}

// MergeTopLevel overlays the top-level fields of patch onto base.
func MergeTopLevel(base, patch json.RawMessage) (json.RawMessage, error) {
	var b, p map[string]json.RawMessage
	if len(bytes.TrimSpace(base)) > 0 {
		if err := json.Unmarshal(base, &b); err != nil {
			return nil, fmt.Errorf("store: decode stored document: %w", err)
		}
	}
	if err := json.Unmarshal(patch, &p); err != nil {
		return nil, fmt.Errorf("store: decode patch: %w", err)
	}
	if b == nil {
		b = make(map[string]json.RawMessage, len(p))
	}
	for k, v := range p {
		b[k] = v
	}
	return json.Marshal(b)
}

// matches evaluates f against a JSON object in Go. Backends without native
// JSON predicates use it.
func matches(data json.RawMessage, f Filter) bool {
	if len(f.Equals) == 0 {
		return true
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return false
	}
	for k, want := range f.Equals {
		raw, ok := m[k]
		if !ok {
			return false
		}
		var got string
		if err := json.Unmarshal(raw, &got); err != nil || got != want {
			return false
		}
	}
	return true
}

// finish orders entries by id and applies the limit.
func finish(entries []Entry, f Filter) []Entry {
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	if f.Limit > 0 && len(entries) > f.Limit {
		entries = entries[:f.Limit]
	}
	return entries
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
