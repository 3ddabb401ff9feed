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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	applog "github.com/TRYAM193/design-studio-sub000/internal/log"
)

// BackupsDirName holds timestamped copies of replaced documents inside each collection directory.
const BackupsDirName = ".backups"

// Files stores each document as <root>/<collection>/<id>.json. Writes are
// transactional (temp file + rename) and keep a timestamped backup of the
// previous version; unreadable documents are recovered from the latest backup.
type Files struct {
	Root string
	// Validate, when set, is run on every document read. Violations are logged, not returned.
	Validate func([]byte) error

	mu sync.Mutex
}

// NewFiles returns a file-backed store rooted at root, creating the directory if needed.
func NewFiles(root string) (*Files, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("store: files root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("store: create root: %w", err)
	}
	return &Files{Root: root}, nil
}

// CollectionDir returns the directory documents of collection live in.
func (s *Files) CollectionDir(collection string) string {
	return filepath.Join(s.Root, filepath.FromSlash(collection))
}

// DocumentPath returns the file path of a document.
func (s *Files) DocumentPath(collection, id string) string {
	return filepath.Join(s.CollectionDir(collection), id+".json")
}

func (s *Files) Get(ctx context.Context, collection, id string) (json.RawMessage, error) {
	if err := validAddress(collection, id); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.read(collection, id)
}

func (s *Files) read(collection, id string) (json.RawMessage, error) {
	l := applog.WithOperation(applog.WithComponent("store"), "files_read").With(slog.String("collection", collection), slog.String("id", id))
	path := s.DocumentPath(collection, id)
	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if _, berr := s.latestBackup(collection, id); berr != nil {
			return nil, ErrNotFound
		}
		l.Warn("document missing, recovering from backup")
		return s.readBackup(collection, id)
	case err != nil:
		return nil, fmt.Errorf("store: read %s: %w", path, err)
	}
	if !json.Valid(b) {
		l.Warn("document corrupt, recovering from backup")
		return s.readBackup(collection, id)
	}
	if s.Validate != nil {
		if verr := s.Validate(b); verr != nil {
			l.Warn("document does not match schema", slog.Any("err", verr))
		}
	}
	return b, nil
}

func (s *Files) Put(ctx context.Context, collection, id string, data json.RawMessage, opts PutOptions) error {
	if err := validAddress(collection, id); err != nil {
		return err
	}
	if err := requireObject(data); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	next := data
	if opts.Merge {
		old, err := s.read(collection, id)
		switch {
		case err == nil:
			merged, merr := MergeTopLevel(old, data)
			if merr != nil {
				return merr
			}
			next = merged
		case !errors.Is(err, ErrNotFound):
			return err
		}
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, next, "", "  "); err != nil {
		return fmt.Errorf("store: encode document: %w", err)
	}
	buf.WriteByte('\n')
	pretty := buf.Bytes()

	dir := s.CollectionDir(collection)
	if err := os.MkdirAll(filepath.Join(dir, BackupsDirName), 0o755); err != nil {
		return fmt.Errorf("store: ensure backups dir: %w", err)
	}
	target := s.DocumentPath(collection, id)
	if _, statErr := os.Stat(target); statErr == nil {
		stamp := time.Now().Format("20060102-150405.000000000")
		bpath := filepath.Join(dir, BackupsDirName, fmt.Sprintf("%s.json.%s.bak", id, stamp))
		if cerr := copyFile(target, bpath); cerr != nil {
			return fmt.Errorf("store: backup %s: %w", target, cerr)
		}
	}
	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", id, os.Getpid(), rand.Int()))
	if err := writeFileSync(temp, pretty); err != nil {
		return fmt.Errorf("store: write temp: %w", err)
	}
	if err := os.Rename(temp, target); err != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("store: replace %s: %w", target, err)
	}
	return nil
}

func (s *Files) Query(ctx context.Context, collection string, f Filter) ([]Entry, error) {
	if err := validCollection(collection); err != nil {
		return nil, err
	}
	if err := validFilter(f); err != nil {
		return nil, err
	}
	ents, err := os.ReadDir(s.CollectionDir(collection))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: list %s: %w", collection, err)
	}
	var out []Entry
	for _, e := range ents {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".json") {
			continue
		}
		id := strings.TrimSuffix(name, ".json")
		d, err := s.read(collection, id)
		if err != nil {
			continue
		}
		if matches(d, f) {
			out = append(out, Entry{ID: id, Data: d})
		}
	}
	return finish(out, f), nil
}

func (s *Files) Close() error { return nil }

func (s *Files) latestBackup(collection, id string) (string, error) {
	bdir := filepath.Join(s.CollectionDir(collection), BackupsDirName)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return "", fmt.Errorf("read backups dir: %w", err)
	}
	prefix := id + ".json."
	var candidates []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ".bak") {
			candidates = append(candidates, filepath.Join(bdir, name))
		}
	}
	if len(candidates) == 0 {
		return "", errors.New("no backups found")
	}
	sort.Strings(candidates)
	return candidates[len(candidates)-1], nil
}

func (s *Files) readBackup(collection, id string) (json.RawMessage, error) {
	p, err := s.latestBackup(collection, id)
	if err != nil {
		return nil, fmt.Errorf("store: %s/%s unreadable: %w", collection, id, err)
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("store: read backup: %w", err)
	}
	if !json.Valid(b) {
		return nil, fmt.Errorf("store: backup %s is corrupt", p)
	}
	return b, nil
}

func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

func copyFile(src, dst string) error {
	b, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return writeFileSync(dst, b)
}
