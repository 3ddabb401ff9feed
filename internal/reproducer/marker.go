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
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/go-redis/redis/v8"
)

// ReadyInfo is the payload of a ready marker.
type ReadyInfo struct {
	Key      string    `json:"key"`
	DesignID string    `json:"designId"`
	Surface  string    `json:"surface"`
	Source   Source    `json:"source"`
	Width    int       `json:"width"`
	Height   int       `json:"height"`
	Objects  int       `json:"objects"`
	URLs     []string  `json:"urls,omitempty"`
	At       time.Time `json:"at"`
}

// Marker publishes and answers "is this surface ready" for external orchestrators.
type Marker interface {
	MarkReady(ctx context.Context, info ReadyInfo) error
	Ready(ctx context.Context, key string) (ReadyInfo, bool, error)
}

// ErrInvalidKey is returned for marker keys that are not safe file or Redis key names.
var ErrInvalidKey = errors.New("reproducer: invalid marker key")

var keyRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.\-]*$`)

func validKey(key string) error {
	if !keyRe.MatchString(key) {
		return fmt.Errorf("%w %q", ErrInvalidKey, key)
	}
	return nil
}

// FileMarker writes <Dir>/<key>.ready files containing the ReadyInfo JSON.
type FileMarker struct {
	Dir string
}

func (m FileMarker) path(key string) string { return filepath.Join(m.Dir, key+".ready") }

func (m FileMarker) MarkReady(ctx context.Context, info ReadyInfo) error {
	if err := validKey(info.Key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(m.Dir, 0o755); err != nil {
		return fmt.Errorf("reproducer: marker dir: %w", err)
	}
	b, err := json.Marshal(info)
	if err != nil {
		return err
	}
	target := m.path(info.Key)
	temp := target + ".tmp"
	if err := os.WriteFile(temp, b, 0o644); err != nil {
		return fmt.Errorf("reproducer: write marker: %w", err)
	}
	if err := os.Rename(temp, target); err != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("reproducer: publish marker: %w", err)
	}
	return nil
}

func (m FileMarker) Ready(ctx context.Context, key string) (ReadyInfo, bool, error) {
	if err := validKey(key); err != nil {
		return ReadyInfo{}, false, err
	}
	b, err := os.ReadFile(m.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return ReadyInfo{}, false, nil
	}
	if err != nil {
		return ReadyInfo{}, false, err
	}
	var info ReadyInfo
	if err := json.Unmarshal(b, &info); err != nil {
		return ReadyInfo{}, false, fmt.Errorf("reproducer: corrupt marker %s: %w", key, err)
	}
	return info, true, nil
}

// Clear removes a marker so a new run can be awaited.
func (m FileMarker) Clear(key string) error {
	if err := validKey(key); err != nil {
		return err
	}
	if err := os.Remove(m.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// RedisMarker stores markers as "<Prefix><key>" with a TTL.
type RedisMarker struct {
	Client *redis.Client
	Prefix string
	TTL    time.Duration
}

// NewRedisMarker returns a marker with the default prefix and a one day TTL.
func NewRedisMarker(client *redis.Client) *RedisMarker {
	return &RedisMarker{Client: client, Prefix: "designstudio:ready:", TTL: 24 * time.Hour}
}

func (m *RedisMarker) MarkReady(ctx context.Context, info ReadyInfo) error {
	if err := validKey(info.Key); err != nil {
		return err
	}
	b, err := json.Marshal(info)
	if err != nil {
		return err
	}
	if err := m.Client.Set(ctx, m.Prefix+info.Key, b, m.TTL).Err(); err != nil {
		return fmt.Errorf("reproducer: redis set: %w", err)
	}
	return nil
}

func (m *RedisMarker) Ready(ctx context.Context, key string) (ReadyInfo, bool, error) {
	if err := validKey(key); err != nil {
		return ReadyInfo{}, false, err
	}
	b, err := m.Client.Get(ctx, m.Prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ReadyInfo{}, false, nil
	}
	if err != nil {
		return ReadyInfo{}, false, fmt.Errorf("reproducer: redis get: %w", err)
	}
	var info ReadyInfo
	if err := json.Unmarshal(b, &info); err != nil {
		return ReadyInfo{}, false, fmt.Errorf("reproducer: corrupt marker %s: %w", key, err)
	}
	return info, true, nil
}
