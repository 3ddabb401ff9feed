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
	"fmt"
	"log/slog"

	"github.com/TRYAM193/design-studio-sub000/internal/config"
	"github.com/TRYAM193/design-studio-sub000/internal/design"
	applog "github.com/TRYAM193/design-studio-sub000/internal/log"
)

// Open builds the DocumentStore selected by cfg. secret replaces a "<password>"
// placeholder in the DSN.
func Open(ctx context.Context, cfg config.StoreConfig, secret string) (DocumentStore, error) {
	l := applog.WithOperation(applog.WithComponent("store"), "open").With(slog.String("driver", cfg.Driver))
	dsn := cfg.ResolveDSN(secret)
	var (
		s   DocumentStore
		err error
	)
	switch cfg.Driver {
	case "", "sqlite":
		s, err = OpenSQLite(ctx, dsn)
	case "postgres", "postgresql", "pg":
		s, err = OpenPostgres(ctx, dsn)
	case "mongo", "mongodb":
		s, err = OpenMongo(ctx, dsn, cfg.Database)
	case "files":
		var fs *Files
		fs, err = NewFiles(cfg.Root)
		if err == nil {
			fs.Validate = design.ValidateJSON
			s = fs
		}
	case "memory":
		s = NewMemory()
	default:
		return nil, &design.ParseError{Type: "StoreDriver", Value: cfg.Driver}
	}
	if err != nil {
		l.Error("open store failed", slog.Any("err", err))
		return nil, fmt.Errorf("open %s store: %w", cfg.Driver, err)
	}
	l.Info("store opened")
	return s, nil
}
