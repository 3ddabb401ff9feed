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
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	applog "github.com/TRYAM193/design-studio-sub000/internal/log"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Mongo keeps each collection path in its own MongoDB collection ("users/u1/designs"
// becomes "users.u1.designs"), with the document id as _id.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
}

// OpenMongo connects to uri and selects database.
func OpenMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	if database == "" {
		database = "designstudio"
	}
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("store: connect mongo: %w", err)
	}
	pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("store: ping mongo: %w", err)
	}
	applog.WithOperation(applog.WithComponent("store"), "mongo_open").Debug("mongo store ready", slog.String("database", database))
	return &Mongo{client: client, db: client.Database(database)}, nil
}

func (m *Mongo) coll(collection string) *mongo.Collection {
	return m.db.Collection(strings.ReplaceAll(collection, "/", "."))
}

// toBSON converts a JSON object to a BSON document without its _id.
func toBSON(data json.RawMessage) (bson.D, error) {
	var doc bson.D
	if err := bson.UnmarshalExtJSON(data, false, &doc); err != nil {
		return nil, fmt.Errorf("store: json to bson: %w", err)
	}
	out := doc[:0]
	for _, e := range doc {
		if e.Key != "_id" {
			out = append(out, e)
		}
	}
	return out, nil
}

// fromBSON converts a stored document back to plain JSON, dropping _id.
func fromBSON(raw bson.Raw) (json.RawMessage, error) {
	var doc bson.D
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	out := make(bson.D, 0, len(doc))
	for _, e := range doc {
		if e.Key != "_id" {
			out = append(out, e)
		}
	}
	b, err := bson.MarshalExtJSON(out, false, false)
	if err != nil {
		return nil, fmt.Errorf("store: bson to json: %w", err)
	}
	return json.RawMessage(b), nil
}

func (m *Mongo) Get(ctx context.Context, collection, id string) (json.RawMessage, error) {
	if err := validAddress(collection, id); err != nil {
		return nil, err
	}
	raw, err := m.coll(collection).FindOne(ctx, bson.M{"_id": id}).Raw()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: mongo get: %w", err)
	}
	return fromBSON(raw)
}

func (m *Mongo) Put(ctx context.Context, collection, id string, data json.RawMessage, opts PutOptions) error {
	if err := validAddress(collection, id); err != nil {
		return err
	}
	if err := requireObject(data); err != nil {
		return err
	}
	doc, err := toBSON(data)
	if err != nil {
		return err
	}
	c := m.coll(collection)
	filter := bson.M{"_id": id}
	if opts.Merge {
		if len(doc) == 0 {
			return nil
		}
		_, err = c.UpdateOne(ctx, filter, bson.D{{Key: "$set", Value: doc}}, options.UpdateOne().SetUpsert(true))
	} else {
		_, err = c.ReplaceOne(ctx, filter, doc, options.Replace().SetUpsert(true))
	}
	if err != nil {
		return fmt.Errorf("store: mongo put: %w", err)
	}
	return nil
}

func (m *Mongo) Query(ctx context.Context, collection string, f Filter) ([]Entry, error) {
	if err := validCollection(collection); err != nil {
		return nil, err
	}
	if err := validFilter(f); err != nil {
		return nil, err
	}
	filter := bson.D{}
	for _, k := range sortedKeys(f.Equals) {
		filter = append(filter, bson.E{Key: k, Value: f.Equals[k]})
	}
	fo := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	if f.Limit > 0 {
		fo.SetLimit(int64(f.Limit))
	}
	cur, err := m.coll(collection).Find(ctx, filter, fo)
	if err != nil {
		return nil, fmt.Errorf("store: mongo query: %w", err)
	}
	defer func() { _ = cur.Close(ctx) }()
	var out []Entry
	for cur.Next(ctx) {
		id, ok := cur.Current.Lookup("_id").StringValueOK()
		if !ok {
			continue
		}
		d, err := fromBSON(cur.Current)
		if err != nil {
			return nil, err
		}
		out = append(out, Entry{ID: id, Data: d})
	}
	return out, cur.Err()
}

func (m *Mongo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
