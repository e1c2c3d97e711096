// Copyright 2025 Emiliano Spinella (eminwux)
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package mongo is the MongoDB registry backend.
//
// Build arguments and volume maps are stored as sub-documents keyed by the
// caller's strings. Keys containing dots need MongoDB 5.0 or later.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/eminwux/kraken/internal/errdefs"
	"github.com/eminwux/kraken/internal/modelhub"
	"github.com/eminwux/kraken/internal/registry"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	CollectionBuilds     = "builds"
	CollectionHistory    = "builds_history"
	CollectionContainers = "containers"
	CollectionTools      = "tools"

	defaultConnectTimeout = 10 * time.Second
)

// Options configures the connection.
type Options struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
}

type Store struct {
	logger     *slog.Logger
	client     *mongo.Client
	builds     *mongo.Collection
	history    *mongo.Collection
	containers *mongo.Collection
	tools      *mongo.Collection
}

var _ registry.Store = (*Store)(nil)

// Open connects, pings the primary and ensures indexes.
func Open(ctx context.Context, logger *slog.Logger, opts Options) (*Store, error) {
	timeout := opts.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}
	clientOpts := options.Client().
		ApplyURI(opts.URI).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errdefs.ErrConnectStore, err)
	}
	if err = client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("%w: %w", errdefs.ErrConnectStore, err)
	}

	s := New(logger, client, opts.Database)
	if err = s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	logger.InfoContext(ctx, "connected to registry", "backend", "mongo", "database", opts.Database)
	return s, nil
}

// New wraps an existing client without touching the server.
func New(logger *slog.Logger, client *mongo.Client, database string) *Store {
	db := client.Database(database)
	return &Store{
		logger:     logger,
		client:     client,
		builds:     db.Collection(CollectionBuilds),
		history:    db.Collection(CollectionHistory),
		containers: db.Collection(CollectionContainers),
		tools:      db.Collection(CollectionTools),
	}
}

// EnsureIndexes creates the unique keys the registry invariants rely on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := map[*mongo.Collection][]mongo.IndexModel{
		s.builds: {
			{Keys: bson.D{{Key: "buildName", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "taskId", Value: 1}}},
		},
		s.history: {
			{Keys: bson.D{{Key: "taskId", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "buildName", Value: 1}}},
		},
		s.containers: {
			{Keys: bson.D{{Key: "containerName", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "buildName", Value: 1}}},
		},
		s.tools: {
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}
	for coll, models := range indexes {
		if _, err := coll.Indexes().CreateMany(ctx, models); err != nil {
			return s.unavailable(ctx, "create indexes", err)
		}
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return s.unavailable(ctx, "ping", err)
	}
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) Clean(ctx context.Context) error {
	for _, coll := range []*mongo.Collection{s.builds, s.history, s.containers, s.tools} {
		if err := coll.Drop(ctx); err != nil {
			return s.unavailable(ctx, "drop "+coll.Name(), err)
		}
	}
	s.logger.InfoContext(ctx, "registry cleaned", "backend", "mongo")
	return s.EnsureIndexes(ctx)
}

func (s *Store) unavailable(ctx context.Context, op string, err error) error {
	s.logger.ErrorContext(ctx, "registry operation failed", "op", op, "error", err)
	return fmt.Errorf("%w: %s: %w", errdefs.ErrStoreUnavailable, op, err)
}

// ---- builds ----

// buildFilter selects the record named name, restricted to statuses when given.
func buildFilter(name string, statuses []modelhub.BuildStatus) bson.M {
	filter := bson.M{"buildName": name}
	if len(statuses) > 0 {
		filter["taskState.status"] = bson.M{"$in": statuses}
	}
	return filter
}

func statusFilter(statuses []modelhub.BuildStatus) bson.M {
	if len(statuses) == 0 {
		return bson.M{}
	}
	return bson.M{"taskState.status": bson.M{"$in": statuses}}
}

func (s *Store) GetBuild(ctx context.Context, name string) (modelhub.Build, error) {
	return s.FindBuild(ctx, name)
}

func (s *Store) FindBuild(
	ctx context.Context,
	name string,
	statuses ...modelhub.BuildStatus,
) (modelhub.Build, error) {
	var b modelhub.Build
	err := s.builds.FindOne(ctx, buildFilter(name, statuses)).Decode(&b)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return b, fmt.Errorf("%w: %s", errdefs.ErrBuildNotFound, name)
	}
	if err != nil {
		return b, s.unavailable(ctx, "find build", err)
	}
	return b, nil
}

func (s *Store) GetBuildByTaskID(ctx context.Context, taskID string) (modelhub.Build, error) {
	var b modelhub.Build
	err := s.builds.FindOne(ctx, bson.M{"taskId": taskID}).Decode(&b)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return b, fmt.Errorf("%w: %s", errdefs.ErrTaskNotFound, taskID)
	}
	if err != nil {
		return b, s.unavailable(ctx, "find build by task", err)
	}
	return b, nil
}

func (s *Store) ListBuilds(ctx context.Context, statuses ...modelhub.BuildStatus) ([]modelhub.Build, error) {
	out := []modelhub.Build{}
	if err := s.findAll(ctx, s.builds, statusFilter(statuses), "buildName", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) InsertBuild(ctx context.Context, build modelhub.Build) error {
	_, err := s.builds.InsertOne(ctx, build)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %s", errdefs.ErrBuildNameUsed, build.BuildName)
	}
	if err != nil {
		return s.unavailable(ctx, "insert build", err)
	}
	return nil
}

func (s *Store) ReplaceBuild(ctx context.Context, build modelhub.Build) error {
	_, err := s.builds.ReplaceOne(ctx,
		bson.M{"buildName": build.BuildName},
		build,
		options.Replace().SetUpsert(true))
	if err != nil {
		return s.unavailable(ctx, "replace build", err)
	}
	return nil
}

func (s *Store) UpdateBuildState(ctx context.Context, taskID string, state modelhub.TaskState) error {
	res, err := s.builds.UpdateOne(ctx,
		bson.M{"taskId": taskID},
		bson.M{"$set": bson.M{"taskState": state}})
	if err != nil {
		return s.unavailable(ctx, "update build state", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", errdefs.ErrTaskNotFound, taskID)
	}
	return nil
}

func (s *Store) DeleteBuild(ctx context.Context, name string) (bool, error) {
	res, err := s.builds.DeleteOne(ctx, bson.M{"buildName": name})
	if err != nil {
		return false, s.unavailable(ctx, "delete build", err)
	}
	return res.DeletedCount > 0, nil
}

func (s *Store) AppendHistory(ctx context.Context, entry modelhub.HistoryEntry) error {
	_, err := s.history.InsertOne(ctx, entry)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %s", errdefs.ErrHistoryExists, entry.TaskID)
	}
	if err != nil {
		return s.unavailable(ctx, "append history", err)
	}
	return nil
}

func (s *Store) ListHistory(ctx context.Context, buildName string) ([]modelhub.HistoryEntry, error) {
	out := []modelhub.HistoryEntry{}
	if err := s.findAll(ctx, s.history, bson.M{"buildName": buildName}, "_id", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ---- containers ----

func (s *Store) GetContainer(ctx context.Context, name string) (modelhub.Container, error) {
	var c modelhub.Container
	err := s.containers.FindOne(ctx, bson.M{"containerName": name}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return c, fmt.Errorf("%w: %s", errdefs.ErrContainerNotFound, name)
	}
	if err != nil {
		return c, s.unavailable(ctx, "find container", err)
	}
	return c, nil
}

func (s *Store) ListContainers(ctx context.Context) ([]modelhub.Container, error) {
	out := []modelhub.Container{}
	if err := s.findAll(ctx, s.containers, bson.M{}, "containerName", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) ReplaceContainer(ctx context.Context, ctn modelhub.Container) error {
	_, err := s.containers.ReplaceOne(ctx,
		bson.M{"containerName": ctn.ContainerName},
		ctn,
		options.Replace().SetUpsert(true))
	if err != nil {
		return s.unavailable(ctx, "replace container", err)
	}
	return nil
}

func (s *Store) UpdateContainerStatus(ctx context.Context, name, status string) (bool, error) {
	res, err := s.containers.UpdateOne(ctx,
		bson.M{"containerName": name},
		bson.M{"$set": bson.M{"status": status}})
	if err != nil {
		return false, s.unavailable(ctx, "update container status", err)
	}
	return res.MatchedCount > 0, nil
}

func (s *Store) DeleteContainer(ctx context.Context, name string) (bool, error) {
	res, err := s.containers.DeleteOne(ctx, bson.M{"containerName": name})
	if err != nil {
		return false, s.unavailable(ctx, "delete container", err)
	}
	return res.DeletedCount > 0, nil
}

func (s *Store) DeleteContainersByBuild(ctx context.Context, buildName string) (int, error) {
	res, err := s.containers.DeleteMany(ctx, bson.M{"buildName": buildName})
	if err != nil {
		return 0, s.unavailable(ctx, "delete build containers", err)
	}
	return int(res.DeletedCount), nil
}

// ---- tools ----

// toolFilter validates pattern with the Go engine first so a bad filter is a
// rejection rather than a server error.
func toolFilter(pattern string) (bson.M, error) {
	if _, err := registry.CompileToolFilter(pattern); err != nil {
		return nil, err
	}
	return bson.M{"name": primitive.Regex{Pattern: pattern, Options: "i"}}, nil
}

func (s *Store) ListTools(ctx context.Context) ([]modelhub.Tool, error) {
	out := []modelhub.Tool{}
	if err := s.findAll(ctx, s.tools, bson.M{}, "name", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) FindTools(ctx context.Context, pattern string) ([]modelhub.Tool, error) {
	filter, err := toolFilter(pattern)
	if err != nil {
		return nil, err
	}
	out := []modelhub.Tool{}
	if err = s.findAll(ctx, s.tools, filter, "name", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) GetTool(ctx context.Context, name string) (modelhub.Tool, error) {
	var t modelhub.Tool
	err := s.tools.FindOne(ctx, bson.M{"name": name}).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return t, fmt.Errorf("%w: %s", errdefs.ErrToolNotFound, name)
	}
	if err != nil {
		return t, s.unavailable(ctx, "find tool", err)
	}
	return t, nil
}

func (s *Store) CountTools(ctx context.Context) (int, error) {
	n, err := s.tools.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, s.unavailable(ctx, "count tools", err)
	}
	return int(n), nil
}

func (s *Store) InsertTools(ctx context.Context, tools []modelhub.Tool) error {
	if len(tools) == 0 {
		return nil
	}
	docs := make([]any, 0, len(tools))
	for _, t := range tools {
		docs = append(docs, t)
	}
	if _, err := s.tools.InsertMany(ctx, docs); err != nil {
		return s.unavailable(ctx, "insert tools", err)
	}
	return nil
}

func (s *Store) findAll(ctx context.Context, coll *mongo.Collection, filter bson.M, sortKey string, out any) error {
	cursor, err := coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: sortKey, Value: 1}}))
	if err != nil {
		return s.unavailable(ctx, "find "+coll.Name(), err)
	}
	if err = cursor.All(ctx, out); err != nil {
		return s.unavailable(ctx, "decode "+coll.Name(), err)
	}
	return nil
}
