// Copyright 2025 Esteban Alvarez. All Rights Reserved.
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

// Package store defines the visibility-store contract and its four
// interchangeable backend implementations (hashmap, vec, hybrid, fullhash).
// Every backend is built once, from a Builder, and is read-only thereafter:
// none of the methods below ever mutate backend state.
package store

import (
	"time"

	"github.com/google/uuid"

	"occlusion/internal/occlusion/entry"
)

// Backend is the uniform read contract every store implementation satisfies.
type Backend interface {
	// GetLevel performs a point lookup. ok is false when id was never inserted.
	GetLevel(id uuid.UUID) (level entry.Level, ok bool)
	// Len returns the number of distinct UUIDs held.
	Len() uint64
	// LevelHistogram returns the count of entries at each of the 256 levels.
	LevelHistogram() [256]uint64
}

// Builder accumulates entries during a load and produces a frozen Backend.
// Insert is safe to call from several goroutines: every implementation
// guards its staging state with a mutex (one per shard for hashmap).
type Builder interface {
	Insert(e entry.Entry)
	Build() Backend
}

// Kind selects which concrete Backend a Builder constructs.
type Kind string

const (
	KindHashMap  Kind = "hashmap"
	KindVec      Kind = "vec"
	KindHybrid   Kind = "hybrid"
	KindFullHash Kind = "fullhash"
)

// NewBuilder returns a fresh Builder for the named backend kind. An empty
// kind selects the default (hashmap).
func NewBuilder(kind Kind) (Builder, error) {
	switch kind {
	case "", KindHashMap:
		return newHashMapBuilder(), nil
	case KindVec:
		return newVecBuilder(), nil
	case KindHybrid:
		return newHybridBuilder(), nil
	case KindFullHash:
		return newFullHashBuilder(), nil
	default:
		return nil, unknownKindError(kind)
	}
}

type unknownKindError Kind

func (k unknownKindError) Error() string {
	return "store: unknown backend kind " + string(k)
}

// Stats is the immutable load-time summary exposed by the query engine's
// stats() call.
type Stats struct {
	TotalEntries  uint64
	PerLevelCount [256]uint64
	LoadSource    string
	LoadedAt      time.Time
}

// StatsFromBackend captures a Stats snapshot from a fully built backend.
func StatsFromBackend(b Backend, source string, loadedAt time.Time) Stats {
	return Stats{
		TotalEntries:  b.Len(),
		PerLevelCount: b.LevelHistogram(),
		LoadSource:    source,
		LoadedAt:      loadedAt,
	}
}
