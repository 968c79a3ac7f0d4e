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

package store

import (
	"runtime"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/dgryski/go-rendezvous"
	"github.com/google/uuid"

	"occlusion/internal/occlusion/entry"
)

// shardCount picks a power-of-two shard count from GOMAXPROCS using a
// clamp-then-round-up-to-pow2 heuristic: GOMAXPROCS is clamped to [8, 64]
// and rounded up, so there are at least 8 shards even on fewer cores.
func shardCount() int {
	p := runtime.GOMAXPROCS(0)
	if p < 8 {
		p = 8
	}
	if p > 64 {
		p = 64
	}
	return nextPow2(p)
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// hashMapBackend is the default backend: a single UUID->Level mapping,
// physically sharded so concurrent inserts during build don't contend on one
// lock. Reads are lock-free: the shard maps never change after Build.
type hashMapBackend struct {
	shards    []map[uuid.UUID]entry.Level
	router    *rendezvous.Rendezvous
	shardByID map[string]int
	total     uint64
	histogram [256]uint64
}

func (h *hashMapBackend) shardFor(id uuid.UUID) int {
	name := h.router.Lookup(string(id[:]))
	return h.shardByID[name]
}

func (h *hashMapBackend) GetLevel(id uuid.UUID) (entry.Level, bool) {
	shard := h.shards[h.shardFor(id)]
	lvl, ok := shard[id]
	return lvl, ok
}

func (h *hashMapBackend) Len() uint64 { return h.total }

func (h *hashMapBackend) LevelHistogram() [256]uint64 { return h.histogram }

type hashMapBuilder struct {
	mu        []sync.Mutex
	shards    []map[uuid.UUID]entry.Level
	router    *rendezvous.Rendezvous
	shardByID map[string]int
}

func newHashMapBuilder() *hashMapBuilder {
	n := shardCount()
	nodes := make([]string, n)
	shardByID := make(map[string]int, n)
	shards := make([]map[uuid.UUID]entry.Level, n)
	mu := make([]sync.Mutex, n)
	for i := range nodes {
		name := strconv.Itoa(i)
		nodes[i] = name
		shardByID[name] = i
		shards[i] = make(map[uuid.UUID]entry.Level)
	}
	router := rendezvous.New(nodes, xxhash.Sum64String)
	return &hashMapBuilder{mu: mu, shards: shards, router: router, shardByID: shardByID}
}

func (b *hashMapBuilder) Insert(e entry.Entry) {
	name := b.router.Lookup(string(e.UUID[:]))
	idx := b.shardByID[name]
	b.mu[idx].Lock()
	b.shards[idx][e.UUID] = e.Level
	b.mu[idx].Unlock()
}

func (b *hashMapBuilder) Build() Backend {
	var total uint64
	var histogram [256]uint64
	for _, shard := range b.shards {
		total += uint64(len(shard))
		for _, lvl := range shard {
			histogram[lvl]++
		}
	}
	return &hashMapBackend{
		shards:    b.shards,
		router:    b.router,
		shardByID: b.shardByID,
		total:     total,
		histogram: histogram,
	}
}
