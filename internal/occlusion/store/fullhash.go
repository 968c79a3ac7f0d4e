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
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"occlusion/internal/occlusion/entry"
)

// fullHashLoadFactor caps the table's occupancy at one half, which keeps
// expected linear-probe sequences short. It does not bound the longest
// probe sequence: that depends on how the hashed keys cluster.
const fullHashLoadFactor = 0.5

type fullHashSlot struct {
	key      uuid.UUID
	level    entry.Level
	occupied bool
}

// fullHashBackend is a single open-addressing table keyed by a 64-bit xxHash
// of the UUID bytes, with linear probing, sized once at build time and never
// resized. A lookup probes until it finds the key or an empty slot; there is
// no worst-case bound on probe length other than the table size.
type fullHashBackend struct {
	slots     []fullHashSlot
	mask      uint64
	total     uint64
	histogram [256]uint64
}

func fullHashIndex(id uuid.UUID, mask uint64) uint64 {
	return xxhash.Sum64(id[:]) & mask
}

func (f *fullHashBackend) GetLevel(id uuid.UUID) (entry.Level, bool) {
	n := uint64(len(f.slots))
	idx := fullHashIndex(id, f.mask)
	for i := uint64(0); i < n; i++ {
		slot := &f.slots[(idx+i)%n]
		if !slot.occupied {
			return 0, false
		}
		if slot.key == id {
			return slot.level, true
		}
	}
	return 0, false
}

func (f *fullHashBackend) Len() uint64 { return f.total }

func (f *fullHashBackend) LevelHistogram() [256]uint64 { return f.histogram }

type fullHashBuilder struct {
	mu      sync.Mutex
	staging map[uuid.UUID]entry.Level
}

func newFullHashBuilder() *fullHashBuilder {
	return &fullHashBuilder{staging: make(map[uuid.UUID]entry.Level)}
}

func (b *fullHashBuilder) Insert(e entry.Entry) {
	b.mu.Lock()
	b.staging[e.UUID] = e.Level
	b.mu.Unlock()
}

func (b *fullHashBuilder) Build() Backend {
	n := len(b.staging)
	capacity := nextPow2(int(float64(n)/fullHashLoadFactor) + 1)
	if capacity < 8 {
		capacity = 8
	}
	slots := make([]fullHashSlot, capacity)
	mask := uint64(capacity - 1)
	var histogram [256]uint64

	for id, lvl := range b.staging {
		histogram[lvl]++
		idx := fullHashIndex(id, mask)
		for {
			slot := &slots[idx]
			if !slot.occupied {
				slot.occupied = true
				slot.key = id
				slot.level = lvl
				break
			}
			idx = (idx + 1) & mask
		}
	}

	return &fullHashBackend{slots: slots, mask: mask, total: uint64(n), histogram: histogram}
}
