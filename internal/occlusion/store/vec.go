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
	"bytes"
	"sort"
	"sync"

	"github.com/google/uuid"

	"occlusion/internal/occlusion/entry"
)

// vecBackend stores entries as a single sequence sorted by UUID bytes,
// looked up via binary search. It trades lookup speed (O(log n) vs O(1))
// for a compact, near-zero-overhead layout: one UUID (16 bytes) plus one
// Level byte per entry, no hash-table bucket/tombstone overhead.
type vecBackend struct {
	ids       []uuid.UUID
	levels    []entry.Level
	histogram [256]uint64
}

func (v *vecBackend) GetLevel(id uuid.UUID) (entry.Level, bool) {
	n := len(v.ids)
	i := sort.Search(n, func(i int) bool {
		return bytes.Compare(v.ids[i][:], id[:]) >= 0
	})
	if i < n && v.ids[i] == id {
		return v.levels[i], true
	}
	return 0, false
}

func (v *vecBackend) Len() uint64 { return uint64(len(v.ids)) }

func (v *vecBackend) LevelHistogram() [256]uint64 { return v.histogram }

// vecRecord tags an inserted entry with its arrival order, so the dedup pass
// can keep the most-recently-inserted level per UUID (last write wins)
// without depending on stable-sort semantics.
type vecRecord struct {
	id    uuid.UUID
	level entry.Level
	order int
}

type vecBuilder struct {
	mu      sync.Mutex
	records []vecRecord
	next    int
}

func newVecBuilder() *vecBuilder {
	return &vecBuilder{}
}

func (b *vecBuilder) Insert(e entry.Entry) {
	b.mu.Lock()
	b.records = append(b.records, vecRecord{id: e.UUID, level: e.Level, order: b.next})
	b.next++
	b.mu.Unlock()
}

func (b *vecBuilder) Build() Backend {
	recs := b.records
	sort.Slice(recs, func(i, j int) bool {
		c := bytes.Compare(recs[i].id[:], recs[j].id[:])
		if c != 0 {
			return c < 0
		}
		// Within a UUID group, highest insertion order (most recent) first,
		// so the dedup pass below keeps the first record it sees per group.
		return recs[i].order > recs[j].order
	})

	ids := make([]uuid.UUID, 0, len(recs))
	levels := make([]entry.Level, 0, len(recs))
	var histogram [256]uint64

	for i := 0; i < len(recs); {
		j := i + 1
		for j < len(recs) && recs[j].id == recs[i].id {
			j++
		}
		ids = append(ids, recs[i].id)
		levels = append(levels, recs[i].level)
		histogram[recs[i].level]++
		i = j
	}

	return &vecBackend{ids: ids, levels: levels, histogram: histogram}
}
