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

	"github.com/google/uuid"

	"occlusion/internal/occlusion/entry"
)

// hybridBackend splits the keyset into two tiers: Tier B holds every UUID
// with a non-zero level (the expected minority), Tier A holds only the
// UUIDs at level 0 (the expected 80-90% majority). Tier B is probed first:
// it is small enough to stay cache-resident, so a miss there is cheap, and
// the bulk of the keyset (Tier A) is only consulted when Tier B misses.
type hybridBackend struct {
	tierA     map[uuid.UUID]struct{}
	tierB     map[uuid.UUID]entry.Level
	histogram [256]uint64
}

func (h *hybridBackend) GetLevel(id uuid.UUID) (entry.Level, bool) {
	if lvl, ok := h.tierB[id]; ok {
		return lvl, true
	}
	if _, ok := h.tierA[id]; ok {
		return 0, true
	}
	return 0, false
}

func (h *hybridBackend) Len() uint64 {
	return uint64(len(h.tierA) + len(h.tierB))
}

func (h *hybridBackend) LevelHistogram() [256]uint64 { return h.histogram }

type hybridBuilder struct {
	mu      sync.Mutex
	staging map[uuid.UUID]entry.Level
}

func newHybridBuilder() *hybridBuilder {
	return &hybridBuilder{staging: make(map[uuid.UUID]entry.Level)}
}

// Insert stages into one map regardless of level so a later update (e.g.
// 0 -> nonzero, or the reverse) reassigns tiers correctly at Build time
// instead of leaving a stale entry behind in the wrong tier.
func (b *hybridBuilder) Insert(e entry.Entry) {
	b.mu.Lock()
	b.staging[e.UUID] = e.Level
	b.mu.Unlock()
}

func (b *hybridBuilder) Build() Backend {
	tierA := make(map[uuid.UUID]struct{})
	tierB := make(map[uuid.UUID]entry.Level)
	var histogram [256]uint64

	for id, lvl := range b.staging {
		histogram[lvl]++
		if lvl == 0 {
			tierA[id] = struct{}{}
		} else {
			tierB[id] = lvl
		}
	}

	return &hybridBackend{tierA: tierA, tierB: tierB, histogram: histogram}
}
