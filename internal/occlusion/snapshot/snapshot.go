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

// Package snapshot holds the single, process-wide, immutable binding to the
// loaded visibility store. It is created exactly once after the loader
// completes and is never replaced or mutated afterward; every request
// handler obtains a shared, non-owning view of it.
package snapshot

import (
	"sync/atomic"

	"occlusion/internal/occlusion/store"
)

// Snapshot pairs a frozen backend with the Stats captured when it was built.
type Snapshot struct {
	Backend store.Backend
	Stats   store.Stats
}

// Holder is the process-wide binding. The zero value is ready to use and
// reports no snapshot loaded until Publish is called.
type Holder struct {
	ptr atomic.Pointer[Snapshot]
}

// Publish installs s as the live snapshot with a single release-visible
// write. Readers calling Load concurrently either see the old value (nil,
// before the first Publish) or the fully-built new one, never a partial
// store, because s was constructed entirely before this call.
func (h *Holder) Publish(s *Snapshot) {
	h.ptr.Store(s)
}

// Load returns the current snapshot, or nil if no load has completed yet.
// It is a single atomic load: no lock, no blocking, safe for any number of
// concurrent callers.
func (h *Holder) Load() *Snapshot {
	return h.ptr.Load()
}

// Ready reports whether a snapshot has been published.
func (h *Holder) Ready() bool {
	return h.Load() != nil
}
