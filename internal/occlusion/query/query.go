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

// Package query implements the uniform read interface over a published
// snapshot: check, check_batch, and stats.
package query

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/google/uuid"

	"occlusion/internal/occlusion/entry"
	"occlusion/internal/occlusion/snapshot"
	"occlusion/internal/occlusion/store"
	"occlusion/internal/occlusion/telemetry"
)

// Decision is the three-valued outcome of a visibility check. The zero value
// is Unknown, matching "no information" being the safe default.
type Decision int

const (
	Unknown Decision = iota
	Visible
	Hidden
)

func (d Decision) String() string {
	switch d {
	case Visible:
		return "visible"
	case Hidden:
		return "hidden"
	default:
		return "unknown"
	}
}

// ErrorKind identifies why a query was rejected before it ever reached the
// store.
type ErrorKind int

const (
	_ ErrorKind = iota
	KindMalformedUUID
	KindMaskOutOfRange
)

func (k ErrorKind) String() string {
	switch k {
	case KindMalformedUUID:
		return "malformed_uuid"
	case KindMaskOutOfRange:
		return "mask_out_of_range"
	default:
		return "unknown"
	}
}

// Error is returned by Check/CheckBatch for validation failures. It never
// wraps a store-internal error: the store itself cannot fail a lookup.
type Error struct {
	Kind ErrorKind
}

func (e *Error) Error() string {
	return fmt.Sprintf("query: %s", e.Kind)
}

// ErrNotReady is returned when no snapshot has been published yet.
var ErrNotReady = errors.New("query: store not loaded")

// batchParallelThreshold is the smallest batch size worth fanning out across
// a worker pool; below it the per-goroutine dispatch overhead would dwarf
// the lookup cost itself.
const batchParallelThreshold = 256

// Engine answers visibility questions against whatever snapshot is
// currently published. It holds no mutable state of its own.
type Engine struct {
	holder *snapshot.Holder
}

// New returns an Engine reading from holder.
func New(holder *snapshot.Holder) *Engine {
	return &Engine{holder: holder}
}

func validateMask(mask int) error {
	if mask < 0 || mask > 255 {
		telemetry.ObserveQueryError(KindMaskOutOfRange.String())
		return &Error{Kind: KindMaskOutOfRange}
	}
	return nil
}

func decide(level entry.Level, ok bool, mask int) Decision {
	if !ok {
		return Unknown
	}
	if int(level) <= mask {
		return Visible
	}
	return Hidden
}

// Check parses uuidText, validates mask, and returns the Decision for the
// currently published snapshot.
func (e *Engine) Check(uuidText string, mask int) (Decision, error) {
	if err := validateMask(mask); err != nil {
		return 0, err
	}

	snap := e.holder.Load()
	if snap == nil {
		return 0, ErrNotReady
	}

	id, err := uuid.Parse(uuidText)
	if err != nil {
		telemetry.ObserveQueryError(KindMalformedUUID.String())
		return 0, &Error{Kind: KindMalformedUUID}
	}

	level, ok := snap.Backend.GetLevel(id)
	d := decide(level, ok, mask)
	telemetry.ObserveDecision(d.String())
	return d, nil
}

// CheckBatch validates mask once, then resolves every element independently:
// a malformed UUID yields Unknown at its position instead of failing the
// whole batch. Result ordering always matches input ordering, whether or
// not the batch is parallelized internally.
func (e *Engine) CheckBatch(uuidTexts []string, mask int) ([]Decision, error) {
	if err := validateMask(mask); err != nil {
		return nil, err
	}

	snap := e.holder.Load()
	if snap == nil {
		return nil, ErrNotReady
	}

	results := make([]Decision, len(uuidTexts))

	resolve := func(i int) {
		id, err := uuid.Parse(uuidTexts[i])
		if err != nil {
			telemetry.ObserveQueryError(KindMalformedUUID.String())
			results[i] = Unknown
			telemetry.ObserveDecision(Unknown.String())
			return
		}
		level, ok := snap.Backend.GetLevel(id)
		d := decide(level, ok, mask)
		results[i] = d
		telemetry.ObserveDecision(d.String())
	}

	if len(uuidTexts) < batchParallelThreshold {
		for i := range uuidTexts {
			resolve(i)
		}
		return results, nil
	}

	workers := runtime.GOMAXPROCS(0)
	if workers > len(uuidTexts) {
		workers = len(uuidTexts)
	}
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan int, len(uuidTexts))
	for i := range uuidTexts {
		jobs <- i
	}
	close(jobs)

	done := make(chan struct{}, workers)
	for w := 0; w < workers; w++ {
		go func() {
			for i := range jobs {
				resolve(i)
			}
			done <- struct{}{}
		}()
	}
	for w := 0; w < workers; w++ {
		<-done
	}

	return results, nil
}

// Stats returns the Stats snapshot captured at load, or false if no snapshot
// has been published yet.
func (e *Engine) Stats() (store.Stats, bool) {
	snap := e.holder.Load()
	if snap == nil {
		return store.Stats{}, false
	}
	return snap.Stats, true
}
