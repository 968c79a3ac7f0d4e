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

package loader

import (
	"sync"
	"sync/atomic"
	"time"
)

// Progress is one advisory sample of how much of the source has been
// consumed so far.
type Progress struct {
	RowsParsed int64
}

// progressReporter periodically samples rowsParsed and emits it on ch: a
// ticker loop selecting on a stop channel, drained synchronously by stop so
// the caller never races the final sample.
type progressReporter struct {
	rowsParsed atomic.Int64
	interval   time.Duration
	ch         chan<- Progress
	stopCh     chan struct{}
	wg         sync.WaitGroup
}

func newProgressReporter(interval time.Duration, ch chan<- Progress) *progressReporter {
	return &progressReporter{interval: interval, ch: ch, stopCh: make(chan struct{})}
}

func (p *progressReporter) add(n int64) {
	p.rowsParsed.Add(n)
}

func (p *progressReporter) start() {
	if p.ch == nil || p.interval <= 0 {
		return
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				p.emit()
			case <-p.stopCh:
				return
			}
		}
	}()
}

func (p *progressReporter) emit() {
	select {
	case p.ch <- Progress{RowsParsed: p.rowsParsed.Load()}:
	default:
		// Progress is advisory; never block the loader on a slow consumer.
	}
}

// stop halts the background goroutine and emits one final, authoritative
// sample.
func (p *progressReporter) stop() {
	if p.ch == nil || p.interval <= 0 {
		return
	}
	close(p.stopCh)
	p.wg.Wait()
	p.emit()
}
