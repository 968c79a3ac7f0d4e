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

// Package loader streams a CSV source (local file or http(s) URL) through
// the entry codec and into a store.Builder, producing a fully populated
// Backend plus Stats, or aborting the whole load on the first row-level
// error.
package loader

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"occlusion/internal/occlusion/entry"
	"occlusion/internal/occlusion/store"
	"occlusion/internal/occlusion/telemetry"
)

// Source names where the CSV comes from: exactly one of Path or URL is set.
type Source struct {
	Path string
	URL  string
}

func (s Source) String() string {
	if s.URL != "" {
		return s.URL
	}
	return s.Path
}

// IsURL reports whether the source is an http(s) URL rather than a local
// path.
func (s Source) IsURL() bool {
	return strings.HasPrefix(s.URL, "http://") || strings.HasPrefix(s.URL, "https://")
}

// Options configures one Load call. The zero value is a usable default:
// hashmap backend, no progress events, no URL-fetch cache.
type Options struct {
	BackendKind   store.Kind
	ProgressEvery time.Duration
	Progress      chan<- Progress
	Cache         ByteCache
	CacheTTL      time.Duration
	HTTPClient    *http.Client
}

// Result is everything a successful Load produces.
type Result struct {
	Backend store.Backend
	Stats   store.Stats
}

// Load streams src, validates its header, parses every row through the
// entry codec, and inserts each Entry into a builder for opts.BackendKind.
// Any row-level parse error aborts the load immediately: the returned error
// is non-nil and result is nil, never partially populated.
func Load(ctx context.Context, src Source, opts Options) (*Result, error) {
	builder, err := store.NewBuilder(opts.BackendKind)
	if err != nil {
		return nil, &Error{Kind: KindSourceUnreachable, Reason: err.Error()}
	}

	reader, closeFn, err := open(ctx, src, opts)
	if err != nil {
		return nil, err
	}
	success := false
	defer func() { closeFn(success) }()

	reporter := newProgressReporter(opts.ProgressEvery, opts.Progress)
	reporter.start()
	defer reporter.stop()

	started := time.Now()

	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, &Error{Kind: KindSourceIOFailed, Err: err}
		}
		return nil, &Error{Kind: KindMalformedHeader, Reason: "empty source"}
	}
	if !entry.ValidateHeader(scanner.Text()) {
		return nil, &Error{Kind: KindMalformedHeader, Reason: fmt.Sprintf("got %q", scanner.Text())}
	}

	row := 1
	for scanner.Scan() {
		row++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields := strings.Split(line, ",")
		e, err := entry.Parse(row, fields)
		if err != nil {
			pe, _ := err.(*entry.ParseError)
			kind := "unknown"
			if pe != nil {
				kind = pe.Kind.String()
			}
			return nil, &Error{Kind: KindParseError, Row: row, Reason: kind, Err: err}
		}

		builder.Insert(e)
		reporter.add(1)
	}
	if err := scanner.Err(); err != nil {
		return nil, &Error{Kind: KindSourceIOFailed, Err: err}
	}

	backend := builder.Build()
	stats := store.StatsFromBackend(backend, src.String(), time.Now())
	telemetry.ObserveLoad(time.Since(started), stats.TotalEntries)
	success = true

	return &Result{Backend: backend, Stats: stats}, nil
}

// open returns a reader over the source's bytes and a function to release
// any underlying resource (file handle, HTTP response body). The release
// function receives whether the load ultimately succeeded, so a URL source
// backed by a cache only commits bytes to the cache after a clean load,
// never a partial one left by an aborted parse.
func open(ctx context.Context, src Source, opts Options) (io.Reader, func(success bool), error) {
	if src.IsURL() {
		return openURL(ctx, src.URL, opts)
	}
	f, err := os.Open(src.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, &Error{Kind: KindSourceUnreachable, Err: err}
		}
		return nil, nil, &Error{Kind: KindSourceIOFailed, Err: err}
	}
	return f, func(bool) { _ = f.Close() }, nil
}

func openURL(ctx context.Context, url string, opts Options) (io.Reader, func(success bool), error) {
	noop := func(bool) {}

	if opts.Cache != nil {
		key := CacheKey(url)
		if body, hit, err := opts.Cache.Get(ctx, key); err == nil && hit {
			return bytes.NewReader(body), noop, nil
		}
	}

	client := opts.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, &Error{Kind: KindSourceUnreachable, Err: err}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, &Error{Kind: KindSourceUnreachable, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, nil, &Error{Kind: KindSourceUnreachable, Reason: resp.Status}
	}

	if opts.Cache == nil {
		return resp.Body, func(bool) { _ = resp.Body.Close() }, nil
	}

	// Tee into a buffer so a fully successful load can be cached without
	// giving up single-pass streaming of the parse itself.
	var buf bytes.Buffer
	tee := io.TeeReader(resp.Body, &buf)
	onDone := func(success bool) {
		_ = resp.Body.Close()
		if !success {
			return
		}
		ttl := opts.CacheTTL
		if ttl <= 0 {
			ttl = defaultCacheTTL
		}
		_ = opts.Cache.Set(context.Background(), CacheKey(url), buf.Bytes(), ttl)
	}
	return tee, onDone, nil
}
