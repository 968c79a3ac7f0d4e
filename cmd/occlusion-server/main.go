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

// Package main is the entry point for the occlusion visibility server.
//
// It loads a CSV mapping of object UUID to visibility level into one of
// four in-memory backends, publishes it to a process-wide snapshot, and
// serves read-only visibility checks over HTTP until it receives a
// shutdown signal.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"occlusion/internal/occlusion/api"
	"occlusion/internal/occlusion/loader"
	"occlusion/internal/occlusion/query"
	"occlusion/internal/occlusion/snapshot"
	"occlusion/internal/occlusion/store"
	"occlusion/internal/occlusion/telemetry"
)

// occlusionBakedSourceURL can be set at build time with
// -ldflags "-X main.occlusionBakedSourceURL=https://...". It is only
// consulted when -source is left empty: the command-line flag is the
// more specific, most-recently-expressed operator intent.
var occlusionBakedSourceURL string

const (
	exitOK          = 0
	exitLoadFailure = 1
	exitBindFailure = 2
	exitArgError    = 64
)

func main() {
	os.Exit(run())
}

func run() int {
	sourcePath := flag.String("source", "", "Path to the CSV source (uuid,visibility_level)")
	sourceURL := flag.String("source-url", "", "HTTP(S) URL to the CSV source, fetched with GET")
	backendKind := flag.String("backend", string(store.KindHashMap), "Backend kind: hashmap|vec|hybrid|fullhash")
	httpAddr := flag.String("http-addr", ":8080", "HTTP listen address for the visibility API")
	metricsAddr := flag.String("metrics-addr", ":9090", "HTTP listen address for the Prometheus /metrics endpoint")
	cacheRedisAddr := flag.String("cache-redis-addr", "", "If non-empty, cache HTTP-fetched CSV bodies in Redis at this address")
	cacheTTL := flag.Duration("cache-ttl", time.Hour, "TTL for cached CSV bodies")
	progressInterval := flag.Duration("progress-interval", 5*time.Second, "How often to log load progress; 0 disables")
	loadTimeout := flag.Duration("load-timeout", 2*time.Minute, "Maximum time to spend loading the source")
	flag.Parse()

	if *sourcePath != "" && *sourceURL != "" {
		fmt.Fprintln(os.Stderr, "occlusion-server: -source and -source-url are mutually exclusive")
		return exitArgError
	}

	src, err := resolveSource(*sourcePath, *sourceURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "occlusion-server: %v\n", err)
		return exitArgError
	}

	kind := store.Kind(*backendKind)
	if _, err := store.NewBuilder(kind); err != nil {
		fmt.Fprintf(os.Stderr, "occlusion-server: %v\n", err)
		return exitArgError
	}

	var cache loader.ByteCache
	if *cacheRedisAddr != "" {
		cache = loader.NewRedisByteCache(*cacheRedisAddr)
	}

	progress := make(chan loader.Progress, 1)
	go func() {
		for p := range progress {
			log.Printf("occlusion-server: load progress, rows_parsed=%d", p.RowsParsed)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), *loadTimeout)
	defer cancel()

	log.Printf("occlusion-server: loading %s into a %s backend", src, kind)
	result, err := loader.Load(ctx, src, loader.Options{
		BackendKind:   kind,
		ProgressEvery: *progressInterval,
		Progress:      progress,
		Cache:         cache,
		CacheTTL:      *cacheTTL,
	})
	close(progress)
	if err != nil {
		log.Printf("occlusion-server: load failed: %v", err)
		return exitLoadFailure
	}
	log.Printf("occlusion-server: loaded %d entries", result.Stats.TotalEntries)

	holder := &snapshot.Holder{}
	holder.Publish(&snapshot.Snapshot{Backend: result.Backend, Stats: result.Stats})
	engine := query.New(holder)

	apiServer := api.NewServer(engine)
	r := mux.NewRouter()
	apiServer.RegisterRoutes(r)
	httpServer := &http.Server{
		Addr:         *httpAddr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	metricsServer := &http.Server{
		Addr:    *metricsAddr,
		Handler: telemetry.Handler(),
	}

	bindErr := make(chan error, 2)
	go func() {
		log.Printf("occlusion-server: API listening on %s", *httpAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			bindErr <- err
		}
	}()
	go func() {
		log.Printf("occlusion-server: metrics listening on %s", *metricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			bindErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-bindErr:
		log.Printf("occlusion-server: bind failure: %v", err)
		return exitBindFailure
	case <-stop:
		log.Println("occlusion-server: shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = httpServer.Shutdown(shutdownCtx)
	_ = metricsServer.Shutdown(shutdownCtx)

	log.Println("occlusion-server: stopped")
	return exitOK
}

// resolveSource picks the effective loader.Source from the explicit flags
// and the build-time-baked URL, in that precedence order.
func resolveSource(path, url string) (loader.Source, error) {
	switch {
	case path != "":
		return loader.Source{Path: path}, nil
	case url != "":
		return loader.Source{URL: url}, nil
	case occlusionBakedSourceURL != "":
		return loader.Source{URL: occlusionBakedSourceURL}, nil
	default:
		return loader.Source{}, fmt.Errorf("no source: pass -source or -source-url, or build with a baked URL")
	}
}
