// occlusion-loadgen is a tiny, dependency-free HTTP load generator for the
// occlusion visibility server. It reuses HTTP connections (keep-alive) and
// supports concurrency so smoke tests run fast without external tools.
//
// Modes:
//   - single: send N checks for a single object UUID
//   - batch:  send N requests to /api/v1/check/batch with a fixed-size
//     object list per request
//
// Usage examples:
//
//	occlusion-loadgen -base=http://127.0.0.1:8080 -mode=single -object=550e8400-e29b-41d4-a716-446655440000 -n=5000 -c=16
//	occlusion-loadgen -base=http://127.0.0.1:8080 -mode=batch -batch-size=50 -n=2000 -c=8
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type modeType string

const (
	modeSingle modeType = "single"
	modeBatch  modeType = "batch"
)

type checkRequest struct {
	Object         string `json:"object"`
	VisibilityMask int    `json:"visibility_mask"`
}

type checkBatchRequest struct {
	Objects        []string `json:"objects"`
	VisibilityMask int      `json:"visibility_mask"`
}

func main() {
	var (
		base      = flag.String("base", "http://127.0.0.1:8080", "Base URL including scheme and host")
		modeS     = flag.String("mode", string(modeSingle), "Mode: single|batch")
		object    = flag.String("object", "550e8400-e29b-41d4-a716-446655440000", "Object UUID for single mode")
		mask      = flag.Int("mask", 255, "Visibility mask sent with every request")
		batchSize = flag.Int("batch-size", 50, "Number of objects per request in batch mode")
		N         = flag.Int("n", 5000, "Total requests to send")
		conc      = flag.Int("c", 8, "Number of concurrent workers")
		timeout   = flag.Duration("timeout", 20*time.Second, "Overall timeout for the loadgen run")
	)
	flag.Parse()

	m := modeType(strings.ToLower(*modeS))
	if m != modeSingle && m != modeBatch {
		fmt.Fprintf(os.Stderr, "unknown -mode=%s (want single|batch)\n", *modeS)
		os.Exit(2)
	}
	if *N <= 0 || *conc <= 0 {
		fmt.Fprintln(os.Stderr, "-n and -c must be > 0")
		os.Exit(2)
	}

	var url, body string
	switch m {
	case modeSingle:
		url = strings.TrimRight(*base, "/") + "/api/v1/check"
		buf, _ := json.Marshal(checkRequest{Object: *object, VisibilityMask: *mask})
		body = string(buf)
	case modeBatch:
		url = strings.TrimRight(*base, "/") + "/api/v1/check/batch"
		objects := make([]string, *batchSize)
		for i := range objects {
			objects[i] = *object
		}
		buf, _ := json.Marshal(checkBatchRequest{Objects: objects, VisibilityMask: *mask})
		body = string(buf)
	}

	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        256,
		MaxIdleConnsPerHost: 256,
		IdleConnTimeout:     30 * time.Second,
	}
	client := &http.Client{Transport: tr, Timeout: 5 * time.Second}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	start := time.Now()
	var ok, failed int64

	worker := func(count int) {
		for i := 0; i < count; i++ {
			select {
			case <-ctx.Done():
				return
			default:
			}
			req, _ := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader([]byte(body)))
			req.Header.Set("Content-Type", "application/json")
			resp, err := client.Do(req)
			if err == nil && resp.StatusCode == http.StatusOK {
				atomic.AddInt64(&ok, 1)
				_, _ = io.Copy(io.Discard, resp.Body)
				_ = resp.Body.Close()
			} else {
				atomic.AddInt64(&failed, 1)
				if resp != nil {
					_ = resp.Body.Close()
				}
				time.Sleep(200 * time.Microsecond)
			}
		}
	}

	per := *N / *conc
	rem := *N - per**conc
	var wg sync.WaitGroup
	wg.Add(*conc)
	for w := 0; w < *conc; w++ {
		count := per
		if w == *conc-1 {
			count += rem
		}
		go func(n int) {
			defer wg.Done()
			worker(n)
		}(count)
	}
	wg.Wait()

	elapsed := time.Since(start)
	if elapsed <= 0 {
		elapsed = time.Millisecond
	}
	ops := float64(*N) / elapsed.Seconds()
	fmt.Printf("occlusion-loadgen: mode=%s N=%d c=%d go=%d ok=%d failed=%d Duration=%s Throughput=%.0f req/s\n",
		m, *N, *conc, runtime.GOMAXPROCS(0), ok, failed, elapsed.Truncate(time.Millisecond), ops)
}
