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
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// ByteCache is the minimal surface the loader needs from a cache for
// URL-sourced CSV bodies. It caches raw source bytes, never decisions:
// an optional startup-latency optimization, not a persistence layer.
//
type ByteCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RedisByteCache wraps github.com/redis/go-redis/v9 to cache fetched CSV
// bodies keyed by a hash of their source URL.
type RedisByteCache struct {
	client *redis.Client
}

// NewRedisByteCache dials addr (e.g. "127.0.0.1:6379") lazily; go-redis
// connects on first command, so construction itself cannot fail.
func NewRedisByteCache(addr string) *RedisByteCache {
	return &RedisByteCache{client: redis.NewClient(&redis.Options{Addr: addr})}
}

// CacheKey derives a stable cache key from a source URL so the URL itself
// never needs to be a valid Redis key (arbitrary length, no control chars).
func CacheKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return "occlusion:source:" + hex.EncodeToString(sum[:])
}

func (c *RedisByteCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (c *RedisByteCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

// defaultCacheTTL bounds how long a fetched CSV body is trusted before the
// loader re-fetches from the source of truth.
const defaultCacheTTL = time.Hour
