/*
Copyright 2026 Jordi Gil.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package configcache implements the Redis-backed WarningThreshold cache
// (SPEC_FULL.md §4.12), keyed by (indicator_name, geological_zone). A
// cache miss or Redis error falls through to the backing store rather
// than failing the evaluation.
package configcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/redis/go-redis/v9"

	"github.com/jordigilh/tunneledge/internal/domain"
)

// DefaultTTL bounds how long a cached threshold is trusted before a
// refresh from the backing store (SPEC_FULL.md §4.12).
const DefaultTTL = 5 * time.Minute

// Cache is a thin read-through cache over WarningThreshold rows.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger logr.Logger
}

// New builds a Cache. A zero ttl defaults to DefaultTTL.
func New(client *redis.Client, ttl time.Duration, logger logr.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{client: client, ttl: ttl, logger: logger}
}

func key(indicatorName, zone string) string {
	return fmt.Sprintf("warning_threshold:%s:%s", indicatorName, zone)
}

// Get returns the cached threshold for (indicatorName, zone), if present
// and unexpired. found is false on a cache miss; err is non-nil only for
// an unexpected Redis failure (not redis.Nil) or a cached value that
// cannot be decoded.
func (c *Cache) Get(ctx context.Context, indicatorName, zone string) (th domain.WarningThreshold, found bool, err error) {
	raw, err := c.client.Get(ctx, key(indicatorName, zone)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.WarningThreshold{}, false, nil
	}
	if err != nil {
		c.logger.Error(err, "config cache get failed", "indicator", indicatorName, "zone", zone)
		return domain.WarningThreshold{}, false, err
	}

	if err := json.Unmarshal(raw, &th); err != nil {
		return domain.WarningThreshold{}, false, fmt.Errorf("unmarshal cached threshold: %w", err)
	}
	return th, true, nil
}

// Set writes th into the cache with the configured TTL.
func (c *Cache) Set(ctx context.Context, th domain.WarningThreshold) error {
	raw, err := json.Marshal(th)
	if err != nil {
		return fmt.Errorf("marshal threshold: %w", err)
	}
	return c.client.Set(ctx, key(th.IndicatorName, th.GeologicalZone), raw, c.ttl).Err()
}

// Invalidate evicts the cached entry for (indicatorName, zone). No code
// path in the service calls it, so entries otherwise refresh only when
// their TTL expires.
func (c *Cache) Invalidate(ctx context.Context, indicatorName, zone string) error {
	return c.client.Del(ctx, key(indicatorName, zone)).Err()
}
