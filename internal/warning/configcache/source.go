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

package configcache

import (
	"context"

	"github.com/jordigilh/tunneledge/internal/domain"
)

// Backing is the durable store a Source falls through to on a cache miss
// or a Redis failure.
type Backing interface {
	Threshold(ctx context.Context, indicatorName, zone string) (domain.WarningThreshold, bool, error)
}

// Source wraps a Cache and its Backing store into a single
// warning.ThresholdSource, the shape the engine actually depends on. A
// Redis error never fails the lookup outright: it falls through to the
// backing store, since a stale-but-correct threshold beats no evaluation
// at all (§4.12).
type Source struct {
	cache   *Cache
	backing Backing
}

// NewSource builds a Source.
func NewSource(cache *Cache, backing Backing) *Source {
	return &Source{cache: cache, backing: backing}
}

// Threshold implements warning.ThresholdSource: check the cache first,
// fall through to the backing store on a miss or Redis error, and
// populate the cache on a store hit so the next lookup is served locally.
func (s *Source) Threshold(ctx context.Context, indicatorName, zone string) (domain.WarningThreshold, bool, error) {
	if th, found, err := s.cache.Get(ctx, indicatorName, zone); err == nil && found {
		return th, true, nil
	}

	th, found, err := s.backing.Threshold(ctx, indicatorName, zone)
	if err != nil || !found {
		return th, found, err
	}

	_ = s.cache.Set(ctx, th)
	return th, true, nil
}
