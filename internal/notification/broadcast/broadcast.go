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

// Package broadcast implements the broadcast delivery channel (§4.8,
// §6): warnings are published over Redis Pub/Sub to the "all" topic,
// a per-level topic, and a per-ring topic, and the most recent event per
// indicator is retained under a plain key so a client connecting late
// can still read the current state instead of only future pushes.
package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/redis/go-redis/v9"

	"github.com/jordigilh/tunneledge/internal/domain"
	"github.com/jordigilh/tunneledge/internal/notification/delivery"
)

// RetainedTTL bounds how long a retained "latest" key survives with no
// further updates for that indicator.
const RetainedTTL = 24 * time.Hour

// Topics are the Pub/Sub channel names a published event fans out to.
func Topics(event domain.WarningEvent) []string {
	return []string{
		"all",
		"level/" + string(event.WarningLevel),
		fmt.Sprintf("ring/%d", event.RingNumber),
	}
}

func retainedKey(event domain.WarningEvent) string {
	return fmt.Sprintf("broadcast:latest:%s", event.IndicatorName)
}

// Service publishes warning events over Redis Pub/Sub and implements
// delivery.Service so the router can dispatch to it like any other
// channel.
type Service struct {
	client *redis.Client
	logger logr.Logger
}

// New builds a broadcast Service.
func New(client *redis.Client, logger logr.Logger) *Service {
	return &Service{client: client, logger: logger}
}

// Deliver publishes msg.Event to every applicable topic and updates the
// retained "latest" key for its indicator.
func (s *Service) Deliver(ctx context.Context, msg delivery.Message) error {
	raw, err := json.Marshal(msg.Event)
	if err != nil {
		return fmt.Errorf("marshal broadcast event: %w", err)
	}

	for _, topic := range Topics(msg.Event) {
		if err := s.client.Publish(ctx, topic, raw).Err(); err != nil {
			return delivery.Retryable(fmt.Errorf("publish to %s: %w", topic, err))
		}
	}

	if err := s.client.Set(ctx, retainedKey(msg.Event), raw, RetainedTTL).Err(); err != nil {
		return delivery.Retryable(fmt.Errorf("set retained key: %w", err))
	}
	return nil
}

// Latest returns the most recently broadcast event for indicatorName, if
// one is retained and unexpired.
func (s *Service) Latest(ctx context.Context, indicatorName string) (domain.WarningEvent, bool, error) {
	raw, err := s.client.Get(ctx, retainedKey(domain.WarningEvent{IndicatorName: indicatorName})).Bytes()
	if err == redis.Nil {
		return domain.WarningEvent{}, false, nil
	}
	if err != nil {
		return domain.WarningEvent{}, false, err
	}

	var event domain.WarningEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		return domain.WarningEvent{}, false, fmt.Errorf("unmarshal retained event: %w", err)
	}
	return event, true, nil
}

// Subscribe subscribes to topic and returns the live PubSub handle; the
// caller drains it via Channel() and Close()s it when done.
func (s *Service) Subscribe(ctx context.Context, topic string) *redis.PubSub {
	return s.client.Subscribe(ctx, topic)
}
