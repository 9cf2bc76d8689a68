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

// Package router implements graded notification dispatch (§4.8): every
// warning level fans out to a fixed set of channels, each delivery
// retried independently on a fixed backoff schedule. The engine calls
// Dispatch and moves on; delivery happens on background goroutines.
package router

import (
	"context"
	"time"

	"github.com/go-logr/logr"

	"github.com/jordigilh/tunneledge/internal/domain"
	"github.com/jordigilh/tunneledge/internal/notification/delivery"
)

// channelsForLevel is the graded dispatch table (§4.8): ATTENTION
// broadcasts only, WARNING adds email, ALARM adds SMS.
var channelsForLevel = map[domain.Level][]delivery.Channel{
	domain.LevelAttention: {delivery.ChannelBroadcast},
	domain.LevelWarning:   {delivery.ChannelBroadcast, delivery.ChannelEmail},
	domain.LevelAlarm:     {delivery.ChannelBroadcast, delivery.ChannelEmail, delivery.ChannelSMS},
}

// Router dispatches warning events to their graded set of channels,
// fire-and-forget, retrying failed deliveries in the background.
type Router struct {
	services map[delivery.Channel]delivery.Service
	retrier  *retrier
	logger   logr.Logger
}

// New builds a Router. services need not cover every Channel; a
// configured level whose channel has no registered Service is skipped
// with a V(1) info log line rather than failing the whole dispatch.
func New(services map[delivery.Channel]delivery.Service, logger logr.Logger) *Router {
	return &Router{
		services: services,
		retrier:  newRetrier(logger),
		logger:   logger,
	}
}

// Dispatch fans each event out to its graded channels on its own
// goroutine and returns immediately (§4.7 Phase 7: fire-and-forget).
func (r *Router) Dispatch(events []domain.WarningEvent) {
	now := time.Now()
	for _, event := range events {
		event := event
		msg := Render(event)
		for _, channel := range channelsForLevel[event.WarningLevel] {
			svc, ok := r.services[channel]
			if !ok {
				r.logger.V(1).Info("no service registered for channel", "channel", channel, "level", event.WarningLevel)
				continue
			}
			channel := channel
			svc := svc
			go r.retrier.run(context.Background(), channel, now, func(ctx context.Context) error {
				return svc.Deliver(ctx, msg)
			})
		}
	}
}

// MostSevereChannel reports the highest-severity channel configured for
// level, useful for callers that need a single representative sink
// rather than the full fan-out (e.g. acknowledgement links).
func MostSevereChannel(level domain.Level) (delivery.Channel, bool) {
	channels, ok := channelsForLevel[level]
	if !ok || len(channels) == 0 {
		return "", false
	}
	return channels[len(channels)-1], true
}
