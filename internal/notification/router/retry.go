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

package router

import (
	"context"
	"errors"
	"time"

	"github.com/go-logr/logr"

	"github.com/jordigilh/tunneledge/internal/metrics"
	"github.com/jordigilh/tunneledge/internal/notification/delivery"
)

// BackoffSchedule is the fixed retry delay ladder (§6): 1 minute, 5
// minutes, 15 minutes.
var BackoffSchedule = []time.Duration{60 * time.Second, 300 * time.Second, 900 * time.Second}

// DefaultMaxAttempts bounds the number of delivery attempts per task
// (§6: "max_attempts (default 3)").
const DefaultMaxAttempts = 3

// DefaultMaxAge bounds how long a task may keep retrying before it is
// abandoned (§6: "task age (default 24h)").
const DefaultMaxAge = 24 * time.Hour

// retrier re-attempts a failed delivery on BackoffSchedule, bounded by
// MaxAttempts and MaxAge. A zero-value retrier uses the package
// defaults.
type retrier struct {
	MaxAttempts int
	MaxAge      time.Duration
	Now         func() time.Time
	Sleep       func(context.Context, time.Duration) error
	Logger      logr.Logger
}

func newRetrier(logger logr.Logger) *retrier {
	return &retrier{
		MaxAttempts: DefaultMaxAttempts,
		MaxAge:      DefaultMaxAge,
		Now:         time.Now,
		Sleep:       sleepCtx,
		Logger:      logger,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// run attempts deliver once, then retries on the backoff schedule while
// deliver keeps returning a RetryableError, up to MaxAttempts total
// attempts or until createdAt exceeds MaxAge.
func (r *retrier) run(ctx context.Context, channel delivery.Channel, createdAt time.Time, deliver func(context.Context) error) {
	attempt := 0
	for {
		err := deliver(ctx)
		if err == nil {
			metrics.RecordNotification(string(channel), "delivered")
			return
		}

		var retryable *delivery.RetryableError
		if !errors.As(err, &retryable) {
			metrics.RecordNotification(string(channel), "failed")
			r.Logger.Error(err, "notification delivery failed permanently", "channel", channel)
			return
		}

		attempt++
		if attempt >= r.MaxAttempts {
			metrics.RecordNotification(string(channel), "exhausted")
			r.Logger.Error(err, "notification delivery exhausted retry attempts", "channel", channel, "attempts", attempt)
			return
		}
		if r.Now().Sub(createdAt) >= r.MaxAge {
			metrics.RecordNotificationRetryExpired()
			r.Logger.Info("notification retry task expired", "channel", channel, "age", r.Now().Sub(createdAt))
			return
		}

		delay := r.delayFor(attempt - 1)
		if sleepErr := r.Sleep(ctx, delay); sleepErr != nil {
			return
		}
	}
}

func (r *retrier) delayFor(index int) time.Duration {
	if index < 0 || index >= len(BackoffSchedule) {
		return BackoffSchedule[len(BackoffSchedule)-1]
	}
	return BackoffSchedule[index]
}
