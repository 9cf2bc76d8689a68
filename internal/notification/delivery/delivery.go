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

// Package delivery implements the notification channels the router
// dispatches through: broadcast, email, SMS, Slack, webhook, and file
// (§4.8, §6).
package delivery

import (
	"context"
	"fmt"

	"github.com/jordigilh/tunneledge/internal/domain"
)

// Channel names a delivery sink.
type Channel string

const (
	ChannelBroadcast Channel = "broadcast"
	ChannelEmail     Channel = "email"
	ChannelSMS       Channel = "sms"
	ChannelSlack     Channel = "slack"
	ChannelWebhook   Channel = "webhook"
	ChannelFile      Channel = "file"
)

// Message is what a channel actually sends: the warning event plus
// pre-rendered subject/body text so channels don't each re-implement
// formatting.
type Message struct {
	Event   domain.WarningEvent
	Subject string
	Body    string
}

// Service is implemented by every deliverable channel.
type Service interface {
	Deliver(ctx context.Context, msg Message) error
}

// RetryableError marks a delivery failure as one the retry sub-component
// should re-attempt on its backoff schedule, as opposed to a permanent
// configuration error.
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable delivery error: %v", e.Err)
}

func (e *RetryableError) Unwrap() error { return e.Err }

// Retryable wraps err as a RetryableError.
func Retryable(err error) error {
	return &RetryableError{Err: err}
}
