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

package delivery

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"

	"github.com/jordigilh/tunneledge/internal/domain"
)

// SlackService delivers warnings as Slack incoming-webhook messages, a
// webhook-variant Channel alongside the generic HTTP webhook sink.
type SlackService struct {
	webhookURL string
	post       func(url string, msg *slack.WebhookMessage) error
}

// NewSlackService builds a SlackService posting to webhookURL.
func NewSlackService(webhookURL string) *SlackService {
	return &SlackService{webhookURL: webhookURL, post: slack.PostWebhook}
}

// Deliver posts msg as a Slack attachment, colored by warning level.
func (s *SlackService) Deliver(ctx context.Context, msg Message) error {
	attachment := slack.Attachment{
		Color: colorForLevel(msg.Event.WarningLevel),
		Title: msg.Subject,
		Text:  msg.Body,
	}
	payload := &slack.WebhookMessage{Attachments: []slack.Attachment{attachment}}

	if err := s.post(s.webhookURL, payload); err != nil {
		return Retryable(fmt.Errorf("slack webhook post failed: %w", err))
	}
	return nil
}

func colorForLevel(level domain.Level) string {
	switch level {
	case domain.LevelAlarm:
		return "danger"
	case domain.LevelWarning:
		return "warning"
	default:
		return "good"
	}
}
