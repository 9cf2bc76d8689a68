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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// WebhookService posts a JSON summary of a warning (subject, body, level
// and ring number) to an arbitrary configured URL — the generic sink for destinations not covered by the
// named channels.
type WebhookService struct {
	url        string
	httpClient *http.Client
}

// NewWebhookService builds a WebhookService posting to url.
func NewWebhookService(url string) *WebhookService {
	return &WebhookService{url: url, httpClient: http.DefaultClient}
}

type webhookPayload struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
	Level   string `json:"level"`
	Ring    int64  `json:"ring_number"`
}

// Deliver posts msg as JSON.
func (s *WebhookService) Deliver(ctx context.Context, msg Message) error {
	payload := webhookPayload{
		Subject: msg.Subject,
		Body:    msg.Body,
		Level:   string(msg.Event.WarningLevel),
		Ring:    msg.Event.RingNumber,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return Retryable(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return Retryable(fmt.Errorf("webhook returned %d", resp.StatusCode))
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook rejected payload: %d", resp.StatusCode)
	}
	return nil
}
