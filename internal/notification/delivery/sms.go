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
	"fmt"
	"net/http"
	"net/url"

	"github.com/jordigilh/tunneledge/internal/domain"
)

// SMSMaxLen bounds the rendered message per §6: "SMS: 160-char message".
const SMSMaxLen = 160

// RenderSMS builds the fixed-format SMS body: "[LEVEL] Ring N: indicator
// @ value (threshold)" (§6), truncated to SMSMaxLen.
func RenderSMS(e domain.WarningEvent) string {
	text := fmt.Sprintf("[%s] Ring %d: %s @ %.2f (%.2f)", e.WarningLevel, e.RingNumber, e.IndicatorName, e.IndicatorValue, e.ThresholdValue)
	if len(text) > SMSMaxLen {
		text = text[:SMSMaxLen]
	}
	return text
}

// SMSGateway is the pluggable SMS transport. TwilioGateway and
// HTTPGateway implement it; there is no serial GSM modem implementation.
type SMSGateway interface {
	Send(ctx context.Context, to, text string) error
}

// TwilioGateway sends through Twilio's REST API.
type TwilioGateway struct {
	AccountSID string
	AuthToken  string
	From       string
	httpClient *http.Client
}

// NewTwilioGateway builds a TwilioGateway.
func NewTwilioGateway(accountSID, authToken, from string) *TwilioGateway {
	return &TwilioGateway{AccountSID: accountSID, AuthToken: authToken, From: from, httpClient: http.DefaultClient}
}

// Send posts the message via Twilio's Messages resource.
func (g *TwilioGateway) Send(ctx context.Context, to, text string) error {
	endpoint := fmt.Sprintf("https://api.twilio.com/2010-04-01/Accounts/%s/Messages.json", g.AccountSID)
	form := url.Values{"To": {to}, "From": {g.From}, "Body": {text}}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBufferString(form.Encode()))
	if err != nil {
		return err
	}
	req.SetBasicAuth(g.AccountSID, g.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return Retryable(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return Retryable(fmt.Errorf("twilio returned %d", resp.StatusCode))
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("twilio rejected message: %d", resp.StatusCode)
	}
	return nil
}

// HTTPGateway posts to a generic webhook-shaped SMS gateway.
type HTTPGateway struct {
	Endpoint   string
	httpClient *http.Client
}

// NewHTTPGateway builds an HTTPGateway.
func NewHTTPGateway(endpoint string) *HTTPGateway {
	return &HTTPGateway{Endpoint: endpoint, httpClient: http.DefaultClient}
}

// Send posts {to, text} as form-encoded values.
func (g *HTTPGateway) Send(ctx context.Context, to, text string) error {
	form := url.Values{"to": {to}, "text": {text}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.Endpoint, bytes.NewBufferString(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return Retryable(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return Retryable(fmt.Errorf("sms gateway returned %d", resp.StatusCode))
	}
	return nil
}

// SMSService dispatches rendered warning events through a configured
// SMSGateway to the recipients for the event's level.
type SMSService struct {
	gateway    SMSGateway
	recipients map[string][]string
}

// NewSMSService builds an SMSService.
func NewSMSService(gateway SMSGateway, recipients map[string][]string) *SMSService {
	return &SMSService{gateway: gateway, recipients: recipients}
}

// Deliver renders and sends the SMS to every recipient configured for the
// event's level.
func (s *SMSService) Deliver(ctx context.Context, msg Message) error {
	text := RenderSMS(msg.Event)
	for _, to := range s.recipients[string(msg.Event.WarningLevel)] {
		if err := s.gateway.Send(ctx, to, text); err != nil {
			return err
		}
	}
	return nil
}
