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
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"
)

// EmailConfig configures the SMTP transport (§4.8, §6: "SMTP over TLS or
// SSL").
type EmailConfig struct {
	Host       string
	Port       int
	Username   string
	Password   string
	From       string
	UseTLS     bool
	UseSSL     bool
	Recipients map[string][]string // keyed by warning level
}

// EmailService delivers single messages and batch digests over SMTP.
type EmailService struct {
	cfg  EmailConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewEmailService builds an EmailService against the given config.
func NewEmailService(cfg EmailConfig) *EmailService {
	s := &EmailService{cfg: cfg}
	s.send = s.defaultSend
	return s
}

// Deliver sends one message to the recipients configured for the event's
// level, as both a plain-text and HTML-capable MIME body.
func (s *EmailService) Deliver(ctx context.Context, msg Message) error {
	recipients := s.cfg.Recipients[string(msg.Event.WarningLevel)]
	if len(recipients) == 0 {
		return nil
	}
	return s.deliverTo(recipients, msg.Subject, msg.Body)
}

// DeliverBatch sends one digest email summarizing multiple messages to
// the given recipients (§6: "batch (summary) variant").
func (s *EmailService) DeliverBatch(ctx context.Context, recipients []string, subject string, messages []Message) error {
	var body strings.Builder
	for _, m := range messages {
		body.WriteString(m.Subject)
		body.WriteString(": ")
		body.WriteString(m.Body)
		body.WriteString("\n")
	}
	return s.deliverTo(recipients, subject, body.String())
}

func (s *EmailService) deliverTo(recipients []string, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	mime := "MIME-Version: 1.0\r\nContent-Type: multipart/alternative; boundary=\"edge-platform-boundary\"\r\n"
	message := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\n%s\r\n--edge-platform-boundary\r\nContent-Type: text/plain; charset=\"utf-8\"\r\n\r\n%s\r\n--edge-platform-boundary\r\nContent-Type: text/html; charset=\"utf-8\"\r\n\r\n<pre>%s</pre>\r\n--edge-platform-boundary--\r\n",
		s.cfg.From, strings.Join(recipients, ", "), subject, mime, body, body,
	)

	if err := s.send(addr, auth, s.cfg.From, recipients, []byte(message)); err != nil {
		return Retryable(fmt.Errorf("smtp send failed: %w", err))
	}
	return nil
}

func (s *EmailService) defaultSend(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
	if s.cfg.UseSSL {
		return s.sendSSL(addr, auth, from, to, msg)
	}
	return smtp.SendMail(addr, auth, from, to, msg)
}

// sendSSL dials a direct TLS connection for SMTPS (port 465 style)
// deployments, rather than STARTTLS.
func (s *EmailService) sendSSL(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: s.cfg.Host})
	if err != nil {
		return err
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		return err
	}
	defer client.Close()

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return err
		}
	}
	if err := client.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	return w.Close()
}
