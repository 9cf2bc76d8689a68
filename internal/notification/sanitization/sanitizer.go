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

// Package sanitization redacts credential-shaped substrings from outbound
// notification bodies before they leave the process — collector status
// strings and manual-log operator notes occasionally carry pasted
// connection strings or tokens. SanitizeWithFallback degrades to a plain
// string-match pass rather than ever failing a delivery outright.
package sanitization

import "regexp"

var patterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(password|passwd|pwd)\s*[:=]\s*\S+`),
	regexp.MustCompile(`(?i)(token|api[_-]?key|secret)\s*[:=]\s*\S+`),
	regexp.MustCompile(`(?i)bearer\s+[a-z0-9._-]+`),
}

const redactedMarker = "***REDACTED***"

// simpleNeedles back the fallback path: each needle is matched literally
// (quoted, case-insensitive) together with the word that follows it,
// instead of through the primary pattern set; used when the regex pass
// recovers from a panic.
var simpleNeedles = []string{"password", "passwd", "token", "secret", "api_key", "apikey"}

// Sanitizer redacts credential-shaped text from notification content.
type Sanitizer struct{}

// NewSanitizer builds a Sanitizer.
func NewSanitizer() *Sanitizer {
	return &Sanitizer{}
}

// SanitizeWithFallback redacts known credential patterns from input. If
// the regex pass panics (a pathological pattern against adversarial
// input), it recovers and falls back to SafeFallback so a sanitization
// bug never blocks delivery outright.
func (s *Sanitizer) SanitizeWithFallback(input string) (result string, err error) {
	if input == "" {
		return "", nil
	}

	defer func() {
		if r := recover(); r != nil {
			result = s.SafeFallback(input)
			err = nil
		}
	}()

	out := input
	for _, p := range patterns {
		out = p.ReplaceAllString(out, redactedMarker)
	}
	return out, nil
}

// SafeFallback redacts using literal substring matching (via
// regexp.QuoteMeta, not the primary pattern set) for use when the
// primary sanitization path is unavailable.
func (s *Sanitizer) SafeFallback(input string) string {
	if input == "" {
		return ""
	}
	out := input
	for _, needle := range simpleNeedles {
		out = redactCaseInsensitive(out, needle)
	}
	return out
}

func redactCaseInsensitive(s, needle string) string {
	re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(needle) + `\S*(?:\s+\S+)?`)
	return re.ReplaceAllString(s, "[REDACTED]")
}
