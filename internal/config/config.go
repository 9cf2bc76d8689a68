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

// Package config loads the single YAML configuration document described in
// SPEC_FULL.md §4.11, and optionally watches the threshold/calibration
// documents it references for hot reload.
package config

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// ServerConfig configures the HTTP query API and metrics listeners.
type ServerConfig struct {
	HTTPPort    string `yaml:"http_port"`
	MetricsPort string `yaml:"metrics_port"`
}

// GuidanceCollectorConfig configures the guidance polling collector (§4.1).
type GuidanceCollectorConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
}

// MonitoringEndpointConfig configures one HTTP-polled monitoring endpoint.
type MonitoringEndpointConfig struct {
	Name         string        `yaml:"name"`
	URL          string        `yaml:"url"`
	PollInterval time.Duration `yaml:"poll_interval"`
	MaxAttempts  int           `yaml:"max_attempts"`
	BearerToken  string        `yaml:"bearer_token"`
}

// CollectorsConfig groups the three collector variants' configuration.
type CollectorsConfig struct {
	PLCTags    []string                   `yaml:"plc_tags"`
	Guidance   GuidanceCollectorConfig    `yaml:"guidance"`
	Monitoring []MonitoringEndpointConfig `yaml:"monitoring"`
}

// QualityConfig configures the quality pipeline (§4.2).
type QualityConfig struct {
	ThresholdsPath        string  `yaml:"thresholds_path"`
	CalibrationsPath      string  `yaml:"calibrations_path"`
	ReasonablenessPath    string  `yaml:"reasonableness_path"`
	MaxGapSeconds         float64 `yaml:"max_gap_seconds"`
	SampleIntervalSeconds float64 `yaml:"sample_interval_seconds"`
	GapToleranceSeconds   float64 `yaml:"gap_tolerance_seconds"`
}

// BufferConfig configures the backpressure-aware batch writer (§4.3).
type BufferConfig struct {
	MaxSize        int           `yaml:"max_size"`
	OverflowPolicy string        `yaml:"overflow_policy"`
	FlushInterval  time.Duration `yaml:"flush_interval"`
}

// RingConfig configures ring boundary detection (§4.4).
type RingConfig struct {
	WidthMM         float64       `yaml:"width_mm"`
	ToleranceMM     float64       `yaml:"tolerance_mm"`
	TypicalDuration time.Duration `yaml:"typical_duration"`
	AdvanceTag      string        `yaml:"advance_tag"`    // PLC tag carrying the cumulative advance signal
	AssemblyTag     string        `yaml:"assembly_tag"`   // PLC tag carrying the ring-assembly-active binary signal
	CheckInterval   time.Duration `yaml:"check_interval"` // how often the scheduler looks for a completed ring
	ShieldDiameterM float64       `yaml:"shield_diameter_m"`
	GeologicalZone  string        `yaml:"geological_zone"`
}

// WarningConfig configures the warning engine (§4.7).
type WarningConfig struct {
	ThresholdsPath        string  `yaml:"thresholds_path"`
	HysteresisPercentage  float64 `yaml:"hysteresis_percentage"`
}

// EmailConfig configures the SMTP notification transport (§6).
type EmailConfig struct {
	Host       string              `yaml:"host"`
	Port       int                 `yaml:"port"`
	UseTLS     bool                `yaml:"use_tls"`
	UseSSL     bool                `yaml:"use_ssl"`
	From       string              `yaml:"from"`
	Username   string              `yaml:"username"`
	Password   string              `yaml:"password"`
	Recipients map[string][]string `yaml:"recipients"` // keyed by warning level
}

// SMSConfig configures the SMS transport (§6): Twilio or a generic HTTP
// gateway. No serial GSM modem transport is implemented: provider "modem"
// builds no gateway, and ModemDevice is not read.
type SMSConfig struct {
	Provider    string              `yaml:"provider"` // twilio | http_gateway | modem
	AccountSID  string              `yaml:"account_sid"`
	AuthToken   string              `yaml:"auth_token"`
	From        string              `yaml:"from"`
	GatewayURL  string              `yaml:"gateway_url"`
	ModemDevice string              `yaml:"modem_device"`
	Recipients  map[string][]string `yaml:"recipients"` // keyed by warning level
}

// SlackConfig configures the Slack notification channel (§6.3).
type SlackConfig struct {
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
	WebhookURL string `yaml:"webhook_url"`
}

// WebhookConfig configures the generic outbound webhook channel (§6).
type WebhookConfig struct {
	URL string `yaml:"url"`
}

// FileConfig configures the on-disk fallback notification channel (§6),
// useful in dev/test environments with no external transports configured.
type FileConfig struct {
	Directory string `yaml:"directory"`
}

// BroadcastConfig configures the pub/sub broadcast channel (§6.2).
type BroadcastConfig struct {
	RedisAddr string `yaml:"redis_addr"`
}

// NotificationConfig groups all notification transports.
type NotificationConfig struct {
	Email     EmailConfig     `yaml:"email"`
	SMS       SMSConfig       `yaml:"sms"`
	Slack     SlackConfig     `yaml:"slack"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	File      FileConfig      `yaml:"file"`
	Broadcast BroadcastConfig `yaml:"broadcast"`
}

// StorageConfig configures persistence backends.
type StorageConfig struct {
	PostgresDSN string `yaml:"postgres_dsn"`
	RedisAddr   string `yaml:"redis_addr"`
}

// LoggingConfig configures the process logger (§4.11).
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is the top-level document loaded from the service's YAML config
// file (§4.11, §6 "Configuration files").
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Collectors   CollectorsConfig   `yaml:"collectors"`
	Quality      QualityConfig      `yaml:"quality"`
	Buffer       BufferConfig       `yaml:"buffer"`
	Ring         RingConfig         `yaml:"ring"`
	Warning      WarningConfig      `yaml:"warning"`
	Notification NotificationConfig `yaml:"notification"`
	Storage      StorageConfig      `yaml:"storage"`
	Logging      LoggingConfig      `yaml:"logging"`
}

func applyDefaults(c *Config) {
	if c.Quality.MaxGapSeconds == 0 {
		c.Quality.MaxGapSeconds = 5
	}
	if c.Buffer.MaxSize == 0 {
		c.Buffer.MaxSize = 10000
	}
	if c.Buffer.OverflowPolicy == "" {
		c.Buffer.OverflowPolicy = "drop_oldest"
	}
	if c.Buffer.FlushInterval == 0 {
		c.Buffer.FlushInterval = 5 * time.Second
	}
	if c.Ring.WidthMM == 0 {
		c.Ring.WidthMM = 1500
	}
	if c.Ring.ToleranceMM == 0 {
		c.Ring.ToleranceMM = 200
	}
	if c.Ring.TypicalDuration == 0 {
		c.Ring.TypicalDuration = 45 * time.Minute
	}
	if c.Ring.AdvanceTag == "" {
		c.Ring.AdvanceTag = "advance_cumulative_mm"
	}
	if c.Ring.AssemblyTag == "" {
		c.Ring.AssemblyTag = "ring_assembly_active"
	}
	if c.Ring.CheckInterval == 0 {
		c.Ring.CheckInterval = 30 * time.Second
	}
	if c.Quality.SampleIntervalSeconds == 0 {
		c.Quality.SampleIntervalSeconds = 1.0
	}
	if c.Quality.GapToleranceSeconds == 0 {
		c.Quality.GapToleranceSeconds = 0.5
	}
	if c.Ring.ShieldDiameterM == 0 {
		c.Ring.ShieldDiameterM = 10.0
	}
	if c.Ring.GeologicalZone == "" {
		c.Ring.GeologicalZone = "zone-1"
	}
	if c.Warning.HysteresisPercentage == 0 {
		c.Warning.HysteresisPercentage = 0.05
	}
	if c.Collectors.Guidance.PollInterval == 0 {
		c.Collectors.Guidance.PollInterval = time.Second
	}
	if c.Notification.File.Directory == "" {
		c.Notification.File.Directory = "./notifications"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
}

// Load reads and parses a Config document from path, applying defaults for
// any field the document omits.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// Watcher hot-reloads the threshold/calibration documents a Config
// references, invalidating a registered callback on every change so
// callers (e.g. the threshold config cache, §4.12) can drop stale state.
type Watcher struct {
	mu        sync.RWMutex
	fsWatcher *fsnotify.Watcher
	onChange  []func(path string)
	done      chan struct{}
}

// NewWatcher starts watching the given paths for writes/renames.
func NewWatcher(paths ...string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := fw.Add(p); err != nil {
			_ = fw.Close()
			return nil, fmt.Errorf("watching %s: %w", p, err)
		}
	}

	w := &Watcher{fsWatcher: fw, done: make(chan struct{})}
	go w.loop()
	return w, nil
}

// OnChange registers a callback invoked (with the changed path) whenever a
// watched file is written or renamed.
func (w *Watcher) OnChange(fn func(path string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = append(w.onChange, fn)
}

func (w *Watcher) loop() {
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Rename|fsnotify.Create) == 0 {
				continue
			}
			w.mu.RLock()
			callbacks := append([]func(path string){}, w.onChange...)
			w.mu.RUnlock()
			for _, cb := range callbacks {
				cb(event.Name)
			}
		case <-w.fsWatcher.Errors:
			// Errors are surfaced only via logging at the call site; the
			// watcher itself keeps running rather than aborting the
			// process over a transient notify-queue overflow.
		case <-w.done:
			return
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsWatcher.Close()
}
