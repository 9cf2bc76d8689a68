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

// Command edge-platform runs the tunneling edge data platform: sensor
// collectors feed the quality pipeline, completed rings are aggregated
// and evaluated against configured thresholds, and warnings flow out as
// notifications and work orders (SPEC_FULL.md §5).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"go.opentelemetry.io/otel"

	"github.com/go-logr/logr"

	"github.com/jordigilh/tunneledge/internal/api"
	"github.com/jordigilh/tunneledge/internal/buffer"
	"github.com/jordigilh/tunneledge/internal/collector"
	"github.com/jordigilh/tunneledge/internal/collector/monitoring"
	"github.com/jordigilh/tunneledge/internal/config"
	"github.com/jordigilh/tunneledge/internal/logging"
	"github.com/jordigilh/tunneledge/internal/notification/broadcast"
	"github.com/jordigilh/tunneledge/internal/notification/delivery"
	notificationrouter "github.com/jordigilh/tunneledge/internal/notification/router"
	"github.com/jordigilh/tunneledge/internal/pipeline"
	"github.com/jordigilh/tunneledge/internal/quality/calibrate"
	"github.com/jordigilh/tunneledge/internal/quality/reasonableness"
	"github.com/jordigilh/tunneledge/internal/quality/threshold"
	"github.com/jordigilh/tunneledge/internal/quality/tracker"
	"github.com/jordigilh/tunneledge/internal/ring/summary"
	"github.com/jordigilh/tunneledge/internal/scheduler"
	"github.com/jordigilh/tunneledge/internal/storage/postgres"
	"github.com/jordigilh/tunneledge/internal/warning"
	"github.com/jordigilh/tunneledge/internal/warning/configcache"
	"github.com/jordigilh/tunneledge/internal/workorder"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the service's YAML configuration document")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	zapLogger, err := logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer zapLogger.Sync() //nolint:errcheck
	logger := logging.AsLogr(zapLogger)

	// No OTLP exporter ships in this module's dependency set, so the
	// provider created here only propagates span context through the
	// pipeline; it is not wired to an external backend.
	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	defer tp.Shutdown(context.Background()) //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, postgres.Config{
		DSN:          cfg.Storage.PostgresDSN,
		MaxOpenConns: postgres.DefaultMaxOpenConns,
	})
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Storage.RedisAddr})
	defer redisClient.Close()

	readingsRepo := postgres.NewReadingsRepository(db)
	ringRepo := postgres.NewRingRepository(db)
	thresholdRepo := postgres.NewThresholdRepository(db)
	warningRepo := postgres.NewWarningRepository(db)
	workOrderRepo := postgres.NewWorkOrderRepository(db)
	predictionRepo := postgres.NewPredictionRepository(db)

	thresholdCache := configcache.New(redisClient, 5*time.Minute, logger)
	thresholdSource := configcache.NewSource(thresholdCache, thresholdRepo)

	bounds, err := loadThresholdBounds(cfg.Quality.ThresholdsPath)
	if err != nil {
		return fmt.Errorf("loading quality thresholds: %w", err)
	}
	calibrations, err := loadCalibrations(cfg.Quality.CalibrationsPath)
	if err != nil {
		return fmt.Errorf("loading calibrations: %w", err)
	}

	validator := threshold.New(bounds)
	calibrator := calibrate.New(calibrations)
	reasonablenessChecker := reasonableness.New(nil)
	qualityTracker := tracker.New()

	buf := buffer.New(cfg.Buffer.MaxSize, buffer.OverflowPolicy(cfg.Buffer.OverflowPolicy), readingsRepo.Flush)

	services := buildNotificationServices(cfg.Notification, redisClient, logger)
	router := notificationrouter.New(services, logger)

	engine := warning.New(thresholdSource, ringRepo, predictionRepo, warningRepo, router, logger)
	workorders := workorder.New(workOrderRepo, time.Now, logger)
	summaryWriter := summary.New(ringRepo, time.Now)

	pipelineCfg := pipeline.Config{
		SampleIntervalSeconds:  cfg.Quality.SampleIntervalSeconds,
		GapToleranceSeconds:    cfg.Quality.GapToleranceSeconds,
		MaxGapSeconds:          cfg.Quality.MaxGapSeconds,
		RingWidthMM:            cfg.Ring.WidthMM,
		RingToleranceMM:        cfg.Ring.ToleranceMM,
		TypicalDurationSeconds: cfg.Ring.TypicalDuration.Seconds(),
		ShieldDiameterM:        cfg.Ring.ShieldDiameterM,
		RingWidthM:             cfg.Ring.WidthMM / 1000.0,
		AdvanceTag:             cfg.Ring.AdvanceTag,
		AssemblyTag:            cfg.Ring.AssemblyTag,
		GeologicalZone:         cfg.Ring.GeologicalZone,
	}
	p := pipeline.New(
		pipelineCfg, validator, calibrator, reasonablenessChecker, qualityTracker, buf,
		readingsRepo, readingsRepo, summaryWriter, engine, workorders,
		nil, logger,
	)

	monitoringCollectors := buildMonitoringCollectors(cfg.Collectors.Monitoring, p.Sink(), logger)

	sched := scheduler.New(time.Second, logger)
	sched.Register("ring_boundary_check", p.CheckRingBoundary, cfg.Ring.CheckInterval)
	sched.Register("buffer_flush", buf.Flush, cfg.Buffer.FlushInterval)

	probes := map[string]api.Prober{
		"postgres": func(ctx context.Context) error { return db.PingContext(ctx) },
		"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	}
	apiServer := api.New(ringRepo, readingsRepo, warningRepo, predictionRepo, buf, probes, logger)

	httpServer := &http.Server{
		Addr:    ":" + cfg.Server.HTTPPort,
		Handler: apiServer.Router([]string{"*"}),
	}
	metricsServer := &http.Server{
		Addr:    ":" + cfg.Server.MetricsPort,
		Handler: promhttp.Handler(),
	}

	g, gctx := errgroup.WithContext(ctx)

	for _, mc := range monitoringCollectors {
		mc := mc
		g.Go(func() error { return mc.Run(gctx) })
	}

	g.Go(func() error {
		sched.Run(gctx)
		return nil
	})

	g.Go(func() error { return serveUntilDone(gctx, httpServer) })
	g.Go(func() error { return serveUntilDone(gctx, metricsServer) })

	<-gctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := buf.Shutdown(shutdownCtx); err != nil {
		logger.Error(err, "buffer shutdown failed")
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// serveUntilDone runs srv until ctx is canceled, then gracefully shuts it
// down. http.ErrServerClosed is the expected outcome of that shutdown,
// not a failure.
func serveUntilDone(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-errCh
	case err := <-errCh:
		return err
	}
}

func buildMonitoringCollectors(endpoints []config.MonitoringEndpointConfig, sink collector.Sink, logger logr.Logger) []*monitoring.Collector {
	report := func(name string, err error) {
		logger.Error(err, "monitoring collector error", "collector", name)
	}

	out := make([]*monitoring.Collector, 0, len(endpoints))
	for _, ep := range endpoints {
		out = append(out, monitoring.New(monitoring.Endpoint{
			Name:         ep.Name,
			URL:          ep.URL,
			PollInterval: ep.PollInterval,
			MaxAttempts:  ep.MaxAttempts,
			BearerToken:  ep.BearerToken,
		}, http.DefaultClient, sink, report))
	}
	return out
}

// buildNotificationServices wires one delivery.Service per configured
// transport (§6). Only transports with non-empty configuration are
// wired: an operator who hasn't configured SMTP, for instance, gets no
// email channel rather than one that fails on every send.
func buildNotificationServices(cfg config.NotificationConfig, redisClient *redis.Client, logger logr.Logger) map[delivery.Channel]delivery.Service {
	services := map[delivery.Channel]delivery.Service{}

	if cfg.Email.Host != "" {
		services[delivery.ChannelEmail] = delivery.NewEmailService(delivery.EmailConfig{
			Host:       cfg.Email.Host,
			Port:       cfg.Email.Port,
			UseTLS:     cfg.Email.UseTLS,
			UseSSL:     cfg.Email.UseSSL,
			From:       cfg.Email.From,
			Username:   cfg.Email.Username,
			Password:   cfg.Email.Password,
			Recipients: cfg.Email.Recipients,
		})
	}

	if gateway := buildSMSGateway(cfg.SMS); gateway != nil {
		services[delivery.ChannelSMS] = delivery.NewSMSService(gateway, cfg.SMS.Recipients)
	}

	if cfg.Slack.WebhookURL != "" {
		services[delivery.ChannelSlack] = delivery.NewSlackService(cfg.Slack.WebhookURL)
	}

	if cfg.Webhook.URL != "" {
		services[delivery.ChannelWebhook] = delivery.NewWebhookService(cfg.Webhook.URL)
	}

	services[delivery.ChannelFile] = delivery.NewFileDeliveryService(cfg.File.Directory)

	if cfg.Broadcast.RedisAddr != "" {
		services[delivery.ChannelBroadcast] = broadcast.New(redisClient, logger)
	}

	return services
}

func buildSMSGateway(cfg config.SMSConfig) delivery.SMSGateway {
	switch cfg.Provider {
	case "twilio":
		return delivery.NewTwilioGateway(cfg.AccountSID, cfg.AuthToken, cfg.From)
	case "http_gateway":
		return delivery.NewHTTPGateway(cfg.GatewayURL)
	default:
		return nil
	}
}

// loadThresholdBounds reads the quality-pipeline's per-tag (min, max)
// bounds document. An empty path means "no bounds configured", which the
// validator treats permissively rather than an error (§4.2).
func loadThresholdBounds(path string) (map[string]threshold.Bounds, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var bounds map[string]threshold.Bounds
	if err := yaml.Unmarshal(data, &bounds); err != nil {
		return nil, err
	}
	return bounds, nil
}

// loadCalibrations reads the quality-pipeline's per-tag calibration
// document. An empty path means no calibrations are configured.
func loadCalibrations(path string) ([]calibrate.Calibration, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var calibrations []calibrate.Calibration
	if err := yaml.Unmarshal(data, &calibrations); err != nil {
		return nil, err
	}
	return calibrations, nil
}
