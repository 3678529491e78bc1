package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rajapam/broker/config"
	"github.com/rajapam/broker/internal/clients/encoder"
	"github.com/rajapam/broker/internal/clients/transparent"
	"github.com/rajapam/broker/internal/clients/tunnel"
	"github.com/rajapam/broker/internal/core"
	"github.com/rajapam/broker/internal/data"
	"github.com/rajapam/broker/internal/license"
	"github.com/rajapam/broker/internal/observability/notify/pagerduty"
	"github.com/rajapam/broker/internal/observability/notify/slack"
	"github.com/rajapam/broker/internal/observability/statsd"
	"github.com/rajapam/broker/internal/policy"
	"github.com/rajapam/broker/internal/service"
	"github.com/rajapam/broker/internal/service/failurenotifier"
	"github.com/redis/go-redis/v9"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Sessions      *service.SessionService
	Tracker       *service.TrackerService
	Encodes       *service.EncodeService
	Descriptors   core.DescriptorStore
	Observability ObservabilityContainer
}

// ObservabilityContainer groups shared observability dependencies.
type ObservabilityContainer struct {
	MetricsSink     *statsd.Client
	MetricsConfig   config.ObservabilityMetricsConfig
	FailureNotifier *failurenotifier.Service
	NotifierConfig  config.ObservabilityNotificationsConfig
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	TunnelDB    *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// serviceRepositories groups data adapters backing service ports.
type serviceRepositories struct {
	Sessions    *data.SessionRepo
	Directory   *data.DirectoryRepo
	Access      *data.AccessRepo
	Settings    *data.SettingsRepo
	Credentials *data.GuacamoleRepo
	EncodeQueue *data.RedisEncodeQueue
}

// upstreamClients groups the remote service clients.
type upstreamClients struct {
	Tunnel      *tunnel.Client
	Transparent *transparent.Client
	Encoder     *encoder.Client
}

// buildObservability configures metrics and notification adapters.
func buildObservability(logger *slog.Logger, cfg config.ObservabilityConfig) ObservabilityContainer {
	obsLogger := logger
	if obsLogger == nil {
		obsLogger = slog.Default()
	}

	var metricsSink *statsd.Client
	if cfg.Metrics.IsEnabled() {
		client, err := statsd.NewClient(statsd.Config{
			Enabled: true,
			Address: cfg.Metrics.StatsdAddress,
			Prefix:  "broker",
			Logger:  obsLogger,
		})
		if err != nil {
			obsLogger.Error("failed to initialise statsd client", "error", err)
		} else {
			metricsSink = client
		}
	}

	failureNotifier := buildFailureNotifier(obsLogger, cfg.Notifications)

	return ObservabilityContainer{
		MetricsSink:     metricsSink,
		MetricsConfig:   cfg.Metrics,
		FailureNotifier: failureNotifier,
		NotifierConfig:  cfg.Notifications,
	}
}

// buildRepositories builds repositories backing service ports; no business rules here.
func buildRepositories(deps *ServiceDeps) *serviceRepositories {
	var cache *data.RedisCacheRepo
	if deps.RedisClient != nil {
		cache = data.NewRedisCacheRepo(deps.RedisClient)
	}

	repos := &serviceRepositories{
		Sessions:  data.NewSessionRepo(deps.DB),
		Directory: data.NewDirectoryRepo(deps.DB),
		Access:    data.NewAccessRepo(deps.DB),
		Settings:  data.NewSettingsRepo(deps.DB, cache),
	}
	if deps.TunnelDB != nil {
		repos.Credentials = data.NewGuacamoleRepo(deps.TunnelDB)
	}
	if deps.RedisClient != nil {
		repos.EncodeQueue = data.NewRedisEncodeQueue(deps.RedisClient)
	}
	return repos
}

// buildClients constructs the upstream service clients.
func buildClients(cfg *config.AppConfig, settings core.SettingsRepository) (*upstreamClients, error) {
	tunnelClient, err := tunnel.NewClient(tunnel.Config{
		TokenURL:      cfg.Tunnel.TokenURL,
		StatusURL:     cfg.Tunnel.StatusURL,
		InvalidateURL: cfg.Tunnel.InvalidateURL,
		Timeout:       cfg.Tunnel.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("create tunnel client: %w", err)
	}

	transparentClient, err := transparent.NewClient(transparent.Config{
		Settings: settings,
		Timeout:  cfg.Transparent.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("create transparent client: %w", err)
	}

	encoderClient, err := encoder.NewClient(encoder.Config{
		EncodeURL:  cfg.Encoder.EncodeURL,
		OCRURL:     cfg.Encoder.OCRURL,
		WebhookURL: cfg.Encoder.WebhookURL,
	})
	if err != nil {
		return nil, fmt.Errorf("create encoder client: %w", err)
	}

	return &upstreamClients{
		Tunnel:      tunnelClient,
		Transparent: transparentClient,
		Encoder:     encoderClient,
	}, nil
}

// NewServices wires the full service graph from shared infrastructure.
func NewServices(deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil {
		return ServiceContainer{}, errors.New("service deps are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config
	if cfg == nil {
		return ServiceContainer{}, errors.New("app config is required")
	}

	observability := buildObservability(logger, cfg.Observability)
	repos := buildRepositories(deps)

	clients, err := buildClients(cfg, repos.Settings)
	if err != nil {
		return ServiceContainer{}, err
	}

	descriptors, err := data.NewFileDescriptorStore(cfg.Recording.DescriptorDir)
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create descriptor store: %w", err)
	}

	gate, err := license.NewGate(license.GateOptions{
		Source: data.NewSettingsLicenseSource(repos.Settings),
		Usage:  repos.Sessions,
		Logger: logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create license gate: %w", err)
	}

	haGate, err := policy.NewHAGate(policy.HAGateOptions{
		Settings: repos.Settings,
		Logger:   logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create ha gate: %w", err)
	}

	access, err := service.NewAccessService(service.AccessServiceOptions{
		Repo:   repos.Access,
		Logger: logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create access service: %w", err)
	}

	if repos.Credentials == nil {
		return ServiceContainer{}, errors.New("tunnel database is required for provisioning")
	}
	provisioner, err := service.NewProvisionService(service.ProvisionServiceOptions{
		Credentials: repos.Credentials,
		Tunnel:      clients.Tunnel,
		Transparent: clients.Transparent,
		Settings:    repos.Settings,
		Descriptors: descriptors,
		Recording:   cfg.Recording,
		Logger:      logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create provision service: %w", err)
	}

	disconnector, err := service.NewDisconnector(service.DisconnectorOptions{
		Tunnel:      clients.Tunnel,
		Transparent: clients.Transparent,
		Logger:      logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create disconnector: %w", err)
	}

	var encodes *service.EncodeService
	if repos.EncodeQueue != nil {
		encodes, err = service.NewEncodeService(service.EncodeServiceOptions{
			Queue:       repos.EncodeQueue,
			Encoder:     clients.Encoder,
			Transparent: clients.Transparent,
			Config:      cfg.Encoder,
			Logger:      logger,
		})
		if err != nil {
			return ServiceContainer{}, fmt.Errorf("create encode service: %w", err)
		}
	}

	sessions, err := service.NewSessionService(service.SessionServiceOptions{
		Sessions:     repos.Sessions,
		Directory:    repos.Directory,
		Access:       access,
		Gate:         gate,
		Cluster:      haGate,
		Windows:      policy.NewTimeWindowEvaluator(),
		Provisioner:  provisioner,
		Disconnector: disconnector,
		Encodes:      encodeScheduler(encodes),
		Logger:       logger,
		Metrics:      metricsSink(observability),
		Notifier:     observability.FailureNotifier,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create session service: %w", err)
	}

	tracker, err := service.NewTrackerService(service.TrackerServiceOptions{
		Sessions:     repos.Sessions,
		Tunnel:       clients.Tunnel,
		Transparent:  clients.Transparent,
		Disconnector: disconnector,
		Encodes:      encodeScheduler(encodes),
		Config:       cfg.Tracker,
		Logger:       logger,
		Metrics:      metricsSink(observability),
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create tracker service: %w", err)
	}

	return ServiceContainer{
		Sessions:      sessions,
		Tracker:       tracker,
		Encodes:       encodes,
		Descriptors:   descriptors,
		Observability: observability,
	}, nil
}

// encodeScheduler converts a possibly-nil encode service into the optional
// scheduler port. A typed nil inside a non-nil interface would defeat the
// consumers' nil checks.
//
//nolint:ireturn // optional port wiring
func encodeScheduler(encodes *service.EncodeService) service.EncodeScheduler {
	if encodes == nil {
		return nil
	}
	return encodes
}

//nolint:ireturn // optional sink wiring
func metricsSink(obs ObservabilityContainer) statsd.Sink {
	if obs.MetricsSink == nil {
		return nil
	}
	return obs.MetricsSink
}

func buildFailureNotifier(logger *slog.Logger, cfg config.ObservabilityNotificationsConfig) *failurenotifier.Service {
	baseLogger := logger
	if baseLogger == nil {
		baseLogger = slog.Default()
	}

	if !cfg.Enabled {
		return failurenotifier.NewService(failurenotifier.Options{
			Logger: baseLogger.With("component", "failure_notifier"),
		})
	}

	sinks := make([]failurenotifier.SinkRegistration, 0, 2)

	if cfg.Slack.Enabled {
		client, err := slack.NewClient(slack.Config{
			WebhookURL:       cfg.Slack.WebhookURL,
			Channel:          cfg.Slack.Channel,
			Username:         cfg.Slack.Username,
			Timeout:          cfg.Timeout,
			RetryLimit:       cfg.RetryLimit,
			SessionURLPrefix: cfg.Slack.SessionURLPrefix,
		})
		if err != nil {
			baseLogger.Error("failed to initialise slack notifier", "error", err)
		} else {
			sinks = append(sinks, failurenotifier.SinkRegistration{
				Name: "slack",
				Sink: client,
			})
		}
	}

	if cfg.PagerDuty.Enabled {
		client, err := pagerduty.NewClient(pagerduty.Config{
			RoutingKey: cfg.PagerDuty.RoutingKey,
			Source:     cfg.PagerDuty.Source,
			Component:  cfg.PagerDuty.Component,
			Timeout:    cfg.Timeout,
			RetryLimit: cfg.RetryLimit,
		})
		if err != nil {
			baseLogger.Error("failed to initialise pagerduty notifier", "error", err)
		} else {
			sinks = append(sinks, failurenotifier.SinkRegistration{
				Name: "pagerduty",
				Sink: client,
			})
		}
	}

	return failurenotifier.NewService(failurenotifier.Options{
		Logger: baseLogger.With("component", "failure_notifier"),
		Sinks:  sinks,
	})
}

// ServiceOrchestrationConfig contains configuration for service orchestration.
type ServiceOrchestrationConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Logger   *slog.Logger
}

const (
	// shutdownWaitTimeout is the maximum time to wait for services to stop gracefully.
	shutdownWaitTimeout = 15 * time.Second
)

// serviceStartupDeps groups dependencies for service startup.
type serviceStartupDeps struct {
	ctx             context.Context
	cfg             *ServiceOrchestrationConfig
	logger          *slog.Logger
	enabledServices map[config.ServiceMode]bool
	errCh           chan error
}

// backgroundService describes a startable background component.
type backgroundService struct {
	mode  config.ServiceMode
	name  string
	start func(context.Context) error
}

// backgroundServiceHandle tracks a running background service.
type backgroundServiceHandle struct {
	mode config.ServiceMode
	name string
	done <-chan struct{}
}

// startHTTPServerIfEnabled starts the HTTP server if enabled.
func startHTTPServerIfEnabled(deps *serviceStartupDeps) *http.Server {
	if deps == nil || deps.cfg == nil || !deps.enabledServices[config.ServiceModeHTTP] {
		return nil
	}
	return StartHTTPServer(&HTTPServerConfig{
		Config:   deps.cfg.Config,
		Services: deps.cfg.Services,
		Logger:   deps.logger,
	})
}

func launchBackground(ctx context.Context, deps *serviceStartupDeps, descriptor backgroundService) <-chan struct{} {
	if deps == nil || !deps.enabledServices[descriptor.mode] {
		return nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := descriptor.start(ctx); err != nil {
			errMsg := fmt.Errorf("%s failed: %w", descriptor.name, err)
			select {
			case deps.errCh <- errMsg:
			case <-ctx.Done():
			default:
				deps.logger.WarnContext(ctx, "dropping background service error",
					"service", descriptor.name,
					"error", errMsg,
				)
			}
		}
	}()

	deps.logger.InfoContext(ctx, "background service started", "service", descriptor.name, "mode", descriptor.mode)

	return done
}

func buildBackgroundServices(deps *serviceStartupDeps) []backgroundService {
	if deps == nil {
		return nil
	}
	return []backgroundService{
		{
			mode: config.ServiceModeTracker,
			name: "session tracker",
			start: func(ctx context.Context) error {
				if deps.cfg.Services.Tracker == nil {
					return errors.New("tracker service is not configured")
				}
				return deps.cfg.Services.Tracker.Run(ctx)
			},
		},
		{
			mode: config.ServiceModeEncoder,
			name: "encode dispatcher",
			start: func(ctx context.Context) error {
				if deps.cfg.Services.Encodes == nil {
					return errors.New("encode service requires redis")
				}
				return deps.cfg.Services.Encodes.Run(ctx)
			},
		},
	}
}

func startBackgroundServices(deps *serviceStartupDeps, services []backgroundService) []backgroundServiceHandle {
	if deps == nil {
		return nil
	}
	handles := make([]backgroundServiceHandle, 0, len(services))

	for _, svc := range services {
		done := launchBackground(deps.ctx, deps, svc)
		if done == nil {
			continue
		}

		handles = append(handles, backgroundServiceHandle{
			mode: svc.mode,
			name: svc.name,
			done: done,
		})
	}

	return handles
}

// ServiceStartupResult holds the results of starting all services.
type ServiceStartupResult struct {
	HTTPServer *http.Server
	Background []backgroundServiceHandle
}

// startServices starts all enabled services and returns their completion channels.
func startServices(deps *serviceStartupDeps) ServiceStartupResult {
	return ServiceStartupResult{
		HTTPServer: startHTTPServerIfEnabled(deps),
		Background: startBackgroundServices(deps, buildBackgroundServices(deps)),
	}
}

// RunServicesWithShutdown starts all enabled services and manages their lifecycle.
// This function blocks until a shutdown signal is received or a service fails.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	if cfg == nil {
		return errors.New("service orchestration config is required")
	}
	if cfg.Config == nil {
		return errors.New("service orchestration config missing AppConfig")
	}

	ctx := context.Background()
	serviceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// Determine which services are enabled
	enabledServices, err := cfg.Config.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("determine enabled services: %w", err)
	}
	errCh := make(chan error, len(enabledServices)+1)

	// Start all enabled services
	result := startServices(&serviceStartupDeps{
		ctx:             serviceCtx,
		cfg:             cfg,
		logger:          logger,
		enabledServices: enabledServices,
		errCh:           errCh,
	})

	// Wait for shutdown signal or error
	return waitForShutdown(shutdownConfig{
		ctx:         serviceCtx,
		cancel:      cancel,
		errCh:       errCh,
		httpServer:  result.HTTPServer,
		shutdown:    cfg.Config.HTTP.ShutdownTimeout,
		logger:      logger,
		backgrounds: result.Background,
	})
}

// shutdownConfig contains dependencies for graceful shutdown.
type shutdownConfig struct {
	ctx         context.Context
	cancel      context.CancelFunc
	errCh       <-chan error
	httpServer  *http.Server
	shutdown    time.Duration
	logger      *slog.Logger
	backgrounds []backgroundServiceHandle
}

// waitForShutdown waits for shutdown signal or service error.
func waitForShutdown(cfg shutdownConfig) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
		cfg.logger.Info("shutting down services...")
		cfg.cancel() // Cancel service context before waiting
		return gracefulStop(cfg)
	case err := <-cfg.errCh:
		cfg.logger.Error("service error", "error", err)
		cfg.cancel() // Cancel service context before waiting
		if stopErr := gracefulStop(cfg); stopErr != nil {
			cfg.logger.Error("graceful stop failed", "error", stopErr)
		}
		return err
	}
}

// gracefulStop attempts to gracefully stop all services.
func gracefulStop(cfg shutdownConfig) error {
	// Gracefully stop HTTP server if running
	if cfg.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWaitTimeout)
		defer cancel()

		if err := ShutdownHTTPServer(ShutdownConfig{
			Context: shutdownCtx,
			Server:  cfg.httpServer,
			Timeout: cfg.shutdown,
			Logger:  cfg.logger,
		}); err != nil {
			return err
		}
	}

	// Wait for background services to finish
	for _, svc := range cfg.backgrounds {
		waitForService(svc.done, svc.name, cfg.logger)
	}

	return nil
}

// waitForService waits for a service to finish with timeout.
func waitForService(done <-chan struct{}, name string, logger *slog.Logger) {
	if done == nil {
		return
	}
	select {
	case <-done:
		logger.Info(name + " stopped")
	case <-time.After(shutdownWaitTimeout):
		logger.Warn("timeout waiting for " + name + " to stop")
	}
}
