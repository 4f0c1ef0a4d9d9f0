package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/hostelhub/portal/config"
	"github.com/hostelhub/portal/internal/observability/metrics"
	"github.com/hostelhub/portal/internal/observability/statsd"
	"github.com/hostelhub/portal/internal/service"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Gate          *service.AccessGate
	Auth          *service.AuthService
	Observability ObservabilityContainer
}

// ObservabilityContainer groups shared observability dependencies.
type ObservabilityContainer struct {
	Recorder       *metrics.Recorder
	MetricsSink    *statsd.Client // nil when StatsD is disabled
	Registry       *prometheus.Registry
	MetricsHandler http.Handler // nil when the Prometheus endpoint is disabled
	MetricsPath    string
}

// Close releases the StatsD socket.
func (o ObservabilityContainer) Close() error {
	if o.MetricsSink == nil {
		return nil
	}
	return o.MetricsSink.Close()
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	HTTPClient  *http.Client
	Logger      *slog.Logger
}

// BuildObservability configures the StatsD sink, the Prometheus registry and the portal recorder.
// A StatsD dial failure is logged and metrics fall back to Prometheus only.
func BuildObservability(logger *slog.Logger, cfg config.ObservabilityConfig) ObservabilityContainer {
	if logger == nil {
		logger = slog.Default()
	}

	var sink *statsd.Client
	if cfg.Metrics.IsEnabled() {
		client, err := statsd.NewClient(statsd.Config{
			Enabled: true,
			Address: cfg.Metrics.StatsdAddress,
			Prefix:  cfg.Metrics.Namespace,
			Logger:  logger,
		})
		if err != nil {
			logger.Error("failed to initialise statsd client", "error", err)
		} else {
			sink = client
		}
	}

	obs := ObservabilityContainer{MetricsSink: sink, MetricsPath: cfg.Prometheus.Path}
	opts := metrics.RecorderOptions{Namespace: cfg.Metrics.Namespace}
	if sink != nil {
		opts.Sink = sink
	}
	if cfg.Prometheus.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		opts.Registry = reg
		obs.Registry = reg
		obs.MetricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
	}
	obs.Recorder = metrics.NewRecorder(opts)
	return obs
}

// NewServices wires the identity stack into the access gate and the auth flows.
func NewServices(ctx context.Context, deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return ServiceContainer{}, errors.New("service deps with config are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config

	stack, err := BuildIdentity(ctx, IdentityDeps{
		Config:      cfg,
		DB:          deps.DB,
		RedisClient: deps.RedisClient,
		HTTPClient:  deps.HTTPClient,
		Logger:      logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build identity: %w", err)
	}

	obs := BuildObservability(logger, cfg.Observability)

	gate := service.NewAccessGate(service.AccessGateOptions{
		Identity:      service.NewIdentityResolver(stack.Tokens, stack.Profiles),
		LookupTimeout: cfg.Gate.LookupTimeout,
		Logger:        logger,
		Recorder:      obs.Recorder,
	})

	auth := service.NewAuthService(service.AuthServiceOptions{
		Accounts: stack.Accounts,
		Profiles: stack.Profiles,
		Throttle: stack.Throttle,
		Recorder: obs.Recorder,
		Logger:   logger,
	})

	return ServiceContainer{
		Gate:          gate,
		Auth:          auth,
		Observability: obs,
	}, nil
}
