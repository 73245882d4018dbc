// Package server wires the monitoring service together
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/robfig/cron/v3"

	"github.com/pulsewatch/pulsewatch/internal/monitoring/adapters/http/handlers"
	"github.com/pulsewatch/pulsewatch/internal/monitoring/adapters/repository/postgres"
	"github.com/pulsewatch/pulsewatch/internal/monitoring/app/service"
	"github.com/pulsewatch/pulsewatch/internal/platform/cache"
	"github.com/pulsewatch/pulsewatch/internal/platform/config"
	"github.com/pulsewatch/pulsewatch/internal/platform/database"
	"github.com/pulsewatch/pulsewatch/internal/platform/logger"
	"github.com/pulsewatch/pulsewatch/internal/platform/messaging/kafka"
	"github.com/pulsewatch/pulsewatch/internal/platform/metrics"
	"github.com/pulsewatch/pulsewatch/pkg/middleware"
)

// Server is the monitoring service: HTTP API, rule engine, scheduled
// maintenance and the host self-metrics collector.
type Server struct {
	config    *config.Config
	logger    logger.Logger
	telemetry *metrics.Metrics

	httpServer *http.Server
	db         *database.DB
	cache      *cache.RedisCache
	publisher  *kafka.EventPublisher
	hub        *handlers.StreamHub
	scheduler  *cron.Cron
	collector  *service.Collector

	metricService      *service.MetricService
	healthService      *service.HealthService
	alertService       *service.AlertService
	ruleEngine         *service.RuleEngine
	maintenanceService *service.MaintenanceService

	collectorCancel context.CancelFunc
}

// Option configures the server
type Option func(*Server)

// WithConfig sets the configuration
func WithConfig(cfg *config.Config) Option {
	return func(s *Server) { s.config = cfg }
}

// WithLogger sets the logger
func WithLogger(logger logger.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithTelemetry sets the Prometheus metrics
func WithTelemetry(telemetry *metrics.Metrics) Option {
	return func(s *Server) { s.telemetry = telemetry }
}

// New creates a fully wired server
func New(opts ...Option) (*Server, error) {
	s := &Server{}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize server: %w", err)
	}

	return s, nil
}

func (s *Server) initialize() error {
	db, err := database.New(s.config.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	s.db = db

	if err := postgres.Migrate(context.Background(), db); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	// Cache is optional; the service degrades to store reads without it.
	if s.config.Redis.Host != "" {
		redisCache, err := cache.NewRedisCache(cache.Config{
			Host:      s.config.Redis.Host,
			Port:      s.config.Redis.Port,
			Password:  s.config.Redis.Password,
			DB:        s.config.Redis.DB,
			KeyPrefix: "monitoring",
		})
		if err != nil {
			s.logger.Warn("Failed to initialize Redis cache", "error", err)
		} else {
			s.cache = redisCache
		}
	}

	// Event publishing is optional as well.
	if len(s.config.Kafka.Brokers) > 0 {
		publisher, err := kafka.NewEventPublisher(&kafka.Config{
			Brokers: s.config.Kafka.Brokers,
			Topic:   s.config.Kafka.Topic,
		})
		if err != nil {
			s.logger.Warn("Failed to initialize Kafka publisher", "error", err)
		} else {
			s.publisher = publisher
		}
	}

	s.hub = handlers.NewStreamHub(s.logger)
	go s.hub.Run()

	metricRepo := postgres.NewMetricRepository(db)
	healthRepo := postgres.NewHealthRepository(db)
	ruleRepo := postgres.NewAlertRuleRepository(db)
	alertRepo := postgres.NewAlertRepository(db)

	var publisher service.EventPublisher
	if s.publisher != nil {
		publisher = s.publisher
	}

	s.ruleEngine = service.NewRuleEngine(ruleRepo, alertRepo, publisher, s.hub, s.telemetry, s.logger)
	s.metricService = service.NewMetricService(metricRepo, s.ruleEngine, s.cache, s.telemetry, s.logger)
	s.healthService = service.NewHealthService(healthRepo, publisher, s.telemetry, s.logger)
	s.alertService = service.NewAlertService(alertRepo, publisher, s.logger)
	s.maintenanceService = service.NewMaintenanceService(
		metricRepo,
		alertRepo,
		s.config.Retention.MetricDays,
		s.config.Retention.AlertDays,
		s.telemetry,
		s.logger,
	)

	s.scheduler = cron.New(cron.WithSeconds())
	if _, err := s.scheduler.AddFunc(s.config.Retention.CronSchedule, s.runScheduledMaintenance); err != nil {
		return fmt.Errorf("failed to schedule maintenance: %w", err)
	}

	if s.config.Collector.Enabled {
		s.collector = service.NewCollector(
			s.metricService,
			s.config.Collector.ServiceID,
			s.config.Collector.Interval,
			s.logger,
		)
	}

	s.setupHTTPServer()

	return nil
}

func (s *Server) runScheduledMaintenance() {
	if _, err := s.maintenanceService.PerformMaintenance(context.Background()); err != nil {
		s.logger.Error("Scheduled maintenance failed", "error", err)
	}
}

func (s *Server) setupHTTPServer() {
	router := mux.NewRouter()

	router.Use(middleware.Recovery(&middleware.RecoveryConfig{
		Logger:     s.logger,
		StackTrace: true,
	}))
	router.Use(middleware.Logging(&middleware.LoggingConfig{
		Logger:    s.logger,
		SkipPaths: []string{"/metrics", "/health/live", "/health/ready"},
	}))
	router.Use(middleware.CORS(nil))
	if s.telemetry != nil {
		router.Use(s.telemetry.HTTPMetricsMiddleware())
		router.Handle("/metrics", s.telemetry.Handler()).Methods(http.MethodGet)
	}

	router.HandleFunc("/health/live", s.handleLiveness).Methods(http.MethodGet)
	router.HandleFunc("/health/ready", s.handleReadiness).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	handlers.NewMetricHandler(s.metricService, s.logger).RegisterRoutes(api)
	handlers.NewHealthHandler(s.healthService, s.logger).RegisterRoutes(api)
	handlers.NewRuleHandler(s.ruleEngine, s.logger).RegisterRoutes(api)
	handlers.NewAlertHandler(s.alertService, s.logger).RegisterRoutes(api)
	handlers.NewMaintenanceHandler(s.maintenanceService, s.logger).RegisterRoutes(api)
	api.Handle("/stream", s.hub).Methods(http.MethodGet)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.HTTP.Port),
		Handler:      router,
		ReadTimeout:  s.config.HTTP.ReadTimeout,
		WriteTimeout: s.config.HTTP.WriteTimeout,
		IdleTimeout:  s.config.HTTP.IdleTimeout,
	}
}

func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, `{"status":"alive"}`)
}

func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if err := s.db.HealthCheck(r.Context()); err != nil {
		s.logger.Warn("Readiness check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, `{"status":"unavailable"}`)
		return
	}

	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, `{"status":"ready"}`)
}

// Start starts the scheduler, the collector and the HTTP server. It blocks
// until the HTTP server stops.
func (s *Server) Start() error {
	s.scheduler.Start()

	if s.collector != nil {
		ctx, cancel := context.WithCancel(context.Background())
		s.collectorCancel = cancel
		s.collector.Start(ctx)
		s.logger.Info("Host metrics collector started",
			"service_id", s.config.Collector.ServiceID,
			"interval", s.config.Collector.Interval,
		)
	}

	s.logger.Info("Starting HTTP server", "port", s.config.HTTP.Port)
	return s.httpServer.ListenAndServe()
}

// Shutdown stops the server and its background workers
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server")

	if s.collectorCancel != nil {
		s.collectorCancel()
	}

	cronCtx := s.scheduler.Stop()
	select {
	case <-cronCtx.Done():
	case <-ctx.Done():
	}

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	if s.hub != nil {
		s.hub.Close()
	}
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			s.logger.Error("Kafka publisher close error", "error", err)
		}
	}
	if s.cache != nil {
		_ = s.cache.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}

	return nil
}
