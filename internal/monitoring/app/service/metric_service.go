package service

import (
	"context"
	"fmt"
	"time"

	"github.com/pulsewatch/pulsewatch/internal/monitoring/domain/model"
	"github.com/pulsewatch/pulsewatch/internal/monitoring/domain/repository"
	"github.com/pulsewatch/pulsewatch/internal/platform/cache"
	"github.com/pulsewatch/pulsewatch/internal/platform/logger"
	"github.com/pulsewatch/pulsewatch/internal/platform/metrics"
)

const latestMetricCacheTTL = 15 * time.Second

// MetricService records metric points and answers time-series queries.
// Recording triggers synchronous rule evaluation; created alerts are
// returned alongside the recorded point.
type MetricService struct {
	store     repository.MetricRepository
	engine    *RuleEngine
	cache     *cache.RedisCache
	telemetry *metrics.Metrics
	logger    logger.Logger
}

// NewMetricService creates a metric service. Cache and telemetry are
// optional and may be nil.
func NewMetricService(
	store repository.MetricRepository,
	engine *RuleEngine,
	cache *cache.RedisCache,
	telemetry *metrics.Metrics,
	logger logger.Logger,
) *MetricService {
	return &MetricService{
		store:     store,
		engine:    engine,
		cache:     cache,
		telemetry: telemetry,
		logger:    logger,
	}
}

// RecordMetric validates and persists one metric point, defaulting a zero
// timestamp to the ingestion time, then evaluates alert rules against it.
// An evaluation failure does not fail the recording.
func (s *MetricService) RecordMetric(ctx context.Context, metric *model.Metric) ([]*model.Alert, error) {
	if err := metric.Validate(); err != nil {
		if s.telemetry != nil {
			s.telemetry.MetricsRejected.WithLabelValues("validation").Inc()
		}
		return nil, err
	}

	if metric.Timestamp.IsZero() {
		metric.Timestamp = time.Now()
	}
	if metric.Kind == "" {
		metric.Kind = model.MetricKindGauge
	}

	if err := s.store.Save(ctx, metric); err != nil {
		return nil, fmt.Errorf("failed to save metric %s/%s: %w", metric.ServiceID, metric.Name, err)
	}

	if s.telemetry != nil {
		s.telemetry.MetricsRecorded.WithLabelValues(metric.Name).Inc()
	}
	s.invalidateLatest(ctx, metric)

	alerts, err := s.engine.EvaluateMetric(ctx, metric)
	if err != nil {
		s.logger.Error("Rule evaluation failed",
			"metric", metric.Name,
			"service_id", metric.ServiceID,
			"error", err,
		)
		return nil, nil
	}

	return alerts, nil
}

// RecordMetrics records a batch of points. Each point is validated,
// persisted and evaluated independently; a failure on one point does not
// prevent the others. It returns the stored points and the alerts they
// triggered; the returned error aggregates per-point failures.
func (s *MetricService) RecordMetrics(ctx context.Context, points []*model.Metric) ([]*model.Metric, []*model.Alert, error) {
	stored := make([]*model.Metric, 0, len(points))
	var allAlerts []*model.Alert
	var firstErr error
	failed := 0

	for _, metric := range points {
		alerts, err := s.RecordMetric(ctx, metric)
		if err != nil {
			failed++
			if firstErr == nil {
				firstErr = err
			}
			s.logger.Warn("Failed to record batch point",
				"metric", metric.Name,
				"service_id", metric.ServiceID,
				"error", err,
			)
			continue
		}
		stored = append(stored, metric)
		allAlerts = append(allAlerts, alerts...)
	}

	if failed > 0 {
		return stored, allAlerts, fmt.Errorf("failed to record %d of %d points: %w", failed, len(points), firstErr)
	}
	return stored, allAlerts, nil
}

// GetLatestMetric returns the most recent point for a (name, service) pair
func (s *MetricService) GetLatestMetric(ctx context.Context, name, serviceID string) (*model.Metric, error) {
	cacheKey := fmt.Sprintf("metrics:latest:%s:%s", serviceID, name)

	if s.cache != nil {
		var cached model.Metric
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	metric, err := s.store.FindLatest(ctx, name, serviceID)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load latest %s/%s: %w", serviceID, name, err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, metric, latestMetricCacheTTL); err != nil {
			s.logger.Warn("Failed to cache latest metric", "key", cacheKey, "error", err)
		}
	}

	return metric, nil
}

// GetLatestMetrics returns one latest point per metric name for a service.
// An unknown service yields an empty slice, not an error.
func (s *MetricService) GetLatestMetrics(ctx context.Context, serviceID string) ([]*model.Metric, error) {
	points, err := s.store.FindLatestByService(ctx, serviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest metrics for %s: %w", serviceID, err)
	}
	return points, nil
}

// GetAllLatestMetrics returns the latest points of every known service,
// keyed by service id
func (s *MetricService) GetAllLatestMetrics(ctx context.Context) (map[string][]*model.Metric, error) {
	points, err := s.store.FindAllLatest(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest metrics: %w", err)
	}
	return points, nil
}

// QueryMetricHistory returns points in [start, end] newest-first, capped at
// limit. A non-positive limit means no cap.
func (s *MetricService) QueryMetricHistory(ctx context.Context, name, serviceID string, start, end time.Time, limit int) ([]*model.Metric, error) {
	if end.Before(start) {
		return nil, &model.ValidationError{Field: "range", Message: "end must not be before start"}
	}

	points, err := s.store.FindRange(ctx, name, serviceID, start, end, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history for %s/%s: %w", serviceID, name, err)
	}
	return points, nil
}

// GetMetricStatistics computes count, sum, avg, min and max over points in
// [start, end]. An empty range yields all-zero statistics.
func (s *MetricService) GetMetricStatistics(ctx context.Context, name, serviceID string, start, end time.Time) (*model.Statistics, error) {
	if end.Before(start) {
		return nil, &model.ValidationError{Field: "range", Message: "end must not be before start"}
	}

	stats, err := s.store.Aggregate(ctx, name, serviceID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate %s/%s: %w", serviceID, name, err)
	}
	return stats, nil
}

func (s *MetricService) invalidateLatest(ctx context.Context, metric *model.Metric) {
	if s.cache == nil {
		return
	}
	key := fmt.Sprintf("metrics:latest:%s:%s", metric.ServiceID, metric.Name)
	if err := s.cache.Delete(ctx, key); err != nil {
		s.logger.Warn("Failed to invalidate metric cache", "key", key, "error", err)
	}
}
