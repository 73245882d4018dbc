package service

import (
	"context"
	"fmt"
	"time"

	"github.com/pulsewatch/pulsewatch/internal/monitoring/domain/repository"
	"github.com/pulsewatch/pulsewatch/internal/platform/logger"
	"github.com/pulsewatch/pulsewatch/internal/platform/metrics"
)

// MaintenanceResult summarizes one retention sweep
type MaintenanceResult struct {
	MetricsPurged int64     `json:"metricsPurged"`
	AlertsPurged  int64     `json:"alertsPurged"`
	Total         int64     `json:"total"`
	RanAt         time.Time `json:"ranAt"`
}

// MaintenanceService purges metric points and alerts older than their
// retention windows. It is run on a schedule and can be triggered manually.
type MaintenanceService struct {
	metricStore repository.MetricRepository
	alertStore  repository.AlertRepository
	metricDays  int
	alertDays   int
	telemetry   *metrics.Metrics
	logger      logger.Logger
}

// NewMaintenanceService creates a maintenance service with retention
// windows in days. Telemetry is optional and may be nil.
func NewMaintenanceService(
	metricStore repository.MetricRepository,
	alertStore repository.AlertRepository,
	metricDays, alertDays int,
	telemetry *metrics.Metrics,
	logger logger.Logger,
) *MaintenanceService {
	return &MaintenanceService{
		metricStore: metricStore,
		alertStore:  alertStore,
		metricDays:  metricDays,
		alertDays:   alertDays,
		telemetry:   telemetry,
		logger:      logger,
	}
}

// PerformMaintenance deletes metric points and alerts older than their
// retention cutoffs and returns the combined purge counts. Both sweeps are
// attempted; the first failure is returned after the second sweep ran.
func (s *MaintenanceService) PerformMaintenance(ctx context.Context) (*MaintenanceResult, error) {
	now := time.Now()
	result := &MaintenanceResult{RanAt: now}
	var firstErr error

	metricCutoff := now.AddDate(0, 0, -s.metricDays)
	purged, err := s.metricStore.DeleteBefore(ctx, metricCutoff)
	if err != nil {
		firstErr = fmt.Errorf("failed to purge metrics: %w", err)
		s.logger.Error("Metric purge failed", "cutoff", metricCutoff, "error", err)
	} else {
		result.MetricsPurged = purged
		if s.telemetry != nil {
			s.telemetry.RecordsPurged.WithLabelValues("metrics").Add(float64(purged))
		}
	}

	alertCutoff := now.AddDate(0, 0, -s.alertDays)
	purged, err = s.alertStore.DeleteBefore(ctx, alertCutoff)
	if err != nil {
		if firstErr == nil {
			firstErr = fmt.Errorf("failed to purge alerts: %w", err)
		}
		s.logger.Error("Alert purge failed", "cutoff", alertCutoff, "error", err)
	} else {
		result.AlertsPurged = purged
		if s.telemetry != nil {
			s.telemetry.RecordsPurged.WithLabelValues("alerts").Add(float64(purged))
		}
	}

	result.Total = result.MetricsPurged + result.AlertsPurged

	if s.telemetry != nil {
		s.telemetry.MaintenanceRuns.Inc()
	}
	s.logger.Info("Maintenance completed",
		"metrics_purged", result.MetricsPurged,
		"alerts_purged", result.AlertsPurged,
		"total", result.Total,
	)

	return result, firstErr
}
