package service

import (
	"context"
	"fmt"
	"time"

	"github.com/pulsewatch/pulsewatch/internal/monitoring/domain/model"
	"github.com/pulsewatch/pulsewatch/internal/monitoring/domain/repository"
	"github.com/pulsewatch/pulsewatch/internal/platform/logger"
	"github.com/pulsewatch/pulsewatch/internal/platform/metrics"
	"github.com/pulsewatch/pulsewatch/internal/shared/events"
)

// HealthService tracks the reported operational status of services. Updates
// are last-write-wins per service; a status transition is published as a
// health.changed event.
type HealthService struct {
	store     repository.HealthRepository
	publisher EventPublisher
	telemetry *metrics.Metrics
	logger    logger.Logger
}

// NewHealthService creates a health service. Publisher and telemetry are
// optional and may be nil.
func NewHealthService(
	store repository.HealthRepository,
	publisher EventPublisher,
	telemetry *metrics.Metrics,
	logger logger.Logger,
) *HealthService {
	return &HealthService{
		store:     store,
		publisher: publisher,
		telemetry: telemetry,
		logger:    logger,
	}
}

// UpdateHealthStatus records a service's reported status, overwriting the
// previous report. A first-time report counts as a transition from unknown.
func (s *HealthService) UpdateHealthStatus(ctx context.Context, snapshot *model.HealthSnapshot) (*model.HealthSnapshot, error) {
	if err := snapshot.Validate(); err != nil {
		return nil, err
	}

	if snapshot.Timestamp.IsZero() {
		snapshot.Timestamp = time.Now()
	}
	if snapshot.Details == nil {
		snapshot.Details = make(map[string]string)
	}

	previous := model.HealthStatusUnknown
	if existing, err := s.store.FindLatest(ctx, snapshot.ServiceID); err == nil {
		previous = existing.Status
	} else if err != repository.ErrNotFound {
		return nil, fmt.Errorf("failed to load health for %s: %w", snapshot.ServiceID, err)
	}

	if err := s.store.Save(ctx, snapshot); err != nil {
		return nil, fmt.Errorf("failed to save health for %s: %w", snapshot.ServiceID, err)
	}

	if s.telemetry != nil {
		s.telemetry.HealthUpdates.WithLabelValues(string(snapshot.Status)).Inc()
	}

	if previous != snapshot.Status {
		s.logger.Info("Service health changed",
			"service_id", snapshot.ServiceID,
			"previous", previous,
			"current", snapshot.Status,
		)
		s.publishHealthChanged(ctx, snapshot, previous)
	}

	return snapshot, nil
}

// GetHealthStatus returns the latest snapshot for a service
func (s *HealthService) GetHealthStatus(ctx context.Context, serviceID string) (*model.HealthSnapshot, error) {
	snapshot, err := s.store.FindLatest(ctx, serviceID)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load health for %s: %w", serviceID, err)
	}
	return snapshot, nil
}

// GetAllHealthStatus returns the latest snapshot of every known service
func (s *HealthService) GetAllHealthStatus(ctx context.Context) ([]*model.HealthSnapshot, error) {
	snapshots, err := s.store.FindAllLatest(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load health statuses: %w", err)
	}
	return snapshots, nil
}

func (s *HealthService) publishHealthChanged(ctx context.Context, snapshot *model.HealthSnapshot, previous model.HealthStatus) {
	if s.publisher == nil {
		return
	}

	event, err := events.NewEvent(snapshot.ServiceID, "Service", events.HealthChanged, events.HealthChangedPayload{
		ServiceID: snapshot.ServiceID,
		Previous:  string(previous),
		Current:   string(snapshot.Status),
		ChangedAt: snapshot.Timestamp,
	})
	if err != nil {
		s.logger.Error("Failed to build health event", "service_id", snapshot.ServiceID, "error", err)
		return
	}

	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish health event", "service_id", snapshot.ServiceID, "error", err)
	}
}
