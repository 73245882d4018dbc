package service

import (
	"context"
	"fmt"
	"time"

	"github.com/pulsewatch/pulsewatch/internal/monitoring/domain/model"
	"github.com/pulsewatch/pulsewatch/internal/monitoring/domain/repository"
	"github.com/pulsewatch/pulsewatch/internal/platform/logger"
	"github.com/pulsewatch/pulsewatch/internal/shared/events"
)

// AlertService manages the lifecycle of alerts after the rule engine has
// created them. Acknowledgement and resolution are independent operations.
type AlertService struct {
	store     repository.AlertRepository
	publisher EventPublisher
	logger    logger.Logger
}

// NewAlertService creates an alert service. Publisher is optional and may
// be nil.
func NewAlertService(store repository.AlertRepository, publisher EventPublisher, logger logger.Logger) *AlertService {
	return &AlertService{
		store:     store,
		publisher: publisher,
		logger:    logger,
	}
}

// GetAlert returns an alert by id
func (s *AlertService) GetAlert(ctx context.Context, id string) (*model.Alert, error) {
	alert, err := s.store.FindByID(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load alert %s: %w", id, err)
	}
	return alert, nil
}

// GetActiveAlerts returns unresolved alerts newest-first
func (s *AlertService) GetActiveAlerts(ctx context.Context) ([]*model.Alert, error) {
	alerts, err := s.store.FindActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active alerts: %w", err)
	}
	return alerts, nil
}

// ListAlerts returns alerts newest-first, capped at limit. A non-positive
// limit means no cap.
func (s *AlertService) ListAlerts(ctx context.Context, limit int) ([]*model.Alert, error) {
	alerts, err := s.store.FindAll(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	return alerts, nil
}

// AcknowledgeAlert marks an alert as acknowledged. Acknowledging an
// already-acknowledged alert is a no-op; resolution state is untouched.
func (s *AlertService) AcknowledgeAlert(ctx context.Context, id string) (*model.Alert, error) {
	alert, err := s.store.FindByID(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load alert %s: %w", id, err)
	}

	if alert.Acknowledged {
		return alert, nil
	}

	alert.Acknowledged = true
	if err := s.store.Update(ctx, alert); err != nil {
		return nil, fmt.Errorf("failed to acknowledge alert %s: %w", id, err)
	}

	s.logger.Info("Alert acknowledged", "alert_id", id, "rule", alert.RuleName)
	return alert, nil
}

// ResolveAlert stamps an alert's resolution time. Resolving an
// already-resolved alert keeps the original timestamp; acknowledgement
// state is untouched.
func (s *AlertService) ResolveAlert(ctx context.Context, id string) (*model.Alert, error) {
	alert, err := s.store.FindByID(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load alert %s: %w", id, err)
	}

	if alert.ResolvedAt != nil {
		return alert, nil
	}

	now := time.Now()
	alert.ResolvedAt = &now
	if err := s.store.Update(ctx, alert); err != nil {
		return nil, fmt.Errorf("failed to resolve alert %s: %w", id, err)
	}

	s.logger.Info("Alert resolved", "alert_id", id, "rule", alert.RuleName)
	s.publishAlertResolved(ctx, alert)

	return alert, nil
}

// DeleteAlert removes an alert. The boolean result is false when the id
// does not exist; that is not an error.
func (s *AlertService) DeleteAlert(ctx context.Context, id string) (bool, error) {
	deleted, err := s.store.Delete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete alert %s: %w", id, err)
	}
	if deleted {
		s.logger.Info("Alert deleted", "alert_id", id)
	}
	return deleted, nil
}

func (s *AlertService) publishAlertResolved(ctx context.Context, alert *model.Alert) {
	if s.publisher == nil {
		return
	}

	event, err := events.NewEvent(alert.ID, "Alert", events.AlertResolved, events.AlertResolvedPayload{
		AlertID:    alert.ID,
		RuleName:   alert.RuleName,
		ServiceID:  alert.ServiceID,
		ResolvedAt: *alert.ResolvedAt,
	})
	if err != nil {
		s.logger.Error("Failed to build alert event", "alert_id", alert.ID, "error", err)
		return
	}

	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish alert event", "alert_id", alert.ID, "error", err)
	}
}
