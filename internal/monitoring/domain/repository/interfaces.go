package repository

import (
	"context"
	"time"

	"github.com/pulsewatch/pulsewatch/internal/monitoring/domain/model"
)

// MetricRepository defines the interface for metric point persistence
type MetricRepository interface {
	// Save persists a new metric point
	Save(ctx context.Context, metric *model.Metric) error

	// FindLatest returns the most recent point for the (name, serviceID) pair
	FindLatest(ctx context.Context, name, serviceID string) (*model.Metric, error)

	// FindLatestByService returns one latest point per metric name for a service
	FindLatestByService(ctx context.Context, serviceID string) ([]*model.Metric, error)

	// FindAllLatest returns the latest points of every known service
	FindAllLatest(ctx context.Context) (map[string][]*model.Metric, error)

	// FindRange returns points in [start, end] newest-first, capped at limit
	FindRange(ctx context.Context, name, serviceID string, start, end time.Time, limit int) ([]*model.Metric, error)

	// Aggregate computes statistics over points in [start, end]
	Aggregate(ctx context.Context, name, serviceID string, start, end time.Time) (*model.Statistics, error)

	// DeleteBefore removes all points older than cutoff and returns the count
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// HealthRepository defines the interface for health snapshot persistence
type HealthRepository interface {
	// Save appends a snapshot; the latest per service supersedes older ones
	Save(ctx context.Context, snapshot *model.HealthSnapshot) error

	// FindLatest returns the latest snapshot for a service
	FindLatest(ctx context.Context, serviceID string) (*model.HealthSnapshot, error)

	// FindAllLatest returns one latest snapshot per known service
	FindAllLatest(ctx context.Context) ([]*model.HealthSnapshot, error)
}

// AlertRuleRepository defines the interface for alert rule persistence.
// Writes must be atomic with respect to concurrent reads: a reader sees a
// rule either fully updated or not at all.
type AlertRuleRepository interface {
	// Save persists a new rule
	Save(ctx context.Context, rule *model.AlertRule) error

	// FindByID returns a rule by id
	FindByID(ctx context.Context, id string) (*model.AlertRule, error)

	// FindByMetricName returns rules for a metric name, optionally enabled only
	FindByMetricName(ctx context.Context, metricName string, enabledOnly bool) ([]*model.AlertRule, error)

	// FindAll returns all rules, optionally enabled only
	FindAll(ctx context.Context, enabledOnly bool) ([]*model.AlertRule, error)

	// Update replaces an existing rule
	Update(ctx context.Context, rule *model.AlertRule) error

	// SetEnabled flips the enabled flag; ErrNotFound when the id is absent
	SetEnabled(ctx context.Context, id string, enabled bool) (*model.AlertRule, error)

	// Delete removes a rule; deleting a missing id is a no-op
	Delete(ctx context.Context, id string) error
}

// AlertRepository defines the interface for alert persistence
type AlertRepository interface {
	// Save persists a new alert
	Save(ctx context.Context, alert *model.Alert) error

	// FindByID returns an alert by id
	FindByID(ctx context.Context, id string) (*model.Alert, error)

	// FindActive returns alerts that have not been resolved, newest-first
	FindActive(ctx context.Context) ([]*model.Alert, error)

	// FindAll returns alerts newest-first, capped at limit
	FindAll(ctx context.Context, limit int) ([]*model.Alert, error)

	// Update replaces an existing alert
	Update(ctx context.Context, alert *model.Alert) error

	// Delete removes an alert; returns false when the id is absent
	Delete(ctx context.Context, id string) (bool, error)

	// DeleteBefore removes all alerts older than cutoff and returns the count
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
