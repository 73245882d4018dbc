package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pulsewatch/pulsewatch/internal/monitoring/domain/model"
	"github.com/pulsewatch/pulsewatch/internal/monitoring/domain/repository"
	"github.com/pulsewatch/pulsewatch/internal/platform/database"
)

// AlertRepository implements the alert repository interface for PostgreSQL
type AlertRepository struct {
	db *database.DB
}

// NewAlertRepository creates a new PostgreSQL alert repository
func NewAlertRepository(db *database.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

const alertColumns = `id, rule_name, level, message, service_id, metric_name,
	threshold, current_value, timestamp, acknowledged, resolved_at`

// Save persists a new alert
func (r *AlertRepository) Save(ctx context.Context, alert *model.Alert) error {
	query := `
		INSERT INTO alerts (
			id, rule_name, level, message, service_id, metric_name,
			threshold, current_value, timestamp, acknowledged, resolved_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.db.ExecContext(ctx, query,
		alert.ID,
		alert.RuleName,
		string(alert.Level),
		alert.Message,
		alert.ServiceID,
		alert.MetricName,
		alert.Threshold,
		alert.CurrentValue,
		alert.Timestamp,
		alert.Acknowledged,
		database.NullTime(alert.ResolvedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}

	return nil
}

// FindByID returns an alert by id
func (r *AlertRepository) FindByID(ctx context.Context, id string) (*model.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE id = $1`

	alert, err := scanAlert(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query alert: %w", err)
	}

	return alert, nil
}

// FindActive returns unresolved alerts newest-first
func (r *AlertRepository) FindActive(ctx context.Context) ([]*model.Alert, error) {
	query := `
		SELECT ` + alertColumns + `
		FROM alerts
		WHERE resolved_at IS NULL
		ORDER BY timestamp DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query active alerts: %w", err)
	}
	defer rows.Close()

	return collectAlerts(rows)
}

// FindAll returns alerts newest-first, capped at limit
func (r *AlertRepository) FindAll(ctx context.Context, limit int) ([]*model.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts ORDER BY timestamp DESC`

	var args []interface{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	return collectAlerts(rows)
}

// Update replaces an existing alert
func (r *AlertRepository) Update(ctx context.Context, alert *model.Alert) error {
	query := `
		UPDATE alerts SET
			rule_name = $2, level = $3, message = $4,
			acknowledged = $5, resolved_at = $6
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query,
		alert.ID,
		alert.RuleName,
		string(alert.Level),
		alert.Message,
		alert.Acknowledged,
		database.NullTime(alert.ResolvedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to update alert: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to count updated alerts: %w", err)
	}
	if affected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// Delete removes an alert; returns false when the id is absent
func (r *AlertRepository) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM alerts WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete alert: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to count deleted alerts: %w", err)
	}
	return affected > 0, nil
}

// DeleteBefore removes all alerts older than cutoff and returns the count
func (r *AlertRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM alerts WHERE timestamp < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old alerts: %w", err)
	}

	purged, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted alerts: %w", err)
	}
	return purged, nil
}

func scanAlert(row rowScanner) (*model.Alert, error) {
	var (
		alert      model.Alert
		level      string
		resolvedAt sql.NullTime
	)

	err := row.Scan(
		&alert.ID,
		&alert.RuleName,
		&level,
		&alert.Message,
		&alert.ServiceID,
		&alert.MetricName,
		&alert.Threshold,
		&alert.CurrentValue,
		&alert.Timestamp,
		&alert.Acknowledged,
		&resolvedAt,
	)
	if err != nil {
		return nil, err
	}

	alert.Level = model.AlertLevel(level)
	if resolvedAt.Valid {
		alert.ResolvedAt = &resolvedAt.Time
	}

	return &alert, nil
}

func collectAlerts(rows *sql.Rows) ([]*model.Alert, error) {
	var alerts []*model.Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alerts: %w", err)
	}
	return alerts, nil
}
