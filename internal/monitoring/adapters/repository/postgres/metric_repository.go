package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pulsewatch/pulsewatch/internal/monitoring/domain/model"
	"github.com/pulsewatch/pulsewatch/internal/monitoring/domain/repository"
	"github.com/pulsewatch/pulsewatch/internal/platform/database"
)

// MetricRepository implements the metric repository interface for PostgreSQL
type MetricRepository struct {
	db *database.DB
}

// NewMetricRepository creates a new PostgreSQL metric repository
func NewMetricRepository(db *database.DB) *MetricRepository {
	return &MetricRepository{db: db}
}

const metricColumns = `id, name, kind, value, unit, service_id, timestamp, tags`

// Save persists a new metric point
func (r *MetricRepository) Save(ctx context.Context, metric *model.Metric) error {
	tagsJSON, err := json.Marshal(metric.Tags)
	if err != nil {
		return fmt.Errorf("failed to serialize tags: %w", err)
	}

	query := `
		INSERT INTO metric_points (id, name, kind, value, unit, service_id, timestamp, tags)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb)`

	_, err = r.db.ExecContext(ctx, query,
		metric.ID,
		metric.Name,
		string(metric.Kind),
		metric.Value,
		metric.Unit,
		metric.ServiceID,
		metric.Timestamp,
		string(tagsJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to insert metric point: %w", err)
	}

	return nil
}

// FindLatest returns the most recent point for the (name, serviceID) pair
func (r *MetricRepository) FindLatest(ctx context.Context, name, serviceID string) (*model.Metric, error) {
	query := `
		SELECT ` + metricColumns + `
		FROM metric_points
		WHERE name = $1 AND service_id = $2
		ORDER BY timestamp DESC
		LIMIT 1`

	metric, err := scanMetric(r.db.QueryRowContext(ctx, query, name, serviceID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query latest metric: %w", err)
	}

	return metric, nil
}

// FindLatestByService returns one latest point per metric name for a service
func (r *MetricRepository) FindLatestByService(ctx context.Context, serviceID string) ([]*model.Metric, error) {
	query := `
		SELECT DISTINCT ON (name) ` + metricColumns + `
		FROM metric_points
		WHERE service_id = $1
		ORDER BY name, timestamp DESC`

	rows, err := r.db.QueryContext(ctx, query, serviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest metrics: %w", err)
	}
	defer rows.Close()

	return collectMetrics(rows)
}

// FindAllLatest returns the latest points of every known service
func (r *MetricRepository) FindAllLatest(ctx context.Context) (map[string][]*model.Metric, error) {
	query := `
		SELECT DISTINCT ON (service_id, name) ` + metricColumns + `
		FROM metric_points
		ORDER BY service_id, name, timestamp DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest metrics: %w", err)
	}
	defer rows.Close()

	points, err := collectMetrics(rows)
	if err != nil {
		return nil, err
	}

	grouped := make(map[string][]*model.Metric)
	for _, metric := range points {
		grouped[metric.ServiceID] = append(grouped[metric.ServiceID], metric)
	}
	return grouped, nil
}

// FindRange returns points in [start, end] newest-first, capped at limit
func (r *MetricRepository) FindRange(ctx context.Context, name, serviceID string, start, end time.Time, limit int) ([]*model.Metric, error) {
	query := `
		SELECT ` + metricColumns + `
		FROM metric_points
		WHERE name = $1 AND service_id = $2 AND timestamp >= $3 AND timestamp <= $4
		ORDER BY timestamp DESC`

	args := []interface{}{name, serviceID, start, end}
	if limit > 0 {
		query += ` LIMIT $5`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query metric range: %w", err)
	}
	defer rows.Close()

	return collectMetrics(rows)
}

// Aggregate computes statistics over points in [start, end]. An empty range
// yields all-zero statistics.
func (r *MetricRepository) Aggregate(ctx context.Context, name, serviceID string, start, end time.Time) (*model.Statistics, error) {
	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(value), 0),
			COALESCE(AVG(value), 0),
			COALESCE(MIN(value), 0),
			COALESCE(MAX(value), 0)
		FROM metric_points
		WHERE name = $1 AND service_id = $2 AND timestamp >= $3 AND timestamp <= $4`

	stats := &model.Statistics{}
	err := r.db.QueryRowContext(ctx, query, name, serviceID, start, end).Scan(
		&stats.Count,
		&stats.Sum,
		&stats.Avg,
		&stats.Min,
		&stats.Max,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate metrics: %w", err)
	}

	return stats, nil
}

// DeleteBefore removes all points older than cutoff and returns the count
func (r *MetricRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM metric_points WHERE timestamp < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old metric points: %w", err)
	}

	purged, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted metric points: %w", err)
	}
	return purged, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMetric(row rowScanner) (*model.Metric, error) {
	var (
		metric   model.Metric
		kind     string
		tagsJSON []byte
	)

	err := row.Scan(
		&metric.ID,
		&metric.Name,
		&kind,
		&metric.Value,
		&metric.Unit,
		&metric.ServiceID,
		&metric.Timestamp,
		&tagsJSON,
	)
	if err != nil {
		return nil, err
	}

	metric.Kind = model.MetricKind(kind)
	if len(tagsJSON) > 0 {
		if err := json.Unmarshal(tagsJSON, &metric.Tags); err != nil {
			return nil, fmt.Errorf("failed to deserialize tags: %w", err)
		}
	}

	return &metric, nil
}

func collectMetrics(rows *sql.Rows) ([]*model.Metric, error) {
	var points []*model.Metric
	for rows.Next() {
		metric, err := scanMetric(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan metric point: %w", err)
		}
		points = append(points, metric)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate metric points: %w", err)
	}
	return points, nil
}
