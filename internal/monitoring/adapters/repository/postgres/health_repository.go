package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/pulsewatch/pulsewatch/internal/monitoring/domain/model"
	"github.com/pulsewatch/pulsewatch/internal/monitoring/domain/repository"
	"github.com/pulsewatch/pulsewatch/internal/platform/database"
)

// HealthRepository implements the health repository interface for PostgreSQL.
// Snapshots are append-only; reads surface the latest row per service.
type HealthRepository struct {
	db *database.DB
}

// NewHealthRepository creates a new PostgreSQL health repository
func NewHealthRepository(db *database.DB) *HealthRepository {
	return &HealthRepository{db: db}
}

// Save appends a snapshot
func (r *HealthRepository) Save(ctx context.Context, snapshot *model.HealthSnapshot) error {
	detailsJSON, err := json.Marshal(snapshot.Details)
	if err != nil {
		return fmt.Errorf("failed to serialize details: %w", err)
	}

	query := `
		INSERT INTO health_snapshots (service_id, status, details, timestamp)
		VALUES ($1, $2, $3::jsonb, $4)`

	_, err = r.db.ExecContext(ctx, query,
		snapshot.ServiceID,
		string(snapshot.Status),
		string(detailsJSON),
		snapshot.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert health snapshot: %w", err)
	}

	return nil
}

// FindLatest returns the latest snapshot for a service
func (r *HealthRepository) FindLatest(ctx context.Context, serviceID string) (*model.HealthSnapshot, error) {
	query := `
		SELECT service_id, status, details, timestamp
		FROM health_snapshots
		WHERE service_id = $1
		ORDER BY timestamp DESC
		LIMIT 1`

	snapshot, err := scanHealthSnapshot(r.db.QueryRowContext(ctx, query, serviceID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query health snapshot: %w", err)
	}

	return snapshot, nil
}

// FindAllLatest returns one latest snapshot per known service
func (r *HealthRepository) FindAllLatest(ctx context.Context) ([]*model.HealthSnapshot, error) {
	query := `
		SELECT DISTINCT ON (service_id) service_id, status, details, timestamp
		FROM health_snapshots
		ORDER BY service_id, timestamp DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query health snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []*model.HealthSnapshot
	for rows.Next() {
		snapshot, err := scanHealthSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan health snapshot: %w", err)
		}
		snapshots = append(snapshots, snapshot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate health snapshots: %w", err)
	}

	return snapshots, nil
}

func scanHealthSnapshot(row rowScanner) (*model.HealthSnapshot, error) {
	var (
		snapshot    model.HealthSnapshot
		status      string
		detailsJSON []byte
	)

	err := row.Scan(&snapshot.ServiceID, &status, &detailsJSON, &snapshot.Timestamp)
	if err != nil {
		return nil, err
	}

	snapshot.Status = model.HealthStatus(status)
	if len(detailsJSON) > 0 {
		if err := json.Unmarshal(detailsJSON, &snapshot.Details); err != nil {
			return nil, fmt.Errorf("failed to deserialize details: %w", err)
		}
	}

	return &snapshot, nil
}
