package postgres

import (
	"context"
	"fmt"

	"github.com/pulsewatch/pulsewatch/internal/platform/database"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS metric_points (
		id         UUID PRIMARY KEY,
		name       TEXT NOT NULL,
		kind       TEXT NOT NULL DEFAULT 'gauge',
		value      DOUBLE PRECISION NOT NULL,
		unit       TEXT NOT NULL DEFAULT '',
		service_id TEXT NOT NULL,
		timestamp  TIMESTAMPTZ NOT NULL,
		tags       JSONB NOT NULL DEFAULT '{}'::jsonb
	)`,
	`CREATE INDEX IF NOT EXISTS idx_metric_points_series
		ON metric_points (service_id, name, timestamp DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_metric_points_timestamp
		ON metric_points (timestamp)`,

	`CREATE TABLE IF NOT EXISTS health_snapshots (
		service_id TEXT NOT NULL,
		status     TEXT NOT NULL,
		details    JSONB NOT NULL DEFAULT '{}'::jsonb,
		timestamp  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_health_snapshots_latest
		ON health_snapshots (service_id, timestamp DESC)`,

	`CREATE TABLE IF NOT EXISTS alert_rules (
		id                      UUID PRIMARY KEY,
		name                    TEXT NOT NULL,
		metric_name             TEXT NOT NULL,
		kind                    TEXT NOT NULL DEFAULT '',
		operator                TEXT NOT NULL,
		threshold               DOUBLE PRECISION NOT NULL,
		level                   TEXT NOT NULL,
		service_pattern         TEXT NOT NULL,
		consecutive_data_points INTEGER NOT NULL DEFAULT 0,
		message_template        TEXT NOT NULL DEFAULT '',
		enabled                 BOOLEAN NOT NULL DEFAULT TRUE,
		created_at              TIMESTAMPTZ NOT NULL,
		updated_at              TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_alert_rules_metric
		ON alert_rules (metric_name) WHERE enabled`,

	`CREATE TABLE IF NOT EXISTS alerts (
		id            UUID PRIMARY KEY,
		rule_name     TEXT NOT NULL,
		level         TEXT NOT NULL,
		message       TEXT NOT NULL,
		service_id    TEXT NOT NULL,
		metric_name   TEXT NOT NULL,
		threshold     DOUBLE PRECISION NOT NULL,
		current_value DOUBLE PRECISION NOT NULL,
		timestamp     TIMESTAMPTZ NOT NULL,
		acknowledged  BOOLEAN NOT NULL DEFAULT FALSE,
		resolved_at   TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_alerts_active
		ON alerts (timestamp DESC) WHERE resolved_at IS NULL`,
	`CREATE INDEX IF NOT EXISTS idx_alerts_timestamp
		ON alerts (timestamp)`,
}

// Migrate creates the monitoring tables and indexes if they do not exist
func Migrate(ctx context.Context, db *database.DB) error {
	for _, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}
	return nil
}
