package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pulsewatch/pulsewatch/internal/monitoring/domain/model"
	"github.com/pulsewatch/pulsewatch/internal/monitoring/domain/repository"
	"github.com/pulsewatch/pulsewatch/internal/platform/database"
)

// AlertRuleRepository implements the alert rule repository interface for
// PostgreSQL. Row-level atomicity gives readers a rule either fully updated
// or not at all.
type AlertRuleRepository struct {
	db *database.DB
}

// NewAlertRuleRepository creates a new PostgreSQL alert rule repository
func NewAlertRuleRepository(db *database.DB) *AlertRuleRepository {
	return &AlertRuleRepository{db: db}
}

const ruleColumns = `id, name, metric_name, kind, operator, threshold, level,
	service_pattern, consecutive_data_points, message_template, enabled,
	created_at, updated_at`

// Save persists a new rule
func (r *AlertRuleRepository) Save(ctx context.Context, rule *model.AlertRule) error {
	query := `
		INSERT INTO alert_rules (
			id, name, metric_name, kind, operator, threshold, level,
			service_pattern, consecutive_data_points, message_template, enabled,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.db.ExecContext(ctx, query,
		rule.ID,
		rule.Name,
		rule.MetricName,
		string(rule.Kind),
		string(rule.Operator),
		rule.Threshold,
		string(rule.Level),
		rule.ServicePattern,
		rule.ConsecutiveDataPoints,
		rule.MessageTemplate,
		rule.Enabled,
		rule.CreatedAt,
		rule.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert alert rule: %w", err)
	}

	return nil
}

// FindByID returns a rule by id
func (r *AlertRuleRepository) FindByID(ctx context.Context, id string) (*model.AlertRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM alert_rules WHERE id = $1`

	rule, err := scanAlertRule(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query alert rule: %w", err)
	}

	return rule, nil
}

// FindByMetricName returns rules for a metric name, optionally enabled only
func (r *AlertRuleRepository) FindByMetricName(ctx context.Context, metricName string, enabledOnly bool) ([]*model.AlertRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM alert_rules WHERE metric_name = $1`
	if enabledOnly {
		query += ` AND enabled`
	}
	query += ` ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, metricName)
	if err != nil {
		return nil, fmt.Errorf("failed to query alert rules: %w", err)
	}
	defer rows.Close()

	return collectAlertRules(rows)
}

// FindAll returns all rules, optionally enabled only
func (r *AlertRuleRepository) FindAll(ctx context.Context, enabledOnly bool) ([]*model.AlertRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM alert_rules`
	if enabledOnly {
		query += ` WHERE enabled`
	}
	query += ` ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query alert rules: %w", err)
	}
	defer rows.Close()

	return collectAlertRules(rows)
}

// Update replaces an existing rule
func (r *AlertRuleRepository) Update(ctx context.Context, rule *model.AlertRule) error {
	query := `
		UPDATE alert_rules SET
			name = $2, metric_name = $3, kind = $4, operator = $5,
			threshold = $6, level = $7, service_pattern = $8,
			consecutive_data_points = $9, message_template = $10,
			enabled = $11, updated_at = $12
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query,
		rule.ID,
		rule.Name,
		rule.MetricName,
		string(rule.Kind),
		string(rule.Operator),
		rule.Threshold,
		string(rule.Level),
		rule.ServicePattern,
		rule.ConsecutiveDataPoints,
		rule.MessageTemplate,
		rule.Enabled,
		rule.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update alert rule: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to count updated rules: %w", err)
	}
	if affected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// SetEnabled flips the enabled flag and returns the updated rule
func (r *AlertRuleRepository) SetEnabled(ctx context.Context, id string, enabled bool) (*model.AlertRule, error) {
	query := `
		UPDATE alert_rules SET enabled = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + ruleColumns

	rule, err := scanAlertRule(r.db.QueryRowContext(ctx, query, id, enabled))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to toggle alert rule: %w", err)
	}

	return rule, nil
}

// Delete removes a rule; deleting a missing id is a no-op
func (r *AlertRuleRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM alert_rules WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete alert rule: %w", err)
	}
	return nil
}

func scanAlertRule(row rowScanner) (*model.AlertRule, error) {
	var (
		rule     model.AlertRule
		kind     string
		operator string
		level    string
	)

	err := row.Scan(
		&rule.ID,
		&rule.Name,
		&rule.MetricName,
		&kind,
		&operator,
		&rule.Threshold,
		&level,
		&rule.ServicePattern,
		&rule.ConsecutiveDataPoints,
		&rule.MessageTemplate,
		&rule.Enabled,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rule.Kind = model.MetricKind(kind)
	rule.Operator = model.Operator(operator)
	rule.Level = model.AlertLevel(level)

	return &rule, nil
}

func collectAlertRules(rows *sql.Rows) ([]*model.AlertRule, error) {
	var rules []*model.AlertRule
	for rows.Next() {
		rule, err := scanAlertRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert rule: %w", err)
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alert rules: %w", err)
	}
	return rules, nil
}
