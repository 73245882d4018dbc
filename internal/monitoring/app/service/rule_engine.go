package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pulsewatch/pulsewatch/internal/monitoring/domain/model"
	"github.com/pulsewatch/pulsewatch/internal/monitoring/domain/repository"
	"github.com/pulsewatch/pulsewatch/internal/platform/logger"
	"github.com/pulsewatch/pulsewatch/internal/platform/metrics"
	"github.com/pulsewatch/pulsewatch/internal/shared/events"
)

// EventPublisher publishes domain events to the event stream. Implementations
// must be safe for concurrent use.
type EventPublisher interface {
	Publish(ctx context.Context, event *events.Event) error
}

// AlertBroadcaster pushes newly created alerts to live subscribers
type AlertBroadcaster interface {
	BroadcastAlert(alert *model.Alert)
}

// RuleEngine evaluates metric points against enabled alert rules and manages
// the rule definitions themselves. Rules are read from the store at every
// evaluation, so concurrent rule changes become visible on the next point.
type RuleEngine struct {
	rules       repository.AlertRuleRepository
	alerts      repository.AlertRepository
	publisher   EventPublisher
	broadcaster AlertBroadcaster
	telemetry   *metrics.Metrics
	logger      logger.Logger
}

// NewRuleEngine creates a rule engine. Publisher, broadcaster and telemetry
// are optional and may be nil.
func NewRuleEngine(
	rules repository.AlertRuleRepository,
	alerts repository.AlertRepository,
	publisher EventPublisher,
	broadcaster AlertBroadcaster,
	telemetry *metrics.Metrics,
	logger logger.Logger,
) *RuleEngine {
	return &RuleEngine{
		rules:       rules,
		alerts:      alerts,
		publisher:   publisher,
		broadcaster: broadcaster,
		telemetry:   telemetry,
		logger:      logger,
	}
}

// EvaluateMetric evaluates one metric point against all enabled rules whose
// metric name matches, creating one alert per violated rule. A failure on one
// rule is logged and does not abort the remaining rules; the returned error
// is always nil unless the rule listing itself fails.
func (e *RuleEngine) EvaluateMetric(ctx context.Context, metric *model.Metric) ([]*model.Alert, error) {
	start := time.Now()

	rules, err := e.rules.FindByMetricName(ctx, metric.Name, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list enabled rules for %s: %w", metric.Name, err)
	}

	var created []*model.Alert
	for _, rule := range rules {
		matched, err := serviceMatch(metric.ServiceID, rule.ServicePattern)
		if err != nil {
			e.logger.Warn("Skipping rule with bad service pattern",
				"rule", rule.Name,
				"pattern", rule.ServicePattern,
				"error", err,
			)
			continue
		}
		if !matched {
			continue
		}

		if !compare(metric.Value, rule.Threshold, rule.Operator) {
			continue
		}

		alert := model.NewAlert(rule, metric, formatMessage(rule.MessageTemplate, metric, rule))
		if err := e.alerts.Save(ctx, alert); err != nil {
			e.logger.Error("Failed to persist alert",
				"rule", rule.Name,
				"service_id", metric.ServiceID,
				"error", err,
			)
			continue
		}
		created = append(created, alert)

		e.logger.Warn("Alert created",
			"rule", rule.Name,
			"level", alert.Level,
			"service_id", alert.ServiceID,
			"metric", alert.MetricName,
			"value", alert.CurrentValue,
			"threshold", alert.Threshold,
		)

		if e.telemetry != nil {
			e.telemetry.AlertsFired.WithLabelValues(rule.Name, string(rule.Level)).Inc()
		}
		if e.broadcaster != nil {
			e.broadcaster.BroadcastAlert(alert)
		}
		e.publishAlertCreated(ctx, alert)
	}

	if e.telemetry != nil {
		e.telemetry.RuleEvaluations.Inc()
		e.telemetry.RuleEvaluationTime.Observe(time.Since(start).Seconds())
	}

	return created, nil
}

func (e *RuleEngine) publishAlertCreated(ctx context.Context, alert *model.Alert) {
	if e.publisher == nil {
		return
	}

	event, err := events.NewEvent(alert.ID, "Alert", events.AlertCreated, events.AlertCreatedPayload{
		AlertID:      alert.ID,
		RuleName:     alert.RuleName,
		Level:        string(alert.Level),
		ServiceID:    alert.ServiceID,
		MetricName:   alert.MetricName,
		CurrentValue: alert.CurrentValue,
		Threshold:    alert.Threshold,
		Message:      alert.Message,
		CreatedAt:    alert.Timestamp,
	})
	if err != nil {
		e.logger.Error("Failed to build alert event", "alert_id", alert.ID, "error", err)
		return
	}

	if err := e.publisher.Publish(ctx, event); err != nil {
		e.logger.Error("Failed to publish alert event", "alert_id", alert.ID, "error", err)
	}
}

// serviceMatch reports whether a service id matches a rule's service pattern.
// "*" matches everything; a pattern containing "*" is an anchored match with
// each "*" standing for any sequence; anything else is exact equality.
func serviceMatch(serviceID, pattern string) (bool, error) {
	if pattern == "*" {
		return true, nil
	}
	if strings.Contains(pattern, "*") {
		re, err := model.CompileServicePattern(pattern)
		if err != nil {
			return false, err
		}
		return re.MatchString(serviceID), nil
	}
	return serviceID == pattern, nil
}

// compare applies a rule operator between a metric value and a threshold.
// Equality is exact floating-point comparison, no epsilon.
func compare(value, threshold float64, op model.Operator) bool {
	switch op {
	case model.OperatorGT:
		return value > threshold
	case model.OperatorLT:
		return value < threshold
	case model.OperatorGE:
		return value >= threshold
	case model.OperatorLE:
		return value <= threshold
	case model.OperatorEQ:
		return value == threshold
	case model.OperatorNEQ:
		return value != threshold
	default:
		return false
	}
}

// formatMessage renders a rule's message template for a metric point. An
// empty template falls back to a default sentence.
func formatMessage(template string, metric *model.Metric, rule *model.AlertRule) string {
	if template == "" {
		return fmt.Sprintf("%s metric %s is %s%s, %s threshold %s",
			metric.ServiceID,
			metric.Name,
			formatValue(metric.Value),
			metric.Unit,
			rule.Operator.Word(),
			formatValue(rule.Threshold),
		)
	}

	replacer := strings.NewReplacer(
		"{metric}", metric.Name,
		"{value}", formatValue(metric.Value),
		"{threshold}", formatValue(rule.Threshold),
		"{service}", metric.ServiceID,
		"{operator}", rule.Operator.Word(),
		"{unit}", metric.Unit,
	)
	return replacer.Replace(template)
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// CreateRule validates and persists a new rule
func (e *RuleEngine) CreateRule(ctx context.Context, rule *model.AlertRule) (*model.AlertRule, error) {
	if rule.ID == "" {
		created := model.NewAlertRule(rule.Name, rule.MetricName, rule.Operator, rule.Threshold, rule.Level, rule.ServicePattern)
		created.Kind = rule.Kind
		created.ConsecutiveDataPoints = rule.ConsecutiveDataPoints
		created.MessageTemplate = rule.MessageTemplate
		created.Enabled = rule.Enabled
		rule = created
	} else {
		now := time.Now()
		rule.CreatedAt = now
		rule.UpdatedAt = now
	}

	if err := rule.Validate(); err != nil {
		return nil, err
	}

	if err := e.rules.Save(ctx, rule); err != nil {
		return nil, fmt.Errorf("failed to save rule: %w", err)
	}

	e.logger.Info("Alert rule created",
		"rule_id", rule.ID,
		"name", rule.Name,
		"metric", rule.MetricName,
		"operator", rule.Operator,
		"threshold", rule.Threshold,
	)

	return rule, nil
}

// UpdateRule replaces an existing rule; a missing id is an error
func (e *RuleEngine) UpdateRule(ctx context.Context, rule *model.AlertRule) (*model.AlertRule, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}

	existing, err := e.rules.FindByID(ctx, rule.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load rule %s: %w", rule.ID, err)
	}

	rule.CreatedAt = existing.CreatedAt
	rule.UpdatedAt = time.Now()

	if err := e.rules.Update(ctx, rule); err != nil {
		return nil, fmt.Errorf("failed to update rule %s: %w", rule.ID, err)
	}

	e.logger.Info("Alert rule updated", "rule_id", rule.ID, "name", rule.Name)
	return rule, nil
}

// EnableRule enables a rule. The boolean result is false when the id does not
// exist; that is not an error.
func (e *RuleEngine) EnableRule(ctx context.Context, id string) (*model.AlertRule, bool, error) {
	return e.setEnabled(ctx, id, true)
}

// DisableRule disables a rule, stopping alert creation for metrics recorded
// afterwards. Already-created alerts are untouched.
func (e *RuleEngine) DisableRule(ctx context.Context, id string) (*model.AlertRule, bool, error) {
	return e.setEnabled(ctx, id, false)
}

func (e *RuleEngine) setEnabled(ctx context.Context, id string, enabled bool) (*model.AlertRule, bool, error) {
	rule, err := e.rules.SetEnabled(ctx, id, enabled)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to set rule %s enabled=%t: %w", id, enabled, err)
	}

	e.logger.Info("Alert rule toggled", "rule_id", id, "enabled", enabled)
	return rule, true, nil
}

// DeleteRule removes a rule; deleting a missing id is a no-op
func (e *RuleEngine) DeleteRule(ctx context.Context, id string) error {
	if err := e.rules.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete rule %s: %w", id, err)
	}
	e.logger.Info("Alert rule deleted", "rule_id", id)
	return nil
}

// GetRule returns a rule by id
func (e *RuleEngine) GetRule(ctx context.Context, id string) (*model.AlertRule, error) {
	rule, err := e.rules.FindByID(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load rule %s: %w", id, err)
	}
	return rule, nil
}

// ListAllRules returns every rule
func (e *RuleEngine) ListAllRules(ctx context.Context) ([]*model.AlertRule, error) {
	rules, err := e.rules.FindAll(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	return rules, nil
}

// ListEnabledRules returns only enabled rules
func (e *RuleEngine) ListEnabledRules(ctx context.Context) ([]*model.AlertRule, error) {
	rules, err := e.rules.FindAll(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list enabled rules: %w", err)
	}
	return rules, nil
}
