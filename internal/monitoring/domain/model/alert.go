package model

import (
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Operator is the comparison applied between a metric value and a rule threshold
type Operator string

const (
	OperatorGT  Operator = "gt"
	OperatorLT  Operator = "lt"
	OperatorEQ  Operator = "eq"
	OperatorNEQ Operator = "neq"
	OperatorGE  Operator = "ge"
	OperatorLE  Operator = "le"
)

// Word returns the human-readable phrase used in default alert messages
func (o Operator) Word() string {
	switch o {
	case OperatorGT:
		return "above"
	case OperatorLT:
		return "below"
	case OperatorGE:
		return "at or above"
	case OperatorLE:
		return "at or below"
	case OperatorEQ:
		return "equal to"
	case OperatorNEQ:
		return "not equal to"
	default:
		return string(o)
	}
}

// Valid reports whether the operator is one of the supported comparisons
func (o Operator) Valid() bool {
	switch o {
	case OperatorGT, OperatorLT, OperatorEQ, OperatorNEQ, OperatorGE, OperatorLE:
		return true
	}
	return false
}

// AlertLevel is the severity of a rule and the alerts it produces
type AlertLevel string

const (
	AlertLevelInfo     AlertLevel = "info"
	AlertLevelWarning  AlertLevel = "warning"
	AlertLevelCritical AlertLevel = "critical"
)

// Valid reports whether the level is a supported severity
func (l AlertLevel) Valid() bool {
	switch l {
	case AlertLevelInfo, AlertLevelWarning, AlertLevelCritical:
		return true
	}
	return false
}

// AlertRule is a named threshold condition over a metric name and service
// pattern. Uniqueness of (MetricName, ServicePattern) is not enforced;
// overlapping rules may all fire for the same metric point.
type AlertRule struct {
	ID                    string     `json:"id"`
	Name                  string     `json:"name"`
	MetricName            string     `json:"metricName"`
	Kind                  MetricKind `json:"kind,omitempty"`
	Operator              Operator   `json:"operator"`
	Threshold             float64    `json:"threshold"`
	Level                 AlertLevel `json:"level"`
	ServicePattern        string     `json:"servicePattern"`
	ConsecutiveDataPoints int        `json:"consecutiveDataPoints,omitempty"`
	MessageTemplate       string     `json:"messageTemplate,omitempty"`
	Enabled               bool       `json:"enabled"`
	CreatedAt             time.Time  `json:"createdAt"`
	UpdatedAt             time.Time  `json:"updatedAt"`
}

// NewAlertRule creates an enabled rule with a fresh ID
func NewAlertRule(name, metricName string, operator Operator, threshold float64, level AlertLevel, servicePattern string) *AlertRule {
	now := time.Now()
	return &AlertRule{
		ID:             uuid.New().String(),
		Name:           name,
		MetricName:     metricName,
		Operator:       operator,
		Threshold:      threshold,
		Level:          level,
		ServicePattern: servicePattern,
		Enabled:        true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Validate checks the rule before persistence
func (r *AlertRule) Validate() error {
	if r.Name == "" {
		return &ValidationError{Field: "name", Message: "rule name is required"}
	}
	if r.MetricName == "" {
		return &ValidationError{Field: "metricName", Message: "metric name is required"}
	}
	if !r.Operator.Valid() {
		return &ValidationError{Field: "operator", Message: "unknown operator: " + string(r.Operator)}
	}
	if !r.Level.Valid() {
		return &ValidationError{Field: "level", Message: "unknown alert level: " + string(r.Level)}
	}
	if math.IsNaN(r.Threshold) || math.IsInf(r.Threshold, 0) {
		return &ValidationError{Field: "threshold", Message: "threshold must be a finite number"}
	}
	if r.ServicePattern == "" {
		return &ValidationError{Field: "servicePattern", Message: "service pattern is required"}
	}
	if _, err := CompileServicePattern(r.ServicePattern); err != nil {
		return &ValidationError{Field: "servicePattern", Message: "invalid service pattern: " + err.Error()}
	}
	return nil
}

// CompileServicePattern turns a service pattern into an anchored regexp.
// Every "*" matches any sequence; other characters are taken as regex
// literals, which means metacharacters such as "." keep their regex
// meaning. Patterns without "*" never reach this path.
func CompileServicePattern(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile("^" + strings.ReplaceAll(pattern, "*", ".*") + "$")
}

// Alert is a record produced when a metric point violates an enabled rule.
// Acknowledged and ResolvedAt are independent flags, not a state machine:
// an alert can be acknowledged while unresolved, or resolved while
// unacknowledged.
type Alert struct {
	ID           string     `json:"id"`
	RuleName     string     `json:"ruleName"`
	Level        AlertLevel `json:"level"`
	Message      string     `json:"message"`
	ServiceID    string     `json:"serviceId"`
	MetricName   string     `json:"metricName"`
	Threshold    float64    `json:"threshold"`
	CurrentValue float64    `json:"currentValue"`
	Timestamp    time.Time  `json:"timestamp"`
	Acknowledged bool       `json:"acknowledged"`
	ResolvedAt   *time.Time `json:"resolvedAt,omitempty"`
}

// NewAlert creates an unacknowledged, unresolved alert for a rule violation
func NewAlert(rule *AlertRule, metric *Metric, message string) *Alert {
	return &Alert{
		ID:           uuid.New().String(),
		RuleName:     rule.Name,
		Level:        rule.Level,
		Message:      message,
		ServiceID:    metric.ServiceID,
		MetricName:   metric.Name,
		Threshold:    rule.Threshold,
		CurrentValue: metric.Value,
		Timestamp:    time.Now(),
	}
}

// Active reports whether the alert has not been resolved yet
func (a *Alert) Active() bool {
	return a.ResolvedAt == nil
}
