// Package dto defines the request and response payloads of the monitoring API
package dto

import (
	"time"

	"github.com/pulsewatch/pulsewatch/internal/monitoring/domain/model"
)

// RecordMetricRequest is the payload for recording one metric point
type RecordMetricRequest struct {
	Name      string            `json:"name"`
	Kind      string            `json:"kind,omitempty"`
	Value     float64           `json:"value"`
	Unit      string            `json:"unit,omitempty"`
	ServiceID string            `json:"serviceId"`
	Timestamp *time.Time        `json:"timestamp,omitempty"`
	Tags      map[string]string `json:"tags,omitempty"`
}

// ToModel converts the request to a domain metric point
func (r *RecordMetricRequest) ToModel() *model.Metric {
	metric := model.NewMetric(r.Name, model.MetricKind(r.Kind), r.Value, r.Unit, r.ServiceID)
	if r.Timestamp != nil {
		metric.Timestamp = *r.Timestamp
	}
	if r.Tags != nil {
		metric.Tags = r.Tags
	}
	return metric
}

// RecordMetricBatchRequest is the payload for recording multiple points
type RecordMetricBatchRequest struct {
	Metrics []RecordMetricRequest `json:"metrics"`
}

// RecordMetricResponse reports a recorded point and any alerts it triggered
type RecordMetricResponse struct {
	Metric *model.Metric  `json:"metric,omitempty"`
	Alerts []*model.Alert `json:"alerts"`
}

// RecordMetricBatchResponse reports a batch outcome. Failed counts the
// points that were rejected or could not be persisted; Error carries the
// first failure when Failed is non-zero.
type RecordMetricBatchResponse struct {
	Metrics  []*model.Metric `json:"metrics"`
	Alerts   []*model.Alert  `json:"alerts"`
	Recorded int             `json:"recorded"`
	Failed   int             `json:"failed"`
	Error    string          `json:"error,omitempty"`
}

// UpdateHealthRequest is the payload for reporting a service's status
type UpdateHealthRequest struct {
	Status  string            `json:"status"`
	Details map[string]string `json:"details,omitempty"`
}

// SaveRuleRequest is the payload for creating or updating an alert rule
type SaveRuleRequest struct {
	Name                  string  `json:"name"`
	MetricName            string  `json:"metricName"`
	Kind                  string  `json:"kind,omitempty"`
	Operator              string  `json:"operator"`
	Threshold             float64 `json:"threshold"`
	Level                 string  `json:"level"`
	ServicePattern        string  `json:"servicePattern"`
	ConsecutiveDataPoints int     `json:"consecutiveDataPoints,omitempty"`
	MessageTemplate       string  `json:"messageTemplate,omitempty"`
	Enabled               *bool   `json:"enabled,omitempty"`
}

// ToModel converts the request to a domain rule. Enabled defaults to true
// when omitted.
func (r *SaveRuleRequest) ToModel() *model.AlertRule {
	rule := &model.AlertRule{
		Name:                  r.Name,
		MetricName:            r.MetricName,
		Kind:                  model.MetricKind(r.Kind),
		Operator:              model.Operator(r.Operator),
		Threshold:             r.Threshold,
		Level:                 model.AlertLevel(r.Level),
		ServicePattern:        r.ServicePattern,
		ConsecutiveDataPoints: r.ConsecutiveDataPoints,
		MessageTemplate:       r.MessageTemplate,
		Enabled:               true,
	}
	if r.Enabled != nil {
		rule.Enabled = *r.Enabled
	}
	return rule
}
