package model

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// MetricKind classifies how a metric value should be interpreted
type MetricKind string

const (
	MetricKindGauge     MetricKind = "gauge"
	MetricKindCounter   MetricKind = "counter"
	MetricKindHistogram MetricKind = "histogram"
	MetricKindCustom    MetricKind = "custom"
)

// Metric is a single named, timestamped numeric observation for a service.
// Once stored, a metric point is immutable.
type Metric struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Kind      MetricKind        `json:"kind"`
	Value     float64           `json:"value"`
	Unit      string            `json:"unit,omitempty"`
	ServiceID string            `json:"serviceId"`
	Timestamp time.Time         `json:"timestamp"`
	Tags      map[string]string `json:"tags,omitempty"`
}

// NewMetric creates a metric point with a fresh ID. The timestamp is left
// zero so the recording service can default it to ingestion time.
func NewMetric(name string, kind MetricKind, value float64, unit, serviceID string) *Metric {
	return &Metric{
		ID:        uuid.New().String(),
		Name:      name,
		Kind:      kind,
		Value:     value,
		Unit:      unit,
		ServiceID: serviceID,
		Tags:      make(map[string]string),
	}
}

// Validate checks the metric point before persistence
func (m *Metric) Validate() error {
	if m.Name == "" {
		return &ValidationError{Field: "name", Message: "metric name is required"}
	}
	if m.ServiceID == "" {
		return &ValidationError{Field: "serviceId", Message: "service id is required"}
	}
	if math.IsNaN(m.Value) || math.IsInf(m.Value, 0) {
		return &ValidationError{Field: "value", Message: "metric value must be a finite number"}
	}
	return nil
}

// Statistics aggregates metric points over a time range. All fields are
// zero when the range contains no points.
type Statistics struct {
	Count int64   `json:"count"`
	Sum   float64 `json:"sum"`
	Avg   float64 `json:"avg"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}
