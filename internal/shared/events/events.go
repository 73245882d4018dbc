// Package events defines the domain events published by the monitoring service
package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types emitted on the monitoring event stream
const (
	AlertCreated  = "alert.created"
	AlertResolved = "alert.resolved"
	HealthChanged = "health.changed"
)

// Event represents a domain event
type Event struct {
	ID            string          `json:"id"`
	AggregateID   string          `json:"aggregateId"`
	AggregateType string          `json:"aggregateType"`
	EventType     string          `json:"eventType"`
	Timestamp     time.Time       `json:"timestamp"`
	Payload       json.RawMessage `json:"payload"`
}

// NewEvent creates a new event with a serialized payload
func NewEvent(aggregateID, aggregateType, eventType string, payload interface{}) (*Event, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            uuid.New().String(),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Timestamp:     time.Now(),
		Payload:       payloadBytes,
	}, nil
}

// AlertCreatedPayload carries the alert produced by a rule violation
type AlertCreatedPayload struct {
	AlertID      string    `json:"alertId"`
	RuleName     string    `json:"ruleName"`
	Level        string    `json:"level"`
	ServiceID    string    `json:"serviceId"`
	MetricName   string    `json:"metricName"`
	CurrentValue float64   `json:"currentValue"`
	Threshold    float64   `json:"threshold"`
	Message      string    `json:"message"`
	CreatedAt    time.Time `json:"createdAt"`
}

// AlertResolvedPayload marks an alert as resolved
type AlertResolvedPayload struct {
	AlertID    string    `json:"alertId"`
	RuleName   string    `json:"ruleName"`
	ServiceID  string    `json:"serviceId"`
	ResolvedAt time.Time `json:"resolvedAt"`
}

// HealthChangedPayload reports a service status transition
type HealthChangedPayload struct {
	ServiceID string    `json:"serviceId"`
	Previous  string    `json:"previous"`
	Current   string    `json:"current"`
	ChangedAt time.Time `json:"changedAt"`
}
