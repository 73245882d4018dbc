package model

import "time"

// HealthStatus is the reported operational state of a service
type HealthStatus string

const (
	HealthStatusUp       HealthStatus = "up"
	HealthStatusDegraded HealthStatus = "degraded"
	HealthStatusDown     HealthStatus = "down"
	HealthStatusUnknown  HealthStatus = "unknown"
)

// HealthSnapshot is the latest reported status of a service. History is
// append-only underneath; only the latest snapshot per service is exposed.
type HealthSnapshot struct {
	ServiceID string            `json:"serviceId"`
	Status    HealthStatus      `json:"status"`
	Details   map[string]string `json:"details,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// Validate checks the snapshot before persistence
func (h *HealthSnapshot) Validate() error {
	if h.ServiceID == "" {
		return &ValidationError{Field: "serviceId", Message: "service id is required"}
	}
	switch h.Status {
	case HealthStatusUp, HealthStatusDegraded, HealthStatusDown, HealthStatusUnknown:
		return nil
	default:
		return &ValidationError{Field: "status", Message: "unknown health status: " + string(h.Status)}
	}
}
