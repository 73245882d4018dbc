package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pulsewatch/pulsewatch/internal/monitoring/domain/model"
	"github.com/pulsewatch/pulsewatch/internal/monitoring/domain/repository"
	"github.com/pulsewatch/pulsewatch/internal/shared/events"
)

// In-memory repository fakes shared by the service tests.

type memMetricRepo struct {
	mu      sync.Mutex
	points  []*model.Metric
	saveErr error
}

func (r *memMetricRepo) Save(_ context.Context, metric *model.Metric) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	clone := *metric
	r.points = append(r.points, &clone)
	return nil
}

func (r *memMetricRepo) FindLatest(_ context.Context, name, serviceID string) (*model.Metric, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *model.Metric
	for _, p := range r.points {
		if p.Name != name || p.ServiceID != serviceID {
			continue
		}
		if latest == nil || p.Timestamp.After(latest.Timestamp) {
			latest = p
		}
	}
	if latest == nil {
		return nil, repository.ErrNotFound
	}
	return latest, nil
}

func (r *memMetricRepo) FindLatestByService(_ context.Context, serviceID string) ([]*model.Metric, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	latest := make(map[string]*model.Metric)
	for _, p := range r.points {
		if p.ServiceID != serviceID {
			continue
		}
		if cur, ok := latest[p.Name]; !ok || p.Timestamp.After(cur.Timestamp) {
			latest[p.Name] = p
		}
	}
	out := make([]*model.Metric, 0, len(latest))
	for _, p := range latest {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memMetricRepo) FindAllLatest(ctx context.Context) (map[string][]*model.Metric, error) {
	r.mu.Lock()
	services := make(map[string]bool)
	for _, p := range r.points {
		services[p.ServiceID] = true
	}
	r.mu.Unlock()

	out := make(map[string][]*model.Metric)
	for svc := range services {
		points, err := r.FindLatestByService(ctx, svc)
		if err != nil {
			return nil, err
		}
		out[svc] = points
	}
	return out, nil
}

func (r *memMetricRepo) FindRange(_ context.Context, name, serviceID string, start, end time.Time, limit int) ([]*model.Metric, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Metric
	for _, p := range r.points {
		if p.Name != name || p.ServiceID != serviceID {
			continue
		}
		if p.Timestamp.Before(start) || p.Timestamp.After(end) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memMetricRepo) Aggregate(_ context.Context, name, serviceID string, start, end time.Time) (*model.Statistics, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := &model.Statistics{}
	for _, p := range r.points {
		if p.Name != name || p.ServiceID != serviceID {
			continue
		}
		if p.Timestamp.Before(start) || p.Timestamp.After(end) {
			continue
		}
		if stats.Count == 0 {
			stats.Min = p.Value
			stats.Max = p.Value
		} else {
			if p.Value < stats.Min {
				stats.Min = p.Value
			}
			if p.Value > stats.Max {
				stats.Max = p.Value
			}
		}
		stats.Count++
		stats.Sum += p.Value
	}
	if stats.Count > 0 {
		stats.Avg = stats.Sum / float64(stats.Count)
	}
	return stats, nil
}

func (r *memMetricRepo) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kept []*model.Metric
	var purged int64
	for _, p := range r.points {
		if p.Timestamp.Before(cutoff) {
			purged++
			continue
		}
		kept = append(kept, p)
	}
	r.points = kept
	return purged, nil
}

type memRuleRepo struct {
	mu    sync.Mutex
	rules []*model.AlertRule
}

func (r *memRuleRepo) Save(_ context.Context, rule *model.AlertRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *rule
	r.rules = append(r.rules, &clone)
	return nil
}

func (r *memRuleRepo) FindByID(_ context.Context, id string) (*model.AlertRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rule := range r.rules {
		if rule.ID == id {
			clone := *rule
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memRuleRepo) FindByMetricName(_ context.Context, metricName string, enabledOnly bool) ([]*model.AlertRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.AlertRule
	for _, rule := range r.rules {
		if rule.MetricName != metricName {
			continue
		}
		if enabledOnly && !rule.Enabled {
			continue
		}
		clone := *rule
		out = append(out, &clone)
	}
	return out, nil
}

func (r *memRuleRepo) FindAll(_ context.Context, enabledOnly bool) ([]*model.AlertRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.AlertRule
	for _, rule := range r.rules {
		if enabledOnly && !rule.Enabled {
			continue
		}
		clone := *rule
		out = append(out, &clone)
	}
	return out, nil
}

func (r *memRuleRepo) Update(_ context.Context, rule *model.AlertRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.rules {
		if existing.ID == rule.ID {
			clone := *rule
			r.rules[i] = &clone
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *memRuleRepo) SetEnabled(_ context.Context, id string, enabled bool) (*model.AlertRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rule := range r.rules {
		if rule.ID == id {
			rule.Enabled = enabled
			rule.UpdatedAt = time.Now()
			clone := *rule
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memRuleRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, rule := range r.rules {
		if rule.ID == id {
			r.rules = append(r.rules[:i], r.rules[i+1:]...)
			return nil
		}
	}
	return nil
}

type memAlertRepo struct {
	mu      sync.Mutex
	alerts  []*model.Alert
	saveErr error
}

func (r *memAlertRepo) Save(_ context.Context, alert *model.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	clone := *alert
	r.alerts = append(r.alerts, &clone)
	return nil
}

func (r *memAlertRepo) FindByID(_ context.Context, id string) (*model.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, alert := range r.alerts {
		if alert.ID == id {
			clone := *alert
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memAlertRepo) FindActive(_ context.Context) ([]*model.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Alert
	for _, alert := range r.alerts {
		if alert.ResolvedAt == nil {
			clone := *alert
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

func (r *memAlertRepo) FindAll(_ context.Context, limit int) ([]*model.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Alert, 0, len(r.alerts))
	for _, alert := range r.alerts {
		clone := *alert
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memAlertRepo) Update(_ context.Context, alert *model.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.alerts {
		if existing.ID == alert.ID {
			clone := *alert
			r.alerts[i] = &clone
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *memAlertRepo) Delete(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, alert := range r.alerts {
		if alert.ID == id {
			r.alerts = append(r.alerts[:i], r.alerts[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (r *memAlertRepo) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kept []*model.Alert
	var purged int64
	for _, alert := range r.alerts {
		if alert.Timestamp.Before(cutoff) {
			purged++
			continue
		}
		kept = append(kept, alert)
	}
	r.alerts = kept
	return purged, nil
}

type memHealthRepo struct {
	mu     sync.Mutex
	latest map[string]*model.HealthSnapshot
}

func newMemHealthRepo() *memHealthRepo {
	return &memHealthRepo{latest: make(map[string]*model.HealthSnapshot)}
}

func (r *memHealthRepo) Save(_ context.Context, snapshot *model.HealthSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *snapshot
	r.latest[snapshot.ServiceID] = &clone
	return nil
}

func (r *memHealthRepo) FindLatest(_ context.Context, serviceID string) (*model.HealthSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	snapshot, ok := r.latest[serviceID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *snapshot
	return &clone, nil
}

func (r *memHealthRepo) FindAllLatest(_ context.Context) ([]*model.HealthSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.HealthSnapshot, 0, len(r.latest))
	for _, snapshot := range r.latest {
		clone := *snapshot
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ServiceID < out[j].ServiceID })
	return out, nil
}

type capturedPublisher struct {
	mu     sync.Mutex
	events []*events.Event
}

func (p *capturedPublisher) Publish(_ context.Context, event *events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturedPublisher) byType(eventType string) []*events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []*events.Event
	for _, event := range p.events {
		if event.EventType == eventType {
			out = append(out, event)
		}
	}
	return out
}
