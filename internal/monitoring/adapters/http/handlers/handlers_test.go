package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsewatch/pulsewatch/internal/monitoring/app/service"
	"github.com/pulsewatch/pulsewatch/internal/monitoring/domain/model"
	"github.com/pulsewatch/pulsewatch/internal/monitoring/domain/repository"
	"github.com/pulsewatch/pulsewatch/internal/platform/logger"
	"github.com/pulsewatch/pulsewatch/internal/platform/response"
)

// Minimal in-memory repositories backing the handler tests.

type stubMetricRepo struct {
	mu     sync.Mutex
	points []*model.Metric
}

func (r *stubMetricRepo) Save(_ context.Context, m *model.Metric) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.points = append(r.points, m)
	return nil
}

func (r *stubMetricRepo) FindLatest(_ context.Context, name, serviceID string) (*model.Metric, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.points) - 1; i >= 0; i-- {
		if r.points[i].Name == name && r.points[i].ServiceID == serviceID {
			return r.points[i], nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *stubMetricRepo) FindLatestByService(_ context.Context, serviceID string) ([]*model.Metric, error) {
	return nil, nil
}

func (r *stubMetricRepo) FindAllLatest(_ context.Context) (map[string][]*model.Metric, error) {
	return map[string][]*model.Metric{}, nil
}

func (r *stubMetricRepo) FindRange(_ context.Context, name, serviceID string, start, end time.Time, limit int) ([]*model.Metric, error) {
	return nil, nil
}

func (r *stubMetricRepo) Aggregate(_ context.Context, name, serviceID string, start, end time.Time) (*model.Statistics, error) {
	return &model.Statistics{}, nil
}

func (r *stubMetricRepo) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

type stubRuleRepo struct {
	mu    sync.Mutex
	rules map[string]*model.AlertRule
}

func newStubRuleRepo() *stubRuleRepo {
	return &stubRuleRepo{rules: make(map[string]*model.AlertRule)}
}

func (r *stubRuleRepo) Save(_ context.Context, rule *model.AlertRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules[rule.ID] = rule
	return nil
}

func (r *stubRuleRepo) FindByID(_ context.Context, id string) (*model.AlertRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rule, ok := r.rules[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return rule, nil
}

func (r *stubRuleRepo) FindByMetricName(_ context.Context, metricName string, enabledOnly bool) ([]*model.AlertRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.AlertRule
	for _, rule := range r.rules {
		if rule.MetricName == metricName && (!enabledOnly || rule.Enabled) {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (r *stubRuleRepo) FindAll(_ context.Context, enabledOnly bool) ([]*model.AlertRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.AlertRule
	for _, rule := range r.rules {
		if !enabledOnly || rule.Enabled {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (r *stubRuleRepo) Update(_ context.Context, rule *model.AlertRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rules[rule.ID]; !ok {
		return repository.ErrNotFound
	}
	r.rules[rule.ID] = rule
	return nil
}

func (r *stubRuleRepo) SetEnabled(_ context.Context, id string, enabled bool) (*model.AlertRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rule, ok := r.rules[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	rule.Enabled = enabled
	return rule, nil
}

func (r *stubRuleRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rules, id)
	return nil
}

type stubAlertRepo struct {
	mu     sync.Mutex
	alerts map[string]*model.Alert
}

func newStubAlertRepo() *stubAlertRepo {
	return &stubAlertRepo{alerts: make(map[string]*model.Alert)}
}

func (r *stubAlertRepo) Save(_ context.Context, alert *model.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts[alert.ID] = alert
	return nil
}

func (r *stubAlertRepo) FindByID(_ context.Context, id string) (*model.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	alert, ok := r.alerts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return alert, nil
}

func (r *stubAlertRepo) FindActive(_ context.Context) ([]*model.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Alert
	for _, alert := range r.alerts {
		if alert.ResolvedAt == nil {
			out = append(out, alert)
		}
	}
	return out, nil
}

func (r *stubAlertRepo) FindAll(_ context.Context, limit int) ([]*model.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Alert
	for _, alert := range r.alerts {
		out = append(out, alert)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *stubAlertRepo) Update(_ context.Context, alert *model.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.alerts[alert.ID]; !ok {
		return repository.ErrNotFound
	}
	r.alerts[alert.ID] = alert
	return nil
}

func (r *stubAlertRepo) Delete(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.alerts[id]; !ok {
		return false, nil
	}
	delete(r.alerts, id)
	return true, nil
}

func (r *stubAlertRepo) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

type testEnv struct {
	router *mux.Router
	rules  *stubRuleRepo
	alerts *stubAlertRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := logger.NewNop()
	rules := newStubRuleRepo()
	alerts := newStubAlertRepo()
	metricStore := &stubMetricRepo{}

	engine := service.NewRuleEngine(rules, alerts, nil, nil, nil, log)
	metricService := service.NewMetricService(metricStore, engine, nil, nil, log)
	alertService := service.NewAlertService(alerts, nil, log)

	router := mux.NewRouter().PathPrefix("/api/v1").Subrouter()
	NewMetricHandler(metricService, log).RegisterRoutes(router)
	NewRuleHandler(engine, log).RegisterRoutes(router)
	NewAlertHandler(alertService, log).RegisterRoutes(router)

	return &testEnv{router: router, rules: rules, alerts: alerts}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestRecordMetricEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/metrics", map[string]interface{}{
		"name":      "cpu_usage",
		"value":     95.5,
		"unit":      "%",
		"serviceId": "web-1",
	})
	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp response.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
}

func TestRecordMetricEndpointRejectsInvalid(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/metrics", map[string]interface{}{
		"value":     95.5,
		"serviceId": "web-1",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/metrics", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecordMetricBatchEndpointReportsFailures(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/metrics/batch", map[string]interface{}{
		"metrics": []map[string]interface{}{
			{"name": "cpu_usage", "value": 40.0, "serviceId": "web-1"},
			{"value": 50.0, "serviceId": "web-1"},
			{"name": "cpu_usage", "value": 60.0, "serviceId": "web-2"},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Data struct {
			Metrics  []*model.Metric `json:"metrics"`
			Recorded int             `json:"recorded"`
			Failed   int             `json:"failed"`
			Error    string          `json:"error"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Data.Recorded)
	assert.Equal(t, 1, resp.Data.Failed)
	assert.Len(t, resp.Data.Metrics, 2)
	assert.Contains(t, resp.Data.Error, "1 of 3")
}

func TestRecordMetricBatchEndpointRejectsAllInvalid(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/metrics/batch", map[string]interface{}{
		"metrics": []map[string]interface{}{
			{"value": 50.0, "serviceId": "web-1"},
			{"value": 60.0, "serviceId": "web-2"},
		},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/metrics/batch", map[string]interface{}{
		"metrics": []map[string]interface{}{},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecordMetricEndpointReturnsTriggeredAlerts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	rule := model.NewAlertRule("high-cpu", "cpu_usage", model.OperatorGT, 90, model.AlertLevelCritical, "*")
	require.NoError(t, env.rules.Save(ctx, rule))

	rec := env.do(t, http.MethodPost, "/api/v1/metrics", map[string]interface{}{
		"name":      "cpu_usage",
		"value":     95.5,
		"serviceId": "web-1",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Data struct {
			Alerts []*model.Alert `json:"alerts"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data.Alerts, 1)
	assert.Equal(t, "high-cpu", resp.Data.Alerts[0].RuleName)
}

func TestGetLatestMetricNotFoundEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/metrics/ghost/cpu_usage/latest", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricHistoryRejectsBadParams(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/metrics/web-1/cpu_usage/history?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/metrics/web-1/cpu_usage/history?start=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRuleCRUDEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/rules", map[string]interface{}{
		"name":           "high-cpu",
		"metricName":     "cpu_usage",
		"operator":       "gt",
		"threshold":      90,
		"level":          "critical",
		"servicePattern": "web-*",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		Data model.AlertRule `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.Data.ID)

	rec = env.do(t, http.MethodGet, "/api/v1/rules/"+created.Data.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/rules/"+created.Data.ID+"/disable", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/v1/rules/"+created.Data.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// Deleting again stays a no-op.
	rec = env.do(t, http.MethodDelete, "/api/v1/rules/"+created.Data.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRuleEndpointValidation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/rules", map[string]interface{}{
		"name":           "bad",
		"metricName":     "cpu_usage",
		"operator":       "between",
		"threshold":      90,
		"level":          "critical",
		"servicePattern": "*",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/rules/no-such-id/enable", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAlertLifecycleEndpoints(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	rule := model.NewAlertRule("high-cpu", "cpu_usage", model.OperatorGT, 90, model.AlertLevelCritical, "*")
	metric := model.NewMetric("cpu_usage", model.MetricKindGauge, 95, "%", "web-1")
	alert := model.NewAlert(rule, metric, "cpu high")
	require.NoError(t, env.alerts.Save(ctx, alert))

	rec := env.do(t, http.MethodPost, "/api/v1/alerts/"+alert.ID+"/acknowledge", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/alerts/"+alert.ID+"/resolve", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/alerts/active", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/v1/alerts/"+alert.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/v1/alerts/"+alert.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/alerts/ghost/acknowledge", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
