package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsewatch/pulsewatch/internal/monitoring/domain/model"
	"github.com/pulsewatch/pulsewatch/internal/platform/logger"
)

func TestPerformMaintenancePurgesOldRecords(t *testing.T) {
	metricStore := &memMetricRepo{}
	alertStore := &memAlertRepo{}
	svc := NewMaintenanceService(metricStore, alertStore, 30, 90, nil, logger.NewNop())
	ctx := context.Background()

	now := time.Now()

	oldMetric := model.NewMetric("cpu_usage", model.MetricKindGauge, 50, "%", "web-1")
	oldMetric.Timestamp = now.AddDate(0, 0, -31)
	require.NoError(t, metricStore.Save(ctx, oldMetric))

	freshMetric := model.NewMetric("cpu_usage", model.MetricKindGauge, 50, "%", "web-1")
	freshMetric.Timestamp = now.AddDate(0, 0, -29)
	require.NoError(t, metricStore.Save(ctx, freshMetric))

	rule := model.NewAlertRule("r", "cpu_usage", model.OperatorGT, 90, model.AlertLevelWarning, "*")
	oldAlert := model.NewAlert(rule, oldMetric, "m")
	oldAlert.Timestamp = now.AddDate(0, 0, -91)
	require.NoError(t, alertStore.Save(ctx, oldAlert))

	freshAlert := model.NewAlert(rule, freshMetric, "m")
	require.NoError(t, alertStore.Save(ctx, freshAlert))

	result, err := svc.PerformMaintenance(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.MetricsPurged)
	assert.Equal(t, int64(1), result.AlertsPurged)
	assert.Equal(t, int64(2), result.Total)

	assert.Len(t, metricStore.points, 1)
	assert.Len(t, alertStore.alerts, 1)
}

func TestPerformMaintenanceNothingToPurge(t *testing.T) {
	svc := NewMaintenanceService(&memMetricRepo{}, &memAlertRepo{}, 30, 90, nil, logger.NewNop())

	result, err := svc.PerformMaintenance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.Total)
	assert.False(t, result.RanAt.IsZero())
}
