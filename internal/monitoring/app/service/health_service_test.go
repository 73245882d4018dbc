package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsewatch/pulsewatch/internal/monitoring/domain/model"
	"github.com/pulsewatch/pulsewatch/internal/monitoring/domain/repository"
	"github.com/pulsewatch/pulsewatch/internal/platform/logger"
)

func TestUpdateHealthStatusLastWriteWins(t *testing.T) {
	store := newMemHealthRepo()
	svc := NewHealthService(store, nil, nil, logger.NewNop())
	ctx := context.Background()

	_, err := svc.UpdateHealthStatus(ctx, &model.HealthSnapshot{ServiceID: "web-1", Status: model.HealthStatusUp})
	require.NoError(t, err)

	_, err = svc.UpdateHealthStatus(ctx, &model.HealthSnapshot{ServiceID: "web-1", Status: model.HealthStatusDegraded})
	require.NoError(t, err)

	latest, err := svc.GetHealthStatus(ctx, "web-1")
	require.NoError(t, err)
	assert.Equal(t, model.HealthStatusDegraded, latest.Status)
	assert.False(t, latest.Timestamp.IsZero())
}

func TestUpdateHealthStatusPublishesTransitions(t *testing.T) {
	store := newMemHealthRepo()
	publisher := &capturedPublisher{}
	svc := NewHealthService(store, publisher, nil, logger.NewNop())
	ctx := context.Background()

	// First report is a transition from unknown.
	_, err := svc.UpdateHealthStatus(ctx, &model.HealthSnapshot{ServiceID: "web-1", Status: model.HealthStatusUp})
	require.NoError(t, err)
	require.Len(t, publisher.byType("health.changed"), 1)

	// Same status again is not a transition.
	_, err = svc.UpdateHealthStatus(ctx, &model.HealthSnapshot{ServiceID: "web-1", Status: model.HealthStatusUp})
	require.NoError(t, err)
	assert.Len(t, publisher.byType("health.changed"), 1)

	_, err = svc.UpdateHealthStatus(ctx, &model.HealthSnapshot{ServiceID: "web-1", Status: model.HealthStatusDown})
	require.NoError(t, err)
	assert.Len(t, publisher.byType("health.changed"), 2)
}

func TestUpdateHealthStatusRejectsUnknownStatus(t *testing.T) {
	svc := NewHealthService(newMemHealthRepo(), nil, nil, logger.NewNop())

	_, err := svc.UpdateHealthStatus(context.Background(), &model.HealthSnapshot{ServiceID: "web-1", Status: "sideways"})
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "status", verr.Field)
}

func TestGetHealthStatusUnknownService(t *testing.T) {
	svc := NewHealthService(newMemHealthRepo(), nil, nil, logger.NewNop())

	_, err := svc.GetHealthStatus(context.Background(), "ghost")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestGetAllHealthStatus(t *testing.T) {
	store := newMemHealthRepo()
	svc := NewHealthService(store, nil, nil, logger.NewNop())
	ctx := context.Background()

	for _, id := range []string{"web-1", "db-1"} {
		_, err := svc.UpdateHealthStatus(ctx, &model.HealthSnapshot{ServiceID: id, Status: model.HealthStatusUp})
		require.NoError(t, err)
	}

	all, err := svc.GetAllHealthStatus(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
