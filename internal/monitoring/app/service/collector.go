package service

import (
	"context"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/pulsewatch/pulsewatch/internal/monitoring/domain/model"
	"github.com/pulsewatch/pulsewatch/internal/platform/logger"
)

// Collector samples host-level metrics on an interval and feeds them
// through the regular recording pipeline, so alert rules apply to the
// monitor's own host like any other service.
type Collector struct {
	metrics   *MetricService
	serviceID string
	interval  time.Duration
	logger    logger.Logger
	done      chan struct{}
}

// NewCollector creates a host metric collector
func NewCollector(metrics *MetricService, serviceID string, interval time.Duration, logger logger.Logger) *Collector {
	return &Collector{
		metrics:   metrics,
		serviceID: serviceID,
		interval:  interval,
		logger:    logger,
		done:      make(chan struct{}),
	}
}

// Start begins sampling until Stop is called or the context is cancelled
func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
}

// Stop stops the sampling loop
func (c *Collector) Stop() {
	close(c.done)
}

func (c *Collector) run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.collect(ctx)

	for {
		select {
		case <-ticker.C:
			c.collect(ctx)
		case <-c.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (c *Collector) collect(ctx context.Context) {
	if percentages, err := cpu.PercentWithContext(ctx, 0, false); err != nil {
		c.logger.Warn("Failed to sample CPU usage", "error", err)
	} else if len(percentages) > 0 {
		c.record(ctx, "cpu_usage", percentages[0], "%")
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err != nil {
		c.logger.Warn("Failed to sample memory usage", "error", err)
	} else {
		c.record(ctx, "memory_usage", vm.UsedPercent, "%")
	}

	if usage, err := disk.UsageWithContext(ctx, "/"); err != nil {
		c.logger.Warn("Failed to sample disk usage", "error", err)
	} else {
		c.record(ctx, "disk_usage", usage.UsedPercent, "%")
	}

	c.record(ctx, "goroutines", float64(runtime.NumGoroutine()), "")
}

func (c *Collector) record(ctx context.Context, name string, value float64, unit string) {
	metric := model.NewMetric(name, model.MetricKindGauge, value, unit, c.serviceID)
	if _, err := c.metrics.RecordMetric(ctx, metric); err != nil {
		c.logger.Warn("Failed to record host metric", "metric", name, "error", err)
	}
}
