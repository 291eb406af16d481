package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "webviewer"

// Metrics holds the viewer's metric instruments.
type Metrics struct {
	Reloads        metric.Int64Counter
	ReloadFailures metric.Int64Counter
	ReloadDuration metric.Float64Histogram
	Broadcasts     metric.Int64Counter
	Connections    metric.Int64UpDownCounter
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.Reloads, err = meter.Int64Counter("webviewer.task.reloads",
		metric.WithDescription("Number of successful task document reloads"))
	if err != nil {
		return nil, err
	}

	m.ReloadFailures, err = meter.Int64Counter("webviewer.task.reload_failures",
		metric.WithDescription("Number of failed task document reloads"))
	if err != nil {
		return nil, err
	}

	m.ReloadDuration, err = meter.Float64Histogram("webviewer.task.reload_duration_seconds",
		metric.WithDescription("Task document reload duration in seconds"))
	if err != nil {
		return nil, err
	}

	m.Broadcasts, err = meter.Int64Counter("webviewer.ws.broadcasts",
		metric.WithDescription("Number of WebSocket broadcasts sent"))
	if err != nil {
		return nil, err
	}

	m.Connections, err = meter.Int64UpDownCounter("webviewer.ws.connections",
		metric.WithDescription("Number of live WebSocket connections"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// ReloadSucceeded records one successful reload with its duration.
func (m *Metrics) ReloadSucceeded(ctx context.Context, d time.Duration) {
	m.Reloads.Add(ctx, 1)
	m.ReloadDuration.Record(ctx, d.Seconds())
}

// ReloadFailed records one failed reload.
func (m *Metrics) ReloadFailed(ctx context.Context) {
	m.ReloadFailures.Add(ctx, 1)
}
