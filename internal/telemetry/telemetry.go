// Package telemetry wires the engine's per-tick counters into
// OpenTelemetry, grounded on the teacher's internal/dispatcher (an
// Int64Counter/Int64ObservableGauge pair registered against a named meter)
// and internal/otel.Provider (resource + meter provider wiring).
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/vistacore/tm-core/internal/engine"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// Metrics bundles the instruments the Tick Engine reports to on every tick.
type Metrics struct {
	tickDuration   metric.Float64Histogram
	vehicleCount   metric.Int64Histogram
	hazardCount    metric.Int64Counter
	emergencyStops metric.Int64Counter
	activeLocks    metric.Int64Gauge
}

// New builds the tick instrument set against the global meter provider.
// Errors from instrument creation are swallowed, matching the teacher's
// posture that telemetry wiring must never block the hot path it observes.
func New() *Metrics {
	m := meter()

	tickDuration, _ := m.Float64Histogram(
		"tm_core.tick.duration",
		metric.WithDescription("wall-clock duration of one engine tick"),
		metric.WithUnit("s"),
	)
	vehicleCount, _ := m.Int64Histogram(
		"tm_core.tick.vehicle_count",
		metric.WithDescription("number of vehicle indices evaluated in a tick"),
	)
	hazardCount, _ := m.Int64Counter(
		"tm_core.tick.hazard_count",
		metric.WithDescription("collision hazards asserted, cumulative across ticks"),
	)
	emergencyStops, _ := m.Int64Counter(
		"tm_core.tick.emergency_stop_count",
		metric.WithDescription("emergency stops issued, cumulative across ticks"),
	)
	activeLocks, _ := m.Int64Gauge(
		"tm_core.locks.active",
		metric.WithDescription("collision locks held at the end of the most recent tick"),
	)

	return &Metrics{
		tickDuration:   tickDuration,
		vehicleCount:   vehicleCount,
		hazardCount:    hazardCount,
		emergencyStops: emergencyStops,
		activeLocks:    activeLocks,
	}
}

// RecordTick reports the outcome of one completed tick.
func (m *Metrics) RecordTick(duration interface{ Seconds() float64 }, vehicleCount, hazards, emergencyStops, activeLocks int) {
	ctx := context.Background()
	if m.tickDuration != nil {
		m.tickDuration.Record(ctx, duration.Seconds())
	}
	if m.vehicleCount != nil {
		m.vehicleCount.Record(ctx, int64(vehicleCount))
	}
	if m.hazardCount != nil {
		m.hazardCount.Add(ctx, int64(hazards))
	}
	if m.emergencyStops != nil {
		m.emergencyStops.Add(ctx, int64(emergencyStops))
	}
	if m.activeLocks != nil {
		m.activeLocks.Record(ctx, int64(activeLocks))
	}
}
