package sim

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "drone-city-sim/internal/sim"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// simMetrics uses the global OTel meter (no-op if no provider is installed).
type simMetrics struct {
	ticks   metric.Int64Counter
	resets  metric.Int64Counter
	actions metric.Int64Counter
	battery metric.Float64Gauge
}

func newSimMetrics() (*simMetrics, error) {
	m := meter()
	var (
		sm  simMetrics
		err error
	)

	sm.ticks, err = m.Int64Counter(
		"sim.ticks",
		metric.WithDescription("Simulation ticks executed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating ticks counter: %w", err)
	}

	sm.resets, err = m.Int64Counter(
		"sim.resets",
		metric.WithDescription("Drone resets"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating resets counter: %w", err)
	}

	sm.actions, err = m.Int64Counter(
		"sim.actions",
		metric.WithDescription("Discrete input actions dispatched"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating actions counter: %w", err)
	}

	sm.battery, err = m.Float64Gauge(
		"sim.battery.level",
		metric.WithDescription("Battery level in percent"),
		metric.WithUnit("%"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating battery gauge: %w", err)
	}

	return &sm, nil
}

func (m *simMetrics) action(kind ActionKind) {
	m.actions.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("kind", kind.String())))
}
