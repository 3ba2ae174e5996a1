package detect

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "drone-city-sim/internal/detect"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

type detectMetrics struct {
	submitted  metric.Int64Counter
	rejected   metric.Int64Counter
	detections metric.Int64Counter
	errors     metric.Int64Counter
}

func newDetectMetrics() (*detectMetrics, error) {
	m := meter()
	var (
		dm  detectMetrics
		err error
	)

	dm.submitted, err = m.Int64Counter(
		"detect.frames.submitted",
		metric.WithDescription("Frames handed to the detector"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating submitted counter: %w", err)
	}

	dm.rejected, err = m.Int64Counter(
		"detect.frames.rejected",
		metric.WithDescription("Frames refused by the throttle or an in-flight call"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating rejected counter: %w", err)
	}

	dm.detections, err = m.Int64Counter(
		"detect.detections",
		metric.WithDescription("Detections returned"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating detections counter: %w", err)
	}

	dm.errors, err = m.Int64Counter(
		"detect.errors",
		metric.WithDescription("Failed detect calls"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating errors counter: %w", err)
	}

	return &dm, nil
}

func (m *detectMetrics) add(c metric.Int64Counter, n int) {
	c.Add(context.Background(), int64(n))
}
