package geometry

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// Metric instruments — initialized once via InitMetrics().
var (
	opsCounter    metric.Int64Counter
	opsHistogram  metric.Float64Histogram
	errorCounter  metric.Int64Counter
	keylogLenHist metric.Int64Histogram
)

// InitMetrics registers custom OTel metric instruments for the geometry
// domain. Call this once at startup (after observability.InitMetrics).
func InitMetrics() error {
	meter := otel.Meter("geometry")

	var err error

	opsCounter, err = meter.Int64Counter("geometry.operations.total",
		metric.WithDescription("Total number of geometry pipeline runs"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return fmt.Errorf("creating ops counter: %w", err)
	}

	opsHistogram, err = meter.Float64Histogram("geometry.operation.duration",
		metric.WithDescription("Duration of geometry pipeline runs in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.5, 1, 5, 10),
	)
	if err != nil {
		return fmt.Errorf("creating ops histogram: %w", err)
	}

	errorCounter, err = meter.Int64Counter("geometry.errors.total",
		metric.WithDescription("Total number of geometry pipeline failures"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return fmt.Errorf("creating error counter: %w", err)
	}

	keylogLenHist, err = meter.Int64Histogram("geometry.keylog.tokens",
		metric.WithDescription("Number of keystroke atoms in encoded keylogs"),
		metric.WithUnit("{token}"),
		metric.WithExplicitBucketBoundaries(5, 10, 20, 40, 80, 160),
	)
	if err != nil {
		return fmt.Errorf("creating keylog histogram: %w", err)
	}

	return nil
}
