package api

import (
	"context"
	"strconv"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const MetricsName = "xdispatch/api"

// Metrics holds the HTTP golden signals. A nil *Metrics records nothing.
type Metrics struct {
	requestDuration metric.Float64Histogram
	requestsTotal   metric.Int64Counter
	errorsTotal     metric.Int64Counter
}

func NewMetrics(provider metric.MeterProvider) *Metrics {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter(MetricsName)
	return &Metrics{
		requestDuration: lo.Must[metric.Float64Histogram](meter.Float64Histogram(
			"http.server.request.duration",
			metric.WithDescription("HTTP request latency in seconds."),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5),
		)),
		requestsTotal: lo.Must[metric.Int64Counter](meter.Int64Counter(
			"http.server.requests",
			metric.WithDescription("The HTTP requests served."),
		)),
		errorsTotal: lo.Must[metric.Int64Counter](meter.Int64Counter(
			"http.server.errors",
			metric.WithDescription("The HTTP requests answered with 4xx or 5xx."),
		)),
	}
}

func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, status int, seconds float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("path", path),
		attribute.String("status", strconv.Itoa(status)),
	)
	m.requestDuration.Record(ctx, seconds, attrs)
	m.requestsTotal.Add(ctx, 1, attrs)
	if status >= 400 {
		m.errorsTotal.Add(ctx, 1, attrs)
	}
}
