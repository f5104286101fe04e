package observability

// https://opentelemetry.io/docs/languages/go/exporters/

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/sdk/metric"

	"github.com/benz9527/xdispatch/lib/infra"
)

type MetricsExporterType string

const (
	PrometheusExporter MetricsExporterType = "prometheus"
	StdOutExporter     MetricsExporterType = "stdout"
	NoopExporter       MetricsExporterType = "none"
)

func ParseMetricsExporterType(typ string) (MetricsExporterType, error) {
	switch t := MetricsExporterType(strings.ToLower(strings.TrimSpace(typ))); t {
	case PrometheusExporter, StdOutExporter, NoopExporter:
		return t, nil
	case "":
		return PrometheusExporter, nil
	}
	return "", infra.NewErrorStack("unknown metrics exporter " + typ)
}

// InitMetricsExporter sets the global meter provider. The returned
// callback flushes and shuts it down.
func InitMetricsExporter(typ MetricsExporterType, interval time.Duration) (func(ctx context.Context) error, error) {
	switch typ {
	case StdOutExporter:
		return newConsoleMetricsExporter(interval, interval)
	case NoopExporter:
		return func(context.Context) error { return nil }, nil
	default:
		return newPrometheusMetricsExporter()
	}
}

// Serves for test/dev environment.
func newConsoleMetricsExporter(interval, timeout time.Duration, opts ...stdoutmetric.Option) (func(ctx context.Context) error, error) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if timeout <= 0 || timeout > interval {
		timeout = interval
	}
	exporter, err := stdoutmetric.New(opts...)
	if err != nil {
		return nil, infra.WrapErrorStack(err)
	}
	mp := metric.NewMeterProvider(metric.WithReader(metric.NewPeriodicReader(
		exporter,
		metric.WithInterval(interval),
		metric.WithTimeout(timeout),
	)))
	callback := mp.Shutdown
	otel.SetMeterProvider(mp)
	return callback, nil
}

// Serves for the product environment, the metrics are fetched by the
// /metrics endpoint from the default prometheus registry.
func newPrometheusMetricsExporter() (func(ctx context.Context) error, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, infra.WrapErrorStack(err)
	}
	mp := metric.NewMeterProvider(metric.WithReader(exporter))
	callback := mp.Shutdown
	otel.SetMeterProvider(mp)
	return callback, nil
}
