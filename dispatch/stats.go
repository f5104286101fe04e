package dispatch

import (
	"context"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/benz9527/xdispatch/lib/kv"
)

const StatsName = "xdispatch/dispatch"

var routeKey = attribute.Key("route")

// Stats holds the dispatch instruments. A nil *Stats records nothing.
type Stats struct {
	published     metric.Int64Counter
	publishFailed metric.Int64Counter
	processed     metric.Int64Counter
	faults        metric.Int64Counter
	latency       metric.Int64Histogram
	backlog       metric.Int64ObservableGauge
	backlogFns    kv.ThreadSafeStorer[Route, func() int64]
}

// NewStats registers the instruments on the provider, the global one if nil.
func NewStats(provider metric.MeterProvider) *Stats {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter(StatsName)
	stats := &Stats{
		backlogFns: kv.NewThreadSafeMap[Route, func() int64](
			kv.WithThreadSafeMapInitCap[Route, func() int64](uint32(_routeMax)),
		),
		published: lo.Must[metric.Int64Counter](meter.Int64Counter(
			"dispatch.messages.published",
			metric.WithDescription("The messages accepted by a dispatcher."),
		)),
		publishFailed: lo.Must[metric.Int64Counter](meter.Int64Counter(
			"dispatch.messages.publish_failed",
			metric.WithDescription("The messages rejected by a dispatcher."),
		)),
		processed: lo.Must[metric.Int64Counter](meter.Int64Counter(
			"dispatch.messages.processed",
			metric.WithDescription("The messages handled by a consumer."),
		)),
		faults: lo.Must[metric.Int64Counter](meter.Int64Counter(
			"dispatch.handler.faults",
			metric.WithDescription("The handler errors and panics."),
		)),
		latency: lo.Must[metric.Int64Histogram](meter.Int64Histogram(
			"dispatch.messages.latency",
			metric.WithDescription("From acceptance to the end of processing."),
			metric.WithUnit("ms"),
		)),
	}
	stats.backlog = lo.Must[metric.Int64ObservableGauge](meter.Int64ObservableGauge(
		"dispatch.backlog",
		metric.WithDescription("The messages accepted and not processed yet."),
		metric.WithInt64Callback(func(ctx context.Context, ob metric.Int64Observer) error {
			for _, route := range stats.backlogFns.ListKeys() {
				if fn, ok := stats.backlogFns.Get(route); ok {
					ob.Observe(fn(), metric.WithAttributes(routeKey.String(route.String())))
				}
			}
			return nil
		}),
	))
	return stats
}

func (s *Stats) observeBacklog(route Route, fn func() int64) {
	if s == nil {
		return
	}
	_ = s.backlogFns.AddOrUpdate(route, fn)
}

func (s *Stats) recordPublished(route Route) {
	if s == nil {
		return
	}
	s.published.Add(context.Background(), 1, metric.WithAttributes(routeKey.String(route.String())))
}

func (s *Stats) recordPublishFailed(route Route) {
	if s == nil {
		return
	}
	s.publishFailed.Add(context.Background(), 1, metric.WithAttributes(routeKey.String(route.String())))
}

func (s *Stats) recordProcessed(route Route, latencyMs int64) {
	if s == nil {
		return
	}
	attrs := metric.WithAttributes(routeKey.String(route.String()))
	s.processed.Add(context.Background(), 1, attrs)
	s.latency.Record(context.Background(), latencyMs, attrs)
}

func (s *Stats) recordFault(route Route) {
	if s == nil {
		return
	}
	s.faults.Add(context.Background(), 1, metric.WithAttributes(routeKey.String(route.String())))
}
