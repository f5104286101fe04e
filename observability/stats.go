package observability

import (
	"context"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/samber/lo"
	"github.com/shirou/gopsutil/v3/process"
	otelruntime "go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var (
	once sync.Once
)

const AppStatsName = "xdispatch/app"

type appStats struct {
	ctx              context.Context
	shutdownCallback func(ctx context.Context) error
	proc             *process.Process
	goroutines       metric.Int64ObservableUpDownCounter
	processes        metric.Int64ObservableUpDownCounter
	rss              metric.Int64ObservableGauge
}

func (stats *appStats) waitForShutdown() {
	if stats == nil || stats.shutdownCallback == nil {
		return
	}
	go func() {
		<-stats.ctx.Done()
		_ = stats.shutdownCallback(context.Background())
	}()
}

// InitAppStats registers the process level instruments once. The
// resident memory makes the growth of the unbounded queue observable.
// The shutdown callback, if any, runs when ctx is done.
func InitAppStats(ctx context.Context, name string, shutdown func(ctx context.Context) error) {
	once.Do(func() {
		builder := &strings.Builder{}
		builder.WriteString(AppStatsName)
		builder.WriteString("/")
		if len(strings.TrimSpace(name)) > 0 {
			builder.WriteString(name)
		} else {
			builder.WriteString("default")
		}
		meter := otel.Meter(
			builder.String(),
			metric.WithInstrumentationVersion(otelruntime.Version()),
		)
		proc, err := process.NewProcessWithContext(ctx, int32(os.Getpid()))
		if err != nil {
			proc = nil
		}
		stats := &appStats{
			ctx:              ctx,
			shutdownCallback: shutdown,
			proc:             proc,
			goroutines: lo.Must[metric.Int64ObservableUpDownCounter](meter.Int64ObservableUpDownCounter(
				"app.core.goroutines",
				metric.WithDescription(`The application goroutines' info.`),
				metric.WithInt64Callback(func(ctx context.Context, ob metric.Int64Observer) error {
					ob.Observe(int64(runtime.NumGoroutine()))
					return nil
				}),
			)),
			processes: lo.Must[metric.Int64ObservableUpDownCounter](meter.Int64ObservableUpDownCounter(
				"app.core.processes",
				metric.WithDescription(`The application processes' info.`),
				metric.WithInt64Callback(func(ctx context.Context, ob metric.Int64Observer) error {
					ob.Observe(int64(runtime.GOMAXPROCS(0)))
					return nil
				}),
			)),
		}
		stats.rss = lo.Must[metric.Int64ObservableGauge](meter.Int64ObservableGauge(
			"app.process.memory.rss",
			metric.WithDescription("The resident set size of the process."),
			metric.WithUnit("By"),
			metric.WithInt64Callback(func(ctx context.Context, ob metric.Int64Observer) error {
				if stats.proc == nil {
					return nil
				}
				mem, err := stats.proc.MemoryInfoWithContext(ctx)
				if err != nil {
					return err
				}
				ob.Observe(int64(mem.RSS))
				return nil
			}),
		))
		_ = otelruntime.Start()
		stats.waitForShutdown()
	})
}
