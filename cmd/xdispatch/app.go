package main

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/benz9527/xdispatch/api"
	"github.com/benz9527/xdispatch/config"
	"github.com/benz9527/xdispatch/dispatch"
	"github.com/benz9527/xdispatch/lib/ipc"
	"github.com/benz9527/xdispatch/lib/runtime"
	"github.com/benz9527/xdispatch/observability"
	"github.com/benz9527/xdispatch/xlog"
)

const serviceName = "xdispatch"

type xdispatchBanner struct{}

func (xdispatchBanner) JSON() string {
	return `{"service":"` + serviceName + `"}`
}

func (xdispatchBanner) PlainText() string {
	return `
 __  __   ___    ____ ___  ____   ____   __    ____ _   _
 \ \/ /  |   \  |_ _|/ __||  _ \ / _  \|_ _|/ ___| | | |
  >  <   | |) |  | | \__ \|  __// /_\ \ | | | |   | |_| |
 /_/\_\  |___/  |___||___/|_|  /_/   \_\|_| |_|___|_| |_|
`
}

// configPath is empty when the service runs on the defaults and env only.
type configPath string

func newLogger(cfg *config.Config) (xlog.XLogger, error) {
	lvl, err := config.ParseLogLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	enc, err := config.ParseLogEncoder(cfg.Log.Encoder)
	if err != nil {
		return nil, err
	}
	return xlog.NewXLogger(
		xlog.WithXLoggerStdOutWriter(),
		xlog.WithXLoggerLevel(lvl),
		xlog.WithXLoggerEncoder(enc),
		xlog.WithXLoggerContextFieldExtract(string(api.RequestIDKey), xlog.ContextKeyMapToOmitempty),
	), nil
}

type metricsOut struct {
	fx.Out
	Stats          *dispatch.Stats
	HTTPMetrics    *api.Metrics
	MetricsHandler http.Handler `name:"metricsHandler"`
}

func newMetrics(lc fx.Lifecycle, cfg *config.Config) (metricsOut, error) {
	typ, err := observability.ParseMetricsExporterType(cfg.Metrics.Exporter)
	if err != nil {
		return metricsOut{}, err
	}
	shutdown, err := observability.InitMetricsExporter(typ, cfg.Metrics.Interval)
	if err != nil {
		return metricsOut{}, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	observability.InitAppStats(ctx, serviceName, nil)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			cancel()
			return shutdown(ctx)
		},
	})
	out := metricsOut{
		Stats:       dispatch.NewStats(otel.GetMeterProvider()),
		HTTPMetrics: api.NewMetrics(otel.GetMeterProvider()),
	}
	if typ == observability.PrometheusExporter {
		out.MetricsHandler = api.PrometheusHandler()
	}
	return out, nil
}

func newGateway(lc fx.Lifecycle, cfg *config.Config, logger xlog.XLogger, stats *dispatch.Stats) (*dispatch.Gateway, error) {
	opts := []dispatch.Option{
		dispatch.WithLogger(logger),
		dispatch.WithStats(stats),
		dispatch.WithProcessingDelay(cfg.Handler.Delay),
	}
	handler := dispatch.NewHandler(opts...)
	ring, err := dispatch.NewRingDispatcher(cfg.Ring.Capacity, handler, opts...)
	if err != nil {
		return nil, err
	}
	gw, err := dispatch.NewGateway(ring, dispatch.NewQueueDispatcher(handler, opts...), opts...)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			return gw.Start()
		},
		OnStop: func(ctx context.Context) error {
			return gw.Shutdown(ctx)
		},
	})
	return gw, nil
}

type routerIn struct {
	fx.In
	Gateway        *dispatch.Gateway
	Logger         xlog.XLogger
	Metrics        *api.Metrics
	MetricsHandler http.Handler `name:"metricsHandler" optional:"true"`
}

func newRouter(in routerIn) (http.Handler, error) {
	return api.NewRouter(api.RouterConfig{
		Gateway:        in.Gateway,
		Logger:         in.Logger,
		Metrics:        in.Metrics,
		MetricsHandler: in.MetricsHandler,
	})
}

// The server is registered after the gateway, so fx stops it first and
// the in flight requests are answered before the dispatchers drain.
func newServer(lc fx.Lifecycle, cfg *config.Config, handler http.Handler, logger xlog.XLogger) *api.Server {
	srv := api.NewServer(cfg.HTTP.Addr, handler, logger.Named("HTTP"))
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			return srv.Start()
		},
		OnStop: srv.Shutdown,
	})
	return srv
}

func logStartup(cfg *config.Config, logger xlog.XLogger) {
	logger.Banner(xdispatchBanner{})
	env := runtime.DetectEnvironment()
	logger.Info("runtime environment",
		zap.Bool("docker", env.Docker),
		zap.Bool("kubernetes", env.Kubernetes),
		zap.String("containerId", env.ContainerID),
		zap.Int("numCPU", env.NumCPU),
		zap.Int("goMaxProcs", env.GoMaxProcs),
		zap.String("goVersion", env.GoVersion),
	)
	logger.Info("dispatch config",
		zap.String("addr", cfg.HTTP.Addr),
		zap.Uint64("ringCapacity", cfg.Ring.Capacity),
		zap.Duration("handlerDelay", cfg.Handler.Delay),
		zap.String("metricsExporter", cfg.Metrics.Exporter),
	)
}

// watchConfig hot-reloads the log level while the service runs.
func watchConfig(lc fx.Lifecycle, path configPath, logger xlog.XLogger) {
	if len(path) == 0 {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			reloadC, err := config.Watch(ctx, string(path), logger)
			if err != nil {
				return err
			}
			go applyReloads(reloadC, logger)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}

func applyReloads(reloadC ipc.ReadOnlyChannel[*config.Config], logger xlog.XLogger) {
	for cfg := range reloadC.Wait() {
		if err := config.ApplyLogLevel(logger, cfg); err != nil {
			logger.ErrorStack(err, "log level not applied")
			continue
		}
		logger.Info("log level changed", zap.String("level", logger.Level()))
	}
}

func newServeApp(cfg *config.Config, path configPath, extra ...fx.Option) *fx.App {
	opts := []fx.Option{
		fx.Supply(cfg, path),
		fx.Provide(
			newLogger,
			newMetrics,
			newGateway,
			newRouter,
			newServer,
		),
		fx.WithLogger(func(logger xlog.XLogger) fxevent.Logger {
			return xlog.NewFxXLogger(logger)
		}),
		fx.Invoke(
			logStartup,
			watchConfig,
			func(*api.Server) {},
		),
		fx.StartTimeout(cfg.Shutdown.Timeout),
		fx.StopTimeout(cfg.Shutdown.Timeout),
	}
	return fx.New(append(opts, extra...)...)
}
