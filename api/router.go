package api

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/benz9527/xdispatch/dispatch"
	"github.com/benz9527/xdispatch/lib/id"
	"github.com/benz9527/xdispatch/lib/infra"
	"github.com/benz9527/xdispatch/xlog"
)

const requestIDPrefixLen = 8

type RouterConfig struct {
	Gateway *dispatch.Gateway
	Logger  xlog.XLogger
	Metrics *Metrics
	// MetricsHandler serves /metrics, the route is skipped if nil.
	MetricsHandler http.Handler
}

// NewRouter wires the routes and wraps them, outermost first, with
// recovery, request id, logging and metrics.
func NewRouter(cfg RouterConfig) (http.Handler, error) {
	if cfg.Gateway == nil || cfg.Logger == nil {
		return nil, infra.NewErrorStack("[api] router requires a gateway and a logger")
	}
	reqIDGen, err := id.PrefixedMonotonicID(requestIDPrefixLen)
	if err != nil {
		return nil, infra.WrapErrorStack(err)
	}
	logger := cfg.Logger.Named("HTTP")
	h := NewHandler(cfg.Gateway, logger)

	router := httprouter.New()
	router.POST("/api/messages", h.PublishRing)
	router.POST("/api/messages/queue", h.PublishQueue)
	router.GET("/livez", h.Livez)
	router.GET("/readyz", h.Readyz)
	if cfg.MetricsHandler != nil {
		router.Handler(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	return Chain(router,
		RecoveryMiddleware(logger),
		RequestIDMiddleware(reqIDGen),
		LoggingMiddleware(logger),
		MetricsMiddleware(cfg.Metrics),
	), nil
}

// PrometheusHandler serves the default registry the otel prometheus
// exporter registers with.
func PrometheusHandler() http.Handler {
	return promhttp.Handler()
}
