package dispatch

import (
	"time"

	"go.uber.org/zap"

	"github.com/benz9527/xdispatch/lib/hrtime"
	"github.com/benz9527/xdispatch/lib/infra"
	"github.com/benz9527/xdispatch/xlog"
)

// Result describes one processed message.
type Result struct {
	Route     Route
	Payload   string
	Sequence  uint64
	LatencyMs int64
}

// Handler is the consumer side business logic shared by both
// dispatchers. It runs on a single consumer goroutine per dispatcher.
type Handler struct {
	logger      xlog.XLogger
	clock       hrtime.Clock
	stats       *Stats
	delay       time.Duration
	onProcessed func(Result)
}

func NewHandler(opts ...Option) *Handler {
	o := newDispatchOptions(opts...)
	return &Handler{
		logger:      o.logger.Named("Consumer"),
		clock:       o.clock,
		stats:       o.stats,
		delay:       o.delay,
		onProcessed: o.onProcessed,
	}
}

func (h *Handler) now() int64 {
	return h.clock.NowInUTC().UnixMilli()
}

// Handle simulates the processing and reports the latency measured
// from the acceptance stamp of the event.
func (h *Handler) Handle(route Route, seq uint64, e *Event) error {
	if e == nil {
		return infra.NewErrorStack("[dispatch] nil event")
	}
	h.logger.Debug("processing message",
		zap.String("route", route.String()),
		zap.String("message", e.Payload),
		zap.Uint64("sequence", seq),
	)
	if h.delay > 0 {
		time.Sleep(h.delay)
	}
	latency := h.now() - e.EnqueuedAtMillis
	if latency < 0 {
		latency = 0
	}
	h.logger.Info("processed message",
		zap.String("route", route.String()),
		zap.String("message", e.Payload),
		zap.Uint64("sequence", seq),
		zap.Int64("latencyMs", latency),
	)
	h.stats.recordProcessed(route, latency)
	if h.onProcessed != nil {
		h.onProcessed(Result{
			Route:     route,
			Payload:   e.Payload,
			Sequence:  seq,
			LatencyMs: latency,
		})
	}
	return nil
}

// Fault logs a failed event, the consumer carries on with the next one.
func (h *Handler) Fault(route Route, seq uint64, err error) {
	h.logger.ErrorStack(infra.WrapErrorStack(err), "message handling failed",
		zap.String("route", route.String()),
		zap.Uint64("sequence", seq),
	)
	h.stats.recordFault(route)
}
