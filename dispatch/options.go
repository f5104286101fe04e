package dispatch

import (
	"time"

	"github.com/benz9527/xdispatch/lib/hrtime"
	"github.com/benz9527/xdispatch/lib/ipc"
	"github.com/benz9527/xdispatch/xlog"
)

// DefaultProcessingDelay simulates the downstream cost of a message.
const DefaultProcessingDelay = 10 * time.Millisecond

type dispatchOptions struct {
	logger      xlog.XLogger
	clock       hrtime.Clock
	stats       *Stats
	delay       time.Duration
	onProcessed func(Result)
	strategyFn  func() ipc.BlockStrategy
}

func newDispatchOptions(opts ...Option) *dispatchOptions {
	o := &dispatchOptions{
		clock: hrtime.GoMonotonicClock,
		delay: DefaultProcessingDelay,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if o.logger == nil {
		o.logger = xlog.NewXLogger(xlog.WithXLoggerStdOutWriter())
	}
	return o
}

type Option func(opts *dispatchOptions)

func WithLogger(logger xlog.XLogger) Option {
	return func(opts *dispatchOptions) {
		opts.logger = logger
	}
}

// WithClock replaces the clock stamping and measuring the events.
// The default clock never goes backward, the latency is never negative.
func WithClock(clock hrtime.Clock) Option {
	return func(opts *dispatchOptions) {
		if clock != nil {
			opts.clock = clock
		}
	}
}

func WithStats(stats *Stats) Option {
	return func(opts *dispatchOptions) {
		opts.stats = stats
	}
}

// WithProcessingDelay sets the artificial cost of every message, 0 disables it.
func WithProcessingDelay(delay time.Duration) Option {
	return func(opts *dispatchOptions) {
		if delay >= 0 {
			opts.delay = delay
		}
	}
}

// WithOnProcessed registers a callback invoked on the consumer
// goroutine after every processed message.
func WithOnProcessed(fn func(Result)) Option {
	return func(opts *dispatchOptions) {
		opts.onProcessed = fn
	}
}

func WithRingBlockStrategy(fn func() ipc.BlockStrategy) Option {
	return func(opts *dispatchOptions) {
		opts.strategyFn = fn
	}
}
