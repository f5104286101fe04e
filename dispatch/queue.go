package dispatch

import (
	"context"
	"errors"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/benz9527/xdispatch/lib/hrtime"
	"github.com/benz9527/xdispatch/lib/infra"
	"github.com/benz9527/xdispatch/lib/ipc"
	"github.com/benz9527/xdispatch/xlog"
)

// QueueDispatcher feeds an unbounded FIFO to a single consumer.
// Enqueue never blocks, the memory grows with the backlog.
type QueueDispatcher struct {
	pipeline ipc.QueuePipeline[Event]
	clock    hrtime.Clock
	logger   xlog.XLogger
	stats    *Stats
}

// NewQueueDispatcher builds a dispatcher. A nil consumer disables the
// consumer goroutine, the events are then removed with Dequeue.
func NewQueueDispatcher(consumer Consumer, opts ...Option) *QueueDispatcher {
	o := newDispatchOptions(opts...)
	var (
		handler ipc.EventHandler[Event]
		fault   ipc.FaultHandler
	)
	if consumer != nil {
		handler = func(cursor uint64, e *Event) error {
			return consumer.Handle(RouteQueue, cursor, e)
		}
		fault = func(cursor uint64, err error) {
			consumer.Fault(RouteQueue, cursor, err)
		}
	}
	qd := &QueueDispatcher{
		pipeline: ipc.NewXQueuePipeline[Event](handler, fault),
		clock:    o.clock,
		logger:   o.logger.Named("Queue"),
		stats:    o.stats,
	}
	qd.stats.observeBacklog(RouteQueue, qd.Len)
	return qd
}

func (qd *QueueDispatcher) Start() error {
	if err := qd.pipeline.Start(); err != nil {
		return err
	}
	qd.logger.Info("queue dispatcher started")
	return nil
}

// Stop closes the queue, the events still queued are dropped.
func (qd *QueueDispatcher) Stop() error {
	discarded := qd.Len()
	if err := qd.pipeline.Stop(); err != nil {
		return err
	}
	qd.logger.Info("queue dispatcher stopped", zap.Int64("discarded", discarded))
	return nil
}

// Shutdown waits for the queued events to be processed, then stops.
func (qd *QueueDispatcher) Shutdown(ctx context.Context) error {
	drainErr := qd.pipeline.Drain(ctx)
	return multierr.Combine(drainErr, qd.Stop())
}

func (qd *QueueDispatcher) IsStopped() bool {
	return qd.pipeline.IsStopped()
}

// Len is the number of accepted events not processed yet.
func (qd *QueueDispatcher) Len() int64 {
	return qd.pipeline.Len()
}

// Enqueue appends a freshly allocated event to the tail of the queue.
func (qd *QueueDispatcher) Enqueue(payload string) error {
	e := &Event{
		Payload:          payload,
		EnqueuedAtMillis: qd.clock.NowInUTC().UnixMilli(),
	}
	if err := qd.pipeline.Offer(e); err != nil {
		qd.stats.recordPublishFailed(RouteQueue)
		return qd.translateErr(err)
	}
	qd.stats.recordPublished(RouteQueue)
	return nil
}

// Dequeue removes the head event, blocking while the queue is empty.
// Only meaningful without a consumer.
func (qd *QueueDispatcher) Dequeue(ctx context.Context) (*Event, error) {
	e, err := qd.pipeline.Take(ctx)
	if err != nil {
		return nil, qd.translateErr(err)
	}
	return e, nil
}

func (qd *QueueDispatcher) translateErr(err error) error {
	switch {
	case errors.Is(err, ipc.ErrPipelineStopped):
		return ErrDispatcherStopped
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return infra.WrapErrorStack(err)
}
