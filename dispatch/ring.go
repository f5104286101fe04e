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

// Consumer processes the events of a dispatcher, one at a time.
// Fault receives the errors returned by Handle and its recovered panics.
type Consumer interface {
	Handle(route Route, seq uint64, e *Event) error
	Fault(route Route, seq uint64, err error)
}

// RingDispatcher publishes into a bounded ring of pre-allocated events.
// Producers claim a sequence, fill the slot and publish it. A producer
// blocks while the ring is full, it never overwrites an event the
// consumer has not finished with.
type RingDispatcher struct {
	dis    ipc.Disruptor[Event]
	clock  hrtime.Clock
	logger xlog.XLogger
	stats  *Stats
}

// NewRingDispatcher rounds the capacity up to a power of two.
func NewRingDispatcher(capacity uint64, consumer Consumer, opts ...Option) (*RingDispatcher, error) {
	if consumer == nil {
		return nil, infra.NewErrorStack("[dispatch] nil ring consumer")
	}
	o := newDispatchOptions(opts...)
	xopts := []ipc.XDisruptorOption{
		ipc.WithXDisruptorFaultHandler(func(cursor uint64, err error) {
			consumer.Fault(RouteRing, cursor, err)
		}),
	}
	if o.strategyFn != nil {
		xopts = append(xopts, ipc.WithXDisruptorBlockStrategy(o.strategyFn))
	}
	dis, err := ipc.NewXDisruptor[Event](
		capacity,
		func(cursor uint64, e *Event) error {
			return consumer.Handle(RouteRing, cursor, e)
		},
		xopts...,
	)
	if err != nil {
		return nil, err
	}
	rd := &RingDispatcher{
		dis:    dis,
		clock:  o.clock,
		logger: o.logger.Named("Ring"),
		stats:  o.stats,
	}
	rd.stats.observeBacklog(RouteRing, func() int64 {
		return int64(rd.Backlog())
	})
	return rd, nil
}

// Start launches the single consumer goroutine.
func (rd *RingDispatcher) Start() error {
	if err := rd.dis.Start(); err != nil {
		return err
	}
	rd.logger.Info("ring dispatcher started", zap.Uint64("capacity", rd.Capacity()))
	return nil
}

// Stop rejects new claims and stops the consumer, unconsumed events are dropped.
func (rd *RingDispatcher) Stop() error {
	if err := rd.dis.Stop(); err != nil {
		return err
	}
	rd.logger.Info("ring dispatcher stopped", zap.Uint64("discarded", rd.Backlog()))
	return nil
}

// Shutdown waits for the accepted events to be processed, then stops.
// The dispatcher is stopped even if ctx expires first.
func (rd *RingDispatcher) Shutdown(ctx context.Context) error {
	drainErr := rd.dis.Drain(ctx)
	return multierr.Combine(drainErr, rd.Stop())
}

func (rd *RingDispatcher) IsStopped() bool {
	return rd.dis.IsStopped()
}

func (rd *RingDispatcher) Capacity() uint64 {
	return rd.dis.Capacity()
}

// Backlog is the number of claimed sequences not consumed yet.
func (rd *RingDispatcher) Backlog() uint64 {
	return rd.dis.Backlog()
}

// ClaimNext reserves the next sequence, it blocks while the ring is full.
// The caller owns SlotAt(seq) until Publish(seq), and must publish every
// claimed sequence, otherwise the consumer stalls on it.
func (rd *RingDispatcher) ClaimNext(ctx context.Context) (uint64, error) {
	seq, err := rd.dis.ClaimNext(ctx)
	if err != nil {
		return 0, rd.translateErr(err)
	}
	return seq, nil
}

func (rd *RingDispatcher) SlotAt(seq uint64) *Event {
	return rd.dis.SlotAt(seq)
}

// Publish makes a filled slot visible to the consumer.
func (rd *RingDispatcher) Publish(seq uint64) {
	rd.dis.Commit(seq)
}

// PublishMessage stamps the payload into the next slot. The returned
// sequence is the acceptance order of the message.
func (rd *RingDispatcher) PublishMessage(ctx context.Context, payload string) (uint64, error) {
	seq, err := rd.dis.PublishWith(ctx, func(_ uint64, slot *Event) {
		slot.Payload = payload
		slot.EnqueuedAtMillis = rd.clock.NowInUTC().UnixMilli()
	})
	if err != nil {
		rd.stats.recordPublishFailed(RouteRing)
		return 0, rd.translateErr(err)
	}
	rd.stats.recordPublished(RouteRing)
	return seq, nil
}

func (rd *RingDispatcher) translateErr(err error) error {
	if errors.Is(err, ipc.ErrDisruptorStopped) {
		return ErrDispatcherStopped
	}
	return infra.WrapErrorStack(err)
}
