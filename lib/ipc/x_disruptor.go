package ipc

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/benz9527/xdispatch/lib/bits"
	"github.com/benz9527/xdispatch/lib/infra"
	"github.com/benz9527/xdispatch/lib/queue"
)

type disruptorStatus int32

const (
	disruptorReady disruptorStatus = iota
	disruptorRunning
)

var _ Disruptor[int] = (*xDisruptor[int])(nil)

type xDisruptorOptions struct {
	strategyFn   func() BlockStrategy
	faultHandler FaultHandler
}

type XDisruptorOption func(opt *xDisruptorOptions)

// WithXDisruptorBlockStrategy sets the factory of the strategies used to
// park the consumer on an empty ring and the producers on a full one.
func WithXDisruptorBlockStrategy(fn func() BlockStrategy) XDisruptorOption {
	return func(opt *xDisruptorOptions) {
		opt.strategyFn = fn
	}
}

func WithXDisruptorFaultHandler(handler FaultHandler) XDisruptorOption {
	return func(opt *xDisruptorOptions) {
		opt.faultHandler = handler
	}
}

// xDisruptor is a multi producers single consumer ring.
type xDisruptor[T any] struct {
	seq Sequencer
	pub *xPublisher[T]
	sub *xSubscriber[T]
	// Parks Drain callers, released by the consumer.
	drainStrategy BlockStrategy
	status        disruptorStatus
}

func NewXDisruptor[T any](
	capacity uint64,
	handler EventHandler[T],
	opts ...XDisruptorOption,
) (Disruptor[T], error) {
	if handler == nil {
		return nil, infra.NewErrorStack("[disruptor] nil event handler")
	}
	if capacity == 0 {
		return nil, infra.NewErrorStack("[disruptor] zero capacity")
	}
	o := &xDisruptorOptions{
		strategyFn: NewCondBlockStrategy,
	}
	for _, opt := range opts {
		opt(o)
	}

	capacity = bits.RoundupPowOf2ByCeil(capacity)
	if capacity < 2 {
		capacity = 2
	}
	seq := NewXSequencer(capacity)
	// Can't start from 0, because 0 is the stamp of a never published slot.
	seq.GetReadCursor().Next()
	rb := queue.NewXRingBuffer[T](capacity)
	pubStrategy := o.strategyFn()
	freeStrategy := o.strategyFn()
	dis := &xDisruptor[T]{
		seq:           seq,
		pub:           newXPublisher[T](seq, rb, pubStrategy, freeStrategy),
		drainStrategy: NewCondBlockStrategy(),
		status:        disruptorReady,
	}
	dis.sub = newXSubscriber[T](rb, handler, seq, pubStrategy, &fanoutStrategy{
		BlockStrategy: freeStrategy,
		others:        []BlockStrategy{dis.drainStrategy},
	}, o.faultHandler)
	return dis, nil
}

func (dis *xDisruptor[T]) Start() error {
	if atomic.CompareAndSwapInt32((*int32)(&dis.status), int32(disruptorReady), int32(disruptorRunning)) {
		if err := dis.sub.Start(); err != nil {
			atomic.StoreInt32((*int32)(&dis.status), int32(disruptorReady))
			return infra.WrapErrorStack(err)
		}
		if err := dis.pub.Start(); err != nil {
			_ = dis.sub.Stop()
			atomic.StoreInt32((*int32)(&dis.status), int32(disruptorReady))
			return infra.WrapErrorStack(err)
		}
		return nil
	}
	return infra.NewErrorStack("[disruptor] already started")
}

// Stop rejects new claims first, then stops the consumer. Events not yet
// consumed are discarded, call Drain before Stop to flush them.
func (dis *xDisruptor[T]) Stop() error {
	if atomic.CompareAndSwapInt32((*int32)(&dis.status), int32(disruptorRunning), int32(disruptorReady)) {
		if err := dis.pub.Stop(); err != nil {
			return infra.WrapErrorStack(err)
		}
		if err := dis.sub.Stop(); err != nil {
			return infra.WrapErrorStack(err)
		}
		dis.drainStrategy.Done()
		return nil
	}
	return infra.NewErrorStack("[disruptor] already stopped")
}

func (dis *xDisruptor[T]) IsStopped() bool {
	return atomic.LoadInt32((*int32)(&dis.status)) != int32(disruptorRunning)
}

func (dis *xDisruptor[T]) Capacity() uint64 {
	return dis.seq.Capacity()
}

func (dis *xDisruptor[T]) Backlog() uint64 {
	return backlog(dis.seq)
}

func (dis *xDisruptor[T]) Drain(ctx context.Context) error {
	return dis.drainStrategy.WaitFor(ctx, func() bool {
		return dis.sub.IsStopped() || backlog(dis.seq) == 0
	})
}

func (dis *xDisruptor[T]) ClaimNext(ctx context.Context) (uint64, error) {
	return dis.pub.ClaimNext(ctx)
}

func (dis *xDisruptor[T]) SlotAt(cursor uint64) *T {
	return dis.pub.SlotAt(cursor)
}

func (dis *xDisruptor[T]) Commit(cursor uint64) {
	dis.pub.Commit(cursor)
}

func (dis *xDisruptor[T]) Publish(ctx context.Context, event T) (uint64, error) {
	return dis.pub.Publish(ctx, event)
}

func (dis *xDisruptor[T]) PublishTimeout(event T, timeout time.Duration) (uint64, error) {
	return dis.pub.PublishTimeout(event, timeout)
}

func (dis *xDisruptor[T]) PublishWith(ctx context.Context, translator func(cursor uint64, slot *T)) (uint64, error) {
	return dis.pub.PublishWith(ctx, translator)
}

// fanoutStrategy parks on the embedded strategy and signals all of them.
type fanoutStrategy struct {
	BlockStrategy
	others []BlockStrategy
}

func (s *fanoutStrategy) Done() {
	s.BlockStrategy.Done()
	for _, o := range s.others {
		o.Done()
	}
}
