package ipc

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/benz9527/xdispatch/lib/infra"
	"github.com/benz9527/xdispatch/lib/queue"
)

type subscriberStatus int32

const (
	subReady subscriberStatus = iota
	subRunning
)

const (
	activeSpin  = 4
	passiveSpin = 2
)

var _ Subscriber[int] = (*xSubscriber[int])(nil)

type xSubscriber[T any] struct {
	rb           queue.RingBuffer[T]
	seq          Sequencer
	pubStrategy  BlockStrategy
	freeStrategy BlockStrategy
	handler      EventHandler[T]
	faultHandler FaultHandler
	cancel       context.CancelFunc
	doneC        chan struct{}
	status       subscriberStatus
	spin         int32
}

func newXSubscriber[T any](
	rb queue.RingBuffer[T],
	handler EventHandler[T],
	seq Sequencer,
	pubStrategy BlockStrategy,
	freeStrategy BlockStrategy,
	faultHandler FaultHandler,
) *xSubscriber[T] {
	spin := int32(0)
	if runtime.NumCPU() > 1 {
		spin = activeSpin
	}
	if faultHandler == nil {
		faultHandler = func(uint64, error) {}
	}
	return &xSubscriber[T]{
		status:       subReady,
		seq:          seq,
		rb:           rb,
		pubStrategy:  pubStrategy,
		freeStrategy: freeStrategy,
		handler:      handler,
		faultHandler: faultHandler,
		spin:         spin,
	}
}

func (sub *xSubscriber[T]) Start() error {
	if atomic.CompareAndSwapInt32((*int32)(&sub.status), int32(subReady), int32(subRunning)) {
		ctx, cancel := context.WithCancel(context.Background())
		sub.cancel = cancel
		sub.doneC = make(chan struct{})
		go sub.eventsHandle(ctx)
		return nil
	}
	return infra.NewErrorStack("[disruptor] subscriber already started")
}

// Stop returns after the consumer goroutine exits. It must not be
// called from the event handler.
func (sub *xSubscriber[T]) Stop() error {
	if atomic.CompareAndSwapInt32((*int32)(&sub.status), int32(subRunning), int32(subReady)) {
		sub.cancel()
		<-sub.doneC
		sub.freeStrategy.Done()
		return nil
	}
	return infra.NewErrorStack("[disruptor] subscriber already stopped")
}

func (sub *xSubscriber[T]) IsStopped() bool {
	return atomic.LoadInt32((*int32)(&sub.status)) == int32(subReady)
}

func (sub *xSubscriber[T]) eventsHandle(ctx context.Context) {
	defer close(sub.doneC)
	readCursor := sub.seq.GetReadCursor().Load()
	spinCount := int32(0)
	for {
		if ctx.Err() != nil {
			return
		}
		e := sub.rb.LoadEntryByCursor(readCursor)
		if e.GetCursor() == readCursor {
			if err := sub.HandleEvent(readCursor, e.ValueRef()); err != nil {
				sub.faultHandler(readCursor, err)
			}
			var zero T
			*e.ValueRef() = zero
			readCursor = sub.seq.GetReadCursor().Next()
			sub.freeStrategy.Done()
			spinCount = 0
			continue
		}
		if spinCount < sub.spin {
			spinCount++
			continue
		} else if spinCount < sub.spin+passiveSpin {
			spinCount++
			runtime.Gosched()
			continue
		}
		_ = sub.pubStrategy.WaitFor(ctx, func() bool {
			return sub.rb.LoadEntryByCursor(readCursor).GetCursor() == readCursor
		})
		spinCount = 0
	}
}

// HandleEvent isolates the handler, a panic is converted into an error
// so the consumer keeps going.
func (sub *xSubscriber[T]) HandleEvent(cursor uint64, event *T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = infra.WrapErrorStack(fmt.Errorf("[disruptor] handler panic at cursor %d: %v", cursor, r))
		}
	}()
	return sub.handler(cursor, event)
}
