package ipc

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/benz9527/xdispatch/lib/infra"
	"github.com/benz9527/xdispatch/lib/queue"
)

type publisherStatus int32

const (
	pubReady publisherStatus = iota
	pubRunning
)

var (
	_ Publisher[int] = (*xPublisher[int])(nil)
	_ Claimer[int]   = (*xPublisher[int])(nil)
)

// xPublisher claims sequences for any number of producers.
// A claim is a CAS on the write cursor, it is retried after a few spins
// and finally parked on the free strategy until the consumer advances.
type xPublisher[T any] struct {
	seq          Sequencer
	rb           queue.RingBuffer[T]
	pubStrategy  BlockStrategy // wakes the consumer
	freeStrategy BlockStrategy // wakes the parked producers
	status       publisherStatus
	spin         int32
}

func newXPublisher[T any](
	seq Sequencer,
	rb queue.RingBuffer[T],
	pubStrategy BlockStrategy,
	freeStrategy BlockStrategy,
) *xPublisher[T] {
	spin := int32(0)
	if runtime.NumCPU() > 1 {
		spin = activeSpin
	}
	return &xPublisher[T]{
		seq:          seq,
		rb:           rb,
		pubStrategy:  pubStrategy,
		freeStrategy: freeStrategy,
		status:       pubReady,
		spin:         spin,
	}
}

func (pub *xPublisher[T]) Start() error {
	if atomic.CompareAndSwapInt32((*int32)(&pub.status), int32(pubReady), int32(pubRunning)) {
		return nil
	}
	return infra.NewErrorStack("[disruptor] publisher already started")
}

func (pub *xPublisher[T]) Stop() error {
	if atomic.CompareAndSwapInt32((*int32)(&pub.status), int32(pubRunning), int32(pubReady)) {
		// Unpark the producers blocked on a full ring.
		pub.freeStrategy.Done()
		return nil
	}
	return infra.NewErrorStack("[disruptor] publisher already stopped")
}

func (pub *xPublisher[T]) IsStopped() bool {
	return atomic.LoadInt32((*int32)(&pub.status)) != int32(pubRunning)
}

// ClaimNext reserves the next sequence. Cancellation and stop are only
// observed before the CAS, a sequence returned here is always owned.
func (pub *xPublisher[T]) ClaimNext(ctx context.Context) (uint64, error) {
	spinCount := int32(0)
	for {
		if pub.IsStopped() {
			return 0, ErrDisruptorStopped
		}
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		cursor := pub.seq.GetWriteCursor().Load()
		next := cursor + 1
		if next-pub.seq.GetReadCursor().Load() < pub.seq.Capacity() {
			if pub.seq.GetWriteCursor().CompareAndSwap(cursor, next) {
				return next, nil
			}
			// Lost the race to another producer, retry at once.
			continue
		}
		if spinCount < pub.spin {
			spinCount++
			runtime.Gosched()
			continue
		}
		err := pub.freeStrategy.WaitFor(ctx, func() bool {
			return pub.IsStopped() || hasCapacity(pub.seq)
		})
		if err != nil {
			return 0, err
		}
		spinCount = 0
	}
}

func (pub *xPublisher[T]) SlotAt(cursor uint64) *T {
	return pub.rb.LoadEntryByCursor(cursor).ValueRef()
}

// Commit makes the slot of cursor visible to the consumer.
func (pub *xPublisher[T]) Commit(cursor uint64) {
	pub.rb.LoadEntryByCursor(cursor).Publish(cursor)
	pub.pubStrategy.Done()
}

func (pub *xPublisher[T]) Publish(ctx context.Context, event T) (uint64, error) {
	return pub.PublishWith(ctx, func(_ uint64, slot *T) {
		*slot = event
	})
}

func (pub *xPublisher[T]) PublishTimeout(event T, timeout time.Duration) (uint64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return pub.Publish(ctx, event)
}

func (pub *xPublisher[T]) PublishWith(ctx context.Context, translator func(cursor uint64, slot *T)) (uint64, error) {
	cursor, err := pub.ClaimNext(ctx)
	if err != nil {
		return 0, err
	}
	defer pub.Commit(cursor)
	translator(cursor, pub.SlotAt(cursor))
	return cursor, nil
}
