package ipc

import (
	"context"
	"errors"
	"time"

	"github.com/benz9527/xdispatch/lib/queue"
)

var (
	ErrDisruptorStopped = errors.New("[disruptor] stopped")
	ErrPipelineStopped  = errors.New("[pipeline] stopped")
)

type stopper interface {
	Start() error
	Stop() error
	IsStopped() bool
}

// Publisher copies the event into the claimed slot and publishes it.
type Publisher[T any] interface {
	Publish(ctx context.Context, event T) (uint64, error)
	PublishTimeout(event T, timeout time.Duration) (uint64, error)
	// PublishWith hands the claimed slot to the translator for in-place
	// writes. The slot is published even if the translator panics.
	PublishWith(ctx context.Context, translator func(cursor uint64, slot *T)) (uint64, error)
}

type Producer[T any] Publisher[T]

// Claimer is the two-phase protocol beneath Publisher.
// Every cursor returned by ClaimNext must be committed exactly once.
type Claimer[T any] interface {
	ClaimNext(ctx context.Context) (uint64, error)
	SlotAt(cursor uint64) *T
	Commit(cursor uint64)
}

// BlockStrategy parks a waiter until eqFn is satisfied.
// Done must be called after every state change a waiter may observe.
type BlockStrategy interface {
	WaitFor(ctx context.Context, eqFn func() bool) error
	Done()
}

// EventHandler is invoked by the single consumer. The event pointer is
// valid only during the call, the slot is reused after it returns.
type EventHandler[T any] func(cursor uint64, event *T) error // OnEvent

// FaultHandler receives handler errors and recovered panics.
type FaultHandler func(cursor uint64, err error)

type Subscriber[T any] interface {
	HandleEvent(cursor uint64, event *T) error
}

type Sequencer interface {
	Capacity() uint64
	GetReadCursor() queue.RingBufferCursor
	GetWriteCursor() queue.RingBufferCursor
}

type Disruptor[T any] interface {
	Publisher[T]
	Claimer[T]
	stopper
	Capacity() uint64
	// Backlog is the number of claimed sequences not consumed yet.
	Backlog() uint64
	// Drain waits until every claimed sequence has been consumed.
	Drain(ctx context.Context) error
}

type QueuePipeline[T any] interface {
	stopper
	Offer(event *T) error
	Take(ctx context.Context) (*T, error)
	Len() int64
	Drain(ctx context.Context) error
}
