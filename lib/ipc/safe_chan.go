package ipc

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
)

var ErrChannelClosed = errors.New("[channel] closed")

type ReadOnlyChannel[T any] interface {
	Wait() <-chan T
}

type SendOnlyChannel[T any] interface {
	Send(ctx context.Context, v T) error
	// TrySend drops v when the receiver is not ready.
	TrySend(v T) bool
	IsClosed() bool
}

type ClosableChannel[T any] interface {
	io.Closer
	ReadOnlyChannel[T]
	SendOnlyChannel[T]
}

// safeClosableChannel makes sure the channel is closed only once and
// never while a sender is in flight, which would panic with
// "send on closed channel".
type safeClosableChannel[T any] struct {
	lock     sync.RWMutex
	queueC   chan T
	isClosed atomic.Bool
}

var (
	_ ReadOnlyChannel[struct{}] = (*safeClosableChannel[struct{}])(nil)
	_ SendOnlyChannel[struct{}] = (*safeClosableChannel[struct{}])(nil)
)

func NewSafeClosableChannel[T any](size int) ClosableChannel[T] {
	if size < 0 {
		size = 0
	}
	return &safeClosableChannel[T]{
		queueC: make(chan T, size),
	}
}

func (c *safeClosableChannel[T]) IsClosed() bool {
	return c.isClosed.Load()
}

// Close waits for the in flight senders, a blocked Send must therefore
// be unblocked by its context.
func (c *safeClosableChannel[T]) Close() error {
	if !c.isClosed.CompareAndSwap(false, true) {
		return nil
	}
	c.lock.Lock()
	close(c.queueC)
	c.lock.Unlock()
	return nil
}

func (c *safeClosableChannel[T]) Wait() <-chan T {
	return c.queueC
}

func (c *safeClosableChannel[T]) Send(ctx context.Context, v T) error {
	c.lock.RLock()
	defer c.lock.RUnlock()
	if c.isClosed.Load() {
		return ErrChannelClosed
	}
	select {
	case c.queueC <- v:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *safeClosableChannel[T]) TrySend(v T) bool {
	c.lock.RLock()
	defer c.lock.RUnlock()
	if c.isClosed.Load() {
		return false
	}
	select {
	case c.queueC <- v:
		return true
	default:
		return false
	}
}
