package queue

import (
	"context"
	"sync"
	"sync/atomic"
)

var _ BlockingQueue[struct{}] = (*xBlockingQueue[struct{}])(nil)

type qNode[E any] struct {
	value E
	next  *qNode[E]
}

// xBlockingQueue is a mutex guarded singly linked list. Every element
// is a fresh heap node, released once it is taken.
// The notifyC holds at most one token, a woken taker keeps polling
// until the list is drained, so a missed token never strands elements.
type xBlockingQueue[E any] struct {
	lock     sync.Mutex
	head     *qNode[E]
	tail     *qNode[E]
	length   atomic.Int64
	notifyC  chan struct{}
	closeC   chan struct{}
	isClosed bool
}

func NewXBlockingQueue[E any]() BlockingQueue[E] {
	return &xBlockingQueue[E]{
		notifyC: make(chan struct{}, 1),
		closeC:  make(chan struct{}),
	}
}

func (q *xBlockingQueue[E]) Offer(e E) error {
	n := &qNode[E]{value: e}
	q.lock.Lock()
	if q.isClosed {
		q.lock.Unlock()
		return ErrQueueClosed
	}
	if q.tail == nil {
		q.head = n
	} else {
		q.tail.next = n
	}
	q.tail = n
	q.length.Add(1)
	q.lock.Unlock()

	select {
	case q.notifyC <- struct{}{}:
	default:
	}
	return nil
}

func (q *xBlockingQueue[E]) Poll() (E, bool) {
	q.lock.Lock()
	defer q.lock.Unlock()
	if q.head == nil {
		var zero E
		return zero, false
	}
	n := q.head
	q.head = n.next
	if q.head == nil {
		q.tail = nil
	}
	q.length.Add(-1)
	n.next = nil
	return n.value, true
}

// Take returns the elements offered before Close even after the queue
// is closed, ErrQueueClosed is returned once it is drained.
func (q *xBlockingQueue[E]) Take(ctx context.Context) (E, error) {
	for {
		if e, ok := q.Poll(); ok {
			return e, nil
		}
		if q.IsClosed() {
			var zero E
			return zero, ErrQueueClosed
		}
		select {
		case <-q.notifyC:
		case <-q.closeC:
		case <-ctx.Done():
			var zero E
			return zero, ctx.Err()
		}
	}
}

func (q *xBlockingQueue[E]) Len() int64 {
	return q.length.Load()
}

func (q *xBlockingQueue[E]) Close() error {
	q.lock.Lock()
	defer q.lock.Unlock()
	if q.isClosed {
		return nil
	}
	q.isClosed = true
	close(q.closeC)
	return nil
}

func (q *xBlockingQueue[E]) IsClosed() bool {
	q.lock.Lock()
	defer q.lock.Unlock()
	return q.isClosed
}
