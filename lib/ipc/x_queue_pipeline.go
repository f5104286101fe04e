package ipc

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/benz9527/xdispatch/lib/infra"
	"github.com/benz9527/xdispatch/lib/queue"
)

type pipelineStatus int32

const (
	pipelineReady pipelineStatus = iota
	pipelineRunning
	pipelineStopped
)

var _ QueuePipeline[int] = (*xQueuePipeline[int])(nil)

// xQueuePipeline feeds an unbounded blocking queue to a single consumer.
// Offer never blocks, the memory grows with the backlog instead.
type xQueuePipeline[T any] struct {
	q             queue.BlockingQueue[*T]
	handler       EventHandler[T]
	faultHandler  FaultHandler
	drainStrategy BlockStrategy
	cancel        context.CancelFunc
	doneC         chan struct{}
	// Sequence number of the last event handed to the consumer.
	cursor atomic.Uint64
	// Events offered and not handled yet.
	pending atomic.Int64
	status  pipelineStatus
}

// NewXQueuePipeline builds a pipeline. A nil handler disables the
// consumer goroutine, the events are then removed with Take.
func NewXQueuePipeline[T any](handler EventHandler[T], faultHandler FaultHandler) QueuePipeline[T] {
	if faultHandler == nil {
		faultHandler = func(uint64, error) {}
	}
	return &xQueuePipeline[T]{
		q:             queue.NewXBlockingQueue[*T](),
		handler:       handler,
		faultHandler:  faultHandler,
		drainStrategy: NewCondBlockStrategy(),
		status:        pipelineReady,
	}
}

func (p *xQueuePipeline[T]) Start() error {
	if !atomic.CompareAndSwapInt32((*int32)(&p.status), int32(pipelineReady), int32(pipelineRunning)) {
		return infra.NewErrorStack("[pipeline] already started")
	}
	if p.handler == nil {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.doneC = make(chan struct{})
	go p.eventsHandle(ctx)
	return nil
}

// Stop closes the queue. The consumer exits at once, the events left in
// the queue are discarded, call Drain before Stop to flush them.
func (p *xQueuePipeline[T]) Stop() error {
	if !atomic.CompareAndSwapInt32((*int32)(&p.status), int32(pipelineRunning), int32(pipelineStopped)) {
		return infra.NewErrorStack("[pipeline] not running")
	}
	err := p.q.Close()
	if p.cancel != nil {
		p.cancel()
		<-p.doneC
	}
	p.drainStrategy.Done()
	return err
}

func (p *xQueuePipeline[T]) IsStopped() bool {
	return atomic.LoadInt32((*int32)(&p.status)) != int32(pipelineRunning)
}

func (p *xQueuePipeline[T]) Offer(event *T) error {
	if p.IsStopped() {
		return ErrPipelineStopped
	}
	p.pending.Add(1)
	if err := p.q.Offer(event); err != nil {
		p.pending.Add(-1)
		if errors.Is(err, queue.ErrQueueClosed) {
			return ErrPipelineStopped
		}
		return infra.WrapErrorStack(err)
	}
	return nil
}

// Take removes the head event for a manual consumer.
func (p *xQueuePipeline[T]) Take(ctx context.Context) (*T, error) {
	e, err := p.q.Take(ctx)
	if err != nil {
		if errors.Is(err, queue.ErrQueueClosed) {
			return nil, ErrPipelineStopped
		}
		return nil, err
	}
	p.pending.Add(-1)
	p.drainStrategy.Done()
	return e, nil
}

// Len includes the event being handled.
func (p *xQueuePipeline[T]) Len() int64 {
	return p.pending.Load()
}

func (p *xQueuePipeline[T]) Drain(ctx context.Context) error {
	return p.drainStrategy.WaitFor(ctx, func() bool {
		return p.IsStopped() || p.Len() == 0
	})
}

func (p *xQueuePipeline[T]) eventsHandle(ctx context.Context) {
	defer close(p.doneC)
	for ctx.Err() == nil {
		e, err := p.q.Take(ctx)
		if err != nil {
			return
		}
		cursor := p.cursor.Add(1)
		if err = p.handleEvent(cursor, e); err != nil {
			p.faultHandler(cursor, err)
		}
		p.pending.Add(-1)
		p.drainStrategy.Done()
	}
}

func (p *xQueuePipeline[T]) handleEvent(cursor uint64, event *T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = infra.WrapErrorStack(fmt.Errorf("[pipeline] handler panic at cursor %d: %v", cursor, r))
		}
	}()
	return p.handler(cursor, event)
}
